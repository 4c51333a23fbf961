package uploads

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// MapFileBase is the fixed basename for a session's map image; re-uploads
// overwrite the previous file.
const MapFileBase = "map"

var safeExt = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)

// Storage writes uploaded map images to a local directory that is served
// statically under /uploads. Writes always complete before the resulting
// URL is recorded in the session store, so no file I/O ever runs inside
// the store's exclusive section.
type Storage struct {
	dir string
}

// NewStorage ensures the upload directory exists.
func NewStorage(dir string) (*Storage, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("uploads: directory must be provided")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("uploads: create directory: %w", err)
	}
	return &Storage{dir: dir}, nil
}

// Dir returns the root directory served under /uploads.
func (s *Storage) Dir() string {
	return s.dir
}

// SaveMapImage stores the uploaded bytes as the session's map image and
// returns the path relative to the upload root. The extension is taken
// from the original filename, falling back to .png.
func (s *Storage) SaveMapImage(sessionID, filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !safeExt.MatchString(ext) {
		ext = ".png"
	}

	sessionDir := filepath.Join(s.dir, sessionID)
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		return "", fmt.Errorf("uploads: create session directory: %w", err)
	}

	name := MapFileBase + ext
	dest, err := os.Create(filepath.Join(sessionDir, name))
	if err != nil {
		return "", fmt.Errorf("uploads: create file: %w", err)
	}
	defer dest.Close()

	if _, err := io.Copy(dest, r); err != nil {
		return "", fmt.Errorf("uploads: write file: %w", err)
	}
	if err := dest.Close(); err != nil {
		return "", fmt.Errorf("uploads: flush file: %w", err)
	}

	return path.Join(sessionID, name), nil
}
