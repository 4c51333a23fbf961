package store

import (
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tablecast/tablecast/internal/models"
	apperrors "github.com/tablecast/tablecast/pkg/errors"
	"github.com/tablecast/tablecast/pkg/metrics"
)

// Broadcaster receives the committed snapshot after every mutation. The
// store invokes it while still holding the exclusive section, so an
// implementation must only enqueue in memory and never block on I/O.
type Broadcaster interface {
	BroadcastState(sessionID string, state any)
}

// SessionStore owns every session aggregate. All writes run under one
// store-wide exclusive section; consumers only ever receive deep-copied
// snapshots.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.SessionState
	notifier Broadcaster
	now      func() time.Time
}

// Option customises the SessionStore.
type Option func(*SessionStore)

// WithBroadcaster wires the subscriber fan-out invoked on each commit.
func WithBroadcaster(b Broadcaster) Option {
	return func(s *SessionStore) {
		s.notifier = b
	}
}

// WithNow overrides the clock used for last-modified stamps, primarily for testing.
func WithNow(now func() time.Time) Option {
	return func(s *SessionStore) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs an empty SessionStore.
func New(opts ...Option) *SessionStore {
	s := &SessionStore{
		sessions: make(map[string]*models.SessionState),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Normalize folds a session identifier to its canonical uppercase form.
func Normalize(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// CreateSessionInput carries the optional display name and desired id for a new session.
type CreateSessionInput struct {
	Name      *string
	SessionID string
}

// Create registers a new session. A desired id is normalized and used as
// given; otherwise a fresh short id is generated. Returns ErrSessionExists
// when the normalized id is already taken.
func (s *SessionStore) Create(in CreateSessionInput) (*models.SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := Normalize(in.SessionID)
	if id == "" {
		id = s.generateSessionIDLocked()
	}

	if _, exists := s.sessions[id]; exists {
		return nil, apperrors.ErrSessionExists
	}

	session := models.NewSession(id, in.Name)
	session.UpdatedAt = s.now().UTC()
	s.sessions[id] = session
	metrics.ActiveSessions.Set(float64(len(s.sessions)))

	return session.Clone(), nil
}

// Get returns a snapshot of the session, or ErrSessionNotFound.
func (s *SessionStore) Get(id string) (*models.SessionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[Normalize(id)]
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}
	return session.Clone(), nil
}

// List returns snapshots of every session, ordered by id.
func (s *SessionStore) List() []*models.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.SessionState, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session.Clone())
	}

	sortSessions(out)
	return out
}

// Apply is the sole atomic-update primitive. It runs mutate under the
// store's exclusive section, re-synchronizes token ordering, stamps the
// last-modified timestamp, and hands the committed snapshot to the
// broadcaster before the next mutation may begin. A mutate error aborts
// the update without touching the session.
func (s *SessionStore) Apply(id string, mutate func(*models.SessionState) error) (*models.SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[Normalize(id)]
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}

	if err := mutate(session); err != nil {
		return nil, err
	}

	syncTokenOrder(session)
	session.UpdatedAt = s.now().UTC()

	snapshot := session.Clone()
	if s.notifier != nil {
		s.notifier.BroadcastState(session.ID, snapshot)
	}

	return snapshot, nil
}

// PruneIdle removes sessions whose last mutation predates cutoff and for
// which inUse reports no live subscribers. Returns the removed ids.
func (s *SessionStore) PruneIdle(cutoff time.Time, inUse func(sessionID string) bool) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string
	for id, session := range s.sessions {
		if !session.UpdatedAt.Before(cutoff) {
			continue
		}
		if inUse != nil && inUse(id) {
			continue
		}
		delete(s.sessions, id)
		removed = append(removed, id)
	}

	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	return removed
}

// generateSessionIDLocked produces a fresh short uppercase id, retrying on
// the unlikely collision. Callers must hold the write lock.
func (s *SessionStore) generateSessionIDLocked() string {
	for {
		id := uuid.New()
		candidate := strings.ToUpper(hex.EncodeToString(id[:])[:6])
		if _, exists := s.sessions[candidate]; !exists {
			return candidate
		}
	}
}

// newEntityID returns a 32-character hex id for tokens and presets.
func newEntityID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// syncTokenOrder restores the bijection between the token collection and
// the order list: ids without a token are dropped, tokens missing from the
// order list are appended, and relative order of surviving entries is kept.
func syncTokenOrder(session *models.SessionState) {
	if len(session.Tokens) == 0 {
		session.TokenOrder = []string{}
		return
	}

	byID := make(map[string]models.Token, len(session.Tokens))
	for _, token := range session.Tokens {
		byID[token.ID] = token
	}

	ordered := make([]models.Token, 0, len(session.Tokens))
	seen := make([]string, 0, len(session.Tokens))
	for _, id := range session.TokenOrder {
		token, ok := byID[id]
		if !ok {
			continue
		}
		delete(byID, id)
		ordered = append(ordered, token)
		seen = append(seen, id)
	}

	remaining := make([]models.Token, 0, len(byID))
	for _, token := range session.Tokens {
		if _, pending := byID[token.ID]; pending {
			remaining = append(remaining, token)
			delete(byID, token.ID)
		}
	}

	ordered = append(ordered, remaining...)
	for _, token := range remaining {
		seen = append(seen, token.ID)
	}

	session.Tokens = ordered
	session.TokenOrder = seen
}

func sortSessions(sessions []*models.SessionState) {
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].ID < sessions[j].ID
	})
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// clampUnitOr clamps a supplied coordinate to [0,1], falling back when the
// value is absent.
func clampUnitOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return clampUnit(*v)
}
