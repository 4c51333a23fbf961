package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tablecast/tablecast/internal/models"
	"github.com/tablecast/tablecast/internal/store"
	"github.com/tablecast/tablecast/internal/uploads"
	apperrors "github.com/tablecast/tablecast/pkg/errors"
	"github.com/tablecast/tablecast/pkg/response"
)

// MapHandler exposes map image, warp and view endpoints.
type MapHandler struct {
	store         *store.SessionStore
	uploads       *uploads.Storage
	publicBaseURL string
	maxUploadSize int64
}

// NewMapHandler constructs a handler. publicBaseURL overrides the
// scheme://host derived from the request when building upload URLs; leave
// it empty to follow the request.
func NewMapHandler(sessions *store.SessionStore, storage *uploads.Storage, publicBaseURL string, maxUploadSize int64) *MapHandler {
	return &MapHandler{
		store:         sessions,
		uploads:       storage,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		maxUploadSize: maxUploadSize,
	}
}

type pointPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type setMapURLRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// POST /api/sessions/:session_id/map/url
func (h *MapHandler) SetURL(c *gin.Context) {
	var payload setMapURLRequest
	if !bindAndValidate(c, &payload) {
		return
	}

	session, err := h.store.SetMapURL(c.Param("session_id"), payload.URL)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, session)
}

// POST /api/sessions/:session_id/map/upload
//
// The file is written to storage first; the store mutation only records
// the resulting URL, so no disk I/O runs inside the exclusive section.
func (h *MapHandler) Upload(c *gin.Context) {
	// Resolve the canonical id before writing any bytes to disk.
	session, err := h.store.Get(c.Param("session_id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	if h.maxUploadSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize)
	}

	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, apperrors.NewBadRequest("multipart field 'file' is required"))
		return
	}

	file, err := header.Open()
	if err != nil {
		response.Error(c, apperrors.Wrap(err, "open uploaded file"))
		return
	}
	defer file.Close()

	relPath, err := h.uploads.SaveMapImage(session.ID, header.Filename, file)
	if err != nil {
		response.Error(c, apperrors.Wrap(err, "store uploaded map image"))
		return
	}

	updated, err := h.store.SetMapImage(session.ID, h.uploadURL(c, relPath))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, updated)
}

type warpUpdateRequest struct {
	Warp struct {
		Corners []pointPayload `json:"corners" validate:"required,len=4"`
	} `json:"warp" validate:"required"`
}

// POST /api/sessions/:session_id/warp
func (h *MapHandler) SetWarp(c *gin.Context) {
	var payload warpUpdateRequest
	if !bindAndValidate(c, &payload) {
		return
	}

	corners := make([]models.WarpPoint, len(payload.Warp.Corners))
	for i, corner := range payload.Warp.Corners {
		corners[i] = models.WarpPoint{X: corner.X, Y: corner.Y}
	}

	session, err := h.store.SetWarp(c.Param("session_id"), models.WarpConfig{Corners: corners})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, session)
}

type viewPayload struct {
	Center   pointPayload `json:"center"`
	Zoom     float64      `json:"zoom"`
	Rotation float64      `json:"rotation"`
}

type viewUpdateRequest struct {
	View *viewPayload `json:"view" validate:"required"`
}

// POST /api/sessions/:session_id/view
func (h *MapHandler) SetView(c *gin.Context) {
	var payload viewUpdateRequest
	if !bindAndValidate(c, &payload) {
		return
	}

	session, err := h.store.SetMapView(c.Param("session_id"), models.MapView{
		Center:   models.WarpPoint{X: payload.View.Center.X, Y: payload.View.Center.Y},
		Zoom:     payload.View.Zoom,
		Rotation: payload.View.Rotation,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, session)
}

type gridSizeRequest struct {
	GridSize *float64 `json:"grid_size" validate:"omitempty,gt=0"`
}

// POST /api/sessions/:session_id/map/grid
func (h *MapHandler) SetGridSize(c *gin.Context) {
	var payload gridSizeRequest
	if !bindAndValidate(c, &payload) {
		return
	}

	session, err := h.store.SetGridSize(c.Param("session_id"), payload.GridSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, session)
}

func (h *MapHandler) uploadURL(c *gin.Context, relPath string) string {
	base := h.publicBaseURL
	if base == "" {
		scheme := "http"
		if c.Request.TLS != nil {
			scheme = "https"
		}
		base = scheme + "://" + c.Request.Host
	}
	return base + "/uploads/" + relPath
}
