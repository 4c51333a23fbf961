package store

import (
	"math"

	"github.com/tablecast/tablecast/internal/models"
)

const (
	minZoom = 0.2
	maxZoom = 8.0
)

// SetMapURL records a client-submitted map image URL.
func (s *SessionStore) SetMapURL(id, url string) (*models.SessionState, error) {
	return s.Apply(id, func(session *models.SessionState) error {
		session.Map.ImageURL = &url
		return nil
	})
}

// SetMapImage records the URL produced by a completed upload. Same effect
// as SetMapURL; kept as a distinct entry point for the upload call site.
func (s *SessionStore) SetMapImage(id, url string) (*models.SessionState, error) {
	return s.SetMapURL(id, url)
}

// SetWarp replaces the warp corners verbatim. Corner positions are
// caller-controlled and intentionally not clamped.
func (s *SessionStore) SetWarp(id string, warp models.WarpConfig) (*models.SessionState, error) {
	return s.Apply(id, func(session *models.SessionState) error {
		corners := make([]models.WarpPoint, len(warp.Corners))
		copy(corners, warp.Corners)
		session.Map.Warp = models.WarpConfig{Corners: corners}
		return nil
	})
}

// SetGridSize records the optional grid scalar; nil clears it.
func (s *SessionStore) SetGridSize(id string, gridSize *float64) (*models.SessionState, error) {
	return s.Apply(id, func(session *models.SessionState) error {
		if gridSize == nil {
			session.Map.GridSize = nil
			return nil
		}
		v := *gridSize
		session.Map.GridSize = &v
		return nil
	})
}

// SetMapView stores the view after clamping: zoom into [0.2, 8.0],
// rotation normalized into [0, 360), and the center constrained so the
// visible half-width (0.5/zoom) keeps the window inside the unit square.
func (s *SessionStore) SetMapView(id string, view models.MapView) (*models.SessionState, error) {
	return s.Apply(id, func(session *models.SessionState) error {
		zoom := math.Min(maxZoom, math.Max(minZoom, view.Zoom))

		rotation := math.Mod(view.Rotation, 360)
		if rotation < 0 {
			rotation += 360
		}

		halfWidth := 0.5 / zoom
		session.Map.View = models.MapView{
			Center: models.WarpPoint{
				X: math.Max(halfWidth, math.Min(1-halfWidth, clampUnit(view.Center.X))),
				Y: math.Max(halfWidth, math.Min(1-halfWidth, clampUnit(view.Center.Y))),
			},
			Zoom:     zoom,
			Rotation: rotation,
		}
		return nil
	})
}
