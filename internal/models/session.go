package models

import "time"

// TokenKind classifies a token placed on the map.
type TokenKind string

// Supported token kinds. The set is closed; requests carrying any other
// value are rejected before they reach the store.
const (
	TokenKindPC   TokenKind = "pc"
	TokenKindNPC  TokenKind = "npc"
	TokenKindProp TokenKind = "prop"
)

// Valid reports whether the kind is one of the supported values.
func (k TokenKind) Valid() bool {
	switch k {
	case TokenKindPC, TokenKindNPC, TokenKindProp:
		return true
	}
	return false
}

// DefaultTokenColor is applied when a create request omits the color.
const DefaultTokenColor = "#ffffff"

// WarpPoint is a point in normalized scene space.
type WarpPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// WarpConfig holds the four corner points keying the map image onto the
// physical projection surface. Corners are caller-controlled and are not
// clamped.
type WarpConfig struct {
	Corners []WarpPoint `json:"corners"`
}

// DefaultWarp returns the initial warp corners: an inset rectangle.
func DefaultWarp() WarpConfig {
	return WarpConfig{
		Corners: []WarpPoint{
			{X: 0.05, Y: 0.05},
			{X: 0.95, Y: 0.05},
			{X: 0.95, Y: 0.95},
			{X: 0.05, Y: 0.95},
		},
	}
}

// MapView describes the visible window onto the map.
type MapView struct {
	Center   WarpPoint `json:"center"`
	Zoom     float64   `json:"zoom"`
	Rotation float64   `json:"rotation"`
}

// DefaultView returns the initial centered, unzoomed view.
func DefaultView() MapView {
	return MapView{
		Center:   WarpPoint{X: 0.5, Y: 0.5},
		Zoom:     1.0,
		Rotation: 0.0,
	}
}

// MapState bundles the map image, warp, grid and view for a session.
type MapState struct {
	ImageURL *string    `json:"image_url,omitempty"`
	Warp     WarpConfig `json:"warp"`
	GridSize *float64   `json:"grid_size,omitempty"`
	View     MapView    `json:"view"`
}

// TokenStats carries optional combat numbers for a token or preset.
type TokenStats struct {
	HP         *int           `json:"hp,omitempty"`
	MaxHP      *int           `json:"max_hp,omitempty"`
	Initiative *float64       `json:"initiative,omitempty"`
	SpellSlots map[string]int `json:"spell_slots"`
}

// Token is a positioned game-state marker on the map.
type Token struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	Kind    TokenKind  `json:"kind"`
	Color   string     `json:"color"`
	X       float64    `json:"x"`
	Y       float64    `json:"y"`
	Visible bool       `json:"visible"`
	Notes   *string    `json:"notes,omitempty"`
	Stats   TokenStats `json:"stats"`
}

// TokenPreset is a reusable token template scoped to a session. Applying
// a preset copies its fields into a new token; tokens never reference a
// preset by id.
type TokenPreset struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Kind  TokenKind  `json:"kind"`
	Color string     `json:"color"`
	Stats TokenStats `json:"stats"`
	Notes *string    `json:"notes,omitempty"`
}

// SessionState is one game table's complete shared state. The store owns
// every SessionState; consumers only ever see deep-copied snapshots.
type SessionState struct {
	ID         string        `json:"id"`
	Name       *string       `json:"name,omitempty"`
	Map        MapState      `json:"map"`
	Tokens     []Token       `json:"tokens"`
	TokenOrder []string      `json:"token_order"`
	Presets    []TokenPreset `json:"presets"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// NewSession builds a session with default map, warp and view.
func NewSession(id string, name *string) *SessionState {
	return &SessionState{
		ID:   id,
		Name: name,
		Map: MapState{
			Warp: DefaultWarp(),
			View: DefaultView(),
		},
		Tokens:     []Token{},
		TokenOrder: []string{},
		Presets:    []TokenPreset{},
		UpdatedAt:  time.Now().UTC(),
	}
}
