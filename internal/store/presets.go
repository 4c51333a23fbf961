package store

import (
	"github.com/tablecast/tablecast/internal/models"
	apperrors "github.com/tablecast/tablecast/pkg/errors"
)

// PresetCreateInput carries the fields for a new token preset.
type PresetCreateInput struct {
	Name  string
	Kind  models.TokenKind
	Color string
	Stats models.TokenStats
	Notes *string
}

// PresetUpdateInput is a partial update: only non-nil fields are applied.
type PresetUpdateInput struct {
	Name  *string
	Kind  *models.TokenKind
	Color *string
	Stats *StatsPatch
	Notes *string
}

// AddPreset creates a preset with a fresh id and returns it alongside the
// committed snapshot.
func (s *SessionStore) AddPreset(id string, in PresetCreateInput) (models.TokenPreset, *models.SessionState, error) {
	var created models.TokenPreset

	snapshot, err := s.Apply(id, func(session *models.SessionState) error {
		kind := in.Kind
		if kind == "" {
			kind = models.TokenKindPC
		}
		color := in.Color
		if color == "" {
			color = models.DefaultTokenColor
		}

		preset := models.TokenPreset{
			ID:    newEntityID(),
			Name:  in.Name,
			Kind:  kind,
			Color: color,
			Stats: in.Stats.Clone(),
			Notes: in.Notes,
		}

		session.Presets = append(session.Presets, preset)
		created = preset.Clone()
		return nil
	})
	if err != nil {
		return models.TokenPreset{}, nil, err
	}

	return created, snapshot, nil
}

// UpdatePreset applies a partial update to the matching preset. Returns
// ErrPresetNotFound when no preset carries the id.
func (s *SessionStore) UpdatePreset(id, presetID string, in PresetUpdateInput) (models.TokenPreset, *models.SessionState, error) {
	var updated models.TokenPreset

	snapshot, err := s.Apply(id, func(session *models.SessionState) error {
		for i := range session.Presets {
			preset := &session.Presets[i]
			if preset.ID != presetID {
				continue
			}

			if in.Name != nil {
				preset.Name = *in.Name
			}
			if in.Kind != nil {
				preset.Kind = *in.Kind
			}
			if in.Color != nil {
				preset.Color = *in.Color
			}
			if in.Notes != nil {
				notes := *in.Notes
				preset.Notes = &notes
			}
			if in.Stats != nil {
				mergeStats(&preset.Stats, in.Stats)
			}

			updated = preset.Clone()
			return nil
		}
		return apperrors.ErrPresetNotFound
	})
	if err != nil {
		return models.TokenPreset{}, nil, err
	}

	return updated, snapshot, nil
}

// DeletePreset removes the matching preset. Deleting an absent preset is a
// no-op.
func (s *SessionStore) DeletePreset(id, presetID string) (*models.SessionState, error) {
	return s.Apply(id, func(session *models.SessionState) error {
		presets := session.Presets[:0]
		for _, preset := range session.Presets {
			if preset.ID != presetID {
				presets = append(presets, preset)
			}
		}
		session.Presets = presets
		return nil
	})
}
