package store

import (
	"github.com/tablecast/tablecast/internal/models"
	apperrors "github.com/tablecast/tablecast/pkg/errors"
)

// TokenCreateInput carries the fields for a new token. Absent coordinates
// default to the center of the map; absent visibility defaults to visible.
type TokenCreateInput struct {
	Name    string
	Kind    models.TokenKind
	Color   string
	X       *float64
	Y       *float64
	Visible *bool
	Notes   *string
	Stats   models.TokenStats
}

// TokenUpdateInput is a partial update: only non-nil fields are applied.
type TokenUpdateInput struct {
	Name    *string
	Kind    *models.TokenKind
	Color   *string
	X       *float64
	Y       *float64
	Visible *bool
	Notes   *string
	Stats   *StatsPatch
}

// StatsPatch merges field-by-field into the existing stats. A non-nil
// SpellSlots map replaces the whole mapping.
type StatsPatch struct {
	HP         *int
	MaxHP      *int
	Initiative *float64
	SpellSlots map[string]int
}

// AddToken creates a token with a fresh id, appends it to the collection
// and the order list, and returns it alongside the committed snapshot.
func (s *SessionStore) AddToken(id string, in TokenCreateInput) (models.Token, *models.SessionState, error) {
	var created models.Token

	snapshot, err := s.Apply(id, func(session *models.SessionState) error {
		kind := in.Kind
		if kind == "" {
			kind = models.TokenKindPC
		}
		color := in.Color
		if color == "" {
			color = models.DefaultTokenColor
		}
		visible := true
		if in.Visible != nil {
			visible = *in.Visible
		}

		token := models.Token{
			ID:      newEntityID(),
			Name:    in.Name,
			Kind:    kind,
			Color:   color,
			X:       clampUnitOr(in.X, 0.5),
			Y:       clampUnitOr(in.Y, 0.5),
			Visible: visible,
			Notes:   in.Notes,
			Stats:   in.Stats.Clone(),
		}

		session.Tokens = append(session.Tokens, token)
		session.TokenOrder = append(session.TokenOrder, token.ID)
		created = token.Clone()
		return nil
	})
	if err != nil {
		return models.Token{}, nil, err
	}

	return created, snapshot, nil
}

// UpdateToken applies a partial update to the matching token. Absent
// fields are untouched; supplied coordinates are clamped with the current
// value as fallback; stats merge field-wise. Returns ErrTokenNotFound
// when no token carries the id.
func (s *SessionStore) UpdateToken(id, tokenID string, in TokenUpdateInput) (models.Token, *models.SessionState, error) {
	var updated models.Token

	snapshot, err := s.Apply(id, func(session *models.SessionState) error {
		for i := range session.Tokens {
			token := &session.Tokens[i]
			if token.ID != tokenID {
				continue
			}

			if in.Name != nil {
				token.Name = *in.Name
			}
			if in.Kind != nil {
				token.Kind = *in.Kind
			}
			if in.Color != nil {
				token.Color = *in.Color
			}
			if in.X != nil {
				token.X = clampUnitOr(in.X, token.X)
			}
			if in.Y != nil {
				token.Y = clampUnitOr(in.Y, token.Y)
			}
			if in.Visible != nil {
				token.Visible = *in.Visible
			}
			if in.Notes != nil {
				notes := *in.Notes
				token.Notes = &notes
			}
			if in.Stats != nil {
				mergeStats(&token.Stats, in.Stats)
			}

			updated = token.Clone()
			return nil
		}
		return apperrors.ErrTokenNotFound
	})
	if err != nil {
		return models.Token{}, nil, err
	}

	return updated, snapshot, nil
}

// DeleteToken removes the token from the collection and the order list.
// Deleting an absent token is a no-op.
func (s *SessionStore) DeleteToken(id, tokenID string) (*models.SessionState, error) {
	return s.Apply(id, func(session *models.SessionState) error {
		tokens := session.Tokens[:0]
		for _, token := range session.Tokens {
			if token.ID != tokenID {
				tokens = append(tokens, token)
			}
		}
		session.Tokens = tokens

		order := session.TokenOrder[:0]
		for _, existing := range session.TokenOrder {
			if existing != tokenID {
				order = append(order, existing)
			}
		}
		session.TokenOrder = order
		return nil
	})
}

// SetTokenOrder reorders the tokens to match desiredOrder. Ids named in
// desiredOrder keep its sequence; tokens not named are appended preserving
// their prior relative order; unknown ids are ignored.
func (s *SessionStore) SetTokenOrder(id string, desiredOrder []string) (*models.SessionState, error) {
	return s.Apply(id, func(session *models.SessionState) error {
		byID := make(map[string]models.Token, len(session.Tokens))
		for _, token := range session.Tokens {
			byID[token.ID] = token
		}

		ordered := make([]models.Token, 0, len(session.Tokens))
		seen := make([]string, 0, len(session.Tokens))
		for _, tokenID := range desiredOrder {
			token, ok := byID[tokenID]
			if !ok {
				continue
			}
			delete(byID, tokenID)
			ordered = append(ordered, token)
			seen = append(seen, tokenID)
		}

		for _, token := range session.Tokens {
			if _, pending := byID[token.ID]; pending {
				delete(byID, token.ID)
				ordered = append(ordered, token)
				seen = append(seen, token.ID)
			}
		}

		session.Tokens = ordered
		session.TokenOrder = seen
		return nil
	})
}

func mergeStats(dst *models.TokenStats, patch *StatsPatch) {
	if patch.HP != nil {
		hp := *patch.HP
		dst.HP = &hp
	}
	if patch.MaxHP != nil {
		maxHP := *patch.MaxHP
		dst.MaxHP = &maxHP
	}
	if patch.Initiative != nil {
		initiative := *patch.Initiative
		dst.Initiative = &initiative
	}
	if patch.SpellSlots != nil {
		slots := make(map[string]int, len(patch.SpellSlots))
		for label, count := range patch.SpellSlots {
			slots[label] = count
		}
		dst.SpellSlots = slots
	}
}
