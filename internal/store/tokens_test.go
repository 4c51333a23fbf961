package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tablecast/tablecast/internal/models"
	apperrors "github.com/tablecast/tablecast/pkg/errors"
)

func newSessionStore(t *testing.T) *SessionStore {
	t.Helper()

	s := New()
	_, err := s.Create(CreateSessionInput{SessionID: "abc123"})
	require.NoError(t, err)
	return s
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }
func strPtr(v string) *string     { return &v }
func boolPtr(v bool) *bool        { return &v }

func TestAddTokenDefaults(t *testing.T) {
	s := newSessionStore(t)

	token, snapshot, err := s.AddToken("abc123", TokenCreateInput{Name: "Hero"})
	require.NoError(t, err)

	require.Len(t, token.ID, 32)
	require.Equal(t, models.TokenKindPC, token.Kind)
	require.Equal(t, models.DefaultTokenColor, token.Color)
	require.Equal(t, 0.5, token.X)
	require.Equal(t, 0.5, token.Y)
	require.True(t, token.Visible)
	require.NotNil(t, token.Stats.SpellSlots)

	require.Len(t, snapshot.Tokens, 1)
	require.Equal(t, []string{token.ID}, snapshot.TokenOrder)
}

func TestAddTokenClampsCoordinates(t *testing.T) {
	s := newSessionStore(t)

	token, _, err := s.AddToken("abc123", TokenCreateInput{
		Name: "Edge",
		X:    floatPtr(1.7),
		Y:    floatPtr(-0.3),
	})
	require.NoError(t, err)
	require.Equal(t, 1.0, token.X)
	require.Equal(t, 0.0, token.Y)
}

func TestAddTokenUnknownSession(t *testing.T) {
	s := New()

	_, _, err := s.AddToken("NOPE", TokenCreateInput{Name: "Hero"})
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func TestUpdateTokenPartial(t *testing.T) {
	s := newSessionStore(t)

	token, _, err := s.AddToken("abc123", TokenCreateInput{
		Name: "Hero",
		X:    floatPtr(0.2),
		Y:    floatPtr(0.8),
	})
	require.NoError(t, err)

	updated, _, err := s.UpdateToken("abc123", token.ID, TokenUpdateInput{
		Name: strPtr("Paladin"),
		X:    floatPtr(2.0),
	})
	require.NoError(t, err)

	require.Equal(t, "Paladin", updated.Name)
	require.Equal(t, 1.0, updated.X)
	require.Equal(t, 0.8, updated.Y)
	require.Equal(t, models.TokenKindPC, updated.Kind)
	require.True(t, updated.Visible)
}

func TestUpdateTokenStatsMerge(t *testing.T) {
	s := newSessionStore(t)

	token, _, err := s.AddToken("abc123", TokenCreateInput{
		Name: "Hero",
		Stats: models.TokenStats{
			HP:         intPtr(10),
			MaxHP:      intPtr(20),
			SpellSlots: map[string]int{"1st": 4},
		},
	})
	require.NoError(t, err)

	updated, _, err := s.UpdateToken("abc123", token.ID, TokenUpdateInput{
		Stats: &StatsPatch{HP: intPtr(5)},
	})
	require.NoError(t, err)

	require.Equal(t, 5, *updated.Stats.HP)
	require.Equal(t, 20, *updated.Stats.MaxHP)
	require.Equal(t, map[string]int{"1st": 4}, updated.Stats.SpellSlots)
}

func TestUpdateTokenReplacesSpellSlots(t *testing.T) {
	s := newSessionStore(t)

	token, _, err := s.AddToken("abc123", TokenCreateInput{
		Name:  "Wizard",
		Stats: models.TokenStats{SpellSlots: map[string]int{"1st": 4, "2nd": 2}},
	})
	require.NoError(t, err)

	updated, _, err := s.UpdateToken("abc123", token.ID, TokenUpdateInput{
		Stats: &StatsPatch{SpellSlots: map[string]int{"3rd": 1}},
	})
	require.NoError(t, err)
	require.Equal(t, map[string]int{"3rd": 1}, updated.Stats.SpellSlots)
}

func TestUpdateTokenVisibility(t *testing.T) {
	s := newSessionStore(t)

	token, _, err := s.AddToken("abc123", TokenCreateInput{Name: "Hero"})
	require.NoError(t, err)

	updated, _, err := s.UpdateToken("abc123", token.ID, TokenUpdateInput{
		Visible: boolPtr(false),
	})
	require.NoError(t, err)
	require.False(t, updated.Visible)
}

func TestUpdateTokenNotFound(t *testing.T) {
	s := newSessionStore(t)

	_, _, err := s.UpdateToken("abc123", "missing", TokenUpdateInput{Name: strPtr("X")})
	require.ErrorIs(t, err, apperrors.ErrTokenNotFound)
}

func TestDeleteTokenIsIdempotent(t *testing.T) {
	s := newSessionStore(t)

	token, _, err := s.AddToken("abc123", TokenCreateInput{Name: "Hero"})
	require.NoError(t, err)

	snapshot, err := s.DeleteToken("abc123", token.ID)
	require.NoError(t, err)
	require.Empty(t, snapshot.Tokens)
	require.Empty(t, snapshot.TokenOrder)

	snapshot, err = s.DeleteToken("abc123", token.ID)
	require.NoError(t, err)
	require.Empty(t, snapshot.Tokens)
}

func TestSetTokenOrderReorders(t *testing.T) {
	s := newSessionStore(t)

	var ids []string
	for _, name := range []string{"a", "b", "c"} {
		token, _, err := s.AddToken("abc123", TokenCreateInput{Name: name})
		require.NoError(t, err)
		ids = append(ids, token.ID)
	}

	// [a b c] reordered by [b a] -> [b a c]: c is appended, keeping its
	// prior relative position among unnamed tokens.
	snapshot, err := s.SetTokenOrder("abc123", []string{ids[1], ids[0]})
	require.NoError(t, err)

	require.Equal(t, []string{ids[1], ids[0], ids[2]}, snapshot.TokenOrder)
	require.Equal(t, ids[1], snapshot.Tokens[0].ID)
	require.Equal(t, ids[0], snapshot.Tokens[1].ID)
	require.Equal(t, ids[2], snapshot.Tokens[2].ID)
}

func TestSetTokenOrderIgnoresUnknownIDs(t *testing.T) {
	s := newSessionStore(t)

	token, _, err := s.AddToken("abc123", TokenCreateInput{Name: "a"})
	require.NoError(t, err)

	snapshot, err := s.SetTokenOrder("abc123", []string{"ghost", token.ID, "phantom"})
	require.NoError(t, err)
	require.Equal(t, []string{token.ID}, snapshot.TokenOrder)
}

func TestOrderInvariantAfterMixedOperations(t *testing.T) {
	s := newSessionStore(t)

	var ids []string
	for _, name := range []string{"a", "b", "c", "d"} {
		token, _, err := s.AddToken("abc123", TokenCreateInput{Name: name})
		require.NoError(t, err)
		ids = append(ids, token.ID)
	}

	_, err := s.DeleteToken("abc123", ids[1])
	require.NoError(t, err)

	_, err = s.SetTokenOrder("abc123", []string{ids[3], ids[0]})
	require.NoError(t, err)

	_, _, err = s.UpdateToken("abc123", ids[2], TokenUpdateInput{Name: strPtr("renamed")})
	require.NoError(t, err)

	snapshot, err := s.Get("abc123")
	require.NoError(t, err)

	require.Len(t, snapshot.Tokens, len(snapshot.TokenOrder))
	seen := make(map[string]int)
	for _, id := range snapshot.TokenOrder {
		seen[id]++
	}
	for _, token := range snapshot.Tokens {
		require.Equal(t, 1, seen[token.ID], "token %s must appear exactly once in the order list", token.ID)
	}
}
