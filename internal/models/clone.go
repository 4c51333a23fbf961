package models

// Clone returns a deep copy of the session. Snapshots handed to handlers
// and broadcast subscribers are always clones so no caller can reach back
// into store-owned state.
func (s *SessionState) Clone() *SessionState {
	if s == nil {
		return nil
	}

	cpy := *s
	cpy.Name = cloneStringPtr(s.Name)
	cpy.Map = s.Map.clone()

	cpy.Tokens = make([]Token, len(s.Tokens))
	for i, token := range s.Tokens {
		cpy.Tokens[i] = token.Clone()
	}

	cpy.TokenOrder = make([]string, len(s.TokenOrder))
	copy(cpy.TokenOrder, s.TokenOrder)

	cpy.Presets = make([]TokenPreset, len(s.Presets))
	for i, preset := range s.Presets {
		cpy.Presets[i] = preset.Clone()
	}

	return &cpy
}

func (m MapState) clone() MapState {
	cpy := m
	cpy.ImageURL = cloneStringPtr(m.ImageURL)
	cpy.GridSize = cloneFloatPtr(m.GridSize)
	cpy.Warp = WarpConfig{Corners: make([]WarpPoint, len(m.Warp.Corners))}
	copy(cpy.Warp.Corners, m.Warp.Corners)
	return cpy
}

// Clone returns a deep copy of the token.
func (t Token) Clone() Token {
	cpy := t
	cpy.Notes = cloneStringPtr(t.Notes)
	cpy.Stats = t.Stats.Clone()
	return cpy
}

// Clone returns a deep copy of the preset.
func (p TokenPreset) Clone() TokenPreset {
	cpy := p
	cpy.Notes = cloneStringPtr(p.Notes)
	cpy.Stats = p.Stats.Clone()
	return cpy
}

// Clone returns a deep copy of the stats block. The spell slot map is
// always non-nil on the copy so snapshots marshal it as an object.
func (st TokenStats) Clone() TokenStats {
	cpy := st
	cpy.HP = cloneIntPtr(st.HP)
	cpy.MaxHP = cloneIntPtr(st.MaxHP)
	cpy.Initiative = cloneFloatPtr(st.Initiative)
	cpy.SpellSlots = make(map[string]int, len(st.SpellSlots))
	for label, count := range st.SpellSlots {
		cpy.SpellSlots[label] = count
	}
	return cpy
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneFloatPtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
