package knowledge

import "github.com/talgya/hearthvale/internal/world"

func (m *Memory) npc(id uint64) *NPC {
	if m.NPCs == nil {
		m.NPCs = map[uint64]*NPC{}
	}
	n, ok := m.NPCs[id]
	if !ok {
		n = &NPC{}
		m.NPCs[id] = n
	}
	return n
}

// Affinity toward the agent, zero for strangers.
func (m *Memory) Affinity(id uint64) float64 {
	if m.NPCs == nil {
		return 0
	}
	if n, ok := m.NPCs[id]; ok {
		return n.Affinity
	}
	return 0
}

// BumpAffinity shifts affinity by delta, clamped to [0,1].
func (m *Memory) BumpAffinity(id uint64, delta float64) {
	n := m.npc(id)
	n.Affinity = world.Clamp(n.Affinity+delta, 0, 1)
}

// GreetedAt returns when the agent last exchanged greetings with id.
func (m *Memory) GreetedAt(id uint64) float64 {
	if m.NPCs == nil {
		return 0
	}
	if n, ok := m.NPCs[id]; ok {
		return n.GreetedAt
	}
	return 0
}

func (m *Memory) SetGreeted(id uint64, now float64) {
	m.npc(id).GreetedAt = now
}

// Forget removes all social memory of the agent, used when it dies.
func (m *Memory) Forget(id uint64) {
	delete(m.NPCs, id)
	kept := m.Relations[:0]
	for _, r := range m.Relations {
		if r.Target != id {
			kept = append(kept, r)
		}
	}
	m.Relations = kept
}

// AddRelation records a typed edge once.
func (m *Memory) AddRelation(target uint64, kind RelKind) {
	for _, r := range m.Relations {
		if r.Target == target && r.Kind == kind {
			return
		}
	}
	m.Relations = append(m.Relations, Relation{Target: target, Kind: kind})
}

// RemoveRelation drops the edge if present.
func (m *Memory) RemoveRelation(target uint64, kind RelKind) {
	for i, r := range m.Relations {
		if r.Target == target && r.Kind == kind {
			m.Relations = append(m.Relations[:i], m.Relations[i+1:]...)
			return
		}
	}
}

// HasRelation reports a specific edge.
func (m *Memory) HasRelation(target uint64, kind RelKind) bool {
	for _, r := range m.Relations {
		if r.Target == target && r.Kind == kind {
			return true
		}
	}
	return false
}

// RelationOf returns the first agent bound by the kind, if any.
func (m *Memory) RelationOf(kind RelKind) (uint64, bool) {
	for _, r := range m.Relations {
		if r.Kind == kind {
			return r.Target, true
		}
	}
	return 0, false
}

// Children lists every child edge.
func (m *Memory) Children() []uint64 {
	var out []uint64
	for _, r := range m.Relations {
		if r.Kind == RelChild {
			out = append(out, r.Target)
		}
	}
	return out
}

// IsRelative reports blood kinship: parent, child or sibling. Mates are
// not blood.
func (m *Memory) IsRelative(target uint64) bool {
	for _, r := range m.Relations {
		if r.Target != target {
			continue
		}
		switch r.Kind {
		case RelMother, RelFather, RelChild, RelSibling:
			return true
		}
	}
	return false
}

// Mate returns the committed partner, if any.
func (m *Memory) Mate() (uint64, bool) { return m.RelationOf(RelMate) }
