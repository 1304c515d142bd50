// Package knowledge is an agent's private model of the world: where
// resources were seen, who is kin, and how much it likes whom. Nothing
// here reads live world state; the engine and AI write into it through
// the operations below.
package knowledge

import (
	"sort"

	"github.com/talgya/hearthvale/internal/registry"
	"github.com/talgya/hearthvale/internal/tuning"
	"github.com/talgya/hearthvale/internal/world"
)

// Zone is a remembered resource spot. Confidence decays with failed
// searches and hearsay fade; firsthand zones were witnessed, the rest
// arrived through greetings or inheritance.
type Zone struct {
	Pos          world.Vec2      `json:"pos"`
	Item         registry.ItemID `json:"item"`
	Confidence   float64         `json:"confidence"`
	Firsthand    bool            `json:"firsthand"`
	ReinforcedAt float64         `json:"reinforced_at"`
}

// RelKind is a typed family/bond edge.
type RelKind uint8

const (
	RelMother RelKind = iota
	RelFather
	RelChild
	RelSibling
	RelMate    // committed couple
	RelPartner // courting, not yet a couple
)

func (k RelKind) String() string {
	switch k {
	case RelMother:
		return "mother"
	case RelFather:
		return "father"
	case RelChild:
		return "child"
	case RelSibling:
		return "sibling"
	case RelMate:
		return "mate"
	case RelPartner:
		return "partner"
	}
	return "unknown"
}

type Relation struct {
	Target uint64  `json:"target"`
	Kind   RelKind `json:"kind"`
}

// NPC is what an agent remembers about another agent socially.
type NPC struct {
	Affinity  float64 `json:"affinity"`
	GreetedAt float64 `json:"greeted_at"`
}

// Memory is the whole private store. The zero value is usable.
type Memory struct {
	Zones     []Zone          `json:"zones,omitempty"`
	NPCs      map[uint64]*NPC `json:"npcs,omitempty"`
	Relations []Relation      `json:"relations,omitempty"`

	// LastConsolidate marks the previous sleep consolidation; hearsay
	// untouched since then fades at the next one.
	LastConsolidate float64 `json:"last_consolidate,omitempty"`
}

// RecordFirsthand merges a witnessed resource position into the zone
// list: close enough to an existing same-item zone it averages the
// position, boosts confidence and promotes to firsthand; otherwise it
// becomes a new zone at full confidence.
func (m *Memory) RecordFirsthand(pos world.Vec2, item registry.ItemID, now float64, k tuning.Knowledge) {
	if z := m.nearestZone(pos, item, k.MergeRadius); z != nil {
		z.Pos = z.Pos.Add(pos).Scale(0.5)
		z.Confidence = world.Clamp(z.Confidence+k.FirsthandBoost, 0, 1)
		z.Firsthand = true
		z.ReinforcedAt = now
		return
	}
	m.appendZone(Zone{Pos: pos, Item: item, Confidence: 1, Firsthand: true, ReinforcedAt: now}, k)
}

// ImportHearsay merges a shared zone at the given confidence. Hearsay
// never promotes an existing zone to firsthand.
func (m *Memory) ImportHearsay(pos world.Vec2, item registry.ItemID, conf, now float64, k tuning.Knowledge) {
	conf = world.Clamp(conf, 0, 1)
	if conf <= 0 {
		return
	}
	if z := m.nearestZone(pos, item, k.MergeRadius); z != nil {
		if conf > z.Confidence {
			z.Pos = z.Pos.Add(pos).Scale(0.5)
			z.Confidence = conf
			z.ReinforcedAt = now
		}
		return
	}
	m.appendZone(Zone{Pos: pos, Item: item, Confidence: conf, ReinforcedAt: now}, k)
}

// DegradeAround punishes zones of the item near a failed search and
// prunes the ones that hit zero.
func (m *Memory) DegradeAround(pos world.Vec2, item registry.ItemID, radius float64, k tuning.Knowledge) {
	kept := m.Zones[:0]
	for _, z := range m.Zones {
		if z.Item == item && z.Pos.Dist(pos) <= radius {
			z.Confidence -= k.SearchPenalty
		}
		if z.Confidence > 0 {
			kept = append(kept, z)
		}
	}
	m.Zones = kept
}

// BestZone picks the most promising remembered spot for the item within
// reach: highest confidence discounted by distance.
func (m *Memory) BestZone(from world.Vec2, item registry.ItemID, reach float64, k tuning.Knowledge) (Zone, bool) {
	best := -1.0
	var out Zone
	for _, z := range m.Zones {
		if z.Item != item {
			continue
		}
		d := from.Dist(z.Pos)
		if d > reach {
			continue
		}
		score := z.Confidence / (1 + d/k.DistPenaltyScale)
		if score > best {
			best, out = score, z
		}
	}
	return out, best >= 0
}

// Consolidate runs once after a restful sleep: nearby same-item zones
// collapse into one (confidence-weighted position, max confidence plus
// a boost), stale hearsay fades, and weak zones drop out. Merging always
// shrinks the list, so the loop terminates.
func (m *Memory) Consolidate(now float64, k tuning.Knowledge) (merged int) {
	for {
		ai, bi := -1, -1
	search:
		for i := range m.Zones {
			for j := i + 1; j < len(m.Zones); j++ {
				if m.Zones[i].Item != m.Zones[j].Item {
					continue
				}
				if m.Zones[i].Pos.Dist(m.Zones[j].Pos) <= k.ConsolidateRadius {
					ai, bi = i, j
					break search
				}
			}
		}
		if ai < 0 {
			break
		}
		a, b := m.Zones[ai], m.Zones[bi]
		wsum := a.Confidence + b.Confidence
		var pos world.Vec2
		if wsum > 0 {
			pos = a.Pos.Scale(a.Confidence / wsum).Add(b.Pos.Scale(b.Confidence / wsum))
		} else {
			pos = a.Pos.Add(b.Pos).Scale(0.5)
		}
		conf := world.Clamp(max(a.Confidence, b.Confidence)+k.ConsolidateBoost, 0, 1)
		m.Zones[ai] = Zone{
			Pos:          pos,
			Item:         a.Item,
			Confidence:   conf,
			Firsthand:    a.Firsthand || b.Firsthand,
			ReinforcedAt: max(a.ReinforcedAt, b.ReinforcedAt),
		}
		m.Zones = append(m.Zones[:bi], m.Zones[bi+1:]...)
		merged++
	}

	kept := m.Zones[:0]
	for _, z := range m.Zones {
		if !z.Firsthand && z.ReinforcedAt < m.LastConsolidate {
			z.Confidence -= k.HearsayFade
		}
		if z.Confidence >= k.MinKeep {
			kept = append(kept, z)
		}
	}
	m.Zones = kept
	m.LastConsolidate = now
	return merged
}

// ShareableZones returns up to n zones worth telling a neighbor about,
// best confidence first, none below the floor.
func (m *Memory) ShareableZones(n int, floor float64) []Zone {
	var out []Zone
	for _, z := range m.Zones {
		if z.Confidence >= floor {
			out = append(out, z)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// TopZones returns up to n zones by confidence, used for inheritance.
func (m *Memory) TopZones(n int) []Zone {
	out := append([]Zone(nil), m.Zones...)
	sort.Slice(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func (m *Memory) nearestZone(pos world.Vec2, item registry.ItemID, radius float64) *Zone {
	best := -1
	bestD := radius
	for i := range m.Zones {
		if m.Zones[i].Item != item {
			continue
		}
		d := m.Zones[i].Pos.Dist(pos)
		if d <= bestD {
			best, bestD = i, d
		}
	}
	if best < 0 {
		return nil
	}
	return &m.Zones[best]
}

// appendZone adds a zone, evicting the lowest-confidence one when the
// store is full.
func (m *Memory) appendZone(z Zone, k tuning.Knowledge) {
	if len(m.Zones) >= k.MaxZones && k.MaxZones > 0 {
		lowest := 0
		for i := range m.Zones {
			if m.Zones[i].Confidence < m.Zones[lowest].Confidence {
				lowest = i
			}
		}
		if m.Zones[lowest].Confidence >= z.Confidence {
			return
		}
		m.Zones[lowest] = z
		return
	}
	m.Zones = append(m.Zones, z)
}
