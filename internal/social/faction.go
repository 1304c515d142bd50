// Package social tracks factions: the kin-bands villagers belong to,
// the stances between them, and the strength census raids are weighed
// against.
package social

import (
	"math/rand"
	"sort"
)

// Stance is the relation between two factions. Relations are always
// symmetric.
type Stance uint8

const (
	StanceNeutral Stance = iota
	StanceAllied
	StanceHostile
)

func (s Stance) String() string {
	switch s {
	case StanceAllied:
		return "allied"
	case StanceHostile:
		return "hostile"
	}
	return "neutral"
}

// Faction is one kin-band. Wealth and Military are census results,
// recomputed on the faction audit cadence rather than live.
type Faction struct {
	ID    uint64  `json:"id"`
	Name  string  `json:"name"`
	Color float64 `json:"color"` // hue shared with banners and map paint

	Members   []uint64          `json:"members"` // agent IDs, sorted
	Relations map[uint64]Stance `json:"relations"`

	Wealth     float64 `json:"wealth"`   // market value of held stock
	Military   float64 `json:"military"` // summed member fighting power
	LastRaidAt float64 `json:"last_raid_at,omitempty"`
}

// AddMember inserts the agent keeping the member list sorted.
func (f *Faction) AddMember(id uint64) {
	i := sort.Search(len(f.Members), func(i int) bool { return f.Members[i] >= id })
	if i < len(f.Members) && f.Members[i] == id {
		return
	}
	f.Members = append(f.Members, 0)
	copy(f.Members[i+1:], f.Members[i:])
	f.Members[i] = id
}

// RemoveMember drops the agent if present.
func (f *Faction) RemoveMember(id uint64) {
	i := sort.Search(len(f.Members), func(i int) bool { return f.Members[i] >= id })
	if i < len(f.Members) && f.Members[i] == id {
		f.Members = append(f.Members[:i], f.Members[i+1:]...)
	}
}

// HasMember reports membership.
func (f *Faction) HasMember(id uint64) bool {
	i := sort.Search(len(f.Members), func(i int) bool { return f.Members[i] >= id })
	return i < len(f.Members) && f.Members[i] == id
}

// Factions is the registry of all live factions.
type Factions struct {
	ByID   map[uint64]*Faction `json:"by_id"`
	NextID uint64              `json:"next_id"`
}

// NewFactions creates an empty registry.
func NewFactions() *Factions {
	return &Factions{ByID: map[uint64]*Faction{}, NextID: 1}
}

// Create founds a faction and issues its ID.
func (fs *Factions) Create(name string, color float64) *Faction {
	f := &Faction{
		ID:        fs.NextID,
		Name:      name,
		Color:     color,
		Relations: map[uint64]Stance{},
	}
	fs.NextID++
	fs.ByID[f.ID] = f
	return f
}

// Get returns the faction or nil.
func (fs *Factions) Get(id uint64) *Faction {
	return fs.ByID[id]
}

// Sorted returns factions in ID order for deterministic iteration.
func (fs *Factions) Sorted() []*Faction {
	out := make([]*Faction, 0, len(fs.ByID))
	for _, f := range fs.ByID {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SetStance records the relation on both sides.
func (fs *Factions) SetStance(a, b uint64, s Stance) {
	fa, fb := fs.ByID[a], fs.ByID[b]
	if fa == nil || fb == nil || a == b {
		return
	}
	fa.Relations[b] = s
	fb.Relations[a] = s
}

// StanceBetween looks up the relation. Members of the same faction are
// allied; strangers default to neutral.
func (fs *Factions) StanceBetween(a, b uint64) Stance {
	if a == b && a != 0 {
		return StanceAllied
	}
	if fa := fs.ByID[a]; fa != nil {
		if s, ok := fa.Relations[b]; ok {
			return s
		}
	}
	return StanceNeutral
}

// Hostile reports whether agents of the two factions fight on sight.
func (fs *Factions) Hostile(a, b uint64) bool {
	if a == 0 || b == 0 {
		return false
	}
	return fs.StanceBetween(a, b) == StanceHostile
}

// Name pool for founded kin-bands.
var factionNames = []string{
	"Hearth Kin", "River Clan", "Oak Circle", "Ember Band",
	"Stone Kin", "Fen Folk", "Birch Clan", "Crag Band",
	"Willow Kin", "Marsh Clan", "Elder Circle", "Thorn Band",
}

// SeedFactions founds the starting kin-bands with distinct names and
// spread banner hues.
func SeedFactions(fs *Factions, count int, rng *rand.Rand) []*Faction {
	if count > len(factionNames) {
		count = len(factionNames)
	}
	perm := rng.Perm(len(factionNames))
	out := make([]*Faction, 0, count)
	for i := 0; i < count; i++ {
		hue := float64(i) * 360 / float64(count)
		out = append(out, fs.Create(factionNames[perm[i]], hue))
	}
	return out
}
