package world

import (
	"sort"

	"github.com/talgya/hearthvale/internal/registry"
)

// EntityID identifies world entities (resources, stocks, buildings,
// corpses). Zero is never issued and means "none".
type EntityID uint64

// Building kinds. Recipes name these as their required station.
const (
	KindCabin = "cabin"
)

// Resource is a gatherable node. Take operations require the exclusive
// lock so two agents never harvest the same unit.
type Resource struct {
	ID       EntityID        `json:"id"`
	Item     registry.ItemID `json:"item"`
	Pos      Vec2            `json:"pos"`
	Qty      int             `json:"qty"`
	LockedBy uint64          `json:"locked_by,omitempty"` // agent ID, 0 = free
	Zone     EntityID        `json:"zone,omitempty"`      // fertile zone that spawned it
}

// Stock is a storage pile, usually attached to a building.
type Stock struct {
	ID       EntityID                `json:"id"`
	Pos      Vec2                    `json:"pos"`
	Building EntityID                `json:"building,omitempty"`
	Items    map[registry.ItemID]int `json:"items"`
}

func (s *Stock) Count(item registry.ItemID) int {
	if s == nil {
		return 0
	}
	return s.Items[item]
}

func (s *Stock) Total() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, q := range s.Items {
		n += q
	}
	return n
}

// Add deposits qty units. Negative quantities are ignored.
func (s *Stock) Add(item registry.ItemID, qty int) {
	if s == nil || qty <= 0 {
		return
	}
	if s.Items == nil {
		s.Items = map[registry.ItemID]int{}
	}
	s.Items[item] += qty
}

// SortedItems returns the held item IDs in sorted order for
// deterministic iteration.
func (s *Stock) SortedItems() []registry.ItemID {
	if s == nil {
		return nil
	}
	ids := make([]registry.ItemID, 0, len(s.Items))
	for id := range s.Items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Take removes qty units, reporting whether the stock held enough.
// Partial takes never happen.
func (s *Stock) Take(item registry.ItemID, qty int) bool {
	if s == nil || qty <= 0 {
		return false
	}
	if s.Items[item] < qty {
		return false
	}
	s.Items[item] -= qty
	if s.Items[item] == 0 {
		delete(s.Items, item)
	}
	return true
}

// Building occupies a plot and owns a stock. Residents are agent IDs.
type Building struct {
	ID        EntityID `json:"id"`
	Kind      string   `json:"kind"`
	Pos       Vec2     `json:"pos"`
	StockID   EntityID `json:"stock_id"`
	Residents []uint64 `json:"residents,omitempty"`
	Faction   uint64   `json:"faction,omitempty"`
}

func (b *Building) HasResident(agent uint64) bool {
	for _, r := range b.Residents {
		if r == agent {
			return true
		}
	}
	return false
}

func (b *Building) AddResident(agent uint64) {
	if !b.HasResident(agent) {
		b.Residents = append(b.Residents, agent)
	}
}

func (b *Building) RemoveResident(agent uint64) {
	for i, r := range b.Residents {
		if r == agent {
			b.Residents = append(b.Residents[:i], b.Residents[i+1:]...)
			return
		}
	}
}

// Corpse marks where an agent died until it decays.
type Corpse struct {
	ID     EntityID `json:"id"`
	Pos    Vec2     `json:"pos"`
	Name   string   `json:"name"`
	DiedAt float64  `json:"died_at"`
}

// FertileZone respawns one kind of resource around its center. Capacity
// caps live nodes; Every is the base interval between spawns, stretched
// or squeezed by season and weather.
type FertileZone struct {
	ID       EntityID        `json:"id"`
	Pos      Vec2            `json:"pos"`
	Radius   float64         `json:"radius"`
	Item     registry.ItemID `json:"item"`
	Capacity int             `json:"capacity"`
	Every    float64         `json:"every"`

	Live  int     `json:"live"`
	Timer float64 `json:"timer"`
}
