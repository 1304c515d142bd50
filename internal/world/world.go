package world

import (
	"math"
	"math/rand"
	"sort"

	"github.com/talgya/hearthvale/internal/registry"
)

// World is the entity arena for everything that is not an agent.
// Single-threaded like the rest of the core; no locking.
type World struct {
	Half   float64
	nextID uint64

	Resources map[EntityID]*Resource
	Stocks    map[EntityID]*Stock
	Buildings map[EntityID]*Building
	Corpses   map[EntityID]*Corpse

	// Zones is append-only after generation; slice order keeps respawn
	// deterministic under a fixed seed.
	Zones []*FertileZone
}

func New(half float64) *World {
	return &World{
		Half:      half,
		Resources: map[EntityID]*Resource{},
		Stocks:    map[EntityID]*Stock{},
		Buildings: map[EntityID]*Building{},
		Corpses:   map[EntityID]*Corpse{},
	}
}

func (w *World) NextID() EntityID {
	w.nextID++
	return EntityID(w.nextID)
}

// BumpID makes sure future IDs start past id, for use when loading a
// saved world.
func (w *World) BumpID(id EntityID) {
	if uint64(id) > w.nextID {
		w.nextID = uint64(id)
	}
}

func (w *World) Resource(id EntityID) *Resource { return w.Resources[id] }
func (w *World) Stock(id EntityID) *Stock       { return w.Stocks[id] }
func (w *World) Building(id EntityID) *Building { return w.Buildings[id] }

func (w *World) AddResource(item registry.ItemID, pos Vec2, qty int, zone EntityID) *Resource {
	r := &Resource{ID: w.NextID(), Item: item, Pos: pos.ClampRect(w.Half), Qty: qty, Zone: zone}
	w.Resources[r.ID] = r
	if z := w.zone(zone); z != nil {
		z.Live++
	}
	return r
}

func (w *World) RemoveResource(id EntityID) {
	r, ok := w.Resources[id]
	if !ok {
		return
	}
	if z := w.zone(r.Zone); z != nil && z.Live > 0 {
		z.Live--
	}
	delete(w.Resources, id)
}

func (w *World) zone(id EntityID) *FertileZone {
	if id == 0 {
		return nil
	}
	for _, z := range w.Zones {
		if z.ID == id {
			return z
		}
	}
	return nil
}

// AddStockAt creates a free-standing stock (owned stocks come from
// AddBuilding).
func (w *World) AddStockAt(pos Vec2) *Stock {
	s := &Stock{ID: w.NextID(), Pos: pos, Items: map[registry.ItemID]int{}}
	w.Stocks[s.ID] = s
	return s
}

// AddBuilding places a building and its stock.
func (w *World) AddBuilding(kind string, pos Vec2) *Building {
	b := &Building{ID: w.NextID(), Kind: kind, Pos: pos}
	s := w.AddStockAt(pos)
	s.Building = b.ID
	b.StockID = s.ID
	w.Buildings[b.ID] = b
	return b
}

// RemoveBuilding drops the building and its stock.
func (w *World) RemoveBuilding(id EntityID) {
	b, ok := w.Buildings[id]
	if !ok {
		return
	}
	delete(w.Stocks, b.StockID)
	delete(w.Buildings, id)
}

func (w *World) AddCorpse(pos Vec2, name string, now float64) *Corpse {
	c := &Corpse{ID: w.NextID(), Pos: pos, Name: name, DiedAt: now}
	w.Corpses[c.ID] = c
	return c
}

// DecayCorpses removes corpses older than ttl.
func (w *World) DecayCorpses(now, ttl float64) {
	for id, c := range w.Corpses {
		if now-c.DiedAt >= ttl {
			delete(w.Corpses, id)
		}
	}
}

// NearestFreeResource finds the closest unlocked, non-empty node of the
// item within the radius. Distance ties break toward the lower ID so
// queries stay deterministic.
func (w *World) NearestFreeResource(from Vec2, item registry.ItemID, within float64) *Resource {
	var best *Resource
	bestD := within
	for _, r := range w.Resources {
		if r.Item != item || r.Qty <= 0 || r.LockedBy != 0 {
			continue
		}
		d := from.Dist(r.Pos)
		if d > bestD {
			continue
		}
		if d == bestD && best != nil && r.ID > best.ID {
			continue
		}
		best, bestD = r, d
	}
	return best
}

// BuildingsNear returns buildings within the radius ordered by distance
// then ID.
func (w *World) BuildingsNear(pos Vec2, within float64) []*Building {
	var out []*Building
	for _, b := range w.Buildings {
		if pos.Dist(b.Pos) <= within {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		di, dj := pos.Dist(out[i].Pos), pos.Dist(out[j].Pos)
		if di != dj {
			return di < dj
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// SortedBuildings returns every building in ID order.
func (w *World) SortedBuildings() []*Building {
	out := make([]*Building, 0, len(w.Buildings))
	for _, b := range w.Buildings {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FindPlot hunts for a buildable point near the anchor: inside the
// world, at least plotR away from every existing building. Returns
// false when the neighborhood is full.
func (w *World) FindPlot(near Vec2, searchR, plotR float64, rng *rand.Rand) (Vec2, bool) {
	const tries = 24
	for i := 0; i < tries; i++ {
		ang := rng.Float64() * 2 * math.Pi
		dist := plotR + rng.Float64()*(searchR-plotR)
		p := near.Add(Vec2{math.Cos(ang), math.Sin(ang)}.Scale(dist))
		if p.X < -w.Half || p.X > w.Half || p.Y < -w.Half || p.Y > w.Half {
			continue
		}
		clear := true
		for _, b := range w.Buildings {
			if p.Dist(b.Pos) < plotR {
				clear = false
				break
			}
		}
		if clear {
			return p, true
		}
	}
	return Vec2{}, false
}

// UnlockDeadHolders frees take locks held by agents that no longer
// exist. alive reports whether an agent ID is still in the arena.
func (w *World) UnlockDeadHolders(alive func(uint64) bool) {
	for _, r := range w.Resources {
		if r.LockedBy != 0 && !alive(r.LockedBy) {
			r.LockedBy = 0
		}
	}
}

// StepRespawn advances every fertile zone's timer by dt scaled by the
// season/weather multiplier and spawns nodes where capacity allows.
// It returns the nodes it spawned.
func (w *World) StepRespawn(dt, mult float64, rng *rand.Rand) []*Resource {
	if mult <= 0 {
		return nil
	}
	var spawned []*Resource
	for _, z := range w.Zones {
		z.Timer += dt * mult
		for z.Timer >= z.Every {
			z.Timer -= z.Every
			if z.Live >= z.Capacity {
				continue
			}
			ang := rng.Float64() * 2 * math.Pi
			dist := rng.Float64() * z.Radius
			pos := z.Pos.Add(Vec2{math.Cos(ang), math.Sin(ang)}.Scale(dist))
			qty := 3 + rng.Intn(4)
			spawned = append(spawned, w.AddResource(z.Item, pos, qty, z.ID))
		}
	}
	return spawned
}
