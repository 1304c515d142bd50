package persistence

import (
	"encoding/gob"
	"fmt"
	"io"
	"sort"

	"github.com/klauspost/compress/zstd"

	"github.com/talgya/hearthvale/internal/agents"
	"github.com/talgya/hearthvale/internal/economy"
	"github.com/talgya/hearthvale/internal/engine"
	"github.com/talgya/hearthvale/internal/registry"
	"github.com/talgya/hearthvale/internal/social"
	"github.com/talgya/hearthvale/internal/tuning"
	"github.com/talgya/hearthvale/internal/world"
)

// Snapshot is a portable full-world export: gob inside zstd, one
// stream. The database is the working save; snapshots are for backups
// and for carrying a world to another machine.
type Snapshot struct {
	Seed    int64
	Runtime engine.Runtime

	Agents   []*agents.Agent
	Factions []*social.Faction

	Resources []*world.Resource
	Stocks    []*world.Stock
	Buildings []*world.Building
	Corpses   []*world.Corpse
	Zones     []*world.FertileZone

	Market *economy.Market
	Events []engine.Event
}

// Capture copies the simulation into a snapshot. Everything is listed
// in ID order so identical worlds produce identical streams.
func Capture(sim *engine.Simulation) *Snapshot {
	snap := &Snapshot{
		Seed:     sim.Seed,
		Runtime:  sim.Runtime(),
		Factions: sim.Factions.Sorted(),
		Zones:    sim.World.Zones,
		Market:   sim.Market,
		Events:   sim.Events,
	}
	for _, id := range sim.Order {
		snap.Agents = append(snap.Agents, sim.Agents[id])
	}
	for _, r := range sim.World.Resources {
		snap.Resources = append(snap.Resources, r)
	}
	sort.Slice(snap.Resources, func(i, j int) bool { return snap.Resources[i].ID < snap.Resources[j].ID })
	for _, s := range sim.World.Stocks {
		snap.Stocks = append(snap.Stocks, s)
	}
	sort.Slice(snap.Stocks, func(i, j int) bool { return snap.Stocks[i].ID < snap.Stocks[j].ID })
	snap.Buildings = sim.World.SortedBuildings()
	for _, c := range sim.World.Corpses {
		snap.Corpses = append(snap.Corpses, c)
	}
	sort.Slice(snap.Corpses, func(i, j int) bool { return snap.Corpses[i].ID < snap.Corpses[j].ID })
	return snap
}

// Encode compresses the snapshot onto w.
func (snap *Snapshot) Encode(w io.Writer) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("zstd writer: %w", err)
	}
	if err := gob.NewEncoder(zw).Encode(snap); err != nil {
		zw.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return zw.Close()
}

// DecodeSnapshot reads back what Encode wrote.
func DecodeSnapshot(r io.Reader) (*Snapshot, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer zr.Close()

	snap := &Snapshot{}
	if err := gob.NewDecoder(zr).Decode(snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

// Build reconstructs a runnable simulation from the snapshot.
func (snap *Snapshot) Build(p *tuning.Params, reg *registry.Registry) *engine.Simulation {
	sim := engine.NewSimulation(snap.Seed, p, reg)

	w := sim.World
	w.Resources = map[world.EntityID]*world.Resource{}
	w.Stocks = map[world.EntityID]*world.Stock{}
	w.Buildings = map[world.EntityID]*world.Building{}
	w.Corpses = map[world.EntityID]*world.Corpse{}
	w.Zones = snap.Zones

	var maxEnt world.EntityID
	bump := func(id world.EntityID) {
		if id > maxEnt {
			maxEnt = id
		}
	}
	for _, r := range snap.Resources {
		w.Resources[r.ID] = r
		bump(r.ID)
	}
	for _, s := range snap.Stocks {
		w.Stocks[s.ID] = s
		bump(s.ID)
	}
	for _, b := range snap.Buildings {
		w.Buildings[b.ID] = b
		bump(b.ID)
	}
	for _, c := range snap.Corpses {
		w.Corpses[c.ID] = c
		bump(c.ID)
	}
	for _, z := range w.Zones {
		bump(z.ID)
	}
	w.BumpID(maxEnt)

	var maxFac uint64
	for _, f := range snap.Factions {
		if f.Relations == nil {
			f.Relations = map[uint64]social.Stance{}
		}
		sim.Factions.ByID[f.ID] = f
		if f.ID > maxFac {
			maxFac = f.ID
		}
	}
	sim.Factions.NextID = maxFac + 1

	var maxAgent agents.AgentID
	for _, a := range snap.Agents {
		sim.AddAgent(a)
		if a.ID > maxAgent {
			maxAgent = a.ID
		}
	}
	sim.Spawner.SetNextID(maxAgent + 1)

	if snap.Market != nil {
		*sim.Market = *snap.Market
	}
	sim.Events = snap.Events
	sim.SetRuntime(snap.Runtime)
	return sim
}
