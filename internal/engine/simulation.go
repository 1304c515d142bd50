// Package engine owns the world tick. It advances time in fixed
// cooperative slices: movement, action completion, needs, lifecycle,
// reproduction, world upkeep, macro systems, then the AI thinks of
// every agent whose cadence came due. Nothing in here runs
// concurrently; determinism comes from seeded streams and sorted
// iteration.
package engine

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sort"

	"github.com/talgya/hearthvale/internal/agents"
	"github.com/talgya/hearthvale/internal/economy"
	"github.com/talgya/hearthvale/internal/entropy"
	"github.com/talgya/hearthvale/internal/registry"
	"github.com/talgya/hearthvale/internal/social"
	"github.com/talgya/hearthvale/internal/tuning"
	"github.com/talgya/hearthvale/internal/weather"
	"github.com/talgya/hearthvale/internal/world"
)

// Simulation holds the complete world state and wires systems together.
type Simulation struct {
	Seed int64
	P    *tuning.Params
	Reg  *registry.Registry

	Clock world.Clock
	Now   float64 // sim seconds since world start
	Tick  uint64  // monotonic, never resets

	World    *world.World
	Weather  *weather.Machine
	Market   *economy.Market
	Factions *social.Factions
	Spawner  *agents.Spawner

	Agents map[agents.AgentID]*agents.Agent
	Order  []agents.AgentID // sorted; the only sanctioned iteration order

	Events []Event
	Stats  SimStats

	// Independent streams so one consumer cannot shift another's draws.
	rngAI     *rand.Rand
	rngCombat *rand.Rand
	rngMacro  *rand.Rand
	rngWorld  *rand.Rand

	marketTimer    float64
	factionTimer   float64
	contagionTimer float64
	feedTimer      float64
	lastDay        int

	epidemicUntil float64
}

// Event is a notable occurrence in the world.
type Event struct {
	Tick        uint64 `json:"tick"`
	Description string `json:"description"`
	Category    string `json:"category"` // "death", "birth", "social", "economy", "faction", "disaster", "weather"
}

// SimStats tracks aggregate world statistics, refreshed daily.
type SimStats struct {
	Population   int     `json:"population"`
	Adults       int     `json:"adults"`
	Couples      int     `json:"couples"`
	Births       int     `json:"births"` // cumulative
	Deaths       int     `json:"deaths"` // cumulative
	AvgHealth    float64 `json:"avg_health"`
	AvgHappiness float64 `json:"avg_happiness"`
	StockUnits   int     `json:"stock_units"`
}

// NewSimulation generates a fresh world from the seed. Population
// arrives separately through Populate so loaders can skip it.
func NewSimulation(seed int64, p *tuning.Params, reg *registry.Registry) *Simulation {
	ent := entropy.New(seed)
	w := world.Generate(seed, *p, reg, ent.Stream("worldgen"))

	return &Simulation{
		Seed:     seed,
		P:        p,
		Reg:      reg,
		Clock:    world.Clock{T: p.Time},
		World:    w,
		Weather:  weather.New(ent.Seed("weather"), p.World.WeatherSlotSec),
		Market:   economy.NewMarket(reg),
		Factions: social.NewFactions(),
		Spawner:  agents.NewSpawner(ent.Seed("spawner")),
		Agents:   make(map[agents.AgentID]*agents.Agent),

		rngAI:     ent.Stream("ai"),
		rngCombat: ent.Stream("combat"),
		rngMacro:  ent.Stream("macro"),
		rngWorld:  ent.Stream("world"),

		lastDay: 0,
	}
}

// Populate seeds the founding villagers split across factions.
// Founders cluster near distinct fertile zones so each faction starts
// with its own patch of the map.
func (s *Simulation) Populate(founders, factionCount int) {
	rng := entropy.New(s.Seed).Stream("populate")
	bands := social.SeedFactions(s.Factions, factionCount, rng)

	anchors := make([]world.Vec2, 0, len(bands))
	for i, z := range s.World.Zones {
		if i >= len(bands) {
			break
		}
		anchors = append(anchors, z.Pos)
	}
	for len(anchors) < len(bands) {
		anchors = append(anchors, world.Vec2{})
	}

	for i := 0; i < founders; i++ {
		fi := 0
		if len(bands) > 0 {
			fi = i % len(bands)
		}
		pos := anchors[fi].Add(world.Vec2{
			X: (rng.Float64()*2 - 1) * 60,
			Y: (rng.Float64()*2 - 1) * 60,
		}).ClampRect(s.World.Half)

		a := s.Spawner.NewFounder(pos, s.Reg, s.P.Repro)
		if len(bands) > 0 {
			a.FactionID = bands[fi].ID
			bands[fi].AddMember(uint64(a.ID))
		}
		s.AddAgent(a)
	}
	s.updateStats()
	slog.Info("world populated",
		"founders", founders,
		"factions", len(bands),
		"zones", len(s.World.Zones),
	)
}

// Scatter jitters pos by up to spread units on each axis, clamped to
// the world bounds.
func (s *Simulation) Scatter(pos world.Vec2, spread float64) world.Vec2 {
	return pos.Add(world.Vec2{
		X: (s.rngWorld.Float64()*2 - 1) * spread,
		Y: (s.rngWorld.Float64()*2 - 1) * spread,
	}).ClampRect(s.World.Half)
}

// AddAgent registers the agent and keeps Order sorted.
func (s *Simulation) AddAgent(a *agents.Agent) {
	if _, ok := s.Agents[a.ID]; ok {
		return
	}
	s.Agents[a.ID] = a
	i := sort.Search(len(s.Order), func(i int) bool { return s.Order[i] >= a.ID })
	s.Order = append(s.Order, 0)
	copy(s.Order[i+1:], s.Order[i:])
	s.Order[i] = a.ID
}

func (s *Simulation) removeAgent(id agents.AgentID) {
	delete(s.Agents, id)
	i := sort.Search(len(s.Order), func(i int) bool { return s.Order[i] >= id })
	if i < len(s.Order) && s.Order[i] == id {
		s.Order = append(s.Order[:i], s.Order[i+1:]...)
	}
}

// Agent returns the living agent or nil.
func (s *Simulation) Agent(id agents.AgentID) *agents.Agent {
	return s.Agents[id]
}

// logf records an event and mirrors it to the debug log.
func (s *Simulation) logf(category, format string, args ...any) {
	desc := fmt.Sprintf(format, args...)
	s.Events = append(s.Events, Event{Tick: s.Tick, Description: desc, Category: category})
	slog.Debug("event", "category", category, "description", desc)
}

// RecentEvents returns up to n of the newest events, oldest first.
func (s *Simulation) RecentEvents(n int) []Event {
	if n <= 0 || n > len(s.Events) {
		n = len(s.Events)
	}
	return s.Events[len(s.Events)-n:]
}

func (s *Simulation) updateStats() {
	st := SimStats{Births: s.Stats.Births, Deaths: s.Stats.Deaths}
	var health, happy float64
	for _, id := range s.Order {
		a := s.Agents[id]
		st.Population++
		if a.IsAdult(s.P.Repro) {
			st.Adults++
		}
		if _, ok := a.Know.Mate(); ok {
			st.Couples++
		}
		health += a.Needs.Health
		happy += a.Needs.Happiness
	}
	if st.Population > 0 {
		st.AvgHealth = health / float64(st.Population)
		st.AvgHappiness = happy / float64(st.Population)
	}
	st.Couples /= 2 // counted once per partner
	for _, b := range s.World.SortedBuildings() {
		if stock := s.World.Stock(b.StockID); stock != nil {
			st.StockUnits += stock.Total()
		}
	}
	s.Stats = st
}

// SimTime renders the clock as a human-readable stamp.
func (s *Simulation) SimTime() string {
	day := s.Clock.Day(s.Now)
	season := s.Clock.Season(s.Now)
	year := int(s.Clock.Years(s.Now)) + 1
	tod := s.Clock.TimeOfDay(s.Now)
	hour := int(tod * 24)
	minute := int(tod*24*60) % 60
	seasonDays := int(s.Clock.T.SeasonDays)
	if seasonDays < 1 {
		seasonDays = 1
	}
	return fmt.Sprintf("%s day %d, %02d:%02d, year %d",
		season, day%seasonDays+1, hour, minute, year)
}
