package engine

import "github.com/talgya/hearthvale/internal/weather"

// Runtime is the scalar tick state a save carries across restarts.
// Rng streams are not part of it: a restored world re-derives them
// from the seed, so a run diverges after a load even though the world
// itself comes back intact.
type Runtime struct {
	Now            float64      `json:"now"`
	Tick           uint64       `json:"tick"`
	LastDay        int          `json:"last_day"`
	EpidemicUntil  float64      `json:"epidemic_until,omitempty"`
	MarketTimer    float64      `json:"market_timer,omitempty"`
	FactionTimer   float64      `json:"faction_timer,omitempty"`
	ContagionTimer float64      `json:"contagion_timer,omitempty"`
	FeedTimer      float64      `json:"feed_timer,omitempty"`
	Weather        weather.Kind `json:"weather"`
	Births         int          `json:"births"`
	Deaths         int          `json:"deaths"`
}

// Runtime captures the scalar state for a save.
func (s *Simulation) Runtime() Runtime {
	return Runtime{
		Now:            s.Now,
		Tick:           s.Tick,
		LastDay:        s.lastDay,
		EpidemicUntil:  s.epidemicUntil,
		MarketTimer:    s.marketTimer,
		FactionTimer:   s.factionTimer,
		ContagionTimer: s.contagionTimer,
		FeedTimer:      s.feedTimer,
		Weather:        s.Weather.Current,
		Births:         s.Stats.Births,
		Deaths:         s.Stats.Deaths,
	}
}

// SetRuntime restores captured state after a load, once agents and
// world entities are already in place.
func (s *Simulation) SetRuntime(r Runtime) {
	s.Now = r.Now
	s.Tick = r.Tick
	s.lastDay = r.LastDay
	s.epidemicUntil = r.EpidemicUntil
	s.marketTimer = r.MarketTimer
	s.factionTimer = r.FactionTimer
	s.contagionTimer = r.ContagionTimer
	s.feedTimer = r.FeedTimer
	s.Weather.Current = r.Weather
	s.Stats.Births = r.Births
	s.Stats.Deaths = r.Deaths
	s.updateStats()
}
