package engine

import (
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/talgya/hearthvale/internal/agents"
	"github.com/talgya/hearthvale/internal/ai"
	"github.com/talgya/hearthvale/internal/knowledge"
	"github.com/talgya/hearthvale/internal/world"
)

// takeBaseSec is the harvest time for an average gatherer; trait speed
// and sickness scale it.
const takeBaseSec = 3.0

// consolidateEnergyGain gates the sleep memory pass: the nap must have
// restored at least this much energy.
const consolidateEnergyGain = 50.0

// childFeedCheckSec paces the household auto-feed sweep.
const childFeedCheckSec = 5.0

// Advance moves the world dt sim-seconds forward. One call is one
// tick; callers scale dt for speed, never call concurrently.
func (s *Simulation) Advance(dt float64) {
	if dt <= 0 {
		return
	}
	s.Tick++
	s.Now += dt

	s.stepMovement(dt)
	s.stepActions(dt)
	s.stepLifecycle(dt)
	s.stepNeeds(dt)
	s.stepHappiness(dt)
	s.stepChildCare(dt)
	s.stepReproduction(dt)
	s.stepWorldUpkeep(dt)
	s.stepWeather(dt)
	s.stepMacro(dt)
	s.stepThinks()

	if day := s.Clock.Day(s.Now); day != s.lastDay {
		s.dailyTurnover(day)
		s.lastDay = day
	}
}

func (s *Simulation) stepWeather(dt float64) {
	if s.Weather.Step(dt, s.Clock.Season(s.Now)) {
		s.logf("weather", "%s", s.Weather.Modifiers().Description)
	}
}

// stepMovement integrates every walk target. Committed actions pin the
// agent in place; arrival clears the target without overshoot.
func (s *Simulation) stepMovement(dt float64) {
	mods := s.Weather.Modifiers()
	for _, id := range s.Order {
		a := s.Agents[id]
		if a.Action != nil || a.MoveTarget == nil {
			continue
		}
		speed := a.EffectiveSpeed(s.P.Needs) * mods.SpeedMult
		a.Pos = a.Pos.Toward(*a.MoveTarget, speed*dt).ClampRect(s.World.Half)
		if a.Pos == *a.MoveTarget {
			a.MoveTarget = nil
		}
	}
}

// stepActions counts down committed actions and applies their effects
// when the timer runs out.
func (s *Simulation) stepActions(dt float64) {
	for _, id := range s.Order {
		a := s.Agents[id]
		if a.Action == nil {
			continue
		}
		a.Action.Remaining -= dt
		if a.Action.Remaining > 0 {
			continue
		}
		act := *a.Action
		a.Action = nil
		switch act.Kind {
		case agents.ActTake:
			s.finishTake(a, act)
		case agents.ActSleep:
			s.finishSleep(a)
		case agents.ActMate:
			s.finishMate(a, act)
		case agents.ActCraft:
			s.finishCraft(a, act)
		}
	}
}

// finishTake harvests the locked node, capped by carry space. A node
// stripped to zero disappears; leftovers unlock for the next taker.
func (s *Simulation) finishTake(a *agents.Agent, act agents.Action) {
	r := s.World.Resource(act.Entity)
	if r == nil {
		return
	}
	if r.LockedBy != uint64(a.ID) {
		return
	}
	take := r.Qty
	if free := a.CarryFree(); take > free {
		take = free
	}
	if take > 0 && a.AddItem(r.Item, take) {
		r.Qty -= take
	}
	r.LockedBy = 0
	if r.Qty <= 0 {
		s.World.RemoveResource(r.ID)
	}
}

// finishSleep wakes the agent. A full night's rest consolidates
// memory; a catnap does not.
func (s *Simulation) finishSleep(a *agents.Agent) {
	restored := a.Needs.Energy - a.Mind.EnergyAtSleep
	if restored >= consolidateEnergyGain {
		a.Know.Consolidate(s.Now, s.P.Knowledge)
	}
	a.Mind.Reset(agents.StateIdle, s.Now)
}

// finishMate runs once per partner. Conception rolls on the female
// side only, so a pairing is checked exactly once.
func (s *Simulation) finishMate(a *agents.Agent, act agents.Action) {
	a.Repro.Desire = 0
	a.Mind.Reset(agents.StateIdle, s.Now)
	if a.Sex != agents.SexFemale {
		return
	}
	if a.CanConceive(s.P.Repro, s.P.Perception.MenopauseAge) &&
		s.rngMacro.Float64() < s.P.Repro.ConceptionChance {
		a.Repro.Gestation = &agents.Gestation{
			Remaining: s.P.Repro.GestationSec,
			Father:    act.Agent,
		}
		s.logf("birth", "%s is expecting a child", a.Name)
	}
}

// finishCraft banks the recipe outputs in the crafter's home stock.
// Inputs were withdrawn when the action began.
func (s *Simulation) finishCraft(a *agents.Agent, act agents.Action) {
	rec, ok := s.Reg.Recipe(act.Recipe)
	if !ok {
		return
	}
	stock := s.homeStock(a)
	if stock == nil {
		// Home burned down mid-craft; the work is lost.
		return
	}
	for _, out := range rec.Outputs {
		stock.Add(out.Item, out.Qty)
	}
	a.Mind.Reset(agents.StateIdle, s.Now)
}

// stepNeeds decays hunger, thirst and energy, applies sickness damage
// and buries whoever hits zero health.
func (s *Simulation) stepNeeds(dt float64) {
	env := agents.NeedsEnv{
		Night:      s.Clock.IsNight(s.Now),
		ThirstMult: s.Weather.Modifiers().ThirstMult,
		EnergyMult: s.Weather.Modifiers().EnergyMult,
	}
	ids := append([]agents.AgentID(nil), s.Order...)
	for _, id := range ids {
		a := s.Agents[id]
		if a == nil {
			continue
		}
		agents.StepNeeds(a, dt, env, s.P.Needs, s.P.Repro)

		if a.Sick {
			a.Needs.Health -= s.P.Macro.EpidemicDPS * dt
			a.Needs.Clamp()
			if s.Now >= a.SickUntil {
				a.Sick = false
			}
		}

		if a.Needs.Health <= 0 {
			s.bury(a, s.causeOfDeath(a))
		}
	}
}

func (s *Simulation) causeOfDeath(a *agents.Agent) string {
	switch {
	case a.Needs.StarvingFor > 0:
		return "starved"
	case a.Needs.DehydratedFor > 0:
		return "died of thirst"
	case a.Sick:
		return "succumbed to the sickness"
	}
	return "died of wounds"
}

// stepLifecycle ages everyone and rolls quadratic old-age mortality.
func (s *Simulation) stepLifecycle(dt float64) {
	yearSec := s.P.Time.YearSeconds()
	ids := append([]agents.AgentID(nil), s.Order...)
	for _, id := range ids {
		a := s.Agents[id]
		if a == nil {
			continue
		}
		before := a.Stage(s.P.Repro)
		a.Age += dt / yearSec
		after := a.Stage(s.P.Repro)
		if after != before {
			s.changeStage(a, after)
		}

		if over := a.Age - s.P.Needs.OldAge; over > 0 {
			if s.rngMacro.Float64() < s.P.Needs.MortalityQuadPS*over*over*dt {
				s.bury(a, "died of old age")
			}
		}
	}
}

// changeStage logs the milestone. New adults move out of the family
// home and fend for themselves.
func (s *Simulation) changeStage(a *agents.Agent, stage agents.LifeStage) {
	s.logf("social", "%s is now a %s", a.Name, stage)
	if stage != agents.StageAdult {
		return
	}
	if b := s.World.Building(a.HomeID); b != nil {
		b.RemoveResident(uint64(a.ID))
	}
	a.HomeID = 0
}

// stepHappiness drifts mood toward what the agent's situation earns.
func (s *Simulation) stepHappiness(dt float64) {
	for _, id := range s.Order {
		a := s.Agents[id]

		target := 50.0
		if a.HomeID != 0 {
			target += 15
		} else if a.IsAdult(s.P.Repro) {
			target -= s.P.Needs.HomelessPenalty
		}
		if a.Needs.Comfortable(s.P.Needs) {
			target += 20
		}
		if _, ok := a.Know.Mate(); ok {
			target += 10
		}
		if a.Sick {
			target -= 20
		}
		target = world.Clamp(target, 0, 100)

		diff := target - a.Needs.Happiness
		step := s.P.Needs.HappinessRate * dt
		a.Needs.Happiness += world.Clamp(diff, -step, step)
	}
}

// stepChildCare is the household safety net: hungry children eat from
// the home stock without anyone carrying food to them.
func (s *Simulation) stepChildCare(dt float64) {
	s.feedTimer += dt
	if s.feedTimer < childFeedCheckSec {
		return
	}
	s.feedTimer -= childFeedCheckSec

	for _, id := range s.Order {
		a := s.Agents[id]
		if a.Stage(s.P.Repro) >= agents.StageAdolescent {
			continue
		}
		if a.Needs.Hunger >= s.P.Needs.ChildFeedThreshold {
			continue
		}
		stock := s.homeStock(a)
		if stock == nil {
			continue
		}
		item, ok := bestFood(s.Reg, stock)
		if !ok || !stock.Take(item, 1) {
			continue
		}
		n, h := s.Reg.Nutrition(item)
		a.Needs.ApplyFood(n, h)
	}
}

// stepReproduction runs desire, cycles, cooldowns and gestation.
func (s *Simulation) stepReproduction(dt float64) {
	ids := append([]agents.AgentID(nil), s.Order...)
	for _, id := range ids {
		a := s.Agents[id]
		if a == nil {
			continue
		}
		if a.Repro.Cooldown > 0 {
			a.Repro.Cooldown -= dt
			if a.Repro.Cooldown < 0 {
				a.Repro.Cooldown = 0
			}
		}

		switch a.Sex {
		case agents.SexMale:
			if a.IsAdult(s.P.Repro) {
				a.Repro.Desire = world.Clamp(a.Repro.Desire+s.P.Repro.DesireRate*dt, 0, 100)
			}
		case agents.SexFemale:
			a.Repro.CycleDay += dt / s.P.Time.DaySeconds
			if a.Repro.CycleDay >= s.P.Repro.CycleDays {
				a.Repro.CycleDay -= s.P.Repro.CycleDays
			}
			if g := a.Repro.Gestation; g != nil {
				g.Remaining -= dt
				if g.Remaining <= 0 {
					s.giveBirth(a)
				}
			}
		}
	}
}

// giveBirth delivers the baby: traits from both parents, kinship wired
// both ways, and a head start of the mother's best-known zones.
func (s *Simulation) giveBirth(mother *agents.Agent) {
	father := s.Agents[mother.Repro.Gestation.Father]
	if father == nil {
		// Father died during the pregnancy; inherit from the mother alone.
		father = mother
	}
	mother.Repro.Gestation = nil
	mother.Repro.Cooldown = s.P.Repro.PostpartumSec
	mother.Needs.Energy -= s.P.Repro.BirthEnergyCost
	mother.Needs.Clamp()

	baby := s.Spawner.NewBaby(mother, father, s.P.Repro)

	siblings := append([]uint64(nil), mother.Know.Children()...)

	baby.Know.AddRelation(uint64(mother.ID), knowledge.RelMother)
	mother.Know.AddRelation(uint64(baby.ID), knowledge.RelChild)
	if father != mother {
		baby.Know.AddRelation(uint64(father.ID), knowledge.RelFather)
		father.Know.AddRelation(uint64(baby.ID), knowledge.RelChild)
	}
	for _, sid := range siblings {
		sib := s.Agents[agents.AgentID(sid)]
		if sib == nil {
			continue
		}
		sib.Know.AddRelation(uint64(baby.ID), knowledge.RelSibling)
		baby.Know.AddRelation(sid, knowledge.RelSibling)
	}

	// Zones pass down as half-confidence hearsay.
	for _, z := range mother.Know.TopZones(s.P.Repro.InheritZoneMax) {
		baby.Know.ImportHearsay(z.Pos, z.Item, z.Confidence*0.5, s.Now, s.P.Knowledge)
	}

	if b := s.World.Building(baby.HomeID); b != nil {
		b.AddResident(uint64(baby.ID))
	}
	if f := s.Factions.Get(baby.FactionID); f != nil {
		f.AddMember(uint64(baby.ID))
	}

	s.AddAgent(baby)
	s.Stats.Births++
	s.logf("birth", "%s was born to %s", baby.Name, mother.Name)
}

// stepWorldUpkeep rots corpses and regrows resources inside fertile
// zones.
func (s *Simulation) stepWorldUpkeep(dt float64) {
	s.World.DecayCorpses(s.Now, s.P.Needs.CorpseDecaySec)

	mult := s.Clock.Season(s.Now).RespawnMult() * s.Weather.Modifiers().RespawnMult
	s.World.StepRespawn(dt, mult, s.rngWorld)
}

// stepThinks flips due inboxes first, then runs the planners, so a
// message sent this tick is never read this tick.
func (s *Simulation) stepThinks() {
	var due []agents.AgentID
	for _, id := range s.Order {
		a := s.Agents[id]
		if a.Player {
			continue // player characters are driven from outside
		}
		if a.Mind.NextThink <= s.Now {
			due = append(due, id)
		}
	}
	for _, id := range due {
		s.Agents[id].FlipMessages()
	}
	for _, id := range due {
		a := s.Agents[id]
		if a == nil {
			continue // killed by an earlier thinker
		}
		ai.Think(a, &agentWorld{s: s, a: a}, s.Reg, s.P, s.rngAI)
	}
}

// dailyTurnover runs once per game day: stats, report, disasters,
// event trim.
func (s *Simulation) dailyTurnover(day int) {
	s.rollEpidemic()
	s.rollFire()

	s.updateStats()
	slog.Info("daily report",
		"day", day,
		"time", s.SimTime(),
		"weather", s.Weather.Modifiers().Description,
		"alive", s.Stats.Population,
		"adults", s.Stats.Adults,
		"couples", s.Stats.Couples,
		"births", s.Stats.Births,
		"deaths", s.Stats.Deaths,
		"avg_health", fmt.Sprintf("%.1f", s.Stats.AvgHealth),
		"avg_happiness", fmt.Sprintf("%.1f", s.Stats.AvgHappiness),
		"stock_units", humanize.Comma(int64(s.Stats.StockUnits)),
		"most_traded", string(s.Market.MostTraded),
	)

	if len(s.Events) > 1000 {
		s.Events = append([]Event(nil), s.Events[len(s.Events)-1000:]...)
	}
}
