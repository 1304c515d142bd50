package engine

import (
	"github.com/talgya/hearthvale/internal/agents"
	"github.com/talgya/hearthvale/internal/economy"
	"github.com/talgya/hearthvale/internal/registry"
	"github.com/talgya/hearthvale/internal/social"
	"github.com/talgya/hearthvale/internal/world"
)

// stepMacro paces the slow systems: market repricing, faction politics
// and contagion spread.
func (s *Simulation) stepMacro(dt float64) {
	s.marketTimer += dt
	if s.marketTimer >= s.P.Economy.AuditSec {
		s.marketTimer -= s.P.Economy.AuditSec
		s.auditMarket()
	}

	s.factionTimer += dt
	if s.factionTimer >= s.P.Faction.AuditSec {
		s.factionTimer -= s.P.Faction.AuditSec
		s.auditFactions()
	}

	if s.Now < s.epidemicUntil {
		s.contagionTimer += dt
		if s.contagionTimer >= s.P.Macro.ContagionCheckSec {
			s.contagionTimer -= s.P.Macro.ContagionCheckSec
			s.spreadSickness()
		}
	}
}

// auditMarket recounts what the village holds and wants, then
// reprices the board.
func (s *Simulation) auditMarket() {
	supply := make(map[registry.ItemID]int)
	for _, b := range s.World.SortedBuildings() {
		stock := s.World.Stock(b.StockID)
		if stock == nil {
			continue
		}
		for _, item := range stock.SortedItems() {
			supply[item] += stock.Items[item]
		}
	}

	// Aggregate gaps, not averages: twice the heads means twice the want.
	var hungerGap, thirstGap float64
	for _, id := range s.Order {
		a := s.Agents[id]
		for _, st := range a.Inventory {
			supply[st.Item] += st.Qty
		}
		hungerGap += 100 - a.Needs.Hunger
		thirstGap += 100 - a.Needs.Thirst
	}

	demand := economy.DemandCensus(s.Reg, len(s.Order), hungerGap, thirstGap)
	s.Market.Audit(supply, demand, s.P.Economy)
}

// auditFactions refreshes strength numbers, buries dead memberships,
// drifts stances and lets the strong prey on the weak.
func (s *Simulation) auditFactions() {
	s.Factions.Census(s.Agents, s.World, s.Market, s.Reg, s.P.Combat)

	names := make(map[uint64]string, len(s.Factions.ByID))
	for _, f := range s.Factions.Sorted() {
		names[f.ID] = f.Name
	}
	alive := func(id uint64) bool {
		_, ok := s.Agents[agents.AgentID(id)]
		return ok
	}
	for _, fid := range s.Factions.Prune(alive) {
		s.logf("faction", "the %s are no more", names[fid])
	}

	s.driftStances()
	s.runRaids()
	s.checkFamine()
}

// avgHunger is the mean hunger of the band's living members. A band
// with no one left counts as sated so it neither envies nor feuds.
func (s *Simulation) avgHunger(f *social.Faction) float64 {
	sum, n := 0.0, 0
	for _, mid := range f.Members {
		if a := s.Agents[agents.AgentID(mid)]; a != nil {
			sum += a.Needs.Hunger
			n++
		}
	}
	if n == 0 {
		return 100
	}
	return sum / float64(n)
}

// driftStances rolls each pair toward feud or truce. Hunger breeds
// envy of richer neutral neighbors; a feud only cools once both sides
// eat well again.
func (s *Simulation) driftStances() {
	comfort := s.P.Needs.ComfortHunger
	facs := s.Factions.Sorted()
	for i := 0; i < len(facs); i++ {
		for j := i + 1; j < len(facs); j++ {
			a, b := facs[i], facs[j]
			switch s.Factions.StanceBetween(a.ID, b.ID) {
			case social.StanceHostile:
				if s.avgHunger(a) < comfort || s.avgHunger(b) < comfort {
					continue
				}
				if s.rngMacro.Float64() < s.P.Faction.CalmChance {
					s.Factions.SetStance(a.ID, b.ID, social.StanceNeutral)
					s.logf("faction", "the %s and the %s made peace", a.Name, b.Name)
				}
			case social.StanceNeutral:
				envy := (s.avgHunger(a) < comfort && b.Wealth > a.Wealth) ||
					(s.avgHunger(b) < comfort && a.Wealth > b.Wealth)
				if envy && s.rngMacro.Float64() < s.P.Faction.HostilityChance {
					s.Factions.SetStance(a.ID, b.ID, social.StanceHostile)
					s.logf("faction", "a feud broke out between the %s and the %s", a.Name, b.Name)
				}
			}
		}
	}
}

// runRaids lets a clearly stronger hostile faction steal from a weaker
// one, off cooldown. Raiders empty a share of the richest hostile
// larder and rough up its residents.
func (s *Simulation) runRaids() {
	facs := s.Factions.Sorted()
	for _, atk := range facs {
		if s.Now-atk.LastRaidAt < s.P.Faction.RaidCooldown && atk.LastRaidAt > 0 {
			continue
		}
		for _, def := range facs {
			if atk.ID == def.ID || !s.Factions.Hostile(atk.ID, def.ID) {
				continue
			}
			if atk.Military < s.P.Faction.RaidPowerRatio*def.Military {
				continue
			}
			s.raid(atk, def)
			break
		}
	}
}

func (s *Simulation) raid(atk, def *social.Faction) {
	target := s.richestLarder(def.ID)
	if target == nil {
		return
	}
	loot := s.factionLarder(atk.ID)

	stolen := 0
	stock := s.World.Stock(target.StockID)
	for _, item := range stock.SortedItems() {
		qty := int(float64(stock.Items[item]) * s.P.Faction.RaidStealFrac)
		if qty <= 0 {
			continue
		}
		if stock.Take(item, qty) {
			stolen += qty
			if loot != nil {
				loot.Add(item, qty)
			}
		}
	}

	// Everyone in the band is shaken; the first few catch blows.
	injured := 0
	for _, mid := range def.Members {
		a := s.Agents[agents.AgentID(mid)]
		if a == nil {
			continue
		}
		a.Needs.Happiness -= s.P.Faction.RaidShock
		if injured < 3 {
			a.Needs.Health -= s.P.Faction.RaidInjury
			injured++
		}
		a.Needs.Clamp()
	}

	atk.LastRaidAt = s.Now
	s.logf("faction", "the %s raided the %s, carrying off %d goods", atk.Name, def.Name, stolen)
}

// richestLarder picks the faction building holding the most market
// value; ties go to the lowest ID.
func (s *Simulation) richestLarder(faction uint64) *world.Building {
	var best *world.Building
	bestVal := -1.0
	for _, b := range s.World.SortedBuildings() {
		if b.Faction != faction {
			continue
		}
		stock := s.World.Stock(b.StockID)
		if stock == nil {
			continue
		}
		val := 0.0
		for _, item := range stock.SortedItems() {
			val += s.Market.Price(item) * float64(stock.Items[item])
		}
		if val > bestVal {
			best, bestVal = b, val
		}
	}
	return best
}

func (s *Simulation) factionLarder(faction uint64) *world.Stock {
	if b := s.richestLarder(faction); b != nil {
		return s.World.Stock(b.StockID)
	}
	return nil
}

// checkFamine compares each faction's food stores against its heads.
func (s *Simulation) checkFamine() {
	for _, f := range s.Factions.Sorted() {
		if len(f.Members) == 0 {
			continue
		}
		food := 0
		for _, b := range s.World.SortedBuildings() {
			if b.Faction != f.ID {
				continue
			}
			stock := s.World.Stock(b.StockID)
			if stock == nil {
				continue
			}
			for _, item := range stock.SortedItems() {
				if def, ok := s.Reg.Item(item); ok && def.Edible() {
					food += stock.Items[item]
				}
			}
		}
		if float64(food)/float64(len(f.Members)) >= s.P.Faction.FamineFloor {
			continue
		}
		for _, mid := range f.Members {
			if a := s.Agents[agents.AgentID(mid)]; a != nil {
				a.Needs.Happiness -= s.P.Macro.FamineShock
				a.Needs.Clamp()
			}
		}
		s.logf("disaster", "famine grips the %s", f.Name)
	}
}

// rollEpidemic starts a sickness on an unlucky day. Patient zero is
// drawn uniformly; contagion does the rest.
func (s *Simulation) rollEpidemic() {
	if s.Now < s.epidemicUntil || len(s.Order) == 0 {
		return
	}
	if s.rngMacro.Float64() >= s.P.Macro.EpidemicDailyChance {
		return
	}
	s.epidemicUntil = s.Now + s.P.Macro.EpidemicSec
	s.contagionTimer = 0
	zero := s.Agents[s.Order[s.rngMacro.Intn(len(s.Order))]]
	s.infect(zero)
	s.logf("disaster", "a sickness has taken hold of %s", zero.Name)
}

func (s *Simulation) infect(a *agents.Agent) {
	a.Sick = true
	a.SickUntil = s.Now + s.P.Macro.EpidemicSec
	if a.SickUntil > s.epidemicUntil {
		a.SickUntil = s.epidemicUntil
	}
}

// spreadSickness rolls infection for everyone near a carrier. New
// cases spread from the next check, not this one.
func (s *Simulation) spreadSickness() {
	var caught []*agents.Agent
	for _, id := range s.Order {
		a := s.Agents[id]
		if !a.Sick {
			continue
		}
		for _, oid := range s.Order {
			b := s.Agents[oid]
			if b.Sick || b == a {
				continue
			}
			if a.Pos.Dist(b.Pos) > s.P.Macro.InfectRadius {
				continue
			}
			if s.rngMacro.Float64() < s.P.Macro.InfectChance {
				caught = append(caught, b)
			}
		}
	}
	for _, b := range caught {
		if !b.Sick {
			s.infect(b)
		}
	}
}

// rollFire burns a building down during dry spells. Residents lose
// their home; the stock burns with it.
func (s *Simulation) rollFire() {
	risk := s.Weather.Modifiers().FireRisk
	if risk <= 0 {
		return
	}
	if s.rngMacro.Float64() >= s.P.Macro.FireDroughtChance*risk {
		return
	}
	bs := s.World.SortedBuildings()
	if len(bs) == 0 {
		return
	}
	b := bs[s.rngMacro.Intn(len(bs))]
	for _, rid := range b.Residents {
		if a := s.Agents[agents.AgentID(rid)]; a != nil {
			a.HomeID = 0
		}
	}
	s.World.RemoveBuilding(b.ID)
	s.logf("disaster", "fire destroyed a %s, leaving %d without a home", b.Kind, len(b.Residents))
}
