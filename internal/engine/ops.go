package engine

import (
	"github.com/talgya/hearthvale/internal/agents"
	"github.com/talgya/hearthvale/internal/combat"
	"github.com/talgya/hearthvale/internal/knowledge"
	"github.com/talgya/hearthvale/internal/registry"
	"github.com/talgya/hearthvale/internal/world"
)

// Engine-side halves of the agent operations. Each validates against
// true state and fails by returning false; the planner treats a false
// as the world refusing and moves on.

// tradeAffinityBump is the goodwill earned by a completed barter.
const tradeAffinityBump = 0.05

// homeStock resolves the agent's household stock, nil when homeless or
// the home is gone.
func (s *Simulation) homeStock(a *agents.Agent) *world.Stock {
	b := s.World.Building(a.HomeID)
	if b == nil {
		return nil
	}
	return s.World.Stock(b.StockID)
}

func (s *Simulation) withinReach(a *agents.Agent, pos world.Vec2) bool {
	return a.Pos.Dist(pos) <= s.P.AI.ArriveEps*2
}

// beginTake locks the node and commits the harvest timer. Sick or
// clumsy gatherers work slower.
func (s *Simulation) beginTake(a *agents.Agent, id world.EntityID) bool {
	if a.Action != nil {
		return false
	}
	r := s.World.Resource(id)
	if r == nil || r.Qty <= 0 || r.LockedBy != 0 {
		return false
	}
	if !s.withinReach(a, r.Pos) {
		return false
	}
	speed := a.Traits.GatherSpeed
	if a.Sick {
		speed *= s.P.Macro.EpidemicGatherMult
	}
	if speed < 0.1 {
		speed = 0.1
	}
	dur := takeBaseSec / speed
	r.LockedBy = uint64(a.ID)
	a.Action = &agents.Action{Kind: agents.ActTake, Total: dur, Remaining: dur, Entity: r.ID}
	a.MoveTarget = nil
	return true
}

// beginSleep commits to sleeping long enough to fill energy back up.
func (s *Simulation) beginSleep(a *agents.Agent) bool {
	if a.Action != nil {
		return false
	}
	need := (100 - a.Needs.Energy) / s.P.Needs.EnergyRestoreSleep
	if need < 10 {
		need = 10
	}
	a.Mind.EnergyAtSleep = a.Needs.Energy
	a.Action = &agents.Action{Kind: agents.ActSleep, Total: need, Remaining: need}
	a.MoveTarget = nil
	return true
}

// beginMate pairs both partners into the mating action at the shared
// home. The caller side sets its own state; this puts the partner in.
func (s *Simulation) beginMate(a *agents.Agent, partnerID agents.AgentID) bool {
	partner := s.Agents[partnerID]
	if partner == nil || a.Action != nil || partner.Action != nil {
		return false
	}
	if !a.CanMate(s.P.Repro) || !partner.CanMate(s.P.Repro) {
		return false
	}
	home := s.World.Building(a.HomeID)
	if home == nil || home.ID != partner.HomeID {
		return false
	}
	if !s.withinReach(a, home.Pos) || !s.withinReach(partner, home.Pos) {
		return false
	}

	dur := s.P.Repro.MatingSec
	a.Action = &agents.Action{Kind: agents.ActMate, Total: dur, Remaining: dur, Agent: partnerID}
	partner.Action = &agents.Action{Kind: agents.ActMate, Total: dur, Remaining: dur, Agent: a.ID}
	a.MoveTarget = nil
	partner.MoveTarget = nil
	partner.Mind.Reset(agents.StateMating, s.Now)
	return true
}

// beginCraft checks job, station and inputs, withdraws the inputs up
// front and commits the work timer.
func (s *Simulation) beginCraft(a *agents.Agent, rid registry.RecipeID) bool {
	if a.Action != nil {
		return false
	}
	rec, ok := s.Reg.Recipe(rid)
	if !ok {
		return false
	}
	if rec.Job != "" && rec.Job != a.Job {
		return false
	}
	b := s.World.Building(a.HomeID)
	if b == nil || !s.withinReach(a, b.Pos) {
		return false
	}
	if rec.Station != "" && rec.Station != b.Kind {
		return false
	}
	stock := s.World.Stock(b.StockID)
	if stock == nil {
		return false
	}
	for _, in := range rec.Inputs {
		if stock.Count(in.Item) < in.Qty {
			return false
		}
	}
	for _, in := range rec.Inputs {
		stock.Take(in.Item, in.Qty)
	}
	dur := rec.TimeSec
	a.Action = &agents.Action{Kind: agents.ActCraft, Total: dur, Remaining: dur, Recipe: rid}
	a.MoveTarget = nil
	return true
}

// consume eats or drinks one carried unit on the spot.
func (s *Simulation) consume(a *agents.Agent, item registry.ItemID) bool {
	def, ok := s.Reg.Item(item)
	if !ok || !def.Edible() {
		return false
	}
	if !a.RemoveItem(item, 1) {
		return false
	}
	a.Needs.ApplyFood(def.Nutrition, def.Hydration)
	return true
}

// deposit moves carried goods into the home stock.
func (s *Simulation) deposit(a *agents.Agent, item registry.ItemID, qty int) bool {
	if qty <= 0 {
		return false
	}
	stock := s.homeStock(a)
	if stock == nil {
		return false
	}
	b := s.World.Building(a.HomeID)
	if b == nil || !s.withinReach(a, b.Pos) {
		return false
	}
	if !a.RemoveItem(item, qty) {
		return false
	}
	stock.Add(item, qty)
	return true
}

// withdraw pulls goods from the home stock into the pack, respecting
// carry space.
func (s *Simulation) withdraw(a *agents.Agent, item registry.ItemID, qty int) bool {
	if qty <= 0 || a.CarryFree() < qty {
		return false
	}
	stock := s.homeStock(a)
	if stock == nil {
		return false
	}
	b := s.World.Building(a.HomeID)
	if b == nil || !s.withinReach(a, b.Pos) {
		return false
	}
	if !stock.Take(item, qty) {
		return false
	}
	if !a.AddItem(item, qty) {
		stock.Add(item, qty)
		return false
	}
	return true
}

// give hands carried goods to another agent, all or nothing. Both must
// stand together and the receiver needs the carry room.
func (s *Simulation) give(from, to *agents.Agent, item registry.ItemID, qty int) bool {
	if qty <= 0 || from == to || to == nil {
		return false
	}
	if !s.withinReach(from, to.Pos) {
		return false
	}
	if from.CountItem(item) < qty || to.CarryFree() < qty {
		return false
	}
	if !from.RemoveItem(item, qty) {
		return false
	}
	to.AddItem(item, qty)
	return true
}

// buildCabin raises a home on the spot, spending carried wood. The
// plot must be clear of other buildings.
func (s *Simulation) buildCabin(a *agents.Agent) bool {
	if !a.IsAdult(s.P.Repro) || a.HomeID != 0 {
		return false
	}
	cost := s.P.Building.CabinWoodCost
	if a.CountItem(registry.Wood) < cost {
		return false
	}
	if len(s.World.BuildingsNear(a.Pos, s.P.Building.PlotRadius)) > 0 {
		return false
	}
	if !a.RemoveItem(registry.Wood, cost) {
		return false
	}
	b := s.World.AddBuilding(world.KindCabin, a.Pos)
	b.Faction = a.FactionID
	b.AddResident(uint64(a.ID))
	a.HomeID = b.ID
	s.logf("social", "%s raised a cabin", a.Name)
	return true
}

// greet hails a neighbor: a charm-scaled warmth bump plus the best few
// zones the greeter is confident about, each told a notch under their
// own certainty.
func (s *Simulation) greet(a *agents.Agent, toID agents.AgentID) bool {
	to := s.Agents[toID]
	if to == nil || to == a {
		return false
	}
	if a.Pos.Dist(to.Pos) > s.P.Knowledge.GreetRadius {
		return false
	}

	kp := s.P.Knowledge
	msg := agents.Message{
		From:   a.ID,
		Kind:   agents.MsgGreeting,
		Warmth: a.Traits.Charisma * kp.GreetAffinity,
	}
	for _, z := range a.Know.ShareableZones(kp.ShareZoneMax, kp.ShareFloor) {
		conf := z.Confidence - kp.ShareGap
		if conf > kp.ShareCap {
			conf = kp.ShareCap
		}
		if conf <= 0 {
			continue
		}
		msg.Zones = append(msg.Zones, agents.SharedZone{Pos: z.Pos, Item: z.Item, Confidence: conf})
	}
	to.Deliver(msg)

	a.Know.SetGreeted(uint64(toID), s.Now)
	to.Know.SetGreeted(uint64(a.ID), s.Now)
	a.Know.BumpAffinity(uint64(toID), kp.GreetAffinity)
	return true
}

// court asks; the answer is whether she visibly stops to wait.
func (s *Simulation) court(a *agents.Agent, toID agents.AgentID) bool {
	to := s.Agents[toID]
	if to == nil || to == a {
		return false
	}
	if a.Pos.Dist(to.Pos) > a.Traits.Vision {
		return false
	}
	to.Deliver(agents.Message{From: a.ID, Kind: agents.MsgCourtRequest})
	return true
}

// formCouple seals the pair once the suitor stands beside the waiting
// partner. The couple moves in together; whoever has a home keeps it.
func (s *Simulation) formCouple(a *agents.Agent, partnerID agents.AgentID) bool {
	partner := s.Agents[partnerID]
	if partner == nil || partner == a {
		return false
	}
	if !partner.WaitingForMate() || partner.Mind.TargetAgent != a.ID {
		return false
	}
	if a.Pos.Dist(partner.Pos) > s.P.Repro.ProposalDist {
		return false
	}
	if _, taken := a.Know.Mate(); taken {
		return false
	}
	if _, taken := partner.Know.Mate(); taken {
		return false
	}

	a.Know.AddRelation(uint64(partnerID), knowledge.RelMate)
	partner.Know.AddRelation(uint64(a.ID), knowledge.RelMate)
	a.Know.BumpAffinity(uint64(partnerID), 0.3)
	partner.Know.BumpAffinity(uint64(a.ID), 0.3)

	// The mover joins the stayer's home, hers when both are housed.
	fem, other := partner, a
	if a.Sex == agents.SexFemale {
		fem, other = a, partner
	}
	switch {
	case fem.HomeID != 0:
		s.moveIn(other, fem.HomeID)
	case other.HomeID != 0:
		s.moveIn(fem, other.HomeID)
	}
	// A couple shares a banner; the unaffiliated side joins.
	if partner.FactionID == 0 && a.FactionID != 0 {
		s.joinFaction(partner, a.FactionID)
	} else if a.FactionID == 0 && partner.FactionID != 0 {
		s.joinFaction(a, partner.FactionID)
	}

	// Send the partner home for the union.
	partner.Mind.Reset(agents.StateGoHomeMate, s.Now)
	partner.Mind.TargetAgent = a.ID
	if home := s.World.Building(partner.HomeID); home != nil {
		partner.Mind.TargetPos = home.Pos
		partner.Mind.HasTargetPos = true
		t := home.Pos
		partner.MoveTarget = &t
	}

	s.logf("social", "%s and %s became a couple", a.Name, partner.Name)
	return true
}

func (s *Simulation) moveIn(a *agents.Agent, homeID world.EntityID) {
	if a.HomeID == homeID {
		return
	}
	if old := s.World.Building(a.HomeID); old != nil {
		old.RemoveResident(uint64(a.ID))
	}
	if b := s.World.Building(homeID); b != nil {
		b.AddResident(uint64(a.ID))
		a.HomeID = homeID
	}
}

func (s *Simulation) joinFaction(a *agents.Agent, faction uint64) {
	if f := s.Factions.Get(faction); f != nil {
		f.AddMember(uint64(a.ID))
		a.FactionID = faction
	}
}

// proposeTrade plants the plan on the proposer and drops the offer in
// the partner's inbox. The partner answers next think, if at all.
func (s *Simulation) proposeTrade(a *agents.Agent, toID agents.AgentID, offer, want agents.ItemStack) bool {
	to := s.Agents[toID]
	if to == nil || to == a {
		return false
	}
	if offer.Qty <= 0 || want.Qty <= 0 {
		return false
	}
	b := s.World.Building(to.HomeID)
	if b == nil {
		return false
	}
	a.Mind.Trade = &agents.TradePlan{
		Partner:      toID,
		PartnerStock: b.StockID,
		PartnerHome:  b.Pos,
		Offer:        offer,
		Want:         want,
	}
	to.Deliver(agents.Message{From: a.ID, Kind: agents.MsgTradeOffer, Offer: offer, Want: want})
	return true
}

// executeTrade settles the barter when both sides stand at the
// partner's stock holding their halves. Both minds reset; goodwill and
// market tallies update.
func (s *Simulation) executeTrade(a *agents.Agent) bool {
	plan := a.Mind.Trade
	if plan == nil || plan.PartnerStock == 0 {
		return false
	}
	partner := s.Agents[plan.Partner]
	if partner == nil || partner.Mind.State != agents.StateTradeExchange {
		return false
	}
	pplan := partner.Mind.Trade
	if pplan == nil || pplan.Partner != a.ID {
		return false
	}
	// The two plans must mirror each other.
	if pplan.Offer != plan.Want || pplan.Want != plan.Offer {
		return false
	}
	if a.Pos.Dist(partner.Pos) > s.P.Repro.ProposalDist {
		return false
	}
	stock := s.World.Stock(plan.PartnerStock)
	if stock == nil {
		return false
	}
	if a.CountItem(plan.Offer.Item) < plan.Offer.Qty {
		return false
	}
	if partner.CountItem(pplan.Offer.Item) < pplan.Offer.Qty {
		return false
	}
	if a.CarryFree()+plan.Offer.Qty < plan.Want.Qty {
		return false
	}

	a.RemoveItem(plan.Offer.Item, plan.Offer.Qty)
	stock.Add(plan.Offer.Item, plan.Offer.Qty)
	partner.RemoveItem(pplan.Offer.Item, pplan.Offer.Qty)
	a.AddItem(plan.Want.Item, plan.Want.Qty)

	s.Market.RecordTrade(plan.Offer.Item, plan.Offer.Qty)
	s.Market.RecordTrade(plan.Want.Item, plan.Want.Qty)
	a.Know.BumpAffinity(uint64(partner.ID), tradeAffinityBump)
	partner.Know.BumpAffinity(uint64(a.ID), tradeAffinityBump)

	a.Mind.TradeCooldownUntil = s.Now + s.P.Economy.TradeCooldown
	partner.Mind.TradeCooldownUntil = s.Now + s.P.Economy.TradeCooldown
	a.Mind.Reset(agents.StateIdle, s.Now)
	partner.Mind.Reset(agents.StateIdle, s.Now)
	a.MoveTarget = nil
	partner.MoveTarget = nil

	s.logf("economy", "%s traded %d %s for %d %s with %s",
		a.Name, plan.Offer.Qty, plan.Offer.Item, plan.Want.Qty, plan.Want.Item, partner.Name)
	return true
}

// attack swings once, on cooldown. A kill buries the target.
func (s *Simulation) attack(a *agents.Agent, targetID agents.AgentID) bool {
	t := s.Agents[targetID]
	if t == nil || t == a {
		return false
	}
	if s.Now < a.Mind.AttackCooldownUntil {
		return false
	}
	if !combat.InRange(a, t, s.P.Combat) {
		return false
	}
	out := combat.ResolveAttack(a, t, s.Reg, s.P.Combat, s.rngCombat)
	a.Mind.AttackCooldownUntil = s.Now + s.P.Combat.AttackCooldown
	if out.Killed {
		s.logf("death", "%s was slain by %s", t.Name, a.Name)
		s.bury(t, "")
	}
	return true
}

// hungryChild finds the agent's own hungriest child below the feed
// threshold.
func (s *Simulation) hungryChild(a *agents.Agent) (agents.AgentID, world.Vec2, bool) {
	var best *agents.Agent
	for _, cid := range a.Know.Children() {
		c := s.Agents[agents.AgentID(cid)]
		if c == nil || c.Stage(s.P.Repro) >= agents.StageAdolescent {
			continue
		}
		if c.Needs.Hunger >= s.P.Needs.ChildFeedThreshold {
			continue
		}
		if best == nil || c.Needs.Hunger < best.Needs.Hunger {
			best = c
		}
	}
	if best == nil {
		return 0, world.Vec2{}, false
	}
	return best.ID, best.Pos, true
}

// feedChild hands over the best carried food; the child eats it on the
// spot rather than pocketing it.
func (s *Simulation) feedChild(a *agents.Agent, id agents.AgentID) bool {
	c := s.Agents[id]
	if c == nil {
		return false
	}
	var best registry.ItemID
	bestVal := 0.0
	for _, st := range a.Inventory {
		def, ok := s.Reg.Item(st.Item)
		if !ok || def.Nutrition <= bestVal {
			continue
		}
		best, bestVal = st.Item, def.Nutrition
	}
	if bestVal == 0 || !s.give(a, c, best, 1) {
		return false
	}
	return s.consume(c, best)
}

// bury removes the dead: corpse on the ground, home and faction rolls
// updated, locks released, the partner's shared action cancelled, and
// every survivor forgets them.
func (s *Simulation) bury(a *agents.Agent, cause string) {
	if _, ok := s.Agents[a.ID]; !ok {
		return
	}
	s.removeAgent(a.ID)

	s.World.AddCorpse(a.Pos, a.Name, s.Now)
	if b := s.World.Building(a.HomeID); b != nil {
		b.RemoveResident(uint64(a.ID))
	}
	s.World.UnlockDeadHolders(func(id uint64) bool {
		_, ok := s.Agents[agents.AgentID(id)]
		return ok
	})
	if f := s.Factions.Get(a.FactionID); f != nil {
		f.RemoveMember(uint64(a.ID))
	}

	// Release a partner locked into a shared action with the deceased.
	if a.Action != nil && a.Action.Kind == agents.ActMate {
		if p := s.Agents[a.Action.Agent]; p != nil && p.Action != nil && p.Action.Kind == agents.ActMate {
			p.Action = nil
			p.Mind.Reset(agents.StateIdle, s.Now)
		}
	}

	for _, id := range s.Order {
		s.Agents[id].Know.Forget(uint64(a.ID))
	}

	s.Stats.Deaths++
	if cause != "" {
		s.logf("death", "%s %s", a.Name, cause)
	}
}

// bestFood picks the most nourishing item in a stock.
func bestFood(reg *registry.Registry, stock *world.Stock) (registry.ItemID, bool) {
	var best registry.ItemID
	bestVal := 0.0
	for _, item := range stock.SortedItems() {
		def, ok := reg.Item(item)
		if !ok || def.Nutrition <= bestVal {
			continue
		}
		best, bestVal = item, def.Nutrition
	}
	return best, bestVal > 0
}
