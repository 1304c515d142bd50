package ai

import (
	"github.com/talgya/hearthvale/internal/agents"
	"github.com/talgya/hearthvale/internal/perception"
	"github.com/talgya/hearthvale/internal/registry"
)

// How long an agent humors a stalled social errand before walking away.
const (
	courtPatienceSec = 60
	matePatienceSec  = 120
	tradePatienceSec = 90
)

// stateHandlers continues the errand the agent is already on. Indexed
// by state; idle has no handler because the waterfall plans instead.
var stateHandlers = [agents.NumStates]func(*ctx){
	agents.StateGoResource:     (*ctx).runGoResource,
	agents.StateGathering:      (*ctx).runGathering,
	agents.StateReturning:      (*ctx).runReturning,
	agents.StateExploring:      (*ctx).runExploring,
	agents.StateGoEat:          (*ctx).runGoEat,
	agents.StateSleeping:       (*ctx).runAfterAction,
	agents.StateResting:        (*ctx).runResting,
	agents.StateCourting:       (*ctx).runCourting,
	agents.StateWaitMate:       (*ctx).runWaitMate,
	agents.StateGoHomeMate:     (*ctx).runGoHomeMate,
	agents.StateMating:         (*ctx).runAfterAction,
	agents.StateBuildHome:      (*ctx).runBuildHome,
	agents.StateTradeGoHome:    (*ctx).runTradeGoHome,
	agents.StateTradeGoPartner: (*ctx).runTradeGoPartner,
	agents.StateTradeExchange:  (*ctx).runTradeExchange,
	agents.StateFighting:       (*ctx).runFighting,
	agents.StateFleeing:        (*ctx).runFleeing,
	agents.StateCrafting:       (*ctx).runCrafting,
	agents.StateTendChild:      (*ctx).runTendChild,
}

func (c *ctx) idle() {
	c.a.Mind.Reset(agents.StateIdle, c.now)
	c.w.Halt()
}

// runGoResource walks to the targeted node or remembered zone and
// starts taking. A cold trail degrades the memory that led here.
func (c *ctx) runGoResource() {
	m := &c.a.Mind
	if !m.HasTargetPos {
		c.idle()
		return
	}
	if !c.arrived(m.TargetPos) {
		c.w.MoveTo(m.TargetPos)
		return
	}

	// On site. Grab the targeted node, or whatever free node of the
	// wanted item stands closest.
	if m.TargetEntity != 0 && c.w.BeginTake(m.TargetEntity) {
		m.State = agents.StateGathering
		m.StateSince = c.now
		return
	}
	if s, ok := c.w.NearestFreeResource(m.GatherItem); ok && c.a.Pos.Dist(s.Pos) <= c.p.AI.ArriveEps*2 {
		if c.w.BeginTake(s.ID) {
			m.TargetEntity = s.ID
			m.State = agents.StateGathering
			m.StateSince = c.now
			return
		}
	}

	// Nothing here after all.
	c.a.Know.DegradeAround(m.TargetPos, m.GatherItem, c.p.Knowledge.MergeRadius, c.p.Knowledge)
	c.idle()
}

// runGathering resumes after a finished take: keep stripping the patch
// until the bag is full or the patch is bare.
func (c *ctx) runGathering() {
	if c.a.InventoryFull() {
		if _, ok := c.w.HomePos(); ok {
			c.a.Mind.Reset(agents.StateReturning, c.now)
			return
		}
		c.idle()
		return
	}
	item := c.a.Mind.GatherItem
	if s, ok := c.w.NearestFreeResource(item); ok {
		if c.a.Pos.Dist(s.Pos) <= c.p.AI.ArriveEps*2 && c.w.BeginTake(s.ID) {
			c.a.Mind.TargetEntity = s.ID
			return
		}
		// Patch continues out of arm's reach.
		c.a.Mind.State = agents.StateGoResource
		c.a.Mind.StateSince = c.now
		c.a.Mind.TargetEntity = s.ID
		c.a.Mind.TargetPos = s.Pos
		c.a.Mind.HasTargetPos = true
		c.w.MoveTo(s.Pos)
		return
	}
	c.idle()
}

// runReturning carries the haul home and banks everything except worn
// gear.
func (c *ctx) runReturning() {
	home, ok := c.w.HomePos()
	if !ok {
		c.idle()
		return
	}
	if !c.arrived(home) {
		c.w.MoveTo(home)
		return
	}

	weapon, _ := c.a.BestWeapon(c.reg)
	armor, _ := c.a.BestArmor(c.reg)
	for _, s := range append([]agents.ItemStack(nil), c.a.Inventory...) {
		qty := s.Qty
		if s.Item == weapon || s.Item == armor {
			qty-- // keep one on the belt
		}
		if qty > 0 {
			c.w.Deposit(s.Item, qty)
		}
	}
	c.idle()
}

// runExploring wanders toward the picked point, breaking off as soon
// as memory has something better.
func (c *ctx) runExploring() {
	item := c.a.Mind.GatherItem
	if item != "" {
		if _, ok := c.a.Know.BestZone(c.a.Pos, item, c.a.Reach(c.p.Needs), c.p.Knowledge); ok {
			c.idle()
			return
		}
	}
	if !c.a.Mind.HasTargetPos || c.arrived(c.a.Mind.TargetPos) {
		c.idle()
		return
	}
	c.w.MoveTo(c.a.Mind.TargetPos)
}

// runGoEat raids the home larder.
func (c *ctx) runGoEat() {
	home, ok := c.w.HomePos()
	if !ok {
		c.idle()
		return
	}
	if !c.arrived(home) {
		c.w.MoveTo(home)
		return
	}

	// An empty larder just sends the agent back to planning.
	if c.a.Needs.Thirst < c.p.AI.DrinkAtThirst {
		c.withdrawAndConsume(true)
	}
	if c.a.Needs.Hunger < c.p.AI.EatAtHunger {
		c.withdrawAndConsume(false)
	}
	c.idle()
}

func (c *ctx) withdrawAndConsume(drink bool) bool {
	sv, ok := c.w.HomeStock()
	if !ok {
		return false
	}
	var best registry.ItemID
	bestVal := 0.0
	for _, item := range sortedCounts(sv.Counts) {
		if sv.Counts[item] <= 0 {
			continue
		}
		food, water := c.reg.Nutrition(item)
		v := food
		if drink {
			v = water
		}
		if v > bestVal {
			best, bestVal = item, v
		}
	}
	if bestVal == 0 {
		return false
	}
	if !c.w.Withdraw(best, 1) {
		return false // the count was a guess; the shelf was bare
	}
	return c.w.Consume(best)
}

// runAfterAction covers states that exist only while a committed
// action runs; the world tick applies the effect, the next think lands
// here and moves on.
func (c *ctx) runAfterAction() {
	c.idle()
}

// runResting sits until energy climbs back.
func (c *ctx) runResting() {
	if c.a.Needs.Energy >= c.p.AI.RestToEnergy {
		c.idle()
		return
	}
	c.w.Halt()
}

// runCourting approaches the courted woman and seals the couple once
// she visibly waits.
func (c *ctx) runCourting() {
	target := c.a.Mind.TargetAgent
	pos, visible := c.w.AgentPos(target)
	if !visible || c.now-c.a.Mind.CourtAskedAt > courtPatienceSec {
		c.idle()
		return
	}
	if c.w.AgentWaiting(target) && c.a.Pos.Dist(pos) <= c.p.Repro.ProposalDist {
		if c.w.FormCouple(target) {
			// FormCouple moves the couple in together; head home.
			if home, ok := c.w.HomePos(); ok {
				c.a.Mind.Reset(agents.StateGoHomeMate, c.now)
				c.a.Mind.TargetAgent = target
				c.a.Mind.TargetPos = home
				c.a.Mind.HasTargetPos = true
				c.w.MoveTo(home)
				return
			}
		}
		c.idle()
		return
	}
	c.w.MoveTo(pos)
}

// runWaitMate stands fast for the suitor; patience runs out eventually.
func (c *ctx) runWaitMate() {
	if c.now-c.a.Mind.CourtAskedAt > courtPatienceSec {
		c.idle()
		return
	}
	c.w.Halt()
}

// runGoHomeMate brings the couple under one roof and starts mating
// when both stand there.
func (c *ctx) runGoHomeMate() {
	home, ok := c.w.HomePos()
	if !ok {
		c.idle()
		return
	}
	if !c.arrived(home) {
		c.w.MoveTo(home)
		return
	}
	if c.now-c.a.Mind.StateSince > matePatienceSec {
		c.idle()
		return
	}

	mate, ok := c.a.Know.Mate()
	if !ok {
		c.idle()
		return
	}
	if pos, visible := c.w.AgentPos(agents.AgentID(mate)); visible && pos.Dist(home) <= c.p.AI.ArriveEps*2 {
		if c.w.BeginMate(agents.AgentID(mate)) {
			c.a.Mind.State = agents.StateMating
			c.a.Mind.StateSince = c.now
		}
	}
	// Partner not here yet: wait.
	c.w.Halt()
}

// runBuildHome raises the cabin on the chosen plot.
func (c *ctx) runBuildHome() {
	if !c.a.Mind.HasTargetPos {
		c.idle()
		return
	}
	if !c.arrived(c.a.Mind.TargetPos) {
		c.w.MoveTo(c.a.Mind.TargetPos)
		return
	}
	c.w.BuildCabin()
	c.idle()
}

// runTradeGoHome is the fetch leg: pull the offered goods out of the
// stock, then either march to the partner or stand by for them.
func (c *ctx) runTradeGoHome() {
	plan := c.a.Mind.Trade
	home, ok := c.w.HomePos()
	if plan == nil || !ok {
		c.idle()
		return
	}
	if !c.arrived(home) {
		c.w.MoveTo(home)
		return
	}

	if c.a.CountItem(plan.Offer.Item) < plan.Offer.Qty {
		if !c.w.Withdraw(plan.Offer.Item, plan.Offer.Qty-c.a.CountItem(plan.Offer.Item)) {
			// Goods promised but gone; call it off.
			c.a.Mind.TradeCooldownUntil = c.now + c.p.Economy.TradeCooldown
			c.idle()
			return
		}
	}

	if plan.PartnerStock != 0 {
		// Proposer: carry the payment over.
		c.a.Mind.State = agents.StateTradeGoPartner
		c.a.Mind.StateSince = c.now
		c.a.Mind.TargetPos = plan.PartnerHome
		c.a.Mind.HasTargetPos = true
		c.w.MoveTo(plan.PartnerHome)
		return
	}
	// Acceptor: wait at the counter.
	c.a.Mind.State = agents.StateTradeExchange
	c.a.Mind.StateSince = c.now
	c.w.Halt()
}

// runTradeGoPartner walks the payment to the partner's stock and
// swaps when the partner stands ready.
func (c *ctx) runTradeGoPartner() {
	plan := c.a.Mind.Trade
	if plan == nil {
		c.idle()
		return
	}
	if !c.arrived(plan.PartnerHome) {
		c.w.MoveTo(plan.PartnerHome)
		return
	}
	if c.w.AgentExchanging(plan.Partner) && c.w.ExecuteTrade() {
		return // engine settles both sides and resets the minds
	}
	if c.now-c.a.Mind.StateSince > tradePatienceSec {
		c.a.Mind.TradeCooldownUntil = c.now + c.p.Economy.TradeCooldown
		c.idle()
	}
}

// runTradeExchange is the waiting acceptor. The proposer drives the
// actual swap; this side just keeps the appointment or gives up and
// restocks.
func (c *ctx) runTradeExchange() {
	plan := c.a.Mind.Trade
	if plan == nil {
		c.idle()
		return
	}
	if c.now-c.a.Mind.StateSince > tradePatienceSec {
		c.w.Deposit(plan.Offer.Item, plan.Offer.Qty)
		c.a.Mind.TradeCooldownUntil = c.now + c.p.Economy.TradeCooldown
		c.idle()
		return
	}
	c.w.Halt()
}

// runFighting presses the attack, re-judging the threat every think.
func (c *ctx) runFighting() {
	target := c.a.Mind.TargetAgent
	pos, visible := c.w.AgentPos(target)
	if !visible {
		c.idle()
		return
	}

	for _, foe := range c.w.Foes() {
		if foe.ID != target {
			continue
		}
		if t := perception.PerceiveThreat(c.obs, foe.View); t.Flee {
			c.a.Mind.Reset(agents.StateFleeing, c.now)
			c.fleeFrom(foe.Pos)
			return
		}
		break
	}

	if c.a.Pos.Dist(pos) <= c.p.Combat.AttackRange {
		c.w.Halt()
		if c.now >= c.a.Mind.AttackCooldownUntil {
			c.w.Attack(target)
		}
		return
	}
	c.w.MoveTo(pos)
}

// runFleeing keeps running until no foe is in sight.
func (c *ctx) runFleeing() {
	foes := c.w.Foes()
	if len(foes) == 0 {
		c.idle()
		return
	}
	c.fleeFrom(foes[0].Pos)
}

// runCrafting works the station at home batch after batch.
func (c *ctx) runCrafting() {
	home, ok := c.w.HomePos()
	if !ok || c.a.Mind.Recipe == "" {
		c.idle()
		return
	}
	if !c.arrived(home) {
		c.w.MoveTo(home)
		return
	}
	if !c.w.BeginCraft(c.a.Mind.Recipe) {
		c.idle() // inputs ran out
	}
}

// runTendChild brings food to the hungry child.
func (c *ctx) runTendChild() {
	id := c.a.Mind.TargetAgent
	pos, visible := c.w.AgentPos(id)
	if !visible {
		if !c.a.Mind.HasTargetPos || c.arrived(c.a.Mind.TargetPos) {
			c.idle()
			return
		}
		pos = c.a.Mind.TargetPos
	}
	if c.a.Pos.Dist(pos) <= c.p.AI.ArriveEps*2 {
		c.w.FeedChild(id)
		c.idle()
		return
	}
	c.w.MoveTo(pos)
}
