package ai

import (
	"math"
	"math/rand"
	"sort"

	"github.com/talgya/hearthvale/internal/agents"
	"github.com/talgya/hearthvale/internal/perception"
	"github.com/talgya/hearthvale/internal/registry"
	"github.com/talgya/hearthvale/internal/tuning"
	"github.com/talgya/hearthvale/internal/world"
)

// ctx bundles what one think needs so handlers stay short.
type ctx struct {
	a   *agents.Agent
	w   World
	reg *registry.Registry
	p   *tuning.Params
	rng *rand.Rand
	now float64
	obs perception.Observer
}

// Think runs one decision pass for the agent. The engine calls it when
// the agent's jittered cadence comes due, after flipping pending
// messages into the inbox.
func Think(a *agents.Agent, w World, reg *registry.Registry, p *tuning.Params, rng *rand.Rand) {
	now := w.Now()
	a.Mind.NextThink = now + p.AI.ThinkBaseSec + rng.Float64()*p.AI.ThinkJitterSec

	c := &ctx{a: a, w: w, reg: reg, p: p, rng: rng, now: now, obs: w.Observer()}

	// Babies and children absorb greetings but never plan.
	if a.Stage(p.Repro) < agents.StageAdolescent {
		for _, m := range a.DrainInbox() {
			if m.Kind == agents.MsgGreeting {
				c.absorbGreeting(m)
			}
		}
		return
	}

	// Notice what is in sight before deciding anything.
	for _, s := range w.VisibleResources() {
		a.Know.RecordFirsthand(s.Pos, s.Item, now, p.Knowledge)
	}

	c.handleMessages(a.DrainInbox())
	c.maybeGreet()

	// Committed actions run out in the world tick; nothing to decide.
	if a.Action != nil {
		return
	}

	if a.Mind.State >= agents.NumStates {
		a.Mind.Reset(agents.StateIdle, now)
	}
	if a.Mind.State != agents.StateIdle {
		if h := stateHandlers[a.Mind.State]; h != nil {
			h(c)
			return
		}
		a.Mind.Reset(agents.StateIdle, now)
	}
	c.planIdle()
}

// planIdle walks the priority waterfall. First claim wins; explore is
// the floor.
func (c *ctx) planIdle() {
	switch {
	case c.planCombat():
	case c.planSurvival():
	case c.planMaternal():
	case c.planParental():
	case c.planBuildHome():
	case c.planReturnFull():
	case c.planMate():
	case c.planCourt():
	case c.planTrade():
	case c.planCraft():
	case c.planRest():
	case c.planGather(c.primaryItem()):
	case c.planGatherWood():
	default:
		c.planExplore()
	}
}

// --- waterfall steps ---

func (c *ctx) planCombat() bool {
	foes := c.w.Foes()
	if len(foes) == 0 {
		return false
	}
	foe := foes[0] // nearest
	t := perception.PerceiveThreat(c.obs, foe.View)
	if t.Flee {
		c.a.Mind.Reset(agents.StateFleeing, c.now)
		c.fleeFrom(foe.Pos)
		return true
	}
	c.a.Mind.Reset(agents.StateFighting, c.now)
	c.a.Mind.TargetAgent = foe.ID
	c.w.MoveTo(foe.Pos)
	return true
}

func (c *ctx) planSurvival() bool {
	n := c.a.Needs

	if n.Thirst < c.p.AI.DrinkAtThirst {
		if c.drinkOrEat(true) {
			return true
		}
	}
	if n.Hunger < c.p.AI.EatAtHunger {
		if c.drinkOrEat(false) {
			return true
		}
	}
	if n.Energy < c.p.AI.SleepAtEnergy {
		// Too drained to pick a bed; sleep where standing.
		c.w.Halt()
		if c.w.BeginSleep() {
			c.a.Mind.Reset(agents.StateSleeping, c.now)
		}
		return true
	}
	return false
}

// drinkOrEat covers one survival lane: consume from hand, fetch from
// home, or head for a remembered source. Claims the think when any of
// those engaged.
func (c *ctx) drinkOrEat(drink bool) bool {
	if item, ok := c.bestCarried(drink); ok {
		c.w.Consume(item)
		return true
	}

	if sv, ok := c.w.HomeStock(); ok && c.stockHasAny(sv, drink) {
		home, _ := c.w.HomePos()
		c.a.Mind.Reset(agents.StateGoEat, c.now)
		c.a.Mind.TargetPos = home
		c.a.Mind.HasTargetPos = true
		c.w.MoveTo(home)
		return true
	}

	item := registry.ItemID("water")
	if !drink {
		item = c.primaryFood()
	}
	if c.goGather(item) {
		return true
	}
	// Nothing known: wander for a new source. Still a survival move.
	c.planExplore()
	return true
}

func (c *ctx) planMaternal() bool {
	g := c.a.Repro.Gestation
	if g == nil || g.Remaining > 60 {
		return false
	}
	home, ok := c.w.HomePos()
	if !ok || c.arrived(home) {
		return false
	}
	// Near term: head home to nest.
	c.a.Mind.Reset(agents.StateReturning, c.now)
	c.w.MoveTo(home)
	return true
}

func (c *ctx) planParental() bool {
	id, pos, ok := c.w.HungryChild()
	if !ok {
		return false
	}
	if _, carrying := c.bestCarried(false); !carrying {
		return false
	}
	c.a.Mind.Reset(agents.StateTendChild, c.now)
	c.a.Mind.TargetAgent = id
	c.a.Mind.TargetPos = pos
	c.a.Mind.HasTargetPos = true
	c.w.MoveTo(pos)
	return true
}

func (c *ctx) planBuildHome() bool {
	if !c.a.IsAdult(c.p.Repro) {
		return false
	}
	if _, ok := c.w.HomePos(); ok {
		return false
	}
	if c.a.CountItem(registry.Wood) < c.p.Building.CabinWoodCost {
		return false
	}
	plot, ok := c.w.FindHomePlot()
	if !ok {
		return false
	}
	c.a.Mind.Reset(agents.StateBuildHome, c.now)
	c.a.Mind.TargetPos = plot
	c.a.Mind.HasTargetPos = true
	c.w.MoveTo(plot)
	return true
}

func (c *ctx) planReturnFull() bool {
	if !c.a.InventoryFull() {
		return false
	}
	home, ok := c.w.HomePos()
	if !ok {
		return false
	}
	c.a.Mind.Reset(agents.StateReturning, c.now)
	c.w.MoveTo(home)
	return true
}

func (c *ctx) planMate() bool {
	if !c.a.IsAdult(c.p.Repro) || c.a.Sex != agents.SexMale {
		return false
	}
	mate, ok := c.a.Know.Mate()
	if !ok || c.a.Repro.Desire < c.p.Repro.CourtThreshold || !c.a.CanMate(c.p.Repro) {
		return false
	}
	home, hasHome := c.w.HomePos()
	if !hasHome {
		return false
	}
	c.a.Mind.Reset(agents.StateGoHomeMate, c.now)
	c.a.Mind.TargetAgent = agents.AgentID(mate)
	c.a.Mind.TargetPos = home
	c.a.Mind.HasTargetPos = true
	c.w.MoveTo(home)
	return true
}

func (c *ctx) planCourt() bool {
	if !c.a.IsAdult(c.p.Repro) || c.a.Sex != agents.SexMale {
		return false
	}
	if _, taken := c.a.Know.Mate(); taken {
		return false
	}
	if c.a.Repro.Desire < c.p.Repro.CourtThreshold || !c.a.Needs.Comfortable(c.p.Needs) {
		return false
	}

	var best Candidate
	bestScore := -1.0
	for _, cand := range c.w.MateCandidates() {
		op := perception.EvaluateMate(c.obs, cand.View)
		if op.Acceptable && op.Score > bestScore {
			best, bestScore = cand, op.Score
		}
	}
	if bestScore < 0 {
		return false
	}
	if !c.w.Court(agents.AgentID(best.View.ID)) {
		return false
	}
	c.a.Mind.Reset(agents.StateCourting, c.now)
	c.a.Mind.TargetAgent = agents.AgentID(best.View.ID)
	c.a.Mind.CourtAskedAt = c.now
	c.w.MoveTo(best.Pos)
	return true
}

func (c *ctx) planTrade() bool {
	if !c.a.IsAdult(c.p.Repro) || c.now < c.a.Mind.TradeCooldownUntil {
		return false
	}
	sv, ok := c.w.HomeStock()
	if !ok || !c.a.Needs.Comfortable(c.p.Needs) {
		return false
	}
	if sv.Label > perception.StockLow {
		return false // only the pinched go shopping
	}

	want, offer, ok := c.pickBarter(sv)
	if !ok {
		return false
	}
	partner, ok := c.pickTradePartner()
	if !ok {
		return false
	}
	// Reset first: ProposeTrade fills Mind.Trade and Reset would wipe it.
	c.a.Mind.Reset(agents.StateTradeGoHome, c.now)
	if !c.w.ProposeTrade(partner, offer, want) {
		c.a.Mind.Reset(agents.StateIdle, c.now)
		return false
	}
	home, _ := c.w.HomePos()
	c.a.Mind.TargetPos = home
	c.a.Mind.HasTargetPos = true
	c.w.MoveTo(home)
	return true
}

func (c *ctx) planCraft() bool {
	job, ok := c.reg.Job(c.a.Job)
	if !ok || len(job.Recipes) == 0 {
		return false
	}
	sv, hasHome := c.w.HomeStock()
	if !hasHome {
		return false
	}
	for _, rid := range job.Recipes {
		rec, ok := c.reg.Recipe(rid)
		if !ok {
			continue
		}
		if !c.inputsCovered(rec, sv) {
			continue
		}
		home, _ := c.w.HomePos()
		c.a.Mind.Reset(agents.StateCrafting, c.now)
		c.a.Mind.Recipe = rid
		c.a.Mind.TargetPos = home
		c.a.Mind.HasTargetPos = true
		c.w.MoveTo(home)
		return true
	}
	return false
}

func (c *ctx) planRest() bool {
	if c.a.Needs.Energy >= c.p.AI.RestAtEnergy {
		return false
	}
	// Sleep in a bed when home is close; otherwise sit down where safe.
	if home, ok := c.w.HomePos(); ok && c.a.Pos.Dist(home) <= c.p.AI.HomeNearRadius {
		if !c.arrived(home) {
			c.a.Mind.Reset(agents.StateReturning, c.now)
			c.w.MoveTo(home)
			return true
		}
		if c.w.BeginSleep() {
			c.a.Mind.Reset(agents.StateSleeping, c.now)
			return true
		}
	}
	c.a.Mind.Reset(agents.StateResting, c.now)
	c.w.Halt()
	return true
}

// planGather heads for the named item: a free node in sight first, a
// remembered zone second.
func (c *ctx) planGather(item registry.ItemID) bool {
	if item == "" || c.a.InventoryFull() {
		return false
	}
	return c.goGather(item)
}

func (c *ctx) planGatherWood() bool {
	if c.a.InventoryFull() {
		return false
	}
	need := false
	if _, ok := c.w.HomePos(); !ok {
		need = c.a.CountItem(registry.Wood) < c.p.Building.CabinWoodCost
	} else if sv, ok := c.w.HomeStock(); ok {
		need = sv.Counts[registry.Wood] < c.p.Building.CabinWoodCost
	}
	if !need {
		return false
	}
	return c.goGather(registry.Wood)
}

func (c *ctx) planExplore() {
	step := c.p.AI.ExploreStep
	dir := c.rng.Float64() * 2 * math.Pi
	target := c.a.Pos.Add(world.Vec2{X: math.Cos(dir), Y: math.Sin(dir)}.Scale(step))
	c.a.Mind.Reset(agents.StateExploring, c.now)
	c.a.Mind.TargetPos = target
	c.a.Mind.HasTargetPos = true
	c.w.MoveTo(target)
}

// --- shared helpers ---

func (c *ctx) arrived(pos world.Vec2) bool {
	return c.a.Pos.Dist(pos) <= c.p.AI.ArriveEps
}

// goGather targets the item: direct sighting beats memory; memory is
// only trusted within reach.
func (c *ctx) goGather(item registry.ItemID) bool {
	if s, ok := c.w.NearestFreeResource(item); ok {
		c.a.Mind.Reset(agents.StateGoResource, c.now)
		c.a.Mind.TargetEntity = s.ID
		c.a.Mind.TargetPos = s.Pos
		c.a.Mind.HasTargetPos = true
		c.a.Mind.GatherItem = item
		c.w.MoveTo(s.Pos)
		return true
	}
	if z, ok := c.a.Know.BestZone(c.a.Pos, item, c.a.Reach(c.p.Needs), c.p.Knowledge); ok {
		c.a.Mind.Reset(agents.StateGoResource, c.now)
		c.a.Mind.TargetPos = z.Pos
		c.a.Mind.HasTargetPos = true
		c.a.Mind.GatherItem = item
		c.w.MoveTo(z.Pos)
		return true
	}
	return false
}

func (c *ctx) fleeFrom(threat world.Vec2) {
	away := c.a.Pos.Sub(threat)
	if away.Len() < 1e-9 {
		away = world.Vec2{X: 1}
	}
	target := c.a.Pos.Add(away.Scale(c.p.AI.ExploreStep / away.Len()))
	c.a.Mind.TargetPos = target
	c.a.Mind.HasTargetPos = true
	c.w.MoveTo(target)
}

// bestCarried picks the most filling carried item for the lane: best
// hydration when drinking, best nutrition when eating.
func (c *ctx) bestCarried(drink bool) (registry.ItemID, bool) {
	var best registry.ItemID
	bestVal := 0.0
	for _, s := range c.a.Inventory {
		food, water := c.reg.Nutrition(s.Item)
		v := food
		if drink {
			v = water
		}
		if v > bestVal {
			best, bestVal = s.Item, v
		}
	}
	return best, bestVal > 0
}

func (c *ctx) stockHasAny(sv perception.StockView, drink bool) bool {
	for item, n := range sv.Counts {
		if n <= 0 {
			continue
		}
		food, water := c.reg.Nutrition(item)
		if drink && water > 0 {
			return true
		}
		if !drink && food > 0 {
			return true
		}
	}
	return false
}

// primaryItem is what the agent's job gathers.
func (c *ctx) primaryItem() registry.ItemID {
	if job, ok := c.reg.Job(c.a.Job); ok {
		return job.Gathers
	}
	return ""
}

// primaryFood is the food to hunt for when hungry with nothing in
// hand: the job's own produce if edible, berries otherwise.
func (c *ctx) primaryFood() registry.ItemID {
	item := c.primaryItem()
	if food, _ := c.reg.Nutrition(item); food > 0 {
		return item
	}
	return "berries"
}

// inputsCovered reports whether the stock view shows enough of every
// recipe input. Perception noise can lie here; the craft attempt fails
// silently when it does.
func (c *ctx) inputsCovered(rec registry.RecipeDef, sv perception.StockView) bool {
	for _, in := range rec.Inputs {
		if sv.Counts[in.Item] < in.Qty {
			return false
		}
	}
	return true
}

// pickBarter decides what to ask for and what to give away. Food when
// the larder runs low, paid for with whatever the stock holds most of.
func (c *ctx) pickBarter(sv perception.StockView) (want, offer agents.ItemStack, ok bool) {
	// Want: the most filling food on the board.
	bestFood := registry.ItemID("")
	bestVal := 0.0
	for _, id := range c.reg.ItemIDs() {
		def, _ := c.reg.Item(id)
		if def.Nutrition > bestVal && c.w.Price(id) > 0 {
			bestFood, bestVal = id, def.Nutrition
		}
	}
	if bestFood == "" {
		return want, offer, false
	}
	want = agents.ItemStack{Item: bestFood, Qty: 2}

	// Offer: largest non-food pile in the stock.
	var give registry.ItemID
	most := 0
	for _, item := range sortedCounts(sv.Counts) {
		n := sv.Counts[item]
		if item == bestFood || n <= most {
			continue
		}
		if food, _ := c.reg.Nutrition(item); food > 0 {
			continue
		}
		give, most = item, n
	}
	if give == "" {
		return want, offer, false
	}

	// Size the offer up until it clears the partner's bar.
	for qty := 1; qty <= most; qty++ {
		if c.w.FairOffer(give, qty, want.Item, want.Qty) {
			return want, agents.ItemStack{Item: give, Qty: qty}, true
		}
	}
	return want, offer, false
}

// pickTradePartner prefers the closest neighbor the agent actually
// likes.
func (c *ctx) pickTradePartner() (agents.AgentID, bool) {
	for _, nb := range c.w.Neighbors() {
		if !nb.View.Adult {
			continue
		}
		if c.a.Know.Affinity(nb.View.ID) >= c.p.Economy.TradeMinAffinity {
			return agents.AgentID(nb.View.ID), true
		}
	}
	return 0, false
}

// maybeGreet hails one nearby neighbor when the social cooldown allows
// and the agent is not mid-crisis.
func (c *ctx) maybeGreet() {
	switch c.a.Mind.State {
	case agents.StateIdle, agents.StateExploring, agents.StateGoResource,
		agents.StateReturning, agents.StateResting, agents.StateGathering:
	default:
		return
	}
	for _, nb := range c.w.Neighbors() {
		if c.a.Pos.Dist(nb.Pos) > c.p.Knowledge.GreetRadius {
			break // sorted by distance; nobody closer left
		}
		if nb.View.Sleeping || nb.View.Fighting {
			continue
		}
		last := c.a.Know.GreetedAt(nb.View.ID)
		if last != 0 && c.now-last < c.p.Knowledge.GreetCooldownSec {
			continue
		}
		c.w.Greet(agents.AgentID(nb.View.ID))
		return
	}
}

// --- inbox ---

func (c *ctx) handleMessages(msgs []agents.Message) {
	for _, m := range msgs {
		switch m.Kind {
		case agents.MsgGreeting:
			c.absorbGreeting(m)
		case agents.MsgCourtRequest:
			c.considerCourtRequest(m)
		case agents.MsgTradeOffer:
			c.considerTradeOffer(m)
		default:
			// Unknown kinds are dropped.
		}
	}
}

func (c *ctx) absorbGreeting(m agents.Message) {
	from := uint64(m.From)
	c.a.Know.BumpAffinity(from, m.Warmth)
	for _, z := range m.Zones {
		c.a.Know.ImportHearsay(z.Pos, z.Item, z.Confidence, c.now, c.p.Knowledge)
	}
}

// considerCourtRequest is the female side of courtship. She accepts by
// stopping to wait; there is no reply message. A woman already waiting
// keeps her first suitor.
func (c *ctx) considerCourtRequest(m agents.Message) {
	if c.a.Action != nil {
		return // committed; the suitor will time out
	}
	if c.a.Sex != agents.SexFemale || !c.a.CanMate(c.p.Repro) {
		return
	}
	if _, taken := c.a.Know.Mate(); taken {
		return
	}
	if !perception.AssessSelf(c.obs).GoodCondition {
		return // in no shape to start a family
	}
	switch c.a.Mind.State {
	case agents.StateIdle, agents.StateExploring, agents.StateGoResource,
		agents.StateReturning, agents.StateResting, agents.StateGathering:
	default:
		return
	}

	var view perception.MateView
	found := false
	for _, cand := range c.w.MateCandidates() {
		if cand.View.ID == uint64(m.From) {
			view, found = cand.View, true
			break
		}
	}
	if !found {
		return // suitor out of sight; nothing to judge
	}
	if op := perception.EvaluateMate(c.obs, view); !op.Acceptable {
		return
	}

	c.a.Mind.Reset(agents.StateWaitMate, c.now)
	c.a.Mind.TargetAgent = m.From
	c.a.Mind.CourtAskedAt = c.now
	c.w.Halt()
}

// considerTradeOffer is the receiving side of a barter. Offer is what
// the proposer hands over, Want is what leaves this agent's stock.
func (c *ctx) considerTradeOffer(m agents.Message) {
	if c.a.Action != nil {
		return
	}
	if !c.a.IsAdult(c.p.Repro) || c.now < c.a.Mind.TradeCooldownUntil {
		return
	}
	switch c.a.Mind.State {
	case agents.StateIdle, agents.StateExploring, agents.StateGoResource,
		agents.StateReturning, agents.StateResting, agents.StateGathering:
	default:
		return
	}
	if c.a.Know.Affinity(uint64(m.From)) < c.p.Economy.TradeMinAffinity {
		return
	}
	sv, ok := c.w.HomeStock()
	if !ok || sv.Counts[m.Want.Item] < m.Want.Qty {
		return
	}
	if !c.w.FairOffer(m.Offer.Item, m.Offer.Qty, m.Want.Item, m.Want.Qty) {
		return
	}

	home, _ := c.w.HomePos()
	c.a.Mind.Reset(agents.StateTradeGoHome, c.now)
	c.a.Mind.Trade = &agents.TradePlan{
		Partner: m.From,
		Offer:   m.Want, // what this side gives
		Want:    m.Offer,
	}
	c.a.Mind.TargetPos = home
	c.a.Mind.HasTargetPos = true
	c.w.MoveTo(home)
}

func sortedCounts(m map[registry.ItemID]int) []registry.ItemID {
	ids := make([]registry.ItemID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
