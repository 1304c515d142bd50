package engine

import (
	"sort"

	"github.com/talgya/hearthvale/internal/agents"
	"github.com/talgya/hearthvale/internal/ai"
	"github.com/talgya/hearthvale/internal/perception"
	"github.com/talgya/hearthvale/internal/registry"
	"github.com/talgya/hearthvale/internal/world"
)

// agentWorld binds the simulation to one thinking agent. It is the
// only road from the planner into true state: senses come back as
// perception views and mutations go through the engine ops, so the
// planner can never peek at what it should not know.
type agentWorld struct {
	s *Simulation
	a *agents.Agent
}

var _ ai.World = (*agentWorld)(nil)

func (v *agentWorld) Now() float64  { return v.s.Now }
func (v *agentWorld) IsNight() bool { return v.s.Clock.IsNight(v.s.Now) }

func (v *agentWorld) Observer() perception.Observer {
	return perception.Observer{
		Intelligence: v.a.Traits.Intelligence,
		Courage:      v.a.Traits.Courage,
		Charisma:     v.a.Traits.Charisma,
		Age:          v.a.Age,
		Female:       v.a.Sex == agents.SexFemale,
		Health:       v.a.Needs.Health,
		Hunger:       v.a.Needs.Hunger,
		Thirst:       v.a.Needs.Thirst,
		Energy:       v.a.Needs.Energy,
		Rng:          v.s.rngAI,
		P:            v.s.P.Perception,
	}
}

func (v *agentWorld) MoveTo(pos world.Vec2) {
	t := pos.ClampRect(v.s.World.Half)
	v.a.MoveTarget = &t
}

func (v *agentWorld) Halt() { v.a.MoveTarget = nil }

// visible lists everyone in sight, nearest first with ID tiebreak.
func (v *agentWorld) visible() []*agents.Agent {
	var out []*agents.Agent
	for _, id := range v.s.Order {
		b := v.s.Agents[id]
		if b == v.a {
			continue
		}
		if v.a.Pos.Dist(b.Pos) <= v.a.Traits.Vision {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		di, dj := v.a.Pos.Dist(out[i].Pos), v.a.Pos.Dist(out[j].Pos)
		if di != dj {
			return di < dj
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (v *agentWorld) VisibleResources() []ai.Sighting {
	ids := make([]world.EntityID, 0, 16)
	for id, r := range v.s.World.Resources {
		if r.Qty > 0 && v.a.Pos.Dist(r.Pos) <= v.a.Traits.Vision {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]ai.Sighting, 0, len(ids))
	for _, id := range ids {
		r := v.s.World.Resources[id]
		out = append(out, ai.Sighting{ID: r.ID, Item: r.Item, Pos: r.Pos})
	}
	return out
}

func (v *agentWorld) NearestFreeResource(item registry.ItemID) (ai.Sighting, bool) {
	r := v.s.World.NearestFreeResource(v.a.Pos, item, v.a.Traits.Vision)
	if r == nil {
		return ai.Sighting{}, false
	}
	return ai.Sighting{ID: r.ID, Item: r.Item, Pos: r.Pos}, true
}

func (v *agentWorld) Foes() []ai.Foe {
	var out []ai.Foe
	for _, b := range v.visible() {
		if !v.s.Factions.Hostile(v.a.FactionID, b.FactionID) {
			continue
		}
		out = append(out, ai.Foe{ID: b.ID, Pos: b.Pos, View: v.foeView(b)})
	}
	return out
}

func (v *agentWorld) foeView(b *agents.Agent) perception.FoeView {
	return perception.FoeView{
		Armed:      b.Armed(v.s.Reg),
		Armored:    b.Armored(v.s.Reg),
		HealthBand: perception.BandOf(b.Needs.Health),
		Size:       b.Size(v.s.P.Repro),
		Fighting:   b.Fighting(),
	}
}

func (v *agentWorld) Neighbors() []ai.Neighbor {
	var out []ai.Neighbor
	for _, b := range v.visible() {
		if v.s.Factions.Hostile(v.a.FactionID, b.FactionID) {
			continue
		}
		out = append(out, ai.Neighbor{ID: b.ID, Pos: b.Pos, View: v.npcView(b)})
	}
	return out
}

func (v *agentWorld) npcView(b *agents.Agent) perception.NPCView {
	return perception.NPCView{
		ID:         uint64(b.ID),
		HealthBand: perception.BandOf(b.Needs.Health),
		EnergyBand: perception.BandOf(b.Needs.Energy),
		Armed:      b.Armed(v.s.Reg),
		Armored:    b.Armored(v.s.Reg),
		Sleeping:   b.Asleep(),
		Fighting:   b.Fighting(),
		Adult:      b.IsAdult(v.s.P.Repro),
		Size:       b.Size(v.s.P.Repro),
	}
}

func (v *agentWorld) MateCandidates() []ai.Candidate {
	var out []ai.Candidate
	for _, b := range v.visible() {
		if b.Sex == v.a.Sex || !b.IsAdult(v.s.P.Repro) {
			continue
		}
		if v.s.Factions.Hostile(v.a.FactionID, b.FactionID) {
			continue
		}
		out = append(out, ai.Candidate{Pos: b.Pos, View: v.mateView(b)})
	}
	return out
}

func (v *agentWorld) mateView(b *agents.Agent) perception.MateView {
	_, taken := b.Know.Mate()
	return perception.MateView{
		ID:         uint64(b.ID),
		Female:     b.Sex == agents.SexFemale,
		Adult:      b.IsAdult(v.s.P.Repro),
		Age:        b.Age,
		HealthBand: perception.BandOf(b.Needs.Health),
		Single:     !taken,
		Kin:        v.a.Know.IsRelative(uint64(b.ID)),
		Affinity:   v.a.Know.Affinity(uint64(b.ID)),
	}
}

func (v *agentWorld) AgentPos(id agents.AgentID) (world.Vec2, bool) {
	b := v.s.Agents[id]
	if b == nil || v.a.Pos.Dist(b.Pos) > v.a.Traits.Vision {
		return world.Vec2{}, false
	}
	return b.Pos, true
}

func (v *agentWorld) AgentWaiting(id agents.AgentID) bool {
	b := v.s.Agents[id]
	if b == nil || v.a.Pos.Dist(b.Pos) > v.a.Traits.Vision {
		return false
	}
	return b.WaitingForMate()
}

func (v *agentWorld) AgentExchanging(id agents.AgentID) bool {
	b := v.s.Agents[id]
	if b == nil || v.a.Pos.Dist(b.Pos) > v.a.Traits.Vision {
		return false
	}
	return b.Mind.State == agents.StateTradeExchange
}

func (v *agentWorld) BeginTake(id world.EntityID) bool      { return v.s.beginTake(v.a, id) }
func (v *agentWorld) BeginSleep() bool                      { return v.s.beginSleep(v.a) }
func (v *agentWorld) BeginMate(partner agents.AgentID) bool { return v.s.beginMate(v.a, partner) }
func (v *agentWorld) BeginCraft(r registry.RecipeID) bool   { return v.s.beginCraft(v.a, r) }

func (v *agentWorld) HomePos() (world.Vec2, bool) {
	b := v.s.World.Building(v.a.HomeID)
	if b == nil {
		return world.Vec2{}, false
	}
	return b.Pos, true
}

func (v *agentWorld) HomeStock() (perception.StockView, bool) {
	b := v.s.World.Building(v.a.HomeID)
	if b == nil {
		return perception.StockView{}, false
	}
	stock := v.s.World.Stock(b.StockID)
	if stock == nil {
		return perception.StockView{}, false
	}
	return perception.PerceiveStock(v.Observer(), v.s.Reg, stock.Items, len(b.Residents)), true
}

func (v *agentWorld) Deposit(item registry.ItemID, qty int) bool {
	return v.s.deposit(v.a, item, qty)
}

func (v *agentWorld) Withdraw(item registry.ItemID, qty int) bool {
	return v.s.withdraw(v.a, item, qty)
}

func (v *agentWorld) Consume(item registry.ItemID) bool { return v.s.consume(v.a, item) }

func (v *agentWorld) FindHomePlot() (world.Vec2, bool) {
	return v.s.World.FindPlot(v.a.Pos, v.s.P.Building.PlotSearchRadius, v.s.P.Building.PlotRadius, v.s.rngAI)
}

func (v *agentWorld) BuildCabin() bool { return v.s.buildCabin(v.a) }

func (v *agentWorld) Greet(to agents.AgentID) bool     { return v.s.greet(v.a, to) }
func (v *agentWorld) Court(to agents.AgentID) bool     { return v.s.court(v.a, to) }
func (v *agentWorld) FormCouple(p agents.AgentID) bool { return v.s.formCouple(v.a, p) }

func (v *agentWorld) ProposeTrade(to agents.AgentID, offer, want agents.ItemStack) bool {
	return v.s.proposeTrade(v.a, to, offer, want)
}

func (v *agentWorld) ExecuteTrade() bool { return v.s.executeTrade(v.a) }

func (v *agentWorld) Attack(target agents.AgentID) bool { return v.s.attack(v.a, target) }

func (v *agentWorld) HungryChild() (agents.AgentID, world.Vec2, bool) {
	return v.s.hungryChild(v.a)
}

func (v *agentWorld) FeedChild(id agents.AgentID) bool { return v.s.feedChild(v.a, id) }

func (v *agentWorld) Price(item registry.ItemID) float64 { return v.s.Market.Price(item) }

func (v *agentWorld) FairOffer(give registry.ItemID, giveQty int, want registry.ItemID, wantQty int) bool {
	return v.s.Market.FairOffer(give, giveQty, want, wantQty, v.s.P.Economy)
}
