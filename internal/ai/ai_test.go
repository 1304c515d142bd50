package ai

import (
	"math/rand"
	"testing"

	"github.com/talgya/hearthvale/internal/agents"
	"github.com/talgya/hearthvale/internal/knowledge"
	"github.com/talgya/hearthvale/internal/perception"
	"github.com/talgya/hearthvale/internal/registry"
	"github.com/talgya/hearthvale/internal/tuning"
	"github.com/talgya/hearthvale/internal/world"
)

// fakeWorld scripts what the agent senses and records what it does.
type fakeWorld struct {
	now   float64
	night bool
	obs   perception.Observer

	moved  []world.Vec2
	halted bool

	sightings  map[registry.ItemID]Sighting
	foes       []Foe
	neighbors  []Neighbor
	mates      []Candidate
	agentPos   map[agents.AgentID]world.Vec2
	waiting    map[agents.AgentID]bool
	exchanging map[agents.AgentID]bool

	takeOK  bool
	took    []world.EntityID
	slept   bool
	mated   []agents.AgentID
	crafted []registry.RecipeID

	hasHome  bool
	homePos  world.Vec2
	hasStock bool
	stock    perception.StockView

	deposited  []agents.ItemStack
	withdrawOK bool
	withdrawn  []agents.ItemStack
	consumed   []registry.ItemID

	hasPlot bool
	plot    world.Vec2
	built   bool

	greeted   []agents.AgentID
	courted   []agents.AgentID
	coupled   []agents.AgentID
	proposed  []agents.AgentID
	attacked  []agents.AgentID
	fed       []agents.AgentID
	hungry    agents.AgentID
	hungryPos world.Vec2
	hasHungry bool
	executed  bool

	fairAll bool
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{
		sightings:  map[registry.ItemID]Sighting{},
		agentPos:   map[agents.AgentID]world.Vec2{},
		waiting:    map[agents.AgentID]bool{},
		exchanging: map[agents.AgentID]bool{},
		takeOK:     true,
		withdrawOK: true,
		fairAll:    true,
		obs: perception.Observer{
			Intelligence: 1, Courage: 0.5, Charisma: 0.5, Age: 25,
			Health: 100, Hunger: 80, Thirst: 80, Energy: 80,
			Rng: rand.New(rand.NewSource(1)),
			P:   tuning.Default().Perception,
		},
	}
}

func (f *fakeWorld) Now() float64                  { return f.now }
func (f *fakeWorld) IsNight() bool                 { return f.night }
func (f *fakeWorld) Observer() perception.Observer { return f.obs }
func (f *fakeWorld) MoveTo(pos world.Vec2)         { f.moved = append(f.moved, pos) }
func (f *fakeWorld) Halt()                         { f.halted = true }
func (f *fakeWorld) VisibleResources() []Sighting  { return nil }
func (f *fakeWorld) Foes() []Foe                   { return f.foes }
func (f *fakeWorld) Neighbors() []Neighbor         { return f.neighbors }
func (f *fakeWorld) MateCandidates() []Candidate   { return f.mates }

func (f *fakeWorld) NearestFreeResource(item registry.ItemID) (Sighting, bool) {
	s, ok := f.sightings[item]
	return s, ok
}

func (f *fakeWorld) AgentPos(id agents.AgentID) (world.Vec2, bool) {
	p, ok := f.agentPos[id]
	return p, ok
}
func (f *fakeWorld) AgentWaiting(id agents.AgentID) bool    { return f.waiting[id] }
func (f *fakeWorld) AgentExchanging(id agents.AgentID) bool { return f.exchanging[id] }

func (f *fakeWorld) BeginTake(id world.EntityID) bool {
	if f.takeOK {
		f.took = append(f.took, id)
	}
	return f.takeOK
}
func (f *fakeWorld) BeginSleep() bool { f.slept = true; return true }
func (f *fakeWorld) BeginMate(partner agents.AgentID) bool {
	f.mated = append(f.mated, partner)
	return true
}
func (f *fakeWorld) BeginCraft(r registry.RecipeID) bool {
	f.crafted = append(f.crafted, r)
	return true
}

func (f *fakeWorld) HomePos() (world.Vec2, bool) { return f.homePos, f.hasHome }
func (f *fakeWorld) HomeStock() (perception.StockView, bool) {
	return f.stock, f.hasStock
}
func (f *fakeWorld) Deposit(item registry.ItemID, qty int) bool {
	f.deposited = append(f.deposited, agents.ItemStack{Item: item, Qty: qty})
	return true
}
func (f *fakeWorld) Withdraw(item registry.ItemID, qty int) bool {
	if f.withdrawOK {
		f.withdrawn = append(f.withdrawn, agents.ItemStack{Item: item, Qty: qty})
	}
	return f.withdrawOK
}
func (f *fakeWorld) Consume(item registry.ItemID) bool {
	f.consumed = append(f.consumed, item)
	return true
}
func (f *fakeWorld) FindHomePlot() (world.Vec2, bool) { return f.plot, f.hasPlot }
func (f *fakeWorld) BuildCabin() bool                 { f.built = true; return true }

func (f *fakeWorld) Greet(to agents.AgentID) bool { f.greeted = append(f.greeted, to); return true }
func (f *fakeWorld) Court(to agents.AgentID) bool { f.courted = append(f.courted, to); return true }
func (f *fakeWorld) FormCouple(p agents.AgentID) bool {
	f.coupled = append(f.coupled, p)
	return true
}
func (f *fakeWorld) ProposeTrade(to agents.AgentID, offer, want agents.ItemStack) bool {
	f.proposed = append(f.proposed, to)
	return true
}
func (f *fakeWorld) ExecuteTrade() bool { f.executed = true; return true }
func (f *fakeWorld) Attack(t agents.AgentID) bool {
	f.attacked = append(f.attacked, t)
	return true
}
func (f *fakeWorld) HungryChild() (agents.AgentID, world.Vec2, bool) {
	return f.hungry, f.hungryPos, f.hasHungry
}
func (f *fakeWorld) FeedChild(id agents.AgentID) bool { f.fed = append(f.fed, id); return true }

func (f *fakeWorld) Price(item registry.ItemID) float64 { return 1 }
func (f *fakeWorld) FairOffer(g registry.ItemID, gq int, w registry.ItemID, wq int) bool {
	return f.fairAll
}

func testVillager() *agents.Agent {
	return &agents.Agent{
		ID: 1, Age: 25, Job: "forager",
		Traits: agents.Traits{
			Speed: 25, Vision: 120, Exploration: 250, Carry: 20,
			GatherSpeed: 1, Stamina: 1, HungerRate: 1, ThirstRate: 1,
			Charisma: 0.5, Aggression: 0.5, Courage: 0.5, Intelligence: 1,
		},
		Needs: agents.DefaultNeeds(),
	}
}

func think(a *agents.Agent, f *fakeWorld) {
	p := tuning.Default()
	Think(a, f, registry.Builtin(), &p, rand.New(rand.NewSource(7)))
}

func TestThirstBeatsGathering(t *testing.T) {
	a := testVillager()
	a.Needs.Thirst = 20
	f := newFakeWorld()
	// Both water and the job's berries are remembered nearby.
	a.Know.RecordFirsthand(world.Vec2{X: 50}, "water", 0, tuning.Default().Knowledge)
	a.Know.RecordFirsthand(world.Vec2{X: 30}, "berries", 0, tuning.Default().Knowledge)

	think(a, f)

	if a.Mind.State != agents.StateGoResource {
		t.Fatalf("state = %v, want going_to_resource", a.Mind.State)
	}
	if a.Mind.GatherItem != "water" {
		t.Fatalf("gathering %s, want water", a.Mind.GatherItem)
	}
}

func TestHungerHeadsHomeOverGathering(t *testing.T) {
	a := testVillager()
	a.Needs.Hunger = 20
	f := newFakeWorld()
	f.hasHome = true
	f.homePos = world.Vec2{X: 100}
	f.hasStock = true
	f.stock = perception.StockView{
		Counts: map[registry.ItemID]int{"bread": 8},
		Label:  perception.StockAdequate,
	}
	// The job zone is closer than home, but survival outranks it.
	a.Know.RecordFirsthand(world.Vec2{X: 30}, "berries", 0, tuning.Default().Knowledge)

	think(a, f)

	if a.Mind.State != agents.StateGoEat {
		t.Fatalf("state = %v, want going_to_eat", a.Mind.State)
	}
	if len(f.moved) == 0 || f.moved[len(f.moved)-1] != f.homePos {
		t.Fatalf("moved = %v, want home %v", f.moved, f.homePos)
	}
}

func TestCarriedDrinkConsumedOnTheSpot(t *testing.T) {
	a := testVillager()
	a.Needs.Thirst = 20
	a.AddItem("water", 2)
	f := newFakeWorld()

	think(a, f)

	if len(f.consumed) != 1 || f.consumed[0] != "water" {
		t.Fatalf("consumed = %v, want water", f.consumed)
	}
	if a.Mind.State != agents.StateIdle {
		t.Fatalf("state = %v after drinking from hand", a.Mind.State)
	}
}

func TestFoePreemptsSurvival(t *testing.T) {
	a := testVillager()
	a.Needs.Thirst = 20 // thirsty, but a foe is in sight
	a.Traits.Courage = 1
	f := newFakeWorld()
	f.obs.Courage = 1
	f.foes = []Foe{{
		ID:  9,
		Pos: world.Vec2{X: 40},
		View: perception.FoeView{
			HealthBand: perception.BandGood, Size: 1,
		},
	}}

	think(a, f)

	if a.Mind.State != agents.StateFighting {
		t.Fatalf("state = %v, want fighting", a.Mind.State)
	}
	if a.Mind.TargetAgent != 9 {
		t.Fatalf("target = %d, want 9", a.Mind.TargetAgent)
	}
}

func TestWoundedCowardFlees(t *testing.T) {
	a := testVillager()
	a.Traits.Courage = 0
	a.Needs.Health = 20
	f := newFakeWorld()
	f.obs.Courage = 0
	f.obs.Health = 20
	f.foes = []Foe{{
		ID:  9,
		Pos: world.Vec2{X: 5},
		View: perception.FoeView{
			Armed: true, HealthBand: perception.BandGood, Size: 1,
		},
	}}

	think(a, f)

	if a.Mind.State != agents.StateFleeing {
		t.Fatalf("state = %v, want fleeing", a.Mind.State)
	}
	if len(f.moved) == 0 {
		t.Fatal("fleeing agent did not move")
	}
	// Flight runs away from the foe, so the target X must be negative.
	if f.moved[len(f.moved)-1].X >= a.Pos.X {
		t.Fatalf("fled toward the foe: %v", f.moved)
	}
}

func TestFullBagGoesHome(t *testing.T) {
	a := testVillager()
	a.Traits.Carry = 4
	a.AddItem("berries", 4)
	f := newFakeWorld()
	f.hasHome = true
	f.homePos = world.Vec2{X: 100}

	think(a, f)

	if a.Mind.State != agents.StateReturning {
		t.Fatalf("state = %v, want returning_home", a.Mind.State)
	}
}

func TestHomelessWithWoodBuilds(t *testing.T) {
	p := tuning.Default()
	a := testVillager()
	a.AddItem(registry.Wood, p.Building.CabinWoodCost)
	f := newFakeWorld()
	f.hasPlot = true
	f.plot = world.Vec2{X: 60, Y: -20}

	think(a, f)

	if a.Mind.State != agents.StateBuildHome {
		t.Fatalf("state = %v, want building_home", a.Mind.State)
	}
	if a.Mind.TargetPos != f.plot {
		t.Fatalf("target = %v, want plot %v", a.Mind.TargetPos, f.plot)
	}
}

func TestHomelessWithoutWoodGathersWood(t *testing.T) {
	a := testVillager()
	a.Job = "" // no primary to mask the wood need
	f := newFakeWorld()
	f.sightings[registry.Wood] = Sighting{ID: 5, Item: registry.Wood, Pos: world.Vec2{X: 30}}

	think(a, f)

	if a.Mind.State != agents.StateGoResource || a.Mind.GatherItem != registry.Wood {
		t.Fatalf("state = %v gathering %s, want wood run", a.Mind.State, a.Mind.GatherItem)
	}
}

func TestPrimaryGatherBeatsExplore(t *testing.T) {
	a := testVillager() // forager gathers berries
	f := newFakeWorld()
	f.hasHome = true // wood need quiet: homeless check off
	f.hasStock = true
	f.stock = perception.StockView{
		Counts: map[registry.ItemID]int{registry.Wood: 50, "berries": 50},
		Label:  perception.StockAbundant,
	}
	a.Know.RecordFirsthand(world.Vec2{X: 80}, "berries", 0, tuning.Default().Knowledge)

	think(a, f)

	if a.Mind.State != agents.StateGoResource || a.Mind.GatherItem != "berries" {
		t.Fatalf("state = %v item %s, want berry run", a.Mind.State, a.Mind.GatherItem)
	}
}

func TestIdleWithNothingKnownExplores(t *testing.T) {
	a := testVillager()
	a.Job = ""
	f := newFakeWorld()
	f.hasHome = true
	f.hasStock = true
	f.stock = perception.StockView{
		Counts: map[registry.ItemID]int{registry.Wood: 50},
		Label:  perception.StockAbundant,
	}

	think(a, f)

	if a.Mind.State != agents.StateExploring {
		t.Fatalf("state = %v, want exploring", a.Mind.State)
	}
	if !a.Mind.HasTargetPos {
		t.Fatal("exploring without a target")
	}
}

func TestGreetingImportsHearsay(t *testing.T) {
	a := testVillager()
	f := newFakeWorld()
	a.Deliver(agents.Message{
		From:   7,
		Kind:   agents.MsgGreeting,
		Warmth: 0.05,
		Zones: []agents.SharedZone{
			{Pos: world.Vec2{X: 200}, Item: "berries", Confidence: 0.6},
		},
	})
	a.FlipMessages()

	think(a, f)

	if got := a.Know.Affinity(7); got != 0.05 {
		t.Fatalf("affinity = %v, want 0.05", got)
	}
	if len(a.Know.Zones) != 1 {
		t.Fatalf("zones = %d, want 1", len(a.Know.Zones))
	}
	z := a.Know.Zones[0]
	if z.Firsthand {
		t.Fatal("hearsay arrived as firsthand")
	}
	if z.Confidence != 0.6 {
		t.Fatalf("confidence = %v, want 0.6", z.Confidence)
	}
	if len(a.Inbox) != 0 {
		t.Fatal("inbox not drained")
	}
}

func TestCourtRequestAccepted(t *testing.T) {
	a := testVillager()
	a.Sex = agents.SexFemale
	a.Know.BumpAffinity(7, 0.4)
	f := newFakeWorld()
	f.obs.Female = true
	f.mates = []Candidate{{
		Pos: world.Vec2{X: 10},
		View: perception.MateView{
			ID: 7, Adult: true, Age: 27,
			HealthBand: perception.BandGood, Single: true, Affinity: 0.4,
		},
	}}
	a.Deliver(agents.Message{From: 7, Kind: agents.MsgCourtRequest})
	a.FlipMessages()

	think(a, f)

	if a.Mind.State != agents.StateWaitMate {
		t.Fatalf("state = %v, want waiting_for_mate", a.Mind.State)
	}
	if a.Mind.TargetAgent != 7 {
		t.Fatalf("waiting for %d, want 7", a.Mind.TargetAgent)
	}
	if !f.halted {
		t.Fatal("accepting female kept walking")
	}
}

func TestCourtRequestIgnoredWhenTaken(t *testing.T) {
	a := testVillager()
	a.Sex = agents.SexFemale
	a.Know.AddRelation(3, knowledge.RelMate)
	f := newFakeWorld()
	f.obs.Female = true
	f.mates = []Candidate{{
		Pos: world.Vec2{X: 10},
		View: perception.MateView{
			ID: 7, Adult: true, Age: 27,
			HealthBand: perception.BandGood, Single: true, Affinity: 0.4,
		},
	}}
	a.Deliver(agents.Message{From: 7, Kind: agents.MsgCourtRequest})
	a.FlipMessages()

	think(a, f)

	if a.Mind.State == agents.StateWaitMate {
		t.Fatal("mated female accepted a new suitor")
	}
}

func TestCourtRequestIgnoredWhenFrail(t *testing.T) {
	a := testVillager()
	a.Sex = agents.SexFemale
	a.Needs.Health = 30
	f := newFakeWorld()
	f.obs.Female = true
	f.obs.Health = 30
	f.mates = []Candidate{{
		Pos: world.Vec2{X: 10},
		View: perception.MateView{
			ID: 7, Adult: true, Age: 27,
			HealthBand: perception.BandGood, Single: true, Affinity: 0.4,
		},
	}}
	a.Deliver(agents.Message{From: 7, Kind: agents.MsgCourtRequest})
	a.FlipMessages()

	think(a, f)

	if a.Mind.State == agents.StateWaitMate {
		t.Fatal("frail female accepted a suitor")
	}
}

func TestDesireDrivesCourtship(t *testing.T) {
	a := testVillager()
	a.Sex = agents.SexMale
	a.Repro.Desire = 90
	a.Know.BumpAffinity(4, 0.4)
	f := newFakeWorld()
	f.hasHome = true
	f.mates = []Candidate{{
		Pos: world.Vec2{X: 12},
		View: perception.MateView{
			ID: 4, Female: true, Adult: true, Age: 23,
			HealthBand: perception.BandGood, Single: true, Affinity: 0.4,
		},
	}}

	think(a, f)

	if a.Mind.State != agents.StateCourting {
		t.Fatalf("state = %v, want courting", a.Mind.State)
	}
	if len(f.courted) != 1 || f.courted[0] != 4 {
		t.Fatalf("courted %v, want [4]", f.courted)
	}
}

func TestLowDesireNoCourtship(t *testing.T) {
	a := testVillager()
	a.Sex = agents.SexMale
	a.Repro.Desire = 10
	f := newFakeWorld()
	f.hasHome = true
	f.mates = []Candidate{{
		Pos: world.Vec2{X: 12},
		View: perception.MateView{
			ID: 4, Female: true, Adult: true, Age: 23,
			HealthBand: perception.BandGood, Single: true, Affinity: 0.4,
		},
	}}

	think(a, f)

	if len(f.courted) != 0 {
		t.Fatal("courted despite low desire")
	}
}

func TestTradeOfferAccepted(t *testing.T) {
	a := testVillager()
	a.Know.BumpAffinity(6, 0.5)
	f := newFakeWorld()
	f.hasHome = true
	f.homePos = world.Vec2{X: 5}
	f.hasStock = true
	f.stock = perception.StockView{
		Counts: map[registry.ItemID]int{"bread": 4},
		Label:  perception.StockAdequate,
	}
	a.Deliver(agents.Message{
		From:  6,
		Kind:  agents.MsgTradeOffer,
		Offer: agents.ItemStack{Item: registry.Wood, Qty: 5},
		Want:  agents.ItemStack{Item: "bread", Qty: 2},
	})
	a.FlipMessages()

	think(a, f)

	if a.Mind.State != agents.StateTradeGoHome {
		t.Fatalf("state = %v, want trade_going_home", a.Mind.State)
	}
	plan := a.Mind.Trade
	if plan == nil {
		t.Fatal("no trade plan")
	}
	if plan.Partner != 6 || plan.Offer.Item != "bread" || plan.Want.Item != registry.Wood {
		t.Fatalf("plan = %+v, want give bread take wood from 6", plan)
	}
}

func TestChildrenNeverPlan(t *testing.T) {
	a := testVillager()
	a.Age = 5
	a.Needs.Thirst = 10
	f := newFakeWorld()
	a.Deliver(agents.Message{From: 2, Kind: agents.MsgGreeting, Warmth: 0.03})
	a.Deliver(agents.Message{From: 3, Kind: agents.MsgCourtRequest})
	a.FlipMessages()

	think(a, f)

	if a.Mind.State != agents.StateIdle {
		t.Fatalf("child planned: state = %v", a.Mind.State)
	}
	if len(f.moved) != 0 || f.slept {
		t.Fatal("child acted on the world")
	}
	if a.Know.Affinity(2) != 0.03 {
		t.Fatal("child ignored the greeting")
	}
	if a.Mind.State == agents.StateWaitMate {
		t.Fatal("child considered courtship")
	}
}

func TestBusyAgentOnlySchedules(t *testing.T) {
	a := testVillager()
	a.Needs.Thirst = 10
	a.Action = &agents.Action{Kind: agents.ActTake, Total: 5, Remaining: 3}
	a.Mind.State = agents.StateGathering
	f := newFakeWorld()

	think(a, f)

	if a.Mind.State != agents.StateGathering {
		t.Fatalf("committed agent switched to %v", a.Mind.State)
	}
	if len(f.consumed) != 0 {
		t.Fatal("committed agent acted")
	}
	if a.Mind.NextThink <= 0 {
		t.Fatal("next think not scheduled")
	}
}

func TestGatherHandlerKeepsStripping(t *testing.T) {
	a := testVillager()
	a.Mind.State = agents.StateGathering
	a.Mind.GatherItem = "berries"
	f := newFakeWorld()
	f.sightings["berries"] = Sighting{ID: 12, Item: "berries", Pos: world.Vec2{X: 1}}

	think(a, f)

	if len(f.took) != 1 || f.took[0] != 12 {
		t.Fatalf("took %v, want [12]", f.took)
	}
}

func TestGoResourceDeadEndDegradesMemory(t *testing.T) {
	p := tuning.Default()
	a := testVillager()
	a.Know.RecordFirsthand(world.Vec2{}, "berries", 0, p.Knowledge)
	before := a.Know.Zones[0].Confidence

	a.Mind.State = agents.StateGoResource
	a.Mind.GatherItem = "berries"
	a.Mind.TargetPos = world.Vec2{}
	a.Mind.HasTargetPos = true
	f := newFakeWorld() // no sightings: the patch is bare

	think(a, f)

	if a.Mind.State != agents.StateIdle {
		t.Fatalf("state = %v, want idle after dead end", a.Mind.State)
	}
	if len(a.Know.Zones) == 1 && a.Know.Zones[0].Confidence >= before {
		t.Fatalf("confidence %v did not drop from %v", a.Know.Zones[0].Confidence, before)
	}
}

func TestGreetRespectsCooldown(t *testing.T) {
	a := testVillager()
	f := newFakeWorld()
	f.now = 1000
	f.hasHome = true
	f.hasStock = true
	f.stock = perception.StockView{Counts: map[registry.ItemID]int{registry.Wood: 50}, Label: perception.StockAbundant}
	f.neighbors = []Neighbor{{
		ID:   8,
		Pos:  world.Vec2{X: 5},
		View: perception.NPCView{ID: 8, Adult: true, HealthBand: perception.BandGood, EnergyBand: perception.BandGood, Size: 1},
	}}

	think(a, f)
	if len(f.greeted) != 1 {
		t.Fatalf("greeted %v, want one hello", f.greeted)
	}

	// Pretend the engine recorded the greeting, then think again soon.
	a.Know.SetGreeted(8, f.now)
	f.now += 5
	think(a, f)
	if len(f.greeted) != 1 {
		t.Fatal("greeted again inside the cooldown")
	}
}
