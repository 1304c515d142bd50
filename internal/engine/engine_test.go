package engine

import (
	"fmt"
	"testing"

	"github.com/talgya/hearthvale/internal/agents"
	"github.com/talgya/hearthvale/internal/knowledge"
	"github.com/talgya/hearthvale/internal/registry"
	"github.com/talgya/hearthvale/internal/tuning"
	"github.com/talgya/hearthvale/internal/weather"
	"github.com/talgya/hearthvale/internal/world"
)

// testSim builds a simulation on an empty map so each test places
// exactly what it needs.
func testSim(t *testing.T) *Simulation {
	t.Helper()
	p := tuning.Default()
	p.World.FertileZones = 0
	s := NewSimulation(1, &p, registry.Builtin())
	s.Spawner.SetNextID(100) // hand-built agents use low IDs
	return s
}

// parked returns an adult whose planner never fires, so tests drive
// the engine directly.
func parked(id agents.AgentID, pos world.Vec2) *agents.Agent {
	a := &agents.Agent{
		ID:   id,
		Name: fmt.Sprintf("villager-%d", id),
		Sex:  agents.SexMale,
		Age:  25,
		Pos:  pos,
		Traits: agents.Traits{
			Speed: 30, Vision: 120, Exploration: 250, Carry: 20,
			GatherSpeed: 1, Stamina: 1, HungerRate: 1, ThirstRate: 1,
			Charisma: 0.5, Aggression: 0.5, Courage: 0.5, Intelligence: 1,
		},
		Needs: agents.DefaultNeeds(),
	}
	a.Mind.NextThink = 1e18
	return a
}

func TestAdvanceZeroIsNoop(t *testing.T) {
	s := testSim(t)
	s.Advance(0)
	s.Advance(-1)
	if s.Tick != 0 || s.Now != 0 {
		t.Fatalf("zero dt advanced the world: tick=%d now=%f", s.Tick, s.Now)
	}
}

func TestMovementArrivesWithoutOvershoot(t *testing.T) {
	s := testSim(t)
	a := parked(1, world.Vec2{})
	target := world.Vec2{X: 5}
	a.MoveTarget = &target
	s.AddAgent(a)

	for i := 0; i < 10; i++ {
		s.Advance(0.1)
		if a.Pos.X > 5 {
			t.Fatalf("overshot the target: x=%f", a.Pos.X)
		}
		if a.MoveTarget == nil {
			break
		}
	}
	if a.Pos != target {
		t.Fatalf("never arrived: pos=%+v", a.Pos)
	}
	if a.MoveTarget != nil {
		t.Fatal("arrival should clear the walk target")
	}
}

func TestTakeHarvestsAndRemovesEmptyNode(t *testing.T) {
	s := testSim(t)
	a := parked(1, world.Vec2{})
	s.AddAgent(a)
	r := s.World.AddResource("berries", world.Vec2{X: 1}, 3, 0)

	if !s.beginTake(a, r.ID) {
		t.Fatal("beginTake refused a free node in reach")
	}
	if r.LockedBy != uint64(a.ID) {
		t.Fatalf("node not locked by taker: %d", r.LockedBy)
	}
	if a.Action == nil || a.Action.Kind != agents.ActTake {
		t.Fatal("no take action committed")
	}

	for i := 0; i < 40 && a.Action != nil; i++ {
		s.Advance(0.1)
	}
	if got := a.CountItem("berries"); got != 3 {
		t.Fatalf("harvested %d berries, want 3", got)
	}
	if s.World.Resource(r.ID) != nil {
		t.Fatal("stripped node should be removed")
	}
}

func TestTakeLeavesExcessUnlocked(t *testing.T) {
	s := testSim(t)
	a := parked(1, world.Vec2{})
	a.Traits.Carry = 2
	s.AddAgent(a)
	r := s.World.AddResource("berries", world.Vec2{X: 1}, 5, 0)

	if !s.beginTake(a, r.ID) {
		t.Fatal("beginTake refused")
	}
	for i := 0; i < 40 && a.Action != nil; i++ {
		s.Advance(0.1)
	}
	if got := a.CountItem("berries"); got != 2 {
		t.Fatalf("harvested %d, want carry-limited 2", got)
	}
	if r.Qty != 3 {
		t.Fatalf("node kept %d, want 3", r.Qty)
	}
	if r.LockedBy != 0 {
		t.Fatal("leftover node should be unlocked")
	}
}

func TestLockedNodeRefusesSecondTaker(t *testing.T) {
	s := testSim(t)
	a := parked(1, world.Vec2{})
	b := parked(2, world.Vec2{X: 2})
	s.AddAgent(a)
	s.AddAgent(b)
	r := s.World.AddResource("wood", world.Vec2{X: 1}, 4, 0)

	if !s.beginTake(a, r.ID) {
		t.Fatal("first take refused")
	}
	if s.beginTake(b, r.ID) {
		t.Fatal("locked node accepted a second taker")
	}
}

func TestSleepConsolidatesOnlyAfterRealRest(t *testing.T) {
	s := testSim(t)
	a := parked(1, world.Vec2{})
	// Two berry patches far enough apart to stay separate zones, close
	// enough for the sleep pass to merge them.
	a.Know.RecordFirsthand(world.Vec2{X: 100}, "berries", 0, s.P.Knowledge)
	a.Know.RecordFirsthand(world.Vec2{X: 140}, "berries", 0, s.P.Knowledge)
	if len(a.Know.Zones) != 2 {
		t.Fatalf("setup: want 2 zones, got %d", len(a.Know.Zones))
	}
	s.AddAgent(a)

	// Catnap: nearly full energy, nothing to consolidate.
	a.Needs.Energy = 95
	if !s.beginSleep(a) {
		t.Fatal("beginSleep refused")
	}
	for i := 0; i < 100 && a.Action != nil; i++ {
		s.Advance(0.5)
	}
	if len(a.Know.Zones) != 2 {
		t.Fatalf("catnap consolidated memory: %d zones", len(a.Know.Zones))
	}

	// Deep sleep: big restore, zones merge.
	a.Needs.Energy = 10
	if !s.beginSleep(a) {
		t.Fatal("second beginSleep refused")
	}
	for i := 0; i < 400 && a.Action != nil; i++ {
		s.Advance(0.5)
	}
	if len(a.Know.Zones) != 1 {
		t.Fatalf("deep sleep should merge the patches, got %d zones", len(a.Know.Zones))
	}
}

func TestMatingConceivesAndDelivers(t *testing.T) {
	p := tuning.Default()
	p.World.FertileZones = 0
	p.Repro.ConceptionChance = 1
	s := NewSimulation(1, &p, registry.Builtin())
	s.Spawner.SetNextID(100)

	b := s.World.AddBuilding(world.KindCabin, world.Vec2{})
	mother := parked(1, world.Vec2{})
	mother.Sex = agents.SexFemale
	mother.Repro.CycleDay = 3 // inside the fertile window
	father := parked(2, world.Vec2{X: 1})
	for _, a := range []*agents.Agent{mother, father} {
		a.HomeID = b.ID
		b.AddResident(uint64(a.ID))
		s.AddAgent(a)
	}

	if !s.beginMate(father, mother.ID) {
		t.Fatal("beginMate refused a co-homed adult couple")
	}
	if mother.Action == nil || father.Action == nil {
		t.Fatal("both partners should be committed")
	}
	for i := 0; i < 250 && mother.Action != nil; i++ {
		s.Advance(0.1)
	}
	if mother.Repro.Gestation == nil {
		t.Fatal("guaranteed conception did not take")
	}
	if mother.Repro.Gestation.Father != father.ID {
		t.Fatalf("father recorded as %d", mother.Repro.Gestation.Father)
	}
	// Desire accrues again the same tick, so only a big residue means
	// the reset was skipped.
	if father.Repro.Desire > 1 {
		t.Fatalf("desire not reset: %f", father.Repro.Desire)
	}

	// Fast-forward the pregnancy.
	mother.Repro.Gestation.Remaining = 0.05
	energyBefore := mother.Needs.Energy
	s.Advance(0.1)

	if len(s.Agents) != 3 {
		t.Fatalf("want 3 villagers after the birth, got %d", len(s.Agents))
	}
	var baby *agents.Agent
	for _, a := range s.Agents {
		if a.Age < 1 {
			baby = a
		}
	}
	if baby == nil {
		t.Fatal("no newborn found")
	}
	if !baby.Know.HasRelation(uint64(mother.ID), knowledge.RelMother) {
		t.Error("baby does not know its mother")
	}
	if !baby.Know.HasRelation(uint64(father.ID), knowledge.RelFather) {
		t.Error("baby does not know its father")
	}
	if !mother.Know.HasRelation(uint64(baby.ID), knowledge.RelChild) {
		t.Error("mother does not know the child")
	}
	if baby.HomeID != b.ID || !b.HasResident(uint64(baby.ID)) {
		t.Error("baby not housed with the mother")
	}
	if mother.Repro.Gestation != nil {
		t.Error("gestation should clear at birth")
	}
	if mother.Repro.Cooldown < s.P.Repro.PostpartumSec-1 {
		t.Errorf("postpartum cooldown not set: %f", mother.Repro.Cooldown)
	}
	if mother.Needs.Energy >= energyBefore {
		t.Error("birth should cost energy")
	}
	if s.Stats.Births != 1 {
		t.Errorf("births stat = %d", s.Stats.Births)
	}
}

func TestDeathCleansUpEverything(t *testing.T) {
	s := testSim(t)
	f := s.Factions.Create("Hearth Kin", 0)

	vic := parked(1, world.Vec2{})
	vic.Needs.Health = 0.01
	vic.Needs.Hunger = 0
	vic.Needs.HungerReserve = 0
	vic.Needs.StarvingFor = 30
	vic.FactionID = f.ID
	f.AddMember(1)
	b := s.World.AddBuilding(world.KindCabin, world.Vec2{})
	vic.HomeID = b.ID
	b.AddResident(1)

	surv := parked(2, world.Vec2{X: 5})
	surv.Know.BumpAffinity(1, 0.5)

	s.AddAgent(vic)
	s.AddAgent(surv)

	r := s.World.AddResource("wood", world.Vec2{X: 2}, 5, 0)
	r.LockedBy = 1

	s.Advance(0.1)

	if s.Agents[1] != nil {
		t.Fatal("victim still alive")
	}
	if len(s.Order) != 1 || s.Order[0] != 2 {
		t.Fatalf("order not rebuilt: %v", s.Order)
	}
	if len(s.World.Corpses) != 1 {
		t.Errorf("want a corpse, got %d", len(s.World.Corpses))
	}
	if b.HasResident(1) {
		t.Error("home still lists the dead")
	}
	if f.HasMember(1) {
		t.Error("faction still lists the dead")
	}
	if r.LockedBy != 0 {
		t.Error("resource lock not released")
	}
	if surv.Know.Affinity(1) != 0 {
		t.Error("survivor should forget the dead")
	}
	if s.Stats.Deaths != 1 {
		t.Errorf("deaths stat = %d", s.Stats.Deaths)
	}
	found := false
	for _, e := range s.Events {
		if e.Category == "death" {
			found = true
		}
	}
	if !found {
		t.Error("no death event logged")
	}
}

func TestDyingPartnerReleasesSharedAction(t *testing.T) {
	s := testSim(t)
	b := s.World.AddBuilding(world.KindCabin, world.Vec2{})
	her := parked(1, world.Vec2{})
	her.Sex = agents.SexFemale
	him := parked(2, world.Vec2{X: 1})
	for _, a := range []*agents.Agent{her, him} {
		a.HomeID = b.ID
		b.AddResident(uint64(a.ID))
		s.AddAgent(a)
	}
	if !s.beginMate(him, her.ID) {
		t.Fatal("beginMate refused")
	}

	s.bury(him, "died of wounds")

	if her.Action != nil {
		t.Fatal("widow still locked in the shared action")
	}
	if her.Mind.State != agents.StateIdle {
		t.Fatalf("widow state = %v, want idle", her.Mind.State)
	}
}

func TestChildEatsFromHomeStock(t *testing.T) {
	s := testSim(t)
	b := s.World.AddBuilding(world.KindCabin, world.Vec2{})
	stock := s.World.Stock(b.StockID)
	stock.Add("bread", 2)

	kid := parked(1, world.Vec2{})
	kid.Age = 5
	kid.Needs.Hunger = 30
	kid.HomeID = b.ID
	b.AddResident(1)
	s.AddAgent(kid)

	for i := 0; i < 60; i++ {
		s.Advance(0.1)
	}
	if kid.Needs.Hunger <= 30 {
		t.Fatalf("child not fed: hunger=%f", kid.Needs.Hunger)
	}
	if got := stock.Count("bread"); got != 1 {
		t.Fatalf("stock bread = %d, want 1", got)
	}
}

func TestGreetingArrivesOnNextThink(t *testing.T) {
	s := testSim(t)
	g := parked(1, world.Vec2{})
	g.Traits.Charisma = 1
	g.Mind.NextThink = 0
	g.Know.RecordFirsthand(world.Vec2{X: 200}, "berries", 0, s.P.Knowledge)
	h := parked(2, world.Vec2{X: 5})
	s.AddAgent(g)
	s.AddAgent(h)

	s.Advance(0.1)

	if len(h.Pending) != 1 {
		t.Fatalf("want 1 pending greeting, got %d", len(h.Pending))
	}
	if len(h.Inbox) != 0 {
		t.Fatal("greeting leaked into the inbox within the same tick")
	}
	msg := h.Pending[0]
	if msg.Kind != agents.MsgGreeting || msg.From != 1 {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if msg.Warmth != s.P.Knowledge.GreetAffinity {
		t.Errorf("warmth = %f, want charisma-scaled %f", msg.Warmth, s.P.Knowledge.GreetAffinity)
	}
	if len(msg.Zones) != 1 || msg.Zones[0].Confidence != s.P.Knowledge.ShareCap {
		t.Fatalf("shared zones wrong: %+v", msg.Zones)
	}

	// The listener picks it up on their own next think.
	h.Mind.NextThink = s.Now
	s.Advance(0.1)
	if h.Know.Affinity(1) <= 0 {
		t.Error("warmth not absorbed")
	}
	if len(h.Know.Zones) != 1 {
		t.Errorf("hearsay zone not imported: %d zones", len(h.Know.Zones))
	}
	if h.Know.Zones[0].Firsthand {
		t.Error("hearsay must not count as firsthand")
	}
}

func TestTradeSettlesBothSides(t *testing.T) {
	s := testSim(t)
	home := s.World.AddBuilding(world.KindCabin, world.Vec2{})

	partner := parked(2, world.Vec2{})
	partner.HomeID = home.ID
	home.AddResident(2)
	partner.AddItem("bread", 2)
	partner.Mind.State = agents.StateTradeExchange
	partner.Mind.Trade = &agents.TradePlan{
		Partner: 1,
		Offer:   agents.ItemStack{Item: "bread", Qty: 2},
		Want:    agents.ItemStack{Item: "wood", Qty: 5},
	}

	prop := parked(1, world.Vec2{X: 1})
	prop.AddItem("wood", 5)
	prop.Mind.State = agents.StateTradeGoPartner
	prop.Mind.Trade = &agents.TradePlan{
		Partner:      2,
		PartnerStock: home.StockID,
		PartnerHome:  home.Pos,
		Offer:        agents.ItemStack{Item: "wood", Qty: 5},
		Want:         agents.ItemStack{Item: "bread", Qty: 2},
	}

	s.AddAgent(prop)
	s.AddAgent(partner)

	if !s.executeTrade(prop) {
		t.Fatal("executeTrade refused a well-formed swap")
	}
	if got := prop.CountItem("bread"); got != 2 {
		t.Errorf("proposer bread = %d, want 2", got)
	}
	if got := prop.CountItem("wood"); got != 0 {
		t.Errorf("proposer wood = %d, want 0", got)
	}
	if got := partner.CountItem("bread"); got != 0 {
		t.Errorf("partner still carries %d bread", got)
	}
	stock := s.World.Stock(home.StockID)
	if got := stock.Count("wood"); got != 5 {
		t.Errorf("household wood = %d, want 5", got)
	}
	if prop.Mind.State != agents.StateIdle || partner.Mind.State != agents.StateIdle {
		t.Error("both minds should reset after the swap")
	}
	if prop.Mind.TradeCooldownUntil <= s.Now || partner.Mind.TradeCooldownUntil <= s.Now {
		t.Error("trade cooldowns not set")
	}
}

func TestTradeRefusesMismatchedPlans(t *testing.T) {
	s := testSim(t)
	home := s.World.AddBuilding(world.KindCabin, world.Vec2{})

	partner := parked(2, world.Vec2{})
	partner.HomeID = home.ID
	partner.AddItem("bread", 2)
	partner.Mind.State = agents.StateTradeExchange
	partner.Mind.Trade = &agents.TradePlan{
		Partner: 1,
		Offer:   agents.ItemStack{Item: "bread", Qty: 1}, // fewer than promised
		Want:    agents.ItemStack{Item: "wood", Qty: 5},
	}

	prop := parked(1, world.Vec2{X: 1})
	prop.AddItem("wood", 5)
	prop.Mind.Trade = &agents.TradePlan{
		Partner:      2,
		PartnerStock: home.StockID,
		PartnerHome:  home.Pos,
		Offer:        agents.ItemStack{Item: "wood", Qty: 5},
		Want:         agents.ItemStack{Item: "bread", Qty: 2},
	}

	s.AddAgent(prop)
	s.AddAgent(partner)

	if s.executeTrade(prop) {
		t.Fatal("mismatched plans must not settle")
	}
	if prop.CountItem("wood") != 5 || partner.CountItem("bread") != 2 {
		t.Fatal("refused trade moved goods")
	}
}

func TestDepositWithdrawConservesGoods(t *testing.T) {
	s := testSim(t)
	a := parked(1, world.Vec2{})
	s.AddAgent(a)
	b := s.World.AddBuilding(world.KindCabin, world.Vec2{X: 1})
	a.HomeID = b.ID
	b.AddResident(1)
	stock := s.World.Stock(b.StockID)

	a.AddItem("berries", 6)
	total := func() int { return a.CountItem("berries") + stock.Count("berries") }
	before := total()

	if !s.deposit(a, "berries", 4) {
		t.Fatal("deposit refused in reach with goods in hand")
	}
	if total() != before {
		t.Fatalf("deposit changed the total: %d, want %d", total(), before)
	}
	if !s.withdraw(a, "berries", 3) {
		t.Fatal("withdraw refused with carry space and stocked goods")
	}
	if total() != before {
		t.Fatalf("withdraw changed the total: %d, want %d", total(), before)
	}
	if got := a.CountItem("berries"); got != 5 {
		t.Errorf("carried berries = %d, want 5", got)
	}
	if got := stock.Count("berries"); got != 1 {
		t.Errorf("stocked berries = %d, want 1", got)
	}

	// Refused moves must not leak goods either.
	if s.withdraw(a, "berries", 99) {
		t.Fatal("withdraw past carry space should refuse")
	}
	if s.deposit(a, "berries", 0) {
		t.Fatal("zero deposit should refuse")
	}
	if total() != before {
		t.Fatalf("refused ops changed the total: %d, want %d", total(), before)
	}
}

func TestGiveHandsOverAndConserves(t *testing.T) {
	s := testSim(t)
	a := parked(1, world.Vec2{})
	b := parked(2, world.Vec2{X: 1})
	s.AddAgent(a)
	s.AddAgent(b)

	a.AddItem("berries", 3)
	total := func() int { return a.CountItem("berries") + b.CountItem("berries") }
	before := total()

	if !s.give(a, b, "berries", 1) {
		t.Fatal("give refused in reach with goods in hand")
	}
	if a.CountItem("berries") != 2 || b.CountItem("berries") != 1 {
		t.Fatalf("after give: giver %d, receiver %d", a.CountItem("berries"), b.CountItem("berries"))
	}
	if total() != before {
		t.Fatalf("give changed the total: %d, want %d", total(), before)
	}

	if s.give(a, b, "berries", 0) {
		t.Fatal("zero give should refuse")
	}
	if s.give(a, b, "berries", 99) {
		t.Fatal("give past held count should refuse")
	}
	b.AddItem("wood", b.CarryFree())
	if s.give(a, b, "berries", 1) {
		t.Fatal("give to a full pack should refuse")
	}
	b.Pos = world.Vec2{X: 50}
	if s.give(a, b, "berries", 1) {
		t.Fatal("give out of reach should refuse")
	}
	if total() != before {
		t.Fatalf("refused gives changed the total: %d, want %d", total(), before)
	}
}

func TestFeedChildEatsOnTheSpot(t *testing.T) {
	s := testSim(t)
	p := parked(1, world.Vec2{})
	s.AddAgent(p)
	c := parked(2, world.Vec2{X: 1})
	c.Age = 5
	c.Needs.Hunger = 20
	s.AddAgent(c)

	p.AddItem("bread", 2)
	if !s.feedChild(p, 2) {
		t.Fatal("feed refused in reach holding bread")
	}
	if got := p.CountItem("bread"); got != 1 {
		t.Errorf("parent bread = %d, want 1", got)
	}
	if c.CountItem("bread") != 0 {
		t.Error("child pocketed the bread instead of eating it")
	}
	if c.Needs.Hunger <= 20 {
		t.Error("feeding did not raise the child's hunger gauge")
	}
}

func TestBuildCabinClaimsPlot(t *testing.T) {
	s := testSim(t)
	a := parked(1, world.Vec2{})
	a.AddItem(registry.Wood, s.P.Building.CabinWoodCost)
	s.AddAgent(a)

	if !s.buildCabin(a) {
		t.Fatal("buildCabin refused with enough wood and a clear plot")
	}
	if a.HomeID == 0 {
		t.Fatal("no home assigned")
	}
	if a.CountItem(registry.Wood) != 0 {
		t.Error("wood not spent")
	}
	b := s.World.Building(a.HomeID)
	if b == nil || !b.HasResident(1) {
		t.Fatal("cabin missing or resident not listed")
	}
	if b.Faction != a.FactionID {
		t.Error("cabin should fly the builder's banner")
	}

	// A second homeless builder right next door is blocked by the plot.
	c := parked(2, world.Vec2{X: 3})
	c.AddItem(registry.Wood, s.P.Building.CabinWoodCost)
	s.AddAgent(c)
	if s.buildCabin(c) {
		t.Fatal("plot overlap should block the build")
	}
}

// TestHomelessVillagerGathersAndBuilds drives the whole decision loop
// through Advance: a homeless adult spots wood, strips the nodes,
// picks a plot and raises a cabin.
func TestHomelessVillagerGathersAndBuilds(t *testing.T) {
	p := tuning.Default()
	p.World.FertileZones = 0
	// Freeze the body so survival never interrupts the errand.
	p.Needs.HungerDecay = 0
	p.Needs.ThirstDecay = 0
	p.Needs.EnergyDecayAwake = 0
	s := NewSimulation(1, &p, registry.Builtin())
	s.Spawner.SetNextID(100)

	a := parked(1, world.Vec2{})
	a.Needs.Hunger, a.Needs.Thirst, a.Needs.Energy = 100, 100, 100
	a.Mind.NextThink = 0
	s.AddAgent(a)

	s.World.AddResource(registry.Wood, world.Vec2{X: 20}, 6, 0)
	s.World.AddResource(registry.Wood, world.Vec2{X: 30}, 6, 0)

	for i := 0; i < 4000 && a.HomeID == 0; i++ {
		s.Advance(0.1)
	}

	if a.HomeID == 0 {
		t.Fatalf("no cabin after 400 sim-seconds: state=%v wood=%d",
			a.Mind.State, a.CountItem(registry.Wood))
	}
	b := s.World.Building(a.HomeID)
	if b == nil || !b.HasResident(1) {
		t.Fatal("home set but cabin missing or resident not listed")
	}
	if got := a.CountItem(registry.Wood); got >= p.Building.CabinWoodCost {
		t.Errorf("carried wood = %d, the build spent nothing", got)
	}
}

// TestStanceDriftFollowsHungerAndWealth pins the politics: feuds start
// when a hungry band eyes a richer neighbor, and end only after both
// sides eat well again. Chances are forced to 1 so only the gates
// decide.
func TestStanceDriftFollowsHungerAndWealth(t *testing.T) {
	s := testSim(t)
	s.P.Faction.HostilityChance = 1
	s.P.Faction.CalmChance = 1

	poor := s.Factions.Create("Ash Band", 0)
	rich := s.Factions.Create("Gold Clan", 120)

	lean := parked(1, world.Vec2{})
	lean.FactionID = poor.ID
	poor.AddMember(1)
	s.AddAgent(lean)

	fed := parked(2, world.Vec2{X: 60})
	fed.FactionID = rich.ID
	rich.AddMember(2)
	s.AddAgent(fed)

	// Census numbers pinned by hand; driftStances only reads them.
	poor.Wealth, rich.Wealth = 10, 50

	// Everyone eats well: no feud, whatever the dice say.
	s.driftStances()
	if s.Factions.Hostile(poor.ID, rich.ID) {
		t.Fatal("comfortable factions started a feud")
	}

	// Hunger alone is not enough when no neighbor is better off.
	lean.Needs.Hunger = 20
	poor.Wealth = 80
	s.driftStances()
	if s.Factions.Hostile(poor.ID, rich.ID) {
		t.Fatal("feud started against a poorer neighbor")
	}

	// A richer neighbor draws the hungry band's envy.
	poor.Wealth = 10
	s.driftStances()
	if !s.Factions.Hostile(poor.ID, rich.ID) {
		t.Fatal("hungry faction ignored a wealthier neighbor")
	}

	// The feud holds while one side still starves.
	s.driftStances()
	if !s.Factions.Hostile(poor.ID, rich.ID) {
		t.Fatal("feud cooled while one side still starves")
	}

	// Full bellies on both sides let it die.
	lean.Needs.Hunger = 90
	s.driftStances()
	if s.Factions.Hostile(poor.ID, rich.ID) {
		t.Fatal("feud survived certain peace rolls")
	}
}

func TestRaidStealsShareAndInjures(t *testing.T) {
	s := testSim(t)
	atk := s.Factions.Create("Ember Band", 0)
	def := s.Factions.Create("River Clan", 120)

	atkHome := s.World.AddBuilding(world.KindCabin, world.Vec2{})
	atkHome.Faction = atk.ID
	defHome := s.World.AddBuilding(world.KindCabin, world.Vec2{X: 60})
	defHome.Faction = def.ID
	s.World.Stock(defHome.StockID).Add("bread", 8)

	victim := parked(1, world.Vec2{X: 61})
	victim.FactionID = def.ID
	def.AddMember(1)
	s.AddAgent(victim)

	s.Now = 100
	s.raid(atk, def)

	if got := s.World.Stock(defHome.StockID).Count("bread"); got != 6 {
		t.Errorf("defender bread = %d, want 6 after a quarter stolen", got)
	}
	if got := s.World.Stock(atkHome.StockID).Count("bread"); got != 2 {
		t.Errorf("raider bread = %d, want 2", got)
	}
	if victim.Needs.Health != 100-s.P.Faction.RaidInjury {
		t.Errorf("victim health = %f", victim.Needs.Health)
	}
	if victim.Needs.Happiness != 60-s.P.Faction.RaidShock {
		t.Errorf("victim happiness = %f", victim.Needs.Happiness)
	}
	if atk.LastRaidAt != s.Now {
		t.Error("raid cooldown stamp not set")
	}
}

func TestFireLeavesResidentsHomeless(t *testing.T) {
	p := tuning.Default()
	p.World.FertileZones = 0
	p.Macro.FireDroughtChance = 1
	s := NewSimulation(1, &p, registry.Builtin())
	s.Spawner.SetNextID(100)
	s.Weather.Current = weather.Drought

	b := s.World.AddBuilding(world.KindCabin, world.Vec2{})
	a := parked(1, world.Vec2{})
	a.HomeID = b.ID
	b.AddResident(1)
	s.AddAgent(a)

	s.rollFire()

	if s.World.Building(b.ID) != nil {
		t.Fatal("building survived a certain fire")
	}
	if a.HomeID != 0 {
		t.Fatal("resident still points at the burned home")
	}
}

func TestEpidemicInfectsSpreadsAndExpires(t *testing.T) {
	p := tuning.Default()
	p.World.FertileZones = 0
	p.Macro.EpidemicDailyChance = 1
	p.Macro.InfectChance = 1
	s := NewSimulation(1, &p, registry.Builtin())
	s.Spawner.SetNextID(100)

	a := parked(1, world.Vec2{})
	b := parked(2, world.Vec2{X: 5})
	s.AddAgent(a)
	s.AddAgent(b)

	s.rollEpidemic()
	if !a.Sick && !b.Sick {
		t.Fatal("guaranteed outbreak infected nobody")
	}

	s.spreadSickness()
	if !a.Sick || !b.Sick {
		t.Fatal("guaranteed contagion did not spread at close range")
	}

	healthBefore := a.Needs.Health
	s.Advance(0.1)
	if a.Needs.Health >= healthBefore {
		t.Error("sickness should drain health")
	}

	// Jump past the outbreak window; carriers recover. The jump crosses
	// a day boundary, so disarm the daily roll first.
	s.P.Macro.EpidemicDailyChance = 0
	s.Now = s.epidemicUntil + 1
	s.Advance(0.1)
	if a.Sick || b.Sick {
		t.Error("sickness should expire")
	}
}

func TestCoupleSharesHomeAndBanner(t *testing.T) {
	s := testSim(t)
	f := s.Factions.Create("Oak Circle", 0)

	him := parked(1, world.Vec2{})
	him.FactionID = f.ID
	f.AddMember(1)
	b := s.World.AddBuilding(world.KindCabin, world.Vec2{})
	him.HomeID = b.ID
	b.AddResident(1)

	her := parked(2, world.Vec2{X: 3})
	her.Sex = agents.SexFemale
	her.Mind.State = agents.StateWaitMate
	her.Mind.TargetAgent = 1

	s.AddAgent(him)
	s.AddAgent(her)

	if !s.formCouple(him, her.ID) {
		t.Fatal("formCouple refused a waiting partner in range")
	}
	if m, ok := him.Know.Mate(); !ok || m != 2 {
		t.Error("suitor mate bond missing")
	}
	if m, ok := her.Know.Mate(); !ok || m != 1 {
		t.Error("partner mate bond missing")
	}
	if her.HomeID != b.ID || !b.HasResident(2) {
		t.Error("partner did not move in")
	}
	if her.FactionID != f.ID || !f.HasMember(2) {
		t.Error("partner did not join the banner")
	}
	if her.Mind.State != agents.StateGoHomeMate {
		t.Errorf("partner state = %v, want heading home", her.Mind.State)
	}
}

func TestCouplePrefersHerHome(t *testing.T) {
	s := testSim(t)

	him := parked(1, world.Vec2{})
	his := s.World.AddBuilding(world.KindCabin, world.Vec2{})
	him.HomeID = his.ID
	his.AddResident(1)

	her := parked(2, world.Vec2{X: 3})
	her.Sex = agents.SexFemale
	her.Mind.State = agents.StateWaitMate
	her.Mind.TargetAgent = 1
	hers := s.World.AddBuilding(world.KindCabin, world.Vec2{X: 3})
	her.HomeID = hers.ID
	hers.AddResident(2)

	s.AddAgent(him)
	s.AddAgent(her)

	if !s.formCouple(him, her.ID) {
		t.Fatal("formCouple refused a waiting partner in range")
	}
	if him.HomeID != hers.ID || !hers.HasResident(1) {
		t.Error("suitor should move into her home")
	}
	if his.HasResident(1) {
		t.Error("old cabin should release the mover")
	}
	if her.HomeID != hers.ID {
		t.Error("her home must not change")
	}
}

func TestDeterministicFromSeed(t *testing.T) {
	build := func() *Simulation {
		p := tuning.Default()
		s := NewSimulation(42, &p, registry.Builtin())
		s.Populate(12, 2)
		return s
	}
	a, b := build(), build()
	for i := 0; i < 400; i++ {
		a.Advance(0.1)
		b.Advance(0.1)
	}

	if len(a.Agents) != len(b.Agents) {
		t.Fatalf("population diverged: %d vs %d", len(a.Agents), len(b.Agents))
	}
	if len(a.Order) != len(b.Order) {
		t.Fatalf("order diverged")
	}
	for i, id := range a.Order {
		if b.Order[i] != id {
			t.Fatalf("order[%d]: %d vs %d", i, id, b.Order[i])
		}
		x, y := a.Agents[id], b.Agents[id]
		if x.Pos != y.Pos {
			t.Fatalf("agent %d position diverged: %+v vs %+v", id, x.Pos, y.Pos)
		}
		if x.Needs.Health != y.Needs.Health {
			t.Fatalf("agent %d health diverged", id)
		}
		if x.Mind.State != y.Mind.State {
			t.Fatalf("agent %d state diverged: %v vs %v", id, x.Mind.State, y.Mind.State)
		}
	}
	if len(a.Events) != len(b.Events) {
		t.Fatalf("event streams diverged: %d vs %d", len(a.Events), len(b.Events))
	}
}
