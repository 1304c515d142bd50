// Package ai is the decision engine. Each agent thinks on its own
// jittered cadence: consume the inbox, then either continue the
// current errand through the state handler table or, when idle, walk
// the priority waterfall until something claims the agent.
//
// The planner never touches simulation internals. Everything it can
// see or do goes through the World interface, which the engine
// implements bound to the thinking agent. Senses return perception
// views, never another agent's true state, and mutations report
// success with a bool instead of an error: a villager reaching for a
// berry that is gone just comes up empty-handed.
package ai

import (
	"github.com/talgya/hearthvale/internal/agents"
	"github.com/talgya/hearthvale/internal/perception"
	"github.com/talgya/hearthvale/internal/registry"
	"github.com/talgya/hearthvale/internal/world"
)

// Sighting is a resource the agent can currently see.
type Sighting struct {
	ID   world.EntityID
	Item registry.ItemID
	Pos  world.Vec2
}

// Foe is a visible agent of a hostile faction.
type Foe struct {
	ID   agents.AgentID
	Pos  world.Vec2
	View perception.FoeView
}

// Neighbor is a visible non-hostile agent.
type Neighbor struct {
	ID   agents.AgentID
	Pos  world.Vec2
	View perception.NPCView
}

// Candidate is a courtship prospect in view.
type Candidate struct {
	Pos  world.Vec2
	View perception.MateView
}

// World is everything an agent can sense and do. The engine binds an
// implementation to the calling agent before each think.
type World interface {
	Now() float64
	IsNight() bool

	// Observer carries the agent's own exact state and the traits that
	// shade its senses.
	Observer() perception.Observer

	// Movement. MoveTo sets the walk target; the world tick integrates
	// the actual motion.
	MoveTo(pos world.Vec2)
	Halt()

	// Senses. All of these are limited by vision and return observable
	// presentation only.
	VisibleResources() []Sighting
	NearestFreeResource(item registry.ItemID) (Sighting, bool)
	Foes() []Foe
	Neighbors() []Neighbor
	MateCandidates() []Candidate
	AgentPos(id agents.AgentID) (world.Vec2, bool)
	AgentWaiting(id agents.AgentID) bool
	AgentExchanging(id agents.AgentID) bool

	// Committed actions. Each locks the agent until the world tick
	// finishes the timer and applies the effect.
	BeginTake(id world.EntityID) bool
	BeginSleep() bool
	BeginMate(partner agents.AgentID) bool
	BeginCraft(recipe registry.RecipeID) bool

	// Home and goods.
	HomePos() (world.Vec2, bool)
	HomeStock() (perception.StockView, bool)
	Deposit(item registry.ItemID, qty int) bool
	Withdraw(item registry.ItemID, qty int) bool
	Consume(item registry.ItemID) bool
	FindHomePlot() (world.Vec2, bool)
	BuildCabin() bool

	// Other people.
	Greet(to agents.AgentID) bool
	Court(to agents.AgentID) bool
	FormCouple(partner agents.AgentID) bool
	ProposeTrade(to agents.AgentID, offer, want agents.ItemStack) bool
	ExecuteTrade() bool
	Attack(target agents.AgentID) bool
	HungryChild() (agents.AgentID, world.Vec2, bool)
	FeedChild(id agents.AgentID) bool

	// Market board, public knowledge.
	Price(item registry.ItemID) float64
	FairOffer(give registry.ItemID, giveQty int, want registry.ItemID, wantQty int) bool
}
