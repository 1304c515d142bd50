package agents

import (
	"github.com/talgya/hearthvale/internal/registry"
	"github.com/talgya/hearthvale/internal/world"
)

// State tags what an agent is doing between thinks. The decision
// engine dispatches on it through a handler table; unknown values fall
// back to idle.
type State uint8

const (
	StateIdle State = iota
	StateGoResource
	StateGathering
	StateReturning
	StateExploring
	StateGoEat
	StateSleeping
	StateResting
	StateCourting
	StateWaitMate
	StateGoHomeMate
	StateMating
	StateBuildHome
	StateTradeGoHome
	StateTradeGoPartner
	StateTradeExchange
	StateFighting
	StateFleeing
	StateCrafting
	StateTendChild

	// NumStates sizes the handler table.
	NumStates
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateGoResource:
		return "going_to_resource"
	case StateGathering:
		return "gathering"
	case StateReturning:
		return "returning_home"
	case StateExploring:
		return "exploring"
	case StateGoEat:
		return "going_to_eat"
	case StateSleeping:
		return "sleeping"
	case StateResting:
		return "resting"
	case StateCourting:
		return "courting"
	case StateWaitMate:
		return "waiting_for_mate"
	case StateGoHomeMate:
		return "going_home_to_mate"
	case StateMating:
		return "mating"
	case StateBuildHome:
		return "building_home"
	case StateTradeGoHome:
		return "trade_going_home"
	case StateTradeGoPartner:
		return "trade_going_to_partner"
	case StateTradeExchange:
		return "trade_exchanging"
	case StateFighting:
		return "fighting"
	case StateFleeing:
		return "fleeing"
	case StateCrafting:
		return "crafting"
	case StateTendChild:
		return "tending_child"
	}
	return "unknown"
}

// TradePlan tracks a barter through its three legs. The proposer
// carries the partner's stock and home; the accepting side leaves them
// zero and waits at its own stock. Offer is always what the holder
// gives away.
type TradePlan struct {
	Partner      AgentID        `json:"partner"`
	PartnerStock world.EntityID `json:"partner_stock,omitempty"`
	PartnerHome  world.Vec2     `json:"partner_home"`
	Offer        ItemStack      `json:"offer"`
	Want         ItemStack      `json:"want"`
}

// Mind is the AI runtime blackboard: state tag, current targets and
// the timers that pace behavior. The engine persists it with the agent
// so a loaded world resumes mid-errand.
type Mind struct {
	State      State   `json:"state"`
	StateSince float64 `json:"state_since"`
	NextThink  float64 `json:"next_think"`

	TargetAgent  AgentID           `json:"target_agent,omitempty"`
	TargetEntity world.EntityID    `json:"target_entity,omitempty"`
	TargetPos    world.Vec2        `json:"target_pos"`
	HasTargetPos bool              `json:"has_target_pos,omitempty"`
	GatherItem   registry.ItemID   `json:"gather_item,omitempty"`
	Recipe       registry.RecipeID `json:"recipe,omitempty"`

	TradeCooldownUntil  float64 `json:"trade_cooldown_until,omitempty"`
	AttackCooldownUntil float64 `json:"attack_cooldown_until,omitempty"`
	EnergyAtSleep       float64 `json:"energy_at_sleep,omitempty"`
	CourtAskedAt        float64 `json:"court_asked_at,omitempty"`

	Trade *TradePlan `json:"trade,omitempty"`
}

// Reset abandons the current errand and enters the given state.
func (m *Mind) Reset(s State, now float64) {
	m.State = s
	m.StateSince = now
	m.TargetAgent = 0
	m.TargetEntity = 0
	m.HasTargetPos = false
	m.GatherItem = ""
	m.Recipe = ""
	m.Trade = nil
}
