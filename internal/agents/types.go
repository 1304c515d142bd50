// Package agents defines the agent data model: identity, traits,
// needs, reproduction state, inventory, messaging and the AI runtime
// blackboard. Behavior lives in internal/ai; the world tick applies
// action effects in internal/engine.
package agents

import (
	"math/rand"

	"github.com/talgya/hearthvale/internal/knowledge"
	"github.com/talgya/hearthvale/internal/registry"
	"github.com/talgya/hearthvale/internal/tuning"
	"github.com/talgya/hearthvale/internal/world"
)

// AgentID is a stable handle into the agent arena. Zero is never issued.
type AgentID uint64

type Sex uint8

const (
	SexFemale Sex = iota
	SexMale
)

func (s Sex) String() string {
	if s == SexMale {
		return "male"
	}
	return "female"
}

// LifeStage is derived from age, never stored.
type LifeStage uint8

const (
	StageBaby LifeStage = iota
	StageChild
	StageAdolescent
	StageAdult
)

func (s LifeStage) String() string {
	switch s {
	case StageBaby:
		return "baby"
	case StageChild:
		return "child"
	case StageAdolescent:
		return "adolescent"
	}
	return "adult"
}

// Traits are rolled at birth and fixed for life. Each field lives in
// the band Clamp enforces.
type Traits struct {
	Speed        float64 `json:"speed"`        // world units per second
	Vision       float64 `json:"vision"`       // perception radius
	Exploration  float64 `json:"exploration"`  // how far known zones may be pursued
	Carry        float64 `json:"carry"`        // inventory capacity in units
	GatherSpeed  float64 `json:"gather_speed"` // multiplier on take time
	Stamina      float64 `json:"stamina"`
	HungerRate   float64 `json:"hunger_rate"`
	ThirstRate   float64 `json:"thirst_rate"`
	Charisma     float64 `json:"charisma"`
	Aggression   float64 `json:"aggression"`
	Courage      float64 `json:"courage"`
	Intelligence float64 `json:"intelligence"`
}

type traitBound struct{ lo, hi float64 }

var traitBounds = map[string]traitBound{
	"speed":       {15, 35},
	"vision":      {80, 160},
	"exploration": {150, 400},
	"carry":       {10, 30},
	"gather":      {0.5, 1.5},
	"stamina":     {0.5, 1.5},
	"hunger":      {0.7, 1.3},
	"thirst":      {0.7, 1.3},
	"unit":        {0, 1},
}

// Clamp pins every trait into its legal band.
func (t *Traits) Clamp() {
	cl := func(v float64, b traitBound) float64 { return world.Clamp(v, b.lo, b.hi) }
	t.Speed = cl(t.Speed, traitBounds["speed"])
	t.Vision = cl(t.Vision, traitBounds["vision"])
	t.Exploration = cl(t.Exploration, traitBounds["exploration"])
	t.Carry = cl(t.Carry, traitBounds["carry"])
	t.GatherSpeed = cl(t.GatherSpeed, traitBounds["gather"])
	t.Stamina = cl(t.Stamina, traitBounds["stamina"])
	t.HungerRate = cl(t.HungerRate, traitBounds["hunger"])
	t.ThirstRate = cl(t.ThirstRate, traitBounds["thirst"])
	t.Charisma = cl(t.Charisma, traitBounds["unit"])
	t.Aggression = cl(t.Aggression, traitBounds["unit"])
	t.Courage = cl(t.Courage, traitBounds["unit"])
	t.Intelligence = cl(t.Intelligence, traitBounds["unit"])
}

// RollTraits draws a fresh trait set uniformly within bounds.
func RollTraits(rng *rand.Rand) Traits {
	roll := func(b traitBound) float64 { return b.lo + rng.Float64()*(b.hi-b.lo) }
	return Traits{
		Speed:        roll(traitBounds["speed"]),
		Vision:       roll(traitBounds["vision"]),
		Exploration:  roll(traitBounds["exploration"]),
		Carry:        roll(traitBounds["carry"]),
		GatherSpeed:  roll(traitBounds["gather"]),
		Stamina:      roll(traitBounds["stamina"]),
		HungerRate:   roll(traitBounds["hunger"]),
		ThirstRate:   roll(traitBounds["thirst"]),
		Charisma:     roll(traitBounds["unit"]),
		Aggression:   roll(traitBounds["unit"]),
		Courage:      roll(traitBounds["unit"]),
		Intelligence: roll(traitBounds["unit"]),
	}
}

// InheritTraits averages the parents and mutates each trait by up to
// ±span proportionally, then clamps into bounds.
func InheritTraits(mother, father Traits, span float64, rng *rand.Rand) Traits {
	mix := func(a, b float64) float64 {
		v := (a + b) / 2
		return v * (1 + (rng.Float64()*2-1)*span)
	}
	t := Traits{
		Speed:        mix(mother.Speed, father.Speed),
		Vision:       mix(mother.Vision, father.Vision),
		Exploration:  mix(mother.Exploration, father.Exploration),
		Carry:        mix(mother.Carry, father.Carry),
		GatherSpeed:  mix(mother.GatherSpeed, father.GatherSpeed),
		Stamina:      mix(mother.Stamina, father.Stamina),
		HungerRate:   mix(mother.HungerRate, father.HungerRate),
		ThirstRate:   mix(mother.ThirstRate, father.ThirstRate),
		Charisma:     mix(mother.Charisma, father.Charisma),
		Aggression:   mix(mother.Aggression, father.Aggression),
		Courage:      mix(mother.Courage, father.Courage),
		Intelligence: mix(mother.Intelligence, father.Intelligence),
	}
	t.Clamp()
	return t
}

// ActionKind tags the timed action an agent is committed to. Effects
// apply in the world tick when the timer runs out.
type ActionKind uint8

const (
	ActTake ActionKind = iota
	ActSleep
	ActMate
	ActCraft
)

func (k ActionKind) String() string {
	switch k {
	case ActTake:
		return "take"
	case ActSleep:
		return "sleep"
	case ActMate:
		return "mate"
	}
	return "craft"
}

// Action is a committed timed activity. Target fields depend on Kind:
// take locks a resource, mate names the partner, craft names the
// station and recipe.
type Action struct {
	Kind      ActionKind        `json:"kind"`
	Total     float64           `json:"total"`
	Remaining float64           `json:"remaining"`
	Entity    world.EntityID    `json:"entity,omitempty"`
	Agent     AgentID           `json:"agent,omitempty"`
	Recipe    registry.RecipeID `json:"recipe,omitempty"`
}

// ItemStack is one inventory line.
type ItemStack struct {
	Item registry.ItemID `json:"item"`
	Qty  int             `json:"qty"`
}

// Agent is everything the simulation knows about one villager.
type Agent struct {
	ID     AgentID `json:"id"`
	Name   string  `json:"name"`
	Sex    Sex     `json:"sex"`
	Color  float64 `json:"color"` // hue, cosmetic, inherited
	Player bool    `json:"player,omitempty"`

	Age       float64        `json:"age"` // game years
	Job       registry.JobID `json:"job,omitempty"`
	HomeID    world.EntityID `json:"home_id,omitempty"` // 0 = homeless
	FactionID uint64         `json:"faction_id,omitempty"`

	Pos        world.Vec2  `json:"pos"`
	MoveTarget *world.Vec2 `json:"move_target,omitempty"`

	Traits Traits `json:"traits"`
	Needs  Needs  `json:"needs"`
	Repro  Repro  `json:"repro"`

	Inventory []ItemStack `json:"inventory,omitempty"`
	Action    *Action     `json:"action,omitempty"`

	// Pending receives messages sent during the current tick; they swap
	// into Inbox at the agent's next think, so nothing sent this tick is
	// visible this tick.
	Inbox   []Message `json:"inbox,omitempty"`
	Pending []Message `json:"pending,omitempty"`

	Know knowledge.Memory `json:"know"`
	Mind Mind             `json:"mind"`

	Sick      bool    `json:"sick,omitempty"`
	SickUntil float64 `json:"sick_until,omitempty"`
}

// Stage derives the life stage from age.
func (a *Agent) Stage(p tuning.Repro) LifeStage {
	switch {
	case a.Age < p.ChildAge:
		return StageBaby
	case a.Age < p.AdolescentAge:
		return StageChild
	case a.Age < p.AdultAge:
		return StageAdolescent
	}
	return StageAdult
}

func (a *Agent) IsAdult(p tuning.Repro) bool { return a.Age >= p.AdultAge }

// Size is observable stature, consumed by perception views.
func (a *Agent) Size(p tuning.Repro) float64 {
	switch a.Stage(p) {
	case StageBaby:
		return 0.3
	case StageChild:
		return 0.5
	case StageAdolescent:
		return 0.7
	}
	return 1.0
}

// Asleep reports whether the agent is committed to a sleep action.
func (a *Agent) Asleep() bool {
	return a.Action != nil && a.Action.Kind == ActSleep
}

// Fighting posture is observable by others.
func (a *Agent) Fighting() bool {
	return a.Mind.State == StateFighting || a.Mind.State == StateFleeing
}

// WaitingForMate is the visible standing-still posture of an agent
// that accepted a courtship and waits for the suitor.
func (a *Agent) WaitingForMate() bool {
	return a.Mind.State == StateWaitMate
}
