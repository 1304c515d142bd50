// Package weather drives the in-sim weather. Conditions advance on a
// fixed slot cadence from season-biased weights and feed back into the
// world as multipliers on needs decay, regrowth and fire risk.
package weather

import (
	"math/rand"

	"github.com/talgya/hearthvale/internal/world"
)

type Kind uint8

const (
	Clear Kind = iota
	Rain
	Heat
	Cold
	Storm
	Drought
)

func (k Kind) String() string {
	switch k {
	case Clear:
		return "clear"
	case Rain:
		return "rain"
	case Heat:
		return "heat"
	case Cold:
		return "cold"
	case Storm:
		return "storm"
	case Drought:
		return "drought"
	}
	return "unknown"
}

// ParseKind maps a condition name back to its Kind.
func ParseKind(name string) (Kind, bool) {
	for k := Clear; k <= Drought; k++ {
		if k.String() == name {
			return k, true
		}
	}
	return Clear, false
}

// Modifiers is what the rest of the simulation consumes. All fields are
// multipliers around 1.0 except FireRisk, which scales the base daily
// fire chance (zero outside dry spells).
type Modifiers struct {
	ThirstMult  float64
	EnergyMult  float64
	RespawnMult float64
	SpeedMult   float64
	FireRisk    float64
	Description string
}

func (k Kind) Modifiers() Modifiers {
	switch k {
	case Rain:
		return Modifiers{ThirstMult: 0.9, EnergyMult: 1.0, RespawnMult: 1.3, SpeedMult: 0.95, Description: "steady rain over the valley"}
	case Heat:
		return Modifiers{ThirstMult: 1.5, EnergyMult: 1.1, RespawnMult: 0.9, SpeedMult: 1.0, FireRisk: 0.25, Description: "shimmering heat"}
	case Cold:
		return Modifiers{ThirstMult: 0.95, EnergyMult: 1.4, RespawnMult: 0.7, SpeedMult: 1.0, Description: "a biting cold snap"}
	case Storm:
		return Modifiers{ThirstMult: 0.9, EnergyMult: 1.2, RespawnMult: 1.1, SpeedMult: 0.7, Description: "a storm lashing the rooftops"}
	case Drought:
		return Modifiers{ThirstMult: 1.4, EnergyMult: 1.0, RespawnMult: 0.5, SpeedMult: 1.0, FireRisk: 1.0, Description: "a parched drought"}
	default:
		return Modifiers{ThirstMult: 1.0, EnergyMult: 1.0, RespawnMult: 1.0, SpeedMult: 1.0, Description: "fair weather"}
	}
}

// Machine steps the weather once per slot. Deterministic for a given
// seed and step sequence.
type Machine struct {
	Current Kind
	rng     *rand.Rand
	slotSec float64
	timer   float64
}

func New(seed int64, slotSeconds float64) *Machine {
	return &Machine{
		Current: Clear,
		rng:     rand.New(rand.NewSource(seed)),
		slotSec: slotSeconds,
	}
}

type weighted struct {
	kind   Kind
	weight int
}

// seasonTable biases conditions: wet springs, hot dry summers, cold
// stormy winters.
func seasonTable(s world.Season) []weighted {
	switch s {
	case world.SeasonSpring:
		return []weighted{{Clear, 5}, {Rain, 4}, {Cold, 1}, {Storm, 1}}
	case world.SeasonSummer:
		return []weighted{{Clear, 5}, {Heat, 3}, {Drought, 2}, {Rain, 1}, {Storm, 1}}
	case world.SeasonAutumn:
		return []weighted{{Clear, 4}, {Rain, 3}, {Cold, 2}, {Storm, 1}}
	default:
		return []weighted{{Clear, 3}, {Cold, 5}, {Storm, 2}}
	}
}

// Step advances the machine by dt sim-seconds and reports whether the
// condition changed. At most one transition per call.
func (m *Machine) Step(dt float64, season world.Season) bool {
	m.timer += dt
	if m.timer < m.slotSec {
		return false
	}
	m.timer -= m.slotSec
	if m.timer > m.slotSec {
		m.timer = 0 // big dt jumps collapse to one roll
	}

	table := seasonTable(season)
	total := 0
	for _, w := range table {
		total += w.weight
	}
	roll := m.rng.Intn(total)
	next := m.Current
	for _, w := range table {
		roll -= w.weight
		if roll < 0 {
			next = w.kind
			break
		}
	}
	changed := next != m.Current
	m.Current = next
	return changed
}

// Modifiers for the current condition.
func (m *Machine) Modifiers() Modifiers {
	return m.Current.Modifiers()
}
