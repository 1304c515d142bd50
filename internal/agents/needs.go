// Needs: the survival state every agent carries and the decay rules
// the world tick applies. All values live on a 0..100 scale and are
// clamped on every write.

package agents

import (
	"github.com/talgya/hearthvale/internal/tuning"
	"github.com/talgya/hearthvale/internal/world"
)

// Needs is the physiological state. Hunger and thirst count DOWN
// toward zero; once a primary hits zero its reserve drains, and once
// the reserve is gone the lethal exposure timer starts hurting.
type Needs struct {
	Health        float64 `json:"health"`
	Hunger        float64 `json:"hunger"`
	Thirst        float64 `json:"thirst"`
	HungerReserve float64 `json:"hunger_reserve"`
	ThirstReserve float64 `json:"thirst_reserve"`
	Energy        float64 `json:"energy"`
	Happiness     float64 `json:"happiness"`

	StarvingFor   float64 `json:"starving_for,omitempty"` // seconds past empty reserve
	DehydratedFor float64 `json:"dehydrated_for,omitempty"`
}

// DefaultNeeds is the state of a freshly spawned healthy adult.
func DefaultNeeds() Needs {
	return Needs{
		Health:        100,
		Hunger:        80,
		Thirst:        80,
		HungerReserve: 50,
		ThirstReserve: 50,
		Energy:        80,
		Happiness:     60,
	}
}

// Clamp pins every need into its range.
func (n *Needs) Clamp() {
	n.Health = world.Clamp(n.Health, 0, 100)
	n.Hunger = world.Clamp(n.Hunger, 0, 100)
	n.Thirst = world.Clamp(n.Thirst, 0, 100)
	n.HungerReserve = world.Clamp(n.HungerReserve, 0, 100)
	n.ThirstReserve = world.Clamp(n.ThirstReserve, 0, 100)
	n.Energy = world.Clamp(n.Energy, 0, 100)
	n.Happiness = world.Clamp(n.Happiness, 0, 100)
	if n.StarvingFor < 0 {
		n.StarvingFor = 0
	}
	if n.DehydratedFor < 0 {
		n.DehydratedFor = 0
	}
}

// NeedsEnv carries the world-tick context the decay rules depend on.
type NeedsEnv struct {
	Night      bool
	ThirstMult float64 // weather
	EnergyMult float64 // weather
}

// StepNeeds advances hunger, thirst, energy and the exposure damage by
// dt seconds. Trait rates and the baby discount scale the decay. The
// caller checks Health afterward; zero means death.
func StepNeeds(a *Agent, dt float64, env NeedsEnv, p tuning.Needs, rp tuning.Repro) {
	n := &a.Needs

	stageMult := 1.0
	if a.Stage(rp) == StageBaby {
		stageMult = p.BabyNeedsMult
	}

	// Primary decay, reserves after, exposure after that.
	n.Hunger -= p.HungerDecay * a.Traits.HungerRate * stageMult * dt
	if n.Hunger <= 0 {
		n.Hunger = 0
		n.HungerReserve -= p.ReserveDecay * stageMult * dt
		if n.HungerReserve <= 0 {
			n.HungerReserve = 0
			n.StarvingFor += dt
			n.Health -= p.ExposureBaseDPS * (1 + n.StarvingFor/p.ExposureRampSec) * dt
		}
	} else {
		n.StarvingFor = 0
	}

	thirstMult := env.ThirstMult
	if thirstMult <= 0 {
		thirstMult = 1
	}
	n.Thirst -= p.ThirstDecay * a.Traits.ThirstRate * thirstMult * stageMult * dt
	if n.Thirst <= 0 {
		n.Thirst = 0
		n.ThirstReserve -= p.ReserveDecay * stageMult * dt
		if n.ThirstReserve <= 0 {
			n.ThirstReserve = 0
			n.DehydratedFor += dt
			n.Health -= p.ExposureBaseDPS * (1 + n.DehydratedFor/p.ExposureRampSec) * dt
		}
	} else {
		n.DehydratedFor = 0
	}

	// Energy: restored asleep, drained awake, faster at night and for
	// low-stamina agents. Sitting down to rest restores at half rate.
	if a.Asleep() {
		n.Energy += p.EnergyRestoreSleep * dt
	} else if a.Mind.State == StateResting {
		n.Energy += p.EnergyRestoreSleep * 0.5 * dt
	} else {
		drain := p.EnergyDecayAwake / a.Traits.Stamina
		if env.Night {
			drain *= p.NightEnergyMult
		}
		if env.EnergyMult > 0 {
			drain *= env.EnergyMult
		}
		n.Energy -= drain * dt
	}

	// Comfortable agents knit back together.
	if n.Hunger >= p.ComfortHunger && n.Thirst >= p.ComfortThirst && n.Energy >= p.ComfortEnergy {
		n.Health += p.RegenHPS * dt
	}

	n.Clamp()
}

// ApplyFood feeds the agent: the primary need fills first and the
// overflow banks into the reserve.
func (n *Needs) ApplyFood(nutrition, hydration float64) {
	if nutrition > 0 {
		room := 100 - n.Hunger
		if nutrition > room {
			n.HungerReserve += nutrition - room
		}
		n.Hunger += nutrition
		n.StarvingFor = 0
	}
	if hydration > 0 {
		room := 100 - n.Thirst
		if hydration > room {
			n.ThirstReserve += hydration - room
		}
		n.Thirst += hydration
		n.DehydratedFor = 0
	}
	n.Clamp()
}

// Comfortable reports whether the agent is fed, watered and rested
// enough for optional behaviors like courtship.
func (n *Needs) Comfortable(p tuning.Needs) bool {
	return n.Hunger >= p.ComfortHunger && n.Thirst >= p.ComfortThirst && n.Energy >= p.ComfortEnergy
}

// Debuff maps current condition onto the capability multiplier in
// [floor, 1]. The worst single factor dominates: a starving agent is
// slow no matter how rested it is.
func (a *Agent) Debuff(p tuning.Needs) float64 {
	n := a.Needs
	worst := 1.0
	for _, f := range []float64{
		n.Health / 100,
		(n.Hunger + n.HungerReserve) / 150,
		(n.Thirst + n.ThirstReserve) / 150,
		n.Energy / 100,
	} {
		if f < worst {
			worst = f
		}
	}
	return p.DebuffFloor + (1-p.DebuffFloor)*world.Clamp(worst, 0, 1)
}

// EffectiveSpeed is trait speed shaded by condition and, while sick,
// the epidemic malus.
func (a *Agent) EffectiveSpeed(p tuning.Needs) float64 {
	s := a.Traits.Speed * a.Debuff(p)
	if a.Sick {
		s *= 0.8
	}
	return s
}

// Reach is how far the agent will pursue remembered zones: the
// exploration trait shrunk by condition and pregnancy.
func (a *Agent) Reach(p tuning.Needs) float64 {
	r := a.Traits.Exploration * a.Debuff(p)
	if a.Repro.Gestation != nil {
		r *= 0.6
	}
	return r
}
