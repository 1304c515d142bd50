// Package combat resolves attacks between agents. Pure math over the
// combatants' traits and gear; the engine owns the bookkeeping that
// follows a hit (death, loot, faction fallout).
package combat

import (
	"math"
	"math/rand"

	"github.com/talgya/hearthvale/internal/agents"
	"github.com/talgya/hearthvale/internal/registry"
	"github.com/talgya/hearthvale/internal/tuning"
)

// Outcome describes one resolved swing.
type Outcome struct {
	Damage float64 `json:"damage"`
	Killed bool    `json:"killed"`
}

// AttackPower is the pre-variance strike strength: base plus the best
// carried weapon, scaled up by aggression and courage.
func AttackPower(a *agents.Agent, reg *registry.Registry, p tuning.Combat) float64 {
	_, weapon := a.BestWeapon(reg)
	mult := 1 + a.Traits.Aggression*p.AggressionBonus + a.Traits.Courage*p.CourageAtkBonus
	return (p.BaseDamage + weapon) * mult
}

// Defense is the flat mitigation: best carried armor, worn better by
// the brave.
func Defense(a *agents.Agent, reg *registry.Registry, p tuning.Combat) float64 {
	_, armor := a.BestArmor(reg)
	return armor * (1 + a.Traits.Courage*p.CourageDefBonus)
}

// ResolveAttack applies one swing from attacker to defender. Damage
// lands on the defender's health; every connected hit deals at least 1.
func ResolveAttack(attacker, defender *agents.Agent, reg *registry.Registry, p tuning.Combat, rng *rand.Rand) Outcome {
	variance := 1 + (rng.Float64()*2-1)*p.VarianceSpan
	atk := AttackPower(attacker, reg, p) * variance
	dmg := math.Round(math.Max(1, atk-Defense(defender, reg, p)*0.5))

	defender.Needs.Health -= dmg
	defender.Needs.Clamp()

	return Outcome{
		Damage: dmg,
		Killed: defender.Needs.Health <= 0,
	}
}

// InRange reports whether the attacker can reach the defender.
func InRange(attacker, defender *agents.Agent, p tuning.Combat) bool {
	return attacker.Pos.Dist(defender.Pos) <= p.AttackRange
}

// Power scores an agent's fighting weight for raid and flee math:
// attack potential shaded by current health.
func Power(a *agents.Agent, reg *registry.Registry, p tuning.Combat) float64 {
	return AttackPower(a, reg, p) * (a.Needs.Health / 100)
}
