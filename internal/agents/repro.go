package agents

import "github.com/talgya/hearthvale/internal/tuning"

// Gestation tracks a pregnancy.
type Gestation struct {
	Remaining float64 `json:"remaining"` // seconds to birth
	Father    AgentID `json:"father"`
}

// Repro is the reproductive state. Desire drives males toward
// courtship; the cycle gates female conception; Cooldown covers
// postpartum recovery for females and a refractory pause for males.
type Repro struct {
	Desire    float64    `json:"desire"`              // 0..100
	CycleDay  float64    `json:"cycle_day"`           // females, [0, CycleDays)
	Cooldown  float64    `json:"cooldown,omitempty"`  // seconds remaining
	Gestation *Gestation `json:"gestation,omitempty"` // females, nil when not pregnant
}

// InFertileWindow reports whether the cycle currently allows
// conception. Males are never in the window.
func (a *Agent) InFertileWindow(p tuning.Repro) bool {
	if a.Sex != SexFemale {
		return false
	}
	return a.Repro.CycleDay >= p.FertileStartDay && a.Repro.CycleDay <= p.FertileEndDay
}

// CanConceive gates conception: adult female in window, not pregnant,
// not recovering, not past menopause.
func (a *Agent) CanConceive(p tuning.Repro, menopause float64) bool {
	return a.Sex == SexFemale &&
		a.IsAdult(p) &&
		a.Age < menopause &&
		a.Repro.Gestation == nil &&
		a.Repro.Cooldown <= 0 &&
		a.InFertileWindow(p)
}

// CanMate is the shared precondition for starting the mating action.
func (a *Agent) CanMate(p tuning.Repro) bool {
	if !a.IsAdult(p) || a.Repro.Cooldown > 0 {
		return false
	}
	if a.Sex == SexFemale && a.Repro.Gestation != nil {
		return false
	}
	return true
}
