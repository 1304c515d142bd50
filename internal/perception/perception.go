// Package perception turns observable presentation into the biased
// impressions agents act on. Every function is pure over its inputs:
// an Observer (the agent's own state, which it knows exactly) and a
// redacted view of something else. True needs and traits of other
// agents never enter this package; the engine quantizes them into
// bands and flags before building a view.
package perception

import (
	"math"
	"math/rand"

	"github.com/talgya/hearthvale/internal/registry"
	"github.com/talgya/hearthvale/internal/tuning"
	"github.com/talgya/hearthvale/internal/world"
)

// Band is the coarse appearance scale used for anything internal to
// another agent. Quantization is the redaction.
type Band uint8

const (
	BandCritical Band = iota
	BandPoor
	BandFair
	BandGood
)

// BandOf quantizes a 0..100 value into an appearance band.
func BandOf(v float64) Band {
	switch {
	case v < 15:
		return BandCritical
	case v < 40:
		return BandPoor
	case v < 75:
		return BandFair
	default:
		return BandGood
	}
}

func (b Band) String() string {
	switch b {
	case BandCritical:
		return "critical"
	case BandPoor:
		return "poor"
	case BandFair:
		return "fair"
	}
	return "good"
}

// Observer is the perceiving agent's own state plus its noise source.
type Observer struct {
	Intelligence float64
	Courage      float64
	Charisma     float64
	Age          float64
	Female       bool

	Health float64 // own needs, exact; you know yourself
	Hunger float64
	Thirst float64
	Energy float64

	Rng *rand.Rand
	P   tuning.Perception
}

// noise returns a symmetric perception error scaled down by
// intelligence. Dull observers misjudge more.
func (o Observer) noise() float64 {
	amp := o.P.NoiseAmp * (1 - 0.8*o.Intelligence)
	return (o.Rng.Float64()*2 - 1) * amp
}

// FoeView is the observable presentation of a hostile agent.
type FoeView struct {
	Armed      bool
	Armored    bool
	HealthBand Band
	Size       float64 // stature: adult 1.0 down to baby 0.3
	Fighting   bool
}

type ThreatAssessment struct {
	Danger     float64 // [0,1]
	Flee       bool
	Confidence float64 // how much the estimate can be trusted
}

// PerceiveThreat estimates how dangerous a foe looks and whether to
// run. Courage raises the flee bar; low health makes anything scarier.
func PerceiveThreat(o Observer, foe FoeView) ThreatAssessment {
	danger := 0.3
	if foe.Armed {
		danger += 0.25
	}
	if foe.Armored {
		danger += 0.10
	}
	danger += 0.2 * foe.Size
	if foe.Fighting {
		danger += 0.10
	}
	if foe.HealthBand <= BandPoor {
		danger -= 0.15 // a wounded foe looks beatable
	}

	amp := o.P.NoiseAmp * (1 - 0.8*o.Intelligence)
	danger = world.Clamp(danger+o.noise(), 0, 1)

	vulnerability := (1 - o.Health/100) * 0.5
	threshold := o.P.FleeBase + o.Courage*o.P.FleeCourageSpan

	return ThreatAssessment{
		Danger:     danger,
		Flee:       danger+vulnerability > threshold,
		Confidence: world.Clamp(1-amp, 0, 1),
	}
}

// StockLabel is the impression of how full a stock is relative to the
// household depending on it.
type StockLabel uint8

const (
	StockEmpty StockLabel = iota
	StockLow
	StockAdequate
	StockSurplus
	StockAbundant
)

func (l StockLabel) String() string {
	switch l {
	case StockEmpty:
		return "empty"
	case StockLow:
		return "low"
	case StockAdequate:
		return "adequate"
	case StockSurplus:
		return "surplus"
	case StockAbundant:
		return "abundant"
	}
	return "unknown"
}

type StockView struct {
	Counts map[registry.ItemID]int
	Label  StockLabel
}

// PerceiveStock fuzzes item counts unless the observer is sharp enough
// to tally exactly, then labels the food situation for the household.
func PerceiveStock(o Observer, reg *registry.Registry, counts map[registry.ItemID]int, household int) StockView {
	if household < 1 {
		household = 1
	}
	out := StockView{Counts: make(map[registry.ItemID]int, len(counts))}
	exact := o.Intelligence >= o.P.ExactCutoff

	food := 0
	for item, n := range counts {
		perceived := n
		if !exact && n > 0 {
			perceived = int(math.Round(float64(n) * (1 + o.noise())))
			if perceived < 0 {
				perceived = 0
			}
		}
		out.Counts[item] = perceived
		if def, ok := reg.Item(item); ok && def.Edible() {
			food += perceived
		}
	}

	perHead := float64(food) / float64(household)
	switch {
	case food == 0:
		out.Label = StockEmpty
	case perHead < 2:
		out.Label = StockLow
	case perHead < 6:
		out.Label = StockAdequate
	case perHead < 12:
		out.Label = StockSurplus
	default:
		out.Label = StockAbundant
	}
	return out
}

// NPCView is the observable presentation of another agent.
type NPCView struct {
	ID         uint64
	HealthBand Band
	EnergyBand Band
	Armed      bool
	Armored    bool
	Sleeping   bool
	Fighting   bool
	Adult      bool
	Size       float64
}

type NPCImpression struct {
	LooksHealthy   bool
	LooksStrong    bool
	LooksEnergetic bool
	IsSleeping     bool
	IsFighting     bool
	KnownRelative  bool
	Affinity       float64
}

// PerceiveNPC forms an impression of a nearby agent. Kin and affinity
// come from the observer's own memory and pass through untouched; the
// looks are band thresholds that sharpen with intelligence.
func PerceiveNPC(o Observer, v NPCView, kin bool, affinity float64) NPCImpression {
	healthy := v.HealthBand >= BandFair
	energetic := v.EnergyBand >= BandFair
	if o.Intelligence < 0.3 {
		// Dull observers only notice the extremes.
		healthy = v.HealthBand >= BandPoor
		energetic = v.EnergyBand >= BandPoor
	}
	return NPCImpression{
		LooksHealthy:   healthy,
		LooksStrong:    v.Armed || (v.Adult && v.Size >= 1),
		LooksEnergetic: energetic,
		IsSleeping:     v.Sleeping,
		IsFighting:     v.Fighting,
		KnownRelative:  kin,
		Affinity:       affinity,
	}
}

type SelfAssessment struct {
	GoodCondition bool
	Band          Band
	Hungry        bool
	Thirsty       bool
	Exhausted     bool
}

// AssessSelf is exact: agents know their own state.
func AssessSelf(o Observer) SelfAssessment {
	return SelfAssessment{
		GoodCondition: o.Health >= 60 && o.Hunger >= 30 && o.Thirst >= 30 && o.Energy >= 25,
		Band:          BandOf(o.Health),
		Hungry:        o.Hunger < 40,
		Thirsty:       o.Thirst < 40,
		Exhausted:     o.Energy < 20,
	}
}

// MateView is the observable presentation of a courtship candidate,
// plus what the observer already knows about it.
type MateView struct {
	ID         uint64
	Female     bool
	Adult      bool
	Age        float64 // apparent age; stature and bearing give it away
	HealthBand Band
	Single     bool // no known mate bond
	Kin        bool
	Affinity   float64
}

type MateOpinion struct {
	Acceptable bool
	Score      float64
}

// EvaluateMate decides whether the candidate is worth courting or
// accepting. Kin and taken agents never qualify; fertility and age gap
// rules apply; charismatic observers can afford to be picky.
func EvaluateMate(o Observer, c MateView) MateOpinion {
	if !c.Adult || c.Kin || !c.Single {
		return MateOpinion{}
	}
	if c.Female && c.Age >= o.P.MenopauseAge {
		return MateOpinion{}
	}
	if c.HealthBand < BandFair {
		return MateOpinion{}
	}

	tolerance := o.P.AgeGapBase + o.P.AgeGapPerYear*o.Age
	gap := math.Abs(o.Age - c.Age)
	if gap > tolerance {
		return MateOpinion{}
	}

	minAffinity := o.P.MateMinAffinity * (0.5 + o.Charisma)
	if c.Affinity < minAffinity {
		return MateOpinion{}
	}

	score := c.Affinity + 0.1*float64(c.HealthBand) + 0.2*(1-gap/tolerance)
	return MateOpinion{Acceptable: true, Score: score}
}
