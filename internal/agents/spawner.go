package agents

import (
	"fmt"
	"math/rand"

	"github.com/talgya/hearthvale/internal/registry"
	"github.com/talgya/hearthvale/internal/tuning"
	"github.com/talgya/hearthvale/internal/world"
)

// Spawner creates agents: the founding generation at world start and
// newborns during the run. It owns its own rng stream so that agent
// generation stays reproducible regardless of how often the simulation
// rng is consumed elsewhere.
type Spawner struct {
	rng    *rand.Rand
	nextID AgentID
}

// NewSpawner creates an agent spawner with the given seed.
func NewSpawner(seed int64) *Spawner {
	return &Spawner{
		rng:    rand.New(rand.NewSource(seed + 300)),
		nextID: 1,
	}
}

// SetNextID sets the next agent ID to be issued (used when restoring from DB).
func (s *Spawner) SetNextID(id AgentID) {
	s.nextID = id
}

// PeekNextID returns the next ID that would be issued, without consuming it.
func (s *Spawner) PeekNextID() AgentID {
	return s.nextID
}

func (s *Spawner) issueID() AgentID {
	id := s.nextID
	s.nextID++
	return id
}

// NewFounder creates an adult member of the founding population at pos.
// Founders arrive with rolled traits, a random job, and an age drawn from
// a bell curve centered on young adulthood.
func (s *Spawner) NewFounder(pos world.Vec2, reg *registry.Registry, p tuning.Repro) *Agent {
	sex := SexFemale
	if s.rng.Float64() < 0.5 {
		sex = SexMale
	}

	a := &Agent{
		ID:     s.issueID(),
		Sex:    sex,
		Age:    s.weightedAge(p),
		Job:    s.randomJob(reg),
		Pos:    pos,
		Color:  s.rng.Float64() * 360,
		Traits: RollTraits(s.rng),
		Needs:  DefaultNeeds(),
	}
	a.Name = s.generateName(sex)
	if sex == SexFemale {
		// Stagger cycles so the founding women are not synchronized.
		a.Repro.CycleDay = s.rng.Float64() * p.CycleDays
	}
	return a
}

// NewBaby creates a newborn at the mother's position. Traits are inherited
// from both parents with mutation; memory inheritance and kinship wiring are
// the caller's job since those touch other agents.
func (s *Spawner) NewBaby(mother, father *Agent, p tuning.Repro) *Agent {
	sex := SexFemale
	if s.rng.Float64() < 0.5 {
		sex = SexMale
	}

	a := &Agent{
		ID:     s.issueID(),
		Sex:    sex,
		Age:    0,
		Pos:    mother.Pos,
		Color:  hueJitter(mother.Color, s.rng),
		Traits: InheritTraits(mother.Traits, father.Traits, p.MutationSpan, s.rng),
		Needs:  DefaultNeeds(),
	}
	a.Name = s.generateName(sex)
	a.HomeID = mother.HomeID
	a.FactionID = mother.FactionID
	return a
}

// weightedAge returns a founder age on a bell curve centered at 26 with
// stddev 7, clamped to working adult range. Founding villages skew young.
func (s *Spawner) weightedAge(p tuning.Repro) float64 {
	age := 26 + s.rng.NormFloat64()*7
	return world.Clamp(age, p.AdultAge, 50)
}

func (s *Spawner) randomJob(reg *registry.Registry) registry.JobID {
	jobs := reg.JobIDs()
	if len(jobs) == 0 {
		return ""
	}
	return jobs[s.rng.Intn(len(jobs))]
}

// hueJitter nudges a parent hue by up to 30 degrees either way, wrapping.
func hueJitter(hue float64, rng *rand.Rand) float64 {
	h := hue + (rng.Float64()*2-1)*30
	for h < 0 {
		h += 360
	}
	for h >= 360 {
		h -= 360
	}
	return h
}

func (s *Spawner) generateName(sex Sex) string {
	var first string
	if sex == SexFemale {
		first = femaleNames[s.rng.Intn(len(femaleNames))]
	} else {
		first = maleNames[s.rng.Intn(len(maleNames))]
	}
	last := lastNames[s.rng.Intn(len(lastNames))]
	return fmt.Sprintf("%s %s", first, last)
}

// Name pools for procedural generation.
var maleNames = []string{
	"Aldric", "Bram", "Cedric", "Doran", "Erik", "Finn", "Gareth",
	"Halvard", "Ivan", "Jasper", "Kael", "Leif", "Magnus", "Nils",
	"Oswin", "Per", "Quinn", "Rowan", "Stellan", "Theron", "Ulric",
	"Varen", "Wren", "Yorick", "Zander", "Arlen", "Beric", "Cade",
	"Dorian", "Edric", "Falk", "Gunnar", "Hugo", "Ivar", "Jorik",
}

var femaleNames = []string{
	"Astrid", "Brenna", "Calla", "Daria", "Elara", "Freya", "Greta",
	"Helene", "Iris", "Juno", "Kira", "Lena", "Mira", "Nessa",
	"Olwen", "Petra", "Runa", "Senna", "Thea", "Una", "Vera",
	"Willa", "Yara", "Zara", "Ava", "Birgit", "Cora", "Dagny",
	"Eira", "Fern", "Gwen", "Hilde", "Inga", "Johanna", "Katla",
}

var lastNames = []string{
	"Voss", "Thornwood", "Blackwood", "Ashford", "Ironhand", "Dunmore",
	"Greenvale", "Stormcrow", "Frostborn", "Hearthstone", "Millward",
	"Copperfield", "Ravenmoor", "Silverdale", "Wolfsbane", "Stoneheart",
	"Deepwell", "Brightwater", "Oakenshield", "Redforge", "Windholm",
	"Marshwood", "Goldhaven", "Nightingale", "Riverstone", "Steelworth",
	"Embercroft", "Holloway", "Dawnridge", "Farrow", "Wyatt", "Thatcher",
	"Briar", "Caldwell", "Frost", "Harper", "Mercer", "Ward", "Cross",
}
