package world

import "github.com/talgya/hearthvale/internal/tuning"

// Season of the game year. Four equal seasons.
type Season uint8

const (
	SeasonSpring Season = iota
	SeasonSummer
	SeasonAutumn
	SeasonWinter
)

func (s Season) String() string {
	switch s {
	case SeasonSpring:
		return "spring"
	case SeasonSummer:
		return "summer"
	case SeasonAutumn:
		return "autumn"
	case SeasonWinter:
		return "winter"
	}
	return "unknown"
}

// RespawnMult scales fertile zone regrowth: lush spring, dead winter.
func (s Season) RespawnMult() float64 {
	switch s {
	case SeasonSpring:
		return 1.25
	case SeasonSummer:
		return 1.0
	case SeasonAutumn:
		return 0.8
	case SeasonWinter:
		return 0.4
	}
	return 1.0
}

// Clock derives the game calendar from accumulated sim-seconds.
type Clock struct {
	T tuning.Time
}

// Day counts whole game days since the world began.
func (c Clock) Day(now float64) int {
	return int(now / c.T.DaySeconds)
}

// TimeOfDay is the fraction of the current day in [0,1).
func (c Clock) TimeOfDay(now float64) float64 {
	f := now / c.T.DaySeconds
	return f - float64(int(f))
}

// IsNight reports whether the trailing NightFraction of the day holds.
func (c Clock) IsNight(now float64) bool {
	return c.TimeOfDay(now) >= 1-c.T.NightFraction
}

// Season returns the season of the current day.
func (c Clock) Season(now float64) Season {
	dayOfYear := int(now/c.T.DaySeconds) % int(4*c.T.SeasonDays)
	idx := int(float64(dayOfYear) / c.T.SeasonDays)
	if idx > 3 {
		idx = 3
	}
	return Season(idx)
}

// Years elapsed since the world began, fractional.
func (c Clock) Years(now float64) float64 {
	return now / c.T.YearSeconds()
}
