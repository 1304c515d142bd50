// Package tuning holds every gameplay constant in one place, loadable
// from YAML so a world can be rebalanced without recompiling.
package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Params is the full tuning surface of a world. Zero values are never
// meaningful; always start from Default.
type Params struct {
	Time       Time       `yaml:"time"`
	Needs      Needs      `yaml:"needs"`
	AI         AI         `yaml:"ai"`
	Knowledge  Knowledge  `yaml:"knowledge"`
	Perception Perception `yaml:"perception"`
	Repro      Repro      `yaml:"reproduction"`
	Economy    Economy    `yaml:"economy"`
	Combat     Combat     `yaml:"combat"`
	Faction    Faction    `yaml:"faction"`
	Macro      Macro      `yaml:"macro"`
	World      World      `yaml:"world"`
	Building   Building   `yaml:"building"`
}

// Time maps sim-seconds onto the game calendar.
type Time struct {
	TickSeconds   float64 `yaml:"tick_seconds"`   // dt of one engine tick at speed 1
	DaySeconds    float64 `yaml:"day_seconds"`    // one game day
	NightFraction float64 `yaml:"night_fraction"` // trailing part of the day that is dark
	SeasonDays    float64 `yaml:"season_days"`    // days per season, four seasons per year
}

// YearSeconds is derived: four seasons of SeasonDays days.
func (t Time) YearSeconds() float64 { return 4 * t.SeasonDays * t.DaySeconds }

// Needs rates operate on 0..100 scales, per sim-second.
type Needs struct {
	HungerDecay        float64 `yaml:"hunger_decay"`
	ThirstDecay        float64 `yaml:"thirst_decay"`
	ReserveDecay       float64 `yaml:"reserve_decay"`        // drains once the primary need is empty
	ExposureBaseDPS    float64 `yaml:"exposure_base_dps"`    // health damage once reserves are gone
	ExposureRampSec    float64 `yaml:"exposure_ramp_sec"`    // damage doubles every ramp interval
	EnergyDecayAwake   float64 `yaml:"energy_decay_awake"`
	NightEnergyMult    float64 `yaml:"night_energy_mult"`
	EnergyRestoreSleep float64 `yaml:"energy_restore_sleep"`
	RegenHPS           float64 `yaml:"regen_hps"` // health regained while comfortable
	ComfortHunger      float64 `yaml:"comfort_hunger"`
	ComfortThirst      float64 `yaml:"comfort_thirst"`
	ComfortEnergy      float64 `yaml:"comfort_energy"`
	HappinessRate      float64 `yaml:"happiness_rate"` // max drift toward target, per second
	HomelessPenalty    float64 `yaml:"homeless_penalty"`
	ChildFeedThreshold float64 `yaml:"child_feed_threshold"`
	BabyNeedsMult      float64 `yaml:"baby_needs_mult"`
	DebuffFloor        float64 `yaml:"debuff_floor"` // worst-case capability multiplier
	OldAge             float64 `yaml:"old_age"`      // years; mortality grows quadratically past it
	MortalityQuadPS    float64 `yaml:"mortality_quad_ps"`
	CorpseDecaySec     float64 `yaml:"corpse_decay_sec"`
}

// AI controls the decision cadence and the planner's trigger bands.
type AI struct {
	ThinkBaseSec   float64 `yaml:"think_base_sec"`
	ThinkJitterSec float64 `yaml:"think_jitter_sec"`
	EatAtHunger    float64 `yaml:"eat_at_hunger"`
	DrinkAtThirst  float64 `yaml:"drink_at_thirst"`
	SleepAtEnergy  float64 `yaml:"sleep_at_energy"`
	RestAtEnergy   float64 `yaml:"rest_at_energy"`
	RestToEnergy   float64 `yaml:"rest_to_energy"`
	ArriveEps      float64 `yaml:"arrive_eps"`
	ExploreStep    float64 `yaml:"explore_step"`
	HomeNearRadius float64 `yaml:"home_near_radius"`
}

type Knowledge struct {
	MergeRadius       float64 `yaml:"merge_radius"`
	FirsthandBoost    float64 `yaml:"firsthand_boost"`
	SearchPenalty     float64 `yaml:"search_penalty"`
	DistPenaltyScale  float64 `yaml:"dist_penalty_scale"`
	ConsolidateRadius float64 `yaml:"consolidate_radius"`
	ConsolidateBoost  float64 `yaml:"consolidate_boost"`
	HearsayFade       float64 `yaml:"hearsay_fade"`
	MinKeep           float64 `yaml:"min_keep"`
	MaxZones          int     `yaml:"max_zones"`
	ShareZoneMax      int     `yaml:"share_zone_max"`
	ShareFloor        float64 `yaml:"share_floor"`
	ShareGap          float64 `yaml:"share_gap"`
	ShareCap          float64 `yaml:"share_cap"`
	GreetCooldownSec  float64 `yaml:"greet_cooldown_sec"`
	GreetAffinity     float64 `yaml:"greet_affinity"`
	GreetRadius       float64 `yaml:"greet_radius"`
}

type Perception struct {
	NoiseAmp        float64 `yaml:"noise_amp"`
	ExactCutoff     float64 `yaml:"exact_cutoff"` // intelligence above which counts are exact
	FleeBase        float64 `yaml:"flee_base"`
	FleeCourageSpan float64 `yaml:"flee_courage_span"`
	MateMinAffinity float64 `yaml:"mate_min_affinity"`
	AgeGapBase      float64 `yaml:"age_gap_base"`     // tolerated years at adulthood
	AgeGapPerYear   float64 `yaml:"age_gap_per_year"` // extra tolerance per year of own age
	MenopauseAge    float64 `yaml:"menopause_age"`
}

type Repro struct {
	DesireRate       float64 `yaml:"desire_rate"`
	CourtThreshold   float64 `yaml:"court_threshold"`
	CycleDays        float64 `yaml:"cycle_days"`
	FertileStartDay  float64 `yaml:"fertile_start_day"`
	FertileEndDay    float64 `yaml:"fertile_end_day"`
	ConceptionChance float64 `yaml:"conception_chance"`
	GestationSec     float64 `yaml:"gestation_sec"`
	PostpartumSec    float64 `yaml:"postpartum_sec"`
	ProposalDist     float64 `yaml:"proposal_dist"`
	MatingSec        float64 `yaml:"mating_sec"`
	MutationSpan     float64 `yaml:"mutation_span"` // proportional, per trait
	InheritZoneMax   int     `yaml:"inherit_zone_max"`
	BirthEnergyCost  float64 `yaml:"birth_energy_cost"`
	AdultAge         float64 `yaml:"adult_age"`
	AdolescentAge    float64 `yaml:"adolescent_age"`
	ChildAge         float64 `yaml:"child_age"` // below this an agent is a baby
}

type Economy struct {
	PriceFloorMult   float64 `yaml:"price_floor_mult"`
	PriceCeilMult    float64 `yaml:"price_ceil_mult"`
	SellFraction     float64 `yaml:"sell_fraction"`
	AuditSec         float64 `yaml:"audit_sec"`
	TradeCooldown    float64 `yaml:"trade_cooldown"`
	TradeMinAffinity float64 `yaml:"trade_min_affinity"`
	SurplusPerHead   float64 `yaml:"surplus_per_head"` // stock above this per resident is tradable
}

type Combat struct {
	BaseDamage      float64 `yaml:"base_damage"`
	AggressionBonus float64 `yaml:"aggression_bonus"`
	CourageAtkBonus float64 `yaml:"courage_atk_bonus"`
	CourageDefBonus float64 `yaml:"courage_def_bonus"`
	VarianceSpan    float64 `yaml:"variance_span"` // ±fraction around 1.0
	AttackRange     float64 `yaml:"attack_range"`
	AttackCooldown  float64 `yaml:"attack_cooldown"`
}

type Faction struct {
	AuditSec        float64 `yaml:"audit_sec"`
	FamineFloor     float64 `yaml:"famine_floor"` // food units per member
	HostilityChance float64 `yaml:"hostility_chance"`
	CalmChance      float64 `yaml:"calm_chance"`
	RaidPowerRatio  float64 `yaml:"raid_power_ratio"`
	RaidStealFrac   float64 `yaml:"raid_steal_frac"`
	RaidInjury      float64 `yaml:"raid_injury"`
	RaidShock       float64 `yaml:"raid_shock"` // happiness lost by raided members
	RaidCooldown    float64 `yaml:"raid_cooldown"`
}

type Macro struct {
	EpidemicDailyChance float64 `yaml:"epidemic_daily_chance"`
	InfectRadius        float64 `yaml:"infect_radius"`
	InfectChance        float64 `yaml:"infect_chance"`
	ContagionCheckSec   float64 `yaml:"contagion_check_sec"`
	EpidemicSec         float64 `yaml:"epidemic_sec"`
	EpidemicDPS         float64 `yaml:"epidemic_dps"`
	EpidemicGatherMult  float64 `yaml:"epidemic_gather_mult"`
	FireDroughtChance   float64 `yaml:"fire_drought_chance"` // per day while drought holds
	FamineShock         float64 `yaml:"famine_shock"`
}

type World struct {
	HalfExtent     float64 `yaml:"half_extent"` // coords live in [-HalfExtent, HalfExtent]²
	FertileZones   int     `yaml:"fertile_zones"`
	ZoneRadius     float64 `yaml:"zone_radius"`
	ZoneCapacity   int     `yaml:"zone_capacity"`
	RespawnSec     float64 `yaml:"respawn_sec"`
	WeatherSlotSec float64 `yaml:"weather_slot_sec"`
}

type Building struct {
	CabinWoodCost    int     `yaml:"cabin_wood_cost"`
	PlotRadius       float64 `yaml:"plot_radius"`
	PlotSearchRadius float64 `yaml:"plot_search_radius"`
}

// Default returns the tuning the reference world ships with.
func Default() Params {
	return Params{
		Time: Time{
			TickSeconds:   0.1,
			DaySeconds:    240,
			NightFraction: 0.3,
			SeasonDays:    3,
		},
		Needs: Needs{
			HungerDecay:        0.35,
			ThirstDecay:        0.5,
			ReserveDecay:       0.5,
			ExposureBaseDPS:    0.4,
			ExposureRampSec:    120,
			EnergyDecayAwake:   0.18,
			NightEnergyMult:    1.6,
			EnergyRestoreSleep: 0.7,
			RegenHPS:           0.25,
			ComfortHunger:      60,
			ComfortThirst:      60,
			ComfortEnergy:      30,
			HappinessRate:      0.5,
			HomelessPenalty:    25,
			ChildFeedThreshold: 55,
			BabyNeedsMult:      0.6,
			DebuffFloor:        0.3,
			OldAge:             60,
			MortalityQuadPS:    2e-6,
			CorpseDecaySec:     600,
		},
		AI: AI{
			ThinkBaseSec:   0.9,
			ThinkJitterSec: 0.5,
			EatAtHunger:    60,
			DrinkAtThirst:  60,
			SleepAtEnergy:  15,
			RestAtEnergy:   35,
			RestToEnergy:   55,
			ArriveEps:      2.0,
			ExploreStep:    120,
			HomeNearRadius: 40,
		},
		Knowledge: Knowledge{
			MergeRadius:       30,
			FirsthandBoost:    0.25,
			SearchPenalty:     0.25,
			DistPenaltyScale:  150,
			ConsolidateRadius: 45,
			ConsolidateBoost:  0.1,
			HearsayFade:       0.15,
			MinKeep:           0.05,
			MaxZones:          24,
			ShareZoneMax:      3,
			ShareFloor:        0.5,
			ShareGap:          0.1,
			ShareCap:          0.8,
			GreetCooldownSec:  90,
			GreetAffinity:     0.03,
			GreetRadius:       25,
		},
		Perception: Perception{
			NoiseAmp:        0.35,
			ExactCutoff:     0.7,
			FleeBase:        0.6,
			FleeCourageSpan: 0.6,
			MateMinAffinity: 0.15,
			AgeGapBase:      6,
			AgeGapPerYear:   0.25,
			MenopauseAge:    45,
		},
		Repro: Repro{
			DesireRate:       0.25,
			CourtThreshold:   70,
			CycleDays:        6,
			FertileStartDay:  2,
			FertileEndDay:    4,
			ConceptionChance: 0.5,
			GestationSec:     480,
			PostpartumSec:    600,
			ProposalDist:     15,
			MatingSec:        20,
			MutationSpan:     0.08,
			InheritZoneMax:   8,
			BirthEnergyCost:  30,
			AdultAge:         14,
			AdolescentAge:    9,
			ChildAge:         2,
		},
		Economy: Economy{
			PriceFloorMult:   0.5,
			PriceCeilMult:    3.0,
			SellFraction:     0.7,
			AuditSec:         120,
			TradeCooldown:    180,
			TradeMinAffinity: 0.2,
			SurplusPerHead:   4,
		},
		Combat: Combat{
			BaseDamage:      8,
			AggressionBonus: 0.5,
			CourageAtkBonus: 0.25,
			CourageDefBonus: 0.2,
			VarianceSpan:    0.2,
			AttackRange:     6,
			AttackCooldown:  2.5,
		},
		Faction: Faction{
			AuditSec:        300,
			FamineFloor:     3,
			HostilityChance: 0.25,
			CalmChance:      0.15,
			RaidPowerRatio:  1.4,
			RaidStealFrac:   0.25,
			RaidInjury:      12,
			RaidShock:       10,
			RaidCooldown:    900,
		},
		Macro: Macro{
			EpidemicDailyChance: 0.04,
			InfectRadius:        20,
			InfectChance:        0.15,
			ContagionCheckSec:   10,
			EpidemicSec:         400,
			EpidemicDPS:         0.15,
			EpidemicGatherMult:  0.6,
			FireDroughtChance:   0.08,
			FamineShock:         20,
		},
		World: World{
			HalfExtent:     500,
			FertileZones:   14,
			ZoneRadius:     60,
			ZoneCapacity:   8,
			RespawnSec:     45,
			WeatherSlotSec: 120,
		},
		Building: Building{
			CabinWoodCost:    10,
			PlotRadius:       28,
			PlotSearchRadius: 120,
		},
	}
}

// Load reads YAML from path over the defaults. An empty path returns
// the defaults untouched.
func Load(path string) (Params, error) {
	p := Default()
	if path == "" {
		return p, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read tuning: %w", err)
	}
	if err := yaml.Unmarshal(b, &p); err != nil {
		return p, fmt.Errorf("parse tuning: %w", err)
	}
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("validate tuning: %w", err)
	}
	return p, nil
}

// Validate rejects values the engine cannot run with. It checks signs
// and orderings, not balance.
func (p Params) Validate() error {
	if p.Time.TickSeconds <= 0 {
		return fmt.Errorf("time.tick_seconds must be positive")
	}
	if p.Time.DaySeconds <= 0 || p.Time.SeasonDays <= 0 {
		return fmt.Errorf("time.day_seconds and time.season_days must be positive")
	}
	if p.Time.NightFraction < 0 || p.Time.NightFraction >= 1 {
		return fmt.Errorf("time.night_fraction must be in [0,1)")
	}
	if p.Needs.DebuffFloor <= 0 || p.Needs.DebuffFloor > 1 {
		return fmt.Errorf("needs.debuff_floor must be in (0,1]")
	}
	if p.AI.ThinkBaseSec <= 0 {
		return fmt.Errorf("ai.think_base_sec must be positive")
	}
	if p.Knowledge.MinKeep < 0 || p.Knowledge.MinKeep >= 1 {
		return fmt.Errorf("knowledge.min_keep must be in [0,1)")
	}
	if p.Knowledge.MaxZones < 1 {
		return fmt.Errorf("knowledge.max_zones must be at least 1")
	}
	if p.Repro.FertileStartDay >= p.Repro.FertileEndDay {
		return fmt.Errorf("reproduction fertile window is empty")
	}
	if p.Repro.FertileEndDay > p.Repro.CycleDays {
		return fmt.Errorf("reproduction fertile window exceeds cycle length")
	}
	if p.Repro.ChildAge >= p.Repro.AdolescentAge || p.Repro.AdolescentAge >= p.Repro.AdultAge {
		return fmt.Errorf("reproduction life stage ages must be increasing")
	}
	if p.Economy.PriceFloorMult <= 0 || p.Economy.PriceFloorMult >= p.Economy.PriceCeilMult {
		return fmt.Errorf("economy price band is inverted")
	}
	if p.Economy.SellFraction <= 0 || p.Economy.SellFraction > 1 {
		return fmt.Errorf("economy.sell_fraction must be in (0,1]")
	}
	if p.Combat.VarianceSpan < 0 || p.Combat.VarianceSpan >= 1 {
		return fmt.Errorf("combat.variance_span must be in [0,1)")
	}
	if p.World.HalfExtent <= 0 {
		return fmt.Errorf("world.half_extent must be positive")
	}
	if p.Building.CabinWoodCost < 1 {
		return fmt.Errorf("building.cabin_wood_cost must be at least 1")
	}
	return nil
}
