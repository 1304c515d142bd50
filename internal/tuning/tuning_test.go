package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default params invalid: %v", err)
	}
}

func TestYearSecondsDerived(t *testing.T) {
	p := Default()
	want := 4 * p.Time.SeasonDays * p.Time.DaySeconds
	if got := p.Time.YearSeconds(); got != want {
		t.Fatalf("YearSeconds = %v, want %v", got, want)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.yaml")
	doc := "combat:\n  base_damage: 12\nai:\n  eat_at_hunger: 50\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Combat.BaseDamage != 12 {
		t.Errorf("combat.base_damage = %v, want 12", p.Combat.BaseDamage)
	}
	if p.AI.EatAtHunger != 50 {
		t.Errorf("ai.eat_at_hunger = %v, want 50", p.AI.EatAtHunger)
	}
	// Untouched fields keep their defaults.
	if p.Combat.AttackRange != Default().Combat.AttackRange {
		t.Errorf("attack_range changed without an override")
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	p, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}
	if p != Default() {
		t.Fatalf("empty path should return defaults")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"zero tick", "time:\n  tick_seconds: 0\n"},
		{"inverted price band", "economy:\n  price_floor_mult: 5\n"},
		{"empty fertile window", "reproduction:\n  fertile_start_day: 4\n  fertile_end_day: 4\n"},
		{"bad stage order", "reproduction:\n  adolescent_age: 1\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "tuning.yaml")
			if err := os.WriteFile(path, []byte(tc.doc), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Fatalf("Load accepted invalid tuning %q", tc.doc)
			}
		})
	}
}
