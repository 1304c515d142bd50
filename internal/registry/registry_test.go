package registry

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBuiltinValidates(t *testing.T) {
	r := Builtin()
	if err := r.Validate(); err != nil {
		t.Fatalf("builtin registry invalid: %v", err)
	}
	if r.Digest == "" {
		t.Fatal("builtin registry missing digest")
	}
}

func TestEveryJobPrimaryIsGatherable(t *testing.T) {
	r := Builtin()
	gatherable := map[ItemID]bool{}
	for _, id := range r.GatherableItems() {
		gatherable[id] = true
	}
	for id, job := range r.Jobs {
		if job.Gathers == "" {
			continue
		}
		if !gatherable[job.Gathers] {
			t.Errorf("job %s primary %s not gatherable", id, job.Gathers)
		}
	}
	if !gatherable[Wood] {
		t.Error("wood must always be gatherable")
	}
}

func TestNutritionLookup(t *testing.T) {
	r := Builtin()
	hunger, thirst := r.Nutrition("berries")
	if hunger <= 0 {
		t.Errorf("berries nutrition = %v, want positive", hunger)
	}
	if thirst <= 0 {
		t.Errorf("berries hydration = %v, want positive", thirst)
	}
	hunger, thirst = r.Nutrition("no-such-item")
	if hunger != 0 || thirst != 0 {
		t.Errorf("unknown item restores (%v,%v), want (0,0)", hunger, thirst)
	}
}

func TestEquipmentLookups(t *testing.T) {
	r := Builtin()
	if got := r.WeaponDamage("spear"); got <= 0 {
		t.Errorf("spear damage = %v, want positive", got)
	}
	if got := r.WeaponDamage("bread"); got != 0 {
		t.Errorf("bread damage = %v, want 0", got)
	}
	if got := r.ArmorDefense("wooden_shield"); got <= 0 {
		t.Errorf("shield defense = %v, want positive", got)
	}
	if got := r.ArmorDefense("spear"); got != 0 {
		t.Errorf("spear defense = %v, want 0 (not armor)", got)
	}
}

func TestLoadOverridesItems(t *testing.T) {
	dir := t.TempDir()
	doc := `[
		{"id":"acorns","name":"Acorns","category":"food","nutrition":10,"base_price":1},
		{"id":"water","name":"Water","category":"drink","hydration":35,"base_price":1},
		{"id":"wood","name":"Wood","category":"material","base_price":2},
		{"id":"wheat","name":"Wheat","category":"food","nutrition":8,"base_price":1.5},
		{"id":"bread","name":"Bread","category":"food","nutrition":50,"base_price":4},
		{"id":"meat","name":"Meat","category":"food","nutrition":40,"base_price":3},
		{"id":"smoked_meat","name":"Smoked Meat","category":"food","nutrition":65,"base_price":6},
		{"id":"fish","name":"Fish","category":"food","nutrition":35,"base_price":2.5},
		{"id":"berries","name":"Berries","category":"food","nutrition":25,"base_price":2},
		{"id":"spear","name":"Spear","category":"weapon","damage":6,"base_price":8},
		{"id":"wooden_shield","name":"Wooden Shield","category":"armor","defense":3,"base_price":7}
	]`
	if err := os.WriteFile(filepath.Join(dir, "items.json"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := r.Item("acorns"); !ok {
		t.Error("override item missing")
	}
	// Recipes stayed builtin and still validate against the new items.
	if _, ok := r.Recipe("bake_bread"); !ok {
		t.Error("builtin recipe lost on partial override")
	}
	if r.Digest == Builtin().Digest {
		t.Error("digest unchanged after override")
	}
}

func TestLoadRejectsDanglingReferences(t *testing.T) {
	dir := t.TempDir()
	doc := `[{"id":"ghost_pie","job":"farmer","inputs":[{"item":"ectoplasm","qty":1}],"outputs":[{"item":"bread","qty":1}],"time_sec":5}]`
	if err := os.WriteFile(filepath.Join(dir, "recipes.json"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatal("Load accepted recipe with unknown input item")
	}
}
