// Package registry holds the static item, recipe and job catalogs the
// simulation consumes read-only. The compiled-in defaults describe the
// reference village; a config directory can override any catalog with
// JSON of the same shape.
package registry

import (
	"fmt"
	"sort"
)

type (
	ItemID   string
	RecipeID string
	JobID    string
)

// Category buckets items for perception labels and market demand.
type Category string

const (
	CategoryFood     Category = "food"
	CategoryDrink    Category = "drink"
	CategoryMaterial Category = "material"
	CategoryWeapon   Category = "weapon"
	CategoryArmor    Category = "armor"
)

// Wood is referenced directly by the build-home behavior.
const Wood ItemID = "wood"

type ItemDef struct {
	ID        ItemID   `json:"id"`
	Name      string   `json:"name"`
	Category  Category `json:"category"`
	Nutrition float64  `json:"nutrition,omitempty"` // hunger restored per unit
	Hydration float64  `json:"hydration,omitempty"` // thirst restored per unit
	Damage    float64  `json:"damage,omitempty"`
	Defense   float64  `json:"defense,omitempty"`
	BasePrice float64  `json:"base_price"`
}

// Edible reports whether consuming the item moves any need.
func (d ItemDef) Edible() bool { return d.Nutrition > 0 || d.Hydration > 0 }

type ItemCount struct {
	Item ItemID `json:"item"`
	Qty  int    `json:"qty"`
}

type RecipeDef struct {
	ID      RecipeID    `json:"id"`
	Job     JobID       `json:"job"`     // empty means any job may craft it
	Station string      `json:"station"` // building kind required, empty means anywhere owned
	Inputs  []ItemCount `json:"inputs"`
	Outputs []ItemCount `json:"outputs"`
	TimeSec float64     `json:"time_sec"`
}

type JobDef struct {
	ID      JobID      `json:"id"`
	Name    string     `json:"name"`
	Gathers ItemID     `json:"gathers"` // primary resource for the gather behavior
	Recipes []RecipeID `json:"recipes,omitempty"`
}

// Registry is immutable after Load; the engine and AI only read it.
type Registry struct {
	Items   map[ItemID]ItemDef
	Recipes map[RecipeID]RecipeDef
	Jobs    map[JobID]JobDef

	// Digest identifies the loaded catalog set for snapshots and the API.
	Digest string
}

func (r *Registry) Item(id ItemID) (ItemDef, bool) {
	d, ok := r.Items[id]
	return d, ok
}

func (r *Registry) Recipe(id RecipeID) (RecipeDef, bool) {
	d, ok := r.Recipes[id]
	return d, ok
}

func (r *Registry) Job(id JobID) (JobDef, bool) {
	d, ok := r.Jobs[id]
	return d, ok
}

// Nutrition returns the hunger/thirst restored by one unit of the item.
// Unknown items restore nothing.
func (r *Registry) Nutrition(id ItemID) (hunger, thirst float64) {
	d, ok := r.Items[id]
	if !ok {
		return 0, 0
	}
	return d.Nutrition, d.Hydration
}

// WeaponDamage returns the damage bonus of the item, zero for non-weapons.
func (r *Registry) WeaponDamage(id ItemID) float64 {
	d, ok := r.Items[id]
	if !ok || d.Category != CategoryWeapon {
		return 0
	}
	return d.Damage
}

// ArmorDefense returns the defense of the item, zero for non-armor.
func (r *Registry) ArmorDefense(id ItemID) float64 {
	d, ok := r.Items[id]
	if !ok || d.Category != CategoryArmor {
		return 0
	}
	return d.Defense
}

// GatherableItems lists every item some fertile zone can yield, which is
// every job's primary plus water and wood.
func (r *Registry) GatherableItems() []ItemID {
	seen := map[ItemID]bool{}
	var out []ItemID
	add := func(id ItemID) {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, j := range sortedJobs(r.Jobs) {
		add(j.Gathers)
	}
	add("water")
	add(Wood)
	return out
}

// ItemIDs lists every item ID in sorted order.
func (r *Registry) ItemIDs() []ItemID {
	ids := make([]ItemID, 0, len(r.Items))
	for id := range r.Items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// JobIDs lists every job ID in sorted order.
func (r *Registry) JobIDs() []JobID {
	var out []JobID
	for _, j := range sortedJobs(r.Jobs) {
		out = append(out, j.ID)
	}
	return out
}

// Validate checks cross-references between the catalogs.
func (r *Registry) Validate() error {
	for id, rec := range r.Recipes {
		if rec.Job != "" {
			if _, ok := r.Jobs[rec.Job]; !ok {
				return fmt.Errorf("recipe %s references unknown job %s", id, rec.Job)
			}
		}
		if len(rec.Inputs) == 0 || len(rec.Outputs) == 0 {
			return fmt.Errorf("recipe %s needs at least one input and output", id)
		}
		for _, ic := range append(append([]ItemCount{}, rec.Inputs...), rec.Outputs...) {
			if _, ok := r.Items[ic.Item]; !ok {
				return fmt.Errorf("recipe %s references unknown item %s", id, ic.Item)
			}
			if ic.Qty < 1 {
				return fmt.Errorf("recipe %s has non-positive quantity for %s", id, ic.Item)
			}
		}
		if rec.TimeSec <= 0 {
			return fmt.Errorf("recipe %s needs positive time", id)
		}
	}
	for id, job := range r.Jobs {
		if _, ok := r.Items[job.Gathers]; job.Gathers != "" && !ok {
			return fmt.Errorf("job %s gathers unknown item %s", id, job.Gathers)
		}
		for _, rid := range job.Recipes {
			if _, ok := r.Recipes[rid]; !ok {
				return fmt.Errorf("job %s references unknown recipe %s", id, rid)
			}
		}
	}
	for id, item := range r.Items {
		if item.BasePrice <= 0 {
			return fmt.Errorf("item %s needs a positive base price", id)
		}
	}
	return nil
}

// Builtin returns the compiled-in reference catalogs.
func Builtin() *Registry {
	r := &Registry{
		Items:   map[ItemID]ItemDef{},
		Recipes: map[RecipeID]RecipeDef{},
		Jobs:    map[JobID]JobDef{},
	}
	for _, d := range builtinItems {
		r.Items[d.ID] = d
	}
	for _, d := range builtinRecipes {
		r.Recipes[d.ID] = d
	}
	for _, d := range builtinJobs {
		r.Jobs[d.ID] = d
	}
	r.Digest = digest(r)
	return r
}

var builtinItems = []ItemDef{
	{ID: "berries", Name: "Berries", Category: CategoryFood, Nutrition: 25, Hydration: 5, BasePrice: 2},
	{ID: "water", Name: "Water", Category: CategoryDrink, Hydration: 35, BasePrice: 1},
	{ID: "wheat", Name: "Wheat", Category: CategoryFood, Nutrition: 8, BasePrice: 1.5},
	{ID: "bread", Name: "Bread", Category: CategoryFood, Nutrition: 50, BasePrice: 4},
	{ID: "meat", Name: "Meat", Category: CategoryFood, Nutrition: 40, BasePrice: 3},
	{ID: "smoked_meat", Name: "Smoked Meat", Category: CategoryFood, Nutrition: 65, BasePrice: 6},
	{ID: "fish", Name: "Fish", Category: CategoryFood, Nutrition: 35, Hydration: 5, BasePrice: 2.5},
	{ID: "wood", Name: "Wood", Category: CategoryMaterial, BasePrice: 2},
	{ID: "spear", Name: "Spear", Category: CategoryWeapon, Damage: 6, BasePrice: 8},
	{ID: "wooden_shield", Name: "Wooden Shield", Category: CategoryArmor, Defense: 3, BasePrice: 7},
}

var builtinRecipes = []RecipeDef{
	{
		ID: "bake_bread", Job: "farmer", Station: "cabin",
		Inputs:  []ItemCount{{Item: "wheat", Qty: 2}},
		Outputs: []ItemCount{{Item: "bread", Qty: 1}},
		TimeSec: 18,
	},
	{
		ID: "smoke_meat", Job: "hunter", Station: "cabin",
		Inputs:  []ItemCount{{Item: "meat", Qty: 1}, {Item: "wood", Qty: 1}},
		Outputs: []ItemCount{{Item: "smoked_meat", Qty: 1}},
		TimeSec: 24,
	},
	{
		ID: "carve_spear", Job: "hunter", Station: "cabin",
		Inputs:  []ItemCount{{Item: "wood", Qty: 2}},
		Outputs: []ItemCount{{Item: "spear", Qty: 1}},
		TimeSec: 20,
	},
	{
		ID: "carve_shield", Job: "woodcutter", Station: "cabin",
		Inputs:  []ItemCount{{Item: "wood", Qty: 3}},
		Outputs: []ItemCount{{Item: "wooden_shield", Qty: 1}},
		TimeSec: 26,
	},
}

var builtinJobs = []JobDef{
	{ID: "forager", Name: "Forager", Gathers: "berries"},
	{ID: "farmer", Name: "Farmer", Gathers: "wheat", Recipes: []RecipeID{"bake_bread"}},
	{ID: "hunter", Name: "Hunter", Gathers: "meat", Recipes: []RecipeID{"smoke_meat", "carve_spear"}},
	{ID: "fisher", Name: "Fisher", Gathers: "fish"},
	{ID: "woodcutter", Name: "Woodcutter", Gathers: "wood", Recipes: []RecipeID{"carve_shield"}},
	{ID: "waterbearer", Name: "Water Bearer", Gathers: "water"},
}
