package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Load builds the registry from a config directory. Each of items.json,
// recipes.json and jobs.json is a JSON array replacing that catalog
// wholesale; missing files keep the builtin catalog. Empty dir returns
// the builtins.
func Load(dir string) (*Registry, error) {
	r := Builtin()
	if dir == "" {
		return r, nil
	}

	var items []ItemDef
	if ok, err := readJSON(filepath.Join(dir, "items.json"), &items); err != nil {
		return nil, err
	} else if ok {
		r.Items = map[ItemID]ItemDef{}
		for _, d := range items {
			r.Items[d.ID] = d
		}
	}

	var recipes []RecipeDef
	if ok, err := readJSON(filepath.Join(dir, "recipes.json"), &recipes); err != nil {
		return nil, err
	} else if ok {
		r.Recipes = map[RecipeID]RecipeDef{}
		for _, d := range recipes {
			r.Recipes[d.ID] = d
		}
	}

	var jobs []JobDef
	if ok, err := readJSON(filepath.Join(dir, "jobs.json"), &jobs); err != nil {
		return nil, err
	} else if ok {
		r.Jobs = map[JobID]JobDef{}
		for _, d := range jobs {
			r.Jobs[d.ID] = d
		}
	}

	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("registry %s: %w", dir, err)
	}
	r.Digest = digest(r)
	return r, nil
}

// readJSON reports whether the file existed. A missing file is not an
// error; a malformed one is.
func readJSON(path string, v any) (bool, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	return true, nil
}

// digest hashes the canonical JSON of the sorted catalogs so two worlds
// can tell whether they run the same static data.
func digest(r *Registry) string {
	h := sha256.New()
	enc := json.NewEncoder(h)
	for _, d := range sortedItems(r.Items) {
		_ = enc.Encode(d)
	}
	for _, d := range sortedRecipes(r.Recipes) {
		_ = enc.Encode(d)
	}
	for _, d := range sortedJobs(r.Jobs) {
		_ = enc.Encode(d)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func sortedItems(m map[ItemID]ItemDef) []ItemDef {
	out := make([]ItemDef, 0, len(m))
	for _, d := range m {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func sortedRecipes(m map[RecipeID]RecipeDef) []RecipeDef {
	out := make([]RecipeDef, 0, len(m))
	for _, d := range m {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func sortedJobs(m map[JobID]JobDef) []JobDef {
	out := make([]JobDef, 0, len(m))
	for _, d := range m {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
