// Package world owns continuous 2D space and everything placed in it:
// resource nodes, storage stocks, buildings, corpses and the fertile
// zones that respawn resources. Agents live in the engine arena and
// reference world entities by ID.
package world

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Vec2 is a position or displacement in world units.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vec2) Add(o Vec2) Vec2      { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2      { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Scale(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }

func (v Vec2) Len() float64 { return math.Hypot(v.X, v.Y) }

func (v Vec2) Dist(o Vec2) float64 { return v.Sub(o).Len() }

// Toward returns the position reached by moving from v toward target by
// at most step, never overshooting.
func (v Vec2) Toward(target Vec2, step float64) Vec2 {
	d := target.Sub(v)
	l := d.Len()
	if l <= step || l == 0 {
		return target
	}
	return v.Add(d.Scale(step / l))
}

// ClampRect keeps v inside the square [-half, half]².
func (v Vec2) ClampRect(half float64) Vec2 {
	return Vec2{Clamp(v.X, -half, half), Clamp(v.Y, -half, half)}
}

// Clamp pins v into [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
