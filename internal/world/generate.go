// World generation: fertile zone placement using layered simplex noise.

package world

import (
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/hearthvale/internal/registry"
	"github.com/talgya/hearthvale/internal/tuning"
)

// Generate lays out fertile zones for every gatherable item and seeds
// each zone with an initial crop of resource nodes. One noise layer per
// item keeps berries, game and timber clustered in their own belts
// instead of scattered uniformly.
func Generate(seed int64, p tuning.Params, reg *registry.Registry, rng *rand.Rand) *World {
	w := New(p.World.HalfExtent)
	items := reg.GatherableItems()
	if len(items) == 0 || p.World.FertileZones <= 0 {
		return w
	}

	layers := make(map[registry.ItemID]opensimplex.Noise, len(items))
	for i, item := range items {
		layers[item] = opensimplex.NewNormalized(seed + int64(i))
	}

	const grid = 24
	step := 2 * w.Half / grid

	for k := 0; k < p.World.FertileZones; k++ {
		item := items[k%len(items)]
		noise := layers[item]

		// Pick the best-scoring free cell for this layer.
		bestScore := -1.0
		var bestPos Vec2
		for gy := 0; gy < grid; gy++ {
			for gx := 0; gx < grid; gx++ {
				pos := Vec2{
					X: -w.Half + (float64(gx)+0.5)*step,
					Y: -w.Half + (float64(gy)+0.5)*step,
				}
				if tooClose(w.Zones, pos, p.World.ZoneRadius*1.5) {
					continue
				}
				s := octaveNoise(noise, pos.X, pos.Y, 3, 0.008, 0.5)
				if s > bestScore {
					bestScore, bestPos = s, pos
				}
			}
		}
		if bestScore < 0 {
			break // map saturated with zones
		}

		jitter := Vec2{X: (rng.Float64() - 0.5) * step, Y: (rng.Float64() - 0.5) * step}
		z := &FertileZone{
			ID:       w.NextID(),
			Pos:      bestPos.Add(jitter).ClampRect(w.Half),
			Radius:   p.World.ZoneRadius,
			Item:     item,
			Capacity: p.World.ZoneCapacity,
			Every:    p.World.RespawnSec,
		}
		w.Zones = append(w.Zones, z)

		// Start each zone half grown so the first generation can eat.
		for i := 0; i < z.Capacity/2+1; i++ {
			ang := rng.Float64() * 2 * math.Pi
			dist := rng.Float64() * z.Radius
			pos := z.Pos.Add(Vec2{X: math.Cos(ang), Y: math.Sin(ang)}.Scale(dist))
			w.AddResource(item, pos, 3+rng.Intn(4), z.ID)
		}
	}
	return w
}

func tooClose(zones []*FertileZone, pos Vec2, minDist float64) bool {
	for _, z := range zones {
		if z.Pos.Dist(pos) < minDist {
			return true
		}
	}
	return false
}

// octaveNoise layers multiple frequencies of simplex noise for a more
// natural distribution than a single octave.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total, amplitude, maxValue := 0.0, 1.0, 0.0
	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxValue += amplitude
		amplitude *= persistence
		frequency *= 2
	}
	return total / maxValue
}
