package bonus

import (
	"math/rand/v2"
	"slices"

	"github.com/playperu/bonuslights/internal/garland"
)

type Assignment string

const (
	// AssignUniform shuffles the catalog, cycles it to the marker count and
	// shuffles the result again so catalog order never leaks into marker order.
	AssignUniform Assignment = "uniform"
	// AssignWeighted draws each marker independently from the catalog weights.
	// Duplicate and absent labels within a round are expected.
	AssignWeighted Assignment = "weighted"
)

func assign(r *rand.Rand, policy Assignment, catalog []garland.Bonus, n int) []garland.Bonus {
	if policy == AssignWeighted {
		out := make([]garland.Bonus, n)
		for i := range out {
			out[i] = catalog[weightedIndex(r, catalog)]
		}
		return out
	}
	return cycleShuffled(r, catalog, n)
}

func cycleShuffled(r *rand.Rand, catalog []garland.Bonus, n int) []garland.Bonus {
	pool := slices.Clone(catalog)
	r.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	out := make([]garland.Bonus, n)
	for i := range out {
		out[i] = pool[i%len(pool)]
	}
	r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// weightedIndex draws a catalog index with probability proportional to its
// weight. Negative weights count as zero. When no weight is positive the draw
// is uniform.
func weightedIndex(r *rand.Rand, catalog []garland.Bonus) int {
	cum := make([]float64, len(catalog))
	total := 0.0
	for i, b := range catalog {
		if b.Weight > 0 {
			total += b.Weight
		}
		cum[i] = total
	}
	if !(total > 0) {
		return r.IntN(len(catalog))
	}

	draw := r.Float64() * total
	for i, c := range cum {
		if catalog[i].Weight > 0 && draw <= c {
			return i
		}
	}
	return len(catalog) - 1
}
