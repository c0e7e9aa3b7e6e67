package generator

import (
	"math/rand/v2"
)

type Pair[T any] struct {
	Weight int
	Value  T
}

// DiscreteGenerator picks one of a fixed set of values with integer weights.
// A draw r is taken uniformly from [0, total weight) and the buckets are
// walked in insertion order, so that with weights summing to 100 the first
// value owns r < w0, the second w0 <= r < w0+w1 and so on.
type DiscreteGenerator[T any] struct {
	rng       *rand.Rand
	values    []Pair[T]
	total     int
	lastValue T
}

func NewDiscreteGenerator[T any](r *rand.Rand) *DiscreteGenerator[T] {
	return &DiscreteGenerator[T]{
		rng:    r,
		values: make([]Pair[T], 0),
	}
}

func (g *DiscreteGenerator[T]) AddValue(weight int, value T) {
	if weight < 0 {
		panic(NewErrorf("negative weight %d", weight))
	}
	g.values = append(g.values, Pair[T]{
		Weight: weight,
		Value:  value,
	})
	g.total += weight
}

// TotalWeight returns the exclusive upper bound of the draws.
func (g *DiscreteGenerator[T]) TotalWeight() int {
	return g.total
}

func (g *DiscreteGenerator[T]) Next() T {
	if g.total == 0 {
		panic("no weighted values")
	}
	g.lastValue = g.Choose(g.rng.IntN(g.total))
	return g.lastValue
}

// Choose maps a draw in [0, TotalWeight()) to its bucket.
func (g *DiscreteGenerator[T]) Choose(draw int) T {
	for _, p := range g.values {
		if draw < p.Weight {
			return p.Value
		}
		draw -= p.Weight
	}
	// should never get here.
	panic(NewErrorf("draw out of range [0, %d)", g.total))
}

func (g *DiscreteGenerator[T]) Last() T {
	return g.lastValue
}
