package generator

import (
	"math/rand/v2"
)

// UniformIntegerGenerator generates integers uniformly over [lb, ub].
type UniformIntegerGenerator struct {
	*IntegerGeneratorBase
	rng        *rand.Rand
	lowerBound int64
	upperBound int64
	interval   uint64
}

func NewUniformIntegerGenerator(r *rand.Rand, lb, ub int64) *UniformIntegerGenerator {
	if ub < lb {
		panic(NewErrorf("invalid uniform interval [%d, %d]", lb, ub))
	}
	return &UniformIntegerGenerator{
		IntegerGeneratorBase: NewIntegerGeneratorBase(lb - 1),
		rng:                  r,
		lowerBound:           lb,
		upperBound:           ub,
		interval:             uint64(ub-lb) + 1,
	}
}

func (g *UniformIntegerGenerator) NextInt() int64 {
	ret := g.lowerBound + int64(g.rng.Uint64N(g.interval))
	g.SetLastInt(ret)
	return ret
}

func (g *UniformIntegerGenerator) NextString() string {
	return g.IntegerGeneratorBase.NextString(g)
}

func (g *UniformIntegerGenerator) Mean() float64 {
	return float64(g.lowerBound+g.upperBound) / 2.0
}
