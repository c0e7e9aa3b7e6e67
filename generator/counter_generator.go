package generator

import (
	"strconv"
	"sync/atomic"
)

// CounterGenerator generates a sequence of integers: startCount,
// startCount+1, ... It is safe for concurrent use.
type CounterGenerator struct {
	*IntegerGeneratorBase
	count int64
}

func NewCounterGenerator(startCount int64) *CounterGenerator {
	object := &CounterGenerator{
		IntegerGeneratorBase: NewIntegerGeneratorBase(startCount - 1),
		count:                startCount - 1,
	}
	return object
}

func (g *CounterGenerator) NextInt() int64 {
	return atomic.AddInt64(&g.count, 1)
}

func (g *CounterGenerator) LastInt() int64 {
	return atomic.LoadInt64(&g.count)
}

func (g *CounterGenerator) NextString() string {
	return g.IntegerGeneratorBase.NextString(g)
}

func (g *CounterGenerator) LastString() string {
	return strconv.FormatInt(g.LastInt(), 10)
}

func (g *CounterGenerator) Mean() float64 {
	panic("unsupported operation")
}
