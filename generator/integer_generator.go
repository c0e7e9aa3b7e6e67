package generator

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
)

func NewErrorf(format string, args ...interface{}) error {
	return errors.New(fmt.Sprintf(format, args...))
}

// NewRand returns a generator owned random source. Two sources built from
// the same seed and stream yield the same sequence.
func NewRand(seed, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, stream))
}

// IntegerGenerator is a generator capable of generating integers and strings.
type IntegerGenerator interface {
	// NextInt returns the next value as an int.
	NextInt() int64
	LastInt() int64
	NextString() string
	LastString() string

	Mean() float64
}

// IntegerGeneratorBase is a parent class for all IntegerGenerator subclasses.
type IntegerGeneratorBase struct {
	lastInt int64
}

func NewIntegerGeneratorBase(last int64) *IntegerGeneratorBase {
	return &IntegerGeneratorBase{
		lastInt: last,
	}
}

// SetLastInt sets the last value to be generated.
// IntegerGenerator subclasses must use this call to properly set the last
// int value, or the LastString() and LastInt() calls won't work.
func (b *IntegerGeneratorBase) SetLastInt(value int64) {
	b.lastInt = value
}

// NextString generates the next string in the distribution.
func (b *IntegerGeneratorBase) NextString(g IntegerGenerator) string {
	return strconv.FormatInt(g.NextInt(), 10)
}

func (b *IntegerGeneratorBase) LastInt() int64 {
	return b.lastInt
}

func (b *IntegerGeneratorBase) LastString() string {
	return strconv.FormatInt(b.LastInt(), 10)
}

// ConstantIntegerGenerator is a trivial integer generator that always returns
// the same value.
type ConstantIntegerGenerator struct {
	*IntegerGeneratorBase
	value int64
}

func NewConstantIntegerGenerator(i int64) *ConstantIntegerGenerator {
	return &ConstantIntegerGenerator{
		IntegerGeneratorBase: NewIntegerGeneratorBase(i - 1),
		value:                i,
	}
}

func (g *ConstantIntegerGenerator) NextInt() int64 {
	return g.value
}

func (g *ConstantIntegerGenerator) NextString() string {
	return g.IntegerGeneratorBase.NextString(g)
}

func (g *ConstantIntegerGenerator) Mean() float64 {
	return float64(g.value)
}
