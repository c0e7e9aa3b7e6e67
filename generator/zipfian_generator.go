package generator

import (
	"math"
	"math/rand/v2"
)

const (
	ZipfianConstant = float64(0.99)
)

// Compute the zeta constant needed for the distribution. Do this incrementally
// for a distribution that has n items now but used to have st items.
// Use the zipfian constant theta.
func zetaStatic(st, n int64, theta, initialSum float64) float64 {
	sum := initialSum
	for i := st; i < n; i++ {
		sum += 1 / math.Pow(float64(i+1), theta)
	}
	return sum
}

// A generator of a zipfian distribution. It produces a sequence of items,
// such that some items are more popular than others, according to
// a zipfian distribution. The sequence is of items from min to max
// inclusive.
//
// Note that the popular items will be clustered together, e.g. item min
// is the most popular, min+1 the next most popular, and so on. For keys
// this means the low end of the populated range is the hot set.
//
// Be aware: initializing this generator may take a long time if there are
// lots of items to choose from (e.g. over a minute for 100 million objects),
// since zeta is a sum sequence from 1 to n.
//
// The algorithm used here is from
// "Quickly Generating Billion-Record Synthetic Databases",
// Jim Gray et al, SIGMOD 1994.
type ZipfianGenerator struct {
	*IntegerGeneratorBase
	rng *rand.Rand
	// Number of items.
	items int64
	// Min item to generate.
	base int64
	// Computed parameters for generating the distribution.
	alpha, zetan, eta, theta, zeta2theta float64
}

// NewZipfianGeneratorByInterval creates a zipfian generator for items
// between min and max(inclusive) with the default zipfian constant.
func NewZipfianGeneratorByInterval(r *rand.Rand, min, max int64) *ZipfianGenerator {
	items := max - min + 1
	return NewZipfianGenerator(r, min, max, ZipfianConstant,
		zetaStatic(0, items, ZipfianConstant, 0))
}

// Create a zipfian generator for items between min and max(inclusive) for
// the specified zipfian constant, using the precomputed value of zeta.
func NewZipfianGenerator(
	r *rand.Rand, min, max int64, zipfianConstant, zetan float64) *ZipfianGenerator {

	if max < min {
		panic(NewErrorf("invalid zipfian interval [%d, %d]", min, max))
	}
	items := max - min + 1
	theta := zipfianConstant
	zeta2theta := zetaStatic(0, 2, theta, 0)
	eta := (1 - math.Pow(2.0/float64(items), 1-theta)) / (1 - zeta2theta/zetan)
	return &ZipfianGenerator{
		IntegerGeneratorBase: NewIntegerGeneratorBase(min - 1),
		rng:                  r,
		items:                items,
		base:                 min,
		alpha:                1.0 / (1.0 - theta),
		zetan:                zetan,
		eta:                  eta,
		theta:                theta,
		zeta2theta:           zeta2theta,
	}
}

// Generate the next item. this distribution will be skewed toward
// lower itegers; e.g. min will be the most popular, min+1 the next most
// popular, etc.
func (g *ZipfianGenerator) NextInt() int64 {
	u := g.rng.Float64()
	uz := u * g.zetan
	var ret int64
	switch {
	case uz < 1.0:
		ret = g.base
	case uz < 1.0+math.Pow(0.5, g.theta):
		ret = g.base + 1
	default:
		ret = g.base + int64(float64(g.items)*math.Pow(g.eta*u-g.eta+1.0, g.alpha))
	}
	if ret >= g.base+g.items {
		ret = g.base + g.items - 1
	}
	g.SetLastInt(ret)
	return ret
}

func (g *ZipfianGenerator) NextString() string {
	return g.IntegerGeneratorBase.NextString(g)
}

func (g *ZipfianGenerator) Mean() float64 {
	panic("unsupported operation")
}
