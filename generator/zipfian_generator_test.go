package generator

import (
	"strconv"
	"testing"

	"github.com/hhkbp2/testify/require"
)

func TestZipfianGenerator(t *testing.T) {
	min := int64(1000)
	max := int64(2000)
	var g IntegerGenerator
	g = NewZipfianGeneratorByInterval(NewRand(42, 0), min, max)
	total := 1000
	for i := 0; i < total; i++ {
		last := g.NextInt()
		require.True(t, last >= min && last <= max)
		require.Equal(t, last, g.LastInt())
		str := g.NextString()
		v, err := strconv.ParseInt(str, 0, 64)
		require.Nil(t, err)
		require.True(t, v >= min && v <= max)
	}
	require.Panics(t, func() { g.Mean() })
}

func TestZipfianGeneratorIsSkewed(t *testing.T) {
	g := NewZipfianGeneratorByInterval(NewRand(42, 0), 0, 999)
	low := 0
	total := 10000
	for i := 0; i < total; i++ {
		if g.NextInt() < 100 {
			low++
		}
	}
	// The lowest tenth of the items draws far more than a tenth of the picks.
	require.True(t, low > total/2)
}

func TestZipfianGeneratorTwoItems(t *testing.T) {
	g := NewZipfianGeneratorByInterval(NewRand(7, 0), 10, 11)
	for i := 0; i < 100; i++ {
		v := g.NextInt()
		require.True(t, v == 10 || v == 11)
	}
}
