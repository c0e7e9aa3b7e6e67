package generator

import (
	"testing"

	"github.com/hhkbp2/testify/require"
)

func TestDiscreteGeneratorBuckets(t *testing.T) {
	g := NewDiscreteGenerator[string](NewRand(42, 0))
	g.AddValue(80, "write")
	g.AddValue(5, "scan")
	g.AddValue(15, "read")
	require.Equal(t, 100, g.TotalWeight())
	for r := 0; r < 100; r++ {
		v := g.Choose(r)
		switch {
		case r < 80:
			require.Equal(t, "write", v)
		case r < 85:
			require.Equal(t, "scan", v)
		default:
			require.Equal(t, "read", v)
		}
	}
	require.Panics(t, func() { g.Choose(100) })
}

func TestDiscreteGeneratorSkipsZeroWeights(t *testing.T) {
	g := NewDiscreteGenerator[int](NewRand(1, 2))
	g.AddValue(0, 1)
	g.AddValue(100, 2)
	g.AddValue(0, 3)
	for i := 0; i < 1000; i++ {
		require.Equal(t, 2, g.Next())
		require.Equal(t, 2, g.Last())
	}
}

func TestDiscreteGeneratorProportions(t *testing.T) {
	g := NewDiscreteGenerator[string](NewRand(42, 0))
	g.AddValue(25, "a")
	g.AddValue(75, "b")
	counts := make(map[string]int)
	total := 100000
	for i := 0; i < total; i++ {
		counts[g.Next()]++
	}
	require.InDelta(t, 0.25, float64(counts["a"])/float64(total), 0.01)
	require.InDelta(t, 0.75, float64(counts["b"])/float64(total), 0.01)
}

func TestDiscreteGeneratorEmpty(t *testing.T) {
	g := NewDiscreteGenerator[string](NewRand(42, 0))
	require.Panics(t, func() { g.Next() })
	require.Panics(t, func() { g.AddValue(-1, "x") })
}
