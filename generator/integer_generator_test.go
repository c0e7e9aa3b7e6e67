package generator

import (
	"fmt"
	"testing"

	"github.com/hhkbp2/testify/require"
)

func TestConstantIntegerGenerator(t *testing.T) {
	value := int64(100)
	var g IntegerGenerator
	g = NewConstantIntegerGenerator(value)
	require.Equal(t, value-1, g.LastInt())
	for i := 0; i < 10; i++ {
		require.Equal(t, value, g.NextInt())
		require.Equal(t, value-1, g.LastInt())
		require.Equal(t, fmt.Sprintf("%d", value), g.NextString())
		require.Equal(t, fmt.Sprintf("%d", value-1), g.LastString())
		require.Equal(t, float64(value), g.Mean())
	}
}

func TestNewRandIsReproducible(t *testing.T) {
	r1 := NewRand(42, 7)
	r2 := NewRand(42, 7)
	r3 := NewRand(43, 7)
	same := true
	for i := 0; i < 100; i++ {
		a := r1.Uint64()
		require.Equal(t, a, r2.Uint64())
		if a != r3.Uint64() {
			same = false
		}
	}
	require.True(t, !same)
}
