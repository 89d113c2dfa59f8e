package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridTransformsD4AllUnimodular(t *testing.T) {
	for _, tr := range GridTransformsD4 {
		det := tr.A*tr.D - tr.B*tr.C
		assert.Contains(t, []int32{1, -1}, det)
	}
}

func TestGridTransformInverseRoundTrips(t *testing.T) {
	for _, tr := range GridTransformsD4 {
		inv, ok := tr.Inverse()
		require.True(t, ok)
		x, y := tr.Apply(3, -2)
		bx, by := inv.Apply(x, y)
		assert.Equal(t, int32(3), bx)
		assert.Equal(t, int32(-2), by)
	}
}

func TestGridAlignmentMapAndInverse(t *testing.T) {
	a := GridAlignment{Transform: GridTransformsD4[1], Translation: [2]int32{5, -3}}
	x, y := a.Map(2, 1)
	inv, ok := a.Inverse()
	require.True(t, ok)
	bx, by := inv.Map(x, y)
	assert.Equal(t, int32(2), bx)
	assert.Equal(t, int32(1), by)
}
