package markerboard

import (
	"testing"

	"github.com/calib-targets/calib-targets-go/pkg/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopKByPolarityKeepsHighestContrastPerClass(t *testing.T) {
	candidates := []Candidate{
		{Cell: CellCoords{I: 0, J: 0}, Polarity: White, Contrast: 10},
		{Cell: CellCoords{I: 1, J: 0}, Polarity: White, Contrast: 30},
		{Cell: CellCoords{I: 2, J: 0}, Polarity: White, Contrast: 20},
		{Cell: CellCoords{I: 0, J: 1}, Polarity: Black, Contrast: 5},
	}
	top := topKByPolarity(candidates, 2)
	var whites []Candidate
	for _, c := range top {
		if c.Polarity == White {
			whites = append(whites, c)
		}
	}
	require.Len(t, whites, 2)
	assert.Equal(t, 30.0, whites[0].Contrast)
	assert.Equal(t, 20.0, whites[1].Contrast)
}

func layoutWithCircles() Layout {
	return Layout{
		Rows: 6, Cols: 8, CellSize: 10,
		Circles: [3]CircleSpec{
			{Cell: CellCoords{I: 1, J: 1}, Polarity: White},
			{Cell: CellCoords{I: 5, J: 1}, Polarity: White},
			{Cell: CellCoords{I: 1, J: 4}, Polarity: Black},
		},
	}
}

func TestMatchExpectedCirclesRecoversIdentity(t *testing.T) {
	layout := layoutWithCircles()
	var candidates []Candidate
	for _, spec := range layout.Circles {
		candidates = append(candidates, Candidate{Cell: spec.Cell, Polarity: spec.Polarity, Contrast: 50})
	}
	result, ok := matchExpectedCircles(candidates, layout, DefaultMatchParams())
	require.True(t, ok)
	assert.Equal(t, geometry.IdentityGridTransform, result.Alignment.Transform)
	assert.Equal(t, [2]int32{0, 0}, result.Alignment.Translation)
	assert.Len(t, result.Matches, 3)
}

func TestMatchExpectedCirclesRecoversRotation180(t *testing.T) {
	layout := layoutWithCircles()
	rot180 := geometry.GridTransformsD4[2]
	var candidates []Candidate
	for _, spec := range layout.Circles {
		// Place a candidate such that rot180(candidate) + t == spec.Cell
		// for some fixed t; pick t = (10, 10) and invert algebraically:
		// candidate = rot180^-1 * (spec.Cell - t).
		inv, _ := rot180.Inverse()
		tx, ty := int32(10), int32(10)
		ci, cj := inv.Apply(spec.Cell.I-tx, spec.Cell.J-ty)
		candidates = append(candidates, Candidate{Cell: CellCoords{I: ci, J: cj}, Polarity: spec.Polarity, Contrast: 50})
	}
	result, ok := matchExpectedCircles(candidates, layout, DefaultMatchParams())
	require.True(t, ok)
	assert.Equal(t, rot180, result.Alignment.Transform)
	assert.Equal(t, [2]int32{10, 10}, result.Alignment.Translation)
}

func TestMatchExpectedCirclesFailsWithNoCandidates(t *testing.T) {
	layout := layoutWithCircles()
	params := DefaultMatchParams()
	params.MinOffsetInliers = 1
	_, ok := matchExpectedCircles(nil, layout, params)
	assert.False(t, ok)
}
