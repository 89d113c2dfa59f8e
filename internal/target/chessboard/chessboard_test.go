package chessboard

import (
	"testing"

	"github.com/calib-targets/calib-targets-go/internal/target/core"
	"github.com/calib-targets/calib-targets-go/pkg/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildGrid returns a regular rows x cols grid of corners spaced 10px
// apart, row-major order. Orientation is 0 for every corner: with
// orientation clustering disabled, EstimateAxes derives the axis pair
// from the circular mean of these orientations (0 and its orthogonal,
// pi/2), which is exactly the axis pair the synthetic grid's edges lie
// on.
func buildGrid(rows, cols int) []core.Corner {
	var out []core.Corner
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			out = append(out, core.Corner{
				Position:    geometry.Point2D{X: float64(col) * 10, Y: float64(row) * 10},
				Orientation: 0,
				Strength:    1,
			})
		}
	}
	return out
}

func TestDetectFromCornersAcceptsRegularGrid(t *testing.T) {
	corners := buildGrid(4, 5)
	params := DefaultParams()
	params.MinCorners = 10
	params.UseOrientationClustering = false

	d := New(params)
	result, ok := d.DetectFromCorners(corners)
	require.True(t, ok)
	assert.Len(t, result.Detection.Corners, 20)
	assert.Equal(t, core.Chessboard, result.Detection.Kind)

	// Verify (j, i) sort ordering.
	for i := 1; i < len(result.Detection.Corners); i++ {
		prev := result.Detection.Corners[i-1].Grid
		cur := result.Detection.Corners[i].Grid
		if prev.J == cur.J {
			assert.LessOrEqual(t, prev.I, cur.I)
		} else {
			assert.Less(t, prev.J, cur.J)
		}
	}
}

func TestDetectFromCornersRejectsTooFewCorners(t *testing.T) {
	corners := buildGrid(2, 2)
	params := DefaultParams()
	params.UseOrientationClustering = false

	d := New(params)
	_, ok := d.DetectFromCorners(corners)
	assert.False(t, ok)
}

func TestDetectFromCornersMatchesExpectedDimsEitherOrientation(t *testing.T) {
	corners := buildGrid(4, 5)
	params := DefaultParams()
	params.MinCorners = 10
	params.UseOrientationClustering = false
	rows, cols := 4, 5
	params.ExpectedRows = &rows
	params.ExpectedCols = &cols

	d := New(params)
	_, ok := d.DetectFromCorners(corners)
	require.True(t, ok)

	// Swapped expectation should also match since we try both orientations.
	swappedRows, swappedCols := 5, 4
	params2 := params
	params2.ExpectedRows = &swappedRows
	params2.ExpectedCols = &swappedCols
	d2 := New(params2)
	_, ok2 := d2.DetectFromCorners(corners)
	assert.True(t, ok2)
}

func TestDetectFromCornersRejectsMismatchedDims(t *testing.T) {
	corners := buildGrid(4, 5)
	params := DefaultParams()
	params.MinCorners = 10
	params.UseOrientationClustering = false
	rows, cols := 3, 3
	params.ExpectedRows = &rows
	params.ExpectedCols = &cols

	d := New(params)
	_, ok := d.DetectFromCorners(corners)
	assert.False(t, ok)
}

func TestDetectFromCornersEmptyInput(t *testing.T) {
	d := New(DefaultParams())
	_, ok := d.DetectFromCorners(nil)
	assert.False(t, ok)
}
