package rectify

import (
	"testing"

	"github.com/calib-targets/calib-targets-go/internal/target/core"
	"github.com/calib-targets/calib-targets-go/pkg/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkerImage(w, h int) geometry.GrayImage {
	data := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x/10+y/10)%2 == 0 {
				data[y*w+x] = 255
			}
		}
	}
	return geometry.GrayImage{Width: w, Height: h, Data: data}
}

func gridCorner(i, j int32, pos geometry.Point2D) core.LabeledCorner {
	g := geometry.GridCoords{I: i, J: j}
	return core.LabeledCorner{Position: pos, Grid: &g}
}

func TestRectifyGlobalProducesExpectedCanvasSize(t *testing.T) {
	img := checkerImage(200, 200)
	// A 3x3 grid of corners, identity mapping (grid*20 == pixel position).
	var corners []core.LabeledCorner
	for i := int32(0); i < 3; i++ {
		for j := int32(0); j < 3; j++ {
			corners = append(corners, gridCorner(i, j, geometry.Point2D{X: float64(i) * 20, Y: float64(j) * 20}))
		}
	}

	view, err := RectifyGlobal(img.View(), corners, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 60, view.Pixels.Width)
	assert.Equal(t, 60, view.Pixels.Height)

	p, ok := view.Mapper.ToImage(0, 0)
	require.True(t, ok)
	assert.InDelta(t, 0, p.X, 1e-6)
	assert.InDelta(t, 0, p.Y, 1e-6)
}

func TestRectifyGlobalFailsWithTooFewCorners(t *testing.T) {
	img := checkerImage(50, 50)
	corners := []core.LabeledCorner{gridCorner(0, 0, geometry.Point2D{X: 0, Y: 0})}
	_, err := RectifyGlobal(img.View(), corners, 20, 0)
	assert.Error(t, err)
}

func TestRectifyMeshBuildsOneCellPerSquare(t *testing.T) {
	img := checkerImage(200, 200)
	var corners []core.LabeledCorner
	for i := int32(0); i < 3; i++ {
		for j := int32(0); j < 3; j++ {
			corners = append(corners, gridCorner(i, j, geometry.Point2D{X: float64(i) * 20, Y: float64(j) * 20}))
		}
	}

	view, err := RectifyMesh(img.View(), corners, 20)
	require.NoError(t, err)
	mesh := view.Mapper.(MeshMapper)
	assert.Len(t, mesh.Cells, 4) // a 3x3 corner grid has 2x2 complete cells

	p, ok := view.Mapper.ToImage(0.5, 0.5)
	require.True(t, ok)
	assert.InDelta(t, 0.5, p.X, 1e-6)
	assert.InDelta(t, 0.5, p.Y, 1e-6)
}

func TestRectifyMeshFallsBackToNearestCellOutOfGrid(t *testing.T) {
	img := checkerImage(200, 200)
	var corners []core.LabeledCorner
	for i := int32(0); i < 3; i++ {
		for j := int32(0); j < 3; j++ {
			corners = append(corners, gridCorner(i, j, geometry.Point2D{X: float64(i) * 20, Y: float64(j) * 20}))
		}
	}
	view, err := RectifyMesh(img.View(), corners, 20)
	require.NoError(t, err)

	_, ok := view.Mapper.ToImage(1000, 1000)
	assert.True(t, ok)
}
