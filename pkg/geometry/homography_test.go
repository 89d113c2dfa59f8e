package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func squareSrc() [4]Point2D {
	return [4]Point2D{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}
}

func TestHomographyFrom4PointRecoversH(t *testing.T) {
	src := squareSrc()
	dst := [4]Point2D{{X: 10, Y: 20}, {X: 110, Y: 15}, {X: 120, Y: 95}, {X: 5, Y: 100}}

	h, err := HomographyFrom4Point(src, dst)
	require.NoError(t, err)

	for i, p := range src {
		got := h.Apply(p)
		assert.InDelta(t, dst[i].X, got.X, 1e-6)
		assert.InDelta(t, dst[i].Y, got.Y, 1e-6)
	}
}

func TestEstimateHomographyDispatchesToFourPoint(t *testing.T) {
	src := squareSrc()
	dst := [4]Point2D{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 2}, {X: 0, Y: 2}}
	h, err := EstimateHomography(src[:], dst[:])
	require.NoError(t, err)
	got := h.Apply(Point2D{X: 0.5, Y: 0.5})
	assert.InDelta(t, 1.0, got.X, 1e-9)
	assert.InDelta(t, 1.0, got.Y, 1e-9)
}

func TestEstimateHomographyDLTOverdetermined(t *testing.T) {
	trueH, err := HomographyFrom4Point(squareSrc(), [4]Point2D{
		{X: 3, Y: 4}, {X: 50, Y: 6}, {X: 55, Y: 48}, {X: 2, Y: 52},
	})
	require.NoError(t, err)

	src := []Point2D{
		{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1},
		{X: 0.5, Y: 0.5}, {X: 0.25, Y: 0.75}, {X: 0.9, Y: 0.1},
	}
	dst := make([]Point2D, len(src))
	for i, p := range src {
		dst[i] = trueH.Apply(p)
	}

	h, err := EstimateHomography(src, dst)
	require.NoError(t, err)
	for i, p := range src {
		got := h.Apply(p)
		assert.InDelta(t, dst[i].X, got.X, 1e-4)
		assert.InDelta(t, dst[i].Y, got.Y, 1e-4)
	}
}

func TestHomographyInverseRoundTripsPoints(t *testing.T) {
	h, err := HomographyFrom4Point(squareSrc(), [4]Point2D{
		{X: 10, Y: 5}, {X: 210, Y: 8}, {X: 200, Y: 150}, {X: 5, Y: 140},
	})
	require.NoError(t, err)
	inv, ok := h.Inverse()
	require.True(t, ok)

	for _, p := range []Point2D{{X: 0.1, Y: 0.2}, {X: 0.9, Y: 0.4}, {X: 0.5, Y: 0.5}} {
		mid := h.Apply(p)
		back := inv.Apply(mid)
		assert.InDelta(t, p.X, back.X, 1e-6)
		assert.InDelta(t, p.Y, back.Y, 1e-6)
	}
}

func TestMismatchedInputLengthsFail(t *testing.T) {
	_, err := EstimateHomography([]Point2D{{X: 0, Y: 0}}, []Point2D{{X: 0, Y: 0}, {X: 1, Y: 1}})
	assert.Error(t, err)
}

func TestEstimateHomographyRejectsCollinearPoints(t *testing.T) {
	src := []Point2D{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}, {X: 3, Y: 0}}
	dst := []Point2D{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}, {X: 3, Y: 3}}
	_, err := EstimateHomography(src, dst)
	assert.Error(t, err)
}

func TestWarpPerspectiveGraySamplesPixelCenters(t *testing.T) {
	src := GrayImageView{Width: 2, Height: 2, Data: []uint8{0, 255, 255, 0}}
	h := Homography{H: [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}}
	out := WarpPerspectiveGray(src, h, 2, 2)
	assert.Equal(t, src.Data, out.Data)
}

func TestWarpPerspectiveGrayFastMatchesSafeVariantInsideBounds(t *testing.T) {
	src := GrayImageView{Width: 4, Height: 4, Data: []uint8{
		0, 10, 20, 30,
		40, 50, 60, 70,
		80, 90, 100, 110,
		120, 130, 140, 150,
	}}
	h := Homography{H: [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}}
	safe := WarpPerspectiveGray(src, h, 3, 3)
	fast := WarpPerspectiveGrayFast(src, h, 3, 3)
	assert.Equal(t, safe.Data, fast.Data)
}

func TestSampleBilinearU8ClampsRange(t *testing.T) {
	src := GrayImageView{Width: 2, Height: 2, Data: []uint8{255, 255, 255, 255}}
	got := SampleBilinearU8(src, 0.5, 0.5)
	assert.Equal(t, uint8(255), got)
	assert.Equal(t, math.Trunc(255), float64(got))
}
