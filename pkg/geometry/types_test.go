package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoundingBoxCoversAllPoints(t *testing.T) {
	pts := []Point2D{{X: 3, Y: -2}, {X: -1, Y: 5}, {X: 0, Y: 0}}
	r := BoundingBox(pts)
	assert.Equal(t, -1.0, r.X)
	assert.Equal(t, -2.0, r.Y)
	assert.Equal(t, 4.0, r.Width)
	assert.Equal(t, 7.0, r.Height)
	for _, p := range pts {
		assert.True(t, r.Contains(p))
	}
}

func TestRectCenterIsMidpoint(t *testing.T) {
	r := NewRect(2, 4, 10, 6)
	c := r.Center()
	assert.Equal(t, 7.0, c.X)
	assert.Equal(t, 7.0, c.Y)
}
