package charuco

import (
	"testing"

	"github.com/calib-targets/calib-targets-go/internal/target/aruco"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBoard(t *testing.T) *Board {
	t.Helper()
	spec := BoardSpec{Rows: 5, Cols: 7, CellSize: 20, MarkerSizeRel: 0.7, Dictionary: aruco.DICT_4X4_50}
	b, err := NewBoard(spec)
	require.NoError(t, err)
	return b
}

func TestNewBoardAssignsSequentialIDsToMarkerSquares(t *testing.T) {
	b := testBoard(t)
	// 5x7 squares, half (rounded) are marker squares.
	count := 0
	for row := int32(0); row < 5; row++ {
		for col := int32(0); col < 7; col++ {
			if _, ok := b.MarkerAt(col, row); ok {
				count++
			}
		}
	}
	assert.Equal(t, len(b.idToCell), count)
	col, row, _, ok := b.LayoutCell(0)
	require.True(t, ok)
	id, ok := b.MarkerAt(col, row)
	require.True(t, ok)
	assert.Equal(t, 0, id)
}

func TestNewBoardRejectsInvalidSpec(t *testing.T) {
	_, err := NewBoard(BoardSpec{Rows: 0, Cols: 5, CellSize: 1, MarkerSizeRel: 0.7, Dictionary: aruco.DICT_4X4_50})
	assert.Error(t, err)

	_, err = NewBoard(BoardSpec{Rows: 5, Cols: 5, CellSize: 1, MarkerSizeRel: 1.5, Dictionary: aruco.DICT_4X4_50})
	assert.Error(t, err)
}

func TestIsInnerCornerExcludesBorder(t *testing.T) {
	b := testBoard(t)
	assert.False(t, b.IsInnerCorner(0, 2))
	assert.False(t, b.IsInnerCorner(7, 2))
	assert.False(t, b.IsInnerCorner(3, 0))
	assert.False(t, b.IsInnerCorner(3, 5))
	assert.True(t, b.IsInnerCorner(1, 1))
	assert.True(t, b.IsInnerCorner(6, 4))
}

func TestCornerIDIsRowMajorOverInnerCorners(t *testing.T) {
	b := testBoard(t)
	id00, ok := b.CornerID(1, 1)
	require.True(t, ok)
	assert.Equal(t, uint32(0), id00)

	id10, ok := b.CornerID(2, 1)
	require.True(t, ok)
	assert.Equal(t, uint32(1), id10)
}

func TestSolveAlignmentRecoversIdentity(t *testing.T) {
	b := testBoard(t)
	var markers []aruco.Detection
	for id := 0; id < b.Spec.Rows*b.Spec.Cols; id++ {
		col, row, rot, ok := b.LayoutCell(id)
		if !ok {
			continue
		}
		markers = append(markers, aruco.Detection{ID: id, GC: [2]int32{col, row}, Rotation: rot, Score: 1})
	}
	al, ok := SolveAlignment(markers, b)
	require.True(t, ok)
	assert.Equal(t, [2]int32{0, 0}, al.Alignment.Translation)
	assert.Len(t, al.Inliers, len(markers))
}

func TestSolveAlignmentRecoversTranslatedGrid(t *testing.T) {
	b := testBoard(t)
	const dx, dy = int32(2), int32(3)
	var markers []aruco.Detection
	for id := 0; id < b.Spec.Rows*b.Spec.Cols; id++ {
		col, row, rot, ok := b.LayoutCell(id)
		if !ok {
			continue
		}
		markers = append(markers, aruco.Detection{ID: id, GC: [2]int32{col + dx, row + dy}, Rotation: rot, Score: 1})
	}
	al, ok := SolveAlignment(markers, b)
	require.True(t, ok)
	assert.Equal(t, [2]int32{-dx, -dy}, al.Alignment.Translation)
}
