// Package charuco fuses a chessboard detection with decoded ArUco
// markers: it discovers the discrete alignment between the detected
// grid and the board's intrinsic coordinates, assigns corner IDs, and
// validates corners against a globally fitted homography.
package charuco

import (
	"fmt"

	"github.com/calib-targets/calib-targets-go/internal/target/aruco"
	"github.com/calib-targets/calib-targets-go/internal/target/core"
)

// MarkerCell describes one marker's fixed position in the board layout.
type MarkerCell struct {
	Col, Row         int32
	ExpectedRotation int
	ID               int
}

// BoardSpec is the immutable board description: {rows, cols} are square
// counts (not corner counts), cell_size is in board physical units.
type BoardSpec struct {
	Rows, Cols    int
	CellSize      float64
	MarkerSizeRel float64
	Dictionary    *aruco.Dictionary
}

// Validate checks the invariants that make a BoardSpec constructible:
// rows/cols must be positive and marker_size_rel must lie in (0, 1].
// This is the one programmer-error class that fails loudly, per the
// InvalidBoardSpec error kind.
func (s BoardSpec) Validate() error {
	if s.Rows <= 0 || s.Cols <= 0 {
		return fmt.Errorf("charuco: rows and cols must be positive: %w", core.ErrInvalidBoardSpec)
	}
	if s.MarkerSizeRel <= 0 || s.MarkerSizeRel > 1 {
		return fmt.Errorf("charuco: marker_size_rel must be in (0,1]: %w", core.ErrInvalidBoardSpec)
	}
	if s.Dictionary == nil {
		return fmt.Errorf("charuco: dictionary is required: %w", core.ErrInvalidBoardSpec)
	}
	return nil
}

// Board precomputes, for every marker cell in the OpenCV layout, its
// (col, row), expected rotation, and assigned ID, plus the reverse
// lookups the fusion pipeline needs.
type Board struct {
	Spec BoardSpec

	cellToID map[[2]int32]int
	idToCell map[int]MarkerCell
}

// isMarkerSquare implements the OpenCV convention: markers sit on the
// squares of one checkerboard color class, chosen here as (row+col)
// even (the "black" squares when (0,0) is black).
func isMarkerSquare(col, row int32) bool {
	return (col+row)%2 == 0
}

// NewBoard builds an OpenCV-layout ChArUco board and fails loudly (an
// InvalidBoardSpec error) if the spec is malformed.
func NewBoard(spec BoardSpec) (*Board, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	b := &Board{Spec: spec, cellToID: map[[2]int32]int{}, idToCell: map[int]MarkerCell{}}

	id := 0
	for row := int32(0); row < int32(spec.Rows); row++ {
		for col := int32(0); col < int32(spec.Cols); col++ {
			if !isMarkerSquare(col, row) {
				continue
			}
			cell := MarkerCell{Col: col, Row: row, ExpectedRotation: 0, ID: id}
			b.cellToID[[2]int32{col, row}] = id
			b.idToCell[id] = cell
			id++
		}
	}
	return b, nil
}

// LayoutCell returns the (col, row, rotation) a marker ID is expected
// at, or ok=false if the ID isn't part of this board.
func (b *Board) LayoutCell(id int) (col, row int32, rotation int, ok bool) {
	c, found := b.idToCell[id]
	if !found {
		return 0, 0, 0, false
	}
	return c.Col, c.Row, c.ExpectedRotation, true
}

// MarkerAt returns the marker ID expected at (col, row), if any.
func (b *Board) MarkerAt(col, row int32) (int, bool) {
	id, ok := b.cellToID[[2]int32{col, row}]
	return id, ok
}

// IsInnerCorner reports whether (i, j) is a ChArUco inner corner: the
// board boundary (i<=0, j<=0, i>=cols, j>=rows) carries no ID.
func (b *Board) IsInnerCorner(i, j int32) bool {
	return i > 0 && j > 0 && i < int32(b.Spec.Cols) && j < int32(b.Spec.Rows)
}

// CornerID assigns the row-major sequential ID for an inner corner.
func (b *Board) CornerID(i, j int32) (uint32, bool) {
	if !b.IsInnerCorner(i, j) {
		return 0, false
	}
	cols := int32(b.Spec.Cols)
	return uint32((j-1)*(cols-1) + (i - 1)), true
}
