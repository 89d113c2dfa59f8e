// Package markerboard detects "marker boards": chessboards augmented
// with three disambiguating circles used to recover the board's
// orientation from a partial, unlabeled grid.
package markerboard

import "github.com/calib-targets/calib-targets-go/pkg/geometry"

// Polarity is the expected contrast sign of a marker circle: White
// disks read brighter than their surrounding ring, Black darker.
type Polarity int

const (
	White Polarity = iota
	Black
)

// CellCoords identifies a board square by its top-left corner index (i,
// j), the same convention labeled grid corners use.
type CellCoords struct {
	I, J int32
}

// Center returns the square's center in board physical units.
func (c CellCoords) Center(cellSize float64) geometry.Point2D {
	return geometry.Point2D{X: (float64(c.I) + 0.5) * cellSize, Y: (float64(c.J) + 0.5) * cellSize}
}

// CellOffset is a relative cell displacement.
type CellOffset struct {
	DI, DJ int32
}

// Apply shifts a cell by the offset.
func (o CellOffset) Apply(c CellCoords) CellCoords {
	return CellCoords{I: c.I + o.DI, J: c.J + o.DJ}
}

// CircleSpec is one of the layout's three disambiguating circles.
type CircleSpec struct {
	Cell     CellCoords
	Polarity Polarity
}

// Layout describes a marker board's square grid and its three circles.
type Layout struct {
	Rows, Cols int
	CellSize   float64 // 0 means unknown; target_position is left unset
	Circles    [3]CircleSpec
}

// CircleScoreParams configures circle detection within a warped cell
// patch.
type CircleScoreParams struct {
	PatchSize         int
	DiameterFrac      float64
	RingThicknessFrac float64
	RingRadiusMul     float64
	MinContrast       float64
	Samples           int
	CenterSearchPx    float64
}

// DefaultCircleScoreParams mirror the reference implementation's
// defaults.
func DefaultCircleScoreParams() CircleScoreParams {
	return CircleScoreParams{
		PatchSize:         64,
		DiameterFrac:      0.5,
		RingThicknessFrac: 0.2,
		RingRadiusMul:     0.85,
		MinContrast:       15,
		Samples:           32,
		CenterSearchPx:    0,
	}
}

// MatchParams configures matching detected circle candidates to the
// three expected layout circles.
type MatchParams struct {
	MaxCandidatesPerPolarity int
	MaxDistanceCells         *float64
	MinOffsetInliers         int
}

// DefaultMatchParams mirror the reference implementation's defaults.
func DefaultMatchParams() MatchParams {
	return MatchParams{MaxCandidatesPerPolarity: 6, MinOffsetInliers: 1}
}

// ROI restricts circle scanning to a cell-index range, inclusive.
type ROI struct {
	MinI, MinJ, MaxI, MaxJ int32
}

// Candidate is one scored circle candidate at a board square.
type Candidate struct {
	Cell     CellCoords
	Polarity Polarity
	Contrast float64
}

// Match pairs one expected layout circle with a candidate.
type Match struct {
	ExpectedIndex int
	Candidate     Candidate
}
