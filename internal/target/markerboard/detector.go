package markerboard

import (
	"fmt"
	"sort"

	"github.com/calib-targets/calib-targets-go/internal/target/chessboard"
	"github.com/calib-targets/calib-targets-go/internal/target/core"
	"github.com/calib-targets/calib-targets-go/internal/target/gridgraph"
	"github.com/calib-targets/calib-targets-go/pkg/geometry"
)

// Params configures marker-board detection.
type Params struct {
	Layout      Layout
	Chessboard  chessboard.Params
	GridGraph   gridgraph.Params
	CircleScore CircleScoreParams
	Match       MatchParams
	ROICells    *ROI
}

// DefaultParamsForLayout relaxes the chessboard completeness threshold
// so partial boards are accepted — the circles, not a full grid, carry
// orientation information.
func DefaultParamsForLayout(layout Layout) Params {
	chessParams := chessboard.DefaultParams()
	chessParams.CompletenessThreshold = 0.05
	rows, cols := layout.Rows-1, layout.Cols-1 // inner-corner counts
	chessParams.ExpectedRows = &rows
	chessParams.ExpectedCols = &cols

	return Params{
		Layout:      layout,
		Chessboard:  chessParams,
		GridGraph:   gridgraph.DefaultParams(),
		CircleScore: DefaultCircleScoreParams(),
		Match:       DefaultMatchParams(),
	}
}

// Detector detects a marker board: a chessboard grid disambiguated by
// three circles.
type Detector struct {
	params     Params
	chessboard *chessboard.Detector
}

// New builds a marker-board detector.
func New(params Params) *Detector {
	cb := chessboard.New(params.Chessboard).WithGridSearch(params.GridGraph)
	return &Detector{params: params, chessboard: cb}
}

// Result is a marker-board detection together with the circle evidence
// that produced its alignment.
type Result struct {
	Detection core.TargetDetection
	Alignment geometry.GridAlignment
	Inliers   []int
	Matches   []Match
}

// DetectFromImageAndCorners runs the full C8 pipeline: relaxed
// chessboard detection, per-cell circle scoring, top-K pruning per
// polarity, matching against the three expected circles, and corner
// relabeling/remapping under the recovered alignment.
func (d *Detector) DetectFromImageAndCorners(img geometry.GrayImageView, corners []core.Corner) (*Result, bool) {
	chess, ok := d.chessboard.DetectFromCorners(corners)
	if !ok {
		return nil, false
	}

	candidates := detectCirclesViaSquareWarp(img, chess.Detection.Corners, d.params.CircleScore, d.params.ROICells)
	pruned := topKByPolarity(candidates, d.params.Match.MaxCandidatesPerPolarity)

	matchResult, ok := matchExpectedCircles(pruned, d.params.Layout, d.params.Match)
	if !ok {
		return nil, false
	}

	detection := resultFromChessboard(chess.Detection, matchResult.Alignment, d.params.Layout)

	return &Result{
		Detection: detection,
		Alignment: matchResult.Alignment,
		Inliers:   chess.Inliers,
		Matches:   matchResult.Matches,
	}, true
}

// resultFromChessboard relabels the chessboard detection as
// CheckerboardMarker, remaps every corner's grid coordinate through
// alignment into board space, and assigns target_position when the
// layout's cell_size is known.
func resultFromChessboard(chess core.TargetDetection, alignment geometry.GridAlignment, layout Layout) core.TargetDetection {
	out := make([]core.LabeledCorner, len(chess.Corners))
	for i, c := range chess.Corners {
		nc := c
		if c.Grid != nil {
			bi, bj := alignment.Map(c.Grid.I, c.Grid.J)
			grid := geometry.GridCoords{I: bi, J: bj}
			nc.Grid = &grid
			if layout.CellSize > 0 {
				pos := geometry.Point2D{X: float64(bi) * layout.CellSize, Y: float64(bj) * layout.CellSize}
				nc.TargetPosition = &pos
			}
		}
		out[i] = nc
	}
	sort.Slice(out, func(a, b int) bool {
		ga, gb := out[a].Grid, out[b].Grid
		if ga == nil || gb == nil {
			return ga != nil
		}
		if ga.J != gb.J {
			return ga.J < gb.J
		}
		return ga.I < gb.I
	})
	return core.TargetDetection{Kind: core.CheckerboardMarker, Corners: out}
}

// ValidateLayout fails loudly if the layout is malformed — an
// InvalidBoardSpec-class programmer error.
func ValidateLayout(l Layout) error {
	if l.Rows <= 0 || l.Cols <= 0 {
		return fmt.Errorf("markerboard: rows and cols must be positive: %w", core.ErrInvalidBoardSpec)
	}
	return nil
}
