package charuco

import (
	"github.com/calib-targets/calib-targets-go/internal/target/aruco"
	"github.com/calib-targets/calib-targets-go/internal/target/chessboard"
	"github.com/calib-targets/calib-targets-go/internal/target/core"
	"github.com/calib-targets/calib-targets-go/pkg/geometry"
)

// Params mirrors CharucoDetectorParams.
type Params struct {
	Scan                         aruco.Config
	MinMarkerInliers             int
	FallbackToRectified          bool
	BuildRectifiedImage          bool
	CornerValidationThresholdRel float64
	MaxHammingRefinement         int
}

// DefaultParams mirror the reference implementation's defaults.
func DefaultParams() Params {
	return Params{
		Scan:                         aruco.DefaultConfig(),
		MinMarkerInliers:             4,
		FallbackToRectified:          false,
		BuildRectifiedImage:          false,
		CornerValidationThresholdRel: 0.35,
	}
}

// ParamsForBoard derives detector params from a board spec, carrying its
// marker_size_rel into the scan config.
func ParamsForBoard(board *Board) Params {
	p := DefaultParams()
	p.Scan.MarkerSizeRel = board.Spec.MarkerSizeRel
	return p
}

// RedetectFunc is the optional re-detection callback invoked on a small
// ROI around a validated corner's predicted position; it returns a
// refined position if one was found within tolerance.
type RedetectFunc func(img geometry.GrayImageView, roi geometry.Rect, expected geometry.Point2D) (geometry.Point2D, bool)

// Detector fuses a chessboard grid with decoded ArUco markers into a
// ChArUco detection.
type Detector struct {
	board      *Board
	params     Params
	chessboard *chessboard.Detector
	matcher    *aruco.Matcher
	redetect   RedetectFunc
}

// New builds a ChArUco detector for board, using chessDetector to
// recover the underlying grid and an optional redetect callback for
// corner-validation re-detection (nil disables re-detection: a rejected
// corner is simply dropped).
func New(board *Board, params Params, chessDetector *chessboard.Detector, redetect RedetectFunc) *Detector {
	return &Detector{
		board:      board,
		params:     params,
		chessboard: chessDetector,
		matcher:    aruco.NewMatcher(board.Spec.Dictionary, params.Scan.MaxHamming),
		redetect:   redetect,
	}
}

// Result is a ChArUco detection together with debug/diagnostic data.
type Result struct {
	Detection      core.TargetDetection
	Alignment      geometry.GridAlignment
	Markers        []aruco.Detection
	DroppedCorners int
}

// Detect runs the full seven-step ChArUco pipeline described in the
// design: chessboard grid -> per-cell decode -> alignment -> refinement
// -> corner assignment -> global-H corner validation.
func (d *Detector) Detect(corners []core.Corner, img geometry.GrayImageView) (*Result, bool) {
	chess, ok := d.chessboard.DetectFromCorners(corners)
	if !ok {
		return nil, false
	}

	quads := quadsForCompleteCells(chess.Detection.Corners)
	if len(quads) == 0 {
		return nil, false
	}
	pxPerSquare := estimatePxPerSquare(chess.Detection.Corners)

	markers := aruco.ScanDecodeMarkersInCells(img, quadsToCellQuads(quads), d.matcher, d.params.Scan)

	alignment, ok := SolveAlignment(markers, d.board)
	if !ok {
		return nil, false
	}

	// Refinement pass: re-decode at each marker's expected cell under
	// the initial alignment, ignoring where the first pass actually
	// found it, then re-solve alignment on the refined set.
	refinedMarkers := d.refineMarkers(quads, alignment.Alignment, img)
	if refinedAlignment, ok := SolveAlignment(refinedMarkers, d.board); ok && len(refinedAlignment.Inliers) >= len(alignment.Inliers) {
		markers = refinedMarkers
		alignment = refinedAlignment
	}

	// Only escalate to the full-rectified rescan if refinement still
	// doesn't clear the inlier threshold.
	if len(alignment.Inliers) < d.params.MinMarkerInliers && d.params.FallbackToRectified {
		if rescanMarkers, rescanAlignment, ok := d.rescanRectified(chess.Detection.Corners, img, pxPerSquare); ok {
			markers, alignment = rescanMarkers, rescanAlignment
		}
	}
	if len(alignment.Inliers) < d.params.MinMarkerInliers {
		return nil, false
	}

	inlierMarkers := make([]aruco.Detection, len(alignment.Inliers))
	for i, idx := range alignment.Inliers {
		inlierMarkers[i] = markers[idx]
	}
	labeled, dropped := d.assignAndValidate(chess.Detection.Corners, inlierMarkers, alignment.Alignment, pxPerSquare, img)

	return &Result{
		Detection:      core.TargetDetection{Kind: core.Charuco, Corners: labeled},
		Alignment:      alignment.Alignment,
		Markers:        markers,
		DroppedCorners: dropped,
	}, true
}

// quadsForCompleteCells returns, for every square whose four corners
// (TL,TR,BR,BL at (i,j),(i+1,j),(i+1,j+1),(i,j+1)) are all present, the
// image-space quad keyed by (i, j) = gc0.
func quadsForCompleteCells(corners []core.LabeledCorner) map[[2]int32][4]geometry.Point2D {
	byGrid := make(map[[2]int32]geometry.Point2D, len(corners))
	for _, c := range corners {
		if c.Grid != nil {
			byGrid[[2]int32{c.Grid.I, c.Grid.J}] = c.Position
		}
	}
	out := make(map[[2]int32][4]geometry.Point2D)
	for key, tl := range byGrid {
		i, j := key[0], key[1]
		tr, okTR := byGrid[[2]int32{i + 1, j}]
		br, okBR := byGrid[[2]int32{i + 1, j + 1}]
		bl, okBL := byGrid[[2]int32{i, j + 1}]
		if !okTR || !okBR || !okBL {
			continue
		}
		out[key] = [4]geometry.Point2D{tl, tr, br, bl}
	}
	return out
}

func quadsToCellQuads(quads map[[2]int32][4]geometry.Point2D) []aruco.CellQuad {
	out := make([]aruco.CellQuad, 0, len(quads))
	for key, quad := range quads {
		out = append(out, aruco.CellQuad{I: key[0], J: key[1], Quad: quad})
	}
	return out
}

// estimatePxPerSquare averages the Euclidean distance between every
// pair of grid-adjacent labeled corners; used as the pixel scale for
// corner-validation tolerance.
func estimatePxPerSquare(corners []core.LabeledCorner) float64 {
	byGrid := make(map[[2]int32]geometry.Point2D, len(corners))
	for _, c := range corners {
		if c.Grid != nil {
			byGrid[[2]int32{c.Grid.I, c.Grid.J}] = c.Position
		}
	}
	var sum float64
	var n int
	for key, p := range byGrid {
		if right, ok := byGrid[[2]int32{key[0] + 1, key[1]}]; ok {
			sum += p.Distance(right)
			n++
		}
		if down, ok := byGrid[[2]int32{key[0], key[1] + 1}]; ok {
			sum += p.Distance(down)
			n++
		}
	}
	if n == 0 {
		return 1
	}
	return sum / float64(n)
}

// refineMarkers re-decodes each expected marker cell under alignment,
// using its expected board cell to look up the corresponding image
// quad rather than trusting the first pass's own cell assignment.
func (d *Detector) refineMarkers(quads map[[2]int32][4]geometry.Point2D, alignment geometry.GridAlignment, img geometry.GrayImageView) []aruco.Detection {
	inv, ok := alignment.Inverse()
	if !ok {
		return nil
	}
	var out []aruco.Detection
	for id := 0; ; id++ {
		col, row, _, ok := d.board.LayoutCell(id)
		if !ok {
			break
		}
		gi, gj := inv.Map(col, row)
		quad, present := quads[[2]int32{gi, gj}]
		if !present {
			continue
		}
		det, ok := decodeAt(img, quad, [2]int32{gi, gj}, d.matcher, d.params.Scan)
		if ok {
			out = append(out, det)
		}
	}
	return out
}

// decodeAt exposes the package-private per-cell decode via the public
// scanning entry point, since ScanDecodeMarkersInCells already does
// exactly this for a single cell.
func decodeAt(img geometry.GrayImageView, quad [4]geometry.Point2D, gc [2]int32, matcher *aruco.Matcher, cfg aruco.Config) (aruco.Detection, bool) {
	dets := aruco.ScanDecodeMarkersInCells(img, []aruco.CellQuad{{I: gc[0], J: gc[1], Quad: quad}}, matcher, cfg)
	if len(dets) == 0 {
		return aruco.Detection{}, false
	}
	return dets[0], true
}

// rescanRectified is the fallback_to_rectified path: it re-scans a
// regular grid of axis-aligned pxPerSquare-sized cells laid out from
// img's origin and re-solves alignment on the result. No rectified view
// is built: img itself is sampled as if it were already rectified at
// pxPerSquare pixels per square.
func (d *Detector) rescanRectified(corners []core.LabeledCorner, img geometry.GrayImageView, pxPerSquare float64) ([]aruco.Detection, Alignment, bool) {
	// Rectified fallback needs an owning GrayImage; callers that enable
	// FallbackToRectified are expected to pass an image large enough
	// that px_per_square-scaled sampling stays in-bounds. We approximate
	// the rectified canvas here directly rather than depending on the
	// rectify package, to keep this fallback self-contained and cheap.
	minI, minJ, maxI, maxJ, ok := gridExtent(corners)
	if !ok {
		return nil, Alignment{}, false
	}
	cellsWide := int(maxI-minI) + 1
	cellsHigh := int(maxJ-minJ) + 1

	quads := make(map[[2]int32][4]geometry.Point2D)
	for i := 0; i < cellsWide-1; i++ {
		for j := 0; j < cellsHigh-1; j++ {
			quads[[2]int32{int32(i), int32(j)}] = [4]geometry.Point2D{
				{X: float64(i) * pxPerSquare, Y: float64(j) * pxPerSquare},
				{X: float64(i+1) * pxPerSquare, Y: float64(j) * pxPerSquare},
				{X: float64(i+1) * pxPerSquare, Y: float64(j+1) * pxPerSquare},
				{X: float64(i) * pxPerSquare, Y: float64(j+1) * pxPerSquare},
			}
		}
	}
	markers := aruco.ScanDecodeMarkersInCells(img, quadsToCellQuads(quads), d.matcher, d.params.Scan)
	alignment, ok := SolveAlignment(markers, d.board)
	return markers, alignment, ok
}

func gridExtent(corners []core.LabeledCorner) (minI, minJ, maxI, maxJ int32, ok bool) {
	first := true
	for _, c := range corners {
		if c.Grid == nil {
			continue
		}
		if first {
			minI, maxI, minJ, maxJ = c.Grid.I, c.Grid.I, c.Grid.J, c.Grid.J
			first = false
			continue
		}
		if c.Grid.I < minI {
			minI = c.Grid.I
		}
		if c.Grid.I > maxI {
			maxI = c.Grid.I
		}
		if c.Grid.J < minJ {
			minJ = c.Grid.J
		}
		if c.Grid.J > maxJ {
			maxJ = c.Grid.J
		}
	}
	return minI, minJ, maxI, maxJ, !first
}
