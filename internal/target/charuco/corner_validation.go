package charuco

import (
	"github.com/calib-targets/calib-targets-go/internal/target/aruco"
	"github.com/calib-targets/calib-targets-go/internal/target/core"
	"github.com/calib-targets/calib-targets-go/pkg/geometry"
)

// quadOffsets gives the (di, dj) grid offset of each quad corner
// (TL,TR,BR,BL) relative to a cell's top-left gc0.
var quadOffsets = [4][2]int32{{0, 0}, {1, 0}, {1, 1}, {0, 1}}

// assignAndValidate performs steps 6 and 7 of the fusion pipeline:
// corner ID/target_position assignment under alignment, then a global-H
// refit across every inlier marker's four corners to detect and expel
// false corners. markers must already be filtered to alignment's inlier
// set — an outlier marker's corners would corrupt the global-H fit.
func (d *Detector) assignAndValidate(chessCorners []core.LabeledCorner, inlierMarkers []aruco.Detection, alignment geometry.GridAlignment, pxPerSquare float64, img geometry.GrayImageView) ([]core.LabeledCorner, int) {
	labeled := assignCorners(chessCorners, d.board, alignment)

	boardPts, imgPts := collectValidationCorrespondences(inlierMarkers, alignment)
	if len(boardPts) < 4 {
		return labeled, 0
	}
	h, err := geometry.EstimateHomography(boardPts, imgPts)
	if err != nil {
		return labeled, 0
	}

	threshold := d.params.CornerValidationThresholdRel * pxPerSquare
	out := make([]core.LabeledCorner, 0, len(labeled))
	dropped := 0
	for _, c := range labeled {
		if c.ID == nil || c.Grid == nil {
			out = append(out, c)
			continue
		}
		bx, by := alignment.Map(c.Grid.I, c.Grid.J)
		predicted := h.Apply(geometry.Point2D{X: float64(bx), Y: float64(by)})
		if predicted.Distance(c.Position) <= threshold {
			out = append(out, c)
			continue
		}

		if d.redetect != nil {
			roi := geometry.NewRect(predicted.X-pxPerSquare/2, predicted.Y-pxPerSquare/2, pxPerSquare, pxPerSquare)
			if refined, ok := d.redetect(img, roi, predicted); ok && predicted.Distance(refined) <= threshold {
				c.Position = refined
				out = append(out, c)
				continue
			}
		}
		dropped++
	}
	return out, dropped
}

// assignCorners implements step 6: for every labeled grid corner whose
// board-space position under alignment is a ChArUco inner corner,
// assign its ID and physical target_position.
func assignCorners(chessCorners []core.LabeledCorner, board *Board, alignment geometry.GridAlignment) []core.LabeledCorner {
	out := make([]core.LabeledCorner, len(chessCorners))
	copy(out, chessCorners)
	for i, c := range out {
		if c.Grid == nil {
			continue
		}
		bx, by := alignment.Map(c.Grid.I, c.Grid.J)
		id, ok := board.CornerID(bx, by)
		if !ok {
			continue
		}
		targetPos := geometry.Point2D{
			X: (float64(bx) + 1) * board.Spec.CellSize,
			Y: (float64(by) + 1) * board.Spec.CellSize,
		}
		out[i].ID = &id
		out[i].TargetPosition = &targetPos
	}
	return out
}

// collectValidationCorrespondences gathers every inlier marker's 4
// corners_img with the 4 board-space positions its quad implies under
// alignment. Callers must pass only alignment-inlier markers.
func collectValidationCorrespondences(inlierMarkers []aruco.Detection, alignment geometry.GridAlignment) (boardPts, imgPts []geometry.Point2D) {
	for _, m := range inlierMarkers {
		if m.CornersImg == nil {
			continue
		}
		gc0 := aruco.GC0FromGC(m.GC, m.Rotation)
		for k, off := range quadOffsets {
			bi := gc0[0] + off[0]
			bj := gc0[1] + off[1]
			bx, by := alignment.Map(bi, bj)
			boardPts = append(boardPts, geometry.Point2D{X: float64(bx), Y: float64(by)})
			imgPts = append(imgPts, m.CornersImg[k])
		}
	}
	return boardPts, imgPts
}
