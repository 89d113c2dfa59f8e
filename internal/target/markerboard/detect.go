package markerboard

import (
	"context"
	"sort"

	"github.com/calib-targets/calib-targets-go/internal/target/core"
	"github.com/calib-targets/calib-targets-go/internal/target/workerpool"
	"github.com/calib-targets/calib-targets-go/pkg/geometry"
)

var unitSquare = [4]geometry.Point2D{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}

// circleCandidateCell is one complete square cell eligible for circle
// scoring: its four image-space corners at grid coordinate (I, J).
type circleCandidateCell struct {
	I, J           int32
	TL, TR, BR, BL geometry.Point2D
}

// detectCirclesViaSquareWarp scans every complete square cell within
// the grid's bounds, intersected with roi when non-nil, fits a
// unit-square-to-image-quad homography per cell, and scores it as a
// circle candidate. Each cell's homography fit and contrast scoring is
// independent, so it runs across a bounded worker pool and results are
// reassembled in cell order.
func detectCirclesViaSquareWarp(img geometry.GrayImageView, corners []core.LabeledCorner, params CircleScoreParams, roi *ROI) []Candidate {
	byGrid := make(map[[2]int32]geometry.Point2D, len(corners))
	for _, c := range corners {
		if c.Grid != nil {
			byGrid[[2]int32{c.Grid.I, c.Grid.J}] = c.Position
		}
	}

	var cells []circleCandidateCell
	for key, tl := range byGrid {
		i, j := key[0], key[1]
		if roi != nil && (i < roi.MinI || i > roi.MaxI || j < roi.MinJ || j > roi.MaxJ) {
			continue
		}
		tr, okTR := byGrid[[2]int32{i + 1, j}]
		br, okBR := byGrid[[2]int32{i + 1, j + 1}]
		bl, okBL := byGrid[[2]int32{i, j + 1}]
		if !okTR || !okBR || !okBL {
			continue
		}
		cells = append(cells, circleCandidateCell{I: i, J: j, TL: tl, TR: tr, BR: br, BL: bl})
	}

	type scoreResult struct {
		candidate Candidate
		found     bool
	}

	offsets := buildOffsets(params)
	results := workerpool.Map(context.Background(), cells, 0, func(_ context.Context, cell circleCandidateCell) scoreResult {
		quad := [4]geometry.Point2D{cell.TL, cell.TR, cell.BR, cell.BL}
		h, err := geometry.HomographyFrom4Point(unitSquare, quad)
		if err != nil {
			return scoreResult{}
		}
		polarity, contrast, ok := scoreCircleInSquare(img, h, params, offsets)
		if !ok {
			return scoreResult{}
		}
		candidate := Candidate{Cell: CellCoords{I: cell.I, J: cell.J}, Polarity: polarity, Contrast: contrast}
		return scoreResult{candidate: candidate, found: true}
	})

	out := make([]Candidate, 0, len(results))
	for _, r := range results {
		if r.found {
			out = append(out, r.candidate)
		}
	}
	return out
}

// topKByPolarity sorts candidates by contrast descending and keeps the
// top k per polarity class.
func topKByPolarity(candidates []Candidate, k int) []Candidate {
	byPolarity := map[Polarity][]Candidate{}
	for _, c := range candidates {
		byPolarity[c.Polarity] = append(byPolarity[c.Polarity], c)
	}
	var out []Candidate
	for _, pol := range []Polarity{White, Black} {
		list := byPolarity[pol]
		sort.Slice(list, func(a, b int) bool { return list[a].Contrast > list[b].Contrast })
		if len(list) > k {
			list = list[:k]
		}
		out = append(out, list...)
	}
	return out
}
