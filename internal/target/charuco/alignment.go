package charuco

import (
	"github.com/calib-targets/calib-targets-go/internal/target/aruco"
	"github.com/calib-targets/calib-targets-go/pkg/geometry"
)

// Alignment is the discrete grid-to-board correspondence recovered from
// decoded markers, plus the indices (into the input marker slice) of the
// markers consistent with it.
type Alignment struct {
	Alignment geometry.GridAlignment
	Inliers   []int
}

type voteKey struct {
	transform int
	tx, ty    int32
}

type voteTally struct {
	count     int
	scoreSum  float64
}

// SolveAlignment enumerates all 8 elements of D4; for each transform T,
// each decoded marker votes for the translation t = layout_cell(id) -
// T*gc0. Votes are tallied by (T, t); the winner is the tally with the
// most votes, ties broken by summed marker score, then lexicographic
// (T, t) for determinism.
func SolveAlignment(markers []aruco.Detection, board *Board) (Alignment, bool) {
	tallies := map[voteKey]*voteTally{}

	for _, m := range markers {
		col, row, _, ok := board.LayoutCell(m.ID)
		if !ok {
			continue
		}
		gc0 := aruco.GC0FromGC(m.GC, m.Rotation)
		for ti, t := range geometry.GridTransformsD4 {
			tx0, ty0 := t.Apply(gc0[0], gc0[1])
			key := voteKey{transform: ti, tx: col - tx0, ty: row - ty0}
			v, exists := tallies[key]
			if !exists {
				v = &voteTally{}
				tallies[key] = v
			}
			v.count++
			v.scoreSum += m.Score
		}
	}
	if len(tallies) == 0 {
		return Alignment{}, false
	}

	var bestKey voteKey
	var best voteTally
	found := false
	for key, v := range tallies {
		if !found || better(*v, key, best, bestKey) {
			best = *v
			bestKey = key
			found = true
		}
	}

	alignment := geometry.GridAlignment{
		Transform:   geometry.GridTransformsD4[bestKey.transform],
		Translation: [2]int32{bestKey.tx, bestKey.ty},
	}

	var inliers []int
	for idx, m := range markers {
		col, row, _, ok := board.LayoutCell(m.ID)
		if !ok {
			continue
		}
		gc0 := aruco.GC0FromGC(m.GC, m.Rotation)
		bx, by := alignment.Map(gc0[0], gc0[1])
		if bx == col && by == row {
			inliers = append(inliers, idx)
		}
	}

	return Alignment{Alignment: alignment, Inliers: inliers}, true
}

// better reports whether candidate (v, key) outranks incumbent (best,
// bestKey): higher vote count wins; ties broken by summed score; final
// ties broken by lexicographic (transform index, tx, ty).
func better(v voteTally, key voteKey, best voteTally, bestKey voteKey) bool {
	if v.count != best.count {
		return v.count > best.count
	}
	if v.scoreSum != best.scoreSum {
		return v.scoreSum > best.scoreSum
	}
	if key.transform != bestKey.transform {
		return key.transform < bestKey.transform
	}
	if key.tx != bestKey.tx {
		return key.tx < bestKey.tx
	}
	return key.ty < bestKey.ty
}
