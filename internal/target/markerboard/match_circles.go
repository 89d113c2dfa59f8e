package markerboard

import (
	"math"

	"github.com/calib-targets/calib-targets-go/pkg/geometry"
)

// AlignmentResult is the outcome of matching detected circle candidates
// to a layout's three expected circles.
type AlignmentResult struct {
	Alignment geometry.GridAlignment
	Matches   []Match // one per agreeing expected circle
}

type alignKey struct {
	transform int
	tx, ty    int32
}

type scoredAlignment struct {
	key     alignKey
	matches []Match
	dist    float64
}

// matchExpectedCircles tests every (D4 transform, candidate, expected
// circle) triple as an anchor, derives the implied translation, and
// counts how many of the remaining expected circles are matched by some
// same-polarity candidate within maxDistanceCells. The best-scoring
// (transform, translation) is chosen by agreeing-circle count, then by
// lowest total cell distance, then lexicographically on (T, t) for
// determinism — the same tie-break order the alignment stage uses.
func matchExpectedCircles(candidates []Candidate, layout Layout, params MatchParams) (AlignmentResult, bool) {
	var best *scoredAlignment

	tryKey := func(ti int, t geometry.GridTransform, tx, ty int32) {
		var matches []Match
		usedCandidate := make(map[int]bool)
		var totalDist float64
		for ei, spec := range layout.Circles {
			bestCandIdx := -1
			bestD := math.Inf(1)
			for ci, c := range candidates {
				if usedCandidate[ci] || c.Polarity != spec.Polarity {
					continue
				}
				px, py := t.Apply(c.Cell.I, c.Cell.J)
				px += tx
				py += ty
				d := math.Hypot(float64(px-spec.Cell.I), float64(py-spec.Cell.J))
				if params.MaxDistanceCells != nil && d > *params.MaxDistanceCells {
					continue
				}
				if d < bestD {
					bestD = d
					bestCandIdx = ci
				}
			}
			if bestCandIdx < 0 {
				continue
			}
			usedCandidate[bestCandIdx] = true
			totalDist += bestD
			matches = append(matches, Match{ExpectedIndex: ei, Candidate: candidates[bestCandIdx]})
		}
		if len(matches) < params.MinOffsetInliers {
			return
		}
		key := alignKey{transform: ti, tx: tx, ty: ty}
		cand := &scoredAlignment{key: key, matches: matches, dist: totalDist}
		if best == nil || betterAlignment(*cand, *best) {
			best = cand
		}
	}

	for ti, t := range geometry.GridTransformsD4 {
		for _, c := range candidates {
			for _, spec := range layout.Circles {
				if c.Polarity != spec.Polarity {
					continue
				}
				px, py := t.Apply(c.Cell.I, c.Cell.J)
				tx := spec.Cell.I - px
				ty := spec.Cell.J - py
				tryKey(ti, t, tx, ty)
			}
		}
	}

	if best == nil {
		return AlignmentResult{}, false
	}
	alignment := geometry.GridAlignment{
		Transform:   geometry.GridTransformsD4[best.key.transform],
		Translation: [2]int32{best.key.tx, best.key.ty},
	}
	return AlignmentResult{Alignment: alignment, Matches: best.matches}, true
}

func betterAlignment(a, b scoredAlignment) bool {
	if len(a.matches) != len(b.matches) {
		return len(a.matches) > len(b.matches)
	}
	if a.dist != b.dist {
		return a.dist < b.dist
	}
	if a.key.transform != b.key.transform {
		return a.key.transform < b.key.transform
	}
	if a.key.tx != b.key.tx {
		return a.key.tx < b.key.tx
	}
	return a.key.ty < b.key.ty
}
