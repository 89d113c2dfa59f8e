// Package chessboard implements the plain chessboard detector (C4):
// flood-fill the grid graph, assign integer indices via BFS, and pick the
// best connected component.
package chessboard

import (
	"sort"

	"github.com/calib-targets/calib-targets-go/internal/target/core"
	"github.com/calib-targets/calib-targets-go/internal/target/gridgraph"
	"github.com/calib-targets/calib-targets-go/internal/target/orientation"
	"github.com/calib-targets/calib-targets-go/pkg/geometry"
)

// Params configures chessboard detection.
type Params struct {
	MinCornerStrength        float64
	MinCorners               int
	ExpectedRows             *int
	ExpectedCols             *int
	CompletenessThreshold    float64
	UseOrientationClustering bool
}

// DefaultParams mirror the reference implementation's defaults.
func DefaultParams() Params {
	return Params{
		MinCornerStrength:        0,
		MinCorners:               16,
		CompletenessThreshold:    0.7,
		UseOrientationClustering: true,
	}
}

// Detector detects a plain chessboard from a corner cloud.
type Detector struct {
	params     Params
	gridSearch gridgraph.Params
	orient     orientation.Params
}

// New creates a detector with the given chessboard parameters and default
// grid-search / orientation parameters.
func New(p Params) *Detector {
	return &Detector{params: p, gridSearch: gridgraph.DefaultParams(), orient: orientation.DefaultParams()}
}

// WithGridSearch overrides the grid-graph neighbor-selection parameters.
func (d *Detector) WithGridSearch(p gridgraph.Params) *Detector {
	d.gridSearch = p
	return d
}

// WithOrientationParams overrides the C2 clustering parameters.
func (d *Detector) WithOrientationParams(p orientation.Params) *Detector {
	d.orient = p
	return d
}

// Result is a chessboard detection together with the indices (into the
// original corners slice) that the board was built from.
type Result struct {
	Detection core.TargetDetection
	Inliers   []int
}

// DetectFromCorners runs the full chessboard pipeline. Every expected
// failure (too few corners, no consistent component, size mismatch)
// returns ok=false rather than an error, per the error-handling policy.
func (d *Detector) DetectFromCorners(corners []core.Corner) (*Result, bool) {
	filtered, origIdx := filterByStrength(corners, d.params.MinCornerStrength)
	if len(filtered) == 0 {
		return nil, false
	}

	var axis0, axis1 float64
	var labels []core.OrientationCluster
	useClustering := d.params.UseOrientationClustering
	if useClustering {
		res := orientation.Cluster(filtered, d.orient)
		if res.Labels == nil {
			useClustering = false
		} else {
			axis0, axis1, labels = res.Axis0, res.Axis1, res.Labels
		}
	}
	if !useClustering {
		a0, a1, ok := orientation.EstimateAxes(filtered)
		if !ok {
			return nil, false
		}
		axis0, axis1 = a0, a1
	}

	labeled := make([]core.Corner, len(filtered))
	copy(labeled, filtered)
	if labels != nil {
		for i := range labeled {
			labeled[i].OrientationCluster = labels[i]
		}
	}

	graph := gridgraph.Build(labeled, axis0, axis1, true, d.gridSearch)
	components := graph.ConnectedComponents()

	var best *Result
	var bestCompleteness float64
	var bestSize int

	for _, comp := range components {
		assigned, ok := graph.AssignGridCoordinates(comp)
		if !ok {
			continue
		}
		w, h, shifted := normalize(assigned)

		if len(comp) < d.params.MinCorners {
			continue
		}
		completeness := float64(len(comp)) / float64(w*h)
		if completeness < d.params.CompletenessThreshold {
			continue
		}
		if d.params.ExpectedRows != nil && d.params.ExpectedCols != nil {
			rows, cols := *d.params.ExpectedRows, *d.params.ExpectedCols
			direct := w == cols && h == rows
			swapped := w == rows && h == cols
			if !direct && !swapped {
				continue
			}
		}

		if best == nil || completeness > bestCompleteness ||
			(completeness == bestCompleteness && len(comp) > bestSize) {
			best = buildResult(filtered, origIdx, shifted)
			bestCompleteness = completeness
			bestSize = len(comp)
		}
	}

	if best == nil {
		return nil, false
	}
	return best, true
}

func filterByStrength(corners []core.Corner, minStrength float64) ([]core.Corner, []int) {
	var out []core.Corner
	var idx []int
	for i, c := range corners {
		if c.Strength >= minStrength {
			out = append(out, c)
			idx = append(idx, i)
		}
	}
	return out, idx
}

// normalize translates assigned coordinates so min i = min j = 0 and
// returns the resulting width (max i + 1), height (max j + 1).
func normalize(assigned map[int]geometry.GridCoords) (w, h int, shifted map[int]geometry.GridCoords) {
	minI, minJ := int32(1<<31-1), int32(1<<31-1)
	maxI, maxJ := -minI, -minJ
	for _, g := range assigned {
		if g.I < minI {
			minI = g.I
		}
		if g.J < minJ {
			minJ = g.J
		}
		if g.I > maxI {
			maxI = g.I
		}
		if g.J > maxJ {
			maxJ = g.J
		}
	}
	shifted = make(map[int]geometry.GridCoords, len(assigned))
	for idx, g := range assigned {
		shifted[idx] = geometry.GridCoords{I: g.I - minI, J: g.J - minJ}
	}
	return int(maxI-minI) + 1, int(maxJ-minJ) + 1, shifted
}

func buildResult(filtered []core.Corner, origIdx []int, assigned map[int]geometry.GridCoords) *Result {
	type entry struct {
		origIndex int
		corner    core.LabeledCorner
	}
	var entries []entry
	for idx, g := range assigned {
		grid := g
		entries = append(entries, entry{
			origIndex: origIdx[idx],
			corner: core.LabeledCorner{
				Position: filtered[idx].Position,
				Grid:     &grid,
				Score:    filtered[idx].Strength,
			},
		})
	}
	sort.Slice(entries, func(a, b int) bool {
		ga, gb := entries[a].corner.Grid, entries[b].corner.Grid
		if ga.J != gb.J {
			return ga.J < gb.J
		}
		return ga.I < gb.I
	})

	inliers := make([]int, len(entries))
	corners := make([]core.LabeledCorner, len(entries))
	for i, e := range entries {
		inliers[i] = e.origIndex
		corners[i] = e.corner
	}

	return &Result{
		Detection: core.TargetDetection{Kind: core.Chessboard, Corners: corners},
		Inliers:   inliers,
	}
}
