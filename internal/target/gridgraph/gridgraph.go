// Package gridgraph turns an unordered corner cloud into a 4-connected
// lattice: for each corner it selects up to four neighbors (Right, Left,
// Up, Down) consistent with the two estimated grid axes and a spacing
// band, then exposes connected-component and BFS grid-coordinate
// assignment helpers.
package gridgraph

import (
	"math"
	"sort"

	"github.com/calib-targets/calib-targets-go/internal/target/core"
	"github.com/calib-targets/calib-targets-go/pkg/geometry"
)

// Direction is one of the four cardinal slots a corner can have a neighbor
// in.
type Direction int

const (
	Right Direction = iota
	Left
	Up
	Down
)

var allDirections = [4]Direction{Right, Left, Up, Down}

// Opposite returns the reverse direction.
func (d Direction) Opposite() Direction {
	switch d {
	case Right:
		return Left
	case Left:
		return Right
	case Up:
		return Down
	default:
		return Up
	}
}

// Delta returns the (di, dj) grid-coordinate step implied by this
// direction: Right=(1,0), Left=(-1,0), Up=(0,-1), Down=(0,1).
func (d Direction) Delta() (int32, int32) {
	switch d {
	case Right:
		return 1, 0
	case Left:
		return -1, 0
	case Up:
		return 0, -1
	default:
		return 0, 1
	}
}

// Params configures neighbor selection.
type Params struct {
	MinSpacingPix         float64
	MaxSpacingPix         float64
	KNeighbors            int
	OrientationToleranceDeg float64
}

// DefaultParams provides a reasonable spacing-agnostic starting point;
// callers normally set MinSpacingPix/MaxSpacingPix from the observed
// corner cloud.
func DefaultParams() Params {
	return Params{
		MinSpacingPix:           0,
		MaxSpacingPix:           math.Inf(1),
		KNeighbors:              8,
		OrientationToleranceDeg: 10,
	}
}

// Graph is a plain undirected 4-regular (at most) grid graph, addressed by
// integer indices into the original corner slice, one slot per direction.
type Graph struct {
	Neighbors [][4]int // index -1 == no neighbor in that direction
}

type candidate struct {
	index     int
	deviation float64
	distance  float64
}

// Build constructs the grid graph for corners, using axis0/axis1 (radians,
// mod pi) as the two estimated grid-axis directions when useClustering is
// true, otherwise falling back to the per-edge 45-degree-bisector rule.
func Build(corners []core.Corner, axis0, axis1 float64, useClustering bool, p Params) *Graph {
	n := len(corners)
	g := &Graph{Neighbors: make([][4]int, n)}
	for i := range g.Neighbors {
		g.Neighbors[i] = [4]int{-1, -1, -1, -1}
	}
	if n == 0 {
		return g
	}

	tolRad := p.OrientationToleranceDeg * math.Pi / 180.0
	best := make([][4]*candidate, n)

	for i := 0; i < n; i++ {
		neighbors := kNearest(corners, i, p.KNeighbors)
		for _, j := range neighbors {
			if i == j {
				continue
			}
			d := corners[i].Position.Distance(corners[j].Position)
			if d < p.MinSpacingPix || d > p.MaxSpacingPix {
				continue
			}
			edge := corners[j].Position.Sub(corners[i].Position)

			var dir Direction
			var deviation float64
			var ok bool
			if useClustering {
				dir, deviation, ok = classifyDirection(edge, axis0, axis1, tolRad)
				if ok {
					ok = clusterConsistent(corners[i].OrientationCluster, corners[j].OrientationCluster, dir)
				}
			} else {
				dir, deviation, ok = classifyDirectionBisector(edge, corners[i].Orientation, corners[j].Orientation, tolRad)
			}
			if !ok {
				continue
			}

			cand := &candidate{index: j, deviation: deviation, distance: d}
			if best[i][dir] == nil || isBetter(cand, best[i][dir]) {
				best[i][dir] = cand
			}
		}
	}

	for i := 0; i < n; i++ {
		for _, dir := range allDirections {
			if best[i][dir] != nil {
				g.Neighbors[i][dir] = best[i][dir].index
			}
		}
	}
	return g
}

func isBetter(a, b *candidate) bool {
	if a.deviation != b.deviation {
		return a.deviation < b.deviation
	}
	return a.distance < b.distance
}

// clusterConsistent checks that the axis implied by dir agrees with both
// endpoints' cluster labels, when those labels are available. Unlabeled or
// outlier corners don't veto the edge.
func clusterConsistent(a, b core.OrientationCluster, dir Direction) bool {
	wantAxis0 := dir == Right || dir == Left
	check := func(c core.OrientationCluster) bool {
		switch c {
		case core.ClusterAxis0:
			return wantAxis0
		case core.ClusterAxis1:
			return !wantAxis0
		default:
			return true // None or Outlier: don't veto
		}
	}
	return check(a) && check(b)
}

// classifyDirection finds which of the four full-circle directions implied
// by the two mod-pi axes (axis0, axis0+pi, axis1, axis1+pi) best matches
// edge, returning Right/Left for axis0 and Down/Up for axis1 (image y
// increases downward).
func classifyDirection(edge geometry.Point2D, axis0, axis1, tolRad float64) (Direction, float64, bool) {
	edgeAngle := math.Atan2(edge.Y, edge.X)

	type opt struct {
		angle float64
		dir   Direction
	}
	options := [4]opt{
		{axis0, Right},
		{axis0 + math.Pi, Left},
		{axis1, Down},
		{axis1 + math.Pi, Up},
	}

	bestDev := math.Inf(1)
	var bestDir Direction
	for _, o := range options {
		dev := angularDistFull(edgeAngle, o.angle)
		if dev < bestDev {
			bestDev = dev
			bestDir = o.dir
		}
	}
	return bestDir, bestDev, bestDev <= tolRad
}

// classifyDirectionBisector is the non-clustering fallback: it expects the
// edge direction to sit near the axis implied by the 45-degree bisector of
// both endpoint orientations (mod pi line directions).
func classifyDirectionBisector(edge geometry.Point2D, orientA, orientB, tolRad float64) (Direction, float64, bool) {
	bisector := circularMeanPi(orientA, orientB)
	axis0 := wrapAnglePi(bisector + math.Pi/4)
	axis1 := wrapAnglePi(axis0 + math.Pi/2)
	return classifyDirection(edge, axis0, axis1, tolRad)
}

func wrapAnglePi(a float64) float64 {
	a = math.Mod(a, math.Pi)
	if a < 0 {
		a += math.Pi
	}
	return a
}

func circularMeanPi(a, b float64) float64 {
	x := math.Cos(2*a) + math.Cos(2*b)
	y := math.Sin(2*a) + math.Sin(2*b)
	if x == 0 && y == 0 {
		return wrapAnglePi(a)
	}
	return wrapAnglePi(0.5 * math.Atan2(y, x))
}

func angularDistFull(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 2*math.Pi)
	if d > math.Pi {
		d = 2*math.Pi - d
	}
	return d
}

func kNearest(corners []core.Corner, i, k int) []int {
	type dp struct {
		idx int
		d   float64
	}
	all := make([]dp, 0, len(corners)-1)
	for j := range corners {
		if j == i {
			continue
		}
		all = append(all, dp{idx: j, d: corners[i].Position.Distance(corners[j].Position)})
	}
	sort.Slice(all, func(a, b int) bool { return all[a].d < all[b].d })
	if k > len(all) {
		k = len(all)
	}
	out := make([]int, k)
	for idx := 0; idx < k; idx++ {
		out[idx] = all[idx].idx
	}
	return out
}

// ConnectedComponents returns the weakly-connected components of the
// graph, as lists of corner indices, using an iterative DFS.
func (g *Graph) ConnectedComponents() [][]int {
	n := len(g.Neighbors)
	visited := make([]bool, n)
	var components [][]int

	for start := 0; start < n; start++ {
		if visited[start] {
			continue
		}
		var comp []int
		stack := []int{start}
		visited[start] = true
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			comp = append(comp, cur)
			for _, dir := range allDirections {
				nb := g.Neighbors[cur][dir]
				if nb >= 0 && !visited[nb] {
					visited[nb] = true
					stack = append(stack, nb)
				}
			}
		}
		components = append(components, comp)
	}
	return components
}

// AssignGridCoordinates runs BFS from component[0], assigning it (0,0) and
// propagating (i+-1, j) across R/L edges and (i, j+-1) across D/U edges.
// Returns ok=false if any corner would receive two different grid labels
// (an inconsistent component).
func (g *Graph) AssignGridCoordinates(component []int) (map[int]geometry.GridCoords, bool) {
	if len(component) == 0 {
		return nil, false
	}
	assigned := make(map[int]geometry.GridCoords, len(component))
	seed := component[0]
	assigned[seed] = geometry.GridCoords{I: 0, J: 0}

	queue := []int{seed}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		curCoord := assigned[cur]
		for _, dir := range allDirections {
			nb := g.Neighbors[cur][dir]
			if nb < 0 {
				continue
			}
			di, dj := dir.Delta()
			want := geometry.GridCoords{I: curCoord.I + di, J: curCoord.J + dj}
			if existing, ok := assigned[nb]; ok {
				if existing != want {
					return nil, false
				}
				continue
			}
			assigned[nb] = want
			queue = append(queue, nb)
		}
	}
	return assigned, true
}
