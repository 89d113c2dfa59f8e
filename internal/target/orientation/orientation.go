// Package orientation recovers the two dominant grid-axis directions from
// per-corner orientations defined modulo pi (line directions, not vectors).
package orientation

import (
	"math"

	"github.com/calib-targets/calib-targets-go/internal/target/core"
)

// Params configures histogram-based peak finding and k-means refinement.
type Params struct {
	HistogramBins         int
	MinPeakSeparationDeg  float64
	OutlierToleranceDeg   float64
	MinPeakWeightFraction float64
	UseWeights            bool
	MaxIters              int
}

// DefaultParams mirror the reference implementation's defaults.
func DefaultParams() Params {
	return Params{
		HistogramBins:         90,
		MinPeakSeparationDeg:  10.0,
		OutlierToleranceDeg:   30.0,
		MinPeakWeightFraction: 0.05,
		UseWeights:            true,
		MaxIters:              10,
	}
}

// Result is the outcome of clustering corner orientations into two axes.
type Result struct {
	Axis0, Axis1 float64 // radians, in [0, pi)
	Labels       []core.OrientationCluster
}

var smoothingKernel = [5]float64{1.0 / 16, 4.0 / 16, 6.0 / 16, 4.0 / 16, 1.0 / 16}

// wrapAnglePi wraps an angle into [0, pi).
func wrapAnglePi(a float64) float64 {
	const pi = math.Pi
	a = math.Mod(a, pi)
	if a < 0 {
		a += pi
	}
	return a
}

// angularDistPi returns the period-pi distance between two angles, in [0, pi/2].
func angularDistPi(a, b float64) float64 {
	d := math.Abs(wrapAnglePi(a) - wrapAnglePi(b))
	if d > math.Pi/2 {
		d = math.Pi - d
	}
	return d
}

func angleToBin(angle float64, numBins int) int {
	a := wrapAnglePi(angle)
	bin := int(a / math.Pi * float64(numBins))
	if bin >= numBins {
		bin = numBins - 1
	}
	if bin < 0 {
		bin = 0
	}
	return bin
}

func binToAngle(bin, numBins int) float64 {
	return (float64(bin) + 0.5) / float64(numBins) * math.Pi
}

func buildHistogram(corners []core.Corner, numBins int, useWeights bool) []float64 {
	hist := make([]float64, numBins)
	for _, c := range corners {
		w := 1.0
		if useWeights {
			w = math.Max(c.Strength, 0)
		}
		hist[angleToBin(c.Orientation, numBins)] += w
	}
	return hist
}

func smoothCircular(hist []float64) []float64 {
	n := len(hist)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		var s float64
		for k := -2; k <= 2; k++ {
			idx := ((i+k)%n + n) % n
			s += hist[idx] * smoothingKernel[k+2]
		}
		out[i] = s
	}
	return out
}

// findTwoDominantPeaks returns the bin indices of the two highest local
// maxima on the circular histogram that are separated by at least
// minSepBins, or ok=false if fewer than two local maxima qualify.
func findTwoDominantPeaks(hist []float64, minSepBins int) (p0, p1 int, ok bool) {
	n := len(hist)
	type peak struct {
		bin   int
		value float64
	}
	var peaks []peak
	for i := 0; i < n; i++ {
		prev := hist[(i-1+n)%n]
		next := hist[(i+1)%n]
		if hist[i] >= prev && hist[i] >= next && hist[i] > 0 {
			peaks = append(peaks, peak{bin: i, value: hist[i]})
		}
	}
	if len(peaks) < 2 {
		return 0, 0, false
	}
	// Sort descending by value (stable insertion sort, small N).
	for i := 1; i < len(peaks); i++ {
		for j := i; j > 0 && peaks[j].value > peaks[j-1].value; j-- {
			peaks[j], peaks[j-1] = peaks[j-1], peaks[j]
		}
	}

	circDist := func(a, b int) int {
		d := a - b
		if d < 0 {
			d = -d
		}
		if d > n-d {
			d = n - d
		}
		return d
	}

	best0 := peaks[0]
	for i := 1; i < len(peaks); i++ {
		if circDist(best0.bin, peaks[i].bin) >= minSepBins {
			return best0.bin, peaks[i].bin, true
		}
	}
	return 0, 0, false
}

// Cluster recovers two dominant axis directions and labels each corner
// against the nearer axis, marking corners beyond OutlierToleranceDeg as
// outliers. Falls back to EstimateAxes when fewer than two separated peaks
// are found.
func Cluster(corners []core.Corner, p Params) Result {
	if len(corners) == 0 {
		return Result{}
	}

	hist := smoothCircular(buildHistogram(corners, p.HistogramBins, p.UseWeights))
	var totalWeight float64
	for _, v := range hist {
		totalWeight += v
	}

	minSepBins := int(p.MinPeakSeparationDeg / 180.0 * float64(p.HistogramBins))
	if minSepBins < 1 {
		minSepBins = 1
	}

	p0bin, p1bin, ok := findTwoDominantPeaks(hist, minSepBins)
	if !ok || totalWeight <= 0 {
		return fallback(corners, p)
	}
	if totalWeight > 0 {
		if hist[p0bin]/totalWeight < p.MinPeakWeightFraction || hist[p1bin]/totalWeight < p.MinPeakWeightFraction {
			return fallback(corners, p)
		}
	}

	axis0 := binToAngle(p0bin, p.HistogramBins)
	axis1 := binToAngle(p1bin, p.HistogramBins)

	axis0, axis1 = refineKMeans(corners, axis0, axis1, p.MaxIters)

	return labelCorners(corners, axis0, axis1, p.OutlierToleranceDeg)
}

// refineKMeans runs k-means (k=2) on the doubled-angle unit circle to avoid
// the modulo-pi wrap, returning refined axis angles.
func refineKMeans(corners []core.Corner, axis0, axis1 float64, iters int) (float64, float64) {
	c0x, c0y := math.Cos(2*axis0), math.Sin(2*axis0)
	c1x, c1y := math.Cos(2*axis1), math.Sin(2*axis1)

	for iter := 0; iter < iters; iter++ {
		var s0x, s0y, s1x, s1y float64
		var n0, n1 int
		for _, c := range corners {
			x, y := math.Cos(2*c.Orientation), math.Sin(2*c.Orientation)
			d0 := (x-c0x)*(x-c0x) + (y-c0y)*(y-c0y)
			d1 := (x-c1x)*(x-c1x) + (y-c1y)*(y-c1y)
			if d0 <= d1 {
				s0x += x
				s0y += y
				n0++
			} else {
				s1x += x
				s1y += y
				n1++
			}
		}
		if n0 > 0 {
			c0x, c0y = s0x/float64(n0), s0y/float64(n0)
		}
		if n1 > 0 {
			c1x, c1y = s1x/float64(n1), s1y/float64(n1)
		}
	}

	a0 := wrapAnglePi(0.5 * math.Atan2(c0y, c0x))
	a1 := wrapAnglePi(0.5 * math.Atan2(c1y, c1x))
	return a0, a1
}

func labelCorners(corners []core.Corner, axis0, axis1, outlierToleranceDeg float64) Result {
	outlierRad := outlierToleranceDeg * math.Pi / 180.0
	labels := make([]core.OrientationCluster, len(corners))
	for i, c := range corners {
		d0 := angularDistPi(c.Orientation, axis0)
		d1 := angularDistPi(c.Orientation, axis1)
		switch {
		case d0 <= d1 && d0 <= outlierRad:
			labels[i] = core.ClusterAxis0
		case d1 < d0 && d1 <= outlierRad:
			labels[i] = core.ClusterAxis1
		default:
			labels[i] = core.ClusterOutlier
		}
	}
	return Result{Axis0: axis0, Axis1: axis1, Labels: labels}
}

// EstimateAxes computes axes from a doubled-angle circular mean and derives
// the second axis as the orthogonal direction, skipping clustering
// entirely. Used when too few corners remain or peaks aren't separated.
func EstimateAxes(corners []core.Corner) (axis0, axis1 float64, ok bool) {
	if len(corners) == 0 {
		return 0, 0, false
	}
	var sx, sy float64
	for _, c := range corners {
		sx += math.Cos(2 * c.Orientation)
		sy += math.Sin(2 * c.Orientation)
	}
	if sx == 0 && sy == 0 {
		return 0, 0, false
	}
	axis0 = wrapAnglePi(0.5 * math.Atan2(sy, sx))
	axis1 = wrapAnglePi(axis0 + math.Pi/2)
	return axis0, axis1, true
}

func fallback(corners []core.Corner, p Params) Result {
	axis0, axis1, ok := EstimateAxes(corners)
	if !ok {
		return Result{}
	}
	return labelCorners(corners, axis0, axis1, p.OutlierToleranceDeg)
}
