package orientation

import (
	"math"
	"testing"

	"github.com/calib-targets/calib-targets-go/internal/target/core"
	"github.com/stretchr/testify/assert"
)

func mkCorners(angles []float64) []core.Corner {
	out := make([]core.Corner, len(angles))
	for i, a := range angles {
		out[i] = core.Corner{Orientation: a, Strength: 1}
	}
	return out
}

func TestClusterTwoDominantModes(t *testing.T) {
	var angles []float64
	for i := 0; i < 20; i++ {
		angles = append(angles, wrapAnglePi(0.0+0.01*float64(i%3-1)))
	}
	for i := 0; i < 20; i++ {
		angles = append(angles, wrapAnglePi(math.Pi/2+0.01*float64(i%3-1)))
	}
	res := Cluster(mkCorners(angles), DefaultParams())
	assert.InDelta(t, 0.0, angularDistPi(res.Axis0, 0), 0.05)
	assert.InDelta(t, 0.0, angularDistPi(res.Axis1, math.Pi/2), 0.05)

	var outliers int
	for _, l := range res.Labels {
		if l == core.ClusterOutlier {
			outliers++
		}
	}
	assert.Zero(t, outliers)
}

func TestClusterMarksFarAnglesAsOutliers(t *testing.T) {
	angles := []float64{0, 0, 0, 0, 0, math.Pi / 2, math.Pi / 2, math.Pi / 2, math.Pi / 2, math.Pi / 2, math.Pi / 4}
	res := Cluster(mkCorners(angles), DefaultParams())
	assert.Equal(t, core.ClusterOutlier, res.Labels[len(res.Labels)-1])
}

func TestEstimateAxesFallbackOrthogonal(t *testing.T) {
	angles := []float64{0.1, 0.1, 0.1}
	a0, a1, ok := EstimateAxes(mkCorners(angles))
	assert.True(t, ok)
	assert.InDelta(t, math.Pi/2, angularDistPi(a0, a1), 1e-6)
}

func TestAngularDistPiWrapsCorrectly(t *testing.T) {
	assert.InDelta(t, 0.0, angularDistPi(0.01, math.Pi-0.01), 0.03)
}
