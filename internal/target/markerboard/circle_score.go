package markerboard

import "github.com/calib-targets/calib-targets-go/pkg/geometry"

// diskRingOffsets is a lookup table of unit-square-relative sample
// offsets for the central disk and surrounding ring, built once per
// distinct CircleScoreParams and reused across every cell scored with
// those params.
type diskRingOffsets struct {
	disk []geometry.Point2D // offsets from (0.5, 0.5), in patch pixels
	ring []geometry.Point2D
}

func buildOffsets(p CircleScoreParams) diskRingOffsets {
	diskRadius := p.DiameterFrac * float64(p.PatchSize) / 2
	ringCenter := p.RingRadiusMul * diskRadius
	ringHalf := p.RingThicknessFrac * diskRadius / 2

	n := p.Samples
	if n < 8 {
		n = 8
	}

	disk := make([]geometry.Point2D, 0, n+1)
	disk = append(disk, geometry.Point2D{})
	for _, r := range []float64{diskRadius * 0.33, diskRadius * 0.66, diskRadius} {
		disk = append(disk, geometry.GenerateCirclePoints(0, 0, r, n)...)
	}

	ring := make([]geometry.Point2D, 0, 2*n)
	ring = append(ring, geometry.GenerateCirclePoints(0, 0, ringCenter-ringHalf, n)...)
	ring = append(ring, geometry.GenerateCirclePoints(0, 0, ringCenter+ringHalf, n)...)

	return diskRingOffsets{disk: disk, ring: ring}
}

// scoreCircleInSquare scales offsets by 1/PatchSize into the unit square,
// warps them through hUnitToImg (mapping the unit square onto the image
// quad) and compares the disk mean intensity to the ring mean intensity.
// Polarity is White if the disk reads brighter, Black if darker; the
// candidate is rejected (ok=false) if the contrast is below MinContrast.
func scoreCircleInSquare(img geometry.GrayImageView, hUnitToImg geometry.Homography, params CircleScoreParams, offsets diskRingOffsets) (Polarity, float64, bool) {
	patch := float64(params.PatchSize)
	center := geometry.Point2D{X: 0.5, Y: 0.5}

	sampleAt := func(off geometry.Point2D) float64 {
		u := center.X + off.X/patch
		v := center.Y + off.Y/patch
		p := hUnitToImg.Apply(geometry.Point2D{X: u, Y: v})
		return geometry.SampleBilinear(img, p.X, p.Y)
	}

	var diskSum, ringSum float64
	for _, o := range offsets.disk {
		diskSum += sampleAt(o)
	}
	for _, o := range offsets.ring {
		ringSum += sampleAt(o)
	}
	diskMean := diskSum / float64(len(offsets.disk))
	ringMean := ringSum / float64(len(offsets.ring))

	contrast := diskMean - ringMean
	if contrast < 0 {
		contrast = -contrast
	}
	if contrast < params.MinContrast {
		return White, 0, false
	}
	if diskMean > ringMean {
		return White, contrast, true
	}
	return Black, contrast, true
}
