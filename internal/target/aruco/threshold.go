package aruco

// OtsuThreshold computes the Otsu binarization threshold (0..255) from a
// set of sampled intensities, maximizing inter-class variance over a
// 256-bin histogram. Degenerate inputs (all samples identical, or at most
// two populated bins) fall back to the midpoint of the observed
// range so callers always get a usable split.
func OtsuThreshold(samples []float64) float64 {
	if len(samples) == 0 {
		return 127
	}
	var hist [256]int
	minV, maxV := samples[0], samples[0]
	for _, s := range samples {
		v := int(s)
		if v < 0 {
			v = 0
		}
		if v > 255 {
			v = 255
		}
		hist[v]++
		if s < minV {
			minV = s
		}
		if s > maxV {
			maxV = s
		}
	}
	if minV == maxV {
		return minV
	}

	nonZeroBins := 0
	for _, c := range hist {
		if c > 0 {
			nonZeroBins++
		}
	}
	if nonZeroBins <= 2 {
		return (minV + maxV) / 2
	}

	total := len(samples)
	var sumAll float64
	for v, c := range hist {
		sumAll += float64(v * c)
	}

	var sumB, wB float64
	var bestVar float64
	bestT := 0
	for t := 0; t < 256; t++ {
		wB += float64(hist[t])
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(t * hist[t])
		mB := sumB / wB
		mF := (sumAll - sumB) / wF
		betweenVar := wB * wF * (mB - mF) * (mB - mF)
		if betweenVar > bestVar {
			bestVar = betweenVar
			bestT = t
		}
	}
	return float64(bestT)
}
