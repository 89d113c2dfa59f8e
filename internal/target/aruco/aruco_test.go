package aruco

import (
	"testing"

	"github.com/calib-targets/calib-targets-go/pkg/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDictionaryHasRequestedCodeCount(t *testing.T) {
	assert.Equal(t, 50, DICT_4X4_50.CodeCount())
	assert.Equal(t, 4, DICT_4X4_50.BitsPerSide())
}

func TestRotateCodeFourTimesIsIdentity(t *testing.T) {
	code := DICT_4X4_50.Codes[3]
	got := RotateCode(code, 4, 4)
	assert.Equal(t, code, got)
}

func TestMatcherFindsExactRotatedCode(t *testing.T) {
	m := NewMatcher(DICT_4X4_50, 0)
	code := DICT_4X4_50.Codes[7]
	rotated := RotateCode(code, 4, 2)

	match, ok := m.Match(rotated)
	require.True(t, ok)
	assert.Equal(t, 7, match.ID)
	assert.Equal(t, 2, match.Rotation)
	assert.Equal(t, 0, match.Hamming)
}

func TestMatcherRejectsBeyondMaxHamming(t *testing.T) {
	m := NewMatcher(DICT_4X4_50, 0)
	// A single-bit flip from a known code is 1 bit away, which exceeds
	// maxHamming=0 -- and every other dictionary entry is at least
	// minInterCodeHamming bits away at every rotation, so no other entry
	// can absorb it either.
	flipped := DICT_4X4_50.Codes[0] ^ 0x1
	_, ok := m.Match(flipped)
	assert.False(t, ok)
}

func TestOtsuThresholdSeparatesTwoClusters(t *testing.T) {
	var samples []float64
	for i := 0; i < 20; i++ {
		samples = append(samples, 20)
	}
	for i := 0; i < 20; i++ {
		samples = append(samples, 220)
	}
	th := OtsuThreshold(samples)
	assert.Greater(t, th, 20.0)
	assert.Less(t, th, 220.0)
}

func TestOtsuThresholdDegenerateConstantInput(t *testing.T) {
	samples := []float64{128, 128, 128}
	assert.Equal(t, 128.0, OtsuThreshold(samples))
}

// renderCode produces a grayscale patch image encoding code under the
// "black=1" convention with a solid black border of borderBits cells,
// at cellPx pixels per bit, so that decodeCell should recover it exactly.
func renderCode(code uint64, side, borderBits, cellPx int) geometry.GrayImage {
	gridSide := side + 2*borderBits
	w := gridSide * cellPx
	data := make([]uint8, w*w)
	for r := 0; r < gridSide; r++ {
		for c := 0; c < gridSide; c++ {
			black := true
			if r >= borderBits && r < gridSide-borderBits && c >= borderBits && c < gridSide-borderBits {
				ir, ic := r-borderBits, c-borderBits
				black = bitAt(code, side, ir, ic) == 1
			}
			val := uint8(220)
			if black {
				val = 20
			}
			for y := r * cellPx; y < (r+1)*cellPx; y++ {
				for x := c * cellPx; x < (c+1)*cellPx; x++ {
					data[y*w+x] = val
				}
			}
		}
	}
	return geometry.GrayImage{Width: w, Height: w, Data: data}
}

func TestDecodeCellRecoversRenderedCode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InsetFrac = 0
	code := DICT_4X4_50.Codes[5]
	img := renderCode(code, 4, cfg.BorderBits, 20)

	gridSide := 4 + 2*cfg.BorderBits
	w := float64(gridSide * 20)
	quad := [4]geometry.Point2D{{X: 0, Y: 0}, {X: w, Y: 0}, {X: w, Y: w}, {X: 0, Y: w}}

	matcher := NewMatcher(DICT_4X4_50, 0)
	det, ok := decodeCell(img.View(), quad, [2]int32{0, 0}, matcher, cfg)
	require.True(t, ok)
	assert.Equal(t, 5, det.ID)
	assert.Equal(t, 0, det.Rotation)
	assert.GreaterOrEqual(t, det.BorderScore, cfg.MinBorderScore)
}
