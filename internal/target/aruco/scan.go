package aruco

import (
	"context"

	"github.com/calib-targets/calib-targets-go/internal/target/workerpool"
	"github.com/calib-targets/calib-targets-go/pkg/geometry"
)

// Config mirrors ScanDecodeConfig: the tunables for sampling and
// accepting a single candidate cell.
type Config struct {
	BorderBits     int
	MarkerSizeRel  float64
	InsetFrac      float64
	MinBorderScore float64
	DedupByID      bool
	MaxHamming     int
}

// DefaultConfig mirrors the reference implementation's defaults.
func DefaultConfig() Config {
	return Config{
		BorderBits:     1,
		MarkerSizeRel:  1.0,
		InsetFrac:      0.06,
		MinBorderScore: 0.6,
		DedupByID:      true,
		MaxHamming:     0,
	}
}

// Detection is one decoded marker cell. CornersImg, when set, is always
// indexed by the cell's top-left grid coordinate gc0 (pre-rotation), not
// by the rotated gc; recovering gc0 from gc uses GC0FromGC.
type Detection struct {
	ID          int
	GC          [2]int32 // post-rotation grid cell coordinate
	Rotation    int
	Hamming     int
	Score       float64
	BorderScore float64
	Code        uint64
	Inverted    bool
	CornersRect [4]geometry.Point2D
	CornersImg  *[4]geometry.Point2D
}

// rotOffsets gives the (di, dj) offset from gc0 to gc for each rotation,
// per the §3 relation gc = gc0 + rot_offset(rotation).
var rotOffsets = [4][2]int32{{0, 0}, {1, 0}, {1, 1}, {0, 1}}

// RotationOffset returns the (di, dj) offset applied to gc0 to get gc
// under the given rotation.
func RotationOffset(rotation int) (int32, int32) {
	o := rotOffsets[((rotation%4)+4)%4]
	return o[0], o[1]
}

// GC0FromGC recovers gc0 (the cell's top-left corner) from a rotated gc,
// per the §3 relation gc = gc0 + rot_offset(rotation).
func GC0FromGC(gc [2]int32, rotation int) [2]int32 {
	di, dj := RotationOffset(rotation)
	return [2]int32{gc[0] - di, gc[1] - dj}
}

// sampleGridFromQuad computes the bit-grid samples for a marker cell
// given its image-space quad (TL,TR,BR,BL) and the source image: it
// fits the unit-square->quad homography, shrinks to the marker region
// by (1-marker_size_rel)/2 plus inset_frac, then samples the center of
// every expected bit (a side+2*border_bits grid) via bilinear lookup.
func sampleGridFromQuad(img geometry.GrayImageView, quad [4]geometry.Point2D, side int, cfg Config) ([]float64, [][2]int, error) {
	unitSquare := [4]geometry.Point2D{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}
	hUnitToImg, err := geometry.HomographyFrom4Point(unitSquare, quad)
	if err != nil {
		return nil, nil, err
	}

	gridSide := side + 2*cfg.BorderBits
	shrink := (1 - cfg.MarkerSizeRel) / 2
	margin := shrink + cfg.InsetFrac

	samples := make([]float64, 0, gridSide*gridSide)
	coords := make([][2]int, 0, gridSide*gridSide)
	for r := 0; r < gridSide; r++ {
		for c := 0; c < gridSide; c++ {
			u := margin + (1-2*margin)*(float64(c)+0.5)/float64(gridSide)
			v := margin + (1-2*margin)*(float64(r)+0.5)/float64(gridSide)
			p := hUnitToImg.Apply(geometry.Point2D{X: u, Y: v})
			samples = append(samples, geometry.SampleBilinear(img, p.X, p.Y))
			coords = append(coords, [2]int{r, c})
		}
	}
	return samples, coords, nil
}

// binarizeGrid thresholds samples with Otsu, returning a bit grid of
// side "black=1" bits, plus a border score (fraction of border bits that
// are black).
func binarizeGrid(samples []float64, gridSide, borderBits int) (bits []int, borderScore float64) {
	thresh := OtsuThreshold(samples)
	bits = make([]int, len(samples))
	var borderTotal, borderBlack int
	for idx, s := range samples {
		r, c := idx/gridSide, idx%gridSide
		black := 0
		if s < thresh {
			black = 1
		}
		bits[idx] = black
		onBorder := r < borderBits || r >= gridSide-borderBits || c < borderBits || c >= gridSide-borderBits
		if onBorder {
			borderTotal++
			borderBlack += black
		}
	}
	if borderTotal > 0 {
		borderScore = float64(borderBlack) / float64(borderTotal)
	}
	return bits, borderScore
}

func packInnerCode(bits []int, gridSide, side, borderBits int) uint64 {
	var code uint64
	for r := 0; r < side; r++ {
		for c := 0; c < side; c++ {
			idx := (r+borderBits)*gridSide + (c + borderBits)
			if bits[idx] == 1 {
				code |= 1 << uint(r*side+c)
			}
		}
	}
	return code
}

// decodeCell runs the full per-cell pipeline: sample, binarize, border
// check, dictionary match (optionally trying the inverted polarity and
// keeping the strictly better match), returning ok=false if the border
// score or dictionary match fails.
func decodeCell(img geometry.GrayImageView, quad [4]geometry.Point2D, gc [2]int32, matcher *Matcher, cfg Config) (Detection, bool) {
	side := matcher.Dict.Side
	gridSide := side + 2*cfg.BorderBits

	samples, _, err := sampleGridFromQuad(img, quad, side, cfg)
	if err != nil {
		return Detection{}, false
	}

	bits, borderScore := binarizeGrid(samples, gridSide, cfg.BorderBits)
	if borderScore < cfg.MinBorderScore {
		return Detection{}, false
	}

	code := packInnerCode(bits, gridSide, side, cfg.BorderBits)
	match, ok := matcher.Match(code)
	inverted := false

	if cfg.DedupByID {
		invBits := make([]int, len(bits))
		for i, b := range bits {
			invBits[i] = 1 - b
		}
		invCode := packInnerCode(invBits, gridSide, side, cfg.BorderBits)
		invMatch, invOk := matcher.Match(invCode)
		if invOk && (!ok || invMatch.Hamming < match.Hamming) {
			match, ok, inverted = invMatch, true, true
			code = invCode
		}
	}
	if !ok {
		return Detection{}, false
	}

	di, dj := RotationOffset(match.Rotation)
	return Detection{
		ID:          match.ID,
		GC:          [2]int32{gc[0] + di, gc[1] + dj},
		Rotation:    match.Rotation,
		Hamming:     match.Hamming,
		Score:       borderScore,
		BorderScore: borderScore,
		Code:        code,
		Inverted:    inverted,
		CornersRect: quad,
	}, true
}

// ScanDecodeMarkersInCells takes per-cell image-space quads directly —
// avoiding a full rectified image — and decodes each independently. Each
// cell's decode is pure and touches no shared state, so the per-cell work
// runs across a bounded worker pool and is reassembled in the cells
// slice's original order regardless of which goroutine finishes first.
type cellDecodeResult struct {
	det Detection
	ok  bool
}

func ScanDecodeMarkersInCells(img geometry.GrayImageView, cells []CellQuad, matcher *Matcher, cfg Config) []Detection {
	results := workerpool.Map(context.Background(), cells, 0, func(_ context.Context, cell CellQuad) cellDecodeResult {
		det, ok := decodeCell(img, cell.Quad, [2]int32{cell.I, cell.J}, matcher, cfg)
		if !ok {
			return cellDecodeResult{}
		}
		quadCopy := cell.Quad
		det.CornersImg = &quadCopy
		return cellDecodeResult{det: det, ok: true}
	})

	out := make([]Detection, 0, len(cells))
	for _, r := range results {
		if r.ok {
			out = append(out, r.det)
		}
	}
	return out
}

// CellQuad is one candidate cell's image-space quad (TL,TR,BR,BL) at
// grid coordinate (I, J), identifying its top-left corner.
type CellQuad struct {
	I, J int32
	Quad [4]geometry.Point2D
}

// ScanDecodeMarkers iterates a regular grid of cellsWide x cellsHigh
// cells over a rectified image whose squares are pxPerSquare pixels
// wide, decoding each.
func ScanDecodeMarkers(rectified geometry.GrayImageView, pxPerSquare float64, cellsWide, cellsHigh int, matcher *Matcher, cfg Config) []Detection {
	cells := make([]CellQuad, 0, cellsWide*cellsHigh)
	for j := 0; j < cellsHigh; j++ {
		for i := 0; i < cellsWide; i++ {
			x0, y0 := float64(i)*pxPerSquare, float64(j)*pxPerSquare
			x1, y1 := x0+pxPerSquare, y0+pxPerSquare
			cells = append(cells, CellQuad{
				I: int32(i), J: int32(j),
				Quad: [4]geometry.Point2D{
					{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1},
				},
			})
		}
	}
	return ScanDecodeMarkersInCells(rectified, cells, matcher, cfg)
}
