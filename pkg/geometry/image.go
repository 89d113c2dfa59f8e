package geometry

import "math"

// GrayImageView is a read-only view over an 8-bit grayscale image buffer,
// row-major, no row padding, origin at top-left.
type GrayImageView struct {
	Width  int
	Height int
	Data   []uint8
}

// GrayImage owns its pixel buffer, e.g. the output of a warp or rectify.
type GrayImage struct {
	Width  int
	Height int
	Data   []uint8
}

// View returns a read-only view over the owned buffer.
func (g GrayImage) View() GrayImageView {
	return GrayImageView{Width: g.Width, Height: g.Height, Data: g.Data}
}

// At returns the pixel at (x, y), or 0 if out of bounds.
func (v GrayImageView) At(x, y int) uint8 {
	if x < 0 || y < 0 || x >= v.Width || y >= v.Height {
		return 0
	}
	return v.Data[y*v.Width+x]
}

// SampleBilinear returns a bilinearly interpolated float sample, clamped to
// zero for out-of-bounds reads. Pixel (ix, iy) is centered at
// (ix+0.5, iy+0.5).
func SampleBilinear(v GrayImageView, x, y float64) float64 {
	x -= 0.5
	y -= 0.5
	x0 := math.Floor(x)
	y0 := math.Floor(y)
	fx := x - x0
	fy := y - y0
	ix0, iy0 := int(x0), int(y0)

	p00 := float64(v.At(ix0, iy0))
	p10 := float64(v.At(ix0+1, iy0))
	p01 := float64(v.At(ix0, iy0+1))
	p11 := float64(v.At(ix0+1, iy0+1))

	top := p00 + (p10-p00)*fx
	bot := p01 + (p11-p01)*fx
	return top + (bot-top)*fy
}

// SampleBilinearU8 returns a bilinearly interpolated sample rounded and
// clamped to [0, 255].
func SampleBilinearU8(v GrayImageView, x, y float64) uint8 {
	s := SampleBilinear(v, x, y)
	if s < 0 {
		return 0
	}
	if s > 255 {
		return 255
	}
	return uint8(s + 0.5)
}

// WarpPerspectiveGray fills each destination pixel by bilinear sampling src
// at H . (x+0.5, y+0.5, 1), edge-clamped to zero, per invariant (b): pixel
// centers are at (x+0.5, y+0.5).
func WarpPerspectiveGray(src GrayImageView, hDstToSrc Homography, outW, outH int) GrayImage {
	out := make([]uint8, outW*outH)
	for y := 0; y < outH; y++ {
		for x := 0; x < outW; x++ {
			p := hDstToSrc.Apply(Point2D{X: float64(x) + 0.5, Y: float64(y) + 0.5})
			out[y*outW+x] = SampleBilinearU8(src, p.X, p.Y)
		}
	}
	return GrayImage{Width: outW, Height: outH, Data: out}
}

// WarpPerspectiveGrayFast is identical to WarpPerspectiveGray but assumes
// every mapped coordinate lands strictly inside src and skips the
// bounds-checked At() path, trading safety for speed on the hot per-pixel
// loop. Callers must guarantee the mapped quad lies within src bounds.
func WarpPerspectiveGrayFast(src GrayImageView, hDstToSrc Homography, outW, outH int) GrayImage {
	out := make([]uint8, outW*outH)
	maxX := float64(src.Width - 1)
	maxY := float64(src.Height - 1)
	for y := 0; y < outH; y++ {
		for x := 0; x < outW; x++ {
			p := hDstToSrc.Apply(Point2D{X: float64(x) + 0.5, Y: float64(y) + 0.5})
			px, py := p.X-0.5, p.Y-0.5
			if px < 0 {
				px = 0
			} else if px > maxX {
				px = maxX
			}
			if py < 0 {
				py = 0
			} else if py > maxY {
				py = maxY
			}
			x0, y0 := int(px), int(py)
			x1, y1 := x0+1, y0+1
			if x1 > src.Width-1 {
				x1 = src.Width - 1
			}
			if y1 > src.Height-1 {
				y1 = src.Height - 1
			}
			fx, fy := px-float64(x0), py-float64(y0)
			p00 := float64(src.Data[y0*src.Width+x0])
			p10 := float64(src.Data[y0*src.Width+x1])
			p01 := float64(src.Data[y1*src.Width+x0])
			p11 := float64(src.Data[y1*src.Width+x1])
			top := p00 + (p10-p00)*fx
			bot := p01 + (p11-p01)*fx
			s := top + (bot-top)*fy
			if s < 0 {
				s = 0
			} else if s > 255 {
				s = 255
			}
			out[y*outW+x] = uint8(s + 0.5)
		}
	}
	return GrayImage{Width: outW, Height: outH, Data: out}
}
