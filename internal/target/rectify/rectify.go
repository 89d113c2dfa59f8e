// Package rectify produces a RectifiedView from a chessboard detection,
// either via one global homography or a per-cell mesh of homographies.
package rectify

import (
	"fmt"

	"github.com/calib-targets/calib-targets-go/internal/target/core"
	"github.com/calib-targets/calib-targets-go/pkg/geometry"
)

// Mapper maps rectified-space points to image-space points.
type Mapper interface {
	// ToImage maps a point in rectified (px_per_square-scaled) space to
	// image space. ok is false if the point falls outside any mapping
	// region and no fallback could be produced.
	ToImage(rx, ry float64) (geometry.Point2D, bool)
}

// View is the uniform rectified-view contract: a fresh pixel buffer in
// rectified space plus the mapper that produced it.
type View struct {
	Pixels      geometry.GrayImage
	PxPerSquare float64
	Mapper      Mapper
}

// GlobalMapper wraps a single rect->image homography.
type GlobalMapper struct {
	RectToImg geometry.Homography
}

func (m GlobalMapper) ToImage(rx, ry float64) (geometry.Point2D, bool) {
	return m.RectToImg.Apply(geometry.Point2D{X: rx, Y: ry}), true
}

// gridBounds scans the labeled corners for their integer grid extent.
func gridBounds(corners []core.LabeledCorner) (minI, minJ, maxI, maxJ int32, ok bool) {
	first := true
	for _, c := range corners {
		if c.Grid == nil {
			continue
		}
		if first {
			minI, maxI, minJ, maxJ = c.Grid.I, c.Grid.I, c.Grid.J, c.Grid.J
			first = false
			continue
		}
		if c.Grid.I < minI {
			minI = c.Grid.I
		}
		if c.Grid.I > maxI {
			maxI = c.Grid.I
		}
		if c.Grid.J < minJ {
			minJ = c.Grid.J
		}
		if c.Grid.J > maxJ {
			maxJ = c.Grid.J
		}
	}
	return minI, minJ, maxI, maxJ, !first
}

// RectifyGlobal fits one homography from every labeled corner's grid
// coordinate (scaled by pxPerSquare, offset by marginSquares) to its
// image position, then warps src into a canvas sized to the grid plus a
// margin of marginSquares on every side.
func RectifyGlobal(src geometry.GrayImageView, corners []core.LabeledCorner, pxPerSquare float64, marginSquares int) (*View, error) {
	minI, minJ, maxI, maxJ, ok := gridBounds(corners)
	if !ok {
		return nil, fmt.Errorf("rectify global: %w", core.ErrInsufficientCorners)
	}

	var rectPts, imgPts []geometry.Point2D
	for _, c := range corners {
		if c.Grid == nil {
			continue
		}
		rectPts = append(rectPts, geometry.Point2D{
			X: (float64(c.Grid.I-minI) + float64(marginSquares)) * pxPerSquare,
			Y: (float64(c.Grid.J-minJ) + float64(marginSquares)) * pxPerSquare,
		})
		imgPts = append(imgPts, c.Position)
	}
	if len(rectPts) < 4 {
		return nil, fmt.Errorf("rectify global: %w", core.ErrInsufficientCorners)
	}

	h, err := geometry.EstimateHomography(rectPts, imgPts)
	if err != nil {
		return nil, fmt.Errorf("rectify global: %w", err)
	}
	hInv, invOk := h.Inverse()
	if !invOk {
		return nil, fmt.Errorf("rectify global: %w", core.ErrDegenerateGeometry)
	}

	width := int((float64(maxI-minI) + 1 + 2*float64(marginSquares)) * pxPerSquare)
	height := int((float64(maxJ-minJ) + 1 + 2*float64(marginSquares)) * pxPerSquare)

	dst := geometry.WarpPerspectiveGray(src, hInv, width, height)

	return &View{
		Pixels:      dst,
		PxPerSquare: pxPerSquare,
		Mapper:      GlobalMapper{RectToImg: h},
	}, nil
}

// MeshMapper is a per-cell homography mesh, keyed by the cell's
// top-left grid coordinate (relative to the mesh's own origin).
type MeshMapper struct {
	PxPerSquare float64
	Cells       map[[2]int32]geometry.Homography
}

func (m MeshMapper) cellOf(rx, ry float64) (int32, int32) {
	i := int32(rx / m.PxPerSquare)
	j := int32(ry / m.PxPerSquare)
	return i, j
}

// ToImage locates the containing cell and applies its homography. For
// out-of-grid queries it falls back to the nearest cell's homography,
// extrapolated — the mesh has no knowledge of distortion beyond its
// fitted cells, so extrapolation is the best available estimate.
func (m MeshMapper) ToImage(rx, ry float64) (geometry.Point2D, bool) {
	if len(m.Cells) == 0 {
		return geometry.Point2D{}, false
	}
	i, j := m.cellOf(rx, ry)
	if h, ok := m.Cells[[2]int32{i, j}]; ok {
		return h.Apply(geometry.Point2D{X: rx, Y: ry}), true
	}
	ni, nj, ok := m.nearestCell(i, j)
	if !ok {
		return geometry.Point2D{}, false
	}
	h := m.Cells[[2]int32{ni, nj}]
	return h.Apply(geometry.Point2D{X: rx, Y: ry}), true
}

func (m MeshMapper) nearestCell(i, j int32) (int32, int32, bool) {
	var bestI, bestJ int32
	bestDist := int64(-1)
	found := false
	for key := range m.Cells {
		di := int64(key[0] - i)
		dj := int64(key[1] - j)
		d := di*di + dj*dj
		if !found || d < bestDist {
			bestDist = d
			bestI, bestJ = key[0], key[1]
			found = true
		}
	}
	return bestI, bestJ, found
}

// cellRectToImg fits the 4-point homography mapping the rect cell's
// TL,TR,BR,BL corners (in rectified space, cell-local index i,j) to the
// image-space quad.
func cellRectToImg(i, j int32, pxPerSquare float64, quad [4]geometry.Point2D) (geometry.Homography, error) {
	src := [4]geometry.Point2D{
		{X: float64(i) * pxPerSquare, Y: float64(j) * pxPerSquare},
		{X: float64(i+1) * pxPerSquare, Y: float64(j) * pxPerSquare},
		{X: float64(i+1) * pxPerSquare, Y: float64(j+1) * pxPerSquare},
		{X: float64(i) * pxPerSquare, Y: float64(j+1) * pxPerSquare},
	}
	return geometry.HomographyFrom4Point(src, quad)
}

// RectifyMesh builds a per-cell homography mesh from every square cell
// whose four corners (TL,TR,BR,BL at grid (i,j),(i+1,j),(i+1,j+1),(i,j+1))
// are all present in corners, then warps each cell independently into a
// canvas sized to the grid. Cells lacking any of their four corners, or
// whose 4-point fit is degenerate, are left blank (zero pixels) — this
// is the per-cell abort the design mandates for DegenerateGeometry
// inside rectification.
func RectifyMesh(src geometry.GrayImageView, corners []core.LabeledCorner, pxPerSquare float64) (*View, error) {
	byGrid := make(map[[2]int32]geometry.Point2D)
	for _, c := range corners {
		if c.Grid == nil {
			continue
		}
		byGrid[[2]int32{c.Grid.I, c.Grid.J}] = c.Position
	}
	minI, minJ, maxI, maxJ, ok := gridBounds(corners)
	if !ok {
		return nil, fmt.Errorf("rectify mesh: %w", core.ErrInsufficientCorners)
	}

	cells := make(map[[2]int32]geometry.Homography)
	for i := minI; i < maxI; i++ {
		for j := minJ; j < maxJ; j++ {
			tl, okTL := byGrid[[2]int32{i, j}]
			tr, okTR := byGrid[[2]int32{i + 1, j}]
			br, okBR := byGrid[[2]int32{i + 1, j + 1}]
			bl, okBL := byGrid[[2]int32{i, j + 1}]
			if !okTL || !okTR || !okBR || !okBL {
				continue
			}
			h, err := cellRectToImg(i-minI, j-minJ, pxPerSquare, [4]geometry.Point2D{tl, tr, br, bl})
			if err != nil {
				continue
			}
			cells[[2]int32{i - minI, j - minJ}] = h
		}
	}
	if len(cells) == 0 {
		return nil, fmt.Errorf("rectify mesh: %w", core.ErrDegenerateGeometry)
	}

	width := int(float64(maxI-minI) * pxPerSquare)
	height := int(float64(maxJ-minJ) * pxPerSquare)
	dst := geometry.GrayImage{Width: width, Height: height, Data: make([]uint8, width*height)}

	for key, h := range cells {
		hInv, invOk := h.Inverse()
		if !invOk {
			continue
		}
		x0 := int(float64(key[0]) * pxPerSquare)
		y0 := int(float64(key[1]) * pxPerSquare)
		x1 := x0 + int(pxPerSquare)
		y1 := y0 + int(pxPerSquare)
		warpCellRegion(src, hInv, &dst, x0, y0, x1, y1)
	}

	return &View{
		Pixels:      dst,
		PxPerSquare: pxPerSquare,
		Mapper:      MeshMapper{PxPerSquare: pxPerSquare, Cells: cells},
	}, nil
}

// warpCellRegion fills dst[x0:x1, y0:y1] by bilinearly sampling src at
// hDstToSrc * (x+0.5, y+0.5).
func warpCellRegion(src geometry.GrayImageView, hDstToSrc geometry.Homography, dst *geometry.GrayImage, x0, y0, x1, y1 int) {
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > dst.Width {
		x1 = dst.Width
	}
	if y1 > dst.Height {
		y1 = dst.Height
	}
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			p := hDstToSrc.Apply(geometry.Point2D{X: float64(x) + 0.5, Y: float64(y) + 0.5})
			dst.Data[y*dst.Width+x] = geometry.SampleBilinearU8(src, p.X, p.Y)
		}
	}
}
