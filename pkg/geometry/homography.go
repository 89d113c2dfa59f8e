package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Homography is a 3x3 real matrix treated up to non-zero scale. It maps
// points by homogeneous multiplication followed by perspective divide.
type Homography struct {
	H [3][3]float64
}

// HomographyFromArray builds a Homography from a row-major 9-element array.
func HomographyFromArray(a [9]float64) Homography {
	return Homography{H: [3][3]float64{
		{a[0], a[1], a[2]},
		{a[3], a[4], a[5]},
		{a[6], a[7], a[8]},
	}}
}

// ToArray returns the row-major 9-element representation.
func (h Homography) ToArray() [9]float64 {
	return [9]float64{
		h.H[0][0], h.H[0][1], h.H[0][2],
		h.H[1][0], h.H[1][1], h.H[1][2],
		h.H[2][0], h.H[2][1], h.H[2][2],
	}
}

// Apply maps a point by homogeneous multiplication and perspective divide.
func (h Homography) Apply(p Point2D) Point2D {
	x := h.H[0][0]*p.X + h.H[0][1]*p.Y + h.H[0][2]
	y := h.H[1][0]*p.X + h.H[1][1]*p.Y + h.H[1][2]
	w := h.H[2][0]*p.X + h.H[2][1]*p.Y + h.H[2][2]
	if w == 0 {
		return Point2D{}
	}
	return Point2D{X: x / w, Y: y / w}
}

// Inverse returns the inverse homography, if the matrix is non-singular.
func (h Homography) Inverse() (Homography, bool) {
	m := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m.Set(i, j, h.H[i][j])
		}
	}
	var inv mat.Dense
	if err := inv.Inverse(m); err != nil {
		return Homography{}, false
	}
	var out Homography
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.H[i][j] = inv.At(i, j)
		}
	}
	return out, true
}

// hartleyNormalization builds the 3x3 scale+translate matrix that maps a
// point cloud with centroid (cx, cy) and mean distance meanDist to the
// origin with mean distance sqrt(2), per Hartley's isotropic normalization.
func hartleyNormalization(cx, cy, meanDist float64) Homography {
	if meanDist < 1e-12 {
		meanDist = 1e-12
	}
	s := math.Sqrt2 / meanDist
	return HomographyFromArray([9]float64{
		s, 0, -s * cx,
		0, s, -s * cy,
		0, 0, 1,
	})
}

// normalizePoints computes the Hartley normalization transform for pts and
// returns the transform together with the normalized points.
func normalizePoints(pts []Point2D) (Homography, []Point2D) {
	c := Centroid(pts)
	var meanDist float64
	for _, p := range pts {
		meanDist += p.Distance(c)
	}
	meanDist /= float64(len(pts))
	t := hartleyNormalization(c.X, c.Y, meanDist)
	out := make([]Point2D, len(pts))
	for i, p := range pts {
		out[i] = t.Apply(p)
	}
	return t, out
}

func normalizeHomography(h Homography) Homography {
	s := h.H[2][2]
	if s == 0 || math.IsNaN(s) {
		return h
	}
	out := h
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.H[i][j] /= s
		}
	}
	return out
}

func denormalizeHomography(tSrc, hNorm, tDstInv Homography) Homography {
	return mulH(mulH(tDstInv, hNorm), tSrc)
}

func mulH(a, b Homography) Homography {
	var out Homography
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var s float64
			for k := 0; k < 3; k++ {
				s += a.H[i][k] * b.H[k][j]
			}
			out.H[i][j] = s
		}
	}
	return out
}

// EstimateHomography estimates the homography mapping src points to dst
// points. For exactly 4 correspondences it uses the closed-form 4-point
// solve; for N > 4 it uses a Hartley-normalized DLT solved by
// SVD. Returns an error if the inputs are mismatched, too few, or the
// coefficient matrix is rank-deficient (collinear or duplicated points).
func EstimateHomography(src, dst []Point2D) (Homography, error) {
	if len(src) != len(dst) {
		return Homography{}, fmt.Errorf("geometry: mismatched point counts (%d src, %d dst)", len(src), len(dst))
	}
	if len(src) < 4 {
		return Homography{}, fmt.Errorf("geometry: need at least 4 correspondences, got %d", len(src))
	}
	if len(src) == 4 {
		return HomographyFrom4Point(
			[4]Point2D{src[0], src[1], src[2], src[3]},
			[4]Point2D{dst[0], dst[1], dst[2], dst[3]},
		)
	}
	return estimateHomographyDLT(src, dst)
}

func estimateHomographyDLT(src, dst []Point2D) (Homography, error) {
	tSrc, srcN := normalizePoints(src)
	tDst, dstN := normalizePoints(dst)
	tDstInv, ok := tDst.Inverse()
	if !ok {
		return Homography{}, fmt.Errorf("geometry: destination normalization not invertible")
	}

	n := len(srcN)
	a := mat.NewDense(2*n, 9, nil)
	for i := 0; i < n; i++ {
		x, y := srcN[i].X, srcN[i].Y
		u, v := dstN[i].X, dstN[i].Y
		a.SetRow(2*i, []float64{-x, -y, -1, 0, 0, 0, u * x, u * y, u})
		a.SetRow(2*i+1, []float64{0, 0, 0, -x, -y, -1, v * x, v * y, v})
	}

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDFull); !ok {
		return Homography{}, fmt.Errorf("geometry: SVD factorization failed (degenerate configuration)")
	}
	var v mat.Dense
	svd.VTo(&v)
	// Last column of V (equivalently last row of V^T) is the null-space
	// solution minimizing |A h|.
	rows, cols := v.Dims()
	if cols != 9 || rows != 9 {
		return Homography{}, fmt.Errorf("geometry: unexpected SVD shape %dx%d", rows, cols)
	}
	var h [9]float64
	for i := 0; i < 9; i++ {
		h[i] = v.At(i, 8)
	}
	sv := svd.Values(nil)
	if sv[7] <= 1e-9*sv[0] {
		return Homography{}, fmt.Errorf("geometry: coefficient matrix is rank-deficient (collinear or duplicated points)")
	}

	hn := HomographyFromArray(h)
	hDenorm := denormalizeHomography(tSrc, hn, tDstInv)
	result := normalizeHomography(hDenorm)
	if math.IsNaN(result.H[0][0]) {
		return Homography{}, fmt.Errorf("geometry: DLT produced NaN homography")
	}
	return result, nil
}

// HomographyFrom4Point solves the closed-form 4-point homography via an
// 8x8 linear system with h33 fixed to 1.
func HomographyFrom4Point(src, dst [4]Point2D) (Homography, error) {
	a := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)
	for i := 0; i < 4; i++ {
		x, y := src[i].X, src[i].Y
		u, v := dst[i].X, dst[i].Y
		a.SetRow(2*i, []float64{x, y, 1, 0, 0, 0, -u * x, -u * y})
		b.SetVec(2*i, u)
		a.SetRow(2*i+1, []float64{0, 0, 0, x, y, 1, -v * x, -v * y})
		b.SetVec(2*i+1, v)
	}

	var lu mat.LU
	lu.Factorize(a)
	if c := lu.Cond(); math.IsInf(c, 1) || c > 1e14 {
		return Homography{}, fmt.Errorf("geometry: 4-point system is singular (collinear or duplicate points)")
	}
	var x mat.VecDense
	if err := lu.SolveVecTo(&x, false, b); err != nil {
		return Homography{}, fmt.Errorf("geometry: 4-point solve failed: %w", err)
	}

	return HomographyFromArray([9]float64{
		x.AtVec(0), x.AtVec(1), x.AtVec(2),
		x.AtVec(3), x.AtVec(4), x.AtVec(5),
		x.AtVec(6), x.AtVec(7), 1,
	}), nil
}
