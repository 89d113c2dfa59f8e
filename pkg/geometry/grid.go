package geometry

// GridTransform is an integer 2x2 matrix {a b; c d} with a,b,c,d in
// {-1,0,1} and determinant +-1: one of the 8 elements of the dihedral
// group D4 (4 rotations x optional reflection).
type GridTransform struct {
	A, B, C, D int32
}

// IdentityGridTransform is the D4 identity element.
var IdentityGridTransform = GridTransform{A: 1, B: 0, C: 0, D: 1}

// Apply maps grid coordinates (i, j) through the transform.
func (t GridTransform) Apply(i, j int32) (int32, int32) {
	return t.A*i + t.B*j, t.C*i + t.D*j
}

// Inverse returns the inverse transform. Every D4 element is unimodular
// (determinant +-1), so the inverse always has integer entries.
func (t GridTransform) Inverse() (GridTransform, bool) {
	det := t.A*t.D - t.B*t.C
	if det != 1 && det != -1 {
		return GridTransform{}, false
	}
	return GridTransform{
		A: t.D / det, B: -t.B / det,
		C: -t.C / det, D: t.A / det,
	}, true
}

// GridTransformsD4 enumerates all 8 elements of the dihedral group D4: the
// 4 rotations followed by their 4 reflected counterparts.
var GridTransformsD4 = [8]GridTransform{
	{A: 1, B: 0, C: 0, D: 1},   // identity
	{A: 0, B: -1, C: 1, D: 0},  // rotate 90
	{A: -1, B: 0, C: 0, D: -1}, // rotate 180
	{A: 0, B: 1, C: -1, D: 0},  // rotate 270
	{A: -1, B: 0, C: 0, D: 1},  // reflect x
	{A: 0, B: 1, C: 1, D: 0},   // reflect + rotate 90
	{A: 1, B: 0, C: 0, D: -1},  // reflect y
	{A: 0, B: -1, C: -1, D: 0}, // reflect + rotate 270
}

// GridAlignment maps detected grid coordinates (i, j) to board coordinates
// (col, row) via a D4 transform followed by an integer translation.
type GridAlignment struct {
	Transform   GridTransform
	Translation [2]int32
}

// IdentityGridAlignment is the identity alignment.
var IdentityGridAlignment = GridAlignment{Transform: IdentityGridTransform}

// Map applies the alignment: dst = transform(i, j) + translation.
func (g GridAlignment) Map(i, j int32) (int32, int32) {
	x, y := g.Transform.Apply(i, j)
	return x + g.Translation[0], y + g.Translation[1]
}

// Inverse returns the inverse alignment, if the transform is invertible.
func (g GridAlignment) Inverse() (GridAlignment, bool) {
	inv, ok := g.Transform.Inverse()
	if !ok {
		return GridAlignment{}, false
	}
	tx, ty := inv.Apply(-g.Translation[0], -g.Translation[1])
	return GridAlignment{Transform: inv, Translation: [2]int32{tx, ty}}, true
}

// GridCoords identifies a corner intersection: i increases right, j
// increases down.
type GridCoords struct {
	I, J int32
}
