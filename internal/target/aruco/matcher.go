package aruco

// Match is the outcome of testing an observed bit-grid against a
// dictionary: the best-matching code id, the rotation (clockwise 90s)
// that code was observed under, and the Hamming distance at that
// rotation.
type Match struct {
	ID       int
	Rotation int
	Hamming  int
}

// Matcher tests an observed code against every dictionary entry under
// all four rotations and returns the best match within maxHamming.
type Matcher struct {
	Dict       *Dictionary
	MaxHamming int
}

// NewMatcher builds a Matcher for dict with the given Hamming tolerance.
func NewMatcher(dict *Dictionary, maxHamming int) *Matcher {
	return &Matcher{Dict: dict, MaxHamming: maxHamming}
}

// Match finds the best (id, rotation, hamming) for an observed code.
// Ties in Hamming distance are broken by lowest dictionary ID, then by
// lowest rotation, for determinism.
func (m *Matcher) Match(observed uint64) (Match, bool) {
	side := m.Dict.Side
	best := Match{Hamming: side*side + 1}
	found := false
	for id, code := range m.Dict.Codes {
		for rot := 0; rot < 4; rot++ {
			rotated := RotateCode(code, side, rot)
			h := hamming(observed, rotated, side)
			if h > m.MaxHamming {
				continue
			}
			if !found || h < best.Hamming ||
				(h == best.Hamming && id < best.ID) ||
				(h == best.Hamming && id == best.ID && rot < best.Rotation) {
				best = Match{ID: id, Rotation: rot, Hamming: h}
				found = true
			}
		}
	}
	return best, found
}
