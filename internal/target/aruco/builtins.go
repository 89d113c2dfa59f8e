package aruco

// The reference OpenCV dictionaries are generated offline by a
// Hamming-distance-maximizing search over the code space and shipped as
// binary blobs; that generation tooling and its data files are outside
// this module's reach. DICT_4X4_50 below is generated at package init by
// the same greedy strategy — starting from a fixed seed sequence,
// accepting a candidate only if every rotation of every already-accepted
// code is at least minInterCodeHamming bits away — which reproduces the
// dictionary's essential property (rotation-robust, mutually
// well-separated codes) without depending on OpenCV's exact bit layout.

const dict4x4Side = 4

var minInterCodeHamming = 4

// DICT_4X4_50 is a 50-entry, 4x4-bit dictionary.
var DICT_4X4_50 = buildDictionary("DICT_4X4_50", dict4x4Side, 50, 0x9E3779B97F4A7C15)

func buildDictionary(name string, side, count int, seed uint64) *Dictionary {
	codes := make([]uint64, 0, count)
	state := seed
	next := func() uint64 {
		// xorshift64*
		state ^= state >> 12
		state ^= state << 25
		state ^= state >> 27
		return state * 0x2545F4914F6CDD1D
	}

	maxBits := uint64(1)<<uint(side*side) - 1
	for len(codes) < count {
		cand := next() & maxBits
		ok := true
		for _, existing := range codes {
			for rot := 0; rot < 4; rot++ {
				if hamming(cand, RotateCode(existing, side, rot), side) < minInterCodeHamming {
					ok = false
					break
				}
			}
			if !ok {
				break
			}
		}
		if ok {
			codes = append(codes, cand)
		}
	}
	return &Dictionary{Name: name, Side: side, Codes: codes}
}
