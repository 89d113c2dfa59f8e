package core

import "errors"

// Sentinel errors for the programmer-error class described in the design:
// invalid board specs fail loudly at construction time via errors.Is/As.
// Every other failure (noisy inputs, missing markers, unmet thresholds) is
// reported as an empty/None result rather than an error.
var (
	ErrInvalidBoardSpec    = errors.New("target: invalid board specification")
	ErrDegenerateGeometry  = errors.New("target: degenerate geometry")
	ErrInsufficientCorners = errors.New("target: insufficient labeled corners")
)
