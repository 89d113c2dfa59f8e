// Package core holds the data model shared by every calibration-target
// detector: the input corner cloud, labeled output corners, and the
// uniform detection record.
package core

import "github.com/calib-targets/calib-targets-go/pkg/geometry"

// OrientationCluster labels which of the two dominant grid axes a corner's
// orientation belongs to, or that it was rejected as an outlier.
type OrientationCluster int

const (
	// ClusterNone means orientation clustering was not run or the corner
	// was not assigned a cluster.
	ClusterNone OrientationCluster = iota
	ClusterAxis0
	ClusterAxis1
	ClusterOutlier
)

// Corner is one upstream ChESS-style saddle observation: a sub-pixel
// position, a line orientation modulo pi, and a non-negative strength.
type Corner struct {
	Position          geometry.Point2D
	Orientation       float64 // radians, in [0, pi)
	OrientationCluster OrientationCluster
	Strength          float64
}

// TargetKind identifies which board type a TargetDetection describes.
type TargetKind int

const (
	Chessboard TargetKind = iota
	Charuco
	CheckerboardMarker
)

func (k TargetKind) String() string {
	switch k {
	case Chessboard:
		return "chessboard"
	case Charuco:
		return "charuco"
	case CheckerboardMarker:
		return "checkerboard_marker"
	default:
		return "unknown"
	}
}

// LabeledCorner is one corner of a TargetDetection after grid assembly and,
// where the board layout is known, ID assignment.
type LabeledCorner struct {
	Position geometry.Point2D
	Grid     *geometry.GridCoords
	ID       *uint32
	// TargetPosition is the corner's physical position in board units
	// (e.g. millimeters), set once a board layout is known.
	TargetPosition *geometry.Point2D
	Score          float64
}

// TargetDetection is the uniform output of every detector in this module.
// Ordering convention: chessboards sort by (j, i); ChArUco sorts by id;
// marker boards sort by grid.
type TargetDetection struct {
	Kind    TargetKind
	Corners []LabeledCorner
}
