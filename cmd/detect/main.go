// Command detect is a thin CLI driver that loads a grayscale image and a
// JSON side-file of pre-computed corner observations, runs one of the
// calibration-target detectors, and prints the resulting TargetDetection
// as JSON. Image I/O uses gocv exactly as the teacher's internal/alignment
// package does; the detection core itself never touches gocv.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/calib-targets/calib-targets-go/internal/target/aruco"
	"github.com/calib-targets/calib-targets-go/internal/target/charuco"
	"github.com/calib-targets/calib-targets-go/internal/target/chessboard"
	"github.com/calib-targets/calib-targets-go/internal/target/core"
	"github.com/calib-targets/calib-targets-go/internal/target/markerboard"
	"github.com/calib-targets/calib-targets-go/internal/target/telemetry"
	"github.com/calib-targets/calib-targets-go/pkg/geometry"
	"gocv.io/x/gocv"
)

const toolName = "calib-targets-detect"

// cornerRecord mirrors core.Corner for JSON loading; the exported Corner
// type itself carries no tags since it's an internal wire-agnostic model.
type cornerRecord struct {
	X, Y        float64
	Orientation float64
	Strength    float64
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	kind := flag.String("kind", "chessboard", "detector kind: chessboard|charuco|markerboard")
	imagePath := flag.String("image", "", "path to an 8-bit grayscale (or color, auto-converted) image")
	cornersPath := flag.String("corners", "", "path to a JSON array of {x,y,orientation,strength} corner records")
	rows := flag.Int("rows", 0, "expected rows: inner-corner count for chessboard, square count for charuco/markerboard (0 = unconstrained, chessboard only)")
	cols := flag.Int("cols", 0, "expected cols: inner-corner count for chessboard, square count for charuco/markerboard (0 = unconstrained, chessboard only)")
	cellSize := flag.Float64("cell-size", 0, "board cell size in physical units, 0 disables target_position assignment")
	markerSizeRel := flag.Float64("marker-size-rel", 0.6, "charuco marker size relative to cell size")
	verbose := flag.Bool("v", false, "enable debug-level telemetry")
	flag.Parse()

	level := telemetry.LevelInfo
	if *verbose {
		level = telemetry.LevelDebug
	}
	logger := telemetry.New(level)

	if *cornersPath == "" {
		log.Fatalf("Starting %s: -corners is required", toolName)
	}
	log.Printf("Starting %s kind=%s", toolName, *kind)

	corners, err := loadCorners(*cornersPath)
	if err != nil {
		log.Fatalf("Failed to load corners from %s: %v", *cornersPath, err)
	}
	logger.Infof("loaded %d corners from %s", len(corners), *cornersPath)

	var img geometry.GrayImageView
	if *imagePath != "" {
		img, err = loadGrayImage(*imagePath)
		if err != nil {
			log.Fatalf("Failed to load image %s: %v", *imagePath, err)
		}
		logger.Infof("loaded image %dx%d from %s", img.Width, img.Height, *imagePath)
	}

	detection, ok := runDetector(*kind, corners, img, detectorOptions{
		rows:          *rows,
		cols:          *cols,
		cellSize:      *cellSize,
		markerSizeRel: *markerSizeRel,
	}, logger)
	if !ok {
		log.Fatalf("Detection failed for kind=%s after %s", *kind, logger.Elapsed())
	}

	if err := json.NewEncoder(os.Stdout).Encode(detection); err != nil {
		log.Fatalf("Failed to encode detection result: %v", err)
	}
	logger.Infof("detected %d corners in %s", len(detection.Corners), logger.Elapsed())
}

type detectorOptions struct {
	rows, cols    int
	cellSize      float64
	markerSizeRel float64
}

func runDetector(kind string, corners []core.Corner, img geometry.GrayImageView, opts detectorOptions, logger *telemetry.Logger) (core.TargetDetection, bool) {
	switch kind {
	case "chessboard":
		params := chessboard.DefaultParams()
		if opts.rows > 0 {
			params.ExpectedRows = &opts.rows
		}
		if opts.cols > 0 {
			params.ExpectedCols = &opts.cols
		}
		det := chessboard.New(params)
		result, ok := det.DetectFromCorners(corners)
		if !ok {
			return core.TargetDetection{}, false
		}
		return result.Detection, true

	case "charuco":
		if opts.rows <= 0 || opts.cols <= 0 {
			logger.Errorf("charuco requires -rows and -cols")
			return core.TargetDetection{}, false
		}
		spec := charuco.BoardSpec{
			Rows:          opts.rows,
			Cols:          opts.cols,
			CellSize:      opts.cellSize,
			MarkerSizeRel: opts.markerSizeRel,
			Dictionary:    aruco.DICT_4X4_50,
		}
		board, err := charuco.NewBoard(spec)
		if err != nil {
			logger.Errorf("invalid charuco board spec: %v", err)
			return core.TargetDetection{}, false
		}
		params := charuco.ParamsForBoard(board)
		chessParams := chessboard.DefaultParams()
		rows, cols := opts.rows-1, opts.cols-1
		chessParams.ExpectedRows = &rows
		chessParams.ExpectedCols = &cols
		chessDet := chessboard.New(chessParams)
		det := charuco.New(board, params, chessDet, nil)
		result, ok := det.Detect(corners, img)
		if !ok {
			return core.TargetDetection{}, false
		}
		return result.Detection, true

	case "markerboard":
		if opts.rows <= 0 || opts.cols <= 0 {
			logger.Errorf("markerboard requires -rows and -cols")
			return core.TargetDetection{}, false
		}
		layout := markerboard.Layout{
			Rows:     opts.rows,
			Cols:     opts.cols,
			CellSize: opts.cellSize,
			Circles: [3]markerboard.CircleSpec{
				{Cell: markerboard.CellCoords{I: 1, J: 1}, Polarity: markerboard.White},
				{Cell: markerboard.CellCoords{I: int32(opts.cols) - 2, J: 1}, Polarity: markerboard.White},
				{Cell: markerboard.CellCoords{I: 1, J: int32(opts.rows) - 2}, Polarity: markerboard.Black},
			},
		}
		if err := markerboard.ValidateLayout(layout); err != nil {
			logger.Errorf("invalid markerboard layout: %v", err)
			return core.TargetDetection{}, false
		}
		det := markerboard.New(markerboard.DefaultParamsForLayout(layout))
		result, ok := det.DetectFromImageAndCorners(img, corners)
		if !ok {
			return core.TargetDetection{}, false
		}
		return result.Detection, true

	default:
		logger.Errorf("unknown detector kind %q", kind)
		return core.TargetDetection{}, false
	}
}

func loadCorners(path string) ([]core.Corner, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corners file: %w", err)
	}
	var records []cornerRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse corners json: %w", err)
	}
	corners := make([]core.Corner, len(records))
	for i, r := range records {
		corners[i] = core.Corner{
			Position:    geometry.Point2D{X: r.X, Y: r.Y},
			Orientation: r.Orientation,
			Strength:    r.Strength,
		}
	}
	return corners, nil
}

func loadGrayImage(path string) (geometry.GrayImageView, error) {
	mat := gocv.IMRead(path, gocv.IMReadGrayScale)
	if mat.Empty() {
		return geometry.GrayImageView{}, fmt.Errorf("could not decode image %s", path)
	}
	defer mat.Close()

	w, h := mat.Cols(), mat.Rows()
	data := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			data[y*w+x] = mat.GetUCharAt(y, x)
		}
	}
	return geometry.GrayImageView{Width: w, Height: h, Data: data}, nil
}
