// Package boxcodec converts bounding boxes between the coordinate conventions
// that vision models emit and resolves them to pixel space for drawing.
//
// Three incompatible families show up in model output: raw pixel corners,
// YOLO center-form (normalized or absolute) and the fixed 0..1000 corner grid
// used by Qwen-style models. The codec classifies a raw number array into one
// of these encodings, converts any of them to integer pixel corners for a
// target canvas (rescaling across resolution mismatches when asked to) and
// serialises pixel corners back into any encoding for label export.
package boxcodec

import (
	"fmt"
	"math"

	"github.com/dronescan/wallscan/pkg/types"
)

// Classify infers the encoding of box from its length and value ranges.
//
// The tests run in a fixed order because the value ranges nest: every
// normalized box is also technically within 0..1000. Normalized-in-[0,1] wins
// first, then Qwen-1000, then raw pixels. A 5-element box is classified by its
// trailing four values, with element 0 treated as a class id; center-form
// absolute pixels is the fallback there. Callers that already know the
// encoding should skip Classify and pass it to ToPixelCorners directly.
//
// A box whose width/height happen to be tiny integers can look normalized;
// that ambiguity is inherent to range-based classification and is resolved by
// the test order, not reported.
func Classify(box []float64) types.Encoding {
	if len(box) < 4 {
		return types.Corners
	}
	if len(box) >= 5 {
		return classifyCoords(coordsOf(box), types.YoloAbsolute)
	}
	return classifyCoords(coordsOf(box), types.Corners)
}

func classifyCoords(c [4]float64, fallback types.Encoding) types.Encoding {
	allUnit := true
	allMille := true
	anyAboveOne := false
	for _, v := range c {
		if v < 0 || v > 1 {
			allUnit = false
		}
		if v < 0 || v > 1000 {
			allMille = false
		}
		if v > 1 {
			anyAboveOne = true
		}
	}
	switch {
	case allUnit:
		return types.YoloNormalized
	case allMille && anyAboveOne:
		return types.Qwen1000
	default:
		return fallback
	}
}

// coordsOf returns the four coordinate values, skipping a leading class id on
// boxes with 5 or more elements.
func coordsOf(box []float64) [4]float64 {
	var c [4]float64
	if len(box) >= 5 {
		copy(c[:], box[1:5])
	} else {
		copy(c[:], box[:4])
	}
	return c
}

// ToPixelCorners resolves box to integer pixel corners on canvas.
//
// src, when non-nil and valid, names the resolution the box was authored
// against; Corners and YoloAbsolute boxes are then rescaled anisotropically by
// canvas/src before conversion. An absent or zero-valued src means no
// rescaling, never an error. Each coordinate is rounded to nearest and clamped
// into [0, W-1] / [0, H-1]. Inverted corners (x1>x2 or y1>y2) pass through
// unrepaired; the caller gets the zero-or-negative-area box it asked for.
func ToPixelCorners(box []float64, enc types.Encoding, canvas types.Canvas, src *types.Resolution) (types.PixelBox, error) {
	if len(box) < 4 {
		return types.PixelBox{}, fmt.Errorf("box has %d elements, need at least 4", len(box))
	}
	if !canvas.Valid() {
		return types.PixelBox{}, fmt.Errorf("invalid canvas %dx%d", canvas.W, canvas.H)
	}
	c := coordsOf(box)
	for _, v := range c {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return types.PixelBox{}, fmt.Errorf("box contains non-finite value %v", v)
		}
	}

	fw, fh := float64(canvas.W), float64(canvas.H)
	var x1, y1, x2, y2 float64

	switch enc {
	case types.Corners:
		x1, y1, x2, y2 = c[0], c[1], c[2], c[3]
		if sx, sy, ok := rescaleFactors(canvas, src); ok {
			x1, y1, x2, y2 = x1*sx, y1*sy, x2*sx, y2*sy
		}

	case types.YoloNormalized:
		xc, yc := c[0]*fw, c[1]*fh
		w, h := c[2]*fw, c[3]*fh
		x1, y1, x2, y2 = xc-w/2, yc-h/2, xc+w/2, yc+h/2

	case types.YoloAbsolute:
		xc, yc, w, h := c[0], c[1], c[2], c[3]
		if sx, sy, ok := rescaleFactors(canvas, src); ok {
			xc, yc, w, h = xc*sx, yc*sy, w*sx, h*sy
		}
		x1, y1, x2, y2 = xc-w/2, yc-h/2, xc+w/2, yc+h/2

	case types.Qwen1000:
		x1 = c[0] / 1000 * fw
		y1 = c[1] / 1000 * fh
		x2 = c[2] / 1000 * fw
		y2 = c[3] / 1000 * fh

	default:
		return types.PixelBox{}, fmt.Errorf("unknown encoding %v", enc)
	}

	return types.PixelBox{
		X1: clampInt(int(math.Round(x1)), 0, canvas.W-1),
		Y1: clampInt(int(math.Round(y1)), 0, canvas.H-1),
		X2: clampInt(int(math.Round(x2)), 0, canvas.W-1),
		Y2: clampInt(int(math.Round(y2)), 0, canvas.H-1),
	}, nil
}

// rescaleFactors returns the per-axis scale from src to canvas. ok is false
// when src is absent or has zero dimensions, or matches the canvas.
func rescaleFactors(canvas types.Canvas, src *types.Resolution) (sx, sy float64, ok bool) {
	if src == nil || !src.Valid() {
		return 1, 1, false
	}
	if src.W == canvas.W && src.H == canvas.H {
		return 1, 1, false
	}
	return float64(canvas.W) / float64(src.W), float64(canvas.H) / float64(src.H), true
}

// ToEncoding serialises pixel corners back into the target encoding on the
// given canvas. It is the inverse of ToPixelCorners; the round trip is exact
// only for Corners, the other encodings lose the sub-pixel precision already
// discarded by rounding in the forward conversion.
func ToEncoding(p types.PixelBox, target types.Encoding, canvas types.Canvas) []float64 {
	fw, fh := float64(canvas.W), float64(canvas.H)
	x1, y1 := float64(p.X1), float64(p.Y1)
	x2, y2 := float64(p.X2), float64(p.Y2)

	switch target {
	case types.YoloNormalized:
		return []float64{
			(x1 + x2) / 2 / fw,
			(y1 + y2) / 2 / fh,
			(x2 - x1) / fw,
			(y2 - y1) / fh,
		}
	case types.YoloAbsolute:
		return []float64{
			(x1 + x2) / 2,
			(y1 + y2) / 2,
			x2 - x1,
			y2 - y1,
		}
	case types.Qwen1000:
		return []float64{
			x1 * 1000 / fw,
			y1 * 1000 / fh,
			x2 * 1000 / fw,
			y2 * 1000 / fh,
		}
	default: // Corners
		return []float64{x1, y1, x2, y2}
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
