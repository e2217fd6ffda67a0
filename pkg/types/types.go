package types

import "fmt"

// Encoding identifies the coordinate convention a bounding box is expressed in.
type Encoding int

const (
	// Corners is [x1, y1, x2, y2] in pixel units of the image's own resolution.
	Corners Encoding = iota
	// YoloNormalized is center-form [xc, yc, w, h] with all values in [0,1].
	YoloNormalized
	// YoloAbsolute is center-form [xc, yc, w, h] in raw pixel units of some
	// source resolution.
	YoloAbsolute
	// Qwen1000 is corner-form [x1, y1, x2, y2] on a fixed 0..1000 grid,
	// independent of the actual image size.
	Qwen1000
)

// String returns the encoding name as used in CLI flags and label files.
func (e Encoding) String() string {
	switch e {
	case Corners:
		return "corners"
	case YoloNormalized:
		return "yolo"
	case YoloAbsolute:
		return "yolo-abs"
	case Qwen1000:
		return "qwen1000"
	default:
		return fmt.Sprintf("encoding(%d)", int(e))
	}
}

// ParseEncoding maps a flag/config value to an Encoding.
func ParseEncoding(s string) (Encoding, error) {
	switch s {
	case "corners", "pixels":
		return Corners, nil
	case "yolo", "yolo-norm":
		return YoloNormalized, nil
	case "yolo-abs":
		return YoloAbsolute, nil
	case "qwen1000", "qwen":
		return Qwen1000, nil
	}
	return Corners, fmt.Errorf("unknown box encoding %q", s)
}

// Detection is one reported defect. It is immutable after parsing; conversions
// produce new values instead of mutating the box.
type Detection struct {
	Box         []float64 `json:"bbox_2d"`
	Encoding    Encoding  `json:"-"`
	ClassID     int       `json:"class,omitempty"`
	HasClass    bool      `json:"-"` // true when the input carried an explicit class id
	Description string    `json:"description"`
}

// Canvas is the pixel size of the image a box is resolved against.
type Canvas struct {
	W int
	H int
}

// Valid reports whether both dimensions are positive.
func (c Canvas) Valid() bool {
	return c.W > 0 && c.H > 0
}

// Resolution describes the image size the detections were authored against,
// when it differs from the target canvas. Used only for linear rescaling.
type Resolution struct {
	W int
	H int
}

// Valid reports whether the resolution can be used for rescaling.
func (r Resolution) Valid() bool {
	return r.W > 0 && r.H > 0
}

// PixelBox is a box resolved to absolute pixel corners on some canvas.
type PixelBox struct {
	X1 int
	Y1 int
	X2 int
	Y2 int
}

// Report is the parsed outcome of one model inspection.
type Report struct {
	Detections []Detection // valid detections in model output order
	Skipped    int         // malformed detections dropped during parsing
	Encoding   Encoding    // encoding the prompt asked the model for
	Raw        string      // raw model response text
}
