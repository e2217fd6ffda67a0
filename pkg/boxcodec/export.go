package boxcodec

import (
	"fmt"
	"strings"

	"github.com/dronescan/wallscan/pkg/types"
)

// ExportLabels serialises detections into label-file lines in the target
// encoding: class id followed by the four encoding-specific numbers.
// Normalized values are written with 6 decimal places, pixel and 0..1000
// values with 2, matching the precision each scale actually carries.
// Malformed detections are skipped and counted. Zero valid detections yield
// an empty line list.
func ExportLabels(dets []types.Detection, target types.Encoding, canvas types.Canvas) (lines []string, skipped int) {
	prec := "%.2f"
	if target == types.YoloNormalized {
		prec = "%.6f"
	}
	format := fmt.Sprintf("%%d %s %s %s %s", prec, prec, prec, prec)

	for _, det := range dets {
		px, err := ToPixelCorners(det.Box, det.Encoding, canvas, nil)
		if err != nil {
			skipped++
			continue
		}
		v := ToEncoding(px, target, canvas)
		lines = append(lines, fmt.Sprintf(format, det.ClassID, v[0], v[1], v[2], v[3]))
	}
	return lines, skipped
}

// LabelFileContent joins label lines into a writable blob. The trailing
// newline is present only when at least one line was produced.
func LabelFileContent(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
