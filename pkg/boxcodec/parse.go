package boxcodec

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dronescan/wallscan/pkg/types"
)

// Placeholder description for detections that arrive without one.
const defaultDescription = "defect"

// detectionListKeys are the top-level keys checked first, in order, when
// looking for detection arrays in a model response. Any further keys holding
// arrays of box objects are picked up afterwards in sorted order.
var detectionListKeys = []string{"cracks", "boxes", "defects", "findings"}

// rawDetection is the wire shape of one detection entry. The bounding box may
// arrive under any of three field names, checked in declaration order.
type rawDetection struct {
	Bbox2D      json.RawMessage `json:"bbox_2d"`
	Bbox        json.RawMessage `json:"bbox"`
	Box         json.RawMessage `json:"box"`
	Class       *int            `json:"class"`
	Description string          `json:"description"`
}

// ParseReport extracts detections from a model response payload.
//
// The payload must be a JSON object; anything else is a hard error. Every
// top-level key holding an array of objects with a bounding-box field
// contributes detections. Each box is classified via Classify unless hint is
// non-nil, in which case the hinted encoding is trusted. Malformed entries
// (box missing, fewer than 4 numbers, non-numeric elements) are skipped and
// counted, never fatal. An empty or absent detection list yields an empty
// slice, not an error.
func ParseReport(raw []byte, hint *types.Encoding) ([]types.Detection, int, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, 0, fmt.Errorf("response is not a JSON object: %w", err)
	}

	var dets []types.Detection
	skipped := 0
	for _, key := range candidateKeys(top) {
		var items []json.RawMessage
		if err := json.Unmarshal(top[key], &items); err != nil {
			continue // not an array, e.g. "overall_assessment"
		}
		for _, item := range items {
			det, ok := parseDetection(item, hint)
			if !ok {
				skipped++
				continue
			}
			dets = append(dets, det)
		}
	}
	return dets, skipped, nil
}

// candidateKeys lists the known detection keys present in top, followed by
// the remaining keys in sorted order for deterministic output.
func candidateKeys(top map[string]json.RawMessage) []string {
	known := make(map[string]bool, len(detectionListKeys))
	var keys []string
	for _, k := range detectionListKeys {
		known[k] = true
		if _, ok := top[k]; ok {
			keys = append(keys, k)
		}
	}
	var rest []string
	for k := range top {
		if !known[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func parseDetection(raw json.RawMessage, hint *types.Encoding) (types.Detection, bool) {
	var item rawDetection
	if err := json.Unmarshal(raw, &item); err != nil {
		return types.Detection{}, false
	}

	var box []float64
	for _, field := range [][]byte{item.Bbox2D, item.Bbox, item.Box} {
		if len(field) == 0 {
			continue
		}
		if err := json.Unmarshal(field, &box); err != nil {
			return types.Detection{}, false // present but non-numeric
		}
		break
	}
	if len(box) < 4 {
		return types.Detection{}, false
	}

	det := types.Detection{
		Box:         box,
		Description: item.Description,
	}
	if hint != nil {
		det.Encoding = *hint
	} else {
		det.Encoding = Classify(box)
	}
	if len(box) >= 5 {
		det.ClassID = int(box[0])
		det.HasClass = true
	} else if item.Class != nil {
		det.ClassID = *item.Class
		det.HasClass = true
	}
	if det.Description == "" {
		det.Description = defaultDescription
	}
	return det, true
}

// ParseLabelLines parses a line-oriented label file already read into lines.
//
// Each non-blank line that does not start with '#' must hold exactly 5
// whitespace-separated numeric tokens: a class id followed by the four
// encoding-specific values. Lines that do not are skipped and counted.
func ParseLabelLines(lines []string, enc types.Encoding) ([]types.Detection, int) {
	var dets []types.Detection
	skipped := 0
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tokens := strings.Fields(line)
		if len(tokens) != 5 {
			skipped++
			continue
		}
		vals := make([]float64, 5)
		ok := true
		for i, tok := range tokens {
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				ok = false
				break
			}
			vals[i] = v
		}
		if !ok {
			skipped++
			continue
		}
		dets = append(dets, types.Detection{
			Box:         vals[1:5],
			Encoding:    enc,
			ClassID:     int(vals[0]),
			HasClass:    true,
			Description: "label",
		})
	}
	return dets, skipped
}
