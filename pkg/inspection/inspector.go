// Package inspection turns an image into a defect report by prompting a
// vision model and parsing its response.
package inspection

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/dronescan/wallscan/pkg/boxcodec"
	"github.com/dronescan/wallscan/pkg/client"
	"github.com/dronescan/wallscan/pkg/types"
)

// Inspector runs defect detection against a vision model backend.
type Inspector struct {
	client client.VisionClient
}

// NewInspector creates an inspector with a vision client.
func NewInspector(client client.VisionClient) *Inspector {
	return &Inspector{client: client}
}

// Inspect analyzes a base64-encoded image and returns the parsed defect
// report. The prompt, and therefore the box encoding of the report, depends
// on the model family.
func (ins *Inspector) Inspect(ctx context.Context, model, imgB64 string) (*types.Report, error) {
	prompt, enc := PromptFor(model)
	raw, err := ins.client.AnalyzeDefects(ctx, model, SystemPrompt, prompt, imgB64)
	if err != nil {
		return nil, err
	}
	return ParseResponse(raw, enc)
}

// TestVision checks that the model can actually see the image by asking for a
// plain description.
func (ins *Inspector) TestVision(ctx context.Context, model, imgB64 string) (string, error) {
	return ins.client.SimpleQuery(ctx, model, SimpleTestPrompt, imgB64)
}

// ParseResponse sanitizes raw model output and parses it into a Report with
// enc as the encoding hint. Individual malformed detections are dropped and
// counted; only a response with no JSON object at all is an error.
func ParseResponse(raw string, enc types.Encoding) (*types.Report, error) {
	clean := sanitizeModelJSON(raw)
	if !strings.HasPrefix(clean, "{") {
		return nil, fmt.Errorf("no JSON object in model response")
	}
	dets, skipped, err := boxcodec.ParseReport([]byte(clean), &enc)
	if err != nil {
		return nil, err
	}
	return &types.Report{
		Detections: dets,
		Skipped:    skipped,
		Encoding:   enc,
		Raw:        raw,
	}, nil
}

var (
	reBlockComment  = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLineComment   = regexp.MustCompile(`(?m)^\s*//.*$`)
	reInlineComment = regexp.MustCompile(`(?m)//.*$`)
	reTrailingComma = regexp.MustCompile(`,(\s*[}\]])`)
)

// sanitizeModelJSON removes code fences, comments, and trailing commas from a
// model response and slices it down to the outermost JSON object.
func sanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	// Strip triple-backtick fences if present
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	raw = reBlockComment.ReplaceAllString(raw, "")
	raw = reLineComment.ReplaceAllString(raw, "")
	raw = reInlineComment.ReplaceAllString(raw, "")
	raw = reTrailingComma.ReplaceAllString(raw, "$1")

	// Keep only the outermost {...}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}
