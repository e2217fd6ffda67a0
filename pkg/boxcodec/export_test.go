package boxcodec

import (
	"strings"
	"testing"

	"github.com/dronescan/wallscan/pkg/types"
)

func TestExportLabelsYoloPrecision(t *testing.T) {
	canvas := types.Canvas{W: 1000, H: 1000}
	dets := []types.Detection{
		{Box: []float64{250, 250, 500, 500}, Encoding: types.Qwen1000, ClassID: 0},
	}
	lines, skipped := ExportLabels(dets, types.YoloNormalized, canvas)
	if skipped != 0 {
		t.Fatalf("unexpected skips: %d", skipped)
	}
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	// 0..1000 on a 1000px canvas maps 1:1 to pixels.
	if lines[0] != "0 0.375000 0.375000 0.250000 0.250000" {
		t.Errorf("unexpected line %q", lines[0])
	}
	for i, field := range strings.Fields(lines[0])[1:] {
		frac := strings.SplitN(field, ".", 2)
		if len(frac) != 2 || len(frac[1]) != 6 {
			t.Errorf("field %d %q does not have 6 decimal places", i, field)
		}
	}
}

func TestExportLabelsQwenPrecision(t *testing.T) {
	canvas := types.Canvas{W: 2000, H: 1000}
	dets := []types.Detection{
		{Box: []float64{100, 100, 400, 300}, Encoding: types.Corners, ClassID: 1},
	}
	lines, _ := ExportLabels(dets, types.Qwen1000, canvas)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0] != "1 50.00 100.00 200.00 300.00" {
		t.Errorf("unexpected line %q", lines[0])
	}
}

func TestExportLabelsSkipsMalformed(t *testing.T) {
	canvas := types.Canvas{W: 100, H: 100}
	dets := []types.Detection{
		{Box: []float64{1, 2}, Encoding: types.Corners},
		{Box: []float64{10, 10, 50, 50}, Encoding: types.Corners},
	}
	lines, skipped := ExportLabels(dets, types.Corners, canvas)
	if len(lines) != 1 || skipped != 1 {
		t.Errorf("got %d lines, %d skipped; want 1 and 1", len(lines), skipped)
	}
}

func TestLabelFileContent(t *testing.T) {
	if got := LabelFileContent(nil); got != "" {
		t.Errorf("empty line list should produce empty blob, got %q", got)
	}
	got := LabelFileContent([]string{"a", "b"})
	if got != "a\nb\n" {
		t.Errorf("unexpected blob %q", got)
	}
}
