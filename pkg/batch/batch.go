// Package batch processes lists of image URLs through the inspection
// pipeline, writing one result folder per image.
package batch

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dronescan/wallscan/internal/config"
	"github.com/dronescan/wallscan/internal/utils"
	"github.com/dronescan/wallscan/pkg/boxcodec"
	"github.com/dronescan/wallscan/pkg/inspection"
	"github.com/dronescan/wallscan/pkg/processing"
	"github.com/dronescan/wallscan/pkg/tfexport"
	"github.com/dronescan/wallscan/pkg/types"
)

// Runner drives batch inspection runs.
type Runner struct {
	proc *processing.Processor
	ins  *inspection.Inspector
	cfg  *config.Config

	// WriteTFRecord additionally serializes each result as a TFRecord file.
	WriteTFRecord bool
}

// NewRunner creates a batch runner.
func NewRunner(proc *processing.Processor, ins *inspection.Inspector, cfg *config.Config) *Runner {
	return &Runner{proc: proc, ins: ins, cfg: cfg}
}

// ItemResult records the outcome for a single image.
type ItemResult struct {
	URL        string
	Dir        string
	Detections int
	Skipped    int
	Err        error
}

// Summary aggregates a batch run.
type Summary struct {
	RunID     string
	Total     int
	Succeeded int
	Failed    int
	Results   []ItemResult
}

// NewRunID returns a timestamped identifier for a batch run.
func NewRunID() string {
	return "R" + time.Now().Format("20060102_150405")
}

// ReadURLList reads image URLs from a file, one per line. Blank lines and
// lines starting with # are skipped.
func ReadURLList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open URL list: %w", err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read URL list: %w", err)
	}
	return urls, nil
}

// Run processes each URL in sequence. A failing image is recorded and the run
// continues with the next one.
func (r *Runner) Run(ctx context.Context, urls []string, runID string) *Summary {
	if runID == "" {
		runID = NewRunID()
	}
	summary := &Summary{RunID: runID, Total: len(urls)}

	for i, imageURL := range urls {
		log.Printf("[%d/%d] %s", i+1, len(urls), imageURL)
		res := r.processOne(ctx, imageURL, runID)
		if res.Err != nil {
			log.Printf("[%d/%d] failed: %v", i+1, len(urls), res.Err)
			summary.Failed++
		} else {
			log.Printf("[%d/%d] %d detections (%d skipped) -> %s",
				i+1, len(urls), res.Detections, res.Skipped, res.Dir)
			summary.Succeeded++
		}
		summary.Results = append(summary.Results, res)
	}
	return summary
}

func (r *Runner) processOne(ctx context.Context, imageURL, runID string) ItemResult {
	res := ItemResult{URL: imageURL}

	raw, err := r.proc.DownloadImage(imageURL)
	if err != nil {
		res.Err = err
		return res
	}
	img, err := r.proc.DecodeImage(raw)
	if err != nil {
		res.Err = err
		return res
	}

	filename := utils.FilenameFromURL(imageURL)
	base := utils.BaseName(filename)
	dir := filepath.Join(r.cfg.Output.Dir, runID+"_"+base)
	if err := utils.EnsureDir(dir); err != nil {
		res.Err = err
		return res
	}
	res.Dir = dir

	// Keep the original download next to the derived files.
	if err := os.WriteFile(filepath.Join(dir, filename), raw, 0644); err != nil {
		res.Err = err
		return res
	}

	imgB64, err := r.proc.PrepareImageForModel(img, r.cfg.Send.Format, r.cfg.Send.MaxDim, r.cfg.Send.Quality)
	if err != nil {
		res.Err = err
		return res
	}

	report, err := r.ins.Inspect(ctx, r.cfg.Server.Model, imgB64)
	if err != nil {
		res.Err = err
		return res
	}
	res.Detections = len(report.Detections)
	res.Skipped = report.Skipped

	if err := os.WriteFile(filepath.Join(dir, base+"_analysis.json"), []byte(report.Raw), 0644); err != nil {
		res.Err = err
		return res
	}

	b := img.Bounds()
	canvas := types.Canvas{W: b.Dx(), H: b.Dy()}

	// Label files: one in the model's native encoding, one in YOLO form.
	lines, _ := boxcodec.ExportLabels(report.Detections, report.Encoding, canvas)
	if err := writeLabelFile(filepath.Join(dir, base+"_"+report.Encoding.String()+".txt"), lines); err != nil {
		res.Err = err
		return res
	}
	if report.Encoding != types.YoloNormalized {
		yolo, _ := boxcodec.ExportLabels(report.Detections, types.YoloNormalized, canvas)
		if err := writeLabelFile(filepath.Join(dir, base+"_yolo.txt"), yolo); err != nil {
			res.Err = err
			return res
		}
	}
	if err := tfexport.WriteClasses(dir, r.cfg.Classes); err != nil {
		res.Err = err
		return res
	}

	annotated, _, _ := boxcodec.RenderAnnotated(img, report.Detections, boxcodec.RenderOptions{
		Stroke: r.cfg.Render.Stroke,
	})
	annotatedPath := filepath.Join(dir, base+"_annotated."+r.cfg.Render.Format)
	if err := r.proc.SaveImage(annotated, annotatedPath, r.cfg.Render.Format, r.cfg.Render.Quality, false); err != nil {
		res.Err = err
		return res
	}

	if r.WriteTFRecord {
		if err := r.writeTFRecord(dir, filename, raw, canvas, report); err != nil {
			res.Err = err
			return res
		}
	}

	return res
}

func (r *Runner) writeTFRecord(dir, filename string, raw []byte, canvas types.Canvas, report *types.Report) error {
	var boxes []types.PixelBox
	var classIDs []int
	for _, det := range report.Detections {
		px, err := boxcodec.ToPixelCorners(det.Box, det.Encoding, canvas, nil)
		if err != nil {
			continue
		}
		boxes = append(boxes, px)
		classIDs = append(classIDs, det.ClassID)
	}

	item := tfexport.Item{
		Filename: filename,
		Encoded:  raw,
		Format:   utils.GetFileExtension(filename),
		Width:    canvas.W,
		Height:   canvas.H,
		Boxes:    boxes,
		ClassIDs: classIDs,
		Classes:  r.cfg.Classes,
	}
	return tfexport.WriteFile(filepath.Join(dir, utils.BaseName(filename)+".tfrecord"), []tfexport.Item{item})
}

func writeLabelFile(path string, lines []string) error {
	return os.WriteFile(path, []byte(boxcodec.LabelFileContent(lines)), 0644)
}
