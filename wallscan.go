// Package wallscan provides drone-based building inspection using vision
// language models.
//
// It loads wall imagery from files or URLs, sends it to an Ollama or
// llama.cpp vision model with defect-detection prompts, parses the bounding
// boxes the model returns in whichever encoding it used, and produces
// annotated images and YOLO-style label files.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//
//		"github.com/dronescan/wallscan"
//		"github.com/dronescan/wallscan/internal/config"
//	)
//
//	func main() {
//		cfg := config.Default()
//		pipeline, err := wallscan.New(cfg)
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		result, err := pipeline.Inspect(context.Background(), "wall_north.jpg")
//		if err != nil {
//			log.Fatal(err)
//		}
//		fmt.Printf("found %d defects\n", len(result.Report.Detections))
//
//		if err := pipeline.SaveAnnotated(result, "wall_north_annotated.jpg"); err != nil {
//			log.Fatal(err)
//		}
//	}
//
// The package consists of these main components:
//
// 1. BoxCodec (pkg/boxcodec): Classifies, converts and renders bounding boxes
// 2. Inspection (pkg/inspection): Prompts and response parsing per model family
// 3. Clients (pkg/ollama, pkg/llamacpp): Vision model backends
// 4. Processing (pkg/processing): Image download, decode and encode
// 5. Batch (pkg/batch): Multi-image runs with per-image result folders
//
// Models that return boxes in different coordinate systems (normalized YOLO
// center form, absolute pixels, the Qwen 0..1000 grid, plain pixel corners)
// are handled uniformly: boxes are classified by value range, converted to
// pixel corners on the actual image, and exported in any target encoding.
package wallscan

import (
	"context"
	"fmt"
	"image"
	"os"
	"time"

	"github.com/dronescan/wallscan/internal/config"
	"github.com/dronescan/wallscan/internal/utils"
	"github.com/dronescan/wallscan/pkg/batch"
	"github.com/dronescan/wallscan/pkg/boxcodec"
	"github.com/dronescan/wallscan/pkg/client"
	"github.com/dronescan/wallscan/pkg/inspection"
	"github.com/dronescan/wallscan/pkg/llamacpp"
	"github.com/dronescan/wallscan/pkg/ollama"
	"github.com/dronescan/wallscan/pkg/processing"
	"github.com/dronescan/wallscan/pkg/types"
)

// Version of the wallscan library
const Version = "1.0.0"

// Pipeline wires the image processor, vision client and inspector together
// behind one interface.
type Pipeline struct {
	cfg    *config.Config
	proc   *processing.Processor
	client client.VisionClient
	ins    *inspection.Inspector
	ollama *ollama.Client // set when the backend is ollama
}

// Result bundles an inspection report with the image it was produced from.
type Result struct {
	Report *types.Report
	Image  image.Image
	Canvas types.Canvas
	Source string
}

// New creates a pipeline for the configured backend.
func New(cfg *config.Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:  cfg,
		proc: processing.NewProcessor(),
	}
	timeout := time.Duration(cfg.Server.TimeoutSeconds) * time.Second

	switch cfg.Server.Backend {
	case "ollama":
		c, err := ollama.NewClient(cfg.Server.URL, timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
		p.client = c
		p.ollama = c
	case "llamacpp":
		c, err := llamacpp.NewClient(cfg.Server.URL, timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to create llama.cpp client: %w", err)
		}
		p.client = c
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Server.Backend)
	}

	p.ins = inspection.NewInspector(p.client)
	return p, nil
}

// CheckServer verifies the backend is reachable. For Ollama it lists the
// installed models; other backends are checked on first use.
func (p *Pipeline) CheckServer(ctx context.Context) ([]string, error) {
	if p.ollama == nil {
		return nil, nil
	}
	return p.ollama.ListModels(ctx)
}

// Inspect loads an image from a file path or URL, runs defect detection and
// returns the parsed report alongside the image.
func (p *Pipeline) Inspect(ctx context.Context, source string) (*Result, error) {
	img, err := p.proc.LoadImageSmart(source)
	if err != nil {
		return nil, fmt.Errorf("failed to load image: %w", err)
	}
	return p.InspectImage(ctx, img, source)
}

// InspectImage runs defect detection on an already loaded image.
func (p *Pipeline) InspectImage(ctx context.Context, img image.Image, source string) (*Result, error) {
	imgB64, err := p.proc.PrepareImageForModel(img, p.cfg.Send.Format, p.cfg.Send.MaxDim, p.cfg.Send.Quality)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare image: %w", err)
	}

	report, err := p.ins.Inspect(ctx, p.cfg.Server.Model, imgB64)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	return &Result{
		Report: report,
		Image:  img,
		Canvas: types.Canvas{W: b.Dx(), H: b.Dy()},
		Source: source,
	}, nil
}

// TestVision asks the model to describe the image, to verify it can see it.
func (p *Pipeline) TestVision(ctx context.Context, source string) (string, error) {
	img, err := p.proc.LoadImageSmart(source)
	if err != nil {
		return "", fmt.Errorf("failed to load image: %w", err)
	}
	imgB64, err := p.proc.PrepareImageForModel(img, p.cfg.Send.Format, p.cfg.Send.MaxDim, p.cfg.Send.Quality)
	if err != nil {
		return "", err
	}
	return p.ins.TestVision(ctx, p.cfg.Server.Model, imgB64)
}

// Annotate draws the result's detections onto a copy of its image.
func (p *Pipeline) Annotate(res *Result) (image.Image, int, int) {
	return boxcodec.RenderAnnotated(res.Image, res.Report.Detections, boxcodec.RenderOptions{
		Stroke: p.cfg.Render.Stroke,
	})
}

// SaveAnnotated draws and saves the annotated image in the configured render
// format.
func (p *Pipeline) SaveAnnotated(res *Result, path string) error {
	annotated, _, _ := p.Annotate(res)
	return p.proc.SaveImage(annotated, path, utils.GetFileExtension(path), p.cfg.Render.Quality, false)
}

// ExportLabels converts the result's detections to the target encoding and
// writes them as a label file.
func (p *Pipeline) ExportLabels(res *Result, target types.Encoding, path string) (int, error) {
	lines, skipped := boxcodec.ExportLabels(res.Report.Detections, target, res.Canvas)
	if err := os.WriteFile(path, []byte(boxcodec.LabelFileContent(lines)), 0644); err != nil {
		return skipped, fmt.Errorf("failed to write label file: %w", err)
	}
	return skipped, nil
}

// AnnotateFromLabels draws boxes from pre-existing label lines instead of a
// model response, for reviewing stored annotations.
func (p *Pipeline) AnnotateFromLabels(img image.Image, lines []string, enc types.Encoding) (image.Image, int, int) {
	dets, _ := boxcodec.ParseLabelLines(lines, enc)
	return boxcodec.RenderAnnotated(img, dets, boxcodec.RenderOptions{
		Stroke: p.cfg.Render.Stroke,
	})
}

// RunBatch processes a list of image URLs, writing one result folder per
// image under the configured output directory.
func (p *Pipeline) RunBatch(ctx context.Context, urls []string, runID string, tfrecord bool) *batch.Summary {
	runner := batch.NewRunner(p.proc, p.ins, p.cfg)
	runner.WriteTFRecord = tfrecord
	return runner.Run(ctx, urls, runID)
}

// Processor exposes the image processor for callers that need direct loading
// or saving.
func (p *Pipeline) Processor() *processing.Processor {
	return p.proc
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
