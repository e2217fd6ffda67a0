package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/dronescan/wallscan"
	"github.com/dronescan/wallscan/internal/config"
	"github.com/dronescan/wallscan/internal/utils"
	"github.com/dronescan/wallscan/pkg/batch"
	"github.com/dronescan/wallscan/pkg/boxcodec"
	"github.com/dronescan/wallscan/pkg/types"
)

func main() {
	var in, urlList, data, labels, labelsEnc string
	var configPath, backend, url, model, outDir, runID string
	var ext string
	var quality, stroke int
	var sendFmt string
	var sendSize, sendQ int
	var exportYolo, exportQwen, tfrecord, testVision, check bool

	flag.StringVar(&in, "in", "", "input image path or URL (jpg/png/webp)")
	flag.StringVar(&urlList, "urls", "", "file with image URLs, one per line (batch mode)")
	flag.StringVar(&data, "data", "", "inline detection JSON to annotate instead of querying the model")
	flag.StringVar(&labels, "labels", "", "label file to annotate instead of querying the model")
	flag.StringVar(&labelsEnc, "labels-enc", "yolo", "encoding of -labels file: corners|yolo|yolo-abs|qwen1000")

	flag.StringVar(&configPath, "config", "", "config file path (JSON)")
	flag.StringVar(&backend, "backend", "", "backend to use: ollama or llamacpp")
	flag.StringVar(&url, "url", "", "server URL (defaults: ollama=http://localhost:11434, llamacpp=http://localhost:8080)")
	flag.StringVar(&model, "model", "", "model name (default qwen2.5vl:latest)")
	flag.StringVar(&outDir, "out", "", "output directory")
	flag.StringVar(&runID, "run-id", "", "batch run identifier (default: R<timestamp>)")

	flag.StringVar(&ext, "ext", "", "annotated output format: jpg|png|webp")
	flag.IntVar(&quality, "quality", 0, "JPEG/WebP output quality (1-100)")
	flag.IntVar(&stroke, "stroke", 0, "box outline thickness in pixels")

	flag.StringVar(&sendFmt, "sendfmt", "", "format sent to the model: jpg|png")
	flag.IntVar(&sendSize, "sendsize", -1, "max long side sent to the model (px), 0=original")
	flag.IntVar(&sendQ, "sendq", 0, "JPEG quality for image sent to the model (1-100)")

	flag.BoolVar(&exportYolo, "export-yolo", false, "also write labels in YOLO normalized form")
	flag.BoolVar(&exportQwen, "export-qwen", false, "also write labels in Qwen 0-1000 form")
	flag.BoolVar(&tfrecord, "tfrecord", false, "write a TFRecord per image in batch mode")
	flag.BoolVar(&testVision, "test", false, "ask the model to describe the image and exit")
	flag.BoolVar(&check, "check", false, "check server connectivity and list models")

	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	applyFlags(cfg, backend, url, model, outDir, ext, quality, stroke, sendFmt, sendSize, sendQ)

	pipeline, err := wallscan.New(cfg)
	if err != nil {
		log.Fatal(err)
	}
	ctx := context.Background()

	if check {
		models, err := pipeline.CheckServer(ctx)
		if err != nil {
			log.Fatalf("server check failed: %v", err)
		}
		if models == nil {
			log.Printf("backend %s has no model listing, checked on first use", cfg.Server.Backend)
			return
		}
		log.Printf("server ok, %d models installed", len(models))
		for _, m := range models {
			fmt.Println(m)
		}
		return
	}

	switch {
	case urlList != "":
		runBatch(ctx, pipeline, urlList, runID, tfrecord)
	case in != "" && testVision:
		desc, err := pipeline.TestVision(ctx, in)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(desc)
	case in != "" && (data != "" || labels != ""):
		annotateOnly(pipeline, cfg, in, data, labels, labelsEnc)
	case in != "":
		inspectOne(ctx, pipeline, cfg, in, exportYolo, exportQwen)
	default:
		log.Fatalf("usage: %s -in image.jpg|URL | -urls list.txt [-backend ollama|llamacpp] [-model name] [-out dir]",
			filepath.Base(os.Args[0]))
	}
}

func applyFlags(cfg *config.Config, backend, url, model, outDir, ext string,
	quality, stroke int, sendFmt string, sendSize, sendQ int) {
	if backend != "" {
		cfg.Server.Backend = backend
	}
	if url != "" {
		cfg.Server.URL = url
	}
	if model != "" {
		cfg.Server.Model = model
	}
	if outDir != "" {
		cfg.Output.Dir = outDir
	}
	if ext != "" {
		cfg.Render.Format = ext
	}
	if quality > 0 {
		cfg.Render.Quality = quality
	}
	if stroke > 0 {
		cfg.Render.Stroke = stroke
	}
	if sendFmt != "" {
		cfg.Send.Format = sendFmt
	}
	if sendSize >= 0 {
		cfg.Send.MaxDim = sendSize
	}
	if sendQ > 0 {
		cfg.Send.Quality = sendQ
	}
}

func runBatch(ctx context.Context, pipeline *wallscan.Pipeline, urlList, runID string, tfrecord bool) {
	urls, err := batch.ReadURLList(urlList)
	if err != nil {
		log.Fatal(err)
	}
	if len(urls) == 0 {
		log.Fatalf("no URLs in %s", urlList)
	}

	summary := pipeline.RunBatch(ctx, urls, runID, tfrecord)
	log.Printf("run %s: %d/%d succeeded, %d failed",
		summary.RunID, summary.Succeeded, summary.Total, summary.Failed)
	if summary.Failed > 0 {
		os.Exit(1)
	}
}

func inspectOne(ctx context.Context, pipeline *wallscan.Pipeline, cfg *config.Config, in string, exportYolo, exportQwen bool) {
	result, err := pipeline.Inspect(ctx, in)
	if err != nil {
		log.Fatal(err)
	}
	report := result.Report
	log.Printf("%d detections (%s encoding, %d skipped)",
		len(report.Detections), report.Encoding, report.Skipped)

	if err := utils.EnsureDir(cfg.Output.Dir); err != nil {
		log.Fatal(err)
	}
	base := utils.BaseName(utils.FilenameFromURL(in))

	rawPath := filepath.Join(cfg.Output.Dir, base+"_analysis.json")
	if err := os.WriteFile(rawPath, []byte(report.Raw), 0o644); err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote %s", rawPath)

	annotatedPath := filepath.Join(cfg.Output.Dir,
		fmt.Sprintf("%s_annotated.%s", base, strings.ToLower(cfg.Render.Format)))
	if err := pipeline.SaveAnnotated(result, annotatedPath); err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote %s", annotatedPath)

	for _, enc := range exportEncodings(report.Encoding, exportYolo, exportQwen) {
		path := filepath.Join(cfg.Output.Dir, fmt.Sprintf("%s_%s.txt", base, enc))
		skipped, err := pipeline.ExportLabels(result, enc, path)
		if err != nil {
			log.Fatal(err)
		}
		if skipped > 0 {
			log.Printf("%s: %d boxes skipped", path, skipped)
		}
		log.Printf("wrote %s", path)
	}
}

// exportEncodings lists the label encodings to write: the model's native one
// first, then the flagged extras, without duplicates. Fixed order keeps file
// writes and log output stable across runs.
func exportEncodings(native types.Encoding, yolo, qwen bool) []types.Encoding {
	encs := []types.Encoding{native}
	if yolo && native != types.YoloNormalized {
		encs = append(encs, types.YoloNormalized)
	}
	if qwen && native != types.Qwen1000 {
		encs = append(encs, types.Qwen1000)
	}
	return encs
}

func annotateOnly(pipeline *wallscan.Pipeline, cfg *config.Config, in, data, labels, labelsEnc string) {
	img, err := pipeline.Processor().LoadImageSmart(in)
	if err != nil {
		log.Fatal(err)
	}

	var dets []types.Detection
	var skipped int
	if data != "" {
		dets, skipped, err = boxcodec.ParseReport([]byte(data), nil)
		if err != nil {
			log.Fatal(err)
		}
	} else {
		enc, err := types.ParseEncoding(labelsEnc)
		if err != nil {
			log.Fatal(err)
		}
		content, err := os.ReadFile(labels)
		if err != nil {
			log.Fatal(err)
		}
		dets, skipped = boxcodec.ParseLabelLines(strings.Split(string(content), "\n"), enc)
	}
	if skipped > 0 {
		log.Printf("%d malformed entries skipped", skipped)
	}

	annotated, included, renderSkipped := boxcodec.RenderAnnotated(img, dets, boxcodec.RenderOptions{
		Stroke: cfg.Render.Stroke,
	})
	log.Printf("%d boxes drawn, %d skipped", included, renderSkipped)

	if err := utils.EnsureDir(cfg.Output.Dir); err != nil {
		log.Fatal(err)
	}
	base := utils.BaseName(utils.FilenameFromURL(in))
	outPath := filepath.Join(cfg.Output.Dir,
		fmt.Sprintf("%s_annotated.%s", base, strings.ToLower(cfg.Render.Format)))
	if err := pipeline.Processor().SaveImage(annotated, outPath, cfg.Render.Format, cfg.Render.Quality, false); err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote %s", outPath)
}
