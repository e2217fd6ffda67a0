package batch

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dronescan/wallscan/internal/config"
	"github.com/dronescan/wallscan/pkg/inspection"
	"github.com/dronescan/wallscan/pkg/processing"
)

type fakeClient struct {
	response string
}

func (f *fakeClient) SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error) {
	return f.response, nil
}

func (f *fakeClient) AnalyzeDefects(ctx context.Context, model, system, prompt, imgB64 string) (string, error) {
	return f.response, nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 180, G: 120, B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func testRunner(t *testing.T, response string) *Runner {
	t.Helper()
	cfg := config.Default()
	cfg.Output.Dir = t.TempDir()
	ins := inspection.NewInspector(&fakeClient{response: response})
	r := NewRunner(processing.NewProcessor(), ins, cfg)
	return r
}

func TestRunWritesResultFolder(t *testing.T) {
	img := pngBytes(t, 200, 100)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(img)
	}))
	defer srv.Close()

	response := `{"cracks": [
		{"bbox_2d": [100, 100, 400, 300], "description": "horizontal crack"},
		{"bbox_2d": [5, 5], "description": "malformed"}
	]}`
	r := testRunner(t, response)

	summary := r.Run(context.Background(), []string{srv.URL + "/wall_north.png"}, "R20250101_120000")
	require.Equal(t, 1, summary.Total)
	require.Equal(t, 1, summary.Succeeded)
	require.Equal(t, 0, summary.Failed)

	res := summary.Results[0]
	require.NoError(t, res.Err)
	require.Equal(t, 1, res.Detections)
	require.Equal(t, 1, res.Skipped)

	dir := filepath.Join(r.cfg.Output.Dir, "R20250101_120000_wall_north")
	require.Equal(t, dir, res.Dir)

	for _, name := range []string{
		"wall_north.png",
		"wall_north_analysis.json",
		"wall_north_qwen1000.txt",
		"wall_north_yolo.txt",
		"classes.txt",
		"wall_north_annotated.jpg",
	} {
		_, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, "missing %s", name)
	}

	labels, err := os.ReadFile(filepath.Join(dir, "wall_north_yolo.txt"))
	require.NoError(t, err)
	require.True(t, bytes.HasSuffix(labels, []byte("\n")))
}

func TestRunContinuesAfterFailure(t *testing.T) {
	img := pngBytes(t, 100, 100)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(img)
	}))
	defer srv.Close()

	r := testRunner(t, `{"cracks": []}`)
	urls := []string{srv.URL + "/missing.png", srv.URL + "/ok.png"}

	summary := r.Run(context.Background(), urls, "")
	require.Equal(t, 2, summary.Total)
	require.Equal(t, 1, summary.Succeeded)
	require.Equal(t, 1, summary.Failed)
	require.Error(t, summary.Results[0].Err)
	require.NoError(t, summary.Results[1].Err)
}

func TestRunWritesTFRecord(t *testing.T) {
	img := pngBytes(t, 100, 100)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(img)
	}))
	defer srv.Close()

	r := testRunner(t, `{"cracks": [{"bbox_2d": [100, 100, 400, 300], "description": "crack"}]}`)
	r.WriteTFRecord = true

	summary := r.Run(context.Background(), []string{srv.URL + "/wall.png"}, "R20250101_120000")
	require.Equal(t, 1, summary.Succeeded)

	info, err := os.Stat(filepath.Join(summary.Results[0].Dir, "wall.tfrecord"))
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestReadURLList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")
	content := "# drone run 14\nhttps://example.com/a.jpg\n\nhttps://example.com/b.jpg\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	urls, err := ReadURLList(path)
	require.NoError(t, err)
	require.Equal(t, []string{"https://example.com/a.jpg", "https://example.com/b.jpg"}, urls)
}

func TestNewRunID(t *testing.T) {
	id := NewRunID()
	require.Regexp(t, `^R\d{8}_\d{6}$`, id)
}
