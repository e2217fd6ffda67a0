package processing

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/chai2010/webp"
)

func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x % 256), G: uint8(y % 256), B: 100, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func TestDownloadImage(t *testing.T) {
	data := encodePNG(t, testImage(50, 40))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(data)
	}))
	defer srv.Close()

	p := NewProcessor()
	got, err := p.DownloadImage(srv.URL + "/wall.png")
	if err != nil {
		t.Fatalf("DownloadImage failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("downloaded bytes differ from served bytes")
	}
}

func TestDownloadImageRejectsNonImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	p := NewProcessor()
	if _, err := p.DownloadImage(srv.URL); err == nil {
		t.Error("expected error for non-image content type")
	}
}

func TestDownloadImageRejectsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	p := NewProcessor()
	if _, err := p.DownloadImage(srv.URL + "/gone.jpg"); err == nil {
		t.Error("expected error for 404")
	}
}

func TestDownloadImageRejectsBadScheme(t *testing.T) {
	p := NewProcessor()
	if _, err := p.DownloadImage("ftp://example.com/wall.jpg"); err == nil {
		t.Error("expected error for ftp scheme")
	}
}

func TestDecodeImageWebPFallback(t *testing.T) {
	var buf bytes.Buffer
	if err := webp.Encode(&buf, testImage(30, 20), &webp.Options{Lossless: true}); err != nil {
		t.Fatalf("webp encode: %v", err)
	}

	p := NewProcessor()
	img, err := p.DecodeImage(buf.Bytes())
	if err != nil {
		t.Fatalf("DecodeImage failed on webp: %v", err)
	}
	if img.Bounds().Dx() != 30 || img.Bounds().Dy() != 20 {
		t.Errorf("decoded size %v, want 30x20", img.Bounds())
	}
}

func TestDecodeImageGarbage(t *testing.T) {
	p := NewProcessor()
	if _, err := p.DecodeImage([]byte("not an image")); err == nil {
		t.Error("expected decode error")
	}
}

func TestLoadImageSmartFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wall.png")
	if err := os.WriteFile(path, encodePNG(t, testImage(10, 10)), 0644); err != nil {
		t.Fatal(err)
	}

	p := NewProcessor()
	img, err := p.LoadImageSmart(path)
	if err != nil {
		t.Fatalf("LoadImageSmart failed: %v", err)
	}
	if img.Bounds().Dx() != 10 {
		t.Errorf("width = %d, want 10", img.Bounds().Dx())
	}
}

func TestPrepareImageForModelDownscales(t *testing.T) {
	p := NewProcessor()
	b64, err := p.PrepareImageForModel(testImage(800, 400), "jpg", 200, 90)
	if err != nil {
		t.Fatalf("PrepareImageForModel failed: %v", err)
	}

	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		t.Fatalf("invalid base64: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("jpeg decode: %v", err)
	}
	if img.Bounds().Dx() != 200 || img.Bounds().Dy() != 100 {
		t.Errorf("resized to %v, want 200x100", img.Bounds())
	}
}

func TestPrepareImageForModelNoResize(t *testing.T) {
	p := NewProcessor()
	b64, err := p.PrepareImageForModel(testImage(80, 40), "png", 0, 90)
	if err != nil {
		t.Fatalf("PrepareImageForModel failed: %v", err)
	}

	data, _ := base64.StdEncoding.DecodeString(b64)
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png decode: %v", err)
	}
	if img.Bounds().Dx() != 80 {
		t.Errorf("width = %d, want 80 (no resize)", img.Bounds().Dx())
	}
}

func TestSaveImageFormats(t *testing.T) {
	p := NewProcessor()
	dir := t.TempDir()
	img := testImage(20, 20)

	for _, tc := range []struct{ name, format string }{
		{"out.jpg", "jpg"},
		{"out.png", "png"},
		{"out.webp", "webp"},
	} {
		path := filepath.Join(dir, tc.name)
		if err := p.SaveImage(img, path, tc.format, 90, false); err != nil {
			t.Errorf("SaveImage(%s) failed: %v", tc.format, err)
			continue
		}
		loaded, err := p.LoadImage(path)
		if err != nil {
			t.Errorf("LoadImage(%s) failed: %v", tc.name, err)
			continue
		}
		if loaded.Bounds().Dx() != 20 {
			t.Errorf("%s: width = %d, want 20", tc.name, loaded.Bounds().Dx())
		}
	}
}
