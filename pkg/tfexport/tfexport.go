// Package tfexport writes inspection results as TFRecord files for object
// detection training pipelines.
package tfexport

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/protobuf/proto"
	"github.com/ryszard/tfutils/go/example"
	"github.com/ryszard/tfutils/go/tfrecord"
	tensorflow "github.com/ryszard/tfutils/proto/tensorflow/core/example"

	"github.com/dronescan/wallscan/pkg/types"
)

// Item holds everything needed to serialize one annotated image.
type Item struct {
	Filename string
	Encoded  []byte // raw image bytes as downloaded or read
	Format   string // "jpeg", "png", "webp"
	Width    int
	Height   int
	Boxes    []types.PixelBox
	ClassIDs []int // zero-based class index per box
	Classes  []string
}

// Write serializes items as TFRecord examples to w, one example per image.
// Box coordinates are normalized against the image dimensions. Class labels
// are written 1-based, matching the TensorFlow object detection convention.
func Write(w io.Writer, items []Item) (err error) {
	defer func() {
		if e := recover(); e != nil {
			err = fmt.Errorf("conversion to TensorFlow Example failed: %v", e)
		}
	}()

	for _, item := range items {
		ex, err := toExample(item)
		if err != nil {
			return err
		}
		enc, err := proto.Marshal(ex)
		if err != nil {
			return err
		}
		if err := tfrecord.Write(w, enc); err != nil {
			return err
		}
	}
	return nil
}

// WriteFile writes items to a TFRecord file at path.
func WriteFile(path string, items []Item) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create TFRecord file %q: %v", path, err)
	}
	defer f.Close()
	return Write(f, items)
}

func toExample(item Item) (*tensorflow.Example, error) {
	if item.Width <= 0 || item.Height <= 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%d for %q", item.Width, item.Height, item.Filename)
	}
	if len(item.Boxes) != len(item.ClassIDs) {
		return nil, fmt.Errorf("box/class count mismatch for %q: %d vs %d",
			item.Filename, len(item.Boxes), len(item.ClassIDs))
	}

	f := make(map[string]interface{}, 16)
	f["image/height"] = item.Height
	f["image/width"] = item.Width
	f["image/filename"] = item.Filename
	f["image/source_id"] = item.Filename
	f["image/encoded"] = item.Encoded
	f["image/format"] = item.Format

	n := len(item.Boxes)
	xmins := make([]float32, n)
	ymins := make([]float32, n)
	xmaxs := make([]float32, n)
	ymaxs := make([]float32, n)
	texts := make([]string, n)
	labels := make([]int64, n)
	for i, b := range item.Boxes {
		xmins[i] = float32(b.X1) / float32(item.Width)
		ymins[i] = float32(b.Y1) / float32(item.Height)
		xmaxs[i] = float32(b.X2) / float32(item.Width)
		ymaxs[i] = float32(b.Y2) / float32(item.Height)
		texts[i] = className(item.Classes, item.ClassIDs[i])
		labels[i] = int64(item.ClassIDs[i]) + 1
	}
	f["image/object/bbox/xmin"] = xmins
	f["image/object/bbox/ymin"] = ymins
	f["image/object/bbox/xmax"] = xmaxs
	f["image/object/bbox/ymax"] = ymaxs
	f["image/object/class/text"] = texts
	f["image/object/class/label"] = labels

	return example.New(f), nil
}

func className(classes []string, id int) string {
	if id >= 0 && id < len(classes) {
		return classes[id]
	}
	return fmt.Sprintf("class_%d", id)
}

// WriteClasses writes one class name per line to a classes.txt style file.
func WriteClasses(dir string, classes []string) error {
	path := filepath.Join(dir, "classes.txt")
	content := strings.Join(classes, "\n") + "\n"
	return os.WriteFile(path, []byte(content), 0644)
}
