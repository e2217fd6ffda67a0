package boxcodec

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/dronescan/wallscan/pkg/types"
)

// RenderOptions controls box and label drawing.
type RenderOptions struct {
	Stroke         int               // outline thickness in pixels, default 3
	Source         *types.Resolution // resolution the boxes were authored against, if different
	BoxColor       color.NRGBA
	TextColor      color.NRGBA
	TextBackground color.NRGBA
}

func (o RenderOptions) withDefaults() RenderOptions {
	if o.Stroke <= 0 {
		o.Stroke = 3
	}
	var zero color.NRGBA
	if o.BoxColor == zero {
		o.BoxColor = color.NRGBA{255, 0, 0, 255}
	}
	if o.TextColor == zero {
		o.TextColor = color.NRGBA{0, 0, 0, 255}
	}
	if o.TextBackground == zero {
		o.TextBackground = color.NRGBA{255, 255, 255, 255}
	}
	return o
}

// RenderAnnotated draws every detection onto a copy of img and returns it
// together with the number of boxes drawn and the number skipped as
// malformed. The input image and detection list are never modified.
//
// Boxes are drawn in input order; the label reads "N: description" where N is
// the 1-based position in dets, with "cls=C" inserted when the detection
// carried an explicit class id. The outline is thickened by expanding the
// rectangle outward by 0..Stroke-1 pixels. The label background sits above
// the box's top-left corner, clamped so it never draws above row 0.
func RenderAnnotated(img image.Image, dets []types.Detection, opts RenderOptions) (*image.NRGBA, int, int) {
	opts = opts.withDefaults()
	out := imaging.Clone(img)
	canvas := types.Canvas{W: out.Bounds().Dx(), H: out.Bounds().Dy()}

	included, skipped := 0, 0
	for i, det := range dets {
		px, err := ToPixelCorners(det.Box, det.Encoding, canvas, opts.Source)
		if err != nil {
			skipped++
			continue
		}
		for o := 0; o < opts.Stroke; o++ {
			drawRectOutline(out, px.X1-o, px.Y1-o, px.X2+o, px.Y2+o, opts.BoxColor)
		}
		drawLabel(out, px, labelText(i+1, det), opts)
		included++
	}
	return out, included, skipped
}

func labelText(index int, det types.Detection) string {
	if det.HasClass {
		return fmt.Sprintf("%d: cls=%d %s", index, det.ClassID, det.Description)
	}
	return fmt.Sprintf("%d: %s", index, det.Description)
}

// drawLabel paints the text on a filled background anchored at the box's
// top-left corner.
func drawLabel(img *image.NRGBA, px types.PixelBox, text string, opts RenderOptions) {
	face := basicfont.Face7x13
	tw := font.MeasureString(face, text).Ceil()
	th := face.Metrics().Height.Ceil() + 6

	lx := px.X1
	ly := px.Y1 - th - 2
	if ly < 0 {
		ly = 0
	}
	fillRect(img, lx, ly, lx+tw+8, ly+th, opts.TextBackground)

	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(opts.TextColor),
		Face: face,
		Dot:  fixed.P(lx+4, ly+3+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(text)
}

// drawRectOutline draws a 1px rectangle outline with inclusive corners,
// clipped to the image bounds.
func drawRectOutline(img *image.NRGBA, x1, y1, x2, y2 int, c color.NRGBA) {
	hline(img, y1, x1, x2, c)
	hline(img, y2, x1, x2, c)
	vline(img, x1, y1, y2, c)
	vline(img, x2, y1, y2, c)
}

func fillRect(img *image.NRGBA, x1, y1, x2, y2 int, c color.NRGBA) {
	for y := y1; y < y2; y++ {
		hline(img, y, x1, x2-1, c)
	}
}

func hline(img *image.NRGBA, y, x1, x2 int, c color.NRGBA) {
	if y < 0 || y >= img.Bounds().Dy() {
		return
	}
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if x1 < 0 {
		x1 = 0
	}
	if x2 >= img.Bounds().Dx() {
		x2 = img.Bounds().Dx() - 1
	}
	for x := x1; x <= x2; x++ {
		i := y*img.Stride + x*4
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
}

func vline(img *image.NRGBA, x, y1, y2 int, c color.NRGBA) {
	if x < 0 || x >= img.Bounds().Dx() {
		return
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	if y1 < 0 {
		y1 = 0
	}
	if y2 >= img.Bounds().Dy() {
		y2 = img.Bounds().Dy() - 1
	}
	for y := y1; y <= y2; y++ {
		i := y*img.Stride + x*4
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
}
