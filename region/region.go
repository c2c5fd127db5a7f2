package region

import (
	"image"
	"iter"

	"picdither/palette"

	"golang.org/x/image/draw"
)

// PixelSize is the number of raw bytes per pixel: R, G, B, A.
const PixelSize = 4

// RGBA is a rectangular view over an *image.RGBA. Pixels under a zero value
// of the optional Mask are not selected.
type RGBA struct {
	Image *image.RGBA
	Rect  image.Rectangle
	Mask  *image.Alpha
}

var _ palette.Source = &RGBA{}

// New returns a region covering r (clipped to the image bounds). An empty r
// selects the whole image.
func New(img *image.RGBA, r image.Rectangle) *RGBA {
	if r.Empty() {
		r = img.Bounds()
	}
	return &RGBA{Image: img, Rect: r.Intersect(img.Bounds())}
}

// FromImage copies img into a new *image.RGBA and returns a region over all of it.
func FromImage(img image.Image) *RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return New(rgba, rgba.Bounds())
	}

	b := img.Bounds()
	rgba := image.NewRGBA(b)
	draw.Draw(rgba, b, img, b.Min, draw.Src)
	return New(rgba, b)
}

// Clone returns a region over a copy of the underlying pixels, with the same
// rectangle and mask.
func (r *RGBA) Clone() *RGBA {
	img := image.NewRGBA(r.Image.Bounds())
	copy(img.Pix, r.Image.Pix)
	return &RGBA{Image: img, Rect: r.Rect, Mask: r.Mask}
}

func (r *RGBA) WithMask(mask *image.Alpha) *RGBA {
	cp := *r
	cp.Mask = mask
	return &cp
}

func (r *RGBA) Bounds() image.Rectangle {
	return r.Rect
}

func (r *RGBA) PixelSize() int {
	return PixelSize
}

func (r *RGBA) Len() int {
	return r.Rect.Dx() * r.Rect.Dy()
}

func (r *RGBA) Selected(x, y int) bool {
	if r.Mask == nil {
		return true
	}
	if !(image.Point{X: x, Y: y}.In(r.Mask.Rect)) {
		return false
	}
	return r.Mask.AlphaAt(x, y).A != 0
}

// Raw returns the bytes of the pixel at (x, y). The slice aliases the image.
func (r *RGBA) Raw(x, y int) []byte {
	i := r.Image.PixOffset(x, y)
	return r.Image.Pix[i : i+PixelSize : i+PixelSize]
}

// Color converts raw pixel bytes to a color, ignoring alpha.
func (r *RGBA) Color(raw []byte) palette.Color {
	return palette.Color{R: raw[0], G: raw[1], B: raw[2]}
}

// Encode writes c as an opaque pixel into raw.
func (r *RGBA) Encode(c palette.Color, raw []byte) {
	raw[0], raw[1], raw[2], raw[3] = c.R, c.G, c.B, 0xFF
}

// Points yields every pixel coordinate of the region in raster order.
func (r *RGBA) Points() iter.Seq[image.Point] {
	return func(yield func(image.Point) bool) {
		for y := r.Rect.Min.Y; y < r.Rect.Max.Y; y++ {
			for x := r.Rect.Min.X; x < r.Rect.Max.X; x++ {
				if !yield(image.Point{X: x, Y: y}) {
					return
				}
			}
		}
	}
}

func (r *RGBA) Pixels() iter.Seq2[palette.Color, bool] {
	return func(yield func(palette.Color, bool) bool) {
		for p := range r.Points() {
			if !yield(r.Color(r.Raw(p.X, p.Y)), r.Selected(p.X, p.Y)) {
				return
			}
		}
	}
}
