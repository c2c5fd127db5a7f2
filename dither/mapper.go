package dither

import (
	"errors"
	"fmt"
	"image"

	"picdither/palette"
	"picdither/progress"
)

var (
	ErrEmptyPalette   = errors.New("palette is empty")
	ErrNilRegion      = errors.New("region is nil")
	ErrRegionMismatch = errors.New("source and destination regions differ")
)

// Encoder converts a color into the raw bytes of one pixel.
type Encoder interface {
	PixelSize() int
	Encode(c palette.Color, raw []byte)
}

// Region is a rectangular pixel buffer with a per-pixel selection flag.
type Region interface {
	palette.Source
	Encoder
	Bounds() image.Rectangle
	Selected(x, y int) bool
	Raw(x, y int) []byte
}

// PixelMapper rewrites pixels to their nearest palette color, measured as the
// squared distance between raw pixel bytes.
type PixelMapper struct {
	pal       palette.Palette
	raw       []byte
	pixelSize int
}

func NewPixelMapper(pal palette.Palette, enc Encoder) (*PixelMapper, error) {
	if len(pal) == 0 {
		return nil, ErrEmptyPalette
	}

	ps := enc.PixelSize()
	m := &PixelMapper{
		pal:       pal.Clone(),
		raw:       make([]byte, len(pal)*ps),
		pixelSize: ps,
	}
	for i, c := range m.pal {
		enc.Encode(c, m.raw[i*ps:(i+1)*ps])
	}
	return m, nil
}

// Index returns the first palette entry with the minimum distance to raw.
func (m *PixelMapper) Index(raw []byte) int {
	ret, best := 0, -1
	for i := range m.pal {
		entry := m.raw[i*m.pixelSize : (i+1)*m.pixelSize]
		var d int
		for j, v := range entry {
			a := int(v) - int(raw[j])
			d += a * a
		}
		if best < 0 || d < best {
			if d == 0 {
				return i
			}
			ret, best = i, d
		}
	}
	return ret
}

func (m *PixelMapper) entry(i int) []byte {
	return m.raw[i*m.pixelSize : (i+1)*m.pixelSize]
}

// Map writes the nearest palette color of every selected src pixel into the
// matching dst pixel. Unselected pixels are left as they are in dst. Every
// visited pixel advances tr by one step.
func (m *PixelMapper) Map(src, dst Region, tr *progress.Tracker) error {
	if src == nil || dst == nil {
		return ErrNilRegion
	}

	sr, dr := src.Bounds(), dst.Bounds()
	if sr.Size() != dr.Size() {
		return fmt.Errorf("%w: %v vs %v", ErrRegionMismatch, sr, dr)
	}
	if src.PixelSize() != m.pixelSize || dst.PixelSize() != m.pixelSize {
		return fmt.Errorf("%w: pixel size %d/%d, palette encoded for %d", ErrRegionMismatch,
			src.PixelSize(), dst.PixelSize(), m.pixelSize)
	}

	off := dr.Min.Sub(sr.Min)
	for y := sr.Min.Y; y < sr.Max.Y; y++ {
		for x := sr.Min.X; x < sr.Max.X; x++ {
			if src.Selected(x, y) {
				copy(dst.Raw(x+off.X, y+off.Y), m.entry(m.Index(src.Raw(x, y))))
			}
			tr.Advance(1)
		}
	}
	return nil
}
