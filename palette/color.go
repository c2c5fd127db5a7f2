package palette

import (
	"fmt"
	"image/color"
)

type Color struct {
	R, G, B uint8
}

var _ color.Color = Color{}

func (c Color) RGBA() (uint32, uint32, uint32, uint32) {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xFF}.RGBA()
}

// Less orders colors lexicographically by (R, G, B).
func (c Color) Less(o Color) bool {
	if c.R != o.R {
		return c.R < o.R
	}
	if c.G != o.G {
		return c.G < o.G
	}
	return c.B < o.B
}

func (c Color) Compare(o Color) int {
	switch {
	case c.Less(o):
		return -1
	case o.Less(c):
		return 1
	}
	return 0
}

// Distance2 is the squared Euclidean distance over the three channels.
func (c Color) Distance2(o Color) int {
	dr := int(c.R) - int(o.R)
	dg := int(c.G) - int(o.G)
	db := int(c.B) - int(o.B)
	return dr*dr + dg*dg + db*db
}

func (c Color) Shr(shift uint) Color {
	return Color{R: c.R >> shift, G: c.G >> shift, B: c.B >> shift}
}

func (c Color) Shl(shift uint) Color {
	return Color{R: c.R << shift, G: c.G << shift, B: c.B << shift}
}

func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func ColorModelConvert(c color.Color) Color {
	if pc, ok := c.(Color); ok {
		return pc
	}
	nc := color.NRGBAModel.Convert(c).(color.NRGBA)
	return Color{R: nc.R, G: nc.G, B: nc.B}
}

var ColorModel = color.ModelFunc(func(c color.Color) color.Color {
	return ColorModelConvert(c)
})

// Palette is an ordered set of colors stored in a single contiguous buffer.
type Palette []Color

func (p Palette) Clone() Palette {
	return append(Palette(nil), p...)
}

// Index returns the position of the entry closest to c, first minimum wins.
// It returns -1 for an empty palette.
func (p Palette) Index(c Color) int {
	ret, best := -1, 0
	for i, v := range p {
		d := c.Distance2(v)
		if ret < 0 || d < best {
			if d == 0 {
				return i
			}
			ret, best = i, d
		}
	}
	return ret
}

func (p Palette) ColorPalette() color.Palette {
	pal := make(color.Palette, len(p))
	for i, c := range p {
		pal[i] = c
	}
	return pal
}

func FromColorPalette(pal color.Palette) Palette {
	p := make(Palette, len(pal))
	for i, c := range pal {
		p[i] = ColorModelConvert(c)
	}
	return p
}
