package posterize

import (
	"image"
	"image/color"
	"log/slog"
	"math"

	"golang.org/x/image/draw"
)

type resizeParams struct {
	width, height int
	crop          bool
	fill          color.Color
}

// resize scales img to fit width x height, keeping the aspect ratio. A zero
// dimension keeps the source one. With crop the source is trimmed to the
// destination aspect ratio; otherwise a fill color pads the destination, or
// without one the destination shrinks to the scaled image.
func resize(logger *slog.Logger, img image.Image, p resizeParams) *image.RGBA {
	srcBounds := img.Bounds()
	srcWidth := float64(srcBounds.Dx())
	srcHeight := float64(srcBounds.Dy())

	destWidth := float64(p.width)
	if destWidth == 0 {
		destWidth = srcWidth
	}
	destHeight := float64(p.height)
	if destHeight == 0 {
		destHeight = srcHeight
	}

	if (srcWidth == destWidth) && (srcHeight == destHeight) {
		dest := image.NewRGBA(image.Rect(0, 0, srcBounds.Dx(), srcBounds.Dy()))
		draw.Draw(dest, dest.Rect, img, srcBounds.Min, draw.Src)
		return dest
	}

	destSize := image.Rect(0, 0, int(destWidth), int(destHeight))
	destBounds := destSize

	srcAR := srcWidth / srcHeight
	destAR := destWidth / destHeight
	switch {
	case p.crop && srcAR < destAR:
		dh := int(math.Round((srcHeight - srcWidth/destAR) / 2))
		srcBounds.Min.Y += dh
		srcBounds.Max.Y -= dh
	case p.crop && srcAR > destAR:
		dw := int(math.Round((srcWidth - srcHeight*destAR) / 2))
		srcBounds.Min.X += dw
		srcBounds.Max.X -= dw
	case !p.crop && srcAR < destAR:
		dw := destHeight * srcAR
		if p.fill == nil {
			destSize.Max.X = int(math.Round(dw))
			destBounds.Max.X = destSize.Max.X
		} else if destWidth > dw {
			idw := int(math.Round((destWidth - dw) / 2))
			destBounds.Min.X += idw
			destBounds.Max.X -= idw
		}
	case !p.crop && srcAR > destAR:
		dh := destWidth / srcAR
		if p.fill == nil {
			destSize.Max.Y = int(math.Round(dh))
			destBounds.Max.Y = destSize.Max.Y
		} else if destHeight > dh {
			idh := int(math.Round((destHeight - dh) / 2))
			destBounds.Min.Y += idh
			destBounds.Max.Y -= idh
		}
	}

	logger.Info("resizing", "width", destBounds.Dx(), "height", destBounds.Dy())
	dest := image.NewRGBA(destSize)
	if p.fill != nil && !p.crop {
		draw.Draw(dest, destSize, image.NewUniform(p.fill), destSize.Min, draw.Src)
	}
	draw.CatmullRom.Scale(dest, destBounds, img, srcBounds, draw.Over, nil)

	return dest
}
