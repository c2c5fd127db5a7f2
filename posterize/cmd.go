package posterize

import (
	"context"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"sync/atomic"
	"time"

	"picdither/dither"
	"picdither/imgio"
	"picdither/palette"
	"picdither/parallel"
	"picdither/progress"
	"picdither/region"

	"github.com/alecthomas/kong"
	"golang.org/x/image/draw"
)

type CLICmd struct {
	Scan        string            `help:"Source folder to scan" default:"."`
	Dest        string            `help:"Destination folder for processed pictures. Relative to scan dir if not absolute." default:"posterized"`
	Option      map[string]string `help:"Filter options: paletteSize (default 16), paletteType (0-4 or genetic4, genetic3, top, top4, random)" short:"o" mapsep:","`
	PaletteFile string            `help:"RIFF PAL file whose first palette replaces palette generation" type:"existingfile" group:"palette"`
	Seed        uint64            `help:"Random seed; 0 picks a random one per run" group:"palette"`
	Stagnation  int               `help:"Generations without improvement before the optimizer stops" default:"10" group:"palette"`
	Mutation    int               `help:"Maximum per-channel mutation of the optimizer. 0 keeps the default of 5, a negative value disables perturbation" default:"5" group:"palette"`
	Resize      bool              `help:"Resize image before dithering" default:"false" group:"resize"`
	Width       int               `help:"Max width" group:"resize"`
	Height      int               `help:"Max height" group:"resize"`
	Crop        bool              `help:"Crop image to maintain requested aspect ratio" default:"false" group:"resize"`
	Fill        string            `help:"If given and not cropping, will fill background with this color to maintain destination aspect ratio" group:"resize"`
	Format      string            `help:"Output format of processed image. If prefixed with 'unsup:' will convert only unsupported formats" enum:"${formats}" default:"unsup:png"`

	config    dither.Config
	fixed     palette.Palette
	fillColor color.Color
}

func (c *CLICmd) Validate(kctx *kong.Context) error {
	scanDir, err := filepath.Abs(c.Scan)
	var info os.FileInfo
	if err == nil {
		if info, err = os.Stat(scanDir); err == nil && !info.IsDir() {
			err = fmt.Errorf("not a directory")
		}
	}
	if err != nil {
		return fmt.Errorf("invalid scan path %q: %w", c.Scan, err)
	}
	c.Scan = scanDir

	if !filepath.IsAbs(c.Dest) {
		c.Dest = filepath.Join(scanDir, c.Dest)
	}

	if c.Resize {
		switch {
		case c.Width < 0:
			return fmt.Errorf("invalid resize width: %d", c.Width)
		case c.Height < 0:
			return fmt.Errorf("invalid resize height: %d", c.Height)
		case (c.Width == 0) && (c.Height == 0):
			return fmt.Errorf("no resize dimensions given")
		}
	}

	if !c.Crop && c.Fill != "" {
		if c.fillColor, err = ParseHexColor(c.Fill); err != nil {
			return err
		}
	}

	if !slices.Contains(imgio.Formats, c.Format) {
		return fmt.Errorf("unsupported output format: %q", c.Format)
	}

	c.config = dither.ParseOptions(c.Option)
	if c.config.PaletteSize <= 0 {
		return fmt.Errorf("invalid palette size: %d", c.config.PaletteSize)
	}

	if c.PaletteFile != "" {
		if c.fixed, err = LoadPalette(c.PaletteFile); err != nil {
			return err
		}
	}

	return nil
}

// LoadPalette returns the first non-empty palette stored in a RIFF PAL file.
func LoadPalette(name string) (palette.Palette, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("could not open palette file %q: %w", name, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			slog.Error("could not close palette file", "name", name, "error", closeErr)
		}
	}()

	pals, err := palette.ReadRIFF(f)
	if err != nil {
		return nil, fmt.Errorf("could not load palette file %q: %w", name, err)
	}
	for _, pal := range pals {
		if len(pal) > 0 {
			return pal, nil
		}
	}
	return nil, fmt.Errorf("palette file %q: %w", name, dither.ErrEmptyPalette)
}

func (c *CLICmd) Run(ctx context.Context, pool *parallel.Pool) error {
	if err := os.MkdirAll(c.Dest, 0o755); err != nil {
		return fmt.Errorf("unable to create destination folder %q: %w", c.Dest, err)
	}

	files, err := os.ReadDir(c.Scan)
	if err != nil {
		return fmt.Errorf("unable to read folder %q: %w", c.Scan, err)
	}

	seed := c.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	slog.Info("posterizing", "scan", c.Scan, "dest", c.Dest, "size", c.config.PaletteSize,
		"type", c.config.PaletteType.String(), "seed", seed)

	var processedCount, errCount atomic.Uint64
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		pool.Do(func(ctx context.Context) {
			fileName := file.Name()
			logger := slog.Default().With("file", filepath.Join(c.Scan, fileName))
			if err := c.process(ctx, logger, fileName, seed); err != nil {
				errCount.Add(1)
				logger.Error("could not posterize image", "error", err)
				return
			}
			processedCount.Add(1)
		})
	}

	pool.Wait()

	processed := processedCount.Load()
	errors := errCount.Load()
	slog.Info("stats", "processed", processed, "errors", errors,
		"total", processed+errors)

	if errors > 0 {
		return fmt.Errorf("error processing %d files", errors)
	}
	return ctx.Err()
}

func (c *CLICmd) process(ctx context.Context, logger *slog.Logger, fileName string, seed uint64) error {
	img, imgType, err := imgio.Load(filepath.Join(c.Scan, fileName))
	if err != nil {
		return err
	}

	var src *region.RGBA
	if c.Resize {
		src = region.FromImage(resize(logger, img, resizeParams{
			width:  c.Width,
			height: c.Height,
			crop:   c.Crop,
			fill:   c.fillColor,
		}))
	} else {
		src = region.FromImage(img)
	}
	dst := src.Clone()

	h := fnv.New64a()
	_, _ = h.Write([]byte(fileName))
	rnd := rand.New(rand.NewPCG(seed, h.Sum64()))

	filter := &dither.Filter{
		Options: palette.Options{
			Rand: rnd,
			Genetic: palette.GeneticOptions{
				Stagnation:    c.Stagnation,
				MutationRange: c.Mutation,
				Log:           logger,
			},
		},
		Sink: progress.NewLogSink(logger, time.Second),
		Log:  logger,
	}

	pal := c.fixed
	if pal != nil {
		err = filter.ProcessPalette(src, dst, pal)
	} else {
		pal, err = filter.Process(ctx, src, dst, c.config)
	}
	if err != nil {
		return err
	}

	return imgio.Save(toPaletted(dst.Image, pal), imgType, c.Format, c.Dest, fileName)
}

// toPaletted stores small palettes as paletted images so that indexed formats
// keep the exact colors.
func toPaletted(img *image.RGBA, pal palette.Palette) image.Image {
	if len(pal) == 0 || len(pal) > 256 {
		return img
	}

	dest := image.NewPaletted(img.Bounds(), pal.ColorPalette())
	draw.Draw(dest, dest.Rect, img, img.Rect.Min, draw.Src)
	return dest
}

// ParseHexColor accepts #RGB, #RGBA, #RRGGBB and #RRGGBBAA.
func ParseHexColor(s string) (color.Color, error) {
	var c color.NRGBA
	var n int
	var err error
	switch len(s) {
	case 4:
		n, err = fmt.Sscanf(s, "#%1x%1x%1x", &c.R, &c.G, &c.B)
		c.R |= c.R << 4
		c.G |= c.G << 4
		c.B |= c.B << 4
		c.A = 0xFF
	case 5:
		n, err = fmt.Sscanf(s, "#%1x%1x%1x%1x", &c.R, &c.G, &c.B, &c.A)
		c.R |= c.R << 4
		c.G |= c.G << 4
		c.B |= c.B << 4
		c.A |= c.A << 4
	case 7:
		n, err = fmt.Sscanf(s, "#%2x%2x%2x", &c.R, &c.G, &c.B)
		c.A = 0xFF
	case 9:
		n, err = fmt.Sscanf(s, "#%2x%2x%2x%2x", &c.R, &c.G, &c.B, &c.A)
	default:
		return nil, fmt.Errorf("invalid fill color, should be #RGB, #RGBA, #RRGGBB or #RRGGBBAA")
	}

	if err != nil {
		return nil, fmt.Errorf("could not read color: %w", err)
	} else if n < 3 {
		return nil, fmt.Errorf("insufficient fill color fields: %d", n)
	}
	return c, nil
}
