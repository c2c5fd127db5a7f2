package extract

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"picdither/dither"
	"picdither/imgio"
	"picdither/palette"
	"picdither/progress"
	"picdither/region"

	"github.com/alecthomas/kong"
)

type CLICmd struct {
	Image  string            `arg:"" help:"Image to extract the palette from" type:"existingfile"`
	Output string            `help:"RIFF PAL file to write. Defaults to the image name with a .pal extension" short:"O"`
	Option map[string]string `help:"Filter options: paletteSize (default 16), paletteType (0-4 or genetic4, genetic3, top, top4, random)" short:"o" mapsep:","`
	Seed   uint64            `help:"Random seed; 0 picks a random one"`
	Print  bool              `help:"Log the palette colors" default:"true" negatable:""`

	config dither.Config
}

func (c *CLICmd) Validate(kctx *kong.Context) error {
	c.config = dither.ParseOptions(c.Option)
	if c.config.PaletteSize <= 0 {
		return fmt.Errorf("invalid palette size: %d", c.config.PaletteSize)
	}

	if c.Output == "" {
		ext := filepath.Ext(c.Image)
		c.Output = c.Image[:len(c.Image)-len(ext)] + ".pal"
	}
	return nil
}

func (c *CLICmd) Run(ctx context.Context) error {
	logger := slog.Default().With("file", c.Image)

	img, _, err := imgio.Load(c.Image)
	if err != nil {
		return err
	}

	seed := c.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rnd := rand.New(rand.NewPCG(seed, seed>>32|seed<<32))

	src := region.FromImage(img)
	tr := progress.NewTracker(progress.NewLogSink(logger, time.Second), src.Len())
	defer tr.Done()

	gen := palette.NewGenerator(c.config.PaletteType, palette.Options{
		Rand:    rnd,
		Genetic: palette.GeneticOptions{Log: logger},
	})
	pal, err := gen.Generate(ctx, src, c.config.PaletteSize, tr)
	if err != nil {
		return fmt.Errorf("could not generate palette: %w", err)
	}

	if c.Print {
		colors := make([]string, len(pal))
		for i, col := range pal {
			colors[i] = col.String()
		}
		logger.Info("palette", "type", c.config.PaletteType.String(), "seed", seed,
			"colors", strings.Join(colors, " "))
	}

	return writePalette(c.Output, pal)
}

func writePalette(name string, pal palette.Palette) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("could not create palette file %q: %w", name, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("could not close palette file %q: %w", name, closeErr)
		}
	}()

	if _, err = palette.WriteRIFF(f, pal); err != nil {
		return fmt.Errorf("could not write palette file %q: %w", name, err)
	}
	slog.Info("palette saved", "file", name, "colors", len(pal))
	return nil
}
