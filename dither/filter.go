package dither

import (
	"context"
	"fmt"
	"log/slog"

	"picdither/palette"
	"picdither/progress"
)

// Filter runs one palette generation and mapping pass per Process call.
// It is not safe for concurrent use when Options carries a shared *rand.Rand.
type Filter struct {
	Options palette.Options
	Sink    progress.Sink
	Log     *slog.Logger
}

func (f *Filter) logger() *slog.Logger {
	if f.Log == nil {
		return slog.Default()
	}
	return f.Log
}

// Process generates a palette from the selected pixels of src according to
// conf and maps src into dst with it. The realized palette is returned.
func (f *Filter) Process(ctx context.Context, src, dst Region, conf Config) (palette.Palette, error) {
	if src == nil || dst == nil {
		return nil, ErrNilRegion
	}
	if conf.PaletteSize <= 0 {
		return nil, fmt.Errorf("%w: %d", palette.ErrInvalidSize, conf.PaletteSize)
	}

	pixels := src.Bounds().Dx() * src.Bounds().Dy()
	total := pixels
	if conf.PaletteType != palette.Random {
		total += pixels
	}
	tr := progress.NewTracker(f.Sink, total)
	defer tr.Done()

	log := f.logger().With("type", conf.PaletteType.String(), "size", conf.PaletteSize)
	gen := palette.NewGenerator(conf.PaletteType, f.optionsFor(log))
	pal, err := gen.Generate(ctx, src, conf.PaletteSize, tr)
	if err != nil {
		return nil, fmt.Errorf("could not generate palette: %w", err)
	}
	log.Info("palette generated", "colors", len(pal))

	if err := f.apply(src, dst, pal, tr); err != nil {
		return pal, err
	}
	return pal, nil
}

// ProcessPalette maps src into dst with a fixed palette.
func (f *Filter) ProcessPalette(src, dst Region, pal palette.Palette) error {
	if src == nil || dst == nil {
		return ErrNilRegion
	}

	tr := progress.NewTracker(f.Sink, src.Bounds().Dx()*src.Bounds().Dy())
	defer tr.Done()

	return f.apply(src, dst, pal, tr)
}

func (f *Filter) apply(src, dst Region, pal palette.Palette, tr *progress.Tracker) error {
	m, err := NewPixelMapper(pal, dst)
	if err != nil {
		return fmt.Errorf("could not map pixels: %w", err)
	}
	if err := m.Map(src, dst, tr); err != nil {
		return fmt.Errorf("could not map pixels: %w", err)
	}
	return nil
}

func (f *Filter) optionsFor(log *slog.Logger) palette.Options {
	opts := f.Options
	if opts.Genetic.Log == nil {
		opts.Genetic.Log = log
	}
	return opts
}
