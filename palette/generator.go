package palette

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"picdither/progress"
)

var ErrInvalidSize = errors.New("palette size must be positive")

type Type int

const (
	GeneticReduced4Bit Type = iota
	GeneticReduced3Bit
	TopFrequencyExact
	TopFrequencyQuantized4Bit
	Random
)

const DefaultType = GeneticReduced4Bit

var typeNames = [...]string{
	GeneticReduced4Bit:        "genetic4",
	GeneticReduced3Bit:        "genetic3",
	TopFrequencyExact:         "top",
	TopFrequencyQuantized4Bit: "top4",
	Random:                    "random",
}

func (t Type) Valid() bool {
	return t >= GeneticReduced4Bit && t <= Random
}

func (t Type) String() string {
	if !t.Valid() {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeNames[t]
}

func ParseType(s string) (Type, bool) {
	for i, name := range typeNames {
		if name == s {
			return Type(i), true
		}
	}
	return DefaultType, false
}

// Generator produces a palette of at most size colors for the pixels of src.
type Generator interface {
	Generate(ctx context.Context, src Source, size int, tr *progress.Tracker) (Palette, error)
}

type Options struct {
	Genetic GeneticOptions
	Rand    *rand.Rand
}

// NewGenerator returns the strategy for t. Unknown types fall back to the default.
func NewGenerator(t Type, opts Options) Generator {
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if opts.Genetic.Rand == nil {
		opts.Genetic.Rand = opts.Rand
	}

	switch t {
	case GeneticReduced3Bit:
		return &genetic{shift: 3, opts: opts.Genetic}
	case TopFrequencyExact:
		return &topFrequency{}
	case TopFrequencyQuantized4Bit:
		return &topFrequency{shift: 4}
	case Random:
		return &random{rnd: opts.Rand}
	default:
		return &genetic{shift: 4, opts: opts.Genetic}
	}
}

type genetic struct {
	shift uint
	opts  GeneticOptions
}

func (g *genetic) Generate(ctx context.Context, src Source, size int, tr *progress.Tracker) (Palette, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	h := BuildHistogram(src, g.shift, tr).Expand(g.shift)
	opt, err := NewOptimizer(h, size, g.opts)
	if err != nil {
		return nil, err
	}
	return opt.Run(ctx, tr).Palette, nil
}

type topFrequency struct {
	shift uint
}

// Generate may return fewer than size colors when the region holds fewer
// distinct buckets. With no selected pixel at all it returns size black colors.
func (g *topFrequency) Generate(_ context.Context, src Source, size int, tr *progress.Tracker) (Palette, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	h := BuildHistogram(src, g.shift, tr)
	if len(h) == 0 {
		return make(Palette, size), nil
	}

	pal := h.Top(size)
	if g.shift > 0 {
		for i, c := range pal {
			pal[i] = c.Shl(g.shift)
		}
	}
	return pal, nil
}

type random struct {
	rnd *rand.Rand
}

func (g *random) Generate(_ context.Context, _ Source, size int, _ *progress.Tracker) (Palette, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	pal := make(Palette, size)
	for i := range pal {
		pal[i] = Color{
			R: uint8(g.rnd.IntN(256)),
			G: uint8(g.rnd.IntN(256)),
			B: uint8(g.rnd.IntN(256)),
		}
	}
	return pal, nil
}
