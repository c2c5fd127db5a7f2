package palette

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"slices"

	"picdither/progress"
)

const (
	DefaultStagnation     = 10
	DefaultMutationRange  = 5
	DefaultMutationChance = 0.5
)

type GeneticOptions struct {
	// Stagnation is the number of consecutive generations without a new
	// best-ever error after which the run stops.
	Stagnation int
	// MutationRange bounds the per-channel perturbation to [-MutationRange, +MutationRange].
	// Zero selects DefaultMutationRange, a negative value disables perturbation.
	MutationRange int
	// MutationChance is the probability for each child to be mutated.
	MutationChance float64
	// GenerationStep is the progress increment reported per generation.
	GenerationStep int
	// MaxGenerations stops the run early when positive.
	MaxGenerations int
	// Yield is called once per generation to hand control back to the host.
	Yield func()
	Rand  *rand.Rand
	Log   *slog.Logger
}

func (o GeneticOptions) withDefaults() GeneticOptions {
	if o.Stagnation <= 0 {
		o.Stagnation = DefaultStagnation
	}
	if o.MutationRange < 0 {
		o.MutationRange = 0
	} else if o.MutationRange == 0 {
		o.MutationRange = DefaultMutationRange
	}
	if o.MutationChance < 0 || o.MutationChance > 1 {
		o.MutationChance = DefaultMutationChance
	}
	if o.GenerationStep <= 0 {
		o.GenerationStep = 1
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if o.Log == nil {
		o.Log = slog.Default()
	}
	return o
}

type genome struct {
	pal Palette
	err float64
}

type Result struct {
	Palette     Palette
	Error       float64
	Generations int
	// History holds the best-ever error after each generation.
	History []float64
}

// Optimizer evolves a population of candidate palettes towards the one with
// the lowest count-weighted distance to a histogram.
type Optimizer struct {
	opts    GeneticOptions
	entries []Entry
	size    int
}

func NewOptimizer(h Histogram, size int, opts GeneticOptions) (*Optimizer, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	return &Optimizer{
		opts:    opts.withDefaults(),
		entries: h.Entries(),
		size:    size,
	}, nil
}

// Fitness returns the count-weighted sum of distances between every histogram
// entry and its nearest palette color.
func Fitness(entries []Entry, pal Palette) float64 {
	var sum float64
	for _, e := range entries {
		best := math.MaxInt
		for _, c := range pal {
			if d := e.Color.Distance2(c); d < best {
				best = d
				if d == 0 {
					break
				}
			}
		}
		if best == math.MaxInt {
			continue
		}
		sum += float64(e.Count) * math.Sqrt(float64(best))
	}
	return sum
}

func (o *Optimizer) evaluate(g *genome) {
	g.err = Fitness(o.entries, g.pal)
}

// seed splits the colors sorted by descending count into consecutive chunks of
// palette size, padding the last one from the start of the sequence.
func (o *Optimizer) seed() []genome {
	n := len(o.entries)
	if n == 0 {
		return []genome{{pal: make(Palette, o.size)}}
	}

	var pop []genome
	for start := 0; start < n; start += o.size {
		pal := make(Palette, o.size)
		for i := range o.size {
			pal[i] = o.entries[(start+i)%n].Color
		}
		pop = append(pop, genome{pal: pal})
	}
	return pop
}

func sortPopulation(pop []genome) {
	slices.SortStableFunc(pop, func(a, b genome) int {
		switch {
		case a.err < b.err:
			return -1
		case a.err > b.err:
			return 1
		}
		return 0
	})
}

func (o *Optimizer) initPopulation() []genome {
	pop := o.seed()
	for i := range pop {
		o.evaluate(&pop[i])
	}
	sortPopulation(pop)
	if len(pop)%2 != 0 {
		pop = append(pop, genome{pal: pop[0].pal.Clone(), err: pop[0].err})
	}
	return pop
}

func (o *Optimizer) crossover(p1, p2 genome) (genome, genome) {
	split := o.opts.Rand.IntN(o.size)
	c1 := genome{pal: make(Palette, o.size)}
	c2 := genome{pal: make(Palette, o.size)}
	copy(c1.pal[:split], p1.pal[:split])
	copy(c1.pal[split:], p2.pal[split:])
	copy(c2.pal[:split], p2.pal[:split])
	copy(c2.pal[split:], p1.pal[split:])
	return c1, c2
}

func (o *Optimizer) mutate(g *genome) {
	slot := &g.pal[o.opts.Rand.IntN(o.size)]
	slot.R = o.perturb(slot.R)
	slot.G = o.perturb(slot.G)
	slot.B = o.perturb(slot.B)
}

func (o *Optimizer) perturb(v uint8) uint8 {
	r := o.opts.MutationRange
	d := o.opts.Rand.IntN(2*r+1) - r
	return uint8(min(max(int(v)+d, 0), 255))
}

func (o *Optimizer) breed(pop []genome) []genome {
	n := len(pop)
	next := make([]genome, n, 2*n)
	copy(next, pop)
	for len(next) < 2*n {
		p1 := pop[o.opts.Rand.IntN(n)]
		p2 := pop[o.opts.Rand.IntN(n)]
		c1, c2 := o.crossover(p1, p2)
		for _, c := range []*genome{&c1, &c2} {
			if o.opts.Rand.Float64() < o.opts.MutationChance {
				o.mutate(c)
			}
			o.evaluate(c)
		}
		next = append(next, c1, c2)
	}
	return next
}

// Run evolves the population until Stagnation consecutive generations fail to
// improve on the best-ever error, ctx is cancelled or MaxGenerations is hit.
// Cancellation is not an error: the best palette found so far is returned.
func (o *Optimizer) Run(ctx context.Context, tr *progress.Tracker) Result {
	pop := o.initPopulation()
	best := pop[0]
	res := Result{}

	stagnant := 0
	for stagnant < o.opts.Stagnation {
		if ctx.Err() != nil {
			o.opts.Log.Debug("optimizer cancelled", "generation", res.Generations, "error", best.err)
			break
		}
		if o.opts.MaxGenerations > 0 && res.Generations >= o.opts.MaxGenerations {
			break
		}

		next := o.breed(pop)
		sortPopulation(next)
		pop = next[:len(pop)]

		res.Generations++
		tr.Advance(o.opts.GenerationStep)

		if pop[0].err < best.err {
			best = pop[0]
			stagnant = 0
		} else {
			stagnant++
		}
		res.History = append(res.History, best.err)

		if o.opts.Yield != nil {
			o.opts.Yield()
		}
	}

	o.opts.Log.Debug("optimizer finished", "generations", res.Generations, "population", len(pop),
		"colors", len(o.entries), "error", best.err)

	res.Palette = best.pal.Clone()
	res.Error = best.err
	return res
}
