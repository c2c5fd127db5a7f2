package palette

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
)

func testRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, 0x5eed))
}

func gradientHistogram() Histogram {
	h := Histogram{}
	for i := range 32 {
		h[Color{R: uint8(i * 8), G: uint8(255 - i*8), B: uint8(i * 3)}] = i + 1
	}
	return h
}

func TestFitness(t *testing.T) {
	t.Parallel()

	entries := Histogram{{0, 0, 0}: 3, {3, 4, 0}: 2}.Entries()
	if got := Fitness(entries, Palette{{0, 0, 0}, {3, 4, 0}}); got != 0 {
		t.Fatalf("expected zero error for exact palette, got %v", got)
	}
	// (3,4,0) is 5 away from black, twice.
	if got := Fitness(entries, Palette{{0, 0, 0}}); got != 10 {
		t.Fatalf("expected error 10, got %v", got)
	}
	if got := Fitness(entries, Palette{{0, 0, 0}, {0, 0, 0}}); got != 10 {
		t.Fatalf("expected duplicates not to change the error, got %v", got)
	}
}

func TestOptimizerInvalidSize(t *testing.T) {
	t.Parallel()

	for _, size := range []int{0, -3} {
		if _, err := NewOptimizer(Histogram{{1, 1, 1}: 1}, size, GeneticOptions{}); !errors.Is(err, ErrInvalidSize) {
			t.Fatalf("size %d: expected ErrInvalidSize, got %v", size, err)
		}
	}
}

func TestOptimizerSeedPadsLastChunk(t *testing.T) {
	t.Parallel()

	h := Histogram{{1, 0, 0}: 50, {2, 0, 0}: 40, {3, 0, 0}: 30, {4, 0, 0}: 20, {5, 0, 0}: 10}
	opt, err := NewOptimizer(h, 2, GeneticOptions{Rand: testRand(1)})
	if err != nil {
		t.Fatalf("new optimizer: %v", err)
	}

	seeds := opt.seed()
	if len(seeds) != 3 {
		t.Fatalf("expected 3 seed genomes, got %d", len(seeds))
	}
	want := []Palette{
		{{1, 0, 0}, {2, 0, 0}},
		{{3, 0, 0}, {4, 0, 0}},
		{{5, 0, 0}, {1, 0, 0}},
	}
	for i, g := range seeds {
		for j := range want[i] {
			if g.pal[j] != want[i][j] {
				t.Fatalf("seed %d: got %v, want %v", i, g.pal, want[i])
			}
		}
	}

	pop := opt.initPopulation()
	if len(pop) != 4 {
		t.Fatalf("expected population padded to 4, got %d", len(pop))
	}
	for i := 1; i < len(pop); i++ {
		if pop[i].err < pop[i-1].err {
			t.Fatalf("population not sorted by error: %v", pop)
		}
	}
	if pop[3].err != pop[0].err {
		t.Fatalf("expected best genome duplicated, got %v and %v", pop[0], pop[3])
	}
}

func TestOptimizerRunMonotonic(t *testing.T) {
	t.Parallel()

	h := gradientHistogram()
	opt, err := NewOptimizer(h, 4, GeneticOptions{Rand: testRand(42)})
	if err != nil {
		t.Fatalf("new optimizer: %v", err)
	}

	res := opt.Run(context.Background(), nil)
	if len(res.Palette) != 4 {
		t.Fatalf("expected 4 colors, got %d", len(res.Palette))
	}
	if res.Error < 0 {
		t.Fatalf("negative error: %v", res.Error)
	}
	if got := Fitness(h.Entries(), res.Palette); got != res.Error {
		t.Fatalf("reported error %v does not match palette fitness %v", res.Error, got)
	}
	if len(res.History) != res.Generations || res.Generations < DefaultStagnation {
		t.Fatalf("unexpected history length %d for %d generations", len(res.History), res.Generations)
	}
	for i := 1; i < len(res.History); i++ {
		if res.History[i] > res.History[i-1] {
			t.Fatalf("best-ever error regressed at generation %d: %v", i, res.History)
		}
	}

	initial := opt.initPopulation()[0].err
	if res.Error > initial {
		t.Fatalf("result error %v worse than best seed %v", res.Error, initial)
	}
}

func TestOptimizerStopsAfterStagnation(t *testing.T) {
	t.Parallel()

	c := Color{R: 200, G: 10, B: 99}
	var yields int
	opt, err := NewOptimizer(Histogram{c: 100}, 3, GeneticOptions{
		Rand:       testRand(7),
		Stagnation: 4,
		Yield:      func() { yields++ },
	})
	if err != nil {
		t.Fatalf("new optimizer: %v", err)
	}

	res := opt.Run(context.Background(), nil)
	// The seed palette is already exact, nothing can beat an error of zero.
	if res.Generations != 4 || yields != 4 {
		t.Fatalf("expected 4 generations and yields, got %d and %d", res.Generations, yields)
	}
	if res.Error != 0 {
		t.Fatalf("expected zero error, got %v", res.Error)
	}
	if res.Palette.Index(c) < 0 || res.Palette[res.Palette.Index(c)] != c {
		t.Fatalf("expected palette to contain %v, got %v", c, res.Palette)
	}
}

func TestOptimizerMoreColorsThanHistogram(t *testing.T) {
	t.Parallel()

	h := Histogram{{1, 2, 3}: 4, {200, 100, 0}: 1}
	opt, err := NewOptimizer(h, 8, GeneticOptions{Rand: testRand(3)})
	if err != nil {
		t.Fatalf("new optimizer: %v", err)
	}

	res := opt.Run(context.Background(), nil)
	if len(res.Palette) != 8 {
		t.Fatalf("expected 8 colors, got %d", len(res.Palette))
	}
	if res.Error != 0 {
		t.Fatalf("expected exact palette, got error %v", res.Error)
	}
}

func TestOptimizerEmptyHistogram(t *testing.T) {
	t.Parallel()

	opt, err := NewOptimizer(Histogram{}, 3, GeneticOptions{Rand: testRand(9), MaxGenerations: 5})
	if err != nil {
		t.Fatalf("new optimizer: %v", err)
	}

	res := opt.Run(context.Background(), nil)
	if len(res.Palette) != 3 || res.Error != 0 {
		t.Fatalf("unexpected result for empty histogram: %+v", res)
	}
}

func TestOptimizerCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := gradientHistogram()
	opt, err := NewOptimizer(h, 4, GeneticOptions{Rand: testRand(5)})
	if err != nil {
		t.Fatalf("new optimizer: %v", err)
	}

	res := opt.Run(ctx, nil)
	if res.Generations != 0 {
		t.Fatalf("expected no generation after cancellation, got %d", res.Generations)
	}
	if want := opt.initPopulation()[0].err; res.Error != want {
		t.Fatalf("expected best seed error %v, got %v", want, res.Error)
	}
}

func TestOptimizerDeterministic(t *testing.T) {
	t.Parallel()

	run := func() Result {
		opt, err := NewOptimizer(gradientHistogram(), 5, GeneticOptions{Rand: testRand(11)})
		if err != nil {
			t.Fatalf("new optimizer: %v", err)
		}
		return opt.Run(context.Background(), nil)
	}

	a, b := run(), run()
	if a.Error != b.Error || a.Generations != b.Generations {
		t.Fatalf("runs differ: %v/%d vs %v/%d", a.Error, a.Generations, b.Error, b.Generations)
	}
	for i := range a.Palette {
		if a.Palette[i] != b.Palette[i] {
			t.Fatalf("palettes differ: %v vs %v", a.Palette, b.Palette)
		}
	}
}

func TestMutationBounds(t *testing.T) {
	t.Parallel()

	opt, err := NewOptimizer(Histogram{}, 1, GeneticOptions{Rand: testRand(13)})
	if err != nil {
		t.Fatalf("new optimizer: %v", err)
	}

	for range 1000 {
		if v := opt.perturb(0); v > DefaultMutationRange {
			t.Fatalf("perturbation of 0 out of range: %d", v)
		}
		if v := opt.perturb(255); v < 255-DefaultMutationRange {
			t.Fatalf("perturbation of 255 out of range: %d", v)
		}
		if v := opt.perturb(100); v < 95 || v > 105 {
			t.Fatalf("perturbation of 100 out of range: %d", v)
		}
	}
}

func TestCrossover(t *testing.T) {
	t.Parallel()

	opt, err := NewOptimizer(Histogram{}, 4, GeneticOptions{Rand: testRand(17)})
	if err != nil {
		t.Fatalf("new optimizer: %v", err)
	}

	p1 := genome{pal: Palette{{1, 1, 1}, {1, 1, 1}, {1, 1, 1}, {1, 1, 1}}}
	p2 := genome{pal: Palette{{2, 2, 2}, {2, 2, 2}, {2, 2, 2}, {2, 2, 2}}}
	for range 50 {
		c1, c2 := opt.crossover(p1, p2)
		for i := range 4 {
			if c1.pal[i] == c2.pal[i] {
				t.Fatalf("children not complementary: %v %v", c1.pal, c2.pal)
			}
			if i > 0 && c1.pal[i-1] == (Color{2, 2, 2}) && c1.pal[i] == (Color{1, 1, 1}) {
				t.Fatalf("child 1 is not prefix of parent 1 plus suffix of parent 2: %v", c1.pal)
			}
		}
	}
	if p1.pal[0] != (Color{1, 1, 1}) || p2.pal[0] != (Color{2, 2, 2}) {
		t.Fatal("crossover modified its parents")
	}
}

func TestMutationRangeDefaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want int
	}{
		{0, DefaultMutationRange},
		{-1, 0},
		{12, 12},
	}
	for _, tt := range tests {
		if got := (GeneticOptions{MutationRange: tt.in}).withDefaults().MutationRange; got != tt.want {
			t.Errorf("MutationRange %d: got %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestMutationDisabled(t *testing.T) {
	t.Parallel()

	opt, err := NewOptimizer(Histogram{}, 2, GeneticOptions{Rand: testRand(19), MutationRange: -1})
	if err != nil {
		t.Fatalf("new optimizer: %v", err)
	}

	g := genome{pal: Palette{{0, 128, 255}, {7, 7, 7}}}
	for range 100 {
		opt.mutate(&g)
	}
	if g.pal[0] != (Color{0, 128, 255}) || g.pal[1] != (Color{7, 7, 7}) {
		t.Fatalf("palette changed with perturbation disabled: %v", g.pal)
	}
}
