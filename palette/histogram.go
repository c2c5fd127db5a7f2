package palette

import (
	"iter"
	"slices"

	"picdither/progress"
)

// Source yields every pixel of a region in raster order together with
// whether it is selected.
type Source interface {
	Pixels() iter.Seq2[Color, bool]
}

type Histogram map[Color]int

type Entry struct {
	Color Color
	Count int
}

// BuildHistogram counts the selected pixels of src, right-shifting each channel
// by shift bits first. Every visited pixel advances tr by one step.
func BuildHistogram(src Source, shift uint, tr *progress.Tracker) Histogram {
	h := Histogram{}
	for c, selected := range src.Pixels() {
		if selected {
			if shift > 0 {
				c = c.Shr(shift)
			}
			h[c]++
		}
		tr.Advance(1)
	}
	return h
}

// Entries returns the histogram sorted by descending count, ties broken by
// ascending color order.
func (h Histogram) Entries() []Entry {
	res := make([]Entry, 0, len(h))
	for c, n := range h {
		res = append(res, Entry{Color: c, Count: n})
	}
	slices.SortFunc(res, func(a, b Entry) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		return a.Color.Compare(b.Color)
	})
	return res
}

// Expand maps every bucket back to full channel range by left-shifting its
// coordinate. Counts of buckets that land on the same color are merged.
func (h Histogram) Expand(shift uint) Histogram {
	if shift == 0 {
		return h
	}
	res := make(Histogram, len(h))
	for c, n := range h {
		res[c.Shl(shift)] += n
	}
	return res
}

func (h Histogram) Pixels() int {
	var n int
	for _, v := range h {
		n += v
	}
	return n
}

// Top returns up to n colors in Entries order.
func (h Histogram) Top(n int) Palette {
	entries := h.Entries()
	n = min(n, len(entries))
	pal := make(Palette, n)
	for i := range n {
		pal[i] = entries[i].Color
	}
	return pal
}
