package measure

import (
	"errors"
	"fmt"
	"math"
)

var ErrEmptyHistogram = errors.New("measure: histogram has no observations")

// Histogram bins scalar observations over a partition. It is not safe for
// concurrent use.
type Histogram struct {
	p      Partition
	counts []uint64
	total  uint64
}

func NewHistogram(p Partition) *Histogram {
	return &Histogram{p: p, counts: make([]uint64, p.Len())}
}

// Add bins x into the interval containing it. NaN has no interval.
func (h *Histogram) Add(x float64) error {
	if math.IsNaN(x) {
		return fmt.Errorf("%w: NaN observation", ErrInvalidDomain)
	}
	if len(h.counts) == 0 {
		return fmt.Errorf("%w: empty partition", ErrInvalidPartition)
	}
	h.counts[h.p.Index(x)]++
	h.total++
	return nil
}

func (h *Histogram) Count() uint64 { return h.total }

func (h *Histogram) Counts() []uint64 {
	out := make([]uint64, len(h.counts))
	copy(out, h.counts)
	return out
}

// Measure returns the empirical measure: each count divided by the total.
func (h *Histogram) Measure() (Measure, error) {
	if h.total == 0 {
		return Measure{}, ErrEmptyHistogram
	}
	values := make([]float64, len(h.counts))
	for i, c := range h.counts {
		values[i] = float64(c) / float64(h.total)
	}
	return Measure{p: h.p, values: values}, nil
}
