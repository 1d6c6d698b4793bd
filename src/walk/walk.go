// Package walk computes random-walk statistics from bit streams and compares
// their empirical distribution with the matching limiting law.
package walk

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/lost-woods/randtest/src/bitstream"
	"github.com/lost-woods/randtest/src/measure"
)

// Statistic is a scalar computed from a window of n bits of the ±1 walk,
// together with the partition and reference measure it is judged against.
type Statistic interface {
	Name() string
	Compute(src bitstream.Source, n int) (float64, error)
	Partition(bins int) (measure.Partition, error)
	Ideal(n int, p measure.Partition) (measure.Measure, error)
}

// Arcsine is the fraction of steps the walk spends above zero. A step counts
// as positive when S_k > 0 or S_{k-1} > 0, so returns to zero from above
// stay on the positive side.
type Arcsine struct{}

func (Arcsine) Name() string { return "asin" }

func (Arcsine) Compute(src bitstream.Source, n int) (float64, error) {
	if n <= 0 {
		return 0, fmt.Errorf("%w: window length must be positive, got %d", measure.ErrInvalidDomain, n)
	}

	var s, positive int
	for k := 0; k < n; k++ {
		b, err := src.Next()
		if err != nil {
			return 0, err
		}
		prev := s
		s += step(b)
		if s > 0 || prev > 0 {
			positive++
		}
	}
	return float64(positive) / float64(n), nil
}

func (Arcsine) Partition(bins int) (measure.Partition, error) {
	return measure.AsinPartition(bins)
}

func (Arcsine) Ideal(n int, p measure.Partition) (measure.Measure, error) {
	return measure.IdealAsin(n, p), nil
}

// LIL is the final position of the walk normalized by sqrt(2 n ln ln n).
type LIL struct{}

func (LIL) Name() string { return "lil" }

func (LIL) Compute(src bitstream.Source, n int) (float64, error) {
	scale, err := measure.LILScale(n)
	if err != nil {
		return 0, err
	}

	var s int
	for k := 0; k < n; k++ {
		b, err := src.Next()
		if err != nil {
			return 0, err
		}
		s += step(b)
	}
	return float64(s) / (math.Sqrt(float64(n)) * scale), nil
}

func (LIL) Partition(bins int) (measure.Partition, error) {
	return measure.LILPartition(bins)
}

func (LIL) Ideal(n int, p measure.Partition) (measure.Measure, error) {
	return measure.IdealLIL(n, p)
}

func step(b bitstream.Bit) int {
	if b == bitstream.One {
		return 1
	}
	return -1
}

var statistics = map[string]Statistic{
	"asin":    Arcsine{},
	"arcsine": Arcsine{},
	"lil":     LIL{},
}

func ParseStatistic(name string) (Statistic, error) {
	s, ok := statistics[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown statistic %q (want asin or lil)", name)
	}
	return s, nil
}

// Sample computes up to reps realizations of stat over consecutive windows
// of n bits and bins them into h. Running out of bits ends sampling without
// error; the incomplete window is discarded. It returns how many
// realizations were binned.
func Sample(src bitstream.Source, stat Statistic, n, reps int, h *measure.Histogram) (int, error) {
	for i := 0; i < reps; i++ {
		x, err := stat.Compute(src, n)
		if errors.Is(err, bitstream.ErrExhausted) {
			return i, nil
		}
		if err != nil {
			return i, err
		}
		if err := h.Add(x); err != nil {
			return i, err
		}
	}
	return reps, nil
}
