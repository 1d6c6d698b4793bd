// Package measure implements probability measures over partitions of the
// real line, the arcsine and iterated-logarithm reference measures, and
// distances between measures sharing a partition.
package measure

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidPartition  = errors.New("measure: invalid partition")
	ErrPartitionMismatch = errors.New("measure: mismatched partitions")
	ErrLengthMismatch    = errors.New("measure: values do not match partition length")

	// ErrInvalidDomain is returned when a parameter is outside the domain of
	// a formula, e.g. a sequence length too short for ln(ln(n)).
	ErrInvalidDomain = errors.New("measure: parameter outside domain")
)

// Interval is the half-open interval [Low, High). The first interval of a
// partition has Low = -Inf and the last has High = +Inf.
type Interval struct {
	Low  float64
	High float64
}

// Partition is an ordered, gap-free decomposition of the real line. It is
// stored as its interior cut points c0 <= c1 <= ..., giving the intervals
// (-Inf, c0), [c0, c1), ..., [c_last, +Inf). Partitions are immutable and
// compared by value with Equal.
type Partition struct {
	cuts []float64
}

// NewPartition builds a partition from its cut points. At least one cut is
// required, cuts must be finite and non-decreasing.
func NewPartition(cuts []float64) (Partition, error) {
	if len(cuts) == 0 {
		return Partition{}, fmt.Errorf("%w: at least one cut point is required", ErrInvalidPartition)
	}
	for i, c := range cuts {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return Partition{}, fmt.Errorf("%w: cut %d is not finite", ErrInvalidPartition, i)
		}
		if i > 0 && c < cuts[i-1] {
			return Partition{}, fmt.Errorf("%w: cut %d (%g) is below cut %d (%g)", ErrInvalidPartition, i, c, i-1, cuts[i-1])
		}
	}

	own := make([]float64, len(cuts))
	copy(own, cuts)
	return Partition{cuts: own}, nil
}

// MakePartition builds a partition of count intervals. The first is
// (-Inf, start), the last is [finish, +Inf), and the count-2 interior
// intervals split [start, finish) into steps of (finish-start)/(count-2).
func MakePartition(count int, start, finish float64) (Partition, error) {
	if count < 2 {
		return Partition{}, fmt.Errorf("%w: need at least 2 intervals, got %d", ErrInvalidPartition, count)
	}
	if count > 2 && finish < start {
		return Partition{}, fmt.Errorf("%w: finish %g is below start %g", ErrInvalidPartition, finish, start)
	}

	cuts := make([]float64, count-1)
	cuts[0] = start
	if count > 2 {
		step := (finish - start) / float64(count-2)
		for k := 1; k < count-2; k++ {
			cuts[k] = start + float64(k)*step
		}
		cuts[count-2] = finish
	}
	return NewPartition(cuts)
}

// LILPartition covers [-1, 1), the natural support of the normalized
// iterated-logarithm statistic.
func LILPartition(count int) (Partition, error) {
	return MakePartition(count, -1, 1)
}

// AsinPartition covers [0, 1] with bins centered so that 0 and 1 are bin
// midpoints.
func AsinPartition(count int) (Partition, error) {
	if count < 3 {
		return Partition{}, fmt.Errorf("%w: arcsine partition needs at least 3 intervals, got %d", ErrInvalidPartition, count)
	}
	step := 1 / float64(count-2)
	return MakePartition(count, -step/2, 1-step/2)
}

// Len returns the number of intervals; zero for the zero Partition.
func (p Partition) Len() int {
	if len(p.cuts) == 0 {
		return 0
	}
	return len(p.cuts) + 1
}

func (p Partition) Interval(i int) Interval {
	iv := Interval{Low: math.Inf(-1), High: math.Inf(1)}
	if i > 0 {
		iv.Low = p.cuts[i-1]
	}
	if i < len(p.cuts) {
		iv.High = p.cuts[i]
	}
	return iv
}

func (p Partition) Intervals() []Interval {
	out := make([]Interval, p.Len())
	for i := range out {
		out[i] = p.Interval(i)
	}
	return out
}

// Cuts returns a copy of the interior cut points.
func (p Partition) Cuts() []float64 {
	out := make([]float64, len(p.cuts))
	copy(out, p.cuts)
	return out
}

// Equal reports whether every bound of p and q matches exactly.
func (p Partition) Equal(q Partition) bool {
	if len(p.cuts) != len(q.cuts) {
		return false
	}
	for i := range p.cuts {
		if p.cuts[i] != q.cuts[i] {
			return false
		}
	}
	return true
}

// Index returns the interval containing x.
func (p Partition) Index(x float64) int {
	lo, hi := 0, len(p.cuts)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if p.cuts[mid] > x {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}

type partitionJSON struct {
	Cuts []float64 `json:"cuts"`
}

func (p Partition) MarshalJSON() ([]byte, error) {
	return json.Marshal(partitionJSON{Cuts: p.Cuts()})
}

func (p *Partition) UnmarshalJSON(data []byte) error {
	var raw partitionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	q, err := NewPartition(raw.Cuts)
	if err != nil {
		return err
	}
	*p = q
	return nil
}
