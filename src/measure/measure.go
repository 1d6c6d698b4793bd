package measure

import (
	"encoding/json"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Measure assigns one value to each interval of a partition. Values are
// meant to be probabilities, but neither non-negativity nor a unit total is
// enforced. A Measure is immutable once built.
type Measure struct {
	p      Partition
	values []float64
}

func New(p Partition, values []float64) (Measure, error) {
	if len(values) != p.Len() {
		return Measure{}, fmt.Errorf("%w: %d values for %d intervals", ErrLengthMismatch, len(values), p.Len())
	}
	own := make([]float64, len(values))
	copy(own, values)
	return Measure{p: p, values: own}, nil
}

func (m Measure) Partition() Partition { return m.p }

func (m Measure) Len() int { return len(m.values) }

func (m Measure) Value(i int) float64 { return m.values[i] }

// Values returns a copy of the per-interval values.
func (m Measure) Values() []float64 {
	out := make([]float64, len(m.values))
	copy(out, m.values)
	return out
}

func (m Measure) Total() float64 {
	return floats.Sum(m.values)
}

type measureJSON struct {
	Cuts   []float64 `json:"cuts"`
	Values []float64 `json:"values"`
}

func (m Measure) MarshalJSON() ([]byte, error) {
	values := m.values
	if values == nil {
		values = []float64{}
	}
	return json.Marshal(measureJSON{Cuts: m.p.Cuts(), Values: values})
}

func (m *Measure) UnmarshalJSON(data []byte) error {
	var raw measureJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p, err := NewPartition(raw.Cuts)
	if err != nil {
		return err
	}
	n, err := New(p, raw.Values)
	if err != nil {
		return err
	}
	*m = n
	return nil
}
