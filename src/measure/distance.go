package measure

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Metric is a distance between two measures over the same partition.
type Metric func(u, v Measure) (float64, error)

func compatible(u, v Measure) error {
	if !u.p.Equal(v.p) {
		return fmt.Errorf("%w: %d and %d intervals", ErrPartitionMismatch, u.p.Len(), v.p.Len())
	}
	if u.p.Len() == 0 {
		return fmt.Errorf("%w: empty partition", ErrInvalidPartition)
	}
	return nil
}

// TV is the total variation distance, computed as the sum of the positive
// parts of u - v. For probability measures this equals half the L1
// distance; for other inputs it is not symmetric.
func TV(u, v Measure) (float64, error) {
	if err := compatible(u, v); err != nil {
		return 0, err
	}
	var d float64
	for i := range u.values {
		if diff := u.values[i] - v.values[i]; diff > 0 {
			d += diff
		}
	}
	return d, nil
}

// Hellinger is sqrt(sum((sqrt(u_i) - sqrt(v_i))^2) / 2). Negative values give
// NaN; callers must pass non-negative measures.
func Hellinger(u, v Measure) (float64, error) {
	if err := compatible(u, v); err != nil {
		return 0, err
	}
	var sum float64
	for i := range u.values {
		d := math.Sqrt(u.values[i]) - math.Sqrt(v.values[i])
		sum += d * d
	}
	return math.Sqrt(sum / 2), nil
}

// RMS is the root-mean-square difference sqrt(sum((u_i - v_i)^2) / n).
func RMS(u, v Measure) (float64, error) {
	if err := compatible(u, v); err != nil {
		return 0, err
	}
	return floats.Distance(u.values, v.values, 2) / math.Sqrt(float64(len(u.values))), nil
}

// Metrics maps metric names to their implementation.
var Metrics = map[string]Metric{
	"tv":        TV,
	"hellinger": Hellinger,
	"rms":       RMS,
}

var metricAliases = map[string]string{
	"hell":            "hellinger",
	"total-variation": "tv",
}

func ParseMetric(name string) (Metric, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if alias, ok := metricAliases[name]; ok {
		name = alias
	}
	m, ok := Metrics[name]
	if !ok {
		return nil, fmt.Errorf("unknown metric %q (want one of %s)", name, strings.Join(MetricNames(), ", "))
	}
	return m, nil
}

func MetricNames() []string {
	names := make([]string, 0, len(Metrics))
	for name := range Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
