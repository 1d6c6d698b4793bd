package measure

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// IdealAsin returns the arcsine-law measure over p: F(b) - F(a) for each
// interval, with F(x) = 2/pi * asin(sqrt(x)) clamped to [0, 1]. The sequence
// length n is accepted for finite-sample corrections but currently unused.
func IdealAsin(n int, p Partition) Measure {
	_ = n
	values := make([]float64, p.Len())
	for i := range values {
		iv := p.Interval(i)
		if iv.Low > iv.High {
			continue
		}
		values[i] = asinCDF(iv.High) - asinCDF(iv.Low)
	}
	return Measure{p: p, values: values}
}

func asinCDF(x float64) float64 {
	switch {
	case x <= 0:
		return 0
	case x >= 1:
		return 1
	}
	return 2 / math.Pi * math.Asin(math.Sqrt(x))
}

// LILScale returns sqrt(2 ln ln n), the factor that maps the normalized
// iterated-logarithm statistic onto a standard normal.
func LILScale(n int) (float64, error) {
	if float64(n) <= math.E {
		return 0, fmt.Errorf("%w: ln(ln(n)) needs n > e, got n = %d", ErrInvalidDomain, n)
	}
	return math.Sqrt(2 * math.Log(math.Log(float64(n)))), nil
}

// IdealLIL returns Phi(b*s) - Phi(a*s) for each interval [a, b) of p, where
// Phi is the standard normal CDF and s = LILScale(n).
func IdealLIL(n int, p Partition) (Measure, error) {
	s, err := LILScale(n)
	if err != nil {
		return Measure{}, err
	}

	values := make([]float64, p.Len())
	for i := range values {
		iv := p.Interval(i)
		values[i] = normalMass(iv.Low*s, iv.High*s)
	}
	return Measure{p: p, values: values}, nil
}

// normalMass is the standard normal probability of [a, b). In the upper
// tail it is evaluated by symmetry on the lower tail, where the
// erfc-based CDF keeps full relative precision.
func normalMass(a, b float64) float64 {
	if a > b {
		return 0
	}
	if a >= 0 {
		return distuv.UnitNormal.CDF(-a) - distuv.UnitNormal.CDF(-b)
	}
	return distuv.UnitNormal.CDF(b) - distuv.UnitNormal.CDF(a)
}
