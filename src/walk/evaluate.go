package walk

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/lost-woods/randtest/src/bitstream"
	"github.com/lost-woods/randtest/src/measure"
)

type Config struct {
	Statistic Statistic

	// N is the window length in bits, Reps the number of windows.
	N    int
	Reps int

	Bins int
}

func (c Config) Validate() error {
	if c.Statistic == nil {
		return errors.New("statistic is required")
	}
	if c.N <= 0 {
		return fmt.Errorf("invalid window length: %d", c.N)
	}
	if c.Reps <= 0 {
		return fmt.Errorf("invalid repetition count: %d", c.Reps)
	}
	return nil
}

type Result struct {
	Statistic string             `json:"statistic"`
	N         int                `json:"n"`
	Samples   int                `json:"samples"`
	Empirical measure.Measure    `json:"empirical"`
	Ideal     measure.Measure    `json:"ideal"`
	Distances map[string]float64 `json:"distances"`
}

// Evaluate starts src, bins cfg.Reps realizations of the statistic and
// measures every registered distance between the empirical measure and the
// reference one. src is always stopped before returning.
func Evaluate(src bitstream.Source, cfg Config, log *zap.SugaredLogger) (res Result, err error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	p, err := cfg.Statistic.Partition(cfg.Bins)
	if err != nil {
		return Result{}, err
	}
	ideal, err := cfg.Statistic.Ideal(cfg.N, p)
	if err != nil {
		return Result{}, err
	}

	if err := src.Start(); err != nil {
		return Result{}, err
	}
	defer func() {
		if stopErr := src.Stop(); stopErr != nil {
			log.Warnw("failed to stop bit source", "error", stopErr)
			if err == nil {
				err = stopErr
			}
		}
	}()

	h := measure.NewHistogram(p)
	samples, err := Sample(src, cfg.Statistic, cfg.N, cfg.Reps, h)
	if err != nil {
		return Result{}, err
	}
	if samples == 0 {
		return Result{}, fmt.Errorf("%w: no complete window of %d bits", bitstream.ErrExhausted, cfg.N)
	}
	if samples < cfg.Reps {
		log.Warnw("bit source exhausted early", "statistic", cfg.Statistic.Name(), "wanted", cfg.Reps, "samples", samples)
	}

	empirical, err := h.Measure()
	if err != nil {
		return Result{}, err
	}

	distances := make(map[string]float64, len(measure.Metrics))
	for name, metric := range measure.Metrics {
		d, err := metric(empirical, ideal)
		if err != nil {
			return Result{}, err
		}
		distances[name] = d
	}

	log.Debugw("evaluated bit source",
		"statistic", cfg.Statistic.Name(),
		"n", cfg.N,
		"samples", samples,
		"distances", distances,
	)

	return Result{
		Statistic: cfg.Statistic.Name(),
		N:         cfg.N,
		Samples:   samples,
		Empirical: empirical,
		Ideal:     ideal,
		Distances: distances,
	}, nil
}
