package gen

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lost-woods/randtest/src/bitstream"
)

// Mode selects how sequence seeds are chosen.
type Mode string

const (
	// Serial seeds sequence i with i+1, so runs are reproducible.
	Serial Mode = "serial"

	// Random seeds every sequence from the entropy reader.
	Random Mode = "random"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case Serial, Random:
		return m, nil
	}
	return "", fmt.Errorf("unknown seed mode %q (want serial or random)", s)
}

// headBytes is how much of each sequence gets the stuck-output check.
const headBytes = 256

type Config struct {
	// Out is the root of the <mode>/<algorithm>/<index>.bin tree.
	Out string

	Count  int
	Length int64

	// Algorithms and Modes select what to generate; empty means all.
	Algorithms []string
	Modes      []Mode

	// Workers bounds how many jobs run at once; <= 0 means one per CPU.
	Workers int

	// Entropy seeds Random mode. Nil means crypto/rand.
	Entropy io.Reader
}

func (c Config) Validate() error {
	if c.Out == "" {
		return errors.New("output directory is required")
	}
	if c.Count <= 0 {
		return fmt.Errorf("invalid sequence count: %d", c.Count)
	}
	if c.Length <= 0 {
		return fmt.Errorf("invalid sequence length: %d", c.Length)
	}
	return nil
}

// Path returns where sequence index of algorithm is written.
func Path(out string, mode Mode, algorithm string, index int) string {
	return filepath.Join(out, string(mode), algorithm, fmt.Sprintf("%d.bin", index))
}

// Run starts one job per (mode, algorithm) pair and waits for all of them.
// Jobs share nothing but the entropy reader; the first failure cancels the
// remaining jobs.
func Run(ctx context.Context, cfg Config, log *zap.SugaredLogger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	algos, err := Lookup(cfg.Algorithms)
	if err != nil {
		return err
	}

	modes := cfg.Modes
	if len(modes) == 0 {
		modes = []Mode{Serial, Random}
	}
	for _, m := range modes {
		if _, err := ParseMode(string(m)); err != nil {
			return err
		}
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	entropy := cfg.Entropy
	if entropy == nil {
		entropy = rand.Reader
	}
	entropy = bitstream.NewLockedReader(entropy)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, mode := range modes {
		for _, algo := range algos {
			j := job{
				cfg:     cfg,
				mode:    mode,
				algo:    algo,
				entropy: entropy,
				log:     log.With("mode", mode, "algorithm", algo.Name),
			}
			g.Go(func() error { return j.run(ctx) })
		}
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Infow("generation finished", "out", cfg.Out, "jobs", len(modes)*len(algos), "count", cfg.Count, "bytes", cfg.Length)
	return nil
}

type job struct {
	cfg     Config
	mode    Mode
	algo    Algorithm
	entropy io.Reader
	log     *zap.SugaredLogger
}

func (j job) run(ctx context.Context) error {
	dir := filepath.Dir(Path(j.cfg.Out, j.mode, j.algo.Name, 0))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	for i := 0; i < j.cfg.Count; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		seed, err := j.seed(i)
		if err != nil {
			return fmt.Errorf("%s/%s: seed %d: %w", j.mode, j.algo.Name, i, err)
		}
		r, err := j.algo.New(seed)
		if err != nil {
			return fmt.Errorf("%s/%s: %w", j.mode, j.algo.Name, err)
		}

		path := Path(j.cfg.Out, j.mode, j.algo.Name, i)
		head, err := writeSequence(path, r, j.cfg.Length)
		if err != nil {
			return fmt.Errorf("%s/%s: %w", j.mode, j.algo.Name, err)
		}
		if len(head) >= 8 {
			if err := bitstream.CheckSample(head); err != nil {
				j.log.Warnw("sequence failed sanity check", "path", path, "error", err)
			}
		}
	}

	j.log.Debugw("job finished", "count", j.cfg.Count)
	return nil
}

func (j job) seed(index int) (Seed, error) {
	var seed Seed
	if j.mode == Serial {
		binary.LittleEndian.PutUint64(seed[:], uint64(index)+1)
		return seed, nil
	}
	_, err := io.ReadFull(j.entropy, seed[:])
	return seed, err
}

// writeSequence writes length bytes of r to path and returns the first
// bytes written.
func writeSequence(path string, r io.Reader, length int64) (head []byte, err error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	w := bufio.NewWriter(f)
	head = make([]byte, min(length, headBytes))
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, err
	}
	if _, err := w.Write(head); err != nil {
		return nil, err
	}
	if _, err := io.CopyN(w, r, length-int64(len(head))); err != nil {
		return nil, err
	}
	return head, w.Flush()
}
