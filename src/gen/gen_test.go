package gen_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/lost-woods/randtest/src/gen"
)

func TestRun_WritesTree(t *testing.T) {
	out := t.TempDir()
	cfg := gen.Config{
		Out:     out,
		Count:   3,
		Length:  1000,
		Workers: 4,
	}
	require.NoError(t, gen.Run(context.Background(), cfg, zaptest.NewLogger(t).Sugar()))

	for _, mode := range []gen.Mode{gen.Serial, gen.Random} {
		for _, name := range gen.AlgorithmNames() {
			for i := 0; i < cfg.Count; i++ {
				info, err := os.Stat(gen.Path(out, mode, name, i))
				require.NoError(t, err)
				require.Equal(t, int64(1000), info.Size())
			}
		}
	}
}

func TestRun_SerialModeReproducible(t *testing.T) {
	log := zaptest.NewLogger(t).Sugar()
	algos := []string{"chacha8", "chacha20", "aes256ctr", "lcg", "randu"}

	a, b := t.TempDir(), t.TempDir()
	for _, out := range []string{a, b} {
		require.NoError(t, gen.Run(context.Background(), gen.Config{
			Out:        out,
			Count:      2,
			Length:     4096,
			Algorithms: algos,
			Modes:      []gen.Mode{gen.Serial},
		}, log))
	}

	for _, name := range algos {
		for i := 0; i < 2; i++ {
			x, err := os.ReadFile(gen.Path(a, gen.Serial, name, i))
			require.NoError(t, err)
			y, err := os.ReadFile(gen.Path(b, gen.Serial, name, i))
			require.NoError(t, err)
			require.Equal(t, x, y, "%s/%d", name, i)
		}
	}

	_, err := os.Stat(filepath.Join(a, string(gen.Random)))
	require.True(t, os.IsNotExist(err))
}

func TestRun_RandomModeUsesEntropy(t *testing.T) {
	out := t.TempDir()
	require.NoError(t, gen.Run(context.Background(), gen.Config{
		Out:        out,
		Count:      2,
		Length:     256,
		Algorithms: []string{"chacha20"},
		Entropy:    bytes.NewReader(bytes.Repeat([]byte{0x42}, 64)),
	}, zaptest.NewLogger(t).Sugar()))

	serial, err := os.ReadFile(gen.Path(out, gen.Serial, "chacha20", 0))
	require.NoError(t, err)
	random, err := os.ReadFile(gen.Path(out, gen.Random, "chacha20", 0))
	require.NoError(t, err)
	require.NotEqual(t, serial, random)
}

func TestRun_EntropyFailureStopsRun(t *testing.T) {
	err := gen.Run(context.Background(), gen.Config{
		Out:        t.TempDir(),
		Count:      2,
		Length:     64,
		Algorithms: []string{"chacha20"},
		Modes:      []gen.Mode{gen.Random},
		Entropy:    bytes.NewReader(make([]byte, 40)),
	}, zaptest.NewLogger(t).Sugar())
	require.Error(t, err)
}

func TestRun_InvalidConfig(t *testing.T) {
	log := zaptest.NewLogger(t).Sugar()
	ctx := context.Background()
	out := t.TempDir()

	require.Error(t, gen.Run(ctx, gen.Config{Out: out, Count: 0, Length: 10}, log))
	require.Error(t, gen.Run(ctx, gen.Config{Out: out, Count: 1, Length: 0}, log))
	require.Error(t, gen.Run(ctx, gen.Config{Count: 1, Length: 10}, log))
	require.Error(t, gen.Run(ctx, gen.Config{Out: out, Count: 1, Length: 10, Algorithms: []string{"nope"}}, log))
	require.Error(t, gen.Run(ctx, gen.Config{Out: out, Count: 1, Length: 10, Modes: []gen.Mode{"sequential"}}, log))
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := gen.Run(ctx, gen.Config{Out: t.TempDir(), Count: 1, Length: 10}, zaptest.NewLogger(t).Sugar())
	require.ErrorIs(t, err, context.Canceled)
}

func TestParseMode(t *testing.T) {
	m, err := gen.ParseMode("serial")
	require.NoError(t, err)
	require.Equal(t, gen.Serial, m)
	_, err = gen.ParseMode("SERIAL")
	require.Error(t, err)
}
