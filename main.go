package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"code.cloudfoundry.org/bytefmt"
	"github.com/alecthomas/kong"
	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"

	"github.com/lost-woods/randtest/src/bitstream"
	"github.com/lost-woods/randtest/src/gen"
	"github.com/lost-woods/randtest/src/measure"
	"github.com/lost-woods/randtest/src/server"
	"github.com/lost-woods/randtest/src/walk"
)

var cli struct {
	LogLevel string `env:"LOG_LEVEL" default:"info" help:"Log level (debug, info, warn, error)"`

	Serve    ServeCmd    `cmd:"serve" help:"Run the HTTP API"`
	Generate GenerateCmd `cmd:"generate" help:"Write test sequences for every generator and seed mode"`
	Evaluate EvaluateCmd `cmd:"evaluate" help:"Compare a bit source against a reference law"`
}

type ServeCmd struct {
	Port    string `env:"PORT" default:"777" help:"Listen port"`
	APIKey  string `env:"API_KEY" help:"Required X-API-KEY header value; empty disables the check"`
	DataDir string `env:"DATA_DIR" type:"path" help:"Directory served to /evaluate"`
}

func (c *ServeCmd) Run(log *zap.SugaredLogger) error {
	log.Infow("starting server", "port", c.Port, "data_dir", c.DataDir, "auth", c.APIKey != "")
	server.New(server.Config{Port: c.Port, APIKey: c.APIKey, DataDir: c.DataDir}, log).RunOrDie()
	return nil
}

type GenerateCmd struct {
	Out        string   `short:"o" default:"data" type:"path" help:"Output root"`
	Count      int      `short:"c" default:"10" help:"Sequences per generator and mode"`
	Length     string   `short:"l" default:"16M" help:"Bytes per sequence (e.g. 512K, 16M)"`
	Algorithms []string `short:"a" help:"Generators to run (default all)"`
	Modes      []string `short:"m" help:"Seed modes to run: serial, random (default both)"`
	Workers    int      `short:"w" help:"Concurrent jobs (default one per CPU)"`
}

func (c *GenerateCmd) Run(log *zap.SugaredLogger) error {
	length, err := bytefmt.ToBytes(c.Length)
	if err != nil {
		return fmt.Errorf("invalid length %q: %w", c.Length, err)
	}
	modes := make([]gen.Mode, 0, len(c.Modes))
	for _, s := range c.Modes {
		m, err := gen.ParseMode(s)
		if err != nil {
			return err
		}
		modes = append(modes, m)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	err = gen.Run(ctx, gen.Config{
		Out:        c.Out,
		Count:      c.Count,
		Length:     int64(length),
		Algorithms: c.Algorithms,
		Modes:      modes,
		Workers:    c.Workers,
	}, log)
	if err != nil {
		return err
	}
	ok("wrote %d x %s sequences under %s in %v", c.Count, bytefmt.ByteSize(length), c.Out,
		time.Since(start).Round(time.Millisecond))
	return nil
}

type EvaluateCmd struct {
	File   string `short:"f" type:"existingfile" xor:"source" help:"Read bits from a file"`
	Exec   string `xor:"source" help:"Capture the standard output of a command"`
	Serial bool   `xor:"source" help:"Capture bits from the serial TRNG"`

	Args []string `arg:"" optional:"" help:"Arguments for --exec"`

	Device      string        `env:"SERIAL_DEVICE_NAME" help:"Serial device"`
	Baud        int           `env:"SERIAL_BAUD_RATE" default:"115200" help:"Serial baud rate"`
	ReadTimeout time.Duration `env:"SERIAL_READ_TIMEOUT" default:"1s" help:"Serial read timeout"`
	Size        string        `default:"16M" help:"Bytes to capture from the serial device"`
	TempDir     string        `type:"path" help:"Directory for captured streams (default system temp)"`

	Statistic string `short:"s" default:"asin" enum:"asin,arcsine,lil" help:"Statistic: asin or lil"`
	N         int    `short:"n" default:"1000000" help:"Bits per window"`
	Reps      int    `short:"r" default:"100" help:"Windows to sample"`
	Bins      int    `short:"b" default:"12" help:"Number of partition intervals"`
	Metric    string `help:"Only report this metric (tv, hellinger, rms)"`
	Verbose   bool   `short:"v" help:"Also print the empirical and reference measures"`
}

func (c *EvaluateCmd) source(log *zap.SugaredLogger) (bitstream.Source, error) {
	opts := bitstream.Options{Dir: c.TempDir, Log: log}
	switch {
	case c.File != "":
		return bitstream.NewFileSource(c.File), nil
	case c.Exec != "":
		return bitstream.NewProcessSource(opts, c.Exec, c.Args...), nil
	case c.Serial:
		cfg, err := bitstream.SerialConfig(c.Device, c.Baud, c.ReadTimeout)
		if err != nil {
			return nil, err
		}
		size, err := bytefmt.ToBytes(c.Size)
		if err != nil {
			return nil, fmt.Errorf("invalid size %q: %w", c.Size, err)
		}
		return bitstream.NewSerialSource(opts, cfg, int64(size)), nil
	}
	return nil, errors.New("one of --file, --exec or --serial is required")
}

func (c *EvaluateCmd) Run(log *zap.SugaredLogger) error {
	stat, err := walk.ParseStatistic(c.Statistic)
	if err != nil {
		return err
	}
	var only string
	if c.Metric != "" {
		if _, err := measure.ParseMetric(c.Metric); err != nil {
			return err
		}
		only = strings.ToLower(strings.TrimSpace(c.Metric))
	}
	src, err := c.source(log)
	if err != nil {
		return err
	}

	res, err := walk.Evaluate(src, walk.Config{Statistic: stat, N: c.N, Reps: c.Reps, Bins: c.Bins}, log)
	if err != nil {
		return err
	}

	ok("%s over %d windows of %d bits", res.Statistic, res.Samples, res.N)
	if c.Verbose {
		reportMeasures(os.Stdout, res)
	}
	reportDistances(os.Stdout, res.Distances, only)
	return nil
}

func reportDistances(w io.Writer, distances map[string]float64, only string) {
	names := make([]string, 0, len(distances))
	for name := range distances {
		if only == "" || name == only {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"metric", "distance"})
	table.SetBorder(true)
	for _, name := range names {
		table.Append([]string{name, strconv.FormatFloat(distances[name], 'g', 8, 64)})
	}
	table.Render()
}

func reportMeasures(w io.Writer, res walk.Result) {
	p := res.Empirical.Partition()
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"interval", "empirical", "reference"})
	table.SetBorder(true)
	for i := 0; i < p.Len(); i++ {
		iv := p.Interval(i)
		table.Append([]string{
			fmt.Sprintf("[%g, %g)", iv.Low, iv.High),
			strconv.FormatFloat(res.Empirical.Value(i), 'f', 6, 64),
			strconv.FormatFloat(res.Ideal.Value(i), 'f', 6, 64),
		})
	}
	table.Render()
}

func newLogger(level string) (*zap.SugaredLogger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("randtest"),
		kong.Description("Statistical tests for pseudorandom bit generators."),
		kong.UsageOnError(),
	)

	log, err := newLogger(cli.LogLevel)
	if err != nil {
		fail(err)
	}
	defer func() { _ = log.Sync() }()

	if err := ctx.Run(log); err != nil {
		// kong prefixes the name of the failed command
		_, reason, found := strings.Cut(err.Error(), " ")
		if found {
			fail(reason)
		}
		fail(err)
	}
}

func ok(message any, args ...any) {
	out(os.Stdout, message, args...)
}

func fail(message any, args ...any) {
	var buf = new(bytes.Buffer)
	out(buf, message, args...)
	errmsg := buf.String()
	if !strings.HasPrefix(strings.ToLower(errmsg), "error") {
		errmsg = "Error: " + errmsg
	}
	out(os.Stderr, errmsg)
	os.Exit(1)
}

func out(dest io.Writer, message any, args ...any) {
	var s string
	var ok bool
	if s, ok = message.(string); !ok {
		_, _ = fmt.Fprintln(dest, message)
		return
	}
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	if len(args) == 0 {
		_, _ = fmt.Fprint(dest, s)
		return
	}
	_, _ = fmt.Fprintf(dest, s, args...)
}
