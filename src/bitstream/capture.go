package bitstream

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Options configures the sources that materialize their bytes into a
// temporary file before reading them.
type Options struct {
	// Dir holds the temporary files. Empty means os.TempDir().
	Dir string

	// Names picks temporary file names. Nil means DefaultNames.
	Names NameGenerator

	Log *zap.SugaredLogger
}

func (o Options) dir() string {
	if o.Dir == "" {
		return os.TempDir()
	}
	return o.Dir
}

func (o Options) names() NameGenerator {
	if o.Names == nil {
		return DefaultNames
	}
	return o.Names
}

func (o Options) logger() *zap.SugaredLogger {
	if o.Log == nil {
		return zap.NewNop().Sugar()
	}
	return o.Log
}

// capture is a seekable stream backed by a temporary file that a fill
// function writes exactly once.
type capture struct {
	words
	opts Options
	f    *os.File
}

func (c *capture) start(fill func(w io.Writer) error) error {
	if c.f != nil {
		return ErrAlreadyStarted
	}

	name, err := c.opts.names().Name()
	if err != nil {
		return fmt.Errorf("%w: temporary file name: %w", ErrSourceUnavailable, err)
	}

	path := filepath.Join(c.opts.dir(), name)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	c.f = f

	if err := fill(f); err != nil {
		return errors.Join(fmt.Errorf("%w: %w", ErrSourceUnavailable, err), c.stop())
	}

	if err := c.rewind(); err != nil {
		return errors.Join(err, c.stop())
	}
	return nil
}

func (c *capture) rewind() error {
	if _, err := c.f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("bitstream: seek %s: %w", c.f.Name(), err)
	}
	return c.prime(bufio.NewReader(c.f))
}

func (c *capture) reset() error {
	if c.f == nil {
		return ErrNotStarted
	}
	return c.rewind()
}

// stop closes and removes the temporary file. Closing always happens; a
// failed removal is logged and joined with any close error.
func (c *capture) stop() error {
	if c.f == nil {
		return nil
	}

	name := c.f.Name()
	closeErr := c.f.Close()
	c.f = nil
	c.release()

	if err := os.Remove(name); err != nil {
		c.opts.logger().Warnw("failed to remove captured stream", "path", name, "error", err)
		return errors.Join(closeErr, fmt.Errorf("bitstream: remove %s: %w", name, err))
	}
	return closeErr
}

// TempPath returns the temporary file in use, or "" when stopped.
func (c *capture) TempPath() string {
	if c.f == nil {
		return ""
	}
	return c.f.Name()
}
