package bitstream

import (
	"bytes"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// ProcessSource runs an external command once, captures its standard output
// in a temporary file and reads bits from that file. Reset rewinds the file;
// the command is never run again.
type ProcessSource struct {
	capture
	name string
	args []string
}

var _ Source = (*ProcessSource)(nil)

func NewProcessSource(opts Options, name string, args ...string) *ProcessSource {
	return &ProcessSource{
		capture: capture{opts: opts},
		name:    name,
		args:    args,
	}
}

func (s *ProcessSource) Start() error {
	return s.start(func(w io.Writer) error {
		var stderr bytes.Buffer
		cmd := exec.Command(s.name, s.args...)
		cmd.Stdout = w
		cmd.Stderr = &stderr

		s.opts.logger().Debugw("running generator command", "command", s.name, "args", s.args)
		if err := cmd.Run(); err != nil {
			if msg := strings.TrimSpace(stderr.String()); msg != "" {
				return fmt.Errorf("run %s: %w: %s", s.name, err, msg)
			}
			return fmt.Errorf("run %s: %w", s.name, err)
		}
		return nil
	})
}

func (s *ProcessSource) Reset() error { return s.reset() }

func (s *ProcessSource) Stop() error { return s.stop() }
