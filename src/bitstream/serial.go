package bitstream

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// sampleBytes is how much device output is checked before capturing.
const sampleBytes = 256

// SerialSource captures a fixed number of bytes from a hardware RNG attached
// to a serial port, then reads bits from the captured copy. The port is only
// held open while capturing, so Reset replays the same bytes.
type SerialSource struct {
	capture
	cfg  *serial.Config
	size int64
}

var _ Source = (*SerialSource)(nil)

func NewSerialSource(opts Options, cfg *serial.Config, size int64) *SerialSource {
	return &SerialSource{
		capture: capture{opts: opts},
		cfg:     cfg,
		size:    size,
	}
}

// SerialConfig validates the port settings of a serial RNG device.
func SerialConfig(name string, baud int, readTimeout time.Duration) (*serial.Config, error) {
	if name == "" {
		return nil, errors.New("serial device name is required")
	}
	if baud <= 0 {
		return nil, fmt.Errorf("invalid serial baud rate: %d", baud)
	}
	if readTimeout < 0 {
		return nil, fmt.Errorf("invalid serial read timeout: %s", readTimeout)
	}

	return &serial.Config{
		Name:        name,
		Baud:        baud,
		Size:        8,
		ReadTimeout: readTimeout,
	}, nil
}

func (s *SerialSource) Start() error {
	if s.size <= 0 {
		return fmt.Errorf("%w: capture size must be positive, got %d", ErrSourceUnavailable, s.size)
	}

	return s.start(func(w io.Writer) error {
		port, err := serial.OpenPort(s.cfg)
		if err != nil {
			return fmt.Errorf("open %s: %w", s.cfg.Name, err)
		}
		defer port.Close()

		sample := make([]byte, sampleBytes)
		if _, err := io.ReadFull(port, sample); err != nil {
			return fmt.Errorf("serial RNG read failed: %w", err)
		}
		if err := CheckSample(sample); err != nil {
			return err
		}

		s.opts.logger().Infow("capturing serial RNG output", "device", s.cfg.Name, "bytes", s.size)
		if _, err := io.CopyN(w, port, s.size); err != nil {
			return fmt.Errorf("capture %s: %w", s.cfg.Name, err)
		}
		return nil
	})
}

func (s *SerialSource) Reset() error { return s.reset() }

func (s *SerialSource) Stop() error { return s.stop() }
