// Package bitstream turns byte sources into sequential, resettable streams of
// single bits. The underlying bytes are read as 64-bit words in native byte
// order and each word is drained least-significant bit first.
package bitstream

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

type Bit uint8

const (
	Zero Bit = 0
	One  Bit = 1
)

var (
	// ErrSourceUnavailable is returned by Start when the byte channel cannot
	// be opened or the producing command cannot be run.
	ErrSourceUnavailable = errors.New("bitstream: source unavailable")

	// ErrExhausted is returned once a word read runs past the end of the
	// channel. A trailing partial word counts as the end.
	ErrExhausted = errors.New("bitstream: stream exhausted")

	ErrNotStarted     = errors.New("bitstream: source not started")
	ErrAlreadyStarted = errors.New("bitstream: source already started")
)

// Source is a bit stream with an explicit lifecycle. Start opens the channel
// and buffers the first word, Reset returns to word 0 bit 0, and Stop releases
// everything Start acquired. Stop is safe to call after any error.
type Source interface {
	Start() error
	Next() (Bit, error)
	Reset() error
	Stop() error
}

// words holds the buffering state shared by every Source implementation.
type words struct {
	r         io.Reader
	current   uint64
	wordIndex uint64
	bitIndex  uint
	drained   bool
	buf       [8]byte
}

func (w *words) prime(r io.Reader) error {
	w.r = r
	w.wordIndex = 0
	w.bitIndex = 0
	w.drained = false
	return w.load()
}

func (w *words) release() {
	w.r = nil
	w.current = 0
}

func (w *words) load() error {
	if _, err := io.ReadFull(w.r, w.buf[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrExhausted
		}
		return fmt.Errorf("bitstream: read word %d: %w", w.wordIndex, err)
	}
	w.current = binary.NativeEndian.Uint64(w.buf[:])
	return nil
}

// Next returns the least-significant bit of the buffered word. The following
// word is fetched lazily on the call after the 64th bit, so the last bit of
// the channel is returned before ErrExhausted is reported.
func (w *words) Next() (Bit, error) {
	if w.r == nil {
		return 0, ErrNotStarted
	}

	if w.drained {
		if err := w.load(); err != nil {
			return 0, err
		}
		w.wordIndex++
		w.bitIndex = 0
		w.drained = false
	}

	b := Bit(w.current & 1)
	if w.bitIndex < 63 {
		w.current >>= 1
		w.bitIndex++
	} else {
		w.drained = true
	}
	return b, nil
}

// Position reports the index of the buffered word and how many of its bits
// have been consumed.
func (w *words) Position() (word uint64, bit uint) {
	if w.drained {
		return w.wordIndex, 64
	}
	return w.wordIndex, w.bitIndex
}
