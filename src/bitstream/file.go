package bitstream

import (
	"bufio"
	"fmt"
	"os"
)

// FileSource reads bits straight from an existing file.
type FileSource struct {
	words
	path string
	f    *os.File
}

// A compile time check to ensure that FileSource fully implements Source.
var _ Source = (*FileSource)(nil)

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Path() string { return s.path }

func (s *FileSource) Start() error {
	if s.f != nil {
		return ErrAlreadyStarted
	}
	return s.open()
}

func (s *FileSource) open() error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	s.f = f

	if err := s.prime(bufio.NewReader(f)); err != nil {
		_ = s.Stop()
		return err
	}
	return nil
}

// Reset closes and reopens the file.
func (s *FileSource) Reset() error {
	if s.f == nil {
		return ErrNotStarted
	}
	if err := s.Stop(); err != nil {
		return err
	}
	return s.open()
}

func (s *FileSource) Stop() error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	s.release()
	return err
}
