// Package gen writes raw test sequences from a fixed set of generators, from
// system entropy and cipher-based generators down to historically weak
// congruential ones.
package gen

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	mrand "math/rand/v2"
	"sort"
	"strings"

	"golang.org/x/crypto/chacha20"
)

// Seed is the 256-bit seed every generator is built from. Generators with a
// smaller state use a prefix of it.
type Seed [32]byte

type Algorithm struct {
	Name string

	// Seeded is false for generators that ignore the seed.
	Seeded bool

	New func(seed Seed) (io.Reader, error)
}

var algorithms = []Algorithm{
	{Name: "urandom", New: func(Seed) (io.Reader, error) { return rand.Reader, nil }},
	{Name: "chacha8", Seeded: true, New: newChaCha8},
	{Name: "chacha20", Seeded: true, New: newChaCha20},
	{Name: "aes128ctr", Seeded: true, New: aesCTR(16)},
	{Name: "aes192ctr", Seeded: true, New: aesCTR(24)},
	{Name: "aes256ctr", Seeded: true, New: aesCTR(32)},
	{Name: "lcg", Seeded: true, New: newLCG},
	{Name: "randu", Seeded: true, New: newRANDU},
}

// Algorithms lists every known generator in a stable order.
func Algorithms() []Algorithm {
	out := make([]Algorithm, len(algorithms))
	copy(out, algorithms)
	return out
}

func AlgorithmNames() []string {
	names := make([]string, len(algorithms))
	for i, a := range algorithms {
		names[i] = a.Name
	}
	return names
}

// Lookup resolves generator names; no names means all of them.
func Lookup(names []string) ([]Algorithm, error) {
	if len(names) == 0 {
		return Algorithms(), nil
	}

	byName := make(map[string]Algorithm, len(algorithms))
	for _, a := range algorithms {
		byName[a.Name] = a
	}

	seen := make(map[string]bool, len(names))
	out := make([]Algorithm, 0, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		a, ok := byName[name]
		if !ok {
			known := AlgorithmNames()
			sort.Strings(known)
			return nil, fmt.Errorf("unknown algorithm %q (want one of %s)", name, strings.Join(known, ", "))
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, a)
	}
	return out, nil
}

func newChaCha8(seed Seed) (io.Reader, error) {
	return &wordReader{next: mrand.NewChaCha8(seed).Uint64, size: 8}, nil
}

func newChaCha20(seed Seed) (io.Reader, error) {
	nonce := make([]byte, chacha20.NonceSize)
	s, err := chacha20.NewUnauthenticatedCipher(seed[:], nonce)
	if err != nil {
		return nil, err
	}
	return &keystream{s: s}, nil
}

func aesCTR(keyLen int) func(Seed) (io.Reader, error) {
	return func(seed Seed) (io.Reader, error) {
		block, err := aes.NewCipher(seed[:keyLen])
		if err != nil {
			return nil, err
		}
		iv := make([]byte, aes.BlockSize)
		return &keystream{s: cipher.NewCTR(block, iv)}, nil
	}
}

// newLCG is the drand48 linear congruential generator, emitting the high 32
// bits of each 48-bit state.
func newLCG(seed Seed) (io.Reader, error) {
	const (
		a    = 0x5DEECE66D
		c    = 0xB
		mask = 1<<48 - 1
	)
	x := uint64(binary.LittleEndian.Uint32(seed[:]))<<16 | 0x330E
	return &wordReader{size: 4, next: func() uint64 {
		x = (a*x + c) & mask
		return x >> 16
	}}, nil
}

// newRANDU is IBM's multiplicative generator x' = 65539 x mod 2^31. Every
// output word has its top bit clear.
func newRANDU(seed Seed) (io.Reader, error) {
	x := uint64(binary.LittleEndian.Uint32(seed[:])&(1<<31-1)) | 1
	return &wordReader{size: 4, next: func() uint64 {
		x = (65539 * x) & (1<<31 - 1)
		return x
	}}, nil
}

// keystream reads the raw keystream of a stream cipher.
type keystream struct {
	s cipher.Stream
}

func (k *keystream) Read(p []byte) (int, error) {
	clear(p)
	k.s.XORKeyStream(p, p)
	return len(p), nil
}

// wordReader serializes the low size bytes of each generated word in
// little-endian order.
type wordReader struct {
	next func() uint64
	size int
	buf  [8]byte
	off  int
	left int
}

func (r *wordReader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if r.left == 0 {
			binary.LittleEndian.PutUint64(r.buf[:], r.next())
			r.off = 0
			r.left = r.size
		}
		copied := copy(p[n:], r.buf[r.off:r.off+r.left])
		n += copied
		r.off += copied
		r.left -= copied
	}
	return n, nil
}
