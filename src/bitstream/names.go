package bitstream

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

// NameGenerator picks names for temporary capture files. Names must be
// unlikely to collide between concurrently running sources.
type NameGenerator interface {
	Name() (string, error)
}

// DefaultNames draws names from crypto/rand.
var DefaultNames NameGenerator = NewRandomNames(nil, "randtest-")

// RandomNames builds names from a UUIDv4 read from r. It is safe for
// concurrent use.
type RandomNames struct {
	r      io.Reader
	prefix string
}

// NewRandomNames returns a generator reading from r, or crypto/rand when r is
// nil. Passing a deterministic reader gives deterministic names.
func NewRandomNames(r io.Reader, prefix string) *RandomNames {
	if r == nil {
		r = rand.Reader
	}
	return &RandomNames{r: NewLockedReader(r), prefix: prefix}
}

func (g *RandomNames) Name() (string, error) {
	id, err := NewUUIDv4(g.r)
	if err != nil {
		return "", err
	}
	return g.prefix + id + ".bin", nil
}

// NewUUIDv4 generates an RFC4122 UUID v4 from the bytes of r.
func NewUUIDv4(r io.Reader) (string, error) {
	var b [16]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return "", err
	}

	// Set version (4) and variant (10xx)
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80

	hex32 := make([]byte, 32)
	hex.Encode(hex32, b[:])
	return fmt.Sprintf("%s-%s-%s-%s-%s",
		hex32[0:8], hex32[8:12], hex32[12:16], hex32[16:20], hex32[20:32],
	), nil
}
