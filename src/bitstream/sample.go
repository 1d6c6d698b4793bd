package bitstream

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// CheckSample performs a lightweight sanity check on raw generator output.
// It cannot prove randomness, but detects disconnection, stuck output and
// similar gross failures.
func CheckSample(buf []byte) error {
	if len(buf) < 8 {
		return fmt.Errorf("sample too short: %d bytes", len(buf))
	}

	// Trivial stuck check: all identical
	allSame := true
	for i := 1; i < len(buf); i++ {
		if buf[i] != buf[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return errors.New("output appears stuck (all sampled bytes identical)")
	}

	// Excessive 32-bit repeats
	var prev uint32
	repeats := 0
	words := 0
	for i := 0; i+4 <= len(buf); i += 4 {
		w := binary.BigEndian.Uint32(buf[i : i+4])
		if words > 0 && w == prev {
			repeats++
		}
		prev = w
		words++
	}
	if words > 1 && repeats > (words-1)*3/4 {
		return errors.New("output appears stuck (32-bit words repeating excessively)")
	}

	// Too few distinct byte values; only meaningful once the sample is big
	// enough to expect variety.
	if len(buf) >= 64 {
		distinct := make(map[byte]struct{}, 256)
		for _, b := range buf {
			distinct[b] = struct{}{}
		}
		if len(distinct) < 8 {
			return fmt.Errorf("sample has too few distinct byte values (%d); suspicious", len(distinct))
		}
	}

	return nil
}
