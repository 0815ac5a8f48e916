package sig

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/s-hammon/p"
)

const (
	WildcardToken = "??"
	WildcardByte  = 0x00
)

var ErrMalformed = errors.New("malformed signature")

// Pattern is a byte signature. Mask[i] marks Bytes[i] as a wildcard, whose
// stored value is never compared.
type Pattern struct {
	Bytes []byte
	Mask  []bool
}

// ParseSignature parses space separated tokens, each either "??" or exactly
// two hex digits, e.g. "48 8B ?? ?? 89 C0".
func ParseSignature(s string) (Pattern, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Pattern{}, fmt.Errorf("%w: empty signature", ErrMalformed)
	}

	var (
		b []byte
		m []bool
	)
	for i, tok := range strings.Split(s, " ") {
		if tok == WildcardToken {
			b = append(b, WildcardByte)
			m = append(m, true)
			continue
		}

		if len(tok) != 2 {
			return Pattern{}, fmt.Errorf("%w: bad token %q at %d", ErrMalformed, tok, i)
		}
		v, err := strconv.ParseUint(tok, 16, 8)
		if err != nil {
			return Pattern{}, fmt.Errorf("%w: bad hex %q at %d", ErrMalformed, tok, i)
		}
		b = append(b, byte(v))
		m = append(m, false)
	}

	return Pattern{b, m}, nil
}

func (p Pattern) Len() int {
	return len(p.Bytes)
}

// MatchAt reports whether every non-wildcard byte of p equals buf at off.
func (p *Pattern) MatchAt(buf []byte, off int) bool {
	if off < 0 || off+len(p.Bytes) > len(buf) {
		return false
	}

	for i := range p.Bytes {
		if p.Mask[i] {
			continue
		}
		if buf[off+i] != p.Bytes[i] {
			return false
		}
	}

	return true
}

func (p Pattern) Find(buf []byte) int {
	for i := 0; i+len(p.Bytes) <= len(buf); i++ {
		if p.MatchAt(buf, i) {
			return i
		}
	}

	return -1
}

func (pa Pattern) String() string {
	var parts []string
	for i, b := range pa.Bytes {
		if pa.Mask[i] {
			parts = append(parts, WildcardToken)
		} else {
			parts = append(parts, p.Format("%02X", b))
		}
	}

	return strings.Join(parts, " ")
}
