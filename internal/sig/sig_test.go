package sig

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func FuzzParseSignature(f *testing.F) {
	f.Add("90 5A ?? 99")
	f.Add("48 8B ?? ?? 89 C0")
	f.Fuzz(func(t *testing.T, a string) {
		pat, err := ParseSignature(a)
		if err != nil {
			require.ErrorIs(t, err, ErrMalformed)
			return
		}
		require.NotZero(t, pat.Len())
		require.Len(t, pat.Mask, pat.Len())
	})
}

func TestParseSignature(t *testing.T) {
	pat, err := ParseSignature("48 8b ?? ?? 89 C0")
	require.NoError(t, err)
	require.Equal(t, []byte{0x48, 0x8B, 0x00, 0x00, 0x89, 0xC0}, pat.Bytes)
	require.Equal(t, []bool{false, false, true, true, false, false}, pat.Mask)
	require.Equal(t, "48 8B ?? ?? 89 C0", pat.String())
}

func TestParseSignatureTrimsEnds(t *testing.T) {
	pat, err := ParseSignature("  DE AD \n")
	require.NoError(t, err)
	require.Equal(t, 2, pat.Len())
}

func TestParseSignatureMalformed(t *testing.T) {
	for _, s := range []string{"", "   ", "GZ", "12345", "DE  AD", "?", "DE ?", "0x", "+1", "DE,AD"} {
		_, err := ParseSignature(s)
		require.ErrorIs(t, err, ErrMalformed, "input %q", s)
	}
}

func TestMatchAtAllWildcards(t *testing.T) {
	pat, err := ParseSignature("?? ?? ??")
	require.NoError(t, err)

	buf := []byte{1, 2, 3, 4, 5, 6}
	for off := 0; off+pat.Len() <= len(buf); off++ {
		require.True(t, pat.MatchAt(buf, off), "offset %d", off)
	}
	require.False(t, pat.MatchAt(buf, len(buf)-pat.Len()+1))
}

func TestMatchAtExactEqualsBytes(t *testing.T) {
	buf := []byte{0x10, 0x20, 0x30, 0x10, 0x20, 0x31, 0x10}
	pat, err := ParseSignature("10 20 30")
	require.NoError(t, err)

	for off := 0; off+pat.Len() <= len(buf); off++ {
		want := bytes.Equal(buf[off:off+pat.Len()], pat.Bytes)
		require.Equal(t, want, pat.MatchAt(buf, off), "offset %d", off)
	}
}

func TestMatchAtBounds(t *testing.T) {
	pat, err := ParseSignature("AA")
	require.NoError(t, err)
	require.False(t, pat.MatchAt([]byte{0xAA}, -1))
	require.False(t, pat.MatchAt([]byte{0xAA}, 1))
}

func TestFind(t *testing.T) {
	buf := []byte{0x00, 0xDE, 0xAD, 0xBE, 0xEF, 0x90}
	pat, err := ParseSignature("DE AD ?? EF")
	require.NoError(t, err)
	require.Equal(t, 1, pat.Find(buf))

	pat, err = ParseSignature("EF 91")
	require.NoError(t, err)
	require.Equal(t, -1, pat.Find(buf))
}
