package memscan

import (
	"encoding/binary"
	"fmt"
)

const Int32Size = 4

// DecodeInt32 decodes a little-endian signed 32-bit integer. b must hold
// exactly four bytes.
func DecodeInt32(b []byte) (int32, error) {
	if len(b) != Int32Size {
		return 0, fmt.Errorf("%w: decode int32 from %d bytes", ErrShortIO, len(b))
	}

	return int32(binary.LittleEndian.Uint32(b)), nil
}

func EncodeInt32(v int32) []byte {
	return binary.LittleEndian.AppendUint32(nil, uint32(v))
}

// DecodeInt32s decodes consecutive little-endian int32 values. Trailing bytes
// that do not fill a whole value are ignored.
func DecodeInt32s(b []byte) []int32 {
	out := make([]int32, len(b)/Int32Size)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(b[i*Int32Size:]))
	}

	return out
}
