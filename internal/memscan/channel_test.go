//go:build linux

package memscan

import (
	"context"
	"math"
	"os"
	"runtime"
	"strings"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

const missingPid = math.MaxInt32 - 1

func addrOf[T any](v *T) uint64 {
	return uint64(uintptr(unsafe.Pointer(v)))
}

func TestReadMaps(t *testing.T) {
	regions, err := ReadMaps(os.Getpid())
	require.NoError(t, err)
	require.NotEmpty(t, regions)

	hasReadable := false
	for _, region := range regions {
		require.LessOrEqual(t, region.Start, region.End)
		if region.Readable() {
			hasReadable = true
		}
	}

	require.True(t, hasReadable)
}

func TestSelfReadWriteInt32(t *testing.T) {
	ch := NewChannel(WithoutAttach())
	ctx := context.Background()

	v := new(int32)
	*v = -123456
	addr := addrOf(v)

	got, err := ch.ReadInt32(ctx, os.Getpid(), addr)
	require.NoError(t, err)
	require.Equal(t, int32(-123456), got)

	for _, want := range []int32{0, 1, -1, math.MaxInt32, math.MinInt32} {
		require.NoError(t, ch.WriteInt32(ctx, os.Getpid(), addr, want))
		require.Equal(t, want, *v)

		got, err := ch.ReadInt32(ctx, os.Getpid(), addr)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	runtime.KeepAlive(v)
}

func TestSelfReadUnaligned(t *testing.T) {
	ch := NewChannel(WithoutAttach())

	buf := []byte{0x00, 0x78, 0x56, 0x34, 0x12, 0x00}
	got, err := ch.ReadInt32(context.Background(), os.Getpid(), addrOf(&buf[1]))
	require.NoError(t, err)
	require.Equal(t, int32(0x12345678), got)
	runtime.KeepAlive(buf)
}

func TestSelfReadInt32s(t *testing.T) {
	ch := NewChannel(WithoutAttach())

	vals := []int32{3, -4, 5}
	got, err := ch.ReadInt32s(context.Background(), os.Getpid(), addrOf(&vals[0]), len(vals))
	require.NoError(t, err)
	require.Equal(t, vals, got)
	runtime.KeepAlive(vals)
}

func TestSelfScan(t *testing.T) {
	ch := NewChannel(WithoutAttach(), WithChunkSize(64))

	buf := make([]byte, 4096)
	copy(buf[1000:], []byte{0xDE, 0xAD, 0xBE, 0xEF})
	start := addrOf(&buf[0])

	addr, found, err := ch.Scan(context.Background(), os.Getpid(), start, "DE AD ?? EF")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, start+1000, addr)
	runtime.KeepAlive(buf)
}

func TestSelfScanLimit(t *testing.T) {
	buf := make([]byte, 4096)
	copy(buf[1000:], []byte{0xDE, 0xAD, 0xBE, 0xEF})
	start := addrOf(&buf[0])

	short := NewChannel(WithoutAttach(), WithChunkSize(64), WithScanLimit(1003))
	_, found, err := short.Scan(context.Background(), os.Getpid(), start, "DE AD ?? EF")
	require.NoError(t, err)
	require.False(t, found)

	exact := NewChannel(WithoutAttach(), WithChunkSize(64), WithScanLimit(1004))
	addr, found, err := exact.Scan(context.Background(), os.Getpid(), start, "DE AD ?? EF")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, start+1000, addr)
	runtime.KeepAlive(buf)
}

func TestSelfScanRegions(t *testing.T) {
	ch := NewChannel(WithoutAttach())

	// Present in the test binary's own ELF header mapping.
	addr, found, err := ch.ScanRegions(context.Background(), os.Getpid(), "7F 45 4C 46")
	require.NoError(t, err)
	require.True(t, found)

	b, err := ch.ReadBytes(context.Background(), os.Getpid(), addr, 4)
	require.NoError(t, err)
	require.Equal(t, []byte{0x7F, 'E', 'L', 'F'}, b)
}

func TestReadUnmappedIsShortIO(t *testing.T) {
	ch := NewChannel(WithoutAttach())

	_, err := ch.ReadInt32(context.Background(), os.Getpid(), 0x10)
	require.ErrorIs(t, err, ErrShortIO)
}

func TestMissingTarget(t *testing.T) {
	ctx := context.Background()

	for _, ch := range []*Channel{NewChannel(), NewChannel(WithoutAttach())} {
		_, err := ch.ReadInt32(ctx, missingPid, 0x1000)
		require.ErrorIs(t, err, ErrTargetUnavailable)

		err = ch.WriteInt32(ctx, missingPid, 0x1000, 1)
		require.ErrorIs(t, err, ErrTargetUnavailable)

		_, found, err := ch.Scan(ctx, missingPid, 0x1000, "DE AD")
		require.ErrorIs(t, err, ErrTargetUnavailable)
		require.False(t, found)
	}
}

func TestInvalidArguments(t *testing.T) {
	ch := NewChannel()
	ctx := context.Background()

	_, err := ch.ReadInt32(ctx, 0, 0x1000)
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = ch.ReadInt32(ctx, os.Getpid(), math.MaxUint64)
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = ch.ReadBytes(ctx, os.Getpid(), 0x1000, 0)
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = ch.ReadBytes(ctx, os.Getpid(), 0x1000, MaxTransfer+1)
	require.ErrorIs(t, err, ErrInvalidArgument)

	err = ch.WriteBytes(ctx, os.Getpid(), 0x1000, make([]byte, MaxTransfer+1))
	require.ErrorIs(t, err, ErrInvalidArgument)

	for _, count := range []int{0, -1, MaxTransfer, math.MaxInt} {
		_, err = ch.ReadInt32s(ctx, os.Getpid(), 0x1000, count)
		require.ErrorIs(t, err, ErrInvalidArgument, "count %d", count)
	}
}

func TestMalformedSignatureBeforeIO(t *testing.T) {
	ch := NewChannel()

	// The pid does not exist: a parse error proves no I/O was attempted.
	for _, s := range []string{"GZ", "12345", "", "DE  AD"} {
		_, _, err := ch.Scan(context.Background(), missingPid, 0x1000, s)
		require.ErrorIs(t, err, ErrInvalidArgument, "signature %q", s)
		require.NotErrorIs(t, err, ErrTargetUnavailable)
	}
}

func TestScanChunkTooSmall(t *testing.T) {
	ch := NewChannel(WithChunkSize(2))

	_, _, err := ch.Scan(context.Background(), missingPid, 0x1000, "DE AD")
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestFindPidBySubstring(t *testing.T) {
	comm, err := os.ReadFile("/proc/self/comm")
	require.NoError(t, err)
	name := strings.TrimSpace(string(comm))

	pid, err := FindPidBySubstring(name)
	require.NoError(t, err)
	require.Positive(t, pid)

	_, err = FindPidBySubstring("no-such-process-name-\x01")
	require.ErrorIs(t, err, ErrTargetUnavailable)
}
