package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"
	"unsafe"

	"github.com/cunev/readmemlib"
	"github.com/cunev/readmemlib/internal/memscan"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	code := Execute(args, strings.NewReader(""), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestParseAddress(t *testing.T) {
	v, err := ParseAddress("0x7ffd1000")
	require.NoError(t, err)
	require.Equal(t, uint64(0x7ffd1000), v)

	v, err = ParseAddress("4096")
	require.NoError(t, err)
	require.Equal(t, uint64(4096), v)

	for _, s := range []string{"", "0xZZ", "-1"} {
		_, err := ParseAddress(s)
		require.ErrorIs(t, err, memscan.ErrInvalidArgument, "input %q", s)
	}
}

func TestExecuteRequiresTarget(t *testing.T) {
	code, _, stderr := run(t, "read", "--addr", "0x1000")
	require.Equal(t, 2, code)
	require.Contains(t, stderr, "--pid or --name")
}

func TestExecuteMalformedSignature(t *testing.T) {
	code, _, stderr := run(t, "scan", "--pid", strconv.Itoa(os.Getpid()), "--start", "0x1000", "--sig", "DE GZ")
	require.Equal(t, 2, code)
	require.Contains(t, stderr, "GZ")
}

func TestExecuteUnknownNamedSignature(t *testing.T) {
	code, _, _ := run(t, "scan", "--pid", strconv.Itoa(os.Getpid()), "--all", "--sig", "@nothing")
	require.Equal(t, 2, code)
}

func TestExecuteReadSelf(t *testing.T) {
	v := new(int32)
	*v = 424242
	addr := uint64(uintptr(unsafe.Pointer(v)))

	code, stdout, stderr := run(t, "read", "--no-attach", "--pid", strconv.Itoa(os.Getpid()),
		"--addr", "0x"+strconv.FormatUint(addr, 16))
	require.Equal(t, 0, code, stderr)
	require.Contains(t, stdout, "\t424242\n")
	runtime.KeepAlive(v)
}

func TestExecuteWriteSelf(t *testing.T) {
	v := new(int32)
	addr := uint64(uintptr(unsafe.Pointer(v)))

	code, _, stderr := run(t, "write", "--no-attach", "--pid", strconv.Itoa(os.Getpid()),
		"--addr", strconv.FormatUint(addr, 10), "--value", "-77")
	require.Equal(t, 0, code, stderr)
	require.Equal(t, int32(-77), *v)
	runtime.KeepAlive(v)
}

func TestExecuteScanSelf(t *testing.T) {
	buf := make([]byte, 512)
	copy(buf[300:], []byte{0xDE, 0xAD, 0xBE, 0xEF})
	start := uint64(uintptr(unsafe.Pointer(&buf[0])))

	code, stdout, stderr := run(t, "scan", "--no-attach", "--chunk", "64", "--pid", strconv.Itoa(os.Getpid()),
		"--start", "0x"+strconv.FormatUint(start, 16), "--sig", "DE AD ?? EF")
	require.Equal(t, 0, code, stderr)
	require.Equal(t, "0x"+strconv.FormatUint(start+300, 16)+"\n", stdout)
	runtime.KeepAlive(buf)
}

func TestExecuteReadCountBounded(t *testing.T) {
	code, _, stderr := run(t, "read", "--pid", strconv.Itoa(os.Getpid()), "--addr", "0x1000", "--count", "1000000000000")
	require.Equal(t, 2, code)
	require.Contains(t, stderr, "count")
}

func TestExecuteScanLimit(t *testing.T) {
	buf := make([]byte, 512)
	copy(buf[300:], []byte{0xDE, 0xAD, 0xBE, 0xEF})
	start := "0x" + strconv.FormatUint(uint64(uintptr(unsafe.Pointer(&buf[0]))), 16)

	code, stdout, stderr := run(t, "scan", "--no-attach", "--chunk", "64", "--pid", strconv.Itoa(os.Getpid()),
		"--start", start, "--sig", "DE AD ?? EF", "--limit", "303")
	require.Equal(t, 0, code, stderr)
	require.Equal(t, "not found\n", stdout)
	runtime.KeepAlive(buf)
}

func TestExecuteMaps(t *testing.T) {
	code, stdout, stderr := run(t, "maps", "--pid", strconv.Itoa(os.Getpid()))
	require.Equal(t, 0, code, stderr)
	require.NotEmpty(t, strings.TrimSpace(stdout))
}

type fakeReader struct {
	calls int
}

func (f *fakeReader) ReadInt32s(ctx context.Context, pid int, addr uint64, count int) ([]int32, error) {
	f.calls++
	if f.calls == 1 {
		return nil, errors.New("target stopped responding")
	}
	return make([]int32, count), nil
}

func TestRunWorker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan readmemlib.Update)
	cfg := WorkerConfig{Pid: 1, Addr: 0x1000, Count: 6, Interval: time.Millisecond}
	done := make(chan struct{})
	go func() {
		RunWorker(ctx, cfg, &fakeReader{}, out)
		close(done)
	}()

	u := <-out
	require.False(t, u.Online)
	require.Contains(t, u.Error, "stopped responding")

	u = <-out
	require.True(t, u.Online)
	require.Len(t, u.Values, 6)
	require.Equal(t, uint64(0x1000), u.Addr)

	cancel()
	<-done
}
