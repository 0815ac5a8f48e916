package memscan

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/cunev/readmemlib/internal/sig"
	"github.com/cunev/readmemlib/internal/util"
)

const DefaultChunkSize = 64 << 10

// ScanOptions tune ScanReader.
type ScanOptions struct {
	// ChunkSize is the number of bytes read per round. It must exceed the
	// signature length.
	ChunkSize int

	// Limit bounds the scanned range to [start, start+Limit). Zero scans
	// until the readable range ends.
	Limit uint64

	// Alive is consulted when the stream ends early, so that a vanished
	// target is reported instead of NotFound.
	Alive func() error
}

// ScanReader looks for the first match of pat at or after start. Each round
// fills one chunk; when it holds no match the cursor advances by
// chunk-len(pat)+1 so a match straddling two chunks is still seen. A short or
// empty read ends the scan; found is false when nothing matched.
func ScanReader(ctx context.Context, r io.ReaderAt, start uint64, pat sig.Pattern, opts ScanOptions) (addr uint64, found bool, err error) {
	plen := pat.Len()
	if plen == 0 {
		return 0, false, fmt.Errorf("%w: empty signature", ErrInvalidArgument)
	}
	if opts.ChunkSize <= plen {
		return 0, false, fmt.Errorf("%w: chunk size %d must exceed signature length %d", ErrInvalidArgument, opts.ChunkSize, plen)
	}
	if start > math.MaxInt64 {
		return 0, false, fmt.Errorf("%w: address 0x%x beyond file offset range", ErrInvalidArgument, start)
	}

	buf := make([]byte, opts.ChunkSize)
	advance := uint64(opts.ChunkSize - plen + 1)

	var scanned uint64
	for {
		if err := ctx.Err(); err != nil {
			return 0, false, err
		}

		want := len(buf)
		if opts.Limit > 0 {
			if scanned >= opts.Limit {
				return 0, false, nil
			}
			want = int(min(uint64(want), opts.Limit-scanned))
		}

		cursor := start + scanned
		if cursor > math.MaxInt64 {
			return 0, false, nil
		}

		n, rerr := util.ReadInto(r, buf[:want], cursor)
		if rerr != nil && !endOfRegion(rerr) {
			return 0, false, fmt.Errorf("%w: read 0x%x: %v", ErrShortIO, cursor, rerr)
		}

		if i := pat.Find(buf[:n]); i >= 0 {
			return cursor + uint64(i), true, nil
		}

		if n < len(buf) {
			if n < want && opts.Alive != nil {
				if err := opts.Alive(); err != nil {
					return 0, false, err
				}
			}
			return 0, false, nil
		}

		scanned += advance
	}
}

// Scan parses signature and looks for its first match at or after start in
// the memory of pid. The signature is validated before the target is touched.
func (c *Channel) Scan(ctx context.Context, pid int, start uint64, signature string) (uint64, bool, error) {
	pat, err := sig.ParseSignature(signature)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if err := checkTarget(pid, start); err != nil {
		return 0, false, err
	}

	opts := ScanOptions{
		ChunkSize: c.chunkSize,
		Limit:     c.scanLimit,
		Alive:     func() error { return alive(pid) },
	}
	if opts.ChunkSize <= pat.Len() {
		return 0, false, fmt.Errorf("%w: chunk size %d must exceed signature length %d", ErrInvalidArgument, opts.ChunkSize, pat.Len())
	}

	var (
		addr  uint64
		found bool
	)
	err = c.session(ctx, pid, os.O_RDONLY, func(mem *os.File) error {
		var serr error
		addr, found, serr = ScanReader(ctx, mem, start, pat, opts)
		return serr
	})
	if err != nil {
		return 0, false, err
	}

	c.log.Debugln("scan", pid, "from", fmt.Sprintf("0x%x", start), "found:", found)
	return addr, found, nil
}

// ScanRegions looks for the first match of signature across every readable
// mapping of pid, in address order, within one session.
func (c *Channel) ScanRegions(ctx context.Context, pid int, signature string) (uint64, bool, error) {
	pat, err := sig.ParseSignature(signature)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if err := checkTarget(pid, 0); err != nil {
		return 0, false, err
	}
	if c.chunkSize <= pat.Len() {
		return 0, false, fmt.Errorf("%w: chunk size %d must exceed signature length %d", ErrInvalidArgument, c.chunkSize, pat.Len())
	}

	var (
		addr  uint64
		found bool
	)
	err = c.session(ctx, pid, os.O_RDONLY, func(mem *os.File) error {
		regions, err := ReadMaps(pid)
		if err != nil {
			return fmt.Errorf("%w: maps: %v", ErrTargetUnavailable, err)
		}

		skipped := 0
		for _, r := range regions {
			if !r.Readable() || r.Start > math.MaxInt64 {
				continue
			}

			opts := ScanOptions{ChunkSize: c.chunkSize, Limit: r.Size()}
			a, ok, err := ScanReader(ctx, mem, r.Start, pat, opts)
			if err != nil {
				if ctx.Err() != nil {
					return err
				}
				// Mappings such as [vvar] refuse reads; move on.
				skipped++
				continue
			}
			if ok {
				addr, found = a, true
				return nil
			}
		}

		c.log.Debugln("scan regions", pid, "skipped", skipped, "unreadable mappings")
		return alive(pid)
	})
	if err != nil {
		return 0, false, err
	}

	c.log.Infoln("scan regions", pid, "found:", found)
	return addr, found, nil
}
