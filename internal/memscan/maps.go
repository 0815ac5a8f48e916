package memscan

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/s-hammon/p"
)

// Region is one line of /proc/<pid>/maps.
type Region struct {
	Start, End uint64
	Perms      string
	Path       string
}

func (r Region) Size() uint64 {
	return r.End - r.Start
}

func (r Region) Readable() bool {
	return len(r.Perms) > 0 && r.Perms[0] == 'r'
}

func (r Region) Writable() bool {
	return len(r.Perms) > 1 && r.Perms[1] == 'w'
}

func (r Region) Contains(addr uint64) bool {
	return addr >= r.Start && addr < r.End
}

func (r Region) String() string {
	return p.Format("%012x-%012x %s %s", r.Start, r.End, r.Perms, r.Path)
}

func ReadMaps(pid int) ([]Region, error) {
	f, err := os.Open(p.Format("/proc/%d/maps", pid))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var regs []Region
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}

		addr := strings.Split(fields[0], "-")
		if len(addr) != 2 {
			continue
		}

		start, err1 := strconv.ParseUint(addr[0], 16, 64)
		end, err2 := strconv.ParseUint(addr[1], 16, 64)
		if err1 != nil || err2 != nil || end < start {
			continue
		}

		reg := Region{Start: start, End: end, Perms: fields[1]}
		if len(fields) >= 6 {
			reg.Path = strings.Join(fields[5:], " ")
		}
		regs = append(regs, reg)
	}

	return regs, scanner.Err()
}

// FindPidBySubstring returns the lowest pid whose comm contains substr.
func FindPidBySubstring(substr string) (int, error) {
	if substr == "" {
		return 0, fmt.Errorf("%w: empty process name", ErrInvalidArgument)
	}

	ents, err := os.ReadDir("/proc")
	if err != nil {
		return 0, err
	}

	found := 0
	for _, e := range ents {
		if !e.IsDir() {
			continue
		}

		pid, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}

		commBytes, err := os.ReadFile(p.Format("/proc/%d/comm", pid))
		if err != nil {
			continue
		}

		comm := strings.TrimSpace(string(commBytes))
		if strings.Contains(comm, substr) && (found == 0 || pid < found) {
			found = pid
		}
	}

	if found == 0 {
		return 0, fmt.Errorf("%w: process containing %s not found", ErrTargetUnavailable, substr)
	}

	return found, nil
}
