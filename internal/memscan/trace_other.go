//go:build !linux

package memscan

import (
	"context"

	"github.com/Moonlight-Companies/gologger/logger"
)

func traced(ctx context.Context, pid int, log *logger.Logger, fn func() error) error {
	return ErrUnsupported
}

func alive(pid int) error {
	return nil
}
