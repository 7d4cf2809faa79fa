//go:build linux

package worker

import (
	"github.com/jscience/grid/pkg/log"
	"golang.org/x/sys/unix"
)

func totalMemory() int64 {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		log.Debug("Failed to read system memory:", err)
		return 0
	}
	return int64(info.Totalram) * int64(info.Unit)
}
