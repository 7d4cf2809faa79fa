//go:build linux

package utils

import (
	"golang.org/x/sys/unix"
)

// Sets the scheduling niceness of the calling process, 0 (normal) to 19
// (lowest priority).
func SetNice(nice int) error {
	return unix.Setpriority(unix.PRIO_PROCESS, 0, nice)
}
