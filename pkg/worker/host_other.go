//go:build !linux

package worker

// Memory is not reported on this platform.
func totalMemory() int64 {
	return 0
}
