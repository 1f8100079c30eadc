//go:build !linux

package threadpool

import (
	"strings"
	"sync/atomic"
	"syscall"
)

var threadSeq atomic.Int64

// setupThread validates the name and hands out a process-unique id.
func setupThread(name string) (int, error) {
	if strings.IndexByte(name, 0) >= 0 {
		return 0, syscall.EINVAL
	}
	return int(threadSeq.Add(1)), nil
}

// currentThreadID is not available: ids here are not OS thread ids.
func currentThreadID() (int, bool) { return 0, false }
