//go:build linux

package threadpool

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// linux truncates thread names to 15 bytes plus the terminating NUL.
const maxThreadName = 15

// setupThread names the calling OS thread and returns its tid.
// The caller must hold runtime.LockOSThread.
func setupThread(name string) (int, error) {
	if len(name) > maxThreadName {
		name = name[:maxThreadName]
	}
	p, err := unix.BytePtrFromString(name)
	if err != nil {
		return 0, err
	}
	if err := unix.Prctl(unix.PR_SET_NAME, uintptr(unsafe.Pointer(p)), 0, 0, 0); err != nil {
		return 0, err
	}
	return unix.Gettid(), nil
}

// currentThreadID returns the tid of the calling OS thread. A goroutine that
// holds runtime.LockOSThread is the only one ever running on its thread.
func currentThreadID() (int, bool) { return unix.Gettid(), true }
