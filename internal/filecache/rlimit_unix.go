//go:build !windows

package filecache

import "golang.org/x/sys/unix"

// ClampToRlimit returns min(configured, RLIMIT_NOFILE/2), matching the
// spec's "Capacity is min(configured, rlimit/2) on POSIX".
func ClampToRlimit(configured int) int {
	var rlim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rlim); err != nil {
		return configured
	}
	half := int(rlim.Cur / 2)
	if half > 0 && half < configured {
		return half
	}
	return configured
}
