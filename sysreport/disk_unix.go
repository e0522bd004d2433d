//go:build unix

package sysreport

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// DiskUsage reports the space of the filesystem holding path. Used and
// Percent follow the df convention: reserved blocks count as used, and the
// percentage is used over the space visible to unprivileged users.
func DiskUsage(path string) (DiskStats, error) {
	var fs unix.Statfs_t
	if err := unix.Statfs(path, &fs); err != nil {
		return DiskStats{}, fmt.Errorf("statfs %q: %v", path, err)
	}

	bsize := uint64(fs.Bsize)
	total := fs.Blocks * bsize
	avail := fs.Bavail * bsize
	used := (fs.Blocks - fs.Bfree) * bsize

	var percent float64
	if used+avail > 0 {
		percent = float64(used) / float64(used+avail) * 100
	}

	return DiskStats{
		Path:    path,
		Total:   total,
		Free:    avail,
		Used:    used,
		Percent: percent,
	}, nil
}
