//go:build !unix

package sysreport

import "errors"

// DiskUsage reports the space of the filesystem holding path.
func DiskUsage(path string) (DiskStats, error) {
	return DiskStats{}, errors.New("disk usage requires a unix system")
}
