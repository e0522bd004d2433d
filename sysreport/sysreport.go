// Package sysreport takes one-shot storage and memory snapshots. No
// polling, no daemons: every function reads the current state and returns.
package sysreport

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// DiskStats describes the space on one filesystem.
type DiskStats struct {
	Path    string
	Total   uint64
	Free    uint64
	Used    uint64
	Percent float64
}

// EntryUsage is one immediate child of a scanned directory with its
// recursive size.
type EntryUsage struct {
	Name string
	Size int64
	Dir  bool
}

// MemStats is a one-shot memory snapshot in bytes.
type MemStats struct {
	Total     uint64
	Free      uint64
	Available uint64
	Used      uint64
	Percent   float64
	SwapTotal uint64
	SwapFree  uint64
}

// ScanDir sizes every immediate child of dir (directories recursively) and
// returns the topN largest, biggest first. A topN of 0 returns all entries.
func ScanDir(dir string, topN int) ([]EntryUsage, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var usages []EntryUsage
	for _, entry := range entries {
		u := EntryUsage{Name: entry.Name(), Dir: entry.IsDir()}
		if entry.IsDir() {
			u.Size = dirSize(filepath.Join(dir, entry.Name()))
		} else {
			info, err := entry.Info()
			if err != nil {
				continue
			}
			u.Size = info.Size()
		}
		usages = append(usages, u)
	}

	sort.Slice(usages, func(i, j int) bool { return usages[i].Size > usages[j].Size })
	if topN > 0 && len(usages) > topN {
		usages = usages[:topN]
	}
	return usages, nil
}

// dirSize sums the regular file sizes under dir, skipping unreadable
// entries.
func dirSize(dir string) int64 {
	var size int64
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				size += info.Size()
			}
		}
		return nil
	})
	return size
}

// MemInfo reads the current memory state from /proc/meminfo.
func MemInfo() (MemStats, error) {
	data, err := os.ReadFile("/proc/meminfo")
	if err != nil {
		return MemStats{}, fmt.Errorf("memory snapshot requires /proc: %v", err)
	}
	return parseMemInfo(data)
}

// parseMemInfo extracts the relevant meminfo fields. Lines read
// "MemTotal:       16384444 kB"; values without a kB suffix are plain
// counts and irrelevant here.
func parseMemInfo(data []byte) (MemStats, error) {
	fields := make(map[string]uint64)
	for _, line := range strings.Split(string(data), "\n") {
		name, rest, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		parts := strings.Fields(rest)
		if len(parts) == 0 {
			continue
		}
		v, err := strconv.ParseUint(parts[0], 10, 64)
		if err != nil {
			continue
		}
		if len(parts) > 1 && parts[1] == "kB" {
			v *= 1024
		}
		fields[name] = v
	}

	m := MemStats{
		Total:     fields["MemTotal"],
		Free:      fields["MemFree"],
		Available: fields["MemAvailable"],
		SwapTotal: fields["SwapTotal"],
		SwapFree:  fields["SwapFree"],
	}
	if m.Total == 0 {
		return MemStats{}, errors.New("meminfo has no MemTotal")
	}
	m.Used = m.Total - m.Available
	m.Percent = float64(m.Used) / float64(m.Total) * 100
	return m, nil
}

// FormatBytes renders a byte count in a human readable unit.
func FormatBytes(n uint64) string {
	v := float64(n)
	for _, unit := range []string{"B", "KB", "MB", "GB", "TB"} {
		if v < 1024 {
			return fmt.Sprintf("%.2f %s", v, unit)
		}
		v /= 1024
	}
	return fmt.Sprintf("%.2f PB", v)
}
