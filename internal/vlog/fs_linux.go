//go:build linux

package vlog

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// punchHole deallocates [off, off+n) while keeping the file size. Reads of
// the range return zeros afterwards.
func punchHole(f *os.File, off, n int64) error {
	err := unix.Fallocate(int(f.Fd()), unix.FALLOC_FL_PUNCH_HOLE|unix.FALLOC_FL_KEEP_SIZE, off, n)
	if errors.Is(err, unix.EOPNOTSUPP) || errors.Is(err, unix.ENOSYS) {
		return zeroRange(f, off, n)
	}
	return err
}

// seekData returns the offset of the first data block at or after off.
// Holes left by punchHole are skipped.
func seekData(f *os.File, off int64) (int64, error) {
	pos, err := unix.Seek(int(f.Fd()), off, unix.SEEK_DATA)
	switch {
	case err == nil:
		return pos, nil
	case errors.Is(err, unix.ENXIO):
		return 0, errNoData
	case errors.Is(err, unix.EINVAL):
		// SEEK_DATA unsupported; every byte counts as data.
		return off, nil
	default:
		return 0, err
	}
}
