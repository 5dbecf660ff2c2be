package vlog

import (
	"errors"
	"os"
)

// errNoData is returned by seekData when no data follows the offset.
var errNoData = errors.New("vlog: no data after offset")

const zeroChunk = 64 * 1024

// zeroRange overwrites [off, off+n) with zeros. It stands in for hole
// punching on filesystems that cannot deallocate ranges.
func zeroRange(f *os.File, off, n int64) error {
	buf := make([]byte, min(n, zeroChunk))
	for n > 0 {
		chunk := min(n, int64(len(buf)))
		if _, err := f.WriteAt(buf[:chunk], off); err != nil {
			return err
		}
		off += chunk
		n -= chunk
	}
	return nil
}
