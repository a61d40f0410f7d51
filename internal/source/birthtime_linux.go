//go:build linux

package source

import (
	"io/fs"
	"time"

	"golang.org/x/sys/unix"
)

// birthTime returns the file creation time via statx, falling back to the
// modification time on filesystems that do not record it.
func birthTime(path string, fi fs.FileInfo) time.Time {
	var stx unix.Statx_t
	err := unix.Statx(unix.AT_FDCWD, path, unix.AT_SYMLINK_NOFOLLOW, unix.STATX_BTIME, &stx)
	if err == nil && stx.Mask&unix.STATX_BTIME != 0 && stx.Btime.Sec > 0 {
		return time.Unix(stx.Btime.Sec, int64(stx.Btime.Nsec))
	}
	return fi.ModTime()
}
