//go:build !linux && !darwin

package source

import (
	"io/fs"
	"time"
)

func birthTime(_ string, fi fs.FileInfo) time.Time {
	return fi.ModTime()
}
