//go:build !linux

package engine

import (
	"errors"
	"os"
)

// reflinkFile always fails off Linux; FICLONE is a Linux ioctl.
func reflinkFile(_, _ string, _ os.FileInfo) error {
	return errors.New("reflink not supported on this platform")
}
