//go:build linux

package disk

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

func openPageFile(fileName string) (*os.File, error) {
	fd, err := unix.Open(fileName, os.O_CREATE|os.O_RDWR|syscall.O_DIRECT|syscall.O_SYNC, 0644)
	if err != nil {
		return nil, err
	}
	return os.NewFile(uintptr(fd), fileName), nil
}
