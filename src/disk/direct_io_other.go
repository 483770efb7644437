//go:build !linux

package disk

import (
	"os"

	"github.com/ncw/directio"
)

func openPageFile(fileName string) (*os.File, error) {
	return directio.OpenFile(fileName, os.O_CREATE|os.O_RDWR|os.O_SYNC, 0644)
}
