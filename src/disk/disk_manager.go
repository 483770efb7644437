package disk

import (
	"io"
	"os"

	"github.com/ncw/directio"
	log "github.com/sirupsen/logrus"

	"page-cache-golang/src/common"
)

// DiskManager reads and writes fixed-size pages of a single database file and
// hands out page ids. Page 0 holds the allocator state (see fileHeader); data
// pages start at id 1. The file is opened for direct I/O, so every buffer
// passed in must be an aligned block of exactly common.PageSize bytes.
type DiskManager struct {
	fileName      string
	header        *fileHeader
	headerRawData []byte

	fi *os.File
}

func NewDiskManager(fileName string) *DiskManager {
	fi, err := openPageFile(fileName)
	if err != nil {
		log.WithError(err).Fatalf("Cannot open file.")
	}
	dm := &DiskManager{
		fileName: fileName,
		fi:       fi,
	}
	size, err := dm.fileSize()
	if err != nil {
		log.WithError(err).Fatalf("Cannot get file size.")
	}
	if size == 0 { // New file
		dm.headerRawData = directio.AlignedBlock(common.PageSize)
		dm.header = headerFromPage(dm.headerRawData)
		dm.header.init()
		if err := dm.writeHeaderPage(); err != nil {
			log.WithError(err).Fatalf("Write header page failed.")
		}
	} else {
		dm.headerRawData = directio.AlignedBlock(common.PageSize)
		if err := dm.readPageData(common.PageId(0), dm.headerRawData); err != nil {
			log.WithError(err).Fatalf("Read header page failed.")
		}
		dm.header = headerFromPage(dm.headerRawData)
	}
	return dm
}

func (dm *DiskManager) Close() error {
	return dm.fi.Close()
}

// AllocatePage returns a fresh page id, reusing a deallocated id when one is
// queued in the header. A page allocated at the end of the file is zeroed on
// disk before its id is handed out.
func (dm *DiskManager) AllocatePage() (common.PageId, error) {
	var pageId common.PageId
	if dm.header.hasFreePage() {
		pageId = dm.header.popFreePage()
	} else {
		pageId = dm.header.nextPageId
		if err := dm.writePageData(pageId, directio.AlignedBlock(common.PageSize)); err != nil {
			return common.InvalidPageId, err
		}
		dm.header.nextPageId++
	}
	if err := dm.writeHeaderPage(); err != nil {
		return common.InvalidPageId, err
	}
	return pageId, nil
}

// DeallocatePage queues the id for reuse. The page's bytes stay on disk;
// reading a deallocated page is unspecified.
func (dm *DiskManager) DeallocatePage(pageId common.PageId) error {
	if pageId <= 0 {
		return common.ErrInvalidPageId
	}
	if !dm.header.pushFreePage(pageId) {
		log.Warnf("Free page list is full, leaking page %d.", pageId)
		return nil
	}
	return dm.writeHeaderPage()
}

// ReadPage fills data, which must hold exactly common.PageSize bytes, with
// the page's on-disk image.
func (dm *DiskManager) ReadPage(pageId common.PageId, data []byte) error {
	if pageId <= 0 {
		return common.ErrInvalidPageId
	}
	return dm.readPageData(pageId, data)
}

// WritePage writes exactly common.PageSize bytes at the page's offset.
func (dm *DiskManager) WritePage(pageId common.PageId, data []byte) error {
	if pageId <= 0 {
		return common.ErrInvalidPageId
	}
	return dm.writePageData(pageId, data)
}

func (dm *DiskManager) fileSize() (int64, error) {
	stat, err := dm.fi.Stat()
	if err != nil {
		return 0, err
	}
	return stat.Size(), nil
}

func (dm *DiskManager) readPageData(pageId common.PageId, data []byte) error {
	offset := int64(pageId) * common.PageSize
	size, err := dm.fileSize()
	if err != nil {
		return err
	}
	if offset >= size {
		return common.ErrReadPastEOF
	}
	if _, err := dm.fi.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	n, err := dm.fi.Read(data)
	if err != nil {
		return err
	}
	if n < common.PageSize {
		return common.ErrShortRead
	}
	return nil
}

func (dm *DiskManager) writePageData(pageId common.PageId, data []byte) error {
	offset := int64(pageId) * common.PageSize
	if _, err := dm.fi.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	if _, err := dm.fi.Write(data); err != nil {
		return err
	}
	return nil
}

func (dm *DiskManager) writeHeaderPage() error {
	return dm.writePageData(common.PageId(0), dm.headerRawData)
}
