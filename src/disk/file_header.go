package disk

import (
	"math"
	"unsafe"

	"page-cache-golang/src/common"
)

// fileHeader is the in-memory view of page 0 of the database file. It owns
// page id allocation: ids of deallocated pages queue up in a free list at the
// end of the header and are reused before the file grows.
//
// Overlaid directly onto the aligned header page buffer, so persisting the
// header is just a page write.
type fileHeader struct {
	nextPageId   common.PageId
	numFreePages int64
	freeListPtr  uintptr
}

// maxFreePages is how many reusable page ids fit in the header page after
// the two counters.
const maxFreePages = (common.PageSize - 16) / 8

func headerFromPage(data []byte) *fileHeader {
	return (*fileHeader)(unsafe.Pointer(&data[0]))
}

func (hdr *fileHeader) init() {
	hdr.nextPageId = 1
	hdr.numFreePages = 0
}

func (hdr *fileHeader) freeList() *[math.MaxInt32]common.PageId {
	return (*[math.MaxInt32]common.PageId)(unsafe.Pointer(&hdr.freeListPtr))
}

func (hdr *fileHeader) get(i int64) common.PageId {
	return hdr.freeList()[i]
}

func (hdr *fileHeader) hasFreePage() bool {
	return hdr.numFreePages > 0
}

func (hdr *fileHeader) popFreePage() common.PageId {
	buf := hdr.freeList()
	ret := buf[0]
	for i := int64(1); i < hdr.numFreePages; i++ {
		buf[i-1] = buf[i]
	}
	hdr.numFreePages--
	return ret
}

// pushFreePage queues a page id for reuse. When the list is full the id is
// dropped: the page stays allocated on disk and is never handed out again.
func (hdr *fileHeader) pushFreePage(pageId common.PageId) bool {
	if hdr.numFreePages >= maxFreePages {
		return false
	}
	hdr.freeList()[hdr.numFreePages] = pageId
	hdr.numFreePages++
	return true
}
