package buffer

import (
	"container/list"
	"sync"

	"github.com/ncw/directio"
	log "github.com/sirupsen/logrus"

	"page-cache-golang/src/common"
	"page-cache-golang/src/disk"
	"page-cache-golang/src/hash"
)

// BufferPoolManager caches disk pages in a fixed array of frames. Resident
// pages are tracked by an extendible hash page table keyed by page id; frames
// with a zero pin count sit in the replacer, frames holding no page in the
// free list. A single latch makes every public operation atomic, including its
// disk I/O.
type BufferPoolManager struct {
	size        int
	pages       []Page
	replacer    Replacer[int]
	freeList    list.List
	pageTable   hash.HashTable[common.PageId, int]
	diskManager *disk.DiskManager
	mu          sync.Mutex
}

func NewBufferPoolManager(size int, diskManager *disk.DiskManager, replacer Replacer[int]) *BufferPoolManager {
	bpm := &BufferPoolManager{
		size:        size,
		pages:       make([]Page, size),
		replacer:    replacer,
		pageTable:   hash.NewExtendibleHash[common.PageId, int](common.DefaultBucketSize, hash.IdentityHash[common.PageId]),
		diskManager: diskManager,
	}
	for i := 0; i < size; i++ {
		bpm.pages[i] = Page{
			data:   directio.AlignedBlock(common.PageSize),
			pageId: common.InvalidPageId,
		}
		bpm.freeList.PushBack(i)
	}
	return bpm
}

// FetchPage pins the frame holding pageId, loading the page from disk first
// if it is not resident. Returns common.ErrBufferPoolFull when every frame is
// pinned; disk errors are passed through.
func (bpm *BufferPoolManager) FetchPage(pageId common.PageId) (*Page, error) {
	if pageId == common.InvalidPageId {
		return nil, common.ErrInvalidPageId
	}
	bpm.mu.Lock()
	defer bpm.mu.Unlock()

	if frameId, ok := bpm.pageTable.Find(pageId); ok {
		page := &bpm.pages[frameId]
		if page.pinCount == 0 {
			bpm.replacer.Remove(frameId)
		}
		page.pinCount++
		return page, nil
	}

	frameId, err := bpm.takeVictim()
	if err != nil {
		return nil, err
	}
	page := &bpm.pages[frameId]
	if err := bpm.diskManager.ReadPage(pageId, page.data); err != nil {
		log.WithError(err).Errorf("Cannot read page %d from disk.", pageId)
		bpm.freeList.PushBack(frameId)
		return nil, err
	}
	page.pageId = pageId
	page.pinCount = 1
	bpm.pageTable.Insert(pageId, frameId)
	return page, nil
}

// NewPage allocates a fresh page id on disk and pins a zeroed frame for it.
func (bpm *BufferPoolManager) NewPage() (*Page, error) {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()

	frameId, err := bpm.takeVictim()
	if err != nil {
		return nil, err
	}
	page := &bpm.pages[frameId]
	pageId, err := bpm.diskManager.AllocatePage()
	if err != nil {
		log.WithError(err).Errorf("Allocate page failed.")
		bpm.freeList.PushBack(frameId)
		return nil, err
	}
	page.pageId = pageId
	page.pinCount = 1
	bpm.pageTable.Insert(pageId, frameId)
	return page, nil
}

// UnpinPage drops one pin from the page. Returns false if the page is not
// resident or its pin count is already zero.
func (bpm *BufferPoolManager) UnpinPage(pageId common.PageId, isDirty bool) bool {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()

	frameId, ok := bpm.pageTable.Find(pageId)
	if !ok {
		log.Warnf("Trying to unpin page %d, but the page is not in the buffer.", pageId)
		return false
	}
	page := &bpm.pages[frameId]
	if page.pinCount <= 0 {
		log.Warnf("Trying to unpin page %d, but page's pin count is zero.", pageId)
		return false
	}
	page.isDirty = page.isDirty || isDirty
	page.pinCount--
	if page.pinCount == 0 {
		bpm.replacer.Add(frameId)
	}
	return true
}

// FlushPage writes the page's current bytes to disk if dirty. Returns false
// if the page is not resident; a pinned page may be flushed.
func (bpm *BufferPoolManager) FlushPage(pageId common.PageId) (bool, error) {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()

	frameId, ok := bpm.pageTable.Find(pageId)
	if !ok {
		log.Warnf("Page %d is not in buffer. Cannot flush page.", pageId)
		return false, nil
	}
	page := &bpm.pages[frameId]
	if page.isDirty {
		if err := bpm.diskManager.WritePage(pageId, page.data); err != nil {
			log.WithError(err).Errorf("Cannot flush page %d.", pageId)
			return true, err
		}
		page.isDirty = false
	}
	return true, nil
}

// FlushAllPages writes every dirty resident page to disk, for clean shutdown.
func (bpm *BufferPoolManager) FlushAllPages() error {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()

	for i := range bpm.pages {
		page := &bpm.pages[i]
		if page.pageId == common.InvalidPageId || !page.isDirty {
			continue
		}
		if err := bpm.diskManager.WritePage(page.pageId, page.data); err != nil {
			log.WithError(err).Errorf("Cannot flush page %d.", page.pageId)
			return err
		}
		page.isDirty = false
	}
	return nil
}

// DeletePage drops the page from the pool and deallocates it on disk.
// Returns false if the page is resident and still pinned; deleting a page
// that is not resident only deallocates it.
func (bpm *BufferPoolManager) DeletePage(pageId common.PageId) (bool, error) {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()

	if frameId, ok := bpm.pageTable.Find(pageId); ok {
		page := &bpm.pages[frameId]
		if page.pinCount != 0 {
			log.Warnf("Trying to delete page %d, but the page is still pinned.", pageId)
			return false, nil
		}
		bpm.pageTable.Remove(pageId)
		bpm.replacer.Remove(frameId)
		page.pageId = common.InvalidPageId
		page.isDirty = false
		page.resetMemory()
		bpm.freeList.PushBack(frameId)
	}
	if err := bpm.diskManager.DeallocatePage(pageId); err != nil {
		return true, err
	}
	return true, nil
}

// Close flushes all dirty pages. The disk manager stays open; closing it is
// the owner's job.
func (bpm *BufferPoolManager) Close() error {
	return bpm.FlushAllPages()
}

// takeVictim hands out a clean frame, preferring the free list over the
// replacer. An evicted frame has its dirty image written back and its page
// table entry removed here. Must be called with the pool latch held.
func (bpm *BufferPoolManager) takeVictim() (int, error) {
	if bpm.freeList.Len() > 0 {
		elem := bpm.freeList.Front()
		bpm.freeList.Remove(elem)
		return elem.Value.(int), nil
	}
	frameId, ok := bpm.replacer.Victim()
	if !ok {
		log.Warnf("Buffer pool is full.")
		return 0, common.ErrBufferPoolFull
	}
	page := &bpm.pages[frameId]
	if page.isDirty {
		if err := bpm.diskManager.WritePage(page.pageId, page.data); err != nil {
			log.WithError(err).Errorf("Cannot write page %d back.", page.pageId)
			bpm.replacer.Add(frameId)
			return 0, err
		}
		page.isDirty = false
	}
	bpm.pageTable.Remove(page.pageId)
	page.pageId = common.InvalidPageId
	page.resetMemory()
	return frameId, nil
}

// GetPinCount reports the pin count of a resident page.
func (bpm *BufferPoolManager) GetPinCount(pageId common.PageId) (int, bool) {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()
	frameId, ok := bpm.pageTable.Find(pageId)
	if !ok {
		return 0, false
	}
	return bpm.pages[frameId].pinCount, true
}

func (bpm *BufferPoolManager) ReplacerSize() int {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()
	return bpm.replacer.Size()
}

func (bpm *BufferPoolManager) PageTableSize() int {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()
	return bpm.pageTable.Size()
}

func (bpm *BufferPoolManager) PoolSize() int { return bpm.size }

// Contains reports whether the page is resident.
func (bpm *BufferPoolManager) Contains(pageId common.PageId) bool {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()
	_, ok := bpm.pageTable.Find(pageId)
	return ok
}
