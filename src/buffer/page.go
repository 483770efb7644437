package buffer

import (
	"sync"

	"page-cache-golang/src/common"
)

// Page is one frame of the buffer pool. The embedded RWMutex is the page
// content latch for higher layers; the buffer pool itself never takes it.
type Page struct {
	data     []byte
	pageId   common.PageId
	pinCount int
	isDirty  bool
	sync.RWMutex
}

func (p *Page) Data() []byte { return p.data }

func (p *Page) PageId() common.PageId { return p.pageId }

func (p *Page) PinCount() int { return p.pinCount }

func (p *Page) IsDirty() bool { return p.isDirty }

func (p *Page) resetMemory() {
	for i := range p.data {
		p.data[i] = 0
	}
}
