package common

import "errors"

var (
	ErrBufferPoolFull = errors.New("buffer pool is full")
	ErrPagePinned     = errors.New("page is still pinned")
	ErrInvalidPageId  = errors.New("invalid page id")
	ErrReadPastEOF    = errors.New("read past end of file")
	ErrShortRead      = errors.New("read less than a page")
)
