package disk

import (
	"math/rand"
	"os"
	"testing"

	"github.com/ncw/directio"
	"github.com/stretchr/testify/require"

	"page-cache-golang/src/common"
)

var testFileName = "tmp-file"

func TestNewDiskManager(t *testing.T) {
	defer os.Remove(testFileName)
	dm := NewDiskManager(testFileName)
	defer dm.Close()

	require.Equal(t, testFileName, dm.fileName)
	require.Equal(t, int64(0), dm.header.numFreePages)
	require.Equal(t, common.PageId(1), dm.header.nextPageId)

	// Check whether the header page is written.
	fi, _ := os.Open(testFileName)
	defer fi.Close()
	headerPageData := directio.AlignedBlock(common.PageSize)
	n, err := fi.Read(headerPageData)
	require.Nil(t, err)
	require.Equal(t, common.PageSize, n)
	expectedHeader := headerFromPage(headerPageData)
	require.Equal(t, int64(0), expectedHeader.numFreePages)
	require.Equal(t, common.PageId(1), expectedHeader.nextPageId)
}

func TestDiskManager_ReadWrite(t *testing.T) {
	defer os.Remove(testFileName)
	dm := NewDiskManager(testFileName)

	allData := make([][]byte, 0)
	for i := 0; i < 10; i++ {
		pageId, err := dm.AllocatePage()
		require.Nil(t, err)
		data := directio.AlignedBlock(common.PageSize)
		rand.Read(data)
		allData = append(allData, data)
		require.Nil(t, dm.WritePage(pageId, data))
		secondData := directio.AlignedBlock(common.PageSize)
		require.Nil(t, dm.ReadPage(pageId, secondData))
		require.Equal(t, data, secondData)
	}
	dm.Close()

	newDm := NewDiskManager(testFileName)
	defer newDm.Close()
	for i := 0; i < 10; i++ {
		data := directio.AlignedBlock(common.PageSize)
		require.Nil(t, newDm.ReadPage(common.PageId(i+1), data))
		require.Equal(t, allData[i], data)
	}
}

func TestDiskManager_ReadErrors(t *testing.T) {
	defer os.Remove(testFileName)
	dm := NewDiskManager(testFileName)
	defer dm.Close()

	data := directio.AlignedBlock(common.PageSize)
	require.ErrorIs(t, dm.ReadPage(common.PageId(-1), data), common.ErrInvalidPageId)
	require.ErrorIs(t, dm.ReadPage(common.PageId(0), data), common.ErrInvalidPageId)
	require.ErrorIs(t, dm.ReadPage(common.PageId(7), data), common.ErrReadPastEOF)
}

func TestDiskManager_AllocateAndDeallocate(t *testing.T) {
	defer os.Remove(testFileName)
	dm := NewDiskManager(testFileName)
	defer dm.Close()

	// Allocate pages in sequence.
	for i := 1; i <= 5; i++ {
		pageId, err := dm.AllocatePage()
		require.Nil(t, err)
		require.Equal(t, common.PageId(i), pageId)
		require.Equal(t, common.PageId(i+1), dm.header.nextPageId)
		require.Equal(t, int64(0), dm.header.numFreePages)
	}

	// Deallocate pages in sequence.
	for i := 1; i <= 5; i++ {
		require.Nil(t, dm.DeallocatePage(common.PageId(i)))
		require.Equal(t, common.PageId(6), dm.header.nextPageId)
		require.Equal(t, int64(i), dm.header.numFreePages)
		require.Equal(t, common.PageId(i), dm.header.get(int64(i-1)))
	}

	// Allocate some pages, then deallocate some, finally allocate again.
	for i := 1; i <= 5; i++ {
		dm.AllocatePage()
	}
	for i := 1; i <= 3; i++ {
		dm.DeallocatePage(common.PageId(i))
	}
	for i := 1; i <= 3; i++ {
		pageId, err := dm.AllocatePage()
		require.Nil(t, err)
		require.Equal(t, common.PageId(i), pageId)
		require.Equal(t, common.PageId(6), dm.header.nextPageId)
		require.Equal(t, int64(3-i), dm.header.numFreePages)
	}
	for i := 1; i <= 5; i++ {
		pageId, err := dm.AllocatePage()
		require.Nil(t, err)
		require.Equal(t, common.PageId(i+5), pageId)
		require.Equal(t, common.PageId(i+6), dm.header.nextPageId)
		require.Equal(t, int64(0), dm.header.numFreePages)
	}
}

func TestDiskManager_HeaderPersists(t *testing.T) {
	defer os.Remove(testFileName)
	dm := NewDiskManager(testFileName)

	for i := 0; i < 5; i++ {
		dm.AllocatePage()
	}
	dm.DeallocatePage(common.PageId(2))
	dm.DeallocatePage(common.PageId(4))
	dm.Close()

	newDm := NewDiskManager(testFileName)
	defer newDm.Close()

	require.Equal(t, int64(2), newDm.header.numFreePages)
	require.Equal(t, common.PageId(6), newDm.header.nextPageId)
	require.Equal(t, common.PageId(2), newDm.header.get(0))
	require.Equal(t, common.PageId(4), newDm.header.get(1))
}
