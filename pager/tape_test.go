package pager

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTapeWrite(t *testing.T) {
	s := NewMemoryStore()
	tape := NewTape(s, PageKindNode)

	ptr, err := tape.Write([]byte("hello"))
	require.NoError(t, err)
	// First data page is page 1; page 0 is metadata.
	assert.Equal(t, Pointer{PageNumber: 1, Slot: 1}, ptr)

	got, err := s.ReadItem(ptr)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)
}

func TestTapeRollsOverToNewPage(t *testing.T) {
	s := NewMemoryStore()
	tape := NewTape(s, PageKindVector)

	item := make([]byte, 2000)
	var ptrs []Pointer
	for i := 0; i < 9; i++ {
		item[0] = byte(i)
		ptr, err := tape.Write(item)
		require.NoError(t, err)
		ptrs = append(ptrs, ptr)
	}

	// Four 2000-byte items fit one page, so nine items need three pages.
	assert.Equal(t, uint32(1), ptrs[0].PageNumber)
	assert.Equal(t, uint32(1), ptrs[3].PageNumber)
	assert.Equal(t, uint32(2), ptrs[4].PageNumber)
	assert.Equal(t, uint32(3), ptrs[8].PageNumber)

	// Pointers stay stable and resolve to their payloads.
	for i, ptr := range ptrs {
		got, err := s.ReadItem(ptr)
		require.NoError(t, err)
		assert.Equal(t, byte(i), got[0], "item %d", i)
	}
}

func TestTapeOversizedPayload(t *testing.T) {
	s := NewMemoryStore()
	tape := NewTape(s, PageKindVector)

	_, err := tape.Write(make([]byte, MaxItemSize+1))
	require.ErrorIs(t, err, ErrCapacity)

	var ce *CapacityError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, MaxItemSize+1, ce.Need)
	assert.Equal(t, MaxItemSize, ce.Have)

	// Nothing was allocated for the failed write.
	assert.Equal(t, uint32(1), s.PageCount())
}

func TestTapeMaxItemExactFit(t *testing.T) {
	s := NewMemoryStore()
	tape := NewTape(s, PageKindVector)

	ptr, err := tape.Write(make([]byte, MaxItemSize))
	require.NoError(t, err)

	got, err := s.ReadItem(ptr)
	require.NoError(t, err)
	assert.Len(t, got, MaxItemSize)
}

func TestTapeKindsStaySeparate(t *testing.T) {
	s := NewMemoryStore()
	nodes := NewTape(s, PageKindNode)
	vectors := NewTape(s, PageKindVector)

	for i := 0; i < 10; i++ {
		_, err := nodes.Write([]byte(fmt.Sprintf("node-%d", i)))
		require.NoError(t, err)
		_, err = vectors.Write([]byte(fmt.Sprintf("vec-%d", i)))
		require.NoError(t, err)
	}

	for n := range s.Pages(PageKindNode) {
		count, err := s.ItemCount(n)
		require.NoError(t, err)
		for slot := uint16(1); slot <= count; slot++ {
			item, err := s.ReadItem(Pointer{PageNumber: n, Slot: slot})
			require.NoError(t, err)
			assert.Contains(t, string(item), "node-")
		}
	}
}
