package hfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockIOReadWriteAt(t *testing.T) {
	dev := newMemDevice(4096)
	bio := NewBlockIO(dev, 4096, 0)

	payload := []byte("hello, hfs")
	require.NoError(t, bio.WriteAt(100, payload))

	got, err := bio.ReadAt(100, len(payload))
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestBlockIOReadAtPastEndIsTruncated(t *testing.T) {
	dev := newMemDevice(512)
	bio := NewBlockIO(dev, 512, 0)

	_, err := bio.ReadAt(500, 100)
	require.Error(t, err)
	ioErr, ok := err.(*IoError)
	require.True(t, ok)
	assert.Equal(t, IoErrorTruncated, ioErr.Kind)
}

func TestBlockIOReadBlockWriteBlockRoundTrip(t *testing.T) {
	dev := newMemDevice(8192)
	bio := NewBlockIO(dev, 8192, 0)

	block := make([]byte, 512)
	for i := range block {
		block[i] = byte(i)
	}
	require.NoError(t, bio.WriteBlock(1024, 2, block))

	got, err := bio.ReadBlock(1024, 2, 512)
	require.NoError(t, err)
	assert.Equal(t, block, got)
}

func TestBlockIOCacheServesRepeatedReads(t *testing.T) {
	dev := newMemDevice(4096)
	bio := NewBlockIO(dev, 4096, 2)

	block := []byte("cached-data-")
	require.NoError(t, bio.WriteBlock(0, 0, block))

	first, err := bio.ReadBlock(0, 0, len(block))
	require.NoError(t, err)
	assert.Equal(t, block, first)

	// Mutate the backing device directly, bypassing BlockIO.WriteAt, so a
	// second ReadBlock can only return the same bytes if it hit the cache.
	copy(dev.buf, []byte("mutated-byte"))

	second, err := bio.ReadBlock(0, 0, len(block))
	require.NoError(t, err)
	assert.Equal(t, block, second, "expected the cached entry, not the mutated backing buffer")
}

func TestBlockIOWriteInvalidatesCache(t *testing.T) {
	dev := newMemDevice(4096)
	bio := NewBlockIO(dev, 4096, 2)

	first := []byte("original-12")
	require.NoError(t, bio.WriteBlock(0, 0, first))
	_, err := bio.ReadBlock(0, 0, len(first))
	require.NoError(t, err)

	second := []byte("updated-val")
	require.NoError(t, bio.WriteBlock(0, 0, second))

	got, err := bio.ReadBlock(0, 0, len(second))
	require.NoError(t, err)
	assert.Equal(t, second, got, "a write-through cache must not serve stale bytes after a write")
}

func TestBlockIOCacheEviction(t *testing.T) {
	dev := newMemDevice(4096)
	bio := NewBlockIO(dev, 4096, 1) // capacity 1: second distinct block evicts the first

	a := []byte("AAAA")
	b := []byte("BBBB")
	require.NoError(t, bio.WriteBlock(0, 0, a))
	require.NoError(t, bio.WriteBlock(0, 1, b))

	_, err := bio.ReadBlock(0, 0, len(a))
	require.NoError(t, err)
	_, err = bio.ReadBlock(0, 1, len(b))
	require.NoError(t, err)
	assert.Equal(t, 1, bio.cache.Len())
}

func TestBlockIOSyncDelegatesToDevice(t *testing.T) {
	dev := newMemDevice(512)
	bio := NewBlockIO(dev, 512, 0)

	require.NoError(t, bio.Sync())
	assert.Equal(t, 1, dev.syncs)
}
