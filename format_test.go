package hfs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateVolumeNameRejectsColonAndNull(t *testing.T) {
	assert.Error(t, ValidateVolumeName("bad:name"))
	assert.Error(t, ValidateVolumeName("bad\x00name"))
	assert.Error(t, ValidateVolumeName(""))
	assert.NoError(t, ValidateVolumeName("My Disk"))
}

func TestRoundUp(t *testing.T) {
	assert.Equal(t, int64(512), roundUp(1, 512))
	assert.Equal(t, int64(512), roundUp(512, 512))
	assert.Equal(t, int64(1024), roundUp(513, 512))
	assert.Equal(t, int64(7), roundUp(7, 0))
}

func TestHFSGeometrySmallDevice(t *testing.T) {
	allocBlockSize, totalBlocks := hfsGeometry(10 << 20) // 10 MiB
	assert.Equal(t, uint32(512), allocBlockSize)
	assert.Equal(t, uint32((10<<20)/512), totalBlocks)
}

func TestHFSGeometryCapsTotalBlocksAt65535(t *testing.T) {
	// A device large enough that deviceSize/65536, rounded up to 512, still
	// produces more than 65535 allocation blocks must be capped (§4.6).
	deviceSize := int64(40) << 30 // 40 GiB
	_, totalBlocks := hfsGeometry(deviceSize)
	assert.LessOrEqual(t, totalBlocks, uint32(hfsMaxAllocBlocks))
}

func TestHFSCatalogBlocksScalesPastThreshold(t *testing.T) {
	assert.Equal(t, uint32(4), hfsCatalogBlocks(100))
	assert.Equal(t, uint32(5), hfsCatalogBlocks(251))
}

func TestHFSPlusGeometrySmallDeviceUses512ByteBlocks(t *testing.T) {
	blockSize, totalBlocks := hfsPlusGeometry(10 << 20)
	assert.Equal(t, uint32(512), blockSize)
	assert.Equal(t, uint32((10<<20)/512), totalBlocks)
}

func TestHFSPlusGeometryLargeDeviceUses4KBlocks(t *testing.T) {
	blockSize, totalBlocks := hfsPlusGeometry(2 << 30) // 2 GiB, past the 1 GiB threshold
	assert.Equal(t, uint32(4096), blockSize)
	assert.Equal(t, uint32((2<<30)/4096), totalBlocks)
}

func TestBtreeMaxKeyLength(t *testing.T) {
	assert.Equal(t, uint16(10), btreeMaxKeyLength(BTreeTypeExtents))
	assert.Equal(t, uint16(0x218), btreeMaxKeyLength(BTreeTypeAttributes))
	assert.Equal(t, uint16(516), btreeMaxKeyLength(BTreeTypeCatalog))
}

func TestFormatHFSProducesAnOpenableVolume(t *testing.T) {
	deviceSize := int64(16) << 20 // 16 MiB
	dev := newMemDevice(deviceSize)
	bio := NewBlockIO(dev, deviceSize, 0)

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, FormatHFS(bio, deviceSize, "Test Disk", now))
	assert.Equal(t, 1, dev.syncs)

	v, err := OpenVolume(dev, deviceSize, 0)
	require.NoError(t, err)
	assert.Equal(t, FSHFS, v.Type)
	require.NotNil(t, v.MDB)
	assert.Equal(t, "Test Disk", v.MDB.VolumeName)
	require.NotNil(t, v.Catalog)
	require.NotNil(t, v.Extents)

	var count int
	err = v.Catalog.WalkLeaves(v.keyLenWidth, func(_ uint32, _, value []byte) error {
		count++
		rt, rec := decodeCatalogRecordHFS(value)
		require.Equal(t, RecFolder, rt)
		fr := rec.(FolderRecord)
		assert.Equal(t, uint32(2), fr.CNID, "root folder CNID is 2")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count, "fresh volume has exactly the root folder record")
}

func TestFormatHFSRejectsBadVolumeName(t *testing.T) {
	deviceSize := int64(16) << 20
	dev := newMemDevice(deviceSize)
	bio := NewBlockIO(dev, deviceSize, 0)
	err := FormatHFS(bio, deviceSize, "bad:name", time.Now())
	require.Error(t, err)
	assert.Equal(t, 0, dev.writes, "a rejected format must not touch the device")
}

func TestFormatHFSPlusProducesAnOpenableVolume(t *testing.T) {
	deviceSize := int64(32) << 20 // 32 MiB, under the 1 GiB large-block threshold
	dev := newMemDevice(deviceSize)
	bio := NewBlockIO(dev, deviceSize, 0)

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, FormatHFSPlus(bio, deviceSize, false, now))
	assert.Equal(t, 1, dev.syncs)

	v, err := OpenVolume(dev, deviceSize, 0)
	require.NoError(t, err)
	assert.Equal(t, FSHFSPlus, v.Type)
	require.NotNil(t, v.VH)
	assert.Equal(t, uint32(512), v.VH.BlockSize)
	require.NotNil(t, v.Catalog)
	require.NotNil(t, v.Extents)
	assert.Nil(t, v.Attributes, "a fresh volume has no attributes file allocated")

	var count int
	err = v.Catalog.WalkLeaves(v.keyLenWidth, func(_ uint32, _, _ []byte) error {
		count++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestFormatHFSPlusCaseSensitiveProducesHFSX(t *testing.T) {
	deviceSize := int64(32) << 20
	dev := newMemDevice(deviceSize)
	bio := NewBlockIO(dev, deviceSize, 0)

	require.NoError(t, FormatHFSPlus(bio, deviceSize, true, time.Now()))

	v, err := OpenVolume(dev, deviceSize, 0)
	require.NoError(t, err)
	assert.Equal(t, FSHFSX, v.Type)
	assert.True(t, v.VH.IsHFSX())
}
