package hfs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleVolumeHeader() *VolumeHeader {
	mk := func(start uint32, count uint32) ForkData {
		return ForkData{
			LogicalSize: uint64(count) * 4096,
			ClumpSize:   4096,
			TotalBlocks: count,
			Extents:     ExtentRecord{{StartBlock: start, BlockCount: count}},
		}
	}
	return &VolumeHeader{
		Signature:        sigHFSPlus,
		Version:          hfsPlusVersion,
		Attributes:       VolUnmountedCleanly,
		CreateDate:       time.Date(2015, 3, 4, 0, 0, 0, 0, time.UTC),
		ModifyDate:       time.Date(2024, 11, 2, 0, 0, 0, 0, time.UTC),
		BackupDate:       time.Time{},
		CheckedDate:      time.Date(2024, 11, 2, 0, 0, 0, 0, time.UTC),
		FileCount:        120,
		FolderCount:      40,
		BlockSize:        4096,
		TotalBlocks:      65536,
		FreeBlocks:       2048,
		NextAllocation:   100,
		RsrcClumpSize:    4096,
		DataClumpSize:    4096,
		NextCatalogID:    200,
		WriteCount:       9,
		EncodingsBitmap:  1,
		JournalInfoBlock: 0,
		AllocationFile:   mk(0, 2),
		ExtentsFile:      mk(2, 1),
		CatalogFile:      mk(3, 20),
		AttributesFile:   mk(23, 4),
		StartupFile:      ForkData{},
	}
}

func TestVolumeHeaderEncodeDecodeRoundTrip(t *testing.T) {
	want := sampleVolumeHeader()
	raw, err := encodeVolumeHeader(want)
	require.NoError(t, err)
	require.Len(t, raw, 512)

	got, err := decodeVolumeHeader(raw)
	require.NoError(t, err)

	assert.Equal(t, want.Signature, got.Signature)
	assert.Equal(t, want.Version, got.Version)
	assert.Equal(t, want.Attributes, got.Attributes)
	assert.True(t, want.CreateDate.Equal(got.CreateDate))
	assert.True(t, want.ModifyDate.Equal(got.ModifyDate))
	assert.Equal(t, want.FileCount, got.FileCount)
	assert.Equal(t, want.FolderCount, got.FolderCount)
	assert.Equal(t, want.BlockSize, got.BlockSize)
	assert.Equal(t, want.TotalBlocks, got.TotalBlocks)
	assert.Equal(t, want.FreeBlocks, got.FreeBlocks)
	assert.Equal(t, want.NextCatalogID, got.NextCatalogID)
	assert.Equal(t, want.AllocationFile, got.AllocationFile)
	assert.Equal(t, want.ExtentsFile, got.ExtentsFile)
	assert.Equal(t, want.CatalogFile, got.CatalogFile)
	assert.Equal(t, want.AttributesFile, got.AttributesFile)
}

func TestVolumeHeaderIsHFSX(t *testing.T) {
	vh := sampleVolumeHeader()
	assert.False(t, vh.IsHFSX())
	vh.Signature = sigHFSX
	assert.True(t, vh.IsHFSX())
}

func TestDecodeVolumeHeaderRejectsBadSignature(t *testing.T) {
	raw, err := encodeVolumeHeader(sampleVolumeHeader())
	require.NoError(t, err)
	putU16(raw[0:], 0x1111)

	_, err = decodeVolumeHeader(raw)
	require.Error(t, err)
}

func TestDecodeVolumeHeaderRejectsShortBuffer(t *testing.T) {
	_, err := decodeVolumeHeader(make([]byte, 100))
	require.Error(t, err)
}

func TestValidateVolumeHeaderRejectsSmallBlockSize(t *testing.T) {
	vh := sampleVolumeHeader()
	vh.BlockSize = 256
	require.Error(t, validateVolumeHeader(vh))
}

func TestValidateVolumeHeaderRejectsNonPowerOfTwoBlockSize(t *testing.T) {
	vh := sampleVolumeHeader()
	vh.BlockSize = 4097
	require.Error(t, validateVolumeHeader(vh))
}

func TestValidateVolumeHeaderRejectsZeroTotalBlocks(t *testing.T) {
	vh := sampleVolumeHeader()
	vh.TotalBlocks = 0
	require.Error(t, validateVolumeHeader(vh))
}

func TestValidateVolumeHeaderAcceptsWellFormed(t *testing.T) {
	assert.NoError(t, validateVolumeHeader(sampleVolumeHeader()))
}
