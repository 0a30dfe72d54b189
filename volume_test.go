package hfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blankMDB returns a structurally valid MDB with no system-file extents, so
// openHFSVolume skips opening the catalog/extents B-trees entirely and these
// tests exercise only the dual-header decode/validate logic (§4.2).
func blankMDB() *MDB {
	m := sampleMDB()
	m.ExtentsFile = ForkDescriptorHFS{}
	m.CatalogFile = ForkDescriptorHFS{}
	return m
}

func blankVolumeHeader() *VolumeHeader {
	vh := sampleVolumeHeader()
	vh.AllocationFile = ForkData{}
	vh.ExtentsFile = ForkData{}
	vh.CatalogFile = ForkData{}
	vh.AttributesFile = ForkData{}
	vh.StartupFile = ForkData{}
	return vh
}

func TestOpenHFSVolumeFallsBackToAlternateHeaderOnDecodeFailure(t *testing.T) {
	deviceSize := int64(4096)
	dev := newMemDevice(deviceSize)
	bio := NewBlockIO(dev, deviceSize, 0)

	good := blankMDB()
	goodRaw := encodeMDB(good)

	badRaw := append([]byte(nil), goodRaw...)
	putU16(badRaw, 0xFFFF) // corrupt drSigWord so decodeMDB itself fails
	require.NoError(t, bio.WriteAt(volumeHeaderOffset, badRaw))
	require.NoError(t, bio.WriteAt(deviceSize-2*SectorSize, goodRaw))

	v, err := openHFSVolume(bio, deviceSize)
	require.NoError(t, err)
	assert.Equal(t, good.VolumeName, v.MDB.VolumeName)
}

func TestOpenHFSVolumeBothHeadersCorruptReturnsError(t *testing.T) {
	deviceSize := int64(4096)
	dev := newMemDevice(deviceSize)
	bio := NewBlockIO(dev, deviceSize, 0)

	bad := make([]byte, mdbSize) // all-zero: signature mismatch both places
	require.NoError(t, bio.WriteAt(volumeHeaderOffset, bad))
	require.NoError(t, bio.WriteAt(deviceSize-2*SectorSize, bad))

	_, err := openHFSVolume(bio, deviceSize)
	assert.Equal(t, ErrBothHeadersCorrupt, err)
}

func TestOpenHFSVolumeValidationFailureSkipsAlternate(t *testing.T) {
	// A primary header that decodes fine (valid signature) but fails
	// validation does not consult the alternate at all (§4.2): only a
	// decode failure on the primary triggers the alternate-header path.
	deviceSize := int64(4096)
	dev := newMemDevice(deviceSize)
	bio := NewBlockIO(dev, deviceSize, 0)

	bad := blankMDB()
	bad.AllocBlockSize = 0
	require.NoError(t, bio.WriteAt(volumeHeaderOffset, encodeMDB(bad)))
	require.NoError(t, bio.WriteAt(deviceSize-2*SectorSize, encodeMDB(blankMDB())))

	_, err := openHFSVolume(bio, deviceSize)
	require.Error(t, err)
	assert.NotEqual(t, ErrBothHeadersCorrupt, err)
	_, ok := err.(*FormatError)
	assert.True(t, ok)
}

func TestOpenHFSPlusVolumeFallsBackToAlternateHeaderOnDecodeFailure(t *testing.T) {
	deviceSize := int64(8192)
	dev := newMemDevice(deviceSize)
	bio := NewBlockIO(dev, deviceSize, 0)

	good := blankVolumeHeader()
	goodRaw, err := encodeVolumeHeader(good)
	require.NoError(t, err)

	badRaw := append([]byte(nil), goodRaw...)
	putU16(badRaw[0:], 0x1111) // corrupt signature
	require.NoError(t, bio.WriteAt(volumeHeaderOffset, badRaw))
	require.NoError(t, bio.WriteAt(deviceSize-2*SectorSize, goodRaw))

	v, err := openHFSPlusVolume(bio, deviceSize, FSHFSPlus)
	require.NoError(t, err)
	assert.Equal(t, good.TotalBlocks, v.VH.TotalBlocks)
}

func TestOpenHFSPlusVolumeBothHeadersCorruptReturnsError(t *testing.T) {
	deviceSize := int64(8192)
	dev := newMemDevice(deviceSize)
	bio := NewBlockIO(dev, deviceSize, 0)

	bad := make([]byte, 512)
	require.NoError(t, bio.WriteAt(volumeHeaderOffset, bad))
	require.NoError(t, bio.WriteAt(deviceSize-2*SectorSize, bad))

	_, err := openHFSPlusVolume(bio, deviceSize, FSHFSPlus)
	assert.Equal(t, ErrBothHeadersCorrupt, err)
}

func TestOpenVolumeRejectsUnknownSignature(t *testing.T) {
	deviceSize := int64(4096)
	dev := newMemDevice(deviceSize)
	raw := make([]byte, 2)
	putU16(raw, 0x9999)
	copy(dev.buf[volumeHeaderOffset:], raw)

	_, err := OpenVolume(dev, deviceSize, 0)
	assert.Equal(t, ErrNotAFilesystem, err)
}

func TestOpenVolumeDispatchesHFSX(t *testing.T) {
	deviceSize := int64(8192)
	dev := newMemDevice(deviceSize)
	bio := NewBlockIO(dev, deviceSize, 0)

	vh := blankVolumeHeader()
	vh.Signature = sigHFSX
	raw, err := encodeVolumeHeader(vh)
	require.NoError(t, err)
	require.NoError(t, bio.WriteAt(volumeHeaderOffset, raw))

	v, err := OpenVolume(dev, deviceSize, 0)
	require.NoError(t, err)
	assert.Equal(t, FSHFSX, v.Type)
}
