package hfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSignature(dev *memDevice, sig uint16) {
	buf := make([]byte, 2)
	putU16(buf, sig)
	copy(dev.buf[volumeHeaderOffset:], buf)
}

func TestProbeHFS(t *testing.T) {
	dev := newMemDevice(volumeHeaderOffset + 2)
	writeSignature(dev, sigHFS)

	fsType, err := Probe(dev, int64(len(dev.buf)))
	require.NoError(t, err)
	assert.Equal(t, FSHFS, fsType)
	assert.Equal(t, "HFS", fsType.String())
}

func TestProbeHFSPlus(t *testing.T) {
	dev := newMemDevice(volumeHeaderOffset + 2)
	writeSignature(dev, sigHFSPlus)

	fsType, err := Probe(dev, int64(len(dev.buf)))
	require.NoError(t, err)
	assert.Equal(t, FSHFSPlus, fsType)
}

func TestProbeHFSX(t *testing.T) {
	dev := newMemDevice(volumeHeaderOffset + 2)
	writeSignature(dev, sigHFSX)

	fsType, err := Probe(dev, int64(len(dev.buf)))
	require.NoError(t, err)
	assert.Equal(t, FSHFSX, fsType)
}

func TestProbeUnknownSignature(t *testing.T) {
	dev := newMemDevice(volumeHeaderOffset + 2)
	writeSignature(dev, 0x1234)

	fsType, err := Probe(dev, int64(len(dev.buf)))
	require.NoError(t, err)
	assert.Equal(t, FSUnknown, fsType)
	assert.Equal(t, "unknown", fsType.String())
}

func TestProbeTruncatedDeviceFails(t *testing.T) {
	dev := newMemDevice(volumeHeaderOffset)

	_, err := Probe(dev, int64(len(dev.buf)))
	assert.Equal(t, ErrNotAFilesystem, err)
}
