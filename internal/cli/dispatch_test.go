package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"

	hfs "github.com/dsoprea/go-hfs"
)

func TestProgramNameStripsPathAndExeSuffix(t *testing.T) {
	assert.Equal(t, "fsck.hfs", ProgramName("/sbin/fsck.hfs"))
	assert.Equal(t, "fsck.hfs", ProgramName("fsck.hfs"))
	assert.Equal(t, "mkfs.hfsplus", ProgramName("/usr/local/bin/mkfs.hfsplus.exe"))
}

func TestResolveFsckTargetDelegatesToHFSPlus(t *testing.T) {
	assert.Equal(t, "fsck.hfsplus", ResolveFsckTarget("fsck.hfs", hfs.FSHFSPlus))
	assert.Equal(t, "fsck.hfsplus", ResolveFsckTarget("fsck.hfs", hfs.FSHFSX))
}

func TestResolveFsckTargetLeavesMatchingVariantAlone(t *testing.T) {
	assert.Equal(t, "fsck.hfs", ResolveFsckTarget("fsck.hfs", hfs.FSHFS))
}

func TestResolveFsckTargetOnlyAppliesToFsckHFS(t *testing.T) {
	assert.Equal(t, "fsck.hfsplus", ResolveFsckTarget("fsck.hfsplus", hfs.FSHFSPlus))
	assert.Equal(t, "mount.hfs", ResolveFsckTarget("mount.hfs", hfs.FSHFSPlus))
}
