package hfs

import "time"

// VH attribute bits (§4.2).
const (
	VolUnmountedCleanly = 1 << 8
	VolSpareBlocks      = 1 << 9
	VolNoCache          = 1 << 10
	VolInconsistent     = 1 << 11
	VolJournaled        = 1 << 13
	VolSoftwareLock     = 1 << 15
)

// hfsPlusVersion is the only legal VH version (§4.2).
const hfsPlusVersion = 4

// VolumeHeader is the decoded HFS+ Volume Header (§3): 512 bytes at offset
// 1024, carrying five 80-byte fork-data descriptors.
type VolumeHeader struct {
	Signature uint16 // 0x482B or 0x4858 (HFSX)
	Version   uint16
	Attributes uint32

	CreateDate      time.Time
	ModifyDate      time.Time
	BackupDate      time.Time
	CheckedDate     time.Time

	FileCount   uint32
	FolderCount uint32

	BlockSize   uint32
	TotalBlocks uint32
	FreeBlocks  uint32

	NextAllocation uint32
	RsrcClumpSize  uint32
	DataClumpSize  uint32
	NextCatalogID  uint32

	WriteCount      uint32
	EncodingsBitmap uint64

	JournalInfoBlock uint32

	AllocationFile ForkData
	ExtentsFile    ForkData
	CatalogFile    ForkData
	AttributesFile ForkData
	StartupFile    ForkData
}

// IsHFSX reports whether the signature is the case-sensitive variant.
func (vh *VolumeHeader) IsHFSX() bool { return vh.Signature == sigHFSX }

// decodeVolumeHeader strictly decodes a 512-byte buffer field by field.
func decodeVolumeHeader(raw []byte) (*VolumeHeader, error) {
	if len(raw) < 512 {
		return nil, &FormatError{Location: "VolumeHeader", Reason: "buffer too short"}
	}

	sig := u16(raw[0:])
	if sig != sigHFSPlus && sig != sigHFSX {
		return nil, &FormatError{Location: "VolumeHeader.signature", Reason: "not 0x482B or 0x4858"}
	}

	vh := &VolumeHeader{
		Signature:   sig,
		Version:     u16(raw[2:]),
		Attributes:  u32(raw[4:]),
		// lastMountedVersion at 8:12, skipped (not modeled by this engine)
		JournalInfoBlock: u32(raw[12:]),
		CreateDate:       macTime(u32(raw[16:])),
		ModifyDate:       macTime(u32(raw[20:])),
		BackupDate:       macTime(u32(raw[24:])),
		CheckedDate:      macTime(u32(raw[28:])),
		FileCount:        u32(raw[32:]),
		FolderCount:      u32(raw[36:]),
		BlockSize:        u32(raw[40:]),
		TotalBlocks:      u32(raw[44:]),
		FreeBlocks:       u32(raw[48:]),
		NextAllocation:   u32(raw[52:]),
		RsrcClumpSize:    u32(raw[56:]),
		DataClumpSize:    u32(raw[60:]),
		NextCatalogID:    u32(raw[64:]),
		WriteCount:       u32(raw[68:]),
		EncodingsBitmap:  u64(raw[72:]),
		// finderInfo[8]uint32 at 80:112, skipped
	}

	forks := raw[112:]
	var err error
	if vh.AllocationFile, err = decodeForkData(forks[0*forkDataSize:]); err != nil {
		return nil, err
	}
	if vh.ExtentsFile, err = decodeForkData(forks[1*forkDataSize:]); err != nil {
		return nil, err
	}
	if vh.CatalogFile, err = decodeForkData(forks[2*forkDataSize:]); err != nil {
		return nil, err
	}
	if vh.AttributesFile, err = decodeForkData(forks[3*forkDataSize:]); err != nil {
		return nil, err
	}
	if vh.StartupFile, err = decodeForkData(forks[4*forkDataSize:]); err != nil {
		return nil, err
	}

	return vh, nil
}

// validateVolumeHeader applies the §4.2 critical checks.
func validateVolumeHeader(vh *VolumeHeader) error {
	if vh.BlockSize < 512 || !isPowerOfTwo(vh.BlockSize) {
		return &FormatError{Location: "VolumeHeader.blockSize", Reason: "below 512 or not a power of two"}
	}
	if vh.TotalBlocks == 0 {
		return &FormatError{Location: "VolumeHeader.totalBlocks", Reason: "zero"}
	}
	return nil
}

// encodeVolumeHeader serializes vh back into its 512-byte wire form.
func encodeVolumeHeader(vh *VolumeHeader) ([]byte, error) {
	raw := make([]byte, 512)

	putU16(raw[0:], vh.Signature)
	putU16(raw[2:], vh.Version)
	putU32(raw[4:], vh.Attributes)
	putU32(raw[12:], vh.JournalInfoBlock)
	putU32(raw[16:], toMacTime(vh.CreateDate))
	putU32(raw[20:], toMacTime(vh.ModifyDate))
	putU32(raw[24:], toMacTime(vh.BackupDate))
	putU32(raw[28:], toMacTime(vh.CheckedDate))
	putU32(raw[32:], vh.FileCount)
	putU32(raw[36:], vh.FolderCount)
	putU32(raw[40:], vh.BlockSize)
	putU32(raw[44:], vh.TotalBlocks)
	putU32(raw[48:], vh.FreeBlocks)
	putU32(raw[52:], vh.NextAllocation)
	putU32(raw[56:], vh.RsrcClumpSize)
	putU32(raw[60:], vh.DataClumpSize)
	putU32(raw[64:], vh.NextCatalogID)
	putU32(raw[68:], vh.WriteCount)
	putU64(raw[72:], vh.EncodingsBitmap)

	forks := raw[112:]
	descriptors := []ForkData{vh.AllocationFile, vh.ExtentsFile, vh.CatalogFile, vh.AttributesFile, vh.StartupFile}
	for i, fd := range descriptors {
		encoded, err := encodeForkData(fd)
		if err != nil {
			return nil, err
		}
		copy(forks[i*forkDataSize:], encoded)
	}

	return raw, nil
}
