package hfs

import "time"

// MDB is the decoded HFS Master Directory Block (§3): a single, checksum-
// free, structurally rigid block at sector 2. Field layout and offsets are
// grounded on original_source/src/embedded/shared/hfs_common.h's MDB struct.
type MDB struct {
	CreateDate      time.Time
	ModifyDate      time.Time
	Attributes      uint16
	FileCount       uint16 // drNmFls, root-directory file count
	BitmapStart     uint16 // drVBMSt, absolute sector of the allocation bitmap
	DirCount        uint32 // drDirCnt, volume-wide directory count
	VolumeFileCount uint32 // drFilCnt, volume-wide file count
	AllocBlockSize  uint32 // drAlBlkSiz
	ClumpSize       uint32 // drClpSiz
	AllocBlockStart uint16 // drAlBlSt, first sector of allocation-block 0
	NextCNID        uint32
	FreeBlocks      uint16
	VolumeName      string // decoded from the Pascal string, MacRoman
	AllocBlocks     uint16 // drNmAlBlks
	AllocSearchHint uint16 // drAllocPtr: written, never read (§9 open question)

	ExtentsFile ForkDescriptorHFS
	CatalogFile ForkDescriptorHFS
}

// ForkDescriptorHFS is an HFS system-file descriptor: logical size plus the
// inline 3-entry extent record (§3).
type ForkDescriptorHFS struct {
	LogicalSize uint32
	Extents     ExtentRecord
}

// mdbSize is the fixed 162-byte MDB layout ending at drCTExtRec (§4.2).
const mdbSize = 0xA2

// decodeMDB strictly decodes a 162-byte buffer field by field, per design
// note §9 (no packed-struct casts).
func decodeMDB(raw []byte) (*MDB, error) {
	if len(raw) < mdbSize {
		return nil, &FormatError{Location: "MDB", Reason: "buffer too short"}
	}

	sig := u16(raw[0x00:])
	if sig != sigHFS {
		return nil, &FormatError{Location: "MDB.drSigWord", Reason: "signature is not 0x4244 (\"BD\")"}
	}

	m := &MDB{
		CreateDate:      macTime(u32(raw[0x02:])),
		ModifyDate:      macTime(u32(raw[0x06:])),
		Attributes:      u16(raw[0x0a:]),
		FileCount:       u16(raw[0x0c:]),
		BitmapStart:     u16(raw[0x0e:]),
		AllocSearchHint: u16(raw[0x10:]),
		AllocBlocks:     u16(raw[0x12:]),
		AllocBlockSize:  u32(raw[0x14:]),
		ClumpSize:       u32(raw[0x18:]),
		AllocBlockStart: u16(raw[0x1c:]),
		NextCNID:        u32(raw[0x1e:]),
		FreeBlocks:      u16(raw[0x22:]),
		VolumeFileCount: u32(raw[0x54:]),
		DirCount:        u32(raw[0x58:]),
	}

	nameLen := int(raw[0x24])
	if nameLen > 27 {
		nameLen = 27
	}
	m.VolumeName = macRomanToString(raw[0x25 : 0x25+nameLen])

	m.ExtentsFile = ForkDescriptorHFS{
		LogicalSize: u32(raw[0x82:]),
		Extents:     decodeExtentRecordHFS(raw[0x86:]),
	}
	m.CatalogFile = ForkDescriptorHFS{
		LogicalSize: u32(raw[0x92:]),
		Extents:     decodeExtentRecordHFS(raw[0x96:]),
	}

	return m, nil
}

// validateMDB applies the §4.2 critical-field checks: a zero or
// non-power-of-two allocation block size, or a zero allocation block count,
// refuses to proceed (not repairable).
func validateMDB(m *MDB) error {
	if m.AllocBlockSize == 0 || !isPowerOfTwo(m.AllocBlockSize) {
		return &FormatError{Location: "MDB.drAlBlkSiz", Reason: "zero or not a power of two"}
	}
	if m.AllocBlocks == 0 {
		return &FormatError{Location: "MDB.drNmAlBlks", Reason: "zero allocation blocks"}
	}
	return nil
}

// encodeMDB serializes m back into its 162-byte wire form.
func encodeMDB(m *MDB) []byte {
	raw := make([]byte, mdbSize)

	putU16(raw[0x00:], sigHFS)
	putU32(raw[0x02:], toMacTime(m.CreateDate))
	putU32(raw[0x06:], toMacTime(m.ModifyDate))
	putU16(raw[0x0a:], m.Attributes)
	putU16(raw[0x0c:], m.FileCount)
	putU16(raw[0x0e:], m.BitmapStart)
	putU16(raw[0x10:], m.AllocSearchHint)
	putU16(raw[0x12:], m.AllocBlocks)
	putU32(raw[0x14:], m.AllocBlockSize)
	putU32(raw[0x18:], m.ClumpSize)
	putU16(raw[0x1c:], m.AllocBlockStart)
	putU32(raw[0x1e:], m.NextCNID)
	putU16(raw[0x22:], m.FreeBlocks)

	nameBytes := stringToMacRoman(m.VolumeName)
	if len(nameBytes) > 27 {
		nameBytes = nameBytes[:27]
	}
	raw[0x24] = byte(len(nameBytes))
	copy(raw[0x25:], nameBytes)

	putU32(raw[0x54:], m.VolumeFileCount)
	putU32(raw[0x58:], m.DirCount)

	putU32(raw[0x82:], m.ExtentsFile.LogicalSize)
	copy(raw[0x86:], encodeExtentRecordHFS(m.ExtentsFile.Extents))
	putU32(raw[0x92:], m.CatalogFile.LogicalSize)
	copy(raw[0x96:], encodeExtentRecordHFS(m.CatalogFile.Extents))

	return raw
}
