package hfs

import "time"

// CatalogRecordType tags a catalog leaf record's payload shape (§3).
type CatalogRecordType uint16

const (
	RecFolder       CatalogRecordType = 1
	RecFile         CatalogRecordType = 2
	RecFolderThread CatalogRecordType = 3
	RecFileThread   CatalogRecordType = 4
)

// CatalogKey is the decoded (parentCNID, name) catalog key (§3), generic
// across HFS and HFS+.
type CatalogKey struct {
	ParentCNID uint32
	NameRaw    []byte // MacRoman bytes (HFS) or big-endian UTF-16 units (HFS+)
	Unicode    bool
}

// Name decodes the key's name into a Go string.
func (k CatalogKey) Name() string {
	if !k.Unicode {
		return macRomanToString(k.NameRaw)
	}
	return decodeUTF16BE(k.NameRaw, len(k.NameRaw)/2)
}

// decodeCatalogKeyHFS decodes a classic-HFS catalog key body (post the
// 1-byte key-length prefix stripped by splitKeyValue): reserved(1) +
// parentID(4) + nameLen(1) + name(nameLen), per §3 and grounded on
// BeHierarchic's `internal/hfs` catalog walk.
func decodeCatalogKeyHFS(body []byte) CatalogKey {
	parent := u32(body[1:])
	nameLen := int(body[5])
	name := body[6 : 6+nameLen]
	return CatalogKey{ParentCNID: parent, NameRaw: name, Unicode: false}
}

func encodeCatalogKeyHFS(k CatalogKey) []byte {
	name := k.NameRaw
	if len(name) > 31 {
		name = name[:31]
	}
	body := make([]byte, 6+len(name))
	body[0] = 0 // reserved
	putU32(body[1:], k.ParentCNID)
	body[5] = byte(len(name))
	copy(body[6:], name)
	return append([]byte{byte(len(body))}, body...)
}

// decodeCatalogKeyHFSPlus decodes an HFS+ catalog key body (post the 2-byte
// key-length prefix): parentID(4) + nameLenUnits(2) + name(nameLenUnits*2)
// (§3).
func decodeCatalogKeyHFSPlus(body []byte) CatalogKey {
	parent := u32(body[0:])
	units := int(u16(body[4:]))
	name := body[6 : 6+units*2]
	return CatalogKey{ParentCNID: parent, NameRaw: name, Unicode: true}
}

func encodeCatalogKeyHFSPlus(k CatalogKey) []byte {
	units := len(k.NameRaw) / 2
	if units > 255 {
		units = 255
	}
	body := make([]byte, 6+units*2)
	putU32(body[0:], k.ParentCNID)
	putU16(body[4:], uint16(units))
	copy(body[6:], k.NameRaw[:units*2])

	out := make([]byte, 2+len(body))
	putU16(out, uint16(len(body)))
	copy(out[2:], body)
	return out
}

// catalogKeyComparator builds the §4.4 comparator for a catalog tree given
// its variant and key-compare type.
func catalogKeyComparator(fsType FSType, keyCompareType uint8) KeyComparator {
	return func(a, b []byte) int {
		var ka, kb CatalogKey
		if fsType == FSHFS {
			ka, kb = decodeCatalogKeyHFS(a), decodeCatalogKeyHFS(b)
		} else {
			ka, kb = decodeCatalogKeyHFSPlus(a), decodeCatalogKeyHFSPlus(b)
		}

		if ka.ParentCNID != kb.ParentCNID {
			if ka.ParentCNID < kb.ParentCNID {
				return -1
			}
			return 1
		}

		if fsType == FSHFS {
			return compareMacRoman(ka.NameRaw, kb.NameRaw)
		}
		switch keyCompareType {
		case KeyCompareBinaryUnicode:
			return compareCaseBinaryUTF16(ka.NameRaw, kb.NameRaw, len(ka.NameRaw)/2, len(kb.NameRaw)/2)
		default: // KeyCompareCaseFoldUnicode, or unset meaning the HFS+ default
			return compareCaseFoldUTF16(ka.NameRaw, kb.NameRaw, len(ka.NameRaw)/2, len(kb.NameRaw)/2)
		}
	}
}

// FolderRecord is the decoded HFS+/HFS folder catalog record (§3).
type FolderRecord struct {
	CNID       uint32
	Valence    uint32
	CreateDate time.Time
	ModDate    time.Time
}

// FileRecord is the decoded HFS+/HFS file catalog record (§3). Resource-fork
// support is modeled as a second ForkData/ForkDescriptorHFS for structural
// purposes (extent/size cross-checks); this engine never reads file
// contents (§1 Non-goals).
type FileRecord struct {
	CNID       uint32
	ModDate    time.Time
	DataFork   ForkData
	RsrcFork   ForkData
}

// ThreadRecord is the decoded folder/file thread record (§3): the inverse
// of a forward record, keyed by the owning CNID with an empty name.
type ThreadRecord struct {
	ParentCNID uint32
	Name       string
}

// decodeCatalogRecordHFSPlus decodes a leaf record's value given its raw
// bytes, dispatching on the 2-byte recordType tag.
func decodeCatalogRecordHFSPlus(value []byte) (CatalogRecordType, interface{}) {
	if len(value) < 2 {
		return 0, nil
	}
	rt := CatalogRecordType(u16(value))
	switch rt {
	case RecFolder:
		return rt, FolderRecord{
			Valence:    u32(value[4:]),
			CNID:       u32(value[8:]),
			CreateDate: macTime(u32(value[12:])),
			ModDate:    macTime(u32(value[16:])),
		}
	case RecFile:
		df, _ := decodeForkData(value[88:])
		rf, _ := decodeForkData(value[168:])
		return rt, FileRecord{
			CNID:     u32(value[8:]),
			ModDate:  macTime(u32(value[16:])),
			DataFork: df,
			RsrcFork: rf,
		}
	case RecFolderThread, RecFileThread:
		parent := u32(value[4:])
		units := int(u16(value[8:]))
		name := decodeUTF16BE(value[10:], units)
		return rt, ThreadRecord{ParentCNID: parent, Name: name}
	default:
		return rt, nil
	}
}

// decodeCatalogRecordHFS decodes a classic-HFS leaf record value, whose
// recordType tag is a single byte (not 2, as in HFS+), grounded on
// BeHierarchic's `internal/hfs.New` catalog walk offsets.
func decodeCatalogRecordHFS(value []byte) (CatalogRecordType, interface{}) {
	if len(value) < 1 {
		return 0, nil
	}
	rt := CatalogRecordType(value[0])
	switch rt {
	case RecFolder:
		return rt, FolderRecord{
			Valence:    uint32(u16(value[4:])),
			CNID:       u32(value[6:]),
			CreateDate: macTime(u32(value[0xa:])),
			ModDate:    macTime(u32(value[0xe:])),
		}
	case RecFile:
		dataSize := u32(value[0x1a:])
		rsrcSize := u32(value[0x24:])
		return rt, FileRecord{
			CNID:    u32(value[0x14:]),
			ModDate: macTime(u32(value[0x30:])),
			DataFork: ForkData{
				LogicalSize: uint64(dataSize),
				Extents:     decodeExtentRecordHFS(value[0x4a:]),
			},
			RsrcFork: ForkData{
				LogicalSize: uint64(rsrcSize),
				Extents:     decodeExtentRecordHFS(value[0x56:]),
			},
		}
	case RecFolderThread, RecFileThread:
		// HFSCatalogThread: recordType(2) + reserved[2]SInt32(8) + parentID(4) + name (Pascal string)
		parent := u32(value[0xa:])
		nameLen := int(value[0xe])
		name := macRomanToString(value[0xf : 0xf+nameLen])
		return rt, ThreadRecord{ParentCNID: parent, Name: name}
	default:
		return rt, nil
	}
}
