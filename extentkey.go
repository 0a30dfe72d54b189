package hfs

// Fork type tags (§3).
const (
	ForkTypeData     = 0x00
	ForkTypeResource = 0xFF
)

// ExtentKey is the decoded extents-overflow B-tree key (§3):
// (forkType, CNID, startBlock).
type ExtentKey struct {
	ForkType   byte
	CNID       uint32
	StartBlock uint32
}

// decodeExtentKeyHFS decodes a classic-HFS extents key body (post the
// 1-byte length prefix): forkType(1) + fileID(4) + startBlock(2).
func decodeExtentKeyHFS(body []byte) ExtentKey {
	return ExtentKey{
		ForkType:   body[0],
		CNID:       u32(body[1:]),
		StartBlock: uint32(u16(body[5:])),
	}
}

func encodeExtentKeyHFS(k ExtentKey) []byte {
	body := make([]byte, 7)
	body[0] = k.ForkType
	putU32(body[1:], k.CNID)
	putU16(body[5:], uint16(k.StartBlock))
	return append([]byte{byte(len(body))}, body...)
}

// decodeExtentKeyHFSPlus decodes an HFS+ extents key body (post the 2-byte
// length prefix): forkType(1) + pad(1) + fileID(4) + startBlock(4).
func decodeExtentKeyHFSPlus(body []byte) ExtentKey {
	return ExtentKey{
		ForkType:   body[0],
		CNID:       u32(body[2:]),
		StartBlock: u32(body[6:]),
	}
}

func encodeExtentKeyHFSPlus(k ExtentKey) []byte {
	body := make([]byte, 10)
	body[0] = k.ForkType
	putU32(body[2:], k.CNID)
	putU32(body[6:], k.StartBlock)
	out := make([]byte, 2+len(body))
	putU16(out, uint16(len(body)))
	copy(out[2:], body)
	return out
}

// extentKeyComparator implements the §4.4 extent-key comparator:
// lexicographic on (forkType, CNID, startBlock).
func extentKeyComparator(fsType FSType) KeyComparator {
	decode := decodeExtentKeyHFSPlus
	if fsType == FSHFS {
		decode = decodeExtentKeyHFS
	}
	return func(a, b []byte) int {
		ka, kb := decode(a), decode(b)
		if ka.ForkType != kb.ForkType {
			if ka.ForkType < kb.ForkType {
				return -1
			}
			return 1
		}
		if ka.CNID != kb.CNID {
			if ka.CNID < kb.CNID {
				return -1
			}
			return 1
		}
		if ka.StartBlock != kb.StartBlock {
			if ka.StartBlock < kb.StartBlock {
				return -1
			}
			return 1
		}
		return 0
	}
}
