package hfs

// AttributeKey is the decoded HFS+ attributes B-tree key (§3):
// (padding, CNID, startBlock, name-as-UTF-16). HFS has no attributes tree.
type AttributeKey struct {
	CNID       uint32
	StartBlock uint32
	NameRaw    []byte // big-endian UTF-16
}

// decodeAttributeKey decodes an attributes key body (post the 2-byte length
// prefix): pad(2) + CNID(4) + startBlock(4) + nameLenUnits(2) + name.
func decodeAttributeKey(body []byte) AttributeKey {
	cnid := u32(body[2:])
	start := u32(body[6:])
	units := int(u16(body[10:]))
	name := body[12 : 12+units*2]
	return AttributeKey{CNID: cnid, StartBlock: start, NameRaw: name}
}

func encodeAttributeKey(k AttributeKey) []byte {
	units := len(k.NameRaw) / 2
	body := make([]byte, 12+units*2)
	putU32(body[2:], k.CNID)
	putU32(body[6:], k.StartBlock)
	putU16(body[10:], uint16(units))
	copy(body[12:], k.NameRaw)

	out := make([]byte, 2+len(body))
	putU16(out, uint16(len(body)))
	copy(out[2:], body)
	return out
}

// Name decodes the attribute name into a Go string.
func (k AttributeKey) Name() string {
	return decodeUTF16BE(k.NameRaw, len(k.NameRaw)/2)
}

// attributeKeyComparator implements the §4.4 comparator for the attributes
// tree: ordered by (CNID, startBlock, name), with the name folded the same
// way the catalog tree's key-compare type dictates.
func attributeKeyComparator(keyCompareType uint8) KeyComparator {
	return func(a, b []byte) int {
		ka, kb := decodeAttributeKey(a), decodeAttributeKey(b)
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
		if keyCompareType == KeyCompareBinaryUnicode {
			return compareCaseBinaryUTF16(ka.NameRaw, kb.NameRaw, len(ka.NameRaw)/2, len(kb.NameRaw)/2)
		}
		return compareCaseFoldUTF16(ka.NameRaw, kb.NameRaw, len(ka.NameRaw)/2, len(kb.NameRaw)/2)
	}
}
