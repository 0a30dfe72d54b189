package hfs

import "encoding/binary"

// defaultEncoding is the wire byte order for every on-disk HFS/HFS+
// integer. Unlike the teacher's exFAT (little-endian), HFS and HFS+ are
// big-endian only, with the sole documented exception being the journal
// header's self-describing `endian` sentinel (§4.8), which is compared
// against its expected constant rather than decoded through this table.
var defaultEncoding = binary.BigEndian

// u16 and u32 are terse big-endian field accessors, used throughout the
// codecs in place of packed-struct casts (design note §9).
func u16(b []byte) uint16 { return defaultEncoding.Uint16(b) }
func u32(b []byte) uint32 { return defaultEncoding.Uint32(b) }
func u64(b []byte) uint64 { return defaultEncoding.Uint64(b) }

func putU16(b []byte, v uint16) { defaultEncoding.PutUint16(b, v) }
func putU32(b []byte, v uint32) { defaultEncoding.PutUint32(b, v) }
func putU64(b []byte, v uint64) { defaultEncoding.PutUint64(b, v) }

// isPowerOfTwo reports whether v is a nonzero power of two, used by the MDB
// and VH critical-field checks (§4.2).
func isPowerOfTwo(v uint32) bool {
	return v != 0 && v&(v-1) == 0
}
