package hfs

import (
	"reflect"

	"github.com/go-restruct/restruct"

	"github.com/dsoprea/go-logging"
)

// Extent is a single contiguous run of allocation blocks.
type Extent struct {
	StartBlock uint32
	BlockCount uint32
}

// ExtentRecord is the small, fixed-capacity extent list embedded in a fork
// descriptor or file catalog record (§3 "Extent record"). An entry with
// BlockCount == 0 terminates the list; HFS carries 3 entries of 16-bit
// fields, HFS+ carries 8 entries of 32-bit fields.
type ExtentRecord []Extent

// decodeExtentRecordHFS decodes the 3-entry, 16-bit-field HFS extent record
// starting at raw[0:12].
func decodeExtentRecordHFS(raw []byte) ExtentRecord {
	rec := make(ExtentRecord, 0, 3)
	for i := 0; i < 3; i++ {
		off := i * 4
		start := u16(raw[off:])
		count := u16(raw[off+2:])
		if count == 0 {
			break
		}
		rec = append(rec, Extent{StartBlock: uint32(start), BlockCount: uint32(count)})
	}
	return rec
}

// encodeExtentRecordHFS encodes up to 3 extents back into their 12-byte HFS
// form, zero-filling any unused trailing entries.
func encodeExtentRecordHFS(rec ExtentRecord) []byte {
	out := make([]byte, 12)
	for i := 0; i < 3 && i < len(rec); i++ {
		off := i * 4
		putU16(out[off:], uint16(rec[i].StartBlock))
		putU16(out[off+2:], uint16(rec[i].BlockCount))
	}
	return out
}

// decodeExtentRecordHFSPlus decodes the 8-entry, 32-bit-field HFS+ extent
// record starting at raw[0:64].
func decodeExtentRecordHFSPlus(raw []byte) ExtentRecord {
	rec := make(ExtentRecord, 0, 8)
	for i := 0; i < 8; i++ {
		off := i * 8
		start := u32(raw[off:])
		count := u32(raw[off+4:])
		if count == 0 {
			break
		}
		rec = append(rec, Extent{StartBlock: start, BlockCount: count})
	}
	return rec
}

// encodeExtentRecordHFSPlus encodes up to 8 extents back into their 64-byte
// HFS+ form.
func encodeExtentRecordHFSPlus(rec ExtentRecord) []byte {
	out := make([]byte, 64)
	for i := 0; i < 8 && i < len(rec); i++ {
		off := i * 8
		putU32(out[off:], rec[i].StartBlock)
		putU32(out[off+4:], rec[i].BlockCount)
	}
	return out
}

// TotalBlocks sums BlockCount across every entry.
func (r ExtentRecord) TotalBlocks() uint64 {
	var total uint64
	for _, e := range r {
		total += uint64(e.BlockCount)
	}
	return total
}

// forkDataRaw is the 80-byte, fixed-width wire shape of an HFS+ fork-data
// descriptor (§3): logical size, clump size, block count, and an inline
// 8-entry extent record. It is one of the handful of structures regular
// enough to decode with restruct (ambient-stack choice documented in
// SPEC_FULL.md) rather than hand-rolled field accessors.
type forkDataRaw struct {
	LogicalSize uint64
	ClumpSize   uint32
	TotalBlocks uint32
	Extents     [64]byte // 8 * (start uint32, count uint32)
}

// ForkData is the decoded, usable form of an HFS+ fork-data descriptor.
type ForkData struct {
	LogicalSize uint64
	ClumpSize   uint32
	TotalBlocks uint32
	Extents     ExtentRecord
}

// decodeForkData unpacks one of the volume header's five 80-byte fork
// descriptors.
func decodeForkData(raw []byte) (fd ForkData, err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			var ok bool
			if err, ok = errRaw.(error); ok {
				err = log.Wrap(err)
			} else {
				err = log.Errorf("error not an error: [%s] [%v]", reflect.TypeOf(errRaw).Name(), errRaw)
			}
		}
	}()

	var fdr forkDataRaw
	unpackErr := restruct.Unpack(raw, defaultEncoding, &fdr)
	log.PanicIf(unpackErr)

	fd = ForkData{
		LogicalSize: fdr.LogicalSize,
		ClumpSize:   fdr.ClumpSize,
		TotalBlocks: fdr.TotalBlocks,
		Extents:     decodeExtentRecordHFSPlus(fdr.Extents[:]),
	}
	return fd, nil
}

// encodeForkData packs a ForkData back into its 80-byte wire form.
func encodeForkData(fd ForkData) (raw []byte, err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			var ok bool
			if err, ok = errRaw.(error); ok {
				err = log.Wrap(err)
			} else {
				err = log.Errorf("error not an error: [%s] [%v]", reflect.TypeOf(errRaw).Name(), errRaw)
			}
		}
	}()

	var fdr forkDataRaw
	fdr.LogicalSize = fd.LogicalSize
	fdr.ClumpSize = fd.ClumpSize
	fdr.TotalBlocks = fd.TotalBlocks
	copy(fdr.Extents[:], encodeExtentRecordHFSPlus(fd.Extents))

	raw, packErr := restruct.Pack(defaultEncoding, &fdr)
	log.PanicIf(packErr)

	return raw, nil
}

const forkDataSize = 80
