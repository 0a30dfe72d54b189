package hfs

import "io"

// overflowResolver looks up the next extent-record continuation for a fork
// in the extents-overflow B-tree, keyed by (forkType, CNID, next start
// block) per §4.5's fork extent walk. It returns ok=false once no further
// continuation exists.
type overflowResolver func(forkType byte, cnid uint32, cnt uint32) (ExtentRecord, bool)

// chaseOverflow appends every continuation of rec found through resolve,
// mirroring BeHierarchic's chaseOverflow for classic HFS, generalized to
// HFS+'s 32-bit fields.
func chaseOverflow(rec ExtentRecord, resolve overflowResolver, forkType byte, cnid uint32) ExtentRecord {
	if resolve == nil {
		return rec
	}
	blocksSoFar := uint32(rec.TotalBlocks())
	for {
		more, ok := resolve(forkType, cnid, blocksSoFar)
		if !ok {
			break
		}
		rec = append(rec, more...)
		blocksSoFar += uint32(more.TotalBlocks())
	}
	return rec
}

// readExtents reads the logical bytes described by rec (an already fully
// chased extent record) out of bio, where base is the byte offset of
// allocation-block 0 and blockSize is the allocation-block size. Logical
// size clips the final extent the way a fork's LogicalSize clips its last
// allocation block.
func readExtents(bio *BlockIO, base int64, blockSize uint32, rec ExtentRecord, logicalSize uint64) ([]byte, error) {
	out := make([]byte, 0, logicalSize)
	remaining := logicalSize

	for _, e := range rec {
		if remaining == 0 {
			break
		}
		extentBytes := uint64(e.BlockCount) * uint64(blockSize)
		take := extentBytes
		if take > remaining {
			take = remaining
		}

		offset := base + int64(e.StartBlock)*int64(blockSize)
		data, err := bio.ReadAt(offset, int(take))
		if err != nil {
			return nil, err
		}
		out = append(out, data...)
		remaining -= take
	}

	if remaining != 0 {
		return nil, io.ErrUnexpectedEOF
	}
	return out, nil
}
