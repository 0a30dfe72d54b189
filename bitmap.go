package hfs

// Bitmap is the in-memory form of the allocation bitmap (§4.3): one bit per
// allocation block, MSB-first within each byte (bit i of byte j corresponds
// to block 8j + (7-i)).
type Bitmap struct {
	bits        []byte
	totalBlocks uint32
}

// NewBitmap allocates a zeroed bitmap for totalBlocks blocks.
func NewBitmap(totalBlocks uint32) *Bitmap {
	return &Bitmap{
		bits:        make([]byte, (int(totalBlocks)+7)/8),
		totalBlocks: totalBlocks,
	}
}

// bitmapFromBytes wraps an on-disk bitmap buffer already read into memory.
func bitmapFromBytes(raw []byte, totalBlocks uint32) *Bitmap {
	return &Bitmap{bits: raw, totalBlocks: totalBlocks}
}

// Test reports whether block n is marked used. Bits past totalBlocks are
// undefined on disk and always read as unused (§4.3 edge case).
func (b *Bitmap) Test(n uint32) bool {
	if n >= b.totalBlocks {
		return false
	}
	byteIdx := n / 8
	bitIdx := 7 - (n % 8)
	return b.bits[byteIdx]&(1<<bitIdx) != 0
}

// Set marks block n used.
func (b *Bitmap) Set(n uint32) {
	if n >= b.totalBlocks {
		return
	}
	byteIdx := n / 8
	bitIdx := 7 - (n % 8)
	b.bits[byteIdx] |= 1 << bitIdx
}

// Clear marks block n free.
func (b *Bitmap) Clear(n uint32) {
	if n >= b.totalBlocks {
		return
	}
	byteIdx := n / 8
	bitIdx := 7 - (n % 8)
	b.bits[byteIdx] &^= 1 << bitIdx
}

// SetRange marks [start, start+count) used, as extent walks do.
func (b *Bitmap) SetRange(start, count uint32) {
	for i := uint32(0); i < count; i++ {
		b.Set(start + i)
	}
}

// CountFree returns the number of zero bits up to totalBlocks. Bits past
// totalBlocks in the last byte are ignored per §4.3/§8's boundary behavior.
func (b *Bitmap) CountFree() uint32 {
	var free uint32
	for n := uint32(0); n < b.totalBlocks; n++ {
		if !b.Test(n) {
			free++
		}
	}
	return free
}

// CountUsed returns the complementary count; CountFree()+CountUsed() ==
// totalBlocks is testable property §8.6.
func (b *Bitmap) CountUsed() uint32 {
	return b.totalBlocks - b.CountFree()
}

// Bytes returns the raw backing buffer, for writing to disk.
func (b *Bitmap) Bytes() []byte { return b.bits }

// ReconcileResult is the outcome of verify() (§4.3).
type ReconcileResult struct {
	// Orphans are set in the on-disk bitmap but not claimed by any walked
	// extent: free-but-marked-used, benign and recoverable.
	Orphans []uint32

	// DoubleClaims are blocks claimed by more than one owner during the
	// expected_used walk: corruption, escalated to critical (§4.7).
	DoubleClaims []uint32

	// CountedFree is CountFree() of expected_used, the authoritative value
	// that repair mode writes into the header's freeBlocks field.
	CountedFree uint32
}

// Reconcile implements the §4.3 verify() protocol: build expected_used from
// the extents walked by the caller (claims), compare against the on-disk
// bitmap, and report orphans/double-claims.
func Reconcile(onDisk *Bitmap, totalBlocks uint32, claims []uint32) *ReconcileResult {
	expected := NewBitmap(totalBlocks)
	claimedBy := make(map[uint32]int, len(claims))

	res := &ReconcileResult{}

	for _, blk := range claims {
		if blk >= totalBlocks {
			continue
		}
		claimedBy[blk]++
		expected.Set(blk)
	}

	for blk, n := range claimedBy {
		if n > 1 {
			res.DoubleClaims = append(res.DoubleClaims, blk)
		}
	}

	for n := uint32(0); n < totalBlocks; n++ {
		if onDisk.Test(n) && !expected.Test(n) {
			res.Orphans = append(res.Orphans, n)
		}
	}

	res.CountedFree = expected.CountFree()
	return res
}
