package hfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtentKeyHFSRoundTrip(t *testing.T) {
	k := ExtentKey{ForkType: ForkTypeData, CNID: 42, StartBlock: 7}
	raw := encodeExtentKeyHFS(k)

	// First byte is the 1-byte key-length prefix.
	assert.Equal(t, byte(len(raw)-1), raw[0])
	got := decodeExtentKeyHFS(raw[1:])
	assert.Equal(t, k, got)
}

func TestExtentKeyHFSPlusRoundTrip(t *testing.T) {
	k := ExtentKey{ForkType: ForkTypeResource, CNID: 1000, StartBlock: 999999}
	raw := encodeExtentKeyHFSPlus(k)

	assert.Equal(t, uint16(len(raw)-2), u16(raw))
	got := decodeExtentKeyHFSPlus(raw[2:])
	assert.Equal(t, k, got)
}

func TestExtentKeyComparatorOrdersByForkTypeThenCNIDThenStart(t *testing.T) {
	cmp := extentKeyComparator(FSHFSPlus)

	a := encodeExtentKeyHFSPlus(ExtentKey{ForkType: ForkTypeData, CNID: 5, StartBlock: 0})
	b := encodeExtentKeyHFSPlus(ExtentKey{ForkType: ForkTypeData, CNID: 5, StartBlock: 10})
	c := encodeExtentKeyHFSPlus(ExtentKey{ForkType: ForkTypeData, CNID: 6, StartBlock: 0})
	d := encodeExtentKeyHFSPlus(ExtentKey{ForkType: ForkTypeResource, CNID: 1, StartBlock: 0})

	assert.Equal(t, -1, cmp(a[2:], b[2:]))
	assert.Equal(t, -1, cmp(b[2:], c[2:]))
	assert.Equal(t, -1, cmp(c[2:], d[2:]))
	assert.Equal(t, 0, cmp(a[2:], a[2:]))
}

func TestExtentKeyComparatorHFS(t *testing.T) {
	cmp := extentKeyComparator(FSHFS)
	a := encodeExtentKeyHFS(ExtentKey{ForkType: ForkTypeData, CNID: 1, StartBlock: 0})[1:]
	b := encodeExtentKeyHFS(ExtentKey{ForkType: ForkTypeData, CNID: 2, StartBlock: 0})[1:]
	assert.Equal(t, -1, cmp(a, b))
	assert.Equal(t, 1, cmp(b, a))
}
