package hfs

import "testing"

import "github.com/stretchr/testify/assert"

func TestU16U32U64RoundTrip(t *testing.T) {
	buf := make([]byte, 16)
	putU16(buf[0:], 0xBEEF)
	putU32(buf[2:], 0xCAFEBABE)
	putU64(buf[6:], 0x0102030405060708)

	assert.Equal(t, uint16(0xBEEF), u16(buf[0:]))
	assert.Equal(t, uint32(0xCAFEBABE), u32(buf[2:]))
	assert.Equal(t, uint64(0x0102030405060708), u64(buf[6:]))
}

func TestBigEndianByteOrder(t *testing.T) {
	buf := make([]byte, 4)
	putU32(buf, 0x01020304)
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, buf)
}

func TestIsPowerOfTwo(t *testing.T) {
	assert.True(t, isPowerOfTwo(512))
	assert.True(t, isPowerOfTwo(4096))
	assert.True(t, isPowerOfTwo(1))
	assert.False(t, isPowerOfTwo(0))
	assert.False(t, isPowerOfTwo(513))
	assert.False(t, isPowerOfTwo(1536))
}
