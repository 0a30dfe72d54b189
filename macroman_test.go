package hfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMacRomanRoundTripASCII(t *testing.T) {
	name := "Macintosh HD"
	encoded := stringToMacRoman(name)
	assert.Equal(t, name, macRomanToString(encoded))
}

func TestCompareMacRomanCaseInsensitive(t *testing.T) {
	assert.Equal(t, 0, compareMacRoman([]byte("Desktop"), []byte("desktop")))
	assert.Equal(t, 0, compareMacRoman([]byte("DESKTOP"), []byte("desktop")))
}

func TestCompareMacRomanOrdering(t *testing.T) {
	assert.Equal(t, -1, compareMacRoman([]byte("apple"), []byte("banana")))
	assert.Equal(t, 1, compareMacRoman([]byte("banana"), []byte("apple")))
	assert.Equal(t, -1, compareMacRoman([]byte("app"), []byte("apple")))
}

func TestFoldMacRomanByte(t *testing.T) {
	assert.Equal(t, byte('a'), foldMacRomanByte('A'))
	assert.Equal(t, byte('z'), foldMacRomanByte('Z'))
	assert.Equal(t, byte('5'), foldMacRomanByte('5'))
}
