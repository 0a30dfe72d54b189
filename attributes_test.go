package hfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAttributeKeyRoundTrip(t *testing.T) {
	k := AttributeKey{CNID: 55, StartBlock: 0, NameRaw: encodeUTF16BE("com.apple.quarantine")}
	raw := encodeAttributeKey(k)

	body := raw[2:]
	got := decodeAttributeKey(body)
	assert.Equal(t, k.CNID, got.CNID)
	assert.Equal(t, k.StartBlock, got.StartBlock)
	assert.Equal(t, "com.apple.quarantine", got.Name())
}

func TestAttributeKeyComparatorOrdersByCNIDThenStartThenName(t *testing.T) {
	cmp := attributeKeyComparator(KeyCompareCaseFoldUnicode)

	a := encodeAttributeKey(AttributeKey{CNID: 1, StartBlock: 0, NameRaw: encodeUTF16BE("a")})[2:]
	b := encodeAttributeKey(AttributeKey{CNID: 1, StartBlock: 1, NameRaw: encodeUTF16BE("a")})[2:]
	c := encodeAttributeKey(AttributeKey{CNID: 2, StartBlock: 0, NameRaw: encodeUTF16BE("a")})[2:]

	assert.Equal(t, -1, cmp(a, b))
	assert.Equal(t, -1, cmp(b, c))
}

func TestAttributeKeyComparatorCaseFold(t *testing.T) {
	cmp := attributeKeyComparator(KeyCompareCaseFoldUnicode)
	a := encodeAttributeKey(AttributeKey{CNID: 1, NameRaw: encodeUTF16BE("Quarantine")})[2:]
	b := encodeAttributeKey(AttributeKey{CNID: 1, NameRaw: encodeUTF16BE("quarantine")})[2:]
	assert.Equal(t, 0, cmp(a, b))
}
