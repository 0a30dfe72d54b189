package hfs

import (
	"golang.org/x/text/encoding/charmap"
)

// macRomanToString decodes an HFS Pascal-string name body (already sliced to
// its declared length) from MacRoman into a Go string, so that catalog names
// read and compare the way the classic Mac OS stored them.
func macRomanToString(raw []byte) string {
	out, err := charmap.Macintosh.NewDecoder().Bytes(raw)
	if err != nil {
		// Undecodable bytes are vanishingly rare on real volumes (reserved
		// code points); fall back to the raw bytes rather than failing the
		// whole catalog walk over one bad name.
		return string(raw)
	}
	return string(out)
}

// stringToMacRoman encodes a Go string into MacRoman for formatter/repair
// paths that synthesize an HFS Pascal-string name.
func stringToMacRoman(s string) []byte {
	out, err := charmap.Macintosh.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return []byte(s)
	}
	return out
}

// compareMacRoman implements the HFS catalog-key name comparator (§4.4): a
// byte comparison of the MacRoman-encoded names with ASCII letters folded to
// lower case (foldMacRomanByte), matching classic Mac
// OS's `RelString` in its case-insensitive-but-byte-ordered mode for the
// common case of ASCII-range names.
func compareMacRoman(a, b []byte) int {
	la, lb := len(a), len(b)
	n := la
	if lb < n {
		n = lb
	}
	for i := 0; i < n; i++ {
		ca, cb := foldMacRomanByte(a[i]), foldMacRomanByte(b[i])
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
	}
	switch {
	case la < lb:
		return -1
	case la > lb:
		return 1
	default:
		return 0
	}
}

// foldMacRomanByte folds ASCII-range case for HFS's case-insensitive
// ordering; bytes above 0x7F (accented/symbol range) compare by raw value,
// matching the source's simplified ordering for the non-ASCII MacRoman
// range.
func foldMacRomanByte(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c - 'A' + 'a'
	}
	return c
}
