package hfs

import (
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// decodeUTF16BE turns a big-endian UTF-16 code-unit slice (as stored in an
// HFS+ catalog key) into a Go string.
func decodeUTF16BE(raw []byte, unitCount int) string {
	units := make([]uint16, unitCount)
	for i := 0; i < unitCount; i++ {
		units[i] = u16(raw[i*2:])
	}
	return string(utf16.Decode(units))
}

// encodeUTF16BE turns a Go string into a big-endian UTF-16 code-unit slice,
// for the formatter's root-folder record and any synthesized catalog name.
func encodeUTF16BE(s string) []byte {
	units := utf16.Encode([]rune(s))
	out := make([]byte, len(units)*2)
	for i, u := range units {
		putU16(out[i*2:], u)
	}
	return out
}

// compareCaseBinaryUTF16 implements the HFSX (key-compare type 0xBC) name
// comparator (§4.4): unsigned 16-bit code-unit sequence comparison, with no
// folding.
func compareCaseBinaryUTF16(a, b []byte, aUnits, bUnits int) int {
	n := aUnits
	if bUnits < n {
		n = bUnits
	}
	for i := 0; i < n; i++ {
		ca, cb := u16(a[i*2:]), u16(b[i*2:])
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
	}
	switch {
	case aUnits < bUnits:
		return -1
	case aUnits > bUnits:
		return 1
	default:
		return 0
	}
}

// compareCaseFoldUTF16 implements the HFS+ standard name comparator
// (key-compare type 0xCF, §4.4): each name is first run through Unicode
// canonical decomposition (so that precomposed and decomposed forms of the
// same letter fold identically, matching HFS+'s documented behavior) via
// golang.org/x/text/unicode/norm, then each decomposed code unit is passed
// through the Apple case-fold table below, and the two folded sequences are
// compared as unsigned 16-bit values.
func compareCaseFoldUTF16(a, b []byte, aUnits, bUnits int) int {
	fa := foldedUnits(a, aUnits)
	fb := foldedUnits(b, bUnits)

	n := len(fa)
	if len(fb) < n {
		n = len(fb)
	}
	for i := 0; i < n; i++ {
		if fa[i] != fb[i] {
			if fa[i] < fb[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(fa) < len(fb):
		return -1
	case len(fa) > len(fb):
		return 1
	default:
		return 0
	}
}

// foldedUnits decomposes and case-folds a big-endian UTF-16 name, dropping
// code units the fold table maps to zero (combining marks HFS+ ignores for
// ordering purposes), matching Apple's documented FastUnicodeCompare table
// semantics.
func foldedUnits(raw []byte, unitCount int) []uint16 {
	s := decodeUTF16BE(raw, unitCount)
	decomposed := norm.NFD.String(s)

	units := utf16.Encode([]rune(decomposed))
	out := make([]uint16, 0, len(units))
	for _, u := range units {
		folded := appleCaseFold(u)
		if folded != 0 {
			out = append(out, folded)
		}
	}
	return out
}

// appleCaseFold maps a single UTF-16 code unit through a small subset of
// Apple's documented case-fold table (TN1150 appendix): uppercase Latin-1
// and basic Latin fold to lowercase; combining diacritical marks
// (U+0300-U+036F) fold to zero (ignored for ordering, consistent with
// HFS+ treating canonically-decomposed accents as ordering-neutral);
// everything else passes through unchanged.
func appleCaseFold(u uint16) uint16 {
	switch {
	case u >= 'A' && u <= 'Z':
		return u - 'A' + 'a'
	case u >= 0x00C0 && u <= 0x00DE && u != 0x00D7:
		return u + 0x20
	case u >= 0x0300 && u <= 0x036F:
		return 0
	default:
		return u
	}
}
