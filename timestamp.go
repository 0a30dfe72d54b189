package hfs

import "time"

// hfsEpochDiff is the number of seconds between the HFS epoch
// (1904-01-01 00:00:00 UTC) and the Unix epoch.
const hfsEpochDiff = 2082844800

// hfsMaxTime is the largest representable HFS/HFS+ timestamp (2040-02-06,
// the Y2K40 wrap point).
const hfsMaxTime uint32 = 0xFFFFFFFF

// y2k40Margin is subtracted from hfsMaxTime for the formatter's date
// safeguard (§4.6): never write a timestamp within ten years of the wrap.
const y2k40Margin = 10 * 365 * 24 * time.Hour

// macTime converts an on-disk HFS/HFS+ timestamp (seconds since 1904, as if
// always local-time-as-UTC per the source's documented quirk) into a Go
// time.Time.
func macTime(stamp uint32) time.Time {
	if stamp == 0 {
		return time.Time{}
	}
	return time.Unix(int64(stamp)-hfsEpochDiff, 0).UTC()
}

// toMacTime converts a Go time.Time into an on-disk HFS/HFS+ timestamp,
// clamping to the representable range.
func toMacTime(t time.Time) uint32 {
	secs := t.Unix() + hfsEpochDiff
	if secs < 0 {
		return 0
	}
	if secs > int64(hfsMaxTime) {
		return hfsMaxTime
	}
	return uint32(secs)
}

// safeNow returns the current time clamped per §4.6's date safeguard, so
// that volumes formatted near the end of the representable range don't wrap.
func safeNow(now time.Time) time.Time {
	latest := macTime(hfsMaxTime).Add(-y2k40Margin)
	if now.After(latest) {
		return latest
	}
	return now
}
