package hfs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMacTimeZeroIsZeroTime(t *testing.T) {
	assert.True(t, macTime(0).IsZero())
}

func TestMacTimeRoundTrip(t *testing.T) {
	// 2020-01-01 00:00:00 UTC, a value safely within the representable range.
	want := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	stamp := toMacTime(want)
	got := macTime(stamp)
	assert.True(t, want.Equal(got), "expected %v, got %v", want, got)
}

func TestToMacTimeClampsBeforeEpoch(t *testing.T) {
	before1904 := time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, uint32(0), toMacTime(before1904))
}

func TestToMacTimeClampsAtY2K40(t *testing.T) {
	farFuture := time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, hfsMaxTime, toMacTime(farFuture))
}

func TestSafeNowClampsWithinMargin(t *testing.T) {
	wrapPoint := macTime(hfsMaxTime)
	nearWrap := wrapPoint.Add(-1 * time.Hour)

	clamped := safeNow(nearWrap)
	assert.True(t, clamped.Before(nearWrap), "safeNow should clamp a timestamp within the Y2K40 margin")
	assert.True(t, wrapPoint.Sub(clamped) >= y2k40Margin)
}

func TestSafeNowPassesThroughOrdinaryDates(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	assert.True(t, now.Equal(safeNow(now)))
}
