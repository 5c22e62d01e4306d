package server

import (
	"math"
	"testing"
)

func TestResolveTrimRangeBasic(t *testing.T) {
	start, end, err := resolveTrimRange(120, 5, 10, false)
	if err != nil {
		t.Fatalf("resolveTrimRange: %v", err)
	}
	if start != 5 || end != 10 {
		t.Fatalf("got [%v, %v], want [5, 10]", start, end)
	}
}

func TestResolveTrimRangeEndBeforeStart(t *testing.T) {
	for _, ringtone := range []bool{false, true} {
		if _, _, err := resolveTrimRange(120, 10, 5, ringtone); err == nil {
			t.Fatalf("ringtone=%v: inverted range accepted", ringtone)
		}
		if _, _, err := resolveTrimRange(120, 10, 10, ringtone); err == nil {
			t.Fatalf("ringtone=%v: zero-length range accepted", ringtone)
		}
	}
}

func TestResolveTrimRangeRingtoneDerivesEnd(t *testing.T) {
	start, end, err := resolveTrimRange(45, 0, math.NaN(), true)
	if err != nil {
		t.Fatalf("resolveTrimRange: %v", err)
	}
	if start != 0 || end != 30 {
		t.Fatalf("got [%v, %v], want [0, 30]", start, end)
	}
}

func TestResolveTrimRangeRingtoneClampsToDuration(t *testing.T) {
	start, end, err := resolveTrimRange(20, 0, math.NaN(), true)
	if err != nil {
		t.Fatalf("resolveTrimRange: %v", err)
	}
	if start != 0 || end != 20 {
		t.Fatalf("got [%v, %v], want [0, 20]", start, end)
	}
}

func TestResolveTrimRangeRejectsNaN(t *testing.T) {
	if _, _, err := resolveTrimRange(120, math.NaN(), 10, false); err == nil {
		t.Fatal("NaN start accepted")
	}
	if _, _, err := resolveTrimRange(120, 0, math.NaN(), false); err == nil {
		t.Fatal("NaN end accepted outside ringtone mode")
	}
}

func TestResolveTrimRangeClamps(t *testing.T) {
	// Negative start snaps to 0, overlong end snaps to the duration.
	start, end, err := resolveTrimRange(60, -3, 90, false)
	if err != nil {
		t.Fatalf("resolveTrimRange: %v", err)
	}
	if start != 0 || end != 60 {
		t.Fatalf("got [%v, %v], want [0, 60]", start, end)
	}

	// Start past the end of the media is pulled just inside it.
	start, end, err = resolveTrimRange(60, 500, 600, false)
	if err != nil {
		t.Fatalf("resolveTrimRange: %v", err)
	}
	if start != 59.9 || end != 60 {
		t.Fatalf("got [%v, %v], want [59.9, 60]", start, end)
	}
}

func TestResolveTrimRangeUnknownDuration(t *testing.T) {
	// Duration 0 means unknown: no clamping against it.
	start, end, err := resolveTrimRange(0, 10, 400, false)
	if err != nil {
		t.Fatalf("resolveTrimRange: %v", err)
	}
	if start != 10 || end != 400 {
		t.Fatalf("got [%v, %v], want [10, 400]", start, end)
	}
}

func TestResolveTrimRangeTooShort(t *testing.T) {
	if _, _, err := resolveTrimRange(120, 5, 5.005, false); err == nil {
		t.Fatal("sub-0.01s clip accepted")
	}
}
