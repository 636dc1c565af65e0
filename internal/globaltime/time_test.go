package globaltime

import (
	"testing"
	"time"
)

func TestMockTime(t *testing.T) {
	frozen := time.Date(2025, 3, 1, 9, 0, 0, 0, time.FixedZone("LKT", 5*3600+1800))
	SetMockTime(frozen)
	defer ResetTime()

	if got := UTC(); !got.Equal(frozen) || got.Location() != time.UTC {
		t.Fatalf("unexpected UTC time: %v", got)
	}
	if got := Since(frozen.Add(-90 * time.Second)); got != 90*time.Second {
		t.Fatalf("unexpected Since: %v", got)
	}
}
