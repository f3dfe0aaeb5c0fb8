package fingerprint

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/himanishpuri/acousticmatch/pkg/models"
)

// syntheticFingerprint builds n codes spaced step frames apart starting at
// code value seed. Codes are unique within the fingerprint.
func syntheticFingerprint(n int, seed uint32, step uint32) models.Fingerprint {
	fp := models.Fingerprint{
		Codes:       make([]uint32, n),
		Times:       make([]uint32, n),
		CodeVersion: "4.12",
	}
	for i := 0; i < n; i++ {
		fp.Codes[i] = (seed*7919 + uint32(i)*104729) % MaxValue
		fp.Times[i] = uint32(i) * step
	}
	return fp
}

func TestClampLength(t *testing.T) {
	// 43.45 frames per second: 10s from t=100 ends at 534.5
	fp := models.Fingerprint{
		Codes: []uint32{1, 2, 3, 4, 5},
		Times: []uint32{100, 300, 534, 535, 900},
	}

	got := ClampLength(fp, 10)
	if diff := cmp.Diff([]uint32{100, 300, 534}, got.Times); diff != "" {
		t.Errorf("Times mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]uint32{1, 2, 3}, got.Codes); diff != "" {
		t.Errorf("Codes mismatch (-want +got):\n%s", diff)
	}

	// the input must not be modified
	if len(fp.Codes) != 5 {
		t.Errorf("Expected input to keep 5 codes, got %d", len(fp.Codes))
	}
}

func TestClampLengthDefaultsToSixtySeconds(t *testing.T) {
	fp := syntheticFingerprint(4000, 1, 1)

	got := ClampLength(fp, 0)
	want := int(60*models.FramesPerSecond) + 1 // times 0..2607
	if got.Len() != want {
		t.Errorf("Expected %d codes, got %d", want, got.Len())
	}
}

func TestClampLengthIdempotent(t *testing.T) {
	fp := syntheticFingerprint(3000, 2, 3)

	once := ClampLength(fp, 30)
	for _, ceiling := range []float64{30, 45, MaxIngestSeconds} {
		again := ClampLength(once, ceiling)
		if diff := cmp.Diff(once.Times, again.Times); diff != "" {
			t.Errorf("ceiling %v changed an already clamped fingerprint (-want +got):\n%s", ceiling, diff)
		}
	}
}

func TestClampLengthEmpty(t *testing.T) {
	got := ClampLength(models.Fingerprint{CodeVersion: "4.12"}, 60)
	if got.Len() != 0 {
		t.Errorf("Expected empty fingerprint, got %d codes", got.Len())
	}
	if got.CodeVersion != "4.12" {
		t.Errorf("Expected metadata to be preserved, got version %q", got.CodeVersion)
	}
}
