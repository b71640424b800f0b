package ingestion

import (
	"strings"
	"testing"
	"time"
)

const (
	issName  = "ISS (ZARYA)"
	issLine1 = "1 25544U 98067A   24100.50000000  .00016717  00000-0  10270-3 0  9005"
	issLine2 = "2 25544  51.6400 100.0000 0001000   0.0000   0.0000 15.50000000    09"
)

// TestParseThreeLineFormat verifies a well-formed 3-line TLE block round-trips
// into a TLEEntry with the name trimmed and the epoch decoded.
func TestParseThreeLineFormat(t *testing.T) {
	block := strings.Join([]string{issName, issLine1, issLine2}, "\n")

	entries, err := Parse(strings.NewReader(block), testLogger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}

	e := entries[0]
	if e.NORADID != 25544 {
		t.Errorf("NORADID = %d, want 25544", e.NORADID)
	}
	if e.Name != issName {
		t.Errorf("Name = %q, want %q", e.Name, issName)
	}
	wantEpoch := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 99).Add(12 * time.Hour)
	if !e.Epoch.Equal(wantEpoch) {
		t.Errorf("Epoch = %v, want %v", e.Epoch, wantEpoch)
	}
}

// TestParseSkipsMalformedEntries verifies a block whose line prefixes don't
// match "1 "/"2 " is skipped with a warning, not a hard failure.
func TestParseSkipsMalformedEntries(t *testing.T) {
	block := strings.Join([]string{
		issName, "garbage line one", "garbage line two",
		issName, issLine1, issLine2,
	}, "\n")

	entries, err := Parse(strings.NewReader(block), testLogger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1 (malformed block skipped)", len(entries))
	}
}

// TestToSatelliteParsesOrbitalElements verifies fixed-column field
// extraction for a real ISS TLE against known values.
func TestToSatelliteParsesOrbitalElements(t *testing.T) {
	entry := TLEEntry{NORADID: 25544, Name: issName, Line1: issLine1, Line2: issLine2}

	sat, err := ToSatellite(entry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sat.CatalogNumber != 25544 {
		t.Errorf("CatalogNumber = %d, want 25544", sat.CatalogNumber)
	}
	if sat.Inclination != 51.64 {
		t.Errorf("Inclination = %v, want 51.64", sat.Inclination)
	}
	if sat.RAAN != 100.0 {
		t.Errorf("RAAN = %v, want 100.0", sat.RAAN)
	}
	if sat.Eccentricity != 0.0001000 {
		t.Errorf("Eccentricity = %v, want 0.0001000", sat.Eccentricity)
	}
	if sat.MeanMotion != 15.5 {
		t.Errorf("MeanMotion = %v, want 15.5", sat.MeanMotion)
	}
	if !sat.Valid() {
		t.Error("expected derived elements to satisfy Valid()")
	}
	if sat.PerigeeAltitudeKm <= 0 || sat.ApogeeAltitudeKm <= 0 {
		t.Errorf("expected positive altitudes, got perigee=%v apogee=%v", sat.PerigeeAltitudeKm, sat.ApogeeAltitudeKm)
	}
}

// TestToSatelliteRejectsShortLine2 verifies a truncated line2 is rejected
// rather than silently parsed with zeroed trailing fields.
func TestToSatelliteRejectsShortLine2(t *testing.T) {
	entry := TLEEntry{NORADID: 25544, Name: issName, Line1: issLine1, Line2: "2 25544  51.6400"}

	if _, err := ToSatellite(entry); err == nil {
		t.Error("expected error for short line2")
	}
}

func TestParseImpliedDecimal(t *testing.T) {
	tests := []struct {
		field string
		want  float64
	}{
		{"0001000", 0.0001000},
		{"9999999", 0.9999999},
		{"0000000", 0},
	}
	for _, tt := range tests {
		got, err := parseImpliedDecimal(tt.field)
		if err != nil {
			t.Errorf("parseImpliedDecimal(%q): unexpected error %v", tt.field, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseImpliedDecimal(%q) = %v, want %v", tt.field, got, tt.want)
		}
	}
}

func TestParseExponential(t *testing.T) {
	tests := []struct {
		field string
		want  float64
	}{
		{" 10270-3", 0.10270e-3},
		{"-11606-4", -0.11606e-4},
		{" 00000-0", 0},
	}
	for _, tt := range tests {
		got, err := parseExponential(tt.field)
		if err != nil {
			t.Errorf("parseExponential(%q): unexpected error %v", tt.field, err)
			continue
		}
		if diff := got - tt.want; diff > 1e-12 || diff < -1e-12 {
			t.Errorf("parseExponential(%q) = %v, want %v", tt.field, got, tt.want)
		}
	}
}
