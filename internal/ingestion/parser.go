package ingestion

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Salad109/satellite-conjunction-api/internal/satellite"
)

// Parse reads 3-line NORAD TLE format from r and returns parsed entries.
// Malformed entries are skipped with a warning log.
func Parse(r io.Reader, logger *slog.Logger) ([]TLEEntry, error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading TLE data: %w", err)
	}

	var entries []TLEEntry
	for i := 0; i+2 < len(lines); {
		name := lines[i]
		line1 := lines[i+1]
		line2 := lines[i+2]

		if !strings.HasPrefix(line1, "1 ") || !strings.HasPrefix(line2, "2 ") {
			if logger != nil {
				logger.Warn("skipping malformed TLE entry", "line_index", i, "name", name)
			}
			i++
			continue
		}

		noradStr := strings.TrimSpace(line1[2:7])
		noradID, err := strconv.Atoi(noradStr)
		if err != nil {
			if logger != nil {
				logger.Warn("skipping TLE entry with invalid NORAD ID", "norad_str", noradStr, "name", name)
			}
			i += 3
			continue
		}

		if len(line1) < 32 {
			if logger != nil {
				logger.Warn("skipping TLE entry with short line1", "name", name)
			}
			i += 3
			continue
		}
		epochStr := strings.TrimSpace(line1[18:32])
		epoch, err := parseEpoch(epochStr)
		if err != nil {
			if logger != nil {
				logger.Warn("skipping TLE entry with invalid epoch", "epoch_str", epochStr, "name", name, "error", err)
			}
			i += 3
			continue
		}

		entries = append(entries, TLEEntry{
			NORADID: noradID,
			Name:    strings.TrimSpace(name),
			Epoch:   epoch,
			Line1:   line1,
			Line2:   line2,
		})
		i += 3
	}

	return entries, nil
}

// parseEpoch converts a TLE epoch string in YYDDD.DDDDDDDD format to time.Time.
// Year 00-56 → 2000s, 57-99 → 1900s.
func parseEpoch(s string) (time.Time, error) {
	if len(s) < 5 {
		return time.Time{}, fmt.Errorf("epoch string too short: %q", s)
	}

	yearStr := s[:2]
	dayStr := s[2:]

	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch year %q: %w", yearStr, err)
	}

	if year >= 57 {
		year += 1900
	} else {
		year += 2000
	}

	dayOfYear, err := strconv.ParseFloat(dayStr, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch day %q: %w", dayStr, err)
	}

	t := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	dur := time.Duration((dayOfYear - 1) * float64(24*time.Hour))
	t = t.Add(dur)

	return t, nil
}

// ToSatellite derives a satellite.Satellite from a parsed TLEEntry by
// reading the orbital element fields out of the fixed TLE column layout
// (line 1's B*, line 2's inclination/RAAN/eccentricity/argument of
// perigee/mean anomaly/mean motion), then computing the perigee/apogee
// altitudes the same way satellite.ComputeDerivedElements does for any
// other source of elements.
func ToSatellite(entry TLEEntry) (satellite.Satellite, error) {
	if len(entry.Line2) < 63 {
		return satellite.Satellite{}, fmt.Errorf("line2 too short: %d chars", len(entry.Line2))
	}

	inclination, err := parseFixedFloat(entry.Line2[8:16])
	if err != nil {
		return satellite.Satellite{}, fmt.Errorf("inclination: %w", err)
	}
	raan, err := parseFixedFloat(entry.Line2[17:25])
	if err != nil {
		return satellite.Satellite{}, fmt.Errorf("raan: %w", err)
	}
	eccentricity, err := parseImpliedDecimal(entry.Line2[26:33])
	if err != nil {
		return satellite.Satellite{}, fmt.Errorf("eccentricity: %w", err)
	}
	argPerigee, err := parseFixedFloat(entry.Line2[34:42])
	if err != nil {
		return satellite.Satellite{}, fmt.Errorf("argument of perigee: %w", err)
	}
	meanAnomaly, err := parseFixedFloat(entry.Line2[43:51])
	if err != nil {
		return satellite.Satellite{}, fmt.Errorf("mean anomaly: %w", err)
	}
	meanMotion, err := parseFixedFloat(entry.Line2[52:63])
	if err != nil {
		return satellite.Satellite{}, fmt.Errorf("mean motion: %w", err)
	}

	var bstar float64
	if len(entry.Line1) >= 61 {
		bstar, err = parseExponential(entry.Line1[53:61])
		if err != nil {
			return satellite.Satellite{}, fmt.Errorf("bstar: %w", err)
		}
	}

	sat := satellite.Satellite{
		CatalogNumber: entry.NORADID,
		Name:          entry.Name,
		Line1:         entry.Line1,
		Line2:         entry.Line2,
		Epoch:         entry.Epoch,
		MeanMotion:    meanMotion,
		Eccentricity:  eccentricity,
		Inclination:   inclination,
		RAAN:          raan,
		ArgPerigee:    argPerigee,
		MeanAnomaly:   meanAnomaly,
		BStar:         bstar,
	}
	sat.ComputeDerivedElements()
	return sat, nil
}

// parseFixedFloat parses a plain fixed-point field (e.g. "  51.6400").
func parseFixedFloat(field string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(field), 64)
}

// parseImpliedDecimal parses a TLE eccentricity-style field with an
// implied leading decimal point (e.g. "0001000" means 0.0001000).
func parseImpliedDecimal(field string) (float64, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return 0, fmt.Errorf("empty field")
	}
	v, err := strconv.ParseFloat("0."+field, 64)
	if err != nil {
		return 0, err
	}
	return v, nil
}

// parseExponential parses a TLE drag-term field with an implied decimal
// point and trailing signed exponent digit (e.g. " 10270-3" means
// 0.10270e-3, "-11606-4" means -0.11606e-4).
func parseExponential(field string) (float64, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return 0, nil
	}

	sign := 1.0
	if strings.HasPrefix(field, "-") {
		sign = -1.0
		field = field[1:]
	} else if strings.HasPrefix(field, "+") {
		field = field[1:]
	}

	if len(field) < 2 {
		return 0, fmt.Errorf("exponential field too short: %q", field)
	}
	mantissaStr := field[:len(field)-2]
	expStr := field[len(field)-2:]

	mantissa, err := strconv.ParseFloat("0."+mantissaStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid mantissa %q: %w", mantissaStr, err)
	}
	exp, err := strconv.Atoi(expStr)
	if err != nil {
		return 0, fmt.Errorf("invalid exponent %q: %w", expStr, err)
	}

	return sign * mantissa * pow10(exp), nil
}

func pow10(n int) float64 {
	result := 1.0
	neg := n < 0
	if neg {
		n = -n
	}
	for i := 0; i < n; i++ {
		result *= 10
	}
	if neg {
		return 1 / result
	}
	return result
}
