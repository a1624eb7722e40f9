// Package sanitize turns free-form numeric tokens from workout logs into
// clean numbers. Malformed input never aborts the caller: it degrades to
// zero and the returned error says why, so callers can count failures.
package sanitize

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMalformed is returned (wrapped) when a non-empty token cannot be read
// as a finite, non-negative number. The accompanying value is always 0.
var ErrMalformed = errors.New("malformed numeric token")

// ParseWeight converts a raw weight token to kilograms-as-entered.
//
//	""        -> 0
//	"9,5"     -> 9.5
//	"20 kg"   -> 20
//	"10-12"   -> 11
//	"garbage" -> 0, ErrMalformed
func ParseWeight(raw string) (float64, error) {
	if isAbsent(raw) {
		return 0, nil
	}

	cleaned := clean(raw)
	if cleaned == "" {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, raw)
	}

	// A dash after the first character marks a range; a leading dash is a sign.
	if i := strings.Index(cleaned[1:], "-"); i >= 0 {
		lo, errLo := parseFinite(cleaned[:i+1])
		hi, errHi := parseFinite(cleaned[i+2:])
		if errLo != nil || errHi != nil {
			return 0, fmt.Errorf("%w: range %q", ErrMalformed, raw)
		}
		return (lo + hi) / 2, nil
	}

	v, err := parseFinite(cleaned)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, raw)
	}
	return v, nil
}

// Weight is ParseWeight without the error.
func Weight(raw string) float64 {
	v, _ := ParseWeight(raw)
	return v
}

// ParseReps reads a repetition count. Fractions are truncated toward zero;
// anything unreadable or negative is 0 with ErrMalformed.
func ParseReps(raw string) (int, error) {
	if isAbsent(raw) {
		return 0, nil
	}
	if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && n >= 0 {
		return n, nil
	}
	v, err := parseFinite(clean(raw))
	if err != nil || v > math.MaxInt32 {
		return 0, fmt.Errorf("%w: reps %q", ErrMalformed, raw)
	}
	return int(v), nil
}

// Format renders a sanitized weight in its shortest exact decimal form.
// ParseWeight(Format(v)) == v for every value ParseWeight can return.
func Format(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func isAbsent(raw string) bool {
	s := strings.TrimSpace(raw)
	return s == "" || strings.EqualFold(s, "none") || strings.EqualFold(s, "null")
}

// clean keeps digits, separators and dashes, then folds the decimal comma.
func clean(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		case r == ',':
			b.WriteByte('.')
		}
	}
	return b.String()
}

func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, fmt.Errorf("out of range: %v", v)
	}
	return v, nil
}
