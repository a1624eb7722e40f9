package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Session is one training day. Date is the collection key and is kept as
// entered; validation happens during normalization.
type Session struct {
	Date      string     `json:"date"`
	Exercises []Exercise `json:"exercises"`
}

// Exercise is one movement within a session. Weight applies to every set.
type Exercise struct {
	Name   string     `json:"name"`
	Sets   []Set      `json:"sets"`
	Weight *RawWeight `json:"weight"`
	Muscle string     `json:"muscle,omitempty"`
}

// Set is one set of an exercise. Ordinals are not required to be unique.
type Set struct {
	Set  int `json:"set"`
	Reps int `json:"reps"`
}

// RawWeight is the load token as entered ("30", "9,5", "20kg", "10-12").
// It decodes from a JSON string or number; null leaves the pointer nil.
type RawWeight string

// NewRawWeight returns a pointer to the trimmed token, or nil when empty.
func NewRawWeight(s string) *RawWeight {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	w := RawWeight(s)
	return &w
}

// String returns the raw token, "" for a nil weight.
func (w *RawWeight) String() string {
	if w == nil {
		return ""
	}
	return string(*w)
}

func (w *RawWeight) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*w = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("decoding weight: %w", err)
		}
		*w = RawWeight(s)
		return nil
	}
	// Numbers keep their literal text so "9.5" and 9.5 sanitize identically.
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("decoding weight: %w", err)
	}
	*w = RawWeight(n.String())
	return nil
}

// UnmarshalJSON accepts reps and set ordinals given as numbers, numeric
// strings or null. Anything that is not a non-negative integer becomes 0.
func (s *Set) UnmarshalJSON(b []byte) error {
	var aux struct {
		Set  json.RawMessage `json:"set"`
		Reps json.RawMessage `json:"reps"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return fmt.Errorf("decoding set: %w", err)
	}
	s.Set, _ = ParseCount(aux.Set)
	s.Reps, _ = ParseCount(aux.Reps)
	return nil
}

// ErrBadCount is returned by ParseCount for values that are present but
// not a non-negative whole number.
var ErrBadCount = errors.New("not a non-negative whole number")

// ParseCount reads a JSON count given as a number or numeric string.
// Absent and null are 0 without error; anything else unreadable is 0 with
// ErrBadCount.
func ParseCount(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, nil
	}
	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, fmt.Errorf("%w: %s", ErrBadCount, raw)
		}
	}
	text = strings.TrimSpace(text)
	if n, err := strconv.Atoi(text); err == nil && n >= 0 {
		return n, nil
	}
	// Whole floats such as 10.0 are accepted; fractions are not reps.
	if f, err := strconv.ParseFloat(text, 64); err == nil && f >= 0 && f == float64(int(f)) {
		return int(f), nil
	}
	return 0, fmt.Errorf("%w: %s", ErrBadCount, raw)
}

// SetCount returns the total number of sets across all exercises.
func (s Session) SetCount() int {
	n := 0
	for _, ex := range s.Exercises {
		n += len(ex.Sets)
	}
	return n
}
