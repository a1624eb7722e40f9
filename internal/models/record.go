package models

import "time"

// Record is one normalized set, flattened out of its session. An exercise
// tagged with several categories produces one Record per category for the
// same set; Seq identifies the set so the copies can be collapsed again.
type Record struct {
	Date     time.Time `json:"date"`
	Exercise string    `json:"exercise"`
	Category string    `json:"category"`
	Weight   float64   `json:"weight"`
	Reps     int       `json:"reps"`
	Volume   float64   `json:"volume"`
	SetNum   int       `json:"set"`
	Seq      int       `json:"seq"`
	Cardio   bool      `json:"cardio,omitempty"`
}

// SetKey identifies the underlying set of a record regardless of category.
type SetKey struct {
	Date     time.Time
	Exercise string
	Weight   float64
	Reps     int
	Seq      int
}

// Key returns the set identity used to undo category explosion.
func (r Record) Key() SetKey {
	return SetKey{Date: r.Date, Exercise: r.Exercise, Weight: r.Weight, Reps: r.Reps, Seq: r.Seq}
}

// DateLayout is the canonical session date format.
const DateLayout = "2006-01-02"
