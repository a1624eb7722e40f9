// Package aggregate computes the summary tables served to clients. Every
// function is pure over a slice of normalized records.
//
// Records carry one copy per category of an exercise, so anything that
// measures sets rather than muscles first collapses the copies with
// Dedup. Only VolumeByCategory works on the exploded rows.
package aggregate

import (
	"cmp"
	"slices"
	"time"

	"github.com/claude/liftlog/internal/models"
)

// CategoryVolume is the total volume attributed to one muscle group.
type CategoryVolume struct {
	Category string  `json:"category"`
	Volume   float64 `json:"volume"`
}

// DayVolume is the deduplicated volume of one training day.
type DayVolume struct {
	Date   string  `json:"date"`
	Volume float64 `json:"volume"`
}

// ProgressionPoint summarizes one exercise on one day.
type ProgressionPoint struct {
	Date      string  `json:"date"`
	Exercise  string  `json:"exercise"`
	MaxWeight float64 `json:"max_weight"`
	Volume    float64 `json:"volume"`
	AvgReps   float64 `json:"avg_reps"`
	Sets      int     `json:"sets"`
}

// WeekdayCount is the number of distinct training days on a weekday.
type WeekdayCount struct {
	Weekday  string `json:"weekday"`
	Sessions int    `json:"sessions"`
}

// ExerciseCount is the number of distinct sets logged for an exercise.
type ExerciseCount struct {
	Exercise string `json:"exercise"`
	Sets     int    `json:"sets"`
}

// Overview is the headline summary of a record set.
type Overview struct {
	TotalVolume  float64 `json:"total_volume"`
	Sessions     int     `json:"sessions"`
	AvgIntensity float64 `json:"avg_intensity"`
	TotalSets    int     `json:"total_sets"`
	TotalReps    int     `json:"total_reps"`
	Exercises    int     `json:"exercises"`
	FirstWorkout string  `json:"first_workout,omitempty"`
	LastWorkout  string  `json:"last_workout,omitempty"`
}

// Weekdays lists day names in report order.
var Weekdays = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// Dedup keeps the first record of every set identity, in input order.
func Dedup(records []models.Record) []models.Record {
	seen := make(map[models.SetKey]struct{}, len(records))
	out := make([]models.Record, 0, len(records))
	for _, r := range records {
		k := r.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

// TotalVolume sums volume over distinct sets.
func TotalVolume(records []models.Record) float64 {
	var total float64
	for _, r := range Dedup(records) {
		total += r.Volume
	}
	return total
}

// VolumeByCategory sums exploded volume per category, largest first. A set
// tagged with two categories counts fully toward both.
func VolumeByCategory(records []models.Record) []CategoryVolume {
	byCat := make(map[string]float64)
	for _, r := range records {
		byCat[r.Category] += r.Volume
	}
	out := make([]CategoryVolume, 0, len(byCat))
	for cat, vol := range byCat {
		out = append(out, CategoryVolume{Category: cat, Volume: vol})
	}
	slices.SortFunc(out, func(a, b CategoryVolume) int {
		if c := cmp.Compare(b.Volume, a.Volume); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})
	return out
}

// DailyVolume sums distinct-set volume per day, oldest first.
func DailyVolume(records []models.Record) []DayVolume {
	byDay := make(map[time.Time]float64)
	for _, r := range Dedup(records) {
		byDay[r.Date] += r.Volume
	}
	days := sortedKeys(byDay)
	out := make([]DayVolume, len(days))
	for i, d := range days {
		out[i] = DayVolume{Date: d.Format(models.DateLayout), Volume: byDay[d]}
	}
	return out
}

// Progression returns one point per day the exercise was trained, oldest
// first. Names must match exactly.
func Progression(records []models.Record, exercise string) []ProgressionPoint {
	var filtered []models.Record
	for _, r := range records {
		if r.Exercise == exercise {
			filtered = append(filtered, r)
		}
	}
	return ProgressionByExercise(filtered)
}

// ProgressionByExercise groups distinct sets by (date, exercise), ordered
// by date then name.
func ProgressionByExercise(records []models.Record) []ProgressionPoint {
	type key struct {
		date     time.Time
		exercise string
	}
	type acc struct {
		max    float64
		volume float64
		reps   int
		sets   int
	}
	groups := make(map[key]*acc)
	for _, r := range Dedup(records) {
		k := key{r.Date, r.Exercise}
		a, ok := groups[k]
		if !ok {
			a = &acc{}
			groups[k] = a
		}
		a.max = max(a.max, r.Weight)
		a.volume += r.Volume
		a.reps += r.Reps
		a.sets++
	}

	out := make([]ProgressionPoint, 0, len(groups))
	for k, a := range groups {
		out = append(out, ProgressionPoint{
			Date:      k.date.Format(models.DateLayout),
			Exercise:  k.exercise,
			MaxWeight: a.max,
			Volume:    a.volume,
			AvgReps:   float64(a.reps) / float64(a.sets),
			Sets:      a.sets,
		})
	}
	slices.SortFunc(out, func(a, b ProgressionPoint) int {
		if c := cmp.Compare(a.Date, b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.Exercise, b.Exercise)
	})
	return out
}

// SessionCount is the number of distinct training days.
func SessionCount(records []models.Record) int {
	return len(distinctDays(records))
}

// ConsistencyByWeekday counts distinct training days per weekday. The result
// always has seven rows, Monday first.
func ConsistencyByWeekday(records []models.Record) []WeekdayCount {
	counts := make(map[time.Weekday]int, 7)
	for d := range distinctDays(records) {
		counts[d.Weekday()]++
	}
	out := make([]WeekdayCount, len(Weekdays))
	for i, wd := range Weekdays {
		out[i] = WeekdayCount{Weekday: wd.String(), Sessions: counts[wd]}
	}
	return out
}

// TopExercises ranks exercises by distinct set count, most first, ties by
// name. n <= 0 returns every exercise.
func TopExercises(records []models.Record, n int) []ExerciseCount {
	counts := make(map[string]int)
	for _, r := range Dedup(records) {
		counts[r.Exercise]++
	}
	out := make([]ExerciseCount, 0, len(counts))
	for name, c := range counts {
		out = append(out, ExerciseCount{Exercise: name, Sets: c})
	}
	slices.SortFunc(out, func(a, b ExerciseCount) int {
		if c := cmp.Compare(b.Sets, a.Sets); c != 0 {
			return c
		}
		return cmp.Compare(a.Exercise, b.Exercise)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Exercises returns the sorted distinct exercise names.
func Exercises(records []models.Record) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, r := range records {
		if _, ok := seen[r.Exercise]; ok {
			continue
		}
		seen[r.Exercise] = struct{}{}
		out = append(out, r.Exercise)
	}
	slices.Sort(out)
	return out
}

// Summarize builds the headline overview. Average intensity is the mean
// weight over distinct sets that carried a load.
func Summarize(records []models.Record) Overview {
	unique := Dedup(records)
	ov := Overview{
		Sessions:  SessionCount(records),
		TotalSets: len(unique),
		Exercises: len(Exercises(records)),
	}

	var weightSum float64
	var weighted int
	var first, last time.Time
	for _, r := range unique {
		ov.TotalVolume += r.Volume
		ov.TotalReps += r.Reps
		if r.Weight > 0 {
			weightSum += r.Weight
			weighted++
		}
		if first.IsZero() || r.Date.Before(first) {
			first = r.Date
		}
		if r.Date.After(last) {
			last = r.Date
		}
	}
	if weighted > 0 {
		ov.AvgIntensity = weightSum / float64(weighted)
	}
	if !first.IsZero() {
		ov.FirstWorkout = first.Format(models.DateLayout)
		ov.LastWorkout = last.Format(models.DateLayout)
	}
	return ov
}

// FilterRange keeps records dated within [start, end]. A zero bound is open.
func FilterRange(records []models.Record, start, end time.Time) []models.Record {
	if start.IsZero() && end.IsZero() {
		return records
	}
	out := make([]models.Record, 0, len(records))
	for _, r := range records {
		if !start.IsZero() && r.Date.Before(start) {
			continue
		}
		if !end.IsZero() && r.Date.After(end) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func distinctDays(records []models.Record) map[time.Time]struct{} {
	days := make(map[time.Time]struct{})
	for _, r := range records {
		days[r.Date] = struct{}{}
	}
	return days
}

func sortedKeys[V any](m map[time.Time]V) []time.Time {
	keys := make([]time.Time, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b time.Time) int { return a.Compare(b) })
	return keys
}
