// Package course validates decoded punch lists against course definitions.
package course

import (
	"errors"

	"github.com/tmerle/sireader/internal/card"
)

// Course describes one course of the event. Codes are the expected
// controls; Inline courses require them in order, score courses in any
// order. UseBoxStart and FixedStart tell consumers where the runner's race
// time starts; they do not affect control matching.
type Course struct {
	Name        string
	Codes       []uint16
	Inline      bool
	UseBoxStart bool
	FixedStart  int64
}

// ControlResult is the outcome for one expected control.
type ControlResult struct {
	Code  uint16
	Found bool
	Time  int64
}

// Result is the outcome of validating one punch list against one course.
type Result struct {
	Course       *Course
	Controls     []ControlResult
	MissingCount int
	Extras       []uint16
	AllCorrect   bool
}

// ErrNoCourses is returned by AutoDetect when no course was supplied.
var ErrNoCourses = errors.New("no courses to check against")

// Validate checks punches against the course, dispatching on its kind.
func Validate(c *Course, punches []card.Punch) *Result {
	if c.Inline {
		return validateInline(c, punches)
	}
	return validateScore(c, punches)
}

// AutoDetect validates punches against every course and returns the best
// result: fewest missing controls, ties going to the longer course (a
// shorter course is more likely an accidental prefix match).
func AutoDetect(courses []*Course, punches []card.Punch) (*Result, error) {
	if len(courses) == 0 {
		return nil, ErrNoCourses
	}
	var best *Result
	for _, c := range courses {
		r := Validate(c, punches)
		if best == nil || r.MissingCount < best.MissingCount ||
			(r.MissingCount == best.MissingCount && len(r.Course.Codes) > len(best.Course.Codes)) {
			best = r
		}
	}
	return best, nil
}

// RaceTime returns the runner's race time in ms for this course, or
// card.NoTime when start or finish is unknown. Courses with a fixed mass
// start time it from there; box-start courses use the card's start punch,
// falling back to the check time.
func RaceTime(c *Course, rec *card.Record) int64 {
	start := c.FixedStart
	if c.UseBoxStart || c.FixedStart == 0 {
		start = rec.Start
		if start == card.NoTime {
			start = rec.Check
		}
	}
	if start == card.NoTime || rec.Finish == card.NoTime {
		return card.NoTime
	}
	return rec.Finish - start
}

func validateScore(c *Course, punches []card.Punch) *Result {
	used := make([]bool, len(punches))
	controls := make([]ControlResult, 0, len(c.Codes))
	missing := 0
	for _, code := range c.Codes {
		found := false
		for j, p := range punches {
			if !used[j] && p.Code == code {
				used[j] = true
				controls = append(controls, ControlResult{Code: code, Found: true, Time: p.Time})
				found = true
				break
			}
		}
		if !found {
			controls = append(controls, ControlResult{Code: code, Found: false, Time: card.NoTime})
			missing++
		}
	}
	return &Result{
		Course:       c,
		Controls:     controls,
		MissingCount: missing,
		Extras:       extraControls(c, punches),
		AllCorrect:   missing == 0,
	}
}

// extraControls lists every punched code that is not part of the course,
// in punch order.
func extraControls(c *Course, punches []card.Punch) []uint16 {
	extras := []uint16{}
	for _, p := range punches {
		if !courseHas(c, p.Code) {
			extras = append(extras, p.Code)
		}
	}
	return extras
}

func courseHas(c *Course, code uint16) bool {
	for _, v := range c.Codes {
		if v == code {
			return true
		}
	}
	return false
}
