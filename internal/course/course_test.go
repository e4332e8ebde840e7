package course

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmerle/sireader/internal/card"
)

func punchRow(codes []uint16, times []int64) []card.Punch {
	punches := make([]card.Punch, len(codes))
	for i, c := range codes {
		punches[i] = card.Punch{Code: c, Time: times[i]}
	}
	return punches
}

func inlineCourse(name string, codes ...uint16) *Course {
	return &Course{Name: name, Codes: codes, Inline: true}
}

func TestInlineAllCorrect(t *testing.T) {
	c := inlineCourse("A", 31, 32, 33, 34, 35)
	punches := punchRow([]uint16{31, 32, 33, 34, 35}, []int64{1000, 2000, 3000, 4000, 5000})

	res := Validate(c, punches)

	assert.True(t, res.AllCorrect)
	assert.Zero(t, res.MissingCount)
	assert.Empty(t, res.Extras)
	require.Len(t, res.Controls, len(c.Codes))
	for i, cr := range res.Controls {
		assert.True(t, cr.Found)
		assert.Equal(t, c.Codes[i], cr.Code)
		assert.Equal(t, int64(i+1)*1000, cr.Time)
	}
}

func TestInlineMissingMiddle(t *testing.T) {
	c := inlineCourse("A", 31, 32, 33, 34, 35)
	punches := punchRow([]uint16{31, 32, 34, 35}, []int64{1000, 2000, 3000, 4000})

	res := Validate(c, punches)

	assert.False(t, res.AllCorrect)
	assert.Equal(t, 1, res.MissingCount)
	require.Len(t, res.Controls, 5)
	assert.Equal(t, uint16(33), res.Controls[2].Code)
	assert.False(t, res.Controls[2].Found)
	assert.Equal(t, card.NoTime, res.Controls[2].Time)
	for _, i := range []int{0, 1, 3, 4} {
		assert.True(t, res.Controls[i].Found, "control %d", i)
	}
}

func TestInlineWithExtraControl(t *testing.T) {
	c := inlineCourse("A", 31, 32, 33, 34, 35)
	punches := punchRow([]uint16{31, 99, 32, 33, 34, 35}, []int64{1, 2, 3, 4, 5, 6})

	res := Validate(c, punches)

	assert.True(t, res.AllCorrect)
	assert.Equal(t, []uint16{99}, res.Extras)
}

func TestInlineEmptyPunchList(t *testing.T) {
	c := inlineCourse("A", 31, 32, 33)

	res := Validate(c, nil)

	assert.False(t, res.AllCorrect)
	assert.Equal(t, len(c.Codes), res.MissingCount)
	require.Len(t, res.Controls, len(c.Codes))
	for _, cr := range res.Controls {
		assert.False(t, cr.Found)
	}
}

func TestInlineOutOfOrderIsPenalised(t *testing.T) {
	c := inlineCourse("A", 31, 32, 33)
	punches := punchRow([]uint16{33, 32, 31}, []int64{1, 2, 3})

	res := Validate(c, punches)

	assert.False(t, res.AllCorrect)
	assert.NotZero(t, res.MissingCount)
}

// Validating a correct run, then re-validating its own control results as
// punches, is a fixed point.
func TestInlineRoundTripFixedPoint(t *testing.T) {
	c := inlineCourse("A", 31, 32, 33, 34, 35)
	punches := punchRow([]uint16{31, 32, 33, 34, 35}, []int64{1000, 2000, 3000, 4000, 5000})

	first := Validate(c, punches)
	require.True(t, first.AllCorrect)

	again := make([]card.Punch, 0, len(first.Controls))
	for _, cr := range first.Controls {
		again = append(again, card.Punch{Code: cr.Code, Time: cr.Time})
	}
	second := Validate(c, again)

	assert.Equal(t, first.Controls, second.Controls)
	assert.True(t, second.AllCorrect)
	assert.Empty(t, second.Extras)
}

func TestScoreUnordered(t *testing.T) {
	c := &Course{Name: "S", Codes: []uint16{31, 32, 33, 34, 35}}
	punches := punchRow([]uint16{35, 33, 31, 34, 32}, []int64{1, 2, 3, 4, 5})

	res := Validate(c, punches)

	assert.True(t, res.AllCorrect)
	assert.Zero(t, res.MissingCount)
	assert.Empty(t, res.Extras)
}

// With duplicated expected codes, each match consumes a distinct punch;
// the surplus duplicate is missed.
func TestScoreDuplicateCodes(t *testing.T) {
	c := &Course{Name: "S", Codes: []uint16{31, 31, 32}}
	punches := punchRow([]uint16{31, 32}, []int64{10, 20})

	res := Validate(c, punches)

	assert.False(t, res.AllCorrect)
	assert.Equal(t, 1, res.MissingCount)
	require.Len(t, res.Controls, 3)
	assert.True(t, res.Controls[0].Found)
	assert.Equal(t, int64(10), res.Controls[0].Time)
	assert.False(t, res.Controls[1].Found, "second duplicate has no punch left")
	assert.True(t, res.Controls[2].Found)
}

func TestAutoDetectPicksBestCourse(t *testing.T) {
	a := inlineCourse("A", 31, 32, 33)
	b := inlineCourse("B", 31, 34, 35)
	punches := punchRow([]uint16{31, 34, 35}, []int64{1, 2, 3})

	res, err := AutoDetect([]*Course{a, b}, punches)
	require.NoError(t, err)

	assert.Equal(t, "B", res.Course.Name)
	assert.True(t, res.AllCorrect)
}

func TestAutoDetectPrefersLongerCourseOnTie(t *testing.T) {
	short := inlineCourse("short", 31, 32)
	long := inlineCourse("long", 31, 32, 33)
	punches := punchRow([]uint16{31, 32, 33}, []int64{1, 2, 3})

	res, err := AutoDetect([]*Course{short, long}, punches)
	require.NoError(t, err)
	assert.Equal(t, "long", res.Course.Name)
}

func TestAutoDetectNoCourses(t *testing.T) {
	_, err := AutoDetect(nil, nil)
	assert.ErrorIs(t, err, ErrNoCourses)
}

func TestRaceTime(t *testing.T) {
	rec := &card.Record{Start: 36_000_000, Finish: 39_600_000, Check: 35_000_000}

	boxStart := &Course{Name: "box", UseBoxStart: true}
	assert.Equal(t, int64(3_600_000), RaceTime(boxStart, rec))

	mass := &Course{Name: "mass", FixedStart: 34_200_000}
	assert.Equal(t, int64(5_400_000), RaceTime(mass, rec))

	noStart := &card.Record{Start: card.NoTime, Finish: 39_600_000, Check: 36_000_000}
	assert.Equal(t, int64(3_600_000), RaceTime(boxStart, noStart), "falls back to check time")

	noFinish := &card.Record{Start: 36_000_000, Finish: card.NoTime}
	assert.Equal(t, card.NoTime, RaceTime(boxStart, noFinish))
}
