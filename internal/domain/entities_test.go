package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoByTwoCourse() Course {
	return Course{
		ID: "7",
		Modules: []Module{
			{ID: "m1", Lessons: []Lesson{{ID: "L0"}, {ID: "L1"}}},
			{ID: "m2", Lessons: []Lesson{{ID: "L2"}, {ID: "L3"}}},
		},
	}
}

func TestCourse_FlattenLessons(t *testing.T) {
	c := twoByTwoCourse()

	flat := c.FlattenLessons()
	require.Len(t, flat, 4)
	for i, want := range []ID{"L0", "L1", "L2", "L3"} {
		assert.Equal(t, want, flat[i].ID)
	}
	assert.Equal(t, 4, c.LessonCount())
}

func TestCourse_FlatIndexOf(t *testing.T) {
	c := twoByTwoCourse()

	assert.Equal(t, 0, c.FlatIndexOf("L0"))
	assert.Equal(t, 2, c.FlatIndexOf("L2"))
	assert.Equal(t, 3, c.FlatIndexOf("L3"))
	assert.Equal(t, -1, c.FlatIndexOf("missing"))
}

func TestCourse_Enrolled(t *testing.T) {
	c := twoByTwoCourse()
	assert.False(t, c.Enrolled())

	c.Modules[0].Lessons[0].VideoURL = "https://cdn.example.com/l0.mp4"
	assert.True(t, c.Enrolled(), "video urls are only served to enrolled users")

	assert.True(t, Course{IsEnrolled: true}.Enrolled())

	l, ok := c.FindLesson("L0")
	assert.True(t, ok)
	assert.Equal(t, "https://cdn.example.com/l0.mp4", l.VideoURL)
	_, ok = c.FindLesson("nope")
	assert.False(t, ok)
}

func TestPayableAmount(t *testing.T) {
	tests := []struct {
		price, discount Amount
		want            int64
	}{
		{1000, 20, 800},
		{199.99, 20, 160},
		{99, 15, 84},
		{0, 0, 0},
		{500, 100, 0},
		{79, 0, 79},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v-%v", tt.price, tt.discount), func(t *testing.T) {
			assert.Equal(t, tt.want, PayableAmount(tt.price, tt.discount))
		})
	}
}

func TestCourse_DecodesLooseNumbers(t *testing.T) {
	raw := `{"id":4,"title":"Full Stack","price":"199.99","discount":"20.00","isEnrolled":false}`

	var c Course
	require.NoError(t, json.Unmarshal([]byte(raw), &c))

	assert.Equal(t, ID("4"), c.ID)
	assert.InDelta(t, 199.99, float64(c.Price), 0.0001)
	assert.InDelta(t, 20.0, float64(c.Discount), 0.0001)
	assert.False(t, c.IsFree())
}

func TestAmount_PercentString(t *testing.T) {
	var a Amount
	require.NoError(t, json.Unmarshal([]byte(`"15%"`), &a))
	assert.InDelta(t, 15.0, float64(a), 0.0001)

	require.NoError(t, json.Unmarshal([]byte(`null`), &a))
	assert.Zero(t, a)

	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &a))
}

func TestID_RoundTrip(t *testing.T) {
	var ids []ID
	require.NoError(t, json.Unmarshal([]byte(`[42,"abc",null]`), &ids))
	assert.Equal(t, []ID{"42", "abc", ""}, ids)

	out, err := json.Marshal(ids[:2])
	require.NoError(t, err)
	assert.JSONEq(t, `[42,"abc"]`, string(out))

	n, ok := ids[0].Int()
	assert.True(t, ok)
	assert.Equal(t, int64(42), n)

	padded := []ID{"007", "+5", "-0", "-3"}
	out, err = json.Marshal(padded)
	require.NoError(t, err)
	assert.JSONEq(t, `["007","+5","-0",-3]`, string(out))

	var back []ID
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, padded, back)
}

func TestID_PaddedLessonSurvivesCache(t *testing.T) {
	raw, err := json.Marshal(CourseProgress{CourseID: "1", LastAccessedLessonID: "007"})
	require.NoError(t, err)

	var got CourseProgress
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, ID("007"), got.LastAccessedLessonID)
}

func TestAPIError_Is(t *testing.T) {
	err := fmt.Errorf("fetch course: %w", &APIError{Status: http.StatusNotFound, Message: "Course not found"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrUnauthorized)

	err = &APIError{Status: http.StatusUnauthorized, Message: "expired"}
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(&NetworkError{Op: "GET /api/jobs", Err: errors.New("dial")}))
	assert.True(t, IsTransient(&APIError{Status: 503, Message: "down"}))
	assert.False(t, IsTransient(&APIError{Status: 400, Message: "bad"}))
	assert.False(t, IsTransient(&ValidationError{Field: "email", Message: "invalid"}))
}
