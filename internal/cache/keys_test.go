package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey_Slot(t *testing.T) {
	assert.Equal(t, "coursesData", CourseList().Slot())
	assert.Equal(t, "courseData:42", CourseDetail("42").Slot())
	assert.Equal(t, "jobsData", JobList().Slot())
	assert.Equal(t, "jobData:7", JobDetail("7").Slot())
	assert.Equal(t, "savedJobsData", SavedJobs().Slot())
	assert.Equal(t, "coursesProgressData", CourseProgress().Slot())
}

func TestParseKind(t *testing.T) {
	k, ok := ParseKind("saved-jobs")
	assert.True(t, ok)
	assert.Equal(t, KindSavedJobs, k)

	k, ok = ParseKind(" jobData ")
	assert.True(t, ok)
	assert.Equal(t, KindJobDetail, k)

	_, ok = ParseKind("playlists")
	assert.False(t, ok)
}

func TestSlotPrefix(t *testing.T) {
	assert.Equal(t, "courseData:", SlotPrefix(KindCourseDetail))
	assert.Equal(t, "coursesData", SlotPrefix(KindCourseList))
	for _, k := range Kinds() {
		assert.NotEmpty(t, SlotPrefix(k), k)
	}
}
