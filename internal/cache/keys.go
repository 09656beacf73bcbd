package cache

import (
	"strings"

	"github.com/mmcdole/elevate/internal/domain"
)

// Kind identifies a cached resource type. Each kind has one canonical
// storage slot and one TTL.
type Kind string

const (
	KindCourseList     Kind = "course-list"
	KindCourseDetail   Kind = "course-detail"
	KindJobList        Kind = "job-list"
	KindJobDetail      Kind = "job-detail"
	KindSavedJobs      Kind = "saved-jobs"
	KindCourseProgress Kind = "course-progress"
)

// Storage slot names
const (
	SlotCourseList     = "coursesData"
	SlotCourseDetail   = "courseData"
	SlotJobList        = "jobsData"
	SlotJobDetail      = "jobData"
	SlotSavedJobs      = "savedJobsData"
	SlotCourseProgress = "coursesProgressData"
)

var slots = map[Kind]string{
	KindCourseList:     SlotCourseList,
	KindCourseDetail:   SlotCourseDetail,
	KindJobList:        SlotJobList,
	KindJobDetail:      SlotJobDetail,
	KindSavedJobs:      SlotSavedJobs,
	KindCourseProgress: SlotCourseProgress,
}

// Kinds returns every registered kind.
func Kinds() []Kind {
	return []Kind{KindCourseList, KindCourseDetail, KindJobList, KindJobDetail, KindSavedJobs, KindCourseProgress}
}

// Key names one storage slot. Detail kinds carry the resource id.
type Key struct {
	Kind Kind
	ID   domain.ID
}

func CourseList() Key { return Key{Kind: KindCourseList} }
func CourseDetail(id domain.ID) Key { return Key{Kind: KindCourseDetail, ID: id} }
func JobList() Key { return Key{Kind: KindJobList} }
func JobDetail(id domain.ID) Key { return Key{Kind: KindJobDetail, ID: id} }
func SavedJobs() Key { return Key{Kind: KindSavedJobs} }
func CourseProgress() Key { return Key{Kind: KindCourseProgress} }

// Slot returns the storage key. Detail slots are suffixed with the id
// (courseData:42) so several details stay cached side by side.
func (k Key) Slot() string {
	slot := slots[k.Kind]
	if k.ID != "" {
		return slot + ":" + string(k.ID)
	}
	return slot
}

func (k Key) String() string {
	if k.ID != "" {
		return string(k.Kind) + "(" + string(k.ID) + ")"
	}
	return string(k.Kind)
}

// ParseKind accepts either a kind name or its slot name.
func ParseKind(s string) (Kind, bool) {
	s = strings.TrimSpace(s)
	for kind, slot := range slots {
		if s == string(kind) || s == slot {
			return kind, true
		}
	}
	return "", false
}

// IsDetail reports whether keys of this kind carry an id.
func (k Kind) IsDetail() bool {
	return k == KindCourseDetail || k == KindJobDetail
}

// SlotPrefix returns the prefix covering every slot of kind, for bulk invalidation.
func SlotPrefix(kind Kind) string {
	if kind.IsDetail() {
		return slots[kind] + ":"
	}
	return slots[kind]
}
