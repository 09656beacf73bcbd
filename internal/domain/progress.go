package domain

// CompletionThreshold is the watched percentage at which a lesson counts as completed.
const CompletionThreshold = 80.0

// Telemetry is a watch-time sample reported by the video player while a
// lesson plays. Players emit it repeatedly, not only at the end.
type Telemetry struct {
	LessonID ID
	Percent  float64
}
