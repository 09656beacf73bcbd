package jobboard

import (
	"fmt"
	"time"
)

var jobTypeLabels = map[string]string{
	"full-time":  "Full Time",
	"part-time":  "Part Time",
	"contract":   "Contract",
	"internship": "Internship",
	"remote":     "Remote",
}

var modeLabels = map[string]string{
	"remote": "Remote",
	"hybrid": "Hybrid",
	"onsite": "On-site",
}

// JobTypeLabel returns the display name for a job type, or the raw value
// when it is unknown.
func JobTypeLabel(jobType string) string {
	if l, ok := jobTypeLabels[normalizeType(jobType)]; ok {
		return l
	}
	return jobType
}

// ModeLabel returns the display name for a work mode.
func ModeLabel(mode string) string {
	if l, ok := modeLabels[normalizeType(mode)]; ok {
		return l
	}
	return mode
}

// PostedAgo describes how long ago created was, relative to now, in whole days.
func PostedAgo(created, now time.Time) string {
	if created.IsZero() {
		return ""
	}
	days := int(now.Sub(created) / (24 * time.Hour))
	switch {
	case days <= 0:
		return "Today"
	case days == 1:
		return "Yesterday"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	case days < 30:
		return fmt.Sprintf("%d weeks ago", days/7)
	}
	return created.Local().Format("Jan 2, 2006")
}
