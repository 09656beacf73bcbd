package domain

import "context"

// CourseRepository provides catalog reads and enrollment
type CourseRepository interface {
	// GetCourses returns the course list
	GetCourses(ctx context.Context) ([]Course, error)

	// GetCourse returns one course including modules and enrollment state
	GetCourse(ctx context.Context, id ID) (Course, error)

	// Enroll enrolls the user in a free course
	Enroll(ctx context.Context, courseID ID) error
}

// JobRepository provides job-board reads and saved-job mutations
type JobRepository interface {
	GetJobs(ctx context.Context) ([]Job, error)
	GetJob(ctx context.Context, id ID) (Job, error)
	GetSavedJobs(ctx context.Context) ([]SavedJob, error)
	SaveJob(ctx context.Context, id ID) error
	UnsaveJob(ctx context.Context, id ID) error
}

// ProgressRepository provides course-progress reads and writes
type ProgressRepository interface {
	GetProgress(ctx context.Context) ([]CourseProgress, error)
	UpdateProgress(ctx context.Context, update ProgressUpdate) error
}

// PaymentRepository provides order creation and payment verification
type PaymentRepository interface {
	CreateOrder(ctx context.Context, amount int64, courseID ID) (*Order, error)
	VerifyPayment(ctx context.Context, v PaymentVerification) error
}

// ProfileRepository provides the current user's identity
type ProfileRepository interface {
	GetProfile(ctx context.Context) (User, error)
}

// SessionProvider exposes the current session. Consumers only read it.
type SessionProvider interface {
	// Session returns the current session, or false when nobody is logged in
	Session() (Session, bool)
}

// SessionFunc adapts a function to SessionProvider.
type SessionFunc func() (Session, bool)

func (f SessionFunc) Session() (Session, bool) { return f() }

// StaticSession is a fixed session, mostly useful in tests.
type StaticSession Session

func (s StaticSession) Session() (Session, bool) {
	if s.Token == "" {
		return Session{}, false
	}
	return Session(s), true
}
