package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ID is a resource identifier. The API sends ids as JSON numbers in some
// payloads and as strings in others; both decode into the same value.
type ID string

// UnmarshalJSON accepts a JSON string, number or null.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", string(b), err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Int returns the numeric form of the id, used where the API expects an integer
// (payment and enrollment payloads).
func (id ID) Int() (int64, bool) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	return n, err == nil
}

// MarshalJSON emits ids in canonical integer form as numbers and everything
// else as strings, so "007" and "+5" survive a round trip.
func (id ID) MarshalJSON() ([]byte, error) {
	if n, ok := id.Int(); ok && strconv.FormatInt(n, 10) == string(id) {
		return []byte(string(id)), nil
	}
	return json.Marshal(string(id))
}

// Amount is a decimal quantity (price, discount percentage). The API sends
// numbers, numeric strings ("199.99") and occasionally percent strings ("15%").
type Amount float64

// UnmarshalJSON accepts a JSON number, numeric string or null.
func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*a = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "%")
		if s == "" {
			*a = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", s, err)
		}
		*a = Amount(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*a = Amount(f)
	return nil
}

// Lesson is a single playable unit of a course.
type Lesson struct {
	ID       ID     `json:"id"`
	Title    string `json:"title"`
	Duration string `json:"duration,omitempty"`
	VideoURL string `json:"video_url,omitempty"`
}

// Module groups lessons.
type Module struct {
	ID      ID       `json:"id"`
	Title   string   `json:"title"`
	Lessons []Lesson `json:"lessons"`
}

// Course is a catalog entry. Modules are only populated on the detail endpoint.
type Course struct {
	ID          ID       `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Instructor  string   `json:"instructor,omitempty"`
	Category    string   `json:"category,omitempty"`
	Difficulty  string   `json:"level,omitempty"`
	Language    string   `json:"language,omitempty"`
	Duration    string   `json:"duration,omitempty"`
	Rating      float64  `json:"rating,omitempty"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	Price       Amount   `json:"price"`
	Discount    Amount   `json:"discount"`
	Modules     []Module `json:"modules,omitempty"`
	IsEnrolled  bool     `json:"isEnrolled"`
	CreatedAt   string   `json:"created_at,omitempty"`
}

// FlattenLessons returns every lesson in unlock order: modules in array order,
// then lessons within each module in array order.
func (c Course) FlattenLessons() []Lesson {
	var out []Lesson
	for _, m := range c.Modules {
		out = append(out, m.Lessons...)
	}
	return out
}

// FlatIndexOf returns the position of lessonID in the flattened sequence, or -1.
func (c Course) FlatIndexOf(lessonID ID) int {
	i := 0
	for _, m := range c.Modules {
		for _, l := range m.Lessons {
			if l.ID == lessonID {
				return i
			}
			i++
		}
	}
	return -1
}

// LessonCount returns the length of the flattened sequence.
func (c Course) LessonCount() int {
	n := 0
	for _, m := range c.Modules {
		n += len(m.Lessons)
	}
	return n
}

// IsFree reports whether the course costs nothing after discount.
func (c Course) IsFree() bool {
	return PayableAmount(c.Price, c.Discount) == 0
}

// Enrolled reports whether the user has access to the course content. Older
// servers omit isEnrolled and only reveal video URLs to enrolled users.
func (c Course) Enrolled() bool {
	if c.IsEnrolled {
		return true
	}
	lessons := c.FlattenLessons()
	return len(lessons) > 0 && lessons[0].VideoURL != ""
}

// FindLesson returns the lesson with id.
func (c Course) FindLesson(id ID) (Lesson, bool) {
	for _, m := range c.Modules {
		for _, l := range m.Lessons {
			if l.ID == id {
				return l, true
			}
		}
	}
	return Lesson{}, false
}

// CourseProgress is the per-user progress record for one course.
type CourseProgress struct {
	CourseID             ID     `json:"course_id"`
	ProgressPercentage   int    `json:"progress_percentage"`
	LastAccessedLessonID ID     `json:"last_accessed_lesson_id"`
	UpdatedAt            string `json:"updated_at,omitempty"`
}

// ProgressUpdate is the body of POST /api/progress.
type ProgressUpdate struct {
	CourseID             ID  `json:"course_id"`
	ProgressPercentage   int `json:"progress_percentage"`
	LastAccessedLessonID ID  `json:"last_accessed_lesson_id"`
}

// Job is a job-board posting. Jobs are read-only on the client.
type Job struct {
	ID          ID     `json:"id"`
	Title       string `json:"title"`
	CompanyName string `json:"company_name"`
	Location    string `json:"location"`
	JobType     string `json:"job_type"`
	Mode        string `json:"mode"`
	Openings    int    `json:"openings,omitempty"`
	Package     string `json:"package"`
	Description string `json:"description"`
	ApplyLink   string `json:"apply_link"`
	PostedBy    ID     `json:"posted_by,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// CreatedTime parses CreatedAt; the zero time is returned when it is missing
// or malformed.
func (j Job) CreatedTime() time.Time {
	t, err := time.Parse(time.RFC3339, j.CreatedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}

// SavedJob is a member of the user's saved set.
type SavedJob struct {
	Job
	SavedAt string `json:"saved_at,omitempty"`
}

// User is the identity returned by the profile endpoint.
type User struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// Session is the authenticated identity held by the client.
type Session struct {
	Token string
	Email string
	Name  string
	Role  string
}

// Order is a payment order created by the server for the checkout widget.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// PaymentResult carries the identifiers the checkout provider issues on success.
type PaymentResult struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

// PaymentVerification is the body of POST /api/payments/verify.
type PaymentVerification struct {
	PaymentResult
	CourseID ID `json:"course_id"`
}
