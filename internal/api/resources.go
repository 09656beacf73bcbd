package api

import (
	"context"
	"net/url"

	"github.com/mmcdole/elevate/internal/domain"
)

func idPath(prefix string, id domain.ID) string {
	return prefix + url.PathEscape(string(id))
}

// GetCourses returns the course catalog.
func (c *Client) GetCourses(ctx context.Context) ([]domain.Course, error) {
	var courses []domain.Course
	if err := c.get(ctx, "/api/courses", &courses); err != nil {
		return nil, err
	}
	return courses, nil
}

// GetCourse returns one course with modules and enrollment state.
func (c *Client) GetCourse(ctx context.Context, id domain.ID) (domain.Course, error) {
	var course domain.Course
	err := c.get(ctx, idPath("/api/courses/", id), &course)
	return course, err
}

type enrollRequest struct {
	CourseID domain.ID `json:"course_id"`
}

// Enroll enrolls the current user in a course without payment.
func (c *Client) Enroll(ctx context.Context, courseID domain.ID) error {
	return c.post(ctx, "/api/enrollments", enrollRequest{CourseID: courseID}, nil)
}

// GetJobs returns every posted job.
func (c *Client) GetJobs(ctx context.Context) ([]domain.Job, error) {
	var jobs []domain.Job
	if err := c.get(ctx, "/api/jobs", &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// GetJob returns one job.
func (c *Client) GetJob(ctx context.Context, id domain.ID) (domain.Job, error) {
	var job domain.Job
	err := c.get(ctx, idPath("/api/jobs/", id), &job)
	return job, err
}

// GetSavedJobs returns the current user's saved set.
func (c *Client) GetSavedJobs(ctx context.Context) ([]domain.SavedJob, error) {
	var saved []domain.SavedJob
	if err := c.get(ctx, "/api/jobs/saved", &saved); err != nil {
		return nil, err
	}
	return saved, nil
}

// SaveJob adds a job to the saved set.
func (c *Client) SaveJob(ctx context.Context, id domain.ID) error {
	return c.post(ctx, idPath("/api/jobs/save/", id), nil, nil)
}

// UnsaveJob removes a job from the saved set.
func (c *Client) UnsaveJob(ctx context.Context, id domain.ID) error {
	return c.delete(ctx, idPath("/api/jobs/saved/", id))
}

// GetProgress returns progress records for every course the user started.
func (c *Client) GetProgress(ctx context.Context) ([]domain.CourseProgress, error) {
	var records []domain.CourseProgress
	if err := c.get(ctx, "/api/progress", &records); err != nil {
		return nil, err
	}
	return records, nil
}

// UpdateProgress reports a completed lesson.
func (c *Client) UpdateProgress(ctx context.Context, update domain.ProgressUpdate) error {
	return c.post(ctx, "/api/progress", update, nil)
}

type createOrderRequest struct {
	Amount   int64     `json:"amount"`
	CourseID domain.ID `json:"course_id"`
}

type createOrderResponse struct {
	Order *domain.Order `json:"order"`
}

// CreateOrder asks the server for a payment order. The returned order is nil
// when the server acknowledged the request without one.
func (c *Client) CreateOrder(ctx context.Context, amount int64, courseID domain.ID) (*domain.Order, error) {
	var resp createOrderResponse
	if err := c.post(ctx, "/api/payments/create-order", createOrderRequest{Amount: amount, CourseID: courseID}, &resp); err != nil {
		return nil, err
	}
	return resp.Order, nil
}

// VerifyPayment forwards the checkout provider's result for server-side verification.
func (c *Client) VerifyPayment(ctx context.Context, v domain.PaymentVerification) error {
	return c.post(ctx, "/api/payments/verify", v, nil)
}

// GetProfile returns the logged-in user.
func (c *Client) GetProfile(ctx context.Context) (domain.User, error) {
	var user domain.User
	err := c.get(ctx, "/api/user/profile", &user)
	return user, err
}

var (
	_ domain.CourseRepository   = (*Client)(nil)
	_ domain.JobRepository      = (*Client)(nil)
	_ domain.ProgressRepository = (*Client)(nil)
	_ domain.PaymentRepository  = (*Client)(nil)
	_ domain.ProfileRepository  = (*Client)(nil)
)
