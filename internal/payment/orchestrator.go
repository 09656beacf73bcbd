package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/go-playground/validator/v10"
	"github.com/mmcdole/elevate/internal/checkout"
	"github.com/mmcdole/elevate/internal/domain"
)

// courses is the catalog surface the orchestrator needs (consumer-defined interface)
type courses interface {
	RefreshCourse(ctx context.Context, id domain.ID) (domain.Course, error)
	EnrollFree(ctx context.Context, id domain.ID) (domain.Course, error)
}

// Config holds the merchant settings passed to the checkout widget.
type Config struct {
	Key        string
	Brand      string
	Currency   string
	ThemeColor string
}

// Outcome is the result of one Enroll call.
type Outcome struct {
	State   State
	Course  domain.Course
	Payment domain.PaymentResult
}

// orderRequest is validated before any network call
type orderRequest struct {
	CourseID string `validate:"required"`
	Amount   int64  `validate:"gt=0"`
	Email    string `validate:"omitempty,email"`
}

// Orchestrator drives course purchase: order creation, the checkout widget,
// server-side verification and the authoritative course refetch.
type Orchestrator struct {
	payments domain.PaymentRepository
	checkout checkout.Checkout
	courses  courses
	cfg      Config
	validate *validator.Validate
	logger   *slog.Logger

	processing atomic.Bool

	mu        sync.Mutex
	state     State
	observers []func(Transition)
}

// New creates an Orchestrator.
func New(payments domain.PaymentRepository, co checkout.Checkout, cs courses, cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	return &Orchestrator{
		payments: payments,
		checkout: co,
		courses:  cs,
		cfg:      cfg,
		validate: validator.New(),
		logger:   logger,
	}
}

// OnTransition registers fn to be called on every state change.
func (o *Orchestrator) OnTransition(fn func(Transition)) {
	o.mu.Lock()
	o.observers = append(o.observers, fn)
	o.mu.Unlock()
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Processing reports whether an enrollment is in flight.
func (o *Orchestrator) Processing() bool { return o.processing.Load() }

func (o *Orchestrator) transition(to State, err error) {
	o.mu.Lock()
	tr := Transition{From: o.state, To: to, Err: err}
	o.state = to
	observers := append([]func(Transition){}, o.observers...)
	o.mu.Unlock()

	o.logger.Debug("payment state", "from", tr.From, "to", tr.To)
	for _, fn := range observers {
		fn(tr)
	}
}

func (o *Orchestrator) fail(state State, err error) (Outcome, error) {
	o.transition(state, err)
	return Outcome{State: state}, err
}

// Enroll purchases course for user. Free courses are enrolled directly.
// Only one enrollment may run at a time; a concurrent call returns
// ErrAlreadyProcessing.
func (o *Orchestrator) Enroll(ctx context.Context, course domain.Course, user domain.User) (Outcome, error) {
	if !o.processing.CompareAndSwap(false, true) {
		return Outcome{State: o.State()}, domain.ErrAlreadyProcessing
	}
	defer o.processing.Store(false)

	// each run starts from idle; the previous run's terminal state stays
	// readable until here
	o.mu.Lock()
	o.state = Idle
	o.mu.Unlock()

	amount := domain.PayableAmount(course.Price, course.Discount)
	if amount == 0 && course.ID != "" {
		return o.enrollFree(ctx, course)
	}

	if err := o.validateOrder(course.ID, amount, user.Email); err != nil {
		return o.fail(Failed, err)
	}

	o.transition(OrderCreating, nil)
	order, err := o.payments.CreateOrder(ctx, amount, course.ID)
	if err != nil {
		o.logger.Error("failed to create order", "courseID", course.ID, "amount", amount, "error", err)
		return o.fail(Failed, fmt.Errorf("create order: %w", err))
	}
	if order == nil || order.ID == "" {
		return o.fail(Failed, errors.New("failed to create order"))
	}
	if err := o.checkout.LoadOnce(ctx); err != nil {
		return o.fail(Failed, err)
	}

	result, dismissed, err := o.openWidget(ctx, course, user, order)
	if err != nil {
		return o.fail(Failed, err)
	}
	if dismissed {
		o.logger.Info("payment cancelled", "courseID", course.ID, "orderID", order.ID)
		o.transition(Cancelled, domain.ErrPaymentCancelled)
		return Outcome{State: Cancelled}, domain.ErrPaymentCancelled
	}

	o.transition(Verifying, nil)
	err = o.payments.VerifyPayment(ctx, domain.PaymentVerification{PaymentResult: result, CourseID: course.ID})
	if err != nil {
		o.logger.Error("payment verification failed", "courseID", course.ID, "orderID", result.OrderID, "error", err)
		o.transition(VerifyFailed, err)
		return Outcome{State: VerifyFailed, Payment: result}, fmt.Errorf("verify payment: %w", err)
	}

	enrolled := course
	enrolled.IsEnrolled = true
	if fresh, err := o.courses.RefreshCourse(ctx, course.ID); err != nil {
		// the payment is settled; the next course load picks up the content
		o.logger.Warn("failed to refetch course after payment", "courseID", course.ID, "error", err)
	} else {
		enrolled = fresh
	}

	o.logger.Info("enrolled in course", "courseID", course.ID, "orderID", result.OrderID)
	o.transition(EnrolledSuccess, nil)
	return Outcome{State: EnrolledSuccess, Course: enrolled, Payment: result}, nil
}

func (o *Orchestrator) validateOrder(courseID domain.ID, amount int64, email string) error {
	err := o.validate.Struct(orderRequest{CourseID: string(courseID), Amount: amount, Email: email})
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		switch verrs[0].Field() {
		case "CourseID":
			return &domain.ValidationError{Field: "course_id", Message: "course is required"}
		case "Amount":
			return &domain.ValidationError{Field: "amount", Message: "amount must be greater than zero"}
		case "Email":
			return &domain.ValidationError{Field: "email", Message: "invalid email address"}
		}
	}
	return &domain.ValidationError{Message: err.Error()}
}

// openWidget shows the checkout and waits for exactly one callback.
func (o *Orchestrator) openWidget(ctx context.Context, course domain.Course, user domain.User, order *domain.Order) (domain.PaymentResult, bool, error) {
	currency := order.Currency
	if currency == "" {
		currency = o.cfg.Currency
	}

	var (
		result    domain.PaymentResult
		dismissed bool
	)
	o.transition(WidgetOpen, nil)
	err := o.checkout.Open(ctx, checkout.Options{
		Key:         o.cfg.Key,
		Amount:      order.Amount,
		Currency:    currency,
		OrderID:     order.ID,
		Name:        o.cfg.Brand,
		Description: course.Title,
		Prefill:     checkout.Prefill{Name: user.Name, Email: user.Email},
		ThemeColor:  o.cfg.ThemeColor,
		OnSuccess:   func(r domain.PaymentResult) { result = r },
		OnDismiss:   func() { dismissed = true },
	})
	if err == nil && result.PaymentID == "" {
		dismissed = true
	}
	return result, dismissed, err
}

func (o *Orchestrator) enrollFree(ctx context.Context, course domain.Course) (Outcome, error) {
	o.transition(OrderCreating, nil)
	enrolled, err := o.courses.EnrollFree(ctx, course.ID)
	if err != nil {
		o.logger.Error("failed to enroll in free course", "courseID", course.ID, "error", err)
		return o.fail(Failed, err)
	}
	o.logger.Info("enrolled in free course", "courseID", course.ID)
	o.transition(EnrolledSuccess, nil)
	return Outcome{State: EnrolledSuccess, Course: enrolled}, nil
}
