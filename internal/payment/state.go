package payment

// State is a stage of the enrollment flow.
type State int

const (
	Idle State = iota
	OrderCreating
	WidgetOpen
	Verifying
	EnrolledSuccess
	VerifyFailed
	Cancelled
	Failed
)

var stateNames = map[State]string{
	Idle:            "idle",
	OrderCreating:   "order-creating",
	WidgetOpen:      "widget-open",
	Verifying:       "verifying",
	EnrolledSuccess: "enrolled",
	VerifyFailed:    "verify-failed",
	Cancelled:       "cancelled",
	Failed:          "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether the flow has ended in s.
func (s State) Terminal() bool {
	switch s {
	case EnrolledSuccess, VerifyFailed, Cancelled, Failed:
		return true
	}
	return false
}

// Transition is delivered to observers on every state change.
type Transition struct {
	From, To State
	Err      error
}
