package checkout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/mmcdole/elevate/internal/domain"
)

// DefaultScriptURL is the hosted checkout script.
const DefaultScriptURL = "https://checkout.razorpay.com/v1/checkout.js"

// Prefill pre-populates the payer's details in the widget.
type Prefill struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Options configures one checkout session. Exactly one of OnSuccess and
// OnDismiss is called per Open.
type Options struct {
	Key         string
	Amount      int64
	Currency    string
	OrderID     string
	Name        string
	Description string
	Prefill     Prefill
	ThemeColor  string
	OnSuccess   func(domain.PaymentResult)
	OnDismiss   func()
}

// Checkout is the payment widget.
type Checkout interface {
	// LoadOnce makes sure the widget is available; success is remembered.
	LoadOnce(ctx context.Context) error
	// Open shows the widget and blocks until it settles.
	Open(ctx context.Context, opts Options) error
}

// opener shows a URL to the user (consumer-defined interface)
type opener interface {
	OpenURL(url string) error
}

// BrowserCheckout runs the widget on a one-shot loopback page opened in the
// user's browser.
type BrowserCheckout struct {
	scriptURL string
	timeout   time.Duration
	opener    opener
	client    *http.Client
	logger    *slog.Logger

	mu     sync.Mutex
	loaded bool
}

// Option configures a BrowserCheckout.
type Option func(*BrowserCheckout)

// WithScriptURL overrides the checkout script location.
func WithScriptURL(u string) Option {
	return func(b *BrowserCheckout) {
		if u != "" {
			b.scriptURL = u
		}
	}
}

// WithTimeout bounds how long Open waits for the user before dismissing.
func WithTimeout(d time.Duration) Option {
	return func(b *BrowserCheckout) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithHTTPClient sets the client used to probe the script.
func WithHTTPClient(hc *http.Client) Option {
	return func(b *BrowserCheckout) { b.client = hc }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *BrowserCheckout) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBrowserCheckout creates a checkout that opens pages through o.
func NewBrowserCheckout(o opener, opts ...Option) *BrowserCheckout {
	b := &BrowserCheckout{
		scriptURL: DefaultScriptURL,
		timeout:   10 * time.Minute,
		opener:    o,
		client:    &http.Client{Timeout: 15 * time.Second},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// LoadOnce probes the checkout script. Only success is memoised, so a failed
// load is attempted again on the next call.
func (b *BrowserCheckout) LoadOnce(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.loaded {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.scriptURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCheckoutUnavailable, err)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		b.logger.Error("failed to load checkout script", "url", b.scriptURL, "error", err)
		return fmt.Errorf("%w: %v", domain.ErrCheckoutUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b.logger.Error("checkout script unavailable", "url", b.scriptURL, "status", resp.StatusCode)
		return fmt.Errorf("%w: status %d", domain.ErrCheckoutUnavailable, resp.StatusCode)
	}

	b.loaded = true
	b.logger.Debug("checkout script loaded", "url", b.scriptURL)
	return nil
}

// session is one open checkout page
type session struct {
	opts    Options
	script  string
	once    sync.Once
	settled chan struct{}
}

func (s *session) success(res domain.PaymentResult) {
	s.once.Do(func() {
		if s.opts.OnSuccess != nil {
			s.opts.OnSuccess(res)
		}
		close(s.settled)
	})
}

func (s *session) dismiss() {
	s.once.Do(func() {
		if s.opts.OnDismiss != nil {
			s.opts.OnDismiss()
		}
		close(s.settled)
	})
}

// Open serves the checkout page on a loopback port, opens it, and waits for
// the page to report success or dismissal. A timeout or a cancelled ctx
// counts as dismissal. An error means the page could not be shown and no
// callback ran.
func (b *BrowserCheckout) Open(ctx context.Context, opts Options) error {
	if opts.OrderID == "" {
		return &domain.ValidationError{Field: "order_id", Message: "order is required"}
	}

	s := &session{opts: opts, script: b.scriptURL, settled: make(chan struct{})}
	token := uuid.NewString()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("checkout listener: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	bind(e.Group("/pay/"+token), s, b.logger)

	srv := &http.Server{Handler: e, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			b.logger.Error("checkout server stopped", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	pageURL := fmt.Sprintf("http://%s/pay/%s", ln.Addr(), token)
	b.logger.Info("opening checkout", "orderID", opts.OrderID, "amount", opts.Amount, "currency", opts.Currency)
	if err := b.opener.OpenURL(pageURL); err != nil {
		return fmt.Errorf("open checkout page: %w", err)
	}

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case <-s.settled:
	case <-timer.C:
		b.logger.Warn("checkout timed out", "orderID", opts.OrderID)
		s.dismiss()
	case <-ctx.Done():
		s.dismiss()
	}
	return nil
}
