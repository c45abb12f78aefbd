package mailbox

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// State is the poller's view of its session
type State int32

// Poller states
const (
	StateDisconnected State = iota
	StateConnected
	StateFetching
	StateFailed
	StateDone
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateFetching:
		return "fetching"
	case StateFailed:
		return "failed"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Source is the mailbox a Poller drives
type Source interface {
	Connect(ctx context.Context) error
	FetchLatest(ctx context.Context, mailbox string) (*FetchResult, error)
	TestConnection(ctx context.Context) error
	Disconnect()
}

// RetryPolicy bounds the fetch attempts. The delay before attempt n+1 is
// BaseDelay*n.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy returns three attempts with a 2 second base delay
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 2 * time.Second}
}

// FetchError is the terminal failure after all attempts are exhausted
type FetchError struct {
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// SleepFunc waits for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Poller serializes fetches on a single source and retries failures with a
// reconnect before every new attempt
type Poller struct {
	mu     sync.Mutex
	source Source
	policy RetryPolicy
	logger *slog.Logger
	sleep  SleepFunc
	state  atomic.Int32
}

// PollerOption configures a Poller
type PollerOption func(*Poller)

// WithRetryPolicy overrides the default retry policy
func WithRetryPolicy(policy RetryPolicy) PollerOption {
	return func(p *Poller) {
		if policy.MaxAttempts > 0 {
			p.policy.MaxAttempts = policy.MaxAttempts
		}
		if policy.BaseDelay >= 0 {
			p.policy.BaseDelay = policy.BaseDelay
		}
	}
}

// WithSleep replaces the backoff sleep
func WithSleep(sleep SleepFunc) PollerOption {
	return func(p *Poller) {
		p.sleep = sleep
	}
}

// NewPoller creates a Poller owning source
func NewPoller(source Source, logger *slog.Logger, opts ...PollerOption) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Poller{
		source: source,
		policy: DefaultRetryPolicy(),
		logger: logger.With("component", "poller"),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the current state without waiting for a running fetch
func (p *Poller) State() State {
	return State(p.state.Load())
}

func (p *Poller) setState(s State) {
	p.state.Store(int32(s))
}

// Fetch returns the newest message of mailbox, retrying up to the policy's
// attempt limit. Exhaustion yields a *FetchError wrapping the last failure.
func (p *Poller) Fetch(ctx context.Context, mailbox string) (*FetchResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var lastErr error
	for attempt := 1; attempt <= p.policy.MaxAttempts; attempt++ {
		p.setState(StateFetching)
		result, err := p.source.FetchLatest(ctx, mailbox)
		if err == nil {
			p.setState(StateDone)
			return result, nil
		}

		lastErr = err
		p.logger.Warn("fetch attempt failed",
			"attempt", attempt,
			"max_attempts", p.policy.MaxAttempts,
			"error", err,
		)
		if attempt == p.policy.MaxAttempts {
			break
		}

		p.setState(StateDisconnected)
		if err := p.sleep(ctx, p.policy.BaseDelay*time.Duration(attempt)); err != nil {
			p.setState(StateFailed)
			return nil, &FetchError{Attempts: attempt, Err: err}
		}

		if err := p.source.Connect(ctx); err != nil {
			p.logger.Warn("reconnect failed", "attempt", attempt, "error", err)
			continue
		}
		p.setState(StateConnected)
	}

	p.setState(StateFailed)
	p.logger.Error("fetch failed", "attempts", p.policy.MaxAttempts, "error", lastErr)
	return nil, &FetchError{Attempts: p.policy.MaxAttempts, Err: lastErr}
}

// TestConnection runs a connect/disconnect probe on the owned source
func (p *Poller) TestConnection(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.source.TestConnection(ctx)
	p.setState(StateDisconnected)
	return err
}

// Close disconnects the owned source
func (p *Poller) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.source.Disconnect()
	p.setState(StateDisconnected)
}
