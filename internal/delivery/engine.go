// Package delivery splits composed alert text into transport-sized
// fragments and sends them through a Sink with a process-wide rate limit and
// bounded retry.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/couchcryptid/eas-mesh-relay/internal/domain"
	"github.com/couchcryptid/eas-mesh-relay/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Sink delivers one text payload to a mesh channel. Any error is treated as
// potentially transient and retried.
type Sink interface {
	Deliver(ctx context.Context, text string, channel domain.Channel) error
}

// Fragment is one piece of a composed message.
type Fragment struct {
	Index   int // 1-based
	Total   int
	Text    string
	Channel domain.Channel
}

// SendError reports a fragment that failed on every attempt.
type SendError struct {
	Fragment Fragment
	Attempts int
	Err      error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("fragment %d/%d on channel %d failed after %d attempts: %v",
		e.Fragment.Index, e.Fragment.Total, e.Fragment.Channel, e.Attempts, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// Options configures an Engine. Zero values are replaced by defaults.
type Options struct {
	Split           bool          // split into fragments; otherwise truncate
	FragmentBytes   int           // per-fragment budget when splitting
	MaxMessageBytes int           // truncation limit when not splitting
	MinInterval     time.Duration // minimum gap between successful sends
	Retries         int           // extra attempts after the first
	RetryDelay      time.Duration
	AttemptTimeout  time.Duration // bound on a single Sink call, 0 = none
	Clock           clockwork.Clock
}

// Defaults sized for a LoRa mesh text payload and its duty cycle.
const (
	DefaultFragmentBytes   = 75
	DefaultMaxMessageBytes = 228
	DefaultMinInterval     = 20 * time.Second
	DefaultRetries         = 3
	DefaultRetryDelay      = 5 * time.Second
)

// DefaultOptions returns the default settings with splitting enabled.
func DefaultOptions() Options {
	return Options{
		Split:           true,
		FragmentBytes:   DefaultFragmentBytes,
		MaxMessageBytes: DefaultMaxMessageBytes,
		MinInterval:     DefaultMinInterval,
		Retries:         DefaultRetries,
		RetryDelay:      DefaultRetryDelay,
	}
}

// Report summarises one Deliver call.
type Report struct {
	Fragments int
	Sent      int
	Errors    []error // one *SendError per failed fragment
}

// Failed returns the number of fragments that exhausted their attempts.
func (r Report) Failed() int { return len(r.Errors) }

// OK reports whether every fragment was sent.
func (r Report) OK() bool { return r.Sent == r.Fragments }

// Engine sends fragments one at a time. The last-send timestamp is shared
// by every caller, so concurrent Deliver calls are serialized.
type Engine struct {
	sink    Sink
	opts    Options
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics

	mu       sync.Mutex
	lastSend time.Time
}

// NewEngine creates an Engine for sink.
func NewEngine(sink Sink, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Engine {
	if opts.FragmentBytes <= 0 {
		opts.FragmentBytes = DefaultFragmentBytes
	}
	if opts.MaxMessageBytes <= 0 {
		opts.MaxMessageBytes = DefaultMaxMessageBytes
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Engine{
		sink:    sink,
		opts:    opts,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}
}

// LastSend returns the time of the most recent successful send.
func (e *Engine) LastSend() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSend
}

// Fragments returns the pieces msg would be sent as on channel.
func (e *Engine) Fragments(msg string, channel domain.Channel) []Fragment {
	var texts []string
	if e.opts.Split {
		texts = Split(msg, e.opts.FragmentBytes)
	} else if msg != "" {
		if len(msg) > e.opts.MaxMessageBytes {
			e.logger.Debug("message too long for the mesh, truncating",
				"bytes", len(msg), "limit", e.opts.MaxMessageBytes)
		}
		texts = []string{Truncate(msg, e.opts.MaxMessageBytes)}
	}

	out := make([]Fragment, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			continue
		}
		out = append(out, Fragment{Text: t, Channel: channel})
	}
	for i := range out {
		out[i].Index = i + 1
		out[i].Total = len(out)
	}
	return out
}

// Deliver sends msg on channel in order. A failed fragment is reported and
// the remaining fragments are still attempted. Deliver only stops early when
// ctx is cancelled.
func (e *Engine) Deliver(ctx context.Context, msg string, channel domain.Channel) Report {
	fragments := e.Fragments(msg, channel)
	report := Report{Fragments: len(fragments)}

	for _, f := range fragments {
		err := e.send(ctx, f)
		if err == nil {
			report.Sent++
			continue
		}
		report.Errors = append(report.Errors, err)

		var sendErr *SendError
		if errors.As(err, &sendErr) {
			e.metrics.SendFailures.Inc()
			e.logger.Error("failed to deliver fragment",
				"fragment", f.Index,
				"fragments", f.Total,
				"channel", int(f.Channel),
				"text", f.Text,
				"attempts", sendErr.Attempts,
				"error", sendErr.Err,
			)
			continue
		}
		// Cancelled: the rest cannot be sent either.
		e.logger.Warn("delivery interrupted",
			"fragment", f.Index, "fragments", f.Total, "error", err)
		break
	}
	return report
}

// send runs the rate limit and retry loop for one fragment while holding the
// engine lock.
func (e *Engine) send(ctx context.Context, f Fragment) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.waitForSlot(ctx); err != nil {
		return err
	}

	attempts := e.opts.Retries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		e.metrics.SendAttempts.Inc()
		lastErr = e.attempt(ctx, f)
		if lastErr == nil {
			e.lastSend = e.clock.Now()
			e.metrics.FragmentsSent.Inc()
			e.logger.Info("fragment sent",
				"fragment", f.Index,
				"fragments", f.Total,
				"channel", int(f.Channel),
				"attempt", attempt,
			)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		e.logger.Warn("send attempt failed",
			"fragment", f.Index,
			"channel", int(f.Channel),
			"attempt", attempt,
			"max_attempts", attempts,
			"error", lastErr,
		)
		if attempt < attempts {
			e.metrics.SendRetries.Inc()
			if err := e.sleep(ctx, e.opts.RetryDelay); err != nil {
				return err
			}
		}
	}
	return &SendError{Fragment: f, Attempts: attempts, Err: lastErr}
}

func (e *Engine) attempt(ctx context.Context, f Fragment) error {
	if e.opts.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.AttemptTimeout)
		defer cancel()
	}
	return e.sink.Deliver(ctx, f.Text, f.Channel)
}

// waitForSlot blocks until MinInterval has passed since the last successful send.
func (e *Engine) waitForSlot(ctx context.Context) error {
	if e.lastSend.IsZero() {
		return nil
	}
	wait := e.opts.MinInterval - e.clock.Since(e.lastSend)
	if wait <= 0 {
		return nil
	}
	e.logger.Debug("rate limited, waiting before send", "wait", wait)
	e.metrics.RateLimitWait.Observe(wait.Seconds())
	return e.sleep(ctx, wait)
}

func (e *Engine) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := e.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.Chan():
		return nil
	}
}
