package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/eas-mesh-relay/internal/domain"
	"github.com/couchcryptid/eas-mesh-relay/internal/observability"
	"github.com/couchcryptid/eas-mesh-relay/internal/same"
)

// Source yields decoder output lines. Next returns io.EOF once the source is
// exhausted and will never produce another line.
type Source interface {
	Next(ctx context.Context) (domain.RawHeader, error)
}

// AlertProcessor turns one decoded alert into mesh messages.
type AlertProcessor interface {
	Process(ctx context.Context, alert domain.DecodedAlert) Outcome
}

// Pipeline orchestrates the read-parse-relay loop.
type Pipeline struct {
	source    Source
	processor AlertProcessor
	dedupe    *Deduper
	logger    *slog.Logger
	metrics   *observability.Metrics
	running   atomic.Bool
}

// New creates a Pipeline. A nil dedupe processes every repeated header.
func New(source Source, processor AlertProcessor, dedupe *Deduper, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		source:    source,
		processor: processor,
		dedupe:    dedupe,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil while the pipeline is monitoring its source.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.running.Load() {
		return errors.New("pipeline is not monitoring for alerts")
	}
	return nil
}

// Run reads lines until the context is cancelled or the source is exhausted.
// Alerts are handled one at a time in arrival order.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("monitoring for alerts")
	p.metrics.PipelineRunning.Set(1)
	p.running.Store(true)
	defer func() {
		p.running.Store(false)
		p.metrics.PipelineRunning.Set(0)
	}()

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		raw, err := p.source.Next(ctx)
		if errors.Is(err, io.EOF) {
			p.logger.Warn("alert source exhausted, no longer monitoring for alerts")
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.logger.Error("read from alert source failed", "error", err)
			if !p.backoffOrStop(ctx, &backoff, maxBackoff) {
				return nil
			}
			continue
		}
		backoff = 200 * time.Millisecond

		p.handle(ctx, raw)
		p.commit(ctx, raw)
	}
}

// handle parses one line and relays the alert it starts, if any.
func (p *Pipeline) handle(ctx context.Context, raw domain.RawHeader) {
	receivedAt := raw.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = domain.Now()
	}

	event, err := same.Parse(raw.Text, receivedAt)
	switch {
	case errors.Is(err, same.ErrNotHeader):
		p.logger.Debug("ignoring decoder output", "line", raw.Key())
		return
	case err != nil:
		p.logger.Warn("could not parse SAME header, skipping",
			"error", err,
			"line", raw.Key(),
			"source", raw.Source,
		)
		p.metrics.ParseErrors.Inc()
		return
	}

	// End markers all share one text, so they never go through the deduper.
	if event.Kind == domain.AlertEnd {
		p.logger.Info("end of SAME message")
		return
	}

	if p.dedupe.Seen(raw.Key(), receivedAt) {
		p.logger.Debug("duplicate SAME header, skipping", "line", raw.Key())
		p.metrics.AlertsSuppressed.WithLabelValues("duplicate").Inc()
		return
	}

	p.metrics.HeadersReceived.Inc()
	alert := *event.Alert
	p.logger.Info("beginning of SAME message",
		"alert_id", alert.ID,
		"originator", alert.Originator,
		"event_code", alert.EventCode,
		"event", alert.Event,
		"significance", alert.Significance.String(),
		"locations", alert.Locations,
		"callsign", alert.Callsign,
	)

	outcome := p.processor.Process(ctx, alert)
	p.logger.Debug("alert processed", "alert_id", alert.ID, "outcome", outcome.String())
}

// backoffOrStop checks for context cancellation, sleeps with the current backoff,
// and advances the backoff. Returns false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

// commit acknowledges the line if the source supports it.
func (p *Pipeline) commit(ctx context.Context, raw domain.RawHeader) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit failed", "error", err, "source", raw.Source)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
