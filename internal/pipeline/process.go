package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/eas-mesh-relay/internal/delivery"
	"github.com/couchcryptid/eas-mesh-relay/internal/domain"
	"github.com/couchcryptid/eas-mesh-relay/internal/observability"
)

// Deliverer sends a composed message to a mesh channel.
type Deliverer interface {
	Deliver(ctx context.Context, msg string, channel domain.Channel) delivery.Report
}

// Outcome is what happened to one alert.
type Outcome int

const (
	OutcomeDelivered  Outcome = iota + 1
	OutcomePartial            // some fragments failed
	OutcomeFailed             // every fragment failed
	OutcomeSuppressed         // Test tier without a test channel
	OutcomeFiltered           // outside the locations of interest
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDelivered:
		return "delivered"
	case OutcomePartial:
		return "partial"
	case OutcomeFailed:
		return "failed"
	case OutcomeSuppressed:
		return "suppressed"
	case OutcomeFiltered:
		return "filtered"
	default:
		return "unknown"
	}
}

// Processor classifies, composes and delivers one alert at a time.
type Processor struct {
	composer  *domain.Composer
	policy    domain.ChannelPolicy
	deliverer Deliverer
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewProcessor creates a Processor.
func NewProcessor(composer *domain.Composer, policy domain.ChannelPolicy, deliverer Deliverer, logger *slog.Logger, metrics *observability.Metrics) *Processor {
	return &Processor{
		composer:  composer,
		policy:    policy,
		deliverer: deliverer,
		logger:    logger,
		metrics:   metrics,
	}
}

// Process runs one alert to completion. Suppression, filtering and delivery
// failures are absorbed here and reported through the Outcome.
func (p *Processor) Process(ctx context.Context, alert domain.DecodedAlert) Outcome {
	p.metrics.AlertsReceived.WithLabelValues(alert.Significance.String()).Inc()

	cls := domain.Classify(alert.Significance, p.policy)
	if cls.Suppressed {
		p.logger.Info("ignoring test alert",
			"alert_id", alert.ID,
			"event_code", alert.EventCode,
			"callsign", alert.Callsign,
		)
		p.metrics.AlertsSuppressed.WithLabelValues("test_disabled").Inc()
		return OutcomeSuppressed
	}

	comp, ok := p.composer.Compose(alert, cls)
	if !ok {
		p.logger.Info("alert outside locations of interest, skipping",
			"alert_id", alert.ID,
			"event_code", alert.EventCode,
			"locations", alert.Locations,
		)
		p.metrics.AlertsSuppressed.WithLabelValues("location_filter").Inc()
		return OutcomeFiltered
	}
	p.metrics.LocationMisses.Add(float64(len(comp.Missing)))

	p.logger.Info("attempting to send message over the mesh",
		"alert_id", alert.ID,
		"channel", int(cls.Channel),
		"message", comp.Text,
	)
	report := p.deliverer.Deliver(ctx, comp.Text, cls.Channel)

	outcome := OutcomeDelivered
	switch {
	case report.OK():
	case report.Sent > 0:
		outcome = OutcomePartial
	default:
		outcome = OutcomeFailed
	}
	p.metrics.AlertsDelivered.WithLabelValues(outcome.String()).Inc()
	if outcome != OutcomeDelivered {
		p.logger.Warn("alert not fully delivered",
			"alert_id", alert.ID,
			"fragments", report.Fragments,
			"sent", report.Sent,
			"failed", report.Failed(),
		)
	}
	return outcome
}
