package domain

import (
	"log/slog"
	"strings"
)

// LocationFilter is the set of location codes an operator cares about.
// An empty filter accepts every alert.
type LocationFilter map[string]struct{}

// NewLocationFilter builds a filter from codes, ignoring blanks.
func NewLocationFilter(codes []string) LocationFilter {
	f := make(LocationFilter, len(codes))
	for _, c := range codes {
		if c = strings.TrimSpace(c); c != "" {
			f[c] = struct{}{}
		}
	}
	return f
}

// Accepts reports whether an alert with the given codes passes the filter.
// Alerts without codes always pass; otherwise at least one code must match
// verbatim.
func (f LocationFilter) Accepts(codes []string) bool {
	if len(f) == 0 || len(codes) == 0 {
		return true
	}
	for _, c := range codes {
		if _, ok := f[c]; ok {
			return true
		}
	}
	return false
}

// Composer builds the outbound text for a classified alert.
type Composer struct {
	locations *LocationTable
	filter    LocationFilter
	logger    *slog.Logger
}

// NewComposer creates a Composer. A nil filter accepts every alert.
func NewComposer(locations *LocationTable, filter LocationFilter, logger *slog.Logger) *Composer {
	return &Composer{locations: locations, filter: filter, logger: logger}
}

// Composition is a composed message plus the location codes that could not
// be resolved.
type Composition struct {
	Text    string
	Missing []string
}

// Compose returns the message for alert, or false when the location filter
// rejects it. The text is not size limited.
func (c *Composer) Compose(alert DecodedAlert, cls Classification) (Composition, bool) {
	if !c.filter.Accepts(alert.Locations) {
		return Composition{}, false
	}

	var b strings.Builder
	b.WriteString(cls.Prefix)
	b.WriteString(alert.Event)
	if cls.Tier == SignificanceTest {
		b.WriteString(" from ")
		b.WriteString(alert.Callsign)
	}
	b.WriteString(", Issued By: ")
	b.WriteString(alert.OriginatorDetail)

	if alert.National {
		b.WriteString(" Nationwide Alert")
		return Composition{Text: b.String()}, true
	}

	labels, missing := c.resolveLabels(alert)
	switch len(labels) {
	case 0:
	case 1:
		b.WriteString(", Location: ")
		b.WriteString(labels[0])
	default:
		b.WriteString(", Locations: ")
		b.WriteString(strings.Join(labels, ", "))
	}
	return Composition{Text: b.String(), Missing: missing}, true
}

func (c *Composer) resolveLabels(alert DecodedAlert) (labels, missing []string) {
	labels = make([]string, 0, len(alert.Locations))
	for _, code := range alert.Locations {
		loc, ok := c.locations.Resolve(code)
		if !ok {
			c.logger.Debug("location code not found", "alert_id", alert.ID, "code", code)
			missing = append(missing, code)
			continue
		}
		labels = append(labels, loc.Label())
	}
	return labels, missing
}
