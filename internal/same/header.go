// Package same parses SAME header text emitted by an external EAS decoder
// (e.g. multimon-ng's "EAS: ZCZC-..." lines) into alert events.
package same

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/eas-mesh-relay/internal/domain"
	"github.com/google/uuid"
)

const (
	startMarker = "ZCZC"
	endMarker   = "NNNN"
)

var (
	// ErrNotHeader means the line carries neither a header nor an end marker.
	ErrNotHeader = errors.New("not a SAME header")
	// ErrMalformed means a header was found but could not be parsed.
	ErrMalformed = errors.New("malformed SAME header")
)

// Parse converts one decoder output line into an alert event. Text before
// the ZCZC/NNNN marker (such as "EAS: ") is ignored.
func Parse(line string, receivedAt time.Time) (domain.AlertEvent, error) {
	if i := strings.Index(line, startMarker); i >= 0 {
		alert, err := parseHeader(strings.TrimSpace(line[i:]), receivedAt)
		if err != nil {
			return domain.AlertEvent{}, err
		}
		return domain.AlertEvent{Kind: domain.AlertStart, Alert: alert}, nil
	}
	if strings.Contains(line, endMarker) {
		return domain.AlertEvent{Kind: domain.AlertEnd}, nil
	}
	return domain.AlertEvent{}, ErrNotHeader
}

// parseHeader parses "ZCZC-ORG-EEE-PSSCCC-...+TTTT-JJJHHMM-LLLLLLLL-".
func parseHeader(header string, receivedAt time.Time) (*domain.DecodedAlert, error) {
	body := strings.TrimPrefix(header, startMarker+"-")
	head, tail, ok := strings.Cut(body, "+")
	if !ok {
		return nil, fmt.Errorf("%w: missing purge separator", ErrMalformed)
	}

	fields := strings.Split(head, "-")
	if len(fields) < 3 {
		return nil, fmt.Errorf("%w: want originator, event and locations", ErrMalformed)
	}
	org, code, locations := fields[0], fields[1], fields[2:]
	if len(org) != 3 || len(code) != 3 {
		return nil, fmt.Errorf("%w: bad originator %q or event %q", ErrMalformed, org, code)
	}
	for _, loc := range locations {
		if !isDigits(loc, 6) {
			return nil, fmt.Errorf("%w: bad location code %q", ErrMalformed, loc)
		}
	}

	trailer := strings.Split(strings.TrimSuffix(tail, "-"), "-")
	if len(trailer) < 3 {
		return nil, fmt.Errorf("%w: want purge, issue time and callsign", ErrMalformed)
	}
	purge, err := parsePurge(trailer[0])
	if err != nil {
		return nil, err
	}
	issued, err := parseIssued(trailer[1], receivedAt)
	if err != nil {
		return nil, err
	}

	event, sig := LookupEvent(code)
	return &domain.DecodedAlert{
		ID:               uuid.NewString(),
		Originator:       org,
		OriginatorDetail: LookupOriginator(org),
		EventCode:        code,
		Event:            event,
		Significance:     sig,
		Locations:        locations,
		National:         isNational(code, locations),
		Callsign:         strings.Join(trailer[2:], "-"),
		Purge:            purge,
		IssuedAt:         issued,
		ReceivedAt:       receivedAt,
		Raw:              header,
	}, nil
}

func isNational(code string, locations []string) bool {
	if nationalEvents[code] {
		return true
	}
	for _, loc := range locations {
		if loc == domain.NationwideCode {
			return true
		}
	}
	return false
}

// parsePurge parses the HHMM validity period.
func parsePurge(s string) (time.Duration, error) {
	if !isDigits(s, 4) {
		return 0, fmt.Errorf("%w: bad purge time %q", ErrMalformed, s)
	}
	h, _ := strconv.Atoi(s[:2])
	m, _ := strconv.Atoi(s[2:])
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, nil
}

// parseIssued parses JJJHHMM (UTC). The year is taken from receivedAt; a
// Julian day later than the receive day belongs to the previous year.
func parseIssued(s string, receivedAt time.Time) (time.Time, error) {
	if !isDigits(s, 7) {
		return time.Time{}, fmt.Errorf("%w: bad issue time %q", ErrMalformed, s)
	}
	day, _ := strconv.Atoi(s[:3])
	h, _ := strconv.Atoi(s[3:5])
	m, _ := strconv.Atoi(s[5:])
	if day < 1 || day > 366 || h > 23 || m > 59 {
		return time.Time{}, fmt.Errorf("%w: issue time out of range %q", ErrMalformed, s)
	}

	ref := receivedAt.UTC()
	year := ref.Year()
	if day > ref.YearDay() {
		year--
	}
	start := time.Date(year, time.January, 1, h, m, 0, 0, time.UTC)
	return start.AddDate(0, 0, day-1), nil
}

func isDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
