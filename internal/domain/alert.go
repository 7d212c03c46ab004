package domain

import (
	"context"
	"strings"
	"time"
)

// Significance is the severity tier of a SAME event.
type Significance int

const (
	SignificanceUnknown Significance = iota
	SignificanceTest
	SignificanceStatement
	SignificanceWatch
	SignificanceWarning
	SignificanceEmergency
)

func (s Significance) String() string {
	switch s {
	case SignificanceTest:
		return "test"
	case SignificanceStatement:
		return "statement"
	case SignificanceWatch:
		return "watch"
	case SignificanceWarning:
		return "warning"
	case SignificanceEmergency:
		return "emergency"
	default:
		return "unknown"
	}
}

// NationwideCode is the location code covering the entire United States.
const NationwideCode = "000000"

// DecodedAlert is one detected alert start. It is produced by a source and
// never modified afterwards.
type DecodedAlert struct {
	ID               string        `json:"id"`
	Originator       string        `json:"originator"`        // e.g. "WXR"
	OriginatorDetail string        `json:"originator_detail"` // e.g. "National Weather Service"
	EventCode        string        `json:"event_code"`        // e.g. "TOR"
	Event            string        `json:"event"`             // e.g. "Tornado Warning"
	Significance     Significance  `json:"significance"`
	Locations        []string      `json:"locations"` // PSSCCC codes in header order
	National         bool          `json:"national"`
	Callsign         string        `json:"callsign"`
	Purge            time.Duration `json:"purge"`
	IssuedAt         time.Time     `json:"issued_at"`
	ReceivedAt       time.Time     `json:"received_at"`
	Raw              string        `json:"raw"`
}

// IsTest reports whether the alert belongs to the Test tier.
func (a DecodedAlert) IsTest() bool {
	return a.Significance == SignificanceTest
}

// EventKind distinguishes the two events a source can emit.
type EventKind int

const (
	AlertStart EventKind = iota + 1
	AlertEnd
)

func (k EventKind) String() string {
	switch k {
	case AlertStart:
		return "start"
	case AlertEnd:
		return "end"
	default:
		return "invalid"
	}
}

// AlertEvent is a parsed source event. Alert is nil for AlertEnd.
type AlertEvent struct {
	Kind  EventKind
	Alert *DecodedAlert
}

// RawHeader is an unparsed line pulled from an alert source.
type RawHeader struct {
	Text       string
	Source     string
	ReceivedAt time.Time
	Commit     func(ctx context.Context) error
}

// Key returns the text used to recognise repeated transmissions of the same header.
func (r RawHeader) Key() string {
	return strings.TrimSpace(r.Text)
}
