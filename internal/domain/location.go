package domain

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

//go:embed data/same_codes.csv
var bundledLocations []byte

// ErrDuplicateCode is returned when a dataset lists the same code twice.
var ErrDuplicateCode = errors.New("duplicate location code")

// County is one row of the location dataset.
type County struct {
	Name  string
	State string
}

// ResolvedLocation is the result of a successful lookup.
type ResolvedLocation struct {
	Code      string // code as it appeared in the alert
	County    string
	State     string
	Direction string // compass area inside the county, empty for the whole county
}

// Label renders the location for a message, e.g. "Northwest Coke".
func (r ResolvedLocation) Label() string {
	if r.Direction == "" {
		return r.County
	}
	return r.Direction + " " + r.County
}

// LocationTable maps whole-county codes ("0SSCCC") to counties. It is built
// once and only read afterwards, so it is safe to share without locking.
type LocationTable struct {
	entries map[string]County
}

// LoadLocations reads a headerless "code,county,state" CSV. Any malformed
// record fails the whole load.
func LoadLocations(r io.Reader) (*LocationTable, error) {
	rdr := csv.NewReader(r)
	rdr.FieldsPerRecord = 3
	rdr.TrimLeadingSpace = true

	t := &LocationTable{entries: make(map[string]County)}
	for {
		rec, err := rdr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse location dataset: %w", err)
		}
		code := strings.TrimSpace(rec[0])
		if code == "" {
			line, _ := rdr.FieldPos(0)
			return nil, fmt.Errorf("parse location dataset: line %d: empty code", line)
		}
		if _, ok := t.entries[code]; ok {
			return nil, fmt.Errorf("parse location dataset: %q: %w", code, ErrDuplicateCode)
		}
		t.entries[code] = County{
			Name:  strings.TrimSpace(rec[1]),
			State: strings.TrimSpace(rec[2]),
		}
	}
	return t, nil
}

// BundledLocations returns a copy of the raw dataset compiled into the binary.
func BundledLocations() []byte {
	return bytes.Clone(bundledLocations)
}

// LoadBundledLocations loads the dataset compiled into the binary.
func LoadBundledLocations() (*LocationTable, error) {
	return LoadLocations(bytes.NewReader(bundledLocations))
}

// Len returns the number of counties in the table.
func (t *LocationTable) Len() int {
	return len(t.entries)
}

// Resolve looks up a SAME location code. The subdivision digit is replaced
// with 0 for the lookup and mapped to a compass label on success. Codes not
// in the table return false; that is expected for out-of-region codes.
func (t *LocationTable) Resolve(code string) (ResolvedLocation, bool) {
	if t == nil || len(code) < 2 {
		return ResolvedLocation{}, false
	}
	county, ok := t.entries[normalizeCode(code)]
	if !ok {
		return ResolvedLocation{}, false
	}
	return ResolvedLocation{
		Code:      code,
		County:    county.Name,
		State:     county.State,
		Direction: Direction(code[0]),
	}, true
}

// normalizeCode replaces the subdivision digit with 0.
func normalizeCode(code string) string {
	return "0" + code[1:]
}

// directions indexes compass labels by subdivision digit.
var directions = [10]string{
	"", "Northwest", "North", "Northeast", "West",
	"Central", "East", "Southwest", "South", "Southeast",
}

// Direction maps a subdivision digit to its compass label. '0' and any
// non-digit map to the empty label.
func Direction(digit byte) string {
	if digit < '0' || digit > '9' {
		return ""
	}
	return directions[digit-'0']
}
