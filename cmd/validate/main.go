// Command validate checks a SAME location dataset before it is deployed with
// the relay: record shape, code format, duplicates, and that the relay's own
// loader accepts it. Optionally it checks that every location in a file of
// sample decoder lines resolves against the dataset.
//
// Usage:
//
//	go run ./cmd/validate -file internal/domain/data/same_codes.csv \
//	  -headers testdata/headers.txt
//
// Without -file the bundled dataset is validated.
package main

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/couchcryptid/eas-mesh-relay/internal/domain"
	"github.com/couchcryptid/eas-mesh-relay/internal/same"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	file := flag.String("file", "", "location CSV to validate (default: bundled dataset)")
	headers := flag.String("headers", "", "optional file of decoder output lines to check against the dataset")
	flag.Parse()

	if code := run(*file, *headers, os.Stdout); code != 0 {
		os.Exit(code)
	}
}

func run(file, headersPath string, out io.Writer) int {
	fmt.Fprintln(out, "=== SAME Location Dataset Validation ===")
	fmt.Fprintln(out)

	data, name, err := readDataset(file)
	if err != nil {
		fmt.Fprintf(out, "FATAL: %v\n", err)
		return 1
	}
	rows, err := readRows(data)
	if err != nil {
		fmt.Fprintf(out, "FATAL: read %s: %v\n", name, err)
		return 1
	}

	table, loadPhase := validateLoader(data)
	phases := []*phase{
		validateRecords(rows),
		validateUniqueness(rows),
		loadPhase,
	}

	var lines []string
	if headersPath != "" {
		lines, err = readLines(headersPath)
		if err != nil {
			fmt.Fprintf(out, "FATAL: read headers: %v\n", err)
			return 1
		}
		phases = append(phases, validateHeaderCoverage(lines, table))
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Records: %d in %s", len(rows), name)
	if headersPath != "" {
		fmt.Fprintf(out, ", %d header lines", len(lines))
	}
	fmt.Fprintln(out)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

// ── Data loading ──

// row is one dataset record with its line number.
type row struct {
	line   int
	fields []string
}

func readDataset(file string) ([]byte, string, error) {
	if file == "" {
		return domain.BundledLocations(), "bundled dataset", nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, "", fmt.Errorf("read dataset: %w", err)
	}
	return data, file, nil
}

func readRows(data []byte) ([]row, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	var rows []row
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		line, _ := r.FieldPos(0)
		rows = append(rows, row{line: line, fields: rec})
	}
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, sc.Err()
}

// ── Phases ──

func validateRecords(rows []row) *phase {
	p := &phase{name: "Record structure"}
	for _, r := range rows {
		if len(r.fields) != 3 {
			p.errorf("line %d: want 3 fields, got %d", r.line, len(r.fields))
			continue
		}
		code := strings.TrimSpace(r.fields[0])
		if !isCode(code) {
			p.errorf("line %d: code %q is not 6 digits", r.line, code)
		} else if code[0] != '0' {
			p.errorf("line %d: code %q must be whole-county (subdivision 0)", r.line, code)
		}
		if strings.TrimSpace(r.fields[1]) == "" {
			p.errorf("line %d: empty county name", r.line)
		}
		if strings.TrimSpace(r.fields[2]) == "" {
			p.errorf("line %d: empty state name", r.line)
		}
	}
	return p
}

func validateUniqueness(rows []row) *phase {
	p := &phase{name: "Code uniqueness"}
	seen := make(map[string]int, len(rows))
	for _, r := range rows {
		if len(r.fields) == 0 {
			continue
		}
		code := strings.TrimSpace(r.fields[0])
		if first, ok := seen[code]; ok {
			p.errorf("line %d: code %s duplicates line %d", r.line, code, first)
			continue
		}
		seen[code] = r.line
	}
	return p
}

func validateLoader(data []byte) (*domain.LocationTable, *phase) {
	p := &phase{name: "Relay loader accepts dataset"}
	table, err := domain.LoadLocations(bytes.NewReader(data))
	if err != nil {
		p.errorf("%v", err)
	}
	return table, p
}

func validateHeaderCoverage(lines []string, table *domain.LocationTable) *phase {
	p := &phase{name: "Sample header locations resolve"}
	for i, line := range lines {
		event, err := same.Parse(line, domain.Now())
		if errors.Is(err, same.ErrNotHeader) {
			continue
		}
		if err != nil {
			p.errorf("header %d: %v", i+1, err)
			continue
		}
		if event.Kind != domain.AlertStart {
			continue
		}
		for _, code := range event.Alert.Locations {
			if code == domain.NationwideCode {
				continue
			}
			if _, ok := table.Resolve(code); !ok {
				p.errorf("header %d: location %s not in dataset", i+1, code)
			}
		}
	}
	return p
}

func isCode(s string) bool {
	if len(s) != 6 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
