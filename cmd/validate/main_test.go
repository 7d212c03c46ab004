package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRun_BundledDatasetPasses(t *testing.T) {
	var out bytes.Buffer

	code := run("", "", &out)

	assert.Equal(t, 0, code, out.String())
	assert.Contains(t, out.String(), "All validations passed.")
}

func TestRun_ReportsBadRecords(t *testing.T) {
	dataset := writeFile(t, "codes.csv", `048081,Exampleton,ExampleState
48113,Dallas,TX
148085,Collin,TX
048121,,TX
048081,Again,TX
048139,Ellis
`)
	var out bytes.Buffer

	code := run(dataset, "", &out)

	assert.Equal(t, 1, code)
	s := out.String()
	assert.Contains(t, s, "Validation FAILED.")
	assert.Contains(t, s, `line 2: code "48113" is not 6 digits`)
	assert.Contains(t, s, `line 3: code "148085" must be whole-county`)
	assert.Contains(t, s, "line 4: empty county name")
	assert.Contains(t, s, "line 5: code 048081 duplicates line 1")
	assert.Contains(t, s, "line 6: want 3 fields, got 2")
}

func TestRun_HeaderCoverage(t *testing.T) {
	dataset := writeFile(t, "codes.csv", "048081,Exampleton,ExampleState\n048113,Dallas,TX\n")
	headers := writeFile(t, "headers.txt", `multimon-ng 1.3.0
EAS: ZCZC-WXR-TOR-048081-248113+0030-1171500-KFWD/NWS-
EAS: ZCZC-WXR-SVR-048085+0030-1171500-KFWD/NWS-
EAS: ZCZC-PEP-EAN-000000+0400-1171500-WHITEHSE-
EAS: NNNN
`)
	var out bytes.Buffer

	code := run(dataset, headers, &out)

	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "header 3: location 048085 not in dataset")
	assert.NotContains(t, out.String(), "header 2:")
	assert.Contains(t, out.String(), "5 header lines")
}

func TestRun_MissingFile(t *testing.T) {
	var out bytes.Buffer

	code := run(filepath.Join(t.TempDir(), "missing.csv"), "", &out)

	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "FATAL")
}
