package boris

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Parser turns a BORIS export in any supported format into normalised
// per-observation annotations.
type Parser struct {
	log logrus.FieldLogger
}

func NewParser(log logrus.FieldLogger) *Parser {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Parser{log: log}
}

// Parse detects the file's format and dispatches to the matching parser.
// Detection looks at content, not just the extension: a renamed project file
// still parses as JSON, and a renamed CSV is classified by its header row.
// Observations that end up with zero bouts are dropped.
func (p *Parser) Parse(path string) (*ParseResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if isProjectFile(path, raw) {
		return p.parseProject(path, raw)
	}

	header, rows, err := readCSVTable(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, ErrUnrecognizedFormat)
	}

	switch detectCSVFormat(header) {
	case FormatTabular:
		return p.parseTabular(path, header, rows)
	case FormatAggregated:
		return p.parseAggregated(path, header, rows)
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnrecognizedFormat)
	}
}

func isProjectFile(path string, raw []byte) bool {
	trimmed := bytes.TrimLeft(raw, " \t\r\n\ufeff")
	if strings.HasSuffix(strings.ToLower(path), ".boris") {
		return true
	}
	// Renamed project files are still JSON objects with an observations key.
	return len(trimmed) > 0 && trimmed[0] == '{' &&
		bytes.Contains(trimmed, []byte(`"observations"`))
}

const formatUnknown = Format(-1)

// detectCSVFormat classifies a CSV header as tabular or aggregated events.
// Older BORIS tabular exports carry "Behavior type" instead of "Status".
func detectCSVFormat(header []string) Format {
	cols := map[string]bool{}
	for _, c := range header {
		cols[strings.ToLower(strings.TrimSpace(c))] = true
	}
	if (cols["start (s)"] || cols["start(s)"]) && (cols["stop (s)"] || cols["stop(s)"]) {
		return FormatAggregated
	}
	if cols["time"] && (cols["status"] || cols["behavior type"] || cols["behaviour type"]) {
		return FormatTabular
	}
	return formatUnknown
}

// readCSVTable reads a BORIS CSV, skipping any free-form metadata lines the
// exporter prepends before the real header, and tolerating a UTF-8 BOM.
func readCSVTable(raw []byte) (header []string, rows [][]string, err error) {
	raw = bytes.TrimPrefix(raw, []byte("\ufeff"))

	knownHeaders := []string{"time", "subject", "behavior", "behaviour", "start (s)"}
	lines := strings.Split(string(raw), "\n")
	skip := -1
	for i, line := range lines {
		lower := strings.ToLower(line)
		for _, h := range knownHeaders {
			if strings.Contains(lower, h) {
				skip = i
				break
			}
		}
		if skip >= 0 {
			break
		}
	}
	if skip < 0 {
		return nil, nil, fmt.Errorf("no header row found")
	}

	r := csv.NewReader(strings.NewReader(strings.Join(lines[skip:], "\n")))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("empty table")
	}
	return records[0], records[1:], nil
}

// colIndex returns the index of the first header column matching any of the
// candidate names, case-insensitively, or -1.
func colIndex(header []string, candidates ...string) int {
	for _, cand := range candidates {
		for i, c := range header {
			if strings.EqualFold(strings.TrimSpace(c), cand) {
				return i
			}
		}
	}
	return -1
}

func field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return v, err == nil
}

// uniqueNumeric returns the single distinct numeric value of a column, or 0
// and false when the column is absent, empty, or inconsistent.
func uniqueNumeric(rows [][]string, idx int) (float64, bool) {
	if idx < 0 {
		return 0, false
	}
	var val float64
	seen := false
	for _, row := range rows {
		v, ok := parseFloat(field(row, idx))
		if !ok {
			continue
		}
		if seen && v != val {
			return 0, false
		}
		val, seen = v, true
	}
	return val, seen
}

// mediaRef extracts the media reference from a CSV column: the first
// non-empty value, warning when several distinct ones appear.
func (p *Parser) mediaRef(rows [][]string, idx int, obs string) string {
	if idx < 0 {
		return ""
	}
	var first string
	distinct := map[string]bool{}
	for _, row := range rows {
		v := field(row, idx)
		if v == "" {
			continue
		}
		if first == "" {
			first = v
		}
		distinct[v] = true
	}
	if len(distinct) > 1 {
		p.log.WithField("observation", obs).
			Warnf("multiple media files referenced (%d); validating against %q", len(distinct), first)
	}
	return first
}
