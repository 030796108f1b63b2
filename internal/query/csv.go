package query

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/oemwatch/alertassist/internal/alert"
)

// timeLayouts tried in order when parsing the alert timestamp column.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"02-Jan-2006 15:04:05",
}

// LoadCSV reads the alert table from a CSV file with a header row. Expected
// columns (case-insensitive, any order): database, severity, time,
// error_code, message. Rows with an unparseable timestamp are skipped, not
// fatal; a malformed header is.
func LoadCSV(path string) ([]alert.Alert, error) {
	f, err := os.Open(path) // #nosec G304 -- operator-supplied data file
	if err != nil {
		return nil, fmt.Errorf("open alerts file: %w", err)
	}
	defer f.Close()

	return ReadCSV(f)
}

// ReadCSV parses the alert table from r. See LoadCSV for the format.
func ReadCSV(r io.Reader) ([]alert.Alert, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read alerts header: %w", err)
	}
	cols, err := headerIndex(header)
	if err != nil {
		return nil, err
	}

	var alerts []alert.Alert
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read alerts row: %w", err)
		}
		a, ok := rowToAlert(rec, cols)
		if !ok {
			continue
		}
		alerts = append(alerts, a)
	}
	return alerts, nil
}

type columnIndex struct {
	database, severity, time, errorCode, message int
}

func headerIndex(header []string) (columnIndex, error) {
	idx := columnIndex{database: -1, severity: -1, time: -1, errorCode: -1, message: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "database", "db", "target", "target_name":
			idx.database = i
		case "severity", "level":
			idx.severity = i
		case "time", "timestamp", "alert_time", "collection_time":
			idx.time = i
		case "error_code", "code", "ora_code":
			idx.errorCode = i
		case "message", "msg", "text", "alert_message":
			idx.message = i
		}
	}
	if idx.database < 0 || idx.severity < 0 || idx.time < 0 || idx.message < 0 {
		return idx, fmt.Errorf("alerts header missing required columns, got %v", header)
	}
	return idx, nil
}

func rowToAlert(rec []string, cols columnIndex) (alert.Alert, bool) {
	field := func(i int) string {
		if i < 0 || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	ts, ok := parseTime(field(cols.time))
	if !ok {
		return alert.Alert{}, false
	}
	return alert.Alert{
		Database:  strings.ToUpper(field(cols.database)),
		Severity:  alert.ParseSeverity(field(cols.severity)),
		Time:      ts,
		ErrorCode: strings.ToUpper(field(cols.errorCode)),
		Message:   field(cols.message),
	}, true
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
