package query

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oemwatch/alertassist/internal/alert"
)

func TestReadCSV(t *testing.T) {
	data := `database,severity,time,error_code,message
midevstb,CRITICAL,2026-08-29T10:15:00Z,ORA-16191,standby redo transport failure
MIDEVSTBN,warning,2026-08-29 11:30:00,,tablespace USERS is 92 percent full
PRODDB01,INFO,2026-08-29T12:00:00Z,,backup completed
`

	alerts, err := ReadCSV(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, alerts, 3)

	// Database and error code are normalized to upper case.
	assert.Equal(t, "MIDEVSTB", alerts[0].Database)
	assert.Equal(t, alert.SeverityCritical, alerts[0].Severity)
	assert.Equal(t, "ORA-16191", alerts[0].ErrorCode)
	assert.Equal(t, "standby redo transport failure", alerts[0].Message)

	assert.Equal(t, alert.SeverityWarning, alerts[1].Severity)
	assert.Equal(t, 11, alerts[1].Time.Hour())
}

func TestReadCSVAlternateHeaders(t *testing.T) {
	data := `target_name,level,collection_time,alert_message
MIDEVSTB,CRITICAL,2026-08-29 10:15:00,standby apply lag detected
`

	alerts, err := ReadCSV(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "MIDEVSTB", alerts[0].Database)
	assert.Equal(t, alert.SeverityCritical, alerts[0].Severity)
}

func TestReadCSVSkipsBadTimestamps(t *testing.T) {
	data := `database,severity,time,message
MIDEVSTB,CRITICAL,not-a-time,dropped row
MIDEVSTB,WARNING,2026-08-29T10:15:00Z,kept row
`

	alerts, err := ReadCSV(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "kept row", alerts[0].Message)
}

func TestReadCSVRejectsMissingColumns(t *testing.T) {
	data := `database,time,message
MIDEVSTB,2026-08-29T10:15:00Z,no severity column
`

	_, err := ReadCSV(strings.NewReader(data))
	assert.Error(t, err)
}

func TestReadCSVShortRows(t *testing.T) {
	// Rows may omit trailing optional columns.
	data := `database,severity,time,error_code,message
MIDEVSTB,CRITICAL,2026-08-29T10:15:00Z
`

	alerts, err := ReadCSV(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Empty(t, alerts[0].ErrorCode)
	assert.Empty(t, alerts[0].Message)
}

func TestLoadCSVMissingFile(t *testing.T) {
	_, err := LoadCSV("/nonexistent/alerts.csv")
	assert.Error(t, err)
}
