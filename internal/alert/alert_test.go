package alert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in   string
		want Severity
	}{
		{"CRITICAL", SeverityCritical},
		{"critical", SeverityCritical},
		{"criticals", SeverityCritical},
		{"crit", SeverityCritical},
		{"high", SeverityCritical},
		{"error", SeverityCritical},
		{"warning", SeverityWarning},
		{"warn", SeverityWarning},
		{" WARNING ", SeverityWarning},
		{"info", SeverityInfo},
		{"informational", SeverityInfo},
		{"", SeverityNone},
		{"bogus", SeverityNone},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSeverity(tt.in))
		})
	}
}

func TestTimeRangeWindow(t *testing.T) {
	now := time.Date(2026, 8, 30, 14, 30, 0, 0, time.UTC)

	t.Run("last hour", func(t *testing.T) {
		start, end := TimeRangeLastHour.Window(now)
		assert.Equal(t, now.Add(-time.Hour), start)
		assert.Equal(t, now, end)
	})

	t.Run("yesterday is the previous calendar day", func(t *testing.T) {
		start, end := TimeRangeYesterday.Window(now)
		assert.Equal(t, time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC), start)
		assert.Equal(t, time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC), end)
	})

	t.Run("none is unbounded start", func(t *testing.T) {
		start, end := TimeRangeNone.Window(now)
		assert.True(t, start.IsZero())
		assert.Equal(t, now, end)
	})
}

func TestMatchesIssue(t *testing.T) {
	tests := []struct {
		name  string
		alert Alert
		issue IssueType
		want  bool
	}{
		{
			name:  "standby keyword in message",
			alert: Alert{Message: "standby redo transport failure"},
			issue: IssueStandby,
			want:  true,
		},
		{
			name:  "data guard error code",
			alert: Alert{Message: "transport failure", ErrorCode: "ORA-16191"},
			issue: IssueStandby,
			want:  true,
		},
		{
			name:  "tablespace",
			alert: Alert{Message: "tablespace USERS is 92 percent full"},
			issue: IssueTablespace,
			want:  true,
		},
		{
			name:  "listener is a connection issue",
			alert: Alert{Message: "TNS listener not reachable"},
			issue: IssueConnection,
			want:  true,
		},
		{
			name:  "internal error code",
			alert: Alert{Message: "process crashed", ErrorCode: "ORA-600"},
			issue: IssueInternal,
			want:  true,
		},
		{
			name:  "no match across groups",
			alert: Alert{Message: "backup completed"},
			issue: IssueStandby,
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.alert.MatchesIssue(tt.issue))
		})
	}
}
