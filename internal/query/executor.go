// Package query defines the executor boundary and ships the in-memory
// reference executor the assistant runs against by default.
package query

import (
	"context"

	"github.com/oemwatch/alertassist/internal/alert"
	"github.com/oemwatch/alertassist/internal/planner"
)

// Bucket is one group in an aggregate result.
type Bucket struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Result is what an executor returns for one plan. Total always reflects the
// full filtered set; Rows is the paginated slice for LIST mode.
type Result struct {
	Rows       []alert.Alert          `json:"rows,omitempty"`
	Total      int                    `json:"total"`
	BySeverity map[alert.Severity]int `json:"by_severity,omitempty"`
	Buckets    []Bucket               `json:"buckets,omitempty"`
	NoData     bool                   `json:"no_data,omitempty"` // data source empty or unavailable
}

// Executor runs one plan against the alert data source. Implementations must
// treat an empty or unavailable data source as a NoData result, not an error;
// errors are reserved for genuine executor faults.
type Executor interface {
	Execute(ctx context.Context, plan *planner.Plan) (*Result, error)
	// Healthy reports whether the data source is loaded and reachable.
	Healthy(ctx context.Context) bool
}
