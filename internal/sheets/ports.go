// Package sheets defines where spending summaries are exported to and the
// tabular layout every exporter writes.
package sheets

import (
	"context"

	"budgetbuddy/internal/core"
)

// Ports for outbound adapters.
type (
	// SummaryExporter publishes an owner's summary and returns a reference
	// to where it was written (a sheet range, a file path).
	SummaryExporter interface {
		ExportSummary(ctx context.Context, ownerID string, summary core.Summary) (ref string, err error)
	}
)
