package api

import (
	"context"

	"card/internal/core"
)

// Ports for upstream usage sources.
type (
	// SummaryReader returns the aggregate usage for the current month.
	SummaryReader interface {
		ReadSummary(ctx context.Context) (core.Summary, error)
	}

	// UsageLister returns the itemized transactions for the current month.
	UsageLister interface {
		ListUsages(ctx context.Context) ([]core.UsageRecord, error)
	}

	// Source is everything the two screens read.
	Source interface {
		SummaryReader
		UsageLister
	}
)
