// Package mail defines the mailbox ports the scanner depends on and the
// normalization of raw message payloads into plain text.
package mail

import (
	"context"

	"subscan/internal/core"
)

// Ports for outbound adapters.
type (
	// Searcher runs mailbox queries. Results may overlap across queries and
	// their order is not guaranteed.
	Searcher interface {
		Search(ctx context.Context, queries []string) ([]core.RawMessageRef, error)
	}

	// Fetcher loads a single message. Errors wrap core.ErrFetch, or
	// core.ErrExtraction when the payload cannot be decoded.
	Fetcher interface {
		Fetch(ctx context.Context, ref core.RawMessageRef) (core.RawMessage, error)
	}

	// Mailbox is a searchable, fetchable message source.
	Mailbox interface {
		Searcher
		Fetcher
	}
)

// DefaultQueries are the Gmail-syntax searches for billing mail.
var DefaultQueries = []string{
	`subject:"monthly subscription" OR subject:"annual subscription"`,
	`subject:"subscription renewal"`,
	`subject:"your subscription"`,
	`from:(billing@anthropic OR noreply@apple OR billing@spline)`,
	`subject:"your plan" OR subject:"membership"`,
	`"recurring charge" OR "auto-renewal" OR "subscription fee"`,
	`subject:(subscription OR billing OR payment OR invoice OR receipt)`,
	`from:(noreply OR billing OR subscriptions OR payments)`,
	`subject:"monthly payment"`,
	`subject:"your bill"`,
}
