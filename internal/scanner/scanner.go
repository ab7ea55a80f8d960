// Package scanner drives a mailbox scan: search, fetch, extract and
// deduplicate, with a bounded number of messages in flight.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"subscan/internal/analysis"
	"subscan/internal/core"
	"subscan/internal/extract"
	"subscan/internal/log"
	"subscan/internal/mail"
)

const (
	DefaultMaxMessages = 150
	DefaultWorkers     = 4

	progressEvery = 20
)

// Options tune a Scanner. Zero values select the defaults.
type Options struct {
	Queries     []string
	MaxMessages int
	Workers     int
	Logger      *slog.Logger
}

// Stats counts what happened to each message of a scan.
type Stats struct {
	Found         int           `json:"found"`
	Unique        int           `json:"unique"`
	Processed     int           `json:"processed"`
	FetchErrors   int           `json:"fetch_errors"`
	ExtractErrors int           `json:"extract_errors"`
	NoAmount      int           `json:"no_amount"`
	Facts         int           `json:"facts"`
	Elapsed       time.Duration `json:"elapsed"`
}

// Result holds the deduplicated facts of a scan, in search order.
type Result struct {
	Facts []core.Fact
	Stats Stats
}

type Scanner struct {
	searcher  mail.Searcher
	fetcher   mail.Fetcher
	extractor *extract.Extractor
	opts      Options
	logger    *slog.Logger
}

func New(searcher mail.Searcher, fetcher mail.Fetcher, extractor *extract.Extractor, opts Options) *Scanner {
	if len(opts.Queries) == 0 {
		opts.Queries = mail.DefaultQueries
	}
	if opts.MaxMessages <= 0 {
		opts.MaxMessages = DefaultMaxMessages
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Scanner{
		searcher:  searcher,
		fetcher:   fetcher,
		extractor: extractor,
		opts:      opts,
		logger:    opts.Logger,
	}
}

type outcome struct {
	fact core.Fact
	err  error
}

// Run searches the mailbox and extracts one fact per message. A failed
// search aborts the scan; per-message failures are counted and skipped.
func (s *Scanner) Run(ctx context.Context) (Result, error) {
	start := time.Now()

	refs, err := s.searcher.Search(ctx, s.opts.Queries)
	if err != nil {
		s.logger.ErrorContext(ctx, "Mailbox search failed", log.NewFields().
			WithOperation(log.OpSearch).
			WithErrorType(log.ErrorTypeFetch).
			WithError(err).
			ToSlice()...)
		return Result{}, fmt.Errorf("search mailbox: %w", err)
	}

	var stats Stats
	stats.Found = len(refs)
	refs = analysis.DedupeBy(refs, func(r core.RawMessageRef) string { return r.ID })
	stats.Unique = len(refs)
	if len(refs) > s.opts.MaxMessages {
		refs = refs[:s.opts.MaxMessages]
	}

	s.logger.InfoContext(ctx, "Mailbox search complete",
		"found", stats.Found,
		"unique", stats.Unique,
		"processing", len(refs),
		"workers", s.opts.Workers)

	outcomes, err := s.process(ctx, refs)
	if err != nil {
		return Result{}, err
	}

	facts := make([]core.Fact, 0, len(outcomes))
	for i, o := range outcomes {
		switch {
		case o.err == nil:
			if o.fact.HasAmount() {
				s.logger.DebugContext(ctx, "Extracted charge", log.NewFields().
					WithMessageID(o.fact.MessageID).
					WithCharge(o.fact.Merchant, o.fact.Amount.Cents, o.fact.Frequency.String()).
					ToSlice()...)
			} else {
				stats.NoAmount++
			}
			facts = append(facts, o.fact)
		case errors.Is(o.err, core.ErrExtraction):
			stats.ExtractErrors++
			s.logger.WarnContext(ctx, "Skipping message that could not be extracted",
				skipFields(log.OpExtract, log.ErrorTypeExtraction, refs[i].ID, o.err)...)
		default:
			stats.FetchErrors++
			s.logger.WarnContext(ctx, "Skipping message that could not be fetched",
				skipFields(log.OpFetch, log.ErrorTypeFetch, refs[i].ID, o.err)...)
		}
	}
	stats.Processed = len(outcomes)

	facts = analysis.Dedupe(facts)
	stats.Facts = len(facts)
	stats.Elapsed = time.Since(start)

	s.logger.InfoContext(ctx, "Scan complete",
		"facts", stats.Facts,
		"no_amount", stats.NoAmount,
		"fetch_errors", stats.FetchErrors,
		"extract_errors", stats.ExtractErrors,
		log.FieldDuration, stats.Elapsed.Milliseconds())

	return Result{Facts: facts, Stats: stats}, nil
}

// process fetches and extracts refs concurrently. Each outcome is stored at
// its ref's index so later stages see search order.
func (s *Scanner) process(ctx context.Context, refs []core.RawMessageRef) ([]outcome, error) {
	outcomes := make([]outcome, len(refs))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)

	for i, ref := range refs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = s.processOne(gctx, ref)
			if n := done.Add(1); n%progressEvery == 0 {
				s.logger.InfoContext(gctx, "Scan progress", "processed", n, "total", len(refs))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func skipFields(op, errorType, messageID string, err error) []any {
	return log.NewFields().
		WithOperation(op).
		WithErrorType(errorType).
		WithMessageID(messageID).
		WithError(err).
		ToSlice()
}

func (s *Scanner) processOne(ctx context.Context, ref core.RawMessageRef) outcome {
	msg, err := s.fetcher.Fetch(ctx, ref)
	if err != nil {
		return outcome{err: err}
	}
	fact, err := s.extractor.Extract(msg)
	if err != nil {
		return outcome{err: err}
	}
	if fact.MessageID == "" {
		fact.MessageID = ref.ID
	}
	return outcome{fact: fact}
}
