package backend

import (
	"context"
	"fmt"

	"subscan/internal/log"
	"subscan/internal/mail/gmail"
	"subscan/internal/mail/memory"
)

// DefaultOpener builds the Gmail and memory mailboxes.
type DefaultOpener struct {
	logger *log.Logger
}

func NewOpener(logger *log.Logger) *DefaultOpener {
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentBackend)
	}
	return &DefaultOpener{logger: logger}
}

// Open validates cfg and returns the mailbox it describes.
func (o *DefaultOpener) Open(ctx context.Context, cfg Config) (*Opened, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Kind {
	case KindGmail:
		gmailLogger := o.logger.WithComponent(log.ComponentGmail).Slog()
		client, err := gmail.New(ctx, cfg.Credentials, gmail.Options{
			MaxResultsPerQuery: cfg.MaxResultsPerQuery,
			Retry:              gmail.DefaultRetryPolicy(),
			Breaker:            gmail.NewFetchBreaker(gmailLogger),
			Logger:             gmailLogger,
		})
		if err != nil {
			return nil, fmt.Errorf("open gmail mailbox: %w", err)
		}
		o.logger.InfoContext(ctx, "Opened Gmail mailbox", log.FieldBackend, cfg.Kind, "max_results_per_query", cfg.MaxResultsPerQuery)
		return &Opened{Mailbox: client}, nil

	case KindMemory:
		store, err := memory.NewFromDir(cfg.MailboxDir)
		if err != nil {
			return nil, fmt.Errorf("open memory mailbox: %w", err)
		}
		o.logger.InfoContext(ctx, "Opened memory mailbox", log.FieldBackend, cfg.Kind, "dir", cfg.MailboxDir, "messages", store.Len())
		return &Opened{Mailbox: store}, nil
	}
	return nil, fmt.Errorf("unknown mailbox kind %q", cfg.Kind)
}
