// Package backend opens the mailbox a scan reads from, selected by
// configuration.
package backend

import (
	"context"
	"errors"
	"fmt"

	"subscan/internal/config"
	"subscan/internal/mail"
	"subscan/internal/mail/gmail"
)

// Kind names a mailbox implementation.
type Kind string

const (
	KindGmail  Kind = "gmail"
	KindMemory Kind = "memory"
)

// Kinds lists the supported mailbox kinds.
func Kinds() []Kind {
	return []Kind{KindGmail, KindMemory}
}

func (k Kind) Valid() bool {
	switch k {
	case KindGmail, KindMemory:
		return true
	}
	return false
}

func (k Kind) String() string {
	return string(k)
}

// Config selects and parameterizes a mailbox.
type Config struct {
	Kind Kind

	// Gmail
	Credentials        gmail.Credentials
	MaxResultsPerQuery int64

	// Memory
	MailboxDir string
}

// Opened is a ready mailbox. Close may be nil.
type Opened struct {
	Mailbox mail.Mailbox
	Close   func() error
}

// Opener creates mailboxes.
type Opener interface {
	Open(ctx context.Context, cfg Config) (*Opened, error)
}

// FromAppConfig extracts the mailbox settings from the application config.
func FromAppConfig(c *config.Config) (Config, error) {
	if c == nil {
		return Config{}, errors.New("app config is nil")
	}
	kind := Kind(c.MailBackend)
	if !kind.Valid() {
		return Config{}, fmt.Errorf("unknown mailbox kind %q", c.MailBackend)
	}
	return Config{
		Kind: kind,
		Credentials: gmail.Credentials{
			ClientFile: c.GoogleOAuthClientFile,
			ClientJSON: c.GoogleOAuthClientJSON,
			TokenFile:  c.GoogleOAuthTokenFile,
			TokenJSON:  c.GoogleOAuthTokenJSON,
		},
		MaxResultsPerQuery: int64(c.MaxResultsPerQuery),
		MailboxDir:         c.MemoryMailboxDir,
	}, nil
}

// Validate checks that the settings required by Kind are present.
func (c Config) Validate() error {
	switch c.Kind {
	case KindGmail:
		if c.Credentials.ClientFile == "" && c.Credentials.ClientJSON == "" {
			return errors.New("gmail mailbox needs an OAuth client file or inline client JSON")
		}
		if c.Credentials.TokenFile == "" && c.Credentials.TokenJSON == "" {
			return errors.New("gmail mailbox needs an OAuth token file or inline token JSON")
		}
	case KindMemory:
		if c.MailboxDir == "" {
			return errors.New("memory mailbox needs a fixture directory")
		}
	default:
		return fmt.Errorf("unknown mailbox kind %q", c.Kind)
	}
	return nil
}
