package core

import (
	"errors"
	"strings"
)

const (
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
	Unknown Frequency = "unknown"
)

type (
	// Frequency is the detected billing cadence of a charge.
	Frequency string

	// RawMessageRef is the opaque handle a mailbox search returns.
	RawMessageRef struct {
		ID string
	}

	// RawMessage is a fetched message reduced to the fields extraction needs.
	RawMessage struct {
		ID         string
		Subject    string
		Sender     string
		DateHeader string
		BodyText   string
	}

	// Fact is a subscription record extracted from one message.
	Fact struct {
		Merchant   string    `json:"merchant"`
		Amount     *Money    `json:"amount,omitempty"`
		Candidates []Money   `json:"candidates,omitempty"` // distinct positive amounts, at most 3
		Frequency  Frequency `json:"frequency"`
		Subject    string    `json:"subject"`
		Sender     string    `json:"sender"`
		Date       string    `json:"date"`
		MessageID  string    `json:"message_id"`
	}
)

var (
	// ErrFetch marks a per-message failure of the mailbox collaborator.
	ErrFetch = errors.New("fetch message")
	// ErrExtraction marks malformed or undecodable message content.
	ErrExtraction = errors.New("extract message")

	ErrEmptyMerchant     = errors.New("empty merchant")
	ErrInvalidFrequency  = errors.New("invalid frequency")
	ErrNonPositiveAmount = errors.New("amount must be positive")
)

func (f Frequency) Valid() bool {
	switch f {
	case Monthly, Yearly, Unknown:
		return true
	}
	return false
}

func (f Frequency) String() string {
	return string(f)
}

// HasAmount reports whether the fact carries a usable charge.
func (f Fact) HasAmount() bool {
	return f.Amount != nil && f.Amount.Cents > 0
}

func (f Fact) Validate() error {
	if strings.TrimSpace(f.Merchant) == "" {
		return ErrEmptyMerchant
	}
	if !f.Frequency.Valid() {
		return ErrInvalidFrequency
	}
	if f.Amount != nil && f.Amount.Cents <= 0 {
		return ErrNonPositiveAmount
	}
	for _, c := range f.Candidates {
		if c.Cents <= 0 {
			return ErrNonPositiveAmount
		}
	}
	return nil
}
