// Package extract turns a fetched billing email into a subscription Fact.
//
// Matching always runs over the full subject and body; truncation to display
// limits happens only when the Fact is built.
package extract

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"subscan/internal/core"
)

// Limits are the display lengths, in runes, applied to Fact fields.
type Limits struct {
	Merchant int
	Subject  int
	Sender   int
	Date     int
}

// DefaultLimits returns the display lengths used by the report.
func DefaultLimits() Limits {
	return Limits{
		Merchant: 40,
		Subject:  80,
		Sender:   60,
		Date:     30,
	}
}

// Options configures an Extractor.
type Options struct {
	Limits Limits
	// RequireDollarSign only accepts "$"-prefixed amounts.
	RequireDollarSign bool
}

// Extractor builds Facts from raw messages.
type Extractor struct {
	resolver *Resolver
	opts     Options
}

// New creates an Extractor. A nil resolver uses DefaultRules.
func New(resolver *Resolver, opts Options) *Extractor {
	if resolver == nil {
		resolver = NewResolver(nil)
	}
	if opts.Limits == (Limits{}) {
		opts.Limits = DefaultLimits()
	}
	return &Extractor{resolver: resolver, opts: opts}
}

// Extract builds a Fact from msg. Any fault is returned wrapping
// core.ErrExtraction so that one bad message cannot abort a batch.
func (e *Extractor) Extract(msg core.RawMessage) (fact core.Fact, err error) {
	defer func() {
		if r := recover(); r != nil {
			fact = core.Fact{}
			err = fmt.Errorf("%w: message %s: %v", core.ErrExtraction, msg.ID, r)
		}
	}()

	msg.Subject = strings.ToValidUTF8(msg.Subject, "\uFFFD")
	msg.Sender = strings.ToValidUTF8(msg.Sender, "\uFFFD")
	msg.BodyText = strings.ToValidUTF8(msg.BodyText, "\uFFFD")

	corpus := msg.Subject + " " + msg.BodyText

	amounts := Amounts(corpus, e.opts.RequireDollarSign)
	fact = core.Fact{
		Merchant:   Truncate(e.resolver.Resolve(msg.Sender), e.opts.Limits.Merchant),
		Candidates: DistinctPositive(amounts, maxCandidates),
		Frequency:  DetectFrequency(corpus),
		Subject:    Truncate(msg.Subject, e.opts.Limits.Subject),
		Sender:     Truncate(msg.Sender, e.opts.Limits.Sender),
		Date:       Truncate(msg.DateHeader, e.opts.Limits.Date),
		MessageID:  msg.ID,
	}
	if amount, ok := FirstPositive(amounts); ok {
		fact.Amount = &amount
	}

	if err := fact.Validate(); err != nil {
		return core.Fact{}, fmt.Errorf("%w: message %s: %v", core.ErrExtraction, msg.ID, err)
	}
	return fact, nil
}

// Truncate shortens s to at most n runes. n <= 0 disables truncation.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
