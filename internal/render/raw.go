package render

import (
	"io"
	"sort"
	"strings"

	"subscan/internal/core"
	"subscan/internal/extract"
)

const (
	rawMaxAmounts    = 3
	rawSubjectLength = 60
	rawSenderLength  = 50
)

type merchantSummary struct {
	amounts []core.Money
	seen    map[int64]struct{}
	subject string
	sender  string
}

// Raw writes a per-merchant listing of every billing message that carried
// an amount: up to three distinct amounts plus the first message seen.
func Raw(w io.Writer, facts []core.Fact) error {
	p := &printer{w: w}
	summaries := make(map[string]*merchantSummary)

	for _, f := range facts {
		if len(f.Candidates) == 0 {
			continue
		}
		s, ok := summaries[f.Merchant]
		if !ok {
			s = &merchantSummary{seen: make(map[int64]struct{}), subject: f.Subject, sender: f.Sender}
			summaries[f.Merchant] = s
		}
		for _, c := range f.Candidates {
			if len(s.amounts) == rawMaxAmounts {
				break
			}
			if _, dup := s.seen[c.Cents]; dup {
				continue
			}
			s.seen[c.Cents] = struct{}{}
			s.amounts = append(s.amounts, c)
		}
	}

	merchants := make([]string, 0, len(summaries))
	for m := range summaries {
		merchants = append(merchants, m)
	}
	sort.Strings(merchants)

	p.heading("SUBSCRIPTION SUMMARY")
	for _, m := range merchants {
		s := summaries[m]
		amounts := make([]string, 0, len(s.amounts))
		for _, a := range s.amounts {
			amounts = append(amounts, a.String())
		}
		p.printf("%s\n", strings.ToUpper(m))
		p.printf("   Amount(s): %s\n", strings.Join(amounts, ", "))
		p.printf("   Last email: %s...\n", extract.Truncate(s.subject, rawSubjectLength))
		p.printf("   From: %s\n\n", extract.Truncate(s.sender, rawSenderLength))
	}
	p.printf("%s\n\nFound %d companies with billing emails\n", strings.Repeat("=", ruleWidth), len(merchants))
	return p.err
}
