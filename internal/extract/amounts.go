package extract

import (
	"regexp"

	"subscan/internal/core"
)

var (
	// optional "$", integer part with optional thousands groups, optional cents
	amountPattern       = regexp.MustCompile(`\$?\d+(?:,\d{3})*(?:\.\d{2})?`)
	dollarAmountPattern = regexp.MustCompile(`\$\d+(?:,\d{3})*(?:\.\d{2})?`)
)

const (
	// maxCandidates caps the distinct amounts kept for the raw summary view.
	maxCandidates = 3

	// MaxChargeCents is the largest token read as a charge ($1,000,000.00).
	// Longer digit runs are order, tracking or account numbers.
	MaxChargeCents = 100_000_000
)

// Amounts returns every dollar amount in text, in order of appearance,
// including zero values. Tokens above MaxChargeCents are skipped.
func Amounts(text string, requireDollarSign bool) []core.Money {
	re := amountPattern
	if requireDollarSign {
		re = dollarAmountPattern
	}
	tokens := re.FindAllString(text, -1)
	out := make([]core.Money, 0, len(tokens))
	for _, tok := range tokens {
		cents, err := core.ParseDollarsToCents(tok)
		if err != nil || cents > MaxChargeCents {
			continue
		}
		out = append(out, core.Money{Cents: cents})
	}
	return out
}

// FirstPositive returns the first amount greater than zero, skipping
// "$0.00" placeholders.
func FirstPositive(amounts []core.Money) (core.Money, bool) {
	for _, a := range amounts {
		if a.Cents > 0 {
			return a, true
		}
	}
	return core.Money{}, false
}

// DistinctPositive returns up to limit distinct positive amounts in
// first-seen order.
func DistinctPositive(amounts []core.Money, limit int) []core.Money {
	seen := make(map[int64]struct{}, len(amounts))
	var out []core.Money
	for _, a := range amounts {
		if a.Cents <= 0 {
			continue
		}
		if _, ok := seen[a.Cents]; ok {
			continue
		}
		seen[a.Cents] = struct{}{}
		out = append(out, a)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
