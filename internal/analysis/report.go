package analysis

import (
	"sort"

	"subscan/internal/core"
)

// Entry is one merchant line of a report bucket.
type Entry struct {
	Merchant string     `json:"merchant"`
	Amount   core.Money `json:"amount"`
}

// ScanReport is the aggregated result of a scan. Unknown-frequency charges
// are listed but excluded from every total.
type ScanReport struct {
	Monthly []Entry `json:"monthly"`
	Yearly  []Entry `json:"yearly"`
	Unknown []Entry `json:"unknown"`

	MonthlyTotal      core.Money `json:"monthly_total"`
	YearlyTotal       core.Money `json:"yearly_total"`
	AnnualizedMonthly core.Money `json:"annualized_monthly"`
	TotalAnnualCost   core.Money `json:"total_annual_cost"`
	AverageMonthly    core.Money `json:"average_monthly"`

	// Shares of TotalAnnualCost in [0,1]; both 0 when the total is 0.
	MonthlyShare float64 `json:"monthly_share"`
	YearlyShare  float64 `json:"yearly_share"`
}

// Empty reports whether no charge was found at all.
func (r ScanReport) Empty() bool {
	return len(r.Monthly) == 0 && len(r.Yearly) == 0 && len(r.Unknown) == 0
}

// Produce aggregates facts into a report. It does not deduplicate; callers
// run Dedupe first.
func Produce(facts []core.Fact) ScanReport {
	b := Aggregate(facts)

	r := ScanReport{
		Monthly: sortedEntries(b.Monthly),
		Yearly:  sortedEntries(b.Yearly),
		Unknown: sortedEntries(b.Unknown),
	}
	r.MonthlyTotal = sum(r.Monthly)
	r.YearlyTotal = sum(r.Yearly)
	r.AnnualizedMonthly = r.MonthlyTotal.Times(12)
	r.TotalAnnualCost = r.AnnualizedMonthly.Add(r.YearlyTotal)
	r.AverageMonthly = core.Money{Cents: roundDiv(r.TotalAnnualCost.Cents, 12)}

	if !r.TotalAnnualCost.IsZero() {
		total := float64(r.TotalAnnualCost.Cents)
		r.MonthlyShare = float64(r.AnnualizedMonthly.Cents) / total
		r.YearlyShare = float64(r.YearlyTotal.Cents) / total
	}
	return r
}

// sortedEntries orders by amount descending, then merchant ascending.
func sortedEntries(m map[string]core.Money) []Entry {
	out := make([]Entry, 0, len(m))
	for merchant, amount := range m {
		out = append(out, Entry{Merchant: merchant, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return out[i].Merchant < out[j].Merchant
	})
	return out
}

func sum(entries []Entry) core.Money {
	var total core.Money
	for _, e := range entries {
		total = total.Add(e.Amount)
	}
	return total
}

// roundDiv divides non-negative n by d, rounding half up without
// overflowing near the int64 bound.
func roundDiv(n, d int64) int64 {
	q, r := n/d, n%d
	if r >= d-r {
		q++
	}
	return q
}
