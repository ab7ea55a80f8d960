package analysis

import "subscan/internal/core"

// Buckets holds, per billing cadence, the largest charge seen for each
// merchant.
type Buckets struct {
	Monthly map[string]core.Money
	Yearly  map[string]core.Money
	Unknown map[string]core.Money
}

func newBuckets() Buckets {
	return Buckets{
		Monthly: make(map[string]core.Money),
		Yearly:  make(map[string]core.Money),
		Unknown: make(map[string]core.Money),
	}
}

func (b Buckets) bucket(f core.Frequency) map[string]core.Money {
	switch f {
	case core.Monthly:
		return b.Monthly
	case core.Yearly:
		return b.Yearly
	default:
		return b.Unknown
	}
}

// Aggregate groups facts by frequency and merchant. Facts without an amount
// are skipped.
func Aggregate(facts []core.Fact) Buckets {
	b := newBuckets()
	for _, f := range facts {
		if !f.HasAmount() {
			continue
		}
		m := b.bucket(f.Frequency)
		if cur, ok := m[f.Merchant]; !ok || f.Amount.Cents > cur.Cents {
			m[f.Merchant] = *f.Amount
		}
	}
	return b
}
