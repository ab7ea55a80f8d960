// Package render formats scan reports for the terminal or for machines.
package render

import (
	"fmt"
	"io"
	"math"
	"strings"

	"subscan/internal/analysis"
	"subscan/internal/core"
)

const (
	DefaultBarWidth     = 40
	DefaultUnknownLimit = 5

	labelWidth = 30
	ruleWidth  = 70
	barGlyph   = "█"
)

// TextOptions tune the text report. Zero values select the defaults.
type TextOptions struct {
	BarWidth     int
	UnknownLimit int
}

func (o TextOptions) withDefaults() TextOptions {
	if o.BarWidth <= 0 {
		o.BarWidth = DefaultBarWidth
	}
	if o.UnknownLimit <= 0 {
		o.UnknownLimit = DefaultUnknownLimit
	}
	return o
}

// printer remembers the first write error so callers check once.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) heading(title string) {
	p.printf("\n%s\n  %s\n%s\n\n", strings.Repeat("=", ruleWidth), title, strings.Repeat("=", ruleWidth))
}

// BarLength scales value against max onto width cells. It is 0 when max is 0.
func BarLength(value, top core.Money, width int) int {
	if top.Cents <= 0 || value.Cents <= 0 {
		return 0
	}
	n := int(math.Round(float64(value.Cents) / float64(top.Cents) * float64(width)))
	return min(n, width)
}

// Text writes the human-readable report with bar charts.
func Text(w io.Writer, r analysis.ScanReport, opts TextOptions) error {
	opts = opts.withDefaults()
	p := &printer{w: w}
	blank := ""

	p.heading("MONTHLY SUBSCRIPTIONS")
	if len(r.Monthly) == 0 {
		p.printf("   No monthly subscriptions found\n")
	} else {
		writeBars(p, r.Monthly, opts.BarWidth)
		p.printf("\n%s\n", strings.Repeat("-", ruleWidth))
		p.printf("%-*s %-*s %s/month\n", labelWidth, "MONTHLY TOTAL:", opts.BarWidth, blank, r.MonthlyTotal)
		p.printf("%-*s %-*s %s/year\n", labelWidth, "(Annual equivalent:)", opts.BarWidth, blank, r.AnnualizedMonthly)
	}

	p.heading("YEARLY SUBSCRIPTIONS")
	if len(r.Yearly) == 0 {
		p.printf("   No yearly subscriptions found\n")
	} else {
		writeBars(p, r.Yearly, opts.BarWidth)
		p.printf("\n%s\n", strings.Repeat("-", ruleWidth))
		p.printf("%-*s %-*s %s/year\n", labelWidth, "YEARLY TOTAL:", opts.BarWidth, blank, r.YearlyTotal)
	}

	if len(r.Unknown) > 0 {
		p.heading("UNKNOWN FREQUENCY")
		for i, e := range r.Unknown {
			if i == opts.UnknownLimit {
				p.printf("  ... and %d more\n", len(r.Unknown)-i)
				break
			}
			p.printf("  • %s: %s\n", e.Merchant, e.Amount)
		}
	}

	p.heading("TOTAL ANNUAL SPENDING")
	p.printf("  Monthly subscriptions (×12):    %12s\n", r.AnnualizedMonthly)
	p.printf("  Yearly subscriptions:           %12s\n", r.YearlyTotal)
	p.printf("  %s\n", strings.Repeat("-", 48))
	p.printf("  TOTAL ANNUAL COST:              %12s\n", r.TotalAnnualCost)
	p.printf("\n  Average monthly equivalent:     %12s/month\n", r.AverageMonthly)

	if r.TotalAnnualCost.Cents > 0 {
		monthlyPct := r.MonthlyShare * 100
		yearlyPct := r.YearlyShare * 100
		p.heading("SPENDING BREAKDOWN")
		p.printf("  Monthly subscriptions: %5.1f%% %s\n", monthlyPct, strings.Repeat(barGlyph, int(monthlyPct/2)))
		p.printf("  Yearly subscriptions:  %5.1f%% %s\n", yearlyPct, strings.Repeat(barGlyph, int(yearlyPct/2)))
	}

	p.printf("\n%s\n", strings.Repeat("=", ruleWidth))
	return p.err
}

func writeBars(p *printer, entries []analysis.Entry, width int) {
	top := entries[0].Amount
	for _, e := range entries[1:] {
		if e.Amount.Cents > top.Cents {
			top = e.Amount
		}
	}
	for _, e := range entries {
		bar := strings.Repeat(barGlyph, BarLength(e.Amount, top, width))
		p.printf("%-*s %-*s %s\n", labelWidth, e.Merchant, width, bar, e.Amount)
	}
}
