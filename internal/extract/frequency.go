package extract

import (
	"strings"

	"subscan/internal/core"
)

type frequencyRule struct {
	frequency core.Frequency
	markers   []string
}

// Evaluated top to bottom; the first class with a matching marker wins.
var frequencyRules = []frequencyRule{
	{core.Monthly, []string{"monthly", "per month", "/month"}},
	{core.Yearly, []string{"annual", "yearly", "per year", "/year"}},
}

// DetectFrequency classifies text by case-insensitive keyword markers.
// A text mentioning both cadences is Monthly.
func DetectFrequency(text string) core.Frequency {
	lower := strings.ToLower(text)
	for _, rule := range frequencyRules {
		for _, m := range rule.markers {
			if strings.Contains(lower, m) {
				return rule.frequency
			}
		}
	}
	return core.Unknown
}
