package extract

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"subscan/internal/cache"
)

// Rule maps senders containing Match (case-insensitive) to a canonical name.
type Rule struct {
	Match string `yaml:"match"`
	Name  string `yaml:"name"`
}

// DefaultRules covers senders whose From header does not carry a usable brand.
var DefaultRules = []Rule{
	{Match: "anthropic", Name: "Anthropic Claude"},
	{Match: "apple", Name: "Apple"},
	{Match: "spline", Name: "Spline"},
	{Match: "autodesk", Name: "Autodesk"},
	{Match: "polycam", Name: "Polycam"},
}

// unknownMerchant is used only when the sender itself is blank.
const unknownMerchant = "unknown"

// Resolver maps raw From headers to canonical merchant names.
type Resolver struct {
	rules []Rule
	memo  *cache.LRU[string]
}

// NewResolver builds a resolver evaluating rules in order. A nil slice
// selects DefaultRules.
func NewResolver(rules []Rule) *Resolver {
	if rules == nil {
		rules = DefaultRules
	}
	normalized := make([]Rule, 0, len(rules))
	for _, r := range rules {
		match := strings.ToLower(strings.TrimSpace(r.Match))
		name := strings.TrimSpace(r.Name)
		if match == "" || name == "" {
			continue
		}
		normalized = append(normalized, Rule{Match: match, Name: name})
	}
	return &Resolver{
		rules: normalized,
		memo:  cache.NewLRU[string](1024),
	}
}

// Rules returns the active rule table.
func (r *Resolver) Rules() []Rule {
	return append([]Rule(nil), r.rules...)
}

// Resolve returns the canonical merchant for sender. The result is never empty.
func (r *Resolver) Resolve(sender string) string {
	return r.memo.GetOrCompute(sender, r.resolve)
}

func (r *Resolver) resolve(sender string) string {
	lower := strings.ToLower(sender)
	for _, rule := range r.rules {
		if strings.Contains(lower, rule.Match) {
			return rule.Name
		}
	}
	if name := deriveMerchant(sender); name != "" {
		return name
	}
	if trimmed := strings.TrimSpace(sender); trimmed != "" {
		return trimmed
	}
	return unknownMerchant
}

// deriveMerchant applies the structural fallback: display name, then the
// first label of the address domain, then the raw sender.
func deriveMerchant(sender string) string {
	if display, _, ok := strings.Cut(sender, "<"); ok {
		name := strings.Trim(strings.TrimSpace(display), `"' `)
		if name != "" {
			return name
		}
	}
	if i := strings.LastIndex(sender, "@"); i >= 0 {
		domain := sender[i+1:]
		if j := strings.Index(domain, "."); j >= 0 {
			domain = domain[:j]
		}
		domain = strings.TrimSpace(strings.NewReplacer("<", "", ">", "", `"`, "").Replace(domain))
		if domain != "" {
			return domain
		}
	}
	return strings.TrimSpace(sender)
}

type rulesFile struct {
	Rules []Rule `yaml:"rules"`
}

// ParseRules decodes a YAML rule table of the form:
//
//	rules:
//	  - match: netflix
//	    name: Netflix
func ParseRules(data []byte) ([]Rule, error) {
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse merchant rules: %w", err)
	}
	for i, r := range f.Rules {
		if strings.TrimSpace(r.Match) == "" || strings.TrimSpace(r.Name) == "" {
			return nil, fmt.Errorf("merchant rule %d: match and name are required", i+1)
		}
	}
	return f.Rules, nil
}

// LoadRules reads a YAML rule table from path and places its rules ahead of
// DefaultRules. An empty path returns DefaultRules.
func LoadRules(path string) ([]Rule, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultRules, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read merchant rules %s: %w", path, err)
	}
	custom, err := ParseRules(data)
	if err != nil {
		return nil, err
	}
	return append(custom, DefaultRules...), nil
}
