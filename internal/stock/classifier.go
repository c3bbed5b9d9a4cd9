package stock

import (
	"net/url"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Predicate tests lower-cased page content.
type Predicate func(content string) bool

// Contains matches when the content contains phrase. The phrase must be
// lower case.
func Contains(phrase string) Predicate {
	return func(content string) bool {
		return strings.Contains(content, phrase)
	}
}

// AnyOf matches when at least one predicate matches.
func AnyOf(preds ...Predicate) Predicate {
	return func(content string) bool {
		for _, p := range preds {
			if p(content) {
				return true
			}
		}
		return false
	}
}

// AllOf matches when every predicate matches.
func AllOf(preds ...Predicate) Predicate {
	return func(content string) bool {
		for _, p := range preds {
			if !p(content) {
				return false
			}
		}
		return true
	}
}

// Not inverts p.
func Not(p Predicate) Predicate {
	return func(content string) bool {
		return !p(content)
	}
}

// Rule yields Result when Match holds.
type Rule struct {
	Name   string
	Match  Predicate
	Result Status
}

// Retailer is a named rule set selected by URL host.
type Retailer struct {
	Name string
	// Matches receives the lower-cased host of the product URL.
	Matches func(host string) bool
	Rules   []Rule
}

// HostContains builds a Matches func for hosts containing fragment.
func HostContains(fragment string) func(string) bool {
	return func(host string) bool {
		return strings.Contains(host, fragment)
	}
}

// DefaultRetailers returns the built-in retailer rule sets in dispatch order.
func DefaultRetailers() []Retailer {
	return []Retailer{
		{
			Name:    "lego",
			Matches: HostContains("lego.com"),
			Rules: []Rule{
				{Name: "add to bag", Match: Contains("add to bag"), Result: InStock},
				// backorders can still be bought
				{Name: "backorder", Match: Contains("backorder"), Result: InStock},
				{Name: "coming soon", Match: Contains("coming soon"), Result: ComingSoon},
			},
		},
		{
			Name:    "amazon",
			Matches: HostContains("amazon"),
			Rules: []Rule{
				{
					Name:   "add to cart",
					Match:  AllOf(Contains("add to cart"), Not(Contains("currently unavailable"))),
					Result: InStock,
				},
			},
		},
		{
			Name:    "target",
			Matches: HostContains("target"),
			Rules: []Rule{
				{Name: "ship it or add to cart", Match: AnyOf(Contains("ship it"), Contains("add to cart")), Result: InStock},
			},
		},
	}
}

// GenericRetailer is used when no retailer matches the URL.
func GenericRetailer() Retailer {
	return Retailer{
		Name:    "generic",
		Matches: func(string) bool { return true },
		Rules: []Rule{
			{Name: "add to cart or bag", Match: AnyOf(Contains("add to cart"), Contains("add to bag")), Result: InStock},
		},
	}
}

// Classifier infers a stock status from page content. It holds no mutable
// state and is safe for concurrent use.
type Classifier struct {
	retailers []Retailer
	fallback  Retailer
	def       Status
}

// NewClassifier builds a classifier that dispatches to the first retailer whose
// Matches returns true, or to fallback. Unmatched rules yield OutOfStock.
func NewClassifier(retailers []Retailer, fallback Retailer) *Classifier {
	return &Classifier{
		retailers: retailers,
		fallback:  fallback,
		def:       OutOfStock,
	}
}

// DefaultClassifier returns a classifier with the built-in retailer rules.
func DefaultClassifier() *Classifier {
	return NewClassifier(DefaultRetailers(), GenericRetailer())
}

// RetailerFor returns the rule set used for rawURL.
func (c *Classifier) RetailerFor(rawURL string) Retailer {
	host := hostOf(rawURL)
	for _, r := range c.retailers {
		if r.Matches(host) {
			return r
		}
	}
	return c.fallback
}

// Verdict is the outcome of classifying one page. Rule is empty when no rule
// matched and the default status applied.
type Verdict struct {
	Status   Status
	Retailer string
	Rule     string
}

// Classify returns the status for content loaded from rawURL. Content is
// case-folded here, so raw page content may be passed as is.
func (c *Classifier) Classify(rawURL, content string) Status {
	return c.Evaluate(rawURL, content).Status
}

// Evaluate is Classify that also reports the retailer and rule that decided.
func (c *Classifier) Evaluate(rawURL, content string) Verdict {
	r := c.RetailerFor(rawURL)
	lower := cases.Lower(language.Und).String(content)
	for _, rule := range r.Rules {
		if rule.Match(lower) {
			return Verdict{Status: rule.Result, Retailer: r.Name, Rule: rule.Name}
		}
	}
	return Verdict{Status: c.def, Retailer: r.Name}
}

// hostOf returns the lower-cased host of rawURL, or the whole lower-cased URL
// when it has no parseable host.
func hostOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return strings.ToLower(rawURL)
	}
	return strings.ToLower(u.Hostname())
}
