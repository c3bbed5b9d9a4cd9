package stock

import (
	"strings"
	"time"
)

// Status is the stock state of a product at a point in time.
type Status string

const (
	InStock    Status = "IN_STOCK"
	OutOfStock Status = "OUT_OF_STOCK"
	ComingSoon Status = "COMING_SOON"
)

// Valid reports whether s is one of the known statuses. The empty status
// (never checked) is not valid.
func (s Status) Valid() bool {
	switch s {
	case InStock, OutOfStock, ComingSoon:
		return true
	}
	return false
}

// Availability maps the status to its schema.org availability URL.
func (s Status) Availability() string {
	switch s {
	case InStock:
		return "https://schema.org/InStock"
	case ComingSoon:
		return "https://schema.org/PreOrder"
	default:
		return "https://schema.org/OutOfStock"
	}
}

// ParseStatus accepts the stored form ("IN_STOCK") as well as the display
// form used on the site ("In Stock", "coming soon").
func ParseStatus(v string) (Status, bool) {
	norm := strings.ToUpper(strings.TrimSpace(v))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	s := Status(norm)
	return s, s.Valid()
}

// Product is a trackable retail item.
type Product struct {
	ID          string
	Name        string
	Retailer    string
	BuyURL      string
	Status      Status
	LastChecked *time.Time
}

// Fields holds the columns a check may write back. Zero values are left
// untouched.
type Fields struct {
	Status      Status
	LastChecked time.Time
}

// Empty reports whether no field is set.
func (f Fields) Empty() bool {
	return f.Status == "" && f.LastChecked.IsZero()
}

// Change describes a status transition observed during a run.
type Change struct {
	RunID     string    `json:"run_id"`
	ProductID string    `json:"product_id"`
	Name      string    `json:"name"`
	Retailer  string    `json:"retailer,omitempty"`
	BuyURL    string    `json:"buy_url"`
	From      Status    `json:"from,omitempty"`
	To        Status    `json:"to"`
	CheckedAt time.Time `json:"checked_at"`
}
