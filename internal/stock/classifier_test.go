package stock

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		content string
		want    Status
	}{
		{"lego add to bag", "https://www.lego.com/product/x", "...ADD TO BAG...", InStock},
		{"lego add to bag wins over coming soon", "https://www.lego.com/product/x", "coming soon add to bag", InStock},
		{"lego backorder", "https://www.lego.com/en-us/product/x", "Backorder now, ships in 60 days", InStock},
		{"lego coming soon", "https://www.lego.com/product/x", "Coming Soon - notify me", ComingSoon},
		{"lego nothing", "https://www.lego.com/product/x", "temporarily out of stock", OutOfStock},
		{"lego ignores add to cart", "https://www.lego.com/product/x", "add to cart", OutOfStock},
		{"amazon add to cart", "https://www.amazon.com/dp/x", "<button>Add to Cart</button>", InStock},
		{"amazon unavailable", "https://www.amazon.com/dp/x", "add to cart ... currently unavailable", OutOfStock},
		{"amazon no button", "https://www.amazon.co.uk/dp/x", "see all buying options", OutOfStock},
		{"amazon add to bag is not enough", "https://www.amazon.com/dp/x", "add to bag", OutOfStock},
		{"target ship it", "https://www.target.com/p/x", "ship it available", InStock},
		{"target add to cart", "https://www.target.com/p/x", "Add to cart", InStock},
		{"target sold out", "https://www.target.com/p/x", "sold out", OutOfStock},
		{"generic add to cart", "https://shop.example.com/item", "Add To Cart", InStock},
		{"generic add to bag", "https://shop.example.com/item", "add to bag", InStock},
		{"generic coming soon", "https://shop.example.com/item", "coming soon", OutOfStock},
		{"path does not select retailer", "https://shop.example.com/amazon/item", "add to cart currently unavailable", InStock},
		{"empty content", "https://www.lego.com/product/x", "", OutOfStock},
	}

	c := DefaultClassifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.url, tt.content); got != tt.want {
				t.Errorf("Classify(%q, %q) = %s, want %s", tt.url, tt.content, got, tt.want)
			}
		})
	}
}

func TestClassify_Idempotent(t *testing.T) {
	c := DefaultClassifier()
	url, content := "https://www.amazon.com/dp/x", "Add to Cart"
	first := c.Classify(url, content)
	for i := 0; i < 5; i++ {
		if got := c.Classify(url, content); got != first {
			t.Fatalf("run %d: got %s, want %s", i, got, first)
		}
	}
}

func TestRetailerFor(t *testing.T) {
	c := DefaultClassifier()
	tests := map[string]string{
		"https://www.lego.com/en-us/product/x": "lego",
		"https://WWW.AMAZON.COM/dp/x":          "amazon",
		"https://www.target.com/p/x":           "target",
		"https://www.walmart.com/ip/x":         "generic",
		"not a url at all":                     "generic",
		"www.lego.com/product/x":               "lego",
	}
	for url, want := range tests {
		if got := c.RetailerFor(url).Name; got != want {
			t.Errorf("RetailerFor(%q) = %s, want %s", url, got, want)
		}
	}
}

func TestNewClassifier_Custom(t *testing.T) {
	bestBuy := Retailer{
		Name:    "bestbuy",
		Matches: HostContains("bestbuy.com"),
		Rules: []Rule{
			{Name: "sold out", Match: Contains("sold out"), Result: OutOfStock},
			{Name: "add to cart", Match: Contains("add to cart"), Result: InStock},
		},
	}
	c := NewClassifier(append(DefaultRetailers(), bestBuy), GenericRetailer())

	if got := c.Classify("https://www.bestbuy.com/site/x", "sold out add to cart"); got != OutOfStock {
		t.Errorf("got %s, want %s", got, OutOfStock)
	}
	if got := c.Classify("https://www.bestbuy.com/site/x", "add to cart"); got != InStock {
		t.Errorf("got %s, want %s", got, InStock)
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
		ok   bool
	}{
		{"IN_STOCK", InStock, true},
		{"in stock", InStock, true},
		{"Coming Soon", ComingSoon, true},
		{"out-of-stock", OutOfStock, true},
		{"", "", false},
		{"AVAILABLE", "AVAILABLE", false},
	}
	for _, tt := range tests {
		got, ok := ParseStatus(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseStatus(%q) = %s, %v; want %s, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestAvailability(t *testing.T) {
	if got := ComingSoon.Availability(); got != "https://schema.org/PreOrder" {
		t.Errorf("ComingSoon.Availability() = %s", got)
	}
	if got := Status("").Availability(); got != "https://schema.org/OutOfStock" {
		t.Errorf("empty Availability() = %s", got)
	}
}

func TestEvaluate(t *testing.T) {
	c := DefaultClassifier()

	v := c.Evaluate("https://www.lego.com/product/x", "Backorder")
	if v.Status != InStock || v.Retailer != "lego" || v.Rule != "backorder" {
		t.Errorf("unexpected verdict: %+v", v)
	}

	v = c.Evaluate("https://www.target.com/p/x", "sold out")
	if v.Status != OutOfStock || v.Retailer != "target" || v.Rule != "" {
		t.Errorf("expected default verdict, got %+v", v)
	}
}
