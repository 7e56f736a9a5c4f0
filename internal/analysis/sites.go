package analysis

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Site maps a retail domain (matched by hostname substring) to the CSS
// selectors for its product title and price.
type Site struct {
	Domain        string `yaml:"domain"`
	TitleSelector string `yaml:"title"`
	PriceSelector string `yaml:"price"`
}

// DefaultSites is the built-in retailer table. Small on purpose: a
// hostname not in this table means tier-2 extraction is abandoned
// entirely rather than guessed at.
func DefaultSites() []Site {
	return []Site{
		{Domain: "amazon.", TitleSelector: "#productTitle", PriceSelector: "#corePrice_feature_div .a-offscreen"},
		{Domain: "bestbuy.", TitleSelector: ".sku-title h1", PriceSelector: ".priceView-customer-price span"},
		{Domain: "walmart.", TitleSelector: "h1#main-title", PriceSelector: "span#price"},
		{Domain: "target.", TitleSelector: "h1#pdp-product-title", PriceSelector: "span#product-price"},
		{Domain: "ebay.", TitleSelector: ".x-item-title h1", PriceSelector: ".x-price-primary span"},
		{Domain: "etsy.", TitleSelector: "h1#listing-title", PriceSelector: ".wt-text-title-larger span"},
		{Domain: "newegg.", TitleSelector: ".product-title", PriceSelector: ".price-current"},
	}
}

// siteFile is the YAML shape of an external site table.
type siteFile struct {
	Version string `yaml:"version"`
	Sites   []Site `yaml:"sites"`
}

// LoadSites reads an external retailer table and appends it to the
// built-ins. A missing file yields the built-ins unchanged.
func LoadSites(path string) ([]Site, error) {
	sites := DefaultSites()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return sites, nil
		}
		return nil, err
	}
	var f siteFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse site table %s: %w", path, err)
	}
	for _, s := range f.Sites {
		if s.Domain == "" || s.TitleSelector == "" || s.PriceSelector == "" {
			return nil, fmt.Errorf("site table %s: every site needs domain, title and price", path)
		}
	}
	return append(sites, f.Sites...), nil
}
