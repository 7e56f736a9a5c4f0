package analysis

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/spendshield/spendshield/internal/page"
)

// Extract attempts to recover {product name, numeric price} from the
// document. Tier 1 is structured Open Graph metadata; tier 2 is the
// per-retailer selector table. There is deliberately no generic text
// fallback: guessing prices out of arbitrary numeric text on unknown
// sites produces junk advisories, and no advisory beats a wrong one.
func Extract(doc *page.Document, sites []Site) (Product, bool) {
	if p, ok := extractMeta(doc); ok {
		return p, true
	}
	return extractSite(doc, sites)
}

func extractMeta(doc *page.Document) (Product, bool) {
	title := strings.TrimSpace(doc.MetaContent("og:title"))
	if title == "" {
		return Product{}, false
	}
	priceText := doc.MetaContent("product:price:amount")
	if priceText == "" {
		priceText = doc.MetaContent("og:price:amount")
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(priceText), 64)
	if err != nil || price <= 0 {
		return Product{}, false
	}
	return Product{Name: title, Price: price}, true
}

func extractSite(doc *page.Document, sites []Site) (Product, bool) {
	site, ok := matchSite(doc.Hostname(), sites)
	if !ok {
		return Product{}, false
	}
	title := strings.TrimSpace(doc.QueryText(site.TitleSelector))
	priceText := doc.QueryText(site.PriceSelector)
	price, ok := parsePriceText(priceText)
	if title == "" || !ok {
		return Product{}, false
	}
	return Product{Name: title, Price: price}, true
}

func matchSite(hostname string, sites []Site) (Site, bool) {
	for _, s := range sites {
		if strings.Contains(hostname, s.Domain) {
			return s, true
		}
	}
	return Site{}, false
}

var priceRun = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

// parsePriceText strips currency symbols, separators and surrounding
// text ("$1,299.00 incl. VAT") and parses the first numeric run.
func parsePriceText(text string) (float64, bool) {
	run := priceRun.FindString(text)
	if run == "" {
		return 0, false
	}
	price, err := strconv.ParseFloat(strings.ReplaceAll(run, ",", ""), 64)
	if err != nil || price <= 0 {
		return 0, false
	}
	return price, true
}
