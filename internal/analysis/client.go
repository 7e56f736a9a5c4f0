package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/spendshield/spendshield/internal/page"
)

// DefaultEndpointPath is the analysis endpoint consumed by the client.
const DefaultEndpointPath = "/api/analysis/price"

// Client requests price-fairness verdicts from the backend.
type Client struct {
	url    string
	http   *http.Client
	sites  []Site
	log    *zap.Logger
}

// NewClient creates an analysis client for the given endpoint URL.
func NewClient(url string, sites []Site, log *zap.Logger) *Client {
	if sites == nil {
		sites = DefaultSites()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		url:   url,
		sites: sites,
		log:   log,
		http:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Analyze posts the product to the analysis endpoint and returns the
// parsed verdict.
func (c *Client) Analyze(ctx context.Context, p Product) (*Result, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("analysis endpoint returned %d", resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	switch result.Recommendation {
	case RecommendBuy, RecommendWait, RecommendAvoid:
		return &result, nil
	default:
		return nil, fmt.Errorf("unknown recommendation %q", result.Recommendation)
	}
}

// Product extracts the page's product using the client's site table.
// It reads the document, so it must run on the document's goroutine.
func (c *Client) Product(doc *page.Document) (Product, bool) {
	product, ok := Extract(doc, c.sites)
	if !ok {
		c.log.Debug("analysis: no product extracted", zap.String("host", doc.Hostname()))
	}
	return product, ok
}

// Deliver analyzes the product and hands the verdict to store. It
// never touches the page, so it is safe to run off the document
// goroutine. Every failure is logged and swallowed; nothing downstream
// depends on an advisory existing.
func (c *Client) Deliver(ctx context.Context, product Product, store func(*Result)) {
	result, err := c.Analyze(ctx, product)
	if err != nil {
		c.log.Debug("analysis: request failed",
			zap.String("product", product.Name), zap.Error(err))
		return
	}

	c.log.Debug("analysis: verdict received",
		zap.String("product", product.Name),
		zap.String("recommendation", result.Recommendation))
	store(result)
}
