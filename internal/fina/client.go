// Package fina proxies batch categorization requests to the Fina API.
package fina

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Defaults applied when the caller omits credentials or a model version.
const (
	DefaultURL       = "https://app.fina.money/api/resource/categorize"
	DefaultModel     = "v3"
	DefaultAPIKey    = "fina-api-test"
	DefaultPartnerID = "f-j1fvmjmj"
	DefaultTimeout   = 15 * time.Second
)

// Item is a single transaction submitted for categorization.
type Item struct {
	Name     string  `json:"name"`
	Merchant string  `json:"merchant"`
	Amount   float64 `json:"amount"`
}

// Request is a batch categorization request. Mapping is a pointer so an
// omitted value (defaults to true upstream) and an explicit false serialize
// differently.
type Request struct {
	Items     []Item `json:"items"`
	Model     string `json:"model,omitempty"`
	Mapping   *bool  `json:"mapping,omitempty"`
	APIKey    string `json:"api_key,omitempty"`
	PartnerID string `json:"partner_id,omitempty"`
}

// Result relays the upstream response. Status carries the upstream status code
// on errors and is always 200 on the success path, matching the historical
// behavior of this endpoint.
type Result struct {
	Status     int    `json:"status"`
	Categories any    `json:"categories,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Categorizer is the narrow interface handlers depend on, so the upstream call
// can be substituted with a test double.
type Categorizer interface {
	Categorize(ctx context.Context, req Request) (Result, error)
}

// Config holds client settings. Zero values fall back to the package defaults.
type Config struct {
	URL       string
	APIKey    string
	PartnerID string
	Timeout   time.Duration
}

type client struct {
	httpClient *http.Client
	url        string
	apiKey     string
	partnerID  string
}

// NewClient creates a Fina API client. The timeout bounds the whole call; there
// is no retry on failure.
func NewClient(cfg Config) Categorizer {
	url := cfg.URL
	if url == "" {
		url = DefaultURL
	}
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = DefaultAPIKey
	}
	partnerID := cfg.PartnerID
	if partnerID == "" {
		partnerID = DefaultPartnerID
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &client{
		url:       url,
		apiKey:    apiKey,
		partnerID: partnerID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Categorize sends a single synchronous POST to the categorization API and
// relays the parsed response. Upstream HTTP errors are reported in the result;
// network and timeout failures are returned as errors.
func (c *client) Categorize(ctx context.Context, req Request) (Result, error) {
	model := req.Model
	if model == "" {
		model = DefaultModel
	}
	mapping := "true"
	if req.Mapping != nil && !*req.Mapping {
		mapping = "false"
	}
	apiKey := req.APIKey
	if apiKey == "" {
		apiKey = c.apiKey
	}
	partnerID := req.PartnerID
	if partnerID == "" {
		partnerID = c.partnerID
	}

	// The v1 model takes bare descriptions; later versions take full items.
	var payload any
	if model == "v1" {
		names := make([]string, len(req.Items))
		for i, item := range req.Items {
			names[i] = item.Name
		}
		payload = names
	} else {
		items := req.Items
		if items == nil {
			items = []Item{}
		}
		payload = items
	}

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(string(jsonBody)))
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", apiKey)
	httpReq.Header.Set("x-partner-id", partnerID)
	httpReq.Header.Set("x-api-model", model)
	httpReq.Header.Set("x-api-mapping", mapping)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return Result{Status: resp.StatusCode, Error: string(body)}, nil
	}

	var categories any
	if err := json.Unmarshal(body, &categories); err != nil {
		categories = string(body)
	}

	return Result{Status: http.StatusOK, Categories: categories}, nil
}
