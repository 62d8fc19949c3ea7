package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// SearchHit is one raw result from the web-search service, before any
// filtering or truncation.
type SearchHit struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// SearchInput carries one search call's parameters.
type SearchInput struct {
	Query          string
	MaxResults     int
	IncludeDomains []string
	ExcludeDomains []string
}

// Search is the web-search boundary. Implementations return hits in service
// ranking order, or an error for that single call.
type Search interface {
	Search(ctx context.Context, input SearchInput) ([]SearchHit, error)
}

const tavilyEndpoint = "https://api.tavily.com/search"

// TavilyClient calls the Tavily search API.
type TavilyClient struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

type TavilyOption func(*TavilyClient)

// WithHTTPClient overrides the HTTP client, e.g. to change the timeout.
func WithHTTPClient(client *http.Client) TavilyOption {
	return func(t *TavilyClient) {
		t.client = client
	}
}

// WithEndpoint overrides the API endpoint. Used in tests.
func WithEndpoint(endpoint string) TavilyOption {
	return func(t *TavilyClient) {
		t.endpoint = endpoint
	}
}

func NewTavily(apiKey string, opts ...TavilyOption) (*TavilyClient, error) {
	if apiKey == "" {
		return nil, goerr.New("tavily api key is required")
	}

	t := &TavilyClient{
		apiKey:   apiKey,
		endpoint: tavilyEndpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		opt(t)
	}

	return t, nil
}

func (t *TavilyClient) Search(ctx context.Context, input SearchInput) ([]SearchHit, error) {
	body := map[string]any{
		"api_key":     t.apiKey,
		"query":       input.Query,
		"max_results": input.MaxResults,
	}
	if len(input.IncludeDomains) > 0 {
		body["include_domains"] = input.IncludeDomains
	}
	if len(input.ExcludeDomains) > 0 {
		body["exclude_domains"] = input.ExcludeDomains
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal tavily request")
	}

	// Back off and retry on 429, doubling the delay up to 30s, bounded by ctx.
	var resp *http.Response
	delay := time.Second
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to build tavily request")
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err = t.client.Do(req)
		if err != nil {
			return nil, goerr.Wrap(err, "tavily request failed", goerr.V("query", input.Query))
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			break
		}
		resp.Body.Close()

		select {
		case <-ctx.Done():
			return nil, goerr.Wrap(ctx.Err(), "tavily retry cancelled")
		case <-time.After(delay):
		}
		if delay < 30*time.Second {
			delay *= 2
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, goerr.New("tavily returned non-200 status",
			goerr.V("status", resp.StatusCode), goerr.V("query", input.Query))
	}

	var response struct {
		Results []SearchHit `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, goerr.Wrap(err, "failed to decode tavily response")
	}

	return response.Results, nil
}
