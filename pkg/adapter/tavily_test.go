package adapter_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/probeworks/scout/pkg/adapter"
)

func TestTavilySearch(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gt.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]string{
				{"url": "https://example.com/a", "title": "Acme overview", "content": "Acme builds anvils"},
				{"url": "https://example.com/b", "title": "Acme funding", "content": "Series A in 2020"},
			},
		})
	}))
	defer srv.Close()

	client, err := adapter.NewTavily("test-key", adapter.WithEndpoint(srv.URL))
	gt.NoError(t, err)

	hits, err := client.Search(context.Background(), adapter.SearchInput{
		Query:          "Acme company overview",
		MaxResults:     3,
		ExcludeDomains: []string{"youtube.com"},
	})
	gt.NoError(t, err)
	gt.A(t, hits).Length(2)
	gt.Equal(t, hits[0].URL, "https://example.com/a")
	gt.Equal(t, hits[1].Content, "Series A in 2020")

	gt.Equal(t, gotBody["query"], "Acme company overview")
	gt.Equal(t, gotBody["api_key"], "test-key")
	gt.Equal[any](t, gotBody["max_results"], float64(3))
}

func TestTavilySearchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := adapter.NewTavily("test-key", adapter.WithEndpoint(srv.URL))
	gt.NoError(t, err)

	_, err = client.Search(context.Background(), adapter.SearchInput{Query: "Acme", MaxResults: 1})
	gt.Error(t, err)
}

func TestTavilyRetryOn429(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]string{{"url": "https://example.com", "title": "t", "content": "c"}},
		})
	}))
	defer srv.Close()

	client, err := adapter.NewTavily("test-key", adapter.WithEndpoint(srv.URL))
	gt.NoError(t, err)

	hits, err := client.Search(context.Background(), adapter.SearchInput{Query: "Acme", MaxResults: 1})
	gt.NoError(t, err)
	gt.A(t, hits).Length(1)
	gt.Number(t, attempts).GreaterOrEqual(2)
}

func TestTavilyRequiresAPIKey(t *testing.T) {
	_, err := adapter.NewTavily("")
	gt.Error(t, err)
}
