package research

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/probeworks/scout/pkg/adapter"
	"github.com/probeworks/scout/pkg/model"
)

// retrievalExecutor runs a round's queries concurrently under a bounded
// fan-out. Each query gets an independent timeout; a failing query never
// fails the batch.
type retrievalExecutor struct {
	search adapter.Search
	cfg    Config
}

func newRetrievalExecutor(search adapter.Search, cfg Config) *retrievalExecutor {
	return &retrievalExecutor{search: search, cfg: cfg}
}

// queryOutcome is the isolated result of one query: items on success, Err on
// timeout, transport failure or similar. Zero items with a nil Err means the
// service genuinely found nothing.
type queryOutcome struct {
	Query model.Query
	Items []model.RetrievedItem
	Err   error
}

// Execute fans out all queries and returns their outcomes in query order, so
// the batch output is deterministic given the service output. Each query's
// timeout starts at launch, before the semaphore acquire, so a query stuck
// waiting for a slot still times out on schedule and the whole batch returns
// within roughly one timeout interval.
func (e *retrievalExecutor) Execute(ctx context.Context, queries []model.Query) []queryOutcome {
	outcomes := make([]queryOutcome, len(queries))

	sem := make(chan struct{}, e.cfg.MaxConcurrent)
	var wg sync.WaitGroup

	for i, q := range queries {
		wg.Add(1)
		go func(i int, q model.Query) {
			defer wg.Done()

			queryCtx, cancel := context.WithTimeout(ctx, e.cfg.QueryTimeout)
			defer cancel()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-queryCtx.Done():
				outcomes[i] = queryOutcome{Query: q, Err: queryCtx.Err()}
				return
			}

			outcomes[i] = e.runQuery(queryCtx, q)
		}(i, q)
	}
	wg.Wait()

	return outcomes
}

func (e *retrievalExecutor) runQuery(ctx context.Context, q model.Query) queryOutcome {
	hits, err := e.search.Search(ctx, adapter.SearchInput{
		Query:          q.Text,
		MaxResults:     e.cfg.Budgets.MaxResultsPerQuery,
		IncludeDomains: e.cfg.AllowDomains,
		ExcludeDomains: e.cfg.DenyDomains,
	})
	if err != nil {
		return queryOutcome{Query: q, Err: err}
	}

	// Domain filtering happens before truncation; service-side filters are
	// advisory only.
	items := make([]model.RetrievedItem, 0, e.cfg.Budgets.MaxResultsPerQuery)
	for _, hit := range hits {
		if len(items) >= e.cfg.Budgets.MaxResultsPerQuery {
			break
		}
		if !e.domainAllowed(hit.URL) {
			continue
		}
		items = append(items, model.RetrievedItem{
			SourceURL: hit.URL,
			Title:     hit.Title,
			Content:   truncate(hit.Content, e.cfg.MaxContentBytes),
			Query:     q.Text,
			Round:     q.Round,
		})
	}

	return queryOutcome{Query: q, Items: items}
}

func (e *retrievalExecutor) domainAllowed(rawURL string) bool {
	host := hostOf(rawURL)
	if host == "" {
		return false
	}
	for _, deny := range e.cfg.DenyDomains {
		if matchDomain(host, deny) {
			return false
		}
	}
	if len(e.cfg.AllowDomains) == 0 {
		return true
	}
	for _, allow := range e.cfg.AllowDomains {
		if matchDomain(host, allow) {
			return true
		}
	}
	return false
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// matchDomain reports whether host is domain itself or one of its
// subdomains.
func matchDomain(host, domain string) bool {
	domain = strings.ToLower(domain)
	return host == domain || strings.HasSuffix(host, "."+domain)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// Back off to a rune boundary.
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
