package research

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/probeworks/scout/pkg/adapter"
	"github.com/probeworks/scout/pkg/model"
)

func testQueries(texts ...string) []model.Query {
	queries := make([]model.Query, 0, len(texts))
	for _, text := range texts {
		queries = append(queries, model.Query{Text: text, Round: 1})
	}
	return queries
}

func TestExecuteOutcomeOrder(t *testing.T) {
	search := &mockSearch{fn: func(ctx context.Context, input adapter.SearchInput) ([]adapter.SearchHit, error) {
		return []adapter.SearchHit{
			{URL: "https://example.com/" + input.Query, Title: input.Query, Content: "content for " + input.Query},
		}, nil
	}}
	exec := newRetrievalExecutor(search, testConfig())

	queries := testQueries("alpha", "bravo", "charlie", "delta")
	outcomes := exec.Execute(context.Background(), queries)

	gt.A(t, outcomes).Length(4)
	for i, out := range outcomes {
		gt.Equal(t, out.Query.Text, queries[i].Text)
		gt.NoError(t, out.Err)
		gt.A(t, out.Items).Length(1)
		gt.Equal(t, out.Items[0].Query, queries[i].Text)
	}
	gt.Equal(t, search.callCount(), 4)
}

func TestExecuteFailureIsolation(t *testing.T) {
	search := &mockSearch{fn: func(ctx context.Context, input adapter.SearchInput) ([]adapter.SearchHit, error) {
		if input.Query == "bravo" {
			return nil, goerr.New("upstream down")
		}
		return []adapter.SearchHit{
			{URL: "https://example.com/page", Title: input.Query, Content: "ok"},
		}, nil
	}}
	exec := newRetrievalExecutor(search, testConfig())

	outcomes := exec.Execute(context.Background(), testQueries("alpha", "bravo", "charlie"))

	gt.NoError(t, outcomes[0].Err)
	gt.Error(t, outcomes[1].Err)
	gt.NoError(t, outcomes[2].Err)
	gt.A(t, outcomes[1].Items).Length(0)
	gt.A(t, outcomes[2].Items).Length(1)
}

func TestExecuteConcurrencyBound(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConcurrent = 2

	var inFlight, peak int64
	search := &mockSearch{fn: func(ctx context.Context, input adapter.SearchInput) ([]adapter.SearchHit, error) {
		n := atomic.AddInt64(&inFlight, 1)
		for {
			p := atomic.LoadInt64(&peak)
			if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt64(&inFlight, -1)
		return nil, nil
	}}
	exec := newRetrievalExecutor(search, cfg)

	exec.Execute(context.Background(), testQueries("a", "b", "c", "d", "e", "f"))

	gt.Number(t, atomic.LoadInt64(&peak)).LessOrEqual(2)
	gt.Equal(t, search.callCount(), 6)
}

// TestExecuteBatchWallClock pins the batch time bound: queries queued behind
// a full fan-out still time out on schedule, so a batch of hanging queries
// returns within roughly one timeout interval instead of one per slot turn.
func TestExecuteBatchWallClock(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConcurrent = 1
	cfg.QueryTimeout = 100 * time.Millisecond

	search := &mockSearch{fn: func(ctx context.Context, input adapter.SearchInput) ([]adapter.SearchHit, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	exec := newRetrievalExecutor(search, cfg)

	start := time.Now()
	outcomes := exec.Execute(context.Background(), testQueries("a", "b", "c"))
	elapsed := time.Since(start)

	gt.A(t, outcomes).Length(3)
	for _, out := range outcomes {
		gt.Error(t, out.Err)
	}
	gt.True(t, elapsed < 250*time.Millisecond)
}

func TestExecuteQueryTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.QueryTimeout = 20 * time.Millisecond

	search := &mockSearch{fn: func(ctx context.Context, input adapter.SearchInput) ([]adapter.SearchHit, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	exec := newRetrievalExecutor(search, cfg)

	outcomes := exec.Execute(context.Background(), testQueries("slow"))

	gt.A(t, outcomes).Length(1)
	gt.Error(t, outcomes[0].Err)
}

func TestExecuteDomainFiltering(t *testing.T) {
	search := &mockSearch{fn: func(ctx context.Context, input adapter.SearchInput) ([]adapter.SearchHit, error) {
		return []adapter.SearchHit{
			{URL: "https://www.youtube.com/watch?v=x", Title: "video", Content: "blocked"},
			{URL: "https://m.facebook.com/acme", Title: "social", Content: "blocked"},
			{URL: "https://example.com/about", Title: "about", Content: "kept"},
			{URL: "not a url at all ://", Title: "junk", Content: "dropped"},
		}, nil
	}}
	exec := newRetrievalExecutor(search, testConfig())

	outcomes := exec.Execute(context.Background(), testQueries("acme"))

	gt.A(t, outcomes[0].Items).Length(1)
	gt.Equal(t, outcomes[0].Items[0].SourceURL, "https://example.com/about")
}

func TestExecuteResultCapAndTruncation(t *testing.T) {
	cfg := testConfig()
	cfg.Budgets.MaxResultsPerQuery = 2
	cfg.MaxContentBytes = 16

	long := strings.Repeat("x", 100)
	search := &mockSearch{fn: func(ctx context.Context, input adapter.SearchInput) ([]adapter.SearchHit, error) {
		return []adapter.SearchHit{
			{URL: "https://example.com/1", Content: long},
			{URL: "https://example.com/2", Content: "short"},
			{URL: "https://example.com/3", Content: "over the cap"},
		}, nil
	}}
	exec := newRetrievalExecutor(search, cfg)

	outcomes := exec.Execute(context.Background(), testQueries("acme"))

	gt.A(t, outcomes[0].Items).Length(2)
	gt.Equal(t, len(outcomes[0].Items[0].Content), 16)
	gt.Equal(t, outcomes[0].Items[1].Content, "short")
}

func TestTruncateRuneBoundary(t *testing.T) {
	// "日" is 3 bytes; cutting at 4 must back off to the first rune.
	gt.Equal(t, truncate("日本語", 4), "日")
	gt.Equal(t, truncate("abc", 10), "abc")
	gt.Equal(t, truncate("abcdef", 3), "abc")
}

func TestMatchDomain(t *testing.T) {
	gt.True(t, matchDomain("youtube.com", "youtube.com"))
	gt.True(t, matchDomain("www.youtube.com", "youtube.com"))
	gt.True(t, matchDomain("m.facebook.com", "Facebook.com"))
	gt.False(t, matchDomain("notyoutube.com", "youtube.com"))
	gt.False(t, matchDomain("youtube.com.evil.net", "youtube.com"))
}
