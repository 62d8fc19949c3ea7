package research

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/probeworks/scout/pkg/adapter"
	"google.golang.org/genai"
)

// mockGemini returns canned responses per call, in order. When the script is
// exhausted it keeps returning the last entry.
type mockGemini struct {
	responses []mockLLMResponse
	calls     int
	prompts   []string
}

type mockLLMResponse struct {
	text string
	err  error
}

func (m *mockGemini) GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if len(contents) > 0 && contents[0] != nil && len(contents[0].Parts) > 0 {
		m.prompts = append(m.prompts, contents[0].Parts[0].Text)
	}

	idx := m.calls
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	m.calls++

	if idx < 0 {
		return nil, goerr.New("mock gemini has no responses")
	}
	r := m.responses[idx]
	if r.err != nil {
		return nil, r.err
	}
	return textResponse(r.text), nil
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: genai.NewContentFromText(text, genai.RoleModel)},
		},
	}
}

// mockSearch dispatches to a function so tests can script per-query
// behavior. Calls are recorded under a mutex since the executor fans out.
type mockSearch struct {
	fn    func(ctx context.Context, input adapter.SearchInput) ([]adapter.SearchHit, error)
	mu    sync.Mutex
	calls []adapter.SearchInput
}

func (m *mockSearch) Search(ctx context.Context, input adapter.SearchInput) ([]adapter.SearchHit, error) {
	m.mu.Lock()
	m.calls = append(m.calls, input)
	m.mu.Unlock()
	return m.fn(ctx, input)
}

func (m *mockSearch) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Budgets.MaxQueries = 4
	cfg.Budgets.MaxResultsPerQuery = 3
	cfg.Budgets.MaxReflections = 2
	return cfg
}
