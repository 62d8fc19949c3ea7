package research

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/probeworks/scout/pkg/model"
)

// Config holds every tunable of a research session. It is passed explicitly
// into New and never read from process-wide state.
type Config struct {
	Budgets model.Budgets

	// CompletenessThreshold stops the session once the fraction of filled
	// optional profile fields reaches it (0.0-1.0).
	CompletenessThreshold float64

	// RoundQuota caps how many queries one generation round may propose,
	// independent of the remaining query budget.
	RoundQuota int

	// MaxConcurrent bounds the search fan-out within a round.
	MaxConcurrent int

	// QueryTimeout applies to each search call independently.
	QueryTimeout time.Duration

	// MaxContentBytes truncates each retrieved item's content before it is
	// handed to the extractor.
	MaxContentBytes int

	// MinFieldChars is the minimal content length for a text field to count
	// as filled, guarding against one-word answers.
	MinFieldChars int

	AllowDomains []string
	DenyDomains  []string
}

// DefaultConfig returns the balanced defaults.
func DefaultConfig() Config {
	return Config{
		Budgets: model.Budgets{
			MaxQueries:         6,
			MaxResultsPerQuery: 3,
			MaxReflections:     2,
		},
		CompletenessThreshold: 0.8,
		RoundQuota:            4,
		MaxConcurrent:         3,
		QueryTimeout:          15 * time.Second,
		MaxContentBytes:       1600,
		MinFieldChars:         12,
		DenyDomains:           []string{"youtube.com", "twitter.com", "facebook.com"},
	}
}

// Validate checks the configuration for values a session cannot run with.
func (c Config) Validate() error {
	if err := c.Budgets.Validate(); err != nil {
		return err
	}
	if c.CompletenessThreshold < 0 || c.CompletenessThreshold > 1 {
		return goerr.New("completeness threshold must be within [0, 1]",
			goerr.V("threshold", c.CompletenessThreshold))
	}
	if c.RoundQuota < 1 {
		return goerr.New("round quota must be at least 1", goerr.V("round_quota", c.RoundQuota))
	}
	if c.MaxConcurrent < 1 {
		return goerr.New("max concurrent must be at least 1", goerr.V("max_concurrent", c.MaxConcurrent))
	}
	if c.QueryTimeout <= 0 {
		return goerr.New("query timeout must be positive", goerr.V("query_timeout", c.QueryTimeout))
	}
	if c.MaxContentBytes < 1 {
		return goerr.New("max content bytes must be at least 1", goerr.V("max_content_bytes", c.MaxContentBytes))
	}
	return nil
}
