package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/probeworks/scout/pkg/adapter"
	"github.com/urfave/cli/v3"
)

// config holds adapter and logging configuration shared by commands.
type config struct {
	geminiProject  string
	geminiLocation string
	geminiModel    string
	tavilyAPIKey   string
	logLevel       string
}

// globalFlags returns common flags with destination config.
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "gemini-model",
			Usage:       "Gemini generative model name",
			Sources:     cli.EnvVars("GEMINI_MODEL"),
			Destination: &cfg.geminiModel,
		},
		&cli.StringFlag{
			Name:        "tavily-api-key",
			Usage:       "Tavily search API key",
			Sources:     cli.EnvVars("TAVILY_API_KEY"),
			Destination: &cfg.tavilyAPIKey,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("SCOUT_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
	}
}

// newGemini creates the Gemini adapter instance.
func (cfg *config) newGemini(ctx context.Context) (adapter.Gemini, error) {
	if cfg.geminiProject == "" {
		return nil, goerr.New("gemini-project is required")
	}
	if cfg.geminiLocation == "" {
		return nil, goerr.New("gemini-location is required")
	}

	var opts []adapter.GeminiOption
	if cfg.geminiModel != "" {
		opts = append(opts, adapter.WithGenerativeModel(cfg.geminiModel))
	}
	return adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation, opts...)
}

// newSearch creates the Tavily adapter instance.
func (cfg *config) newSearch() (adapter.Search, error) {
	if cfg.tavilyAPIKey == "" {
		return nil, goerr.New("tavily-api-key is required")
	}
	return adapter.NewTavily(cfg.tavilyAPIKey)
}
