package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/m-mizutani/goerr/v2"
	"github.com/probeworks/scout/pkg/model"
	"github.com/probeworks/scout/pkg/usecase/research"
	"github.com/probeworks/scout/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func researchCommand() *cli.Command {
	var (
		cfg         config
		notes       string
		presetName  string
		presetFile  string
		output      string
		noSpinner   bool
		threshold   float64
		maxQueries  int64
		maxResults  int64
		maxReflects int64
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "notes",
			Aliases:     []string{"n"},
			Usage:       "Additional context or areas of interest",
			Destination: &notes,
		},
		&cli.StringFlag{
			Name:        "preset",
			Usage:       "Budget preset (quick, balanced, thorough)",
			Value:       "balanced",
			Destination: &presetName,
		},
		&cli.StringFlag{
			Name:        "preset-file",
			Usage:       "YAML file with additional presets",
			Sources:     cli.EnvVars("SCOUT_PRESET_FILE"),
			Destination: &presetFile,
		},
		&cli.IntFlag{
			Name:        "max-queries",
			Usage:       "Override the preset's total query budget",
			Destination: &maxQueries,
		},
		&cli.IntFlag{
			Name:        "max-results",
			Usage:       "Override the preset's results per query",
			Destination: &maxResults,
		},
		&cli.IntFlag{
			Name:        "max-reflections",
			Usage:       "Override the preset's reflection budget",
			Destination: &maxReflects,
		},
		&cli.FloatFlag{
			Name:        "threshold",
			Usage:       "Completeness threshold to stop at (0.0-1.0)",
			Destination: &threshold,
		},
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "Write the full result as JSON to this file",
			Destination: &output,
		},
		&cli.BoolFlag{
			Name:        "no-spinner",
			Usage:       "Disable the progress spinner",
			Destination: &noSpinner,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:      "research",
		Usage:     "Research a company and print a structured profile",
		ArgsUsage: "<company name>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			company := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if company == "" {
				return goerr.New("company name argument is required")
			}

			logger := logging.New(cfg.logLevel, os.Stderr)
			ctx = logging.With(ctx, logger)

			p, err := loadPreset(presetName, presetFile)
			if err != nil {
				return err
			}
			researchCfg, err := applyPreset(research.DefaultConfig(), p)
			if err != nil {
				return err
			}

			// Overrides apply whenever the flag was given, so an explicit
			// zero (e.g. --threshold 0) is honored instead of falling back
			// to the preset.
			var ov flagOverrides
			if c.IsSet("max-queries") {
				v := int(maxQueries)
				ov.MaxQueries = &v
			}
			if c.IsSet("max-results") {
				v := int(maxResults)
				ov.MaxResults = &v
			}
			if c.IsSet("max-reflections") {
				v := int(maxReflects)
				ov.MaxReflections = &v
			}
			if c.IsSet("threshold") {
				v := threshold
				ov.Threshold = &v
			}
			researchCfg = ov.apply(researchCfg)

			gemini, err := cfg.newGemini(ctx)
			if err != nil {
				return err
			}
			search, err := cfg.newSearch()
			if err != nil {
				return err
			}

			session, err := research.New(research.NewInput{
				Gemini:      gemini,
				Search:      search,
				CompanyName: company,
				Notes:       notes,
				Config:      researchCfg,
			})
			if err != nil {
				return goerr.Wrap(err, "failed to create research session")
			}

			var spin *spinner.Spinner
			if !noSpinner {
				spin = spinner.New(spinner.CharSets[14], 100*time.Millisecond,
					spinner.WithWriter(os.Stderr))
				spin.Suffix = fmt.Sprintf(" researching %s...", company)
				spin.Start()
			}

			result, err := session.Run(ctx)

			if spin != nil {
				spin.Stop()
			}
			if err != nil {
				return goerr.Wrap(err, "research session failed")
			}

			if err := printResult(c, result); err != nil {
				return err
			}

			if output != "" {
				if err := exportResult(output, result); err != nil {
					return err
				}
				fmt.Fprintf(c.Root().Writer, "\nFull result written to %s\n", output)
			}

			return nil
		},
	}
}

// flagOverrides carries the budget flags that were explicitly set on the
// command line. A nil field means the flag was absent and the preset value
// stands.
type flagOverrides struct {
	MaxQueries     *int
	MaxResults     *int
	MaxReflections *int
	Threshold      *float64
}

func (o flagOverrides) apply(cfg research.Config) research.Config {
	if o.MaxQueries != nil {
		cfg.Budgets.MaxQueries = *o.MaxQueries
	}
	if o.MaxResults != nil {
		cfg.Budgets.MaxResultsPerQuery = *o.MaxResults
	}
	if o.MaxReflections != nil {
		cfg.Budgets.MaxReflections = *o.MaxReflections
	}
	if o.Threshold != nil {
		cfg.CompletenessThreshold = *o.Threshold
	}
	return cfg
}

func printResult(c *cli.Command, result *model.Result) error {
	w := c.Root().Writer

	profileJSON, err := json.MarshalIndent(result.Profile, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to marshal profile")
	}

	fmt.Fprintf(w, "%s\n", profileJSON)
	fmt.Fprintf(w, "\nSession %s: %s\n", result.SessionID, result.Stats.TerminalReason)
	fmt.Fprintf(w, "  rounds: %d, queries: %d, reflections: %d, items: %d\n",
		result.Stats.Rounds, result.Stats.QueriesExecuted,
		result.Stats.ReflectionsDone, result.Stats.ItemsRetrieved)
	fmt.Fprintf(w, "  duration: %s\n", result.Stats.FinishedAt.Sub(result.Stats.StartedAt).Round(time.Millisecond))
	return nil
}

func exportResult(path string, result *model.Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to marshal result")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return goerr.Wrap(err, "failed to write result file", goerr.V("path", path))
	}
	return nil
}

func presetsCommand() *cli.Command {
	var presetFile string

	return &cli.Command{
		Name:  "presets",
		Usage: "List available research presets",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "preset-file",
				Usage:       "YAML file with additional presets",
				Sources:     cli.EnvVars("SCOUT_PRESET_FILE"),
				Destination: &presetFile,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			names := []string{"quick", "balanced", "thorough"}
			for _, name := range names {
				p, err := loadPreset(name, presetFile)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.Root().Writer, "%-10s max_queries=%d max_results_per_query=%d max_reflections=%d\n",
					name, p.MaxQueries, p.MaxResultsPerQuery, p.MaxReflections)
			}
			return nil
		},
	}
}
