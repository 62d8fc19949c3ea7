package research

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"github.com/probeworks/scout/pkg/adapter"
	"github.com/probeworks/scout/pkg/model"
	"github.com/probeworks/scout/pkg/utils/logging"
	"google.golang.org/genai"
)

//go:embed prompt/queries.md
var queriesPromptRaw string

var queriesPromptTmpl = template.Must(template.New("queries").Parse(queriesPromptRaw))

// queryGenerator proposes novel search queries for the fields the profile is
// still missing. LLM failures degrade to deterministic templates; only a
// quota of zero or novelty exhaustion yields an empty round.
type queryGenerator struct {
	gemini adapter.Gemini
	cfg    Config
}

func newQueryGenerator(gemini adapter.Gemini, cfg Config) *queryGenerator {
	return &queryGenerator{gemini: gemini, cfg: cfg}
}

type generateInput struct {
	Profile *model.CompanyProfile
	Notes   string
	Round   int
	Quota   int
	// Focus lists the fields the reflector flagged as missing or thin. Empty
	// on round 1, where every unfilled field is fair game.
	Focus []string
}

// Generate returns at most input.Quota queries, each novel against issued.
// Accepted queries are registered in issued before returning so a repeated
// call cannot reissue them.
func (g *queryGenerator) Generate(ctx context.Context, input generateInput, issued map[string]struct{}) []model.Query {
	if input.Quota <= 0 {
		return nil
	}

	missing := input.Focus
	if len(missing) == 0 {
		missing = missingFields(input.Profile)
	}

	var candidates []model.Query

	// The foundational overview query leads round 1 only.
	if input.Round == 1 {
		candidates = append(candidates, model.Query{
			Text:      input.Profile.Name + " company overview",
			Round:     input.Round,
			Rationale: "foundational overview",
		})
	}

	proposed, err := g.propose(ctx, input, missing, issued)
	if err != nil {
		logging.From(ctx).Warn("query generation fell back to templates", "error", err, "round", input.Round)
		proposed = fallbackQueries(input.Profile.Name, missing, input.Round)
	}
	candidates = append(candidates, proposed...)

	queries := make([]model.Query, 0, input.Quota)
	for _, q := range candidates {
		if len(queries) >= input.Quota {
			break
		}
		norm := model.NormalizeQuery(q.Text)
		if norm == "" {
			continue
		}
		if _, dup := issued[norm]; dup {
			continue
		}
		issued[norm] = struct{}{}
		queries = append(queries, q)
	}

	return queries
}

// propose asks the LLM for query candidates. Any failure, including
// malformed or empty output, is returned as an error so the caller can fall
// back to templates.
func (g *queryGenerator) propose(ctx context.Context, input generateInput, missing []string, issued map[string]struct{}) ([]model.Query, error) {
	issuedList := make([]string, 0, len(issued))
	for norm := range issued {
		issuedList = append(issuedList, norm)
	}

	var buf bytes.Buffer
	if err := queriesPromptTmpl.Execute(&buf, map[string]any{
		"CompanyName": input.Profile.Name,
		"Notes":       input.Notes,
		"Round":       input.Round,
		"Quota":       input.Quota,
		"Missing":     missing,
		"Issued":      issuedList,
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to execute queries prompt template")
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"queries": {
					Type:        genai.TypeArray,
					Description: "List of search queries",
					Items: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"query": {
								Type:        genai.TypeString,
								Description: "Search query string",
							},
							"rationale": {
								Type:        genai.TypeString,
								Description: "Profile field the query targets",
							},
						},
						Required: []string{"query"},
					},
				},
			},
			Required: []string{"queries"},
		},
	}

	contents := []*genai.Content{
		genai.NewContentFromText(buf.String(), genai.RoleUser),
	}

	resp, err := g.gemini.GenerateContent(ctx, contents, config)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate queries")
	}

	rawJSON := adapter.ResponseText(resp)
	if rawJSON == "" {
		return nil, goerr.New("empty query generation response")
	}

	var payload struct {
		Queries []struct {
			Query     string `json:"query"`
			Rationale string `json:"rationale"`
		} `json:"queries"`
	}
	if err := json.Unmarshal([]byte(cleanJSONResponse(rawJSON)), &payload); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal queries JSON", goerr.V("json", rawJSON))
	}
	if len(payload.Queries) == 0 {
		return nil, goerr.New("query generation returned no queries")
	}

	queries := make([]model.Query, 0, len(payload.Queries))
	for _, q := range payload.Queries {
		queries = append(queries, model.Query{
			Text:      q.Query,
			Round:     input.Round,
			Rationale: q.Rationale,
		})
	}
	return queries, nil
}

// missingFields lists optional fields with no content at all.
func missingFields(p *model.CompanyProfile) []string {
	var missing []string
	for _, field := range model.OptionalFields {
		if p.FieldLen(field) == 0 {
			missing = append(missing, field)
		}
	}
	return missing
}

var fallbackTemplates = map[string]string{
	model.FieldFoundingYear:       " founding year history",
	model.FieldFounderNames:       " founders leadership team",
	model.FieldProductDescription: " products and services",
	model.FieldFundingSummary:     " funding rounds investors",
	model.FieldNotableCustomers:   " customers case studies",
	model.FieldHeadquarters:       " headquarters location",
}

// fallbackQueries derives deterministic queries from the company name and
// the currently missing field names.
func fallbackQueries(name string, missing []string, round int) []model.Query {
	fields := missing
	if len(fields) == 0 {
		fields = model.OptionalFields
	}

	queries := make([]model.Query, 0, len(fields))
	for _, field := range fields {
		suffix, ok := fallbackTemplates[field]
		if !ok {
			continue
		}
		queries = append(queries, model.Query{
			Text:      name + suffix,
			Round:     round,
			Rationale: field,
		})
	}
	return queries
}
