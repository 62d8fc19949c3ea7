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
	"google.golang.org/genai"
)

//go:embed prompt/extract.md
var extractPromptRaw string

var extractPromptTmpl = template.Must(template.New("extract").Parse(extractPromptRaw))

// extractor merges retrieved content into the profile via the model merge
// table. It is a pure function of its inputs aside from the LLM call: the
// input profile is never mutated and extraction failure is recoverable.
type extractor struct {
	gemini adapter.Gemini
}

func newExtractor(gemini adapter.Gemini) *extractor {
	return &extractor{gemini: gemini}
}

// Extract returns an updated copy of the profile plus the names of fields
// that improved. A parse failure gets one repair attempt; if that also fails
// the original profile is returned together with the error so the caller can
// log it and move on.
func (x *extractor) Extract(ctx context.Context, profile *model.CompanyProfile, notes string, items []model.RetrievedItem) (*model.CompanyProfile, []string, error) {
	if len(items) == 0 {
		return profile, nil, nil
	}

	currentJSON, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return profile, nil, goerr.Wrap(err, "failed to marshal current profile")
	}

	var buf bytes.Buffer
	if err := extractPromptTmpl.Execute(&buf, map[string]any{
		"CompanyName": profile.Name,
		"Notes":       notes,
		"CurrentJSON": string(currentJSON),
		"Items":       items,
	}); err != nil {
		return profile, nil, goerr.Wrap(err, "failed to execute extract prompt template")
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   extractionSchema,
	}
	contents := []*genai.Content{
		genai.NewContentFromText(buf.String(), genai.RoleUser),
	}

	resp, err := x.gemini.GenerateContent(ctx, contents, config)
	if err != nil {
		return profile, nil, goerr.Wrap(err, "failed to generate extraction")
	}

	rawJSON := adapter.ResponseText(resp)
	if rawJSON == "" {
		return profile, nil, goerr.New("empty extraction response")
	}

	candidate, err := parseExtraction(rawJSON)
	if err != nil {
		// One repair attempt: strip fences and salvage the first JSON object.
		candidate, err = parseExtraction(cleanJSONResponse(rawJSON))
		if err != nil {
			return profile, nil, goerr.Wrap(err, "extraction response unparsable", goerr.V("json", rawJSON))
		}
	}

	next := profile.Clone()
	updated := next.Merge(candidate)
	return next, updated, nil
}

func parseExtraction(raw string) (*model.CompanyProfile, error) {
	var payload struct {
		CompanyName        string   `json:"company_name"`
		FoundingYear       *int     `json:"founding_year"`
		FounderNames       []string `json:"founder_names"`
		ProductDescription string   `json:"product_description"`
		FundingSummary     string   `json:"funding_summary"`
		NotableCustomers   string   `json:"notable_customers"`
		Headquarters       string   `json:"headquarters"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal extraction JSON")
	}

	// Name is carried by the session profile and never overwritten here.
	return &model.CompanyProfile{
		FoundingYear:       payload.FoundingYear,
		FounderNames:       payload.FounderNames,
		ProductDescription: payload.ProductDescription,
		FundingSummary:     payload.FundingSummary,
		NotableCustomers:   payload.NotableCustomers,
		Headquarters:       payload.Headquarters,
	}, nil
}

var extractionSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"company_name": {
			Type:        genai.TypeString,
			Description: "Official name of the company",
		},
		"founding_year": {
			Type:        genai.TypeInteger,
			Description: "Year the company was founded",
			Nullable:    genai.Ptr(true),
		},
		"founder_names": {
			Type:        genai.TypeArray,
			Description: "Names of the founding team members",
			Nullable:    genai.Ptr(true),
			Items:       &genai.Schema{Type: genai.TypeString},
		},
		"product_description": {
			Type:        genai.TypeString,
			Description: "Description of the company's main product or service",
			Nullable:    genai.Ptr(true),
		},
		"funding_summary": {
			Type:        genai.TypeString,
			Description: "Summary of the company's funding history",
			Nullable:    genai.Ptr(true),
		},
		"notable_customers": {
			Type:        genai.TypeString,
			Description: "Known customers using the company's product or service",
			Nullable:    genai.Ptr(true),
		},
		"headquarters": {
			Type:        genai.TypeString,
			Description: "Location of the company headquarters",
			Nullable:    genai.Ptr(true),
		},
	},
	Required: []string{"company_name"},
}
