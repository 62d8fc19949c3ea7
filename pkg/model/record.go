package model

// CompanyProfile is the accumulating research record. Name is required and
// immutable once set; the six optional fields start unknown and are filled
// in by extraction rounds.
type CompanyProfile struct {
	Name               string   `json:"company_name"`
	FoundingYear       *int     `json:"founding_year,omitempty"`
	FounderNames       []string `json:"founder_names,omitempty"`
	ProductDescription string   `json:"product_description,omitempty"`
	FundingSummary     string   `json:"funding_summary,omitempty"`
	NotableCustomers   string   `json:"notable_customers,omitempty"`
	Headquarters       string   `json:"headquarters,omitempty"`
}

// Optional field names, used for completeness scoring, focus selection and
// fallback query templates.
const (
	FieldFoundingYear       = "founding_year"
	FieldFounderNames       = "founder_names"
	FieldProductDescription = "product_description"
	FieldFundingSummary     = "funding_summary"
	FieldNotableCustomers   = "notable_customers"
	FieldHeadquarters       = "headquarters"
)

// OptionalFields lists the optional profile fields in a fixed order.
var OptionalFields = []string{
	FieldFoundingYear,
	FieldFounderNames,
	FieldProductDescription,
	FieldFundingSummary,
	FieldNotableCustomers,
	FieldHeadquarters,
}

// fieldMerge decides whether the candidate value for one field is strictly
// more complete than the current one, and applies it. The table keeps the
// merge policy explicit per field instead of relying on reflection.
type fieldMerge struct {
	improves func(cur, next *CompanyProfile) bool
	apply    func(dst, src *CompanyProfile)
}

// betterText reports whether next is a strict improvement over cur for a
// free-text field: non-empty over empty, or strictly longer content.
func betterText(cur, next string) bool {
	if next == "" {
		return false
	}
	return len(next) > len(cur)
}

var mergeTable = map[string]fieldMerge{
	FieldFoundingYear: {
		improves: func(cur, next *CompanyProfile) bool {
			return cur.FoundingYear == nil && next.FoundingYear != nil
		},
		apply: func(dst, src *CompanyProfile) {
			year := *src.FoundingYear
			dst.FoundingYear = &year
		},
	},
	FieldFounderNames: {
		improves: func(cur, next *CompanyProfile) bool {
			return len(next.FounderNames) > len(cur.FounderNames)
		},
		apply: func(dst, src *CompanyProfile) {
			dst.FounderNames = append([]string(nil), src.FounderNames...)
		},
	},
	FieldProductDescription: {
		improves: func(cur, next *CompanyProfile) bool {
			return betterText(cur.ProductDescription, next.ProductDescription)
		},
		apply: func(dst, src *CompanyProfile) {
			dst.ProductDescription = src.ProductDescription
		},
	},
	FieldFundingSummary: {
		improves: func(cur, next *CompanyProfile) bool {
			return betterText(cur.FundingSummary, next.FundingSummary)
		},
		apply: func(dst, src *CompanyProfile) {
			dst.FundingSummary = src.FundingSummary
		},
	},
	FieldNotableCustomers: {
		improves: func(cur, next *CompanyProfile) bool {
			return betterText(cur.NotableCustomers, next.NotableCustomers)
		},
		apply: func(dst, src *CompanyProfile) {
			dst.NotableCustomers = src.NotableCustomers
		},
	},
	FieldHeadquarters: {
		improves: func(cur, next *CompanyProfile) bool {
			return betterText(cur.Headquarters, next.Headquarters)
		},
		apply: func(dst, src *CompanyProfile) {
			dst.Headquarters = src.Headquarters
		},
	},
}

// Merge folds candidate values into the profile, keeping each field only if
// the candidate is strictly more complete. Name is never changed. Returns
// the names of updated fields.
func (p *CompanyProfile) Merge(candidate *CompanyProfile) []string {
	if candidate == nil {
		return nil
	}

	var updated []string
	for _, field := range OptionalFields {
		m := mergeTable[field]
		if m.improves(p, candidate) {
			m.apply(p, candidate)
			updated = append(updated, field)
		}
	}
	return updated
}

// FieldLen returns the content length of an optional field: number of
// characters for text, list length for founders, and a fixed positive value
// for a set founding year.
func (p *CompanyProfile) FieldLen(field string) int {
	switch field {
	case FieldFoundingYear:
		if p.FoundingYear != nil {
			return 4
		}
		return 0
	case FieldFounderNames:
		n := 0
		for _, name := range p.FounderNames {
			n += len(name)
		}
		return n
	case FieldProductDescription:
		return len(p.ProductDescription)
	case FieldFundingSummary:
		return len(p.FundingSummary)
	case FieldNotableCustomers:
		return len(p.NotableCustomers)
	case FieldHeadquarters:
		return len(p.Headquarters)
	default:
		return 0
	}
}

// Clone returns a deep copy of the profile.
func (p *CompanyProfile) Clone() *CompanyProfile {
	c := *p
	if p.FoundingYear != nil {
		year := *p.FoundingYear
		c.FoundingYear = &year
	}
	if p.FounderNames != nil {
		c.FounderNames = append([]string(nil), p.FounderNames...)
	}
	return &c
}
