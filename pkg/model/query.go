package model

import "strings"

// Query is a single search query proposed by the generator.
type Query struct {
	Text      string `json:"text"`
	Round     int    `json:"round"`
	Rationale string `json:"rationale,omitempty"`
}

// NormalizeQuery lowercases and collapses whitespace so that trivially
// equivalent query texts compare equal. Novelty within a session is defined
// on this form.
func NormalizeQuery(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// RetrievedItem is one search hit handed to the extractor. Content may be
// truncated by the executor before it is stored here. Items are immutable
// once produced.
type RetrievedItem struct {
	SourceURL string `json:"source_url"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Query     string `json:"query"`
	Round     int    `json:"round"`
}
