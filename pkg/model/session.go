package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

type SessionID string

// NewSessionID generates a new unique SessionID.
func NewSessionID() SessionID {
	return SessionID(uuid.New().String())
}

// Budgets caps the external work of one session. Fixed at session creation
// and read-only afterwards; exhaustion is a designed termination path, not
// an error.
type Budgets struct {
	MaxQueries         int `json:"max_queries"`
	MaxResultsPerQuery int `json:"max_results_per_query"`
	MaxReflections     int `json:"max_reflections"`
}

// Validate checks the budget values.
func (b Budgets) Validate() error {
	if b.MaxQueries < 0 {
		return goerr.New("max_queries must be non-negative", goerr.V("max_queries", b.MaxQueries))
	}
	if b.MaxResultsPerQuery < 1 {
		return goerr.New("max_results_per_query must be at least 1", goerr.V("max_results_per_query", b.MaxResultsPerQuery))
	}
	if b.MaxReflections < 0 {
		return goerr.New("max_reflections must be non-negative", goerr.V("max_reflections", b.MaxReflections))
	}
	return nil
}

// TerminalReason is the specific condition that stopped a session.
type TerminalReason string

const (
	TerminalReasonThresholdMet    TerminalReason = "completeness_threshold_met"
	TerminalReasonBudgetExhausted TerminalReason = "budget_exhausted"
	TerminalReasonNoNovelQueries  TerminalReason = "no_novel_queries"
	TerminalReasonCancelled       TerminalReason = "cancelled"
)

// Stage names used in the audit log.
type Stage string

const (
	StageInit     Stage = "init"
	StageGenerate Stage = "generate"
	StageSearch   Stage = "search"
	StageExtract  Stage = "extract"
	StageReflect  Stage = "reflect"
	StageDone     Stage = "done"
)

// LogEntry is one line of the append-only audit trail. Every state
// transition produces an entry, independent of step success.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Stage   Stage     `json:"stage"`
	Message string    `json:"message"`
}

// Statistics summarizes the work a session performed.
type Statistics struct {
	QueriesExecuted int            `json:"queries_executed"`
	ReflectionsDone int            `json:"reflections_done"`
	ItemsRetrieved  int            `json:"items_retrieved"`
	Rounds          int            `json:"rounds"`
	TerminalReason  TerminalReason `json:"terminal_reason"`
	StartedAt       time.Time      `json:"started_at"`
	FinishedAt      time.Time      `json:"finished_at"`
}

// Result is the immutable output of a research session. A session always
// produces a Result, possibly with many empty profile fields and a terminal
// reason explaining why.
type Result struct {
	SessionID SessionID       `json:"session_id"`
	Profile   *CompanyProfile `json:"profile"`
	Messages  []LogEntry      `json:"messages"`
	Stats     Statistics      `json:"statistics"`
	Items     []RetrievedItem `json:"items"`
}
