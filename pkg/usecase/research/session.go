package research

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/probeworks/scout/pkg/adapter"
	"github.com/probeworks/scout/pkg/model"
	"github.com/probeworks/scout/pkg/utils/logging"
)

// stage enumerates the orchestrator's states. The loop in Run is the only
// place transitions happen.
type stage int

const (
	stageGenerate stage = iota
	stageSearch
	stageExtract
	stageReflect
	stageDone
)

// Session drives one research run: generate queries, search, extract,
// reflect, loop. A Session is exclusively owned by its caller and holds no
// state shared with other sessions, so independent sessions can run fully in
// parallel.
type Session struct {
	gemini adapter.Gemini
	search adapter.Search
	cfg    Config
	notes  string

	generator *queryGenerator
	executor  *retrievalExecutor
	extractor *extractor
	reflector *reflector

	id    model.SessionID
	state sessionState

	result *model.Result
}

// sessionState is the mutable core of one invocation. Counters only grow;
// budgets live in Config and are never written after construction.
type sessionState struct {
	profile         *model.CompanyProfile
	issued          map[string]struct{}
	items           []model.RetrievedItem
	queriesExecuted int
	reflectionsDone int
	rounds          int
	lastGenerated   int
	focus           []string
	messages        []model.LogEntry
	startedAt       time.Time
}

// NewInput carries the parameters for one research session.
type NewInput struct {
	Gemini      adapter.Gemini
	Search      adapter.Search
	CompanyName string
	Notes       string
	Config      Config
}

// New validates the input and constructs a ready-to-run session. An empty
// company name or unusable configuration is the only hard failure of the
// whole pipeline.
func New(input NewInput) (*Session, error) {
	name := strings.TrimSpace(input.CompanyName)
	if name == "" {
		return nil, goerr.New("company name is required")
	}
	if input.Gemini == nil {
		return nil, goerr.New("gemini adapter is required")
	}
	if input.Search == nil {
		return nil, goerr.New("search adapter is required")
	}
	if err := input.Config.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid research config")
	}

	return &Session{
		gemini:    input.Gemini,
		search:    input.Search,
		cfg:       input.Config,
		notes:     input.Notes,
		generator: newQueryGenerator(input.Gemini, input.Config),
		executor:  newRetrievalExecutor(input.Search, input.Config),
		extractor: newExtractor(input.Gemini),
		reflector: newReflector(input.Config),
		id:        model.NewSessionID(),
		state: sessionState{
			profile: &model.CompanyProfile{Name: name},
			issued:  map[string]struct{}{},
		},
	}, nil
}

// ID returns the session identifier.
func (s *Session) ID() model.SessionID {
	return s.id
}

// Run executes the state machine to completion and returns the assembled
// result. Soft failures (search errors, extraction parse failures) never
// surface as errors here; the session always terminates via budgets even if
// every external call fails. Running a finished session returns the same
// result again.
func (s *Session) Run(ctx context.Context) (*model.Result, error) {
	if s.result != nil {
		return s.result, nil
	}

	logger := logging.From(ctx).With("session_id", s.id, "company", s.state.profile.Name)
	ctx = logging.With(ctx, logger)

	s.state.startedAt = time.Now()
	s.log(model.StageInit, fmt.Sprintf("session started for %q (max_queries=%d, max_reflections=%d)",
		s.state.profile.Name, s.cfg.Budgets.MaxQueries, s.cfg.Budgets.MaxReflections))

	var (
		current      = stageGenerate
		reason       model.TerminalReason
		roundQueries []model.Query
		roundItems   []model.RetrievedItem
	)

	for current != stageDone {
		// Cancellation is honored at transition boundaries only, never
		// mid-call.
		if ctx.Err() != nil {
			reason = model.TerminalReasonCancelled
			s.log(model.StageDone, "session cancelled, returning partial record")
			break
		}

		switch current {
		case stageGenerate:
			s.state.rounds++
			quota := s.cfg.Budgets.MaxQueries - s.state.queriesExecuted
			if quota > s.cfg.RoundQuota {
				quota = s.cfg.RoundQuota
			}
			roundQueries = s.generator.Generate(ctx, generateInput{
				Profile: s.state.profile,
				Notes:   s.notes,
				Round:   s.state.rounds,
				Quota:   quota,
				Focus:   s.state.focus,
			}, s.state.issued)
			s.state.lastGenerated = len(roundQueries)
			s.log(model.StageGenerate, fmt.Sprintf("round %d: generated %d queries (quota %d)",
				s.state.rounds, len(roundQueries), quota))

			if len(roundQueries) == 0 {
				// Natural completion: nothing novel left to ask.
				reason = model.TerminalReasonNoNovelQueries
				s.log(model.StageDone, "no novel queries remain, finishing")
				current = stageDone
				continue
			}
			current = stageSearch

		case stageSearch:
			outcomes := s.safeExecute(ctx, roundQueries)
			s.state.queriesExecuted += len(roundQueries)

			roundItems = roundItems[:0]
			for _, out := range outcomes {
				if out.Err != nil {
					logger.Warn("search query failed", "query", out.Query.Text, "error", out.Err)
					s.log(model.StageSearch, fmt.Sprintf("query %q failed: %v", out.Query.Text, out.Err))
					continue
				}
				if len(out.Items) == 0 {
					s.log(model.StageSearch, fmt.Sprintf("query %q returned no results", out.Query.Text))
					continue
				}
				roundItems = append(roundItems, out.Items...)
			}
			s.state.items = append(s.state.items, roundItems...)
			s.log(model.StageSearch, fmt.Sprintf("round %d: %d queries executed, %d items retrieved",
				s.state.rounds, len(roundQueries), len(roundItems)))
			current = stageExtract

		case stageExtract:
			updatedProfile, updatedFields, err := s.extractor.Extract(ctx, s.state.profile, s.notes, roundItems)
			if err != nil {
				logger.Warn("extraction failed, record unchanged this round", "error", err)
				s.log(model.StageExtract, fmt.Sprintf("round %d: extraction failed: %v", s.state.rounds, err))
			} else {
				s.state.profile = updatedProfile
				s.log(model.StageExtract, fmt.Sprintf("round %d: updated fields: %s",
					s.state.rounds, joinOrNone(updatedFields)))
			}
			current = stageReflect

		case stageReflect:
			ref := s.reflector.Reflect(reflectInput{
				Profile:         s.state.profile,
				ReflectionsDone: s.state.reflectionsDone,
				LastGenerated:   s.state.lastGenerated,
			})
			if ref.Stop {
				reason = ref.Reason
				s.log(model.StageReflect, fmt.Sprintf("round %d: completeness %.2f, stopping (%s)",
					s.state.rounds, ref.Score, ref.Reason))
				current = stageDone
				continue
			}
			s.state.reflectionsDone++
			s.state.focus = ref.Focus
			s.log(model.StageReflect, fmt.Sprintf("round %d: completeness %.2f, continuing (focus: %s)",
				s.state.rounds, ref.Score, joinOrNone(ref.Focus)))
			current = stageGenerate
		}
	}

	return s.finish(reason), nil
}

// safeExecute guards the search batch as a whole. Per-query failures are
// already isolated inside the executor; this catches the should-not-happen
// case so a whole-batch fault degrades to an empty round instead of killing
// the session.
func (s *Session) safeExecute(ctx context.Context, queries []model.Query) (outcomes []queryOutcome) {
	defer func() {
		if r := recover(); r != nil {
			s.log(model.StageSearch, fmt.Sprintf("search batch failed: %v", r))
			outcomes = nil
		}
	}()
	return s.executor.Execute(ctx, queries)
}

// finish assembles the final result exactly once; repeated calls return the
// identical value.
func (s *Session) finish(reason model.TerminalReason) *model.Result {
	if s.result != nil {
		return s.result
	}

	s.log(model.StageDone, fmt.Sprintf("session finished: %s (queries=%d, reflections=%d, items=%d)",
		reason, s.state.queriesExecuted, s.state.reflectionsDone, len(s.state.items)))

	messages := make([]model.LogEntry, len(s.state.messages))
	copy(messages, s.state.messages)
	items := make([]model.RetrievedItem, len(s.state.items))
	copy(items, s.state.items)

	s.result = &model.Result{
		SessionID: s.id,
		Profile:   s.state.profile.Clone(),
		Messages:  messages,
		Items:     items,
		Stats: model.Statistics{
			QueriesExecuted: s.state.queriesExecuted,
			ReflectionsDone: s.state.reflectionsDone,
			ItemsRetrieved:  len(s.state.items),
			Rounds:          s.state.rounds,
			TerminalReason:  reason,
			StartedAt:       s.state.startedAt,
			FinishedAt:      time.Now(),
		},
	}
	return s.result
}

func (s *Session) log(stage model.Stage, message string) {
	s.state.messages = append(s.state.messages, model.LogEntry{
		Time:    time.Now(),
		Stage:   stage,
		Message: message,
	})
}

func joinOrNone(fields []string) string {
	if len(fields) == 0 {
		return "none"
	}
	return strings.Join(fields, ", ")
}
