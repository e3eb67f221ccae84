// Package service answers chat turns: it parses the question, validates
// the descriptor, runs it over the metrics table and words the answer.
package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/rehabchat/internal/adapters/fallback"
	"github.com/okian/rehabchat/internal/adapters/llm"
	"github.com/okian/rehabchat/internal/adapters/repository"
	"github.com/okian/rehabchat/internal/domain/errs"
	"github.com/okian/rehabchat/internal/domain/interpreter"
	"github.com/okian/rehabchat/internal/domain/model"
	"github.com/okian/rehabchat/internal/domain/narration"
	"github.com/okian/rehabchat/internal/domain/query"
	"github.com/okian/rehabchat/pkg/logger"
	"github.com/okian/rehabchat/pkg/metrics"
)

// Fixed answers.
const (
	ResetAnswer      = "Context cleared. Ask a new question with patient/metric/date."
	NotStartedAnswer = "The service is not ready yet."
)

// ErrNotStarted is returned by Start-dependent calls before Start.
var ErrNotStarted = errors.New("service not started")

// Service implements the chat turn for the HTTP API and the CLI.
type Service struct {
	mu sync.RWMutex

	// Core components
	table       repository.Store
	parser      llm.Parser
	normalizer  *query.Normalizer
	interpreter *interpreter.Interpreter
	fallback    *fallback.Dispatcher

	// Configuration
	csvPath string
	metrics []string
	now     func() time.Time

	// State
	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore uses an already loaded table instead of reading the CSV path.
func WithStore(store repository.Store) Option {
	return func(s *Service) { s.table = store }
}

// WithCSVPath sets the file the table is loaded from on Start.
func WithCSVPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.csvPath = path
		}
	}
}

// WithParser sets the question parser. The deterministic rules parser is
// used when none is given.
func WithParser(p llm.Parser) Option {
	return func(s *Service) { s.parser = p }
}

// WithFallback sets the code-execution fallback.
func WithFallback(d *fallback.Dispatcher) Option {
	return func(s *Service) { s.fallback = d }
}

// WithMetrics restricts the answerable metric columns.
func WithMetrics(m []string) Option {
	return func(s *Service) {
		if len(m) > 0 {
			s.metrics = append([]string(nil), m...)
		}
	}
}

// WithClock sets the source of "today" for open-ended date ranges.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		csvPath: "Combined_AllMetrics.csv",
		metrics: append([]string(nil), query.DefaultMetrics...),
		now:     time.Now,
		logger:  nil, // replaced on Start
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start loads the table and wires the pipeline.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting chat service...")

	if s.table == nil {
		t, err := repository.LoadCSV(ctx, s.csvPath,
			repository.WithMetrics(s.metrics),
			repository.WithLogger(s.logger.Named("table")))
		if err != nil {
			return err
		}
		s.table = t
	}
	if s.parser == nil {
		s.parser = llm.NewRules(llm.WithMetrics(s.table.Metrics()))
	}
	if s.fallback == nil {
		s.fallback = fallback.NewDispatcher(nil)
	}
	s.normalizer = query.NewNormalizer(query.WithMetrics(s.table.Metrics()), query.WithClock(s.now))
	s.interpreter = interpreter.New(s.table, interpreter.WithLogger(s.logger.Named("interpreter")))

	s.started = true
	s.logger.Info(ctx, "chat service started",
		logger.String("parser", s.parser.Name()),
		logger.Bool("fallback", s.fallback.Enabled()),
		logger.Int("rows", s.table.Count(ctx)),
		logger.Any("metrics", s.table.Metrics()),
	)
	return nil
}

// Stop marks the service stopped. The table stays readable.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false
	s.logger.Info(context.Background(), "chat service stopped")
}

// Ask answers one chat turn. c is the context returned by the previous
// turn. Every failure is reported as an error envelope; Ask never fails.
func (s *Service) Ask(ctx context.Context, message string, c model.Context) model.Envelope {
	start := time.Now()
	turnID := uuid.NewString()

	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()

	var env model.Envelope
	if !started {
		env = model.Envelope{Type: model.ResponseError, Answer: NotStartedAnswer, Context: c}
	} else {
		env = s.ask(ctx, turnID, strings.TrimSpace(message), c)
	}
	env.TurnID = turnID

	metrics.RecordTurn(string(env.Type))
	metrics.RecordTurnLatency(float64(time.Since(start).Microseconds()) / 1000)
	return env
}

func (s *Service) ask(ctx context.Context, turnID, message string, c model.Context) model.Envelope {
	log := s.logger
	if query.IsReset(message) {
		log.Info(ctx, "context reset", logger.String("turn", turnID))
		return model.Envelope{Type: model.ResponseReset, Answer: ResetAnswer, Context: model.Context{}}
	}
	if def, ok := s.definition(message); ok {
		return model.Envelope{
			Type:    model.ResponseDefinition,
			Answer:  narration.Definition(def),
			Data:    def,
			Context: c,
		}
	}

	res, d, err := s.answer(ctx, message, c)
	if err == nil {
		log.Info(ctx, "turn answered",
			logger.String("turn", turnID),
			logger.String("type", string(res.Type())),
			logger.Any("descriptor", res.Descriptor))
		return model.Envelope{
			Type:    res.Type(),
			Answer:  narration.Narrate(res),
			Data:    res.Data(),
			Context: model.ContextFrom(res.Descriptor),
		}
	}

	log.Info(ctx, "turn failed",
		logger.String("turn", turnID),
		logger.String("kind", errs.KindName(err)),
		logger.Error(err))
	metrics.RecordErrorByComponent("chat", errs.KindName(err))

	if fallback.Eligible(err) && s.fallback.Enabled() {
		fr, ferr := s.fallback.Dispatch(ctx, message, c, s.table.Dataset())
		if ferr == nil {
			return model.Envelope{
				Type:    model.ResponseFallback,
				Answer:  narration.Fallback(fr),
				Data:    FallbackData{Result: fr, Reason: errs.Message(err)},
				Context: c,
			}
		}
		log.Warn(ctx, "code fallback did not answer", logger.String("turn", turnID), logger.Error(ferr))
	}
	return errorEnvelope(err, d, c)
}

// FallbackData is the payload of a code_fallback envelope.
type FallbackData struct {
	Result model.FallbackResult `json:"result"`
	Reason string               `json:"reason"`
}

// answer runs the strict pipeline: guard, parse, decode, normalize, merge
// context, interpret. On failure it also returns the descriptor reached so
// far, if any.
func (s *Service) answer(ctx context.Context, message string, c model.Context) (model.QueryResult, *model.Descriptor, error) {
	if message == "" {
		return model.QueryResult{}, nil, errs.Newf("service.answer", errs.ErrParse, "please ask a question")
	}
	if err := s.normalizer.CheckQuestion(message); err != nil {
		return model.QueryResult{}, nil, err
	}

	start := time.Now()
	raw, err := s.parser.Parse(ctx, message, c)
	metrics.RecordParseLatency(s.parser.Name(), float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		return model.QueryResult{}, nil, err
	}

	d, err := query.Decode(raw)
	if err != nil {
		return model.QueryResult{}, nil, err
	}
	if d, err = s.normalizer.Normalize(d, message); err != nil {
		return model.QueryResult{}, &d, err
	}
	d = query.ApplyContext(d, message, c, s.normalizer.Metrics())
	res, err := s.interpreter.Interpret(ctx, d)
	if err != nil {
		return res, &d, err
	}
	return res, nil, nil
}

// definition answers "what is sparc" style questions that name a metric
// but no patient.
func (s *Service) definition(message string) (model.Definition, bool) {
	if !query.IsDefinitionQuestion(message) {
		return model.Definition{}, false
	}
	if _, named := query.PatientInText(message); named {
		return model.Definition{}, false
	}
	if len(query.GamesInText(message)) > 0 || len(query.SessionsInText(message)) > 0 || query.MentionsDates(message) {
		return model.Definition{}, false
	}
	metric, ok := query.MetricInText(message, query.DefaultMetrics)
	if !ok {
		return model.Definition{}, false
	}
	return narration.Define(metric)
}

func errorEnvelope(err error, d *model.Descriptor, c model.Context) model.Envelope {
	answer := errs.Message(err)
	if errors.Is(err, errs.ErrUpstream) {
		answer = "The question parser is unavailable: " + answer
	}
	return model.Envelope{
		Type:    model.ResponseError,
		Answer:  answer,
		Data:    model.ErrorData{Kind: errs.KindName(err), Descriptor: d},
		Context: c,
	}
}

// Stats summarizes the loaded table.
func (s *Service) Stats(ctx context.Context) (repository.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.table == nil {
		return repository.Stats{}, ErrNotStarted
	}
	return s.table.Stats(ctx), nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started": s.started,
		"csvPath": s.csvPath,
	}
	if s.started {
		stats["parser"] = s.parser.Name()
		stats["fallbackEnabled"] = s.fallback.Enabled()
		stats["rows"] = s.table.Count(context.Background())
		stats["metrics"] = s.table.Metrics()
	}
	return stats
}
