// Package fallback hands questions the interpreter cannot answer to a
// provider-hosted code-execution service.
package fallback

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/okian/rehabchat/internal/domain/errs"
	"github.com/okian/rehabchat/internal/domain/model"
	"github.com/okian/rehabchat/pkg/logger"
	"github.com/okian/rehabchat/pkg/metrics"
)

// Executor runs a question against a dataset in a sandbox.
type Executor interface {
	Execute(ctx context.Context, question string, ds model.Dataset) (model.FallbackResult, error)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithEnabled turns the fallback on or off.
func WithEnabled(on bool) Option {
	return func(d *Dispatcher) { d.enabled = on }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// Dispatcher decides whether a failed turn goes to the executor and relays
// the outcome.
type Dispatcher struct {
	exec    Executor
	enabled bool
	logger  logger.Logger
}

// NewDispatcher creates a Dispatcher. It is enabled unless configured
// otherwise and exec is non-nil.
func NewDispatcher(exec Executor, opts ...Option) *Dispatcher {
	d := &Dispatcher{exec: exec, enabled: true, logger: logger.Nop()}
	for _, opt := range opts {
		opt(d)
	}
	if exec == nil {
		d.enabled = false
	}
	return d
}

// Enabled reports whether Dispatch will call the executor.
func (d *Dispatcher) Enabled() bool { return d != nil && d.enabled }

// Eligible reports whether a turn that failed with err may fall back.
func Eligible(err error) bool {
	return errors.Is(err, errs.ErrParse) ||
		errors.Is(err, errs.ErrNoData) ||
		errors.Is(err, errs.ErrUnsupportedQuery)
}

// Dispatch sends the question, with the conversation context, to the
// executor. It fails with ErrFallbackDisabled when switched off and with an
// errs.ErrFallback kind when the executor fails.
func (d *Dispatcher) Dispatch(ctx context.Context, question string, c model.Context, ds model.Dataset) (model.FallbackResult, error) {
	const op = "fallback.Dispatch"
	if !d.Enabled() {
		return model.FallbackResult{}, ErrFallbackDisabled
	}

	start := time.Now()
	res, err := d.exec.Execute(ctx, withContext(question, c), ds)
	metrics.RecordFallbackLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordFallback("error")
		metrics.RecordErrorByComponent("fallback", errs.KindName(err))
		d.logger.Error(ctx, "code fallback failed", logger.Error(err), logger.Duration("took", time.Since(start)))
		return model.FallbackResult{}, errs.WrapKind(op, errs.ErrFallback, err)
	}
	metrics.RecordFallback("ok")
	d.logger.Info(ctx, "code fallback answered",
		logger.Float64("confidence", res.Confidence),
		logger.Int("warnings", len(res.Warnings)),
		logger.Duration("took", time.Since(start)))
	return res, nil
}

func withContext(question string, c model.Context) string {
	if c.IsZero() {
		return question
	}
	b, err := json.Marshal(c)
	if err != nil {
		return question
	}
	return question + "\n\nConversation context: " + string(b)
}
