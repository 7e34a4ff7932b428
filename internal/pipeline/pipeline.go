// Package pipeline runs the observation consume loop: extract one raw
// message, parse it, reconcile it into the store.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/incident-tracker/internal/domain"
	"github.com/couchcryptid/incident-tracker/internal/observability"
)

// Extractor reads the next raw observation message from the source.
type Extractor interface {
	Extract(ctx context.Context) (domain.RawMessage, error)
}

// Reconciler merges one observation into the durable record set.
// *store.Store satisfies it.
type Reconciler interface {
	Reconcile(ctx context.Context, obs domain.Observation, pol domain.MergePolicy) (domain.Incident, error)
}

// Pipeline orchestrates the extract-parse-reconcile loop.
type Pipeline struct {
	extractor  Extractor
	reconciler Reconciler
	policy     domain.MergePolicy
	logger     *slog.Logger
	metrics    *observability.Metrics
	ready      atomic.Bool
}

// New creates a Pipeline with the given stages and observability.
func New(e Extractor, r Reconciler, pol domain.MergePolicy, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		extractor:  e,
		reconciler: r,
		policy:     pol,
		logger:     logger,
		metrics:    metrics,
	}
}

// CheckReadiness returns nil once the pipeline has reconciled at least one
// observation, or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not reconciled any observations yet")
	}
	return nil
}

// Run executes the consume loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started")
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	// Keeps retry storms short while avoiding tight loops during outages.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		raw, err := p.extractor.Extract(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.logger.Error("extract failed", "error", err)
			if !p.backoffOrStop(ctx, &backoff, maxBackoff) {
				return nil
			}
			continue
		}
		backoff = 200 * time.Millisecond

		p.metrics.ObservationsConsumed.Inc()
		p.handle(ctx, raw)
	}
}

// handle parses and reconciles one message. Data-quality failures skip the
// message and commit its offset; store failures leave the offset uncommitted
// so the message is redelivered.
func (p *Pipeline) handle(ctx context.Context, raw domain.RawMessage) {
	obs, err := domain.ParseRawMessage(raw)
	if err != nil {
		p.logger.Warn("skipping unparsable observation",
			"error", err,
			"topic", raw.Topic,
			"partition", raw.Partition,
			"offset", raw.Offset,
		)
		p.metrics.ObservationsSkipped.Inc()
		p.commitOffset(ctx, raw)
		return
	}

	start := time.Now()
	inc, err := p.reconciler.Reconcile(ctx, obs, p.policy)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			p.logger.Warn("skipping invalid observation", "error", err, "offset", raw.Offset)
			p.metrics.ObservationsSkipped.Inc()
			p.commitOffset(ctx, raw)
			return
		}
		p.logger.Error("reconcile failed", "id", obs.ID, "error", err)
		p.metrics.ReconcileErrors.Inc()
		return
	}
	p.metrics.ReconcileDuration.Observe(time.Since(start).Seconds())

	p.logger.Debug("observation reconciled",
		"id", inc.ID,
		"is_closed", inc.IsClosed,
		"city", inc.CityText,
	)
	p.ready.Store(true)
	p.commitOffset(ctx, raw)
}

func (p *Pipeline) commitOffset(ctx context.Context, raw domain.RawMessage) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed",
			"error", err,
			"partition", raw.Partition,
			"offset", raw.Offset,
		)
	}
}

// backoffOrStop sleeps for the current backoff and doubles it.
// Returns false if the context was cancelled while waiting.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(*backoff):
	}
	*backoff *= 2
	if *backoff > maxBackoff {
		*backoff = maxBackoff
	}
	return true
}
