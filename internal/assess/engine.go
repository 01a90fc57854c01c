package assess

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/lox/parkwait/internal/metrics"
	"github.com/lox/parkwait/internal/models"
	"github.com/lox/parkwait/internal/store"
)

// Source is the read side of the repository the engine needs.
type Source interface {
	LatestStatus(ctx context.Context, attractionIDs []int64) ([]models.CurrentObservation, error)
	HistoricalWindow(ctx context.Context, attractionID int64, since time.Time, dayOfWeek, hourOfDay int) ([]models.WaitSample, error)
}

// BatchSource can fetch every attraction's window in one query.
type BatchSource interface {
	HistoricalWindows(ctx context.Context, since time.Time, keys []store.WindowKey) (map[int64][]models.WaitSample, error)
}

type Engine struct {
	source   Source
	lookback time.Duration
	batch    bool
	now      func() time.Time
}

type EngineOption func(*Engine)

// WithBatchHistory fetches baselines with a single query when the source
// supports it.
func WithBatchHistory(enabled bool) EngineOption {
	return func(e *Engine) { e.batch = enabled }
}

func WithLookback(d time.Duration) EngineOption {
	return func(e *Engine) { e.lookback = d }
}

func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

func NewEngine(source Source, opts ...EngineOption) *Engine {
	e := &Engine{
		source:   source,
		lookback: store.HistoryLookback,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Assess builds the ranked report for the given attractions. A failure to
// load current observations is returned as an error with no partial report;
// a failure loading one attraction's history leaves that attraction without a
// baseline and lists it in Report.Degraded.
func (e *Engine) Assess(ctx context.Context, attractionIDs []int64) (*Report, error) {
	now := e.now()
	report := &Report{GeneratedAt: now}

	current, err := e.source.LatestStatus(ctx, attractionIDs)
	if err != nil {
		metrics.ReportsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("latest status: %w", err)
	}
	if len(current) == 0 {
		report.Outcome = OutcomeNoData
		metrics.ReportsTotal.WithLabelValues(string(OutcomeNoData)).Inc()
		return report, nil
	}

	since := now.Add(-e.lookback)
	history, failed := e.loadHistory(ctx, since, current)

	report.Results = make([]Result, 0, len(current))
	for _, obs := range current {
		var baseline *Baseline
		if b, ok := ComputeBaseline(history[obs.AttractionID]); ok {
			baseline = &b
		}
		r := Evaluate(obs, baseline)
		report.Results = append(report.Results, r)
		metrics.ResultsByCategory.WithLabelValues(r.Label).Inc()
	}
	for _, obs := range current {
		if failed[obs.AttractionID] {
			report.Degraded = append(report.Degraded, obs.AttractionID)
		}
	}

	Rank(report.Results)
	report.Outcome = OutcomeRanked
	metrics.ReportsTotal.WithLabelValues(string(OutcomeRanked)).Inc()
	return report, nil
}

func (e *Engine) loadHistory(ctx context.Context, since time.Time, current []models.CurrentObservation) (map[int64][]models.WaitSample, map[int64]bool) {
	failed := make(map[int64]bool)

	if bs, ok := e.source.(BatchSource); ok && e.batch {
		keys := make([]store.WindowKey, len(current))
		for i, obs := range current {
			keys[i] = store.WindowKey{AttractionID: obs.AttractionID, DayOfWeek: obs.DayOfWeek, HourOfDay: obs.HourOfDay}
		}
		history, err := bs.HistoricalWindows(ctx, since, keys)
		if err == nil {
			return history, failed
		}
		log.Printf("assess: batched history failed, falling back to per-attraction queries: %v", err)
	}

	history := make(map[int64][]models.WaitSample, len(current))
	for _, obs := range current {
		samples, err := e.source.HistoricalWindow(ctx, obs.AttractionID, since, obs.DayOfWeek, obs.HourOfDay)
		if err != nil {
			log.Printf("assess: history for attraction %d: %v", obs.AttractionID, err)
			metrics.HistoryFailures.Inc()
			failed[obs.AttractionID] = true
			continue
		}
		history[obs.AttractionID] = samples
	}
	return history, failed
}

// Evaluate turns one current observation and its optional baseline into a
// Result. Category thresholds use the unrounded mean; displayed average and
// percentage are rounded to one decimal.
func Evaluate(obs models.CurrentObservation, baseline *Baseline) Result {
	r := Result{
		AttractionID: obs.AttractionID,
		Name:         obs.Name,
		Status:       obs.Status,
		Operating:    models.IsOperating(obs.Status),
		LastUpdated:  obs.Timestamp,
		Category:     CategoryNone,
	}
	if obs.StandBy.Valid {
		wait := obs.StandBy.Int64
		r.CurrentWait = &wait
		r.WalkOn = wait == models.WalkOn
	}

	if baseline != nil {
		r.Samples = baseline.Samples
		avg := round1(baseline.Mean)
		r.AverageWait = &avg
		if r.CurrentWait != nil && baseline.Mean > 0 {
			current := float64(*r.CurrentWait)
			pct := round1(current / baseline.Mean * 100)
			r.PercentOfAverage = &pct
			r.Category = Categorize(current, baseline.Mean)
		}
	}

	if !r.Operating {
		// Only the status is shown; the percentage survives as a sort key.
		r.rankPercent = r.PercentOfAverage
		r.PercentOfAverage = nil
		r.CurrentWait = nil
		r.WalkOn = false
		r.Category = CategoryNone
	}

	switch {
	case !r.Operating:
		r.Label = obs.Status
		r.Tone = ToneDown
	case r.WalkOn:
		r.Label = WalkOnLabel
		r.Tone = ToneVeryGood
	case r.Category != CategoryNone:
		r.Label = string(r.Category)
		r.Tone = categoryTones[r.Category]
	default:
		r.Label = NotAvailable
		r.Tone = ToneNone
	}
	return r
}
