// Package planner runs the full planning pipeline:
// orders → estimator → aggregator → sequencer → allocator → reports.
package planner

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cyclo/millplan/internal/logger"
	"github.com/cyclo/millplan/internal/model"
	"github.com/cyclo/millplan/pkg/allocate"
	"github.com/cyclo/millplan/pkg/batch"
	"github.com/cyclo/millplan/pkg/blend"
	"github.com/cyclo/millplan/pkg/cache"
	"github.com/cyclo/millplan/pkg/config"
	perrors "github.com/cyclo/millplan/pkg/errors"
	"github.com/cyclo/millplan/pkg/estimate"
	"github.com/cyclo/millplan/pkg/report"
	"github.com/cyclo/millplan/pkg/sequence"
	"github.com/cyclo/millplan/pkg/telemetry"
)

// Inputs are the per-run data. Everything else comes from the config the
// planner was built with.
type Inputs struct {
	Orders   []model.Order          `json:"orders"`
	Machines []model.MachineProfile `json:"machines"`

	// Start is the first plan day. Zero means the configured start date.
	Start time.Time `json:"start"`
}

// Planner turns orders into a production plan. It is safe for concurrent
// use; every run allocates against its own capacity grid.
type Planner struct {
	cfg       *config.Config
	blends    *blend.Normalizer
	sequencer *sequence.Sequencer
	allocator *allocate.Allocator

	cache   cache.Store
	metrics *telemetry.Metrics
	log     *logger.Logger
	now     func() time.Time
}

// Option configures a Planner.
type Option func(*Planner)

// WithCache memoizes plans by input fingerprint.
func WithCache(c cache.Store) Option {
	return func(p *Planner) { p.cache = c }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(p *Planner) { p.log = l }
}

// WithMetrics records run latency and volumes.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(p *Planner) { p.metrics = m }
}

// WithClock overrides the clock used for default start dates and
// GeneratedAt.
func WithClock(now func() time.Time) Option {
	return func(p *Planner) { p.now = now }
}

// New builds a planner for a validated configuration.
func New(cfg *config.Config, opts ...Option) *Planner {
	p := &Planner{
		cfg:       cfg,
		blends:    blend.New(cfg.Blends.Table),
		sequencer: sequence.New(sequence.NewGraph(cfg.Colors)),
		allocator: allocate.New(allocate.Config{
			Lines:       cfg.Lines,
			MainPool:    cfg.Pools.Main,
			SmallPool:   cfg.Pools.Small,
			Shifts:      cfg.Shifts,
			HorizonDays: cfg.Planning.HorizonDays,
			BandMinKg:   cfg.Planning.SmallBandMinKg,
			BandMaxKg:   cfg.Planning.SmallBandMaxKg,
			Epsilon:     cfg.Planning.Epsilon,
		}),
		cache:   cache.Nop{},
		metrics: telemetry.NewMetrics(),
		log:     logger.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Config returns the configuration the planner was built with.
func (p *Planner) Config() *config.Config {
	return p.cfg
}

// Metrics returns the planner's metrics collector.
func (p *Planner) Metrics() *telemetry.Metrics {
	return p.metrics
}

// Plan resolves the start date, consults the cache and otherwise runs the
// pipeline. Cache failures are logged and never fail the run.
func (p *Planner) Plan(ctx context.Context, in Inputs) (*model.Plan, error) {
	ctx, span := telemetry.StartSpan(ctx, "planner.plan",
		telemetry.Attr("orders", len(in.Orders)),
		telemetry.Attr("machines", len(in.Machines)),
	)
	defer span.End()

	began := time.Now()
	if in.Start.IsZero() {
		start, err := p.cfg.PlanStart(p.now())
		if err != nil {
			telemetry.RecordError(ctx, err)
			return nil, err
		}
		in.Start = start
	}
	in.Start = day(in.Start)

	key, err := Fingerprint(p.cfg, in)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, err
	}
	span.SetAttributes(telemetry.Attr("fingerprint", key))

	if cached, ok, err := p.cache.Get(ctx, key); err != nil {
		p.log.Warn("plan cache read failed", "error", err)
	} else if ok {
		p.log.Debug("plan cache hit", "fingerprint", key, "run_id", cached.RunID)
		span.SetAttributes(telemetry.Attr("cache_hit", true))
		p.metrics.RecordPlan(time.Since(began), len(in.Orders), cached.TotalAllocatedKg(), true)
		return cached, nil
	}

	plan := p.Run(in)
	plan.RunID = uuid.NewString()
	plan.Fingerprint = key
	plan.GeneratedAt = p.now()

	if err := p.cache.Put(ctx, key, plan); err != nil {
		p.log.Warn("plan cache write failed", "error", err)
	}

	elapsed := time.Since(began)
	p.metrics.RecordPlan(elapsed, len(in.Orders), plan.TotalAllocatedKg(), false)
	span.SetAttributes(
		telemetry.Attr("batches", len(plan.Batches)),
		telemetry.Attr("records", len(plan.Allocations)),
		telemetry.Attr("unmatched", len(plan.Unmatched)),
	)
	p.log.Info("plan complete",
		"run_id", plan.RunID,
		"orders", len(in.Orders),
		"batches", len(plan.Batches),
		"records", len(plan.Allocations),
		"unmatched", len(plan.Unmatched),
		"samples", len(plan.Samples),
		"unscheduled", len(plan.Unscheduled),
		"elapsed", elapsed,
	)
	return plan, nil
}

// Run executes the pipeline synchronously. It is deterministic: identical
// inputs yield identical plans. RunID, Fingerprint and GeneratedAt are left
// to the caller.
func (p *Planner) Run(in Inputs) *model.Plan {
	start := day(in.Start)
	plan := &model.Plan{
		Start:       start,
		TotalOrders: distinctOrders(in.Orders),
	}

	est := estimate.New(p.blends, in.Machines, estimate.Config{
		Lines:     p.cfg.Lines,
		MainPool:  p.cfg.Pools.Main,
		SmallPool: p.cfg.Pools.Small,
		BandMinKg: p.cfg.Planning.EstimateBandMinKg,
		BandMaxKg: p.cfg.Planning.SmallBandMaxKg,
	})

	var eligible []model.EstimatedOrder
	for _, o := range in.Orders {
		if p.isSample(o) {
			plan.Samples = append(plan.Samples, o)
			continue
		}
		eo, err := est.EstimateOrder(o)
		if err != nil {
			plan.Unmatched = append(plan.Unmatched,
				model.NewUnmatched(o, string(perrors.GetCode(err)), perrors.Reason(err)))
			continue
		}
		eligible = append(eligible, eo)
	}

	batches := batch.Aggregate(eligible, batch.Options{UseDueDates: p.cfg.Planning.UseDueDates})
	batches = p.sequencer.Order(batches)
	records := p.allocator.Allocate(batches, start)

	plan.Batches = batches
	plan.Allocations = records
	plan.BatchStatus = report.BatchStatuses(records, batches)
	plan.Utilization = report.Utilization(records, p.cfg.Lines)
	plan.Changeovers = report.Changeovers(records, p.cfg.Lines)
	plan.ColorShares = report.ColorDistribution(records, p.cfg.Lines)
	plan.Unscheduled = report.Unscheduled(batches, records, p.cfg.Planning.Epsilon)
	return plan
}

func (p *Planner) isSample(o model.Order) bool {
	limit := p.cfg.Planning.SampleMaxKg
	return limit > 0 && o.Quantity > 0 && o.Quantity <= limit
}

func distinctOrders(orders []model.Order) int {
	seen := make(map[string]struct{}, len(orders))
	for _, o := range orders {
		id := strings.TrimSpace(o.ID)
		if id == "" {
			continue
		}
		seen[id] = struct{}{}
	}
	return len(seen)
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
