package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/wildfire-etl/internal/consolidate"
	"github.com/couchcryptid/wildfire-etl/internal/domain"
	"github.com/couchcryptid/wildfire-etl/internal/observability"
	"github.com/couchcryptid/wildfire-etl/internal/region"
	"github.com/couchcryptid/wildfire-etl/internal/store"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

// Source supplies the raw inputs of a region.
type Source interface {
	ExtractArchives(r region.Region) (int, error)
	ReferenceSources(r region.Region, years []int) ([]consolidate.Source, error)
	LoadHotspots() (domain.Table, bool, error)
}

// Exporter persists the engineered outputs of a region.
type Exporter interface {
	WriteDataset(r region.Region, t domain.Table) (string, error)
	WriteFeatures(r region.Region, t domain.Table) (string, error)
}

// DatasetSink publishes dataset rows downstream.
type DatasetSink interface {
	Publish(ctx context.Context, r region.Region, d domain.Dataset) (int, error)
}

// RunRecorder keeps the history of region runs.
type RunRecorder interface {
	RecordRun(ctx context.Context, run store.Run) (uuid.UUID, error)
}

// Options configures a Runner.
type Options struct {
	Years       []int
	Concurrency int
	FailFast    bool
}

// Runner processes regions end to end: consolidate, enrich, engineer, export.
type Runner struct {
	source   Source
	exporter Exporter
	engineer *Engineer
	sink     DatasetSink // optional
	ledger   RunRecorder // optional
	opts     Options
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics
	ready    atomic.Bool
}

// NewRunner creates a Runner. sink and ledger may be nil.
func NewRunner(src Source, exp Exporter, eng *Engineer, sink DatasetSink, ledger RunRecorder,
	opts Options, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics,
) *Runner {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Runner{
		source:   src,
		exporter: exp,
		engineer: eng,
		sink:     sink,
		ledger:   ledger,
		opts:     opts,
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
	}
}

// CheckReadiness returns nil once a batch run has completed.
func (p *Runner) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no batch run has completed yet")
	}
	return nil
}

// Report describes the outcome of one region.
type Report struct {
	Region       region.Region
	Status       store.Status
	Records      int
	Positives    int
	Synthetic    int
	Clusters     int
	Published    int
	DatasetPath  string
	FeaturesPath string
	Duration     time.Duration
	Err          error
}

// Summary is the outcome of a batch run, one report per region in input order.
type Summary struct {
	Reports []Report
}

// Failed returns the reports that ended in an error. Regions never started
// because the run was aborted are reported as skipped, not failed.
func (s Summary) Failed() []Report {
	var out []Report
	for _, r := range s.Reports {
		if r.Status == store.StatusFailed {
			out = append(out, r)
		}
	}
	return out
}

// Run processes the regions. With FailFast the first region error cancels the
// remaining regions and is returned. Otherwise failures are logged, recorded
// and reported in the summary while the other regions continue. Regions not
// yet started when the run is cancelled are neither touched nor recorded.
func (p *Runner) Run(ctx context.Context, regions []region.Region) (Summary, error) {
	p.logger.Info("batch run started", "regions", len(regions), "concurrency", p.opts.Concurrency, "fail_fast", p.opts.FailFast)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	hotspots, haveHotspots, err := p.source.LoadHotspots()
	if err != nil {
		return Summary{}, fmt.Errorf("load hotspots: %w", err)
	}
	if !haveHotspots {
		p.logger.Info("no hotspot directory, skipping weather enrichment")
	}

	summary := Summary{Reports: make([]Report, len(regions))}

	var g *errgroup.Group
	gctx := ctx
	if p.opts.FailFast {
		g, gctx = errgroup.WithContext(ctx)
	} else {
		g = &errgroup.Group{}
	}
	g.SetLimit(p.opts.Concurrency)

	for i, r := range regions {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				summary.Reports[i] = Report{Region: r, Status: store.StatusSkipped, Err: err}
				return err
			}
			var h *domain.Table
			if haveHotspots {
				h = &hotspots
			}
			rep := p.runRegion(gctx, r, h)
			summary.Reports[i] = rep
			if rep.Err != nil && p.opts.FailFast {
				return fmt.Errorf("region %s: %w", r.Code, rep.Err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		p.logger.Error("batch run aborted", "error", err)
		return summary, err
	}

	p.ready.Store(true)
	p.logger.Info("batch run finished", "regions", len(regions), "failed", len(summary.Failed()))
	return summary, nil
}

func (p *Runner) runRegion(ctx context.Context, r region.Region, hotspots *domain.Table) Report {
	start := p.clock.Now()
	rep := Report{Region: r}
	logger := p.logger.With("region", r.Code)

	err := p.processRegion(ctx, r, hotspots, &rep, logger)
	finish := p.clock.Now()
	rep.Duration = finish.Sub(start)
	p.metrics.RegionDuration.WithLabelValues(r.Code).Observe(rep.Duration.Seconds())

	switch {
	case err != nil:
		rep.Status = store.StatusFailed
		rep.Err = err
		p.metrics.RegionFailures.WithLabelValues(r.Code).Inc()
		logger.Error("region failed", "error", err)
	case rep.Status == "":
		rep.Status = store.StatusSucceeded
	}

	p.record(ctx, rep, start, finish, logger)
	return rep
}

func (p *Runner) processRegion(ctx context.Context, r region.Region, hotspots *domain.Table, rep *Report, logger *slog.Logger) error {
	extracted, err := p.source.ExtractArchives(r)
	if err != nil {
		return fmt.Errorf("extract archives: %w", err)
	}
	if extracted > 0 {
		logger.Info("archives extracted", "csv_files", extracted)
	}

	sources, err := p.source.ReferenceSources(r, p.opts.Years)
	if err != nil {
		return fmt.Errorf("list reference files: %w", err)
	}
	if len(sources) == 0 {
		logger.Warn("no reference files for region, skipping", "years", p.opts.Years)
		rep.Status = store.StatusSkipped
		return nil
	}

	table, err := consolidate.Consolidate(sources, logger)
	if err != nil {
		return err
	}
	if hotspots != nil {
		if table, err = consolidate.Enrich(table, *hotspots); err != nil {
			return fmt.Errorf("enrich with hotspots: %w", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	out, err := p.engineer.Transform(table)
	if err != nil {
		return err
	}
	ds := out.Dataset
	rep.Records = len(ds.Records)
	rep.Positives = ds.Positives
	rep.Synthetic = ds.Synthetic
	rep.Clusters = ds.Clusters
	p.metrics.RecordsRead.WithLabelValues(r.Code).Add(float64(ds.Positives))
	p.metrics.SyntheticRecords.WithLabelValues(r.Code).Add(float64(ds.Synthetic))
	p.metrics.Clusters.WithLabelValues(r.Code).Set(float64(ds.Clusters))

	if rep.DatasetPath, err = p.exporter.WriteDataset(r, out.DatasetTable); err != nil {
		return fmt.Errorf("write dataset: %w", err)
	}
	if rep.FeaturesPath, err = p.exporter.WriteFeatures(r, out.FeatureTable); err != nil {
		return fmt.Errorf("write features: %w", err)
	}

	if p.sink != nil {
		if rep.Published, err = p.sink.Publish(ctx, r, ds); err != nil {
			return err
		}
		p.metrics.RowsPublished.Add(float64(rep.Published))
	}

	logger.Info("region processed",
		"records", rep.Records,
		"positives", rep.Positives,
		"synthetic", rep.Synthetic,
		"clusters", rep.Clusters,
		"positive_share", out.PositiveShare,
		"train_rows", out.TrainRows,
		"test_rows", out.TestRows,
		"dataset", rep.DatasetPath,
	)
	return nil
}

// record writes the ledger entry. It uses a context detached from
// cancellation so an aborted run is still recorded.
func (p *Runner) record(ctx context.Context, rep Report, start, finish time.Time, logger *slog.Logger) {
	if p.ledger == nil {
		return
	}
	run := store.Run{
		Region:     rep.Region.Code,
		StartedAt:  start,
		FinishedAt: finish,
		Records:    rep.Records,
		Positives:  rep.Positives,
		Synthetic:  rep.Synthetic,
		Clusters:   rep.Clusters,
		Status:     rep.Status,
	}
	if rep.Err != nil {
		run.Error = rep.Err.Error()
	}
	if _, err := p.ledger.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		logger.Error("record run failed", "error", err)
	}
}
