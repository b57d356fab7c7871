package pipeline

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"reliability-insights/internal/analytics"
	"reliability-insights/internal/config"
	"reliability-insights/internal/dataset"
	"reliability-insights/internal/logger"
	"reliability-insights/internal/metrics"
	"reliability-insights/internal/models"
)

// Стадии конвейера, метка гистограммы длительности
const (
	StageExtract  = "extract"
	StageEpisodes = "episodes"
	StageFeatures = "features"
	StageWrite    = "write"
	StagePublish  = "publish"
)

// EventSource источник журнала отказов
type EventSource interface {
	Load(ctx context.Context) (dataset.EventLoad, error)
}

// Publisher получатель результатов успешного запуска
type Publisher interface {
	StoreLatestFeatures(ctx context.Context, rows []models.FeatureRow) error
	StoreRunSummary(ctx context.Context, summary models.RunSummary) error
}

// Pipeline конвейер: журнал отказов, эпизоды, таблица признаков RUL
type Pipeline struct {
	cfg       *config.Config
	log       logger.Logger
	publisher Publisher
	now       func() time.Time
}

// Option настройка конвейера
type Option func(*Pipeline)

// WithPublisher публикует итоги запусков, например в Redis
func WithPublisher(p Publisher) Option {
	return func(pl *Pipeline) { pl.publisher = p }
}

// WithClock подменяет источник текущего времени
func WithClock(now func() time.Time) Option {
	return func(pl *Pipeline) { pl.now = now }
}

// New создает конвейер
func New(cfg *config.Config, log logger.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg: cfg,
		log: log,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) path(name string) string {
	return p.cfg.Data.Path(name)
}

func timed(stage string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	return err
}

func (p *Pipeline) reconstruct(events []models.Event) analytics.EpisodeResult {
	var res analytics.EpisodeResult
	timed(StageEpisodes, func() error {
		res = analytics.NewReconstructor(p.cfg.EpisodeOptions()).Reconstruct(events)
		return nil
	})
	return res
}

func (p *Pipeline) buildFeatures(tagged []models.TaggedEvent) analytics.RULResult {
	var res analytics.RULResult
	timed(StageFeatures, func() error {
		res = analytics.NewRULBuilder(p.cfg.RULOptions()).Build(tagged)
		return nil
	})
	return res
}

// Extract загружает журнал отказов из источника и сохраняет его в сырой CSV
func (p *Pipeline) Extract(ctx context.Context, src EventSource) (dataset.EventLoad, error) {
	var load dataset.EventLoad
	err := timed(StageExtract, func() error {
		var err error
		load, err = src.Load(ctx)
		return err
	})
	if err != nil {
		return dataset.EventLoad{}, fmt.Errorf("load events: %w", err)
	}

	path := p.path(p.cfg.Data.RawEvents)
	if err := dataset.WriteFile(path, func(w io.Writer) error {
		return dataset.EncodeEvents(w, load.Events)
	}); err != nil {
		return dataset.EventLoad{}, err
	}

	p.log.Info("events extracted",
		logger.Int("events", len(load.Events)),
		logger.Int("skipped", load.Skipped),
		logger.String("path", path))
	return load, nil
}

// Episodes восстанавливает эпизоды по сырому CSV и пишет размеченные события
func (p *Pipeline) Episodes(ctx context.Context) (analytics.EpisodeResult, error) {
	load, err := dataset.ReadEvents(p.path(p.cfg.Data.RawEvents))
	if err != nil {
		return analytics.EpisodeResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return analytics.EpisodeResult{}, err
	}

	res := p.reconstruct(load.Events)

	path := p.path(p.cfg.Data.TaggedEvents)
	if err := dataset.WriteFile(path, func(w io.Writer) error {
		return dataset.EncodeTaggedEvents(w, res.Events)
	}); err != nil {
		return analytics.EpisodeResult{}, err
	}

	p.log.Info("episodes reconstructed",
		logger.Int("events", len(res.Events)),
		logger.Int("skipped", load.Skipped),
		logger.Int("episodes", res.Episodes),
		logger.Int("nuisance_merges", res.NuisanceMerges),
		logger.String("path", path))
	return res, nil
}

// Features строит таблицу признаков RUL по размеченным событиям
func (p *Pipeline) Features(ctx context.Context) (analytics.RULResult, error) {
	tagged, err := dataset.ReadTaggedEvents(p.path(p.cfg.Data.TaggedEvents), p.cfg.Pipeline.BreakdownThreshold)
	if err != nil {
		return analytics.RULResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return analytics.RULResult{}, err
	}

	res := p.buildFeatures(tagged)

	stage := dataset.NewStage()
	g, gctx := errgroup.WithContext(ctx)
	p.writeFeatures(gctx, g, stage, res.Rows)
	if p.cfg.Output.Has(config.FormatXLSX) {
		p.stageWrite(gctx, g, stage, p.cfg.Data.Workbook, func(w io.Writer) error {
			return dataset.EncodeWorkbook(w, dataset.Workbook{
				Episodes: analytics.SummarizeEpisodes(tagged),
				Features: res.Rows,
				Windows:  p.cfg.Pipeline.RollingWindows,
				KPI:      analytics.ComputeKPI(tagged, p.cfg.KPIOptions()),
			})
		})
	}
	paths, err := p.commit(g, stage)
	if err != nil {
		return analytics.RULResult{}, err
	}

	p.logFeatures(p.log, res, paths)
	return res, nil
}

func (p *Pipeline) logFeatures(log logger.Logger, res analytics.RULResult, paths []string) {
	log.Info("feature table built",
		logger.Int("rows", len(res.Rows)),
		logger.Int("elements", res.Elements),
		logger.Int("unlabelled", res.Unlabelled),
		logger.Int("non_positive", res.NonPositive),
		logger.Strings("artifacts", paths))
}

func (p *Pipeline) stageWrite(ctx context.Context, g *errgroup.Group, stage *dataset.Stage, name string, encode func(io.Writer) error) {
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return stage.Write(p.path(name), encode)
	})
}

func (p *Pipeline) writeFeatures(ctx context.Context, g *errgroup.Group, stage *dataset.Stage, rows []models.FeatureRow) {
	windows := p.cfg.Pipeline.RollingWindows
	p.stageWrite(ctx, g, stage, p.cfg.Data.Features, func(w io.Writer) error {
		return dataset.EncodeFeatures(w, rows, windows)
	})
	if p.cfg.Output.Has(config.FormatParquet) {
		p.stageWrite(ctx, g, stage, p.cfg.Data.Parquet, func(w io.Writer) error {
			return dataset.EncodeFeaturesParquet(w, rows, windows)
		})
	}
}

// commit дожидается писателей и переносит артефакты на место; при ошибке ничего не меняется
func (p *Pipeline) commit(g *errgroup.Group, stage *dataset.Stage) ([]string, error) {
	var paths []string
	err := timed(StageWrite, func() error {
		if err := g.Wait(); err != nil {
			if aerr := stage.Abort(); aerr != nil {
				p.log.Warn("failed to remove staged artifacts", logger.Error(aerr))
			}
			return err
		}
		var err error
		paths, err = stage.Commit()
		return err
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// Run выполняет весь конвейер за один проход и атомарно заменяет артефакты
func (p *Pipeline) Run(ctx context.Context, src EventSource) (models.RunSummary, error) {
	summary := models.RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: p.now(),
	}
	log := p.log.With(logger.String("run_id", summary.RunID))
	log.Info("pipeline run started")

	summary, rows, err := p.run(ctx, src, summary, log)
	if err != nil {
		metrics.PipelineRuns.WithLabelValues("error").Inc()
		log.Error("pipeline run failed", logger.Error(err))
		return summary, err
	}

	metrics.PipelineRuns.WithLabelValues("success").Inc()
	metrics.LastSuccess.Set(float64(summary.FinishedAt.Unix()))
	metrics.EventsLoaded.Set(float64(summary.EventsLoaded))
	metrics.EventsSkipped.Set(float64(summary.EventsSkipped))
	metrics.Episodes.Set(float64(summary.Episodes))
	metrics.NuisanceMerges.Set(float64(summary.NuisanceMerges))
	metrics.FeatureRows.Set(float64(summary.FeatureRows))
	metrics.ElementsTracked.Set(float64(summary.Elements))
	metrics.ReliabilityMinutes.WithLabelValues("mttr").Set(summary.KPI.MTTRMinutes)
	metrics.ReliabilityMinutes.WithLabelValues("mtbf").Set(summary.KPI.MTBFMinutes)

	p.publish(ctx, log, rows, summary)

	log.Info("pipeline run finished",
		logger.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)),
		logger.Int("episodes", summary.Episodes),
		logger.Int("feature_rows", summary.FeatureRows))
	return summary, nil
}

func (p *Pipeline) run(ctx context.Context, src EventSource, summary models.RunSummary, log logger.Logger) (models.RunSummary, []models.FeatureRow, error) {
	var load dataset.EventLoad
	err := timed(StageExtract, func() error {
		var err error
		load, err = src.Load(ctx)
		return err
	})
	if err != nil {
		return summary, nil, fmt.Errorf("load events: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return summary, nil, err
	}
	log.Info("events loaded", logger.Int("events", len(load.Events)), logger.Int("skipped", load.Skipped))

	episodes := p.reconstruct(load.Events)
	features := p.buildFeatures(episodes.Events)
	kpi := analytics.ComputeKPI(episodes.Events, p.cfg.KPIOptions())

	stage := dataset.NewStage()
	g, gctx := errgroup.WithContext(ctx)
	p.stageWrite(gctx, g, stage, p.cfg.Data.RawEvents, func(w io.Writer) error {
		return dataset.EncodeEvents(w, load.Events)
	})
	p.stageWrite(gctx, g, stage, p.cfg.Data.TaggedEvents, func(w io.Writer) error {
		return dataset.EncodeTaggedEvents(w, episodes.Events)
	})
	p.writeFeatures(gctx, g, stage, features.Rows)
	if p.cfg.Output.Has(config.FormatXLSX) {
		p.stageWrite(gctx, g, stage, p.cfg.Data.Workbook, func(w io.Writer) error {
			return dataset.EncodeWorkbook(w, dataset.Workbook{
				Episodes: analytics.SummarizeEpisodes(episodes.Events),
				Features: features.Rows,
				Windows:  p.cfg.Pipeline.RollingWindows,
				KPI:      kpi,
			})
		})
	}
	paths, err := p.commit(g, stage)
	if err != nil {
		return summary, nil, err
	}
	p.logFeatures(log, features, paths)

	summary.FinishedAt = p.now()
	summary.EventsLoaded = len(load.Events)
	summary.EventsSkipped = load.Skipped
	summary.Episodes = episodes.Episodes
	summary.NuisanceMerges = episodes.NuisanceMerges
	summary.FeatureRows = len(features.Rows)
	summary.Elements = features.Elements
	summary.KPI = kpi
	summary.Artifacts = paths
	return summary, features.Rows, nil
}

// publish отдает результаты в хранилище; артефакты на диске уже заменены,
// поэтому ошибка публикации только логируется
func (p *Pipeline) publish(ctx context.Context, log logger.Logger, rows []models.FeatureRow, summary models.RunSummary) {
	if p.publisher == nil {
		return
	}

	timed(StagePublish, func() error {
		err := p.publisher.StoreLatestFeatures(ctx, analytics.Latest(rows))
		redisResult("store_latest", err)
		if err != nil {
			log.Warn("failed to publish latest features", logger.Error(err))
		}

		err = p.publisher.StoreRunSummary(ctx, summary)
		redisResult("store_run", err)
		if err != nil {
			log.Warn("failed to publish run summary", logger.Error(err))
		}
		return nil
	})
}

func redisResult(operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RedisOperations.WithLabelValues(operation, status).Inc()
}
