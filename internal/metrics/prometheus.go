package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal общее количество запросов
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration продолжительность запросов
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// PipelineRuns запуски конвейера по результату
	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_runs_total",
			Help: "Total number of pipeline runs",
		},
		[]string{"status"},
	)

	// StageDuration длительность стадий конвейера
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)

	// EventsLoaded загруженные события последнего запуска
	EventsLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pipeline_events_loaded",
			Help: "Number of failure events loaded by the last run",
		},
	)

	// EventsSkipped события без ключа оборудования
	EventsSkipped = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pipeline_events_skipped",
			Help: "Number of failure events skipped for missing keys in the last run",
		},
	)

	// Episodes восстановленные эпизоды отказов
	Episodes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pipeline_episodes",
			Help: "Number of failure episodes reconstructed by the last run",
		},
	)

	// NuisanceMerges события ложной тревоги, присоединенные к эпизоду
	NuisanceMerges = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pipeline_nuisance_merges",
			Help: "Number of nuisance alarm events folded into the preceding episode",
		},
	)

	// FeatureRows строки таблицы признаков RUL
	FeatureRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pipeline_feature_rows",
			Help: "Number of labelled RUL feature rows produced by the last run",
		},
	)

	// ElementsTracked элементы с меткой RUL
	ElementsTracked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pipeline_elements_tracked",
			Help: "Number of elements with at least one labelled feature row",
		},
	)

	// LastSuccess время последнего успешного запуска
	LastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pipeline_last_success_timestamp_seconds",
			Help: "Unix time of the last successful pipeline run",
		},
	)

	// ReliabilityMinutes MTTR и MTBF последнего запуска
	ReliabilityMinutes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reliability_minutes",
			Help: "MTTR and MTBF of the last run in minutes",
		},
		[]string{"kpi"},
	)

	// RedisOperations операции с Redis
	RedisOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_operations_total",
			Help: "Total number of Redis operations",
		},
		[]string{"operation", "status"},
	)

	// CacheLookups обращения к кэшу RUL по результату
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "RUL cache lookups by result",
		},
		[]string{"result"},
	)
)
