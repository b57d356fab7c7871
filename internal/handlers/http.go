package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"reliability-insights/internal/cache"
	"reliability-insights/internal/logger"
	"reliability-insights/internal/metrics"
	"reliability-insights/internal/models"
)

const (
	defaultElementLimit = 50
	recentRunsLimit     = 10
)

// Store источник результатов последнего запуска
type Store interface {
	GetLatestFeature(ctx context.Context, element string) (models.FeatureRow, error)
	ListElements(ctx context.Context, limit int) ([]cache.ElementRUL, error)
	GetRunSummary(ctx context.Context) (models.RunSummary, error)
	RecentRuns(ctx context.Context, limit int) ([]string, error)
	RunCount(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
	GetStats() map[string]interface{}
}

// Handler обработчик HTTP запросов
type Handler struct {
	store Store
	log   logger.Logger
}

// NewHandler создает новый обработчик
func NewHandler(store Store, log logger.Logger) *Handler {
	return &Handler{
		store: store,
		log:   log,
	}
}

// Routes регистрирует обработчики API
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/rul/latest", h.GetLatestRUL)
	mux.HandleFunc("/rul/elements", h.ListElements)
	mux.HandleFunc("/runs/last", h.GetLastRun)
	mux.HandleFunc("/health", h.HealthCheck)
	mux.HandleFunc("/stats", h.GetStats)
}

func observe(r *http.Request, endpoint string, start time.Time) {
	metrics.RequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, endpoint string, status int, msg string) {
	metrics.RequestsTotal.WithLabelValues(r.Method, endpoint, strconv.Itoa(status)).Inc()
	http.Error(w, msg, status)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, endpoint string, body interface{}) {
	metrics.RequestsTotal.WithLabelValues(r.Method, endpoint, "200").Inc()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Warn("failed to encode response", logger.String("endpoint", endpoint), logger.Error(err))
	}
}

func redisResult(operation string, err error) {
	status := "success"
	if err != nil && !errors.Is(err, cache.ErrNotFound) {
		status = "error"
	}
	metrics.RedisOperations.WithLabelValues(operation, status).Inc()
}

// GetLatestRUL обрабатывает GET /rul/latest?element=
func (h *Handler) GetLatestRUL(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/rul/latest"
	start := time.Now()
	defer observe(r, endpoint, start)

	if r.Method != http.MethodGet {
		h.fail(w, r, endpoint, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	element := r.URL.Query().Get("element")
	if element == "" {
		h.fail(w, r, endpoint, http.StatusBadRequest, "element parameter is required")
		return
	}

	row, err := h.store.GetLatestFeature(r.Context(), element)
	redisResult("get_latest", err)
	if errors.Is(err, cache.ErrNotFound) {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		h.fail(w, r, endpoint, http.StatusNotFound, "no RUL for element")
		return
	}
	if err != nil {
		h.log.Error("failed to read latest RUL", logger.String("element", element), logger.Error(err))
		h.fail(w, r, endpoint, http.StatusInternalServerError, "Failed to retrieve RUL")
		return
	}
	metrics.CacheLookups.WithLabelValues("hit").Inc()

	h.respond(w, r, endpoint, row)
}

// ListElements обрабатывает GET /rul/elements?limit=
func (h *Handler) ListElements(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/rul/elements"
	start := time.Now()
	defer observe(r, endpoint, start)

	if r.Method != http.MethodGet {
		h.fail(w, r, endpoint, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	limit := defaultElementLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.fail(w, r, endpoint, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	elements, err := h.store.ListElements(r.Context(), limit)
	redisResult("list_elements", err)
	if err != nil {
		h.log.Error("failed to list elements", logger.Error(err))
		h.fail(w, r, endpoint, http.StatusInternalServerError, "Failed to list elements")
		return
	}

	h.respond(w, r, endpoint, map[string]interface{}{
		"count":    len(elements),
		"elements": elements,
	})
}

// GetLastRun обрабатывает GET /runs/last
func (h *Handler) GetLastRun(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/runs/last"
	start := time.Now()
	defer observe(r, endpoint, start)

	summary, err := h.store.GetRunSummary(r.Context())
	redisResult("get_run", err)
	if errors.Is(err, cache.ErrNotFound) {
		h.fail(w, r, endpoint, http.StatusNotFound, "no completed run yet")
		return
	}
	if err != nil {
		h.log.Error("failed to read run summary", logger.Error(err))
		h.fail(w, r, endpoint, http.StatusInternalServerError, "Failed to retrieve run")
		return
	}

	recent, err := h.store.RecentRuns(r.Context(), recentRunsLimit)
	redisResult("recent_runs", err)
	if err != nil {
		h.log.Warn("failed to read run history", logger.Error(err))
	}

	h.respond(w, r, endpoint, map[string]interface{}{
		"last":   summary,
		"recent": recent,
	})
}

// HealthCheck обрабатывает GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	// Проверяем Redis
	redisOK := h.store.Ping(r.Context()) == nil

	status := "healthy"
	httpStatus := http.StatusOK

	if !redisOK {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    status,
		"redis":     redisOK,
		"timestamp": time.Now(),
	})
}

// GetStats обрабатывает GET /stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/stats"
	start := time.Now()
	defer observe(r, endpoint, start)

	runs, err := h.store.RunCount(r.Context())
	redisResult("run_count", err)
	if err != nil {
		h.fail(w, r, endpoint, http.StatusInternalServerError, "Failed to retrieve stats")
		return
	}

	h.respond(w, r, endpoint, map[string]interface{}{
		"runs":      runs,
		"redis":     h.store.GetStats(),
		"timestamp": time.Now(),
	})
}
