package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"reliability-insights/internal/models"
)

// ErrNotFound запись отсутствует в кэше
var ErrNotFound = errors.New("not found in cache")

const (
	latestKeyPrefix = "rul:latest:"
	elementsKey     = "rul:elements"
	lastRunKey      = "run:last"
	runHistoryKey   = "run:history"
	runCountKey     = "run:count"

	runHistoryLimit = 100
)

// ElementRUL последнее известное значение RUL элемента
type ElementRUL struct {
	ElementDesc string  `json:"element_desc"`
	RUL         float64 `json:"rul"`
}

// RedisCache хранилище результатов последнего запуска для HTTP API
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache создает новый Redis кэш
func NewRedisCache(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     20,
		MinIdleConns: 2,
		MaxRetries:   3,
	})

	// Проверяем подключение
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{client: client, ttl: ttl}, nil
}

func latestKey(element string) string {
	return latestKeyPrefix + element
}

// StoreLatestFeatures заменяет последние строки признаков по элементам.
// Индекс элементов упорядочен по RUL, элементы прошлого запуска удаляются.
func (r *RedisCache) StoreLatestFeatures(ctx context.Context, rows []models.FeatureRow) error {
	previous, err := r.client.ZRange(ctx, elementsKey, 0, -1).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("failed to read element index: %w", err)
	}

	pipe := r.client.TxPipeline()
	for _, element := range previous {
		pipe.Del(ctx, latestKey(element))
	}
	pipe.Del(ctx, elementsKey)

	for _, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("failed to marshal feature row: %w", err)
		}
		pipe.Set(ctx, latestKey(row.ElementDesc), data, r.ttl)
		pipe.ZAdd(ctx, elementsKey, redis.Z{Score: row.RUL, Member: row.ElementDesc})
	}
	if len(rows) > 0 {
		pipe.Expire(ctx, elementsKey, r.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store latest features: %w", err)
	}
	return nil
}

// GetLatestFeature возвращает последнюю строку признаков элемента
func (r *RedisCache) GetLatestFeature(ctx context.Context, element string) (models.FeatureRow, error) {
	var row models.FeatureRow
	if err := r.getJSON(ctx, latestKey(element), &row); err != nil {
		return models.FeatureRow{}, err
	}
	return row, nil
}

// ListElements возвращает элементы по возрастанию RUL; limit <= 0 означает все
func (r *RedisCache) ListElements(ctx context.Context, limit int) ([]ElementRUL, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}

	results, err := r.client.ZRangeWithScores(ctx, elementsKey, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list elements: %w", err)
	}

	out := make([]ElementRUL, 0, len(results))
	for _, z := range results {
		element, _ := z.Member.(string)
		out = append(out, ElementRUL{ElementDesc: element, RUL: z.Score})
	}
	return out, nil
}

// StoreRunSummary сохраняет итог запуска и добавляет его в историю
func (r *RedisCache) StoreRunSummary(ctx context.Context, summary models.RunSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal run summary: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, lastRunKey, data, 0)
	pipe.ZAdd(ctx, runHistoryKey, redis.Z{Score: float64(summary.StartedAt.Unix()), Member: summary.RunID})
	pipe.ZRemRangeByRank(ctx, runHistoryKey, 0, -runHistoryLimit-1)
	pipe.Incr(ctx, runCountKey)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store run summary: %w", err)
	}
	return nil
}

// GetRunSummary возвращает итог последнего запуска
func (r *RedisCache) GetRunSummary(ctx context.Context) (models.RunSummary, error) {
	var summary models.RunSummary
	if err := r.getJSON(ctx, lastRunKey, &summary); err != nil {
		return models.RunSummary{}, err
	}
	return summary, nil
}

// RecentRuns возвращает идентификаторы последних запусков, начиная с самого нового
func (r *RedisCache) RecentRuns(ctx context.Context, limit int) ([]string, error) {
	results, err := r.client.ZRevRange(ctx, runHistoryKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get run history: %w", err)
	}
	return results, nil
}

// RunCount возвращает число сохраненных запусков
func (r *RedisCache) RunCount(ctx context.Context) (int64, error) {
	val, err := r.client.Get(ctx, runCountKey).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return val, err
}

func (r *RedisCache) getJSON(ctx context.Context, key string, v any) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return nil
}

// Close закрывает соединение с Redis
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// Ping проверяет доступность Redis
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// GetStats возвращает статистику пула соединений
func (r *RedisCache) GetStats() map[string]interface{} {
	stats := r.client.PoolStats()

	return map[string]interface{}{
		"hits":        stats.Hits,
		"misses":      stats.Misses,
		"timeouts":    stats.Timeouts,
		"total_conns": stats.TotalConns,
		"idle_conns":  stats.IdleConns,
		"stale_conns": stats.StaleConns,
	}
}
