// Package source загружает журнал отказов из операционной базы или из CSV выгрузки
package source

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"reliability-insights/internal/config"
	"reliability-insights/internal/dataset"
	"reliability-insights/internal/models"
)

const (
	maxOpenConns    = 5
	maxIdleConns    = 2
	connMaxLifetime = 5 * time.Minute
	pingTimeout     = 5 * time.Second
)

// Connect открывает пул подключений к PostgreSQL и проверяет связь
func Connect(ctx context.Context, cfg config.SourceConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Filter условия выгрузки журнала отказов
type Filter struct {
	Table         string
	LineGroups    []string
	FailureStatus string
	Since         time.Time
}

// FilterFrom строит условия выгрузки из конфигурации
func FilterFrom(cfg config.SourceConfig) (Filter, error) {
	since, err := cfg.SinceTime()
	if err != nil {
		return Filter{}, fmt.Errorf("parse source.since: %w", err)
	}
	return Filter{
		Table:         cfg.Table,
		LineGroups:    cfg.LineGroups,
		FailureStatus: cfg.FailureStatus,
		Since:         since,
	}, nil
}

// failureRow строка журнала; любое поле может быть NULL
type failureRow struct {
	ElementDesc   sql.NullString  `db:"ElementDesc"`
	LineGroupDesc sql.NullString  `db:"LineGroupDesc"`
	LineDesc      sql.NullString  `db:"LineDesc"`
	StatusDesc    sql.NullString  `db:"StatusDesc"`
	AlarmDesc     sql.NullString  `db:"AlarmDesc"`
	Duration      sql.NullFloat64 `db:"Duration"`
	StartTime     sql.NullTime    `db:"StartTime"`
	EndTime       sql.NullTime    `db:"EndTime"`
	EffectiveDay  sql.NullTime    `db:"EffectiveDay"`
	StationDesc   sql.NullString  `db:"StationDesc"`
	ShiftID       sql.NullInt64   `db:"ShiftId"`
}

func (r failureRow) event() models.Event {
	return models.Event{
		ElementDesc:   r.ElementDesc.String,
		LineGroupDesc: r.LineGroupDesc.String,
		LineDesc:      r.LineDesc.String,
		StatusDesc:    r.StatusDesc.String,
		AlarmDesc:     r.AlarmDesc.String,
		Duration:      int64(r.Duration.Float64),
		StartTime:     r.StartTime.Time,
		EndTime:       r.EndTime.Time,
		EffectiveDay:  r.EffectiveDay.Time,
		StationDesc:   r.StationDesc.String,
		ShiftID:       int(r.ShiftID.Int64),
	}
}

// Postgres источник журнала отказов в PostgreSQL
type Postgres struct {
	db     *sqlx.DB
	filter Filter
}

// NewPostgres создает источник поверх открытого пула
func NewPostgres(db *sqlx.DB, filter Filter) *Postgres {
	return &Postgres{db: db, filter: filter}
}

// Query возвращает текст запроса выгрузки
func (p *Postgres) Query() string {
	cols := make([]string, len(dataset.EventColumns))
	for i, c := range dataset.EventColumns {
		cols[i] = pq.QuoteIdentifier(c)
	}
	return fmt.Sprintf(
		`SELECT %s FROM %s WHERE "LineGroupDesc" = ANY($1) AND "EffectiveDay" >= $2 AND "StatusDesc" = $3 ORDER BY "StartTime"`,
		strings.Join(cols, ", "), quoteTable(p.filter.Table),
	)
}

// Load выгружает отказы. Строки без ключа оборудования или времени начала пропускаются.
func (p *Postgres) Load(ctx context.Context) (dataset.EventLoad, error) {
	var rows []failureRow
	err := p.db.SelectContext(ctx, &rows, p.Query(),
		pq.Array(p.filter.LineGroups), p.filter.Since, p.filter.FailureStatus)
	if err != nil {
		return dataset.EventLoad{}, fmt.Errorf("query failures from %s: %w", p.filter.Table, err)
	}

	load := dataset.EventLoad{Events: make([]models.Event, 0, len(rows))}
	for _, r := range rows {
		e := r.event()
		if !e.HasKey() || e.StartTime.IsZero() {
			load.Skipped++
			continue
		}
		load.Events = append(load.Events, e)
	}
	return load, nil
}

// quoteTable экранирует имя таблицы, допуская схему: schema.table
func quoteTable(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}
