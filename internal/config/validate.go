package config

import (
	"fmt"
	"time"

	"reliability-insights/internal/analytics"
)

// Источники журнала отказов
const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"
)

// Форматы выгрузки
const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
	FormatXLSX    = "xlsx"
)

// ValidationError ошибка проверки конфигурации
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate проверяет конфигурацию
func (c *Config) Validate() error {
	p := c.Pipeline
	if p.GapTolerance < 0 {
		return &ValidationError{Field: "pipeline.gap_tolerance", Message: "must not be negative"}
	}
	switch analytics.GapPolicy(p.GapPolicy) {
	case analytics.GapExact, analytics.GapMinutes:
	default:
		return &ValidationError{Field: "pipeline.gap_policy", Message: "must be one of: exact, minutes"}
	}
	if p.BreakdownThreshold <= 0 {
		return &ValidationError{Field: "pipeline.breakdown_threshold", Message: "must be positive"}
	}
	if len(p.RollingWindows) == 0 {
		return &ValidationError{Field: "pipeline.rolling_windows", Message: "is required"}
	}
	for _, w := range p.RollingWindows {
		if w <= 0 {
			return &ValidationError{Field: "pipeline.rolling_windows", Message: "must contain positive sizes"}
		}
	}
	switch analytics.WindowMode(p.WindowMode) {
	case analytics.WindowRows, analytics.WindowCalendar:
	default:
		return &ValidationError{Field: "pipeline.window_mode", Message: "must be one of: rows, calendar"}
	}

	switch c.Source.Kind {
	case SourceCSV:
	case SourcePostgres:
		if c.Source.Host == "" || c.Source.Database == "" || c.Source.Table == "" {
			return &ValidationError{Field: "source", Message: "host, database and table are required for postgres"}
		}
		if _, err := time.Parse(time.DateOnly, c.Source.Since); err != nil {
			return &ValidationError{Field: "source.since", Message: "must be a YYYY-MM-DD date"}
		}
	default:
		return &ValidationError{Field: "source.kind", Message: "must be one of: csv, postgres"}
	}

	for _, f := range c.Output.Formats {
		switch f {
		case FormatCSV, FormatParquet, FormatXLSX:
		default:
			return &ValidationError{Field: "output.formats", Message: fmt.Sprintf("unknown format %q", f)}
		}
	}

	if c.Server.RefreshInterval <= 0 {
		return &ValidationError{Field: "server.refresh_interval", Message: "must be positive"}
	}
	return nil
}
