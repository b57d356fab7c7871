// Package config загружает конфигурацию из YAML-файла, .env файлов и переменных окружения.
//
// Порядок применения: значения по умолчанию, затем YAML, затем переменные окружения
// из тегов `env:"..."`. Переменные окружения читаются после загрузки .env файлов:
// ENV_FILE (если задан, только он), иначе .env.local и .env.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"reliability-insights/internal/analytics"
	"reliability-insights/internal/logger"
)

// Config конфигурация приложения
type Config struct {
	Pipeline PipelineConfig `yaml:"pipeline"`
	Data     DataConfig     `yaml:"data"`
	Source   SourceConfig   `yaml:"source"`
	Output   OutputConfig   `yaml:"output"`
	KPI      KPIConfig      `yaml:"kpi"`
	Redis    RedisConfig    `yaml:"redis"`
	Server   ServerConfig   `yaml:"server"`
	Logging  logger.Config  `yaml:"logging"`
}

// PipelineConfig параметры реконструкции эпизодов и построения признаков
type PipelineConfig struct {
	GapTolerance       time.Duration `yaml:"gap_tolerance" env:"GAP_TOLERANCE"`
	GapPolicy          string        `yaml:"gap_policy" env:"GAP_POLICY"`
	NuisanceAlarm      string        `yaml:"nuisance_alarm" env:"NUISANCE_ALARM"`
	BreakdownThreshold time.Duration `yaml:"breakdown_threshold" env:"BREAKDOWN_THRESHOLD"`
	RollingWindows     []int         `yaml:"rolling_windows" env:"ROLLING_WINDOWS"`
	WindowMode         string        `yaml:"window_mode" env:"WINDOW_MODE"`
}

// DataConfig расположение артефактов конвейера
type DataConfig struct {
	Dir          string `yaml:"dir" env:"DATA_DIR"`
	RawEvents    string `yaml:"raw_events"`
	TaggedEvents string `yaml:"tagged_events"`
	Features     string `yaml:"features"`
	Calendar     string `yaml:"calendar"`
	Production   string `yaml:"production"`
	RiskDataset  string `yaml:"risk_dataset"`
	Parquet      string `yaml:"parquet"`
	Workbook     string `yaml:"workbook"`
}

// Path возвращает путь артефакта относительно каталога данных
func (d DataConfig) Path(name string) string {
	if filepath.IsAbs(name) || d.Dir == "" {
		return name
	}
	return filepath.Join(d.Dir, name)
}

// SourceConfig источник журнала отказов
type SourceConfig struct {
	Kind          string   `yaml:"kind" env:"SOURCE_KIND"`
	Host          string   `yaml:"host" env:"DB_HOST"`
	Port          int      `yaml:"port" env:"DB_PORT"`
	User          string   `yaml:"user" env:"DB_USER"`
	Password      string   `yaml:"password" env:"DB_PASSWORD"`
	Database      string   `yaml:"database" env:"DB_NAME"`
	SSLMode       string   `yaml:"sslmode" env:"DB_SSLMODE"`
	Table         string   `yaml:"table" env:"DB_TABLE"`
	LineGroups    []string `yaml:"line_groups" env:"SOURCE_LINE_GROUPS"`
	FailureStatus string   `yaml:"failure_status" env:"SOURCE_FAILURE_STATUS"`
	Since         string   `yaml:"since" env:"SOURCE_SINCE"`
}

// DSN строка подключения к PostgreSQL
func (s SourceConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		s.Host, s.Port, s.User, s.Password, s.Database, s.SSLMode)
}

// SinceTime дата начала выгрузки
func (s SourceConfig) SinceTime() (time.Time, error) {
	return time.Parse(time.DateOnly, s.Since)
}

// OutputConfig форматы выгрузки таблиц
type OutputConfig struct {
	Formats []string `yaml:"formats" env:"OUTPUT_FORMATS"`
}

// Has проверяет, включен ли формат
func (o OutputConfig) Has(format string) bool {
	for _, f := range o.Formats {
		if f == format {
			return true
		}
	}
	return false
}

// KPIConfig параметры расчета MTTR/MTBF
type KPIConfig struct {
	FailureStatus string          `yaml:"failure_status" env:"KPI_FAILURE_STATUS"`
	MainLineGroup string          `yaml:"main_line_group" env:"KPI_MAIN_LINE_GROUP"`
	ShiftMinutes  map[int]float64 `yaml:"shift_minutes"`
	SundayMinutes float64         `yaml:"sunday_minutes" env:"KPI_SUNDAY_MINUTES"`
}

// RedisConfig подключение к Redis
type RedisConfig struct {
	Addr     string        `yaml:"addr" env:"REDIS_ADDR"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"REDIS_DB"`
	TTL      time.Duration `yaml:"ttl" env:"REDIS_TTL"`
}

// ServerConfig HTTP сервер и периодический пересчет
type ServerConfig struct {
	Port            string        `yaml:"port" env:"SERVER_PORT"`
	RefreshInterval time.Duration `yaml:"refresh_interval" env:"REFRESH_INTERVAL"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	ep := analytics.DefaultEpisodeOptions()
	kpi := analytics.DefaultKPIOptions()
	return &Config{
		Pipeline: PipelineConfig{
			GapTolerance:       ep.GapTolerance,
			GapPolicy:          string(ep.GapPolicy),
			NuisanceAlarm:      ep.NuisanceAlarm,
			BreakdownThreshold: ep.BreakdownThreshold,
			RollingWindows:     append([]int(nil), analytics.DefaultWindows...),
			WindowMode:         string(analytics.WindowRows),
		},
		Data: DataConfig{
			Dir:          "data",
			RawEvents:    "dados_falhas_brutos.csv",
			TaggedEvents: "dados_otimizados_falhas.csv",
			Features:     "dados_features_rul.csv",
			Calendar:     "calendario_produtivo.csv",
			Production:   "dados_ope.csv",
			RiskDataset:  "risk_dataset.csv",
			Parquet:      "dados_features_rul.parquet",
			Workbook:     "reliability.xlsx",
		},
		Source: SourceConfig{
			Kind:          SourceCSV,
			Host:          "localhost",
			Port:          5432,
			SSLMode:       "disable",
			Table:         "failures",
			LineGroups:    []string{"MAIN LINE", "SUBASSEMBLY"},
			FailureStatus: "Falha/Parada",
			Since:         "2025-01-01",
		},
		Output: OutputConfig{Formats: []string{FormatCSV}},
		KPI: KPIConfig{
			FailureStatus: kpi.FailureStatus,
			MainLineGroup: kpi.MainLineGroup,
			ShiftMinutes:  kpi.ShiftMinutes,
			SundayMinutes: kpi.SundayMinutes,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
			TTL:  24 * time.Hour,
		},
		Server: ServerConfig{
			Port:            "8080",
			RefreshInterval: 15 * time.Minute,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
		},
		Logging: logger.Config{Level: "info", Format: "json"},
	}
}

// Load читает конфигурацию. Пустой путь или отсутствующий файл дают значения по умолчанию.
func Load(path string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, fmt.Errorf("load environment files: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path возвращает путь к файлу конфигурации из CONFIG_PATH или значение по умолчанию
func Path(defaultPath string) string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return defaultPath
}

// EpisodeOptions параметры реконструктора эпизодов
func (c *Config) EpisodeOptions() analytics.EpisodeOptions {
	return analytics.EpisodeOptions{
		GapTolerance:       c.Pipeline.GapTolerance,
		GapPolicy:          analytics.GapPolicy(c.Pipeline.GapPolicy),
		NuisanceAlarm:      c.Pipeline.NuisanceAlarm,
		BreakdownThreshold: c.Pipeline.BreakdownThreshold,
	}
}

// RULOptions параметры построителя признаков
func (c *Config) RULOptions() analytics.RULOptions {
	return analytics.RULOptions{
		Windows: append([]int(nil), c.Pipeline.RollingWindows...),
		Mode:    analytics.WindowMode(c.Pipeline.WindowMode),
	}
}

// KPIOptions параметры расчета показателей надежности
func (c *Config) KPIOptions() analytics.KPIOptions {
	return analytics.KPIOptions{
		FailureStatus: c.KPI.FailureStatus,
		MainLineGroup: c.KPI.MainLineGroup,
		ShiftMinutes:  c.KPI.ShiftMinutes,
		SundayMinutes: c.KPI.SundayMinutes,
	}
}
