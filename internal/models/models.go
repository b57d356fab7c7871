package models

import "time"

// Event одна запись журнала остановов оборудования
type Event struct {
	ElementDesc   string    `json:"element_desc"`
	LineGroupDesc string    `json:"line_group_desc"`
	LineDesc      string    `json:"line_desc"`
	StatusDesc    string    `json:"status_desc"`
	AlarmDesc     string    `json:"alarm_desc"`
	Duration      int64     `json:"duration"` // секунды
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	EffectiveDay  time.Time `json:"effective_day"`
	StationDesc   string    `json:"station_desc"`
	ShiftID       int       `json:"shift_id"`
}

// EquipmentKey идентификатор единицы оборудования (линия, станция, элемент)
type EquipmentKey struct {
	Line    string
	Station string
	Element string
}

// Key возвращает ключ оборудования события
func (e Event) Key() EquipmentKey {
	return EquipmentKey{Line: e.LineDesc, Station: e.StationDesc, Element: e.ElementDesc}
}

// HasKey проверяет, что все поля ключа оборудования заполнены
func (e Event) HasKey() bool {
	return e.LineDesc != "" && e.StationDesc != "" && e.ElementDesc != ""
}

// TaggedEvent событие с привязкой к эпизоду отказа
type TaggedEvent struct {
	Event
	IsBreakdown      bool   `json:"is_breakdown"`
	EpisodeID        int64  `json:"episode_id"`
	FirstAlarmDesc   string `json:"first_alarm_desc"`
	FirstElementDesc string `json:"first_element_desc"`
}

// WindowAggregate скользящие суммы за одно окно
type WindowAggregate struct {
	Days     int     `json:"days"`
	Stops    float64 `json:"stops"`
	Duration float64 `json:"duration"`
}

// FeatureRow строка дневной таблицы признаков RUL
type FeatureRow struct {
	ElementDesc       string            `json:"element_desc"`
	Day               time.Time         `json:"day"`
	Windows           []WindowAggregate `json:"windows"`
	DaysSinceLastStop float64           `json:"days_since_last_stop"`
	RUL               float64           `json:"rul"`
}

// Vector возвращает признаки в порядке колонок таблицы (без RUL)
func (r FeatureRow) Vector() []float64 {
	v := make([]float64, 0, len(r.Windows)*2+1)
	for _, w := range r.Windows {
		v = append(v, w.Stops, w.Duration)
	}
	return append(v, r.DaysSinceLastStop)
}

// DayType тип дня производственного календаря
type DayType string

const (
	DayProductive   DayType = "Produtivo"
	DayUnproductive DayType = "Improdutivo"
)

// CalendarDay день производственного календаря
type CalendarDay struct {
	Date time.Time `json:"date"`
	Type DayType   `json:"type"`
}

// ProductionRecord запись выпуска продукции за смену
type ProductionRecord struct {
	EffectiveDate time.Time `json:"effective_date"`
	LineDesc      string    `json:"line_desc"`
	ShiftID       int       `json:"shift_id"`
	EffectiveProd float64   `json:"effective_prod"`
	TargProd      float64   `json:"targ_prod"`
}

// KPI показатели надежности
type KPI struct {
	Failures        int     `json:"failures"`
	DowntimeMinutes float64 `json:"downtime_minutes"`
	UptimeMinutes   float64 `json:"uptime_minutes"`
	MTTRMinutes     float64 `json:"mttr_minutes"`
	MTBFMinutes     float64 `json:"mtbf_minutes"`
}

// OPE эффективность производства
type OPE struct {
	Percent  float64 `json:"percent"`
	Produced float64 `json:"produced"`
	Target   float64 `json:"target"`
}

// RunSummary итог одного запуска конвейера
type RunSummary struct {
	RunID          string    `json:"run_id"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	EventsLoaded   int       `json:"events_loaded"`
	EventsSkipped  int       `json:"events_skipped"`
	Episodes       int       `json:"episodes"`
	NuisanceMerges int       `json:"nuisance_merges"`
	FeatureRows    int       `json:"feature_rows"`
	Elements       int       `json:"elements"`
	KPI            KPI       `json:"kpi"`
	Artifacts      []string  `json:"artifacts"`
}
