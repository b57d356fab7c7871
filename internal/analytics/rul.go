package analytics

import (
	"sort"
	"time"

	"reliability-insights/internal/models"
)

// DefaultWindows размеры скользящих окон в днях
var DefaultWindows = []int{7, 14, 30}

// RULOptions параметры построения таблицы признаков RUL
type RULOptions struct {
	Windows []int
	Mode    WindowMode
}

// DefaultRULOptions возвращает параметры по умолчанию
func DefaultRULOptions() RULOptions {
	return RULOptions{
		Windows: append([]int(nil), DefaultWindows...),
		Mode:    WindowRows,
	}
}

// RULResult результат построения таблицы признаков
type RULResult struct {
	Rows []models.FeatureRow
	// Elements число элементов, попавших в таблицу
	Elements int
	// Unlabelled события без последующего отказа
	Unlabelled int
	// NonPositive дневные строки с RUL <= 0
	NonPositive int
}

// RULBuilder строит дневную таблицу признаков с целевой переменной RUL
type RULBuilder struct {
	opts RULOptions
}

// NewRULBuilder создает новый построитель
func NewRULBuilder(opts RULOptions) *RULBuilder {
	if len(opts.Windows) == 0 {
		opts.Windows = append([]int(nil), DefaultWindows...)
	}
	if opts.Mode == "" {
		opts.Mode = WindowRows
	}
	return &RULBuilder{opts: opts}
}

// labelledEvent событие с известным расстоянием до следующего отказа
type labelledEvent struct {
	start     time.Time
	duration  int64
	breakdown bool
	rul       float64
}

// dailyAggregate дневной агрегат одного элемента
type dailyAggregate struct {
	day        time.Time
	stops      int
	breakdowns int
	duration   int64
	minRUL     float64
}

// Build строит таблицу признаков. Строки упорядочены по (Element, Day).
func (b *RULBuilder) Build(events []models.TaggedEvent) RULResult {
	series := make(map[string][]models.TaggedEvent)
	for _, e := range events {
		if e.ElementDesc == "" || e.StartTime.IsZero() {
			continue
		}
		series[e.ElementDesc] = append(series[e.ElementDesc], e)
	}

	elements := make([]string, 0, len(series))
	for el := range series {
		elements = append(elements, el)
	}
	sort.Strings(elements)

	result := RULResult{Rows: []models.FeatureRow{}}
	for _, el := range elements {
		s := series[el]
		sort.SliceStable(s, func(i, j int) bool {
			return s[i].StartTime.Before(s[j].StartTime)
		})

		labelled := labelSeries(s)
		result.Unlabelled += len(s) - len(labelled)
		if len(labelled) == 0 {
			continue
		}

		rows, dropped := b.featureRows(el, aggregateDays(labelled))
		result.NonPositive += dropped
		if len(rows) > 0 {
			result.Elements++
			result.Rows = append(result.Rows, rows...)
		}
	}

	return result
}

// labelSeries проходит ряд одного элемента с конца, перенося время ближайшего
// следующего отказа. Отказ получает время следующего за ним отказа, остальные
// события время ближайшего предстоящего. События после последнего отказа отбрасываются.
func labelSeries(s []models.TaggedEvent) []labelledEvent {
	out := make([]labelledEvent, 0, len(s))
	var next time.Time
	for i := len(s) - 1; i >= 0; i-- {
		e := s[i]
		if !next.IsZero() {
			out = append(out, labelledEvent{
				start:     e.StartTime,
				duration:  e.Duration,
				breakdown: e.IsBreakdown,
				rul:       daysBetween(e.StartTime, next),
			})
		}
		if e.IsBreakdown {
			next = e.StartTime
		}
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// aggregateDays сворачивает упорядоченные события в дневные агрегаты
func aggregateDays(events []labelledEvent) []dailyAggregate {
	days := make([]dailyAggregate, 0)
	for _, e := range events {
		day := truncateDay(e.start)
		n := len(days)
		if n == 0 || !days[n-1].day.Equal(day) {
			days = append(days, dailyAggregate{day: day, minRUL: e.rul})
			n++
		}

		agg := &days[n-1]
		agg.stops++
		agg.duration += e.duration
		if e.breakdown {
			agg.breakdowns++
		}
		if e.rul < agg.minRUL {
			agg.minRUL = e.rul
		}
	}
	return days
}

// featureRows считает скользящие окна и давность по всем дням элемента,
// затем оставляет только строки с RUL > 0
func (b *RULBuilder) featureRows(element string, days []dailyAggregate) ([]models.FeatureRow, int) {
	dayTimes := make([]time.Time, len(days))
	for i, d := range days {
		dayTimes[i] = d.day
	}
	stops := newPrefixSums(len(days), func(i int) float64 { return float64(days[i].stops) })
	durations := newPrefixSums(len(days), func(i int) float64 { return float64(days[i].duration) })

	rows := make([]models.FeatureRow, 0, len(days))
	dropped := 0
	for i, d := range days {
		if d.minRUL <= 0 {
			dropped++
			continue
		}

		row := models.FeatureRow{
			ElementDesc: element,
			Day:         d.day,
			Windows:     make([]models.WindowAggregate, len(b.opts.Windows)),
			RUL:         d.minRUL,
		}
		for k, size := range b.opts.Windows {
			lo := windowStart(dayTimes, i, size, b.opts.Mode)
			row.Windows[k] = models.WindowAggregate{
				Days:     size,
				Stops:    stops.sum(lo, i+1),
				Duration: durations.sum(lo, i+1),
			}
		}
		if i > 0 {
			row.DaysSinceLastStop = daysBetween(days[i-1].day, d.day)
		}
		rows = append(rows, row)
	}
	return rows, dropped
}

// Latest возвращает самую свежую строку признаков каждого элемента, по имени элемента
func Latest(rows []models.FeatureRow) []models.FeatureRow {
	latest := make(map[string]models.FeatureRow)
	for _, r := range rows {
		cur, ok := latest[r.ElementDesc]
		if !ok || r.Day.After(cur.Day) {
			latest[r.ElementDesc] = r
		}
	}

	out := make([]models.FeatureRow, 0, len(latest))
	for _, r := range latest {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ElementDesc < out[j].ElementDesc })
	return out
}
