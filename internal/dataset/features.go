package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"reliability-insights/internal/analytics"
	"reliability-insights/internal/models"
)

// Колонки таблицы признаков RUL
const (
	ColElement           = "ElementDesc"
	ColDay               = "StartTime"
	ColDaysSinceLastStop = "tempo_desde_ultima_parada"
	ColRUL               = "RUL"

	stopsPrefix    = "paradas_ultimos_"
	durationPrefix = "duracao_total_ultimos_"
)

// StopsColumn колонка числа остановов за окно
func StopsColumn(days int) string { return fmt.Sprintf("%s%dd", stopsPrefix, days) }

// DurationColumn колонка суммарной длительности за окно
func DurationColumn(days int) string { return fmt.Sprintf("%s%dd", durationPrefix, days) }

// FeatureColumns заголовок таблицы признаков для набора окон
func FeatureColumns(windows []int) []string {
	cols := []string{ColElement, ColDay}
	for _, w := range windows {
		cols = append(cols, StopsColumn(w), DurationColumn(w))
	}
	return append(cols, ColDaysSinceLastStop, ColRUL)
}

// windowsOf возвращает окна, заданные строками признаков
func windowsOf(rows []models.FeatureRow) []int {
	if len(rows) == 0 {
		return nil
	}
	windows := make([]int, len(rows[0].Windows))
	for i, w := range rows[0].Windows {
		windows[i] = w.Days
	}
	return windows
}

// EncodeFeatures пишет таблицу признаков. Окна берутся из параметра, если строк нет.
func EncodeFeatures(w io.Writer, rows []models.FeatureRow, windows []int) error {
	if ws := windowsOf(rows); ws != nil {
		windows = ws
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(FeatureColumns(windows)); err != nil {
		return err
	}
	for _, r := range rows {
		rec := make([]string, 0, 4+2*len(r.Windows))
		rec = append(rec, r.ElementDesc, r.Day.Format(time.DateOnly))
		for _, agg := range r.Windows {
			rec = append(rec, formatFloat(agg.Stops), formatFloat(agg.Duration))
		}
		rec = append(rec, formatFloat(r.DaysSinceLastStop), formatFloat(r.RUL))
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadFeatures читает таблицу признаков. Если windows задан, каждое окно обязано
// присутствовать в заголовке, иначе окна определяются по заголовку.
func ReadFeatures(path string, windows []int) ([]models.FeatureRow, error) {
	f, err := openArtifact(path, GeneratorFeatures)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeFeatures(f, path, windows)
}

// DecodeFeatures разбирает таблицу признаков
func DecodeFeatures(r io.Reader, path string, windows []int) ([]models.FeatureRow, error) {
	t, err := newTable(r, path, ',', []string{ColElement, ColDay, ColDaysSinceLastStop, ColRUL})
	if err != nil {
		return nil, err
	}

	if len(windows) == 0 {
		if windows, err = headerWindows(t); err != nil {
			return nil, err
		}
	}
	for _, w := range windows {
		for _, col := range []string{StopsColumn(w), DurationColumn(w)} {
			if !t.has(col) {
				return nil, &SchemaError{Path: path, Column: col}
			}
		}
	}

	rows := []models.FeatureRow{}
	for {
		rec, err := t.next()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}

		row := models.FeatureRow{
			ElementDesc: t.value(rec, ColElement),
			Windows:     make([]models.WindowAggregate, len(windows)),
		}
		if row.Day, err = t.timeValue(rec, ColDay); err != nil {
			return nil, err
		}
		for i, w := range windows {
			row.Windows[i].Days = w
			if row.Windows[i].Stops, err = t.floatValue(rec, StopsColumn(w)); err != nil {
				return nil, err
			}
			if row.Windows[i].Duration, err = t.floatValue(rec, DurationColumn(w)); err != nil {
				return nil, err
			}
		}
		if row.DaysSinceLastStop, err = t.floatValue(rec, ColDaysSinceLastStop); err != nil {
			return nil, err
		}
		if row.RUL, err = t.floatValue(rec, ColRUL); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
}

// headerWindows находит окна по заголовку. Колонка окна без пары или
// отсутствие окон означает расхождение схемы.
func headerWindows(t *table) ([]int, error) {
	var windows []int
	seen := make(map[int]struct{})
	for col := range t.columns {
		var days string
		var pair func(int) string
		if d, ok := strings.CutPrefix(col, stopsPrefix); ok {
			days, pair = d, DurationColumn
		} else if d, ok := strings.CutPrefix(col, durationPrefix); ok {
			days, pair = d, StopsColumn
		} else {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(days, "d"))
		if err != nil {
			continue
		}
		if !t.has(pair(n)) {
			return nil, &SchemaError{Path: t.path, Column: pair(n)}
		}
		if _, ok := seen[n]; !ok {
			seen[n] = struct{}{}
			windows = append(windows, n)
		}
	}
	if len(windows) == 0 {
		return nil, &SchemaError{Path: t.path, Column: StopsColumn(analytics.DefaultWindows[0])}
	}
	sort.Ints(windows)
	return windows, nil
}
