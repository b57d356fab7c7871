// Package dataset читает и пишет артефакты конвейера: CSV таблицы, Parquet и XLSX выгрузки
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

const utf8BOM = "\ufeff"

// timeLayouts форматы меток времени, встречающиеся в выгрузках
var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	time.DateOnly,
}

// openArtifact открывает входной файл. Отсутствие файла дает MissingArtifactError.
func openArtifact(path, generator string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &MissingArtifactError{Path: path, Generator: generator}
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

// table CSV таблица с индексом колонок по заголовку
type table struct {
	path    string
	reader  *csv.Reader
	columns map[string]int
	line    int
}

func newTable(r io.Reader, path string, comma rune, required []string) (*table, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	head, err := cr.Read()
	if err == io.EOF {
		return nil, &SchemaError{Path: path, Column: required[0]}
	}
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}

	t := &table{path: path, reader: cr, columns: make(map[string]int, len(head)), line: 1}
	for i, name := range head {
		if i == 0 {
			name = strings.TrimPrefix(name, utf8BOM)
		}
		t.columns[strings.TrimSpace(name)] = i
	}
	for _, col := range required {
		if _, ok := t.columns[col]; !ok {
			return nil, &SchemaError{Path: path, Column: col}
		}
	}
	return t, nil
}

// next возвращает следующую запись или io.EOF
func (t *table) next() ([]string, error) {
	rec, err := t.reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, err
		}
		return nil, fmt.Errorf("read %s: %w", t.path, err)
	}
	t.line++
	return rec, nil
}

func (t *table) has(col string) bool {
	_, ok := t.columns[col]
	return ok
}

// value значение колонки записи; пустая строка, если колонки нет
func (t *table) value(rec []string, col string) string {
	i, ok := t.columns[col]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func (t *table) errorf(col string, err error) error {
	return fmt.Errorf("%s: line %d: column %s: %w", t.path, t.line, col, err)
}

func (t *table) timeValue(rec []string, col string) (time.Time, error) {
	v := t.value(rec, col)
	if v == "" {
		return time.Time{}, nil
	}
	ts, err := parseTime(v)
	if err != nil {
		return time.Time{}, t.errorf(col, err)
	}
	return ts, nil
}

func (t *table) floatValue(rec []string, col string) (float64, error) {
	v := t.value(rec, col)
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, t.errorf(col, err)
	}
	return f, nil
}

// intValue допускает запись целого как 900.0
func (t *table) intValue(rec []string, col string) (int64, error) {
	f, err := t.floatValue(rec, col)
	return int64(f), err
}

func parseTime(v string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, v); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", v)
}

// formatTime пишет полночь как дату, остальное как дату со временем
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(time.DateOnly)
	}
	return t.Format(timeLayouts[0])
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
