package analytics

import (
	"sort"

	"reliability-insights/internal/models"
)

const (
	missingCategory = "N/A"
	shiftColumn     = "ShiftId"
)

// riskFields категориальные признаки классификатора в порядке колонок
var riskFields = []string{"LineGroupDesc", "LineDesc", "StationDesc", "ElementDesc"}

// RiskInput входные признаки классификатора риска отказа
type RiskInput struct {
	LineGroupDesc string `json:"line_group_desc"`
	LineDesc      string `json:"line_desc"`
	StationDesc   string `json:"station_desc"`
	ElementDesc   string `json:"element_desc"`
	ShiftID       int    `json:"shift_id"`
}

// RiskInputFrom извлекает признаки из события
func RiskInputFrom(e models.Event) RiskInput {
	return RiskInput{
		LineGroupDesc: e.LineGroupDesc,
		LineDesc:      e.LineDesc,
		StationDesc:   e.StationDesc,
		ElementDesc:   e.ElementDesc,
		ShiftID:       e.ShiftID,
	}
}

func (in RiskInput) categories() []string {
	values := []string{in.LineGroupDesc, in.LineDesc, in.StationDesc, in.ElementDesc}
	for i, v := range values {
		if v == "" {
			values[i] = missingCategory
		}
	}
	return values
}

// RiskDataset обучающая выборка классификатора: one-hot признаки и метка отказа
type RiskDataset struct {
	Columns []string
	Rows    [][]float64
	Labels  []int
}

// BuildRiskDataset кодирует события в one-hot матрицу.
// ShiftId остается числовой колонкой, остальные признаки раскладываются в колонки
// вида Field_value по отсортированным значениям; dropFirst убирает первую категорию.
func BuildRiskDataset(events []models.TaggedEvent, dropFirst bool) RiskDataset {
	inputs := make([]RiskInput, len(events))
	labels := make([]int, len(events))
	for i, e := range events {
		inputs[i] = RiskInputFrom(e.Event)
		if e.IsBreakdown {
			labels[i] = 1
		}
	}

	columns := []string{shiftColumn}
	for f, field := range riskFields {
		seen := make(map[string]struct{})
		for _, in := range inputs {
			seen[in.categories()[f]] = struct{}{}
		}
		values := make([]string, 0, len(seen))
		for v := range seen {
			values = append(values, v)
		}
		sort.Strings(values)
		if dropFirst && len(values) > 0 {
			values = values[1:]
		}
		for _, v := range values {
			columns = append(columns, field+"_"+v)
		}
	}

	return RiskDataset{
		Columns: columns,
		Rows:    EncodeRisk(inputs, columns),
		Labels:  labels,
	}
}

// EncodeRisk выравнивает входы по колонкам обученной модели.
// Неизвестные категории дают нули.
func EncodeRisk(inputs []RiskInput, columns []string) [][]float64 {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c] = i
	}

	rows := make([][]float64, len(inputs))
	for r, in := range inputs {
		row := make([]float64, len(columns))
		if i, ok := index[shiftColumn]; ok {
			row[i] = float64(in.ShiftID)
		}
		for f, v := range in.categories() {
			if i, ok := index[riskFields[f]+"_"+v]; ok {
				row[i] = 1
			}
		}
		rows[r] = row
	}
	return rows
}
