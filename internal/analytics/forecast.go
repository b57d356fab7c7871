package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"reliability-insights/internal/models"
)

// RULPredictor внешняя регрессионная модель RUL
type RULPredictor interface {
	PredictRUL(features []float64) (float64, error)
}

// LinearModel линейная регрессия RUL по вектору признаков FeatureRow.Vector.
// Отрицательный прогноз приводится к нулю.
type LinearModel struct {
	Intercept    float64
	Coefficients []float64
}

// PredictRUL вычисляет прогноз RUL в днях
func (m LinearModel) PredictRUL(features []float64) (float64, error) {
	if len(features) != len(m.Coefficients) {
		return 0, fmt.Errorf("model expects %d features, got %d", len(m.Coefficients), len(features))
	}
	rul := m.Intercept
	for i, x := range features {
		rul += m.Coefficients[i] * x
	}
	return math.Max(rul, 0), nil
}

// FailureForecast прогноз даты критического отказа элемента
type FailureForecast struct {
	ElementDesc         string    `json:"element_desc"`
	PredictedRUL        float64   `json:"predicted_rul"`
	LastDataDay         time.Time `json:"last_data_day"`
	PredictedFailureDay time.Time `json:"predicted_failure_day"`
	DaysFromToday       int       `json:"days_from_today"`
}

// ForecastFailures прогнозирует отказы по последней строке признаков каждого элемента.
// Прогнозы, ушедшие в прошлое относительно today, отбрасываются.
func ForecastFailures(rows []models.FeatureRow, predictor RULPredictor, today time.Time) ([]FailureForecast, error) {
	latest := Latest(rows)
	forecasts := make([]FailureForecast, 0, len(latest))
	for _, r := range latest {
		rul, err := predictor.PredictRUL(r.Vector())
		if err != nil {
			return nil, fmt.Errorf("predict RUL for %s: %w", r.ElementDesc, err)
		}

		failureDay := r.Day.AddDate(0, 0, int(rul))
		days := calendarDaysBetween(today, failureDay)
		if days < 0 {
			continue
		}
		forecasts = append(forecasts, FailureForecast{
			ElementDesc:         r.ElementDesc,
			PredictedRUL:        rul,
			LastDataDay:         r.Day,
			PredictedFailureDay: failureDay,
			DaysFromToday:       days,
		})
	}

	sort.SliceStable(forecasts, func(i, j int) bool {
		return forecasts[i].DaysFromToday < forecasts[j].DaysFromToday
	})
	return forecasts, nil
}

// calendarDaysBetween число календарных дней от a до b без учета времени суток
func calendarDaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	from := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	to := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}
