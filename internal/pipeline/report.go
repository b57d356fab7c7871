package pipeline

import (
	"context"
	"io"

	"reliability-insights/internal/analytics"
	"reliability-insights/internal/dataset"
	"reliability-insights/internal/logger"
	"reliability-insights/internal/models"
)

// Report показатели надежности по отфильтрованным событиям
type Report struct {
	Events int         `json:"events"`
	KPI    models.KPI  `json:"kpi"`
	OPE    *models.OPE `json:"ope,omitempty"`
}

// Latest возвращает самую свежую строку признаков каждого элемента
func (p *Pipeline) Latest(ctx context.Context) ([]models.FeatureRow, error) {
	rows, err := dataset.ReadFeatures(p.path(p.cfg.Data.Features), p.cfg.Pipeline.RollingWindows)
	if err != nil {
		return nil, err
	}
	return analytics.Latest(rows), ctx.Err()
}

// Forecast прогнозирует дату отказа каждого элемента по его последней строке признаков
func (p *Pipeline) Forecast(ctx context.Context, predictor analytics.RULPredictor) ([]analytics.FailureForecast, error) {
	rows, err := dataset.ReadFeatures(p.path(p.cfg.Data.Features), p.cfg.Pipeline.RollingWindows)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	forecasts, err := analytics.ForecastFailures(rows, predictor, p.now())
	if err != nil {
		return nil, err
	}
	p.log.Info("failures forecast", logger.Int("elements", len(forecasts)))
	return forecasts, nil
}

// Report считает MTTR, MTBF и OPE по размеченным событиям с учетом фильтра.
// Календарь читается только для фильтра по типу дня, OPE считается, если есть файл выпуска.
func (p *Pipeline) Report(ctx context.Context, filter analytics.Filter) (Report, error) {
	tagged, err := dataset.ReadTaggedEvents(p.path(p.cfg.Data.TaggedEvents), p.cfg.Pipeline.BreakdownThreshold)
	if err != nil {
		return Report{}, err
	}

	var calendar []models.CalendarDay
	if filter.DayType != "" {
		calendar, err = dataset.ReadCalendar(p.path(p.cfg.Data.Calendar))
		if err != nil {
			return Report{}, err
		}
	}
	if filter.BreakdownThreshold == 0 {
		filter.BreakdownThreshold = p.cfg.Pipeline.BreakdownThreshold
	}

	events := filter.Apply(tagged, calendar)
	report := Report{
		Events: len(events),
		KPI:    analytics.ComputeKPI(events, p.cfg.KPIOptions()),
	}

	production, err := dataset.ReadProduction(p.path(p.cfg.Data.Production))
	switch {
	case dataset.IsMissingArtifact(err):
		p.log.Debug("production records not found, OPE skipped", logger.String("path", p.path(p.cfg.Data.Production)))
	case err != nil:
		return Report{}, err
	default:
		ope := analytics.ComputeOPE(filter.ApplyProduction(production, calendar))
		report.OPE = &ope
	}

	return report, ctx.Err()
}

// RiskDataset пишет обучающую выборку классификатора риска отказа
func (p *Pipeline) RiskDataset(ctx context.Context, dropFirst bool) (analytics.RiskDataset, error) {
	tagged, err := dataset.ReadTaggedEvents(p.path(p.cfg.Data.TaggedEvents), p.cfg.Pipeline.BreakdownThreshold)
	if err != nil {
		return analytics.RiskDataset{}, err
	}
	if err := ctx.Err(); err != nil {
		return analytics.RiskDataset{}, err
	}

	ds := analytics.BuildRiskDataset(tagged, dropFirst)
	path := p.path(p.cfg.Data.RiskDataset)
	if err := dataset.WriteFile(path, func(w io.Writer) error {
		return dataset.EncodeRiskDataset(w, ds)
	}); err != nil {
		return analytics.RiskDataset{}, err
	}

	p.log.Info("risk dataset written",
		logger.Int("rows", len(ds.Rows)),
		logger.Int("columns", len(ds.Columns)),
		logger.String("path", path))
	return ds, nil
}
