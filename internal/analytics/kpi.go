package analytics

import (
	"time"

	"reliability-insights/internal/models"
)

// KPIOptions параметры расчета показателей надежности
type KPIOptions struct {
	// FailureStatus статус записей об отказе
	FailureStatus string
	// MainLineGroup группа линий, отказы которой считаются для MTTR/MTBF
	MainLineGroup string
	// ShiftMinutes рабочие минуты смены по ее номеру
	ShiftMinutes map[int]float64
	// SundayMinutes рабочие минуты любой смены в воскресенье
	SundayMinutes float64
}

// DefaultKPIOptions возвращает параметры по умолчанию
func DefaultKPIOptions() KPIOptions {
	return KPIOptions{
		FailureStatus: "Falha/Parada",
		MainLineGroup: "MAIN LINE",
		ShiftMinutes: map[int]float64{
			1: 8.3 * 60,
			2: 8.3 * 60,
			3: 5.5 * 60,
		},
		SundayMinutes: 4 * 60,
	}
}

type shiftDay struct {
	day   time.Time
	shift int
}

// ComputeKPI считает MTTR и MTBF в минутах
func ComputeKPI(events []models.TaggedEvent, opts KPIOptions) models.KPI {
	if len(events) == 0 {
		return models.KPI{}
	}

	var kpi models.KPI
	var downtimeSeconds int64
	seen := make(map[shiftDay]struct{})
	for _, e := range events {
		if e.StatusDesc == opts.FailureStatus {
			downtimeSeconds += e.Duration
			if e.LineGroupDesc == opts.MainLineGroup {
				kpi.Failures++
			}
		}

		k := shiftDay{day: truncateDay(e.EffectiveDay), shift: e.ShiftID}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}

		if k.day.Weekday() == time.Sunday {
			kpi.UptimeMinutes += opts.SundayMinutes
		} else {
			kpi.UptimeMinutes += opts.ShiftMinutes[k.shift]
		}
	}

	kpi.DowntimeMinutes = float64(downtimeSeconds) / 60
	if kpi.Failures > 0 {
		kpi.MTTRMinutes = kpi.DowntimeMinutes / float64(kpi.Failures)
		kpi.MTBFMinutes = kpi.UptimeMinutes / float64(kpi.Failures)
	} else {
		kpi.MTBFMinutes = kpi.UptimeMinutes
	}
	return kpi
}

// ComputeOPE считает эффективность производства в процентах
func ComputeOPE(records []models.ProductionRecord) models.OPE {
	var ope models.OPE
	for _, r := range records {
		ope.Produced += r.EffectiveProd
		ope.Target += r.TargProd
	}
	if ope.Target > 0 {
		ope.Percent = ope.Produced / ope.Target * 100
	}
	return ope
}
