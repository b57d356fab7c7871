package analytics

import (
	"time"

	"reliability-insights/internal/models"
)

// StopType фильтр по длительности останова
type StopType string

const (
	StopAll       StopType = ""
	StopBreakdown StopType = "breakdown"
	StopMicro     StopType = "micro"
)

// Filter отбор событий и записей выпуска. Пустые поля не ограничивают выборку.
type Filter struct {
	From      time.Time
	To        time.Time
	LineGroup string
	Line      string
	Shift     int
	DayType   models.DayType
	Stop      StopType

	BreakdownThreshold time.Duration
}

// Apply отбирает события по фильтру; тип дня берется из производственного календаря
func (f Filter) Apply(events []models.TaggedEvent, calendar []models.CalendarDay) []models.TaggedEvent {
	days := f.dayTypeSet(calendar)
	out := make([]models.TaggedEvent, 0, len(events))
	for _, e := range events {
		if !f.inRange(e.EffectiveDay) || !f.dayAllowed(days, e.EffectiveDay) {
			continue
		}
		if f.LineGroup != "" && e.LineGroupDesc != f.LineGroup {
			continue
		}
		if f.Line != "" && e.LineDesc != f.Line {
			continue
		}
		if f.Shift != 0 && e.ShiftID != f.Shift {
			continue
		}

		long := time.Duration(e.Duration)*time.Second >= f.BreakdownThreshold
		if (f.Stop == StopBreakdown && !long) || (f.Stop == StopMicro && long) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// ApplyProduction отбирает записи выпуска по датам, линии, смене и типу дня
func (f Filter) ApplyProduction(records []models.ProductionRecord, calendar []models.CalendarDay) []models.ProductionRecord {
	days := f.dayTypeSet(calendar)
	out := make([]models.ProductionRecord, 0, len(records))
	for _, r := range records {
		if !f.inRange(r.EffectiveDate) || !f.dayAllowed(days, r.EffectiveDate) {
			continue
		}
		if f.Line != "" && r.LineDesc != f.Line {
			continue
		}
		if f.Shift != 0 && r.ShiftID != f.Shift {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (f Filter) inRange(t time.Time) bool {
	day := truncateDay(t)
	if !f.From.IsZero() && day.Before(truncateDay(f.From)) {
		return false
	}
	if !f.To.IsZero() && day.After(truncateDay(f.To)) {
		return false
	}
	return true
}

func (f Filter) dayTypeSet(calendar []models.CalendarDay) map[string]struct{} {
	if f.DayType == "" {
		return nil
	}
	set := make(map[string]struct{})
	for _, d := range calendar {
		if d.Type == f.DayType {
			set[d.Date.Format(time.DateOnly)] = struct{}{}
		}
	}
	return set
}

func (f Filter) dayAllowed(set map[string]struct{}, t time.Time) bool {
	if f.DayType == "" {
		return true
	}
	_, ok := set[t.Format(time.DateOnly)]
	return ok
}
