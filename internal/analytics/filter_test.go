package analytics_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"reliability-insights/internal/analytics"
	"reliability-insights/internal/models"
)

func filterFixture() []models.TaggedEvent {
	mk := func(day, shift int, group, line string, duration int64) models.TaggedEvent {
		e := event("S", "X", "A", at(day, 9, 0, 0), duration)
		e.ShiftID = shift
		e.LineGroupDesc = group
		e.LineDesc = line
		return models.TaggedEvent{Event: e}
	}
	return []models.TaggedEvent{
		mk(1, 1, "MAIN LINE", "CHASSIS1", 60),
		mk(2, 2, "MAIN LINE", "CHASSIS2", 900),
		mk(3, 1, "SUBASSEMBLY", "AXLE", 30),
		mk(4, 3, "MAIN LINE", "CHASSIS1", 1200),
	}
}

func TestFilter_Apply(t *testing.T) {
	calendar := []models.CalendarDay{
		{Date: at(1, 0, 0, 0), Type: models.DayUnproductive},
		{Date: at(2, 0, 0, 0), Type: models.DayProductive},
		{Date: at(3, 0, 0, 0), Type: models.DayProductive},
		{Date: at(4, 0, 0, 0), Type: models.DayProductive},
	}

	tests := []struct {
		name   string
		filter analytics.Filter
		days   []int
	}{
		{name: "empty filter keeps everything", days: []int{1, 2, 3, 4}},
		{name: "date range inclusive", filter: analytics.Filter{From: at(2, 15, 0, 0), To: at(3, 0, 0, 0)}, days: []int{2, 3}},
		{name: "line group", filter: analytics.Filter{LineGroup: "MAIN LINE"}, days: []int{1, 2, 4}},
		{name: "line", filter: analytics.Filter{Line: "CHASSIS1"}, days: []int{1, 4}},
		{name: "shift", filter: analytics.Filter{Shift: 1}, days: []int{1, 3}},
		{name: "productive days", filter: analytics.Filter{DayType: models.DayProductive}, days: []int{2, 3, 4}},
		{name: "breakdowns", filter: analytics.Filter{Stop: analytics.StopBreakdown, BreakdownThreshold: 10 * time.Minute}, days: []int{2, 4}},
		{name: "micro stops", filter: analytics.Filter{Stop: analytics.StopMicro, BreakdownThreshold: 10 * time.Minute}, days: []int{1, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.filter.Apply(filterFixture(), calendar)

			days := make([]int, 0, len(got))
			for _, e := range got {
				days = append(days, e.StartTime.Day())
			}
			assert.Equal(t, tt.days, days)
		})
	}
}

func TestFilter_ApplyProduction(t *testing.T) {
	records := []models.ProductionRecord{
		{EffectiveDate: at(1, 0, 0, 0), LineDesc: "CHASSIS1", ShiftID: 1, EffectiveProd: 10, TargProd: 12},
		{EffectiveDate: at(2, 0, 0, 0), LineDesc: "CHASSIS1", ShiftID: 2, EffectiveProd: 11, TargProd: 12},
		{EffectiveDate: at(2, 0, 0, 0), LineDesc: "CHASSIS2", ShiftID: 1, EffectiveProd: 9, TargProd: 12},
	}

	got := analytics.Filter{Line: "CHASSIS1", From: at(2, 0, 0, 0)}.ApplyProduction(records, nil)

	assert.Equal(t, records[1:2], got)
}
