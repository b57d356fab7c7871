package analytics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"reliability-insights/internal/analytics"
	"reliability-insights/internal/models"
)

func kpiEvent(day, shift int, group, status string, duration int64) models.TaggedEvent {
	e := event("S", "X", "A", at(day, 10, 0, 0), duration)
	e.ShiftID = shift
	e.LineGroupDesc = group
	e.StatusDesc = status
	return models.TaggedEvent{Event: e}
}

func TestComputeKPI(t *testing.T) {
	// 5 января 2025 воскресенье
	events := []models.TaggedEvent{
		kpiEvent(6, 1, "MAIN LINE", "Falha/Parada", 600),
		kpiEvent(6, 1, "SUBASSEMBLY", "Falha/Parada", 60),
		kpiEvent(6, 3, "MAIN LINE", "Setup", 900),
		kpiEvent(5, 2, "MAIN LINE", "Falha/Parada", 360),
	}

	kpi := analytics.ComputeKPI(events, analytics.DefaultKPIOptions())

	assert.Equal(t, 2, kpi.Failures)
	assert.InDelta(t, 17.0, kpi.DowntimeMinutes, 1e-9)
	assert.InDelta(t, 498.0+330+240, kpi.UptimeMinutes, 1e-9)
	assert.InDelta(t, 8.5, kpi.MTTRMinutes, 1e-9)
	assert.InDelta(t, 534.0, kpi.MTBFMinutes, 1e-9)
}

func TestComputeKPI_NoFailures(t *testing.T) {
	kpi := analytics.ComputeKPI([]models.TaggedEvent{
		kpiEvent(6, 2, "MAIN LINE", "Setup", 120),
	}, analytics.DefaultKPIOptions())

	assert.Equal(t, 0, kpi.Failures)
	assert.Zero(t, kpi.MTTRMinutes)
	assert.InDelta(t, 498.0, kpi.MTBFMinutes, 1e-9)
}

func TestComputeKPI_Empty(t *testing.T) {
	assert.Equal(t, models.KPI{}, analytics.ComputeKPI(nil, analytics.DefaultKPIOptions()))
}

func TestComputeOPE(t *testing.T) {
	tests := []struct {
		name    string
		records []models.ProductionRecord
		want    float64
	}{
		{name: "no records", want: 0},
		{
			name: "partial output",
			records: []models.ProductionRecord{
				{EffectiveProd: 90, TargProd: 100},
				{EffectiveProd: 60, TargProd: 100},
			},
			want: 75,
		},
		{
			name:    "zero target",
			records: []models.ProductionRecord{{EffectiveProd: 10}},
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, analytics.ComputeOPE(tt.records).Percent, 1e-9)
		})
	}
}
