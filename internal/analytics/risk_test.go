package analytics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reliability-insights/internal/analytics"
	"reliability-insights/internal/models"
)

func riskFixture() []models.TaggedEvent {
	a := event("ST10", "MOTOR", "A", at(1, 8, 0, 0), 900)
	b := event("ST20", "", "A", at(1, 9, 0, 0), 30)
	b.ShiftID = 2
	return []models.TaggedEvent{
		{Event: a, IsBreakdown: true},
		{Event: b},
	}
}

func TestBuildRiskDataset(t *testing.T) {
	ds := analytics.BuildRiskDataset(riskFixture(), false)

	assert.Equal(t, []string{
		"ShiftId",
		"LineGroupDesc_MAIN LINE",
		"LineDesc_CHASSIS1",
		"StationDesc_ST10",
		"StationDesc_ST20",
		"ElementDesc_MOTOR",
		"ElementDesc_N/A",
	}, ds.Columns)
	assert.Equal(t, []int{1, 0}, ds.Labels)
	require.Len(t, ds.Rows, 2)
	assert.Equal(t, []float64{1, 1, 1, 1, 0, 1, 0}, ds.Rows[0])
	assert.Equal(t, []float64{2, 1, 1, 0, 1, 0, 1}, ds.Rows[1])
}

func TestBuildRiskDataset_DropFirst(t *testing.T) {
	ds := analytics.BuildRiskDataset(riskFixture(), true)

	assert.Equal(t, []string{"ShiftId", "StationDesc_ST20", "ElementDesc_N/A"}, ds.Columns)
	assert.Equal(t, []float64{1, 0, 0}, ds.Rows[0])
	assert.Equal(t, []float64{2, 1, 1}, ds.Rows[1])
}

func TestEncodeRisk_UnknownCategoryIsZero(t *testing.T) {
	columns := []string{"ShiftId", "StationDesc_ST10", "ElementDesc_MOTOR"}

	rows := analytics.EncodeRisk([]analytics.RiskInput{
		{StationDesc: "ST99", ElementDesc: "MOTOR", ShiftID: 3},
	}, columns)

	assert.Equal(t, [][]float64{{3, 0, 1}}, rows)
}
