package analytics_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reliability-insights/internal/analytics"
	"reliability-insights/internal/models"
)

func tagged(element string, start time.Time, duration int64) models.TaggedEvent {
	return models.TaggedEvent{
		Event:       event("S1", element, "A", start, duration),
		IsBreakdown: duration >= 600,
	}
}

func buildRUL(events ...models.TaggedEvent) analytics.RULResult {
	return analytics.NewRULBuilder(analytics.DefaultRULOptions()).Build(events)
}

func TestBuild_EndToEndScenario(t *testing.T) {
	res := buildRUL(
		tagged("X", at(1, 8, 0, 0), 900),
		tagged("X", at(3, 9, 0, 0), 120),
		tagged("X", at(5, 10, 0, 0), 700),
	)

	require.Len(t, res.Rows, 2)
	assert.Equal(t, 1, res.Elements)
	assert.Equal(t, 1, res.Unlabelled)

	first, second := res.Rows[0], res.Rows[1]
	assert.Equal(t, at(1, 0, 0, 0), first.Day)
	assert.InDelta(t, 4.0833333, first.RUL, 1e-6)
	assert.Equal(t, 0.0, first.DaysSinceLastStop)
	require.Len(t, first.Windows, 3)
	assert.Equal(t, models.WindowAggregate{Days: 7, Stops: 1, Duration: 900}, first.Windows[0])

	assert.Equal(t, at(3, 0, 0, 0), second.Day)
	assert.InDelta(t, 2.0416667, second.RUL, 1e-6)
	assert.Equal(t, 2.0, second.DaysSinceLastStop)
	for _, w := range second.Windows {
		assert.Equal(t, 2.0, w.Stops)
		assert.Equal(t, 1020.0, w.Duration)
	}
}

func TestBuild_NoBreakdownDropsElement(t *testing.T) {
	res := buildRUL(
		tagged("Y", at(1, 8, 0, 0), 60),
		tagged("Y", at(2, 8, 0, 0), 120),
	)

	assert.Empty(t, res.Rows)
	assert.Equal(t, 0, res.Elements)
	assert.Equal(t, 2, res.Unlabelled)
}

func TestBuild_EmptyInput(t *testing.T) {
	res := buildRUL()

	assert.NotNil(t, res.Rows)
	assert.Empty(t, res.Rows)
}

func TestBuild_RULDecreasesTowardBreakdown(t *testing.T) {
	breakdown := time.Date(2025, time.February, 10, 12, 0, 0, 0, time.UTC)
	res := buildRUL(
		tagged("X", breakdown.AddDate(0, 0, -7).Add(-4*time.Hour), 60),
		tagged("X", breakdown.AddDate(0, 0, -3).Add(-4*time.Hour), 60),
		tagged("X", breakdown.AddDate(0, 0, -1).Add(-4*time.Hour), 60),
		tagged("X", breakdown, 1200),
	)

	require.Len(t, res.Rows, 3)
	for i, row := range res.Rows {
		assert.Greater(t, row.RUL, 0.0)
		if i > 0 {
			assert.Less(t, row.RUL, res.Rows[i-1].RUL)
		}
	}
	assert.InDelta(t, 7+4.0/24, res.Rows[0].RUL, 1e-9)
	assert.InDelta(t, 1+4.0/24, res.Rows[2].RUL, 1e-9)
}

func TestBuild_BreakdownLabelledWithFollowingBreakdown(t *testing.T) {
	res := buildRUL(
		tagged("X", at(1, 6, 0, 0), 900),
		tagged("X", at(3, 6, 0, 0), 900),
		tagged("X", at(6, 6, 0, 0), 900),
	)

	require.Len(t, res.Rows, 2)
	assert.InDelta(t, 2.0, res.Rows[0].RUL, 1e-9)
	assert.InDelta(t, 3.0, res.Rows[1].RUL, 1e-9)
}

func TestBuild_DailyLabelIsNearestFailure(t *testing.T) {
	res := buildRUL(
		tagged("X", at(1, 8, 0, 0), 60),
		tagged("X", at(1, 20, 0, 0), 60),
		tagged("X", at(2, 8, 0, 0), 900),
	)

	require.Len(t, res.Rows, 1)
	assert.InDelta(t, 0.5, res.Rows[0].RUL, 1e-9)
	assert.Equal(t, 2.0, res.Rows[0].Windows[0].Stops)
	assert.Equal(t, 120.0, res.Rows[0].Windows[0].Duration)
}

func TestBuild_SameInstantBreakdownHasNoRow(t *testing.T) {
	res := buildRUL(
		tagged("X", at(1, 8, 0, 0), 60),
		tagged("X", at(1, 8, 0, 0), 900),
	)

	assert.Empty(t, res.Rows)
	assert.Equal(t, 1, res.NonPositive)
}

func sparseSeries() []models.TaggedEvent {
	day := func(d int) time.Time { return at(d, 9, 0, 0) }
	return []models.TaggedEvent{
		tagged("X", day(1), 60),
		tagged("X", day(1).Add(time.Hour), 60),
		tagged("X", day(2), 60),
		tagged("X", day(3), 60),
		tagged("X", day(10), 60),
		tagged("X", day(20), 60),
		tagged("X", day(31), 900),
	}
}

func TestBuild_RollingWindowsCountObservedRows(t *testing.T) {
	res := buildRUL(sparseSeries()...)

	require.Len(t, res.Rows, 5)
	stops7 := make([]float64, 0, len(res.Rows))
	for _, r := range res.Rows {
		stops7 = append(stops7, r.Windows[0].Stops)
	}
	// 5 строк с числом остановов 2,1,1,1,1: окно из 7 строк покрывает всю историю
	assert.Equal(t, []float64{2, 3, 4, 5, 6}, stops7)
	assert.Equal(t, 10.0, res.Rows[4].DaysSinceLastStop)
	assert.Equal(t, 7.0, res.Rows[3].DaysSinceLastStop)
}

func TestBuild_RollingWindowDropsOldestRow(t *testing.T) {
	events := []models.TaggedEvent{tagged("X", at(1, 9, 0, 0), 60)}
	for d := 1; d <= 9; d++ {
		events = append(events, tagged("X", at(d, 10, 0, 0), 60))
	}
	events = append(events, tagged("X", at(12, 9, 0, 0), 900))

	res := buildRUL(events...)

	require.Len(t, res.Rows, 9)
	stops7 := make([]float64, 0, len(res.Rows))
	for _, r := range res.Rows {
		stops7 = append(stops7, r.Windows[0].Stops)
	}
	// первый день с двумя остановами выпадает из окна на восьмой строке
	assert.Equal(t, []float64{2, 3, 4, 5, 6, 7, 8, 7, 7}, stops7)
	assert.Equal(t, 480.0, res.Rows[6].Windows[0].Duration)
	assert.Equal(t, 420.0, res.Rows[7].Windows[0].Duration)
	assert.Equal(t, 10.0, res.Rows[8].Windows[1].Stops)
}

func TestBuild_CalendarWindows(t *testing.T) {
	opts := analytics.DefaultRULOptions()
	opts.Mode = analytics.WindowCalendar
	res := analytics.NewRULBuilder(opts).Build(sparseSeries())

	require.Len(t, res.Rows, 5)
	last := res.Rows[4]
	assert.Equal(t, 1.0, last.Windows[0].Stops)
	assert.Equal(t, 2.0, last.Windows[1].Stops)
	assert.Equal(t, 6.0, last.Windows[2].Stops)

	day10 := res.Rows[3]
	assert.Equal(t, 1.0, day10.Windows[0].Stops)
	assert.Equal(t, 5.0, day10.Windows[1].Stops)
}

func TestBuild_CustomWindows(t *testing.T) {
	res := analytics.NewRULBuilder(analytics.RULOptions{Windows: []int{2}}).Build(sparseSeries())

	require.Len(t, res.Rows, 5)
	for _, r := range res.Rows {
		require.Len(t, r.Windows, 1)
		assert.Equal(t, 2, r.Windows[0].Days)
	}
	assert.Equal(t, 3.0, res.Rows[1].Windows[0].Stops)
	assert.Equal(t, 2.0, res.Rows[4].Windows[0].Stops)
}

func TestBuild_ElementsAreIndependent(t *testing.T) {
	res := buildRUL(
		tagged("B", at(1, 8, 0, 0), 60),
		tagged("A", at(1, 9, 0, 0), 60),
		tagged("B", at(2, 8, 0, 0), 900),
		tagged("A", at(4, 9, 0, 0), 900),
	)

	require.Len(t, res.Rows, 2)
	assert.Equal(t, 2, res.Elements)
	assert.Equal(t, "A", res.Rows[0].ElementDesc)
	assert.InDelta(t, 3.0, res.Rows[0].RUL, 1e-9)
	assert.Equal(t, "B", res.Rows[1].ElementDesc)
	assert.InDelta(t, 1.0, res.Rows[1].RUL, 1e-9)
}

func TestBuild_Idempotent(t *testing.T) {
	events := sparseSeries()
	reversed := make([]models.TaggedEvent, len(events))
	for i, e := range events {
		reversed[len(events)-1-i] = e
	}

	assert.Equal(t, buildRUL(events...), buildRUL(events...))
	assert.Equal(t, buildRUL(events...), buildRUL(reversed...))
}

func TestLatest(t *testing.T) {
	rows := []models.FeatureRow{
		{ElementDesc: "B", Day: at(3, 0, 0, 0), RUL: 1},
		{ElementDesc: "A", Day: at(5, 0, 0, 0), RUL: 2},
		{ElementDesc: "B", Day: at(7, 0, 0, 0), RUL: 3},
		{ElementDesc: "A", Day: at(1, 0, 0, 0), RUL: 4},
	}

	latest := analytics.Latest(rows)

	require.Len(t, latest, 2)
	assert.Equal(t, "A", latest[0].ElementDesc)
	assert.Equal(t, 2.0, latest[0].RUL)
	assert.Equal(t, "B", latest[1].ElementDesc)
	assert.Equal(t, 3.0, latest[1].RUL)
}
