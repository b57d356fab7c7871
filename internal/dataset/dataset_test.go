package dataset_test

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reliability-insights/internal/analytics"
	"reliability-insights/internal/dataset"
	"reliability-insights/internal/models"
)

const rawHeader = "ElementDesc,LineGroupDesc,LineDesc,StatusDesc,AlarmDesc,Duration,StartTime,EndTime,EffectiveDay,StationDesc,ShiftId\n"

func day(d int) time.Time {
	return time.Date(2025, time.January, d, 0, 0, 0, 0, time.UTC)
}

func TestDecodeEvents(t *testing.T) {
	input := "\ufeff" + rawHeader +
		"MOTOR,MAIN LINE,CHASSIS1,Falha/Parada,OVERLOAD,900.0,2025-01-01 08:00:00,2025-01-01 08:15:00,2025-01-01,ST10,1.0\n" +
		",MAIN LINE,CHASSIS1,Falha/Parada,OVERLOAD,30,2025-01-01 09:00:00,2025-01-01 09:00:30,2025-01-01,ST10,1\n" +
		"PUMP,SUBASSEMBLY,AXLE,Falha/Parada,LEAK,60,2025-01-02T10:00:00,2025-01-02T10:01:00,2025-01-02,ST20,2\n"

	load, err := dataset.DecodeEvents(strings.NewReader(input), "raw.csv")

	require.NoError(t, err)
	assert.Equal(t, 1, load.Skipped)
	require.Len(t, load.Events, 2)

	first := load.Events[0]
	assert.Equal(t, "MOTOR", first.ElementDesc)
	assert.Equal(t, int64(900), first.Duration)
	assert.Equal(t, 1, first.ShiftID)
	assert.Equal(t, time.Date(2025, time.January, 1, 8, 0, 0, 0, time.UTC), first.StartTime)
	assert.Equal(t, day(1), first.EffectiveDay)
	assert.Equal(t, "ST20", load.Events[1].StationDesc)
}

func TestDecodeEvents_MissingColumn(t *testing.T) {
	input := strings.Replace(rawHeader, ",AlarmDesc", "", 1)

	_, err := dataset.DecodeEvents(strings.NewReader(input), "raw.csv")

	var schemaErr *dataset.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "AlarmDesc", schemaErr.Column)
	assert.True(t, dataset.IsSchemaError(err))
	assert.False(t, dataset.IsMissingArtifact(err))
}

func TestDecodeEvents_BadTimestamp(t *testing.T) {
	input := rawHeader + "MOTOR,MAIN LINE,CHASSIS1,Falha/Parada,A,10,yesterday,,2025-01-01,ST10,1\n"

	_, err := dataset.DecodeEvents(strings.NewReader(input), "raw.csv")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
	assert.Contains(t, err.Error(), "StartTime")
}

func TestReadEvents_MissingArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.csv")

	_, err := dataset.ReadEvents(path)

	var missing *dataset.MissingArtifactError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, path, missing.Path)
	assert.Equal(t, dataset.GeneratorExtract, missing.Generator)
	assert.Contains(t, err.Error(), "reliability extract")
}

func TestReadTaggedAndFeatures_MissingArtifactNamesGenerator(t *testing.T) {
	dir := t.TempDir()

	_, err := dataset.ReadTaggedEvents(filepath.Join(dir, "tagged.csv"), 10*time.Minute)
	assert.Contains(t, err.Error(), dataset.GeneratorEpisodes)

	_, err = dataset.ReadFeatures(filepath.Join(dir, "features.csv"), nil)
	assert.Contains(t, err.Error(), dataset.GeneratorFeatures)
}

func taggedFixture() []models.TaggedEvent {
	start := time.Date(2025, time.January, 1, 8, 0, 0, 0, time.UTC)
	return []models.TaggedEvent{{
		Event: models.Event{
			ElementDesc: "MOTOR", LineGroupDesc: "MAIN LINE", LineDesc: "CHASSIS1",
			StatusDesc: "Falha/Parada", AlarmDesc: "OVERLOAD", Duration: 900,
			StartTime: start, EndTime: start.Add(15 * time.Minute), EffectiveDay: day(1),
			StationDesc: "ST10", ShiftID: 1,
		},
		IsBreakdown:      true,
		EpisodeID:        7,
		FirstAlarmDesc:   "OVERLOAD",
		FirstElementDesc: "MOTOR",
	}}
}

func TestEncodeTaggedEvents(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, dataset.EncodeTaggedEvents(&buf, taggedFixture()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.TrimSpace(rawHeader)+",EpisodeId,PrimeiroAlarmDesc,PrimeiroElementDesc", lines[0])
	assert.Equal(t, "MOTOR,MAIN LINE,CHASSIS1,Falha/Parada,OVERLOAD,900,2025-01-01 08:00:00,2025-01-01 08:15:00,2025-01-01,ST10,1,7,OVERLOAD,MOTOR", lines[1])

	decoded, err := dataset.DecodeTaggedEvents(&buf, "tagged.csv", 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, taggedFixture(), decoded)
}

func TestDecodeTaggedEvents_BreakdownFollowsThreshold(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, dataset.EncodeTaggedEvents(&buf, taggedFixture()))

	decoded, err := dataset.DecodeTaggedEvents(&buf, "tagged.csv", 20*time.Minute)

	require.NoError(t, err)
	assert.False(t, decoded[0].IsBreakdown)
}

func featureFixture() []models.FeatureRow {
	return []models.FeatureRow{{
		ElementDesc: "X",
		Day:         day(3),
		Windows: []models.WindowAggregate{
			{Days: 7, Stops: 2, Duration: 1020},
			{Days: 14, Stops: 2, Duration: 1020},
			{Days: 30, Stops: 2, Duration: 1020},
		},
		DaysSinceLastStop: 2,
		RUL:               2.5,
	}}
}

func TestEncodeFeatures(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, dataset.EncodeFeatures(&buf, featureFixture(), nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "ElementDesc,StartTime,paradas_ultimos_7d,duracao_total_ultimos_7d,"+
		"paradas_ultimos_14d,duracao_total_ultimos_14d,paradas_ultimos_30d,duracao_total_ultimos_30d,"+
		"tempo_desde_ultima_parada,RUL", lines[0])
	assert.Equal(t, "X,2025-01-03,2,1020,2,1020,2,1020,2,2.5", lines[1])

	decoded, err := dataset.DecodeFeatures(&buf, "features.csv", nil)
	require.NoError(t, err)
	assert.Equal(t, featureFixture(), decoded)
}

func TestEncodeFeatures_EmptyTableKeepsHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, dataset.EncodeFeatures(&buf, nil, []int{5}))

	assert.Equal(t, "ElementDesc,StartTime,paradas_ultimos_5d,duracao_total_ultimos_5d,tempo_desde_ultima_parada,RUL\n", buf.String())
}

func TestDecodeFeatures_UnpairedWindow(t *testing.T) {
	input := "ElementDesc,StartTime,paradas_ultimos_7d,tempo_desde_ultima_parada,RUL\n"

	_, err := dataset.DecodeFeatures(strings.NewReader(input), "features.csv", nil)

	var schemaErr *dataset.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "duracao_total_ultimos_7d", schemaErr.Column)
}

func TestDecodeFeatures_SchemaDrift(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		windows []int
		column  string
	}{
		{
			name:   "no window columns",
			header: "ElementDesc,StartTime,tempo_desde_ultima_parada,RUL",
			column: "paradas_ultimos_7d",
		},
		{
			name:   "duration without stops",
			header: "ElementDesc,StartTime,duracao_total_ultimos_14d,tempo_desde_ultima_parada,RUL",
			column: "paradas_ultimos_14d",
		},
		{
			name:    "configured window missing",
			header:  "ElementDesc,StartTime,paradas_ultimos_7d,duracao_total_ultimos_7d,tempo_desde_ultima_parada,RUL",
			windows: []int{7, 14},
			column:  "paradas_ultimos_14d",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := tt.header + "\nX,2025-01-03,2,1020,2,2.5\n"

			rows, err := dataset.DecodeFeatures(strings.NewReader(input), "features.csv", tt.windows)

			assert.Nil(t, rows)
			var schemaErr *dataset.SchemaError
			require.True(t, errors.As(err, &schemaErr))
			assert.Equal(t, tt.column, schemaErr.Column)
		})
	}
}

func TestDecodeFeatures_ConfiguredWindows(t *testing.T) {
	input := "ElementDesc,StartTime,paradas_ultimos_7d,duracao_total_ultimos_7d,paradas_ultimos_30d,duracao_total_ultimos_30d,tempo_desde_ultima_parada,RUL\n" +
		"X,2025-01-03,2,1020,5,3000,2,2.5\n"

	rows, err := dataset.DecodeFeatures(strings.NewReader(input), "features.csv", []int{30})

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []models.WindowAggregate{{Days: 30, Stops: 5, Duration: 3000}}, rows[0].Windows)
	assert.Equal(t, []float64{5, 3000, 2}, rows[0].Vector())
}

func TestDecodeCalendar(t *testing.T) {
	days, err := dataset.DecodeCalendar(strings.NewReader("Data,Tipo\n2025-01-01,Improdutivo\n2025-01-02,Produtivo\n"), "cal.csv")

	require.NoError(t, err)
	assert.Equal(t, []models.CalendarDay{
		{Date: day(1), Type: models.DayUnproductive},
		{Date: day(2), Type: models.DayProductive},
	}, days)

	_, err = dataset.DecodeCalendar(strings.NewReader("Data,Tipo\n2025-01-01,Feriado\n"), "cal.csv")
	assert.Error(t, err)
}

func TestDecodeProduction(t *testing.T) {
	input := "EffectiveDate;LineDesc;ShiftId;EffectiveProd;TargProd\n" +
		"2025-01-02;CHASSIS1;1;90;100\n" +
		"not a date;CHASSIS1;1;10;10\n"

	records, err := dataset.DecodeProduction(strings.NewReader(input), "ope.csv")

	require.NoError(t, err)
	assert.Equal(t, []models.ProductionRecord{
		{EffectiveDate: day(2), LineDesc: "CHASSIS1", ShiftID: 1, EffectiveProd: 90, TargProd: 100},
	}, records)
}

func TestEncodeRiskDataset(t *testing.T) {
	ds := analytics.RiskDataset{
		Columns: []string{"ShiftId", "ElementDesc_MOTOR"},
		Rows:    [][]float64{{1, 1}, {2, 0}},
		Labels:  []int{1, 0},
	}
	var buf bytes.Buffer

	require.NoError(t, dataset.EncodeRiskDataset(&buf, ds))

	assert.Equal(t, "ShiftId,ElementDesc_MOTOR,is_breakdown\n1,1,1\n2,0,0\n", buf.String())
}

func writeString(s string) func(io.Writer) error {
	return func(w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	}
}

func TestStage_CommitMovesFilesIntoPlace(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.csv")
	b := filepath.Join(dir, "nested", "b.csv")
	stage := dataset.NewStage()

	require.NoError(t, stage.Write(a, writeString("a")))
	require.NoError(t, stage.Write(b, writeString("b")))
	_, err := os.Stat(a)
	require.True(t, errors.Is(err, os.ErrNotExist), "artifact must not appear before commit")

	paths, err := stage.Commit()

	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, paths)
	content, err := os.ReadFile(b)
	require.NoError(t, err)
	assert.Equal(t, "b", string(content))
}

func TestStage_AbortLeavesPreviousArtifact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "features.csv")
	require.NoError(t, dataset.WriteFile(path, writeString("previous")))

	stage := dataset.NewStage()
	require.NoError(t, stage.Write(path, writeString("partial")))
	err := stage.Write(filepath.Join(dir, "other.csv"), func(io.Writer) error { return errors.New("encode failed") })
	require.Error(t, err)
	require.NoError(t, stage.Abort())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(content))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStage_CommitFailureRestoresPreviousArtifacts(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "features", "features.csv")
	second := filepath.Join(dir, "tagged", "tagged.csv")
	require.NoError(t, dataset.WriteFile(first, writeString("previous")))

	stage := dataset.NewStage()
	require.NoError(t, stage.Write(first, writeString("new")))
	require.NoError(t, stage.Write(second, writeString("new")))
	// перенос второго артефакта не удастся: его каталог вместе с временным файлом исчез
	require.NoError(t, os.RemoveAll(filepath.Dir(second)))

	_, err := stage.Commit()

	require.Error(t, err)
	content, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(content))
	entries, err := os.ReadDir(filepath.Dir(first))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp and backup files must be cleaned up")
}

func TestStage_CommitReplacesAndDropsBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "features.csv")
	require.NoError(t, dataset.WriteFile(path, writeString("previous")))

	require.NoError(t, dataset.WriteFile(path, writeString("current")))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "current", string(content))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDecodeLinearModel(t *testing.T) {
	input := "intercept: 20\n" +
		"coefficients:\n" +
		"  paradas_ultimos_7d: -1.5\n" +
		"  duracao_total_ultimos_30d: 0.01\n" +
		"  tempo_desde_ultima_parada: 0.2\n"

	model, err := dataset.DecodeLinearModel(strings.NewReader(input), "model.yaml", nil)

	require.NoError(t, err)
	assert.Equal(t, 20.0, model.Intercept)
	assert.Equal(t, []float64{-1.5, 0, 0, 0, 0, 0.01, 0.2}, model.Coefficients)
}

func TestDecodeLinearModel_UnknownFeature(t *testing.T) {
	input := "intercept: 1\ncoefficients:\n  paradas_ultimos_30d: 1\n"

	_, err := dataset.DecodeLinearModel(strings.NewReader(input), "model.yaml", []int{7})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "paradas_ultimos_30d")
}

func TestReadLinearModel_Missing(t *testing.T) {
	_, err := dataset.ReadLinearModel(filepath.Join(t.TempDir(), "model.yaml"), nil)

	assert.True(t, dataset.IsMissingArtifact(err))
}
