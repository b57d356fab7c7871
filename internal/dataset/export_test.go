package dataset_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet/file"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"reliability-insights/internal/analytics"
	"reliability-insights/internal/dataset"
	"reliability-insights/internal/models"
)

func TestEncodeFeaturesParquet(t *testing.T) {
	rows := append(featureFixture(), models.FeatureRow{
		ElementDesc: "Y",
		Day:         day(4),
		Windows: []models.WindowAggregate{
			{Days: 7, Stops: 1, Duration: 60},
			{Days: 14, Stops: 1, Duration: 60},
			{Days: 30, Stops: 1, Duration: 60},
		},
		RUL: 0.75,
	})
	var buf bytes.Buffer

	require.NoError(t, dataset.EncodeFeaturesParquet(&buf, rows, nil))

	reader, err := file.NewParquetReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer reader.Close()
	arrowReader, err := pqarrow.NewFileReader(reader, pqarrow.ArrowReadProperties{}, memory.NewGoAllocator())
	require.NoError(t, err)
	tbl, err := arrowReader.ReadTable(context.Background())
	require.NoError(t, err)
	defer tbl.Release()

	assert.Equal(t, int64(2), tbl.NumRows())
	assert.Equal(t, dataset.FeatureColumns([]int{7, 14, 30}), fieldNames(tbl.Schema().Fields()))

	rul := tbl.Column(int(tbl.NumCols()) - 1).Data().Chunk(0).(*array.Float64)
	assert.Equal(t, []float64{2.5, 0.75}, rul.Float64Values())
	elements := tbl.Column(0).Data().Chunk(0).(*array.String)
	assert.Equal(t, "Y", elements.Value(1))
}

func fieldNames(fields []arrow.Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

func TestEncodeWorkbook(t *testing.T) {
	start := time.Date(2025, time.January, 1, 8, 0, 0, 0, time.UTC)
	wb := dataset.Workbook{
		Episodes: []analytics.Episode{{
			ID:                1,
			Equipment:         models.EquipmentKey{Line: "CHASSIS1", Station: "ST10", Element: "MOTOR"},
			FirstAlarmDesc:    "OVERLOAD",
			Start:             start,
			End:               start.Add(15 * time.Minute),
			Events:            2,
			TotalDuration:     900,
			ContainsBreakdown: true,
		}},
		Features: featureFixture(),
		KPI:      models.KPI{Failures: 2, MTTRMinutes: 8.5},
	}
	var buf bytes.Buffer

	require.NoError(t, dataset.EncodeWorkbook(&buf, wb))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{dataset.SheetEpisodes, dataset.SheetFeatures, dataset.SheetKPI}, f.GetSheetList())

	episodes, err := f.GetRows(dataset.SheetEpisodes)
	require.NoError(t, err)
	require.Len(t, episodes, 2)
	assert.Equal(t, "EpisodeId", episodes[0][0])
	assert.Equal(t, []string{"1", "CHASSIS1", "ST10", "MOTOR", "OVERLOAD", "2025-01-01 08:00:00", "2025-01-01 08:15:00", "2", "900"}, episodes[1][:9])

	features, err := f.GetRows(dataset.SheetFeatures)
	require.NoError(t, err)
	require.Len(t, features, 2)
	assert.Equal(t, dataset.FeatureColumns([]int{7, 14, 30}), features[0])
	assert.Equal(t, "2025-01-03", features[1][1])

	mttr, err := f.GetCellValue(dataset.SheetKPI, "B4")
	require.NoError(t, err)
	assert.Equal(t, "8.5", mttr)
}
