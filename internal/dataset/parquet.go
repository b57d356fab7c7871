package dataset

import (
	"fmt"
	"io"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/compress"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"

	"reliability-insights/internal/models"
)

// featureSchema схема Arrow таблицы признаков с теми же именами колонок, что и в CSV
func featureSchema(windows []int) *arrow.Schema {
	fields := []arrow.Field{
		{Name: ColElement, Type: arrow.BinaryTypes.String},
		{Name: ColDay, Type: arrow.FixedWidthTypes.Date32},
	}
	for _, w := range windows {
		fields = append(fields,
			arrow.Field{Name: StopsColumn(w), Type: arrow.PrimitiveTypes.Float64},
			arrow.Field{Name: DurationColumn(w), Type: arrow.PrimitiveTypes.Float64},
		)
	}
	fields = append(fields,
		arrow.Field{Name: ColDaysSinceLastStop, Type: arrow.PrimitiveTypes.Float64},
		arrow.Field{Name: ColRUL, Type: arrow.PrimitiveTypes.Float64},
	)
	return arrow.NewSchema(fields, nil)
}

// EncodeFeaturesParquet пишет таблицу признаков в Parquet со сжатием snappy
func EncodeFeaturesParquet(w io.Writer, rows []models.FeatureRow, windows []int) error {
	if ws := windowsOf(rows); ws != nil {
		windows = ws
	}
	schema := featureSchema(windows)

	b := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	defer b.Release()

	element := b.Field(0).(*array.StringBuilder)
	day := b.Field(1).(*array.Date32Builder)
	for _, r := range rows {
		element.Append(r.ElementDesc)
		day.Append(arrow.Date32FromTime(r.Day))
		for i, agg := range r.Windows {
			b.Field(2 + 2*i).(*array.Float64Builder).Append(agg.Stops)
			b.Field(3 + 2*i).(*array.Float64Builder).Append(agg.Duration)
		}
		n := len(schema.Fields())
		b.Field(n - 2).(*array.Float64Builder).Append(r.DaysSinceLastStop)
		b.Field(n - 1).(*array.Float64Builder).Append(r.RUL)
	}

	record := b.NewRecord()
	defer record.Release()

	writer, err := pqarrow.NewFileWriter(schema, w,
		parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy)),
		pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema()),
	)
	if err != nil {
		return fmt.Errorf("create parquet writer: %w", err)
	}
	if err := writer.Write(record); err != nil {
		writer.Close()
		return fmt.Errorf("write parquet record: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}
