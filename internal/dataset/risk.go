package dataset

import (
	"encoding/csv"
	"io"
	"strconv"

	"reliability-insights/internal/analytics"
)

// ColBreakdownLabel целевая колонка выборки классификатора
const ColBreakdownLabel = "is_breakdown"

// EncodeRiskDataset пишет one-hot выборку классификатора с меткой в последней колонке
func EncodeRiskDataset(w io.Writer, ds analytics.RiskDataset) error {
	cw := csv.NewWriter(w)
	header := append(append([]string(nil), ds.Columns...), ColBreakdownLabel)
	if err := cw.Write(header); err != nil {
		return err
	}
	rec := make([]string, len(header))
	for i, row := range ds.Rows {
		for j, v := range row {
			rec[j] = formatFloat(v)
		}
		rec[len(rec)-1] = strconv.Itoa(ds.Labels[i])
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
