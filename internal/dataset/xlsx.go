package dataset

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"reliability-insights/internal/analytics"
	"reliability-insights/internal/models"
)

// Листы книги выгрузки
const (
	SheetEpisodes = "Episodes"
	SheetFeatures = "RUL"
	SheetKPI      = "KPI"
)

var episodeHeader = []string{
	ColEpisodeID, "LineDesc", "StationDesc", "ElementDesc", ColFirstAlarm,
	"Start", "End", "Events", "TotalDuration", ColBreakdownLabel,
}

// Workbook содержимое книги выгрузки
type Workbook struct {
	Episodes []analytics.Episode
	Features []models.FeatureRow
	Windows  []int
	KPI      models.KPI
}

// EncodeWorkbook пишет книгу Excel с листами эпизодов, признаков и показателей
func EncodeWorkbook(w io.Writer, wb Workbook) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetEpisodes); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeRow(f, SheetEpisodes, 1, toCells(episodeHeader)); err != nil {
		return err
	}
	for i, ep := range wb.Episodes {
		row := []interface{}{
			ep.ID, ep.Equipment.Line, ep.Equipment.Station, ep.Equipment.Element, ep.FirstAlarmDesc,
			ep.Start.Format(time.DateTime), ep.End.Format(time.DateTime), ep.Events, ep.TotalDuration, ep.ContainsBreakdown,
		}
		if err := writeRow(f, SheetEpisodes, i+2, row); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(SheetFeatures); err != nil {
		return fmt.Errorf("create sheet %s: %w", SheetFeatures, err)
	}
	windows := wb.Windows
	if ws := windowsOf(wb.Features); ws != nil {
		windows = ws
	}
	if err := writeRow(f, SheetFeatures, 1, toCells(FeatureColumns(windows))); err != nil {
		return err
	}
	for i, r := range wb.Features {
		row := []interface{}{r.ElementDesc, r.Day.Format(time.DateOnly)}
		for _, agg := range r.Windows {
			row = append(row, agg.Stops, agg.Duration)
		}
		row = append(row, r.DaysSinceLastStop, r.RUL)
		if err := writeRow(f, SheetFeatures, i+2, row); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(SheetKPI); err != nil {
		return fmt.Errorf("create sheet %s: %w", SheetKPI, err)
	}
	kpiRows := [][]interface{}{
		{"Failures", wb.KPI.Failures},
		{"DowntimeMinutes", wb.KPI.DowntimeMinutes},
		{"UptimeMinutes", wb.KPI.UptimeMinutes},
		{"MTTRMinutes", wb.KPI.MTTRMinutes},
		{"MTBFMinutes", wb.KPI.MTBFMinutes},
	}
	for i, row := range kpiRows {
		if err := writeRow(f, SheetKPI, i+1, row); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
