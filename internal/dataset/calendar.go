package dataset

import (
	"fmt"
	"io"

	"reliability-insights/internal/models"
)

// ReadCalendar читает производственный календарь (Data, Tipo)
func ReadCalendar(path string) ([]models.CalendarDay, error) {
	f, err := openArtifact(path, "")
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeCalendar(f, path)
}

// DecodeCalendar разбирает производственный календарь
func DecodeCalendar(r io.Reader, path string) ([]models.CalendarDay, error) {
	t, err := newTable(r, path, ',', []string{"Data", "Tipo"})
	if err != nil {
		return nil, err
	}

	days := []models.CalendarDay{}
	for {
		rec, err := t.next()
		if err == io.EOF {
			return days, nil
		}
		if err != nil {
			return nil, err
		}

		date, err := t.timeValue(rec, "Data")
		if err != nil {
			return nil, err
		}
		typ := models.DayType(t.value(rec, "Tipo"))
		if typ != models.DayProductive && typ != models.DayUnproductive {
			return nil, t.errorf("Tipo", fmt.Errorf("unknown day type %q", typ))
		}
		days = append(days, models.CalendarDay{Date: date, Type: typ})
	}
}

// ReadProduction читает записи выпуска (разделитель ';')
func ReadProduction(path string) ([]models.ProductionRecord, error) {
	f, err := openArtifact(path, "")
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeProduction(f, path)
}

// DecodeProduction разбирает записи выпуска. Записи с нераспознанной датой пропускаются.
func DecodeProduction(r io.Reader, path string) ([]models.ProductionRecord, error) {
	t, err := newTable(r, path, ';', []string{"EffectiveDate", "LineDesc", "EffectiveProd", "TargProd"})
	if err != nil {
		return nil, err
	}

	records := []models.ProductionRecord{}
	for {
		rec, err := t.next()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, err
		}

		date, err := parseTime(t.value(rec, "EffectiveDate"))
		if err != nil {
			continue
		}
		p := models.ProductionRecord{EffectiveDate: date, LineDesc: t.value(rec, "LineDesc")}
		shift, err := t.intValue(rec, "ShiftId")
		if err != nil {
			return nil, err
		}
		p.ShiftID = int(shift)
		if p.EffectiveProd, err = t.floatValue(rec, "EffectiveProd"); err != nil {
			return nil, err
		}
		if p.TargProd, err = t.floatValue(rec, "TargProd"); err != nil {
			return nil, err
		}
		records = append(records, p)
	}
}
