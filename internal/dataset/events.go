package dataset

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"reliability-insights/internal/models"
)

// EventColumns колонки журнала отказов
var EventColumns = []string{
	"ElementDesc", "LineGroupDesc", "LineDesc", "StatusDesc", "AlarmDesc",
	"Duration", "StartTime", "EndTime", "EffectiveDay", "StationDesc", "ShiftId",
}

// Колонки, добавляемые реконструкцией эпизодов
const (
	ColEpisodeID    = "EpisodeId"
	ColFirstAlarm   = "PrimeiroAlarmDesc"
	ColFirstElement = "PrimeiroElementDesc"
)

// TaggedColumns колонки таблицы событий с эпизодами
var TaggedColumns = append(append([]string(nil), EventColumns...), ColEpisodeID, ColFirstAlarm, ColFirstElement)

// EventLoad результат чтения журнала
type EventLoad struct {
	Events []models.Event
	// Skipped записи без ключа оборудования или времени начала
	Skipped int
}

// ReadEvents читает сырой журнал отказов
func ReadEvents(path string) (EventLoad, error) {
	f, err := openArtifact(path, GeneratorExtract)
	if err != nil {
		return EventLoad{}, err
	}
	defer f.Close()
	return DecodeEvents(f, path)
}

// DecodeEvents разбирает журнал отказов. Записи без ключа оборудования пропускаются.
func DecodeEvents(r io.Reader, path string) (EventLoad, error) {
	t, err := newTable(r, path, ',', EventColumns)
	if err != nil {
		return EventLoad{}, err
	}

	load := EventLoad{Events: []models.Event{}}
	for {
		rec, err := t.next()
		if err == io.EOF {
			return load, nil
		}
		if err != nil {
			return EventLoad{}, err
		}

		e, err := decodeEvent(t, rec)
		if err != nil {
			return EventLoad{}, err
		}
		if !e.HasKey() || e.StartTime.IsZero() {
			load.Skipped++
			continue
		}
		load.Events = append(load.Events, e)
	}
}

func decodeEvent(t *table, rec []string) (models.Event, error) {
	e := models.Event{
		ElementDesc:   t.value(rec, "ElementDesc"),
		LineGroupDesc: t.value(rec, "LineGroupDesc"),
		LineDesc:      t.value(rec, "LineDesc"),
		StatusDesc:    t.value(rec, "StatusDesc"),
		AlarmDesc:     t.value(rec, "AlarmDesc"),
		StationDesc:   t.value(rec, "StationDesc"),
	}

	var err error
	if e.Duration, err = t.intValue(rec, "Duration"); err != nil {
		return e, err
	}
	if e.StartTime, err = t.timeValue(rec, "StartTime"); err != nil {
		return e, err
	}
	if e.EndTime, err = t.timeValue(rec, "EndTime"); err != nil {
		return e, err
	}
	if e.EffectiveDay, err = t.timeValue(rec, "EffectiveDay"); err != nil {
		return e, err
	}
	shift, err := t.intValue(rec, "ShiftId")
	if err != nil {
		return e, err
	}
	e.ShiftID = int(shift)
	return e, nil
}

func eventRecord(e models.Event) []string {
	return []string{
		e.ElementDesc,
		e.LineGroupDesc,
		e.LineDesc,
		e.StatusDesc,
		e.AlarmDesc,
		strconv.FormatInt(e.Duration, 10),
		formatTime(e.StartTime),
		formatTime(e.EndTime),
		formatTime(e.EffectiveDay),
		e.StationDesc,
		strconv.Itoa(e.ShiftID),
	}
}

// EncodeEvents пишет сырой журнал отказов
func EncodeEvents(w io.Writer, events []models.Event) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(EventColumns); err != nil {
		return err
	}
	for _, e := range events {
		if err := cw.Write(eventRecord(e)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadTaggedEvents читает таблицу событий с эпизодами.
// Признак отказа пересчитывается по порогу длительности.
func ReadTaggedEvents(path string, breakdownThreshold time.Duration) ([]models.TaggedEvent, error) {
	f, err := openArtifact(path, GeneratorEpisodes)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeTaggedEvents(f, path, breakdownThreshold)
}

// DecodeTaggedEvents разбирает таблицу событий с эпизодами
func DecodeTaggedEvents(r io.Reader, path string, breakdownThreshold time.Duration) ([]models.TaggedEvent, error) {
	t, err := newTable(r, path, ',', TaggedColumns)
	if err != nil {
		return nil, err
	}

	events := []models.TaggedEvent{}
	for {
		rec, err := t.next()
		if err == io.EOF {
			return events, nil
		}
		if err != nil {
			return nil, err
		}

		e, err := decodeEvent(t, rec)
		if err != nil {
			return nil, err
		}
		id, err := t.intValue(rec, ColEpisodeID)
		if err != nil {
			return nil, err
		}
		events = append(events, models.TaggedEvent{
			Event:            e,
			IsBreakdown:      time.Duration(e.Duration)*time.Second >= breakdownThreshold,
			EpisodeID:        id,
			FirstAlarmDesc:   t.value(rec, ColFirstAlarm),
			FirstElementDesc: t.value(rec, ColFirstElement),
		})
	}
}

// EncodeTaggedEvents пишет исходные колонки и атрибуты эпизода
func EncodeTaggedEvents(w io.Writer, events []models.TaggedEvent) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(TaggedColumns); err != nil {
		return err
	}
	for _, e := range events {
		rec := append(eventRecord(e.Event),
			strconv.FormatInt(e.EpisodeID, 10),
			e.FirstAlarmDesc,
			e.FirstElementDesc,
		)
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
