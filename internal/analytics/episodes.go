package analytics

import (
	"sort"
	"time"

	"reliability-insights/internal/models"
)

// GapPolicy способ сравнения разрыва между событиями с допуском
type GapPolicy string

const (
	// GapExact сравнивает точную длительность разрыва
	GapExact GapPolicy = "exact"
	// GapMinutes считает число пересеченных границ минут (как DATEDIFF(minute))
	GapMinutes GapPolicy = "minutes"
)

// DefaultNuisanceAlarm ложная тревога защитной двери, сопровождающая реальный останов
const DefaultNuisanceAlarm = "TIME OUT APERTURA SAFETY GATE"

// EpisodeOptions параметры реконструкции эпизодов
type EpisodeOptions struct {
	GapTolerance       time.Duration
	GapPolicy          GapPolicy
	NuisanceAlarm      string
	BreakdownThreshold time.Duration
}

// DefaultEpisodeOptions возвращает параметры по умолчанию
func DefaultEpisodeOptions() EpisodeOptions {
	return EpisodeOptions{
		GapTolerance:       5 * time.Minute,
		GapPolicy:          GapExact,
		NuisanceAlarm:      DefaultNuisanceAlarm,
		BreakdownThreshold: 600 * time.Second,
	}
}

// EpisodeResult результат реконструкции
type EpisodeResult struct {
	Events         []models.TaggedEvent
	Episodes       int
	NuisanceMerges int
}

// Reconstructor группирует события в эпизоды отказов
type Reconstructor struct {
	opts EpisodeOptions
}

// NewReconstructor создает новый реконструктор
func NewReconstructor(opts EpisodeOptions) *Reconstructor {
	return &Reconstructor{opts: opts}
}

type alarmKey struct {
	equipment models.EquipmentKey
	alarm     string
}

type previousEvent struct {
	end time.Time
	id  int64
}

// Reconstruct размечает события номерами эпизодов.
// События возвращаются в глобальном порядке (StartTime, Line, Station, Element, Alarm).
func (r *Reconstructor) Reconstruct(events []models.Event) EpisodeResult {
	if len(events) == 0 {
		return EpisodeResult{Events: []models.TaggedEvent{}}
	}

	order := globalOrder(events)
	tagged := make([]models.TaggedEvent, len(order))

	// Новая группа начинается, когда нет предыдущего события с той же тревогой
	// на том же оборудовании или разрыв больше допуска. Номер любого события равен
	// накопленному числу начал групп в глобальном порядке.
	lastEnd := make(map[alarmKey]time.Time)
	var starts int64
	for i, idx := range order {
		e := events[idx]
		k := alarmKey{equipment: e.Key(), alarm: e.AlarmDesc}
		end, ok := lastEnd[k]
		if !ok || !r.within(end, e.StartTime) {
			starts++
		}
		lastEnd[k] = e.EndTime

		tagged[i] = models.TaggedEvent{
			Event:       e,
			IsBreakdown: r.isBreakdown(e),
			EpisodeID:   starts,
		}
	}

	merges := r.mergeNuisance(tagged)

	first := make(map[int64]int)
	for i := range tagged {
		if _, ok := first[tagged[i].EpisodeID]; !ok {
			first[tagged[i].EpisodeID] = i
		}
	}
	for i := range tagged {
		head := tagged[first[tagged[i].EpisodeID]]
		tagged[i].FirstAlarmDesc = head.AlarmDesc
		tagged[i].FirstElementDesc = head.ElementDesc
	}

	return EpisodeResult{
		Events:         tagged,
		Episodes:       len(first),
		NuisanceMerges: merges,
	}
}

// mergeNuisance присоединяет ложную тревогу к эпизоду предыдущего события
// того же оборудования, если она началась в пределах допуска.
// Берется номер предыдущего события до слияния.
func (r *Reconstructor) mergeNuisance(tagged []models.TaggedEvent) int {
	if r.opts.NuisanceAlarm == "" {
		return 0
	}

	merges := 0
	lastByEquipment := make(map[models.EquipmentKey]previousEvent)
	for i := range tagged {
		e := &tagged[i]
		k := e.Key()
		own := e.EpisodeID
		prev, ok := lastByEquipment[k]
		if ok && e.AlarmDesc == r.opts.NuisanceAlarm && r.within(prev.end, e.StartTime) && prev.id != own {
			e.EpisodeID = prev.id
			merges++
		}
		lastByEquipment[k] = previousEvent{end: e.EndTime, id: own}
	}
	return merges
}

// within проверяет, что start отстоит от prevEnd не больше чем на допуск.
// Перекрывающиеся события считаются близкими.
func (r *Reconstructor) within(prevEnd, start time.Time) bool {
	if r.opts.GapPolicy == GapMinutes {
		diff := start.Truncate(time.Minute).Sub(prevEnd.Truncate(time.Minute)) / time.Minute
		return diff <= r.opts.GapTolerance/time.Minute
	}
	return start.Sub(prevEnd) <= r.opts.GapTolerance
}

func (r *Reconstructor) isBreakdown(e models.Event) bool {
	return time.Duration(e.Duration)*time.Second >= r.opts.BreakdownThreshold
}

// globalOrder возвращает индексы событий в полном порядке сортировки
func globalOrder(events []models.Event) []int {
	order := make([]int, len(events))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := events[order[i]], events[order[j]]
		if !a.StartTime.Equal(b.StartTime) {
			return a.StartTime.Before(b.StartTime)
		}
		if a.LineDesc != b.LineDesc {
			return a.LineDesc < b.LineDesc
		}
		if a.StationDesc != b.StationDesc {
			return a.StationDesc < b.StationDesc
		}
		if a.ElementDesc != b.ElementDesc {
			return a.ElementDesc < b.ElementDesc
		}
		return a.AlarmDesc < b.AlarmDesc
	})
	return order
}

// Episode сводка по одному эпизоду
type Episode struct {
	ID                int64               `json:"id"`
	Equipment         models.EquipmentKey `json:"equipment"`
	FirstAlarmDesc    string              `json:"first_alarm_desc"`
	Start             time.Time           `json:"start"`
	End               time.Time           `json:"end"`
	Events            int                 `json:"events"`
	TotalDuration     int64               `json:"total_duration"`
	ContainsBreakdown bool                `json:"contains_breakdown"`
}

// SummarizeEpisodes сворачивает размеченные события в список эпизодов по возрастанию ID
func SummarizeEpisodes(tagged []models.TaggedEvent) []Episode {
	byID := make(map[int64]*Episode)
	ids := make([]int64, 0)
	for _, e := range tagged {
		ep, ok := byID[e.EpisodeID]
		if !ok {
			ep = &Episode{
				ID:             e.EpisodeID,
				Equipment:      e.Key(),
				FirstAlarmDesc: e.FirstAlarmDesc,
				Start:          e.StartTime,
				End:            e.EndTime,
			}
			byID[e.EpisodeID] = ep
			ids = append(ids, e.EpisodeID)
		}
		ep.Events++
		ep.TotalDuration += e.Duration
		ep.ContainsBreakdown = ep.ContainsBreakdown || e.IsBreakdown
		if e.StartTime.Before(ep.Start) {
			ep.Start = e.StartTime
		}
		if e.EndTime.After(ep.End) {
			ep.End = e.EndTime
		}
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]Episode, 0, len(ids))
	for _, id := range ids {
		out = append(out, *byID[id])
	}
	return out
}
