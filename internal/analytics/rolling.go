package analytics

import "time"

const secondsPerDay = 24 * 60 * 60

// WindowMode способ отсчета скользящего окна
type WindowMode string

const (
	// WindowRows окно из N последних наблюдаемых дневных строк
	WindowRows WindowMode = "rows"
	// WindowCalendar окно из N календарных дней, включая текущий
	WindowCalendar WindowMode = "calendar"
)

// prefixSums накопленные суммы для быстрых скользящих сумм
type prefixSums struct {
	values []float64
}

// newPrefixSums строит накопленные суммы по значениям
func newPrefixSums(n int, value func(i int) float64) prefixSums {
	values := make([]float64, n+1)
	for i := 0; i < n; i++ {
		values[i+1] = values[i] + value(i)
	}
	return prefixSums{values: values}
}

// sum возвращает сумму элементов в полуинтервале [lo, hi)
func (p prefixSums) sum(lo, hi int) float64 {
	return p.values[hi] - p.values[lo]
}

// windowStart возвращает индекс первой строки окна, заканчивающегося на i
func windowStart(days []time.Time, i, size int, mode WindowMode) int {
	if mode == WindowCalendar {
		span := time.Duration(size) * 24 * time.Hour
		j := i
		for j > 0 && days[i].Sub(days[j-1]) < span {
			j--
		}
		return j
	}

	if lo := i - size + 1; lo > 0 {
		return lo
	}
	return 0
}

// truncateDay отбрасывает время суток, сохраняя часовой пояс
func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// daysBetween дробное число дней от a до b
func daysBetween(a, b time.Time) float64 {
	return b.Sub(a).Seconds() / secondsPerDay
}
