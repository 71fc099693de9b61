// Package window считает календарные окна учёта использования.
// Все окна считаются в UTC: сутки с полуночи, месяц с первого числа.
package window

import "time"

// Day возвращает ключ суток вида 2006-01-02 и момент окончания суток.
func Day(now time.Time) (string, time.Time) {
	t := now.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start.Format(time.DateOnly), start.AddDate(0, 0, 1)
}

// Month возвращает ключ месяца вида 2006-01 и момент окончания месяца.
func Month(now time.Time) (string, time.Time) {
	t := now.UTC()
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start.Format("2006-01"), start.AddDate(0, 1, 0)
}

// DaysLeft сколько полных и неполных суток осталось до until. Прошедший момент даёт 0.
func DaysLeft(now, until time.Time) int {
	d := until.Sub(now)
	if d <= 0 {
		return 0
	}
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		days++
	}
	return days
}
