// Package period содержит арифметику расчётных периодов квот.
// Период равен одному месяцу и отсчитывается от сохранённого начала
// периода счётчика, а не от календарного месяца.
package period

import "time"

// Rolled сообщает, пересекла ли текущая дата границу следующего периода
// относительно сохранённого начала периода.
func Rolled(periodStart, now time.Time) bool {
	return !now.Before(periodStart.AddDate(0, 1, 0))
}

// CurrentBoundary возвращает начало периода, в который попадает now,
// двигаясь от сохранённого начала периода шагами по одному месяцу.
// Если now раньше periodStart, возвращается periodStart без изменений.
func CurrentBoundary(periodStart, now time.Time) time.Time {
	if now.Before(periodStart) {
		return periodStart
	}
	boundary := periodStart
	for {
		next := boundary.AddDate(0, 1, 0)
		if now.Before(next) {
			return boundary
		}
		boundary = next
	}
}
