// Package holidays предоставляет справочник праздничных дней для генератора
// расписания. Справочник внедряется как интерфейс, чтобы региональные
// календари можно было менять без правки кода.
package holidays

import "github.com/sportclub/club_scheduler/internal/model"

// Calendar отвечает на вопрос, является ли дата праздником
type Calendar interface {
	IsHoliday(d model.Date) (label string, ok bool)
}

// MonthDay ключ праздника: месяц и день, год не учитывается
type MonthDay struct {
	Month int
	Day   int
}

// Table календарь на основе статической таблицы (месяц, день) -> название
type Table map[MonthDay]string

// IsHoliday реализует Calendar
func (t Table) IsHoliday(d model.Date) (string, bool) {
	label, ok := t[MonthDay{Month: int(d.Month()), Day: d.Day()}]
	return label, ok
}

// Kazakhstan государственные праздники Казахстана
func Kazakhstan() Table {
	return Table{
		{1, 1}:   "New Year",
		{1, 2}:   "New Year Holiday",
		{3, 8}:   "International Women's Day",
		{3, 21}:  "Nauryz",
		{3, 22}:  "Nauryz Holiday",
		{3, 23}:  "Nauryz Holiday",
		{5, 1}:   "Kazakhstan People's Unity Day",
		{5, 7}:   "Defender of the Fatherland Day",
		{5, 9}:   "Victory Day",
		{7, 6}:   "Capital City Day",
		{8, 30}:  "Constitution Day",
		{12, 1}:  "First President Day",
		{12, 16}: "Independence Day",
		{12, 17}: "Independence Day Holiday",
	}
}
