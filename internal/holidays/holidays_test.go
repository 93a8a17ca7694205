package holidays

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sportclub/club_scheduler/internal/model"
)

func TestKazakhstanCalendar(t *testing.T) {
	calendar := Kazakhstan()

	label, ok := calendar.IsHoliday(model.NewDate(2025, time.January, 1))
	require.True(t, ok)
	require.Equal(t, "New Year", label)

	// Год не учитывается - таблица повторяется ежегодно
	_, ok = calendar.IsHoliday(model.NewDate(2030, time.March, 22))
	require.True(t, ok)

	_, ok = calendar.IsHoliday(model.NewDate(2025, time.June, 2))
	require.False(t, ok)
}

func TestEmptyTable(t *testing.T) {
	var calendar Table
	_, ok := calendar.IsHoliday(model.NewDate(2025, time.January, 1))
	require.False(t, ok)
}
