package session_test

import (
	"testing"
	"time"

	"github.com/alejandrodnm/ticklabel/internal/adapters/session"
	"github.com/alejandrodnm/ticklabel/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newYork(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

func quoteAt(ts time.Time) domain.QuoteEvent {
	return domain.QuoteEvent{Bid: 100, Ask: 100.02, BidTime: ts, AskTime: ts}
}

func newCalendar(t *testing.T) *session.Calendar {
	t.Helper()
	cal, err := session.NewCalendar(session.Config{
		Timezone: "America/New_York",
		Open:     "09:30",
		Close:    "16:00",
		Holidays: []string{"2024-07-04"},
	})
	require.NoError(t, err)
	return cal
}

func TestCalendar_InTradingSession(t *testing.T) {
	cal := newCalendar(t)
	ny := newYork(t)

	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"open bell", time.Date(2024, 3, 4, 9, 30, 0, 0, ny), true},
		{"before open", time.Date(2024, 3, 4, 9, 29, 59, 0, ny), false},
		{"last second", time.Date(2024, 3, 4, 15, 59, 59, 0, ny), true},
		{"close bell", time.Date(2024, 3, 4, 16, 0, 0, 0, ny), false},
		{"saturday", time.Date(2024, 3, 2, 11, 0, 0, 0, ny), false},
		{"holiday", time.Date(2024, 7, 4, 11, 0, 0, 0, ny), false},
		{"utc input", time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, cal.InTradingSession(quoteAt(tc.at)))
		})
	}
}

func TestCalendar_UsesLatestSideTimestamp(t *testing.T) {
	cal := newCalendar(t)
	ny := newYork(t)

	q := domain.QuoteEvent{
		BidTime: time.Date(2024, 3, 4, 15, 59, 59, 0, ny),
		AskTime: time.Date(2024, 3, 4, 16, 0, 1, 0, ny),
	}
	assert.False(t, cal.InTradingSession(q))
}

func TestCalendar_SameTradingDayInExchangeTimezone(t *testing.T) {
	cal := newCalendar(t)
	ny := newYork(t)

	morning := quoteAt(time.Date(2024, 3, 4, 9, 45, 0, 0, ny))
	afternoon := quoteAt(time.Date(2024, 3, 4, 15, 45, 0, 0, ny))
	nextDay := quoteAt(time.Date(2024, 3, 5, 9, 45, 0, 0, ny))

	assert.True(t, cal.SameTradingDay(morning, afternoon))
	assert.False(t, cal.SameTradingDay(afternoon, nextDay))

	// 20:30 NY ya es el día siguiente en UTC, pero sigue siendo el mismo día de trading.
	late := quoteAt(time.Date(2024, 3, 4, 20, 30, 0, 0, ny))
	assert.True(t, cal.SameTradingDay(morning, late))
}

func TestNewCalendar_RejectsBadConfig(t *testing.T) {
	_, err := session.NewCalendar(session.Config{Timezone: "Nowhere/City", Open: "09:30", Close: "16:00"})
	assert.Error(t, err)

	_, err = session.NewCalendar(session.Config{Timezone: "UTC", Open: "9h", Close: "16:00"})
	assert.Error(t, err)

	_, err = session.NewCalendar(session.Config{Timezone: "UTC", Open: "16:00", Close: "09:30"})
	assert.Error(t, err)

	_, err = session.NewCalendar(session.Config{Timezone: "UTC", Open: "09:30", Close: "16:00", Holidays: []string{"07/04/2024"}})
	assert.Error(t, err)
}
