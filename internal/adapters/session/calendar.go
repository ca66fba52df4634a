package session

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/alejandrodnm/ticklabel/internal/domain"
)

const dateLayout = "2006-01-02"

// Config describes a single daily session in an exchange timezone.
type Config struct {
	Timezone string   // IANA name, e.g. America/New_York
	Open     string   // HH:MM, inclusive
	Close    string   // HH:MM, exclusive
	Holidays []string // YYYY-MM-DD dates with no session
}

// Calendar implements ports.SessionCalendar for weekday sessions.
type Calendar struct {
	loc      *time.Location
	open     time.Duration
	close    time.Duration
	holidays map[string]bool
}

// NewCalendar parses cfg into a Calendar.
func NewCalendar(cfg Config) (*Calendar, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("session.NewCalendar: timezone %q: %w", cfg.Timezone, err)
	}
	open, err := parseClock(cfg.Open)
	if err != nil {
		return nil, fmt.Errorf("session.NewCalendar: open: %w", err)
	}
	closeAt, err := parseClock(cfg.Close)
	if err != nil {
		return nil, fmt.Errorf("session.NewCalendar: close: %w", err)
	}
	if closeAt <= open {
		return nil, fmt.Errorf("session.NewCalendar: close %s must be after open %s", cfg.Close, cfg.Open)
	}

	holidays := make(map[string]bool, len(cfg.Holidays))
	for _, h := range cfg.Holidays {
		d, err := time.ParseInLocation(dateLayout, h, loc)
		if err != nil {
			return nil, fmt.Errorf("session.NewCalendar: holiday %q: %w", h, err)
		}
		holidays[d.Format(dateLayout)] = true
	}

	return &Calendar{loc: loc, open: open, close: closeAt, holidays: holidays}, nil
}

// InTradingSession reports whether the event time falls in [open, close) of a trading day.
func (c *Calendar) InTradingSession(ev domain.QuoteEvent) bool {
	t := ev.Time().In(c.loc)
	if !c.tradingDay(t) {
		return false
	}
	since := sinceMidnight(t)
	return since >= c.open && since < c.close
}

// SameTradingDay compares the exchange-local dates of both events.
func (c *Calendar) SameTradingDay(a, b domain.QuoteEvent) bool {
	ay, am, ad := a.Time().In(c.loc).Date()
	by, bm, bd := b.Time().In(c.loc).Date()
	return ay == by && am == bm && ad == bd
}

func (c *Calendar) tradingDay(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !c.holidays[t.Format(dateLayout)]
}

func sinceMidnight(t time.Time) time.Duration {
	h, m, s := t.Clock()
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second + time.Duration(t.Nanosecond())
}

func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("clock %q: %w", s, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
