package ports

import "github.com/alejandrodnm/ticklabel/internal/domain"

// SessionCalendar decide si un evento cae dentro de la sesión de trading.
type SessionCalendar interface {
	InTradingSession(ev domain.QuoteEvent) bool
	SameTradingDay(a, b domain.QuoteEvent) bool
}
