package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuoteEvent es un tick bid/ask leído del stream de entrada.
// Offset es la posición en el stream; EventID el identificador del productor.
type QuoteEvent struct {
	EventID uint64
	Offset  uint64
	Bid     float64
	Ask     float64
	BidTime time.Time
	AskTime time.Time
}

// Time devuelve el instante más reciente de los dos lados del quote.
// Es el que se usa para decidir sesión y día de trading.
func (q QuoteEvent) Time() time.Time {
	if q.AskTime.After(q.BidTime) {
		return q.AskTime
	}
	return q.BidTime
}

// PriceChange es el movimiento de un evento respecto a los precios de referencia
// de una ventana, redondeado a 2 decimales.
//
// Bid se mide contra el ask de referencia (coste de entrar largo) y Ask contra
// el bid de referencia (lo que se obtendría vendiendo en corto).
type PriceChange struct {
	Bid decimal.Decimal
	Ask decimal.Decimal
}

const priceChangePlaces = 2

// NewPriceChange calcula el cambio de ev respecto al origen ref.
func NewPriceChange(ev, ref QuoteEvent) PriceChange {
	return PriceChange{
		Bid: roundedDiff(ev.Bid, ref.Ask),
		Ask: roundedDiff(ev.Ask, ref.Bid),
	}
}

func roundedDiff(a, b float64) decimal.Decimal {
	return decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).Round(priceChangePlaces)
}
