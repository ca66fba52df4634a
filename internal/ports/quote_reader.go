package ports

import (
	"context"

	"github.com/alejandrodnm/ticklabel/internal/domain"
)

// QuoteReader lee eventos de un topic del stream en orden de offset.
type QuoteReader interface {
	// Seek posiciona el reader para que el próximo evento leído tenga offset >= offset.
	Seek(ctx context.Context, offset uint64) error

	// OldestOffset devuelve el offset más antiguo disponible. ok es false si el topic está vacío.
	OldestOffset(ctx context.Context) (offset uint64, ok bool, err error)

	// ForEach entrega eventos al handler hasta que éste devuelva false o el
	// stream no tenga más datos. Devuelve cuántos eventos se entregaron.
	// El reader queda posicionado justo después del último evento entregado.
	ForEach(ctx context.Context, handler func(domain.QuoteEvent) bool) (int, error)
}
