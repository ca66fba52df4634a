package ports

import (
	"context"
	"time"
)

// LabelPublisher publica mensajes en un topic de salida del stream.
type LabelPublisher interface {
	// Publish escribe payload en topic con la clave y timestamp dados.
	// Devuelve nil cuando el stream confirmó la escritura.
	Publish(ctx context.Context, topic string, key uint64, ts time.Time, payload []byte) error
}
