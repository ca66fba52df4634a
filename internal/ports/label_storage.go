package ports

import (
	"context"

	"github.com/alejandrodnm/ticklabel/internal/domain"
)

// LabelStorage persiste los labels calculados, con offset_from como clave.
type LabelStorage interface {
	// SaveLabel escribe el record. Reescribir el mismo offset_from es idempotente.
	SaveLabel(ctx context.Context, rec domain.LabelRecord) error

	// MaxOffsetFrom devuelve el mayor offset_from persistido. ok es false si no hay labels.
	MaxOffsetFrom(ctx context.Context) (offset uint64, ok bool, err error)

	// ResetLabels borra todos los labels persistidos.
	ResetLabels(ctx context.Context) error
}
