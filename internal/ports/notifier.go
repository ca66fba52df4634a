package ports

import (
	"context"

	"github.com/alejandrodnm/ticklabel/internal/domain"
)

// Notifier presenta los labels emitidos al usuario.
type Notifier interface {
	// Notify se llama una vez por label persistido y publicado.
	Notify(ctx context.Context, rec domain.LabelRecord) error
}
