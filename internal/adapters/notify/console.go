package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alejandrodnm/ticklabel/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Summary es el resumen de una ejecución que se imprime al terminar.
type Summary struct {
	Events int
	Labels int
	Resets int
	Slides int
	Stored int                  // labels persistidos en total, -1 si no se pudo contar
	Next   uint64               // próximo offset a leer
	Recent []domain.LabelRecord // más reciente primero
}

// Console implementa ports.Notifier.
type Console struct {
	out     io.Writer
	verbose bool
}

// NewConsole crea un notificador que escribe a stdout.
// Con verbose=false solo imprime el resumen final.
func NewConsole(verbose bool) *Console {
	return &Console{out: os.Stdout, verbose: verbose}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, verbose bool) *Console {
	return &Console{out: w, verbose: verbose}
}

// Notify imprime una línea compacta por label emitido.
func (c *Console) Notify(_ context.Context, rec domain.LabelRecord) error {
	if !c.verbose {
		return nil
	}
	fmt.Fprintf(c.out, "[%s] label event=%d offsets=%d..%d %s\n",
		rec.Timestamp.Format("15:04:05"),
		rec.EventID, rec.OffsetFrom, rec.OffsetTo,
		labelString(rec.Label),
	)
	return nil
}

// PrintSummary imprime los contadores de la ejecución y la tabla de labels recientes.
func (c *Console) PrintSummary(s Summary) {
	fmt.Fprintf(c.out, "\n=== labeler run: %d events → %d labels | resets:%d slides:%d ===\n",
		s.Events, s.Labels, s.Resets, s.Slides)
	if s.Stored >= 0 {
		fmt.Fprintf(c.out, "  stored: %d labels | next offset: %d\n", s.Stored, s.Next)
	}

	if len(s.Recent) == 0 {
		fmt.Fprintln(c.out, "  no labels stored")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Offset from", "Offset to", "Event", "Emitted", "Fav", "Label")
	for _, rec := range s.Recent {
		table.Append(
			fmt.Sprintf("%d", rec.OffsetFrom),
			fmt.Sprintf("%d", rec.OffsetTo),
			fmt.Sprintf("%d", rec.EventID),
			rec.Timestamp.Format(time.DateTime),
			fmt.Sprintf("%d/%d", rec.Label.Favorable(), len(rec.Label)),
			labelString(rec.Label),
		)
	}
	table.Render()

	fmt.Fprintln(c.out, "  Label = 1 favorable primero | 0 adverso primero (por ordinal)")
}

// labelString devuelve el vector como "01001101".
func labelString(l domain.Label) string {
	var sb strings.Builder
	for _, v := range l {
		if v == 1.0 {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}
