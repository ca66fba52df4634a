package domain

import "time"

// Label es el vector de resultados indexado por ordinal de CheckSpec.
// 1.0 = favorable primero, 0.0 = adverso primero o sin resolver.
type Label []float32

// NewLabel devuelve un label neutral de ancho n.
func NewLabel(n int) Label {
	return make(Label, n)
}

// LabelIDs identifica el rango de eventos atribuido a un label.
type LabelIDs struct {
	EventID    uint64
	OffsetFrom uint64
	OffsetTo   uint64
}

// LabelRecord es un label con su procedencia, tal como se persiste.
type LabelRecord struct {
	EventID    uint64
	Timestamp  time.Time
	OffsetFrom uint64
	OffsetTo   uint64
	Label      Label
}

// NewLabelRecord combina ids y label con la hora de emisión.
func NewLabelRecord(ids LabelIDs, label Label, at time.Time) LabelRecord {
	return LabelRecord{
		EventID:    ids.EventID,
		Timestamp:  at,
		OffsetFrom: ids.OffsetFrom,
		OffsetTo:   ids.OffsetTo,
		Label:      label,
	}
}

// LabelEvent es el payload JSON publicado en el topic de labels.
type LabelEvent struct {
	EventID    uint64    `json:"event_id"`
	Timestamp  int64     `json:"timestamp"` // epoch millis
	OffsetFrom uint64    `json:"offset_from"`
	OffsetTo   uint64    `json:"offset_to"`
	Label      []float32 `json:"label"`
}

// Event convierte el record al mensaje publicado.
func (r LabelRecord) Event() LabelEvent {
	return LabelEvent{
		EventID:    r.EventID,
		Timestamp:  r.Timestamp.UnixMilli(),
		OffsetFrom: r.OffsetFrom,
		OffsetTo:   r.OffsetTo,
		Label:      r.Label,
	}
}

// Favorable cuenta los ordinales resueltos como favorables.
func (l Label) Favorable() int {
	n := 0
	for _, v := range l {
		if v == 1.0 {
			n++
		}
	}
	return n
}
