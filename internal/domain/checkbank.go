package domain

// CheckBank agrupa los checks de una ventana: los activos y los ya resueltos.
// No es seguro para uso concurrente; lo posee un único WindowController.
type CheckBank struct {
	active   []Check
	complete []Check
	width    int
}

// NewCheckBank crea un banco con todos los checks activos.
// El ancho del label es max(ordinal)+1.
func NewCheckBank(specs []CheckSpec) *CheckBank {
	b := &CheckBank{
		active:   make([]Check, 0, len(specs)),
		complete: make([]Check, 0, len(specs)),
	}
	for _, s := range specs {
		b.active = append(b.active, NewCheck(s))
		if s.Ordinal+1 > b.width {
			b.width = s.Ordinal + 1
		}
	}
	return b
}

// Evaluate pasa el cambio a cada check activo y mueve los que se resuelven al
// conjunto completo. Devuelve cuántos se resolvieron.
func (b *CheckBank) Evaluate(pc PriceChange) int {
	kept := b.active[:0]
	resolved := 0
	for _, c := range b.active {
		if c.Track(pc) {
			b.complete = append(b.complete, c)
			resolved++
			continue
		}
		kept = append(kept, c)
	}
	b.active = kept
	return resolved
}

// Done indica que no quedan checks activos.
func (b *CheckBank) Done() bool {
	return len(b.active) == 0
}

// activeCount devuelve cuántos checks siguen sin resolver.
func (b *CheckBank) activeCount() int { return len(b.active) }

// resolved devuelve una copia de los checks resueltos, en orden de resolución.
func (b *CheckBank) resolved() []Check {
	out := make([]Check, len(b.complete))
	copy(out, b.complete)
	return out
}

// Reset devuelve todos los checks resueltos al conjunto activo.
func (b *CheckBank) Reset() {
	for i := range b.complete {
		b.complete[i].Reset()
	}
	b.active = append(b.active, b.complete...)
	b.complete = b.complete[:0]
}

// Label construye el vector de resultados; los ordinales sin resolver quedan en 0.
func (b *CheckBank) Label() Label {
	lab := NewLabel(b.width)
	for _, c := range b.complete {
		if fav, ok := c.Result(); ok && fav {
			lab[c.Spec.Ordinal] = 1.0
		}
	}
	return lab
}
