package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Direction indica qué lado del PriceChange corresponde a cada threshold.
type Direction int

const (
	DirectionUp Direction = iota + 1
	DirectionDown
)

// String devuelve la representación usada en config y logs.
func (d Direction) String() string {
	switch d {
	case DirectionUp:
		return "up"
	case DirectionDown:
		return "down"
	default:
		return "unknown"
	}
}

// ParseDirection convierte "up"/"down" (case-insensitive) a Direction.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up":
		return DirectionUp, nil
	case "down":
		return DirectionDown, nil
	default:
		return 0, fmt.Errorf("domain.ParseDirection: unknown direction %q", s)
	}
}

// CheckSpec es una hipótesis de threshold: qué movimiento se toca primero,
// el favorable o el adverso. Es configuración inmutable.
//
// Para UP, Favorable es positivo y Adverse negativo.
// Para DOWN, Favorable es negativo y Adverse positivo.
type CheckSpec struct {
	Ordinal   int
	Direction Direction
	Favorable decimal.Decimal
	Adverse   decimal.Decimal
}

// NewCheckSpec construye un CheckSpec con los thresholds redondeados a la misma
// granularidad que los PriceChange.
func NewCheckSpec(ordinal int, dir Direction, favorable, adverse float64) CheckSpec {
	return CheckSpec{
		Ordinal:   ordinal,
		Direction: dir,
		Favorable: decimal.NewFromFloat(favorable).Round(priceChangePlaces),
		Adverse:   decimal.NewFromFloat(adverse).Round(priceChangePlaces),
	}
}

// Validate comprueba que los thresholds no se solapen para la dirección dada.
func (s CheckSpec) Validate() error {
	switch s.Direction {
	case DirectionUp:
		if !s.Favorable.GreaterThan(s.Adverse) {
			return fmt.Errorf("check %d: up favorable %s must be above adverse %s", s.Ordinal, s.Favorable, s.Adverse)
		}
	case DirectionDown:
		if !s.Favorable.LessThan(s.Adverse) {
			return fmt.Errorf("check %d: down favorable %s must be below adverse %s", s.Ordinal, s.Favorable, s.Adverse)
		}
	default:
		return fmt.Errorf("check %d: invalid direction %d", s.Ordinal, s.Direction)
	}
	if s.Ordinal < 0 {
		return fmt.Errorf("check %d: negative ordinal", s.Ordinal)
	}
	return nil
}

// evaluate decide si el cambio resuelve la hipótesis.
// Si ambas condiciones se cumplen a la vez gana la favorable.
func (s CheckSpec) evaluate(pc PriceChange) (resolved, favorable bool) {
	switch s.Direction {
	case DirectionUp:
		if pc.Bid.GreaterThanOrEqual(s.Favorable) {
			return true, true
		}
		if pc.Ask.LessThanOrEqual(s.Adverse) {
			return true, false
		}
	case DirectionDown:
		if pc.Ask.LessThanOrEqual(s.Favorable) {
			return true, true
		}
		if pc.Bid.GreaterThanOrEqual(s.Adverse) {
			return true, false
		}
	}
	return false, false
}

// Check es un CheckSpec con su ciclo de vida dentro de una ventana:
// activo hasta que se resuelve, y resuelto hasta el próximo Reset.
type Check struct {
	Spec      CheckSpec
	resolved  bool
	favorable bool
}

// NewCheck crea un Check activo.
func NewCheck(spec CheckSpec) Check {
	return Check{Spec: spec}
}

// Track evalúa el cambio y devuelve true si el check quedó resuelto en esta llamada.
// Un check ya resuelto no cambia su resultado.
func (c *Check) Track(pc PriceChange) bool {
	if c.resolved {
		return false
	}
	resolved, favorable := c.Spec.evaluate(pc)
	if !resolved {
		return false
	}
	c.resolved = true
	c.favorable = favorable
	return true
}

// Resolved indica si el check ya tomó una decisión.
func (c Check) Resolved() bool { return c.resolved }

// Result devuelve si el threshold favorable se tocó primero.
// ok es false mientras el check sigue activo.
func (c Check) Result() (favorable, ok bool) {
	return c.favorable, c.resolved
}

// Reset devuelve el check al estado activo.
func (c *Check) Reset() {
	c.resolved = false
	c.favorable = false
}
