package labeler

import (
	"github.com/alejandrodnm/ticklabel/internal/domain"
	"github.com/alejandrodnm/ticklabel/internal/ports"
	"github.com/gammazero/deque"
)

// Window buffers the events of the current origin and tracks the check bank
// against the origin's reference prices.
//
// The origin is always the front of the buffer. A window is complete when the
// bank has no active checks left. Window is owned by a single Labeler and is
// not safe for concurrent use.
type Window struct {
	bank     *domain.CheckBank
	calendar ports.SessionCalendar
	events   deque.Deque[domain.QuoteEvent]
	origin   domain.QuoteEvent
	replay   []domain.QuoteEvent

	resets int
}

// NewWindow creates an empty window for the given checks.
func NewWindow(specs []domain.CheckSpec, calendar ports.SessionCalendar) *Window {
	return &Window{
		bank:     domain.NewCheckBank(specs),
		calendar: calendar,
	}
}

// Ingest adds ev to the window and reports whether the window is now complete.
//
// An event outside the trading session discards the window and is dropped.
// An event on a different trading day than the origin discards the window and
// becomes the origin of a fresh one.
func (w *Window) Ingest(ev domain.QuoteEvent) bool {
	if !w.calendar.InTradingSession(ev) {
		w.reset()
		return false
	}

	if w.events.Len() == 0 {
		w.startWith(ev)
		return false
	}

	if !w.calendar.SameTradingDay(w.origin, ev) {
		w.reset()
		w.startWith(ev)
		return false
	}

	w.bank.Evaluate(domain.NewPriceChange(ev, w.origin))
	w.events.PushBack(ev)
	return w.bank.Done()
}

// Complete reports whether every check has resolved for the current origin.
func (w *Window) Complete() bool {
	return w.events.Len() > 0 && w.bank.Done()
}

// IDs returns the origin event id and the offsets of the oldest and newest
// buffered events. It panics on an empty window.
func (w *Window) IDs() domain.LabelIDs {
	if w.events.Len() == 0 {
		panic("window: IDs called on empty window")
	}
	return domain.LabelIDs{
		EventID:    w.origin.EventID,
		OffsetFrom: w.events.Front().Offset,
		OffsetTo:   w.events.Back().Offset,
	}
}

// Label returns the label vector of the current origin.
func (w *Window) Label() domain.Label {
	return w.bank.Label()
}

// Slide drops the origin, makes the next buffered event the new origin and
// replays the rest of the buffer through a fresh bank. It reports whether the
// replay completed the window again. It panics if the window is not complete.
func (w *Window) Slide() bool {
	if !w.Complete() {
		panic("window: Slide called on incomplete window")
	}

	w.bank.Reset()
	w.events.PopFront()
	if w.events.Len() == 0 {
		return false
	}

	next := w.events.PopFront()
	w.replay = w.replay[:0]
	for w.events.Len() > 0 {
		w.replay = append(w.replay, w.events.PopFront())
	}

	w.startWith(next)
	for _, ev := range w.replay {
		w.Ingest(ev)
	}
	return w.Complete()
}

// Len returns the number of buffered events, origin included.
func (w *Window) Len() int {
	return w.events.Len()
}

// Resets returns how many times the window was discarded by a session or day boundary.
func (w *Window) Resets() int {
	return w.resets
}

func (w *Window) startWith(ev domain.QuoteEvent) {
	w.origin = ev
	w.events.PushBack(ev)
}

func (w *Window) reset() {
	if w.events.Len() == 0 {
		return
	}
	w.bank.Reset()
	w.events.Clear()
	w.resets++
}
