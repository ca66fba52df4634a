package labeler

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/alejandrodnm/ticklabel/internal/domain"
)

var day = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

// fakeCalendar: sesión 14:00–21:00 UTC, día = fecha UTC.
type fakeCalendar struct{}

func (fakeCalendar) InTradingSession(ev domain.QuoteEvent) bool {
	h := ev.Time().UTC().Hour()
	return h >= 14 && h < 21
}

func (fakeCalendar) SameTradingDay(a, b domain.QuoteEvent) bool {
	ay, am, ad := a.Time().UTC().Date()
	by, bm, bd := b.Time().UTC().Date()
	return ay == by && am == bm && ad == bd
}

// quoteAt crea un quote sin spread a la hora dada.
func quoteAt(offset uint64, price float64, ts time.Time) domain.QuoteEvent {
	return domain.QuoteEvent{
		EventID: offset + 1000,
		Offset:  offset,
		Bid:     price,
		Ask:     price,
		BidTime: ts,
		AskTime: ts,
	}
}

// series construye eventos consecutivos en sesión, un segundo entre cada uno.
func series(from uint64, prices ...float64) []domain.QuoteEvent {
	out := make([]domain.QuoteEvent, len(prices))
	start := day.Add(15 * time.Hour)
	for i, p := range prices {
		out[i] = quoteAt(from+uint64(i), p, start.Add(time.Duration(i)*time.Second))
	}
	return out
}

// defaultChecks son los ocho thresholds de producción.
func defaultChecks() []domain.CheckSpec {
	return []domain.CheckSpec{
		domain.NewCheckSpec(0, domain.DirectionDown, -0.40, 0.20),
		domain.NewCheckSpec(1, domain.DirectionDown, -0.20, 0.10),
		domain.NewCheckSpec(2, domain.DirectionDown, -0.10, 0.05),
		domain.NewCheckSpec(3, domain.DirectionDown, -0.02, 0.01),
		domain.NewCheckSpec(4, domain.DirectionUp, 0.02, -0.01),
		domain.NewCheckSpec(5, domain.DirectionUp, 0.10, -0.05),
		domain.NewCheckSpec(6, domain.DirectionUp, 0.20, -0.10),
		domain.NewCheckSpec(7, domain.DirectionUp, 0.40, -0.20),
	}
}

type fakeReader struct {
	events []domain.QuoteEvent
	pos    int
	reads  int
	err    error
}

func (r *fakeReader) Seek(_ context.Context, offset uint64) error {
	r.pos = sort.Search(len(r.events), func(i int) bool { return r.events[i].Offset >= offset })
	return nil
}

func (r *fakeReader) OldestOffset(_ context.Context) (uint64, bool, error) {
	if len(r.events) == 0 {
		return 0, false, nil
	}
	return r.events[0].Offset, true, nil
}

func (r *fakeReader) ForEach(ctx context.Context, handler func(domain.QuoteEvent) bool) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	n := 0
	for r.pos < len(r.events) {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		ev := r.events[r.pos]
		r.pos++
		r.reads++
		n++
		if !handler(ev) {
			break
		}
	}
	return n, nil
}

type fakeStore struct {
	labels   map[uint64]domain.LabelRecord
	saves    int
	failures int
}

func newFakeStore() *fakeStore {
	return &fakeStore{labels: make(map[uint64]domain.LabelRecord)}
}

func (s *fakeStore) SaveLabel(_ context.Context, rec domain.LabelRecord) error {
	if s.failures != 0 {
		if s.failures > 0 {
			s.failures--
		}
		return errors.New("store unavailable")
	}
	s.saves++
	s.labels[rec.OffsetFrom] = rec
	return nil
}

func (s *fakeStore) MaxOffsetFrom(_ context.Context) (uint64, bool, error) {
	var top uint64
	found := false
	for k := range s.labels {
		if !found || k > top {
			top = k
			found = true
		}
	}
	return top, found, nil
}

func (s *fakeStore) ResetLabels(_ context.Context) error {
	s.labels = make(map[uint64]domain.LabelRecord)
	return nil
}

type published struct {
	topic   string
	key     uint64
	payload []byte
}

type fakePublisher struct {
	msgs     []published
	failures int
}

func (p *fakePublisher) Publish(_ context.Context, topic string, key uint64, _ time.Time, payload []byte) error {
	if p.failures != 0 {
		if p.failures > 0 {
			p.failures--
		}
		return errors.New("broker unavailable")
	}
	p.msgs = append(p.msgs, published{topic: topic, key: key, payload: payload})
	return nil
}

type fakeNotifier struct {
	recs     []domain.LabelRecord
	onNotify func()
}

func (n *fakeNotifier) Notify(_ context.Context, rec domain.LabelRecord) error {
	n.recs = append(n.recs, rec)
	if n.onNotify != nil {
		n.onNotify()
	}
	return nil
}

type countingMetrics struct {
	events, resets, slides, labels, failures int
}

func (m *countingMetrics) EventIngested() { m.events++ }
func (m *countingMetrics) WindowReset()   { m.resets++ }
func (m *countingMetrics) WindowSlid()    { m.slides++ }
func (m *countingMetrics) LabelEmitted()  { m.labels++ }
func (m *countingMetrics) EmitFailed()    { m.failures++ }
