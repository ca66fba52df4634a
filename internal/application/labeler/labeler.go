package labeler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/ticklabel/internal/domain"
	"github.com/alejandrodnm/ticklabel/internal/ports"
)

const (
	defaultRetryWait = 500 * time.Millisecond
	maxRetryWait     = 30 * time.Second
	defaultTopic     = "label.SPY.notify"
)

// ErrStreamExhausted means the stream ran out of events before the current
// window completed. Labels already emitted are unaffected.
var ErrStreamExhausted = errors.New("stream exhausted before window completed")

// Config holds labeler run settings.
type Config struct {
	LabelTopic     string
	MaxLabels      int    // 0 = run until the stream is exhausted or ctx is cancelled
	WarmupSkip     uint64 // events skipped from the oldest offset when no label exists yet
	PublishRetries int
	RetryWait      time.Duration
}

// Stats counts what a run did so far.
type Stats struct {
	Events int
	Labels int
	Resets int
	Slides int
	Last   domain.LabelRecord
}

// Labeler feeds stream events into a Window and persists every completed label.
type Labeler struct {
	cfg       Config
	reader    ports.QuoteReader
	publisher ports.LabelPublisher
	store     ports.LabelStorage
	notifier  ports.Notifier
	metrics   ports.Metrics
	window    *Window
	stats     Stats
	now       func() time.Time
}

// New creates a Labeler. checks is the immutable check configuration; notifier
// and metrics may be nil.
func New(
	cfg Config,
	checks []domain.CheckSpec,
	calendar ports.SessionCalendar,
	reader ports.QuoteReader,
	publisher ports.LabelPublisher,
	store ports.LabelStorage,
	notifier ports.Notifier,
	metrics ports.Metrics,
) *Labeler {
	if cfg.LabelTopic == "" {
		cfg.LabelTopic = defaultTopic
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = defaultRetryWait
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Labeler{
		cfg:       cfg,
		reader:    reader,
		publisher: publisher,
		store:     store,
		notifier:  notifier,
		metrics:   metrics,
		window:    NewWindow(checks, calendar),
		now:       time.Now,
	}
}

// Stats returns the counters of the current run.
func (l *Labeler) Stats() Stats {
	return l.stats
}

// ResetLabels deletes every persisted label. Offsets need no reset: the reader
// is positioned from the label store on every start.
func (l *Labeler) ResetLabels(ctx context.Context) error {
	slog.Warn("labeler: deleting all label data")
	if err := l.store.ResetLabels(ctx); err != nil {
		return fmt.Errorf("labeler.ResetLabels: %w", err)
	}
	return nil
}

// SeekStart positions the reader right after the newest labelled origin, or at
// the oldest available offset (plus warm-up) when nothing was labelled yet.
func (l *Labeler) SeekStart(ctx context.Context) (uint64, error) {
	maxFrom, ok, err := l.store.MaxOffsetFrom(ctx)
	if err != nil {
		return 0, fmt.Errorf("labeler.SeekStart: max offset: %w", err)
	}

	var start uint64
	if ok {
		start = maxFrom + 1
	} else {
		oldest, found, err := l.reader.OldestOffset(ctx)
		if err != nil {
			return 0, fmt.Errorf("labeler.SeekStart: oldest offset: %w", err)
		}
		if found {
			start = oldest + l.cfg.WarmupSkip
		}
	}

	if err := l.reader.Seek(ctx, start); err != nil {
		return 0, fmt.Errorf("labeler.SeekStart: seek %d: %w", start, err)
	}
	slog.Info("labeler: reader positioned", "offset", start, "resumed", ok)
	return start, nil
}

// Run pulls events until a window completes, emits its label and slides over
// the buffered events for as long as they keep completing windows. It stops on
// ctx cancellation, when MaxLabels is reached, or when the stream is exhausted.
func (l *Labeler) Run(ctx context.Context) error {
	slog.Info("labeler starting",
		"label_topic", l.cfg.LabelTopic,
		"max_labels", l.cfg.MaxLabels,
	)

	for {
		if ctx.Err() != nil {
			slog.Info("labeler stopped", "labels", l.stats.Labels)
			return nil
		}

		err := l.fill(ctx)
		switch {
		case errors.Is(err, ErrStreamExhausted):
			slog.Warn("labeler: stream exhausted before window completed, stopping",
				"buffered", l.window.Len(),
				"labels", l.stats.Labels,
			)
			return nil
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			slog.Info("labeler stopped", "labels", l.stats.Labels)
			return nil
		case err != nil:
			return err
		}

		// Buffered events may already complete the next windows.
		for {
			if ctx.Err() != nil {
				slog.Info("labeler stopped", "labels", l.stats.Labels, "buffered", l.window.Len())
				return nil
			}
			if err := l.emit(ctx); err != nil {
				if ctx.Err() != nil {
					// unsent window is re-emitted on restart
					slog.Info("labeler stopped", "labels", l.stats.Labels, "buffered", l.window.Len())
					return nil
				}
				return fmt.Errorf("labeler.Run: %w", err)
			}
			if l.cfg.MaxLabels > 0 && l.stats.Labels >= l.cfg.MaxLabels {
				slog.Info("labeler: label limit reached", "labels", l.stats.Labels)
				return nil
			}

			before := l.window.Resets()
			complete := l.window.Slide()
			l.stats.Slides++
			l.metrics.WindowSlid()
			l.countResets(before)
			if !complete {
				break
			}
		}
	}
}

// fill feeds events to the window until it completes.
func (l *Labeler) fill(ctx context.Context) error {
	complete := false
	_, err := l.reader.ForEach(ctx, func(ev domain.QuoteEvent) bool {
		before := l.window.Resets()
		complete = l.window.Ingest(ev)
		l.stats.Events++
		l.metrics.EventIngested()
		l.countResets(before)
		return !complete
	})
	if err != nil {
		return fmt.Errorf("labeler.fill: read stream: %w", err)
	}
	if !complete {
		return ErrStreamExhausted
	}
	return nil
}

// emit publishes the label of the completed window and then stores it,
// retrying with backoff. The stored row is what resume trusts, so it is only
// written once the publish went through. The window is left untouched when
// emit fails.
func (l *Labeler) emit(ctx context.Context) error {
	rec := domain.NewLabelRecord(l.window.IDs(), l.window.Label(), l.now())
	payload, err := json.Marshal(rec.Event())
	if err != nil {
		return fmt.Errorf("labeler.emit: marshal: %w", err)
	}

	sent := false
	for attempt := 0; ; attempt++ {
		sent, err = l.persist(ctx, rec, payload, sent)
		if err == nil {
			break
		}
		l.metrics.EmitFailed()
		if attempt >= l.cfg.PublishRetries || ctx.Err() != nil {
			return fmt.Errorf("labeler.emit: offset_from %d: %w", rec.OffsetFrom, err)
		}
		slog.Warn("labeler: emit failed, retrying",
			"offset_from", rec.OffsetFrom,
			"attempt", attempt+1,
			"err", err,
		)
		l.sleep(ctx, attempt)
	}

	l.stats.Labels++
	l.stats.Last = rec
	l.metrics.LabelEmitted()

	slog.Debug("label written",
		"event_id", rec.EventID,
		"offset_from", rec.OffsetFrom,
		"offset_to", rec.OffsetTo,
		"favorable", rec.Label.Favorable(),
	)
	if l.notifier != nil {
		if err := l.notifier.Notify(ctx, rec); err != nil {
			slog.Warn("notifier error", "err", err)
		}
	}
	return nil
}

// persist publishes unless sent is already true, then stores the label.
// It reports whether the publish has happened.
func (l *Labeler) persist(ctx context.Context, rec domain.LabelRecord, payload []byte, sent bool) (bool, error) {
	if !sent {
		if err := l.publisher.Publish(ctx, l.cfg.LabelTopic, rec.EventID, rec.Timestamp, payload); err != nil {
			return false, fmt.Errorf("publish: %w", err)
		}
	}
	if err := l.store.SaveLabel(ctx, rec); err != nil {
		return true, fmt.Errorf("store: %w", err)
	}
	return true, nil
}

func (l *Labeler) countResets(before int) {
	for i := before; i < l.window.Resets(); i++ {
		l.stats.Resets++
		l.metrics.WindowReset()
	}
}

// sleep waits with exponential backoff, honouring ctx.
func (l *Labeler) sleep(ctx context.Context, attempt int) {
	select {
	case <-time.After(backoff(l.cfg.RetryWait, attempt)):
	case <-ctx.Done():
	}
}

// backoff returns base * 2^attempt, capped at maxRetryWait.
func backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 0 {
		return base
	}
	// 2^30 * base is past the cap for any sane base
	if attempt > 30 {
		return maxRetryWait
	}
	wait := base * time.Duration(1<<attempt)
	if wait <= 0 || wait > maxRetryWait {
		return maxRetryWait
	}
	return wait
}

type nopMetrics struct{}

func (nopMetrics) EventIngested() {}
func (nopMetrics) WindowReset()   {}
func (nopMetrics) WindowSlid()    {}
func (nopMetrics) LabelEmitted()  {}
func (nopMetrics) EmitFailed()    {}
