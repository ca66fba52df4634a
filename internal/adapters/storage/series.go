package storage

// series.go — stream de series sobre SQLite.
//
// Cada topic es un log append-only ordenado por offset:
//   - `series_quotes`: ticks de entrada (topic, offset) → bid/ask y timestamps en epoch millis.
//   - `series_messages`: mensajes publicados (labels), con id autoincremental como offset
//     y un msg_id UUID por mensaje.
//
// El reader lee en batches por offset ascendente, con un rate limiter opcional
// para no saturar la DB cuando el consumidor va muy por detrás.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/ticklabel/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const seriesSchema = `
CREATE TABLE IF NOT EXISTS series_quotes (
    topic      TEXT    NOT NULL,
    offset_id  INTEGER NOT NULL,
    event_id   INTEGER NOT NULL,
    bid        REAL    NOT NULL,
    ask        REAL    NOT NULL,
    bid_ts     INTEGER NOT NULL,
    ask_ts     INTEGER NOT NULL,
    PRIMARY KEY (topic, offset_id)
);

CREATE TABLE IF NOT EXISTS series_messages (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    msg_id     TEXT    NOT NULL,
    topic      TEXT    NOT NULL,
    msg_key    INTEGER NOT NULL,
    ts         INTEGER NOT NULL,
    payload    BLOB    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_series_messages_topic ON series_messages(topic, id);
`

const defaultBatchSize = 500

// Message es un mensaje leído de un topic de salida.
type Message struct {
	Offset    int64
	ID        uuid.UUID
	Topic     string
	Key       uint64
	Timestamp time.Time
	Payload   []byte
}

// SeriesStore implementa el stream de entrada y ports.LabelPublisher.
type SeriesStore struct {
	db *sql.DB
}

// NewSeriesStore abre (o crea) el stream en la ruta dada.
func NewSeriesStore(path string) (*SeriesStore, error) {
	db, err := openSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSeriesStore: %w", err)
	}
	if _, err := db.Exec(seriesSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSeriesStore: apply schema: %w", err)
	}
	return &SeriesStore{db: db}, nil
}

// AppendQuotes escribe quotes en el topic. Offsets ya presentes se ignoran,
// así que re-entregar el mismo batch no duplica eventos.
func (s *SeriesStore) AppendQuotes(ctx context.Context, topic string, quotes []domain.QuoteEvent) error {
	if len(quotes) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.AppendQuotes: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO series_quotes (topic, offset_id, event_id, bid, ask, bid_ts, ask_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(topic, offset_id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("storage.AppendQuotes: prepare: %w", err)
	}
	defer stmt.Close()

	for _, q := range quotes {
		if _, err := stmt.ExecContext(ctx,
			topic,
			int64(q.Offset),
			int64(q.EventID),
			q.Bid,
			q.Ask,
			q.BidTime.UnixMilli(),
			q.AskTime.UnixMilli(),
		); err != nil {
			return fmt.Errorf("storage.AppendQuotes: insert %d: %w", q.Offset, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.AppendQuotes: commit: %w", err)
	}
	return nil
}

// Publish añade un mensaje al topic. Implementa ports.LabelPublisher.
func (s *SeriesStore) Publish(ctx context.Context, topic string, key uint64, ts time.Time, payload []byte) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO series_messages (msg_id, topic, msg_key, ts, payload) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), topic, int64(key), ts.UnixMilli(), payload,
	); err != nil {
		return fmt.Errorf("storage.Publish: %s: %w", topic, err)
	}
	return nil
}

// Messages devuelve hasta limit mensajes del topic con offset > after.
func (s *SeriesStore) Messages(ctx context.Context, topic string, after int64, limit int) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, msg_id, topic, msg_key, ts, payload
		FROM series_messages
		WHERE topic = ? AND id > ?
		ORDER BY id ASC
		LIMIT ?
	`, topic, after, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.Messages: query: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		var msgID string
		var key, ts int64
		if err := rows.Scan(&m.Offset, &msgID, &m.Topic, &key, &ts, &m.Payload); err != nil {
			return nil, fmt.Errorf("storage.Messages: scan row: %w", err)
		}
		if m.ID, err = uuid.Parse(msgID); err != nil {
			return nil, fmt.Errorf("storage.Messages: msg_id %q: %w", msgID, err)
		}
		m.Key = uint64(key)
		m.Timestamp = time.UnixMilli(ts).UTC()
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SeriesStore) Close() error {
	return s.db.Close()
}

// ReaderConfig controla cómo lee un SeriesReader.
type ReaderConfig struct {
	BatchSize        int
	BatchesPerSecond float64 // <= 0 sin límite
}

// SeriesReader lee quotes de un topic. Implementa ports.QuoteReader.
// No es seguro para uso concurrente.
type SeriesReader struct {
	store     *SeriesStore
	topic     string
	next      uint64
	batchSize int
	limiter   *rate.Limiter
}

// Reader crea un reader suscrito a topic, posicionado en el offset 0.
func (s *SeriesStore) Reader(topic string, cfg ReaderConfig) *SeriesReader {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	limit := rate.Inf
	if cfg.BatchesPerSecond > 0 {
		limit = rate.Limit(cfg.BatchesPerSecond)
	}
	return &SeriesReader{
		store:     s,
		topic:     topic,
		batchSize: cfg.BatchSize,
		limiter:   rate.NewLimiter(limit, 1),
	}
}

// Seek posiciona el reader en offset.
func (r *SeriesReader) Seek(_ context.Context, offset uint64) error {
	r.next = offset
	return nil
}

// Position devuelve el próximo offset que se intentará leer.
func (r *SeriesReader) Position() uint64 {
	return r.next
}

// OldestOffset devuelve el menor offset del topic.
func (r *SeriesReader) OldestOffset(ctx context.Context) (uint64, bool, error) {
	var oldest sql.NullInt64
	if err := r.store.db.QueryRowContext(ctx,
		`SELECT MIN(offset_id) FROM series_quotes WHERE topic = ?`, r.topic,
	).Scan(&oldest); err != nil {
		return 0, false, fmt.Errorf("storage.OldestOffset: %w", err)
	}
	if !oldest.Valid {
		return 0, false, nil
	}
	return uint64(oldest.Int64), true, nil
}

// ForEach entrega quotes al handler hasta que devuelva false o no queden datos.
func (r *SeriesReader) ForEach(ctx context.Context, handler func(domain.QuoteEvent) bool) (int, error) {
	n := 0
	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if err := r.limiter.Wait(ctx); err != nil {
			return n, fmt.Errorf("storage.ForEach: rate limiter: %w", err)
		}

		batch, err := r.fetch(ctx)
		if err != nil {
			return n, err
		}
		if len(batch) == 0 {
			return n, nil
		}

		for _, q := range batch {
			r.next = q.Offset + 1
			n++
			if !handler(q) {
				return n, nil
			}
		}
	}
}

func (r *SeriesReader) fetch(ctx context.Context) ([]domain.QuoteEvent, error) {
	rows, err := r.store.db.QueryContext(ctx, `
		SELECT offset_id, event_id, bid, ask, bid_ts, ask_ts
		FROM series_quotes
		WHERE topic = ? AND offset_id >= ?
		ORDER BY offset_id ASC
		LIMIT ?
	`, r.topic, int64(r.next), r.batchSize)
	if err != nil {
		return nil, fmt.Errorf("storage.ForEach: query: %w", err)
	}
	defer rows.Close()

	batch := make([]domain.QuoteEvent, 0, r.batchSize)
	for rows.Next() {
		var offset, eventID, bidTS, askTS int64
		var q domain.QuoteEvent
		if err := rows.Scan(&offset, &eventID, &q.Bid, &q.Ask, &bidTS, &askTS); err != nil {
			return nil, fmt.Errorf("storage.ForEach: scan row: %w", err)
		}
		q.Offset = uint64(offset)
		q.EventID = uint64(eventID)
		q.BidTime = time.UnixMilli(bidTS).UTC()
		q.AskTime = time.UnixMilli(askTS).UTC()
		batch = append(batch, q)
	}
	return batch, rows.Err()
}
