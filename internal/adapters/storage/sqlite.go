package storage

// sqlite.go — persistencia de labels.
//
// Estrategia:
//   - `labels`: UNA fila por ventana completada, clave offset_from.
//     Reescribir el mismo offset_from es un UPSERT → reintentos idempotentes.
//   - El vector se guarda como BLOB de float32 little-endian: leerlo de vuelta
//     devuelve exactamente los mismos bytes que se escribieron.
//   - MAX(offset_from) es el punto de reanudación tras un reinicio.

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/alejandrodnm/ticklabel/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
-- Un label por origen de ventana
CREATE TABLE IF NOT EXISTS labels (
    offset_from INTEGER PRIMARY KEY,
    event_id    INTEGER NOT NULL,
    timestamp   INTEGER NOT NULL,
    offset_to   INTEGER NOT NULL,
    label       BLOB    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_labels_ts ON labels(timestamp DESC);
`

// SQLiteStorage implementa ports.LabelStorage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada y aplica el schema.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := openSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

// SaveLabel hace upsert del label con offset_from como clave.
func (s *SQLiteStorage) SaveLabel(ctx context.Context, rec domain.LabelRecord) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO labels (offset_from, event_id, timestamp, offset_to, label)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(offset_from) DO UPDATE SET
			event_id  = excluded.event_id,
			timestamp = excluded.timestamp,
			offset_to = excluded.offset_to,
			label     = excluded.label
	`,
		int64(rec.OffsetFrom),
		int64(rec.EventID),
		rec.Timestamp.UnixMilli(),
		int64(rec.OffsetTo),
		encodeLabel(rec.Label),
	); err != nil {
		return fmt.Errorf("storage.SaveLabel: upsert %d: %w", rec.OffsetFrom, err)
	}
	return nil
}

// GetLabel devuelve el label guardado para offset_from. ok es false si no existe.
func (s *SQLiteStorage) GetLabel(ctx context.Context, offsetFrom uint64) (domain.LabelRecord, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT offset_from, event_id, timestamp, offset_to, label
		FROM labels WHERE offset_from = ?
	`, int64(offsetFrom))

	rec, err := scanLabel(row)
	if err == sql.ErrNoRows {
		return domain.LabelRecord{}, false, nil
	}
	if err != nil {
		return domain.LabelRecord{}, false, fmt.Errorf("storage.GetLabel: %w", err)
	}
	return rec, true, nil
}

// RecentLabels devuelve los últimos n labels por offset_from, el más reciente primero.
func (s *SQLiteStorage) RecentLabels(ctx context.Context, n int) ([]domain.LabelRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT offset_from, event_id, timestamp, offset_to, label
		FROM labels
		ORDER BY offset_from DESC
		LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("storage.RecentLabels: query: %w", err)
	}
	defer rows.Close()

	var recs []domain.LabelRecord
	for rows.Next() {
		rec, err := scanLabel(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.RecentLabels: scan row: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// MaxOffsetFrom devuelve el mayor offset_from persistido.
func (s *SQLiteStorage) MaxOffsetFrom(ctx context.Context) (uint64, bool, error) {
	var maxFrom sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(offset_from) FROM labels`).Scan(&maxFrom); err != nil {
		return 0, false, fmt.Errorf("storage.MaxOffsetFrom: %w", err)
	}
	if !maxFrom.Valid {
		return 0, false, nil
	}
	return uint64(maxFrom.Int64), true, nil
}

// CountLabels devuelve cuántos labels hay persistidos.
func (s *SQLiteStorage) CountLabels(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM labels`).Scan(&n); err != nil {
		return 0, fmt.Errorf("storage.CountLabels: %w", err)
	}
	return n, nil
}

// ResetLabels borra todos los labels.
func (s *SQLiteStorage) ResetLabels(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM labels`); err != nil {
		return fmt.Errorf("storage.ResetLabels: %w", err)
	}
	return nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

// openSQLite abre la DB con un único writer y WAL para archivos en disco.
func openSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("set WAL mode: %w", err)
		}
	}
	return db, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLabel(r rowScanner) (domain.LabelRecord, error) {
	var offsetFrom, eventID, ts, offsetTo int64
	var blob []byte
	if err := r.Scan(&offsetFrom, &eventID, &ts, &offsetTo, &blob); err != nil {
		return domain.LabelRecord{}, err
	}
	label, err := decodeLabel(blob)
	if err != nil {
		return domain.LabelRecord{}, err
	}
	return domain.LabelRecord{
		EventID:    uint64(eventID),
		Timestamp:  time.UnixMilli(ts).UTC(),
		OffsetFrom: uint64(offsetFrom),
		OffsetTo:   uint64(offsetTo),
		Label:      label,
	}, nil
}

// encodeLabel serializa el vector como float32 little-endian.
func encodeLabel(l domain.Label) []byte {
	buf := make([]byte, 4*len(l))
	for i, v := range l {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeLabel(b []byte) (domain.Label, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("label blob of %d bytes is not a float32 array", len(b))
	}
	l := domain.NewLabel(len(b) / 4)
	for i := range l {
		l[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return l, nil
}
