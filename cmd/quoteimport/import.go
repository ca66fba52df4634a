package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/alejandrodnm/ticklabel/internal/adapters/storage"
	"github.com/alejandrodnm/ticklabel/internal/domain"
)

const importBatch = 1000

// importQuotes appends rows of offset,event_id,bid,ask,bid_ts,ask_ts to topic.
// Timestamps are RFC 3339. A header row starting with "offset" is skipped.
func importQuotes(ctx context.Context, series *storage.SeriesStore, topic, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("importQuotes: open: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 6

	var (
		total int
		batch = make([]domain.QuoteEvent, 0, importBatch)
		line  int
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := series.AppendQuotes(ctx, topic, batch); err != nil {
			return err
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return total, fmt.Errorf("importQuotes: line %d: %w", line, err)
		}
		if line == 1 && rec[0] == "offset" {
			continue
		}
		ev, err := parseQuote(rec)
		if err != nil {
			return total, fmt.Errorf("importQuotes: line %d: %w", line, err)
		}
		batch = append(batch, ev)
		if len(batch) == importBatch {
			if err := flush(); err != nil {
				return total, fmt.Errorf("importQuotes: %w", err)
			}
		}
	}
	if err := flush(); err != nil {
		return total, fmt.Errorf("importQuotes: %w", err)
	}
	return total, nil
}

func parseQuote(rec []string) (domain.QuoteEvent, error) {
	var ev domain.QuoteEvent
	var err error
	if ev.Offset, err = strconv.ParseUint(rec[0], 10, 64); err != nil {
		return ev, fmt.Errorf("offset: %w", err)
	}
	if ev.EventID, err = strconv.ParseUint(rec[1], 10, 64); err != nil {
		return ev, fmt.Errorf("event_id: %w", err)
	}
	if ev.Bid, err = strconv.ParseFloat(rec[2], 64); err != nil {
		return ev, fmt.Errorf("bid: %w", err)
	}
	if ev.Ask, err = strconv.ParseFloat(rec[3], 64); err != nil {
		return ev, fmt.Errorf("ask: %w", err)
	}
	if ev.BidTime, err = time.Parse(time.RFC3339Nano, rec[4]); err != nil {
		return ev, fmt.Errorf("bid_ts: %w", err)
	}
	if ev.AskTime, err = time.Parse(time.RFC3339Nano, rec[5]); err != nil {
		return ev, fmt.Errorf("ask_ts: %w", err)
	}
	return ev, nil
}
