package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alejandrodnm/ticklabel/internal/adapters/storage"
	"github.com/alejandrodnm/ticklabel/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportQuotes(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "quotes.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(
		"offset,event_id,bid,ask,bid_ts,ask_ts\n"+
			"0,1000,100.00,100.01,2024-03-04T15:00:00Z,2024-03-04T15:00:00Z\n"+
			"1,1001,100.05,100.06,2024-03-04T15:00:01Z,2024-03-04T15:00:02Z\n",
	), 0o600))

	series, err := storage.NewSeriesStore(":memory:")
	require.NoError(t, err)
	defer series.Close()

	ctx := context.Background()
	n, err := importQuotes(ctx, series, "raw.SPY.quote", csvPath)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var got []domain.QuoteEvent
	_, err = series.Reader("raw.SPY.quote", storage.ReaderConfig{}).ForEach(ctx, func(ev domain.QuoteEvent) bool {
		got = append(got, ev)
		return true
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(1001), got[1].EventID)
	assert.Equal(t, 100.06, got[1].Ask)
	assert.Equal(t, "2024-03-04T15:00:02Z", got[1].Time().UTC().Format("2006-01-02T15:04:05Z07:00"))
}

func TestImportQuotes_BadRow(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("0,1000,abc,100.01,2024-03-04T15:00:00Z,2024-03-04T15:00:00Z\n"), 0o600))

	series, err := storage.NewSeriesStore(":memory:")
	require.NoError(t, err)
	defer series.Close()

	_, err = importQuotes(context.Background(), series, "raw.SPY.quote", csvPath)
	assert.ErrorContains(t, err, "line 1")
}
