package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quote(bid, ask float64) QuoteEvent {
	ts := time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC)
	return QuoteEvent{Bid: bid, Ask: ask, BidTime: ts, AskTime: ts}
}

func TestNewPriceChange_CrossesSpread(t *testing.T) {
	pc := NewPriceChange(quote(102.10, 102.12), quote(100.00, 100.02))
	assert.True(t, pc.Bid.Equal(decimal.RequireFromString("2.08")), "bid change %s", pc.Bid)
	assert.True(t, pc.Ask.Equal(decimal.RequireFromString("2.12")), "ask change %s", pc.Ask)
}

func TestNewPriceChange_RoundsToCents(t *testing.T) {
	pc := NewPriceChange(quote(100.1049, 100.1151), quote(100.00, 100.00))
	assert.Equal(t, "0.1", pc.Bid.String())
	assert.Equal(t, "0.12", pc.Ask.String())
}

func TestQuoteEvent_TimeUsesLatestSide(t *testing.T) {
	base := time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC)
	q := QuoteEvent{BidTime: base, AskTime: base.Add(time.Second)}
	assert.Equal(t, base.Add(time.Second), q.Time())

	q = QuoteEvent{BidTime: base.Add(2 * time.Second), AskTime: base}
	assert.Equal(t, base.Add(2*time.Second), q.Time())
}

// Escenario A: bid sube 2.08 contra el ask de referencia.
func TestCheck_UpResolvesFavorable(t *testing.T) {
	c := NewCheck(NewCheckSpec(4, DirectionUp, 2.00, -1.00))
	pc := NewPriceChange(quote(102.10, 102.12), quote(100.00, 100.02))

	require.True(t, c.Track(pc))
	fav, ok := c.Result()
	assert.True(t, ok)
	assert.True(t, fav)
}

// Escenario B: el ask cae 1.48 contra el bid de referencia.
func TestCheck_DropResolvesDownFavorableAndUpAdverse(t *testing.T) {
	origin := quote(100.00, 100.02)
	pc := NewPriceChange(quote(98.50, 98.52), origin)
	assert.Equal(t, "-1.48", pc.Ask.String())

	down := NewCheck(NewCheckSpec(0, DirectionDown, -1.00, 0.50))
	up := NewCheck(NewCheckSpec(1, DirectionUp, 2.00, -1.00))

	require.True(t, down.Track(pc))
	require.True(t, up.Track(pc))

	fav, _ := down.Result()
	assert.True(t, fav)
	fav, _ = up.Result()
	assert.False(t, fav)
}

func TestCheck_StaysActiveInsideThresholds(t *testing.T) {
	c := NewCheck(NewCheckSpec(0, DirectionUp, 0.10, -0.05))
	assert.False(t, c.Track(NewPriceChange(quote(100.05, 100.06), quote(100.00, 100.01))))
	_, ok := c.Result()
	assert.False(t, ok)
	assert.False(t, c.Resolved())
}

func TestCheck_FavorableWinsTie(t *testing.T) {
	// Thresholds mal configurados: ambas condiciones se cumplen a la vez.
	c := NewCheck(CheckSpec{
		Direction: DirectionUp,
		Favorable: decimal.RequireFromString("0.01"),
		Adverse:   decimal.RequireFromString("5.00"),
	})
	require.True(t, c.Track(PriceChange{Bid: decimal.RequireFromString("0.02"), Ask: decimal.RequireFromString("0.03")}))
	fav, _ := c.Result()
	assert.True(t, fav)
}

func TestCheck_ResultStableUntilReset(t *testing.T) {
	c := NewCheck(NewCheckSpec(0, DirectionDown, -0.02, 0.01))
	require.True(t, c.Track(NewPriceChange(quote(99.90, 99.92), quote(100.00, 100.01))))
	first, _ := c.Result()

	// Un movimiento opuesto posterior no cambia el resultado.
	assert.False(t, c.Track(NewPriceChange(quote(101.00, 101.02), quote(100.00, 100.01))))
	again, ok := c.Result()
	assert.True(t, ok)
	assert.Equal(t, first, again)

	c.Reset()
	_, ok = c.Result()
	assert.False(t, ok)
}

func TestCheckSpec_Validate(t *testing.T) {
	assert.NoError(t, NewCheckSpec(0, DirectionUp, 0.02, -0.01).Validate())
	assert.NoError(t, NewCheckSpec(1, DirectionDown, -0.02, 0.01).Validate())
	assert.Error(t, NewCheckSpec(2, DirectionUp, -0.02, 0.01).Validate())
	assert.Error(t, NewCheckSpec(3, DirectionDown, 0.02, -0.01).Validate())
	assert.Error(t, NewCheckSpec(4, Direction(9), 0.02, -0.01).Validate())
	assert.Error(t, NewCheckSpec(-1, DirectionUp, 0.02, -0.01).Validate())
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection(" UP ")
	require.NoError(t, err)
	assert.Equal(t, DirectionUp, d)

	d, err = ParseDirection("down")
	require.NoError(t, err)
	assert.Equal(t, DirectionDown, d)
	assert.Equal(t, "down", d.String())

	_, err = ParseDirection("sideways")
	assert.Error(t, err)
}
