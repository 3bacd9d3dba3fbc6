package protective

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgequant/emulator/types"
)

var testTime = time.Date(2020, 4, 7, 10, 30, 0, 0, time.UTC)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func df(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func newProc(t *testing.T, side types.Side, entry int64, isUpTrend, isTrailing bool, level types.Unit) *Processor {
	t.Helper()
	p, err := NewProcessor(side, d(entry), isUpTrend, isTrailing, level, false, types.Unit{}, 0, testTime)
	require.NoError(t, err)
	return p
}

func TestProcessorLevels(t *testing.T) {
	t.Run("absolute take above a long entry", func(t *testing.T) {
		p := newProc(t, types.SideBuy, 100, true, false, types.NewUnit(d(5)))
		assert.True(t, p.ActivationLevel().Equal(d(105)))

		assert.Nil(t, p.GetActivationPrice(d(104), testTime))

		price := p.GetActivationPrice(d(105), testTime)
		require.NotNil(t, price)
		assert.True(t, price.Equal(d(105)))
	})

	t.Run("percent stop below a long entry", func(t *testing.T) {
		p := newProc(t, types.SideBuy, 100, false, false, types.NewPercentUnit(d(10)))
		assert.True(t, p.ActivationLevel().Equal(d(90)))

		assert.Nil(t, p.GetActivationPrice(d(91), testTime))
		assert.NotNil(t, p.GetActivationPrice(d(90), testTime))
	})

	t.Run("limit unit ignores the entry", func(t *testing.T) {
		p := newProc(t, types.SideBuy, 100, true, false, types.NewLimitUnit(d(117)))
		assert.True(t, p.ActivationLevel().Equal(d(117)))
	})

	t.Run("short side mirrors", func(t *testing.T) {
		take := newProc(t, types.SideSell, 100, false, false, types.NewUnit(d(5)))
		assert.True(t, take.ActivationLevel().Equal(d(95)))
		assert.Nil(t, take.GetActivationPrice(d(96), testTime))
		assert.NotNil(t, take.GetActivationPrice(d(95), testTime))

		stop := newProc(t, types.SideSell, 100, true, false, types.NewUnit(d(5)))
		assert.True(t, stop.ActivationLevel().Equal(d(105)))
		assert.Nil(t, stop.GetActivationPrice(d(104), testTime))
		assert.NotNil(t, stop.GetActivationPrice(d(105), testTime))
	})
}

func TestProcessorTrailing(t *testing.T) {
	t.Run("level follows the extreme", func(t *testing.T) {
		p := newProc(t, types.SideBuy, 102, false, true, types.NewPercentUnit(d(1)))
		assert.True(t, p.ActivationLevel().Equal(df(100.98)))

		// rising price drags the stop up and stays quiet
		assert.Nil(t, p.GetActivationPrice(d(105), testTime))
		assert.True(t, p.ActivationLevel().Equal(df(103.95)))

		// a pullback through the moved level fires at the current price
		price := p.GetActivationPrice(d(103), testTime)
		require.NotNil(t, price)
		assert.True(t, price.Equal(d(103)))

		// the level never moves back down
		assert.Nil(t, newProc(t, types.SideBuy, 102, false, true, types.NewPercentUnit(d(1))).
			GetActivationPrice(df(101.5), testTime))
	})

	t.Run("short side ratchets down", func(t *testing.T) {
		p := newProc(t, types.SideSell, 102, true, true, types.NewPercentUnit(d(1)))
		assert.True(t, p.ActivationLevel().Equal(df(103.02)))

		// a falling market drags the stop down with it
		assert.Nil(t, p.GetActivationPrice(d(99), testTime))
		assert.True(t, p.ActivationLevel().Equal(df(99.99)))

		// the bounce through the moved level fires
		price := p.GetActivationPrice(d(100), testTime)
		require.NotNil(t, price)
		assert.True(t, price.Equal(d(100)))
	})

	t.Run("limit units cannot trail", func(t *testing.T) {
		_, err := NewProcessor(types.SideBuy, d(100), false, true, types.NewLimitUnit(d(90)),
			false, types.Unit{}, 0, testTime)
		assert.ErrorIs(t, err, ErrTrailingNotSupported)
	})
}

func TestProcessorTimeout(t *testing.T) {
	p, err := NewProcessor(types.SideBuy, d(100), true, false, types.NewUnit(d(10)),
		false, types.Unit{}, 5*time.Minute, testTime)
	require.NoError(t, err)

	// below the level and before the timeout
	assert.Nil(t, p.GetActivationPrice(d(105), testTime.Add(time.Minute)))

	// after the timeout only a favorable price activates
	assert.Nil(t, p.GetActivationPrice(d(95), testTime.Add(6*time.Minute)))

	price := p.GetActivationPrice(d(105), testTime.Add(6*time.Minute))
	require.NotNil(t, price)
	assert.True(t, price.Equal(d(105)))
}

func TestProcessorMarketOrders(t *testing.T) {
	p, err := NewProcessor(types.SideBuy, d(100), true, false, types.NewUnit(d(5)),
		true, types.Unit{}, 0, testTime)
	require.NoError(t, err)

	price := p.GetActivationPrice(d(106), testTime)
	require.NotNil(t, price)
	assert.True(t, price.IsZero(), "market order mode reports no price")
}
