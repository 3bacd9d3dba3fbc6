package types

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestUnitApplyTo(t *testing.T) {
	ref := decimal.NewFromInt(200)

	u := NewUnit(decimal.NewFromInt(5))
	assert.True(t, u.ApplyTo(ref, 1).Equal(decimal.NewFromInt(205)))
	assert.True(t, u.ApplyTo(ref, -1).Equal(decimal.NewFromInt(195)))

	p := NewPercentUnit(decimal.NewFromInt(10))
	assert.True(t, p.ApplyTo(ref, 1).Equal(decimal.NewFromInt(220)))
	assert.True(t, p.ApplyTo(ref, -1).Equal(decimal.NewFromInt(180)))

	l := NewLimitUnit(decimal.NewFromInt(117))
	assert.True(t, l.ApplyTo(ref, 1).Equal(decimal.NewFromInt(117)))
	assert.True(t, l.ApplyTo(ref, -1).Equal(decimal.NewFromInt(117)))
}

func TestSideInvert(t *testing.T) {
	assert.Equal(t, SideSell, SideBuy.Invert())
	assert.Equal(t, SideBuy, SideSell.Invert())
	assert.Equal(t, int64(1), SideBuy.Sign())
	assert.Equal(t, int64(-1), SideSell.Sign())
}
