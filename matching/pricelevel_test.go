package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgequant/emulator/types"
)

func newLevelEntry(pool *entryPool, txn, balance int64) *types.ExecutionMessage {
	entry := pool.alloc()
	entry.TransactionID = txn
	entry.Volume = d(balance)
	entry.Balance = d(balance)
	return entry
}

func TestPriceLevelPeelTail(t *testing.T) {
	t.Run("peels newest anonymous volume first", func(t *testing.T) {
		pool := newEntryPool()
		level := NewPriceLevel(d(100))
		level.addEntry(newLevelEntry(pool, 0, 4))
		level.addEntry(newLevelEntry(pool, 0, 6))

		removed := level.peelTail(d(5), pool)

		assert.True(t, removed.Equal(d(5)))
		require.Len(t, level.orders, 2)
		assert.True(t, level.orders[1].Balance.Equal(d(1)), "newest entry is split in place")
		assert.True(t, level.volume.Equal(d(5)))
	})

	t.Run("skips tracked entries", func(t *testing.T) {
		pool := newEntryPool()
		level := NewPriceLevel(d(100))
		level.addEntry(newLevelEntry(pool, 7, 4))
		level.addEntry(newLevelEntry(pool, 0, 3))

		removed := level.peelTail(d(10), pool)

		assert.True(t, removed.Equal(d(3)), "only anonymous volume can be peeled")
		require.Len(t, level.orders, 1)
		assert.Equal(t, int64(7), level.orders[0].TransactionID)
		assert.True(t, level.volume.Equal(d(4)))
	})
}

func TestPriceLevelRemoveByTransaction(t *testing.T) {
	pool := newEntryPool()
	level := NewPriceLevel(d(100))
	level.addEntry(newLevelEntry(pool, 1, 4))
	level.addEntry(newLevelEntry(pool, 2, 6))

	entry, ok := level.removeByTransaction(1)
	require.True(t, ok)
	assert.True(t, entry.Balance.Equal(d(4)))
	assert.True(t, level.volume.Equal(d(6)))

	_, ok = level.removeByTransaction(42)
	assert.False(t, ok)

	q := level.quote()
	assert.True(t, q.Volume.Equal(d(6)))
	assert.Equal(t, 1, q.OrderCount)
}
