package issues

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferDedup(t *testing.T) {
	b := NewBuffer(7)

	assert.True(t, b.Raise(100, CategoryAnomaly, DescMultipleParents))
	assert.False(t, b.Raise(100, CategoryAnomaly, DescMultipleParents), "same page and description")
	assert.False(t, b.Raise(100, CategoryError, DescMultipleParents), "category is not part of the key")
	assert.True(t, b.Raise(101, CategoryAnomaly, DescMultipleParents))

	pending := b.Drain()
	require.Len(t, pending, 2)
	assert.Equal(t, Issue{JobID: 7, PageID: 100, Category: CategoryAnomaly, Description: DescMultipleParents}, pending[0])
	assert.Equal(t, 0, b.Len())

	// Keys survive a flush
	assert.False(t, b.Raise(100, CategoryAnomaly, DescMultipleParents))

	raised, dropped := b.Counts()
	assert.Equal(t, 2, raised)
	assert.Equal(t, 3, dropped)
}

func TestBufferPreload(t *testing.T) {
	b := NewBuffer(3)
	b.Preload([]Key{{PageID: 5, Description: DescMissingGender}})

	assert.False(t, b.Raise(5, CategoryIncomplete, DescMissingGender))
	assert.True(t, b.Raise(6, CategoryIncomplete, DescMissingGender))
	assert.Equal(t, 1, b.Len())
}

func TestBufferFull(t *testing.T) {
	b := NewBuffer(1)
	assert.False(t, b.Full(2))
	b.Raise(1, CategoryError, "a")
	assert.False(t, b.Full(2))
	b.Raise(1, CategoryError, "b")
	assert.True(t, b.Full(2))
	assert.False(t, b.Full(0), "zero threshold never fills")
}

func TestBufferForget(t *testing.T) {
	b := NewBuffer(1)
	b.Raise(9, CategoryAnomaly, DescEventsBeforeBirth)
	batch := b.Drain()

	b.Forget(batch)
	assert.True(t, b.Raise(9, CategoryAnomaly, DescEventsBeforeBirth), "rolled back issue is raised again")
}

func TestReplay(t *testing.T) {
	b := NewBuffer(2)
	n := Replay(b, 40, []Finding{
		{Category: CategoryIncomplete, Description: DescMissingGender},
		{Category: CategoryAnomaly, Description: DescMultipleParents},
		{Category: CategoryAnomaly, Description: DescMultipleParents},
	})
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, b.Len())
}

func TestCategoryValid(t *testing.T) {
	for _, c := range Categories {
		assert.True(t, c.Valid(), c)
	}
	assert.False(t, Category("Warning").Valid())
}
