package cart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustSelection(t *testing.T, sizeCode string, quantity int, unitPrice float64) PrintSelection {
	t.Helper()
	sel, err := NewSelection(sizeCode, sizeCode, quantity, unitPrice)
	require.NoError(t, err)
	return sel
}

func TestNewSelectionValidation(t *testing.T) {
	_, err := NewSelection("", "4x6", 1, 0.29)
	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "sizeCode", verr.Field)

	_, err = NewSelection("4x6", "4x6", 0, 0.29)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "quantity", verr.Field)

	_, err = NewSelection("4x6", "4x6", 1, 0)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "unitPrice", verr.Field)
}

func TestNewSelectionComputesLineTotal(t *testing.T) {
	sel := mustSelection(t, "5x7", 3, 0.99)
	assert.InDelta(t, 2.97, sel.LineTotal, 1e-9)
}

func TestUpsertItemReplacesByPhoto(t *testing.T) {
	c := New("user-1", 0)

	first, err := NewItem("item-1", "photo-1", "a.jpg", []PrintSelection{mustSelection(t, "4x6", 1, 0.29)})
	require.NoError(t, err)
	assert.False(t, c.UpsertItem(first))

	second, err := NewItem("item-2", "photo-1", "a.jpg", []PrintSelection{mustSelection(t, "8x10", 2, 3.99)})
	require.NoError(t, err)
	assert.True(t, c.UpsertItem(second))

	require.Len(t, c.Items, 1)
	// Replacement keeps the original item id; selections are not merged.
	assert.Equal(t, "item-1", c.Items[0].ID)
	require.Len(t, c.Items[0].Selections, 1)
	assert.Equal(t, "8x10", c.Items[0].Selections[0].SizeCode)
}

func TestUpdateItemUnknownID(t *testing.T) {
	c := New("user-1", 0)
	err := c.UpdateItem("nope", []PrintSelection{mustSelection(t, "4x6", 1, 0.29)})
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestRecalculateSummary(t *testing.T) {
	c := New("user-1", 0)

	item1, err := NewItem("item-1", "photo-1", "a.jpg", []PrintSelection{
		mustSelection(t, "4x6", 10, 0.29),
		mustSelection(t, "5x7", 1, 0.99),
	})
	require.NoError(t, err)
	item2, err := NewItem("item-2", "photo-2", "b.jpg", []PrintSelection{
		mustSelection(t, "4x6", 2, 0.29),
	})
	require.NoError(t, err)
	c.UpsertItem(item1)
	c.UpsertItem(item2)

	c.Recalculate(0.0625)

	assert.Equal(t, 2, c.Summary.TotalPhotos)
	assert.Equal(t, 13, c.Summary.TotalPrints)
	assert.InDelta(t, 4.47, c.Summary.Subtotal, 1e-9)
	assert.InDelta(t, 4.47*0.0625, c.Summary.EstimatedTax, 1e-9)
	assert.InDelta(t, 4.47*1.0625, c.Summary.EstimatedTotal, 1e-9)
}

func TestRecalculateAfterRemoveAndClear(t *testing.T) {
	c := New("user-1", 0)
	item, err := NewItem("item-1", "photo-1", "a.jpg", []PrintSelection{mustSelection(t, "4x6", 1, 0.29)})
	require.NoError(t, err)
	c.UpsertItem(item)
	c.Recalculate(0.0625)

	require.NoError(t, c.RemoveItem("item-1"))
	c.Recalculate(0.0625)
	assert.Zero(t, c.Summary.Subtotal)
	assert.Zero(t, c.Summary.TotalPhotos)

	c.Clear()
	assert.Empty(t, c.Items)
}

func TestTouchSlidesExpiry(t *testing.T) {
	c := New("user-1", time.Hour)
	before := c.ExpiresAt

	time.Sleep(5 * time.Millisecond)
	c.Touch(time.Hour)

	assert.True(t, c.ExpiresAt.After(before))
	assert.False(t, c.Expired(time.Now().UTC()))
	assert.True(t, c.Expired(time.Now().UTC().Add(2*time.Hour)))
}

func TestDefaultTTLApplied(t *testing.T) {
	c := New("user-1", 0)
	window := time.Until(c.ExpiresAt)
	assert.InDelta(t, DefaultTTL.Hours(), window.Hours(), 0.01)
}
