package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snail(id int64, priceCents int64) ProductRef {
	return ProductRef{ID: id, Name: "snail", UnitPrice: priceCents}
}

// ============================================================================
// Cart.AddProduct Tests
// ============================================================================

func TestAddProduct_NewLine(t *testing.T) {
	c := NewCart("s1")
	c.AddProduct(snail(1, 1000))

	require.Len(t, c.Lines, 1)
	assert.Equal(t, 1, c.Lines[0].Quantity)
	assert.Equal(t, int64(1000), c.Subtotal())
}

func TestAddProduct_MergesExistingLine(t *testing.T) {
	c := NewCart("s1")
	c.AddProduct(snail(1, 1000))
	c.AddProduct(snail(1, 1000))
	c.AddProduct(snail(1, 1000))

	require.Len(t, c.Lines, 1)
	assert.Equal(t, 3, c.Lines[0].Quantity)
	assert.Equal(t, int64(3000), c.Subtotal())
}

func TestAddProduct_PreservesInsertionOrder(t *testing.T) {
	c := NewCart("s1")
	c.AddProduct(snail(3, 300))
	c.AddProduct(snail(1, 100))
	c.AddProduct(snail(2, 200))
	c.AddProduct(snail(1, 100))

	require.Len(t, c.Lines, 3)
	assert.Equal(t, int64(3), c.Lines[0].Product.ID)
	assert.Equal(t, int64(1), c.Lines[1].Product.ID)
	assert.Equal(t, int64(2), c.Lines[2].Product.ID)
}

// ============================================================================
// Cart.RemoveProduct Tests
// ============================================================================

func TestRemoveProduct_RemovesWholeLine(t *testing.T) {
	c := NewCart("s1")
	c.AddProduct(snail(1, 1000))
	c.AddProduct(snail(1, 1000))
	c.AddProduct(snail(2, 500))

	before := c.Subtotal()
	c.RemoveProduct(1)

	require.Len(t, c.Lines, 1)
	assert.Equal(t, int64(2), c.Lines[0].Product.ID)
	// Subtotal drops by quantity x unit price, not by one unit.
	assert.Equal(t, before-2*1000, c.Subtotal())
}

func TestRemoveProduct_MissingIsNoOp(t *testing.T) {
	c := NewCart("s1")
	c.AddProduct(snail(1, 1000))

	c.RemoveProduct(99)

	require.Len(t, c.Lines, 1)
	assert.Equal(t, int64(1000), c.Subtotal())
}

// ============================================================================
// Cart.UpdateQuantity Tests
// ============================================================================

func TestUpdateQuantity_Succeeds(t *testing.T) {
	c := NewCart("s1")
	c.AddProduct(snail(1, 1000))

	ok := c.UpdateQuantity(1, 5)

	assert.True(t, ok)
	assert.Equal(t, 5, c.Lines[0].Quantity)
}

func TestUpdateQuantity_MissingProduct(t *testing.T) {
	c := NewCart("s1")
	c.AddProduct(snail(1, 1000))

	ok := c.UpdateQuantity(99, 5)

	assert.False(t, ok)
	assert.Equal(t, 1, c.Lines[0].Quantity)
}

func TestUpdateQuantity_NonPositive(t *testing.T) {
	c := NewCart("s1")
	c.AddProduct(snail(1, 1000))

	assert.False(t, c.UpdateQuantity(1, 0))
	assert.False(t, c.UpdateQuantity(1, -3))
	assert.Equal(t, 1, c.Lines[0].Quantity)
	assert.Equal(t, int64(1000), c.Subtotal())
}

// ============================================================================
// Cart.Clear Tests
// ============================================================================

func TestClear_LeavesFavoritesAndUser(t *testing.T) {
	c := NewCart("s1")
	c.AddProduct(snail(1, 1000))
	c.ToggleFavorite(snail(2, 500))
	c.SetUser(&User{ID: "u1", Email: "a@b.fr"})

	c.Clear()

	assert.Empty(t, c.Lines)
	assert.Equal(t, int64(0), c.Subtotal())
	assert.True(t, c.IsFavorite(2))
	require.NotNil(t, c.User)
	assert.Equal(t, "u1", c.User.ID)
}

// ============================================================================
// Favorites Tests
// ============================================================================

func TestToggleFavorite_Involution(t *testing.T) {
	c := NewCart("s1")
	p := snail(7, 1250)

	added := c.ToggleFavorite(p)
	assert.True(t, added)
	assert.True(t, c.IsFavorite(7))

	removed := c.ToggleFavorite(p)
	assert.False(t, removed)
	assert.False(t, c.IsFavorite(7))
	assert.Empty(t, c.Favorites)
}

func TestToggleFavorite_DoesNotTouchLines(t *testing.T) {
	c := NewCart("s1")
	c.AddProduct(snail(1, 1000))

	c.ToggleFavorite(snail(1, 1000))

	require.Len(t, c.Lines, 1)
	assert.Equal(t, 1, c.Lines[0].Quantity)
}

func TestClearFavorites(t *testing.T) {
	c := NewCart("s1")
	c.ToggleFavorite(snail(1, 100))
	c.ToggleFavorite(snail(2, 200))

	c.ClearFavorites()

	assert.Empty(t, c.Favorites)
	assert.False(t, c.IsFavorite(1))
}

// ============================================================================
// Session Orders Tests
// ============================================================================

func TestUpdateOrderStatus(t *testing.T) {
	c := NewCart("s1")
	c.AddOrder(Order{ID: "o1", Status: OrderStatusPending})

	assert.True(t, c.UpdateOrderStatus("o1", OrderStatusPaid))
	assert.Equal(t, OrderStatusPaid, c.Orders[0].Status)

	assert.False(t, c.UpdateOrderStatus("missing", OrderStatusPaid))
}

// ============================================================================
// End-to-end scenario
// ============================================================================

func TestCartScenario_AddUpdateClear(t *testing.T) {
	c := NewCart("s1")
	p := snail(1, 1000)

	c.AddProduct(p)
	assert.Equal(t, int64(1000), c.Subtotal())

	c.AddProduct(p)
	assert.Equal(t, int64(2000), c.Subtotal())

	ok := c.UpdateQuantity(99, 3)
	assert.False(t, ok)
	assert.Equal(t, int64(2000), c.Subtotal())

	ok = c.UpdateQuantity(1, 5)
	assert.True(t, ok)
	assert.Equal(t, int64(5000), c.Subtotal())

	c.Clear()
	assert.Equal(t, int64(0), c.Subtotal())
	assert.Equal(t, 0, c.ItemCount())
}
