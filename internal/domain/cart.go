package domain

import "time"

// CartLine is a single product line in the cart. At most one line exists
// per product id.
type CartLine struct {
	Product  ProductRef `json:"product"`
	Quantity int        `json:"quantity"`
}

// LineTotal returns the total price for this line in minor units.
func (l *CartLine) LineTotal() int64 {
	return l.Product.UnitPrice * int64(l.Quantity)
}

// Cart is the per-session aggregate holding cart lines, favorites, the
// signed-in user and the orders placed during the session. Line and favorite
// order follows insertion order.
type Cart struct {
	SessionID string       `json:"session_id"`
	Lines     []CartLine   `json:"lines"`
	Favorites []ProductRef `json:"favorites"`
	User      *User        `json:"user,omitempty"`
	Orders    []Order      `json:"orders,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// NewCart creates an empty cart for a session.
func NewCart(sessionID string) *Cart {
	now := time.Now().UTC()
	return &Cart{
		SessionID: sessionID,
		Lines:     []CartLine{},
		Favorites: []ProductRef{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddProduct adds a product to the cart. When a line for the product already
// exists its quantity is incremented by one; otherwise a new line with
// quantity one is appended.
func (c *Cart) AddProduct(p ProductRef) {
	if i := c.FindLineIndex(p.ID); i >= 0 {
		c.Lines[i].Quantity++
		return
	}
	c.Lines = append(c.Lines, CartLine{Product: p, Quantity: 1})
}

// RemoveProduct deletes the line for the given product id. Removing a
// product that is not in the cart is a no-op.
func (c *Cart) RemoveProduct(productID int64) {
	i := c.FindLineIndex(productID)
	if i < 0 {
		return
	}
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
}

// UpdateQuantity sets the quantity of an existing line. It returns false
// without modifying anything when the product is not in the cart or the
// quantity is not positive.
func (c *Cart) UpdateQuantity(productID int64, quantity int) bool {
	if quantity <= 0 {
		return false
	}
	i := c.FindLineIndex(productID)
	if i < 0 {
		return false
	}
	c.Lines[i].Quantity = quantity
	return true
}

// Clear removes all cart lines. Favorites, user and orders are untouched.
func (c *Cart) Clear() {
	c.Lines = []CartLine{}
}

// ToggleFavorite flips the favorite membership of a product and returns the
// resulting membership. Toggling twice restores the original state.
func (c *Cart) ToggleFavorite(p ProductRef) bool {
	for i := range c.Favorites {
		if c.Favorites[i].ID == p.ID {
			c.Favorites = append(c.Favorites[:i], c.Favorites[i+1:]...)
			return false
		}
	}
	c.Favorites = append(c.Favorites, p)
	return true
}

// IsFavorite reports whether the product is in the favorites set.
func (c *Cart) IsFavorite(productID int64) bool {
	for i := range c.Favorites {
		if c.Favorites[i].ID == productID {
			return true
		}
	}
	return false
}

// ClearFavorites removes all favorites.
func (c *Cart) ClearFavorites() {
	c.Favorites = []ProductRef{}
}

// SetUser attaches the signed-in user to the session.
func (c *Cart) SetUser(u *User) {
	c.User = u
}

// AddOrder records an order placed during the session.
func (c *Cart) AddOrder(o Order) {
	c.Orders = append(c.Orders, o)
}

// UpdateOrderStatus updates the status of a session order. Returns false
// when no order with the given id exists.
func (c *Cart) UpdateOrderStatus(orderID, status string) bool {
	for i := range c.Orders {
		if c.Orders[i].ID == orderID {
			c.Orders[i].Status = status
			return true
		}
	}
	return false
}

// Subtotal returns the sum of all line totals in minor units.
func (c *Cart) Subtotal() int64 {
	var total int64
	for i := range c.Lines {
		total += c.Lines[i].LineTotal()
	}
	return total
}

// ItemCount returns the total quantity across all lines.
func (c *Cart) ItemCount() int {
	var count int
	for i := range c.Lines {
		count += c.Lines[i].Quantity
	}
	return count
}

// FindLineIndex returns the index of the line for the given product id,
// or -1 when the product is not in the cart.
func (c *Cart) FindLineIndex(productID int64) int {
	for i := range c.Lines {
		if c.Lines[i].Product.ID == productID {
			return i
		}
	}
	return -1
}
