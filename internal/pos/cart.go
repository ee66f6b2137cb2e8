package pos

import (
	"fmt"

	"github.com/shopspring/decimal"

	"medeasy/pos/domain"
)

type CartLine struct {
	Item     domain.CatalogItem `json:"item"`
	Quantity int64              `json:"quantity"`
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.Item.UnitPrice.Mul(decimal.NewFromInt(l.Quantity))
}

// Cart is an ordered set of lines keyed by product id. No two lines share a
// product and no line exceeds the stock it was last validated against.
type Cart struct {
	lines []CartLine
}

// NewCart builds a cart from previously snapshotted lines, enforcing the cart
// invariants.
func NewCart(lines []CartLine) (Cart, error) {
	var c Cart
	for _, l := range lines {
		if err := validateItem(l.Item); err != nil {
			return Cart{}, err
		}
		if c.index(l.Item.ID) >= 0 {
			return Cart{}, fmt.Errorf("%w: duplicate line for %s", ErrInvalidItem, l.Item.ID)
		}
		if l.Quantity <= 0 {
			return Cart{}, fmt.Errorf("%w: quantity %d for %s", ErrInvalidItem, l.Quantity, l.Item.ID)
		}
		if l.Quantity > l.Item.AvailableQuantity {
			return Cart{}, &InsufficientStockError{ProductID: l.Item.ID, Requested: l.Quantity, Available: l.Item.AvailableQuantity}
		}
		c.lines = append(c.lines, l)
	}
	return c, nil
}

func (c Cart) Len() int { return len(c.lines) }

func (c Cart) Lines() []CartLine {
	out := make([]CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// Line returns the line for productID, if present.
func (c Cart) Line(productID string) (CartLine, bool) {
	if i := c.index(productID); i >= 0 {
		return c.lines[i], true
	}
	return CartLine{}, false
}

// Total uses the unit price captured in each line's snapshot.
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

func (c Cart) ProductIDs() []string {
	ids := make([]string, len(c.lines))
	for i, l := range c.lines {
		ids[i] = l.Item.ID
	}
	return ids
}

func (c Cart) index(productID string) int {
	for i, l := range c.lines {
		if l.Item.ID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) add(item domain.CatalogItem) error {
	i := c.index(item.ID)
	if i < 0 {
		if item.AvailableQuantity < 1 {
			return &InsufficientStockError{ProductID: item.ID, Requested: 1, Available: item.AvailableQuantity}
		}
		c.lines = append(c.lines, CartLine{Item: item, Quantity: 1})
		return nil
	}
	want := c.lines[i].Quantity + 1
	if want > item.AvailableQuantity {
		return &InsufficientStockError{ProductID: item.ID, Requested: want, Available: item.AvailableQuantity}
	}
	c.lines[i] = CartLine{Item: item, Quantity: want}
	return nil
}

func (c *Cart) set(productID string, quantity int64) error {
	i := c.index(productID)
	if i < 0 {
		if quantity <= 0 {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrLineNotFound, productID)
	}
	if quantity <= 0 {
		c.remove(productID)
		return nil
	}
	if quantity > c.lines[i].Item.AvailableQuantity {
		return &InsufficientStockError{ProductID: productID, Requested: quantity, Available: c.lines[i].Item.AvailableQuantity}
	}
	c.lines[i].Quantity = quantity
	return nil
}

func (c *Cart) remove(productID string) {
	if i := c.index(productID); i >= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	}
}

func validateItem(item domain.CatalogItem) error {
	if item.ID == "" {
		return fmt.Errorf("%w: missing product id", ErrInvalidItem)
	}
	if item.UnitPrice.IsNegative() {
		return fmt.Errorf("%w: negative price for %s", ErrInvalidItem, item.ID)
	}
	if item.AvailableQuantity < 0 {
		return fmt.Errorf("%w: negative stock for %s", ErrInvalidItem, item.ID)
	}
	return nil
}
