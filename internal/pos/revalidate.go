package pos

// Violation reports a line whose quantity exceeds current stock. Available is
// the largest quantity now permissible.
type Violation struct {
	ProductID string `json:"product_id"`
	Requested int64  `json:"requested"`
	Available int64  `json:"available"`
}

// Revalidate compares every line against fresh stock levels. Products missing
// from fresh are treated as out of stock.
func Revalidate(cart Cart, fresh map[string]int64) []Violation {
	var out []Violation
	for _, l := range cart.lines {
		available := fresh[l.Item.ID]
		if available < 0 {
			available = 0
		}
		if l.Quantity > available {
			out = append(out, Violation{ProductID: l.Item.ID, Requested: l.Quantity, Available: available})
		}
	}
	return out
}
