package catalog

// Product is the read-side view the order core consumes. Catalog
// management lives in a separate service; nothing here mutates it except
// the stock decrement owned by the order transaction.
type Product struct {
	ID     uint
	Name   string
	Price  int
	Stock  int
	Images []string
	Sizes  []string
}

// Image returns the primary product image, if any.
func (p *Product) Image() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}
