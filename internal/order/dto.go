package order

// CreateOrderRequest is the checkout payload. TotalAmount is accepted for
// backward compatibility with older storefront clients but the stored
// total is always recomputed from the item list.
type CreateOrderRequest struct {
	CustomerName     string             `json:"customerName"`
	CustomerPhone    string             `json:"customerPhone"`
	CustomerWhatsapp string             `json:"customerWhatsapp"`
	CustomerAddress  string             `json:"customerAddress"`
	Notes            string             `json:"notes"`
	TotalAmount      int                `json:"totalAmount"`
	Items            []OrderItemRequest `json:"items"`
}

type OrderItemRequest struct {
	ID       uint    `json:"id"`
	Name     string  `json:"name"`
	Price    int     `json:"price"`
	Image    string  `json:"image"`
	Quantity int     `json:"quantity"`
	Size     *string `json:"size"`
	Color    *string `json:"color"`
}

// UpdateOrderRequest carries a partial edit; nil fields are left alone.
// A non-nil Items replaces the whole item list and recomputes the total.
type UpdateOrderRequest struct {
	CustomerName     *string             `json:"customerName"`
	CustomerPhone    *string             `json:"customerPhone"`
	CustomerWhatsapp *string             `json:"customerWhatsapp"`
	CustomerAddress  *string             `json:"customerAddress"`
	Notes            *string             `json:"notes"`
	Status           *string             `json:"status"`
	Items            *[]OrderItemRequest `json:"items"`
}

// AddItemRequest adds a product to an existing order; entries matching on
// (product id, size) are merged instead of duplicated.
type AddItemRequest struct {
	ProductID uint    `json:"productId"`
	Quantity  int     `json:"quantity"`
	Size      *string `json:"size"`
	Color     *string `json:"color"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type UpdateNotesRequest struct {
	Notes string `json:"notes"`
}

type BulkDeleteRequest struct {
	IDs []uint `json:"ids"`
}

type BulkUpdateStatusRequest struct {
	IDs    []uint `json:"ids"`
	Status string `json:"status"`
}

func (r OrderItemRequest) toItem() OrderItem {
	return OrderItem{
		ProductID: r.ID,
		Name:      r.Name,
		Price:     r.Price,
		Image:     r.Image,
		Quantity:  r.Quantity,
		Size:      r.Size,
		Color:     r.Color,
	}
}

func toItems(reqs []OrderItemRequest) []OrderItem {
	items := make([]OrderItem, 0, len(reqs))
	for _, r := range reqs {
		items = append(items, r.toItem())
	}
	return items
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
