package order

import "time"

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusConfirmed  OrderStatus = "confirmed"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

// Order is the aggregate root. Items are snapshots taken when the order
// was created or edited, not live references into the catalog.
type Order struct {
	ID               uint        `json:"id"`
	CustomerName     string      `json:"customerName"`
	CustomerPhone    string      `json:"customerPhone"`
	CustomerWhatsapp *string     `json:"customerWhatsapp,omitempty"`
	CustomerAddress  *string     `json:"customerAddress,omitempty"`
	Items            []OrderItem `json:"items"`
	TotalAmount      int         `json:"totalAmount"`
	Status           OrderStatus `json:"status"`
	Notes            *string     `json:"notes,omitempty"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

// OrderItem freezes a catalog product at add-time. The id field carries
// the source product id; the same product can appear in two entries when
// the sizes differ.
type OrderItem struct {
	ProductID uint    `json:"id"`
	Name      string  `json:"name"`
	Price     int     `json:"price"`
	Image     string  `json:"image"`
	Quantity  int     `json:"quantity"`
	Size      *string `json:"size,omitempty"`
	Color     *string `json:"color,omitempty"`
}

// Subtotal is the line amount for this entry.
func (i OrderItem) Subtotal() int {
	return i.Price * i.Quantity
}

// ItemsTotal recomputes the authoritative order total from the item list.
func ItemsTotal(items []OrderItem) int {
	total := 0
	for _, it := range items {
		total += it.Subtotal()
	}
	return total
}

// Filter holds the conjunctive list criteria. Nil fields are inactive.
type Filter struct {
	Search    *string
	Status    *OrderStatus
	StartDate *time.Time
	EndDate   *time.Time
	MinAmount *int
	MaxAmount *int
}

type SortKey string

const (
	SortNewest     SortKey = "newest"
	SortOldest     SortKey = "oldest"
	SortAmountAsc  SortKey = "amount-asc"
	SortAmountDesc SortKey = "amount-desc"
	SortNameAsc    SortKey = "name-asc"
	SortNameDesc   SortKey = "name-desc"
)

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

type ListResult struct {
	Data       []*Order   `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// StatusStat is one per-status rollup row.
type StatusStat struct {
	Status OrderStatus `json:"status"`
	Count  int64       `json:"count"`
	Total  int64       `json:"total"`
}

// RecentOrder is the dashboard feed projection.
type RecentOrder struct {
	ID           uint        `json:"id"`
	CustomerName string      `json:"customerName"`
	TotalAmount  int         `json:"totalAmount"`
	Status       OrderStatus `json:"status"`
	CreatedAt    time.Time   `json:"createdAt"`
}

// Stats bundles the dashboard aggregates. Each field is computed by an
// independent query, so a response can lag concurrent writes slightly.
type Stats struct {
	TotalOrders    int64        `json:"totalOrders"`
	TotalRevenue   int64        `json:"totalRevenue"`
	OrdersByStatus []StatusStat `json:"ordersByStatus"`
	RecentOrders   []RecentOrder `json:"recentOrders"`
}

// ExportRow is one flattened order x item line for report downloads.
type ExportRow struct {
	OrderID       uint        `json:"orderId"`
	CustomerName  string      `json:"customerName"`
	CustomerPhone string      `json:"customerPhone"`
	Status        OrderStatus `json:"status"`
	ProductID     uint        `json:"productId"`
	ProductName   string      `json:"productName"`
	Size          *string     `json:"size,omitempty"`
	Quantity      int         `json:"quantity"`
	Price         int         `json:"price"`
	Subtotal      int         `json:"subtotal"`
	TotalAmount   int         `json:"totalAmount"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// BulkResult reports exactly which ids a bulk operation touched.
type BulkResult struct {
	Applied []uint `json:"applied"`
	Missing []uint `json:"missing"`
}
