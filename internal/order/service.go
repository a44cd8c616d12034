package order

import (
	"context"
	"time"

	"kainindo-be/internal/catalog"
	"kainindo-be/internal/logger"

	"go.uber.org/zap"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
	recentOrderCount = 10
)

type Service interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error)
	GetOrder(ctx context.Context, id uint) (*Order, error)
	ListOrders(ctx context.Context, filter *Filter, sort SortKey, page, limit int) (*ListResult, error)
	UpdateOrder(ctx context.Context, id uint, req UpdateOrderRequest) (*Order, error)
	AddItem(ctx context.Context, id uint, req AddItemRequest) (*Order, error)
	UpdateStatus(ctx context.Context, id uint, status string) (*Order, error)
	UpdateNotes(ctx context.Context, id uint, notes string) (*Order, error)
	DeleteOrder(ctx context.Context, id uint) error
	BulkDelete(ctx context.Context, ids []uint) (*BulkResult, error)
	BulkUpdateStatus(ctx context.Context, ids []uint, status string) (*BulkResult, error)
	GetStats(ctx context.Context, from, to *time.Time) (*Stats, error)
	Export(ctx context.Context, filter *Filter) ([]ExportRow, error)
	TrackByPhone(ctx context.Context, phone string) ([]*Order, error)
}

type service struct {
	repo        Repository
	catalogRepo catalog.Repository
	policy      StatusPolicy
}

func NewService(repo Repository, catalogRepo catalog.Repository, policy StatusPolicy) Service {
	return &service{
		repo:        repo,
		catalogRepo: catalogRepo,
		policy:      policy,
	}
}

// CreateOrder validates the checkout payload and persists a pending order.
// The stored total is always recomputed from the item list; a disagreeing
// client-side total is overridden, not trusted.
func (s *service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CreateOrder"),
		zap.Int("item_count", len(req.Items)),
	)

	if errs := ValidateCreate(req); len(errs) > 0 {
		log.Warn("checkout payload rejected", zap.Int("field_errors", len(errs)))
		return nil, errs
	}

	items := toItems(req.Items)
	total := ItemsTotal(items)
	if req.TotalAmount != 0 && req.TotalAmount != total {
		log.Warn("client total disagrees with item list, overriding",
			zap.Int("client_total", req.TotalAmount),
			zap.Int("computed_total", total),
		)
	}

	o := &Order{
		CustomerName:     req.CustomerName,
		CustomerPhone:    req.CustomerPhone,
		CustomerWhatsapp: optional(req.CustomerWhatsapp),
		CustomerAddress:  optional(req.CustomerAddress),
		Notes:            optional(req.Notes),
		Items:            items,
		TotalAmount:      total,
		Status:           StatusPending,
	}

	if err := s.repo.Create(ctx, o); err != nil {
		return nil, err
	}

	log.Info("order created", zap.Uint("order_id", o.ID), zap.Int("total", o.TotalAmount))
	return o, nil
}

func (s *service) GetOrder(ctx context.Context, id uint) (*Order, error) {
	return s.repo.GetByID(ctx, id)
}

// ListOrders resolves one result page plus the pagination metadata. The
// total count runs independently of the page slice, so a page beyond the
// end comes back empty while still reporting the true total.
func (s *service) ListOrders(ctx context.Context, filter *Filter, sort SortKey, page, limit int) (*ListResult, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	offset := (page - 1) * limit

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	orders, err := s.repo.List(ctx, filter, sort, limit, offset)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []*Order{}
	}

	pages := int((total + int64(limit) - 1) / int64(limit))

	return &ListResult{
		Data: orders,
		Pagination: Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: pages,
		},
	}, nil
}

// UpdateOrder applies a partial edit. When the item list is replaced the
// total is recomputed and both persist in the same transaction.
func (s *service) UpdateOrder(ctx context.Context, id uint, req UpdateOrderRequest) (*Order, error) {
	if errs := ValidateUpdate(req); len(errs) > 0 {
		return nil, errs
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := UpdateFields{
		CustomerName:     req.CustomerName,
		CustomerPhone:    req.CustomerPhone,
		CustomerWhatsapp: req.CustomerWhatsapp,
		CustomerAddress:  req.CustomerAddress,
		Notes:            req.Notes,
	}

	if req.Status != nil {
		status := OrderStatus(*req.Status)
		if err := s.policy.Check(current.Status, status); err != nil {
			return nil, err
		}
		fields.Status = &status
	}

	if req.Items != nil {
		items := toItems(*req.Items)
		total := ItemsTotal(items)
		fields.Items = &items
		fields.TotalAmount = &total
	}

	if err := s.repo.Update(ctx, id, fields); err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, id)
}

// AddItem merges a product into an existing order. An entry with the same
// (product id, size) grows in place; capacity is bounded by the catalog
// stock read at edit time.
func (s *service) AddItem(ctx context.Context, id uint, req AddItemRequest) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "AddItem"),
		zap.Uint("order_id", id),
		zap.Uint("product_id", req.ProductID),
	)

	if req.Quantity <= 0 {
		return nil, FieldErrors{"quantity": "quantity must be a positive integer"}
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	product, err := s.catalogRepo.GetByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}

	items := make([]OrderItem, len(current.Items))
	copy(items, current.Items)

	merged := false
	for i := range items {
		if items[i].ProductID == req.ProductID && sameSize(items[i].Size, req.Size) {
			if items[i].Quantity+req.Quantity > product.Stock {
				remaining := product.Stock - items[i].Quantity
				if remaining < 0 {
					remaining = 0
				}
				log.Warn("merge rejected by stock",
					zap.Int("existing", items[i].Quantity),
					zap.Int("requested", req.Quantity),
					zap.Int("remaining", remaining),
				)
				return nil, &StockExceededError{ProductID: req.ProductID, Remaining: remaining}
			}
			items[i].Quantity += req.Quantity
			merged = true
			break
		}
	}

	if !merged {
		if req.Quantity > product.Stock {
			return nil, &StockExceededError{ProductID: req.ProductID, Remaining: product.Stock}
		}
		items = append(items, OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Image:     product.Image(),
			Quantity:  req.Quantity,
			Size:      req.Size,
			Color:     req.Color,
		})
	}

	total := ItemsTotal(items)
	fields := UpdateFields{Items: &items, TotalAmount: &total}
	if err := s.repo.Update(ctx, id, fields); err != nil {
		return nil, err
	}

	log.Info("item added", zap.Bool("merged", merged), zap.Int("total", total))
	return s.repo.GetByID(ctx, id)
}

func (s *service) UpdateStatus(ctx context.Context, id uint, status string) (*Order, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next := OrderStatus(status)
	if err := s.policy.Check(current.Status, next); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, id, UpdateFields{Status: &next}); err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, id)
}

func (s *service) UpdateNotes(ctx context.Context, id uint, notes string) (*Order, error) {
	if err := s.repo.Update(ctx, id, UpdateFields{Notes: &notes}); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *service) DeleteOrder(ctx context.Context, id uint) error {
	return s.repo.Delete(ctx, id)
}

func (s *service) BulkDelete(ctx context.Context, ids []uint) (*BulkResult, error) {
	if len(ids) == 0 {
		return nil, FieldErrors{"ids": "at least one order id is required"}
	}
	return s.repo.BulkDelete(ctx, ids)
}

func (s *service) BulkUpdateStatus(ctx context.Context, ids []uint, status string) (*BulkResult, error) {
	if len(ids) == 0 {
		return nil, FieldErrors{"ids": "at least one order id is required"}
	}
	next := OrderStatus(status)
	if !ValidStatus(next) {
		return nil, &InvalidStatusError{Status: status}
	}
	return s.repo.BulkUpdateStatus(ctx, ids, next, s.policy.LockFinal)
}

// GetStats computes the dashboard aggregates for the optional window.
// Each aggregate is its own query; there is no shared snapshot.
func (s *service) GetStats(ctx context.Context, from, to *time.Time) (*Stats, error) {
	totalOrders, err := s.repo.CountInWindow(ctx, from, to)
	if err != nil {
		return nil, err
	}

	totalRevenue, err := s.repo.SumRevenue(ctx, from, to)
	if err != nil {
		return nil, err
	}

	byStatus, err := s.repo.CountByStatus(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if byStatus == nil {
		byStatus = []StatusStat{}
	}

	recent, err := s.repo.RecentOrders(ctx, from, to, recentOrderCount)
	if err != nil {
		return nil, err
	}
	if recent == nil {
		recent = []RecentOrder{}
	}

	return &Stats{
		TotalOrders:    totalOrders,
		TotalRevenue:   totalRevenue,
		OrdersByStatus: byStatus,
		RecentOrders:   recent,
	}, nil
}

func (s *service) Export(ctx context.Context, filter *Filter) ([]ExportRow, error) {
	rows, err := s.repo.ExportRows(ctx, filter)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []ExportRow{}
	}
	return rows, nil
}

func (s *service) TrackByPhone(ctx context.Context, phone string) ([]*Order, error) {
	if !phoneRegex.MatchString(phone) {
		return nil, FieldErrors{"phone": "phone must be exactly 10 digits"}
	}

	orders, err := s.repo.FindByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []*Order{}
	}
	return orders, nil
}

func sameSize(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
