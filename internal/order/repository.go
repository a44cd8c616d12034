package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"kainindo-be/internal/logger"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uint) (*Order, error)
	Update(ctx context.Context, id uint, f UpdateFields) error
	Delete(ctx context.Context, id uint) error
	BulkDelete(ctx context.Context, ids []uint) (*BulkResult, error)
	BulkUpdateStatus(ctx context.Context, ids []uint, status OrderStatus, lockFinal bool) (*BulkResult, error)

	List(ctx context.Context, filter *Filter, sort SortKey, limit, offset int) ([]*Order, error)
	Count(ctx context.Context, filter *Filter) (int64, error)

	CountInWindow(ctx context.Context, from, to *time.Time) (int64, error)
	SumRevenue(ctx context.Context, from, to *time.Time) (int64, error)
	CountByStatus(ctx context.Context, from, to *time.Time) ([]StatusStat, error)
	RecentOrders(ctx context.Context, from, to *time.Time, limit int) ([]RecentOrder, error)

	ExportRows(ctx context.Context, filter *Filter) ([]ExportRow, error)
	FindByPhone(ctx context.Context, phone string) ([]*Order, error)
}

// UpdateFields is a partial write; nil fields keep their stored value.
// When Items is set, TotalAmount must carry the recomputed total and both
// persist in the same transaction as the field update.
type UpdateFields struct {
	CustomerName     *string
	CustomerPhone    *string
	CustomerWhatsapp *string
	CustomerAddress  *string
	Notes            *string
	Status           *OrderStatus
	TotalAmount      *int
	Items            *[]OrderItem
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// Create persists the order, its item snapshots and the matching stock
// decrements in one transaction. A failed stock guard rolls back the
// whole order and reports the remaining capacity.
func (r *repository) Create(ctx context.Context, o *Order) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "Create"),
		zap.Int("item_count", len(o.Items)),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", zap.Error(err))
		return err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (
			customer_name, customer_phone, customer_whatsapp,
			customer_address, total_amount, status, notes
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id, created_at, updated_at
	`,
		o.CustomerName,
		o.CustomerPhone,
		o.CustomerWhatsapp,
		o.CustomerAddress,
		o.TotalAmount,
		o.Status,
		o.Notes,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		log.Error("failed to insert order", zap.Error(err))
		return err
	}

	for _, item := range o.Items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (
				order_id, product_id, name, price, image, quantity, size, color
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`,
			o.ID,
			item.ProductID,
			item.Name,
			item.Price,
			item.Image,
			item.Quantity,
			item.Size,
			item.Color,
		); err != nil {
			log.Error("failed to insert order item",
				zap.Uint("product_id", item.ProductID),
				zap.Error(err),
			)
			return err
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE products
			SET stock = stock - $1
			WHERE id = $2 AND stock >= $1
		`, item.Quantity, item.ProductID)
		if err != nil {
			log.Error("failed to deduct stock",
				zap.Uint("product_id", item.ProductID),
				zap.Error(err),
			)
			return err
		}

		affected, _ := res.RowsAffected()
		if affected == 0 {
			remaining := 0
			_ = tx.QueryRowContext(ctx,
				`SELECT stock FROM products WHERE id = $1`,
				item.ProductID,
			).Scan(&remaining)

			log.Warn("stock guard rejected order item",
				zap.Uint("product_id", item.ProductID),
				zap.Int("requested", item.Quantity),
				zap.Int("remaining", remaining),
			)
			return &StockExceededError{ProductID: item.ProductID, Remaining: remaining}
		}
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit order", zap.Error(err))
		return err
	}

	log.Info("order created", zap.Uint("order_id", o.ID))
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uint) (*Order, error) {
	var o Order
	err := r.db.QueryRowContext(ctx, `
		SELECT id, customer_name, customer_phone, customer_whatsapp,
		       customer_address, total_amount, status, notes, created_at, updated_at
		FROM orders WHERE id = $1
	`, id).Scan(
		&o.ID, &o.CustomerName, &o.CustomerPhone, &o.CustomerWhatsapp,
		&o.CustomerAddress, &o.TotalAmount, &o.Status, &o.Notes,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	itemsByOrder, err := r.fetchItems(ctx, []uint{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = itemsByOrder[o.ID]

	return &o, nil
}

// Update merges the provided fields, replaces the item list when one is
// given, and refreshes updated_at, all inside a single transaction.
func (r *repository) Update(ctx context.Context, id uint, f UpdateFields) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "Update"),
		zap.Uint("order_id", id),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `UPDATE orders SET updated_at = NOW()`
	args := []any{}
	argIndex := 1

	addSet := func(column string, value any) {
		query += fmt.Sprintf(", %s = $%d", column, argIndex)
		args = append(args, value)
		argIndex++
	}

	if f.CustomerName != nil {
		addSet("customer_name", *f.CustomerName)
	}
	if f.CustomerPhone != nil {
		addSet("customer_phone", *f.CustomerPhone)
	}
	if f.CustomerWhatsapp != nil {
		addSet("customer_whatsapp", *f.CustomerWhatsapp)
	}
	if f.CustomerAddress != nil {
		addSet("customer_address", *f.CustomerAddress)
	}
	if f.Notes != nil {
		addSet("notes", *f.Notes)
	}
	if f.Status != nil {
		addSet("status", *f.Status)
	}
	if f.TotalAmount != nil {
		addSet("total_amount", *f.TotalAmount)
	}

	query += fmt.Sprintf(" WHERE id = $%d", argIndex)
	args = append(args, id)

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to update order", zap.Error(err))
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrOrderNotFound
	}

	if f.Items != nil {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM order_items WHERE order_id = $1`, id,
		); err != nil {
			log.Error("failed to clear order items", zap.Error(err))
			return err
		}

		for _, item := range *f.Items {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO order_items (
					order_id, product_id, name, price, image, quantity, size, color
				) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			`,
				id, item.ProductID, item.Name, item.Price,
				item.Image, item.Quantity, item.Size, item.Color,
			); err != nil {
				log.Error("failed to insert order item",
					zap.Uint("product_id", item.ProductID),
					zap.Error(err),
				)
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit order update", zap.Error(err))
		return err
	}

	return nil
}

func (r *repository) Delete(ctx context.Context, id uint) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// BulkDelete removes every listed order in one statement and reports the
// ids that were actually present. There is no partially applied state.
func (r *repository) BulkDelete(ctx context.Context, ids []uint) (*BulkResult, error) {
	rows, err := r.db.QueryContext(ctx, `
		DELETE FROM orders WHERE id = ANY($1) RETURNING id
	`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectBulkResult(rows, ids)
}

// BulkUpdateStatus applies one status to every listed order atomically.
// With lockFinal set, orders already delivered or cancelled are skipped
// and reported as missing.
func (r *repository) BulkUpdateStatus(ctx context.Context, ids []uint, status OrderStatus, lockFinal bool) (*BulkResult, error) {
	query := `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = ANY($2)
	`
	if lockFinal {
		query += ` AND status NOT IN ('delivered', 'cancelled')`
	}
	query += ` RETURNING id`

	rows, err := r.db.QueryContext(ctx, query, status, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectBulkResult(rows, ids)
}

func collectBulkResult(rows *sql.Rows, requested []uint) (*BulkResult, error) {
	applied := map[uint]bool{}
	for rows.Next() {
		var id uint
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		applied[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := &BulkResult{Applied: []uint{}, Missing: []uint{}}
	for _, id := range requested {
		if applied[id] {
			result.Applied = append(result.Applied, id)
		} else {
			result.Missing = append(result.Missing, id)
		}
	}
	return result, nil
}

// filterClause renders the conjunctive WHERE fragment for the active
// filters. The search term matches name, phone or whatsapp with a single
// shared argument.
func filterClause(f *Filter, args *[]any, argIndex *int) string {
	if f == nil {
		return ""
	}

	clause := ""

	if f.Search != nil && *f.Search != "" {
		clause += fmt.Sprintf(
			" AND (o.customer_name ILIKE $%d OR o.customer_phone ILIKE $%d OR o.customer_whatsapp ILIKE $%d)",
			*argIndex, *argIndex, *argIndex,
		)
		*args = append(*args, "%"+*f.Search+"%")
		*argIndex++
	}

	if f.Status != nil && *f.Status != "" {
		clause += fmt.Sprintf(" AND o.status = $%d", *argIndex)
		*args = append(*args, *f.Status)
		*argIndex++
	}

	if f.StartDate != nil {
		clause += fmt.Sprintf(" AND o.created_at >= $%d", *argIndex)
		*args = append(*args, *f.StartDate)
		*argIndex++
	}

	if f.EndDate != nil {
		clause += fmt.Sprintf(" AND o.created_at <= $%d", *argIndex)
		*args = append(*args, *f.EndDate)
		*argIndex++
	}

	if f.MinAmount != nil {
		clause += fmt.Sprintf(" AND o.total_amount >= $%d", *argIndex)
		*args = append(*args, *f.MinAmount)
		*argIndex++
	}

	if f.MaxAmount != nil {
		clause += fmt.Sprintf(" AND o.total_amount <= $%d", *argIndex)
		*args = append(*args, *f.MaxAmount)
		*argIndex++
	}

	return clause
}

func orderBy(sort SortKey) string {
	switch sort {
	case SortOldest:
		return "o.created_at ASC"
	case SortAmountAsc:
		return "o.total_amount ASC"
	case SortAmountDesc:
		return "o.total_amount DESC"
	case SortNameAsc:
		return "o.customer_name ASC"
	case SortNameDesc:
		return "o.customer_name DESC"
	default:
		return "o.created_at DESC"
	}
}

func (r *repository) List(ctx context.Context, filter *Filter, sort SortKey, limit, offset int) ([]*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "List"),
		zap.Int("limit", limit),
		zap.Int("offset", offset),
	)

	query := `
		SELECT o.id, o.customer_name, o.customer_phone, o.customer_whatsapp,
		       o.customer_address, o.total_amount, o.status, o.notes,
		       o.created_at, o.updated_at
		FROM orders o
		WHERE 1=1
	`
	args := []any{}
	argIndex := 1

	query += filterClause(filter, &args, &argIndex)
	query += " ORDER BY " + orderBy(sort)
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query orders", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var orders []*Order
	var orderIDs []uint
	for rows.Next() {
		var o Order
		if err := rows.Scan(
			&o.ID, &o.CustomerName, &o.CustomerPhone, &o.CustomerWhatsapp,
			&o.CustomerAddress, &o.TotalAmount, &o.Status, &o.Notes,
			&o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			log.Error("failed to scan order row", zap.Error(err))
			return nil, err
		}
		orders = append(orders, &o)
		orderIDs = append(orderIDs, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(orderIDs) > 0 {
		itemsByOrder, err := r.fetchItems(ctx, orderIDs)
		if err != nil {
			return nil, err
		}
		for _, o := range orders {
			o.Items = itemsByOrder[o.ID]
		}
	}

	log.Debug("orders listed", zap.Int("count", len(orders)))
	return orders, nil
}

func (r *repository) Count(ctx context.Context, filter *Filter) (int64, error) {
	query := `SELECT COUNT(*) FROM orders o WHERE 1=1`
	args := []any{}
	argIndex := 1
	query += filterClause(filter, &args, &argIndex)

	var total int64
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&total)
	return total, err
}

func (r *repository) fetchItems(ctx context.Context, orderIDs []uint) (map[uint][]OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT order_id, product_id, name, price, image, quantity, size, color
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY id
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	itemsByOrder := make(map[uint][]OrderItem, len(orderIDs))
	for rows.Next() {
		var orderID uint
		var item OrderItem
		if err := rows.Scan(
			&orderID, &item.ProductID, &item.Name, &item.Price,
			&item.Image, &item.Quantity, &item.Size, &item.Color,
		); err != nil {
			return nil, err
		}
		itemsByOrder[orderID] = append(itemsByOrder[orderID], item)
	}
	return itemsByOrder, rows.Err()
}

func windowClause(from, to *time.Time, args *[]any, argIndex *int) string {
	clause := ""
	if from != nil {
		clause += fmt.Sprintf(" AND created_at >= $%d", *argIndex)
		*args = append(*args, *from)
		*argIndex++
	}
	if to != nil {
		clause += fmt.Sprintf(" AND created_at <= $%d", *argIndex)
		*args = append(*args, *to)
		*argIndex++
	}
	return clause
}

func (r *repository) CountInWindow(ctx context.Context, from, to *time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM orders WHERE 1=1`
	args := []any{}
	argIndex := 1
	query += windowClause(from, to, &args, &argIndex)

	var count int64
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}

func (r *repository) SumRevenue(ctx context.Context, from, to *time.Time) (int64, error) {
	query := `SELECT COALESCE(SUM(total_amount), 0) FROM orders WHERE 1=1`
	args := []any{}
	argIndex := 1
	query += windowClause(from, to, &args, &argIndex)

	var sum int64
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&sum)
	return sum, err
}

func (r *repository) CountByStatus(ctx context.Context, from, to *time.Time) ([]StatusStat, error) {
	query := `
		SELECT status, COUNT(*), COALESCE(SUM(total_amount), 0)
		FROM orders WHERE 1=1
	`
	args := []any{}
	argIndex := 1
	query += windowClause(from, to, &args, &argIndex)
	query += ` GROUP BY status`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []StatusStat
	for rows.Next() {
		var s StatusStat
		if err := rows.Scan(&s.Status, &s.Count, &s.Total); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func (r *repository) RecentOrders(ctx context.Context, from, to *time.Time, limit int) ([]RecentOrder, error) {
	query := `
		SELECT id, customer_name, total_amount, status, created_at
		FROM orders WHERE 1=1
	`
	args := []any{}
	argIndex := 1
	query += windowClause(from, to, &args, &argIndex)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argIndex)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recent []RecentOrder
	for rows.Next() {
		var o RecentOrder
		if err := rows.Scan(&o.ID, &o.CustomerName, &o.TotalAmount, &o.Status, &o.CreatedAt); err != nil {
			return nil, err
		}
		recent = append(recent, o)
	}
	return recent, rows.Err()
}

// ExportRows flattens orders into one row per item for report downloads,
// honoring the same filters as the list view.
func (r *repository) ExportRows(ctx context.Context, filter *Filter) ([]ExportRow, error) {
	query := `
		SELECT o.id, o.customer_name, o.customer_phone, o.status,
		       oi.product_id, oi.name, oi.size, oi.quantity, oi.price,
		       o.total_amount, o.created_at
		FROM orders o
		JOIN order_items oi ON oi.order_id = o.id
		WHERE 1=1
	`
	args := []any{}
	argIndex := 1
	query += filterClause(filter, &args, &argIndex)
	query += ` ORDER BY o.created_at DESC, oi.id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ExportRow
	for rows.Next() {
		var row ExportRow
		if err := rows.Scan(
			&row.OrderID, &row.CustomerName, &row.CustomerPhone, &row.Status,
			&row.ProductID, &row.ProductName, &row.Size, &row.Quantity, &row.Price,
			&row.TotalAmount, &row.CreatedAt,
		); err != nil {
			return nil, err
		}
		row.Subtotal = row.Price * row.Quantity
		out = append(out, row)
	}
	return out, rows.Err()
}

// FindByPhone backs the customer self-service lookup.
func (r *repository) FindByPhone(ctx context.Context, phone string) ([]*Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT o.id, o.customer_name, o.customer_phone, o.customer_whatsapp,
		       o.customer_address, o.total_amount, o.status, o.notes,
		       o.created_at, o.updated_at
		FROM orders o
		WHERE o.customer_phone = $1
		ORDER BY o.created_at DESC
	`, phone)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*Order
	var orderIDs []uint
	for rows.Next() {
		var o Order
		if err := rows.Scan(
			&o.ID, &o.CustomerName, &o.CustomerPhone, &o.CustomerWhatsapp,
			&o.CustomerAddress, &o.TotalAmount, &o.Status, &o.Notes,
			&o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return nil, err
		}
		orders = append(orders, &o)
		orderIDs = append(orderIDs, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(orderIDs) > 0 {
		itemsByOrder, err := r.fetchItems(ctx, orderIDs)
		if err != nil {
			return nil, err
		}
		for _, o := range orders {
			o.Items = itemsByOrder[o.ID]
		}
	}

	return orders, nil
}
