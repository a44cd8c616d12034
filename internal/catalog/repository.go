package catalog

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

var ErrProductNotFound = errors.New("product not found")

type Repository interface {
	GetByID(ctx context.Context, id uint) (*Product, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(ctx context.Context, id uint) (*Product, error) {
	query := `
		SELECT id, name, price, stock, images, sizes
		FROM products
		WHERE id = $1
	`

	var p Product
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&p.ID, &p.Name, &p.Price, &p.Stock, pq.Array(&p.Images), pq.Array(&p.Sizes))

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}

	return &p, nil
}
