package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "name", "price", "stock", "images", "sizes"}).
			AddRow(1, "Batik Shirt", 500, 12, pq.Array([]string{"/img/batik.jpg"}), pq.Array([]string{"M", "L"}))

		mock.ExpectQuery(`SELECT id, name, price, stock, images, sizes FROM products WHERE id = \$1`).
			WithArgs(uint(1)).
			WillReturnRows(rows)

		p, err := repo.GetByID(ctx, 1)
		assert.NoError(t, err)
		assert.Equal(t, "Batik Shirt", p.Name)
		assert.Equal(t, 500, p.Price)
		assert.Equal(t, 12, p.Stock)
		assert.Equal(t, "/img/batik.jpg", p.Image())
		assert.Equal(t, []string{"M", "L"}, p.Sizes)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(`SELECT id, name, price, stock, images, sizes FROM products`).
			WithArgs(uint(99)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price", "stock", "images", "sizes"}))

		_, err := repo.GetByID(ctx, 99)
		assert.ErrorIs(t, err, ErrProductNotFound)
	})

	t.Run("DBError", func(t *testing.T) {
		mock.ExpectQuery(`SELECT id, name, price, stock, images, sizes FROM products`).
			WillReturnError(errors.New("db down"))

		_, err := repo.GetByID(ctx, 1)
		assert.Error(t, err)
	})

	t.Run("NoImages", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "name", "price", "stock", "images", "sizes"}).
			AddRow(2, "Plain Tee", 200, 3, pq.Array([]string{}), pq.Array([]string{}))

		mock.ExpectQuery(`SELECT id, name, price, stock, images, sizes FROM products`).
			WithArgs(uint(2)).
			WillReturnRows(rows)

		p, err := repo.GetByID(ctx, 2)
		assert.NoError(t, err)
		assert.Equal(t, "", p.Image())
	})
}
