package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"kainindo-be/internal/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, o *Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id uint) (*Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Order), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, id uint, f UpdateFields) error {
	args := m.Called(ctx, id, f)
	return args.Error(0)
}

func (m *MockRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) BulkDelete(ctx context.Context, ids []uint) (*BulkResult, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*BulkResult), args.Error(1)
}

func (m *MockRepository) BulkUpdateStatus(ctx context.Context, ids []uint, status OrderStatus, lockFinal bool) (*BulkResult, error) {
	args := m.Called(ctx, ids, status, lockFinal)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*BulkResult), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context, filter *Filter, sort SortKey, limit, offset int) ([]*Order, error) {
	args := m.Called(ctx, filter, sort, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Order), args.Error(1)
}

func (m *MockRepository) Count(ctx context.Context, filter *Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) CountInWindow(ctx context.Context, from, to *time.Time) (int64, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) SumRevenue(ctx context.Context, from, to *time.Time) (int64, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) CountByStatus(ctx context.Context, from, to *time.Time) ([]StatusStat, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]StatusStat), args.Error(1)
}

func (m *MockRepository) RecentOrders(ctx context.Context, from, to *time.Time, limit int) ([]RecentOrder, error) {
	args := m.Called(ctx, from, to, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]RecentOrder), args.Error(1)
}

func (m *MockRepository) ExportRows(ctx context.Context, filter *Filter) ([]ExportRow, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ExportRow), args.Error(1)
}

func (m *MockRepository) FindByPhone(ctx context.Context, phone string) ([]*Order, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Order), args.Error(1)
}

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) GetByID(ctx context.Context, id uint) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func newTestService(policy StatusPolicy) (Service, *MockRepository, *MockCatalog) {
	repo := new(MockRepository)
	cat := new(MockCatalog)
	return NewService(repo, cat, policy), repo, cat
}

// --- CreateOrder ---

func TestService_CreateOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		svc, repo, _ := newTestService(StatusPolicy{})

		repo.On("Create", ctx, mock.AnythingOfType("*order.Order")).
			Run(func(args mock.Arguments) {
				o := args.Get(1).(*Order)
				o.ID = 42
			}).
			Return(nil)

		req := validCreateRequest()
		o, err := svc.CreateOrder(ctx, req)

		require.NoError(t, err)
		assert.Equal(t, uint(42), o.ID)
		assert.Equal(t, StatusPending, o.Status)
		assert.Equal(t, 1000, o.TotalAmount) // 500 * 2
		repo.AssertExpectations(t)
	})

	t.Run("ClientTotalOverridden", func(t *testing.T) {
		svc, repo, _ := newTestService(StatusPolicy{})

		repo.On("Create", ctx, mock.AnythingOfType("*order.Order")).Return(nil)

		req := validCreateRequest()
		req.TotalAmount = 99999

		o, err := svc.CreateOrder(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, 1000, o.TotalAmount)
	})

	t.Run("ValidationFailureIsNotPersisted", func(t *testing.T) {
		svc, repo, _ := newTestService(StatusPolicy{})

		req := validCreateRequest()
		req.CustomerPhone = "bad"

		_, err := svc.CreateOrder(ctx, req)

		var fieldErrs FieldErrors
		assert.ErrorAs(t, err, &fieldErrs)
		assert.Contains(t, fieldErrs, "customerPhone")
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("RepoError", func(t *testing.T) {
		svc, repo, _ := newTestService(StatusPolicy{})
		repo.On("Create", ctx, mock.Anything).Return(errors.New("db down"))

		_, err := svc.CreateOrder(ctx, validCreateRequest())
		assert.Error(t, err)
	})
}

// --- ListOrders ---

func TestService_ListOrders(t *testing.T) {
	ctx := context.Background()

	t.Run("PaginationMetadata", func(t *testing.T) {
		svc, repo, _ := newTestService(StatusPolicy{})

		repo.On("Count", ctx, (*Filter)(nil)).Return(int64(45), nil)
		repo.On("List", ctx, (*Filter)(nil), SortNewest, 20, 20).
			Return([]*Order{{ID: 21}}, nil)

		result, err := svc.ListOrders(ctx, nil, SortNewest, 2, 20)
		require.NoError(t, err)

		assert.Equal(t, 2, result.Pagination.Page)
		assert.Equal(t, 20, result.Pagination.Limit)
		assert.Equal(t, int64(45), result.Pagination.Total)
		assert.Equal(t, 3, result.Pagination.Pages) // ceil(45/20)
	})

	t.Run("OutOfRangePageKeepsTrueTotal", func(t *testing.T) {
		svc, repo, _ := newTestService(StatusPolicy{})

		repo.On("Count", ctx, (*Filter)(nil)).Return(int64(5), nil)
		repo.On("List", ctx, (*Filter)(nil), SortNewest, 20, 180).
			Return([]*Order(nil), nil)

		result, err := svc.ListOrders(ctx, nil, SortNewest, 10, 20)
		require.NoError(t, err)

		assert.Empty(t, result.Data)
		assert.NotNil(t, result.Data)
		assert.Equal(t, int64(5), result.Pagination.Total)
		assert.Equal(t, 1, result.Pagination.Pages)
	})

	t.Run("DefaultsAndClamp", func(t *testing.T) {
		svc, repo, _ := newTestService(StatusPolicy{})

		repo.On("Count", ctx, (*Filter)(nil)).Return(int64(0), nil)
		repo.On("List", ctx, (*Filter)(nil), SortNewest, 100, 0).
			Return([]*Order{}, nil)

		result, err := svc.ListOrders(ctx, nil, SortNewest, 0, 500)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Pagination.Page)
		assert.Equal(t, 100, result.Pagination.Limit)
	})
}

// --- UpdateOrder ---

func TestService_UpdateOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("ItemReplacementRecomputesTotal", func(t *testing.T) {
		svc, repo, _ := newTestService(StatusPolicy{})

		stored := &Order{ID: 7, Status: StatusPending, TotalAmount: 500}
		repo.On("GetByID", ctx, uint(7)).Return(stored, nil)

		items := []OrderItemRequest{
			{ID: 1, Name: "Batik Shirt", Price: 300, Image: "/img/b.jpg", Quantity: 2},
			{ID: 2, Name: "Plain Tee", Price: 150, Image: "/img/t.jpg", Quantity: 1},
		}
		req := UpdateOrderRequest{Items: &items}

		repo.On("Update", ctx, uint(7), mock.MatchedBy(func(f UpdateFields) bool {
			return f.Items != nil && len(*f.Items) == 2 &&
				f.TotalAmount != nil && *f.TotalAmount == 750
		})).Return(nil)

		_, err := svc.UpdateOrder(ctx, 7, req)
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("StatusCheckedAgainstPolicy", func(t *testing.T) {
		svc, repo, _ := newTestService(StatusPolicy{LockFinal: true})

		stored := &Order{ID: 7, Status: StatusDelivered}
		repo.On("GetByID", ctx, uint(7)).Return(stored, nil)

		status := "pending"
		_, err := svc.UpdateOrder(ctx, 7, UpdateOrderRequest{Status: &status})
		assert.ErrorIs(t, err, ErrStatusLocked)
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("NotFound", func(t *testing.T) {
		svc, repo, _ := newTestService(StatusPolicy{})
		repo.On("GetByID", ctx, uint(99)).Return(nil, ErrOrderNotFound)

		name := "New Name"
		_, err := svc.UpdateOrder(ctx, 99, UpdateOrderRequest{CustomerName: &name})
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})
}

// --- AddItem merge logic ---

func TestService_AddItem(t *testing.T) {
	ctx := context.Background()
	sizeM := "M"

	storedOrder := func() *Order {
		return &Order{
			ID:          7,
			Status:      StatusPending,
			TotalAmount: 1000,
			Items: []OrderItem{
				{ProductID: 1, Name: "Batik Shirt", Price: 500, Image: "/img/b.jpg", Quantity: 2, Size: &sizeM},
			},
		}
	}

	t.Run("MergesOnProductAndSize", func(t *testing.T) {
		svc, repo, cat := newTestService(StatusPolicy{})

		repo.On("GetByID", ctx, uint(7)).Return(storedOrder(), nil)
		cat.On("GetByID", ctx, uint(1)).
			Return(&catalog.Product{ID: 1, Name: "Batik Shirt", Price: 500, Stock: 5}, nil)

		repo.On("Update", ctx, uint(7), mock.MatchedBy(func(f UpdateFields) bool {
			if f.Items == nil || f.TotalAmount == nil {
				return false
			}
			items := *f.Items
			// Same (product, size) entry grows in place, no duplicate row.
			return len(items) == 1 && items[0].Quantity == 5 && *f.TotalAmount == 2500
		})).Return(nil)

		_, err := svc.AddItem(ctx, 7, AddItemRequest{ProductID: 1, Quantity: 3, Size: &sizeM})
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("DifferentSizeAppendsSnapshot", func(t *testing.T) {
		svc, repo, cat := newTestService(StatusPolicy{})
		sizeL := "L"

		repo.On("GetByID", ctx, uint(7)).Return(storedOrder(), nil)
		cat.On("GetByID", ctx, uint(1)).
			Return(&catalog.Product{
				ID: 1, Name: "Batik Shirt", Price: 550, Stock: 5,
				Images: []string{"/img/b2.jpg"},
			}, nil)

		repo.On("Update", ctx, uint(7), mock.MatchedBy(func(f UpdateFields) bool {
			items := *f.Items
			if len(items) != 2 {
				return false
			}
			added := items[1]
			// New entries snapshot current catalog name/price/image.
			return added.Price == 550 && added.Image == "/img/b2.jpg" && added.Quantity == 1 &&
				*f.TotalAmount == 1000+550
		})).Return(nil)

		_, err := svc.AddItem(ctx, 7, AddItemRequest{ProductID: 1, Quantity: 1, Size: &sizeL})
		require.NoError(t, err)
	})

	t.Run("StockExceededReportsRemaining", func(t *testing.T) {
		svc, repo, cat := newTestService(StatusPolicy{})

		repo.On("GetByID", ctx, uint(7)).Return(storedOrder(), nil)
		cat.On("GetByID", ctx, uint(1)).
			Return(&catalog.Product{ID: 1, Name: "Batik Shirt", Price: 500, Stock: 3}, nil)

		_, err := svc.AddItem(ctx, 7, AddItemRequest{ProductID: 1, Quantity: 2, Size: &sizeM})

		var stockErr *StockExceededError
		require.ErrorAs(t, err, &stockErr)
		assert.Equal(t, 1, stockErr.Remaining) // stock 3 minus 2 already in the order
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("NewItemBeyondStockRejected", func(t *testing.T) {
		svc, repo, cat := newTestService(StatusPolicy{})

		repo.On("GetByID", ctx, uint(7)).Return(storedOrder(), nil)
		cat.On("GetByID", ctx, uint(2)).
			Return(&catalog.Product{ID: 2, Name: "Plain Tee", Price: 200, Stock: 4}, nil)

		_, err := svc.AddItem(ctx, 7, AddItemRequest{ProductID: 2, Quantity: 5})

		var stockErr *StockExceededError
		require.ErrorAs(t, err, &stockErr)
		assert.Equal(t, 4, stockErr.Remaining)
	})

	t.Run("NonPositiveQuantity", func(t *testing.T) {
		svc, _, _ := newTestService(StatusPolicy{})
		_, err := svc.AddItem(ctx, 7, AddItemRequest{ProductID: 1, Quantity: 0})

		var fieldErrs FieldErrors
		assert.ErrorAs(t, err, &fieldErrs)
	})

	t.Run("ProductNotFound", func(t *testing.T) {
		svc, repo, cat := newTestService(StatusPolicy{})
		repo.On("GetByID", ctx, uint(7)).Return(storedOrder(), nil)
		cat.On("GetByID", ctx, uint(9)).Return(nil, catalog.ErrProductNotFound)

		_, err := svc.AddItem(ctx, 7, AddItemRequest{ProductID: 9, Quantity: 1})
		assert.ErrorIs(t, err, catalog.ErrProductNotFound)
	})
}

// --- Status transitions ---

func TestService_UpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		svc, repo, _ := newTestService(StatusPolicy{})

		repo.On("GetByID", ctx, uint(7)).Return(&Order{ID: 7, Status: StatusPending}, nil)
		repo.On("Update", ctx, uint(7), mock.MatchedBy(func(f UpdateFields) bool {
			return f.Status != nil && *f.Status == StatusShipped
		})).Return(nil)

		_, err := svc.UpdateStatus(ctx, 7, "shipped")
		assert.NoError(t, err)
	})

	t.Run("UnknownStatusLeavesOrderUntouched", func(t *testing.T) {
		svc, repo, _ := newTestService(StatusPolicy{})
		repo.On("GetByID", ctx, uint(7)).Return(&Order{ID: 7, Status: StatusPending}, nil)

		_, err := svc.UpdateStatus(ctx, 7, "refunded")

		var statusErr *InvalidStatusError
		assert.ErrorAs(t, err, &statusErr)
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})
}

// --- Bulk operations ---

func TestService_BulkOperations(t *testing.T) {
	ctx := context.Background()

	t.Run("BulkDelete", func(t *testing.T) {
		svc, repo, _ := newTestService(StatusPolicy{})

		repo.On("BulkDelete", ctx, []uint{1, 2, 3}).
			Return(&BulkResult{Applied: []uint{1, 2}, Missing: []uint{3}}, nil)

		result, err := svc.BulkDelete(ctx, []uint{1, 2, 3})
		require.NoError(t, err)
		assert.Equal(t, []uint{1, 2}, result.Applied)
		assert.Equal(t, []uint{3}, result.Missing)
	})

	t.Run("BulkDeleteEmptyIDs", func(t *testing.T) {
		svc, _, _ := newTestService(StatusPolicy{})
		_, err := svc.BulkDelete(ctx, nil)

		var fieldErrs FieldErrors
		assert.ErrorAs(t, err, &fieldErrs)
	})

	t.Run("BulkUpdateStatus", func(t *testing.T) {
		svc, repo, _ := newTestService(StatusPolicy{LockFinal: true})

		repo.On("BulkUpdateStatus", ctx, []uint{1, 2, 3}, StatusShipped, true).
			Return(&BulkResult{Applied: []uint{1, 2, 3}, Missing: []uint{}}, nil)

		result, err := svc.BulkUpdateStatus(ctx, []uint{1, 2, 3}, "shipped")
		require.NoError(t, err)
		assert.Len(t, result.Applied, 3)
	})

	t.Run("BulkUpdateStatusUnknownValue", func(t *testing.T) {
		svc, repo, _ := newTestService(StatusPolicy{})
		_, err := svc.BulkUpdateStatus(ctx, []uint{1}, "refunded")

		var statusErr *InvalidStatusError
		assert.ErrorAs(t, err, &statusErr)
		repo.AssertNotCalled(t, "BulkUpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

// --- Stats ---

func TestService_GetStats(t *testing.T) {
	ctx := context.Background()

	t.Run("AggregatesReconcile", func(t *testing.T) {
		svc, repo, _ := newTestService(StatusPolicy{})

		byStatus := []StatusStat{
			{Status: StatusPending, Count: 2, Total: 800},
			{Status: StatusShipped, Count: 3, Total: 2200},
		}
		recent := []RecentOrder{{ID: 5, CustomerName: "Siti", TotalAmount: 600, Status: StatusPending}}

		repo.On("CountInWindow", ctx, (*time.Time)(nil), (*time.Time)(nil)).Return(int64(5), nil)
		repo.On("SumRevenue", ctx, (*time.Time)(nil), (*time.Time)(nil)).Return(int64(3000), nil)
		repo.On("CountByStatus", ctx, (*time.Time)(nil), (*time.Time)(nil)).Return(byStatus, nil)
		repo.On("RecentOrders", ctx, (*time.Time)(nil), (*time.Time)(nil), 10).Return(recent, nil)

		stats, err := svc.GetStats(ctx, nil, nil)
		require.NoError(t, err)

		assert.Equal(t, int64(5), stats.TotalOrders)
		assert.Equal(t, int64(3000), stats.TotalRevenue)

		var countSum, revenueSum int64
		for _, s := range stats.OrdersByStatus {
			countSum += s.Count
			revenueSum += s.Total
		}
		assert.Equal(t, stats.TotalOrders, countSum)
		assert.Equal(t, stats.TotalRevenue, revenueSum)
	})

	t.Run("EmptyWindow", func(t *testing.T) {
		svc, repo, _ := newTestService(StatusPolicy{})

		repo.On("CountInWindow", ctx, mock.Anything, mock.Anything).Return(int64(0), nil)
		repo.On("SumRevenue", ctx, mock.Anything, mock.Anything).Return(int64(0), nil)
		repo.On("CountByStatus", ctx, mock.Anything, mock.Anything).Return([]StatusStat(nil), nil)
		repo.On("RecentOrders", ctx, mock.Anything, mock.Anything, 10).Return([]RecentOrder(nil), nil)

		stats, err := svc.GetStats(ctx, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(0), stats.TotalRevenue)
		assert.NotNil(t, stats.OrdersByStatus)
		assert.NotNil(t, stats.RecentOrders)
	})
}

// --- Track ---

func TestService_TrackByPhone(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		svc, repo, _ := newTestService(StatusPolicy{})
		repo.On("FindByPhone", ctx, "0812345678").Return([]*Order{{ID: 1}}, nil)

		orders, err := svc.TrackByPhone(ctx, "0812345678")
		require.NoError(t, err)
		assert.Len(t, orders, 1)
	})

	t.Run("BadPhone", func(t *testing.T) {
		svc, repo, _ := newTestService(StatusPolicy{})
		_, err := svc.TrackByPhone(ctx, "not-a-phone")

		var fieldErrs FieldErrors
		assert.ErrorAs(t, err, &fieldErrs)
		repo.AssertNotCalled(t, "FindByPhone", mock.Anything, mock.Anything)
	})

	t.Run("NoMatchesIsEmptyNotNil", func(t *testing.T) {
		svc, repo, _ := newTestService(StatusPolicy{})
		repo.On("FindByPhone", ctx, "0800000000").Return([]*Order(nil), nil)

		orders, err := svc.TrackByPhone(ctx, "0800000000")
		require.NoError(t, err)
		assert.NotNil(t, orders)
		assert.Empty(t, orders)
	})
}
