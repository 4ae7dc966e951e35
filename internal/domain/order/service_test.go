package order

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"golang.org/x/sync/errgroup"
)

// --- In-memory ledger ---

type memRepo struct {
	mu          sync.Mutex
	orders      []Order
	nextOrderID int64
	nextItemID  int64
	now         time.Time

	// failItemAt makes Create fail while inserting the item with that index.
	failItemAt  int
	createCalls int
	getErr      error
	listErr     error
}

func newMemRepo() *memRepo {
	return &memRepo{failItemAt: -1, now: time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)}
}

func (m *memRepo) Create(_ context.Context, o *NewOrder) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++

	staged := Order{
		ID:            m.nextOrderID + 1,
		UserID:        o.UserID,
		Total:         o.Total,
		PaymentMethod: o.PaymentMethod,
		Status:        o.Status,
		CreatedAt:     m.now.Add(time.Duration(m.nextOrderID) * time.Second),
	}
	itemID := m.nextItemID
	for i, item := range o.Items {
		if i == m.failItemAt {
			return 0, errors.New("insert item: connection reset")
		}
		itemID++
		staged.Items = append(staged.Items, Item{
			ID:       itemID,
			OrderID:  staged.ID,
			MenuID:   item.MenuID,
			MenuName: item.Name,
			Price:    item.Price,
			Quantity: item.Quantity,
			Subtotal: item.Subtotal(),
		})
	}

	m.nextOrderID = staged.ID
	m.nextItemID = itemID
	m.orders = append(m.orders, staged)
	return staged.ID, nil
}

func (m *memRepo) GetByID(_ context.Context, id int64) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, o := range m.orders {
		if o.ID == id {
			o.Items = slices.Clone(o.Items)
			return &o, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memRepo) List(_ context.Context, f Filter) ([]Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []Order
	for _, o := range m.orders {
		if !f.DateFrom.IsZero() && o.CreatedAt.Before(f.DateFrom) {
			continue
		}
		if !f.DateTo.IsZero() && o.CreatedAt.After(f.DateTo) {
			continue
		}
		if f.UserID != 0 && o.UserID != f.UserID {
			continue
		}
		out = append(out, o)
	}
	slices.Reverse(out)
	return out, nil
}

func (m *memRepo) itemCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, o := range m.orders {
		n += len(o.Items)
	}
	return n
}

// --- Helpers ---

func newTestService(t *testing.T, repo Repository) *Service {
	t.Helper()
	svc, err := NewService(repo, noop.NewMeterProvider())
	require.NoError(t, err)
	return svc
}

func threeItemCart() []CartItem {
	return []CartItem{
		{MenuID: 1, Name: "Espresso", Price: 18000, Quantity: 2},
		{MenuID: 2, Name: "Croissant", Price: 25000, Quantity: 1},
		{MenuID: 3, Name: "Latte", Price: 28000, Quantity: 3},
	}
}

// --- Tests ---

func TestCreateOrder_Validation(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateOrderRequest
		wantErr error
	}{
		{
			name:    "empty items",
			req:     CreateOrderRequest{UserID: 1, Total: 100},
			wantErr: ErrEmptyItems,
		},
		{
			name:    "zero total",
			req:     CreateOrderRequest{UserID: 1, Items: threeItemCart(), Total: 0},
			wantErr: ErrInvalidTotal,
		},
		{
			name:    "negative total",
			req:     CreateOrderRequest{UserID: 1, Items: threeItemCart(), Total: -5},
			wantErr: ErrInvalidTotal,
		},
		{
			name:    "missing user",
			req:     CreateOrderRequest{Items: threeItemCart(), Total: 100},
			wantErr: ErrInvalidUser,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemRepo()
			svc := newTestService(t, repo)

			_, err := svc.CreateOrder(context.Background(), tt.req)
			require.ErrorIs(t, err, tt.wantErr)
			assert.True(t, IsValidation(err))
			assert.Zero(t, repo.createCalls, "store must not be touched")
		})
	}
}

func TestCreateOrder_InvalidItem(t *testing.T) {
	tests := []struct {
		name string
		item CartItem
	}{
		{name: "zero quantity", item: CartItem{MenuID: 1, Name: "Tea", Price: 100, Quantity: 0}},
		{name: "negative price", item: CartItem{MenuID: 1, Name: "Tea", Price: -1, Quantity: 1}},
		{name: "blank name", item: CartItem{MenuID: 1, Name: "  ", Price: 100, Quantity: 1}},
		{name: "missing menu id", item: CartItem{Name: "Tea", Price: 100, Quantity: 1}},
		{name: "quantity above column range", item: CartItem{MenuID: 1, Name: "Tea", Price: 1, Quantity: 3_000_000_000}},
		{name: "quantity one past max", item: CartItem{MenuID: 1, Name: "Tea", Price: 0, Quantity: MaxQuantity + 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemRepo()
			svc := newTestService(t, repo)

			items := append(threeItemCart()[:1], tt.item)
			_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
				UserID: 1, Items: items, Total: 100,
			})

			var itemErr *InvalidItemError
			require.ErrorAs(t, err, &itemErr)
			assert.Equal(t, 1, itemErr.Index)
			assert.True(t, IsValidation(err))
			assert.Zero(t, repo.createCalls)
		})
	}
}

func TestCreateOrder_PersistsSnapshotItems(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(t, repo)
	cart := threeItemCart()

	o, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		UserID: 7, Items: cart, Total: 145000,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(7), o.UserID)
	assert.Equal(t, int64(145000), o.Total)
	assert.Equal(t, StatusCompleted, o.Status)
	assert.Equal(t, DefaultPaymentMethod, o.PaymentMethod)
	require.Len(t, o.Items, len(cart))
	for i, item := range o.Items {
		assert.Equal(t, cart[i].MenuID, item.MenuID)
		assert.Equal(t, cart[i].Name, item.MenuName)
		assert.Equal(t, cart[i].Price, item.Price)
		assert.Equal(t, cart[i].Quantity, item.Quantity)
		assert.Equal(t, cart[i].Price*int64(cart[i].Quantity), item.Subtotal)
	}
}

func TestCreateOrder_PaymentMethod(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(t, repo)

	o, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		UserID: 1, Items: threeItemCart(), Total: 1, PaymentMethod: "qris",
	})
	require.NoError(t, err)
	assert.Equal(t, "qris", o.PaymentMethod)

	o, err = svc.CreateOrder(context.Background(), CreateOrderRequest{
		UserID: 1, Items: threeItemCart(), Total: 1, PaymentMethod: "   ",
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultPaymentMethod, o.PaymentMethod)
}

// The declared total is client-trusted: a total that disagrees with the sum of
// line subtotals is accepted and stored verbatim.
func TestCreateOrder_TotalNotReconciled(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(t, repo)
	cart := threeItemCart()

	var sum int64
	for _, c := range cart {
		sum += c.Subtotal()
	}

	o, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		UserID: 1, Items: cart, Total: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), o.Total)
	assert.NotEqual(t, sum, o.Total)
}

func TestCreateOrder_StorageFailureLeavesNothing(t *testing.T) {
	repo := newMemRepo()
	repo.failItemAt = 1
	svc := newTestService(t, repo)

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		UserID: 1, Items: threeItemCart(), Total: 100,
	})

	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "create order", storageErr.Op)
	assert.False(t, IsValidation(err))

	list, err := svc.ListOrders(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Zero(t, list.Count)
	assert.Zero(t, repo.itemCount())
}

func TestCreateOrder_ReadBackFailure(t *testing.T) {
	repo := newMemRepo()
	repo.getErr = errors.New("read timeout")
	svc := newTestService(t, repo)

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		UserID: 1, Items: threeItemCart(), Total: 100,
	})

	var readErr *ReadBackError
	require.ErrorAs(t, err, &readErr)
	assert.Equal(t, int64(1), readErr.OrderID)
	assert.False(t, IsValidation(err))

	var storageErr *StorageError
	assert.False(t, errors.As(err, &storageErr), "committed order must not look like a failed write")
	assert.Equal(t, 1, repo.createCalls)
}

func TestCreateOrder_MaxQuantityAccepted(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(t, repo)

	o, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		UserID: 1,
		Items:  []CartItem{{MenuID: 1, Name: "Sugar sachet", Price: 1, Quantity: MaxQuantity}},
		Total:  MaxQuantity,
	})
	require.NoError(t, err)
	assert.Equal(t, MaxQuantity, o.Items[0].Quantity)
}

func TestCreateOrder_Concurrent(t *testing.T) {
	const n = 32
	repo := newMemRepo()
	svc := newTestService(t, repo)

	ids := make([]int64, n)
	var g errgroup.Group
	for i := range n {
		g.Go(func() error {
			o, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
				UserID: 1, Items: threeItemCart(), Total: int64(i + 1),
			})
			if err != nil {
				return err
			}
			ids[i] = o.ID
			return nil
		})
	}
	require.NoError(t, g.Wait())

	slices.Sort(ids)
	assert.Len(t, slices.Compact(slices.Clone(ids)), n, "order ids must be distinct")
	for _, id := range ids {
		o, err := svc.GetOrder(context.Background(), id)
		require.NoError(t, err)
		assert.Len(t, o.Items, 3)
	}
	assert.Equal(t, 3*n, repo.itemCount())
}

func TestGetOrder(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(t, repo)

	created, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		UserID: 1, Items: threeItemCart(), Total: 100,
	})
	require.NoError(t, err)

	t.Run("found", func(t *testing.T) {
		o, err := svc.GetOrder(context.Background(), created.ID)
		require.NoError(t, err)
		assert.Equal(t, created, o)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := svc.GetOrder(context.Background(), created.ID+100)
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("non-positive id", func(t *testing.T) {
		_, err := svc.GetOrder(context.Background(), 0)
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("storage failure", func(t *testing.T) {
		failing := newMemRepo()
		failing.getErr = errors.New("db down")
		_, err := newTestService(t, failing).GetOrder(context.Background(), 1)

		var storageErr *StorageError
		require.ErrorAs(t, err, &storageErr)
		assert.Equal(t, "get order", storageErr.Op)
	})
}

func TestListOrders(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(t, repo)

	for i, user := range []int64{1, 2, 1} {
		_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
			UserID: user, Items: threeItemCart(), Total: int64(1000 * (i + 1)),
		})
		require.NoError(t, err)
	}

	t.Run("all", func(t *testing.T) {
		list, err := svc.ListOrders(context.Background(), Filter{})
		require.NoError(t, err)
		assert.Equal(t, 3, list.Count)
		assert.Equal(t, int64(6000), list.TotalRevenue)
		assert.Equal(t, []int64{3, 2, 1}, orderIDs(list.Orders), "most recent first")
	})

	t.Run("by user", func(t *testing.T) {
		list, err := svc.ListOrders(context.Background(), Filter{UserID: 1})
		require.NoError(t, err)
		assert.Equal(t, 2, list.Count)
		assert.Equal(t, int64(4000), list.TotalRevenue)
	})

	t.Run("revenue matches returned rows", func(t *testing.T) {
		f := Filter{DateFrom: repo.now.Add(time.Second), UserID: 1}
		list, err := svc.ListOrders(context.Background(), f)
		require.NoError(t, err)

		var sum int64
		for _, o := range list.Orders {
			sum += o.Total
		}
		assert.Equal(t, sum, list.TotalRevenue)
		assert.Equal(t, len(list.Orders), list.Count)
	})

	t.Run("empty result is not nil", func(t *testing.T) {
		list, err := svc.ListOrders(context.Background(), Filter{UserID: 99})
		require.NoError(t, err)
		assert.NotNil(t, list.Orders)
		assert.Zero(t, list.Count)
		assert.Zero(t, list.TotalRevenue)
	})

	t.Run("storage failure", func(t *testing.T) {
		failing := newMemRepo()
		failing.listErr = errors.New("db down")
		_, err := newTestService(t, failing).ListOrders(context.Background(), Filter{})

		var storageErr *StorageError
		require.ErrorAs(t, err, &storageErr)
	})
}

func TestStorageError(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("handler: %w", &StorageError{Op: "list orders", Err: cause})

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "list orders: boom")
}

func orderIDs(orders []Order) []int64 {
	ids := make([]int64, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	return ids
}
