package inventory_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Govind-619/storefront/inventory"
	"github.com/Govind-619/storefront/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestTryReserve(t *testing.T) {
	db := testutil.NewTestDB(t)
	product := testutil.CreateTestProduct(t, db, "Shirt", "100", 3)

	require.NoError(t, inventory.TryReserve(db, product.ID, 2))
	assert.Equal(t, 1, testutil.ReloadProduct(t, db, product.ID).Stock)

	err := inventory.TryReserve(db, product.ID, 2)
	var stockErr *inventory.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, "Shirt", stockErr.ProductName)
	assert.Equal(t, 1, stockErr.Available)
	assert.Equal(t, 1, testutil.ReloadProduct(t, db, product.ID).Stock)

	assert.Error(t, inventory.TryReserve(db, product.ID, 0))
}

func TestTryReserveConcurrentLastUnit(t *testing.T) {
	db := testutil.NewTestDB(t)
	product := testutil.CreateTestProduct(t, db, "Last one", "50", 1)

	var wg sync.WaitGroup
	var successes, shortfalls int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := db.Transaction(func(tx *gorm.DB) error {
				return inventory.TryReserve(tx, product.ID, 1)
			})
			var stockErr *inventory.InsufficientStockError
			switch {
			case err == nil:
				atomic.AddInt32(&successes, 1)
			case errors.As(err, &stockErr):
				atomic.AddInt32(&shortfalls, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes)
	assert.Equal(t, int32(9), shortfalls)
	assert.Equal(t, 0, testutil.ReloadProduct(t, db, product.ID).Stock)
}

func TestSettleAllOrNothing(t *testing.T) {
	db := testutil.NewTestDB(t)
	a := testutil.CreateTestProduct(t, db, "A", "10", 5)
	b := testutil.CreateTestProduct(t, db, "B", "10", 1)

	err := db.Transaction(func(tx *gorm.DB) error {
		return inventory.Settle(tx, []inventory.Line{
			{ProductID: a.ID, Quantity: 2},
			{ProductID: b.ID, Quantity: 2},
		})
	})
	var stockErr *inventory.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, b.ID, stockErr.ProductID)

	assert.Equal(t, 5, testutil.ReloadProduct(t, db, a.ID).Stock)
	assert.Equal(t, 1, testutil.ReloadProduct(t, db, b.ID).Stock)
}

func TestSettleMergesDuplicateLines(t *testing.T) {
	db := testutil.NewTestDB(t)
	a := testutil.CreateTestProduct(t, db, "A", "10", 3)

	err := db.Transaction(func(tx *gorm.DB) error {
		return inventory.Settle(tx, []inventory.Line{
			{ProductID: a.ID, Quantity: 2},
			{ProductID: a.ID, Quantity: 2},
		})
	})
	var stockErr *inventory.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, 4, stockErr.Requested)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return inventory.Settle(tx, []inventory.Line{
			{ProductID: a.ID, Quantity: 1},
			{ProductID: a.ID, Quantity: 2},
		})
	}))
	assert.Equal(t, 0, testutil.ReloadProduct(t, db, a.ID).Stock)
}

func TestSettleUnknownProduct(t *testing.T) {
	db := testutil.NewTestDB(t)
	err := inventory.Settle(db, []inventory.Line{{ProductID: 999, Quantity: 1}})
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestMergeOrdersByProductID(t *testing.T) {
	merged := inventory.Merge([]inventory.Line{
		{ProductID: 7, Quantity: 1},
		{ProductID: 2, Quantity: 3},
		{ProductID: 7, Quantity: 4},
	})
	assert.Equal(t, []inventory.Line{
		{ProductID: 2, Quantity: 3},
		{ProductID: 7, Quantity: 5},
	}, merged)
}

func TestRestock(t *testing.T) {
	db := testutil.NewTestDB(t)
	a := testutil.CreateTestProduct(t, db, "A", "10", 0)
	b := testutil.CreateTestProduct(t, db, "B", "10", 2)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return inventory.Restock(tx, []inventory.Line{
			{ProductID: b.ID, Quantity: 1},
			{ProductID: a.ID, Quantity: 3},
			{ProductID: b.ID, Quantity: 1},
		})
	}))
	assert.Equal(t, 3, testutil.ReloadProduct(t, db, a.ID).Stock)
	assert.Equal(t, 4, testutil.ReloadProduct(t, db, b.ID).Stock)

	err := inventory.Restock(db, []inventory.Line{{ProductID: 999, Quantity: 1}})
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}
