package inventory_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/hamza-damra/AgrifinPal-sub000/inventory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

func productRows(stock int, available bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "description", "farm_name", "unit", "price", "stock", "available"}).
		AddRow(1, "Tomatoes", "", "Green Valley Farm", "kg", 10.0, stock, available)
}

func TestCheckAvailableOK(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	guard := inventory.NewGuard(gormDB, zap.NewNop())

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "products"`)).
		WillReturnRows(productRows(5, true))

	err := guard.CheckAvailable(context.Background(), 1, 3)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckAvailableProductNotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	guard := inventory.NewGuard(gormDB, zap.NewNop())

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "products"`)).
		WillReturnRows(sqlmock.NewRows([]string{}))

	err := guard.CheckAvailable(context.Background(), 1, 1)
	assert.ErrorIs(t, err, inventory.ErrProductNotFound)
}

func TestCheckAvailableUnavailableProduct(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	guard := inventory.NewGuard(gormDB, zap.NewNop())

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "products"`)).
		WillReturnRows(productRows(5, false))

	err := guard.CheckAvailable(context.Background(), 1, 1)
	assert.ErrorIs(t, err, inventory.ErrProductUnavailable)
}

func TestCheckAvailableInsufficientStock(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	guard := inventory.NewGuard(gormDB, zap.NewNop())

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "products"`)).
		WillReturnRows(productRows(2, true))

	err := guard.CheckAvailable(context.Background(), 1, 5)

	var insufficient *inventory.InsufficientInventoryError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 2, insufficient.Available)
	assert.Equal(t, 5, insufficient.Requested)
	assert.Contains(t, err.Error(), "only 2 units available")
}

func TestCheckAvailableRejectsNonPositiveQuantity(t *testing.T) {
	gormDB, _ := setupMockDB(t)
	guard := inventory.NewGuard(gormDB, zap.NewNop())

	err := guard.CheckAvailable(context.Background(), 1, 0)
	assert.ErrorIs(t, err, inventory.ErrInvalidQuantity)

	err = guard.CheckAvailable(context.Background(), 1, -3)
	assert.ErrorIs(t, err, inventory.ErrInvalidQuantity)
}
