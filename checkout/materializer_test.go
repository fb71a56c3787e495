package checkout_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hamza-damra/AgrifinPal-sub000/cart"
	"github.com/hamza-damra/AgrifinPal-sub000/checkout"
	"github.com/hamza-damra/AgrifinPal-sub000/inventory"
	"github.com/hamza-damra/AgrifinPal-sub000/lock"
	"github.com/hamza-damra/AgrifinPal-sub000/models"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fixture struct {
	db           *gorm.DB
	locks        lock.UserLocker
	carts        *cart.Manager
	materializer *checkout.Materializer
	finalizer    *checkout.Finalizer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
	))

	log := zap.NewNop()
	locks := lock.NewKeyedMutex()
	guard := inventory.NewGuard(db, log)
	carts := cart.NewManager(db, guard, locks, log)

	return &fixture{
		db:           db,
		locks:        locks,
		carts:        carts,
		materializer: checkout.NewMaterializer(db, locks, log),
		finalizer:    checkout.NewFinalizer(db, carts, locks, log),
	}
}

func (f *fixture) seedProduct(t *testing.T, name string, price float64, stock int) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Unit: "kg", Price: price, Stock: stock, Available: true}
	require.NoError(t, f.db.Create(p).Error)
	return p
}

func TestCreateOrderFromCartSnapshotsWithoutTouchingCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p1 := f.seedProduct(t, "Tomatoes", 10, 8)
	p2 := f.seedProduct(t, "Olive Oil", 5, 8)

	_, err := f.carts.AddItem(ctx, "buyer-1", p1.ID, 2)
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, "buyer-1", p2.ID, 1)
	require.NoError(t, err)

	order, err := f.materializer.CreateOrderFromCart(ctx, "buyer-1", "pay-001")
	require.NoError(t, err)

	require.InDelta(t, 25.0, order.TotalAmount, 1e-9)
	require.Len(t, order.Items, 2)
	require.Equal(t, models.OrderStatusPaid, order.Status)
	require.Equal(t, models.PaymentStatusCompleted, order.PaymentStatus)
	require.Equal(t, "pay-001", order.PaymentReference)
	require.NotEmpty(t, order.OrderRef)

	// stock was claimed
	var tomatoes models.Product
	require.NoError(t, f.db.First(&tomatoes, p1.ID).Error)
	require.Equal(t, 6, tomatoes.Stock)

	// the cart is untouched; retirement is the finalizer's job
	c, err := f.carts.ActiveCart(ctx, "buyer-1")
	require.NoError(t, err)
	require.Len(t, c.Items, 2)
	require.InDelta(t, 25.0, c.TotalPrice, 1e-9)
}

func TestCreateOrderFromCartPreconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// no cart at all
	_, err := f.materializer.CreateOrderFromCart(ctx, "buyer-1", "pay-001")
	require.ErrorIs(t, err, cart.ErrCartNotFound)

	// empty cart
	_, err = f.carts.GetOrCreateActiveCart(ctx, "buyer-1")
	require.NoError(t, err)
	_, err = f.materializer.CreateOrderFromCart(ctx, "buyer-1", "pay-001")
	require.ErrorIs(t, err, checkout.ErrCartEmpty)

	var count int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&count).Error)
	require.EqualValues(t, 0, count)
}

func TestCreateOrderFromCartIdempotentOnPaymentReference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := f.seedProduct(t, "Dates", 12, 10)
	_, err := f.carts.AddItem(ctx, "buyer-1", p.ID, 3)
	require.NoError(t, err)

	first, err := f.materializer.CreateOrderFromCart(ctx, "buyer-1", "pay-dup")
	require.NoError(t, err)

	// webhook redelivery
	second, err := f.materializer.CreateOrderFromCart(ctx, "buyer-1", "pay-dup")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	var orders int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&orders).Error)
	require.EqualValues(t, 1, orders)

	// stock was only claimed once
	var product models.Product
	require.NoError(t, f.db.First(&product, p.ID).Error)
	require.Equal(t, 7, product.Stock)
}

func TestCreateOrderFromCartFailsWhenOutsold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p1 := f.seedProduct(t, "Tomatoes", 10, 5)
	p2 := f.seedProduct(t, "Figs", 7, 5)

	_, err := f.carts.AddItem(ctx, "buyer-1", p1.ID, 2)
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, "buyer-1", p2.ID, 4)
	require.NoError(t, err)

	// another buyer got there first
	require.NoError(t, f.db.Model(&models.Product{}).Where("id = ?", p2.ID).
		Update("stock", 1).Error)

	_, err = f.materializer.CreateOrderFromCart(ctx, "buyer-1", "pay-late")
	var insufficient *inventory.InsufficientInventoryError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, p2.ID, insufficient.ProductID)
	require.Equal(t, 1, insufficient.Available)

	// nothing committed: no order, and the first line's decrement rolled back
	var orders int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&orders).Error)
	require.EqualValues(t, 0, orders)

	var tomatoes models.Product
	require.NoError(t, f.db.First(&tomatoes, p1.ID).Error)
	require.Equal(t, 5, tomatoes.Stock)
}

func TestCreateOrderFromCartWaitsForCartMutations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p1 := f.seedProduct(t, "Tomatoes", 10, 8)
	p2 := f.seedProduct(t, "Olive Oil", 5, 8)

	_, err := f.carts.AddItem(ctx, "buyer-1", p1.ID, 2)
	require.NoError(t, err)
	item2, err := f.carts.AddItem(ctx, "buyer-1", p2.ID, 1)
	require.NoError(t, err)

	// hold the user lock the way an in-flight RemoveItem does
	unlock, err := f.locks.Lock(ctx, "buyer-1")
	require.NoError(t, err)

	type result struct {
		order *models.Order
		err   error
	}
	done := make(chan result, 1)
	go func() {
		order, err := f.materializer.CreateOrderFromCart(ctx, "buyer-1", "pay-racing")
		done <- result{order, err}
	}()

	// the payment callback must block until the mutation is complete; this
	// removal lands before the snapshot is taken
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, f.db.Delete(&models.CartItem{}, item2.ID).Error)
	unlock()

	res := <-done
	require.NoError(t, res.err)
	require.Len(t, res.order.Items, 1)
	require.Equal(t, p1.ID, res.order.Items[0].ProductID)
	require.InDelta(t, 20.0, res.order.TotalAmount, 1e-9)

	// the removed line's stock was never claimed
	var oil models.Product
	require.NoError(t, f.db.First(&oil, p2.ID).Error)
	require.Equal(t, 8, oil.Stock)
}

func TestOrderRefsAreUnique(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := f.seedProduct(t, "Lemons", 4, 100)

	refs := map[string]bool{}
	for i := 0; i < 3; i++ {
		user := uuid.NewString()
		_, err := f.carts.AddItem(ctx, user, p.ID, 1)
		require.NoError(t, err)
		order, err := f.materializer.CreateOrderFromCart(ctx, user, uuid.NewString())
		require.NoError(t, err)
		require.False(t, refs[order.OrderRef])
		refs[order.OrderRef] = true
	}
}
