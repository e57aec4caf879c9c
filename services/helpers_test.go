package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/database"
	"github.com/yeremiapane/restaurant-pos/events"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/money"
)

type fixture struct {
	ctx      context.Context
	db       *gorm.DB
	rec      *events.Recorder
	tables   *TableService
	orders   *OrderService
	payments *PaymentService
	cash     *CashRegisterService
	company  uint
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open("sqlite", "")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	rec := &events.Recorder{}
	tables := NewTableService(db, rec)
	f := &fixture{
		ctx:      context.Background(),
		db:       db,
		rec:      rec,
		tables:   tables,
		orders:   NewOrderService(db, tables, rec, money.Zero()),
		payments: NewPaymentService(db, rec),
		cash:     NewCashRegisterService(db, rec, money.Zero()),
	}
	f.company = f.newCompany(t, "Warung Satu")
	return f
}

func (f *fixture) newCompany(t *testing.T, name string) uint {
	t.Helper()
	c := models.Company{Name: name, IsActive: true}
	require.NoError(t, f.db.Create(&c).Error)
	return c.ID
}

func (f *fixture) table(t *testing.T, companyID uint, number string) *models.Table {
	t.Helper()
	table, err := f.tables.RegisterTable(f.ctx, companyID, number, 4)
	require.NoError(t, err)
	return table
}

func (f *fixture) method(t *testing.T, companyID uint, name string, cash bool) *models.PaymentMethod {
	t.Helper()
	m, err := f.payments.CreatePaymentMethod(f.ctx, companyID, name, cash)
	require.NoError(t, err)
	return m
}

func (f *fixture) takeout(t *testing.T, companyID uint) *models.Order {
	t.Helper()
	order, err := f.orders.CreateOrder(f.ctx, companyID, 7, NewOrder{Type: models.OrderTakeout})
	require.NoError(t, err)
	return order
}

func (f *fixture) addItem(t *testing.T, companyID, orderID uint, price string, qty int) *models.OrderItem {
	t.Helper()
	item, err := f.orders.AddItem(f.ctx, companyID, orderID, NewItem{ProductID: 1, Quantity: qty, UnitPrice: money.MustParse(price)})
	require.NoError(t, err)
	return item
}

// advance walks the order along the happy path up to and including to.
func (f *fixture) advance(t *testing.T, companyID, orderID uint, to models.OrderStatus, opts ...TransitionOption) *models.Order {
	t.Helper()
	path := []models.OrderStatus{models.OrderSentToKitchen, models.OrderPreparing, models.OrderReady, models.OrderClosed}
	var order *models.Order
	for _, next := range path {
		var err error
		order, err = f.orders.TransitionStatus(f.ctx, companyID, 7, orderID, next, opts...)
		require.NoError(t, err)
		if next == to {
			break
		}
	}
	return order
}

// paidOrder creates a takeout order worth amount, pays it in full with
// method and closes it.
func (f *fixture) paidOrder(t *testing.T, companyID, methodID uint, amount string) *models.Order {
	t.Helper()
	order := f.takeout(t, companyID)
	f.addItem(t, companyID, order.ID, amount, 1)
	_, err := f.payments.RecordPayment(f.ctx, companyID, 7, order.ID, methodID, money.MustParse(amount))
	require.NoError(t, err)
	return f.advance(t, companyID, order.ID, models.OrderClosed)
}

// requireTableInvariant checks occupied <=> current order is live and seated here.
func (f *fixture) requireTableInvariant(t *testing.T, companyID uint) {
	t.Helper()
	tables, err := f.tables.ListTables(f.ctx, companyID)
	require.NoError(t, err)
	for _, table := range tables {
		if table.Status != models.TableOccupied {
			require.Nil(t, table.CurrentOrderID, "table %s", table.Number)
			continue
		}
		require.NotNil(t, table.CurrentOrderID, "table %s", table.Number)
		order, err := f.orders.GetOrder(f.ctx, companyID, *table.CurrentOrderID)
		require.NoError(t, err)
		require.False(t, order.Status.Terminal())
		require.NotNil(t, order.TableID)
		require.Equal(t, table.ID, *order.TableID)
	}
}
