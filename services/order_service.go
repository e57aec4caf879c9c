package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/database"
	"github.com/yeremiapane/restaurant-pos/events"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/money"
	"github.com/yeremiapane/restaurant-pos/repository"
	"github.com/yeremiapane/restaurant-pos/utils"
)

var orderEdges = map[models.OrderStatus][]models.OrderStatus{
	models.OrderOpen:          {models.OrderSentToKitchen, models.OrderCancelled},
	models.OrderSentToKitchen: {models.OrderPreparing, models.OrderCancelled},
	models.OrderPreparing:     {models.OrderReady, models.OrderCancelled},
	models.OrderReady:         {models.OrderClosed},
}

var itemEdges = map[models.ItemStatus]models.ItemStatus{
	models.ItemPending:   models.ItemPreparing,
	models.ItemPreparing: models.ItemReady,
	models.ItemReady:     models.ItemDelivered,
}

func canTransition(from, to models.OrderStatus) bool {
	for _, next := range orderEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Customer struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type NewOrder struct {
	Type     models.OrderType
	TableID  *uint
	Customer Customer
}

type NewItem struct {
	ProductID        uint
	Quantity         int
	UnitPrice        money.Amount
	Notes            string
	ProductionSector string
}

// Totals compares the cached order columns with values derived from the
// live item rows.
type Totals struct {
	OrderID        uint         `json:"order_id"`
	Subtotal       money.Amount `json:"subtotal"`
	ServiceCharge  money.Amount `json:"service_charge"`
	Discount       money.Amount `json:"discount"`
	Total          money.Amount `json:"total"`
	CachedSubtotal money.Amount `json:"cached_subtotal"`
	CachedTotal    money.Amount `json:"cached_total"`
	Drift          bool         `json:"drift"`
}

type transitionOptions struct {
	acceptShortfall bool
}

type TransitionOption func(*transitionOptions)

// AcceptShortfall lets an underpaid order close. The missing amount is kept
// on Order.Shortfall.
func AcceptShortfall() TransitionOption {
	return func(o *transitionOptions) { o.acceptShortfall = true }
}

type OrderService struct {
	base
	Tables *TableService
	// CloseTolerance is how much may remain unpaid when an order closes
	// without AcceptShortfall.
	CloseTolerance money.Amount
}

func NewOrderService(db *gorm.DB, tables *TableService, emitter events.Emitter, closeTolerance money.Amount) *OrderService {
	return &OrderService{
		base:           newBase(db, emitter),
		Tables:         tables,
		CloseTolerance: closeTolerance,
	}
}

// newOrderNumber is date, nanosecond clock in base 36 and a random suffix,
// e.g. 20240131-lrb8k2x4q1-9f3a.
func newOrderNumber(now time.Time) string {
	return fmt.Sprintf("%s-%s-%s",
		now.Format("20060102"),
		strconv.FormatInt(now.UnixNano(), 36),
		uuid.NewString()[:4])
}

// CreateOrder opens an order and, for dine-in, claims its table in the same
// transaction.
func (s *OrderService) CreateOrder(ctx context.Context, companyID, userID uint, in NewOrder) (*models.Order, error) {
	const op = "CreateOrder"
	if !in.Type.Valid() {
		return nil, validationError(op, "unknown order type %q", in.Type)
	}
	switch in.Type {
	case models.OrderDineIn:
		if in.TableID == nil || *in.TableID == 0 {
			return nil, validationError(op, "dine_in orders need a table")
		}
	case models.OrderDelivery:
		if strings.TrimSpace(in.Customer.Address) == "" {
			return nil, validationError(op, "delivery orders need a customer address")
		}
	}
	if in.Type != models.OrderDineIn && in.TableID != nil {
		return nil, validationError(op, "only dine_in orders take a table")
	}

	now := s.now()
	order := &models.Order{
		TableID:         in.TableID,
		OrderNumber:     newOrderNumber(now),
		Type:            in.Type,
		Status:          models.OrderOpen,
		Subtotal:        money.Zero(),
		ServiceCharge:   money.Zero(),
		Discount:        money.Zero(),
		Total:           money.Zero(),
		CustomerName:    strings.TrimSpace(in.Customer.Name),
		CustomerPhone:   strings.TrimSpace(in.Customer.Phone),
		CustomerAddress: strings.TrimSpace(in.Customer.Address),
		CreatedBy:       userID,
	}

	err := s.tenant(ctx, companyID).Transaction(func(tx repository.Tenant) error {
		if err := activeCompany(tx, op); err != nil {
			return err
		}
		if err := tx.Orders().Create(order); err != nil {
			if database.IsDuplicateKey(err) {
				return conflictError(op, "order number %s already taken", order.OrderNumber)
			}
			return storeError(op, err)
		}
		if order.TableID != nil {
			return s.Tables.ClaimTable(tx, *order.TableID, order.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"company_id":   companyID,
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"type":         order.Type,
	}).Info("order created")

	evs := []events.Event{events.New(events.OrderCreated, companyID, order.ID, order)}
	if order.TableID != nil {
		evs = append(evs, events.New(events.TableStatusChanged, companyID, order.ID, map[string]interface{}{
			"table_id":         *order.TableID,
			"status":           models.TableOccupied,
			"current_order_id": order.ID,
		}))
	}
	s.emit(evs...)
	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, companyID, orderID uint) (*models.Order, error) {
	order, err := s.tenant(ctx, companyID).Orders().GetWithItems(orderID)
	if err != nil {
		return nil, lookupError("GetOrder", "order", orderID, err)
	}
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, companyID uint, status models.OrderStatus) ([]models.Order, error) {
	if status != "" {
		if _, known := orderEdges[status]; !known && !status.Terminal() {
			return nil, validationError("ListOrders", "unknown status %q", status)
		}
	}
	orders, err := s.tenant(ctx, companyID).Orders().List(status)
	if err != nil {
		return nil, storeError("ListOrders", err)
	}
	return orders, nil
}

// lockOpen loads the order with a row lock and requires it to be open.
func lockOpen(tx repository.Tenant, op string, orderID uint) (*models.Order, error) {
	order, err := tx.Orders().GetForUpdate(orderID)
	if err != nil {
		return nil, lookupError(op, "order", orderID, err)
	}
	if order.Status != models.OrderOpen {
		return nil, invalidStateError(op, "order %s is %s", order.OrderNumber, order.Status)
	}
	return order, nil
}

// recompute rederives the cached subtotal and total from the live items and
// writes them back. A negative total is rejected, which rolls back the
// surrounding write.
func recompute(tx repository.Tenant, op string, order *models.Order) error {
	subtotals, err := tx.Orders().LiveItemSubtotals(order.ID)
	if err != nil {
		return storeError(op, err)
	}
	subtotal := money.Sum(subtotals...)
	total, err := money.Total(subtotal, order.ServiceCharge, order.Discount)
	if err != nil {
		return &Error{Kind: KindValidation, Op: op,
			Msg: fmt.Sprintf("discount %s exceeds subtotal %s plus service %s", order.Discount, subtotal, order.ServiceCharge),
			Err: err}
	}
	if !subtotal.Storable() || !total.Storable() {
		return validationError(op, "order total exceeds %s", money.Max)
	}
	order.Subtotal = subtotal
	order.Total = total
	if err := tx.Orders().SaveTotals(order); err != nil {
		return storeError(op, err)
	}
	return nil
}

func validateItem(op string, in NewItem) error {
	switch {
	case in.ProductID == 0:
		return validationError(op, "product is required")
	case in.Quantity <= 0:
		return validationError(op, "quantity must be positive")
	case in.UnitPrice.IsNegative():
		return validationError(op, "unit price must not be negative")
	case !in.UnitPrice.Storable():
		return validationError(op, "unit price must be at most %s with two decimals", money.Max)
	case !in.UnitPrice.Mul(in.Quantity).Storable():
		return validationError(op, "line subtotal exceeds %s", money.Max)
	}
	return nil
}

// AddItem appends a line to an open order. The insert and the new totals
// commit together.
func (s *OrderService) AddItem(ctx context.Context, companyID, orderID uint, in NewItem) (*models.OrderItem, error) {
	const op = "AddItem"
	if err := validateItem(op, in); err != nil {
		return nil, err
	}

	var (
		item  *models.OrderItem
		order *models.Order
	)
	err := s.tenant(ctx, companyID).Transaction(func(tx repository.Tenant) error {
		var err error
		if order, err = lockOpen(tx, op, orderID); err != nil {
			return err
		}
		item = &models.OrderItem{
			OrderID:          orderID,
			ProductID:        in.ProductID,
			Quantity:         in.Quantity,
			UnitPrice:        in.UnitPrice,
			Subtotal:         in.UnitPrice.Mul(in.Quantity),
			Status:           models.ItemPending,
			ProductionSector: strings.TrimSpace(in.ProductionSector),
			Notes:            strings.TrimSpace(in.Notes),
		}
		if err := tx.Orders().CreateItem(item); err != nil {
			return storeError(op, err)
		}
		return recompute(tx, op, order)
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"company_id": companyID,
		"order_id":   orderID,
		"item_id":    item.ID,
		"subtotal":   order.Subtotal.String(),
	}).Info("order item added")
	s.emit(itemEvent(events.OrderItemAdded, order, item))
	return item, nil
}

// RemoveItem cancels a line; the row stays for audit but leaves the totals.
func (s *OrderService) RemoveItem(ctx context.Context, companyID, orderID, itemID uint) error {
	const op = "RemoveItem"
	var (
		item  *models.OrderItem
		order *models.Order
	)
	err := s.tenant(ctx, companyID).Transaction(func(tx repository.Tenant) error {
		var err error
		if order, err = lockOpen(tx, op, orderID); err != nil {
			return err
		}
		if item, err = liveItem(tx, op, orderID, itemID); err != nil {
			return err
		}
		now := s.now()
		item.CancelledAt = &now
		if err := tx.Orders().UpdateItem(item, map[string]interface{}{"cancelled_at": now}); err != nil {
			return storeError(op, err)
		}
		return recompute(tx, op, order)
	})
	if err != nil {
		return err
	}
	s.emit(itemEvent(events.OrderItemRemoved, order, item))
	return nil
}

// ItemUpdate changes the quantity of a line, its kitchen status, or both.
// Zero fields are left alone.
type ItemUpdate struct {
	Quantity *int
	Status   models.ItemStatus
}

func (s *OrderService) UpdateItemQuantity(ctx context.Context, companyID, orderID, itemID uint, quantity int) (*models.OrderItem, error) {
	return s.updateItem(ctx, "UpdateItemQuantity", companyID, orderID, itemID, ItemUpdate{Quantity: &quantity})
}

// UpdateItemStatus moves a line through the kitchen flow. It does not depend
// on the order status as long as the order is not finished.
func (s *OrderService) UpdateItemStatus(ctx context.Context, companyID, orderID, itemID uint, next models.ItemStatus) (*models.OrderItem, error) {
	return s.updateItem(ctx, "UpdateItemStatus", companyID, orderID, itemID, ItemUpdate{Status: next})
}

// UpdateItem applies both parts of in in one transaction: either both land
// or neither does. A quantity change needs an open order.
func (s *OrderService) UpdateItem(ctx context.Context, companyID, orderID, itemID uint, in ItemUpdate) (*models.OrderItem, error) {
	return s.updateItem(ctx, "UpdateItem", companyID, orderID, itemID, in)
}

func (s *OrderService) updateItem(ctx context.Context, op string, companyID, orderID, itemID uint, in ItemUpdate) (*models.OrderItem, error) {
	if in.Quantity == nil && in.Status == "" {
		return nil, validationError(op, "quantity or status is required")
	}
	if in.Quantity != nil && *in.Quantity <= 0 {
		return nil, validationError(op, "quantity must be positive")
	}

	var (
		item  *models.OrderItem
		order *models.Order
	)
	err := s.tenant(ctx, companyID).Transaction(func(tx repository.Tenant) error {
		var err error
		if in.Quantity != nil {
			if order, err = lockOpen(tx, op, orderID); err != nil {
				return err
			}
		} else {
			if order, err = tx.Orders().Get(orderID); err != nil {
				return lookupError(op, "order", orderID, err)
			}
			if order.Status.Terminal() {
				return invalidStateError(op, "order %s is %s", order.OrderNumber, order.Status)
			}
		}
		if item, err = liveItem(tx, op, orderID, itemID); err != nil {
			return err
		}
		if in.Status != "" && itemEdges[item.Status] != in.Status {
			return invalidTransitionError(op, item.Status, in.Status)
		}

		if in.Quantity != nil {
			item.Quantity = *in.Quantity
			item.Subtotal = item.UnitPrice.Mul(item.Quantity)
			if err := tx.Orders().UpdateItem(item, map[string]interface{}{
				"quantity": item.Quantity,
				"subtotal": item.Subtotal,
			}); err != nil {
				return storeError(op, err)
			}
			if err := recompute(tx, op, order); err != nil {
				return err
			}
		}
		if in.Status != "" {
			ok, err := tx.Orders().SetItemStatusIf(itemID, item.Status, in.Status)
			if err != nil {
				return storeError(op, err)
			}
			if !ok {
				return conflictError(op, "item %d changed concurrently", itemID)
			}
			item.Status = in.Status
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emit(itemEvent(events.OrderItemUpdated, order, item))
	return item, nil
}

// ApplyAdjustments sets the service charge and discount of an open order.
func (s *OrderService) ApplyAdjustments(ctx context.Context, companyID, orderID uint, serviceCharge, discount money.Amount) (*models.Order, error) {
	const op = "ApplyAdjustments"
	if serviceCharge.IsNegative() || discount.IsNegative() {
		return nil, validationError(op, "service charge and discount must not be negative")
	}
	if !serviceCharge.Storable() || !discount.Storable() {
		return nil, validationError(op, "amounts must be at most %s with two decimals", money.Max)
	}
	var order *models.Order
	err := s.tenant(ctx, companyID).Transaction(func(tx repository.Tenant) error {
		var err error
		if order, err = lockOpen(tx, op, orderID); err != nil {
			return err
		}
		order.ServiceCharge = serviceCharge
		order.Discount = discount
		return recompute(tx, op, order)
	})
	if err != nil {
		return nil, err
	}
	s.emit(events.New(events.OrderItemUpdated, companyID, orderID, map[string]interface{}{
		"service_charge": order.ServiceCharge,
		"discount":       order.Discount,
		"total":          order.Total,
	}))
	return order, nil
}

// TransitionStatus moves the order along its lifecycle. Closing checks the
// payments against the total and frees the table; cancelling frees the table.
func (s *OrderService) TransitionStatus(ctx context.Context, companyID, userID, orderID uint, next models.OrderStatus, opts ...TransitionOption) (*models.Order, error) {
	const op = "TransitionStatus"
	var o transitionOptions
	for _, opt := range opts {
		opt(&o)
	}

	var (
		order *models.Order
		from  models.OrderStatus
	)
	err := s.tenant(ctx, companyID).Transaction(func(tx repository.Tenant) error {
		var err error
		if order, err = tx.Orders().GetForUpdate(orderID); err != nil {
			return lookupError(op, "order", orderID, err)
		}
		from = order.Status
		if !canTransition(from, next) {
			return invalidTransitionError(op, from, next)
		}

		fields := map[string]interface{}{}
		if next == models.OrderClosed {
			if err := recompute(tx, op, order); err != nil {
				return err
			}
			shortfall, err := s.checkPayments(tx, op, order, o.acceptShortfall)
			if err != nil {
				return err
			}
			now := s.now()
			order.ClosedAt = &now
			order.ClosedBy = &userID
			order.Shortfall = shortfall
			fields["closed_at"] = now
			fields["closed_by"] = userID
			if shortfall != nil {
				fields["shortfall"] = *shortfall
			}
		}

		ok, err := tx.Orders().SetStatusIf(orderID, from, next, fields)
		if err != nil {
			return storeError(op, err)
		}
		if !ok {
			return conflictError(op, "order %s changed concurrently", order.OrderNumber)
		}
		order.Status = next

		if next.Terminal() && order.TableID != nil {
			return s.Tables.ReleaseTable(tx, *order.TableID, order.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	fields := logrus.Fields{"company_id": companyID, "order_id": orderID, "from": from, "to": next}
	if order.Shortfall != nil {
		fields["shortfall"] = order.Shortfall.String()
		utils.InfoLogger.WithFields(fields).Warn("order closed with payment shortfall")
	} else {
		utils.InfoLogger.WithFields(fields).Info("order status changed")
	}

	evs := []events.Event{events.New(events.OrderStatusChanged, companyID, orderID, map[string]interface{}{
		"order_id":  orderID,
		"status":    next,
		"from":      from,
		"shortfall": order.Shortfall,
	})}
	if next.Terminal() && order.TableID != nil {
		evs = append(evs, events.New(events.TableStatusChanged, companyID, orderID, map[string]interface{}{
			"table_id": *order.TableID,
			"status":   models.TableAvailable,
		}))
	}
	s.emit(evs...)
	return order, nil
}

// checkPayments compares what was paid with the order total. It returns the
// shortfall to persist when the caller accepted one.
func (s *OrderService) checkPayments(tx repository.Tenant, op string, order *models.Order, accept bool) (*money.Amount, error) {
	amounts, err := tx.Payments().AmountsByOrder(order.ID)
	if err != nil {
		return nil, storeError(op, err)
	}
	paid := money.Sum(amounts...)
	missing := order.Total.Sub(paid)
	if !missing.IsPositive() || !missing.GreaterThan(s.CloseTolerance) {
		return nil, nil
	}
	if !accept {
		return nil, &Error{
			Kind: KindPaymentShortfall,
			Op:   op,
			Msg:  fmt.Sprintf("order %s is short by %s", order.OrderNumber, missing),
			Err:  &ShortfallError{OrderID: order.ID, Due: order.Total.String(), Paid: paid.String()},
		}
	}
	return &missing, nil
}

// GetTotals rederives the order totals from its live items and reports
// whether the cached columns drifted.
func (s *OrderService) GetTotals(ctx context.Context, companyID, orderID uint) (*Totals, error) {
	const op = "GetTotals"
	t := s.tenant(ctx, companyID)
	order, err := t.Orders().Get(orderID)
	if err != nil {
		return nil, lookupError(op, "order", orderID, err)
	}
	subtotals, err := t.Orders().LiveItemSubtotals(orderID)
	if err != nil {
		return nil, storeError(op, err)
	}
	subtotal := money.Sum(subtotals...)
	total, err := money.Total(subtotal, order.ServiceCharge, order.Discount)
	if err != nil {
		return nil, &Error{Kind: KindValidation, Op: op, Msg: "derived total is negative", Err: err}
	}

	totals := &Totals{
		OrderID:        order.ID,
		Subtotal:       subtotal,
		ServiceCharge:  order.ServiceCharge,
		Discount:       order.Discount,
		Total:          total,
		CachedSubtotal: order.Subtotal,
		CachedTotal:    order.Total,
		Drift:          !subtotal.Equal(order.Subtotal) || !total.Equal(order.Total),
	}
	if totals.Drift {
		utils.ErrorLogger.WithFields(logrus.Fields{
			"company_id":      companyID,
			"order_id":        orderID,
			"subtotal":        subtotal.String(),
			"cached_subtotal": order.Subtotal.String(),
		}).Error("order totals drifted from items")
	}
	return totals, nil
}

func liveItem(tx repository.Tenant, op string, orderID, itemID uint) (*models.OrderItem, error) {
	item, err := tx.Orders().GetItem(orderID, itemID)
	if err != nil {
		return nil, lookupError(op, "item", itemID, err)
	}
	if item.Cancelled() {
		return nil, invalidStateError(op, "item %d was removed", itemID)
	}
	return item, nil
}

func itemEvent(name string, order *models.Order, item *models.OrderItem) events.Event {
	return events.New(name, order.CompanyID, order.ID, map[string]interface{}{
		"item":     item,
		"subtotal": order.Subtotal,
		"total":    order.Total,
	})
}
