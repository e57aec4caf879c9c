package repository

import (
	"time"

	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/money"
)

type OrderRepository struct {
	t Tenant
}

func (r OrderRepository) Create(order *models.Order) error {
	order.CompanyID = r.t.companyID
	return r.t.db.Omit("Items").Create(order).Error
}

func (r OrderRepository) Get(id uint) (*models.Order, error) {
	var order models.Order
	if err := r.t.scoped(&models.Order{}).First(&order, id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// GetForUpdate loads the order with a row lock held until the transaction ends.
func (r OrderRepository) GetForUpdate(id uint) (*models.Order, error) {
	var order models.Order
	if err := r.t.locked(&models.Order{}).First(&order, id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// GetWithItems loads the order and every item row, cancelled ones included.
func (r OrderRepository) GetWithItems(id uint) (*models.Order, error) {
	order, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	items, err := r.Items(id)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func (r OrderRepository) List(status models.OrderStatus) ([]models.Order, error) {
	q := r.t.scoped(&models.Order{}).Order("id desc")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var orders []models.Order
	err := q.Find(&orders).Error
	return orders, err
}

// ActiveOnTable counts non-terminal orders seated at tableID.
func (r OrderRepository) ActiveOnTable(tableID uint) (int64, error) {
	var n int64
	err := r.t.scoped(&models.Order{}).
		Where("table_id = ? AND status NOT IN ?", tableID, []models.OrderStatus{models.OrderClosed, models.OrderCancelled}).
		Count(&n).Error
	return n, err
}

// SetStatusIf is the status compare-and-set: the row changes only while it is
// still in from.
func (r OrderRepository) SetStatusIf(id uint, from, to models.OrderStatus, fields map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{"status": to, "updated_at": time.Now().UTC()}
	for k, v := range fields {
		updates[k] = v
	}
	res := r.t.scoped(&models.Order{}).Where("id = ? AND status = ?", id, from).Updates(updates)
	return res.RowsAffected == 1, res.Error
}

// SaveTotals writes the cached monetary columns of order.
func (r OrderRepository) SaveTotals(order *models.Order) error {
	return r.t.scoped(&models.Order{}).Where("id = ?", order.ID).Updates(map[string]interface{}{
		"subtotal":       order.Subtotal,
		"service_charge": order.ServiceCharge,
		"discount":       order.Discount,
		"total":          order.Total,
		"updated_at":     time.Now().UTC(),
	}).Error
}

func (r OrderRepository) Items(orderID uint) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.t.scoped(&models.OrderItem{}).Where("order_id = ?", orderID).Order("id").Find(&items).Error
	return items, err
}

// LiveItemSubtotals returns the subtotal of every non-cancelled item.
func (r OrderRepository) LiveItemSubtotals(orderID uint) ([]money.Amount, error) {
	var rows []models.OrderItem
	err := r.t.scoped(&models.OrderItem{}).
		Select("id", "subtotal").
		Where("order_id = ? AND cancelled_at IS NULL", orderID).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	subtotals := make([]money.Amount, len(rows))
	for i, row := range rows {
		subtotals[i] = row.Subtotal
	}
	return subtotals, nil
}

func (r OrderRepository) CreateItem(item *models.OrderItem) error {
	item.CompanyID = r.t.companyID
	return r.t.db.Create(item).Error
}

func (r OrderRepository) GetItem(orderID, itemID uint) (*models.OrderItem, error) {
	var item models.OrderItem
	if err := r.t.scoped(&models.OrderItem{}).Where("order_id = ?", orderID).First(&item, itemID).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r OrderRepository) UpdateItem(item *models.OrderItem, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now().UTC()
	return r.t.scoped(&models.OrderItem{}).Where("id = ?", item.ID).Updates(fields).Error
}

// SetItemStatusIf is the item status compare-and-set.
func (r OrderRepository) SetItemStatusIf(itemID uint, from, to models.ItemStatus) (bool, error) {
	res := r.t.scoped(&models.OrderItem{}).
		Where("id = ? AND status = ?", itemID, from).
		Updates(map[string]interface{}{"status": to, "updated_at": time.Now().UTC()})
	return res.RowsAffected == 1, res.Error
}
