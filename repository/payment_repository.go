package repository

import (
	"time"

	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/money"
)

type PaymentRepository struct {
	t Tenant
}

func (r PaymentRepository) CreateMethod(m *models.PaymentMethod) error {
	m.CompanyID = r.t.companyID
	return r.t.db.Create(m).Error
}

func (r PaymentRepository) GetMethod(id uint) (*models.PaymentMethod, error) {
	var m models.PaymentMethod
	if err := r.t.scoped(&models.PaymentMethod{}).First(&m, id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r PaymentRepository) ListMethods() ([]models.PaymentMethod, error) {
	var methods []models.PaymentMethod
	err := r.t.scoped(&models.PaymentMethod{}).Order("name").Find(&methods).Error
	return methods, err
}

// MethodsByID loads the given methods keyed by id. Ids without a row are
// simply absent from the map.
func (r PaymentRepository) MethodsByID(ids []uint) (map[uint]models.PaymentMethod, error) {
	out := make(map[uint]models.PaymentMethod, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var methods []models.PaymentMethod
	if err := r.t.scoped(&models.PaymentMethod{}).Where("id IN ?", ids).Find(&methods).Error; err != nil {
		return nil, err
	}
	for _, m := range methods {
		out[m.ID] = m
	}
	return out, nil
}

func (r PaymentRepository) Create(p *models.Payment) error {
	p.CompanyID = r.t.companyID
	return r.t.db.Create(p).Error
}

func (r PaymentRepository) ListByOrder(orderID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.t.scoped(&models.Payment{}).Where("order_id = ?", orderID).Order("id").Find(&payments).Error
	return payments, err
}

func (r PaymentRepository) AmountsByOrder(orderID uint) ([]money.Amount, error) {
	payments, err := r.ListByOrder(orderID)
	if err != nil {
		return nil, err
	}
	amounts := make([]money.Amount, len(payments))
	for i, p := range payments {
		amounts[i] = p.Amount
	}
	return amounts, nil
}

func (r PaymentRepository) CreateSplit(s *models.BillSplit) error {
	s.CompanyID = r.t.companyID
	return r.t.db.Create(s).Error
}

// SaleRow is one payment attributed to a closed order.
type SaleRow struct {
	PaymentID       uint
	OrderID         uint
	PaymentMethodID uint
	Amount          money.Amount
}

// SalesClosedBetween returns the payments of orders closed at or after from
// and, when to is set, at or before to.
func (r PaymentRepository) SalesClosedBetween(from time.Time, to *time.Time) ([]SaleRow, error) {
	q := r.t.db.Table("payments").
		Select("payments.id AS payment_id, payments.order_id, payments.payment_method_id, payments.amount").
		Joins("JOIN orders ON orders.id = payments.order_id AND orders.company_id = payments.company_id").
		Where("payments.company_id = ? AND orders.status = ? AND orders.closed_at >= ?", r.t.companyID, models.OrderClosed, from)
	if to != nil {
		q = q.Where("orders.closed_at <= ?", *to)
	}
	var rows []SaleRow
	err := q.Order("payments.id").Scan(&rows).Error
	return rows, err
}
