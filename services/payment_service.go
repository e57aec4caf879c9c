package services

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/database"
	"github.com/yeremiapane/restaurant-pos/events"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/money"
	"github.com/yeremiapane/restaurant-pos/repository"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// PaymentService records tenders against orders. Payments are append-only
// and never close an order by themselves.
type PaymentService struct {
	base
}

func NewPaymentService(db *gorm.DB, emitter events.Emitter) *PaymentService {
	return &PaymentService{base: newBase(db, emitter)}
}

func (s *PaymentService) CreatePaymentMethod(ctx context.Context, companyID uint, name string, isCash bool) (*models.PaymentMethod, error) {
	const op = "CreatePaymentMethod"
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationError(op, "name is required")
	}
	method := &models.PaymentMethod{Name: name, IsCash: isCash, IsActive: true}
	if err := s.tenant(ctx, companyID).Payments().CreateMethod(method); err != nil {
		if database.IsDuplicateKey(err) {
			return nil, conflictError(op, "payment method %q already exists", name)
		}
		return nil, storeError(op, err)
	}
	return method, nil
}

func (s *PaymentService) ListPaymentMethods(ctx context.Context, companyID uint) ([]models.PaymentMethod, error) {
	methods, err := s.tenant(ctx, companyID).Payments().ListMethods()
	if err != nil {
		return nil, storeError("ListPaymentMethods", err)
	}
	return methods, nil
}

// RecordPayment appends a payment to an unfinished order.
func (s *PaymentService) RecordPayment(ctx context.Context, companyID, userID, orderID, methodID uint, amount money.Amount) (*models.Payment, error) {
	const op = "RecordPayment"
	if !amount.IsPositive() {
		return nil, validationError(op, "amount must be greater than zero")
	}
	if !amount.Storable() {
		return nil, validationError(op, "amount must be at most %s with two decimals", money.Max)
	}

	var payment *models.Payment
	err := s.tenant(ctx, companyID).Transaction(func(tx repository.Tenant) error {
		order, err := tx.Orders().GetForUpdate(orderID)
		if err != nil {
			return lookupError(op, "order", orderID, err)
		}
		if order.Status.Terminal() {
			return invalidStateError(op, "order %s is %s", order.OrderNumber, order.Status)
		}
		method, err := tx.Payments().GetMethod(methodID)
		if err != nil {
			return lookupError(op, "payment method", methodID, err)
		}
		if !method.IsActive {
			return validationError(op, "payment method %s is inactive", method.Name)
		}
		payment = &models.Payment{
			OrderID:         orderID,
			PaymentMethodID: methodID,
			Amount:          amount,
			UserID:          userID,
		}
		if err := tx.Payments().Create(payment); err != nil {
			return storeError(op, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"company_id": companyID,
		"order_id":   orderID,
		"payment_id": payment.ID,
		"amount":     amount.String(),
	}).Info("payment recorded")
	s.emit(events.New(events.PaymentRecorded, companyID, orderID, payment))
	return payment, nil
}

// SplitBill stores how much each of n people owes, rounded up to the cent so
// the shares never undercover the total.
func (s *PaymentService) SplitBill(ctx context.Context, companyID, orderID uint, numberOfPeople int) (*models.BillSplit, error) {
	const op = "SplitBill"
	if numberOfPeople < 1 {
		return nil, validationError(op, "number of people must be at least 1")
	}
	t := s.tenant(ctx, companyID)
	order, err := t.Orders().Get(orderID)
	if err != nil {
		return nil, lookupError(op, "order", orderID, err)
	}
	if order.Status == models.OrderCancelled {
		return nil, invalidStateError(op, "order %s is cancelled", order.OrderNumber)
	}
	split := &models.BillSplit{
		OrderID:         orderID,
		NumberOfPeople:  numberOfPeople,
		Total:           order.Total,
		AmountPerPerson: order.Total.CeilDiv(numberOfPeople),
	}
	if err := t.Payments().CreateSplit(split); err != nil {
		return nil, storeError(op, err)
	}
	return split, nil
}

func (s *PaymentService) SumPayments(ctx context.Context, companyID, orderID uint) (money.Amount, error) {
	const op = "SumPayments"
	t := s.tenant(ctx, companyID)
	if _, err := t.Orders().Get(orderID); err != nil {
		return money.Zero(), lookupError(op, "order", orderID, err)
	}
	amounts, err := t.Payments().AmountsByOrder(orderID)
	if err != nil {
		return money.Zero(), storeError(op, err)
	}
	return money.Sum(amounts...), nil
}

func (s *PaymentService) ListPayments(ctx context.Context, companyID, orderID uint) ([]models.Payment, error) {
	const op = "ListPayments"
	t := s.tenant(ctx, companyID)
	if _, err := t.Orders().Get(orderID); err != nil {
		return nil, lookupError(op, "order", orderID, err)
	}
	payments, err := t.Payments().ListByOrder(orderID)
	if err != nil {
		return nil, storeError(op, err)
	}
	return payments, nil
}
