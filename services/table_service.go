package services

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/database"
	"github.com/yeremiapane/restaurant-pos/events"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/repository"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// TableService owns table occupancy. Tables become occupied only through
// ClaimTable inside an order transaction and free again only through
// ReleaseTable when that order closes or is cancelled.
type TableService struct {
	base
}

func NewTableService(db *gorm.DB, emitter events.Emitter) *TableService {
	return &TableService{base: newBase(db, emitter)}
}

func (s *TableService) ListTables(ctx context.Context, companyID uint) ([]models.Table, error) {
	tables, err := s.tenant(ctx, companyID).Tables().List()
	if err != nil {
		return nil, storeError("ListTables", err)
	}
	return tables, nil
}

func (s *TableService) GetTable(ctx context.Context, companyID, tableID uint) (*models.Table, error) {
	table, err := s.tenant(ctx, companyID).Tables().Get(tableID)
	if err != nil {
		return nil, lookupError("GetTable", "table", tableID, err)
	}
	return table, nil
}

func (s *TableService) RegisterTable(ctx context.Context, companyID uint, number string, capacity int) (*models.Table, error) {
	const op = "RegisterTable"
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, validationError(op, "table number is required")
	}
	if capacity < 1 {
		return nil, validationError(op, "capacity must be at least 1")
	}

	t := s.tenant(ctx, companyID)
	exists, err := t.Tables().ExistsNumber(number)
	if err != nil {
		return nil, storeError(op, err)
	}
	if exists {
		return nil, conflictError(op, "table %q already exists", number)
	}

	table := &models.Table{Number: number, Capacity: capacity, Status: models.TableAvailable}
	if err := t.Tables().Create(table); err != nil {
		if database.IsDuplicateKey(err) {
			return nil, conflictError(op, "table %q already exists", number)
		}
		return nil, storeError(op, err)
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"company_id": companyID,
		"table_id":   table.ID,
		"number":     table.Number,
	}).Info("table registered")
	s.emit(tableEvent(table))
	return table, nil
}

// ClaimTable seats orderID at tableID. It runs on the caller's transaction;
// the update only applies while the table is still available, so two
// concurrent claims cannot both win.
func (s *TableService) ClaimTable(tx repository.Tenant, tableID, orderID uint) error {
	const op = "ClaimTable"
	table, err := tx.Tables().Get(tableID)
	if err != nil {
		return lookupError(op, "table", tableID, err)
	}
	if table.Status != models.TableAvailable {
		return conflictError(op, "table %s is %s", table.Number, table.Status)
	}
	ok, err := tx.Tables().SetStatusIf(tableID, models.TableAvailable, models.TableOccupied, &orderID)
	if err != nil {
		return storeError(op, err)
	}
	if !ok {
		return conflictError(op, "table %s was claimed concurrently", table.Number)
	}
	return nil
}

// ReleaseTable frees tableID if orderID is the order seated there. It runs
// on the caller's transaction.
func (s *TableService) ReleaseTable(tx repository.Tenant, tableID, orderID uint) error {
	const op = "ReleaseTable"
	ok, err := tx.Tables().ReleaseIfHeldBy(tableID, orderID)
	if err != nil {
		return storeError(op, err)
	}
	if ok {
		return nil
	}
	table, err := tx.Tables().Get(tableID)
	if err != nil {
		return lookupError(op, "table", tableID, err)
	}
	return invalidStateError(op, "table %s is %s and not held by order %d", table.Number, table.Status, orderID)
}

func (s *TableService) ReserveTable(ctx context.Context, companyID, tableID uint) (*models.Table, error) {
	return s.move(ctx, companyID, tableID, "ReserveTable", models.TableAvailable, models.TableReserved)
}

func (s *TableService) CancelReservation(ctx context.Context, companyID, tableID uint) (*models.Table, error) {
	return s.move(ctx, companyID, tableID, "CancelReservation", models.TableReserved, models.TableAvailable)
}

// move applies a reservation edge, which never touches CurrentOrderID.
func (s *TableService) move(ctx context.Context, companyID, tableID uint, op string, from, to models.TableStatus) (*models.Table, error) {
	var table *models.Table
	err := s.tenant(ctx, companyID).Transaction(func(tx repository.Tenant) error {
		current, err := tx.Tables().Get(tableID)
		if err != nil {
			return lookupError(op, "table", tableID, err)
		}
		if current.Status != from {
			if to == models.TableReserved {
				return conflictError(op, "table %s is %s", current.Number, current.Status)
			}
			return invalidTransitionError(op, current.Status, to)
		}
		ok, err := tx.Tables().SetStatusIf(tableID, from, to, nil)
		if err != nil {
			return storeError(op, err)
		}
		if !ok {
			return conflictError(op, "table %s changed concurrently", current.Number)
		}
		table, err = tx.Tables().Get(tableID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.emit(tableEvent(table))
	return table, nil
}

// DeleteTable removes an idle table. Occupied or reserved tables, and tables
// still referenced by an unfinished order, are kept.
func (s *TableService) DeleteTable(ctx context.Context, companyID, tableID uint) error {
	const op = "DeleteTable"
	return s.tenant(ctx, companyID).Transaction(func(tx repository.Tenant) error {
		table, err := tx.Tables().Get(tableID)
		if err != nil {
			return lookupError(op, "table", tableID, err)
		}
		if table.Status != models.TableAvailable {
			return conflictError(op, "table %s is %s", table.Number, table.Status)
		}
		active, err := tx.Orders().ActiveOnTable(tableID)
		if err != nil {
			return storeError(op, err)
		}
		if active > 0 {
			return conflictError(op, "table %s has %d unfinished orders", table.Number, active)
		}
		if _, err := tx.Tables().Delete(tableID); err != nil {
			return storeError(op, err)
		}
		return nil
	})
}

func tableEvent(table *models.Table) events.Event {
	return events.New(events.TableStatusChanged, table.CompanyID, 0, map[string]interface{}{
		"table_id":         table.ID,
		"number":           table.Number,
		"status":           table.Status,
		"current_order_id": table.CurrentOrderID,
	})
}
