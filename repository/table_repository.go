package repository

import (
	"sort"
	"strconv"
	"time"

	"github.com/yeremiapane/restaurant-pos/models"
)

type TableRepository struct {
	t Tenant
}

// List returns the company's tables sorted by number; numeric labels sort by
// value so "10" comes after "9".
func (r TableRepository) List() ([]models.Table, error) {
	var tables []models.Table
	if err := r.t.scoped(&models.Table{}).Order("number").Find(&tables).Error; err != nil {
		return nil, err
	}
	sort.SliceStable(tables, func(i, j int) bool {
		return lessNumber(tables[i].Number, tables[j].Number)
	})
	return tables, nil
}

func lessNumber(a, b string) bool {
	ai, aErr := strconv.Atoi(a)
	bi, bErr := strconv.Atoi(b)
	switch {
	case aErr == nil && bErr == nil:
		return ai < bi
	case aErr == nil:
		return true
	case bErr == nil:
		return false
	}
	return a < b
}

func (r TableRepository) Get(id uint) (*models.Table, error) {
	var table models.Table
	if err := r.t.scoped(&models.Table{}).First(&table, id).Error; err != nil {
		return nil, err
	}
	return &table, nil
}

func (r TableRepository) ExistsNumber(number string) (bool, error) {
	var n int64
	err := r.t.scoped(&models.Table{}).Where("number = ?", number).Count(&n).Error
	return n > 0, err
}

func (r TableRepository) Create(table *models.Table) error {
	table.CompanyID = r.t.companyID
	return r.t.db.Create(table).Error
}

// SetStatusIf moves the table from one status to another only when it is
// still in from, and writes currentOrderID alongside. It reports whether a
// row changed.
func (r TableRepository) SetStatusIf(id uint, from, to models.TableStatus, currentOrderID *uint) (bool, error) {
	res := r.t.scoped(&models.Table{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":           to,
			"current_order_id": currentOrderID,
			"updated_at":       time.Now().UTC(),
		})
	return res.RowsAffected == 1, res.Error
}

// ReleaseIfHeldBy frees the table only while it is occupied by orderID.
func (r TableRepository) ReleaseIfHeldBy(id, orderID uint) (bool, error) {
	res := r.t.scoped(&models.Table{}).
		Where("id = ? AND status = ? AND current_order_id = ?", id, models.TableOccupied, orderID).
		Updates(map[string]interface{}{
			"status":           models.TableAvailable,
			"current_order_id": nil,
			"updated_at":       time.Now().UTC(),
		})
	return res.RowsAffected == 1, res.Error
}

func (r TableRepository) Delete(id uint) (bool, error) {
	res := r.t.scoped(&models.Table{}).Where("id = ?", id).Delete(&models.Table{})
	return res.RowsAffected == 1, res.Error
}
