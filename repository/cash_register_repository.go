package repository

import (
	"time"

	"github.com/yeremiapane/restaurant-pos/models"
)

type CashRegisterRepository struct {
	t Tenant
}

func (r CashRegisterRepository) CreateSession(s *models.CashRegisterSession) error {
	s.CompanyID = r.t.companyID
	return r.t.db.Create(s).Error
}

func (r CashRegisterRepository) GetSession(id uint) (*models.CashRegisterSession, error) {
	var s models.CashRegisterSession
	if err := r.t.scoped(&models.CashRegisterSession{}).First(&s, id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r CashRegisterRepository) GetSessionForUpdate(id uint) (*models.CashRegisterSession, error) {
	var s models.CashRegisterSession
	if err := r.t.locked(&models.CashRegisterSession{}).First(&s, id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// FindOpen returns the open session of userID, or gorm.ErrRecordNotFound.
func (r CashRegisterRepository) FindOpen(userID uint) (*models.CashRegisterSession, error) {
	var s models.CashRegisterSession
	err := r.t.scoped(&models.CashRegisterSession{}).
		Where("user_id = ? AND status = ?", userID, models.SessionOpen).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CloseIfOpen writes the closing snapshot only while the session is open.
func (r CashRegisterRepository) CloseIfOpen(s *models.CashRegisterSession) (bool, error) {
	res := r.t.scoped(&models.CashRegisterSession{}).
		Where("id = ? AND status = ?", s.ID, models.SessionOpen).
		Updates(map[string]interface{}{
			"status":          models.SessionClosed,
			"open_slot":       nil,
			"closing_amount":  s.ClosingAmount,
			"expected_amount": s.ExpectedAmount,
			"difference":      s.Difference,
			"classification":  s.Classification,
			"override_by":     s.OverrideBy,
			"notes":           s.Notes,
			"closed_at":       s.ClosedAt,
			"updated_at":      time.Now().UTC(),
		})
	return res.RowsAffected == 1, res.Error
}

func (r CashRegisterRepository) CreateMovement(m *models.CashMovement) error {
	m.CompanyID = r.t.companyID
	return r.t.db.Create(m).Error
}

func (r CashRegisterRepository) Movements(sessionID uint) ([]models.CashMovement, error) {
	var movements []models.CashMovement
	err := r.t.scoped(&models.CashMovement{}).Where("session_id = ?", sessionID).Order("id").Find(&movements).Error
	return movements, err
}
