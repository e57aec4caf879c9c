package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/database"
	"github.com/yeremiapane/restaurant-pos/events"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/money"
	"github.com/yeremiapane/restaurant-pos/repository"
	"github.com/yeremiapane/restaurant-pos/utils"
)

const (
	ClassBalanced = "balanced"
	ClassOver     = "over"
	ClassShort    = "short"
)

// MethodTotal is the part of the session sales paid with one method.
type MethodTotal struct {
	PaymentMethodID uint         `json:"payment_method_id"`
	Name            string       `json:"name"`
	IsCash          bool         `json:"is_cash"`
	Total           money.Amount `json:"total"`
}

// Summary is the reconciliation of a session. It is computed on every read.
type Summary struct {
	SessionID        uint          `json:"session_id"`
	Status           string        `json:"status"`
	OpenedAt         time.Time     `json:"opened_at"`
	ClosedAt         *time.Time    `json:"closed_at,omitempty"`
	OpeningAmount    money.Amount  `json:"opening_amount"`
	TotalSales       money.Amount  `json:"total_sales"`
	TotalDeposits    money.Amount  `json:"total_deposits"`
	TotalWithdrawals money.Amount  `json:"total_withdrawals"`
	ExpectedAmount   money.Amount  `json:"expected_amount"`
	ByMethod         []MethodTotal `json:"by_method"`
}

type CloseRequest struct {
	ClosingAmount money.Amount
	SupervisorPIN string
	Notes         string
}

type CashRegisterService struct {
	base
	// ShortageLimit is the shortage a drawer may close with before a
	// supervisor PIN is needed. Companies without a PIN skip the check.
	ShortageLimit money.Amount
}

func NewCashRegisterService(db *gorm.DB, emitter events.Emitter, shortageLimit money.Amount) *CashRegisterService {
	return &CashRegisterService{base: newBase(db, emitter), ShortageLimit: shortageLimit}
}

// OpenSession starts a drawer period for userID. The unique open slot index
// turns a concurrent second open into a conflict.
func (s *CashRegisterService) OpenSession(ctx context.Context, companyID, userID uint, openingAmount money.Amount) (*models.CashRegisterSession, error) {
	const op = "OpenSession"
	if userID == 0 {
		return nil, validationError(op, "operator is required")
	}
	if openingAmount.IsNegative() || !openingAmount.Storable() {
		return nil, validationError(op, "opening amount must be a non-negative amount with two decimals")
	}

	slot := models.SessionSlot(companyID, userID)
	session := &models.CashRegisterSession{
		UserID:        userID,
		OpeningAmount: openingAmount,
		Status:        models.SessionOpen,
		OpenSlot:      &slot,
		OpenedAt:      s.now(),
	}
	err := s.tenant(ctx, companyID).Transaction(func(tx repository.Tenant) error {
		if err := activeCompany(tx, op); err != nil {
			return err
		}
		existing, err := tx.CashRegister().FindOpen(userID)
		if err == nil {
			return conflictError(op, "user %d already has open session %d", userID, existing.ID)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return storeError(op, err)
		}
		if err := tx.CashRegister().CreateSession(session); err != nil {
			if database.IsDuplicateKey(err) {
				return conflictError(op, "user %d already has an open session", userID)
			}
			return storeError(op, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"company_id": companyID,
		"user_id":    userID,
		"session_id": session.ID,
		"opening":    openingAmount.String(),
	}).Info("cash session opened")
	s.emit(events.New(events.CashSessionOpened, companyID, 0, session))
	return session, nil
}

func (s *CashRegisterService) GetOpenSession(ctx context.Context, companyID, userID uint) (*models.CashRegisterSession, error) {
	session, err := s.tenant(ctx, companyID).CashRegister().FindOpen(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newError(KindNotFound, "GetOpenSession", "user %d has no open session", userID)
	}
	if err != nil {
		return nil, storeError("GetOpenSession", err)
	}
	return session, nil
}

func (s *CashRegisterService) GetSession(ctx context.Context, companyID, sessionID uint) (*models.CashRegisterSession, error) {
	session, err := s.tenant(ctx, companyID).CashRegister().GetSession(sessionID)
	if err != nil {
		return nil, lookupError("GetSession", "session", sessionID, err)
	}
	return session, nil
}

// RecordMovement appends a deposit or withdrawal to an open session.
func (s *CashRegisterService) RecordMovement(ctx context.Context, companyID, userID, sessionID uint, kind models.MovementType, amount money.Amount, reason string) (*models.CashMovement, error) {
	const op = "RecordMovement"
	if !kind.Valid() {
		return nil, validationError(op, "unknown movement type %q", kind)
	}
	if !amount.IsPositive() || !amount.Storable() {
		return nil, validationError(op, "amount must be greater than zero with at most two decimals")
	}

	var movement *models.CashMovement
	err := s.tenant(ctx, companyID).Transaction(func(tx repository.Tenant) error {
		session, err := tx.CashRegister().GetSessionForUpdate(sessionID)
		if err != nil {
			return lookupError(op, "session", sessionID, err)
		}
		if session.Status != models.SessionOpen {
			return invalidStateError(op, "session %d is %s", sessionID, session.Status)
		}
		movement = &models.CashMovement{
			SessionID: sessionID,
			Type:      kind,
			Amount:    amount,
			Reason:    strings.TrimSpace(reason),
			UserID:    userID,
		}
		if err := tx.CashRegister().CreateMovement(movement); err != nil {
			return storeError(op, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"company_id": companyID,
		"session_id": sessionID,
		"type":       kind,
		"amount":     amount.String(),
	}).Info("cash movement recorded")
	s.emit(events.New(events.CashMovementRecorded, companyID, 0, movement))
	return movement, nil
}

func (s *CashRegisterService) ListMovements(ctx context.Context, companyID, sessionID uint) ([]models.CashMovement, error) {
	const op = "ListMovements"
	t := s.tenant(ctx, companyID)
	if _, err := t.CashRegister().GetSession(sessionID); err != nil {
		return nil, lookupError(op, "session", sessionID, err)
	}
	movements, err := t.CashRegister().Movements(sessionID)
	if err != nil {
		return nil, storeError(op, err)
	}
	return movements, nil
}

// GetSummary reconciles the session: sales are the payments of the
// company's orders closed while the session was open.
func (s *CashRegisterService) GetSummary(ctx context.Context, companyID, sessionID uint) (*Summary, error) {
	const op = "GetSummary"
	t := s.tenant(ctx, companyID)
	session, err := t.CashRegister().GetSession(sessionID)
	if err != nil {
		return nil, lookupError(op, "session", sessionID, err)
	}
	return summarize(t, op, session, session.ClosedAt)
}

// summarize computes the reconciliation of session for the window
// [OpenedAt, until]; a nil until leaves the window open.
func summarize(t repository.Tenant, op string, session *models.CashRegisterSession, until *time.Time) (*Summary, error) {
	sales, err := t.Payments().SalesClosedBetween(session.OpenedAt, until)
	if err != nil {
		return nil, storeError(op, err)
	}
	movements, err := t.CashRegister().Movements(session.ID)
	if err != nil {
		return nil, storeError(op, err)
	}

	ids := make([]uint, 0, len(sales))
	byMethod := map[uint][]money.Amount{}
	saleAmounts := make([]money.Amount, 0, len(sales))
	for _, row := range sales {
		if _, seen := byMethod[row.PaymentMethodID]; !seen {
			ids = append(ids, row.PaymentMethodID)
		}
		byMethod[row.PaymentMethodID] = append(byMethod[row.PaymentMethodID], row.Amount)
		saleAmounts = append(saleAmounts, row.Amount)
	}
	methods, err := t.Payments().MethodsByID(ids)
	if err != nil {
		return nil, storeError(op, err)
	}

	breakdown := make([]MethodTotal, 0, len(ids))
	for _, id := range ids {
		method, ok := methods[id]
		if !ok {
			return nil, invalidStateError(op, "payments reference missing payment method %d", id)
		}
		breakdown = append(breakdown, MethodTotal{
			PaymentMethodID: id,
			Name:            method.Name,
			IsCash:          method.IsCash,
			Total:           money.Sum(byMethod[id]...),
		})
	}

	var deposits, withdrawals []money.Amount
	for _, m := range movements {
		switch m.Type {
		case models.MovementDeposit:
			deposits = append(deposits, m.Amount)
		case models.MovementWithdrawal:
			withdrawals = append(withdrawals, m.Amount)
		}
	}

	sum := &Summary{
		SessionID:        session.ID,
		Status:           string(session.Status),
		OpenedAt:         session.OpenedAt,
		ClosedAt:         until,
		OpeningAmount:    session.OpeningAmount,
		TotalSales:       money.Sum(saleAmounts...),
		TotalDeposits:    money.Sum(deposits...),
		TotalWithdrawals: money.Sum(withdrawals...),
		ByMethod:         breakdown,
	}
	sum.ExpectedAmount = money.Sum(sum.OpeningAmount, sum.TotalSales, sum.TotalDeposits, sum.TotalWithdrawals.Neg())
	return sum, nil
}

func classify(diff money.Amount) string {
	switch {
	case diff.IsPositive():
		return ClassOver
	case diff.IsNegative():
		return ClassShort
	}
	return ClassBalanced
}

// CloseSession counts the drawer and freezes the session. The difference is
// always recorded; a shortage past ShortageLimit needs the supervisor PIN
// when the company has one.
func (s *CashRegisterService) CloseSession(ctx context.Context, companyID, userID, sessionID uint, req CloseRequest) (*models.CashRegisterSession, *Summary, error) {
	const op = "CloseSession"
	if req.ClosingAmount.IsNegative() || !req.ClosingAmount.Storable() {
		return nil, nil, validationError(op, "closing amount must be a non-negative amount with two decimals")
	}

	var (
		session *models.CashRegisterSession
		summary *Summary
	)
	err := s.tenant(ctx, companyID).Transaction(func(tx repository.Tenant) error {
		var err error
		if session, err = tx.CashRegister().GetSessionForUpdate(sessionID); err != nil {
			return lookupError(op, "session", sessionID, err)
		}
		if session.Status != models.SessionOpen {
			return invalidStateError(op, "session %d is %s", sessionID, session.Status)
		}

		closedAt := s.now()
		if summary, err = summarize(tx, op, session, &closedAt); err != nil {
			return err
		}
		diff := req.ClosingAmount.Sub(summary.ExpectedAmount)

		if diff.LessThan(s.ShortageLimit.Neg()) {
			company, err := tx.Companies().Get()
			if err != nil {
				return lookupError(op, "company", companyID, err)
			}
			if company.SupervisorPinHash != "" {
				if req.SupervisorPIN == "" ||
					bcrypt.CompareHashAndPassword([]byte(company.SupervisorPinHash), []byte(req.SupervisorPIN)) != nil {
					return newError(KindOverrideRequired, op, "drawer is short by %s, supervisor PIN required", diff.Abs())
				}
				session.OverrideBy = &userID
			}
		}

		closing, expected := req.ClosingAmount, summary.ExpectedAmount
		session.ClosingAmount = &closing
		session.ExpectedAmount = &expected
		session.Difference = &diff
		session.Classification = classify(diff)
		session.Notes = strings.TrimSpace(req.Notes)
		session.ClosedAt = &closedAt

		ok, err := tx.CashRegister().CloseIfOpen(session)
		if err != nil {
			return storeError(op, err)
		}
		if !ok {
			return conflictError(op, "session %d was closed concurrently", sessionID)
		}
		session.Status = models.SessionClosed
		session.OpenSlot = nil
		summary.Status = string(models.SessionClosed)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	fields := logrus.Fields{
		"company_id":     companyID,
		"session_id":     sessionID,
		"expected":       session.ExpectedAmount.String(),
		"closing":        session.ClosingAmount.String(),
		"difference":     session.Difference.String(),
		"classification": session.Classification,
	}
	if session.Classification == ClassShort {
		utils.InfoLogger.WithFields(fields).Warn("cash session closed short")
	} else {
		utils.InfoLogger.WithFields(fields).Info("cash session closed")
	}
	s.emit(events.New(events.CashSessionClosed, companyID, 0, session))
	return session, summary, nil
}

// HashPIN hashes a supervisor PIN for Company.SupervisorPinHash.
func HashPIN(pin string) (string, error) {
	if len(pin) < 4 {
		return "", validationError("HashPIN", "PIN must have at least 4 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
