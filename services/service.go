package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/events"
	"github.com/yeremiapane/restaurant-pos/repository"
)

// base carries what every ledger service needs: the store, the event sink
// and a UTC clock.
type base struct {
	DB     *gorm.DB
	Events events.Emitter
	Now    func() time.Time
}

func newBase(db *gorm.DB, emitter events.Emitter) base {
	if emitter == nil {
		emitter = events.Nop{}
	}
	return base{
		DB:     db,
		Events: emitter,
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

func (b base) tenant(ctx context.Context, companyID uint) repository.Tenant {
	return repository.ForCompany(b.DB, companyID).WithContext(ctx)
}

func (b base) now() time.Time { return b.Now().UTC() }

// emit hands events to the sink. Callers invoke it only after the
// transaction committed.
func (b base) emit(evs ...events.Event) {
	for _, e := range evs {
		b.Events.Emit(e)
	}
}

// lookupError turns a missing row into NotFound and wraps anything else.
func lookupError(op, entity string, id uint, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFoundError(op, entity, id)
	}
	return storeError(op, err)
}

// storeError wraps an unexpected database error; ledger errors pass through.
func storeError(op string, err error) error {
	var le *Error
	if errors.As(err, &le) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

// activeCompany refuses work for disabled or unknown tenants.
func activeCompany(t repository.Tenant, op string) error {
	company, err := t.Companies().Get()
	if err != nil {
		return lookupError(op, "company", t.CompanyID(), err)
	}
	if !company.IsActive {
		return invalidStateError(op, "company %d is disabled", company.ID)
	}
	return nil
}
