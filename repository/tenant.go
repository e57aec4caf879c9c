// Package repository holds the data access of the ledger. Every query goes
// through a Tenant, which cannot be built without a company id, so a query
// that forgets the tenant filter does not compile.
package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Tenant struct {
	db        *gorm.DB
	companyID uint
}

// ForCompany binds db to one company.
func ForCompany(db *gorm.DB, companyID uint) Tenant {
	return Tenant{db: db, companyID: companyID}
}

func (t Tenant) CompanyID() uint { return t.companyID }

func (t Tenant) WithContext(ctx context.Context) Tenant {
	return Tenant{db: t.db.WithContext(ctx), companyID: t.companyID}
}

// Transaction runs fn inside one database transaction; the Tenant handed to
// fn is bound to that transaction.
func (t Tenant) Transaction(fn func(tx Tenant) error) error {
	return t.db.Transaction(func(tx *gorm.DB) error {
		return fn(Tenant{db: tx, companyID: t.companyID})
	})
}

// scoped starts a query on model filtered by the tenant column.
func (t Tenant) scoped(model interface{}) *gorm.DB {
	return t.db.Model(model).Where("company_id = ?", t.companyID)
}

// locked is scoped with a row lock (SELECT ... FOR UPDATE). SQLite ignores the
// clause; writers are serialized there anyway.
func (t Tenant) locked(model interface{}) *gorm.DB {
	return t.scoped(model).Clauses(clause.Locking{Strength: "UPDATE"})
}

func (t Tenant) Tables() TableRepository { return TableRepository{t} }
func (t Tenant) Orders() OrderRepository { return OrderRepository{t} }
func (t Tenant) Payments() PaymentRepository { return PaymentRepository{t} }
func (t Tenant) CashRegister() CashRegisterRepository { return CashRegisterRepository{t} }
func (t Tenant) Companies() CompanyRepository { return CompanyRepository{t} }
