package models

// All lists every model owned by the ledger, in migration order.
func All() []interface{} {
	return []interface{}{
		&Company{},
		&Table{},
		&Order{},
		&OrderItem{},
		&PaymentMethod{},
		&Payment{},
		&BillSplit{},
		&CashRegisterSession{},
		&CashMovement{},
	}
}
