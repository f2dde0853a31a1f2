package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DebtStatus is the collection state stored on a debt.
type DebtStatus string

const (
	StatusPending   DebtStatus = "pending"
	StatusOverdue   DebtStatus = "overdue"
	StatusCancelled DebtStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s DebtStatus) Valid() bool {
	switch s {
	case StatusPending, StatusOverdue, StatusCancelled:
		return true
	}
	return false
}

// Classification is the delinquency tier derived from days past due.
type Classification string

const (
	ClassLow      Classification = "low"
	ClassMedium   Classification = "medium"
	ClassHigh     Classification = "high"
	ClassCritical Classification = "critical"
)

// Debt is one open invoice owed by a customer. Debts are always created,
// never looked up.
type Debt struct {
	ID             string          `json:"id,omitempty"`
	CustomerID     string          `json:"customer_id,omitempty"`
	CompanyID      string          `json:"company_id,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	DueDate        *time.Time      `json:"due_date"`
	DaysOverdue    int             `json:"days_overdue"`
	Status         DebtStatus      `json:"status"`
	Classification Classification  `json:"classification"`
	Description    string          `json:"description"`
}
