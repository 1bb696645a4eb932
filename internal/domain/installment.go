package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	InstallmentStatusPending = "pending"
	InstallmentStatusPaid    = "paid"
	InstallmentStatusOverdue = "overdue"
)

// Installment is one period of a loan's amortization schedule. Schedules
// are derived on demand from the loan and its payment state, not stored
// as first-class rows.
type Installment struct {
	Sequence  int             `json:"sequence"`
	DueDate   time.Time       `json:"due_date"`
	Principal decimal.Decimal `json:"principal"`
	Interest  decimal.Decimal `json:"interest"`
	Total     decimal.Decimal `json:"total"`
	Status    string          `json:"status"`
}
