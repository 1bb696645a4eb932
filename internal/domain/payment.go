package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment is an immutable record of money received against a loan, tagged
// with the installment sequence it satisfies. Payments are never updated;
// they are removed only by the deletion reconciler.
type Payment struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	LoanID     uuid.UUID       `json:"loan_id" db:"loan_id"`
	Sequence   int             `json:"sequence" db:"sequence"`
	Amount     decimal.Decimal `json:"amount" db:"amount"`
	Reference  string          `json:"reference" db:"reference"`
	ReceivedAt time.Time       `json:"received_at" db:"received_at"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

type RecordPaymentRequest struct {
	Sequence int             `json:"sequence" validate:"required,gt=0"`
	Amount   decimal.Decimal `json:"amount" validate:"required"`
}
