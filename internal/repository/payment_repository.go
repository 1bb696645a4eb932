package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/mikopo/backoffice/internal/domain"
)

type paymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (id, loan_id, sequence, amount, reference, received_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		payment.ID,
		payment.LoanID,
		payment.Sequence,
		payment.Amount,
		payment.Reference,
		payment.ReceivedAt,
		payment.CreatedAt,
	)

	return err
}

func (r *paymentRepository) GetByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error) {
	query := `
		SELECT id, loan_id, sequence, amount, reference, received_at, created_at
		FROM payments
		WHERE loan_id = $1
		ORDER BY received_at
	`

	var payments []*domain.Payment
	err := r.db.SelectContext(ctx, &payments, query, loanID)
	if err != nil {
		return nil, err
	}

	return payments, nil
}

func (r *paymentRepository) GetTotalPaid(ctx context.Context, loanID uuid.UUID) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM payments
		WHERE loan_id = $1
	`

	var total decimal.Decimal
	err := r.db.GetContext(ctx, &total, query, loanID)
	if err != nil {
		return decimal.Zero, err
	}

	return total, nil
}
