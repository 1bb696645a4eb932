package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mikopo/backoffice/internal/domain"
)

type loanRepository struct {
	db *sqlx.DB
}

func NewLoanRepository(db *sqlx.DB) LoanRepository {
	return &loanRepository{db: db}
}

const loanColumns = `
	id, loan_id, member_id, principal, disbursed_interest, program,
	issue_date, amount_paid, balance, status, deleted, created_at, updated_at
`

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	query := `
		INSERT INTO loans (` + loanColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.ExecContext(ctx, query,
		loan.ID,
		loan.LoanID,
		loan.MemberID,
		loan.Principal,
		loan.DisbursedInterest,
		loan.Program,
		loan.IssueDate,
		loan.AmountPaid,
		loan.Balance,
		loan.Status,
		loan.Deleted,
		loan.CreatedAt,
		loan.UpdatedAt,
	)

	return err
}

func (r *loanRepository) GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE loan_id = $1`

	var loan domain.Loan
	err := r.db.GetContext(ctx, &loan, query, loanID)
	if err != nil {
		return nil, err
	}

	return &loan, nil
}

func (r *loanRepository) GetByMemberID(ctx context.Context, memberID uuid.UUID) ([]*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE member_id = $1 ORDER BY created_at`

	var loans []*domain.Loan
	err := r.db.SelectContext(ctx, &loans, query, memberID)
	if err != nil {
		return nil, err
	}

	return loans, nil
}

func (r *loanRepository) Update(ctx context.Context, loan *domain.Loan) error {
	query := `
		UPDATE loans
		SET amount_paid = $2, balance = $3, status = $4, deleted = $5, updated_at = $6
		WHERE loan_id = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		loan.LoanID,
		loan.AmountPaid,
		loan.Balance,
		loan.Status,
		loan.Deleted,
		time.Now(),
	)

	return err
}

func (r *loanRepository) MarkWrittenOff(ctx context.Context, loanID string) error {
	query := `
		UPDATE loans
		SET deleted = TRUE, updated_at = $2
		WHERE loan_id = $1
	`

	_, err := r.db.ExecContext(ctx, query, loanID, time.Now())
	return err
}

func (r *loanRepository) ListActive(ctx context.Context) ([]*domain.Loan, error) {
	query := `
		SELECT ` + loanColumns + `
		FROM loans
		WHERE status NOT IN ($1, $2, $3) AND deleted = FALSE
		ORDER BY created_at
	`

	var loans []*domain.Loan
	err := r.db.SelectContext(ctx, &loans, query,
		domain.LoanStatusRepaid,
		domain.LoanStatusCompleted,
		domain.LoanStatusDefaulted,
	)
	if err != nil {
		return nil, err
	}

	return loans, nil
}
