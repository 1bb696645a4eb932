package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mikopo/backoffice/internal/domain"
)

// MemberRepository defines the interface for member data operations
type MemberRepository interface {
	// Create creates a new member
	Create(ctx context.Context, member *domain.Member) error

	// GetByID retrieves a member by ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Member, error)
}

// LoanRepository defines the interface for loan data operations
type LoanRepository interface {
	// Create creates a new loan
	Create(ctx context.Context, loan *domain.Loan) error

	// GetByLoanID retrieves a loan by its external loan ID
	GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error)

	// GetByMemberID retrieves all loans belonging to a member
	GetByMemberID(ctx context.Context, memberID uuid.UUID) ([]*domain.Loan, error)

	// Update updates a loan's mutable fields
	Update(ctx context.Context, loan *domain.Loan) error

	// MarkWrittenOff sets the soft-delete flag without touching dependents
	MarkWrittenOff(ctx context.Context, loanID string) error

	// ListActive retrieves all active, not written-off loans
	ListActive(ctx context.Context) ([]*domain.Loan, error)
}

// PaymentRepository defines the interface for payment data operations
type PaymentRepository interface {
	// Create creates a new payment record
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByLoanID retrieves all payments for a loan
	GetByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error)

	// GetTotalPaid calculates total amount paid for a loan
	GetTotalPaid(ctx context.Context, loanID uuid.UUID) (decimal.Decimal, error)
}
