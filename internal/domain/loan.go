package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	LoanStatusActive    = "active"
	LoanStatusPending   = "pending"
	LoanStatusRepaid    = "repaid"
	LoanStatusCompleted = "completed"
	LoanStatusDefaulted = "defaulted"
)

// Loan programs and their weekly period counts.
const (
	ProgramSmallLoan = "small_loan"
	ProgramGroupLoan = "group_loan"

	// DefaultProgramPeriods is used for program codes we do not recognize,
	// so a schedule is always renderable.
	DefaultProgramPeriods = 12
)

var programPeriods = map[string]int{
	ProgramSmallLoan: 8,
	ProgramGroupLoan: 12,
}

// ProgramPeriods returns the number of weekly installments for a program
// code, falling back to DefaultProgramPeriods for unknown codes.
func ProgramPeriods(program string) int {
	if n, ok := programPeriods[program]; ok {
		return n
	}
	return DefaultProgramPeriods
}

// IsTerminalStatus reports whether a loan status means the loan is fully
// settled. "completed" is a legacy synonym for "repaid".
func IsTerminalStatus(status string) bool {
	return status == LoanStatusRepaid || status == LoanStatusCompleted
}

// Loan represents a disbursed credit line.
type Loan struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	LoanID            string          `json:"loan_id" db:"loan_id"`
	MemberID          uuid.UUID       `json:"member_id" db:"member_id"`
	Principal         decimal.Decimal `json:"principal" db:"principal"`
	DisbursedInterest decimal.Decimal `json:"disbursed_interest" db:"disbursed_interest"`
	Program           string          `json:"program" db:"program"`
	IssueDate         time.Time       `json:"issue_date" db:"issue_date"`
	AmountPaid        decimal.Decimal `json:"amount_paid" db:"amount_paid"`
	Balance           decimal.Decimal `json:"balance" db:"balance"`
	Status            string          `json:"status" db:"status"`
	Deleted           bool            `json:"deleted" db:"deleted"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// ContractTotal is the total contractual amount: principal plus the
// interest disbursed with it.
func (l *Loan) ContractTotal() decimal.Decimal {
	return l.Principal.Add(l.DisbursedInterest)
}

// Active reports whether the loan blocks deletion of its member: any
// non-terminal status on a loan that has not been written off.
func (l *Loan) Active() bool {
	return !IsTerminalStatus(l.Status) && !l.Deleted
}

// DTOs for requests and responses

type DisburseLoanRequest struct {
	LoanID            string          `json:"loan_id" validate:"required"`
	MemberID          uuid.UUID       `json:"member_id" validate:"required"`
	Principal         decimal.Decimal `json:"principal" validate:"required"`
	DisbursedInterest decimal.Decimal `json:"disbursed_interest"`
	Program           string          `json:"program" validate:"required"`
	IssueDate         time.Time       `json:"issue_date"`
}

type DisburseLoanResponse struct {
	Loan     *Loan          `json:"loan"`
	Schedule []*Installment `json:"schedule"`
}

type ScheduleResponse struct {
	LoanID   string         `json:"loan_id"`
	Schedule []*Installment `json:"schedule"`
}

type OutstandingResponse struct {
	LoanID      string          `json:"loan_id"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

type DeleteResponse struct {
	Deleted bool   `json:"deleted"`
	Reason  string `json:"reason,omitempty"`
}
