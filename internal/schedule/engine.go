package schedule

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mikopo/backoffice/internal/domain"
	customError "github.com/mikopo/backoffice/pkg/errors"
)

// BuildSchedule derives the full amortization schedule for a loan as of a
// given instant. Pure computation: nothing is read from or written to
// storage, and the clock is supplied by the caller.
//
// Per-period shares are the principal and interest divided by the period
// count, rounded half-up to the cent. The final period is recomputed as
// total minus the sum of the earlier periods, so the schedule always adds
// up to the contract total exactly even when the division leaves a
// remainder.
func BuildSchedule(loan *domain.Loan, asOf time.Time) []*domain.Installment {
	n := domain.ProgramPeriods(loan.Program)

	periods := decimal.NewFromInt(int64(n))
	perPrincipal := loan.Principal.Div(periods).Round(2)
	perInterest := loan.DisbursedInterest.Div(periods).Round(2)

	installments := make([]*domain.Installment, 0, n)
	cumulativeDue := decimal.Zero

	for i := 1; i <= n; i++ {
		principal := perPrincipal
		interest := perInterest
		if i == n {
			// Last period absorbs the rounding drift.
			prior := decimal.NewFromInt(int64(n - 1))
			principal = loan.Principal.Sub(perPrincipal.Mul(prior))
			interest = loan.DisbursedInterest.Sub(perInterest.Mul(prior))
		}

		total := principal.Add(interest)
		cumulativeDue = cumulativeDue.Add(total)

		installments = append(installments, &domain.Installment{
			Sequence:  i,
			DueDate:   dueDate(loan.IssueDate, i),
			Principal: principal,
			Interest:  interest,
			Total:     total,
			Status:    classify(loan.AmountPaid, cumulativeDue, dueDate(loan.IssueDate, i), asOf),
		})
	}

	return installments
}

// ValidatePayment checks a per-installment payment against the loan's
// schedule and, if acceptable, returns the immutable payment record for
// the caller to persist. The engine itself holds no state.
//
// Beyond the per-installment cap, the payment may not target an
// installment already covered by cumulative payments and may not push
// cumulative paid past the contract total.
func ValidatePayment(loan *domain.Loan, sequence int, amount decimal.Decimal, receivedAt time.Time) (*domain.Payment, error) {
	installments := BuildSchedule(loan, receivedAt)
	if sequence < 1 || sequence > len(installments) {
		return nil, customError.WrapInvalidAmount(
			fmt.Sprintf("installment %d does not exist on loan %s", sequence, loan.LoanID))
	}

	target := installments[sequence-1]
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, customError.WrapInvalidAmount(
			fmt.Sprintf("payment amount %s must be greater than zero", amount.StringFixed(2)))
	}
	if amount.GreaterThan(target.Total) {
		return nil, customError.WrapInvalidAmount(
			fmt.Sprintf("payment amount %s exceeds installment %d total %s",
				amount.StringFixed(2), sequence, target.Total.StringFixed(2)))
	}
	if target.Status == domain.InstallmentStatusPaid {
		return nil, customError.WrapInvalidAmount(
			fmt.Sprintf("installment %d is already settled", sequence))
	}

	remaining := loan.ContractTotal().Sub(loan.AmountPaid)
	if amount.GreaterThan(remaining) {
		return nil, customError.WrapInvalidAmount(
			fmt.Sprintf("payment amount %s exceeds remaining balance %s",
				amount.StringFixed(2), remaining.StringFixed(2)))
	}

	return &domain.Payment{
		ID:         uuid.New(),
		LoanID:     loan.ID,
		Sequence:   sequence,
		Amount:     amount,
		Reference:  "PMT-" + uuid.NewString()[:8],
		ReceivedAt: receivedAt,
	}, nil
}

// CountOverdue returns how many installments are overdue as of the given
// instant. Used by the daily sweep to flag defaulted loans.
func CountOverdue(loan *domain.Loan, asOf time.Time) int {
	overdue := 0
	for _, inst := range BuildSchedule(loan, asOf) {
		if inst.Status == domain.InstallmentStatusOverdue {
			overdue++
		}
	}
	return overdue
}

// dueDate is a strict weekly cadence: period i falls due 7*i days after
// the issue date. No weekend or holiday adjustment.
func dueDate(issueDate time.Time, sequence int) time.Time {
	return issueDate.AddDate(0, 0, 7*sequence)
}

// classify settles an installment against the cumulative amount paid on
// the whole loan. A period counts as paid once the loan's cumulative
// payments cover everything due through it; otherwise it is overdue when
// its due date has passed, pending when not.
//
// This is deliberately a global cumulative model, not an oldest-first
// allocation per payment: one lump sum can mark several periods paid.
func classify(amountPaid, cumulativeDue decimal.Decimal, due, asOf time.Time) string {
	if amountPaid.GreaterThanOrEqual(cumulativeDue) {
		return domain.InstallmentStatusPaid
	}
	if due.Before(asOf) {
		return domain.InstallmentStatusOverdue
	}
	return domain.InstallmentStatusPending
}
