package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/mikopo/backoffice/internal/config"
	"github.com/mikopo/backoffice/internal/domain"
	"github.com/mikopo/backoffice/internal/reconciler"
	"github.com/mikopo/backoffice/internal/repository"
	"github.com/mikopo/backoffice/internal/schedule"
	customError "github.com/mikopo/backoffice/pkg/errors"
)

// BackofficeService orchestrates the member registry, loan origination,
// schedule rendering and payment tracking, and hands deletions to the
// reconciler. Schedules are derived through the engine on every read and
// cached briefly in redis.
type BackofficeService struct {
	members    repository.MemberRepository
	loans      repository.LoanRepository
	payments   repository.PaymentRepository
	reconciler *reconciler.Reconciler
	redis      *redis.Client
	config     *config.Config
	now        func() time.Time
}

func NewBackofficeService(
	members repository.MemberRepository,
	loans repository.LoanRepository,
	payments repository.PaymentRepository,
	rec *reconciler.Reconciler,
	redisClient *redis.Client,
	cfg *config.Config,
) *BackofficeService {
	return &BackofficeService{
		members:    members,
		loans:      loans,
		payments:   payments,
		reconciler: rec,
		redis:      redisClient,
		config:     cfg,
		now:        time.Now,
	}
}

// RegisterMember creates a new member record
func (s *BackofficeService) RegisterMember(ctx context.Context, request *domain.RegisterMemberRequest) (*domain.Member, error) {
	member := &domain.Member{
		ID:        uuid.New(),
		Name:      request.Name,
		Phone:     request.Phone,
		GroupID:   request.GroupID,
		CreatedAt: s.now(),
		UpdatedAt: s.now(),
	}

	if err := s.members.Create(ctx, member); err != nil {
		return nil, customError.WrapStorageFailure(err)
	}

	return member, nil
}

// GetMember retrieves a member by ID
func (s *BackofficeService) GetMember(ctx context.Context, id uuid.UUID) (*domain.Member, error) {
	member, err := s.members.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapMemberNotFound(id.String())
		}
		return nil, customError.WrapStorageFailure(err)
	}
	return member, nil
}

// DisburseLoan creates a new loan and returns it with its derived schedule
func (s *BackofficeService) DisburseLoan(ctx context.Context, request *domain.DisburseLoanRequest) (*domain.Loan, []*domain.Installment, error) {
	existing, err := s.loans.GetByLoanID(ctx, request.LoanID)
	if err == nil && existing != nil {
		return nil, nil, customError.WrapLoanAlreadyExists(request.LoanID)
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, nil, customError.WrapStorageFailure(err)
	}

	if request.Principal.LessThanOrEqual(decimal.Zero) {
		return nil, nil, customError.WrapInvalidAmount("principal must be greater than zero")
	}
	if request.DisbursedInterest.IsNegative() {
		return nil, nil, customError.WrapInvalidAmount("disbursed interest must not be negative")
	}

	issueDate := request.IssueDate
	if issueDate.IsZero() {
		issueDate = s.now().Truncate(24 * time.Hour)
	}

	loan := &domain.Loan{
		ID:                uuid.New(),
		LoanID:            request.LoanID,
		MemberID:          request.MemberID,
		Principal:         request.Principal,
		DisbursedInterest: request.DisbursedInterest,
		Program:           request.Program,
		IssueDate:         issueDate,
		AmountPaid:        decimal.Zero,
		Balance:           request.Principal.Add(request.DisbursedInterest),
		Status:            domain.LoanStatusActive,
		CreatedAt:         s.now(),
		UpdatedAt:         s.now(),
	}

	if err := s.loans.Create(ctx, loan); err != nil {
		return nil, nil, customError.WrapStorageFailure(err)
	}

	return loan, schedule.BuildSchedule(loan, s.now()), nil
}

// GetSchedule returns the derived schedule for a loan, served from the
// redis cache when fresh
func (s *BackofficeService) GetSchedule(ctx context.Context, loanID string) ([]*domain.Installment, error) {
	cacheKey := scheduleCacheKey(loanID)

	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
			var installments []*domain.Installment
			if jerr := json.Unmarshal([]byte(cached), &installments); jerr == nil {
				return installments, nil
			}
		}
	}

	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	installments := schedule.BuildSchedule(loan, s.now())

	if s.redis != nil {
		if encoded, jerr := json.Marshal(installments); jerr == nil {
			if err := s.redis.Set(ctx, cacheKey, encoded, s.config.Business.ScheduleCacheTTL).Err(); err != nil {
				log.Printf("schedule cache set for loan %s: %v", loanID, err)
			}
		}
	}

	return installments, nil
}

// RecordPayment validates a payment against the loan's schedule, persists
// it, and rolls the loan's cumulative paid amount and balance forward
func (s *BackofficeService) RecordPayment(ctx context.Context, loanID string, sequence int, amount decimal.Decimal) (*domain.Payment, error) {
	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if domain.IsTerminalStatus(loan.Status) {
		return nil, customError.WrapLoanClosed(loanID)
	}

	payment, err := schedule.ValidatePayment(loan, sequence, amount, s.now())
	if err != nil {
		return nil, err
	}
	payment.CreatedAt = s.now()

	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, customError.WrapStorageFailure(err)
	}

	loan.AmountPaid = loan.AmountPaid.Add(amount)
	loan.Balance = loan.ContractTotal().Sub(loan.AmountPaid)
	if loan.AmountPaid.GreaterThanOrEqual(loan.ContractTotal()) {
		loan.Status = domain.LoanStatusRepaid
	}

	if err := s.loans.Update(ctx, loan); err != nil {
		return nil, customError.WrapStorageFailure(err)
	}

	s.invalidateScheduleCache(ctx, loanID)

	return payment, nil
}

// ListMemberLoans returns every loan attached to a member, written-off
// ones included
func (s *BackofficeService) ListMemberLoans(ctx context.Context, memberID uuid.UUID) ([]*domain.Loan, error) {
	if _, err := s.GetMember(ctx, memberID); err != nil {
		return nil, err
	}

	loans, err := s.loans.GetByMemberID(ctx, memberID)
	if err != nil {
		return nil, customError.WrapStorageFailure(err)
	}
	return loans, nil
}

// ListPayments returns the payment history for a loan in received order
func (s *BackofficeService) ListPayments(ctx context.Context, loanID string) ([]*domain.Payment, error) {
	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	payments, err := s.payments.GetByLoanID(ctx, loan.ID)
	if err != nil {
		return nil, customError.WrapStorageFailure(err)
	}
	return payments, nil
}

// GetOutstanding recomputes the outstanding balance from the payment
// records rather than trusting the loan row
func (s *BackofficeService) GetOutstanding(ctx context.Context, loanID string) (decimal.Decimal, error) {
	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return decimal.Zero, err
	}

	totalPaid, err := s.payments.GetTotalPaid(ctx, loan.ID)
	if err != nil {
		return decimal.Zero, customError.WrapStorageFailure(err)
	}

	return loan.ContractTotal().Sub(totalPaid), nil
}

// WriteOffLoan sets the loan's soft-delete flag. Dependent records stay
// where they are; only the reconciler removes rows.
func (s *BackofficeService) WriteOffLoan(ctx context.Context, loanID string) error {
	if _, err := s.getLoan(ctx, loanID); err != nil {
		return err
	}
	if err := s.loans.MarkWrittenOff(ctx, loanID); err != nil {
		return customError.WrapStorageFailure(err)
	}
	s.invalidateScheduleCache(ctx, loanID)
	return nil
}

// CanDeleteMember runs the reconciler's pre-flight check
func (s *BackofficeService) CanDeleteMember(ctx context.Context, memberID uuid.UUID) (reconciler.Decision, error) {
	return s.reconciler.CanDeleteMember(ctx, memberID.String())
}

// DeleteMember hands the member to the reconciler
func (s *BackofficeService) DeleteMember(ctx context.Context, memberID uuid.UUID) reconciler.Outcome {
	return s.reconciler.DeleteMember(ctx, memberID.String())
}

// DeleteLoan hands the loan to the reconciler
func (s *BackofficeService) DeleteLoan(ctx context.Context, loanID string) reconciler.Outcome {
	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		var business *customError.BusinessError
		if errors.As(err, &business) && business.Code == customError.ErrCodeLoanNotFound {
			// Already absent: deleting again is the same terminal report.
			return reconciler.Outcome{State: reconciler.StateDeleted}
		}
		return reconciler.Outcome{State: reconciler.StateFailed, Err: err}
	}

	outcome := s.reconciler.DeleteLoan(ctx, loan.ID.String())
	if outcome.State == reconciler.StateDeleted {
		s.invalidateScheduleCache(ctx, loanID)
	}
	return outcome
}

// SweepOverdue re-derives every active loan's schedule and marks loans
// with at least the threshold number of overdue installments as
// defaulted. Returns how many loans were flagged.
func (s *BackofficeService) SweepOverdue(ctx context.Context) (int, error) {
	loans, err := s.loans.ListActive(ctx)
	if err != nil {
		return 0, customError.WrapStorageFailure(err)
	}

	flagged := 0
	asOf := s.now()
	for _, loan := range loans {
		if schedule.CountOverdue(loan, asOf) < s.config.Business.DelinquencyThreshold {
			continue
		}

		loan.Status = domain.LoanStatusDefaulted
		if err := s.loans.Update(ctx, loan); err != nil {
			log.Printf("sweep: could not flag loan %s: %v", loan.LoanID, err)
			continue
		}
		s.invalidateScheduleCache(ctx, loan.LoanID)
		flagged++
	}

	return flagged, nil
}

func (s *BackofficeService) getLoan(ctx context.Context, loanID string) (*domain.Loan, error) {
	loan, err := s.loans.GetByLoanID(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapLoanNotFound(loanID)
		}
		return nil, customError.WrapStorageFailure(err)
	}
	return loan, nil
}

func (s *BackofficeService) invalidateScheduleCache(ctx context.Context, loanID string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, scheduleCacheKey(loanID)).Err(); err != nil {
		log.Printf("schedule cache invalidate for loan %s: %v", loanID, err)
	}
}

func scheduleCacheKey(loanID string) string {
	return fmt.Sprintf("schedule:%s", loanID)
}
