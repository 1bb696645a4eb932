package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mikopo/backoffice/internal/domain"
	"github.com/mikopo/backoffice/internal/reconciler"
	customError "github.com/mikopo/backoffice/pkg/errors"
	"github.com/mikopo/backoffice/pkg/response"
)

// Service is the back-office surface the HTTP layer depends on.
type Service interface {
	RegisterMember(ctx context.Context, request *domain.RegisterMemberRequest) (*domain.Member, error)
	GetMember(ctx context.Context, id uuid.UUID) (*domain.Member, error)
	ListMemberLoans(ctx context.Context, memberID uuid.UUID) ([]*domain.Loan, error)
	DisburseLoan(ctx context.Context, request *domain.DisburseLoanRequest) (*domain.Loan, []*domain.Installment, error)
	GetSchedule(ctx context.Context, loanID string) ([]*domain.Installment, error)
	RecordPayment(ctx context.Context, loanID string, sequence int, amount decimal.Decimal) (*domain.Payment, error)
	ListPayments(ctx context.Context, loanID string) ([]*domain.Payment, error)
	GetOutstanding(ctx context.Context, loanID string) (decimal.Decimal, error)
	WriteOffLoan(ctx context.Context, loanID string) error
	CanDeleteMember(ctx context.Context, memberID uuid.UUID) (reconciler.Decision, error)
	DeleteMember(ctx context.Context, memberID uuid.UUID) reconciler.Outcome
	DeleteLoan(ctx context.Context, loanID string) reconciler.Outcome
}

type BackofficeHandler struct {
	service   Service
	validator *validator.Validate
}

func NewBackofficeHandler(service Service) *BackofficeHandler {
	return &BackofficeHandler{
		service:   service,
		validator: validator.New(),
	}
}

// writeServiceError maps the error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var business *customError.BusinessError
	if errors.As(err, &business) {
		switch business.Code {
		case customError.ErrCodeInvalidAmount:
			response.BadRequest(w, business.Message, business.Err)
		case customError.ErrCodeLoanNotFound, customError.ErrCodeMemberNotFound:
			response.NotFound(w, business.Message)
		case customError.ErrCodeLoanAlreadyExists, customError.ErrCodeLoanClosed, customError.ErrCodeDeleteBlocked:
			response.Conflict(w, business.Message)
		default:
			response.InternalServerError(w, business.Message, business.Err)
		}
		return
	}

	response.InternalServerError(w, "unexpected error", err)
}

// writeOutcome maps a reconciler outcome onto HTTP statuses. Blocked is a
// normal result and carries its reason to the caller.
func writeOutcome(w http.ResponseWriter, outcome reconciler.Outcome) {
	switch outcome.State {
	case reconciler.StateDeleted:
		response.Success(w, domain.DeleteResponse{Deleted: true})
	case reconciler.StateBlocked:
		response.Conflict(w, outcome.Reason)
	default:
		response.InternalServerError(w, outcome.Reason, outcome.Err)
	}
}
