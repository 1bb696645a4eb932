package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrInvalidAmount     = errors.New("invalid payment amount")
	ErrDeleteBlocked     = errors.New("deletion blocked by dependent records")
	ErrStorageFailure    = errors.New("storage operation failed")
	ErrLoanNotFound      = errors.New("loan not found")
	ErrMemberNotFound    = errors.New("member not found")
	ErrLoanAlreadyExists = errors.New("loan already exists")
	ErrLoanClosed        = errors.New("loan is already settled")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeInvalidAmount     = "INVALID_AMOUNT"
	ErrCodeDeleteBlocked     = "DELETE_BLOCKED"
	ErrCodeStorageFailure    = "STORAGE_FAILURE"
	ErrCodeLoanNotFound      = "LOAN_NOT_FOUND"
	ErrCodeMemberNotFound    = "MEMBER_NOT_FOUND"
	ErrCodeLoanAlreadyExists = "LOAN_ALREADY_EXISTS"
	ErrCodeLoanClosed        = "LOAN_CLOSED"
)

// Wrap common errors with business context

func WrapInvalidAmount(detail string) *BusinessError {
	return NewBusinessError(ErrCodeInvalidAmount, detail, ErrInvalidAmount)
}

func WrapDeleteBlocked(reason string) *BusinessError {
	return NewBusinessError(ErrCodeDeleteBlocked, reason, ErrDeleteBlocked)
}

func WrapStorageFailure(err error) *BusinessError {
	return NewBusinessError(ErrCodeStorageFailure, "storage operation failed", err)
}

func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan with ID %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapMemberNotFound(memberID string) *BusinessError {
	return NewBusinessError(
		ErrCodeMemberNotFound,
		fmt.Sprintf("Member with ID %s not found", memberID),
		ErrMemberNotFound,
	)
}

func WrapLoanAlreadyExists(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanAlreadyExists,
		fmt.Sprintf("Loan with ID %s already exists", loanID),
		ErrLoanAlreadyExists,
	)
}

func WrapLoanClosed(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanClosed,
		fmt.Sprintf("Loan with ID %s is already settled", loanID),
		ErrLoanClosed,
	)
}
