package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mikopo/backoffice/internal/domain"
	"github.com/mikopo/backoffice/pkg/response"
)

// DisburseLoan handles POST /loans
func (h *BackofficeHandler) DisburseLoan(w http.ResponseWriter, r *http.Request) {
	var request domain.DisburseLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	loan, installments, err := h.service.DisburseLoan(r.Context(), &request)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Created(w, domain.DisburseLoanResponse{Loan: loan, Schedule: installments})
}

// GetSchedule handles GET /loans/{loanId}/schedule
func (h *BackofficeHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	installments, err := h.service.GetSchedule(r.Context(), loanID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, domain.ScheduleResponse{LoanID: loanID, Schedule: installments})
}

// RecordPayment handles POST /loans/{loanId}/payments
func (h *BackofficeHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	var request domain.RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	payment, err := h.service.RecordPayment(r.Context(), loanID, request.Sequence, request.Amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Created(w, payment)
}

// ListPayments handles GET /loans/{loanId}/payments
func (h *BackofficeHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	payments, err := h.service.ListPayments(r.Context(), loanID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, payments)
}

// GetOutstanding handles GET /loans/{loanId}/outstanding
func (h *BackofficeHandler) GetOutstanding(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	outstanding, err := h.service.GetOutstanding(r.Context(), loanID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, domain.OutstandingResponse{LoanID: loanID, Outstanding: outstanding})
}

// WriteOffLoan handles POST /loans/{loanId}/writeoff
func (h *BackofficeHandler) WriteOffLoan(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	if err := h.service.WriteOffLoan(r.Context(), loanID); err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, nil)
}

// DeleteLoan handles DELETE /loans/{loanId}
func (h *BackofficeHandler) DeleteLoan(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	writeOutcome(w, h.service.DeleteLoan(r.Context(), loanID))
}
