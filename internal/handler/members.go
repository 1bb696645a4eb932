package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/mikopo/backoffice/internal/domain"
	"github.com/mikopo/backoffice/pkg/response"
)

// RegisterMember handles POST /members
func (h *BackofficeHandler) RegisterMember(w http.ResponseWriter, r *http.Request) {
	var request domain.RegisterMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	member, err := h.service.RegisterMember(r.Context(), &request)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Created(w, member)
}

// GetMember handles GET /members/{memberId}
func (h *BackofficeHandler) GetMember(w http.ResponseWriter, r *http.Request) {
	memberID, ok := memberIDFromRequest(w, r)
	if !ok {
		return
	}

	member, err := h.service.GetMember(r.Context(), memberID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, member)
}

// ListMemberLoans handles GET /members/{memberId}/loans
func (h *BackofficeHandler) ListMemberLoans(w http.ResponseWriter, r *http.Request) {
	memberID, ok := memberIDFromRequest(w, r)
	if !ok {
		return
	}

	loans, err := h.service.ListMemberLoans(r.Context(), memberID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, loans)
}

// CanDeleteMember handles GET /members/{memberId}/deletable
func (h *BackofficeHandler) CanDeleteMember(w http.ResponseWriter, r *http.Request) {
	memberID, ok := memberIDFromRequest(w, r)
	if !ok {
		return
	}

	decision, err := h.service.CanDeleteMember(r.Context(), memberID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, decision)
}

// DeleteMember handles DELETE /members/{memberId}
func (h *BackofficeHandler) DeleteMember(w http.ResponseWriter, r *http.Request) {
	memberID, ok := memberIDFromRequest(w, r)
	if !ok {
		return
	}

	writeOutcome(w, h.service.DeleteMember(r.Context(), memberID))
}

func memberIDFromRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	memberID, err := uuid.Parse(mux.Vars(r)["memberId"])
	if err != nil {
		response.BadRequest(w, "invalid member id", err)
		return uuid.Nil, false
	}
	return memberID, true
}
