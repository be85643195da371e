package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sn-foods/commerce-api/internal/domain"
	"github.com/sn-foods/commerce-api/internal/service"
	"go.uber.org/zap"
)

type AccountHandler struct {
	accountService *service.AccountService
	logger         *zap.Logger
}

func NewAccountHandler(accountService *service.AccountService, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		logger:         logger,
	}
}

// @Summary List accounts
// @Description List active business accounts with optional name search
// @Tags Accounts
// @Produce json
// @Param q query string false "Search by name or account number"
// @Param limit query int false "Page size" default(50)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} domain.PaginatedResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /accounts [get]
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	search := r.URL.Query().Get("q")

	accounts, total, err := h.accountService.List(r.Context(), search, limit, offset)
	if err != nil {
		h.logger.Error("failed to list accounts", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to list accounts")
		return
	}

	respondJSON(w, http.StatusOK, domain.PaginatedResponse{
		Data:   accounts,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// @Summary Create account
// @Description Create a new business account with a generated account number
// @Tags Accounts
// @Accept json
// @Produce json
// @Param request body domain.CreateAccountRequest true "Account data"
// @Success 201 {object} domain.Account
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /accounts [post]
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	account, err := h.accountService.Create(r.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to create account", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	w.Header().Set("Location", "/api/v1/accounts/"+account.ID.String())
	respondJSON(w, http.StatusCreated, account)
}

// @Summary Get account
// @Description Get an account by ID with its contact relationships
// @Tags Accounts
// @Produce json
// @Param id path string true "Account ID"
// @Success 200 {object} domain.Account
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /accounts/{id} [get]
func (h *AccountHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid account ID: must be a valid UUID")
		return
	}

	account, err := h.accountService.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			respondWithError(w, http.StatusNotFound, "Account not found")
			return
		}
		h.logger.Error("failed to get account", zap.Error(err), zap.String("account_id", id.String()))
		respondWithError(w, http.StatusInternalServerError, "Failed to get account")
		return
	}

	respondJSON(w, http.StatusOK, account)
}

// @Summary Update account
// @Description Update an existing account
// @Tags Accounts
// @Accept json
// @Produce json
// @Param id path string true "Account ID"
// @Param request body domain.UpdateAccountRequest true "Account data"
// @Success 200 {object} domain.Account
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /accounts/{id} [put]
func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid account ID: must be a valid UUID")
		return
	}

	var req domain.UpdateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	account, err := h.accountService.Update(r.Context(), id, &req)
	if err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			respondWithError(w, http.StatusNotFound, "Account not found")
			return
		}
		if errors.Is(err, service.ErrInvalidInput) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to update account", zap.Error(err), zap.String("account_id", id.String()))
		respondWithError(w, http.StatusInternalServerError, "Failed to update account")
		return
	}

	respondJSON(w, http.StatusOK, account)
}

// @Summary Deactivate account
// @Description Soft-delete an account; historical orders keep their reference
// @Tags Accounts
// @Param id path string true "Account ID"
// @Success 204
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /accounts/{id} [delete]
func (h *AccountHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid account ID: must be a valid UUID")
		return
	}

	if err := h.accountService.Deactivate(r.Context(), id); err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			respondWithError(w, http.StatusNotFound, "Account not found")
			return
		}
		h.logger.Error("failed to deactivate account", zap.Error(err), zap.String("account_id", id.String()))
		respondWithError(w, http.StatusInternalServerError, "Failed to deactivate account")
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

// @Summary List account contacts
// @Description List the contact relationships of an account
// @Tags Accounts
// @Produce json
// @Param id path string true "Account ID"
// @Success 200 {object} ContactListResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /accounts/{id}/contacts [get]
func (h *AccountHandler) ListContacts(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid account ID: must be a valid UUID")
		return
	}

	contacts, err := h.accountService.ListContacts(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			respondWithError(w, http.StatusNotFound, "Account not found")
			return
		}
		h.logger.Error("failed to list account contacts", zap.Error(err), zap.String("account_id", id.String()))
		respondWithError(w, http.StatusInternalServerError, "Failed to list account contacts")
		return
	}

	respondJSON(w, http.StatusOK, ContactListResponse{Contacts: contacts})
}

// ContactListResponse wraps an account's contact relationships
type ContactListResponse struct {
	Contacts []domain.ContactAccountRelationship `json:"contacts"`
}

// @Summary Add account contact
// @Description Link a profile to an account with capability flags
// @Tags Accounts
// @Accept json
// @Produce json
// @Param id path string true "Account ID"
// @Param request body domain.CreateRelationshipRequest true "Relationship data"
// @Success 201 {object} domain.ContactAccountRelationship
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /accounts/{id}/contacts [post]
func (h *AccountHandler) AddContact(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid account ID: must be a valid UUID")
		return
	}

	var req domain.CreateRelationshipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	rel, err := h.accountService.AddContact(r.Context(), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAccountNotFound):
			respondWithError(w, http.StatusNotFound, "Account not found")
			return
		case errors.Is(err, service.ErrProfileNotFound):
			respondWithError(w, http.StatusNotFound, "Contact profile not found")
			return
		case errors.Is(err, service.ErrInvalidInput):
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to add account contact", zap.Error(err), zap.String("account_id", id.String()))
		respondWithError(w, http.StatusInternalServerError, "Failed to add account contact")
		return
	}

	respondJSON(w, http.StatusCreated, rel)
}

// @Summary Remove account contact
// @Description Unlink a contact from an account
// @Tags Accounts
// @Param id path string true "Account ID"
// @Param relationshipId path string true "Relationship ID"
// @Success 204
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /accounts/{id}/contacts/{relationshipId} [delete]
func (h *AccountHandler) RemoveContact(w http.ResponseWriter, r *http.Request) {
	relID, err := uuid.Parse(chi.URLParam(r, "relationshipId"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid relationship ID: must be a valid UUID")
		return
	}

	if err := h.accountService.RemoveContact(r.Context(), relID); err != nil {
		if errors.Is(err, service.ErrRelationshipNotFound) {
			respondWithError(w, http.StatusNotFound, "Relationship not found")
			return
		}
		h.logger.Error("failed to remove account contact", zap.Error(err), zap.String("relationship_id", relID.String()))
		respondWithError(w, http.StatusInternalServerError, "Failed to remove account contact")
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}
