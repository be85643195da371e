package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sn-foods/commerce-api/internal/auth"
	"github.com/sn-foods/commerce-api/internal/domain"
	"github.com/sn-foods/commerce-api/internal/service"
	"go.uber.org/zap"
)

type ProfileHandler struct {
	profileService *service.ProfileService
	logger         *zap.Logger
}

func NewProfileHandler(profileService *service.ProfileService, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
		logger:         logger,
	}
}

// @Summary Get own profile
// @Description Return the profile of the authenticated user
// @Tags Profiles
// @Produce json
// @Success 200 {object} domain.Profile
// @Security BearerAuth
// @Router /profiles/me [get]
func (h *ProfileHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.FromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	profile, err := h.profileService.GetByID(r.Context(), user.UserID)
	if err != nil {
		if errors.Is(err, service.ErrProfileNotFound) {
			respondWithError(w, http.StatusNotFound, "Profile not found")
			return
		}
		h.logger.Error("failed to get profile", zap.Error(err), zap.String("profile_id", user.UserID.String()))
		respondWithError(w, http.StatusInternalServerError, "Failed to get profile")
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

// @Summary Update own profile
// @Tags Profiles
// @Accept json
// @Produce json
// @Param request body domain.UpdateProfileRequest true "Profile data"
// @Success 200 {object} domain.Profile
// @Security BearerAuth
// @Router /profiles/me [put]
func (h *ProfileHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.FromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req domain.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	profile, err := h.profileService.Update(r.Context(), user.UserID, &req)
	if err != nil {
		if errors.Is(err, service.ErrProfileNotFound) {
			respondWithError(w, http.StatusNotFound, "Profile not found")
			return
		}
		h.logger.Error("failed to update profile", zap.Error(err), zap.String("profile_id", user.UserID.String()))
		respondWithError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

// @Summary Get own account memberships
// @Description List the business accounts the authenticated user belongs to
// @Tags Profiles
// @Produce json
// @Success 200 {object} MembershipListResponse
// @Security BearerAuth
// @Router /profiles/me/accounts [get]
func (h *ProfileHandler) GetMyAccounts(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.FromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	memberships, err := h.profileService.ListAccountMemberships(r.Context(), user.UserID)
	if err != nil {
		if errors.Is(err, service.ErrProfileNotFound) {
			respondWithError(w, http.StatusNotFound, "Profile not found")
			return
		}
		h.logger.Error("failed to list account memberships", zap.Error(err), zap.String("profile_id", user.UserID.String()))
		respondWithError(w, http.StatusInternalServerError, "Failed to list account memberships")
		return
	}

	respondJSON(w, http.StatusOK, MembershipListResponse{Memberships: memberships})
}

// MembershipListResponse wraps a profile's account relationships
type MembershipListResponse struct {
	Memberships []domain.ContactAccountRelationship `json:"memberships"`
}

// @Summary Get profile
// @Description Get any profile by ID, staff only
// @Tags Profiles
// @Produce json
// @Param id path string true "Profile ID"
// @Success 200 {object} domain.Profile
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /profiles/{id} [get]
func (h *ProfileHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid profile ID: must be a valid UUID")
		return
	}

	profile, err := h.profileService.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrProfileNotFound) {
			respondWithError(w, http.StatusNotFound, "Profile not found")
			return
		}
		h.logger.Error("failed to get profile", zap.Error(err), zap.String("profile_id", id.String()))
		respondWithError(w, http.StatusInternalServerError, "Failed to get profile")
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

// SetRoleRequest carries a role change for a profile
type SetRoleRequest struct {
	Role domain.UserRole `json:"role" validate:"required"`
}

// @Summary Set profile role
// @Description Change a profile's role, admin only
// @Tags Profiles
// @Accept json
// @Produce json
// @Param id path string true "Profile ID"
// @Param request body SetRoleRequest true "New role"
// @Success 200 {object} domain.Profile
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /profiles/{id}/role [put]
func (h *ProfileHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid profile ID: must be a valid UUID")
		return
	}

	var req SetRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	profile, err := h.profileService.SetRole(r.Context(), id, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProfileNotFound):
			respondWithError(w, http.StatusNotFound, "Profile not found")
			return
		case errors.Is(err, service.ErrInvalidInput):
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to set profile role", zap.Error(err), zap.String("profile_id", id.String()))
		respondWithError(w, http.StatusInternalServerError, "Failed to set profile role")
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

// @Summary Invite user
// @Description Invite a person by email with a role, admin only. The role is
// @Description applied to their profile when they first sign in.
// @Tags Profiles
// @Accept json
// @Produce json
// @Param request body domain.InviteUserRequest true "Invitation data"
// @Success 201 {object} domain.UserInvitation
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /profiles/invitations [post]
func (h *ProfileHandler) Invite(w http.ResponseWriter, r *http.Request) {
	var req domain.InviteUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	invitation, err := h.profileService.Invite(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProfileExists):
			respondWithError(w, http.StatusConflict, "A profile with this email already exists")
			return
		case errors.Is(err, service.ErrInvalidInput):
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		case errors.Is(err, service.ErrEmailDispatchFailed):
			respondWithError(w, http.StatusBadGateway, "Invitation saved but the invite email could not be sent")
			return
		}
		h.logger.Error("failed to invite user", zap.Error(err), zap.String("email", req.Email))
		respondWithError(w, http.StatusInternalServerError, "Failed to invite user")
		return
	}

	respondJSON(w, http.StatusCreated, invitation)
}

// InvitationListResponse wraps the invitation list
type InvitationListResponse struct {
	Invitations []domain.UserInvitation `json:"invitations"`
}

// @Summary List invitations
// @Description List all user invitations, admin only
// @Tags Profiles
// @Produce json
// @Success 200 {object} InvitationListResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /profiles/invitations [get]
func (h *ProfileHandler) ListInvitations(w http.ResponseWriter, r *http.Request) {
	invitations, err := h.profileService.ListInvitations(r.Context())
	if err != nil {
		h.logger.Error("failed to list invitations", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to list invitations")
		return
	}

	respondJSON(w, http.StatusOK, InvitationListResponse{Invitations: invitations})
}
