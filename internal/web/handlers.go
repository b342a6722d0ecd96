// ABOUTME: JSON handlers for registration, magic links, edit codes and household edits
// ABOUTME: Request and response shapes mirror the registration form field names

package web

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/2389/household-registry/internal/auth"
	"github.com/2389/household-registry/internal/dedupe"
	"github.com/2389/household-registry/internal/household"
)

// MessageRegistered is returned after a successful registration. The edit
// code itself only travels by mail.
const MessageRegistered = "登録が完了しました。確認メールをご確認ください。"

// MessageSignedIn is returned after a successful edit-code sign-in.
const MessageSignedIn = "認証に成功しました。"

// RegisterResponse is the JSON response for POST /api/registrations.
type RegisterResponse struct {
	HouseholdID string `json:"householdId"`
	Message     string `json:"message"`
}

// MessageResponse carries a single user-facing message.
type MessageResponse struct {
	Message string `json:"message"`
}

// MagicLinkRequest is the JSON body for POST /api/auth/magic-link.
type MagicLinkRequest struct {
	Email string `json:"email"`
}

// VerifyRequest is the JSON body for POST /api/auth/magic-link/verify.
type VerifyRequest struct {
	Token string `json:"token"`
}

// EditCodeRequest is the JSON body for POST /api/auth/edit-code.
type EditCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// SessionResponse is returned by both sign-in flows.
type SessionResponse struct {
	Message          string               `json:"message,omitempty"`
	Household        *household.Aggregate `json:"household"`
	SessionToken     string               `json:"sessionToken"`
	SessionExpiresAt time.Time            `json:"sessionExpiresAt"`
}

// UpdateResponse is the JSON response for PUT /api/households/{id}.
type UpdateResponse struct {
	HouseholdID string               `json:"householdId"`
	Version     uint64               `json:"version"`
	Changed     bool                 `json:"changed"`
	Message     string               `json:"message"`
	Household   *household.Aggregate `json:"household"`
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// handleRegister handles POST /api/registrations.
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var sub household.Submission
	if err := decode(r, &sub); err != nil {
		writeJSONError(w, http.StatusBadRequest, msgBadRequest)
		return
	}

	fp := dedupe.Fingerprint(sub)
	if h.guard != nil {
		if !h.guard.Claim(fp) {
			h.metrics.DuplicatePosts.Inc()
			writeJSONError(w, http.StatusConflict, msgDuplicatePost)
			return
		}
	}

	res, err := h.registration.Register(r.Context(), sub)
	if err != nil {
		if h.guard != nil {
			h.guard.Release(fp)
		}
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, RegisterResponse{
		HouseholdID: res.HouseholdID,
		Message:     MessageRegistered,
	})
}

// handleRequestMagicLink handles POST /api/auth/magic-link.
func (h *Handler) handleRequestMagicLink(w http.ResponseWriter, r *http.Request) {
	var req MagicLinkRequest
	if err := decode(r, &req); err != nil || strings.TrimSpace(req.Email) == "" {
		writeJSONError(w, http.StatusBadRequest, msgBadRequest)
		return
	}

	msg, err := h.auth.RequestMagicLink(r.Context(), req.Email)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, MessageResponse{Message: msg})
}

// handleVerifyMagicLink handles POST /api/auth/magic-link/verify.
func (h *Handler) handleVerifyMagicLink(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := decode(r, &req); err != nil || strings.TrimSpace(req.Token) == "" {
		writeJSONError(w, http.StatusBadRequest, msgBadRequest)
		return
	}

	agg, err := h.auth.ValidateToken(r.Context(), req.Token)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeSession(w, r, agg, agg.Household.LoginEmail, "")
}

// handleEditCode handles POST /api/auth/edit-code.
func (h *Handler) handleEditCode(w http.ResponseWriter, r *http.Request) {
	var req EditCodeRequest
	if err := decode(r, &req); err != nil || strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Code) == "" {
		writeJSONError(w, http.StatusBadRequest, msgBadRequest)
		return
	}

	agg, err := h.auth.Authenticate(r.Context(), req.Email, req.Code)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeSession(w, r, agg, strings.TrimSpace(req.Email), MessageSignedIn)
}

func (h *Handler) writeSession(w http.ResponseWriter, r *http.Request, agg *household.Aggregate, email, msg string) {
	token, expires, err := h.sessions.Issue(agg.Household.ID, email)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{
		Message:          msg,
		Household:        agg,
		SessionToken:     token,
		SessionExpiresAt: expires,
	})
}

// handleGetHousehold handles GET /api/households/{id}.
func (h *Handler) handleGetHousehold(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !auth.FromContext(r.Context()).Allows(id) {
		writeJSONError(w, http.StatusForbidden, msgForbidden)
		return
	}

	agg, err := h.households.GetHouseholdData(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if agg == nil {
		writeJSONError(w, http.StatusNotFound, msgHouseholdMissing)
		return
	}
	writeJSON(w, http.StatusOK, agg)
}

// handleUpdateHousehold handles PUT /api/households/{id}.
func (h *Handler) handleUpdateHousehold(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	session := auth.FromContext(r.Context())
	if !session.Allows(id) {
		writeJSONError(w, http.StatusForbidden, msgForbidden)
		return
	}

	var sub household.Submission
	if err := decode(r, &sub); err != nil {
		writeJSONError(w, http.StatusBadRequest, msgBadRequest)
		return
	}
	if sub.Household.HouseholdID != "" && sub.Household.HouseholdID != id {
		writeJSONError(w, http.StatusBadRequest, msgBadRequest)
		return
	}
	sub.Household.HouseholdID = id

	res, err := h.update.Update(r.Context(), sub, session.Email)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UpdateResponse{
		HouseholdID: res.HouseholdID,
		Version:     res.Version,
		Changed:     res.Changed,
		Message:     res.Message,
		Household:   res.Aggregate,
	})
}
