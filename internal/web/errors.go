// ABOUTME: Maps domain errors to HTTP status codes and JSON error bodies
// ABOUTME: Unexpected failures get a correlation id that is logged with the cause

package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/2389/household-registry/internal/auth"
	"github.com/2389/household-registry/internal/household"
	"github.com/2389/household-registry/internal/intake"
	"github.com/2389/household-registry/internal/validation"
)

// User-facing error messages.
const (
	msgInvalidInput     = "入力内容に誤りがあります。"
	msgBadRequest       = "送信内容が正しくありません。"
	msgHouseholdMissing = "世帯データが見つかりませんでした。"
	msgEmailNotFound    = "メールアドレスが見つかりませんでした。"
	msgDuplicateEmail   = "このメールアドレスは既に登録されています。編集モードをご利用ください。"
	msgDuplicatePost    = "同じ内容がすでに送信されています。確認メールをご確認ください。"
	msgTokenInvalid     = "編集リンクが無効です。"
	msgTokenExpired     = "編集リンクの有効期限が切れています。"
	msgIncorrectCode    = "編集コードが正しくありません。"
	msgEmailInactive    = "このメールアドレスは現在有効ではありません。最新のメールアドレスでログインしてください。"
	msgForbidden        = "この世帯を編集する権限がありません。"
	msgInternal         = "エラーが発生しました。時間をおいて再度お試しください。"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error         string   `json:"error"`
	Problems      []string `json:"problems,omitempty"`
	CorrelationID string   `json:"correlationId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// statusFor classifies err. Unknown errors map to 500.
func statusFor(err error) (int, ErrorResponse) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, ErrorResponse{Error: msgInvalidInput, Problems: verr.Problems}
	case errors.Is(err, household.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{Error: msgHouseholdMissing}
	case errors.Is(err, auth.ErrEmailNotFound):
		return http.StatusNotFound, ErrorResponse{Error: msgEmailNotFound}
	case errors.Is(err, household.ErrDuplicateEmail):
		return http.StatusConflict, ErrorResponse{Error: msgDuplicateEmail}
	case errors.Is(err, auth.ErrTokenInvalid):
		return http.StatusUnauthorized, ErrorResponse{Error: msgTokenInvalid}
	case errors.Is(err, auth.ErrTokenExpired):
		return http.StatusGone, ErrorResponse{Error: msgTokenExpired}
	case errors.Is(err, auth.ErrIncorrectCode):
		return http.StatusUnauthorized, ErrorResponse{Error: msgIncorrectCode}
	case errors.Is(err, auth.ErrEmailInactive):
		return http.StatusUnauthorized, ErrorResponse{Error: msgEmailInactive}
	case errors.Is(err, household.ErrInvalidMember), errors.Is(err, intake.ErrMissingHouseholdID):
		return http.StatusBadRequest, ErrorResponse{Error: msgBadRequest}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: msgInternal}
	}
}

// writeError maps err to a response. Server-side failures are logged with
// a fresh correlation id that is echoed to the client.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := statusFor(err)
	if status >= http.StatusInternalServerError {
		body.CorrelationID = uuid.NewString()
		h.logger.ErrorContext(r.Context(), "request failed",
			"path", r.URL.Path,
			"correlation_id", body.CorrelationID,
			"error", err,
		)
	} else {
		h.logger.DebugContext(r.Context(), "request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, body)
}
