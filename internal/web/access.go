// ABOUTME: Access gate for the public registration endpoint
// ABOUTME: Requires the shared access token and an open registration window

package web

import (
	"crypto/subtle"
	"net/http"

	"github.com/2389/household-registry/internal/metrics"
)

const (
	msgAccessDenied = "アクセスが拒否されました。正しいURLでアクセスしてください。"
	msgWindowClosed = "現在、登録受付期間外です。"
)

// requireAccess admits a registration only with the configured access token
// (query ?token= or X-Access-Token) and inside the registration window.
// Edit flows never pass through here.
func (h *Handler) requireAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if want := h.access.Token; want != "" {
			got := r.URL.Query().Get("token")
			if got == "" {
				got = r.Header.Get("X-Access-Token")
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
				h.metrics.Registrations.WithLabelValues(metrics.OutcomeRejected).Inc()
				writeJSONError(w, http.StatusForbidden, msgAccessDenied)
				return
			}
		}

		if !h.access.Open(h.now()) {
			h.metrics.Registrations.WithLabelValues(metrics.OutcomeRejected).Inc()
			writeJSONError(w, http.StatusForbidden, msgWindowClosed)
			return
		}

		next.ServeHTTP(w, r)
	})
}
