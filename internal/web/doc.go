// Package web serves the registry's JSON API over a chi router.
//
// # Endpoints
//
//	GET  /health                      liveness
//	GET  /health/ready                record store ping
//	GET  /metrics                     Prometheus, when enabled
//	POST /api/registrations           new household (access gated)
//	POST /api/auth/magic-link         mail a one-time edit link
//	POST /api/auth/magic-link/verify  redeem a link for a session
//	POST /api/auth/edit-code          sign in with email and edit code
//	GET  /api/households/{id}         current snapshot (session)
//	PUT  /api/households/{id}         save an edit (session)
//
// # Sessions
//
// Both sign-in flows return a bearer token scoped to one household. The
// household endpoints reject tokens issued for a different household with
// 403.
//
// # Errors
//
// Failures return an ErrorResponse. Validation failures carry every
// problem; server errors carry a correlation id that matches the log line.
package web
