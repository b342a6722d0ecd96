// Package server orchestrates the household-registry components.
//
// # Overview
//
// The server package owns every long-lived component: the record store,
// the key-value store for magic links, the double-submit guard, the
// notification sinks and the HTTP server.
//
// # Assembly
//
// New builds, in order:
//
//  1. The tabular store from database.driver and database.dsn
//  2. The kv store from kv.backend (memory, sql on the same handle, or redis)
//  3. The household repository, creating its tables
//  4. Mail templates and sinks: log, SMTP, and Matrix for operator notices
//  5. Prometheus instruments on a private registry
//  6. The auth, registration and update services and the chi router
//
// # Lifecycle
//
//	srv, err := server.New(ctx, cfg, logger)
//	if err != nil {
//	    return err
//	}
//	return srv.Run(ctx) // blocks until ctx is canceled
//
// Run stops the HTTP server with a 5 second grace period once ctx ends,
// then closes the guard and both stores.
//
// # Key Files
//
//   - server.go: assembly, Run/Serve and Shutdown
package server
