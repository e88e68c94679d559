// Package server wires trellis together and runs it.
//
// New opens the configured store (SQLite or Postgres), builds the identity,
// membership, access, hierarchy and auth services on top of it and mounts
// the api router on an http.Server. Run blocks until its context is
// canceled, then shuts the HTTP server down and closes the store.
//
// Endpoints outside the API proper:
//
//   - GET /health - Liveness check
//   - GET /health/ready - Pings the database
package server
