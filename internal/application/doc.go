// Package application wires configuration, storage, the API router and the
// HTTP server together, keeping the main package focused on CLI parsing and
// orchestration.
package application
