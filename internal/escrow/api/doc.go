// Package api serves the escrow REST surface.
//
// Routes are registered on a net/http ServeMux with method patterns. Every
// contract route requires a party grant; the authenticated subject is the
// caller identity handed to the engine for authorization decisions. Failures
// are written as a JSON envelope whose code maps onto the HTTP status.
package api
