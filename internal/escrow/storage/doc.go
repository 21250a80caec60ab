// Package storage defines persistence interfaces for the escrow engine.
//
// It covers contract records, milestones, and the tamper-evident event
// journal. Implementations (e.g., SQLite) live in subpackages.
//
// Common error types:
//   - ErrNotFound: requested record is missing
package storage
