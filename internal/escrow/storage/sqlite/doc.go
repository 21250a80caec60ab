// Package sqlite provides the escrow persistence adapter backed by SQLite.
//
// A single SQLite file holds contract state, milestone progress, and the
// append-only event journal. Every mutation writes its state change and its
// journal entries in one transaction, so observers never see a contract
// advance without the events that explain it.
package sqlite
