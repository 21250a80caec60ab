// Package service orchestrates escrow contract operations.
//
// The Engine is the single write path for contracts: it runs domain
// decisions, allocates identifiers, derives milestone commitments, and hands
// the resulting state plus journal events to storage in one transaction.
// Ledger movements run inside that transaction, so funds and contract state
// advance together or not at all. Event publication happens after commit and
// is best effort; the journal remains the source of truth.
package service
