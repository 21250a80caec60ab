package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/WuodOdhis/trackflow/internal/escrow/event"
	"github.com/WuodOdhis/trackflow/internal/escrow/storage/integrity"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

func scanEvent(row rowScanner) (event.Event, error) {
	var evt event.Event
	var seq int64
	var timestamp int64
	var eventType string
	var actorType string
	if err := row.Scan(
		&evt.ContractID,
		&seq,
		&evt.Hash,
		&evt.PrevHash,
		&evt.ChainHash,
		&evt.Signature,
		&evt.SignatureKeyID,
		&timestamp,
		&eventType,
		&actorType,
		&evt.ActorID,
		&evt.PayloadJSON,
	); err != nil {
		return event.Event{}, err
	}
	evt.Seq = uint64(seq)
	evt.Timestamp = fromMillis(timestamp)
	evt.Type = event.Type(eventType)
	evt.ActorType = event.ActorType(actorType)
	return evt, nil
}

// appendEventTx appends one journal event inside the caller's transaction.
//
// Sequence allocation, content hashing, chain linking, and signing all happen
// here so every mutation path records events the same way. The stored event is
// returned with those fields populated.
func (s *Store) appendEventTx(ctx context.Context, tx *sql.Tx, evt event.Event) (event.Event, error) {
	if s.keyring == nil {
		return event.Event{}, fmt.Errorf("event integrity keyring is required")
	}
	if evt.ContractID <= 0 {
		return event.Event{}, fmt.Errorf("event contract id must be positive")
	}
	if !evt.Type.IsValid() {
		return event.Event{}, fmt.Errorf("event type is required")
	}

	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	evt.Timestamp = evt.Timestamp.UTC().Truncate(time.Millisecond)

	if _, err := tx.ExecContext(
		ctx,
		"INSERT OR IGNORE INTO event_seq (contract_id, next_seq) VALUES (?, 1)",
		evt.ContractID,
	); err != nil {
		return event.Event{}, fmt.Errorf("init event seq: %w", err)
	}

	var seq int64
	if err := tx.QueryRowContext(
		ctx,
		"SELECT next_seq FROM event_seq WHERE contract_id = ?",
		evt.ContractID,
	).Scan(&seq); err != nil {
		return event.Event{}, fmt.Errorf("get event seq: %w", err)
	}
	evt.Seq = uint64(seq)

	if _, err := tx.ExecContext(
		ctx,
		"UPDATE event_seq SET next_seq = next_seq + 1 WHERE contract_id = ?",
		evt.ContractID,
	); err != nil {
		return event.Event{}, fmt.Errorf("increment event seq: %w", err)
	}

	hash, err := integrity.EventHash(evt)
	if err != nil {
		return event.Event{}, fmt.Errorf("compute event hash: %w", err)
	}
	if strings.TrimSpace(hash) == "" {
		return event.Event{}, fmt.Errorf("event hash is required")
	}
	evt.Hash = hash

	prevHash := ""
	if evt.Seq > 1 {
		if err := tx.QueryRowContext(
			ctx,
			"SELECT chain_hash FROM contract_events WHERE contract_id = ? AND seq = ?",
			evt.ContractID,
			seq-1,
		).Scan(&prevHash); err != nil {
			return event.Event{}, fmt.Errorf("load previous event: %w", err)
		}
	}

	chainHash, err := integrity.ChainHash(evt, prevHash)
	if err != nil {
		return event.Event{}, fmt.Errorf("compute chain hash: %w", err)
	}
	if strings.TrimSpace(chainHash) == "" {
		return event.Event{}, fmt.Errorf("chain hash is required")
	}

	signature, keyID, err := s.keyring.SignChainHash(evt.ContractID, chainHash)
	if err != nil {
		return event.Event{}, fmt.Errorf("sign chain hash: %w", err)
	}

	evt.PrevHash = prevHash
	evt.ChainHash = chainHash
	evt.Signature = signature
	evt.SignatureKeyID = keyID

	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO contract_events (
		    contract_id, seq, event_hash, prev_event_hash, chain_hash,
		    event_signature, signature_key_id, timestamp, event_type,
		    actor_type, actor_id, payload_json
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		evt.ContractID,
		int64(evt.Seq),
		evt.Hash,
		prevHash,
		chainHash,
		signature,
		keyID,
		toMillis(evt.Timestamp),
		string(evt.Type),
		string(evt.ActorType),
		evt.ActorID,
		evt.PayloadJSON,
	); err != nil {
		if isConstraintError(err) {
			return event.Event{}, fmt.Errorf("event already recorded: %w", err)
		}
		return event.Event{}, fmt.Errorf("append event: %w", err)
	}

	return evt, nil
}

// ListEvents returns events for a contract ordered by sequence ascending.
func (s *Store) ListEvents(ctx context.Context, contractID int64, afterSeq uint64, limit int) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if contractID <= 0 {
		return nil, fmt.Errorf("contract id must be positive")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT contract_id, seq, event_hash, prev_event_hash, chain_hash,
		        event_signature, signature_key_id, timestamp, event_type,
		        actor_type, actor_id, payload_json
		 FROM contract_events
		 WHERE contract_id = ? AND seq > ?
		 ORDER BY seq
		 LIMIT ?`,
		contractID,
		int64(afterSeq),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		evt, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return events, nil
}

// GetLatestEventSeq returns the highest stored sequence for a contract.
//
// Contracts without journal entries report zero.
func (s *Store) GetLatestEventSeq(ctx context.Context, contractID int64) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	if contractID <= 0 {
		return 0, fmt.Errorf("contract id must be positive")
	}

	var seq int64
	row := s.sqlDB.QueryRowContext(
		ctx,
		"SELECT COALESCE(MAX(seq), 0) FROM contract_events WHERE contract_id = ?",
		contractID,
	)
	if err := row.Scan(&seq); err != nil {
		return 0, fmt.Errorf("get latest event seq: %w", err)
	}

	return uint64(seq), nil
}

// VerifyEventIntegrity replays every contract journal and reports the first
// sequence gap, hash mismatch, chain break, or signature failure.
func (s *Store) VerifyEventIntegrity(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if s.keyring == nil {
		return fmt.Errorf("event integrity keyring is required")
	}

	contractIDs, err := s.listEventContractIDs(ctx)
	if err != nil {
		return err
	}
	for _, contractID := range contractIDs {
		if err := s.verifyContractEvents(ctx, contractID); err != nil {
			return err
		}
	}

	return nil
}

func (s *Store) listEventContractIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.sqlDB.QueryContext(ctx, "SELECT DISTINCT contract_id FROM contract_events ORDER BY contract_id")
	if err != nil {
		return nil, fmt.Errorf("list contract ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan contract id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contract ids: %w", err)
	}
	return ids, nil
}

func (s *Store) verifyContractEvents(ctx context.Context, contractID int64) error {
	var lastSeq uint64
	prevChainHash := ""
	for {
		events, err := s.ListEvents(ctx, contractID, lastSeq, 200)
		if err != nil {
			return fmt.Errorf("list events contract_id=%d: %w", contractID, err)
		}
		if len(events) == 0 {
			return nil
		}
		for _, evt := range events {
			if evt.Seq != lastSeq+1 {
				return fmt.Errorf("event sequence gap contract_id=%d expected=%d got=%d", contractID, lastSeq+1, evt.Seq)
			}
			if evt.Seq == 1 && evt.PrevHash != "" {
				return fmt.Errorf("first event prev hash must be empty contract_id=%d", contractID)
			}
			if evt.Seq > 1 && evt.PrevHash != prevChainHash {
				return fmt.Errorf("prev hash mismatch contract_id=%d seq=%d", contractID, evt.Seq)
			}

			hash, err := integrity.EventHash(evt)
			if err != nil {
				return fmt.Errorf("compute event hash contract_id=%d seq=%d: %w", contractID, evt.Seq, err)
			}
			if hash != evt.Hash {
				return fmt.Errorf("event hash mismatch contract_id=%d seq=%d", contractID, evt.Seq)
			}

			chainHash, err := integrity.ChainHash(evt, prevChainHash)
			if err != nil {
				return fmt.Errorf("compute chain hash contract_id=%d seq=%d: %w", contractID, evt.Seq, err)
			}
			if chainHash != evt.ChainHash {
				return fmt.Errorf("chain hash mismatch contract_id=%d seq=%d", contractID, evt.Seq)
			}

			if err := s.keyring.VerifyChainHash(contractID, chainHash, evt.Signature, evt.SignatureKeyID); err != nil {
				return fmt.Errorf("signature mismatch contract_id=%d seq=%d: %w", contractID, evt.Seq, err)
			}

			prevChainHash = evt.ChainHash
			lastSeq = evt.Seq
		}
	}
}

func isConstraintError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
