package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/WuodOdhis/trackflow/internal/escrow/contract"
	"github.com/WuodOdhis/trackflow/internal/escrow/event"
	"github.com/WuodOdhis/trackflow/internal/escrow/storage"

	apperrors "github.com/WuodOdhis/trackflow/internal/platform/errors"
)

// rowScanner abstracts sql.Row and sql.Rows for shared scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanContract(row rowScanner) (contract.Contract, error) {
	var c contract.Contract
	var status string
	var createdAt int64
	var updatedAt int64
	var acceptedAt sql.NullInt64
	var completedAt sql.NullInt64
	if err := row.Scan(
		&c.ID,
		&c.Shipper,
		&c.Carrier,
		&c.Recipient,
		&c.Payment,
		&status,
		&c.CompletedMilestones,
		&c.ReleasedAmount,
		&createdAt,
		&updatedAt,
		&acceptedAt,
		&completedAt,
	); err != nil {
		return contract.Contract{}, err
	}

	parsed, err := contract.StatusFromLabel(status)
	if err != nil {
		return contract.Contract{}, fmt.Errorf("parse contract status: %w", err)
	}
	c.Status = parsed
	c.CreatedAt = fromMillis(createdAt)
	c.UpdatedAt = fromMillis(updatedAt)
	c.AcceptedAt = fromNullMillis(acceptedAt)
	c.CompletedAt = fromNullMillis(completedAt)
	return c, nil
}

func scanMilestone(row rowScanner) (contract.Milestone, error) {
	var m contract.Milestone
	var completed int64
	var completedAt sql.NullInt64
	if err := row.Scan(
		&m.Index,
		&m.Location,
		&m.Verifier,
		&m.CommitmentHash,
		&completed,
		&completedAt,
		&m.ReleasedAmount,
	); err != nil {
		return contract.Milestone{}, err
	}
	m.Completed = completed != 0
	m.CompletedAt = fromNullMillis(completedAt)
	return m, nil
}

// NextContractID allocates the next sequential contract identifier.
//
// Identifiers come from a singleton counter row, so they stay monotonic
// across restarts. An allocation abandoned before CreateContract leaves a
// gap in the sequence, which callers must tolerate.
func (s *Store) NextContractID(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO contract_seq (id, next_id) VALUES (1, 1)"); err != nil {
		return 0, fmt.Errorf("init contract seq: %w", err)
	}

	var next int64
	if err := tx.QueryRowContext(ctx, "SELECT next_id FROM contract_seq WHERE id = 1").Scan(&next); err != nil {
		return 0, fmt.Errorf("get contract seq: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "UPDATE contract_seq SET next_id = next_id + 1 WHERE id = 1"); err != nil {
		return 0, fmt.Errorf("increment contract seq: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	return next, nil
}

// CreateContract persists a new contract, its milestones, and the creation
// event in one transaction.
//
// The fund callback runs last inside the transaction, so a funding failure
// rolls back the contract row and its journal entry together.
func (s *Store) CreateContract(ctx context.Context, c contract.Contract, evt event.Event, fund func(context.Context) error) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	if s == nil || s.sqlDB == nil {
		return event.Event{}, fmt.Errorf("storage is not configured")
	}
	if c.ID <= 0 {
		return event.Event{}, fmt.Errorf("contract id must be positive")
	}
	if len(c.Milestones) == 0 {
		return event.Event{}, fmt.Errorf("contract milestones are required")
	}
	if evt.ContractID != c.ID {
		return event.Event{}, fmt.Errorf("event contract id mismatch")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return event.Event{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO contracts (
		    id, shipper, carrier, recipient, payment, status,
		    completed_milestones, released_amount,
		    created_at, updated_at, accepted_at, completed_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.Shipper,
		c.Carrier,
		c.Recipient,
		c.Payment,
		contract.StatusLabel(c.Status),
		c.CompletedMilestones,
		c.ReleasedAmount,
		toMillis(c.CreatedAt),
		toMillis(c.UpdatedAt),
		toNullMillis(c.AcceptedAt),
		toNullMillis(c.CompletedAt),
	); err != nil {
		if isConstraintError(err) {
			return event.Event{}, fmt.Errorf("contract %d already exists: %w", c.ID, err)
		}
		return event.Event{}, fmt.Errorf("insert contract: %w", err)
	}

	for _, m := range c.Milestones {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO milestones (
			    contract_id, milestone_index, location, verifier,
			    commitment_hash, completed, completed_at, released_amount
			 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID,
			m.Index,
			m.Location,
			m.Verifier,
			m.CommitmentHash,
			boolToInt(m.Completed),
			toNullMillis(m.CompletedAt),
			m.ReleasedAmount,
		); err != nil {
			return event.Event{}, fmt.Errorf("insert milestone %d: %w", m.Index, err)
		}
	}

	stored, err := s.appendEventTx(ctx, tx, evt)
	if err != nil {
		return event.Event{}, err
	}

	if fund != nil {
		if err := fund(ctx); err != nil {
			return event.Event{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return event.Event{}, fmt.Errorf("commit: %w", err)
	}

	return stored, nil
}

// TransitionContractStatus persists an updated contract status together with
// the event that records the transition.
func (s *Store) TransitionContractStatus(ctx context.Context, c contract.Contract, evt event.Event) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	if s == nil || s.sqlDB == nil {
		return event.Event{}, fmt.Errorf("storage is not configured")
	}
	if c.ID <= 0 {
		return event.Event{}, fmt.Errorf("contract id must be positive")
	}
	if evt.ContractID != c.ID {
		return event.Event{}, fmt.Errorf("event contract id mismatch")
	}

	from, ok := transitionFromStatus(c.Status)
	if !ok {
		return event.Event{}, fmt.Errorf("contract status %s is not a transition target", contract.StatusLabel(c.Status))
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return event.Event{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := s.updateContractTx(ctx, tx, c, from); err != nil {
		return event.Event{}, err
	}

	stored, err := s.appendEventTx(ctx, tx, evt)
	if err != nil {
		return event.Event{}, err
	}

	if err := tx.Commit(); err != nil {
		return event.Event{}, fmt.Errorf("commit: %w", err)
	}

	return stored, nil
}

// transitionFromStatus returns the only status that may precede to in the
// linear contract lifecycle.
func transitionFromStatus(to contract.Status) (contract.Status, bool) {
	switch to {
	case contract.StatusActive:
		return contract.StatusCreated, true
	case contract.StatusCompleted:
		return contract.StatusActive, true
	default:
		return contract.StatusUnspecified, false
	}
}

// CompleteMilestone persists a verified milestone, the contract counters it
// advances, and the journal events recording the verification and payout.
//
// The transfer callback runs last inside the transaction, so a payout
// failure rolls back milestone completion and the journal entries together.
func (s *Store) CompleteMilestone(ctx context.Context, c contract.Contract, index int, events []event.Event, transfer func(context.Context) error) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if c.ID <= 0 {
		return nil, fmt.Errorf("contract id must be positive")
	}
	if index < 0 || index >= len(c.Milestones) {
		return nil, fmt.Errorf("milestone index %d out of range", index)
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("milestone events are required")
	}
	for _, evt := range events {
		if evt.ContractID != c.ID {
			return nil, fmt.Errorf("event contract id mismatch")
		}
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	m := c.Milestones[index]
	result, err := tx.ExecContext(
		ctx,
		`UPDATE milestones
		 SET completed = ?, completed_at = ?, released_amount = ?
		 WHERE contract_id = ? AND milestone_index = ?`,
		boolToInt(m.Completed),
		toNullMillis(m.CompletedAt),
		m.ReleasedAmount,
		c.ID,
		m.Index,
	)
	if err != nil {
		return nil, fmt.Errorf("update milestone: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update milestone rows: %w", err)
	}
	if affected == 0 {
		return nil, storage.ErrNotFound
	}

	if err := s.updateContractTx(ctx, tx, c, contract.StatusActive); err != nil {
		return nil, err
	}

	stored := make([]event.Event, 0, len(events))
	for _, evt := range events {
		appended, err := s.appendEventTx(ctx, tx, evt)
		if err != nil {
			return nil, err
		}
		stored = append(stored, appended)
	}

	if transfer != nil {
		if err := transfer(ctx); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return stored, nil
}

// updateContractTx rewrites the mutable contract columns inside a
// transaction, guarded on the status the caller read. A zero-row update
// means the contract is missing or its status moved underneath the caller.
func (s *Store) updateContractTx(ctx context.Context, tx *sql.Tx, c contract.Contract, from contract.Status) error {
	result, err := tx.ExecContext(
		ctx,
		`UPDATE contracts
		 SET status = ?, completed_milestones = ?, released_amount = ?,
		     updated_at = ?, accepted_at = ?, completed_at = ?
		 WHERE id = ? AND status = ?`,
		contract.StatusLabel(c.Status),
		c.CompletedMilestones,
		c.ReleasedAmount,
		toMillis(c.UpdatedAt),
		toNullMillis(c.AcceptedAt),
		toNullMillis(c.CompletedAt),
		c.ID,
		contract.StatusLabel(from),
	)
	if err != nil {
		return fmt.Errorf("update contract: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update contract rows: %w", err)
	}
	if affected == 0 {
		var current string
		err := tx.QueryRowContext(ctx, "SELECT status FROM contracts WHERE id = ?", c.ID).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get contract status: %w", err)
		}
		return apperrors.WithMetadata(
			apperrors.CodeContractInvalidStatusTransition,
			fmt.Sprintf("contract status is %s, expected %s", current, contract.StatusLabel(from)),
			map[string]string{
				"ContractID": strconv.FormatInt(c.ID, 10),
				"Status":     current,
				"Expected":   contract.StatusLabel(from),
			},
		)
	}
	return nil
}

// GetContract loads one contract with all milestones.
func (s *Store) GetContract(ctx context.Context, contractID int64) (contract.Contract, error) {
	if err := ctx.Err(); err != nil {
		return contract.Contract{}, err
	}
	if s == nil || s.sqlDB == nil {
		return contract.Contract{}, fmt.Errorf("storage is not configured")
	}
	if contractID <= 0 {
		return contract.Contract{}, fmt.Errorf("contract id must be positive")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, shipper, carrier, recipient, payment, status,
		        completed_milestones, released_amount,
		        created_at, updated_at, accepted_at, completed_at
		 FROM contracts
		 WHERE id = ?`,
		contractID,
	)
	c, err := scanContract(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return contract.Contract{}, storage.ErrNotFound
		}
		return contract.Contract{}, fmt.Errorf("get contract: %w", err)
	}

	milestones, err := s.loadMilestones(ctx, contractID)
	if err != nil {
		return contract.Contract{}, err
	}
	c.Milestones = milestones

	return c, nil
}

// GetMilestone loads one milestone by contract id and index.
func (s *Store) GetMilestone(ctx context.Context, contractID int64, index int) (contract.Milestone, error) {
	if err := ctx.Err(); err != nil {
		return contract.Milestone{}, err
	}
	if s == nil || s.sqlDB == nil {
		return contract.Milestone{}, fmt.Errorf("storage is not configured")
	}
	if contractID <= 0 {
		return contract.Milestone{}, fmt.Errorf("contract id must be positive")
	}
	if index < 0 {
		return contract.Milestone{}, storage.ErrNotFound
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT milestone_index, location, verifier, commitment_hash,
		        completed, completed_at, released_amount
		 FROM milestones
		 WHERE contract_id = ? AND milestone_index = ?`,
		contractID,
		index,
	)
	m, err := scanMilestone(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return contract.Milestone{}, storage.ErrNotFound
		}
		return contract.Milestone{}, fmt.Errorf("get milestone: %w", err)
	}

	return m, nil
}

// ListContracts returns a page of contracts ordered by identifier.
//
// The page token is the last contract id of the previous page. Milestones
// are not loaded for listed contracts.
func (s *Store) ListContracts(ctx context.Context, party string, pageSize int, pageToken string) (storage.ContractPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.ContractPage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.ContractPage{}, fmt.Errorf("storage is not configured")
	}
	if pageSize <= 0 {
		return storage.ContractPage{}, fmt.Errorf("page size must be greater than zero")
	}

	afterID := int64(0)
	if pageToken != "" {
		parsed, err := strconv.ParseInt(pageToken, 10, 64)
		if err != nil || parsed < 0 {
			return storage.ContractPage{}, apperrors.New(apperrors.CodeRequestInvalid, "invalid page token")
		}
		afterID = parsed
	}

	query := `SELECT id, shipper, carrier, recipient, payment, status,
	                 completed_milestones, released_amount,
	                 created_at, updated_at, accepted_at, completed_at
	          FROM contracts
	          WHERE id > ?`
	args := []any{afterID}
	if party = strings.TrimSpace(party); party != "" {
		query += " AND (shipper = ? OR carrier = ? OR recipient = ?)"
		args = append(args, party, party, party)
	}
	query += " ORDER BY id LIMIT ?"
	args = append(args, pageSize+1)

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return storage.ContractPage{}, fmt.Errorf("list contracts: %w", err)
	}
	defer rows.Close()

	page := storage.ContractPage{Contracts: make([]contract.Contract, 0, pageSize)}
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return storage.ContractPage{}, fmt.Errorf("scan contract: %w", err)
		}
		if len(page.Contracts) >= pageSize {
			last := page.Contracts[pageSize-1]
			page.NextPageToken = strconv.FormatInt(last.ID, 10)
			break
		}
		page.Contracts = append(page.Contracts, c)
	}
	if err := rows.Err(); err != nil {
		return storage.ContractPage{}, fmt.Errorf("iterate contracts: %w", err)
	}

	return page, nil
}

// loadMilestones loads all milestones for a contract ordered by index.
func (s *Store) loadMilestones(ctx context.Context, contractID int64) ([]contract.Milestone, error) {
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT milestone_index, location, verifier, commitment_hash,
		        completed, completed_at, released_amount
		 FROM milestones
		 WHERE contract_id = ?
		 ORDER BY milestone_index`,
		contractID,
	)
	if err != nil {
		return nil, fmt.Errorf("list milestones: %w", err)
	}
	defer rows.Close()

	var milestones []contract.Milestone
	for rows.Next() {
		m, err := scanMilestone(rows)
		if err != nil {
			return nil, fmt.Errorf("scan milestone: %w", err)
		}
		milestones = append(milestones, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate milestones: %w", err)
	}

	return milestones, nil
}
