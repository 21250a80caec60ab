package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/WuodOdhis/trackflow/internal/escrow/event"
	"github.com/WuodOdhis/trackflow/internal/escrow/ledger"
	"github.com/WuodOdhis/trackflow/internal/escrow/messaging"
	"github.com/WuodOdhis/trackflow/internal/escrow/metrics"
	"github.com/WuodOdhis/trackflow/internal/escrow/storage"
	"github.com/WuodOdhis/trackflow/internal/platform/timeouts"
)

// Operation labels recorded on engine metrics.
const (
	opCreateContract  = "create_contract"
	opAcceptContract  = "accept_contract"
	opVerifyMilestone = "verify_milestone"
)

const (
	defaultListContractsPageSize = 20
	maxListContractsPageSize     = 100
	defaultListEventsPageSize    = 50
	maxListEventsPageSize        = 200
)

// Config carries the Engine's dependencies.
type Config struct {
	// Store persists contracts and their journal entries. Required.
	Store storage.ContractStore
	// Events reads the contract event journal. Required.
	Events storage.EventStore
	// Ledger moves escrowed funds. Required.
	Ledger ledger.Ledger
	// Publisher broadcasts journal events after commit. Defaults to a no-op.
	Publisher messaging.Publisher
	// Metrics records operation counters. Optional.
	Metrics *metrics.Metrics
	// Clock supplies timestamps for contract state. Defaults to time.Now.
	Clock func() time.Time
}

// Engine coordinates contract mutations against storage and the ledger.
//
// Mutations are serialized by a single lock so the read-decide-write cycle
// of each operation observes the latest committed state.
type Engine struct {
	mu        sync.Mutex
	store     storage.ContractStore
	events    storage.EventStore
	ledger    ledger.Ledger
	publisher messaging.Publisher
	metrics   *metrics.Metrics
	clock     func() time.Time
}

// NewEngine validates the configuration and builds an Engine.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, errors.New("contract store is required")
	}
	if cfg.Events == nil {
		return nil, errors.New("event store is required")
	}
	if cfg.Ledger == nil {
		return nil, errors.New("ledger is required")
	}

	publisher := cfg.Publisher
	if publisher == nil {
		publisher = messaging.Noop{}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Engine{
		store:     cfg.Store,
		events:    cfg.Events,
		ledger:    cfg.Ledger,
		publisher: publisher,
		metrics:   cfg.Metrics,
		clock:     clock,
	}, nil
}

// observeOp records one operation outcome and its duration.
func (e *Engine) observeOp(operation string, start time.Time, err error) {
	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = metrics.OutcomeError
	}
	e.metrics.ObserveOperation(operation, outcome, time.Since(start).Seconds())
}

// publish broadcasts stored events, logging failures without surfacing them.
func (e *Engine) publish(ctx context.Context, events ...event.Event) {
	for _, evt := range events {
		pubCtx, cancel := context.WithTimeout(ctx, timeouts.EventPublish)
		err := e.publisher.Publish(pubCtx, evt)
		cancel()
		if err != nil {
			log.Printf(
				"event publish failed contract_id=%d seq=%d event_type=%s error=%v",
				evt.ContractID,
				evt.Seq,
				evt.Type,
				err,
			)
		}
	}
}
