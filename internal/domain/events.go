package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DayStatus classifies how a trading day ended for an agent. It is written
// to the trace log and streamed to the dashboard for post-hoc auditing.
type DayStatus string

const (
	// DayCommitted means the proposed action was accepted and applied.
	DayCommitted DayStatus = "committed"
	// DayHeldRejected means the validator rejected the action and the day
	// was committed as a hold instead.
	DayHeldRejected DayStatus = "held_rejected"
	// DayHeldTransientFailure means the decision call failed after all
	// retries and the day was committed as a hold.
	DayHeldTransientFailure DayStatus = "held_transient_failure"
	// DayAborted means an invariant violation stopped the agent's session.
	DayAborted DayStatus = "aborted"
)

// SnapshotEvent mirrors one committed ledger snapshot for streaming to the
// dashboard. It duplicates ledger data and is never read back as state.
type SnapshotEvent struct {
	Agent      string           `json:"agent"`
	Date       string           `json:"date"`
	SequenceID int64            `json:"sequence_id"`
	Cash       decimal.Decimal  `json:"cash"`
	Holdings   map[string]int64 `json:"holdings"`
	Action     string           `json:"action"`
	Symbol     string           `json:"symbol,omitempty"`
	Amount     int64            `json:"amount,omitempty"`
	Time       time.Time        `json:"time"`
}

// SnapshotEventRecord bundles a snapshot event with its WAL index.
type SnapshotEventRecord struct {
	Index uint64
	Event SnapshotEvent
}

// DecisionEvent captures the outcome of one agent-day decision for the
// dashboard stream.
type DecisionEvent struct {
	Agent      string    `json:"agent"`
	Date       string    `json:"date"`
	Status     DayStatus `json:"status"`
	Action     string    `json:"action"`
	Symbol     string    `json:"symbol,omitempty"`
	Amount     int64     `json:"amount,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	Reasoning  string    `json:"reasoning,omitempty"`
	Error      string    `json:"error,omitempty"`
	Time       time.Time `json:"time"`
}

// DecisionEventRecord bundles a decision event with its WAL index.
type DecisionEventRecord struct {
	Index uint64
	Event DecisionEvent
}
