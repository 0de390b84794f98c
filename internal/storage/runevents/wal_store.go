// Package runevents persists snapshot and decision events in a WAL so the
// dashboard can stream them live and replay them after a restart. The WAL
// duplicates ledger data for observability; it is never the source of truth.
package runevents

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/aitrader/arena/internal/domain"
)

const (
	defaultEventsDir      = "./wal/runevents"
	eventSegmentThreshold = 1000
	eventMaxSegments      = 100

	snapshotKeyPrefix = "snapshot_"
	decisionKeyPrefix = "decision_"
)

// WALStore is an append-only event stream shared by all agents of a run.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore initializes a WAL-backed event store under the provided
// directory.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = defaultEventsDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "events_",
		SegmentThreshold: eventSegmentThreshold,
		MaxSegments:      eventMaxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init run events WAL")
	}

	return &WALStore{wal: wal}, nil
}

// SaveSnapshot appends a snapshot event to the stream.
func (s *WALStore) SaveSnapshot(event domain.SnapshotEvent) error {
	if s == nil || s.wal == nil {
		return errors.New("run events store is not initialized")
	}
	if event.Agent == "" {
		return fmt.Errorf("snapshot event agent is required")
	}
	return s.append(snapshotKeyPrefix+event.Agent, event)
}

// SaveDecision appends a decision event to the stream.
func (s *WALStore) SaveDecision(event domain.DecisionEvent) error {
	if s == nil || s.wal == nil {
		return errors.New("run events store is not initialized")
	}
	if event.Agent == "" {
		return fmt.Errorf("decision event agent is required")
	}
	return s.append(decisionKeyPrefix+event.Agent, event)
}

func (s *WALStore) append(key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal run event")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	return s.wal.Write(nextIndex, key, payload)
}

// SnapshotsAfter returns all snapshot events written after the WAL index.
func (s *WALStore) SnapshotsAfter(index uint64) ([]domain.SnapshotEventRecord, error) {
	var records []domain.SnapshotEventRecord
	err := s.scan(index, snapshotKeyPrefix, func(idx uint64, payload []byte) error {
		var event domain.SnapshotEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return errors.Wrap(err, "decode snapshot event")
		}
		records = append(records, domain.SnapshotEventRecord{Index: idx, Event: event})
		return nil
	})
	return records, err
}

// DecisionsAfter returns all decision events written after the WAL index.
func (s *WALStore) DecisionsAfter(index uint64) ([]domain.DecisionEventRecord, error) {
	var records []domain.DecisionEventRecord
	err := s.scan(index, decisionKeyPrefix, func(idx uint64, payload []byte) error {
		var event domain.DecisionEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return errors.Wrap(err, "decode decision event")
		}
		records = append(records, domain.DecisionEventRecord{Index: idx, Event: event})
		return nil
	})
	return records, err
}

func (s *WALStore) scan(index uint64, prefix string, fn func(idx uint64, payload []byte) error) error {
	if s == nil || s.wal == nil {
		return errors.New("run events store is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	for idx := index + 1; idx <= current; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil || !strings.HasPrefix(key, prefix) {
			continue
		}
		if err := fn(idx, payload); err != nil {
			return err
		}
	}
	return nil
}

// CurrentIndex returns the latest WAL index stored.
func (s *WALStore) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("run events store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
