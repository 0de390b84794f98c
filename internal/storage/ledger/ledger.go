// Package ledger persists each agent's portfolio snapshots as an append-only
// JSONL file. The record layout is a stable interface consumed by external
// analysis tooling and must not change: one record per committed trading
// day, appended in commit order, never rewritten.
package ledger

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/aitrader/arena/internal/domain"
)

var (
	// ErrEmptyLedger is returned by Latest before the funding snapshot is
	// seeded. Hitting it during a run is a programmer error.
	ErrEmptyLedger = errors.New("ledger is empty")
	// ErrSequenceViolation is returned when an appended snapshot does not
	// continue the sequence by exactly one.
	ErrSequenceViolation = errors.New("snapshot sequence id violates monotonicity")
	// ErrAlreadySeeded is returned when Seed is called on a non-empty ledger.
	ErrAlreadySeeded = errors.New("ledger is already seeded")
)

const positionFileName = "position.jsonl"

type actionRecord struct {
	Action string `json:"action"`
	Symbol string `json:"symbol"`
	Amount int64  `json:"amount"`
}

// positionRecord is the on-disk JSONL layout.
type positionRecord struct {
	Date       string                 `json:"date"`
	ID         int64                  `json:"id"`
	ThisAction *actionRecord          `json:"this_action,omitempty"`
	Positions  map[string]json.Number `json:"positions"`
}

// PositionLedger is the append-only snapshot store of one agent. Append is
// the sole write path and is serialized; Latest is safe for concurrent
// readers.
type PositionLedger struct {
	mu     sync.RWMutex
	agent  string
	path   string
	file   *os.File
	latest *domain.PortfolioSnapshot
}

// Open creates or reopens the agent's ledger under dataDir. An existing
// file is replayed so the tail snapshot is recovered.
func Open(dataDir, agent string) (*PositionLedger, error) {
	dir := filepath.Join(dataDir, agent, "position")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create ledger dir")
	}
	path := filepath.Join(dir, positionFileName)

	l := &PositionLedger{agent: agent, path: path}
	if err := l.replay(); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "open ledger file")
	}
	l.file = file

	return l, nil
}

// Agent returns the owning agent identity.
func (l *PositionLedger) Agent() string {
	return l.agent
}

// Latest returns the most recently committed snapshot.
func (l *PositionLedger) Latest() (domain.PortfolioSnapshot, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.latest == nil {
		return domain.PortfolioSnapshot{}, errors.Wrapf(ErrEmptyLedger, "agent %s", l.agent)
	}
	return l.latest.Clone(), nil
}

// Seed writes the initial funding snapshot. It must be called exactly once,
// before any trading day is committed.
func (l *PositionLedger) Seed(date time.Time, cash decimal.Decimal) (domain.PortfolioSnapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.latest != nil {
		return domain.PortfolioSnapshot{}, errors.Wrapf(ErrAlreadySeeded, "agent %s", l.agent)
	}

	snapshot := domain.NewInitialSnapshot(date, cash)
	if err := l.write(snapshot); err != nil {
		return domain.PortfolioSnapshot{}, err
	}
	l.latest = &snapshot
	return snapshot.Clone(), nil
}

// Append commits the next snapshot after checking the chain invariants.
func (l *PositionLedger) Append(snapshot domain.PortfolioSnapshot) error {
	if err := snapshot.Validate(); err != nil {
		return errors.Wrapf(err, "agent %s", l.agent)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.latest == nil {
		return errors.Wrapf(ErrEmptyLedger, "agent %s: seed before appending", l.agent)
	}
	if snapshot.SequenceID != l.latest.SequenceID+1 {
		return errors.Wrapf(ErrSequenceViolation, "agent %s: got %d after %d",
			l.agent, snapshot.SequenceID, l.latest.SequenceID)
	}

	if err := l.write(snapshot); err != nil {
		return err
	}
	clone := snapshot.Clone()
	l.latest = &clone
	return nil
}

// Snapshots reads the whole ledger back, oldest first. Used by analysis
// tooling, not by the commit path.
func (l *PositionLedger) Snapshots() ([]domain.PortfolioSnapshot, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return readAll(l.path)
}

// Close flushes and closes the underlying file.
func (l *PositionLedger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *PositionLedger) write(snapshot domain.PortfolioSnapshot) error {
	record, err := toRecord(snapshot)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "marshal position record")
	}
	payload = append(payload, '\n')

	if l.file == nil {
		// Seed may run before Open finished wiring the handle in tests;
		// fall back to a one-shot append.
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return errors.Wrap(err, "open ledger file")
		}
		defer f.Close()
		if _, err := f.Write(payload); err != nil {
			return errors.Wrap(err, "append position record")
		}
		return f.Sync()
	}

	if _, err := l.file.Write(payload); err != nil {
		return errors.Wrap(err, "append position record")
	}
	return l.file.Sync()
}

func (l *PositionLedger) replay() error {
	snapshots, err := readAll(l.path)
	if err != nil {
		return err
	}
	if len(snapshots) == 0 {
		return nil
	}
	for i := 1; i < len(snapshots); i++ {
		if snapshots[i].SequenceID != snapshots[i-1].SequenceID+1 {
			return errors.Wrapf(ErrSequenceViolation, "agent %s: record %d has id %d after %d",
				l.agent, i, snapshots[i].SequenceID, snapshots[i-1].SequenceID)
		}
	}
	tail := snapshots[len(snapshots)-1]
	l.latest = &tail
	return nil
}

func readAll(path string) ([]domain.PortfolioSnapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "open ledger file")
	}
	defer f.Close()

	var snapshots []domain.PortfolioSnapshot
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var record positionRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			return nil, errors.Wrapf(err, "decode position record at line %d", line)
		}
		snapshot, err := fromRecord(record)
		if err != nil {
			return nil, errors.Wrapf(err, "position record at line %d", line)
		}
		snapshots = append(snapshots, snapshot)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read ledger file")
	}
	return snapshots, nil
}

func toRecord(snapshot domain.PortfolioSnapshot) (positionRecord, error) {
	positions := make(map[string]json.Number, len(snapshot.Holdings)+1)
	positions[domain.CashSymbol] = json.Number(snapshot.Cash.String())
	for sym, qty := range snapshot.Holdings {
		if sym == domain.CashSymbol {
			return positionRecord{}, errors.New("holdings must not contain the CASH key")
		}
		positions[sym] = json.Number(strconv.FormatInt(qty, 10))
	}

	record := positionRecord{
		Date:      snapshot.Date.Format(domain.DateLayout),
		ID:        snapshot.SequenceID,
		Positions: positions,
	}
	if snapshot.LastAction != nil {
		record.ThisAction = &actionRecord{
			Action: snapshot.LastAction.Action.String(),
			Symbol: snapshot.LastAction.Symbol,
			Amount: snapshot.LastAction.Amount,
		}
	}
	return record, nil
}

func fromRecord(record positionRecord) (domain.PortfolioSnapshot, error) {
	date, err := time.Parse(domain.DateLayout, record.Date)
	if err != nil {
		return domain.PortfolioSnapshot{}, errors.Wrapf(err, "invalid date %q", record.Date)
	}

	snapshot := domain.PortfolioSnapshot{
		Date:       date,
		SequenceID: record.ID,
		Holdings:   make(map[string]int64, len(record.Positions)),
	}
	for sym, value := range record.Positions {
		if sym == domain.CashSymbol {
			cash, err := decimal.NewFromString(value.String())
			if err != nil {
				return domain.PortfolioSnapshot{}, errors.Wrap(err, "invalid CASH value")
			}
			snapshot.Cash = cash
			continue
		}
		qty, err := strconv.ParseInt(value.String(), 10, 64)
		if err != nil {
			return domain.PortfolioSnapshot{}, errors.Wrapf(err, "invalid share count for %s", sym)
		}
		snapshot.Holdings[sym] = qty
	}

	if record.ThisAction != nil {
		action, ok := domain.ActionFromString(record.ThisAction.Action)
		if !ok {
			return domain.PortfolioSnapshot{}, errors.Errorf("unknown action %q", record.ThisAction.Action)
		}
		snapshot.LastAction = &domain.TradeAction{
			Action: action,
			Symbol: record.ThisAction.Symbol,
			Amount: record.ThisAction.Amount,
		}
	}

	return snapshot, nil
}
