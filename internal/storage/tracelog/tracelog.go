// Package tracelog records the full decision trace of each agent-day as an
// append-only JSONL file. The log is diagnostic: it is never read back to
// reconstruct ledger state.
package tracelog

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/aitrader/arena/internal/domain"
)

const logFileName = "log.jsonl"

// Record is one line of the trace: a prompt, a model response, the parsed
// decision, an error, or the final day status.
type Record struct {
	Role      string           `json:"role"`
	Content   string           `json:"content,omitempty"`
	Decision  *domain.Decision `json:"decision,omitempty"`
	Status    domain.DayStatus `json:"status,omitempty"`
	Error     string           `json:"error,omitempty"`
	SessionID string           `json:"session_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// TraceLog writes one log file per (agent, date) under the agent's data
// directory.
type TraceLog struct {
	dataDir string
	agent   string
}

// New creates a trace log rooted at dataDir for the agent.
func New(dataDir, agent string) *TraceLog {
	return &TraceLog{dataDir: dataDir, agent: agent}
}

// Append writes one record to the day's log file.
func (t *TraceLog) Append(date time.Time, record Record) error {
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	dir := filepath.Join(t.dataDir, t.agent, "log", date.Format(domain.DateLayout))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create trace log dir")
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "marshal trace record")
	}

	f, err := os.OpenFile(filepath.Join(dir, logFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Wrap(err, "open trace log file")
	}
	defer f.Close()

	if _, err := f.Write(append(payload, '\n')); err != nil {
		return errors.Wrap(err, "append trace record")
	}
	return nil
}

// Prompt records the prompt sent to the model.
func (t *TraceLog) Prompt(date time.Time, sessionID, role, content string) error {
	return t.Append(date, Record{Role: role, Content: content, SessionID: sessionID})
}

// Response records the model's raw response.
func (t *TraceLog) Response(date time.Time, sessionID, content string) error {
	return t.Append(date, Record{Role: "assistant", Content: content, SessionID: sessionID})
}

// Decision records the parsed final decision.
func (t *TraceLog) Decision(date time.Time, sessionID string, decision *domain.Decision) error {
	return t.Append(date, Record{Role: "decision", Decision: decision, SessionID: sessionID})
}

// Error records a failure that happened while producing the day's decision.
func (t *TraceLog) Error(date time.Time, sessionID, msg string) error {
	return t.Append(date, Record{Role: "error", Error: msg, SessionID: sessionID})
}

// Status records how the day ended; exactly one status record is written
// per trading day.
func (t *TraceLog) Status(date time.Time, sessionID string, status domain.DayStatus, detail string) error {
	return t.Append(date, Record{Role: "status", Status: status, Content: detail, SessionID: sessionID})
}

// Read returns all records of one day, oldest first. Used by tests and the
// audit tooling only.
func (t *TraceLog) Read(date time.Time) ([]Record, error) {
	path := filepath.Join(t.dataDir, t.agent, "log", date.Format(domain.DateLayout), logFileName)
	payload, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read trace log")
	}

	var records []Record
	decoder := json.NewDecoder(bytes.NewReader(payload))
	for decoder.More() {
		var record Record
		if err := decoder.Decode(&record); err != nil {
			return nil, errors.Wrap(err, "decode trace record")
		}
		records = append(records, record)
	}
	return records, nil
}
