// Package runner drives one agent through its trading session: one decision
// per trading day, committed to the position ledger exactly once.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/aitrader/arena/config"
	"github.com/aitrader/arena/internal/clients"
	"github.com/aitrader/arena/internal/domain"
	"github.com/aitrader/arena/internal/services/calendar"
	"github.com/aitrader/arena/internal/services/indicators"
	"github.com/aitrader/arena/internal/services/promptbuilder"
	"github.com/aitrader/arena/internal/services/validator"
	"github.com/aitrader/arena/internal/storage/ledger"
	"github.com/aitrader/arena/internal/storage/runevents"
	"github.com/aitrader/arena/internal/storage/tracelog"
	"github.com/aitrader/arena/pkg/retrier"
)

// closeHistoryWindow bounds the close history fed to the indicators. 40
// trading days comfortably covers the 21-point minimum the signal set needs.
const closeHistoryWindow = 40

// recentActionsWindow is how many past decisions the prompt shows the model.
const recentActionsWindow = 5

// EventSink receives committed snapshots and decision outcomes for
// observability. Implemented by the run events WAL store.
type EventSink interface {
	SaveSnapshot(event domain.SnapshotEvent) error
	SaveDecision(event domain.DecisionEvent) error
}

var _ EventSink = (*runevents.WALStore)(nil)

// SessionRunner owns one agent's session. It is not safe for concurrent use;
// run each agent's runner in its own goroutine.
type SessionRunner struct {
	agent     config.AgentConfig
	initDate  time.Time
	endDate   time.Time
	cash      decimal.Decimal
	calendar  *calendar.PriceCalendar
	validator *validator.Validator
	ledger    *ledger.PositionLedger
	trace     *tracelog.TraceLog
	events    EventSink
	client    clients.DecisionClient
	prompts   *promptbuilder.PromptBuilder
	retry     *retrier.Retrier
	logger    *zap.Logger

	recentActions []string
}

// New wires a session runner for one agent. The events sink may be nil when
// the dashboard is disabled.
func New(
	cfg *config.Config,
	agent config.AgentConfig,
	cal *calendar.PriceCalendar,
	led *ledger.PositionLedger,
	trace *tracelog.TraceLog,
	events EventSink,
	client clients.DecisionClient,
	logger *zap.Logger,
) *SessionRunner {
	return &SessionRunner{
		agent:     agent,
		initDate:  cfg.InitDate,
		endDate:   cfg.EndDate,
		cash:      cfg.InitialCash,
		calendar:  cal,
		validator: validator.New(agent.Risk),
		ledger:    led,
		trace:     trace,
		events:    events,
		client:    client,
		prompts:   promptbuilder.New(promptbuilder.PresetFor(agent.Strategy), agent.Risk),
		retry: retrier.New(
			retrier.WithBaseDelay(cfg.BaseDelay),
			retrier.WithMaxAttempts(cfg.MaxRetries),
		),
		logger: logger.With(zap.String("agent", agent.Identity)),
	}
}

// Run walks the configured date range day by day. Non-trading days are
// skipped; every trading day ends with exactly one ledger append. Days the
// ledger already covers are skipped so an interrupted run resumes cleanly.
//
// A decision failure never stops the session: the day is committed as a hold
// and the run continues. Only ledger integrity errors abort the agent.
func (r *SessionRunner) Run(ctx context.Context) error {
	if err := r.seedIfEmpty(); err != nil {
		return err
	}
	if err := r.restoreRecentActions(); err != nil {
		return err
	}

	end := r.endDate
	if latest := r.calendar.LatestTradableDate(); latest.Before(end) {
		end = latest
	}

	// the funding snapshot is dated initDate; decisions start the day after
	for date := r.initDate.AddDate(0, 0, 1); !date.After(end); date = date.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !r.calendar.IsTradingDay(date) {
			continue
		}

		latest, err := r.ledger.Latest()
		if err != nil {
			return errors.Wrap(err, "read ledger tail")
		}
		if !latest.Date.Before(date) {
			// already committed by a previous run
			continue
		}

		if err := r.runDay(ctx, date, latest); err != nil {
			r.logger.Error("trading day aborted", zap.String("date", date.Format(domain.DateLayout)), zap.Error(err))
			r.emitDecision(date, domain.DayAborted, nil, domain.Hold(), err.Error())
			return err
		}
	}

	r.logger.Info("session finished", zap.String("end", end.Format(domain.DateLayout)))
	return nil
}

func (r *SessionRunner) seedIfEmpty() error {
	if _, err := r.ledger.Latest(); err == nil {
		return nil
	} else if !errors.Is(err, ledger.ErrEmptyLedger) {
		return err
	}

	snapshot, err := r.ledger.Seed(r.initDate, r.cash)
	if err != nil {
		return errors.Wrap(err, "seed ledger")
	}
	r.logger.Info("ledger seeded",
		zap.String("date", snapshot.Date.Format(domain.DateLayout)),
		zap.String("cash", snapshot.Cash.String()))
	r.emitSnapshot(snapshot)
	return nil
}

func (r *SessionRunner) restoreRecentActions() error {
	snapshots, err := r.ledger.Snapshots()
	if err != nil {
		return errors.Wrap(err, "replay ledger for recent actions")
	}
	for _, s := range snapshots {
		if s.SequenceID == 1 {
			continue
		}
		r.rememberAction(s)
	}
	return nil
}

// runDay produces and commits exactly one snapshot for the trading day.
func (r *SessionRunner) runDay(ctx context.Context, date time.Time, snapshot domain.PortfolioSnapshot) error {
	sessionID := uuid.NewString()
	day := date.Format(domain.DateLayout)

	tradingCtx, err := r.buildContext(date, snapshot)
	if err != nil {
		return errors.Wrap(err, "build trading context")
	}
	if len(tradingCtx.TodayOpen) == 0 {
		return errors.Errorf("no open prices on trading day %s", day)
	}

	systemPrompt := r.prompts.BuildSystemPrompt(tradingCtx)
	userPrompt := r.prompts.BuildUserPrompt(tradingCtx)
	r.trace.Prompt(date, sessionID, "system", systemPrompt)
	r.trace.Prompt(date, sessionID, "user", userPrompt)

	raw, err := retrier.DoWithData(r.retry, ctx, func(ctx context.Context) (string, error) {
		return r.client.ProposeAction(ctx, systemPrompt, userPrompt)
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.logger.Warn("decision call failed after retries", zap.String("date", day), zap.Error(err))
		r.trace.Error(date, sessionID, err.Error())
		return r.commitHold(date, sessionID, snapshot, nil, domain.DayHeldTransientFailure, err.Error())
	}
	r.trace.Response(date, sessionID, raw)

	decision, err := domain.NewDecision(raw)
	if err != nil {
		r.logger.Warn("unparseable decision", zap.String("date", day), zap.Error(err))
		r.trace.Error(date, sessionID, err.Error())
		return r.commitHold(date, sessionID, snapshot, nil, domain.DayHeldRejected, "unparseable decision: "+err.Error())
	}
	r.trace.Decision(date, sessionID, decision)

	action := decision.ToTradeAction()
	if !action.IsHold() && decision.Confidence < r.agent.Risk.ConfidenceThreshold {
		reason := fmt.Sprintf("confidence %.2f below threshold %.2f",
			decision.Confidence, r.agent.Risk.ConfidenceThreshold)
		r.logger.Info("decision downgraded to hold", zap.String("date", day), zap.String("reason", reason))
		return r.commitHold(date, sessionID, snapshot, decision, domain.DayHeldRejected, reason)
	}

	if action.IsHold() {
		next := r.validator.Hold(snapshot, date)
		return r.commit(date, sessionID, next, decision, domain.DayCommitted, "")
	}

	execPrice, ok := tradingCtx.TodayOpen[action.Symbol]
	if !ok {
		reason := "no open price for " + action.Symbol
		return r.commitHold(date, sessionID, snapshot, decision, domain.DayHeldRejected, reason)
	}

	next, err := r.validator.Apply(snapshot, action, date, execPrice, func(symbol string) (decimal.Decimal, bool) {
		price, ok := tradingCtx.TodayOpen[symbol]
		return price, ok
	})
	if err != nil {
		r.logger.Info("decision rejected",
			zap.String("date", day),
			zap.String("action", action.Action.String()),
			zap.String("symbol", action.Symbol),
			zap.Int64("amount", action.Amount),
			zap.Error(err))
		return r.commitHold(date, sessionID, snapshot, decision, domain.DayHeldRejected, err.Error())
	}

	return r.commit(date, sessionID, next, decision, domain.DayCommitted, "")
}

// buildContext assembles everything the model may see for the day, using the
// day itself as the temporal bound on every price lookup.
func (r *SessionRunner) buildContext(date time.Time, snapshot domain.PortfolioSnapshot) (promptbuilder.TradingContext, error) {
	todayOpen, err := r.calendar.PricesOn(date, date, domain.PriceOpen)
	if err != nil {
		return promptbuilder.TradingContext{}, err
	}

	tradingCtx := promptbuilder.TradingContext{
		Agent:         r.agent.Identity,
		Date:          date,
		Snapshot:      snapshot,
		TodayOpen:     todayOpen,
		RecentActions: append([]string(nil), r.recentActions...),
	}

	if yesterday, ok := r.calendar.PrevTradingDay(date); ok {
		if tradingCtx.YesterdayOpen, err = r.calendar.PricesOn(yesterday, date, domain.PriceOpen); err != nil {
			return promptbuilder.TradingContext{}, err
		}
		if tradingCtx.YesterdayClose, err = r.calendar.PricesOn(yesterday, date, domain.PriceClose); err != nil {
			return promptbuilder.TradingContext{}, err
		}
	}

	signals := make(map[string]indicators.DailySignals)
	for symbol := range todayOpen {
		closes := r.calendar.CloseHistory(symbol, date, closeHistoryWindow)
		latest, err := indicators.Latest(closes)
		if err != nil {
			// short history is normal at the start of a dataset
			continue
		}
		signals[symbol] = *latest
	}
	if len(signals) > 0 {
		tradingCtx.Signals = signals
	}

	return tradingCtx, nil
}

// commitHold commits the day as a hold. It is the fallback for every
// rejection and transient failure, keeping the one-snapshot-per-day chain
// unbroken.
func (r *SessionRunner) commitHold(date time.Time, sessionID string, snapshot domain.PortfolioSnapshot, decision *domain.Decision, status domain.DayStatus, detail string) error {
	next := r.validator.Hold(snapshot, date)
	return r.commit(date, sessionID, next, decision, status, detail)
}

func (r *SessionRunner) commit(date time.Time, sessionID string, next domain.PortfolioSnapshot, decision *domain.Decision, status domain.DayStatus, detail string) error {
	if err := r.ledger.Append(next); err != nil {
		return errors.Wrap(err, "commit snapshot")
	}
	r.rememberAction(next)

	r.trace.Status(date, sessionID, status, detail)

	action := domain.Hold()
	if next.LastAction != nil {
		action = *next.LastAction
	}
	r.logger.Info("day committed",
		zap.String("date", date.Format(domain.DateLayout)),
		zap.Int64("sequence_id", next.SequenceID),
		zap.String("status", string(status)),
		zap.String("action", action.Action.String()),
		zap.String("cash", next.Cash.String()))

	r.emitSnapshot(next)
	r.emitDecision(date, status, decision, action, detail)
	return nil
}

func (r *SessionRunner) rememberAction(snapshot domain.PortfolioSnapshot) {
	action := domain.Hold()
	if snapshot.LastAction != nil {
		action = *snapshot.LastAction
	}
	line := snapshot.Date.Format(domain.DateLayout) + ": " + action.Action.String()
	if !action.IsHold() {
		line += " " + action.Symbol + " x" + decimal.NewFromInt(action.Amount).String()
	}
	r.recentActions = append(r.recentActions, line)
	if len(r.recentActions) > recentActionsWindow {
		r.recentActions = r.recentActions[len(r.recentActions)-recentActionsWindow:]
	}
}

func (r *SessionRunner) emitSnapshot(snapshot domain.PortfolioSnapshot) {
	if r.events == nil {
		return
	}
	event := domain.SnapshotEvent{
		Agent:      r.agent.Identity,
		Date:       snapshot.Date.Format(domain.DateLayout),
		SequenceID: snapshot.SequenceID,
		Cash:       snapshot.Cash,
		Holdings:   snapshot.Holdings,
		Time:       time.Now().UTC(),
	}
	if snapshot.LastAction != nil {
		event.Action = snapshot.LastAction.Action.String()
		event.Symbol = snapshot.LastAction.Symbol
		event.Amount = snapshot.LastAction.Amount
	}
	if err := r.events.SaveSnapshot(event); err != nil {
		r.logger.Warn("failed to emit snapshot event", zap.Error(err))
	}
}

func (r *SessionRunner) emitDecision(date time.Time, status domain.DayStatus, decision *domain.Decision, action domain.TradeAction, detail string) {
	if r.events == nil {
		return
	}
	event := domain.DecisionEvent{
		Agent:  r.agent.Identity,
		Date:   date.Format(domain.DateLayout),
		Status: status,
		Action: action.Action.String(),
		Symbol: action.Symbol,
		Amount: action.Amount,
		Error:  detail,
		Time:   time.Now().UTC(),
	}
	if decision != nil {
		event.Confidence = decision.Confidence
		event.Reasoning = decision.Reasoning
	}
	if err := r.events.SaveDecision(event); err != nil {
		r.logger.Warn("failed to emit decision event", zap.Error(err))
	}
}
