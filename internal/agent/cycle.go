/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"swile-balance-agent/internal/diff"
	"swile-balance-agent/internal/emitter"
	"swile-balance-agent/internal/metrics"
	"swile-balance-agent/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ANSI color helpers for console output.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

// CycleReport summarizes one run of the agent
type CycleReport struct {
	CycleId       string
	Shape         models.Shape
	StatusCode    int
	Records       int
	Changed       int
	Unchanged     int
	Emitted       int
	Baseline      bool
	LegacyPrior   bool
	SnapshotSaved bool
	Duration      time.Duration
}

// RunCycle authenticates, fetches the balance payload, emits events for what
// changed and persists the payload. Nothing is written to memory when
// authentication, the fetch or emission fails. A persist failure is returned
// after events were already emitted.
func (a *Agent) RunCycle(ctx context.Context) (*CycleReport, error) {
	start := time.Now()
	report := &CycleReport{CycleId: uuid.New().String()}
	ctx = models.WithCycleContext(ctx, &models.CycleContext{
		CycleId:   report.CycleId,
		Agent:     a.name,
		StartedAt: start.UTC(),
	})

	fmt.Printf("\n%s[%s] Checking Swile balances%s\n",
		colorCyan, start.Format("15:04:05"), colorReset)

	err := a.runCycle(ctx, report)
	report.Duration = time.Since(start)
	a.setState(StateIdle)

	outcome := classify(err)
	a.metrics.ObserveCycle(outcome, report.Duration)

	a.mutex.Lock()
	a.lastErr = err
	a.lastCycleAt = start
	if report.Emitted > 0 {
		a.lastEventAt = time.Now()
	}
	a.mutex.Unlock()

	if err != nil {
		fmt.Printf("  %s✗ %s: %s%s\n", colorRed, outcome, err, colorReset)
		zap.L().Error("Cycle failed",
			zap.String("cycle_id", report.CycleId),
			zap.String("outcome", outcome),
			zap.Duration("duration", report.Duration),
			zap.Error(err))
		return report, err
	}

	color, symbol := colorGreen, "✓"
	if report.Emitted == 0 {
		color, symbol = colorGray, "="
	} else if report.Baseline {
		color, symbol = colorYellow, "~"
	}
	fmt.Printf("  %s%s %d wallets | %d changed | %d events | saved=%t%s\n",
		color, symbol, report.Records, report.Changed, report.Emitted, report.SnapshotSaved, colorReset)

	zap.L().Info("Cycle completed",
		zap.String("cycle_id", report.CycleId),
		zap.String("shape", string(report.Shape)),
		zap.Int("wallets", report.Records),
		zap.Int("changed", report.Changed),
		zap.Int("unchanged", report.Unchanged),
		zap.Int("events", report.Emitted),
		zap.Bool("baseline", report.Baseline),
		zap.Bool("snapshot_saved", report.SnapshotSaved),
		zap.Duration("duration", report.Duration))

	return report, nil
}

func (a *Agent) runCycle(ctx context.Context, report *CycleReport) error {
	a.setState(StateAuthenticating)
	bearerToken, err := a.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to authenticate: %w", err)
	}

	a.setState(StateFetching)
	result, err := a.fetcher.Fetch(ctx, bearerToken)
	if err != nil {
		return fmt.Errorf("failed to fetch balances: %w", err)
	}
	report.StatusCode = result.StatusCode
	a.debugLog("Fetched payload",
		zap.Int("status", result.StatusCode),
		zap.ByteString("payload", result.Body))

	next, err := models.ParseSnapshot(result.Body)
	if err != nil {
		return fmt.Errorf("failed to read balances (status %d): %w", result.StatusCode, err)
	}
	if !result.Succeeded() {
		zap.L().Warn("Balance request returned a non-success status with a readable payload",
			zap.Int("status", result.StatusCode))
	}
	report.Shape = next.Shape
	report.Records = len(next.Records)
	if cc := models.GetCycleContext(ctx); cc != nil {
		cc.Shape = next.Shape
	}
	a.metrics.ObserveSnapshot(next)

	a.setState(StateDiffing)
	prior, err := a.snapshots.Load(ctx)
	if err != nil {
		return err
	}
	report.LegacyPrior = prior.Legacy
	a.debugLog("Loaded prior snapshot",
		zap.Bool("absent", prior.Absent()),
		zap.Bool("legacy", prior.Legacy),
		zap.ByteString("last_status", prior.Stored))

	outcome := a.diff(next, prior.Snapshot, a.snapshots.Changed(prior, next))
	report.Baseline = outcome.Baseline
	report.Changed = len(outcome.Changed)
	report.Unchanged = outcome.Unchanged

	a.setState(StateEmitting)
	emitted, err := emitter.Publish(ctx, a.emitter, outcome)
	report.Emitted = emitted
	a.metrics.AddEvents(eventKind(outcome), emitted)
	if err != nil {
		return err
	}

	// Events are out; a cycle deadline must not strand the snapshot behind them
	a.setState(StatePersisting)
	saved, err := a.snapshots.SaveIfChanged(context.WithoutCancel(ctx), prior, next)
	if err != nil {
		return fmt.Errorf("events were emitted but the snapshot was not persisted: %w", err)
	}
	report.SnapshotSaved = saved
	if saved {
		a.metrics.SnapshotWritten()
	}
	return nil
}

// diff compares next against prior. In changes-only mode a payload that
// serializes exactly like the stored one is not compared record by record.
func (a *Agent) diff(next, prior *models.Snapshot, serializationChanged bool) diff.Result {
	policy := a.policy
	if policy == "" {
		policy = diff.PolicyForShape(next.Shape)
	}
	engine := diff.NewEngine(a.mode, policy, a.debug)

	if a.mode == diff.ModeChangesOnly && prior != nil && !serializationChanged {
		a.debugLog("No diff", zap.Int("wallets", len(next.Records)))
		return diff.Result{Mode: diff.ModeChangesOnly, Unchanged: len(next.Records)}
	}
	return engine.Diff(next, prior)
}

func (a *Agent) debugLog(msg string, fields ...zap.Field) {
	if a.debug {
		zap.L().Info(msg, fields...)
		return
	}
	zap.L().Debug(msg, fields...)
}

func eventKind(result diff.Result) models.EventKind {
	if result.Mode == diff.ModeAlways {
		return models.EventKindPayload
	}
	return models.EventKindWallet
}

// classify maps a cycle error to its metrics outcome
func classify(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, models.ErrAuth):
		return metrics.OutcomeAuth
	case errors.Is(err, models.ErrTransport):
		return metrics.OutcomeTransport
	case errors.Is(err, models.ErrParse):
		return metrics.OutcomeParse
	default:
		return metrics.OutcomeFailed
	}
}
