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
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// cronLogger routes cron's own messages through zap
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	zap.L().Sugar().Debugw(msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	zap.L().Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}

// Start runs a first cycle immediately, then schedules further cycles. A
// cycle still running when the next one is due causes that one to be skipped.
func (a *Agent) Start(ctx context.Context) error {
	zap.L().Info("Starting balance agent",
		zap.String("agent", a.name),
		zap.String("schedule", a.schedule),
		zap.String("mode", string(a.mode)))

	logger := cronLogger{}
	a.cron = cron.New(cron.WithLogger(logger))

	// The immediate run shares the chain so it also counts as running
	job := cron.NewChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)).
		Then(cron.FuncJob(func() { a.scheduledCycle(ctx) }))

	if _, err := a.cron.AddJob(a.schedule, job); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", a.schedule, err)
	}

	a.running.Add(1)
	go func() {
		defer a.running.Done()
		job.Run()
	}()
	a.cron.Start()

	zap.L().Info("Balance agent started successfully")
	return nil
}

// Stop waits for a running cycle to finish and stops scheduling new ones
func (a *Agent) Stop() {
	if a.cron == nil {
		return
	}
	zap.L().Info("Stopping balance agent")
	<-a.cron.Stop().Done()
	a.running.Wait()
	zap.L().Info("Balance agent stopped")
}

func (a *Agent) scheduledCycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	cycleCtx, cancel := context.WithTimeout(ctx, a.cycleTimeout)
	defer cancel()

	// Errors are already logged by RunCycle
	_, _ = a.RunCycle(cycleCtx)
}
