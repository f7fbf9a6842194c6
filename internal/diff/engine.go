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

package diff

import (
	"swile-balance-agent/internal/models"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Result is the outcome of comparing a fresh snapshot with the prior one
type Result struct {
	Mode Mode
	// Changed holds new or changed records in the order they were fetched
	Changed []models.WalletRecord
	// Unchanged counts records that matched a prior record
	Unchanged int
	// Whole is the full payload, set only in always mode
	Whole *models.Snapshot
	// Baseline is true when there was no prior snapshot to compare against
	Baseline bool
}

// Engine decides which records need an event
type Engine struct {
	Mode   Mode
	Policy Policy
	Debug  bool
}

func NewEngine(mode Mode, policy Policy, debug bool) *Engine {
	return &Engine{Mode: mode, Policy: policy, Debug: debug}
}

// Diff compares next against prior. A nil prior means no baseline exists and
// every record is reported as changed.
func (e *Engine) Diff(next, prior *models.Snapshot) Result {
	if e.Mode == ModeAlways {
		return Result{Mode: ModeAlways, Whole: next, Baseline: prior == nil}
	}

	result := Result{Mode: ModeChangesOnly, Baseline: prior == nil}
	if prior == nil {
		result.Changed = append(result.Changed, next.Records...)
		return result
	}

	for _, record := range next.Records {
		found := false
		for _, previous := range prior.Records {
			if e.Policy.Equal(record, previous) {
				found = true
				break
			}
		}

		e.debugLog("Wallet match checked",
			zap.String("wallet_id", record.Id),
			zap.String("policy", string(e.Policy)),
			zap.Bool("found", found))

		if found {
			result.Unchanged++
			continue
		}
		result.Changed = append(result.Changed, record)
	}

	return result
}

func (e *Engine) debugLog(msg string, fields ...zapcore.Field) {
	if e.Debug {
		zap.L().Info(msg, fields...)
		return
	}
	zap.L().Debug(msg, fields...)
}
