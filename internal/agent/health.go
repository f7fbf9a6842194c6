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
)

var (
	ErrNoRecentEvent = errors.New("no event emitted within the expected receive period")
	ErrLastCycle     = errors.New("last cycle failed")
)

// Working reports nil when an event was emitted within the expected receive
// period and the last cycle did not fail.
func (a *Agent) Working(ctx context.Context, now time.Time) error {
	a.mutex.RLock()
	lastErr := a.lastErr
	lastEventAt := a.lastEventAt
	a.mutex.RUnlock()

	if lastErr != nil {
		return fmt.Errorf("%w: %v", ErrLastCycle, lastErr)
	}

	if a.events != nil {
		stored, err := a.events.MostRecentEventTime(ctx)
		if err != nil {
			return fmt.Errorf("failed to read most recent event time: %w", err)
		}
		if stored.After(lastEventAt) {
			lastEventAt = stored
		}
	}

	if lastEventAt.IsZero() {
		return ErrNoRecentEvent
	}
	if now.Sub(lastEventAt) > a.expectedReceivePeriod {
		return fmt.Errorf("%w: last event at %s", ErrNoRecentEvent, lastEventAt.UTC().Format(time.RFC3339))
	}
	return nil
}
