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
	"sync"
	"time"

	"swile-balance-agent/internal/diff"
	"swile-balance-agent/internal/emitter"
	"swile-balance-agent/internal/metrics"
	"swile-balance-agent/internal/snapshot"
	"swile-balance-agent/internal/swile"
	"swile-balance-agent/internal/token"

	"github.com/robfig/cron/v3"
)

// Fetcher performs the one balance request of a cycle
type Fetcher interface {
	Fetch(ctx context.Context, bearerToken string) (*swile.FetchResult, error)
}

// EventTimes reports when the newest event was emitted
type EventTimes interface {
	MostRecentEventTime(ctx context.Context) (time.Time, error)
}

// State is the position of the agent in the cycle state machine
type State int

const (
	StateIdle State = iota
	StateAuthenticating
	StateFetching
	StateDiffing
	StateEmitting
	StatePersisting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAuthenticating:
		return "authenticating"
	case StateFetching:
		return "fetching"
	case StateDiffing:
		return "diffing"
	case StateEmitting:
		return "emitting"
	case StatePersisting:
		return "persisting"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Config contains the collaborators and options of an Agent
type Config struct {
	Name      string
	Tokens    token.Provider
	Fetcher   Fetcher
	Snapshots *snapshot.Store
	Emitter   emitter.Emitter
	Events    EventTimes
	Metrics   *metrics.Recorder

	Mode diff.Mode
	// Policy forces an equality policy; empty selects one from the payload shape
	Policy diff.Policy
	Debug  bool

	ExpectedReceivePeriod time.Duration
	Schedule              string
	CycleTimeout          time.Duration
}

// Agent polls Swile balances and emits an event for every wallet that changed
type Agent struct {
	name      string
	tokens    token.Provider
	fetcher   Fetcher
	snapshots *snapshot.Store
	emitter   emitter.Emitter
	events    EventTimes
	metrics   *metrics.Recorder

	mode   diff.Mode
	policy diff.Policy
	debug  bool

	expectedReceivePeriod time.Duration
	schedule              string
	cycleTimeout          time.Duration

	// State of the last and current cycle
	mutex       sync.RWMutex
	state       State
	lastErr     error
	lastCycleAt time.Time
	lastEventAt time.Time

	cron    *cron.Cron
	running sync.WaitGroup
}

// NewAgent creates a new agent
func NewAgent(cfg Config) *Agent {
	mode := cfg.Mode
	if mode == "" {
		mode = diff.ModeChangesOnly
	}
	period := cfg.ExpectedReceivePeriod
	if period <= 0 {
		period = 48 * time.Hour
	}
	schedule := cfg.Schedule
	if schedule == "" {
		schedule = "@every 1h"
	}
	cycleTimeout := cfg.CycleTimeout
	if cycleTimeout <= 0 {
		cycleTimeout = 2 * time.Minute
	}

	return &Agent{
		name:                  cfg.Name,
		tokens:                cfg.Tokens,
		fetcher:               cfg.Fetcher,
		snapshots:             cfg.Snapshots,
		emitter:               cfg.Emitter,
		events:                cfg.Events,
		metrics:               cfg.Metrics,
		mode:                  mode,
		policy:                cfg.Policy,
		debug:                 cfg.Debug,
		expectedReceivePeriod: period,
		schedule:              schedule,
		cycleTimeout:          cycleTimeout,
		state:                 StateIdle,
	}
}

// State returns the current cycle state
func (a *Agent) State() State {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	return a.state
}

func (a *Agent) setState(s State) {
	a.mutex.Lock()
	a.state = s
	a.mutex.Unlock()
}
