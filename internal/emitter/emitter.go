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

package emitter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"swile-balance-agent/internal/diff"
	"swile-balance-agent/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Emitter publishes one event. Implementations must not deduplicate.
type Emitter interface {
	Emit(ctx context.Context, event *models.Event) error
}

// Appender is the append side of an event log
type Appender interface {
	AppendEvent(ctx context.Context, event *models.Event) error
}

// EventLog persists events in an append-only log
type EventLog struct {
	appender Appender
}

func NewEventLog(appender Appender) *EventLog {
	return &EventLog{appender: appender}
}

func (e *EventLog) Emit(ctx context.Context, event *models.Event) error {
	return e.appender.AppendEvent(ctx, event)
}

// LogEmitter writes events to the structured log
type LogEmitter struct{}

func (LogEmitter) Emit(_ context.Context, event *models.Event) error {
	zap.L().Info("Event created",
		zap.String("event_id", event.Id),
		zap.String("kind", string(event.Kind)),
		zap.String("wallet_id", event.WalletId),
		zap.ByteString("payload", event.Payload))
	return nil
}

// Multi fans an event out to every emitter in order and stops at the first failure
type Multi []Emitter

func (m Multi) Emit(ctx context.Context, event *models.Event) error {
	for _, e := range m {
		if err := e.Emit(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// Publish emits the events a diff result calls for: one per changed record in
// fetch order, or a single payload event in always mode. It returns how many
// events were emitted before any failure.
func Publish(ctx context.Context, e Emitter, result diff.Result) (int, error) {
	if result.Mode == diff.ModeAlways {
		if result.Whole == nil {
			return 0, errors.New("always mode result has no payload")
		}
		event := newEvent(ctx, models.EventKindPayload, "", result.Whole.Raw)
		if err := e.Emit(ctx, event); err != nil {
			return 0, fmt.Errorf("failed to emit payload event: %w", err)
		}
		return 1, nil
	}

	emitted := 0
	for _, record := range result.Changed {
		event := newEvent(ctx, models.EventKindWallet, record.Id, record.Raw())
		if err := e.Emit(ctx, event); err != nil {
			return emitted, fmt.Errorf("failed to emit event for wallet %s: %w", record.Id, err)
		}
		emitted++
	}
	return emitted, nil
}

func newEvent(ctx context.Context, kind models.EventKind, walletId string, payload []byte) *models.Event {
	event := &models.Event{
		Id:        uuid.New().String(),
		Kind:      kind,
		WalletId:  walletId,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
	if cc := models.GetCycleContext(ctx); cc != nil {
		event.CycleId = cc.CycleId
		event.Agent = cc.Agent
	}
	return event
}
