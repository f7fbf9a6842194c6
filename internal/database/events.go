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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"swile-balance-agent/internal/models"

	"github.com/google/uuid"
)

// AppendEvent records an emitted event. Missing ids and timestamps are filled in.
func (s *Service) AppendEvent(ctx context.Context, event *models.Event) error {
	if event.Id == "" {
		event.Id = uuid.New().String()
	}
	if event.Agent == "" {
		event.Agent = s.agent
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, queryInsertEvent,
		event.Id, event.Agent, event.CycleId, string(event.Kind), event.WalletId, string(event.Payload), event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert event %s: %w", event.Id, err)
	}
	return nil
}

// RecentEvents returns up to limit events, newest first
func (s *Service) RecentEvents(ctx context.Context, limit int) ([]models.Event, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, queryRecentEvents, s.agent, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var (
			event   models.Event
			kind    string
			payload string
		)
		if err := rows.Scan(&event.Id, &event.Agent, &event.CycleId, &kind, &event.WalletId, &payload, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		event.Kind = models.EventKind(kind)
		event.Payload = []byte(payload)
		events = append(events, event)
	}

	return events, rows.Err()
}

// MostRecentEventTime returns the creation time of the newest event, or the
// zero time when nothing has been emitted yet.
func (s *Service) MostRecentEventTime(ctx context.Context) (time.Time, error) {
	var createdAt time.Time
	err := s.db.QueryRowContext(ctx, queryMostRecentEventTime, s.agent).Scan(&createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get most recent event time: %w", err)
	}
	return createdAt, nil
}
