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

	"swile-balance-agent/internal/store"
)

func (s *Service) Get(ctx context.Context, slot string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, queryGetSlot, s.agent, slot).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read slot %s: %w", slot, err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

func (s *Service) Set(ctx context.Context, slot string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	if _, err := s.db.ExecContext(ctx, queryUpsertSlot, s.agent, slot, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to write slot %s: %w", slot, err)
	}
	return nil
}

// SlotUpdatedAt returns when slot was last written
func (s *Service) SlotUpdatedAt(ctx context.Context, slot string) (time.Time, error) {
	var updatedAt time.Time
	err := s.db.QueryRowContext(ctx, querySlotUpdatedAt, s.agent, slot).Scan(&updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, store.ErrSlotNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read slot %s timestamp: %w", slot, err)
	}
	return updatedAt, nil
}
