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

package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"swile-balance-agent/internal/models"
	"swile-balance-agent/internal/store"

	"go.uber.org/zap"
)

// Prior is the last observed payload as loaded from memory
type Prior struct {
	// Snapshot is nil when nothing usable was stored
	Snapshot *models.Snapshot
	// Stored is the persisted value exactly as read, nil if the slot was never written
	Stored []byte
	// Legacy reports that Stored had to go through the legacy decoder
	Legacy bool
}

// Absent reports whether there is no prior baseline to diff against
func (p Prior) Absent() bool {
	return p.Snapshot == nil
}

// Store is the single-slot snapshot memory of one agent
type Store struct {
	memory store.MemoryStore
	slot   string
}

func NewStore(memory store.MemoryStore) *Store {
	return &Store{memory: memory, slot: store.SlotLastStatus}
}

// Load reads the prior snapshot. Values that cannot be decoded, even after
// legacy normalization, are reported as absent rather than as an error; only
// backend read failures are returned.
func (s *Store) Load(ctx context.Context) (Prior, error) {
	stored, err := s.memory.Get(ctx, s.slot)
	if errors.Is(err, store.ErrSlotNotFound) {
		return Prior{}, nil
	}
	if err != nil {
		return Prior{}, fmt.Errorf("failed to load snapshot: %w", err)
	}

	prior := Prior{Stored: stored}
	if len(bytes.TrimSpace(stored)) == 0 {
		return prior, nil
	}

	body := stored
	if !json.Valid(stored) {
		normalized, err := store.DecodeLegacy(stored)
		if err != nil {
			zap.L().Warn("Stored snapshot is unreadable, treating as absent",
				zap.Error(&models.ParseError{Source: "stored snapshot", Err: err}))
			return prior, nil
		}
		body = normalized
		prior.Legacy = true
	}

	snapshot, err := models.ParseSnapshot(body)
	if err != nil {
		zap.L().Warn("Stored snapshot has no known envelope, treating as absent", zap.Error(err))
		return prior, nil
	}

	prior.Snapshot = snapshot
	return prior, nil
}

// Changed reports whether next serializes differently from what is stored
func (s *Store) Changed(prior Prior, next *models.Snapshot) bool {
	if prior.Stored == nil {
		return true
	}
	return !bytes.Equal(prior.Stored, next.Raw)
}

// SaveIfChanged writes next only when its serialization differs from the
// stored value. It returns whether a write happened.
func (s *Store) SaveIfChanged(ctx context.Context, prior Prior, next *models.Snapshot) (bool, error) {
	if next == nil || len(next.Raw) == 0 {
		return false, fmt.Errorf("refusing to save an empty snapshot")
	}
	if !s.Changed(prior, next) {
		return false, nil
	}
	if err := s.memory.Set(ctx, s.slot, next.Raw); err != nil {
		return false, fmt.Errorf("failed to save snapshot: %w", err)
	}
	return true, nil
}
