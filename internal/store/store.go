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

package store

import (
	"context"
	"errors"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrSlotNotFound = errors.New("memory slot not found")
	ErrClosed       = errors.New("memory store is closed")
)

// Well-known memory slots. Each holds at most one value; writes replace it.
const (
	SlotLastStatus     = "last_status"
	SlotLastCredential = "last_credential"
)

// MemoryStore defines the contract that every backend (SQLite, Redis, in-process) must satisfy.
type MemoryStore interface {
	// Get returns the stored value or ErrSlotNotFound when the slot was never written.
	Get(ctx context.Context, slot string) ([]byte, error)
	// Set replaces the slot value (last write wins).
	Set(ctx context.Context, slot string, value []byte) error

	// --- Lifecycle ---
	Close()
}
