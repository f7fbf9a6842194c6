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

package models

import (
	"encoding/json"
	"time"
)

// EventKind distinguishes per-wallet events from whole-payload events
type EventKind string

const (
	EventKindWallet  EventKind = "wallet"
	EventKindPayload EventKind = "payload"
)

// Event is one notification emitted by a cycle
type Event struct {
	Id        string          `db:"id" json:"id"`
	Agent     string          `db:"agent" json:"agent"`
	CycleId   string          `db:"cycle_id" json:"cycle_id"`
	Kind      EventKind       `db:"kind" json:"kind"`
	WalletId  string          `db:"wallet_id" json:"wallet_id,omitempty"`
	Payload   json.RawMessage `db:"payload" json:"payload"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// MemorySlot is one row of durable agent memory
type MemorySlot struct {
	Agent     string    `db:"agent"`
	Slot      string    `db:"slot"`
	Value     []byte    `db:"value"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Credential is the bearer material produced by a refresh exchange. Raw holds
// the full exchange response, which is what gets persisted.
type Credential struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	Raw          json.RawMessage `json:"-"`
}
