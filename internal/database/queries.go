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

const (
	schema = `
	-- Single-slot agent memory (last snapshot, last credential exchange)
	CREATE TABLE IF NOT EXISTS agent_memory (
		agent TEXT NOT NULL,
		slot TEXT NOT NULL,
		value BLOB NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (agent, slot)
	);

	-- Append-only log of emitted events
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		agent TEXT NOT NULL,
		cycle_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		wallet_id TEXT NOT NULL DEFAULT '',
		payload TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_agent_created_at ON events(agent, created_at);
	CREATE INDEX IF NOT EXISTS idx_events_wallet_id ON events(wallet_id);
	`

	// Memory queries
	queryGetSlot = `
		SELECT value FROM agent_memory
		WHERE agent = ? AND slot = ?`

	queryUpsertSlot = `
		INSERT INTO agent_memory (agent, slot, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(agent, slot) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	querySlotUpdatedAt = `
		SELECT updated_at FROM agent_memory
		WHERE agent = ? AND slot = ?`

	// Event queries
	queryInsertEvent = `
		INSERT INTO events (id, agent, cycle_id, kind, wallet_id, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	queryRecentEvents = `
		SELECT id, agent, cycle_id, kind, wallet_id, payload, created_at
		FROM events
		WHERE agent = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`

	queryMostRecentEventTime = `
		SELECT created_at FROM events
		WHERE agent = ?
		ORDER BY created_at DESC
		LIMIT 1`
)
