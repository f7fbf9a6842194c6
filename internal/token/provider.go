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

package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"swile-balance-agent/internal/models"
	"swile-balance-agent/internal/store"

	"go.uber.org/zap"
)

// Provider produces a bearer token for the current cycle
type Provider interface {
	Token(ctx context.Context) (string, error)
}

// Refresher exchanges a refresh token for a new credential
type Refresher interface {
	Refresh(ctx context.Context, clientId, refreshToken string) (*models.Credential, error)
}

// Static hands back the configured bearer token unchanged
type Static struct {
	bearerToken string
}

func NewStatic(bearerToken string) *Static {
	return &Static{bearerToken: bearerToken}
}

func (s *Static) Token(_ context.Context) (string, error) {
	if s.bearerToken == "" {
		return "", &models.AuthError{Err: errors.New("no bearer token configured")}
	}
	return s.bearerToken, nil
}

// Refresh runs the OAuth refresh flow. The previously stored exchange
// response supplies the refresh token; the configured one is only used until
// a first exchange has been stored.
type Refresh struct {
	refresher    Refresher
	memory       store.MemoryStore
	clientId     string
	refreshToken string
}

func NewRefresh(refresher Refresher, memory store.MemoryStore, clientId, refreshToken string) *Refresh {
	return &Refresh{
		refresher:    refresher,
		memory:       memory,
		clientId:     clientId,
		refreshToken: refreshToken,
	}
}

func (r *Refresh) Token(ctx context.Context) (string, error) {
	refreshToken, source, err := r.currentRefreshToken(ctx)
	if err != nil {
		return "", err
	}

	zap.L().Debug("Exchanging refresh token", zap.String("source", source))

	credential, err := r.refresher.Refresh(ctx, r.clientId, refreshToken)
	if err != nil {
		return "", err
	}

	if err := r.memory.Set(ctx, store.SlotLastCredential, credential.Raw); err != nil {
		return "", fmt.Errorf("failed to persist refreshed credential: %w", err)
	}

	return credential.AccessToken, nil
}

func (r *Refresh) currentRefreshToken(ctx context.Context) (string, string, error) {
	stored, err := r.memory.Get(ctx, store.SlotLastCredential)
	if errors.Is(err, store.ErrSlotNotFound) {
		return r.refreshToken, "configuration", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("failed to load stored credential: %w", err)
	}

	if !json.Valid(stored) {
		if normalized, legacyErr := store.DecodeLegacy(stored); legacyErr == nil {
			stored = normalized
		}
	}

	var credential models.Credential
	if err := json.Unmarshal(stored, &credential); err != nil || credential.RefreshToken == "" {
		zap.L().Warn("Stored credential is unusable, falling back to configured refresh token", zap.Error(err))
		return r.refreshToken, "configuration", nil
	}
	return credential.RefreshToken, "memory", nil
}

// NewProvider selects the strategy matching the API variant
func NewProvider(cfg models.AgentConfig, memory store.MemoryStore, refresher Refresher) (Provider, error) {
	switch cfg.Variant {
	case models.ShapeGraphQL:
		return NewStatic(cfg.BearerToken), nil
	case models.ShapeWallets:
		return NewRefresh(refresher, memory, cfg.ClientId, cfg.RefreshToken), nil
	default:
		return nil, fmt.Errorf("no token provider for variant %q", cfg.Variant)
	}
}
