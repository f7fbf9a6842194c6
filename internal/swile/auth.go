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

package swile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"swile-balance-agent/internal/models"
)

// AuthClient exchanges refresh tokens on the OAuth token endpoint
type AuthClient struct {
	client *http.Client
	url    string
}

func NewAuthClient(client *http.Client, url string) *AuthClient {
	return &AuthClient{client: client, url: url}
}

type refreshRequest struct {
	ClientId     string `json:"client_id"`
	GrantType    string `json:"grant_type"`
	RefreshToken string `json:"refresh_token"`
}

// Refresh trades refreshToken for a new access/refresh pair. Any failure,
// including transport errors, is reported as an AuthError.
func (a *AuthClient) Refresh(ctx context.Context, clientId, refreshToken string) (*models.Credential, error) {
	if refreshToken == "" {
		return nil, &models.AuthError{Err: errors.New("no refresh token available")}
	}

	payload, err := json.Marshal(refreshRequest{
		ClientId:     clientId,
		GrantType:    "refresh_token",
		RefreshToken: refreshToken,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	result, err := do(ctx, a.client, req)
	if err != nil {
		return nil, &models.AuthError{Err: err}
	}
	if !result.Succeeded() {
		return nil, &models.AuthError{StatusCode: result.StatusCode, Err: errors.New("token endpoint refused the refresh token")}
	}

	var credential models.Credential
	if err := json.Unmarshal(result.Body, &credential); err != nil {
		return nil, &models.AuthError{
			StatusCode: result.StatusCode,
			Err:        &models.ParseError{Source: "token response", Err: err},
		}
	}
	if credential.AccessToken == "" {
		return nil, &models.AuthError{StatusCode: result.StatusCode, Err: errors.New("token response has no access_token")}
	}

	credential.Raw = append([]byte(nil), result.Body...)
	return &credential, nil
}
