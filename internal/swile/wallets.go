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
	"context"
	"fmt"
	"net/http"
)

// WalletsFetcher lists wallets from the neobank REST endpoint
type WalletsFetcher struct {
	client *http.Client
	url    string
}

func NewWalletsFetcher(client *http.Client, url string) *WalletsFetcher {
	return &WalletsFetcher{client: client, url: url}
}

func (f *WalletsFetcher) Fetch(ctx context.Context, bearerToken string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build wallets request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+bearerToken)
	req.Header.Set("Accept", "application/json")

	result, err := do(ctx, f.client, req)
	if err != nil {
		return nil, err
	}
	return result, checkJSON(result, "wallets response")
}
