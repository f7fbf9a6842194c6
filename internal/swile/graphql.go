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
	"fmt"
	"net/http"
)

const walletsOverviewQuery = `{
  walletsOverview {
    id
    type
    label
    balance {
      text
      value
    }
    giftType
    networks
  }
}`

// browserHeaders are sent with every GraphQL call; the bff endpoint expects
// the same headers the team web app sends.
var browserHeaders = map[string]string{
	"X-Lunchr-App-Version": "0.1.0",
	"X-Lunchr-Platform":    "web",
	"User-Agent":           "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/90.0.4430.72 Safari/537.36",
	"Accept":               "*/*",
	"Sec-Gpc":              "1",
	"Origin":               "https://team.swile.co",
	"Sec-Fetch-Site":       "same-site",
	"Sec-Fetch-Mode":       "cors",
	"Sec-Fetch-Dest":       "empty",
	"Referer":              "https://team.swile.co/",
	"Accept-Language":      "fr-FR,fr;q=0.9,en-US;q=0.8,en;q=0.7",
}

// GraphQLFetcher queries walletsOverview on the bff GraphQL endpoint
type GraphQLFetcher struct {
	client *http.Client
	url    string
	apiKey string
}

func NewGraphQLFetcher(client *http.Client, url, apiKey string) *GraphQLFetcher {
	return &GraphQLFetcher{client: client, url: url, apiKey: apiKey}
}

func (f *GraphQLFetcher) Fetch(ctx context.Context, bearerToken string) (*FetchResult, error) {
	payload, err := json.Marshal(map[string]string{"query": walletsOverviewQuery})
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build graphql request: %w", err)
	}
	for key, value := range browserHeaders {
		req.Header.Set(key, value)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearerToken)
	req.Header.Set("X-Api-Key", f.apiKey)

	result, err := do(ctx, f.client, req)
	if err != nil {
		return nil, err
	}
	return result, checkJSON(result, "graphql response")
}
