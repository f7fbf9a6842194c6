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
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"swile-balance-agent/internal/models"

	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

// maxBodyBytes bounds how much of a response is read
const maxBodyBytes = 4 << 20

// FetchResult is one balance response: the raw body and its HTTP status
type FetchResult struct {
	Body       []byte
	StatusCode int
}

// Succeeded reports a 2xx status
func (r *FetchResult) Succeeded() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// NewHttpClient builds the transport shared by every Swile call. Timeouts are
// seconds, not minutes: cycles run at least hourly.
func NewHttpClient(timeout time.Duration) (*http.Client, error) {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	tr := &http.Transport{
		ResponseHeaderTimeout: timeout,
		Proxy:                 http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			KeepAlive: 30 * time.Second,
			Timeout:   5 * time.Second,
		}).DialContext,
		MaxIdleConns:          4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		MaxIdleConnsPerHost:   2,
		ExpectContinueTimeout: 1 * time.Second,
	}

	if err := http2.ConfigureTransport(tr); err != nil {
		return nil, fmt.Errorf("unable to configure http2 transport: %w", err)
	}

	return &http.Client{
		Transport: tr,
		Timeout:   timeout,
	}, nil
}

// do sends req and reads the body. Only connection-level failures are errors
// here; status handling is left to the caller.
func do(ctx context.Context, client *http.Client, req *http.Request) (*FetchResult, error) {
	resp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		return nil, &models.TransportError{Op: req.Method, URL: req.URL.String(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &models.TransportError{Op: "read " + req.Method, URL: req.URL.String(), Err: err}
	}

	zap.L().Info("request status",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
		zap.Int("status", resp.StatusCode))

	return &FetchResult{Body: body, StatusCode: resp.StatusCode}, nil
}

// checkJSON returns a ParseError when the body is not a JSON document
func checkJSON(result *FetchResult, source string) error {
	if json.Valid(result.Body) {
		return nil
	}
	return &models.ParseError{
		Source: source,
		Err:    fmt.Errorf("status %d, body is not valid JSON (%d bytes)", result.StatusCode, len(result.Body)),
	}
}
