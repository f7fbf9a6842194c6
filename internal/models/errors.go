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
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is matching across the cycle
var (
	ErrAuth      = errors.New("authentication failed")
	ErrTransport = errors.New("transport failure")
	ErrParse     = errors.New("unparsable response")
)

// AuthError is returned when the refresh exchange does not produce a token
type AuthError struct {
	StatusCode int
	Err        error
}

func (e *AuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("token exchange failed with status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("token exchange failed: %v", e.Err)
}

func (e *AuthError) Unwrap() []error { return unwrapWith(ErrAuth, e.Err) }

// TransportError wraps connection, DNS and TLS failures
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() []error { return unwrapWith(ErrTransport, e.Err) }

// ParseError wraps a body or stored value that is not usable JSON
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unable to parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() []error { return unwrapWith(ErrParse, e.Err) }

func unwrapWith(sentinel, err error) []error {
	if err == nil {
		return []error{sentinel}
	}
	return []error{sentinel, err}
}
