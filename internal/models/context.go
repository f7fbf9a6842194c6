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
	"context"
	"time"
)

type cycleContextKey struct{}

// CycleContext carries per-cycle identifiers through context so emitters can
// tag events without widening the Emitter interface.
type CycleContext struct {
	CycleId   string
	Agent     string
	Shape     Shape
	StartedAt time.Time
}

// WithCycleContext attaches cycle data to a context.
func WithCycleContext(ctx context.Context, cc *CycleContext) context.Context {
	return context.WithValue(ctx, cycleContextKey{}, cc)
}

// GetCycleContext retrieves cycle data from context, or nil if absent.
func GetCycleContext(ctx context.Context) *CycleContext {
	cc, _ := ctx.Value(cycleContextKey{}).(*CycleContext)
	return cc
}
