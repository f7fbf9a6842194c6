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

package config

import (
	"errors"
	"fmt"

	"swile-balance-agent/internal/diff"
	"swile-balance-agent/internal/models"
)

// Validate reports every missing or invalid option at once
func Validate(cfg *models.Config) error {
	var errs []error

	switch cfg.Agent.Variant {
	case models.ShapeGraphQL:
		if cfg.Agent.BearerToken == "" {
			errs = append(errs, errors.New("bearer_token is a required field"))
		}
		if cfg.Agent.ApiKey == "" {
			errs = append(errs, errors.New("api_key is a required field"))
		}
	case models.ShapeWallets:
		if cfg.Agent.ClientId == "" {
			errs = append(errs, errors.New("client_id is a required field"))
		}
		if cfg.Agent.RefreshToken == "" {
			errs = append(errs, errors.New("refresh_token is a required field"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown api variant %q", cfg.Agent.Variant))
	}

	if cfg.Agent.ExpectedReceivePeriodInDays <= 0 {
		errs = append(errs, errors.New("please provide 'expected_receive_period_in_days' to indicate how many days can pass before this agent is considered to be not working"))
	}

	if cfg.Agent.ComparePolicy != "" {
		if _, err := diff.ParsePolicy(cfg.Agent.ComparePolicy); err != nil {
			errs = append(errs, fmt.Errorf("invalid compare_policy: %w", err))
		}
	}

	switch cfg.Store.Backend {
	case BackendSQLite:
		if cfg.Store.Path == "" {
			errs = append(errs, errors.New("database path cannot be empty"))
		}
	case BackendRedis:
		if cfg.Store.RedisAddr == "" {
			errs = append(errs, errors.New("redis address cannot be empty"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", cfg.Store.Backend))
	}

	if cfg.Scheduler.Schedule == "" {
		errs = append(errs, errors.New("schedule cannot be empty"))
	}

	return errors.Join(errs...)
}
