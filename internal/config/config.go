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
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"swile-balance-agent/internal/models"
)

const (
	DefaultGraphQLUrl = "https://bff-api.swile.co/graphql"
	DefaultTokenUrl   = "https://directory.swile.co/oauth/token"
	DefaultWalletsUrl = "https://neobank-api.swile.co/api/v0/wallets"

	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

func Load() (*models.Config, error) {
	return LoadWithOptions("")
}

// LoadWithOptions reads the environment, then overlays AGENT_OPTIONS_FILE and
// finally optionsFile when it is not empty.
func LoadWithOptions(optionsFile string) (*models.Config, error) {
	requestTimeout, err := getEnvDuration("SWILE_REQUEST_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}

	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	cycleTimeout, err := getEnvDuration("AGENT_CYCLE_TIMEOUT", 2*time.Minute)
	if err != nil {
		return nil, err
	}

	changesOnly, err := getEnvBool("SWILE_CHANGES_ONLY", true)
	if err != nil {
		return nil, err
	}

	debug, err := getEnvBool("SWILE_DEBUG", false)
	if err != nil {
		return nil, err
	}

	expectedReceivePeriod, err := getEnvInt("EXPECTED_RECEIVE_PERIOD_IN_DAYS", 2)
	if err != nil {
		return nil, err
	}

	maxOpenConns, err := getEnvInt("DB_MAX_OPEN_CONNS", 4)
	if err != nil {
		return nil, err
	}

	maxIdleConns, err := getEnvInt("DB_MAX_IDLE_CONNS", 2)
	if err != nil {
		return nil, err
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}

	variant, err := models.ParseShape(getEnvString("SWILE_API_VARIANT", string(models.ShapeGraphQL)))
	if err != nil {
		return nil, err
	}

	cfg := &models.Config{
		Agent: models.AgentConfig{
			Name:                        getEnvString("AGENT_NAME", "SwileBalanceAgent"),
			Variant:                     variant,
			BearerToken:                 os.Getenv("SWILE_BEARER_TOKEN"),
			ApiKey:                      os.Getenv("SWILE_API_KEY"),
			ClientId:                    os.Getenv("SWILE_CLIENT_ID"),
			RefreshToken:                os.Getenv("SWILE_REFRESH_TOKEN"),
			ChangesOnly:                 changesOnly,
			Debug:                       debug,
			ExpectedReceivePeriodInDays: expectedReceivePeriod,
			ComparePolicy:               os.Getenv("SWILE_COMPARE_POLICY"),
		},
		Api: models.ApiConfig{
			GraphQLUrl:     getEnvString("SWILE_GRAPHQL_URL", DefaultGraphQLUrl),
			TokenUrl:       getEnvString("SWILE_TOKEN_URL", DefaultTokenUrl),
			WalletsUrl:     getEnvString("SWILE_WALLETS_URL", DefaultWalletsUrl),
			RequestTimeout: requestTimeout,
		},
		Store: models.StoreConfig{
			Backend:         getEnvString("STORE_BACKEND", BackendSQLite),
			Path:            getEnvString("DATABASE_PATH", "agent.db"),
			MaxOpenConns:    maxOpenConns,
			MaxIdleConns:    maxIdleConns,
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
			RedisAddr:       getEnvString("REDIS_ADDR", "localhost:6379"),
			RedisPassword:   os.Getenv("REDIS_PASSWORD"),
			RedisDB:         redisDB,
			RedisKeyPrefix:  getEnvString("REDIS_KEY_PREFIX", "swile"),
		},
		Scheduler: models.SchedulerConfig{
			Schedule:     getEnvString("AGENT_SCHEDULE", "@every 1h"),
			CycleTimeout: cycleTimeout,
		},
		Metrics: models.MetricsConfig{
			Addr: os.Getenv("METRICS_ADDR"),
		},
	}

	for _, path := range []string{os.Getenv("AGENT_OPTIONS_FILE"), optionsFile} {
		if path == "" {
			continue
		}
		if err := ApplyOptionsFile(cfg, path); err != nil {
			return nil, fmt.Errorf("options file %s: %w", path, err)
		}
	}

	return cfg, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) (int, error) {
	if value := os.Getenv(key); value != "" {
		intValue, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %s: %q (%w)", key, value, err)
		}
		return intValue, nil
	}
	return defaultValue, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	boolValue, ok := boolify(value)
	if !ok {
		return false, fmt.Errorf("if provided, %s must be true or false, got %q", key, value)
	}
	return boolValue, nil
}

// boolify accepts the same spellings as the agent form: true/false, yes/no, 1/0
func boolify(value string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "yes", "1", "on":
		return true, true
	case "false", "no", "0", "off":
		return false, true
	default:
		return false, false
	}
}
