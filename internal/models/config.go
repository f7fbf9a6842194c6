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

import "time"

// Config represents the application configuration
type Config struct {
	Agent     AgentConfig
	Api       ApiConfig
	Store     StoreConfig
	Scheduler SchedulerConfig
	Metrics   MetricsConfig
}

// AgentConfig holds the options the agent form exposes
type AgentConfig struct {
	Name                        string
	Variant                     Shape
	BearerToken                 string
	ApiKey                      string
	ClientId                    string
	RefreshToken                string
	ChangesOnly                 bool
	Debug                       bool
	ExpectedReceivePeriodInDays int
	// ComparePolicy overrides the per-shape equality policy when set
	ComparePolicy string
}

// ApiConfig holds Swile endpoint settings
type ApiConfig struct {
	GraphQLUrl     string
	TokenUrl       string
	WalletsUrl     string
	RequestTimeout time.Duration
}

// StoreConfig selects and configures the durable memory backend
type StoreConfig struct {
	Backend         string
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	RedisKeyPrefix  string
}

// SchedulerConfig holds cycle scheduling settings
type SchedulerConfig struct {
	Schedule     string
	CycleTimeout time.Duration
}

// MetricsConfig holds the metrics/health listener settings
type MetricsConfig struct {
	Addr string
}

// ExpectedReceivePeriod converts the configured day count to a duration
func (c AgentConfig) ExpectedReceivePeriod() time.Duration {
	return time.Duration(c.ExpectedReceivePeriodInDays) * 24 * time.Hour
}
