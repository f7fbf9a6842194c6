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
	"path/filepath"
	"strconv"

	"swile-balance-agent/internal/models"

	"gopkg.in/yaml.v2"
)

// AgentOptions mirrors the agent form. Every field is a string so the file can
// carry "true"/"false" exactly the way the form stores them.
type AgentOptions struct {
	BearerToken                 string `yaml:"bearer_token"`
	ApiKey                      string `yaml:"api_key"`
	ClientId                    string `yaml:"client_id"`
	RefreshToken                string `yaml:"refresh_token"`
	ChangesOnly                 string `yaml:"changes_only"`
	Debug                       string `yaml:"debug"`
	ExpectedReceivePeriodInDays string `yaml:"expected_receive_period_in_days"`
	Variant                     string `yaml:"variant"`
	ComparePolicy               string `yaml:"compare_policy"`
	Schedule                    string `yaml:"schedule"`
}

// LoadOptionsFile reads an options file relative to the working directory
func LoadOptionsFile(optionsFile string) (*AgentOptions, error) {
	var optionsPath string
	if filepath.IsAbs(optionsFile) {
		optionsPath = optionsFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		optionsPath = filepath.Join(wd, optionsFile)
	}

	data, err := os.ReadFile(optionsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", optionsFile, err)
	}

	var options AgentOptions
	if err := yaml.Unmarshal(data, &options); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", optionsFile, err)
	}

	return &options, nil
}

// ApplyOptionsFile overlays non-empty file options on top of cfg
func ApplyOptionsFile(cfg *models.Config, optionsFile string) error {
	options, err := LoadOptionsFile(optionsFile)
	if err != nil {
		return err
	}
	return ApplyOptions(cfg, options)
}

func ApplyOptions(cfg *models.Config, options *AgentOptions) error {
	if options.BearerToken != "" {
		cfg.Agent.BearerToken = options.BearerToken
	}
	if options.ApiKey != "" {
		cfg.Agent.ApiKey = options.ApiKey
	}
	if options.ClientId != "" {
		cfg.Agent.ClientId = options.ClientId
	}
	if options.RefreshToken != "" {
		cfg.Agent.RefreshToken = options.RefreshToken
	}
	if options.ChangesOnly != "" {
		value, ok := boolify(options.ChangesOnly)
		if !ok {
			return fmt.Errorf("if provided, changes_only must be true or false")
		}
		cfg.Agent.ChangesOnly = value
	}
	if options.Debug != "" {
		value, ok := boolify(options.Debug)
		if !ok {
			return fmt.Errorf("if provided, debug must be true or false")
		}
		cfg.Agent.Debug = value
	}
	if options.ExpectedReceivePeriodInDays != "" {
		days, err := strconv.Atoi(options.ExpectedReceivePeriodInDays)
		if err != nil {
			return fmt.Errorf("invalid expected_receive_period_in_days %q: %w", options.ExpectedReceivePeriodInDays, err)
		}
		cfg.Agent.ExpectedReceivePeriodInDays = days
	}
	if options.Variant != "" {
		variant, err := models.ParseShape(options.Variant)
		if err != nil {
			return err
		}
		cfg.Agent.Variant = variant
	}
	if options.ComparePolicy != "" {
		cfg.Agent.ComparePolicy = options.ComparePolicy
	}
	if options.Schedule != "" {
		cfg.Scheduler.Schedule = options.Schedule
	}
	return nil
}
