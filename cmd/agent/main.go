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

package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"swile-balance-agent/internal/common"
	"swile-balance-agent/internal/config"

	"go.uber.org/zap"
)

func main() {
	once := flag.Bool("once", false, "Run a single cycle and exit")
	optionsFile := flag.String("options", "", "Optional path to a YAML options file (overrides AGENT_OPTIONS_FILE)")
	flag.Parse()

	// The logger level depends on the configuration, so failures here go to stderr
	cfg, err := config.LoadWithOptions(*optionsFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	_, loggerCleanup := common.InitializeLogger(cfg.Agent.Debug)
	defer loggerCleanup()

	if err := config.Validate(cfg); err != nil {
		zap.L().Fatal("Invalid configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zap.L().Info("Starting Swile balance agent",
		zap.String("agent", cfg.Agent.Name),
		zap.String("variant", string(cfg.Agent.Variant)),
		zap.Bool("changes_only", cfg.Agent.ChangesOnly))

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	balanceAgent := services.NewAgent(cfg)

	if *once {
		cycleCtx, cycleCancel := context.WithTimeout(ctx, cfg.Scheduler.CycleTimeout)
		defer cycleCancel()
		if _, err := balanceAgent.RunCycle(cycleCtx); err != nil {
			zap.L().Error("Single cycle failed", zap.Error(err))
			// Deferred cleanups would be skipped by os.Exit
			services.Close()
			loggerCleanup()
			os.Exit(1)
		}
		return
	}

	var metricsServer *http.Server
	if cfg.Metrics.Addr != "" {
		metricsServer = services.StartMetricsServer(cfg.Metrics.Addr, balanceAgent)
	}

	if err := balanceAgent.Start(ctx); err != nil {
		zap.L().Fatal("Failed to start agent", zap.Error(err))
	}

	zap.L().Info("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zap.L().Info("Shutdown signal received, stopping agent...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		balanceAgent.Stop()
		close(done)
	}()

	select {
	case <-done:
		zap.L().Info("Agent stopped gracefully")
	case <-shutdownCtx.Done():
		zap.L().Warn("Forced shutdown after timeout")
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			zap.L().Warn("Metrics server shutdown failed", zap.Error(err))
		}
	}
}
