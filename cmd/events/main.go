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
	"flag"
	"fmt"
	"log"

	"swile-balance-agent/internal/cache"
	"swile-balance-agent/internal/common"
	"swile-balance-agent/internal/config"
	"swile-balance-agent/internal/models"
	"swile-balance-agent/internal/snapshot"
	"swile-balance-agent/internal/store"

	"go.uber.org/zap"
)

func printWallet(record models.WalletRecord, isLast bool) {
	fmt.Printf("%s %-24s %-16s %14s (%s)\n",
		common.BoxPrefix(isLast),
		record.Label,
		record.Type,
		record.Balance.Value.StringFixed(2),
		common.ShortId(record.Id))
}

func printSnapshot(prior snapshot.Prior, updatedAt string) {
	fmt.Printf("\n┌─ Last observed balances\n")
	if prior.Absent() {
		fmt.Printf("└  no snapshot stored yet\n")
		return
	}
	fmt.Printf("│  Shape: %s  Legacy: %t  Updated: %s\n", prior.Snapshot.Shape, prior.Legacy, updatedAt)
	common.PrintBoxSeparator(78)
	for i, record := range prior.Snapshot.Records {
		printWallet(record, i == len(prior.Snapshot.Records)-1)
	}
}

func printEvents(events []models.Event) {
	fmt.Printf("\n┌─ Recent events: %d\n", len(events))
	common.PrintBoxSeparator(78)
	for i, event := range events {
		isLast := i == len(events)-1
		fmt.Printf("%s %s  %-7s wallet=%-11s cycle=%s\n",
			common.BoxPrefix(isLast),
			event.CreatedAt.Format("2006-01-02 15:04:05"),
			event.Kind,
			common.ShortId(event.WalletId),
			common.ShortId(event.CycleId))
		fmt.Printf("%s   %s\n", common.BoxDetailPrefix(isLast), string(event.Payload))
	}
}

func main() {
	ctx := context.Background()

	limit := flag.Int("limit", 20, "Number of recent events to show")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, loggerCleanup := common.InitializeLogger(cfg.Agent.Debug)
	defer loggerCleanup()

	if cfg.Store.Backend == config.BackendMemory {
		logger.Fatal("The memory backend keeps nothing to report on")
	}

	logger.Info("Connecting to database", zap.String("path", cfg.Store.Path))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	var memory store.MemoryStore = dbService
	if cfg.Store.Backend == config.BackendRedis {
		redisStore, err := cache.NewRedisStore(ctx, cfg.Store, cfg.Agent.Name)
		if err != nil {
			logger.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer redisStore.Close()
		memory = redisStore
	}

	prior, err := snapshot.NewStore(memory).Load(ctx)
	if err != nil {
		logger.Fatal("Failed to load snapshot", zap.Error(err))
	}

	updatedAt := "unknown"
	if at, err := dbService.SlotUpdatedAt(ctx, store.SlotLastStatus); err == nil {
		updatedAt = at.Format("2006-01-02 15:04:05")
	}

	events, err := dbService.RecentEvents(ctx, *limit)
	if err != nil {
		logger.Fatal("Failed to list events", zap.Error(err))
	}

	common.PrintHeader(fmt.Sprintf("SWILE BALANCE AGENT: %s", cfg.Agent.Name), common.DefaultWidth)
	printSnapshot(prior, updatedAt)
	printEvents(events)

	summary := fmt.Sprintf("SUMMARY: %d wallets observed, %d events shown", len(walletsOf(prior)), len(events))
	common.PrintFooter(summary, common.DefaultWidth)
}

func walletsOf(prior snapshot.Prior) []models.WalletRecord {
	if prior.Absent() {
		return nil
	}
	return prior.Snapshot.Records
}
