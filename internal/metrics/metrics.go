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

package metrics

import (
	"context"
	"net/http"
	"time"

	"swile-balance-agent/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cycle outcomes used as the outcome label
const (
	OutcomeSuccess   = "success"
	OutcomeAuth      = "auth_error"
	OutcomeTransport = "transport_error"
	OutcomeParse     = "parse_error"
	OutcomeFailed    = "failed"
)

// Recorder owns the agent metrics. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	cycles          *prometheus.CounterVec
	events          *prometheus.CounterVec
	snapshotWrites  prometheus.Counter
	walletsObserved prometheus.Gauge
	walletBalance   *prometheus.GaugeVec
	lastSuccessTS   prometheus.Gauge
	cycleDur        prometheus.Summary
}

func NewRecorder() *Recorder {
	r := &Recorder{registry: prometheus.NewRegistry()}

	r.cycles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "swile_agent",
		Name:      "cycles_total",
		Help:      "Number of poll cycles by outcome",
	}, []string{"outcome"})
	r.events = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "swile_agent",
		Name:      "events_emitted_total",
		Help:      "Number of events emitted by kind",
	}, []string{"kind"})
	r.snapshotWrites = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "swile_agent",
		Name:      "snapshot_writes_total",
		Help:      "Number of times the stored snapshot was replaced",
	})
	r.walletsObserved = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "swile_agent",
		Name:      "wallets_observed",
		Help:      "Wallets in the last fetched snapshot",
	})
	r.walletBalance = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "swile",
		Name:      "wallet_balance",
		Help:      "Wallet balance value as reported by Swile",
	}, []string{"id", "type", "label"})
	r.lastSuccessTS = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "swile_agent",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix timestamp of the last successful cycle",
	})
	r.cycleDur = prometheus.NewSummary(prometheus.SummaryOpts{
		Namespace: "swile_agent",
		Name:      "cycle_duration_seconds",
		Help:      "Time spent running one cycle",
	})

	r.registry.MustRegister(
		r.cycles, r.events, r.snapshotWrites,
		r.walletsObserved, r.walletBalance, r.lastSuccessTS, r.cycleDur,
	)
	return r
}

// ObserveCycle records the end of a cycle
func (r *Recorder) ObserveCycle(outcome string, duration time.Duration) {
	if r == nil {
		return
	}
	r.cycles.WithLabelValues(outcome).Inc()
	r.cycleDur.Observe(duration.Seconds())
	if outcome == OutcomeSuccess {
		r.lastSuccessTS.Set(float64(time.Now().Unix()))
	}
}

// ObserveSnapshot publishes per-wallet balances of a fetched snapshot
func (r *Recorder) ObserveSnapshot(snapshot *models.Snapshot) {
	if r == nil || snapshot == nil {
		return
	}
	r.walletsObserved.Set(float64(len(snapshot.Records)))
	r.walletBalance.Reset()
	for _, record := range snapshot.Records {
		value, _ := record.Balance.Value.Float64()
		r.walletBalance.WithLabelValues(record.Id, record.Type, record.Label).Set(value)
	}
}

func (r *Recorder) AddEvents(kind models.EventKind, count int) {
	if r == nil || count <= 0 {
		return
	}
	r.events.WithLabelValues(string(kind)).Add(float64(count))
}

func (r *Recorder) SnapshotWritten() {
	if r == nil {
		return
	}
	r.snapshotWrites.Inc()
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// HealthFunc reports nil when the agent is considered working
type HealthFunc func(ctx context.Context) error

// NewServer exposes /metrics and /healthz
func NewServer(addr string, r *Recorder, health HealthFunc) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if health != nil {
			if err := health(req.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(err.Error()))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
