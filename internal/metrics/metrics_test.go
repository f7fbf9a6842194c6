package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"swile-balance-agent/internal/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	r := NewRecorder()

	r.ObserveCycle(OutcomeSuccess, 20*time.Millisecond)
	r.ObserveCycle(OutcomeAuth, time.Millisecond)
	r.AddEvents(models.EventKindWallet, 3)
	r.AddEvents(models.EventKindWallet, 0)
	r.SnapshotWritten()

	snapshot, err := models.ParseSnapshot([]byte(`{"wallets":[{"id":"w1","type":"gift","label":"Cadeau","balance":{"text":"12,50 €","value":12.5}}]}`))
	require.NoError(t, err)
	r.ObserveSnapshot(snapshot)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.cycles.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cycles.WithLabelValues(OutcomeAuth)))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.events.WithLabelValues("wallet")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.snapshotWrites))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.walletsObserved))
	assert.Equal(t, 12.5, testutil.ToFloat64(r.walletBalance.WithLabelValues("w1", "gift", "Cadeau")))
	assert.Greater(t, testutil.ToFloat64(r.lastSuccessTS), 0.0)
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	r.ObserveCycle(OutcomeFailed, time.Second)
	r.ObserveSnapshot(&models.Snapshot{})
	r.AddEvents(models.EventKindPayload, 1)
	r.SnapshotWritten()
}

func TestServerEndpoints(t *testing.T) {
	r := NewRecorder()
	r.ObserveCycle(OutcomeSuccess, time.Millisecond)

	healthy := true
	server := NewServer(":0", r, func(context.Context) error {
		if healthy {
			return nil
		}
		return errors.New("no event within 2 days")
	})
	ts := httptest.NewServer(server.Handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "swile_agent_cycles_total")

	resp, err = http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	healthy = false
	resp, err = http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, string(body), "no event within")
}
