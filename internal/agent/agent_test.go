package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"swile-balance-agent/internal/diff"
	"swile-balance-agent/internal/metrics"
	"swile-balance-agent/internal/models"
	"swile-balance-agent/internal/snapshot"
	"swile-balance-agent/internal/store"
	"swile-balance-agent/internal/swile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	overviewV1       = `{"data":{"walletsOverview":[{"id":"meal","type":"meal_voucher","label":"Titres-resto","balance":{"text":"540,00 €","value":540},"giftType":null,"networks":["meal_voucher_default_fr"]},{"id":"gift","type":"gift","label":"Cadeaux","balance":{"text":"20,00 €","value":20},"giftType":"generic","networks":[]}]}}`
	overviewV2       = `{"data":{"walletsOverview":[{"id":"meal","type":"meal_voucher","label":"Titres-resto","balance":{"text":"528,50 €","value":528.5},"giftType":null,"networks":["meal_voucher_default_fr"]},{"id":"gift","type":"gift","label":"Cadeaux","balance":{"text":"20,00 €","value":20},"giftType":"generic","networks":[]}]}}`
	walletsV1        = `{"wallets":[{"id":"w1","type":"meal_voucher","label":"Titres-resto","balance":{"text":"10,00 €","value":10}}]}`
	walletsRelabeled = `{"wallets":[{"id":"w1","type":"meal_voucher","label":"Repas","balance":{"text":"10,00 €","value":10}}]}`
	walletsLegacy    = `{"wallets"=>[{"id"=>"w1", "type"=>"meal_voucher", "label"=>"Titres-resto", "balance"=>{"text"=>"10,00 €", "value"=>10}}]}`
)

type fakeTokens struct {
	calls int
	err   error
}

func (f *fakeTokens) Token(context.Context) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "bearer", nil
}

type fakeFetcher struct {
	bodies []string
	err    error
	calls  int
}

func (f *fakeFetcher) Fetch(_ context.Context, bearerToken string) (*swile.FetchResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	body := f.bodies[0]
	if len(f.bodies) > 1 {
		f.bodies = f.bodies[1:]
	}
	return &swile.FetchResult{Body: []byte(body), StatusCode: 200}, nil
}

type collector struct {
	events []*models.Event
	err    error
}

func (c *collector) Emit(_ context.Context, event *models.Event) error {
	if c.err != nil {
		return c.err
	}
	c.events = append(c.events, event)
	return nil
}

type readOnlyMemory struct {
	*store.Memory
}

func (readOnlyMemory) Set(context.Context, string, []byte) error {
	return errors.New("database is locked")
}

// contextMemory fails writes whose context is already done
type contextMemory struct {
	*store.Memory
}

func (m contextMemory) Set(ctx context.Context, slot string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.Memory.Set(ctx, slot, value)
}

// cancelOnEmit cancels the cycle context once an event has been emitted
type cancelOnEmit struct {
	collector
	cancel context.CancelFunc
}

func (c *cancelOnEmit) Emit(ctx context.Context, event *models.Event) error {
	c.cancel()
	return c.collector.Emit(ctx, event)
}

type harness struct {
	agent   *Agent
	tokens  *fakeTokens
	fetcher *fakeFetcher
	events  *collector
	memory  *store.Memory
}

func newHarness(t *testing.T, mode diff.Mode, bodies ...string) *harness {
	t.Helper()
	h := &harness{
		tokens:  &fakeTokens{},
		fetcher: &fakeFetcher{bodies: bodies},
		events:  &collector{},
		memory:  store.NewMemory(),
	}
	h.agent = NewAgent(Config{
		Name:      "swile",
		Tokens:    h.tokens,
		Fetcher:   h.fetcher,
		Snapshots: snapshot.NewStore(h.memory),
		Emitter:   h.events,
		Metrics:   metrics.NewRecorder(),
		Mode:      mode,
	})
	return h
}

func (h *harness) stored(t *testing.T) string {
	t.Helper()
	value, err := h.memory.Get(context.Background(), store.SlotLastStatus)
	require.NoError(t, err)
	return string(value)
}

func TestFirstRunEmitsEveryWallet(t *testing.T) {
	h := newHarness(t, diff.ModeChangesOnly, overviewV1)

	report, err := h.agent.RunCycle(context.Background())
	require.NoError(t, err)

	assert.True(t, report.Baseline)
	assert.True(t, report.SnapshotSaved)
	assert.Equal(t, models.ShapeGraphQL, report.Shape)
	require.Len(t, h.events.events, 2)
	assert.Equal(t, "meal", h.events.events[0].WalletId)
	assert.Equal(t, "gift", h.events.events[1].WalletId)
	assert.Equal(t, report.CycleId, h.events.events[0].CycleId)
	assert.Equal(t, "swile", h.events.events[0].Agent)
	assert.JSONEq(t, overviewV1, h.stored(t))
	assert.Equal(t, StateIdle, h.agent.State())
}

func TestUnchangedPayloadIsStable(t *testing.T) {
	h := newHarness(t, diff.ModeChangesOnly, overviewV1)
	ctx := context.Background()

	_, err := h.agent.RunCycle(ctx)
	require.NoError(t, err)
	first := h.stored(t)

	report, err := h.agent.RunCycle(ctx)
	require.NoError(t, err)

	assert.Equal(t, 0, report.Emitted)
	assert.Equal(t, 2, report.Unchanged)
	assert.False(t, report.SnapshotSaved)
	assert.Len(t, h.events.events, 2)
	assert.Equal(t, 1, h.memory.Writes(store.SlotLastStatus))
	assert.Equal(t, first, h.stored(t))
}

func TestChangedBalanceEmitsOnlyThatWallet(t *testing.T) {
	h := newHarness(t, diff.ModeChangesOnly, overviewV1, overviewV2)
	ctx := context.Background()

	_, err := h.agent.RunCycle(ctx)
	require.NoError(t, err)
	h.events.events = nil

	report, err := h.agent.RunCycle(ctx)
	require.NoError(t, err)

	require.Len(t, h.events.events, 1)
	assert.Equal(t, "meal", h.events.events[0].WalletId)
	assert.Contains(t, string(h.events.events[0].Payload), "528.5")
	assert.Equal(t, 1, report.Unchanged)
	assert.True(t, report.SnapshotSaved)
	assert.JSONEq(t, overviewV2, h.stored(t))
}

func TestWalletsShapeIgnoresLabelChanges(t *testing.T) {
	h := newHarness(t, diff.ModeChangesOnly, walletsV1, walletsRelabeled)
	ctx := context.Background()

	_, err := h.agent.RunCycle(ctx)
	require.NoError(t, err)
	h.events.events = nil

	report, err := h.agent.RunCycle(ctx)
	require.NoError(t, err)

	assert.Empty(t, h.events.events)
	// The payload still differs, so it is stored
	assert.True(t, report.SnapshotSaved)
	assert.JSONEq(t, walletsRelabeled, h.stored(t))
}

func TestPolicyOverride(t *testing.T) {
	h := newHarness(t, diff.ModeChangesOnly, walletsV1, walletsRelabeled)
	h.agent.policy = diff.PolicyFullRecord
	ctx := context.Background()

	_, err := h.agent.RunCycle(ctx)
	require.NoError(t, err)
	h.events.events = nil

	_, err = h.agent.RunCycle(ctx)
	require.NoError(t, err)
	require.Len(t, h.events.events, 1)
	assert.Equal(t, "w1", h.events.events[0].WalletId)
}

func TestAlwaysModeEmitsWholePayload(t *testing.T) {
	h := newHarness(t, diff.ModeAlways, overviewV1)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := h.agent.RunCycle(ctx)
		require.NoError(t, err)
	}

	require.Len(t, h.events.events, 2)
	for _, event := range h.events.events {
		assert.Equal(t, models.EventKindPayload, event.Kind)
		assert.Empty(t, event.WalletId)
		assert.JSONEq(t, overviewV1, string(event.Payload))
	}
	assert.Equal(t, 1, h.memory.Writes(store.SlotLastStatus))
}

func TestAuthFailureLeavesEverythingUntouched(t *testing.T) {
	h := newHarness(t, diff.ModeChangesOnly, overviewV1)
	h.tokens.err = &models.AuthError{StatusCode: 401, Err: errors.New("invalid_grant")}

	_, err := h.agent.RunCycle(context.Background())
	require.Error(t, err)

	assert.ErrorIs(t, err, models.ErrAuth)
	assert.Equal(t, metrics.OutcomeAuth, classify(err))
	assert.Equal(t, 0, h.fetcher.calls)
	assert.Empty(t, h.events.events)
	assert.Equal(t, 0, h.memory.Writes(store.SlotLastStatus))
	assert.ErrorIs(t, h.agent.Working(context.Background(), time.Now()), ErrLastCycle)
}

func TestFetchFailureLeavesStoreUntouched(t *testing.T) {
	h := newHarness(t, diff.ModeChangesOnly, overviewV1)
	ctx := context.Background()
	_, err := h.agent.RunCycle(ctx)
	require.NoError(t, err)
	h.events.events = nil

	h.fetcher.err = &models.TransportError{Op: "POST", URL: "https://bff-api.swile.co/graphql", Err: context.DeadlineExceeded}
	_, err = h.agent.RunCycle(ctx)
	require.Error(t, err)

	assert.ErrorIs(t, err, models.ErrTransport)
	assert.Equal(t, metrics.OutcomeTransport, classify(err))
	assert.Empty(t, h.events.events)
	assert.Equal(t, 1, h.memory.Writes(store.SlotLastStatus))
	assert.JSONEq(t, overviewV1, h.stored(t))
}

func TestUnreadablePayloadLeavesStoreUntouched(t *testing.T) {
	h := newHarness(t, diff.ModeChangesOnly, `{"errors":[{"message":"unauthorized"}]}`)

	_, err := h.agent.RunCycle(context.Background())
	require.Error(t, err)

	assert.ErrorIs(t, err, models.ErrParse)
	assert.Equal(t, metrics.OutcomeParse, classify(err))
	assert.Empty(t, h.events.events)
	assert.Equal(t, 0, h.memory.Writes(store.SlotLastStatus))
}

func TestLegacyPriorIsComparedAndRewritten(t *testing.T) {
	h := newHarness(t, diff.ModeChangesOnly, walletsV1)
	ctx := context.Background()
	require.NoError(t, h.memory.Set(ctx, store.SlotLastStatus, []byte(walletsLegacy)))

	report, err := h.agent.RunCycle(ctx)
	require.NoError(t, err)

	assert.True(t, report.LegacyPrior)
	assert.False(t, report.Baseline)
	assert.Empty(t, h.events.events)
	assert.True(t, report.SnapshotSaved)
	assert.JSONEq(t, walletsV1, h.stored(t))
}

func TestEmitFailureSkipsPersist(t *testing.T) {
	h := newHarness(t, diff.ModeChangesOnly, overviewV1)
	h.events.err = errors.New("bus unavailable")

	_, err := h.agent.RunCycle(context.Background())
	require.Error(t, err)

	assert.Equal(t, metrics.OutcomeFailed, classify(err))
	assert.Equal(t, 0, h.memory.Writes(store.SlotLastStatus))
}

func TestPersistFailureIsReportedAfterEmission(t *testing.T) {
	h := newHarness(t, diff.ModeChangesOnly, overviewV1)
	h.agent.snapshots = snapshot.NewStore(readOnlyMemory{h.memory})

	report, err := h.agent.RunCycle(context.Background())
	require.Error(t, err)

	assert.Contains(t, err.Error(), "database is locked")
	assert.Equal(t, 2, report.Emitted)
	assert.Len(t, h.events.events, 2)
	assert.False(t, report.SnapshotSaved)
}

func TestCycleDeadlineAfterEmissionStillPersists(t *testing.T) {
	h := newHarness(t, diff.ModeChangesOnly, overviewV1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	emitter := &cancelOnEmit{cancel: cancel}
	h.agent.emitter = emitter
	h.agent.snapshots = snapshot.NewStore(contextMemory{h.memory})

	report, err := h.agent.RunCycle(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Emitted)
	assert.True(t, report.SnapshotSaved)
	assert.Equal(t, 1, h.memory.Writes(store.SlotLastStatus))
	assert.JSONEq(t, overviewV1, h.stored(t))
}

type fixedEventTimes struct {
	at  time.Time
	err error
}

func (f fixedEventTimes) MostRecentEventTime(context.Context) (time.Time, error) {
	return f.at, f.err
}

func TestWorking(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	h := newHarness(t, diff.ModeChangesOnly, overviewV1)
	assert.ErrorIs(t, h.agent.Working(ctx, now), ErrNoRecentEvent)

	h.agent.events = fixedEventTimes{at: now.Add(-time.Hour)}
	assert.NoError(t, h.agent.Working(ctx, now))

	h.agent.events = fixedEventTimes{at: now.Add(-72 * time.Hour)}
	assert.ErrorIs(t, h.agent.Working(ctx, now), ErrNoRecentEvent)

	h.agent.events = fixedEventTimes{err: errors.New("no such table")}
	assert.Error(t, h.agent.Working(ctx, now))
}

func TestWorkingAfterSuccessfulCycle(t *testing.T) {
	h := newHarness(t, diff.ModeChangesOnly, overviewV1)
	_, err := h.agent.RunCycle(context.Background())
	require.NoError(t, err)

	assert.NoError(t, h.agent.Working(context.Background(), time.Now()))
	assert.ErrorIs(t, h.agent.Working(context.Background(), time.Now().Add(49*time.Hour)), ErrNoRecentEvent)
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	h := newHarness(t, diff.ModeChangesOnly, overviewV1)
	h.agent.schedule = "every now and then"

	assert.Error(t, h.agent.Start(context.Background()))
}

func TestStartRunsFirstCycleImmediately(t *testing.T) {
	h := newHarness(t, diff.ModeChangesOnly, overviewV1)
	h.agent.schedule = "@every 1h"

	require.NoError(t, h.agent.Start(context.Background()))
	h.agent.Stop()

	assert.Equal(t, 1, h.fetcher.calls)
	assert.Equal(t, 1, h.memory.Writes(store.SlotLastStatus))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "persisting", StatePersisting.String())
	assert.Equal(t, "state(42)", State(42).String())
}
