package token

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"swile-balance-agent/internal/models"
	"swile-balance-agent/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRefresher struct {
	calls    []string
	response string
	err      error
}

func (f *fakeRefresher) Refresh(_ context.Context, _, refreshToken string) (*models.Credential, error) {
	f.calls = append(f.calls, refreshToken)
	if f.err != nil {
		return nil, f.err
	}
	var credential models.Credential
	if err := json.Unmarshal([]byte(f.response), &credential); err != nil {
		return nil, err
	}
	credential.Raw = json.RawMessage(f.response)
	return &credential, nil
}

func TestStatic(t *testing.T) {
	token, err := NewStatic("bearer").Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "bearer", token)

	_, err = NewStatic("").Token(context.Background())
	assert.ErrorIs(t, err, models.ErrAuth)
}

func TestRefreshFirstRunUsesConfiguredToken(t *testing.T) {
	ctx := context.Background()
	memory := store.NewMemory()
	refresher := &fakeRefresher{response: `{"access_token":"a1","refresh_token":"r1","scope":"wallets"}`}

	token, err := NewRefresh(refresher, memory, "client", "configured").Token(ctx)
	require.NoError(t, err)

	assert.Equal(t, "a1", token)
	assert.Equal(t, []string{"configured"}, refresher.calls)

	stored, err := memory.Get(ctx, store.SlotLastCredential)
	require.NoError(t, err)
	assert.JSONEq(t, `{"access_token":"a1","refresh_token":"r1","scope":"wallets"}`, string(stored))
}

func TestRefreshUsesStoredRefreshToken(t *testing.T) {
	ctx := context.Background()
	memory := store.NewMemory()
	require.NoError(t, memory.Set(ctx, store.SlotLastCredential, []byte(`{"access_token":"a1","refresh_token":"r1"}`)))
	refresher := &fakeRefresher{response: `{"access_token":"a2","refresh_token":"r2"}`}

	token, err := NewRefresh(refresher, memory, "client", "configured").Token(ctx)
	require.NoError(t, err)

	assert.Equal(t, "a2", token)
	assert.Equal(t, []string{"r1"}, refresher.calls)
}

func TestRefreshReadsLegacyStoredCredential(t *testing.T) {
	ctx := context.Background()
	memory := store.NewMemory()
	legacy := `{"access_token"=>"a0", "refresh_token"=>"stored-r", "id_token"=>nil}`
	require.NoError(t, memory.Set(ctx, store.SlotLastCredential, []byte(legacy)))
	refresher := &fakeRefresher{response: `{"access_token":"a1","refresh_token":"r1"}`}

	token, err := NewRefresh(refresher, memory, "client", "configured-stale").Token(ctx)
	require.NoError(t, err)

	assert.Equal(t, "a1", token)
	assert.Equal(t, []string{"stored-r"}, refresher.calls)

	stored, err := memory.Get(ctx, store.SlotLastCredential)
	require.NoError(t, err)
	assert.JSONEq(t, `{"access_token":"a1","refresh_token":"r1"}`, string(stored))
}

func TestRefreshFallsBackWhenStoredCredentialIsUnusable(t *testing.T) {
	ctx := context.Background()
	memory := store.NewMemory()
	require.NoError(t, memory.Set(ctx, store.SlotLastCredential, []byte(`{"access_token":"a1"}`)))
	refresher := &fakeRefresher{response: `{"access_token":"a2","refresh_token":"r2"}`}

	_, err := NewRefresh(refresher, memory, "client", "configured").Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"configured"}, refresher.calls)
}

func TestRefreshFailureKeepsStoredCredential(t *testing.T) {
	ctx := context.Background()
	memory := store.NewMemory()
	require.NoError(t, memory.Set(ctx, store.SlotLastCredential, []byte(`{"access_token":"a1","refresh_token":"r1"}`)))
	refresher := &fakeRefresher{err: &models.AuthError{StatusCode: 401, Err: errors.New("invalid_grant")}}

	_, err := NewRefresh(refresher, memory, "client", "configured").Token(ctx)
	assert.ErrorIs(t, err, models.ErrAuth)

	assert.Equal(t, 1, memory.Writes(store.SlotLastCredential))
	stored, err := memory.Get(ctx, store.SlotLastCredential)
	require.NoError(t, err)
	assert.JSONEq(t, `{"access_token":"a1","refresh_token":"r1"}`, string(stored))
}

func TestNewProvider(t *testing.T) {
	memory := store.NewMemory()

	provider, err := NewProvider(models.AgentConfig{Variant: models.ShapeGraphQL, BearerToken: "b"}, memory, nil)
	require.NoError(t, err)
	assert.IsType(t, &Static{}, provider)

	provider, err = NewProvider(models.AgentConfig{Variant: models.ShapeWallets}, memory, &fakeRefresher{})
	require.NoError(t, err)
	assert.IsType(t, &Refresh{}, provider)

	_, err = NewProvider(models.AgentConfig{Variant: "soap"}, memory, nil)
	assert.Error(t, err)
}
