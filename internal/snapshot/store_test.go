package snapshot

import (
	"context"
	"errors"
	"testing"

	"swile-balance-agent/internal/models"
	"swile-balance-agent/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const graphqlPayload = `{"data":{"walletsOverview":[{"id":"w1","type":"meal_voucher","label":"Titres-resto","balance":{"text":"540,00 €","value":540},"giftType":null,"networks":["meal_voucher_default_fr","meal_voucher_restaurant_fr"]}]}}`

type failingMemory struct{ store.MemoryStore }

func (failingMemory) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("disk I/O error")
}

func mustParse(t *testing.T, body string) *models.Snapshot {
	t.Helper()
	snapshot, err := models.ParseSnapshot([]byte(body))
	require.NoError(t, err)
	return snapshot
}

func TestLoadAbsent(t *testing.T) {
	s := NewStore(store.NewMemory())

	prior, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, prior.Absent())
	assert.Nil(t, prior.Stored)
}

func TestLoadEmptyStringIsAbsent(t *testing.T) {
	ctx := context.Background()
	memory := store.NewMemory()
	require.NoError(t, memory.Set(ctx, store.SlotLastStatus, []byte("")))

	prior, err := NewStore(memory).Load(ctx)
	require.NoError(t, err)
	assert.True(t, prior.Absent())
	assert.NotNil(t, prior.Stored)
}

func TestLoadEmptyWalletListIsPresent(t *testing.T) {
	ctx := context.Background()
	memory := store.NewMemory()
	require.NoError(t, memory.Set(ctx, store.SlotLastStatus, []byte(`{"wallets":[]}`)))

	prior, err := NewStore(memory).Load(ctx)
	require.NoError(t, err)
	require.False(t, prior.Absent())
	assert.Empty(t, prior.Snapshot.Records)
	assert.Equal(t, models.ShapeWallets, prior.Snapshot.Shape)
}

func TestLoadJSON(t *testing.T) {
	ctx := context.Background()
	memory := store.NewMemory()
	require.NoError(t, memory.Set(ctx, store.SlotLastStatus, []byte(graphqlPayload)))

	prior, err := NewStore(memory).Load(ctx)
	require.NoError(t, err)
	require.False(t, prior.Absent())
	assert.False(t, prior.Legacy)
	assert.Equal(t, models.ShapeGraphQL, prior.Snapshot.Shape)
	require.Len(t, prior.Snapshot.Records, 1)
	assert.Equal(t, "w1", prior.Snapshot.Records[0].Id)
}

func TestLoadLegacyRecovers(t *testing.T) {
	ctx := context.Background()
	memory := store.NewMemory()
	legacy := `{"data"=>{"walletsOverview"=>[{"id"=>"w1", "type"=>"meal_voucher", "label"=>"Titres-resto", "balance"=>{"text"=>"540,00 €", "value"=>540}, "giftType"=>nil, "networks"=>["meal_voucher_default_fr", "meal_voucher_restaurant_fr"]}]}}`
	require.NoError(t, memory.Set(ctx, store.SlotLastStatus, []byte(legacy)))

	prior, err := NewStore(memory).Load(ctx)
	require.NoError(t, err)
	require.False(t, prior.Absent())
	assert.True(t, prior.Legacy)
	require.Len(t, prior.Snapshot.Records, 1)

	record := prior.Snapshot.Records[0]
	assert.Equal(t, "w1", record.Id)
	assert.Nil(t, record.GiftType)
	assert.Equal(t, "540", record.Balance.Value.String())
}

func TestLoadUnrecoverableIsAbsent(t *testing.T) {
	ctx := context.Background()
	for _, stored := range []string{
		`{"data"=>{"walletsOverview"=>[{"id"=>:broken}]}}`,
		`{"unexpected":"envelope"}`,
		`not a snapshot at all`,
	} {
		memory := store.NewMemory()
		require.NoError(t, memory.Set(ctx, store.SlotLastStatus, []byte(stored)))

		prior, err := NewStore(memory).Load(ctx)
		require.NoError(t, err, "stored %q", stored)
		assert.True(t, prior.Absent(), "stored %q", stored)
	}
}

func TestLoadBackendFailure(t *testing.T) {
	_, err := NewStore(failingMemory{}).Load(context.Background())
	assert.ErrorContains(t, err, "disk I/O error")
}

func TestSaveIfChanged(t *testing.T) {
	ctx := context.Background()
	memory := store.NewMemory()
	s := NewStore(memory)
	next := mustParse(t, graphqlPayload)

	prior, err := s.Load(ctx)
	require.NoError(t, err)

	saved, err := s.SaveIfChanged(ctx, prior, next)
	require.NoError(t, err)
	assert.True(t, saved)
	assert.Equal(t, 1, memory.Writes(store.SlotLastStatus))

	prior, err = s.Load(ctx)
	require.NoError(t, err)

	saved, err = s.SaveIfChanged(ctx, prior, mustParse(t, graphqlPayload))
	require.NoError(t, err)
	assert.False(t, saved)
	assert.Equal(t, 1, memory.Writes(store.SlotLastStatus))
}

func TestLoadLegacyWithInterpolationEscapes(t *testing.T) {
	ctx := context.Background()
	memory := store.NewMemory()
	legacy := `{"wallets"=>[{"id"=>"w1", "label"=>"Cadeau \#{noel}", "balance"=>{"text"=>"10,00 €", "value"=>10}}]}`
	require.NoError(t, memory.Set(ctx, store.SlotLastStatus, []byte(legacy)))

	prior, err := NewStore(memory).Load(ctx)
	require.NoError(t, err)

	require.False(t, prior.Absent())
	assert.True(t, prior.Legacy)
	require.Len(t, prior.Snapshot.Records, 1)
	assert.Equal(t, "Cadeau #{noel}", prior.Snapshot.Records[0].Label)
}

func TestSaveReplacesLegacyValue(t *testing.T) {
	ctx := context.Background()
	memory := store.NewMemory()
	require.NoError(t, memory.Set(ctx, store.SlotLastStatus, []byte(`{"wallets"=>[]}`)))
	s := NewStore(memory)

	prior, err := s.Load(ctx)
	require.NoError(t, err)
	require.True(t, prior.Legacy)

	saved, err := s.SaveIfChanged(ctx, prior, mustParse(t, `{"wallets":[]}`))
	require.NoError(t, err)
	assert.True(t, saved)

	value, err := memory.Get(ctx, store.SlotLastStatus)
	require.NoError(t, err)
	assert.Equal(t, `{"wallets":[]}`, string(value))
}

func TestSaveRejectsEmptySnapshot(t *testing.T) {
	_, err := NewStore(store.NewMemory()).SaveIfChanged(context.Background(), Prior{}, &models.Snapshot{})
	assert.Error(t, err)
}
