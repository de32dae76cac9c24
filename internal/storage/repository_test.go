package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	creds := NewCredentials(store)

	token, err := creds.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, creds.Save(ctx, " t1 "))
	raw, err := store.Get(ctx, CredentialKey)
	require.NoError(t, err)
	assert.Equal(t, "t1", raw)

	token, err = creds.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "t1", token)

	require.NoError(t, creds.Clear(ctx))
	require.NoError(t, creds.Clear(ctx))
	_, err = store.Get(ctx, CredentialKey)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCredentialsSaveRejectsEmpty(t *testing.T) {
	err := NewCredentials(NewMemoryStore()).Save(context.Background(), "  ")
	assert.Error(t, err)
}

type failingStore struct{ MemoryStore }

func (f *failingStore) Get(context.Context, string) (string, error) {
	return "", errors.New("disk on fire")
}

func TestCredentialsLoadWrapsBackendErrors(t *testing.T) {
	_, err := NewCredentials(&failingStore{}).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load credential")
}
