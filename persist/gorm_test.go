package persist_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	persistexpire "github.com/karupanerura/persist-expire"
	"github.com/karupanerura/persist-expire/persist"
	"github.com/karupanerura/persist-expire/storage/gormstorage"
)

func TestPersistor_GormStorage(t *testing.T) {
	t.Parallel()

	backend, err := gormstorage.Open(":memory:")
	require.NoError(t, err)
	defer backend.Close()

	now := time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := &persistexpire.OffsetClock{Clock: persistexpire.FixedClock(now)}
	p := persist.New(backend, persist.WithTransforms(
		persistexpire.NewExpiryTransform("user",
			persistexpire.WithAutoExpire(true),
			persistexpire.WithExpireSeconds(5),
			persistexpire.WithClock(clock),
		),
	))

	require.NoError(t, p.Persist(t.Context(), "user", newUserState()))

	clock.Offset = time.Second
	got, err := p.Rehydrate(t.Context(), "user")
	require.NoError(t, err)
	require.NotNil(t, got)
	v, ok := got.Get("username")
	assert.True(t, ok)
	assert.Equal(t, "redux", v)
	v, _ = got.Get("__persisted_at")
	assert.Equal(t, json.Number("1672574400000"), v)

	clock.Offset = 10 * time.Second
	got, err = p.Rehydrate(t.Context(), "user")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())

	require.NoError(t, p.Purge(t.Context(), "user"))
	got, err = p.Rehydrate(t.Context(), "user")
	require.NoError(t, err)
	assert.Nil(t, got)
}
