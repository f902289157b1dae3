package outcome_test

import (
	"context"
	"errors"
	"testing"
	"time"

	// Packages
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
	backend "github.com/mutablelogic/go-upload/pkg/backend"
	outcome "github.com/mutablelogic/go-upload/pkg/outcome"
	schema "github.com/mutablelogic/go-upload/pkg/schema"
	assert "github.com/stretchr/testify/assert"
	require "github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*outcome.Store, func(string)) {
	t.Helper()
	ctx := context.Background()
	store, err := backend.NewBlobBackend(ctx, "mem://uploads")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	create := func(id string) {
		_, err := store.CreateUpload(ctx, schema.Upload{Id: id, Length: 1, Meta: schema.UploadMeta{schema.MetaFilename: "a.csv"}})
		require.NoError(t, err)
	}
	return outcome.New(store), create
}

func Test_Outcome_Unknown(t *testing.T) {
	store, create := newTestStore(t)
	create("u1")

	o, err := store.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, schema.StatusUnknown, o.Status)
}

func Test_Outcome_NotFound(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, httpresponse.ErrNotFound))
}

func Test_Outcome_Success(t *testing.T) {
	assert := assert.New(t)
	store, create := newTestStore(t)
	create("u2")

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, store.Set(context.Background(), "u2", schema.NewSuccess(at)))

	o, err := store.Get(context.Background(), "u2")
	require.NoError(t, err)
	assert.Equal(schema.StatusSuccess, o.Status)
	assert.Equal(at, o.CompletedAt)
	assert.Empty(o.Error)
}

func Test_Outcome_Error(t *testing.T) {
	store, create := newTestStore(t)
	create("u3")

	require.NoError(t, store.Set(context.Background(), "u3", schema.NewError("bad header row", time.Now())))
	o, err := store.Get(context.Background(), "u3")
	require.NoError(t, err)
	assert.Equal(t, schema.StatusError, o.Status)
	assert.Equal(t, "bad header row", o.Error)
}

func Test_Outcome_Terminal(t *testing.T) {
	store, create := newTestStore(t)
	create("u4")

	require.NoError(t, store.Set(context.Background(), "u4", schema.NewError("first", time.Now())))
	err := store.Set(context.Background(), "u4", schema.NewSuccess(time.Now()))
	assert.True(t, errors.Is(err, httpresponse.ErrConflict))

	o, err := store.Get(context.Background(), "u4")
	require.NoError(t, err)
	assert.Equal(t, "first", o.Error)
}
