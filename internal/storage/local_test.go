package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	n, err := store.Save(ctx, "blob.txt", strings.NewReader("payload"))
	require.NoError(t, err)
	require.Equal(t, int64(len("payload")), n)

	exists, err := store.Exists(ctx, "blob.txt")
	require.NoError(t, err)
	require.True(t, exists)

	reader, err := store.Open(ctx, "blob.txt")
	require.NoError(t, err)
	defer reader.Close()
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.Equal(t, "payload", string(data))
}

func TestLocalStoreMissingBlob(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	exists, err := store.Exists(context.Background(), "nope.bin")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestLocalStoreRejectsPathSeparators(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	_, err = store.Save(ctx, "../escape.txt", strings.NewReader("x"))
	require.Error(t, err)
	_, err = store.Open(ctx, `a\b`)
	require.Error(t, err)
	_, err = store.Save(ctx, "", strings.NewReader("x"))
	require.Error(t, err)
}
