package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestKVStorage_SetGetDelete(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	storage := NewKVStorage(db, arbor.NewLogger())

	require.NoError(t, storage.Set(context.Background(), "smtp_host", "smtp.example.com", "SMTP server"))

	value, err := storage.Get(context.Background(), "smtp_host")
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com", value)

	require.NoError(t, storage.Delete(context.Background(), "smtp_host"))
	_, err = storage.Get(context.Background(), "smtp_host")
	assert.Error(t, err)
}

func TestKVStorage_KeysCaseInsensitive(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	storage := NewKVStorage(db, arbor.NewLogger())

	require.NoError(t, storage.Set(context.Background(), "SMTP_Host", "smtp.example.com", ""))

	value, err := storage.Get(context.Background(), "smtp_host")
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com", value)
}

func TestKVStorage_DeleteMissingIsNoOp(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	storage := NewKVStorage(db, arbor.NewLogger())
	assert.NoError(t, storage.Delete(context.Background(), "never_set"))
}
