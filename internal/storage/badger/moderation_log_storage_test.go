package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/praeco/internal/models"
)

func TestModerationLogStorage_SaveAndGet(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	storage := NewModerationLogStorage(db, arbor.NewLogger())

	log := &models.ModerationLog{
		ID:          "mod_1",
		ContentType: models.ContentTypeComment,
		ContentID:   "cm_1",
		UserID:      "user_1",
		Trigger:     "comment_created",
		Snapshot:    "you people are the worst",
		Decision:    models.DecisionFail,
		Model:       "claude-sonnet-4-20250514",
		Duration:    420 * time.Millisecond,
	}
	require.NoError(t, storage.SaveLog(context.Background(), log))

	got, err := storage.GetLog(context.Background(), "mod_1")
	require.NoError(t, err)
	assert.Equal(t, models.DecisionFail, got.Decision)
	assert.Equal(t, "you people are the worst", got.Snapshot)
	assert.False(t, got.CreatedAt.IsZero(), "CreatedAt backfilled on save")
	assert.True(t, got.CanAppeal())
}

func TestModerationLogStorage_UpdateAppealStatus(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	storage := NewModerationLogStorage(db, arbor.NewLogger())

	require.NoError(t, storage.SaveLog(context.Background(), &models.ModerationLog{
		ID:          "mod_1",
		ContentType: models.ContentTypeComment,
		ContentID:   "cm_1",
		Decision:    models.DecisionFail,
	}))

	require.NoError(t, storage.UpdateAppealStatus(context.Background(), "mod_1", models.AppealPending))

	got, err := storage.GetLog(context.Background(), "mod_1")
	require.NoError(t, err)
	assert.Equal(t, models.AppealPending, got.AppealStatus)
	require.NotNil(t, got.AppealedAt)
	assert.False(t, got.CanAppeal())

	err = storage.UpdateAppealStatus(context.Background(), "mod_missing", models.AppealPending)
	assert.Error(t, err)
}

func TestModerationLogStorage_CountByContent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	storage := NewModerationLogStorage(db, arbor.NewLogger())

	logs := []*models.ModerationLog{
		{ID: "mod_1", ContentType: models.ContentTypeComment, ContentID: "cm_1", Decision: models.DecisionPass},
		{ID: "mod_2", ContentType: models.ContentTypeComment, ContentID: "cm_1", Decision: models.DecisionFail},
		{ID: "mod_3", ContentType: models.ContentTypeComment, ContentID: "cm_1", Decision: models.DecisionFail},
		{ID: "mod_4", ContentType: models.ContentTypeComment, ContentID: "cm_other", Decision: models.DecisionFail},
	}
	for _, log := range logs {
		require.NoError(t, storage.SaveLog(context.Background(), log))
	}

	total, failed, err := storage.CountByContent(context.Background(), models.ContentTypeComment, "cm_1")
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, 2, failed)
}
