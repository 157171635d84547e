package complaints

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/praeco/internal/models"
)

type fakeComplaintStore struct {
	complaints []*models.Complaint
	keys       map[string]bool
}

func newFakeComplaintStore() *fakeComplaintStore {
	return &fakeComplaintStore{keys: make(map[string]bool)}
}

func (f *fakeComplaintStore) SaveComplaint(ctx context.Context, complaint *models.Complaint) error {
	if complaint.Type == models.ComplaintTypeUser {
		key := complaint.DedupKey()
		if f.keys[key] {
			return models.ErrDuplicateComplaint
		}
		f.keys[key] = true
	}
	copied := *complaint
	f.complaints = append(f.complaints, &copied)
	return nil
}

func (f *fakeComplaintStore) Exists(ctx context.Context, contentType, contentID, complainantID string) (bool, error) {
	return f.keys[contentType+"|"+contentID+"|"+complainantID], nil
}

func (f *fakeComplaintStore) CountByContent(ctx context.Context, contentType, contentID string) (int, error) {
	count := 0
	for _, c := range f.complaints {
		if c.ContentType == contentType && c.ContentID == contentID {
			count++
		}
	}
	return count, nil
}

func (f *fakeComplaintStore) ListByContent(ctx context.Context, contentType, contentID string) ([]*models.Complaint, error) {
	return nil, nil
}

type fakeLogStore struct {
	logs map[string]*models.ModerationLog
}

func newFakeLogStore() *fakeLogStore {
	return &fakeLogStore{logs: make(map[string]*models.ModerationLog)}
}

func (f *fakeLogStore) SaveLog(ctx context.Context, log *models.ModerationLog) error {
	copied := *log
	f.logs[log.ID] = &copied
	return nil
}

func (f *fakeLogStore) GetLog(ctx context.Context, id string) (*models.ModerationLog, error) {
	log, ok := f.logs[id]
	if !ok {
		return nil, errors.New("not found")
	}
	copied := *log
	return &copied, nil
}

func (f *fakeLogStore) UpdateAppealStatus(ctx context.Context, id string, status models.AppealStatus) error {
	log, ok := f.logs[id]
	if !ok {
		return errors.New("not found")
	}
	log.AppealStatus = status
	now := time.Now()
	log.AppealedAt = &now
	return nil
}

func (f *fakeLogStore) CountByContent(ctx context.Context, contentType, contentID string) (int, int, error) {
	return 0, 0, nil
}

func (f *fakeLogStore) ListByContent(ctx context.Context, contentType, contentID string) ([]*models.ModerationLog, error) {
	return nil, nil
}

func TestFileComplaint(t *testing.T) {
	store := newFakeComplaintStore()
	svc := NewService(store, newFakeLogStore(), arbor.NewLogger())

	complaint, err := svc.FileComplaint(context.Background(), "article", "art_1", "user_1", "misinformation", "this is wrong")
	require.NoError(t, err)
	assert.Equal(t, models.ComplaintTypeUser, complaint.Type)
	assert.Equal(t, "misinformation", complaint.Reason)
	assert.NotEmpty(t, complaint.ID)
	require.Len(t, store.complaints, 1)
}

func TestFileComplaint_Duplicate(t *testing.T) {
	store := newFakeComplaintStore()
	svc := NewService(store, newFakeLogStore(), arbor.NewLogger())

	_, err := svc.FileComplaint(context.Background(), "article", "art_1", "user_1", "spam", "")
	require.NoError(t, err)

	_, err = svc.FileComplaint(context.Background(), "article", "art_1", "user_1", "spam", "again")
	assert.ErrorIs(t, err, models.ErrDuplicateComplaint)
	assert.Len(t, store.complaints, 1, "duplicate must be rejected, not merged")
}

func TestFileComplaint_DifferentComplainantsAllowed(t *testing.T) {
	store := newFakeComplaintStore()
	svc := NewService(store, newFakeLogStore(), arbor.NewLogger())

	_, err := svc.FileComplaint(context.Background(), "article", "art_1", "user_1", "spam", "")
	require.NoError(t, err)
	_, err = svc.FileComplaint(context.Background(), "article", "art_1", "user_2", "spam", "")
	require.NoError(t, err)
	assert.Len(t, store.complaints, 2)
}

func TestFileComplaint_Validation(t *testing.T) {
	svc := NewService(newFakeComplaintStore(), newFakeLogStore(), arbor.NewLogger())

	_, err := svc.FileComplaint(context.Background(), "", "art_1", "user_1", "spam", "")
	assert.Error(t, err)
	_, err = svc.FileComplaint(context.Background(), "article", "art_1", "", "spam", "")
	assert.Error(t, err)
	_, err = svc.FileComplaint(context.Background(), "article", "art_1", "user_1", "", "")
	assert.Error(t, err)
}

func rejectedLog(id, userID string) *models.ModerationLog {
	return &models.ModerationLog{
		ID:          id,
		ContentType: "comment",
		ContentID:   "cm_1",
		UserID:      userID,
		Decision:    models.DecisionFail,
		CreatedAt:   time.Now(),
	}
}

func TestFileAppeal(t *testing.T) {
	complaints := newFakeComplaintStore()
	logs := newFakeLogStore()
	require.NoError(t, logs.SaveLog(context.Background(), rejectedLog("mod_1", "user_1")))
	svc := NewService(complaints, logs, arbor.NewLogger())

	appeal, err := svc.FileAppeal(context.Background(), "mod_1", "user_1", "this was satire")
	require.NoError(t, err)
	assert.Equal(t, models.ComplaintTypeCreatorAppeal, appeal.Type)
	assert.Equal(t, "mod_1", appeal.ModerationLogID)
	assert.Equal(t, "comment", appeal.ContentType)
	assert.Equal(t, "cm_1", appeal.ContentID)

	updated, _ := logs.GetLog(context.Background(), "mod_1")
	assert.Equal(t, models.AppealPending, updated.AppealStatus)
}

func TestFileAppeal_NotAuthorized(t *testing.T) {
	logs := newFakeLogStore()
	require.NoError(t, logs.SaveLog(context.Background(), rejectedLog("mod_1", "user_1")))
	svc := NewService(newFakeComplaintStore(), logs, arbor.NewLogger())

	_, err := svc.FileAppeal(context.Background(), "mod_1", "user_2", "not my content but still")
	assert.ErrorIs(t, err, models.ErrNotAuthorized)

	updated, _ := logs.GetLog(context.Background(), "mod_1")
	assert.Equal(t, models.AppealNone, updated.AppealStatus)
}

func TestFileAppeal_NoUserOnLog(t *testing.T) {
	logs := newFakeLogStore()
	require.NoError(t, logs.SaveLog(context.Background(), rejectedLog("mod_1", "")))
	svc := NewService(newFakeComplaintStore(), logs, arbor.NewLogger())

	_, err := svc.FileAppeal(context.Background(), "mod_1", "user_1", "appeal")
	assert.ErrorIs(t, err, models.ErrNotAuthorized)
}

func TestFileAppeal_Duplicate(t *testing.T) {
	logs := newFakeLogStore()
	log := rejectedLog("mod_1", "user_1")
	require.NoError(t, logs.SaveLog(context.Background(), log))
	svc := NewService(newFakeComplaintStore(), logs, arbor.NewLogger())

	_, err := svc.FileAppeal(context.Background(), "mod_1", "user_1", "first")
	require.NoError(t, err)

	_, err = svc.FileAppeal(context.Background(), "mod_1", "user_1", "second")
	assert.ErrorIs(t, err, models.ErrDuplicateAppeal)
}

func TestFileAppeal_AlreadyResolved(t *testing.T) {
	logs := newFakeLogStore()
	log := rejectedLog("mod_1", "user_1")
	log.AppealStatus = models.AppealUpheld
	require.NoError(t, logs.SaveLog(context.Background(), log))
	svc := NewService(newFakeComplaintStore(), logs, arbor.NewLogger())

	_, err := svc.FileAppeal(context.Background(), "mod_1", "user_1", "try again")
	assert.ErrorIs(t, err, models.ErrDuplicateAppeal)
}
