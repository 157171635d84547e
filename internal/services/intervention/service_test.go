package intervention

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/praeco/internal/common"
	"github.com/ternarybob/praeco/internal/interfaces"
	"github.com/ternarybob/praeco/internal/models"
)

type fakeInterventionLogStore struct {
	logs []*models.InterventionLog
}

func (f *fakeInterventionLogStore) SaveLog(ctx context.Context, log *models.InterventionLog) error {
	copied := *log
	f.logs = append(f.logs, &copied)
	return nil
}

func (f *fakeInterventionLogStore) ListByContent(ctx context.Context, contentType, contentID string) ([]*models.InterventionLog, error) {
	return nil, nil
}

type fakeContentStore struct {
	articles []*models.Article
	comments map[string][]*models.Comment
	saved    []models.Content
}

func (f *fakeContentStore) SaveContent(ctx context.Context, content models.Content) error {
	f.saved = append(f.saved, content)
	return nil
}

func (f *fakeContentStore) GetContent(ctx context.Context, contentType, contentID string) (models.Content, error) {
	return nil, errors.New("not found")
}

func (f *fakeContentStore) ListVisibleArticles(ctx context.Context, limit int) ([]*models.Article, error) {
	var out []*models.Article
	for _, a := range f.articles {
		if a.Visibility == models.VisibilityVisible {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeContentStore) ListCommentsByParent(ctx context.Context, parentType, parentID string) ([]*models.Comment, error) {
	return f.comments[parentID], nil
}

type fakeComplaintStore struct {
	counts map[string]int
}

func (f *fakeComplaintStore) SaveComplaint(ctx context.Context, complaint *models.Complaint) error {
	return nil
}

func (f *fakeComplaintStore) Exists(ctx context.Context, contentType, contentID, complainantID string) (bool, error) {
	return false, nil
}

func (f *fakeComplaintStore) CountByContent(ctx context.Context, contentType, contentID string) (int, error) {
	return f.counts[contentID], nil
}

func (f *fakeComplaintStore) ListByContent(ctx context.Context, contentType, contentID string) ([]*models.Complaint, error) {
	return nil, nil
}

type fakeUserStore struct {
	emails map[string]string
}

func (f *fakeUserStore) GetEmail(ctx context.Context, userID string) (string, error) {
	return f.emails[userID], nil
}

func (f *fakeUserStore) SaveUser(ctx context.Context, user *models.User) error { return nil }

type fakeNotifier struct {
	sent []interfaces.Notification
}

func (f *fakeNotifier) Send(ctx context.Context, n interfaces.Notification) error {
	f.sent = append(f.sent, n)
	return nil
}

type fixture struct {
	svc      *Service
	logs     *fakeInterventionLogStore
	contents *fakeContentStore
	notifier *fakeNotifier
}

func newFixture() *fixture {
	logs := &fakeInterventionLogStore{}
	contents := &fakeContentStore{comments: make(map[string][]*models.Comment)}
	complaints := &fakeComplaintStore{counts: make(map[string]int)}
	users := &fakeUserStore{emails: map[string]string{"user_1": "owner@example.com"}}
	notifier := &fakeNotifier{}
	cfg := &common.InterventionConfig{ProtectedThreshold: 0.8, MonitoringThreshold: 0.5}
	svc := NewService(logs, contents, complaints, users, notifier, cfg, arbor.NewLogger())
	return &fixture{svc: svc, logs: logs, contents: contents, notifier: notifier}
}

func visibleArticle(id string) *models.Article {
	return &models.Article{
		ID:          id,
		AuthorID:    "user_1",
		Title:       "Bridge opens",
		Body:        "The new bridge opened today.",
		Visibility:  models.VisibilityVisible,
		PublishedAt: time.Now(),
	}
}

func TestRunIntervention_Protected(t *testing.T) {
	f := newFixture()
	article := visibleArticle("art_1")

	// 9 of 10 compliant: 0.9 >= 0.8
	log, err := f.svc.RunIntervention(context.Background(), article, "scan", 10, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeProtected, log.Outcome)
	assert.InDelta(t, 0.9, log.Ratio, 0.001)
	assert.Equal(t, 9, log.CompliantComments)
	assert.Equal(t, models.VisibilityVisible, article.Visibility)
	assert.Empty(t, f.notifier.sent)
	require.Len(t, f.logs.logs, 1)
}

func TestRunIntervention_EnhancedMonitoring(t *testing.T) {
	f := newFixture()
	article := visibleArticle("art_1")

	// 6 of 10 compliant: 0.5 <= 0.6 < 0.8
	log, err := f.svc.RunIntervention(context.Background(), article, "scan", 10, 4, 0)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeEnhancedMonitoring, log.Outcome)
	assert.Equal(t, models.VisibilityVisible, article.Visibility, "enhanced monitoring must not change content state")
	assert.Empty(t, f.contents.saved)
	require.Len(t, f.logs.logs, 1)
}

func TestRunIntervention_Removed(t *testing.T) {
	f := newFixture()
	article := visibleArticle("art_1")

	// 2 of 10 compliant: 0.2 < 0.5
	log, err := f.svc.RunIntervention(context.Background(), article, "scan", 10, 8, 5)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeRemoved, log.Outcome)

	assert.Equal(t, models.VisibilityRemoved, article.Visibility)
	assert.NotEmpty(t, article.RemovalReason)
	require.Len(t, f.contents.saved, 1)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "owner@example.com", f.notifier.sent[0].To)
	assert.Equal(t, "content_removed", f.notifier.sent[0].Template)

	require.Len(t, f.logs.logs, 1)
	assert.Equal(t, 5, f.logs.logs[0].ComplaintCount)
}

func TestRunIntervention_EmptyPopulationIsHealthy(t *testing.T) {
	f := newFixture()
	article := visibleArticle("art_1")

	log, err := f.svc.RunIntervention(context.Background(), article, "scan", 0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, log.Ratio, "zero comments is vacuously healthy")
	assert.Equal(t, models.OutcomeProtected, log.Outcome)
}

func TestRunIntervention_BoundaryRatios(t *testing.T) {
	tests := []struct {
		name    string
		total   int
		failed  int
		outcome models.InterventionOutcome
	}{
		{"exactly protected threshold", 10, 2, models.OutcomeProtected},           // 0.8
		{"just below protected", 100, 21, models.OutcomeEnhancedMonitoring},       // 0.79
		{"exactly monitoring threshold", 10, 5, models.OutcomeEnhancedMonitoring}, // 0.5
		{"just below monitoring", 100, 51, models.OutcomeRemoved},                 // 0.49
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			log, err := f.svc.RunIntervention(context.Background(), visibleArticle("art_1"), "scan", tt.total, tt.failed, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.outcome, log.Outcome)
		})
	}
}

func TestRunIntervention_RemovalIsIdempotent(t *testing.T) {
	f := newFixture()
	article := visibleArticle("art_1")
	article.Visibility = models.VisibilityRemoved
	article.RemovalReason = "earlier evaluation"

	log, err := f.svc.RunIntervention(context.Background(), article, "scan", 10, 9, 0)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeRemoved, log.Outcome)

	// Visibility was not mutated a second time
	assert.Equal(t, "earlier evaluation", article.RemovalReason)
	assert.Empty(t, f.contents.saved)

	// The evaluation is still logged
	require.Len(t, f.logs.logs, 1)
}

func TestRunIntervention_AlwaysLogs(t *testing.T) {
	f := newFixture()
	article := visibleArticle("art_1")

	for _, failed := range []int{0, 4, 9} {
		_, err := f.svc.RunIntervention(context.Background(), article, "scan", 10, failed, 0)
		require.NoError(t, err)
	}
	assert.Len(t, f.logs.logs, 3, "every evaluation must be logged regardless of branch")
}

func TestScanVisibleArticles(t *testing.T) {
	f := newFixture()

	healthy := visibleArticle("art_healthy")
	toxic := visibleArticle("art_toxic")
	hidden := visibleArticle("art_hidden")
	hidden.Visibility = models.VisibilityRemoved

	f.contents.articles = []*models.Article{healthy, toxic, hidden}
	f.contents.comments["art_healthy"] = []*models.Comment{
		{ID: "cm_1", Body: "nice"},
		{ID: "cm_2", Body: "good"},
	}
	f.contents.comments["art_toxic"] = []*models.Comment{
		{ID: "cm_3", ModerationStatus: models.ModerationRejected},
		{ID: "cm_4", ModerationStatus: models.ModerationRejected},
		{ID: "cm_5", ModerationStatus: models.ModerationRejected},
		{ID: "cm_6", Body: "ok"},
	}

	evaluated, removed, err := f.svc.ScanVisibleArticles(context.Background(), "scheduled_scan")
	require.NoError(t, err)
	assert.Equal(t, 2, evaluated, "hidden article must not be scanned")
	assert.Equal(t, 1, removed)

	assert.Equal(t, models.VisibilityVisible, healthy.Visibility)
	assert.Equal(t, models.VisibilityRemoved, toxic.Visibility)
}
