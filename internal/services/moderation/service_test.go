package moderation

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

type fakeLLM struct {
	response string
	err      error
	calls    int
}

func (f *fakeLLM) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeLLM) ModelName() string           { return "fake-model" }
func (f *fakeLLM) GetMode() interfaces.LLMMode { return interfaces.LLMModeLocal }
func (f *fakeLLM) Close() error                { return nil }

type fakeLogStore struct {
	logs []*models.ModerationLog
}

func (f *fakeLogStore) SaveLog(ctx context.Context, log *models.ModerationLog) error {
	copied := *log
	f.logs = append(f.logs, &copied)
	return nil
}

func (f *fakeLogStore) GetLog(ctx context.Context, id string) (*models.ModerationLog, error) {
	for _, l := range f.logs {
		if l.ID == id {
			return l, nil
		}
	}
	return nil, errors.New("not found")
}

func (f *fakeLogStore) UpdateAppealStatus(ctx context.Context, id string, status models.AppealStatus) error {
	return nil
}

func (f *fakeLogStore) CountByContent(ctx context.Context, contentType, contentID string) (int, int, error) {
	return 0, 0, nil
}

func (f *fakeLogStore) ListByContent(ctx context.Context, contentType, contentID string) ([]*models.ModerationLog, error) {
	return nil, nil
}

type fakeContentStore struct {
	saved []models.Content
}

func (f *fakeContentStore) SaveContent(ctx context.Context, content models.Content) error {
	f.saved = append(f.saved, content)
	return nil
}

func (f *fakeContentStore) GetContent(ctx context.Context, contentType, contentID string) (models.Content, error) {
	return nil, errors.New("not found")
}

func (f *fakeContentStore) ListVisibleArticles(ctx context.Context, limit int) ([]*models.Article, error) {
	return nil, nil
}

func (f *fakeContentStore) ListCommentsByParent(ctx context.Context, parentType, parentID string) ([]*models.Comment, error) {
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
	err  error
}

func (f *fakeNotifier) Send(ctx context.Context, n interfaces.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, n)
	return nil
}

type fixture struct {
	svc      *Service
	llm      *fakeLLM
	logs     *fakeLogStore
	contents *fakeContentStore
	notifier *fakeNotifier
}

func newFixture(llm *fakeLLM, enabled bool) *fixture {
	logs := &fakeLogStore{}
	contents := &fakeContentStore{}
	users := &fakeUserStore{emails: map[string]string{"user_1": "owner@example.com"}}
	notifier := &fakeNotifier{}
	cfg := &common.ModerationConfig{Enabled: enabled, Timeout: "5s"}
	svc := NewService(logs, contents, users, llm, notifier, cfg, arbor.NewLogger())
	return &fixture{svc: svc, llm: llm, logs: logs, contents: contents, notifier: notifier}
}

func testArticle() *models.Article {
	return &models.Article{
		ID:          "art_1",
		AuthorID:    "user_1",
		Title:       "Bridge opens",
		Body:        "The new bridge opened today.",
		Visibility:  models.VisibilityVisible,
		PublishedAt: time.Now(),
	}
}

func TestModerate_Pass(t *testing.T) {
	f := newFixture(&fakeLLM{response: `{"decision": "pass"}`}, true)

	allowed, err := f.svc.Moderate(context.Background(), testArticle(), "publish", "user_1", "region_1")
	require.NoError(t, err)
	assert.True(t, allowed)

	require.Len(t, f.logs.logs, 1)
	log := f.logs.logs[0]
	assert.Equal(t, models.DecisionPass, log.Decision)
	assert.Equal(t, "fake-model", log.Model)
	assert.Equal(t, "article", log.ContentType)
	assert.Equal(t, "art_1", log.ContentID)
	assert.Equal(t, "publish", log.Trigger)
	assert.Contains(t, log.Snapshot, "Bridge opens")
	assert.Empty(t, f.contents.saved)
	assert.Empty(t, f.notifier.sent)
}

func TestModerate_Fail(t *testing.T) {
	f := newFixture(&fakeLLM{response: `{"decision": "fail", "violation_section": "harassment", "violation_explanation": "targets an individual"}`}, true)

	article := testArticle()
	allowed, err := f.svc.Moderate(context.Background(), article, "publish", "user_1", "")
	require.NoError(t, err)
	assert.False(t, allowed)

	require.Len(t, f.logs.logs, 1)
	log := f.logs.logs[0]
	assert.Equal(t, models.DecisionFail, log.Decision)
	assert.Equal(t, "harassment", log.ViolationSection)

	// Rejected status set and persisted
	assert.Equal(t, models.ModerationRejected, article.ModerationStatus)
	require.Len(t, f.contents.saved, 1)

	// Owner notified
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "owner@example.com", f.notifier.sent[0].To)
	assert.Equal(t, "moderation_rejected", f.notifier.sent[0].Template)
}

func TestModerate_ProviderErrorFailsOpen(t *testing.T) {
	f := newFixture(&fakeLLM{err: errors.New("upstream timeout")}, true)

	allowed, err := f.svc.Moderate(context.Background(), testArticle(), "publish", "user_1", "")
	require.NoError(t, err)
	assert.True(t, allowed, "provider failure must never block publication")

	require.Len(t, f.logs.logs, 1)
	log := f.logs.logs[0]
	assert.Equal(t, models.DecisionPass, log.Decision)
	assert.Equal(t, models.ModerationModelError, log.Model)
	assert.Contains(t, log.ViolationExplanation, "upstream timeout")
}

func TestModerate_MalformedResponseFailsOpen(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"not JSON", "sorry, I can't help with that"},
		{"missing decision", `{"violation_section": "spam"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(&fakeLLM{response: tt.response}, true)

			allowed, err := f.svc.Moderate(context.Background(), testArticle(), "publish", "user_1", "")
			require.NoError(t, err)
			assert.True(t, allowed)

			require.Len(t, f.logs.logs, 1)
			assert.Equal(t, models.ModerationModelError, f.logs.logs[0].Model)
		})
	}
}

func TestModerate_DisabledShortCircuits(t *testing.T) {
	llm := &fakeLLM{response: `{"decision": "fail"}`}
	f := newFixture(llm, false)

	allowed, err := f.svc.Moderate(context.Background(), testArticle(), "publish", "user_1", "")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 0, llm.calls, "disabled gate must not call the provider")
	assert.Empty(t, f.logs.logs, "disabled gate must not write a log")
}

func TestModerate_DecisionNormalization(t *testing.T) {
	tests := []struct {
		decision string
		allowed  bool
	}{
		{"fail", false},
		{"FAIL", false},
		{" Fail ", false},
		{"pass", true},
		{"reject", true}, // Only exact "fail" rejects
		{"failure", true},
	}

	for _, tt := range tests {
		t.Run(tt.decision, func(t *testing.T) {
			f := newFixture(&fakeLLM{response: `{"decision": "` + tt.decision + `"}`}, true)

			allowed, err := f.svc.Moderate(context.Background(), testArticle(), "publish", "user_1", "")
			require.NoError(t, err)
			assert.Equal(t, tt.allowed, allowed)
		})
	}
}

func TestModerate_CommentUsesStricterTemplate(t *testing.T) {
	prompt := buildPrompt(models.ContentTypeComment, "some comment")
	assert.Contains(t, prompt, "stricter standard")

	articlePrompt := buildPrompt(models.ContentTypeArticle, "some article")
	assert.NotContains(t, articlePrompt, "stricter standard")
}

func TestModerate_FailOnContentWithoutModerationStatus(t *testing.T) {
	f := newFixture(&fakeLLM{response: `{"decision": "fail", "violation_section": "fraud"}`}, true)

	// Event carries no moderation status field; rejection must not
	// attempt to set one, but the log and notification still happen.
	event := &models.Event{
		ID:        "evt_1",
		CreatorID: "user_1",
		Title:     "Fake raffle",
	}

	allowed, err := f.svc.Moderate(context.Background(), event, "publish", "user_1", "")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Empty(t, f.contents.saved)
	require.Len(t, f.logs.logs, 1)
	require.Len(t, f.notifier.sent, 1)
}

func TestModerate_NoEmailSkipsNotification(t *testing.T) {
	f := newFixture(&fakeLLM{response: `{"decision": "fail"}`}, true)

	article := testArticle()
	article.AuthorID = "user_unknown"

	allowed, err := f.svc.Moderate(context.Background(), article, "publish", "user_unknown", "")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Empty(t, f.notifier.sent)
}
