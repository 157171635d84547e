package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/praeco/internal/interfaces"
	"github.com/ternarybob/praeco/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// ContentStorage implements the ContentStorage interface for Badger.
// Each content variant lives in its own badgerhold type bucket; the
// polymorphic (content type, content id) reference is resolved by a
// type switch, not runtime introspection.
type ContentStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewContentStorage creates a new ContentStorage instance
func NewContentStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ContentStorage {
	return &ContentStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ContentStorage) SaveContent(ctx context.Context, content models.Content) error {
	if content.ContentID() == "" {
		return fmt.Errorf("content ID is required")
	}

	switch c := content.(type) {
	case *models.Article:
		return s.upsert(c.ID, c)
	case *models.Comment:
		return s.upsert(c.ID, c)
	case *models.Event:
		return s.upsert(c.ID, c)
	case *models.Listing:
		return s.upsert(c.ID, c)
	case *models.AdCreative:
		return s.upsert(c.ID, c)
	default:
		return fmt.Errorf("unsupported content type: %s", content.ContentType())
	}
}

func (s *ContentStorage) upsert(id string, value interface{}) error {
	if err := s.db.Store().Upsert(id, value); err != nil {
		return fmt.Errorf("failed to save content: %w", err)
	}
	return nil
}

func (s *ContentStorage) GetContent(ctx context.Context, contentType, contentID string) (models.Content, error) {
	var err error
	switch contentType {
	case models.ContentTypeArticle:
		var a models.Article
		if err = s.db.Store().Get(contentID, &a); err == nil {
			return &a, nil
		}
	case models.ContentTypeComment:
		var c models.Comment
		if err = s.db.Store().Get(contentID, &c); err == nil {
			return &c, nil
		}
	case models.ContentTypeEvent:
		var e models.Event
		if err = s.db.Store().Get(contentID, &e); err == nil {
			return &e, nil
		}
	case models.ContentTypeListing:
		var l models.Listing
		if err = s.db.Store().Get(contentID, &l); err == nil {
			return &l, nil
		}
	case models.ContentTypeAd:
		var a models.AdCreative
		if err = s.db.Store().Get(contentID, &a); err == nil {
			return &a, nil
		}
	default:
		return nil, fmt.Errorf("unsupported content type: %s", contentType)
	}

	if err == badgerhold.ErrNotFound {
		return nil, fmt.Errorf("content not found: %s/%s", contentType, contentID)
	}
	return nil, fmt.Errorf("failed to get content: %w", err)
}

func (s *ContentStorage) ListVisibleArticles(ctx context.Context, limit int) ([]*models.Article, error) {
	var articles []models.Article
	query := badgerhold.Where("Visibility").Eq(models.VisibilityVisible).SortBy("PublishedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := s.db.Store().Find(&articles, query); err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}

	result := make([]*models.Article, len(articles))
	for i := range articles {
		result[i] = &articles[i]
	}
	return result, nil
}

func (s *ContentStorage) ListCommentsByParent(ctx context.Context, parentType, parentID string) ([]*models.Comment, error) {
	var comments []models.Comment
	query := badgerhold.Where("ParentType").Eq(parentType).And("ParentID").Eq(parentID).SortBy("CreatedAt")
	if err := s.db.Store().Find(&comments, query); err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	result := make([]*models.Comment, len(comments))
	for i := range comments {
		result[i] = &comments[i]
	}
	return result, nil
}
