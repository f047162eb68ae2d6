// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Topic model.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-forum-backend/internal/domain"
)

// GetOrCreateTopic returns the topic whose folded key equals key, creating
// it with the given display name when absent. created reports whether a new
// row was inserted. A concurrent insert of the same key is resolved by
// re-reading the winner's row.
func GetOrCreateTopic(ctx context.Context, db *gorm.DB, name, key string) (t *domain.Topic, created bool, err error) {
	t, err = GetTopicByKey(ctx, db, key)
	if err == nil {
		return t, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	now := time.Now().UTC()
	t = &domain.Topic{
		ID:        uuid.NewString(),
		Name:      name,
		NameKey:   key,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.WithContext(ctx).Create(t).Error; err != nil {
		if IsDuplicate(err) {
			existing, gerr := GetTopicByKey(ctx, db, key)
			if gerr != nil {
				return nil, false, gerr
			}
			return existing, false, nil
		}
		return nil, false, err
	}
	return t, true, nil
}

// GetTopicByKey fetches a topic by its case-folded key.
func GetTopicByKey(ctx context.Context, db *gorm.DB, key string) (*domain.Topic, error) {
	var t domain.Topic
	if err := db.WithContext(ctx).Where("name_key = ?", key).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// TopicWithCount is a topic annotated with the number of rooms using it.
type TopicWithCount struct {
	domain.Topic
	RoomCount int64 `json:"room_count"`
}

// ListTopics returns topics in insertion order, narrowed by the optional
// scopes. A limit <= 0 returns every matching topic.
func ListTopics(ctx context.Context, db *gorm.DB, limit int, scopes ...func(*gorm.DB) *gorm.DB) ([]TopicWithCount, error) {
	var out []TopicWithCount
	q := db.WithContext(ctx).
		Model(&domain.Topic{}).
		Select("topics.*, (SELECT COUNT(*) FROM rooms WHERE rooms.topic_id = topics.id) AS room_count").
		Scopes(scopes...).
		Order("topics.created_at ASC, topics.id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Scan(&out).Error
	return out, err
}
