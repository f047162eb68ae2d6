// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Message model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-forum-backend/internal/domain"
)

// CreateMessage inserts a new message row.
func CreateMessage(ctx context.Context, db *gorm.DB, userID, roomID, body string) (*domain.Message, error) {
	now := time.Now().UTC()
	m := &domain.Message{
		ID:        uuid.NewString(),
		UserID:    userID,
		RoomID:    roomID,
		Body:      body,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return m, db.WithContext(ctx).Omit(clause.Associations).Create(m).Error
}

// GetMessage fetches a message by ID with its author and room preloaded.
func GetMessage(ctx context.Context, db *gorm.DB, id string) (*domain.Message, error) {
	var m domain.Message
	err := db.WithContext(ctx).
		Preload("User").
		Preload("Room").
		Where("id = ?", id).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// DeleteMessage removes a message. Returns ErrNotFound if nothing was deleted.
func DeleteMessage(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Message{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRoomMessages returns a room's messages ordered deterministically
// (CreatedAt ASC, ID ASC) with authors preloaded.
func ListRoomMessages(ctx context.Context, db *gorm.DB, roomID string) ([]domain.Message, error) {
	var out []domain.Message
	err := db.WithContext(ctx).
		Preload("User").
		Where("room_id = ?", roomID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// ListMessages returns messages with author and room (plus the room's topic)
// preloaded. newestFirst flips the insertion ordering for feeds; limit <= 0
// means unbounded.
func ListMessages(ctx context.Context, db *gorm.DB, newestFirst bool, limit int, scopes ...Scope) ([]domain.Message, error) {
	order := "messages.created_at ASC, messages.id ASC"
	if newestFirst {
		order = "messages.created_at DESC, messages.id DESC"
	}
	var out []domain.Message
	q := db.WithContext(ctx).
		Model(&domain.Message{}).
		Select("messages.*").
		Scopes(scopes...).
		Preload("User").
		Preload("Room.Topic").
		Order(order)
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// AuthoredBy restricts a message query to messages written by userID.
func AuthoredBy(userID string) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("messages.user_id = ?", userID)
	}
}

// CountMessages uses a raw COUNT so a missing table surfaces as an error.
func CountMessages(ctx context.Context, db *gorm.DB, roomID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw("SELECT COUNT(*) FROM messages WHERE room_id = ?", roomID).Scan(&total).Error
	return total, err
}
