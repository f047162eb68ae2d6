// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Room model
// and its participant set.
//
// Error semantics:
//   - When a room is not found, functions return gorm.ErrRecordNotFound
//     (exported as ErrNotFound).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Usage:
//
//	room, err := repo.GetRoom(ctx, db, id)
//	if errors.Is(err, repo.ErrNotFound) {
//	    // handle missing
//	}
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-forum-backend/internal/domain"
)

// Scope narrows a query. Search filters are expressed as scopes so the same
// list functions serve both filtered and unfiltered views.
type Scope = func(*gorm.DB) *gorm.DB

// CreateRoom inserts a new Room hosted by hostID under topicID.
func CreateRoom(ctx context.Context, db *gorm.DB, hostID, topicID, name, description string) (*domain.Room, error) {
	now := time.Now().UTC()
	r := &domain.Room{
		ID:             uuid.NewString(),
		HostID:         hostID,
		TopicID:        topicID,
		Name:           name,
		Description:    description,
		NameKey:        domain.SearchKey(name),
		DescriptionKey: domain.SearchKey(description),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := db.WithContext(ctx).Omit(clause.Associations).Create(r).Error; err != nil {
		return nil, err
	}
	return r, nil
}

// GetRoom fetches a room by ID with its host and topic preloaded.
func GetRoom(ctx context.Context, db *gorm.DB, id string) (*domain.Room, error) {
	var r domain.Room
	err := db.WithContext(ctx).
		Preload("Host").
		Preload("Topic").
		Where("id = ?", id).
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// UpdateRoom overwrites the topic, name and description of a room and
// refreshes their search keys.
// Returns ErrNotFound if the room does not exist.
func UpdateRoom(ctx context.Context, db *gorm.DB, id, topicID, name, description string) error {
	res := db.WithContext(ctx).
		Model(&domain.Room{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"topic_id":        topicID,
			"name":            name,
			"description":     description,
			"name_key":        domain.SearchKey(name),
			"description_key": domain.SearchKey(description),
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteRoom removes a room together with its messages and participant rows
// in one transaction. The explicit deletes keep the cascade intact on
// connections where foreign keys are not enforced.
func DeleteRoom(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", id).Delete(&domain.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", id).Delete(&domain.RoomParticipant{}).Error; err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", id).Delete(&domain.Idempotency{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&domain.Room{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ListRooms returns rooms in insertion order with host and topic preloaded,
// narrowed by the optional scopes.
func ListRooms(ctx context.Context, db *gorm.DB, scopes ...Scope) ([]domain.Room, error) {
	var out []domain.Room
	err := db.WithContext(ctx).
		Model(&domain.Room{}).
		Select("rooms.*").
		Scopes(scopes...).
		Preload("Host").
		Preload("Topic").
		Order("rooms.created_at ASC, rooms.id ASC").
		Find(&out).Error
	return out, err
}

// CountRooms returns the number of rooms matching the scopes.
func CountRooms(ctx context.Context, db *gorm.DB, scopes ...Scope) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Room{}).Scopes(scopes...).Count(&n).Error
	return n, err
}

// HostedBy restricts a room query to rooms hosted by userID.
func HostedBy(userID string) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("rooms.host_id = ?", userID)
	}
}

// AddParticipant records userID as a participant of roomID. Adding an
// existing participant is a no-op.
func AddParticipant(ctx context.Context, db *gorm.DB, roomID, userID string) error {
	p := &domain.RoomParticipant{RoomID: roomID, UserID: userID, CreatedAt: time.Now().UTC()}
	return db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(p).Error
}

// ListParticipants returns the users participating in roomID, in join order.
func ListParticipants(ctx context.Context, db *gorm.DB, roomID string) ([]domain.User, error) {
	var out []domain.User
	err := db.WithContext(ctx).
		Model(&domain.User{}).
		Select("users.*").
		Joins("JOIN room_participants rp ON rp.user_id = users.id").
		Where("rp.room_id = ?", roomID).
		Order("rp.created_at ASC, users.id ASC").
		Find(&out).Error
	return out, err
}

// CountParticipants returns the size of a room's participant set.
func CountParticipants(ctx context.Context, db *gorm.DB, roomID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.RoomParticipant{}).Where("room_id = ?", roomID).Count(&n).Error
	return n, err
}
