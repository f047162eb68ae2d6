// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-forum-backend/internal/domain"
)

// MessagesStats returns the number of messages matching the scopes and the
// greatest UpdatedAt among them. With no rows, count is 0 and maxUpdatedAt
// is nil.
func MessagesStats(ctx context.Context, db *gorm.DB, scopes ...Scope) (count int64, maxUpdatedAt *time.Time, err error) {
	return tableStats(ctx, db.WithContext(ctx).Model(&domain.Message{}).Scopes(scopes...), "messages")
}

// RoomsStats is the room counterpart of MessagesStats.
func RoomsStats(ctx context.Context, db *gorm.DB, scopes ...Scope) (count int64, maxUpdatedAt *time.Time, err error) {
	return tableStats(ctx, db.WithContext(ctx).Model(&domain.Room{}).Scopes(scopes...), "rooms")
}

func tableStats(ctx context.Context, q *gorm.DB, table string) (int64, *time.Time, error) {
	var count int64
	if err := q.Session(&gorm.Session{}).Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Latest updated_at via ORDER BY (MAX() comes back as TEXT in SQLite).
	var row struct {
		UpdatedAt time.Time
	}
	col := table + ".updated_at"
	if err := q.Session(&gorm.Session{}).WithContext(ctx).
		Select(col + " AS updated_at").
		Order(col + " DESC").
		Limit(1).
		Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
