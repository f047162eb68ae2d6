// Package domain defines the persistence models for the forum: users, topics,
// rooms, messages and room participation. These types are mapped with GORM and
// form the core data layer of the application.
package domain

import (
	"time"

	"golang.org/x/text/cases"
)

// DefaultAvatar is the avatar assigned to users who never uploaded one.
const DefaultAvatar = "avatar.svg"

// User is a registered forum account.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - Username: unique, always stored lowercased.
//   - Email: unique, stored lowercased so it can be used as a login identifier.
//   - Name / Bio / Avatar: profile data shown next to rooms and messages.
//   - PasswordHash: bcrypt hash, never serialized.
type User struct {
	ID           string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Username     string    `json:"username"   gorm:"type:varchar(150);not null;uniqueIndex:ux_users_username"`
	Email        string    `json:"email"      gorm:"type:varchar(254);not null;uniqueIndex:ux_users_email"`
	Name         string    `json:"name"       gorm:"type:varchar(200);not null;default:''"`
	Bio          string    `json:"bio"        gorm:"type:text;not null;default:''"`
	Avatar       string    `json:"avatar"     gorm:"type:varchar(512);not null;default:'avatar.svg'"`
	PasswordHash string    `json:"-"          gorm:"type:varchar(100);not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Topic is a free-text label grouping rooms. Topics are created lazily the
// first time a room names them and are never deleted.
//
// NameKey holds the case-folded name and carries the uniqueness constraint,
// so "Gaming" and "gaming" resolve to the same row.
type Topic struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Name      string    `json:"name"       gorm:"type:varchar(200);not null"`
	NameKey   string    `json:"-"          gorm:"type:varchar(200);not null;uniqueIndex:ux_topics_name_key"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SearchKey case-folds s with full Unicode rules. Stored keys and search
// patterns both go through it.
func SearchKey(s string) string {
	return cases.Fold().String(s)
}

// TableName returns the database table name for Topic.
func (Topic) TableName() string { return "topics" }

// Room is a topic-tagged discussion thread with exactly one host.
//
// Host and Topic are belongs-to associations; they are preloaded for views.
// Participants are resolved through the room_participants join table.
// NameKey and DescriptionKey mirror Name and Description through SearchKey
// and are what the search filter matches against.
type Room struct {
	ID             string    `json:"id"          gorm:"type:char(36);primaryKey"`
	HostID         string    `json:"host_id"     gorm:"type:char(36);not null;index"`
	TopicID        string    `json:"topic_id"    gorm:"type:char(36);not null;index"`
	Name           string    `json:"name"        gorm:"type:varchar(200);not null"`
	Description    string    `json:"description" gorm:"type:text;not null;default:''"`
	NameKey        string    `json:"-"           gorm:"type:varchar(200);not null;default:''"`
	DescriptionKey string    `json:"-"           gorm:"type:text;not null;default:''"`
	CreatedAt      time.Time `json:"created_at"  gorm:"index:idx_rooms_created,priority:1"`
	UpdatedAt      time.Time `json:"updated_at"`

	Host  User  `json:"host"  gorm:"foreignKey:HostID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Topic Topic `json:"topic" gorm:"foreignKey:TopicID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName returns the database table name for Room.
func (Room) TableName() string { return "rooms" }

// Message is a single post inside a room. Messages are deleted together with
// their room.
type Message struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id"    gorm:"type:char(36);not null;index"`
	RoomID    string    `json:"room_id"    gorm:"type:char(36);not null;index:idx_room_msgs,priority:1"`
	Body      string    `json:"body"       gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_room_msgs,priority:2"`
	UpdatedAt time.Time `json:"updated_at"`

	User User  `json:"user"           gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Room *Room `json:"room,omitempty" gorm:"foreignKey:RoomID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// RoomParticipant records that a user has posted in a room. The composite
// primary key makes joining idempotent.
type RoomParticipant struct {
	RoomID    string    `json:"room_id"    gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id"    gorm:"type:char(36);primaryKey;index"`
	CreatedAt time.Time `json:"created_at"`

	Room Room `json:"-" gorm:"foreignKey:RoomID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for RoomParticipant.
func (RoomParticipant) TableName() string { return "room_participants" }

// Session is the server-side record behind a session token. Deleting the row
// ends the session even if the signed token has not expired yet.
type Session struct {
	ID        string    `gorm:"type:char(36);primaryKey"`
	UserID    string    `gorm:"type:char(36);not null;index"`
	CreatedAt time.Time `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName returns the database table name for Session.
func (Session) TableName() string { return "sessions" }
