package model

import "time"

// UserRole controls access level.
type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// User is an account that owns tasks and timer sessions.
type User struct {
	ID             uint      `gorm:"primaryKey"`
	Email          string    `gorm:"uniqueIndex;not null"`
	HashedPassword string    `gorm:"not null"`
	FullName       string    `gorm:"not null"`
	Role           UserRole  `gorm:"default:user"`
	Timezone       string    `gorm:"default:UTC"`
	TelegramChatID *int64    `gorm:"index"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
