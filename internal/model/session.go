package model

import "time"

// Session is one contiguous start/stop interval of timer activity against a
// task. EndTime is nil while the session is running; DurationSeconds is
// computed once at close and never recomputed. Closed sessions are immutable.
//
// UserID is denormalized from the task so "this user's open session" is a
// direct indexed lookup. A partial unique index on (user_id) WHERE end_time
// IS NULL makes a second open session per user unrepresentable; see
// repository.NewDB.
type Session struct {
	ID              uint       `gorm:"primaryKey"`
	TaskID          uint       `gorm:"index;not null"`
	UserID          uint       `gorm:"index;not null"`
	StartTime       time.Time  `gorm:"not null"`
	EndTime         *time.Time
	DurationSeconds int64      `gorm:"default:0"`
	CreatedAt       time.Time
}

// Open reports whether the session is still running.
func (s *Session) Open() bool {
	return s.EndTime == nil
}
