package model

import "time"

// TaskStatus is the closed set of task states.
type TaskStatus string

const (
	TaskOpen      TaskStatus = "open"
	TaskCompleted TaskStatus = "completed"
)

// Valid reports whether s is a known status value.
func (s TaskStatus) Valid() bool {
	return s == TaskOpen || s == TaskCompleted
}

// Task is a billable unit of legal work.
// CompletedAt is set iff Status == TaskCompleted.
type Task struct {
	ID          uint       `gorm:"primaryKey"`
	UserID      uint       `gorm:"index;not null"`
	Title       string     `gorm:"not null"`
	Description string
	CategoryID  *uint      `gorm:"index"`
	Matter      string
	Status      TaskStatus `gorm:"default:open;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
	Sessions    []Session  `gorm:"foreignKey:TaskID"`
}

// TaskView is a Task enriched with aggregates derived from its sessions.
// Computed on read, never stored.
type TaskView struct {
	Task
	TotalDuration int64 `json:"total_duration"`
	IsRunning     bool  `json:"is_running"`
}
