package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"legal-timer/internal/model"
)

// SessionRepository is the append-only ledger of timer sessions. Sessions
// are created open, closed exactly once with their duration computed at
// close time, and never edited afterwards.
type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// WithTx returns a ledger bound to the given transaction handle, so a caller
// can run several ledger operations atomically.
func (r *SessionRepository) WithTx(tx *gorm.DB) *SessionRepository {
	return &SessionRepository{db: tx}
}

// Open creates a running session for the task at the given instant. Returns
// ErrConflict if the user already has an open session; callers are expected
// to close it first.
func (r *SessionRepository) Open(ctx context.Context, userID, taskID uint, at time.Time) (*model.Session, error) {
	session := model.Session{
		TaskID:    taskID,
		UserID:    userID,
		StartTime: at,
	}
	if err := r.db.WithContext(ctx).Create(&session).Error; err != nil {
		if isOpenSessionConflict(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("open session: %w", err)
	}
	return &session, nil
}

// Close stamps the end time and computes the duration in whole seconds,
// clamped to zero so clock skew can never record negative billable time.
// Returns ErrNotFound if the session does not exist or is already closed.
// A double stop is a caller bug and must surface, not vanish.
func (r *SessionRepository) Close(ctx context.Context, sessionID uint, at time.Time) (*model.Session, error) {
	var session model.Session
	db := r.db.WithContext(ctx)
	if err := db.First(&session, sessionID).Error; err != nil {
		return nil, translateNotFound(err)
	}
	if session.EndTime != nil {
		return nil, ErrNotFound
	}

	duration := int64(at.Sub(session.StartTime).Seconds())
	if duration < 0 {
		duration = 0
	}
	session.EndTime = &at
	session.DurationSeconds = duration

	if err := db.Save(&session).Error; err != nil {
		return nil, fmt.Errorf("close session: %w", err)
	}
	return &session, nil
}

// FindOpenForUser returns the user's running session across all tasks, or
// ErrNotFound. At most one exists by invariant.
func (r *SessionRepository) FindOpenForUser(ctx context.Context, userID uint) (*model.Session, error) {
	var session model.Session
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND end_time IS NULL", userID).
		First(&session).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &session, nil
}

// FindOpenForTask returns the running session on the given task for the
// user, or ErrNotFound.
func (r *SessionRepository) FindOpenForTask(ctx context.Context, userID, taskID uint) (*model.Session, error) {
	var session model.Session
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND task_id = ? AND end_time IS NULL", userID, taskID).
		First(&session).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &session, nil
}

// TaskAggregate is the derived per-task rollup over the ledger.
type TaskAggregate struct {
	TotalSeconds int64
	IsRunning    bool
}

// AggregateForTask sums closed-session durations for the task and reports
// whether a session is currently open on it. An open session contributes
// zero until it closes; live elapsed display is the caller's concern.
func (r *SessionRepository) AggregateForTask(ctx context.Context, taskID uint) (TaskAggregate, error) {
	var agg TaskAggregate
	db := r.db.WithContext(ctx)

	err := db.Model(&model.Session{}).
		Where("task_id = ?", taskID).
		Select("COALESCE(SUM(duration_seconds), 0)").
		Scan(&agg.TotalSeconds).Error
	if err != nil {
		return agg, fmt.Errorf("aggregate task %d: %w", taskID, err)
	}

	var openCount int64
	err = db.Model(&model.Session{}).
		Where("task_id = ? AND end_time IS NULL", taskID).
		Count(&openCount).Error
	if err != nil {
		return agg, fmt.Errorf("aggregate task %d: %w", taskID, err)
	}
	agg.IsRunning = openCount > 0
	return agg, nil
}

// ClosedInRange returns the user's closed sessions starting within
// [from, to), oldest first. Used by timesheet summaries and CSV export.
func (r *SessionRepository) ClosedInRange(ctx context.Context, userID uint, from, to time.Time) ([]model.Session, error) {
	var sessions []model.Session
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND end_time IS NOT NULL AND start_time >= ? AND start_time < ?", userID, from, to).
		Order("start_time ASC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("sessions in range: %w", err)
	}
	return sessions, nil
}

// OpenLongerThan returns sessions that have been running since before the
// cutoff, for the forgotten-timer watchdog.
func (r *SessionRepository) OpenLongerThan(ctx context.Context, cutoff time.Time) ([]model.Session, error) {
	var sessions []model.Session
	err := r.db.WithContext(ctx).
		Where("end_time IS NULL AND start_time < ?", cutoff).
		Order("start_time ASC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("long open sessions: %w", err)
	}
	return sessions, nil
}

// CountOpenForUser reports how many sessions the user has open. Anything
// above one is an invariant violation.
func (r *SessionRepository) CountOpenForUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Session{}).
		Where("user_id = ? AND end_time IS NULL", userID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count open sessions: %w", err)
	}
	return count, nil
}
