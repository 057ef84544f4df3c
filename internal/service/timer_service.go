package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"legal-timer/internal/model"
	"legal-timer/internal/repository"
)

// Clock supplies timestamps for session boundaries. Injected so tests can
// pin instants.
type Clock func() time.Time

// StartResult reports a started timer plus the task whose timer was
// implicitly stopped to make room for it, if any.
type StartResult struct {
	Session     *model.Session
	StoppedTask *model.Task
}

// TimerService enforces the one-running-timer-per-user rule. Per user the
// machine is either idle or running exactly one task; starting a task while
// another runs closes the old session and opens the new one in a single
// transaction, so no interleaved request can observe zero or two open
// sessions.
type TimerService struct {
	db     *gorm.DB
	tasks  *repository.TaskRepository
	ledger *repository.SessionRepository
	now    Clock
}

func NewTimerService(db *gorm.DB, tasks *repository.TaskRepository, ledger *repository.SessionRepository, now Clock) *TimerService {
	if now == nil {
		now = time.Now
	}
	return &TimerService{db: db, tasks: tasks, ledger: ledger, now: now}
}

// Start begins timing taskID for the user. If another session is open it is
// closed first, and the task it belonged to is returned so the caller can
// tell the user what was paused. Starting the currently running task is
// allowed and produces a zero-length closed session plus a fresh open one.
//
// The close-then-open runs inside one transaction; a race that slips past it
// is caught by the ledger's unique open-session index and surfaces as
// repository.ErrConflict.
func (s *TimerService) Start(ctx context.Context, userID, taskID uint) (*StartResult, error) {
	at := s.now()

	var result StartResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tasks := s.tasks.WithTx(tx)
		ledger := s.ledger.WithTx(tx)

		if _, err := tasks.FindByID(ctx, userID, taskID); err != nil {
			return err
		}

		open, err := ledger.FindOpenForUser(ctx, userID)
		switch {
		case err == nil:
			if _, err := ledger.Close(ctx, open.ID, at); err != nil {
				return fmt.Errorf("auto-stop session %d: %w", open.ID, err)
			}
			stopped, err := tasks.FindByID(ctx, userID, open.TaskID)
			if err != nil {
				return fmt.Errorf("load auto-stopped task %d: %w", open.TaskID, err)
			}
			result.StoppedTask = stopped
		case errors.Is(err, repository.ErrNotFound):
			// idle, nothing to stop
		default:
			return err
		}

		session, err := ledger.Open(ctx, userID, taskID, at)
		if err != nil {
			return err
		}
		result.Session = session
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Stop closes the open session on the named task. This call only targets
// taskID, so it returns repository.ErrNotFound both when nothing is running
// and when the running timer belongs to a different task.
func (s *TimerService) Stop(ctx context.Context, userID, taskID uint) (*model.Session, error) {
	at := s.now()

	var closed *model.Session
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ledger := s.ledger.WithTx(tx)

		open, err := ledger.FindOpenForTask(ctx, userID, taskID)
		if err != nil {
			return err
		}
		closed, err = ledger.Close(ctx, open.ID, at)
		return err
	})
	if err != nil {
		return nil, err
	}
	return closed, nil
}

// ActiveTask returns the task the user is currently timing, with aggregates,
// or nil if the user is idle.
func (s *TimerService) ActiveTask(ctx context.Context, userID uint) (*model.TaskView, error) {
	open, err := s.ledger.FindOpenForUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	task, err := s.tasks.FindByID(ctx, userID, open.TaskID)
	if err != nil {
		return nil, err
	}
	agg, err := s.ledger.AggregateForTask(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	return &model.TaskView{Task: *task, TotalDuration: agg.TotalSeconds, IsRunning: true}, nil
}

// ListTasks returns the user's tasks, newest-created first, each with its
// aggregate duration and running flag. status narrows to a single state.
func (s *TimerService) ListTasks(ctx context.Context, userID uint, status *model.TaskStatus) ([]model.TaskView, error) {
	if status != nil && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *status)
	}

	tasks, err := s.tasks.ListByUser(ctx, userID, status)
	if err != nil {
		return nil, err
	}

	views := make([]model.TaskView, 0, len(tasks))
	for _, task := range tasks {
		agg, err := s.ledger.AggregateForTask(ctx, task.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, model.TaskView{
			Task:          task,
			TotalDuration: agg.TotalSeconds,
			IsRunning:     agg.IsRunning,
		})
	}
	return views, nil
}
