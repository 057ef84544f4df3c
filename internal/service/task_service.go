package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"legal-timer/internal/model"
	"legal-timer/internal/repository"
)

// TaskInput represents data required to create a task.
type TaskInput struct {
	Title       string
	Description string
	CategoryID  *uint
	Matter      string
}

// TaskService wraps task-related business logic.
type TaskService struct {
	tasks      *repository.TaskRepository
	categories *repository.CategoryRepository
	ledger     *repository.SessionRepository
	now        Clock
}

func NewTaskService(tasks *repository.TaskRepository, categories *repository.CategoryRepository, ledger *repository.SessionRepository, now Clock) *TaskService {
	if now == nil {
		now = time.Now
	}
	return &TaskService{tasks: tasks, categories: categories, ledger: ledger, now: now}
}

func (s *TaskService) Create(ctx context.Context, userID uint, input TaskInput) (*model.Task, error) {
	if input.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	if input.CategoryID != nil {
		if _, err := s.categories.GetByID(ctx, *input.CategoryID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("%w: unknown category %d", ErrInvalidInput, *input.CategoryID)
			}
			return nil, err
		}
	}

	task := model.Task{
		UserID:      userID,
		Title:       input.Title,
		Description: input.Description,
		CategoryID:  input.CategoryID,
		Matter:      input.Matter,
		Status:      model.TaskOpen,
	}
	if err := s.tasks.Create(ctx, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *TaskService) Get(ctx context.Context, userID, taskID uint) (*model.Task, error) {
	return s.tasks.FindByID(ctx, userID, taskID)
}

// Complete marks the task as completed. A timer still running on the task is
// left running and keeps billing until the user stops it or starts another
// task; only the status and completion stamp change here.
func (s *TaskService) Complete(ctx context.Context, userID, taskID uint) (*model.Task, error) {
	task, err := s.tasks.FindByID(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	if _, err := s.ledger.FindOpenForTask(ctx, userID, taskID); err == nil {
		log.Printf("[warn] task %d completed while its timer is still running", taskID)
	}

	if err := s.tasks.MarkCompleted(ctx, task, s.now()); err != nil {
		return nil, err
	}
	return task, nil
}
