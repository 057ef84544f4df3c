package service

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"legal-timer/internal/model"
	"legal-timer/internal/repository"
)

var testDBSeq int

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	testDBSeq++
	dsn := fmt.Sprintf("file:svctest%d?mode=memory&cache=shared", testDBSeq)
	db, err := repository.NewDB(dsn)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

// fakeClock hands out a controllable instant.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{t: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	db        *gorm.DB
	users     *repository.UserRepository
	tasks     *repository.TaskRepository
	ledger    *repository.SessionRepository
	clock     *fakeClock
	timer     *TimerService
	taskSvc   *TaskService
	reportSvc *ReportService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	clock := newFakeClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	tasks := repository.NewTaskRepository(db)
	categories := repository.NewCategoryRepository(db)
	ledger := repository.NewSessionRepository(db)
	return &fixture{
		db:        db,
		users:     repository.NewUserRepository(db),
		tasks:     tasks,
		ledger:    ledger,
		clock:     clock,
		timer:     NewTimerService(db, tasks, ledger, clock.Now),
		taskSvc:   NewTaskService(tasks, categories, ledger, clock.Now),
		reportSvc: NewReportService(tasks, categories, ledger, clock.Now),
	}
}

func (f *fixture) user(t *testing.T, email string) *model.User {
	t.Helper()
	user := model.User{Email: email, HashedPassword: "x", FullName: "Test User"}
	if err := f.db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return &user
}

func (f *fixture) task(t *testing.T, userID uint, title string) *model.Task {
	t.Helper()
	task := model.Task{UserID: userID, Title: title, Status: model.TaskOpen}
	if err := f.db.Create(&task).Error; err != nil {
		t.Fatalf("create task: %v", err)
	}
	return &task
}
