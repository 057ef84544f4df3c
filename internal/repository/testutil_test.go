package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"legal-timer/internal/model"
)

var testDBSeq int

// newTestDB opens a fresh in-memory database with the full schema, including
// the partial open-session index.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	testDBSeq++
	dsn := fmt.Sprintf("file:repotest%d?mode=memory&cache=shared", testDBSeq)
	db, err := NewDB(dsn)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap db: %v", err)
	}
	// Single connection keeps the shared in-memory database alive and
	// serializes sqlite writers.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, email string) *model.User {
	t.Helper()
	user := model.User{Email: email, HashedPassword: "x", FullName: "Test User"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return &user
}

func createTestTask(t *testing.T, db *gorm.DB, userID uint, title string) *model.Task {
	t.Helper()
	task := model.Task{UserID: userID, Title: title, Status: model.TaskOpen}
	if err := db.Create(&task).Error; err != nil {
		t.Fatalf("create task: %v", err)
	}
	return &task
}

func mustOpen(t *testing.T, ledger *SessionRepository, userID, taskID uint, at time.Time) *model.Session {
	t.Helper()
	session, err := ledger.Open(context.Background(), userID, taskID, at)
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	return session
}
