package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDailySummary(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, "a@example.com")
	research := f.task(t, user.ID, "Legal research")
	drafting := f.task(t, user.ID, "Drafting")
	ctx := context.Background()

	_, err := f.timer.Start(ctx, user.ID, research.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	f.clock.Advance(30 * time.Minute)
	if _, err := f.timer.Stop(ctx, user.ID, research.ID); err != nil {
		t.Fatalf("stop: %v", err)
	}

	if _, err := f.timer.Start(ctx, user.ID, drafting.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	f.clock.Advance(2 * time.Hour)
	if _, err := f.timer.Stop(ctx, user.ID, drafting.ID); err != nil {
		t.Fatalf("stop: %v", err)
	}

	summary, err := f.reportSvc.DailySummary(ctx, *user, f.clock.Now())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	for _, want := range []string{"Legal research", "Drafting", "2h 00m", "30m", "Total: 2h 30m"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}
	// Largest first.
	if strings.Index(summary, "Drafting") > strings.Index(summary, "Legal research") {
		t.Errorf("expected largest task first:\n%s", summary)
	}
}

func TestDailySummaryEmptyDay(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, "a@example.com")

	summary, err := f.reportSvc.DailySummary(context.Background(), *user, f.clock.Now())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary != "" {
		t.Errorf("expected empty summary for idle day, got %q", summary)
	}
}

func TestExportWindow(t *testing.T) {
	f := newFixture(t)
	now := f.clock.Now()

	from, to, err := f.reportSvc.ExportWindow("", "")
	if err != nil {
		t.Fatalf("default window: %v", err)
	}
	if !from.Equal(now.AddDate(0, 0, -30)) || !to.Equal(now) {
		t.Errorf("expected 30-day default window ending at the pinned clock, got [%v, %v)", from, to)
	}

	from, to, err = f.reportSvc.ExportWindow("2025-03-01", "2025-03-07")
	if err != nil {
		t.Fatalf("explicit window: %v", err)
	}
	if from.Format("2006-01-02") != "2025-03-01" {
		t.Errorf("unexpected from %v", from)
	}
	// The end date is inclusive, so the half-open bound is the next day.
	if to.Format("2006-01-02") != "2025-03-08" {
		t.Errorf("unexpected to %v", to)
	}

	for _, tc := range [][2]string{{"03/01/2025", ""}, {"", "yesterday"}} {
		if _, _, err := f.reportSvc.ExportWindow(tc[0], tc[1]); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for %q/%q, got %v", tc[0], tc[1], err)
		}
	}
}

func TestWriteCSV(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, "a@example.com")
	other := f.user(t, "b@example.com")
	task := f.task(t, user.ID, "Contract review")
	otherTask := f.task(t, other.ID, "Other user's work")
	ctx := context.Background()

	start := f.clock.Now()
	if _, err := f.timer.Start(ctx, user.ID, task.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	f.clock.Advance(45 * time.Minute)
	if _, err := f.timer.Stop(ctx, user.ID, task.ID); err != nil {
		t.Fatalf("stop: %v", err)
	}

	if _, err := f.timer.Start(ctx, other.ID, otherTask.ID); err != nil {
		t.Fatalf("other start: %v", err)
	}
	f.clock.Advance(time.Minute)
	if _, err := f.timer.Stop(ctx, other.ID, otherTask.ID); err != nil {
		t.Fatalf("other stop: %v", err)
	}

	var buf bytes.Buffer
	err := f.reportSvc.WriteCSV(ctx, &buf, *user, start.Add(-time.Hour), f.clock.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("csv: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected header + 1 row, got %d records", len(records))
	}
	header := strings.Join(records[0], ",")
	if header != "task,matter,category,start,end,duration_seconds" {
		t.Errorf("unexpected header %q", header)
	}
	row := records[1]
	if row[0] != "Contract review" {
		t.Errorf("expected own task only, got %q", row[0])
	}
	if row[5] != "2700" {
		t.Errorf("expected 2700 seconds, got %q", row[5])
	}
}
