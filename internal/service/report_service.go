package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"legal-timer/internal/model"
	"legal-timer/internal/repository"
)

// ReportService builds billable-time rollups: the daily summary text sent to
// linked Telegram chats and the CSV timesheet export.
type ReportService struct {
	tasks      *repository.TaskRepository
	categories *repository.CategoryRepository
	ledger     *repository.SessionRepository
	now        Clock
}

func NewReportService(tasks *repository.TaskRepository, categories *repository.CategoryRepository, ledger *repository.SessionRepository, now Clock) *ReportService {
	if now == nil {
		now = time.Now
	}
	return &ReportService{tasks: tasks, categories: categories, ledger: ledger, now: now}
}

// ExportWindow resolves optional YYYY-MM-DD bounds into a half-open range.
// Defaults to the last 30 days; an explicit end date is inclusive.
func (s *ReportService) ExportWindow(fromStr, toStr string) (time.Time, time.Time, error) {
	now := s.now()
	from := now.AddDate(0, 0, -30)
	to := now

	if fromStr != "" {
		parsed, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: bad from date %q", ErrInvalidInput, fromStr)
		}
		from = parsed
	}
	if toStr != "" {
		parsed, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: bad to date %q", ErrInvalidInput, toStr)
		}
		to = parsed.AddDate(0, 0, 1)
	}
	return from, to, nil
}

// DailySummary renders the user's billed time for the calendar day
// containing now, grouped by task, largest first. Returns empty string when
// nothing was billed, so callers can skip the notification.
func (s *ReportService) DailySummary(ctx context.Context, user model.User, now time.Time) (string, error) {
	loc := now.Location()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	dayEnd := dayStart.Add(24 * time.Hour)

	sessions, err := s.ledger.ClosedInRange(ctx, user.ID, dayStart, dayEnd)
	if err != nil {
		return "", err
	}
	if len(sessions) == 0 {
		return "", nil
	}

	perTask := make(map[uint]int64)
	var total int64
	for _, session := range sessions {
		perTask[session.TaskID] += session.DurationSeconds
		total += session.DurationSeconds
	}

	taskIDs := make([]uint, 0, len(perTask))
	for id := range perTask {
		taskIDs = append(taskIDs, id)
	}
	sort.Slice(taskIDs, func(i, j int) bool { return perTask[taskIDs[i]] > perTask[taskIDs[j]] })

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Timesheet for %s\n", dayStart.Format("2006-01-02")))
	for _, id := range taskIDs {
		task, err := s.tasks.FindByID(ctx, user.ID, id)
		if err != nil {
			return "", fmt.Errorf("load task %d: %w", id, err)
		}
		line := fmt.Sprintf("• %s — %s", task.Title, formatDuration(perTask[id]))
		if task.Matter != "" {
			line += fmt.Sprintf(" (%s)", task.Matter)
		}
		builder.WriteString(line)
		builder.WriteByte('\n')
	}
	builder.WriteString(fmt.Sprintf("Total: %s", formatDuration(total)))
	return builder.String(), nil
}

// WriteCSV streams the user's closed sessions in [from, to) as CSV.
func (s *ReportService) WriteCSV(ctx context.Context, w io.Writer, user model.User, from, to time.Time) error {
	sessions, err := s.ledger.ClosedInRange(ctx, user.ID, from, to)
	if err != nil {
		return err
	}

	categoryNames := make(map[uint]string)
	categories, err := s.categories.List(ctx)
	if err != nil {
		return err
	}
	for _, category := range categories {
		categoryNames[category.ID] = category.Name
	}

	taskCache := make(map[uint]*model.Task)
	task := func(id uint) (*model.Task, error) {
		if cached, ok := taskCache[id]; ok {
			return cached, nil
		}
		loaded, err := s.tasks.FindByID(ctx, user.ID, id)
		if err != nil {
			return nil, fmt.Errorf("load task %d: %w", id, err)
		}
		taskCache[id] = loaded
		return loaded, nil
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"task", "matter", "category", "start", "end", "duration_seconds"}); err != nil {
		return err
	}
	for _, session := range sessions {
		t, err := task(session.TaskID)
		if err != nil {
			return err
		}
		category := ""
		if t.CategoryID != nil {
			category = categoryNames[*t.CategoryID]
		}
		record := []string{
			t.Title,
			t.Matter,
			category,
			session.StartTime.Format(time.RFC3339),
			session.EndTime.Format(time.RFC3339),
			strconv.FormatInt(session.DurationSeconds, 10),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatDuration(seconds int64) string {
	d := time.Duration(seconds) * time.Second
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	if hours == 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %02dm", hours, minutes)
}
