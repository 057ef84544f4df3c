package service

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// SchedulerService owns the background jobs: the daily timesheet summary
// send and the forgotten-timer watchdog.
type SchedulerService struct {
	cron *cron.Cron
}

func NewSchedulerService(loc *time.Location) *SchedulerService {
	return &SchedulerService{
		cron: cron.New(cron.WithLocation(loc)),
	}
}

// ScheduleDailySummaries registers the summary job at the given HH:MM local
// time, once per day.
func (s *SchedulerService) ScheduleDailySummaries(at string, job func()) error {
	parsed, err := time.Parse("15:04", at)
	if err != nil {
		return fmt.Errorf("invalid summary time %q, expected HH:MM: %w", at, err)
	}
	spec := fmt.Sprintf("%d %d * * *", parsed.Minute(), parsed.Hour())
	if _, err := s.cron.AddFunc(spec, job); err != nil {
		return fmt.Errorf("schedule daily summaries: %w", err)
	}
	return nil
}

// ScheduleWatchdog registers the open-session sweep at a fixed interval.
func (s *SchedulerService) ScheduleWatchdog(every time.Duration, job func()) error {
	if every < time.Second {
		return fmt.Errorf("watchdog interval %s is too short", every)
	}
	spec := fmt.Sprintf("@every %s", every.Round(time.Second))
	if _, err := s.cron.AddFunc(spec, job); err != nil {
		return fmt.Errorf("schedule watchdog: %w", err)
	}
	return nil
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

// Stop waits for a running job to finish before returning.
func (s *SchedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
