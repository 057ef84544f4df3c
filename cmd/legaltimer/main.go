package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"legal-timer/internal/api"
	"legal-timer/internal/config"
	"legal-timer/internal/notify"
	"legal-timer/internal/repository"
	"legal-timer/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	userRepo := repository.NewUserRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	sessionRepo := repository.NewSessionRepository(db)

	authSvc := service.NewAuthService(userRepo, cfg.SecretKey, cfg.TokenTTL, nil)
	taskSvc := service.NewTaskService(taskRepo, categoryRepo, sessionRepo, nil)
	timerSvc := service.NewTimerService(db, taskRepo, sessionRepo, nil)
	reportSvc := service.NewReportService(taskRepo, categoryRepo, sessionRepo, nil)

	var notifier *notify.Notifier
	if cfg.TelegramToken != "" {
		notifier, err = notify.NewNotifier(cfg.TelegramToken, userRepo)
		if err != nil {
			log.Fatalf("telegram: %v", err)
		}
	}

	scheduler := service.NewSchedulerService(time.Local)
	if notifier != nil {
		if err := scheduler.ScheduleDailySummaries(cfg.SummaryTime, func() {
			jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := notifier.SendDailySummaries(jobCtx, reportSvc, time.Now()); err != nil {
				log.Printf("[warn] daily summaries: %v", err)
			}
		}); err != nil {
			log.Fatalf("schedule summaries: %v", err)
		}
	}
	if err := scheduler.ScheduleWatchdog(time.Hour, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		cutoff := time.Now().Add(-cfg.WatchdogAfter)
		sessions, err := sessionRepo.OpenLongerThan(jobCtx, cutoff)
		if err != nil {
			log.Printf("[warn] watchdog: %v", err)
			return
		}
		for _, session := range sessions {
			log.Printf("[warn] session %d on task %d open since %s", session.ID, session.TaskID, session.StartTime.Format(time.RFC3339))
		}
	}); err != nil {
		log.Fatalf("schedule watchdog: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	server := api.NewServer(cfg.HTTPAddr, authSvc, taskSvc, timerSvc, reportSvc, userRepo, categoryRepo, notifier)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	log.Println("Legal task timer started.")
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server: %v", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("[warn] shutdown: %v", err)
		}
	}
	log.Println("Shutdown complete.")
}
