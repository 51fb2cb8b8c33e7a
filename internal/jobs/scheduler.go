package jobs

import (
	"context"
	"sync"
	"time"

	"log/slog"

	"mizan/internal/config"
	"mizan/internal/database"
)

// Scheduler is responsible for running background jobs
type Scheduler struct {
	dbManager *database.DBManager
	logger    *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	enabled   bool
	isRunning bool
	cfg       *config.Config

	// Mutex to prevent concurrent job executions
	processingMutex sync.Mutex
	isProcessing    bool

	retentionJob *RetentionJob
	geoLiteJob   *GeoLiteUpdaterJob

	retentionTicker *time.Ticker
	geoLiteTicker   *time.Ticker
}

func NewScheduler(dbManager *database.DBManager, logger *slog.Logger) (*Scheduler, error) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := config.GetConfig()

	s := &Scheduler{
		dbManager: dbManager,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		enabled:   true,
		isRunning: false,
		cfg:       cfg,
	}

	s.retentionJob = NewRetentionJob(dbManager, logger, cfg)
	s.geoLiteJob = NewGeoLiteUpdaterJob(dbManager, logger, cfg)

	return s, nil
}

// executeJobSafely runs a job only if no other job is currently executing
func (s *Scheduler) executeJobSafely(jobName string, jobFunc func() error) {
	s.processingMutex.Lock()
	if s.isProcessing {
		s.logger.Debug("Skipping job execution - previous job still running", slog.String("job", jobName))
		s.processingMutex.Unlock()
		return
	}
	s.isProcessing = true
	s.processingMutex.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic recovered in background job",
				slog.String("job", jobName),
				slog.Any("panic", r))
		}

		s.processingMutex.Lock()
		s.isProcessing = false
		s.processingMutex.Unlock()
	}()

	if err := jobFunc(); err != nil {
		s.logger.Error("Error executing job", slog.String("job", jobName), slog.Any("error", err))
	}
}

// Start begins all background jobs
func (s *Scheduler) Start() error {
	if !s.enabled {
		s.logger.Info("Background jobs are disabled.")
		return nil
	}

	if s.isRunning {
		s.logger.Info("Background jobs already running.")
		return nil
	}

	s.logger.Info("Starting background jobs...")

	s.isRunning = true

	s.startRetentionJob()
	s.startGeoLiteJob()

	s.logger.Info("Background jobs started",
		slog.Bool("enabled", s.enabled),
		slog.Bool("isRunning", s.isRunning))

	return nil
}

func (s *Scheduler) startRetentionJob() {
	interval := 24 * time.Hour
	s.logger.Info("Starting retention job", slog.Duration("interval", interval))
	s.retentionTicker = time.NewTicker(interval)

	go func() {
		// Run initial cleanup
		s.logger.Info("Running initial retention cleanup...")
		s.executeJobSafely("retention", s.retentionJob.Run)

		for {
			select {
			case <-s.retentionTicker.C:
				s.executeJobSafely("retention", s.retentionJob.Run)
			case <-s.ctx.Done():
				s.logger.Info("Retention job stopped")
				return
			}
		}
	}()
}

func (s *Scheduler) startGeoLiteJob() {
	// Checked daily; the job itself enforces the weekly update interval
	interval := 24 * time.Hour
	s.logger.Info("Starting GeoLite updater job", slog.Duration("interval", interval))
	s.geoLiteTicker = time.NewTicker(interval)

	go func() {
		s.executeJobSafely("geolite_updater", s.geoLiteJob.Run)

		for {
			select {
			case <-s.geoLiteTicker.C:
				s.executeJobSafely("geolite_updater", s.geoLiteJob.Run)
			case <-s.ctx.Done():
				s.logger.Info("GeoLite updater job stopped")
				return
			}
		}
	}()
}

// Stop halts all background jobs.
// Implements cartridge.BackgroundWorker interface.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background jobs...")
	s.enabled = false

	if s.retentionTicker != nil {
		s.retentionTicker.Stop()
	}
	if s.geoLiteTicker != nil {
		s.geoLiteTicker.Stop()
	}

	s.cancel()
	s.isRunning = false
	s.logger.Info("Background jobs stopped")
}

// IsRunning returns whether jobs are currently running
func (s *Scheduler) IsRunning() bool {
	return s.isRunning
}

// RunRetention allows manual triggering of the retention job.
func (s *Scheduler) RunRetention() error {
	if !s.enabled {
		return nil
	}
	return s.retentionJob.Run()
}
