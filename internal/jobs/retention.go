package jobs

import (
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge"

	"mizan/internal/config"
	"mizan/internal/interactions"
	"mizan/internal/visits"
)

// retentionBatchSize bounds each delete statement so the writer lock is held
// briefly.
const retentionBatchSize = 1000

// RetentionJob removes visits and interactions older than the configured
// retention period.
type RetentionJob struct {
	dbManager cartridge.DBManager
	logger    *slog.Logger
	cfg       *config.Config
}

func NewRetentionJob(dbManager cartridge.DBManager, logger *slog.Logger, cfg *config.Config) *RetentionJob {
	return &RetentionJob{
		dbManager: dbManager,
		logger:    logger,
		cfg:       cfg,
	}
}

// Run deletes tracking rows older than the retention period. A retention of
// 0 days disables cleanup entirely. User and usage records are kept; only
// the high-volume visit and interaction tables are trimmed.
func (j *RetentionJob) Run() error {
	retentionDays := j.cfg.RetentionDays
	if retentionDays <= 0 {
		j.logger.Debug("Retention cleanup disabled")
		return nil
	}

	db := j.dbManager.GetConnection()
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)

	j.logger.Info("Starting retention cleanup",
		slog.Int("retention_days", retentionDays),
		slog.Time("cutoff", cutoff))

	deletedVisits, err := visits.DeleteOlderThan(db, cutoff, retentionBatchSize)
	if err != nil {
		j.logger.Error("Failed to delete old visits",
			slog.Any("error", err),
			slog.Int64("deleted_so_far", deletedVisits))
		return err
	}

	deletedInteractions, err := interactions.DeleteOlderThan(db, cutoff, retentionBatchSize)
	if err != nil {
		j.logger.Error("Failed to delete old interactions",
			slog.Any("error", err),
			slog.Int64("deleted_so_far", deletedInteractions))
		return err
	}

	if deletedVisits == 0 && deletedInteractions == 0 {
		j.logger.Debug("No tracking rows past retention")
		return nil
	}

	j.logger.Info("Retention cleanup finished",
		slog.Int64("deleted_visits", deletedVisits),
		slog.Int64("deleted_interactions", deletedInteractions),
		slog.Int("retention_days", retentionDays))

	return nil
}
