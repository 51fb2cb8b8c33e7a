package jobs

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge"

	"mizan/internal/config"
	"mizan/internal/pkg/geoip"
	"mizan/internal/settings"
)

const (
	// GeoLite database is updated weekly by MaxMind
	GeoLiteUpdateInterval = 7 * 24 * time.Hour
	// MaxMind download URL template, filled with the license key
	MaxMindDownloadURL = "https://download.maxmind.com/app/geoip_download?edition_id=GeoLite2-Country&license_key=%s&suffix=tar.gz"
	// Settings key storing the time of the last successful update
	KeyGeoLiteLastUpdate = "geolite_last_update"
)

// GeoLiteUpdaterJob keeps the GeoLite country database fresh. Credentials
// live in settings; without them the job is a no-op, since country
// enrichment is optional.
type GeoLiteUpdaterJob struct {
	dbManager   cartridge.DBManager
	logger      *slog.Logger
	cfg         *config.Config
	downloadURL string
}

func NewGeoLiteUpdaterJob(dbManager cartridge.DBManager, logger *slog.Logger, cfg *config.Config) *GeoLiteUpdaterJob {
	return &GeoLiteUpdaterJob{
		dbManager:   dbManager,
		logger:      logger,
		cfg:         cfg,
		downloadURL: MaxMindDownloadURL,
	}
}

// SetDownloadURL overrides the download URL template. The template must
// contain a single %s for the license key.
func (j *GeoLiteUpdaterJob) SetDownloadURL(urlTemplate string) {
	j.downloadURL = urlTemplate
}

// Run refreshes the GeoLite database when credentials are configured and the
// current copy is older than the update interval. After a successful
// download the in-memory reader is reloaded so visit tracking picks up the
// new data immediately.
func (j *GeoLiteUpdaterJob) Run() error {
	db := j.dbManager.GetConnection()

	accountID, licenseKey, err := settings.GetGeoLiteCredentials(db)
	if err != nil {
		j.logger.Debug("Failed to get GeoLite credentials", slog.Any("error", err))
		return nil
	}

	if accountID == "" || licenseKey == "" {
		j.logger.Debug("GeoLite credentials not configured, skipping update")
		return nil
	}

	lastUpdate := j.getLastUpdateTime()
	if time.Since(lastUpdate) < GeoLiteUpdateInterval {
		j.logger.Debug("GeoLite database is up to date",
			slog.Time("last_update", lastUpdate),
			slog.Duration("age", time.Since(lastUpdate)))
		return nil
	}

	j.logger.Info("Starting GeoLite database update",
		slog.Time("last_update", lastUpdate))

	if err := j.downloadAndUpdate(licenseKey); err != nil {
		j.logger.Error("Failed to update GeoLite database", slog.Any("error", err))
		return err
	}

	geoip.ReloadGeoDB()

	if err := j.setLastUpdateTime(time.Now().UTC()); err != nil {
		j.logger.Error("Failed to update last update time", slog.Any("error", err))
	}

	j.logger.Info("GeoLite database updated successfully")
	return nil
}

func (j *GeoLiteUpdaterJob) getLastUpdateTime() time.Time {
	db := j.dbManager.GetConnection()
	lastUpdateStr, err := settings.GetSetting(db, KeyGeoLiteLastUpdate)
	if err != nil || lastUpdateStr == "" {
		return time.Time{}
	}

	lastUpdate, err := time.Parse(time.RFC3339, lastUpdateStr)
	if err != nil {
		return time.Time{}
	}
	return lastUpdate
}

func (j *GeoLiteUpdaterJob) setLastUpdateTime(t time.Time) error {
	db := j.dbManager.GetConnection()
	return settings.CreateOrUpdateSetting(db, KeyGeoLiteLastUpdate, t.Format(time.RFC3339))
}

// downloadAndUpdate downloads the tar.gz archive and extracts the mmdb file
// into place.
func (j *GeoLiteUpdaterJob) downloadAndUpdate(licenseKey string) error {
	geoDBPath := j.cfg.GeoDBPath
	if geoDBPath == "" {
		geoDBPath = filepath.Join("storage", "GeoLite2-Country.mmdb")
	}

	dir := filepath.Dir(geoDBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	downloadURL := fmt.Sprintf(j.downloadURL, licenseKey)
	resp, err := http.Get(downloadURL)
	if err != nil {
		return fmt.Errorf("failed to download GeoLite database: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}

	tempFile, err := os.CreateTemp("", "geolite-*.tar.gz")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tempFile.Name())
	defer tempFile.Close()

	if _, err := io.Copy(tempFile, resp.Body); err != nil {
		return fmt.Errorf("failed to save download: %w", err)
	}

	if _, err := tempFile.Seek(0, 0); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}

	if err := j.extractMMDB(tempFile, geoDBPath); err != nil {
		return fmt.Errorf("failed to extract database: %w", err)
	}

	return nil
}

// extractMMDB extracts the .mmdb file from the tar.gz archive
func (j *GeoLiteUpdaterJob) extractMMDB(tarGzFile *os.File, destPath string) error {
	gzr, err := gzip.NewReader(tarGzFile)
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzr.Close()

	tr := tar.NewReader(gzr)

	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read tar: %w", err)
		}

		if strings.HasSuffix(header.Name, ".mmdb") {
			outFile, err := os.Create(destPath)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer outFile.Close()

			if _, err := io.Copy(outFile, tr); err != nil {
				return fmt.Errorf("failed to extract file: %w", err)
			}

			return nil
		}
	}

	return fmt.Errorf("no .mmdb file found in archive")
}
