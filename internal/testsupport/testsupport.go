package testsupport

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/cache"
	ctestsupport "github.com/karloscodes/cartridge/testsupport"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"mizan/internal"
	"mizan/internal/config"
	"mizan/internal/interactions"
	"mizan/internal/settings"
	"mizan/internal/usage"
	"mizan/internal/users"
	"mizan/internal/visits"
)

// testDBCache caches test databases by test name to allow multiple calls
// within the same test to share the same database
var testDBCache = make(map[string]*gorm.DB)
var testDBCacheMu sync.Mutex

// TestDBManager wraps cartridge's TestDBManager with mizan's interface
type TestDBManager struct {
	*ctestsupport.TestDBManager
}

// NewTestDBManager creates a TestDBManager that implements cartridge.DBManager
func NewTestDBManager(db *gorm.DB) *TestDBManager {
	return &TestDBManager{
		TestDBManager: ctestsupport.NewTestDBManager(db),
	}
}

// Ensure TestDBManager implements cartridge.DBManager
var _ cartridge.DBManager = (*TestDBManager)(nil)

// allModels returns all mizan models for migration
func allModels() []any {
	return []any{
		&cache.CacheRecord{},
		&users.User{},
		&visits.Visit{},
		&interactions.Interaction{},
		&usage.ChatUsage{},
		&settings.Setting{},
	}
}

// SetupTestDB creates a test database with all mizan models migrated.
// Uses a named in-memory database with cache=shared to allow multiple connections
// to share the same database within a test. Caches the database by test name
// so multiple calls within the same test return the same database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	testName := t.Name()

	// Use root test name for caching to handle closure issues where
	// setup functions capture the outer t while t.Run has subtest t
	rootName := testName
	if idx := strings.Index(testName, "/"); idx > 0 {
		rootName = testName[:idx]
	}

	testDBCacheMu.Lock()
	if db, exists := testDBCache[rootName]; exists {
		testDBCacheMu.Unlock()
		return db
	}
	testDBCacheMu.Unlock()

	// Create a unique named in-memory database for each test
	// cache=shared allows multiple connections to the same database
	sanitizedName := strings.ReplaceAll(rootName, "/", "_")
	dsn := fmt.Sprintf("file:test_%s_%d?mode=memory&cache=shared", sanitizedName, time.Now().UnixNano())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("testsupport: failed to open test database: %v", err)
	}

	db.Exec("PRAGMA foreign_keys = ON")
	db.Exec("PRAGMA journal_mode = WAL")

	if err := db.AutoMigrate(allModels()...); err != nil {
		t.Fatalf("testsupport: failed to migrate models: %v", err)
	}

	testDBCacheMu.Lock()
	testDBCache[rootName] = db
	testDBCacheMu.Unlock()

	t.Cleanup(func() {
		testDBCacheMu.Lock()
		delete(testDBCache, rootName)
		testDBCacheMu.Unlock()
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	return db
}

// SetupTestDBManager creates a test DB manager using cartridge's testsupport
func SetupTestDBManager(t *testing.T) (*TestDBManager, *slog.Logger) {
	cfg := config.GetConfig()

	// SAFETY CHECK: Ensure we're in test environment
	if cfg.Environment != config.Test {
		t.Fatalf("CRITICAL: Tests must run in test environment! Current: %s. Set MIZAN_ENV=test", cfg.Environment)
	}

	db := SetupTestDB(t)
	logger := GetLogger()
	dbManager := NewTestDBManager(db)

	return dbManager, logger
}

// CleanAllTables clears all non-system tables in the database
func CleanAllTables(db *gorm.DB) {
	var tableNames []string
	db.Raw("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'").Scan(&tableNames)

	var tables []string
	for _, name := range tableNames {
		if name != "migrations" && name != "schema_migrations" {
			tables = append(tables, name)
		}
	}

	if len(tables) == 0 {
		return
	}

	db.Exec("PRAGMA foreign_keys = OFF")
	defer db.Exec("PRAGMA foreign_keys = ON")

	db.Transaction(func(tx *gorm.DB) error {
		for _, table := range tables {
			tx.Exec("DELETE FROM " + table)
			tx.Exec("DELETE FROM sqlite_sequence WHERE name=?", table)
		}
		return nil
	})
}

// CreateTestUser creates a user row directly in the database
func CreateTestUser(t *testing.T, db *gorm.DB, email string, registered bool) *users.User {
	t.Helper()

	var user users.User
	if db.Where("email = ?", email).First(&user).Error == nil {
		return &user
	}

	user = users.User{
		Email:        email,
		IsRegistered: registered,
		CreatedAt:    time.Now().UTC(),
		LastSeenAt:   time.Now().UTC(),
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

// CreateTestVisit creates a visit row directly in the database
func CreateTestVisit(t *testing.T, db *gorm.DB, sessionID, path string, createdAt time.Time) *visits.Visit {
	t.Helper()

	visit := visits.Visit{
		SessionID: sessionID,
		Path:      path,
		Country:   visits.UnknownCountry,
		CreatedAt: createdAt,
	}
	require.NoError(t, db.Create(&visit).Error)
	return &visit
}

// CreateTestInteraction creates an interaction row directly in the database
func CreateTestInteraction(t *testing.T, db *gorm.DB, sessionID, question string, createdAt time.Time) *interactions.Interaction {
	t.Helper()

	interaction := interactions.Interaction{
		SessionID:    sessionID,
		QuestionText: question,
		SourcePage:   interactions.SourceChat,
		CreatedAt:    createdAt,
	}
	require.NoError(t, db.Create(&interaction).Error)
	return &interaction
}

// CreateTestUsage creates a chat usage row directly in the database
func CreateTestUsage(t *testing.T, db *gorm.DB, userID string, count int, registered bool, lastUsedAt time.Time) *usage.ChatUsage {
	t.Helper()

	record := usage.ChatUsage{
		UserID:       userID,
		IsRegistered: registered,
		UsageCount:   count,
		FirstUsedAt:  lastUsedAt,
		LastUsedAt:   lastUsedAt,
	}
	require.NoError(t, db.Create(&record).Error)
	return &record
}

// GetLogger returns a test logger
func GetLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler)
}

// CreateMinimalTestApp creates a test Fiber app with all routes
func CreateMinimalTestApp(t *testing.T, db *gorm.DB) *fiber.App {
	t.Helper()

	dbManager := NewTestDBManager(db)
	appConfig := config.GetConfig()
	appConfig.Environment = config.Test

	cfg := cartridge.DefaultServerConfig()
	cfg.Config = appConfig
	cfg.Logger = GetLogger()
	cfg.DBManager = dbManager

	srv, err := cartridge.NewServer(cfg)
	require.NoError(t, err)

	internal.MountAppRoutes(srv)
	return srv.App()
}
