package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"quote_dash/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Storage keeps symbol metadata and the session log in SQLite.
// Tick history is never written here; it lives only in the in-memory ring.
type Storage struct {
	db *gorm.DB
}

var _ domain.SymbolRepository = (*Storage)(nil)

// NewStorage opens (or creates) the database at path.
// An empty path resolves to the per-user config directory.
func NewStorage(path string) (*Storage, error) {
	dbPath := path
	if dbPath == "" {
		var err error
		dbPath, err = getDBPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve DB path: %w", err)
		}
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := migrate(db); err != nil {
		return nil, err
	}

	return &Storage{db: db}, nil
}

func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&domain.SymbolInfo{}, &domain.Session{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// getDBPath resolves the database file path based on OS
func getDBPath() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "QuoteDash", "data", "quotedash.db"), nil
}

// Close releases the underlying connection pool.
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ======================================================================================
// Symbol Operations
// ======================================================================================

// UpsertSymbol creates or updates symbol metadata
func (s *Storage) UpsertSymbol(info *domain.SymbolInfo) error {
	return s.db.Save(info).Error
}

// GetSymbol retrieves symbol metadata by feed id
func (s *Storage) GetSymbol(symbolID int64) (*domain.SymbolInfo, error) {
	var info domain.SymbolInfo
	err := s.db.First(&info, "symbol_id = ?", symbolID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Not found is not an error
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// ======================================================================================
// Session Operations
// ======================================================================================

// SaveSession creates or updates a session record
func (s *Storage) SaveSession(sess *domain.Session) error {
	return s.db.Save(sess).Error
}
