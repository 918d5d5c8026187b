package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/database/models"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrUnsupportedDriver indicates an unknown database_driver setting
var ErrUnsupportedDriver = errors.New("unsupported database driver")

// Options selects and configures the database
type Options struct {
	Driver   string // sqlite, mysql
	Path     string // sqlite file
	DSN      string // mysql dsn
	LogLevel logger.LogLevel
}

// Initialize creates and returns a database connection
func Initialize(opts Options) (*gorm.DB, error) {
	dialector, err := dialectorFor(opts)
	if err != nil {
		return nil, err
	}

	level := opts.LogLevel
	if level == 0 {
		level = logger.Warn
	}

	// TranslateError maps driver unique violations to gorm.ErrDuplicatedKey
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func dialectorFor(opts Options) (gorm.Dialector, error) {
	switch strings.ToLower(opts.Driver) {
	case "", "sqlite":
		// Ensure the directory exists
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0755); err != nil {
			return nil, err
		}
		return sqlite.Open(opts.Path), nil
	case "mysql":
		if opts.DSN == "" {
			return nil, fmt.Errorf("%w: mysql requires database_dsn", ErrUnsupportedDriver)
		}
		return mysql.Open(opts.DSN), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, opts.Driver)
	}
}

// Migrate runs all database migrations
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.RFPVendor{},
		&models.EmailLog{},
		&models.Proposal{},
		&models.Log{},
	)
}
