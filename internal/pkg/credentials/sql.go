package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// ErrNotFound is returned by Delete when a region has no stored entry
var ErrNotFound = errors.New("credentials not found")

// Record is the persistence model of an Entry.
// Table name: aws_credentials
type Record struct {
	Region      string    `gorm:"primaryKey;type:text;not null"`
	AccessKeyID string    `gorm:"type:text;not null"`
	SecretKey   string    `gorm:"type:text;not null"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (Record) TableName() string { return "aws_credentials" }

// SQLStore is a Store persisted in a sqlite database
type SQLStore struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open opens the sqlite database at dsn and migrates the credentials table.
// Use ":memory:" for a throwaway database.
func Open(dsn string, logger *slog.Logger) (*SQLStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("credentials database path is empty")
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: newGormLogger(logger)})
	if err != nil {
		return nil, fmt.Errorf("failed to open credentials database: %w", err)
	}

	return NewSQLStore(db, logger)
}

// newGormLogger sends gorm warnings and errors to logger instead of stdout.
// A missing region is an expected miss, not an error.
func newGormLogger(logger *slog.Logger) gormlogger.Interface {
	return gormlogger.New(slog.NewLogLogger(logger.Handler(), slog.LevelWarn), gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

// NewSQLStore uses an existing connection and migrates the credentials table
func NewSQLStore(db *gorm.DB, logger *slog.Logger) (*SQLStore, error) {
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("failed to migrate credentials table: %w", err)
	}

	return &SQLStore{db: db, logger: logger}, nil
}

// Lookup returns the entry stored for region. Database errors are logged and reported as absent.
func (s *SQLStore) Lookup(region string) (Entry, bool) {
	var rec Record
	if err := s.db.First(&rec, "region = ?", region).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("Failed to read credentials", "region", region, "error", err)
		}
		return Entry{}, false
	}

	return Entry{AccessKeyID: rec.AccessKeyID, SecretKey: rec.SecretKey}, true
}

// Save creates or replaces the entry for region
func (s *SQLStore) Save(ctx context.Context, region string, entry Entry) error {
	if region == "" {
		return fmt.Errorf("region is required")
	}

	rec := Record{Region: region, AccessKeyID: entry.AccessKeyID, SecretKey: entry.SecretKey}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "region"}},
		DoUpdates: clause.AssignmentColumns([]string{"access_key_id", "secret_key", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to save credentials for region %s: %w", region, err)
	}

	return nil
}

// Delete removes the entry for region
func (s *SQLStore) Delete(ctx context.Context, region string) error {
	res := s.db.WithContext(ctx).Delete(&Record{}, "region = ?", region)
	if res.Error != nil {
		return fmt.Errorf("failed to delete credentials for region %s: %w", region, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Regions lists every region with stored credentials, sorted by name
func (s *SQLStore) Regions(ctx context.Context) ([]string, error) {
	var regions []string
	if err := s.db.WithContext(ctx).Model(&Record{}).Order("region ASC").Pluck("region", &regions).Error; err != nil {
		return nil, fmt.Errorf("failed to list credential regions: %w", err)
	}

	return regions, nil
}

// Close releases the database connection
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
