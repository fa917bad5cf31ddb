// Package repositories provides data access layer implementations.
// It handles all database operations and data persistence logic.
package repositories

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"smartcoffee/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DBConfig holds database connection pool configuration
type DBConfig struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultDBConfig mirrors the pool sizes used in production.
var DefaultDBConfig = DBConfig{
	MaxIdleConns:    10,
	MaxOpenConns:    100,
	ConnMaxLifetime: time.Hour,
	ConnMaxIdleTime: time.Minute * 30,
}

// NewGormConfig returns the gorm settings shared by every dialect.
// Duplicate-key errors are translated to gorm.ErrDuplicatedKey.
func NewGormConfig() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger: logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  logger.Warn, // Only log warnings and errors
				IgnoreRecordNotFoundError: true,
				Colorful:                  true,
			},
		),
	}
}

// SQLitePrefix selects the embedded sqlite store, e.g. sqlite://smartcoffee.db.
const SQLitePrefix = "sqlite://"

// Open connects to Postgres using a connection URI and configures the pool.
// A sqlite:// URL opens a local file instead, for development without Postgres.
func Open(databaseURL string, poolCfg DBConfig) (*gorm.DB, error) {
	if path, ok := strings.CutPrefix(databaseURL, SQLitePrefix); ok {
		return OpenSQLite(path)
	}

	db, err := gorm.Open(postgres.Open(withSSL(databaseURL)), NewGormConfig())
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(poolCfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(poolCfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(poolCfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(poolCfg.ConnMaxIdleTime)

	return db, nil
}

// OpenSQLite opens a sqlite database on a single connection, which keeps
// ":memory:" databases shared across queries.
func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), NewGormConfig())
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// withSSL requires TLS on hosted databases unless the URI already chooses a mode.
func withSSL(databaseURL string) string {
	u, err := url.Parse(databaseURL)
	if err != nil || u.Scheme == "" {
		return databaseURL
	}
	q := u.Query()
	if q.Get("sslmode") != "" {
		return databaseURL
	}
	host := u.Hostname()
	if host == "localhost" || host == "127.0.0.1" || strings.HasPrefix(host, "/") {
		q.Set("sslmode", "disable")
	} else {
		q.Set("sslmode", "require")
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Migrate creates or updates every table used by the kiosk.
func Migrate(db *gorm.DB) error {
	if err := backfillLegacySales(db); err != nil {
		return fmt.Errorf("backfill legacy sales: %w", err)
	}
	return db.AutoMigrate(
		&models.ConfigEntry{},
		&models.Dosage{},
		&models.Inventory{},
		&models.Cost{},
		&models.Sale{},
	)
}

// backfillLegacySales prepares a sales table created before idempotency keys
// existed. The column is added without constraints and filled with
// legacy-<id>, so AutoMigrate can then make it NOT NULL and unique.
func backfillLegacySales(db *gorm.DB) error {
	m := db.Migrator()
	if !m.HasTable(&models.Sale{}) {
		return nil
	}
	if !m.HasColumn(&models.Sale{}, "IdempotencyKey") {
		if err := db.Exec("ALTER TABLE sales ADD COLUMN idempotency_key VARCHAR(64)").Error; err != nil {
			return err
		}
	}
	if err := db.Exec("UPDATE sales SET idempotency_key = 'legacy-' || id WHERE idempotency_key IS NULL OR idempotency_key = ''").Error; err != nil {
		return err
	}
	return db.Exec("UPDATE sales SET external_reference = 'legacy-' || id WHERE external_reference IS NULL").Error
}

// Seed fills empty tables with the factory menu, config and a full machine.
func Seed(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Dosage{}).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		dosages := []models.Dosage{
			{ID: 1, Name: "Expresso Clássico", ML: 30, Price: decimal.RequireFromString("4.50"), TimeS: 5, Active: true},
			{ID: 2, Name: "Duplo", ML: 50, Price: decimal.RequireFromString("6.00"), TimeS: 8, Active: true},
			{ID: 3, Name: "Lungo", ML: 75, Price: decimal.RequireFromString("7.50"), TimeS: 11, Active: true},
		}
		if err := db.Create(&dosages).Error; err != nil {
			return err
		}
		if err := syncSequence(db, "dosages"); err != nil {
			return err
		}
	}

	if err := db.Model(&models.ConfigEntry{}).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		entries := []models.ConfigEntry{
			{Key: models.ConfigBannerURL, Value: "https://images.unsplash.com/photo-1511920183273-3c9c41b8a5b7?q=80&w=1887&auto=format&fit=crop"},
			{Key: models.ConfigWaterCapacity, Value: "1800"},
			{Key: models.ConfigCoffeeCapacity, Value: "250"},
		}
		if err := db.Create(&entries).Error; err != nil {
			return err
		}
	}

	if err := db.Model(&models.Inventory{}).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		inv := models.Inventory{
			ID:          models.InventoryID,
			CoffeeGrams: decimal.NewFromInt(250),
			WaterML:     decimal.NewFromInt(1800),
		}
		if err := db.Create(&inv).Error; err != nil {
			return err
		}
	}

	log.Println("✅ Database seeded")
	return nil
}

// syncSequence moves a Postgres serial past explicitly inserted ids.
func syncSequence(db *gorm.DB, table string) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	return db.Exec(
		"SELECT setval(pg_get_serial_sequence(?, 'id'), (SELECT COALESCE(MAX(id), 1) FROM "+table+"))",
		table,
	).Error
}
