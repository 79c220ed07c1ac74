package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/sebuszqo/TaskManager/internal/config"
)

// DBService represents a service that interacts with a database.
type DBService struct {
	DB     *sql.DB
	Gorm   *gorm.DB
	logger *zap.Logger
}

// NewDBService opens the configured driver and pings it.
func NewDBService(driver, connStr string, logger *zap.Logger) (*DBService, error) {
	if connStr == "" {
		return nil, fmt.Errorf("missing DB_CONNECTION_STRING in environment variables")
	}

	switch driver {
	case config.DriverPostgres:
		return newPostgresService(connStr, logger)
	case config.DriverSQLite:
		return newSQLiteService(connStr, logger)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func newPostgresService(connStr string, logger *zap.Logger) (*DBService, error) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("could not open db connection: %w", err)
	}

	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not connect to the database: %w", err)
	}

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), gormConfig())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not initialize gorm: %w", err)
	}

	logger.Info("Connected to database", zap.String("driver", config.DriverPostgres))
	return &DBService{DB: db, Gorm: gormDB, logger: logger}, nil
}

func newSQLiteService(dsn string, logger *zap.Logger) (*DBService, error) {
	gormDB, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("could not open db connection: %w", err)
	}

	db, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("could not access sql.DB: %w", err)
	}
	// sqlite allows a single writer, and every new connection to ":memory:"
	// is a separate database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not connect to the database: %w", err)
	}

	logger.Info("Connected to database", zap.String("driver", config.DriverSQLite))
	return &DBService{DB: db, Gorm: gormDB, logger: logger}, nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}
}

// Migrate creates or updates the tables backing the given models.
func (s *DBService) Migrate(models ...interface{}) error {
	s.logger.Info("Running database migrations")
	if err := s.Gorm.AutoMigrate(models...); err != nil {
		return fmt.Errorf("could not migrate database: %w", err)
	}
	return nil
}

// Health checks the health of the database connection by pinging the database.
func (s *DBService) Health(ctx context.Context) map[string]string {
	stats := make(map[string]string)

	err := s.DB.PingContext(ctx)
	if err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "It's healthy"
	return stats
}

// Close closes the database connection.
func (s *DBService) Close() error {
	s.logger.Info("Closing database connection")
	return s.DB.Close()
}
