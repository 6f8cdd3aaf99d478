package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vendalab/impact-backend/internal/logger"
	"github.com/vendalab/impact-backend/internal/types"
	"github.com/vendalab/impact-backend/internal/utils"
)

type DatabaseService struct {
	db     *gorm.DB
	driver string
	log    *logger.Logger
}

// NewDatabaseService opens Postgres by default; DB_DRIVER=sqlite switches to
// a local SQLite file for development. TranslateError normalizes driver
// errors to gorm's sentinels so callers branch the same way on both drivers.
func NewDatabaseService(log *logger.Logger) (*DatabaseService, error) {
	serviceLog := log.With("service", "DatabaseService")

	driver := utils.GetEnv("DB_DRIVER", "postgres", log)
	gormCfg := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	}

	var conn *gorm.DB
	var err error
	switch driver {
	case "sqlite":
		path := utils.GetEnv("SQLITE_PATH", "impact.db", log)
		log.Info("Connecting to SQLite...", "path", path)
		conn, err = gorm.Open(sqlite.Open(path), gormCfg)
	default:
		driver = "postgres"
		host := utils.GetEnv("POSTGRES_HOST", "localhost", log)
		port := utils.GetEnv("POSTGRES_PORT", "5432", log)
		user := utils.GetEnv("POSTGRES_USER", "postgres", log)
		password := utils.GetEnv("POSTGRES_PASSWORD", "", log)
		name := utils.GetEnv("POSTGRES_NAME", "impact", log)
		dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, name)
		log.Info("Connecting to Postgres...")
		conn, err = gorm.Open(postgres.Open(dsn), gormCfg)
	}
	if err != nil {
		serviceLog.Error("Failed to connect to database", "driver", driver, "error", err)
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}

	return &DatabaseService{db: conn, driver: driver, log: serviceLog}, nil
}

func (s *DatabaseService) AutoMigrateAll() error {
	s.log.Info("Auto migrating tables...", "driver", s.driver)
	err := s.db.AutoMigrate(
		&types.User{},
		&types.UserToken{},
		&types.RewardEntry{},
		&types.UserProgress{},
		&types.EventPhaseState{},
		&types.DiagnosticEntry{},
		&types.GeneratedContent{},
		&types.Notification{},
		&types.SurveyResponse{},
		&types.InteractionEntry{},
	)
	if err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	return nil
}

func (s *DatabaseService) DB() *gorm.DB {
	return s.db
}

func (s *DatabaseService) Driver() string {
	return s.driver
}
