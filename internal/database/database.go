package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"surveybot/internal/config"
	logging "surveybot/internal/logging"
	"surveybot/internal/models"
)

// Init opens the configured database and runs migrations. The driver is
// selected by config: sqlite is the default single-file deployment,
// postgres is for shared installs.
func Init(log *zap.Logger) (*gorm.DB, error) {
	dbConf := config.Get().Database

	var dialector gorm.Dialector
	switch dbConf.Driver {
	case "sqlite", "":
		dialector = sqlite.Open(dbConf.Path)
	case "postgres":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			dbConf.Host, dbConf.User, dbConf.Password, dbConf.DBName, dbConf.Port)
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unknown database driver %q", dbConf.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logging.NewGormZapLogger(log),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Info("Database connection established successfully.",
		zap.String("driver", dbConf.Driver))

	if err := runMigrations(db); err != nil {
		return nil, err
	}
	log.Info("Database migrations completed successfully.")
	return db, nil
}

func runMigrations(db *gorm.DB) error {
	// GORM's AutoMigrate creates tables, columns, and the declared indexes.
	err := db.AutoMigrate(
		&models.User{},
		&models.Questionnaire{},
		&models.Question{},
		&models.Attempt{},
		&models.Answer{},
	)
	if err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	return nil
}
