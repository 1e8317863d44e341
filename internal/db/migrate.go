package db

import (
	"errors"
	"fmt"
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	// The following blank imports register the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/diewo77/pointex/internal/config"
	"github.com/diewo77/pointex/internal/models"
)

// Connect opens the database with a short retry loop so the app can start
// while Postgres is still coming up.
func Connect(cfg config.DatabaseConfig, debug bool) (*gorm.DB, error) {
	logLevel := logger.Silent
	if debug {
		logLevel = logger.Info
	}
	gormCfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	}

	var db *gorm.DB
	var err error
	for i := 0; i < 10; i++ {
		db, err = gorm.Open(postgres.Open(cfg.DSN()), gormCfg)
		if err == nil {
			break
		}
		fmt.Println("Retrying DB connection...", err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after retries: %w", err)
	}
	if pingErr := db.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}
	return db, nil
}

// Migrate applies the schema. With useSQL it runs the versioned SQL
// migrations in ./migrations via golang-migrate; otherwise it falls back to
// GORM AutoMigrate (dev convenience).
func Migrate(db *gorm.DB, dbURL string, useSQL bool) error {
	if useSQL {
		if err := runSQLMigrations(dbURL); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		tables := []any{
			&models.Role{}, &models.User{}, &models.Town{},
			&models.EducationalInstitution{}, &models.Beneficiary{},
			&models.Card{}, &models.Purchase{}, &models.PointsExchange{},
			&models.Notification{},
		}
		for _, m := range tables {
			if err := db.AutoMigrate(m); err != nil {
				return fmt.Errorf("automigrate %T: %w", m, err)
			}
		}
	}

	// sanity check: ensure required core tables exist
	for _, table := range []string{"roles", "users", "beneficiaries"} {
		if !db.Migrator().HasTable(table) {
			return errors.New("missing table after migration: " + table)
		}
	}
	return nil
}

// runSQLMigrations executes migrations in ./migrations using golang-migrate file source.
func runSQLMigrations(dbURL string) error {
	m, err := migrate.New("file://migrations", dbURL)
	if err != nil {
		return err
	}
	if err = m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

// Seed inserts the base roles and a starter set of towns and schools.
// Existing rows are left untouched.
func Seed(db *gorm.DB) error {
	for _, name := range []string{models.RoleAdmin, models.RoleBeneficiary, models.RoleShop} {
		var existing models.Role
		if err := db.Where("name = ?", name).First(&existing).Error; errors.Is(err, gorm.ErrRecordNotFound) {
			if err := db.Create(&models.Role{Name: name}).Error; err != nil {
				return fmt.Errorf("seed role %s: %w", name, err)
			}
		} else if err != nil {
			return err
		}
	}

	baseTowns := []string{"Rosario", "Santa Fe", "Rafaela", "Venado Tuerto"}
	towns := make(map[string]uint, len(baseTowns))
	for _, name := range baseTowns {
		var existing models.Town
		err := db.Where("name = ?", name).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			existing = models.Town{Name: name}
			if err := db.Create(&existing).Error; err != nil {
				return fmt.Errorf("seed town %s: %w", name, err)
			}
		} else if err != nil {
			return err
		}
		towns[name] = existing.ID
	}

	baseInstitutions := []struct {
		name string
		town string
	}{
		{"Escuela Normal Superior", "Rosario"},
		{"Instituto Politecnico", "Rosario"},
		{"Escuela Industrial Superior", "Santa Fe"},
	}
	for _, inst := range baseInstitutions {
		var existing models.EducationalInstitution
		err := db.Where("name = ?", inst.name).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := db.Create(&models.EducationalInstitution{Name: inst.name, TownID: towns[inst.town]}).Error; err != nil {
				return fmt.Errorf("seed institution %s: %w", inst.name, err)
			}
		} else if err != nil {
			return err
		}
	}
	return nil
}
