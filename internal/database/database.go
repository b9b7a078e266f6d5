package database

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"leasing-sync/internal/config"
	"leasing-sync/internal/models"
)

// GormDB wraps a gorm connection to the relational store
type GormDB struct {
	db *gorm.DB
}

// NewMySQL opens a MySQL connection
func NewMySQL(cfg config.MySQLConfig) (*GormDB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	})
	if err != nil {
		return nil, err
	}
	return wrap(db)
}

// NewPostgres opens a PostgreSQL connection
func NewPostgres(cfg config.PostgresConfig) (*GormDB, error) {
	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, sslmode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}
	return wrap(db)
}

// New opens a connection according to the configured database type
func New(cfg config.DatabaseConfig) (*GormDB, error) {
	switch cfg.Type {
	case "mysql":
		return NewMySQL(cfg.MySQL)
	case "postgres":
		return NewPostgres(cfg.Postgres)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
}

// NewFromDB wraps an existing gorm.DB instance
func NewFromDB(db *gorm.DB) *GormDB {
	return &GormDB{db: db}
}

func wrap(db *gorm.DB) (*GormDB, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}
	return &GormDB{db: db}, nil
}

// DB returns the underlying gorm.DB instance
func (gdb *GormDB) DB() *gorm.DB {
	return gdb.db
}

func (gdb *GormDB) Close() error {
	sqlDB, err := gdb.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InitSchema creates tables using GORM AutoMigrate
func (gdb *GormDB) InitSchema() error {
	return gdb.db.AutoMigrate(
		&models.Property{},
		&models.Tenancy{},
		&models.Resident{},
		&models.Lease{},
		&models.Availability{},
		&models.UnitFlag{},
		&models.WorkOrder{},
		&models.UnitAlert{},
		&models.Delinquency{},
		&models.SolverEvent{},
		&models.SyncRun{},
	)
}
