package cmd

import (
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/frahmantamala/expense-assistant/internal"
)

const dbDriver = "pgx"

// Databases holds one pgx pool shared by the sqlx and gorm repositories.
type Databases struct {
	SQLX *sqlx.DB
	Gorm *gorm.DB
}

func (d *Databases) Close() error {
	if d == nil || d.SQLX == nil {
		return nil
	}
	return d.SQLX.Close()
}

func initDB(cfg internal.DatabaseConfig) (*Databases, error) {
	dbConn, err := sqlx.Connect(dbDriver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: dbConn.DB}), &gorm.Config{
		Logger:  gormLogger.Default.LogMode(gormLogger.Warn),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to open gorm session: %w", err)
	}

	return &Databases{SQLX: dbConn, Gorm: gdb}, nil
}
