package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/rs/zerolog/log"
)

func (app *application) ConnectToDB(ctx context.Context) (*sql.DB, error) {
	return connectToDB(ctx, app.Config.DSN)
}

func connectToDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := openDB(ctx, dsn)
	if err != nil {
		return nil, err
	}

	log.Info().Str("database", databaseName(dsn)).Msg("database connection established")
	return db, nil
}

func openDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxIdleTime(15 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// databaseName extracts the database name from a DSN for migration bookkeeping.
func databaseName(dsn string) string {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil || cfg.Database == "" {
		return "postgres"
	}
	return cfg.Database
}
