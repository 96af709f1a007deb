package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"events-calendar/data/migrations"
	"events-calendar/data/models"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/pgx"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog/log"
)

// Store is everything the HTTP surfaces need: the user directory and the
// event store.
type Store interface {
	UserDirectory
	EventStore
}

type DBRepo interface {
	Store
	Connection() *sql.DB
	RunMigrations(dbName string) error
	Create(ctx context.Context, m models.Model) (id int64, err error)
	Update(ctx context.Context, m models.Model) error
	Delete(ctx context.Context, m models.Model) error
	GetModelByID(ctx context.Context, m models.Model, id int64) (models.Model, error)
}

type SqlRepo struct {
	DB *sql.DB
}

func (sr *SqlRepo) Connection() *sql.DB {
	return sr.DB
}

// RunMigrations applies the embedded migrations to the connected database.
func (sr *SqlRepo) RunMigrations(dbName string) error {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	driver, err := pgx.WithInstance(sr.DB, &pgx.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, dbName, driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info().Str("database", dbName).Msg("migrations already up to date")
			return nil
		}
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info().Str("database", dbName).Msg("migrations complete")
	return nil
}

// Create inserts a model into the corresponding db table and returns id of the
// newly created record.
func (sr *SqlRepo) Create(ctx context.Context, m models.Model) (id int64, err error) {
	vals := models.GetValsFromModel(m)

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		m.TableName(),
		strings.Join(m.ColumnNames(), ", "),
		placeholders(len(vals)))

	stmt, err := sr.DB.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("error preparing query: %w", err)
	}
	defer stmt.Close()

	row := stmt.QueryRowContext(ctx, vals...)
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("error executing query: %w", err)
	}

	return id, nil
}

func (sr *SqlRepo) Update(ctx context.Context, m models.Model) error {
	columns := m.ColumnNames()

	setClause := make([]string, len(columns))
	for i, c := range columns {
		setClause[i] = fmt.Sprintf("%s = $%d", c, i+1)
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d",
		m.TableName(),
		strings.Join(setClause, ", "),
		len(columns)+1)

	stmt, err := sr.DB.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("error preparing query: %w", err)
	}
	defer stmt.Close()

	vals := models.GetValsFromModel(m)
	vals = append(vals, m.GetID())
	res, err := stmt.ExecContext(ctx, vals...)
	if err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}
	return requireAffected(res, m)
}

func (sr *SqlRepo) Delete(ctx context.Context, m models.Model) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", m.TableName())
	stmt, err := sr.DB.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("error preparing query: %w", err)
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(ctx, m.GetID())
	if err != nil {
		return fmt.Errorf("error deleting record: %w", err)
	}
	return requireAffected(res, m)
}

// GetModelByID retrieves a model from the db by its ID and returns it. The
// model must be passed as a pointer to the desired model type.
func (sr *SqlRepo) GetModelByID(ctx context.Context, m models.Model, id int64) (models.Model, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", models.SelectColumns(m, ""), m.TableName())
	r := sr.DB.QueryRowContext(ctx, query, id)

	if err := models.ScanRowToModel(m, r); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s %d: %w", m.TableName(), id, ErrNotFound)
		}
		return nil, err
	}
	return m, nil
}

func requireAffected(res sql.Result, m models.Model) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", m.TableName(), m.GetID(), ErrNotFound)
	}
	return nil
}

func placeholders(n int) string {
	return placeholdersFrom(1, n)
}

func placeholdersFrom(start, n int) string {
	ph := make([]string, n)
	for i := 0; i < n; i++ {
		ph[i] = fmt.Sprintf("$%d", start+i)
	}
	return strings.Join(ph, ", ")
}
