package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fjod/go_pizza/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to :memory: is a separate database.
	if strings.Contains(dbPath, ":memory:") {
		db.SetMaxOpenConns(1)
		db.SetConnMaxLifetime(0)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) RunMigrations(migrationsPath string) error {
	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{
		MigrationsTable: "catalog_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

const (
	selectPizza = `SELECT id, name, description, price, image, category, available FROM pizzas`
	selectStore = `SELECT id, name, address, phone, hours, lat, lng FROM stores`
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPizza(row rowScanner) (domain.Pizza, error) {
	var p domain.Pizza
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.Image,
		&p.Category,
		&p.Available,
	)
	return p, err
}

func scanStore(row rowScanner) (domain.Store, error) {
	var s domain.Store
	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.Address,
		&s.Phone,
		&s.Hours,
		&s.Coordinates.Lat,
		&s.Coordinates.Lng,
	)
	return s, err
}

func (r *SQLiteRepository) ListPizzas(ctx context.Context) ([]domain.Pizza, error) {
	rows, err := r.db.QueryContext(ctx, selectPizza+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pizzas: %w", err)
	}
	defer rows.Close()

	pizzas := make([]domain.Pizza, 0)
	for rows.Next() {
		p, err := scanPizza(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pizza: %w", err)
		}
		pizzas = append(pizzas, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return pizzas, nil
}

func (r *SQLiteRepository) GetPizza(ctx context.Context, id int64) (*domain.Pizza, error) {
	p, err := scanPizza(r.db.QueryRowContext(ctx, selectPizza+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPizzaNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query pizza: %w", err)
	}
	return &p, nil
}

func (r *SQLiteRepository) ListStores(ctx context.Context) ([]domain.Store, error) {
	rows, err := r.db.QueryContext(ctx, selectStore+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stores: %w", err)
	}
	defer rows.Close()

	stores := make([]domain.Store, 0)
	for rows.Next() {
		s, err := scanStore(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan store: %w", err)
		}
		stores = append(stores, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return stores, nil
}

func (r *SQLiteRepository) GetStore(ctx context.Context, id int64) (*domain.Store, error) {
	s, err := scanStore(r.db.QueryRowContext(ctx, selectStore+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStoreNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query store: %w", err)
	}
	return &s, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
