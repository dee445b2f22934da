package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"aromabot/internal/domain"
	"aromabot/internal/pricing"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the catalog over a local SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Set connection pool (single connection for SQLite)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db, logger: logger}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS products (
		code               TEXT PRIMARY KEY,
		description        TEXT NOT NULL,
		description_folded TEXT NOT NULL,
		cost               TEXT,
		updated_at         DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) FindByCode(ctx context.Context, code string) (*domain.Product, error) {
	var p domain.Product
	var cost sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT code, description, cost FROM products WHERE code = ?`, NormalizeCode(code),
	).Scan(&p.Code, &p.Description, &cost)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Upstream("catalog", err)
	}
	p.Cost = pricing.ParseCost(cost.String)
	return &p, nil
}

// Search matches folded descriptions against any term, in insertion order.
func (s *SQLiteStore) Search(ctx context.Context, q domain.SearchQuery) ([]domain.Product, error) {
	terms := foldTerms(q.Terms)
	if len(terms) == 0 {
		return nil, nil
	}

	clauses := make([]string, len(terms))
	args := make([]any, 0, len(terms)+1)
	for i, t := range terms {
		clauses[i] = "description_folded LIKE ? ESCAPE '\\'"
		args = append(args, "%"+escapeLike(t)+"%")
	}
	args = append(args, limitOrDefault(q.Limit))

	rows, err := s.db.QueryContext(ctx,
		`SELECT code, description, cost FROM products
		 WHERE `+strings.Join(clauses, " OR ")+`
		 ORDER BY rowid LIMIT ?`, args...,
	)
	if err != nil {
		return nil, domain.Upstream("catalog", err)
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		var p domain.Product
		var cost sql.NullString
		if err := rows.Scan(&p.Code, &p.Description, &cost); err != nil {
			return nil, domain.Upstream("catalog", err)
		}
		p.Cost = pricing.ParseCost(cost.String)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Upstream("catalog", err)
	}
	return out, nil
}

// Upsert inserts or replaces products. Existing rows keep their position.
func (s *SQLiteStore) Upsert(ctx context.Context, products []domain.Product) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO products (code, description, description_folded, cost, updated_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(code) DO UPDATE SET
			description = excluded.description,
			description_folded = excluded.description_folded,
			cost = excluded.cost,
			updated_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range products {
		var cost any
		if p.Cost != nil {
			cost = p.Cost.String()
		}
		if _, err := stmt.ExecContext(ctx, NormalizeCode(p.Code), p.Description, strings.ToLower(p.Description), cost); err != nil {
			return fmt.Errorf("upsert %s: %w", p.Code, err)
		}
	}
	return tx.Commit()
}

// Count returns the number of products in the catalog.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n)
	return n, err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
