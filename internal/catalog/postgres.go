package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"aromabot/internal/domain"
	"aromabot/internal/pricing"
)

// PostgresStore implements the catalog over a products table:
//
//	CREATE TABLE products (
//		id          BIGSERIAL PRIMARY KEY,
//		code        TEXT UNIQUE NOT NULL,
//		description TEXT NOT NULL,
//		cost        NUMERIC(12,2)
//	);
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewPostgresStore(ctx context.Context, dsn string, logger *slog.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{pool: pool, logger: logger}, nil
}

func (s *PostgresStore) FindByCode(ctx context.Context, code string) (*domain.Product, error) {
	var p domain.Product
	var cost *string
	code = NormalizeCode(code)
	// integer-style rows store the number without the prefix
	err := s.pool.QueryRow(ctx,
		`SELECT code, description, cost::text FROM products WHERE upper(code) IN ($1, $2) LIMIT 1`,
		code, strings.TrimPrefix(code, CodePrefix),
	).Scan(&p.Code, &p.Description, &cost)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Upstream("catalog", err)
	}
	p.Code = NormalizeCode(p.Code)
	if cost != nil {
		p.Cost = pricing.ParseCost(*cost)
	}
	return &p, nil
}

func (s *PostgresStore) Search(ctx context.Context, q domain.SearchQuery) ([]domain.Product, error) {
	terms := foldTerms(q.Terms)
	if len(terms) == 0 {
		return nil, nil
	}
	patterns := make([]string, len(terms))
	for i, t := range terms {
		patterns[i] = "%" + escapeLike(t) + "%"
	}

	rows, err := s.pool.Query(ctx,
		`SELECT code, description, cost::text FROM products
		 WHERE lower(description) LIKE ANY($1)
		 ORDER BY id LIMIT $2`, patterns, limitOrDefault(q.Limit),
	)
	if err != nil {
		return nil, domain.Upstream("catalog", err)
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		var p domain.Product
		var cost *string
		if err := rows.Scan(&p.Code, &p.Description, &cost); err != nil {
			return nil, domain.Upstream("catalog", err)
		}
		p.Code = NormalizeCode(p.Code)
		if cost != nil {
			p.Cost = pricing.ParseCost(strings.TrimSpace(*cost))
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Upstream("catalog", err)
	}
	return out, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
