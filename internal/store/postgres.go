// Package store persists stocks in PostgreSQL. Attributes live in a JSONB
// column so the schema of the seven providers can evolve without migrations;
// identity fields stay relational.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mkuhn/stockscores/backend/internal/contracts"
	"github.com/mkuhn/stockscores/backend/internal/stock"
)

// Repository is the pgx-backed implementation of contracts.Store
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository instance
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Get returns the stock for the given ticker
func (r *Repository) Get(ctx context.Context, ticker string) (stock.Stock, error) {
	query := `
		SELECT ticker, name, isin, country, attrs
		FROM stocks
		WHERE ticker = $1
	`

	var s stock.Stock
	var attrsJSON []byte
	err := r.db.QueryRow(ctx, query, ticker).Scan(&s.Ticker, &s.Name, &s.ISIN, &s.Country, &attrsJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return stock.Stock{}, fmt.Errorf("stock %s: %w", ticker, contracts.ErrNotFound)
		}
		return stock.Stock{}, fmt.Errorf("query stock %s: %w", ticker, err)
	}

	s.Attrs, err = decodeAttributes(attrsJSON)
	if err != nil {
		return stock.Stock{}, fmt.Errorf("decode attributes for %s: %w", ticker, err)
	}
	return s, nil
}

// ListForProvider returns every stock carrying a non-empty identifier for the
// provider, oldest lastFetch first with never-fetched stocks leading.
// RFC 3339 timestamps sort chronologically as text, which the ORDER BY
// relies on.
func (r *Repository) ListForProvider(ctx context.Context, d stock.Descriptor) ([]stock.Stock, error) {
	query := `
		SELECT ticker, name, isin, country, attrs
		FROM stocks
		WHERE COALESCE(attrs->>$1, '') <> ''
		ORDER BY attrs->>$2 ASC NULLS FIRST, ticker
	`

	rows, err := r.db.Query(ctx, query, d.IDField, d.LastFetch)
	if err != nil {
		return nil, fmt.Errorf("list stocks for %s: %w", d.Provider, err)
	}
	defer rows.Close()

	var stocks []stock.Stock
	for rows.Next() {
		var s stock.Stock
		var attrsJSON []byte
		if err := rows.Scan(&s.Ticker, &s.Name, &s.ISIN, &s.Country, &attrsJSON); err != nil {
			return nil, fmt.Errorf("scan stock row: %w", err)
		}
		s.Attrs, err = decodeAttributes(attrsJSON)
		if err != nil {
			return nil, fmt.Errorf("decode attributes for %s: %w", s.Ticker, err)
		}
		stocks = append(stocks, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stock rows: %w", err)
	}
	return stocks, nil
}

// Mutate runs fn against the row's current attributes under SELECT FOR
// UPDATE and writes the returned set back in the same transaction. Two
// providers writing disjoint fields of the same stock around the same time
// serialize here instead of losing each other's writes.
func (r *Repository) Mutate(ctx context.Context, ticker string, fn func(current stock.Attributes) (stock.Attributes, error)) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var attrsJSON []byte
	err = tx.QueryRow(ctx, `SELECT attrs FROM stocks WHERE ticker = $1 FOR UPDATE`, ticker).Scan(&attrsJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("stock %s: %w", ticker, contracts.ErrNotFound)
		}
		return fmt.Errorf("lock stock %s: %w", ticker, err)
	}

	current, err := decodeAttributes(attrsJSON)
	if err != nil {
		return fmt.Errorf("decode attributes for %s: %w", ticker, err)
	}

	next, err := fn(current)
	if err != nil {
		// ErrNoChange propagates so callers can distinguish no-op from failure
		return err
	}

	encoded, err := encodeAttributes(next)
	if err != nil {
		return fmt.Errorf("encode attributes for %s: %w", ticker, err)
	}

	tag, err := tx.Exec(ctx, `UPDATE stocks SET attrs = $2, updated_at = NOW() WHERE ticker = $1`, ticker, encoded)
	if err != nil {
		return fmt.Errorf("update stock %s: %w", ticker, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("stock %s: %w", ticker, contracts.ErrNotFound)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit stock %s: %w", ticker, err)
	}
	return nil
}

// Create inserts a new stock with empty attributes
func (r *Repository) Create(ctx context.Context, s stock.Stock) error {
	encoded, err := encodeAttributes(s.Attrs)
	if err != nil {
		return fmt.Errorf("encode attributes for %s: %w", s.Ticker, err)
	}
	if encoded == nil {
		encoded = []byte(`{}`)
	}

	query := `
		INSERT INTO stocks (ticker, name, isin, country, attrs, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	`
	if _, err := r.db.Exec(ctx, query, s.Ticker, s.Name, s.ISIN, s.Country, encoded); err != nil {
		return fmt.Errorf("insert stock %s: %w", s.Ticker, err)
	}
	return nil
}

// SubscribersFor returns the users subscribed to the stock directly or via a
// watchlist containing it, deduplicated.
func (r *Repository) SubscribersFor(ctx context.Context, ticker string) ([]string, error) {
	query := `
		SELECT user_id FROM subscriptions WHERE ticker = $1
		UNION
		SELECT w.user_id
		FROM watchlists w
		JOIN watchlist_items wi ON wi.watchlist_id = w.id
		WHERE wi.ticker = $1
	`

	rows, err := r.db.Query(ctx, query, ticker)
	if err != nil {
		return nil, fmt.Errorf("query subscribers for %s: %w", ticker, err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan subscriber row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriber rows: %w", err)
	}
	return users, nil
}

// encodeAttributes marshals the attribute set to JSONB. time.Time values
// marshal as RFC 3339 strings.
func encodeAttributes(a stock.Attributes) ([]byte, error) {
	if a == nil {
		return []byte(`{}`), nil
	}
	return json.Marshal(a)
}

// decodeAttributes unmarshals JSONB and normalizes values to the schema
// kinds: numbers to float64, timestamps back to time.Time, lists and maps to
// their typed forms. Unknown or null fields are dropped.
func decodeAttributes(data []byte) (stock.Attributes, error) {
	if len(data) == 0 {
		return stock.Attributes{}, nil
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	attrs := make(stock.Attributes, len(raw))
	for field, value := range raw {
		if value == nil {
			continue
		}
		kind, ok := stock.FieldKindOf(field)
		if !ok {
			if !stock.KnownField(field) {
				continue
			}
			// Derived fields are plain numbers
			kind = stock.KindNumber
		}

		switch kind {
		case stock.KindNumber:
			if v, ok := value.(float64); ok {
				attrs[field] = v
			}
		case stock.KindString:
			if v, ok := value.(string); ok {
				attrs[field] = v
			}
		case stock.KindTime:
			if s, ok := value.(string); ok {
				if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
					attrs[field] = t
				}
			}
		case stock.KindNumberList:
			if list, ok := value.([]interface{}); ok {
				out := make([]float64, 0, len(list))
				valid := true
				for _, item := range list {
					v, ok := item.(float64)
					if !ok {
						valid = false
						break
					}
					out = append(out, v)
				}
				if valid {
					attrs[field] = out
				}
			}
		case stock.KindNumberMap:
			if m, ok := value.(map[string]interface{}); ok {
				out := make(map[string]float64, len(m))
				valid := true
				for k, item := range m {
					v, ok := item.(float64)
					if !ok {
						valid = false
						break
					}
					out[k] = v
				}
				if valid {
					attrs[field] = out
				}
			}
		}
	}
	return attrs, nil
}
