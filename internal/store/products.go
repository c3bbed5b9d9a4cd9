package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"stock-track-backend/internal/stock"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrNoFields        = errors.New("no fields to update")
)

// ProductStore reads and updates product rows in Postgres.
type ProductStore struct {
	db    *sql.DB
	table string
}

// New returns a store over the given table. The table name is quoted, so
// schema-qualified names are not supported; use search_path instead.
func New(db *sql.DB, table string) *ProductStore {
	if table == "" {
		table = "products"
	}
	return &ProductStore{
		db:    db,
		table: pq.QuoteIdentifier(table),
	}
}

// ListProducts returns every product row.
func (s *ProductStore) ListProducts(ctx context.Context) ([]stock.Product, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, name, retailer, buy_url, status, last_checked
		FROM %s
		ORDER BY name
	`, s.table))
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []stock.Product
	for rows.Next() {
		var (
			p                        stock.Product
			retailer, buyURL, status sql.NullString
			lastChecked              pq.NullTime
		)
		if err := rows.Scan(&p.ID, &p.Name, &retailer, &buyURL, &status, &lastChecked); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		p.Retailer = retailer.String
		p.BuyURL = strings.TrimSpace(buyURL.String)
		// rows written by the site may use the display form ("In Stock")
		if st, ok := stock.ParseStatus(status.String); ok {
			p.Status = st
		} else {
			p.Status = stock.Status(status.String)
		}
		if lastChecked.Valid {
			t := lastChecked.Time
			p.LastChecked = &t
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return products, nil
}

// UpdateProduct writes the set fields of a single product.
func (s *ProductStore) UpdateProduct(ctx context.Context, id string, fields stock.Fields) error {
	if fields.Empty() {
		return ErrNoFields
	}

	var (
		sets []string
		args []any
	)
	if fields.Status != "" {
		if !fields.Status.Valid() {
			return fmt.Errorf("invalid status %q", fields.Status)
		}
		args = append(args, string(fields.Status))
		sets = append(sets, fmt.Sprintf("status = $%d", len(args)))
	}
	if !fields.LastChecked.IsZero() {
		args = append(args, fields.LastChecked.UTC().Truncate(time.Microsecond))
		sets = append(sets, fmt.Sprintf("last_checked = $%d", len(args)))
	}
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $%d`, s.table, strings.Join(sets, ", "), len(args))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update product %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update product %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("update product %s: %w", id, ErrProductNotFound)
	}

	return nil
}
