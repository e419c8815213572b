// Package postgres implements the resolver backend on a replicated pricing
// schema in PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/kosarica/rule-resolver/internal/database"
	"github.com/kosarica/rule-resolver/internal/resolver"
	"github.com/kosarica/rule-resolver/internal/rules"
)

// Store reads products, price lists and rules through a pgx pool.
type Store struct {
	pool   *pgxpool.Pool
	logger *zerolog.Logger
}

// NewStore creates a store over pool.
func NewStore(pool *pgxpool.Pool, logger *zerolog.Logger) *Store {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "postgres_backend").Logger()
	return &Store{pool: pool, logger: &l}
}

// FindProductsByCode implements resolver.Backend.
func (s *Store) FindProductsByCode(ctx context.Context, code string) ([]resolver.Product, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.id, p.template_id, t.name, p.list_price::text, COALESCE(p.barcode, '')
		FROM products p
		JOIN product_templates t ON t.id = p.template_id
		WHERE p.barcode = $1
		ORDER BY p.id`, code)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}

	var products []resolver.Product
	for rows.Next() {
		var p resolver.Product
		var listPrice string
		if err := rows.Scan(&p.VariantID, &p.TemplateID, &p.Name, &listPrice, &p.Code); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan product: %w", err)
		}
		if p.ListPrice, err = decimal.NewFromString(listPrice); err != nil {
			rows.Close()
			return nil, fmt.Errorf("parse list price %q: %w", listPrice, err)
		}
		products = append(products, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	for i := range products {
		attrs, err := s.attributeNames(ctx, products[i].VariantID)
		if err != nil {
			return nil, err
		}
		products[i].Attributes = attrs
	}
	return products, nil
}

func (s *Store) attributeNames(ctx context.Context, variantID int64) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT name FROM product_attribute_values
		WHERE product_id = $1
		ORDER BY position, id`, variantID)
	if err != nil {
		return nil, fmt.Errorf("query attribute values: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect attribute values: %w", err)
	}
	return names, nil
}

// FindCategoryForTemplate implements resolver.Backend.
func (s *Store) FindCategoryForTemplate(ctx context.Context, templateID int64) (*int64, error) {
	var categoryID *int64
	err := s.pool.QueryRow(ctx,
		`SELECT category_id FROM product_templates WHERE id = $1`, templateID).Scan(&categoryID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query template category: %w", err)
	}
	return categoryID, nil
}

// SearchActivePriceLists implements resolver.Backend.
func (s *Store) SearchActivePriceLists(ctx context.Context) ([]resolver.PriceList, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, active FROM pricelists WHERE active ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query pricelists: %w", err)
	}
	lists, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (resolver.PriceList, error) {
		var pl resolver.PriceList
		err := row.Scan(&pl.ID, &pl.Name, &pl.Active)
		return pl, err
	})
	if err != nil {
		return nil, fmt.Errorf("collect pricelists: %w", err)
	}
	return lists, nil
}

const ruleColumns = `id, pricelist_id, scope, category_id, template_id, variant_id,
	min_quantity::text, compute_price, fixed_price::text, percent_price::text,
	COALESCE(base, ''), price_discount::text, price_surcharge::text, price_round::text,
	price_min_margin::text, price_max_margin::text`

// SearchRules implements resolver.Backend.
func (s *Store) SearchRules(ctx context.Context, filter rules.Predicate) ([]rules.Rule, error) {
	where, args, err := Where(filter)
	if err != nil {
		return nil, fmt.Errorf("render filter: %w", err)
	}

	query := "SELECT " + ruleColumns + " FROM pricelist_rules WHERE " + where + " ORDER BY id"
	s.logger.Debug().Str("where", where).Int("args", len(args)).Msg("Searching pricelist rules")

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pricelist rules: %w", err)
	}
	out, err := pgx.CollectRows(rows, scanRule)
	if err != nil {
		return nil, fmt.Errorf("collect pricelist rules: %w", err)
	}
	return out, nil
}

func scanRule(row pgx.CollectableRow) (rules.Rule, error) {
	var (
		r                    rules.Rule
		scope, minQty, base  string
		fixed, percent       *string
		discount, surcharge  *string
		rounding             *string
		minMargin, maxMargin *string
	)
	err := row.Scan(&r.ID, &r.PricelistID, &scope, &r.CategoryID, &r.TemplateID, &r.VariantID,
		&minQty, &r.ComputePrice, &fixed, &percent,
		&base, &discount, &surcharge, &rounding, &minMargin, &maxMargin)
	if err != nil {
		return r, err
	}
	r.Scope = rules.Scope(scope)

	if r.MinQuantity, err = decimal.NewFromString(minQty); err != nil {
		return r, fmt.Errorf("rule %d min_quantity: %w", r.ID, err)
	}

	switch r.ComputePrice {
	case rules.ComputeFixed:
		r.FixedPrice, err = parseNullable(fixed)
	case rules.ComputePercentage:
		r.PercentPrice, err = parseNullable(percent)
	case rules.ComputeFormula:
		f := &rules.Formula{Base: base}
		var d, sc, rd *decimal.Decimal
		if d, err = parseNullable(discount); err != nil {
			break
		}
		if sc, err = parseNullable(surcharge); err != nil {
			break
		}
		if rd, err = parseNullable(rounding); err != nil {
			break
		}
		if f.MinMargin, err = parseNullable(minMargin); err != nil {
			break
		}
		if f.MaxMargin, err = parseNullable(maxMargin); err != nil {
			break
		}
		f.Discount, f.Surcharge, f.Rounding = orZero(d), orZero(sc), orZero(rd)
		r.Formula = f
	}
	if err != nil {
		return r, fmt.Errorf("rule %d prices: %w", r.ID, err)
	}
	return r, nil
}

func parseNullable(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func orZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

// Ping implements resolver.Pinger.
func (s *Store) Ping(ctx context.Context) error {
	if s.pool == nil {
		return database.ErrNotInitialized
	}
	return s.pool.Ping(ctx)
}

var (
	_ resolver.Backend = (*Store)(nil)
	_ resolver.Pinger  = (*Store)(nil)
)
