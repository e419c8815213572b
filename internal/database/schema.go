package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema is the replicated pricing schema read by the SQL backend.
// Scopes are stored under their logical names (global, category,
// product_template, product_variant).
const Schema = `
CREATE TABLE IF NOT EXISTS product_templates (
	id          bigint PRIMARY KEY,
	name        text NOT NULL,
	category_id bigint
);

CREATE TABLE IF NOT EXISTS products (
	id          bigint PRIMARY KEY,
	template_id bigint NOT NULL REFERENCES product_templates(id),
	barcode     text,
	list_price  numeric(14, 4) NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS products_barcode_idx ON products (barcode);

CREATE TABLE IF NOT EXISTS product_attribute_values (
	id         bigint PRIMARY KEY,
	product_id bigint NOT NULL REFERENCES products(id),
	position   integer NOT NULL DEFAULT 0,
	name       text NOT NULL
);

CREATE TABLE IF NOT EXISTS pricelists (
	id     bigint PRIMARY KEY,
	name   text NOT NULL,
	active boolean NOT NULL DEFAULT true
);

CREATE TABLE IF NOT EXISTS pricelist_rules (
	id               bigint PRIMARY KEY,
	pricelist_id     bigint NOT NULL REFERENCES pricelists(id),
	scope            text NOT NULL,
	category_id      bigint,
	template_id      bigint,
	variant_id       bigint,
	min_quantity     numeric(14, 4) NOT NULL DEFAULT 0,
	compute_price    text NOT NULL DEFAULT 'fixed',
	fixed_price      numeric(14, 4),
	percent_price    numeric(14, 4),
	base             text,
	price_discount   numeric(14, 4),
	price_surcharge  numeric(14, 4),
	price_round      numeric(14, 4),
	price_min_margin numeric(14, 4),
	price_max_margin numeric(14, 4)
);
CREATE INDEX IF NOT EXISTS pricelist_rules_pricelist_idx ON pricelist_rules (pricelist_id, scope);
`

// Migrate creates the schema if it does not exist.
func Migrate(ctx context.Context, p *pgxpool.Pool) error {
	if p == nil {
		return ErrNotInitialized
	}
	if _, err := p.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
