package odoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kosarica/rule-resolver/internal/resilience"
	"github.com/kosarica/rule-resolver/internal/resolver"
	"github.com/kosarica/rule-resolver/internal/rules"
	"github.com/kosarica/rule-resolver/internal/session"
)

const (
	modelProduct        = "product.product"
	modelTemplate       = "product.template"
	modelAttributeValue = "product.template.attribute.value"
	modelPricelist      = "product.pricelist"
	modelPricelistItem  = "product.pricelist.item"
)

// Backend implements resolver.Backend against an Odoo server.
type Backend struct {
	client      *Client
	sessions    session.Provider
	creds       session.Credentials
	activeField string
	logger      *zerolog.Logger
}

// NewBackend creates a backend. activeField names the boolean pricelist
// field marking a price list as active; it defaults to "active".
func NewBackend(client *Client, sessions session.Provider, creds session.Credentials, activeField string, logger *zerolog.Logger) *Backend {
	if activeField == "" {
		activeField = "active"
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "odoo_backend").Logger()
	return &Backend{
		client:      client,
		sessions:    sessions,
		creds:       creds,
		activeField: activeField,
		logger:      &l,
	}
}

// executeKw calls model.method through object.execute_kw with the current session.
func (b *Backend) executeKw(ctx context.Context, model, method string, args []any, kwargs map[string]any, out any) error {
	handle, err := b.sessions.Ensure(ctx)
	if err != nil {
		return err
	}
	if kwargs == nil {
		kwargs = map[string]any{}
	}

	err = b.client.Call(ctx, "object", "execute_kw",
		[]any{b.creds.Database, handle.UID, b.creds.Password, model, method, args, kwargs}, out)

	var rpcErr *RPCError
	if errors.As(err, &rpcErr) && rpcErr.IsAuthError() {
		b.logger.Warn().
			Str("model", model).
			Int64("uid", handle.UID).
			Msg("Session rejected, dropping it for the next request")
		b.sessions.Reset()
	}
	if err != nil {
		return fmt.Errorf("%s.%s: %w", model, method, err)
	}
	return nil
}

// FindProductsByCode implements resolver.Backend.
func (b *Backend) FindProductsByCode(ctx context.Context, code string) ([]resolver.Product, error) {
	var records []productRecord
	err := b.executeKw(ctx, modelProduct, "search_read",
		[]any{[]any{[]any{"barcode", "=", code}}},
		map[string]any{"fields": productFields, "order": "id"}, &records)
	if err != nil {
		return nil, err
	}

	products := make([]resolver.Product, 0, len(records))
	for _, rec := range records {
		attrs, err := b.attributeNames(ctx, rec.AttributeValues)
		if err != nil {
			return nil, err
		}
		products = append(products, resolver.Product{
			VariantID:  rec.ID,
			TemplateID: rec.Template.ID,
			Name:       string(rec.Name),
			ListPrice:  rec.ListPrice.Decimal,
			Attributes: attrs,
			Code:       string(rec.Barcode),
		})
	}
	return products, nil
}

// attributeNames reads attribute value names keeping the order of ids.
func (b *Backend) attributeNames(ctx context.Context, ids []int64) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var records []attributeValueRecord
	err := b.executeKw(ctx, modelAttributeValue, "read",
		[]any{ids}, map[string]any{"fields": []string{"name"}}, &records)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]string, len(records))
	for _, rec := range records {
		byID[rec.ID] = string(rec.Name)
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := byID[id]; ok && name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// FindCategoryForTemplate implements resolver.Backend.
func (b *Backend) FindCategoryForTemplate(ctx context.Context, templateID int64) (*int64, error) {
	var records []templateRecord
	err := b.executeKw(ctx, modelTemplate, "read",
		[]any{[]int64{templateID}}, map[string]any{"fields": []string{"categ_id"}}, &records)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0].Category.ptr(), nil
}

// SearchActivePriceLists implements resolver.Backend.
func (b *Backend) SearchActivePriceLists(ctx context.Context) ([]resolver.PriceList, error) {
	var records []map[string]json.RawMessage
	err := b.executeKw(ctx, modelPricelist, "search_read",
		[]any{[]any{[]any{b.activeField, "=", true}}},
		map[string]any{"fields": []string{"id", "name", b.activeField}}, &records)
	if err != nil {
		return nil, err
	}

	lists := make([]resolver.PriceList, 0, len(records))
	for _, rec := range records {
		var pl resolver.PriceList
		var name text
		if err := json.Unmarshal(rec["id"], &pl.ID); err != nil {
			return nil, fmt.Errorf("decode pricelist id: %w", err)
		}
		if raw, ok := rec["name"]; ok {
			if err := json.Unmarshal(raw, &name); err != nil {
				return nil, fmt.Errorf("decode pricelist %d name: %w", pl.ID, err)
			}
		}
		pl.Name = string(name)
		if raw, ok := rec[b.activeField]; ok {
			if err := json.Unmarshal(raw, &pl.Active); err != nil {
				return nil, fmt.Errorf("decode pricelist %d field %s: %w", pl.ID, b.activeField, err)
			}
		}
		lists = append(lists, pl)
	}
	return lists, nil
}

// BreakerState reports whether calls to the server are currently let through.
func (b *Backend) BreakerState() resilience.State {
	return b.client.BreakerState()
}

// SearchRules implements resolver.Backend.
func (b *Backend) SearchRules(ctx context.Context, filter rules.Predicate) ([]rules.Rule, error) {
	domain, err := Domain(filter)
	if err != nil {
		return nil, fmt.Errorf("render domain: %w", err)
	}

	var records []ruleRecord
	err = b.executeKw(ctx, modelPricelistItem, "search_read",
		[]any{domain}, map[string]any{"fields": ruleFields}, &records)
	if err != nil {
		return nil, err
	}

	out := make([]rules.Rule, len(records))
	for i, rec := range records {
		out[i] = rec.toRule()
	}
	return out, nil
}

// Ping checks that the server answers on the common service.
func (b *Backend) Ping(ctx context.Context) error {
	var version map[string]any
	return b.client.Call(ctx, "common", "version", []any{}, &version)
}

var (
	_ resolver.Backend = (*Backend)(nil)
	_ resolver.Pinger  = (*Backend)(nil)
)
