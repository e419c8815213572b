// Package resolver turns a scanned product code into the pricelist rules that
// apply to it, grouped by scope.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kosarica/rule-resolver/internal/barcode"
	"github.com/kosarica/rule-resolver/internal/rules"
)

const tracerName = "github.com/kosarica/rule-resolver/internal/resolver"

// Resolver drives a resolution against a Backend. It holds no per-request
// state and is safe for concurrent use.
type Resolver struct {
	backend Backend
	metrics *MetricsRecorder
	logger  *zerolog.Logger
	tracer  trace.Tracer
}

// New creates a resolver over the given backend.
func New(backend Backend, metrics *MetricsRecorder, logger *zerolog.Logger) *Resolver {
	if metrics == nil {
		metrics = NewMetricsRecorder()
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "resolver").Logger()

	return &Resolver{
		backend: backend,
		metrics: metrics,
		logger:  &l,
		tracer:  otel.Tracer(tracerName),
	}
}

// Resolve looks a product up by code and returns its applicable rules.
//
// It returns ErrNotFound when no product matches, ErrInvalidArgument for a
// blank code and a *BackendError when any backend call fails. A failed call
// ends the resolution; nothing partial is returned.
func (r *Resolver) Resolve(ctx context.Context, code string) (*Result, error) {
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "resolver.Resolve", trace.WithAttributes(attribute.String("code", code)))
	defer span.End()

	result, err := r.resolve(ctx, code)

	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		outcome = "not_found"
	case errors.Is(err, ErrInvalidArgument):
		outcome = "invalid"
	default:
		outcome = "backend_error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.String("outcome", outcome))
	r.metrics.RecordResolution(outcome, time.Since(start))

	return result, err
}

func (r *Resolver) resolve(ctx context.Context, code string) (*Result, error) {
	candidates := barcode.Candidates(code)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: empty product code", ErrInvalidArgument)
	}

	product, err := r.findProduct(ctx, candidates)
	if err != nil {
		return nil, err
	}

	var categoryID *int64
	err = r.call(ctx, OpFindCategory, func(ctx context.Context) error {
		var err error
		categoryID, err = r.backend.FindCategoryForTemplate(ctx, product.TemplateID)
		return err
	})
	if err != nil {
		return nil, err
	}

	var priceLists []PriceList
	err = r.call(ctx, OpSearchPricelist, func(ctx context.Context) error {
		var err error
		priceLists, err = r.backend.SearchActivePriceLists(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	name := DisplayName(product.Name, product.Attributes)
	result := &Result{
		Code:        product.Code,
		VariantID:   product.VariantID,
		TemplateID:  product.TemplateID,
		CategoryID:  categoryID,
		ProductName: name,
		ListPrice:   product.ListPrice,
		Buckets:     rules.NewBuckets(),
	}

	active := activeIDs(priceLists)
	if len(active) == 0 {
		r.logger.Warn().
			Str("code", product.Code).
			Msg("No active price lists, returning no rules")
		return result, nil
	}

	filter, err := rules.BuildFilter(active, product.VariantID, product.TemplateID, categoryID)
	if err != nil {
		return nil, err
	}

	var raw []rules.Rule
	err = r.call(ctx, OpSearchRules, func(ctx context.Context) error {
		var err error
		raw, err = r.backend.SearchRules(ctx, filter)
		return err
	})
	if err != nil {
		return nil, err
	}

	if n := unknownScopes(raw); n > 0 {
		r.logger.Warn().
			Str("code", product.Code).
			Int("rules", n).
			Msg("Dropping candidate rules with an unknown scope")
	}

	result.Buckets = rules.Classify(raw, product.VariantID, product.TemplateID, categoryID)
	result.Buckets.Stamp(name)
	result.CandidateRuleCount = len(raw)
	r.metrics.RecordClassification(len(raw), &result.Buckets)

	r.logger.Debug().
		Str("code", product.Code).
		Int64("variant_id", product.VariantID).
		Int("active_pricelists", len(active)).
		Int("candidates", len(raw)).
		Int("kept", result.Buckets.Len()).
		Msg("Resolved pricelist rules")

	return result, nil
}

// findProduct tries each code candidate in order and stops at the first hit.
// When a code matches several products the first in backend order wins.
func (r *Resolver) findProduct(ctx context.Context, candidates []string) (*Product, error) {
	for _, code := range candidates {
		var products []Product
		err := r.call(ctx, OpFindProduct, func(ctx context.Context) error {
			var err error
			products, err = r.backend.FindProductsByCode(ctx, code)
			return err
		})
		if err != nil {
			return nil, err
		}
		if len(products) == 0 {
			continue
		}

		if len(products) > 1 {
			r.logger.Warn().
				Str("code", code).
				Int("matches", len(products)).
				Int64("variant_id", products[0].VariantID).
				Msg("Code matches several products, using the first")
		}
		product := products[0]
		if product.Code == "" {
			product.Code = code
		}
		return &product, nil
	}
	return nil, ErrNotFound
}

// call runs one backend operation inside its own span and wraps any failure.
func (r *Resolver) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, span := r.tracer.Start(ctx, "backend."+op)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	r.metrics.RecordBackendCall(op, time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, op+" failed")
		return &BackendError{Op: op, Err: err}
	}
	return nil
}

func activeIDs(priceLists []PriceList) []int64 {
	ids := make([]int64, 0, len(priceLists))
	for _, pl := range priceLists {
		if pl.Active {
			ids = append(ids, pl.ID)
		}
	}
	return ids
}

func unknownScopes(candidates []rules.Rule) int {
	n := 0
	for _, r := range candidates {
		if !r.Scope.Valid() {
			n++
		}
	}
	return n
}
