package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/kosarica/rule-resolver/internal/resolver"
	"github.com/kosarica/rule-resolver/internal/rules"
)

// RuleResolver resolves a product code to its applicable pricelist rules.
type RuleResolver interface {
	Resolve(ctx context.Context, code string) (*resolver.Result, error)
}

// RulesResponse is the body of a successful rules lookup.
type RulesResponse struct {
	Code               string        `json:"code" jsonschema:"required"`
	VariantID          int64         `json:"variantId" jsonschema:"required"`
	TemplateID         int64         `json:"templateId" jsonschema:"required"`
	CategoryID         *int64        `json:"categoryId"`
	ProductName        string        `json:"productName" jsonschema:"required"`
	ListPrice          string        `json:"listPrice" jsonschema:"required"`
	CandidateRuleCount int           `json:"candidateRuleCount" jsonschema:"required"`
	Counts             ScopeCounts   `json:"counts" jsonschema:"required"`
	Rules              rules.Buckets `json:"rules" jsonschema:"required"`
}

// ScopeCounts holds the number of rules kept in each bucket.
type ScopeCounts struct {
	Global          int `json:"global"`
	Category        int `json:"category"`
	ProductTemplate int `json:"productTemplate"`
	ProductVariant  int `json:"productVariant"`
}

// NewRulesResponse converts a resolution result into its wire form.
func NewRulesResponse(result *resolver.Result) RulesResponse {
	return RulesResponse{
		Code:               result.Code,
		VariantID:          result.VariantID,
		TemplateID:         result.TemplateID,
		CategoryID:         result.CategoryID,
		ProductName:        result.ProductName,
		ListPrice:          result.ListPrice.String(),
		CandidateRuleCount: result.CandidateRuleCount,
		Counts: ScopeCounts{
			Global:          len(result.Buckets.Global),
			Category:        len(result.Buckets.Category),
			ProductTemplate: len(result.Buckets.ProductTemplate),
			ProductVariant:  len(result.Buckets.ProductVariant),
		},
		Rules:              result.Buckets,
	}
}

var ruleResolver RuleResolver

// InitRules sets the resolver used by GetProductRules.
// This should be called during application startup.
func InitRules(r RuleResolver) {
	ruleResolver = r
}

// GetProductRules returns the pricelist rules applying to a product code
// @Summary Get product pricelist rules
// @Description Looks a product up by barcode and returns the rules of all active price lists that apply to it, grouped by scope
// @Tags rules
// @Produce json
// @Param code path string true "Product barcode"
// @Success 200 {object} RulesResponse
// @Failure 400 {object} map[string]string "Bad request"
// @Failure 404 {object} map[string]string "Product not found"
// @Failure 502 {object} map[string]string "Backend unavailable"
// @Router /internal/products/{code}/rules [get]
func GetProductRules(c *gin.Context) {
	if ruleResolver == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "resolver not initialized"})
		return
	}

	code := strings.TrimSpace(c.Param("code"))
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}

	result, err := ruleResolver.Resolve(c.Request.Context(), code)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, NewRulesResponse(result))
	case errors.Is(err, resolver.ErrNotFound):
		log.Info().Str("code", code).Msg("Product not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
	case errors.Is(err, resolver.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product code"})
	default:
		var be *resolver.BackendError
		op := ""
		if errors.As(err, &be) {
			op = be.Op
		}
		log.Error().Err(err).Str("code", code).Str("op", op).Msg("Rule resolution failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "backend unavailable"})
	}
}
