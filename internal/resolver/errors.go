package resolver

import (
	"errors"
	"fmt"

	"github.com/kosarica/rule-resolver/internal/rules"
)

var (
	// ErrNotFound means no product matches the scanned code. It is an expected outcome.
	ErrNotFound = errors.New("product not found")

	// ErrInvalidArgument is returned for caller misuse such as an empty code.
	ErrInvalidArgument = rules.ErrInvalidArgument
)

// Backend operation names used in BackendError and metrics.
const (
	OpFindProduct     = "find_product"
	OpFindCategory    = "find_category"
	OpSearchPricelist = "search_pricelists"
	OpSearchRules     = "search_rules"
)

// BackendError wraps a failed backend call. The wrapped error may carry
// backend internals and must not be shown to end users.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// IsBackendError reports whether err is or wraps a *BackendError.
func IsBackendError(err error) bool {
	var be *BackendError
	return errors.As(err, &be)
}
