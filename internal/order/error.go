package order

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrStatusLocked  = errors.New("order status is final")
)

// InvalidStatusError rejects a status value outside the closed enum.
type InvalidStatusError struct {
	Status string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid status: %s", e.Status)
}

// FieldErrors carries one message per offending payload field.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// StockExceededError reports how many units the caller can still add for
// the product/size being merged.
type StockExceededError struct {
	ProductID uint
	Remaining int
}

func (e *StockExceededError) Error() string {
	return fmt.Sprintf("stock exceeded for product %d: %d unit(s) remaining", e.ProductID, e.Remaining)
}
