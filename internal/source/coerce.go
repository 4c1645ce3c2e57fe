package source

import (
	"errors"
	"fmt"
	"math"

	"github.com/spf13/cast"

	apperrors "stock-alerts/internal/errors"
)

var errMissingField = errors.New("field missing")

// coercePrice accepts a JSON number or a numeric string.
func coercePrice(v interface{}) (float64, error) {
	switch v.(type) {
	case nil:
		return 0, errMissingField
	case bool, map[string]interface{}, []interface{}:
		return 0, fmt.Errorf("%w: not a number: %v", apperrors.ErrPriceUnavailable, v)
	}

	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", apperrors.ErrPriceUnavailable, err)
	}
	return f, validatePrice(f)
}

// numericPrice accepts only a JSON number.
func numericPrice(v interface{}) (float64, error) {
	switch n := v.(type) {
	case nil:
		return 0, errMissingField
	case float64:
		return n, validatePrice(n)
	default:
		return 0, fmt.Errorf("%w: expected a number, got %T", apperrors.ErrPriceUnavailable, v)
	}
}

func validatePrice(p float64) error {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return fmt.Errorf("%w: non-finite price %v", apperrors.ErrPriceUnavailable, p)
	}
	if p <= 0 {
		return fmt.Errorf("%w: non-positive price %v", apperrors.ErrPriceUnavailable, p)
	}
	return nil
}
