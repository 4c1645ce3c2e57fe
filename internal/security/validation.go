package security

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var (
	maxThreshold = decimal.New(1, 9)

	// Ticker symbols: letters, digits, and the separators exchanges use
	// (BRK.B, NSE:INFY, ^GSPC, M&M, BTC-USD, EURUSD=X).
	symbolPattern = regexp.MustCompile(`^[A-Z0-9^][A-Z0-9&.:=^-]{0,19}$`)

	sqlInjectionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(union\s+select|select\s+\*|drop\s+table|insert\s+into|delete\s+from|update\s+.*\s+set)`),
		regexp.MustCompile(`(--|;|'|"|\x00|\n|\r)`),
	}
)

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("validation error for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error for %s %q: %s", e.Field, e.Value, e.Message)
}

// InputValidator validates watchlist input.
type InputValidator struct {
	strictMode bool
}

// NewInputValidator creates a new input validator. Strict mode also rejects
// symbols that look like injection attempts.
func NewInputValidator(strictMode bool) *InputValidator {
	return &InputValidator{strictMode: strictMode}
}

// ValidateSymbol validates a ticker symbol after normalisation.
func (v *InputValidator) ValidateSymbol(symbol string) error {
	symbol = SanitizeSymbol(symbol)

	if symbol == "" {
		return &ValidationError{Field: "symbol", Message: "symbol cannot be empty"}
	}
	if len(symbol) > 20 {
		return &ValidationError{Field: "symbol", Value: symbol, Message: "symbol too long (max 20 characters)"}
	}
	if !symbolPattern.MatchString(symbol) {
		return &ValidationError{Field: "symbol", Value: symbol, Message: "invalid symbol format"}
	}
	if v.strictMode && v.containsInjection(symbol) {
		return &ValidationError{Field: "symbol", Value: symbol, Message: "invalid characters detected"}
	}
	return nil
}

// ValidateThreshold validates an optional alert threshold.
func (v *InputValidator) ValidateThreshold(field string, threshold decimal.NullDecimal) error {
	if !threshold.Valid {
		return nil
	}
	if !threshold.Decimal.IsPositive() {
		return &ValidationError{Field: field, Value: threshold.Decimal.String(), Message: "threshold must be positive"}
	}
	if threshold.Decimal.GreaterThan(maxThreshold) {
		return &ValidationError{Field: field, Value: threshold.Decimal.String(), Message: "threshold exceeds maximum allowed"}
	}
	return nil
}

func (v *InputValidator) containsInjection(input string) bool {
	for _, pattern := range sqlInjectionPatterns {
		if pattern.MatchString(input) {
			return true
		}
	}
	return false
}

// SanitizeSymbol trims and upper-cases a symbol and drops whitespace and
// control characters.
func SanitizeSymbol(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	var result strings.Builder
	for _, r := range symbol {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			continue
		}
		result.WriteRune(r)
	}
	return result.String()
}
