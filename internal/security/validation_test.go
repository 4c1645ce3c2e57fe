package security

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidateSymbol(t *testing.T) {
	v := NewInputValidator(true)

	valid := []string{"HOOD", " slv ", "BRK.B", "NSE:INFY", "^GSPC", "M&M", "BTC-USD", "EURUSD=X"}
	for _, s := range valid {
		assert.NoError(t, v.ValidateSymbol(s), s)
	}

	invalid := []string{"", "   ", "HOOD;DROP", "A'B", "-HOOD", "ABCDEFGHIJKLMNOPQRSTU", "HO/OD"}
	for _, s := range invalid {
		err := v.ValidateSymbol(s)
		var ve *ValidationError
		assert.True(t, errors.As(err, &ve), "%q should be rejected", s)
	}
}

func TestValidateThreshold(t *testing.T) {
	v := NewInputValidator(false)

	assert.NoError(t, v.ValidateThreshold("above", decimal.NullDecimal{}))
	assert.NoError(t, v.ValidateThreshold("above", decimal.NewNullDecimal(decimal.RequireFromString("0.01"))))
	assert.Error(t, v.ValidateThreshold("above", decimal.NewNullDecimal(decimal.Zero)))
	assert.Error(t, v.ValidateThreshold("below", decimal.NewNullDecimal(decimal.RequireFromString("-5"))))
	assert.Error(t, v.ValidateThreshold("below", decimal.NewNullDecimal(decimal.New(2, 9))))
}

func TestSanitizeSymbol(t *testing.T) {
	assert.Equal(t, "HOOD", SanitizeSymbol(" ho od\t"))
	assert.Equal(t, "NSE:INFY", SanitizeSymbol("nse:infy"))
}
