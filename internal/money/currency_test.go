package money

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCurrency(t *testing.T) {
	c, err := ParseCurrency(" brl ")
	require.NoError(t, err)
	assert.Equal(t, BRL, c)

	_, err = ParseCurrency("DOGE")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownCurrency))

	_, err = ParseCurrency("")
	assert.ErrorIs(t, err, ErrUnknownCurrency)
}

func TestCurrencyAcceptsScale(t *testing.T) {
	assert.True(t, BRL.Accepts(MustAmount("100.50")))
	assert.True(t, BRL.Accepts(MustAmount("100.500")))
	assert.False(t, BRL.Accepts(MustAmount("100.505")))
	assert.True(t, XAF.Accepts(MustAmount("2500")))
	assert.False(t, XAF.Accepts(MustAmount("2500.5")))
}

func TestCurrencyFormat(t *testing.T) {
	assert.Equal(t, "90.00", BRL.Format(MustAmount("90")))
	assert.Equal(t, "2500", XAF.Format(MustAmount("2500")))
}

func TestParseAmount(t *testing.T) {
	d, err := ParseAmount("100.50")
	require.NoError(t, err)
	assert.True(t, d.Equal(MustAmount("100.5")))

	_, err = ParseAmount("1e")
	assert.Error(t, err)
}
