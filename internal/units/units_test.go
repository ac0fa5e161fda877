package units

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustBig(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	require.True(t, ok, "bad test literal %s", s)
	return v
}

func TestToBaseUnits(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "1", want: "1000000000000000000"},
		{in: "10", want: "10000000000000000000"},
		{in: "1.0000001", want: "1000000100000000000"},
		{in: "0.000000000000000001", want: "1"},
		{in: ".5", want: "500000000000000000"},
		{in: "2.", want: "2000000000000000000"},
		{in: " 3 ", want: "3000000000000000000"},
		{in: "-1", want: "-1000000000000000000"},
		{in: "123456789012345678901234567890", want: "123456789012345678901234567890000000000000000000"},
		{in: "", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "1.2.3", wantErr: true},
		{in: "0.0000000000000000001", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ToBaseUnits(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestToPositiveBaseUnits(t *testing.T) {
	_, err := ToPositiveBaseUnits("0")
	assert.Error(t, err)
	_, err = ToPositiveBaseUnits("-2")
	assert.Error(t, err)

	v, err := ToPositiveBaseUnits("0.1")
	require.NoError(t, err)
	assert.Equal(t, "100000000000000000", v.String())
}

func TestWholeTokens(t *testing.T) {
	assert.Equal(t, "0", WholeTokens(nil))
	assert.Equal(t, "0", WholeTokens(big.NewInt(999)))
	assert.Equal(t, "50", WholeTokens(mustBig(t, "50000000000000000000")))
	assert.Equal(t, "1", WholeTokens(mustBig(t, "1999999999999999999")))
	assert.Equal(t, "123456789012345678901234567890",
		WholeTokens(mustBig(t, "123456789012345678901234567890000000000000000000")))
}

func TestFormatTokens(t *testing.T) {
	assert.Equal(t, "0", FormatTokens(nil))
	assert.Equal(t, "1.5", FormatTokens(mustBig(t, "1500000000000000000")))
	assert.Equal(t, "2", FormatTokens(mustBig(t, "2000000000000000000")))
	assert.Equal(t, "0.000000000000000001", FormatTokens(big.NewInt(1)))
}

func TestNumberChecks(t *testing.T) {
	assert.True(t, IsNegativeNumber("-1"))
	assert.True(t, IsNegativeNumber("-0.5"))
	assert.False(t, IsNegativeNumber("-"))
	assert.False(t, IsNegativeNumber(""))
	assert.False(t, IsNegativeNumber("0"))
	assert.False(t, IsNegativeNumber("abc"))

	assert.True(t, IsPositiveAmount("0.1"))
	assert.True(t, IsPositiveAmount("1."))
	assert.False(t, IsPositiveAmount("0"))
	assert.False(t, IsPositiveAmount(""))
	assert.False(t, IsPositiveAmount("x"))
	assert.False(t, IsPositiveAmount("1e3"), "exponents do not convert exactly")
	assert.False(t, IsPositiveAmount("Inf"))
	assert.False(t, IsPositiveAmount("NaN"))
	assert.False(t, IsPositiveAmount("0.0000000000000000001"), "finer than one base unit")
}
