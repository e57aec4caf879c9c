package money

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArithmeticKeepsTwoDigits(t *testing.T) {
	a := MustParse("12.50")

	assert.Equal(t, "25.00", a.Mul(2).String())
	assert.Equal(t, "13.75", a.Add(MustParse("1.25")).String())
	assert.Equal(t, "-0.50", a.Sub(MustParse("13")).String())
	assert.Equal(t, "0.30", MustParse("0.1").Add(MustParse("0.2")).String())
}

func TestSumRoundsOnceHalfUp(t *testing.T) {
	// 0.005 three times is 0.015 -> 0.02; rounding each term first would give 0.03.
	x := MustParse("0.005")
	assert.Equal(t, "0.02", Sum(x, x, x).String())
	assert.Equal(t, "0.00", Sum().String())
	assert.Equal(t, "0.01", MustParse("0.005").Add(Zero()).String())
}

func TestCeilDiv(t *testing.T) {
	assert.Equal(t, "33.34", MustParse("100.00").CeilDiv(3).String())
	assert.Equal(t, "25.00", MustParse("100.00").CeilDiv(4).String())
	assert.Equal(t, "0.01", MustParse("0.01").CeilDiv(7).String())
	assert.Panics(t, func() { MustParse("1").CeilDiv(0) })
}

func TestTotalRejectsNegative(t *testing.T) {
	total, err := Total(MustParse("25.00"), MustParse("2.50"), MustParse("5.00"))
	require.NoError(t, err)
	assert.Equal(t, "22.50", total.String())

	total, err = Total(MustParse("10.00"), Zero(), MustParse("10.01"))
	assert.ErrorIs(t, err, ErrNegativeTotal)
	assert.True(t, total.IsZero())
}

func TestParseErrors(t *testing.T) {
	_, err := Parse("")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = Parse("12,50")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	a, err := Parse(" 7 ")
	require.NoError(t, err)
	assert.Equal(t, "7.00", a.String())
	assert.True(t, a.HasValidScale())
	assert.False(t, MustParse("7.001").HasValidScale())
}

func TestParseRejectsExponentAndLongInput(t *testing.T) {
	for _, in := range []string{"1e12", "1E2", "1e2000000", "-2.5e-3", strings.Repeat("9", 40)} {
		_, err := Parse(in)
		assert.ErrorIs(t, err, ErrInvalidAmount, in)
	}

	var a Amount
	assert.ErrorIs(t, json.Unmarshal([]byte(`1e12`), &a), ErrInvalidAmount)
}

func TestStorableBounds(t *testing.T) {
	assert.Equal(t, "9999999999.99", Max.String())
	assert.True(t, Max.Storable())
	assert.True(t, Max.Neg().Storable())
	assert.True(t, Zero().Storable())
	assert.False(t, MustParse("10000000000.00").Storable())
	assert.False(t, MustParse("-10000000000.00").Storable())
	assert.False(t, MustParse("1.005").Storable())
	assert.False(t, Max.Add(FromCents(1)).Storable())
}

func TestJSONUsesStrings(t *testing.T) {
	b, err := json.Marshal(struct {
		Total Amount `json:"total"`
	}{MustParse("3.5")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":"3.50"}`, string(b))

	var in struct {
		A Amount `json:"a"`
		B Amount `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"12.50","b":4.25}`), &in))
	assert.Equal(t, "12.50", in.A.String())
	assert.Equal(t, "4.25", in.B.String())
}

func TestScanAcceptsDriverTypes(t *testing.T) {
	var a Amount
	require.NoError(t, a.Scan("19.99"))
	assert.Equal(t, "19.99", a.String())
	require.NoError(t, a.Scan(12.5))
	assert.Equal(t, "12.50", a.String())
	require.NoError(t, a.Scan(int64(3)))
	assert.Equal(t, "3.00", a.String())
	require.NoError(t, a.Scan([]byte("0.10")))
	assert.Equal(t, "0.10", a.String())
	require.NoError(t, a.Scan(nil))
	assert.True(t, a.IsZero())

	v, err := MustParse("1.5").Value()
	require.NoError(t, err)
	assert.Equal(t, "1.50", v)
}
