package timeslot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseValue(t *testing.T) {
	cases := []struct {
		raw    string
		want   Value
		wantOK bool
	}{
		{"12.5", Number(12.5), true},
		{" 0.00 ", Number(0), true},
		{"-3", Number(-3), true},
		{"NaN", ExplicitNull(), true},
		{"nan", ExplicitNull(), true},
		{"", Value{}, false},
		{"   ", Value{}, false},
		{"12abc", Value{}, false},
		{"Inf", Value{}, false},
	}
	for _, tc := range cases {
		got, ok := ParseValue(tc.raw)
		assert.Equal(t, tc.wantOK, ok, "raw=%q", tc.raw)
		assert.Equal(t, tc.want, got, "raw=%q", tc.raw)
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(""))
	assert.NoError(t, Validate("NaN"))
	assert.NoError(t, Validate("nAn"))
	assert.NoError(t, Validate("0"))
	assert.NoError(t, Validate("999999"))
	assert.ErrorIs(t, Validate("x1"), ErrNotNumeric)
	assert.ErrorIs(t, Validate("-0.1"), ErrNegative)
	assert.ErrorIs(t, Validate("1000000"), ErrOutOfRange)
}

func TestInvalidCells(t *testing.T) {
	values := ValueMaps{
		4: {"T1_0": "5", "T1_1": "-1", "T1_2": "oops"},
		6: {"T2_0": "NaN"},
	}

	got := InvalidCells(values)

	assert.Equal(t, map[int][]string{4: {"T1_1", "T1_2"}}, got)
}

func TestValuePtr(t *testing.T) {
	assert.Nil(t, ExplicitNull().Ptr())
	p := Number(4).Ptr()
	if assert.NotNil(t, p) {
		assert.Equal(t, 4.0, *p)
	}
	assert.Equal(t, "NaN", ExplicitNull().String())
	assert.Equal(t, "4", Number(4).String())
	assert.Equal(t, "NaN", FormatStored(nil))
}

func TestFormatNumber(t *testing.T) {
	cases := map[float64]string{
		0:        "0",
		7:        "7",
		-3.25:    "-3.25",
		0.000001: "0.000001",
		1e-7:     "1e-7",
		-2.5e-8:  "-2.5e-8",
		123456.5: "123456.5",
		1e20:     "100000000000000000000",
		1e21:     "1e+21",
		1.5e300:  "1.5e+300",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatNumber(in), "%v", in)
	}
	assert.Equal(t, "1e-7", Number(1e-7).String())

	v := 1e21
	assert.Equal(t, "1e+21", FormatStored(&v))
}
