package currency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMinor(t *testing.T) {
	cases := []struct {
		name  string
		value interface{}
		want  int
	}{
		{"decimal string", "5.54", 554},
		{"small decimal string", "0.02", 2},
		{"whole string", "54", 5400},
		{"padded string", " 12.00 ", 1200},
		{"int", 54, 5400},
		{"int64", int64(3), 300},
		{"float", 5.54, 554},
		{"negative string", "-0.50", -50},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ToMinor(tc.value)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestToMinorRejectsBadInput(t *testing.T) {
	for _, v := range []interface{}{nil, "", "  ", "abc", "5.5.4", true} {
		_, err := ToMinor(v)
		assert.Error(t, err, "value %v", v)
	}
}

func TestToDisplay(t *testing.T) {
	assert.Equal(t, "5.12", ToDisplay(512))
	assert.Equal(t, "0.02", ToDisplay(2))
	assert.Equal(t, "0.00", ToDisplay(0))
	assert.Equal(t, "-1.50", ToDisplay(-150))
}

func TestToDisplayPtr(t *testing.T) {
	assert.Nil(t, ToDisplayPtr(nil))
	minor := 999
	got := ToDisplayPtr(&minor)
	require.NotNil(t, got)
	assert.Equal(t, "9.99", *got)
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, " £5.12", FormatPrice("£", 512))
	assert.Equal(t, "-£0.50", FormatPrice("£", -50))
	assert.Equal(t, " $0.00", FormatPrice("$", 0))
	assert.Equal(t, " £5.12", FormatGBP(512))
}

func TestFormatLocal(t *testing.T) {
	// rate is local -> GBP, so GBP / rate = local
	assert.Equal(t, " $12.50", FormatLocal(1000, 0.8, "$"))
	assert.Equal(t, " €10.00", FormatLocal(1000, 1, "€"))
	// missing rate degrades to zero rather than dividing by it
	assert.Equal(t, " $0.00", FormatLocal(1000, 0, "$"))
}
