package money

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Cents
	}{
		{"150.00", 15000},
		{"150", 15000},
		{"12.5", 1250},
		{"0.005", 1},
		{"0.004", 0},
		{"33.335", 3334},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Parse("twelve")
	assert.Error(t, err)
}

func TestString(t *testing.T) {
	assert.Equal(t, "51.50", Cents(5150).String())
	assert.Equal(t, "0.07", Cents(7).String())
	assert.Equal(t, "100.00", Cents(10000).String())
}

func TestWithFee(t *testing.T) {
	three := decimal.NewFromInt(3)

	assert.Equal(t, Cents(5150), Cents(5000).WithFee(three))
	// 33.33 * 1.03 = 34.3299 -> 34.33
	assert.Equal(t, Cents(3433), Cents(3333).WithFee(three))
	// 0.50 * 1.03 = 0.515 -> 0.52 (half-up)
	assert.Equal(t, Cents(52), Cents(50).WithFee(three))
	assert.Equal(t, Cents(5000), Cents(5000).WithFee(decimal.Zero))
}

func TestJSON(t *testing.T) {
	data, err := json.Marshal(Cents(7525))
	require.NoError(t, err)
	assert.Equal(t, `"75.25"`, string(data))

	var fromString Cents
	require.NoError(t, json.Unmarshal([]byte(`"300.10"`), &fromString))
	assert.Equal(t, Cents(30010), fromString)

	var fromNumber Cents
	require.NoError(t, json.Unmarshal([]byte(`42.5`), &fromNumber))
	assert.Equal(t, Cents(4250), fromNumber)

	var bad Cents
	assert.Error(t, json.Unmarshal([]byte(`true`), &bad))
}

func TestSum(t *testing.T) {
	assert.Equal(t, Cents(10000), Sum(3334, 3333, 3333))
	assert.Equal(t, Cents(0), Sum())
}
