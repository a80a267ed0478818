package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentOf(t *testing.T) {
	tests := []struct {
		name  string
		part  Money
		whole Money
		want  float64
	}{
		{"exact half", NewMoney(5000), NewMoney(10000), 50.0},
		{"weekend share", NewMoney(15000), NewMoney(25000), 60.0},
		{"over budget", NewMoney(12000), NewMoney(10000), 120.0},
		{"zero whole", NewMoney(5000), Money{}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, PercentOf(tt.part, tt.whole), 1e-9)
		})
	}
}

func TestPercentChange(t *testing.T) {
	assert.InDelta(t, 50.0, PercentChange(NewMoney(15000), NewMoney(10000)), 1e-9)
	assert.InDelta(t, -25.0, PercentChange(NewMoney(7500), NewMoney(10000)), 1e-9)
	assert.InDelta(t, 0.0, PercentChange(NewMoney(7500), Money{}), 1e-9)
}

func TestParseDecimalToCents(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"12.34", 1234, false},
		{"12,34", 1234, false},
		{"12.345", 1234, false},
		{"12.346", 1235, false},
		{"0.01", 1, false},
		{"100", 10000, false},
		{"", 0, true},
		{"-5", 0, true},
		{"0", 0, true},
		{"12.3.4", 0, true},
		{"abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDecimalToCents(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
