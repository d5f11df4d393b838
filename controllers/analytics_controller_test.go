package controllers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMonthlyCompletionRate(t *testing.T) {
	tests := []struct {
		name    string
		records int64
		items   int64
		want    float64
	}{
		{"no items", 10, 0, 0},
		{"no records", 0, 3, 0},
		{"half month one item", 15, 1, 0.5},
		{"full month one item", 30, 1, 1},
		{"two items partial", 30, 2, 0.5},
		{"over a month caps at 1", 45, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, monthlyCompletionRate(tt.records, tt.items), 1e-9)
		})
	}
}

func TestParseTrendDays(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 7},
		{"abc", 7},
		{"0", 7},
		{"-3", 7},
		{"7", 7},
		{"14", 14},
		{"30", 30},
		{" 30 ", 30},
		{"500", 90},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseTrendDays(tt.in), "input %q", tt.in)
	}
}
