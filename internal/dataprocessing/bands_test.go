package dataprocessing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeBandEdges(t *testing.T) {
	t.Run("evenly spread values", func(t *testing.T) {
		values := []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100}

		edges := ComputeBandEdges(values)

		assert.Equal(t, []float64{0, 20, 40, 60, 80, 100}, edges)
	})

	t.Run("ignores NaN values", func(t *testing.T) {
		values := []float64{math.NaN(), 0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100, math.NaN()}

		edges := ComputeBandEdges(values)

		assert.Equal(t, []float64{0, 20, 40, 60, 80, 100}, edges)
	})

	t.Run("collapses duplicate quantile edges", func(t *testing.T) {
		// Heavy ties push several quantiles onto the same value.
		values := []float64{1, 1, 1, 1, 1, 1, 1, 1, 100}

		edges := ComputeBandEdges(values)

		require.GreaterOrEqual(t, len(edges), 2)
		for i := 1; i < len(edges); i++ {
			assert.Greater(t, edges[i], edges[i-1], "edges must be strictly increasing")
		}
	})

	t.Run("single distinct value yields degenerate band", func(t *testing.T) {
		values := []float64{5000, 5000, 5000}

		edges := ComputeBandEdges(values)

		assert.Equal(t, []float64{5000, 5000}, edges)
		assert.Equal(t, []string{"$5.000 - $5.000"}, CurrencyBandLabels(edges))
	})

	t.Run("no finite values returns nil", func(t *testing.T) {
		assert.Nil(t, ComputeBandEdges([]float64{math.NaN(), math.NaN()}))
		assert.Nil(t, ComputeBandEdges(nil))
	})
}

func TestQuantileInterpolation(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}

	assert.Equal(t, 1.0, quantile(sorted, 0))
	assert.Equal(t, 2.5, quantile(sorted, 0.5))
	assert.Equal(t, 4.0, quantile(sorted, 1))
	assert.InDelta(t, 1.6, quantile(sorted, 0.2), 1e-9)
}

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		value    float64
		expected string
	}{
		{0, "$0"},
		{999, "$999"},
		{1000, "$1.000"},
		{1234567, "$1.234.567"},
		{987654321.99, "$987.654.321"},
		{-45000, "$-45.000"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatCurrency(tt.value), "value %v", tt.value)
	}
}

func TestCurrencyBandLabels(t *testing.T) {
	edges := []float64{0, 1000, 2500000}

	labels := CurrencyBandLabels(edges)

	assert.Equal(t, []string{"$0 - $1.000", "$1.000 - $2.500.000"}, labels)
	assert.Nil(t, CurrencyBandLabels([]float64{42}))
}

func TestBinIndex(t *testing.T) {
	edges := []float64{0, 20, 40}

	tests := []struct {
		name     string
		value    float64
		expected int
	}{
		{"lowest edge included in first bin", 0, 0},
		{"upper edge belongs to lower bin", 20, 0},
		{"interior of second bin", 20.5, 1},
		{"top edge included", 40, 1},
		{"above range", 41, -1},
		{"below range", -1, -1},
		{"NaN", math.NaN(), -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, BinIndex(tt.value, edges))
		})
	}

	t.Run("degenerate single-value band", func(t *testing.T) {
		degenerate := []float64{5, 5}
		assert.Equal(t, 0, BinIndex(5, degenerate))
		assert.Equal(t, -1, BinIndex(4, degenerate))
	})
}

func TestAreaBands(t *testing.T) {
	require.Len(t, AreaLabels, len(AreaEdges)-1)

	assert.Equal(t, 0, BinIndex(0, AreaEdges))
	assert.Equal(t, 0, BinIndex(35, AreaEdges))
	assert.Equal(t, 1, BinIndex(36, AreaEdges))
	assert.Equal(t, 2, BinIndex(120, AreaEdges))
	assert.Equal(t, 3, BinIndex(121, AreaEdges))
	assert.Equal(t, 3, BinIndex(99999, AreaEdges))
}
