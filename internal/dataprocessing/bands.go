package dataprocessing

import (
	"fmt"
	"math"
	"sort"
	"strconv"
)

// avaluoQuantiles are the cut points for the five valuation bands.
var avaluoQuantiles = []float64{0, 0.2, 0.4, 0.6, 0.8, 1}

// Fixed construction-area band edges in square meters. The open last band is
// represented by +Inf.
var AreaEdges = []float64{0, 35, 70, 120, math.Inf(1)}

// AreaLabels are the display labels for the construction-area bands, index
// aligned with the AreaEdges intervals.
var AreaLabels = []string{
	"0 - 35 m²",
	"35 - 70 m²",
	"70 - 120 m²",
	"Más de 120 m²",
}

// ComputeBandEdges returns the deduplicated quantile edges for the given
// values. NaN values are ignored. Returns nil when no finite value remains.
// When every value is identical the result is a degenerate two-edge band
// covering exactly that value.
func ComputeBandEdges(values []float64) []float64 {
	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return nil
	}
	sort.Float64s(finite)

	edges := make([]float64, 0, len(avaluoQuantiles))
	for _, q := range avaluoQuantiles {
		e := quantile(finite, q)
		// Collapse duplicate edges from ties in the data.
		if len(edges) == 0 || e != edges[len(edges)-1] {
			edges = append(edges, e)
		}
	}

	if len(edges) == 1 {
		edges = append(edges, edges[0])
	}
	return edges
}

// quantile computes the q-th quantile of sorted values using linear
// interpolation between the closest ranks.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// CurrencyBandLabels builds the "$lo - $hi" display label for each interval
// between consecutive edges. Amounts are truncated to whole pesos with dot
// thousand separators.
func CurrencyBandLabels(edges []float64) []string {
	if len(edges) < 2 {
		return nil
	}
	labels := make([]string, 0, len(edges)-1)
	for i := 0; i < len(edges)-1; i++ {
		labels = append(labels, fmt.Sprintf("%s - %s",
			FormatCurrency(edges[i]), FormatCurrency(edges[i+1])))
	}
	return labels
}

// FormatCurrency renders a peso amount as "$1.234.567", truncating decimals.
func FormatCurrency(v float64) string {
	n := int64(v)
	neg := n < 0
	if neg {
		n = -n
	}
	s := strconv.FormatInt(n, 10)

	var out []byte
	for i, d := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, '.')
		}
		out = append(out, d)
	}
	if neg {
		return "$-" + string(out)
	}
	return "$" + string(out)
}

// BinIndex returns the interval index for v given ascending edges, or -1 when
// v is NaN or falls outside every interval. The first interval includes its
// lower edge; every interval includes its upper edge.
func BinIndex(v float64, edges []float64) int {
	if math.IsNaN(v) || len(edges) < 2 {
		return -1
	}

	// Degenerate band covering a single value.
	if edges[0] == edges[len(edges)-1] {
		if v == edges[0] {
			return 0
		}
		return -1
	}

	if v < edges[0] || v > edges[len(edges)-1] {
		return -1
	}
	if v == edges[0] {
		return 0
	}
	for i := 0; i < len(edges)-1; i++ {
		if v > edges[i] && v <= edges[i+1] {
			return i
		}
	}
	return -1
}
