package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, mean(nil))
	assert.Equal(t, 2.0, mean([]float64{1, 2, 3}))
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 0.0, median(nil))
	assert.Equal(t, 2.0, median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, median([]float64{4, 1, 2, 3}))
}

func TestSlope(t *testing.T) {
	assert.Equal(t, 0.0, slope([]float64{1}, []float64{1}))
	assert.Equal(t, 0.0, slope([]float64{2, 2}, []float64{1, 5}))

	// Perfect line y = 3 + 2x.
	got := slope([]float64{0, 1, 2, 3}, []float64{3, 5, 7, 9})
	assert.InDelta(t, 2.0, got, 1e-9)

	got = slope([]float64{0, 10}, []float64{1.0, 0.5})
	assert.InDelta(t, -0.05, got, 1e-9)
}
