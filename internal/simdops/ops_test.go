package simdops

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFor_ReturnsMatchingPrecision(t *testing.T) {
	assert.Same(t, &ops32, For[float32]())
	assert.Same(t, &ops64, For[float64]())
}

func TestConvolveValid_IsCorrelation(t *testing.T) {
	ops := For[float64]()
	signal := []float64{1, 2, 3, 4}
	kernel := []float64{1, 10}
	dst := make([]float64, len(signal)-len(kernel)+1)

	ops.ConvolveValid(dst, signal, kernel)

	assert.Equal(t, []float64{21, 32, 43}, dst)
}

func TestConvert(t *testing.T) {
	dst := make([]float64, 2)
	n := Convert(dst, []float32{0.5, 1.5, 2.5})
	assert.Equal(t, 2, n)
	assert.Equal(t, []float64{0.5, 1.5}, dst)
}

func TestInfo_NotEmpty(t *testing.T) {
	assert.NotEmpty(t, Info())
}
