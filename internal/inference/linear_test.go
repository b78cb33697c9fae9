package inference

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogisticRegression_PredictProba(t *testing.T) {
	m, err := NewLogisticRegression([]float64{1, -1}, 0)
	require.NoError(t, err)

	proba, err := m.PredictProba(context.Background(), [][]float64{{0, 0}, {10, 0}, {0, 10}})
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{0.5, 0.5}, proba[0], 1e-9)
	assert.Greater(t, proba[1][1], 0.99)
	assert.Less(t, proba[2][1], 0.01)
	for _, row := range proba {
		assert.InDelta(t, 1.0, row[0]+row[1], 1e-12)
	}
}

func TestLinearRegression_Predict(t *testing.T) {
	m, err := NewLinearRegression([]float64{2, 0.5}, 1)
	require.NoError(t, err)

	out, err := m.Predict(context.Background(), [][]float64{{1, 2}, {0, 0}})
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 1}, out)
}

func TestLinear_ShapeMismatch(t *testing.T) {
	lr, err := NewLinearRegression([]float64{1, 1}, 0)
	require.NoError(t, err)
	_, err = lr.Predict(context.Background(), [][]float64{{1}})
	assert.True(t, errors.Is(err, ErrPrediction))

	lg, err := NewLogisticRegression([]float64{1}, 0)
	require.NoError(t, err)
	_, err = lg.PredictProba(context.Background(), [][]float64{{1, 2}})
	assert.True(t, errors.Is(err, ErrPrediction))
}

func TestLinear_NoCoefficients(t *testing.T) {
	_, err := NewLinearRegression(nil, 0)
	assert.Error(t, err)
	_, err = NewLogisticRegression(nil, 0)
	assert.Error(t, err)
}
