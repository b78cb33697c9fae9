package inference

import (
	"context"
	"fmt"
	"math"
)

// LogisticRegression is a binary linear classifier
type LogisticRegression struct {
	coef      []float64
	intercept float64
}

// NewLogisticRegression returns a classifier over len(coef) features
func NewLogisticRegression(coef []float64, intercept float64) (*LogisticRegression, error) {
	if len(coef) == 0 {
		return nil, fmt.Errorf("inference: logistic regression has no coefficients")
	}
	return &LogisticRegression{coef: coef, intercept: intercept}, nil
}

// PredictProba implements Classifier with two columns: [P(0), P(1)]
func (m *LogisticRegression) PredictProba(_ context.Context, features [][]float64) ([][]float64, error) {
	out := make([][]float64, len(features))
	for i, row := range features {
		z, err := dot(m.coef, row, m.intercept, i)
		if err != nil {
			return nil, err
		}
		p := 1 / (1 + math.Exp(-z))
		out[i] = []float64{1 - p, p}
	}
	return out, nil
}

// LinearRegression is an ordinary least squares regressor
type LinearRegression struct {
	coef      []float64
	intercept float64
}

// NewLinearRegression returns a regressor over len(coef) features
func NewLinearRegression(coef []float64, intercept float64) (*LinearRegression, error) {
	if len(coef) == 0 {
		return nil, fmt.Errorf("inference: linear regression has no coefficients")
	}
	return &LinearRegression{coef: coef, intercept: intercept}, nil
}

// Predict implements Regressor
func (m *LinearRegression) Predict(_ context.Context, features [][]float64) ([]float64, error) {
	out := make([]float64, len(features))
	for i, row := range features {
		y, err := dot(m.coef, row, m.intercept, i)
		if err != nil {
			return nil, err
		}
		out[i] = y
	}
	return out, nil
}

func dot(coef, row []float64, intercept float64, rowIdx int) (float64, error) {
	if len(row) != len(coef) {
		return 0, predictionErrorf("row %d has %d features, model expects %d", rowIdx, len(row), len(coef))
	}
	sum := intercept
	for j, w := range coef {
		sum += w * row[j]
	}
	return sum, nil
}
