package inference

import (
	"context"
)

// Classifier returns one probability distribution over classes per feature row
type Classifier interface {
	PredictProba(ctx context.Context, features [][]float64) ([][]float64, error)
}

// Regressor returns one value per feature row
type Regressor interface {
	Predict(ctx context.Context, features [][]float64) ([]float64, error)
}

// Capability tells whether a classifier can explain itself
type Capability int

const (
	// Opaque classifiers expose probabilities only
	Opaque Capability = iota
	// WithImportances classifiers also expose per-feature importances
	WithImportances
)

func (c Capability) String() string {
	if c == WithImportances {
		return "with-importances"
	}
	return "opaque"
}

// ClassifierHandle is a loaded classifier plus what was learned about it at load time
type ClassifierHandle struct {
	Model       Classifier
	Label       string
	Capability  Capability
	Importances []float64
}

// NewClassifierHandle tags the classifier as WithImportances when importances are given
func NewClassifierHandle(model Classifier, label string, importances []float64) *ClassifierHandle {
	h := &ClassifierHandle{Model: model, Label: label, Capability: Opaque}
	if len(importances) > 0 {
		h.Capability = WithImportances
		h.Importances = append([]float64(nil), importances...)
	}
	return h
}

// RegressorHandle is a loaded regressor
type RegressorHandle struct {
	Model Regressor
	Label string
}
