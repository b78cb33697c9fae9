package inference

import (
	"encoding/json"
	"fmt"
	"io"
)

// Artifact kinds understood by the loader
const (
	KindRandomForest       = "random_forest_classifier"
	KindLogisticRegression = "logistic_regression"
	KindLinearRegression   = "linear_regression"
	KindLabelEncoder       = "label_encoder"
	KindRemote             = "remote"
)

var defaultLabels = map[string]string{
	KindRandomForest:       "Random Forest Classifier",
	KindLogisticRegression: "Logistic Regression",
	KindLinearRegression:   "Linear Regression",
	KindRemote:             "Remote Model",
}

// Artifact is the exported form of a fitted model or encoder
type Artifact struct {
	Kind               string         `json:"kind"`
	Label              string         `json:"label,omitempty"`
	NFeatures          int            `json:"n_features,omitempty"`
	FeatureImportances []float64      `json:"feature_importances,omitempty"`
	Trees              []DecisionTree `json:"trees,omitempty"`
	Coef               []float64      `json:"coef,omitempty"`
	Intercept          float64        `json:"intercept,omitempty"`
	Classes            []string       `json:"classes,omitempty"`
	URL                string         `json:"url,omitempty"`
	Model              string         `json:"model,omitempty"`
}

// DecodeArtifact reads one JSON artifact
func DecodeArtifact(r io.Reader) (*Artifact, error) {
	var a Artifact
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("inference: failed to decode artifact: %w", err)
	}
	if a.Kind == "" {
		return nil, fmt.Errorf("inference: artifact has no kind")
	}
	return &a, nil
}

func (a *Artifact) label() string {
	if a.Label != "" {
		return a.Label
	}
	return defaultLabels[a.Kind]
}

// FeatureCount returns the input width the artifact was fit on, or 0 when a remote
// artifact does not declare one
func (a *Artifact) FeatureCount() int {
	switch a.Kind {
	case KindLogisticRegression, KindLinearRegression:
		return len(a.Coef)
	default:
		return a.NFeatures
	}
}

// Classifier builds a classifier handle from the artifact
func (a *Artifact) Classifier() (*ClassifierHandle, error) {
	var (
		model     Classifier
		nFeatures = a.NFeatures
	)
	switch a.Kind {
	case KindRandomForest:
		f, err := NewRandomForest(a.Trees, a.NFeatures)
		if err != nil {
			return nil, err
		}
		model = f
	case KindLogisticRegression:
		lr, err := NewLogisticRegression(a.Coef, a.Intercept)
		if err != nil {
			return nil, err
		}
		model = lr
		nFeatures = len(a.Coef)
	case KindRemote:
		if a.URL == "" {
			return nil, fmt.Errorf("inference: remote artifact has no url")
		}
		model = NewRemoteModel(a.URL, a.Model)
	default:
		return nil, fmt.Errorf("inference: %q is not a classifier kind", a.Kind)
	}

	if len(a.FeatureImportances) > 0 && nFeatures > 0 && len(a.FeatureImportances) != nFeatures {
		return nil, fmt.Errorf("inference: %d feature importances for %d features", len(a.FeatureImportances), nFeatures)
	}
	return NewClassifierHandle(model, a.label(), a.FeatureImportances), nil
}

// Regressor builds a regressor handle from the artifact
func (a *Artifact) Regressor() (*RegressorHandle, error) {
	switch a.Kind {
	case KindLinearRegression:
		lr, err := NewLinearRegression(a.Coef, a.Intercept)
		if err != nil {
			return nil, err
		}
		return &RegressorHandle{Model: lr, Label: a.label()}, nil
	case KindRemote:
		if a.URL == "" {
			return nil, fmt.Errorf("inference: remote artifact has no url")
		}
		return &RegressorHandle{Model: NewRemoteModel(a.URL, a.Model), Label: a.label()}, nil
	default:
		return nil, fmt.Errorf("inference: %q is not a regressor kind", a.Kind)
	}
}

// Encoder builds a label encoder from the artifact
func (a *Artifact) Encoder(name string) (*LabelEncoder, error) {
	if a.Kind != KindLabelEncoder {
		return nil, fmt.Errorf("inference: %q is not an encoder kind", a.Kind)
	}
	return NewLabelEncoder(name, a.Classes)
}
