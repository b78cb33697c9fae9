package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// RemoteModel delegates inference to an external model service over HTTP
type RemoteModel struct {
	serviceURL string
	model      string
	httpClient *http.Client
}

// NewRemoteModel creates a client for one model hosted by the service at serviceURL
func NewRemoteModel(serviceURL, model string) *RemoteModel {
	return &RemoteModel{
		serviceURL: strings.TrimRight(serviceURL, "/"),
		model:      model,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type remoteRequest struct {
	Model    string      `json:"model"`
	Features [][]float64 `json:"features"`
}

type probaResponse struct {
	Probabilities [][]float64 `json:"probabilities"`
}

type predictResponse struct {
	Predictions []float64 `json:"predictions"`
}

// PredictProba calls POST {url}/predict_proba
func (m *RemoteModel) PredictProba(ctx context.Context, features [][]float64) ([][]float64, error) {
	var resp probaResponse
	if err := m.post(ctx, "predict_proba", features, &resp); err != nil {
		return nil, err
	}
	return resp.Probabilities, nil
}

// Predict calls POST {url}/predict
func (m *RemoteModel) Predict(ctx context.Context, features [][]float64) ([]float64, error) {
	var resp predictResponse
	if err := m.post(ctx, "predict", features, &resp); err != nil {
		return nil, err
	}
	return resp.Predictions, nil
}

func (m *RemoteModel) post(ctx context.Context, op string, features [][]float64, out any) error {
	// Prepare request body
	body, err := json.Marshal(remoteRequest{Model: m.model, Features: features})
	if err != nil {
		return fmt.Errorf("%w: remote: failed to marshal request: %v", ErrPrediction, err)
	}

	url := fmt.Sprintf("%s/%s", m.serviceURL, op)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: remote: failed to create request: %v", ErrPrediction, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: remote: %s: %v", ErrPrediction, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: remote: %s returned status %d", ErrPrediction, op, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: remote: failed to decode response: %v", ErrPrediction, err)
	}
	return nil
}

// Health checks model service connectivity
func (m *RemoteModel) Health(ctx context.Context) error {
	url := fmt.Sprintf("%s/health", m.serviceURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("remote: failed to create health request: %w", err)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("remote: health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("remote: health check returned status %d", resp.StatusCode)
	}
	return nil
}
