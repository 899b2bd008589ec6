package prediction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/Alijeyrad/cogniscreen/config"
)

var (
	ErrUnexpectedStatus  = errors.New("prediction endpoint returned non-2xx status")
	ErrMalformedResponse = errors.New("prediction endpoint returned a malformed result")
)

// Client calls the remote prediction endpoint. It never retries.
type Client struct {
	http     *resty.Client
	endpoint string
}

// NewClient builds a client from config. It returns nil when no base URL is
// configured, which makes every submission use the fallback estimator.
func NewClient(cfg config.PredictionConfig) *Client {
	if cfg.BaseURL == "" {
		return nil
	}

	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout()).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "/predict"
	}

	return &Client{http: http, endpoint: endpoint}
}

// Predict posts the form data and decodes the result.
func (c *Client) Predict(ctx context.Context, data map[string]string) (Result, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(data).
		Post(c.endpoint)
	if err != nil {
		return Result{}, fmt.Errorf("post %s: %w", c.endpoint, err)
	}
	if !resp.IsSuccess() {
		return Result{}, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode())
	}

	var res Result
	if err := json.Unmarshal(resp.Body(), &res); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if res.Prediction != 0 && res.Prediction != 1 {
		return Result{}, fmt.Errorf("%w: prediction %d", ErrMalformedResponse, res.Prediction)
	}
	if res.RiskLevel == "" {
		res.RiskLevel = RiskLow
		if res.HighRisk() {
			res.RiskLevel = RiskHigh
		}
	}
	res.Source = SourceRemote
	return res, nil
}
