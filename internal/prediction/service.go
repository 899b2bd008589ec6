package prediction

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/Alijeyrad/cogniscreen/internal/prediction"

// Predictor is the remote half of a submission.
type Predictor interface {
	Predict(ctx context.Context, data map[string]string) (Result, error)
}

// Service submits form data for prediction, substituting the fallback
// estimate on any remote failure.
type Service struct {
	remote   Predictor
	fallback *Estimator
	requests metric.Int64Counter
}

// NewService wires a remote predictor and a fallback estimator. A nil
// remote means every submission is estimated locally.
func NewService(remote Predictor, fallback *Estimator) *Service {
	if fallback == nil {
		fallback = NewEstimator(nil)
	}
	requests, _ := otel.Meter(meterName).Int64Counter(
		"prediction_requests_total",
		metric.WithDescription("Assessment submissions by result source"),
		metric.WithUnit("{request}"),
	)
	return &Service{remote: remote, fallback: fallback, requests: requests}
}

// Submit never fails: remote errors are logged and replaced by the
// fallback estimate.
func (s *Service) Submit(ctx context.Context, data map[string]string) Result {
	res := s.submit(ctx, data)
	if s.requests != nil {
		s.requests.Add(ctx, 1, metric.WithAttributes(
			attribute.String("source", string(res.Source)),
			attribute.String("risk_level", res.RiskLevel),
		))
	}
	return res
}

func (s *Service) submit(ctx context.Context, data map[string]string) Result {
	if s.remote == nil {
		return s.fallback.Estimate(data)
	}

	res, err := s.remote.Predict(ctx, data)
	if err != nil {
		slog.WarnContext(ctx, "prediction endpoint unavailable, using fallback estimate", "error", err)
		return s.fallback.Estimate(data)
	}
	return res
}
