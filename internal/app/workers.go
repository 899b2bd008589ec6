package app

import (
	"context"
	"log/slog"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/fx"

	"github.com/Alijeyrad/cogniscreen/config"
	"github.com/Alijeyrad/cogniscreen/internal/events"
)

// WorkerModule registers all NATS event workers.
var WorkerModule = fx.Module("workers",
	fx.Invoke(RegisterWorkers),
)

type WorkerParams struct {
	fx.In

	Lc  fx.Lifecycle
	Cfg *config.Config
	NC  *nats.Conn
}

func RegisterWorkers(p WorkerParams) {
	if p.NC == nil {
		return
	}

	var sub *nats.Subscription
	p.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			var err error
			sub, err = startCompletionWorker(p.NC, p.Cfg.Nats.SubjectPrefix)
			return err
		},
		OnStop: func(ctx context.Context) error {
			if sub == nil {
				return nil
			}
			return sub.Unsubscribe()
		},
	})
}

// ---------------------------------------------------------------------------
// completion_worker
// ---------------------------------------------------------------------------

// startCompletionWorker counts completed assessments by risk level and
// result source, so fallback usage is visible on the metrics endpoint.
func startCompletionWorker(nc *nats.Conn, prefix string) (*nats.Subscription, error) {
	completed, _ := otel.Meter("github.com/Alijeyrad/cogniscreen/internal/app").Int64Counter(
		"assessments_completed_total",
		metric.WithDescription("Completed assessments by risk level and result source"),
		metric.WithUnit("{assessment}"),
	)

	sub, err := nc.Subscribe(events.CompletedWildcard(prefix), func(msg *nats.Msg) {
		ev, err := events.DecodeCompleted(msg.Data)
		if err != nil {
			slog.Warn("completion_worker: malformed event", "subject", msg.Subject, "err", err)
			return
		}
		completed.Add(context.Background(), 1, metric.WithAttributes(
			attribute.String("risk_level", ev.RiskLevel),
			attribute.String("source", ev.Source),
		))
		slog.Info("completion_worker: assessment completed",
			"client", ev.Client,
			"record_id", ev.RecordID,
			"risk_level", ev.RiskLevel,
			"source", ev.Source,
		)
	})
	if err != nil {
		slog.Error("completion_worker: subscribe failed", "err", err)
		return nil, err
	}

	slog.Info("completion_worker: started")
	return sub, nil
}
