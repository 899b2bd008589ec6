package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Alijeyrad/cogniscreen/config"
	"github.com/Alijeyrad/cogniscreen/internal/events"
	s3pkg "github.com/Alijeyrad/cogniscreen/pkg/s3"
)

// OpenServices builds the services for a terminal command without fx.
// NATS and S3 are optional: a failure to reach either is logged and the
// command runs without it. release frees everything that was opened.
func OpenServices(ctx context.Context, cfg *config.Config) (svcs Services, release func() error, err error) {
	st, closeStore, err := OpenStore(ctx, cfg)
	if err != nil {
		return Services{}, nil, err
	}
	closers := []func() error{closeStore}

	nc, err := ConnectNats(cfg)
	if err != nil {
		slog.Warn("events disabled, cannot reach NATS", "url", cfg.Nats.URL, "error", err)
	} else if nc != nil {
		closers = append(closers, nc.Drain)
	}

	var uploader *s3pkg.Client
	if s3pkg.Enabled(cfg.S3) {
		uploader, err = s3pkg.New(ctx, cfg.S3)
		if err != nil {
			slog.Warn("export upload disabled", "error", err)
			uploader = nil
		}
	}

	svcs = BuildServices(cfg, st, events.NewPublisher(nc, cfg.Nats.SubjectPrefix), uploader)
	return svcs, func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}, nil
}
