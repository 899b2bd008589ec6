package app

import (
	"go.uber.org/fx"

	"github.com/Alijeyrad/cogniscreen/config"
	"github.com/Alijeyrad/cogniscreen/internal/events"
	"github.com/Alijeyrad/cogniscreen/internal/history"
	"github.com/Alijeyrad/cogniscreen/internal/prediction"
	"github.com/Alijeyrad/cogniscreen/internal/service/assessment"
	historysvc "github.com/Alijeyrad/cogniscreen/internal/service/history"
	"github.com/Alijeyrad/cogniscreen/internal/store"
	"github.com/Alijeyrad/cogniscreen/pkg/kv"
	s3pkg "github.com/Alijeyrad/cogniscreen/pkg/s3"
)

// ServiceModule provides all application service dependencies.
var ServiceModule = fx.Module("services",
	fx.Provide(ProvideServices),
)

// Services is the application layer shared by the HTTP server and the
// terminal commands.
type Services struct {
	Assessment assessment.Service
	History    historysvc.Service
}

// BuildServices wires the services over an open store. pub and uploader
// may be nil.
func BuildServices(cfg *config.Config, st kv.Store, pub *events.Publisher, uploader *s3pkg.Client) Services {
	keys := store.NewKeyspace(cfg.Storage.KeyPrefix)
	log := history.NewLog(st, keys, cfg.Assessment.HistoryLimit)

	// Keep a nil *prediction.Client out of the interface.
	var remote prediction.Predictor
	if c := prediction.NewClient(cfg.Prediction); c != nil {
		remote = c
	}
	predictor := prediction.NewService(remote, prediction.NewEstimator(nil))

	svc := assessment.New(
		cfg.Assessment,
		store.NewDrafts(st, keys, cfg.Assessment.DraftMaxAge()),
		store.NewSessions(st, keys, cfg.Assessment.SessionTTL()),
		store.NewSnapshots(st, keys),
		log,
		predictor,
		pub,
	)

	// Keep a nil *s3pkg.Client out of the interface.
	var up historysvc.Uploader
	if uploader != nil {
		up = uploader
	}

	return Services{Assessment: svc, History: historysvc.New(log, up)}
}

type ServicesOut struct {
	fx.Out

	Assessment assessment.Service
	History    historysvc.Service
}

func ProvideServices(cfg *config.Config, st kv.Store, pub *events.Publisher, uploader *s3pkg.Client) ServicesOut {
	s := BuildServices(cfg, st, pub, uploader)
	return ServicesOut{Assessment: s.Assessment, History: s.History}
}
