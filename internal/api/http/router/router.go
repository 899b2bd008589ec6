package router

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	"github.com/Alijeyrad/cogniscreen/config"
	"github.com/Alijeyrad/cogniscreen/internal/api/http/handler"
	"github.com/Alijeyrad/cogniscreen/internal/api/http/middleware"
	"github.com/Alijeyrad/cogniscreen/internal/service/assessment"
	historysvc "github.com/Alijeyrad/cogniscreen/internal/service/history"
	"github.com/Alijeyrad/cogniscreen/pkg/kv"
)

// Module provides the Router to the fx graph.
var Module = fx.Module("router", fx.Provide(NewRouter))

// readinessTimeout bounds the store ping so /readyz answers inside a probe's
// deadline even while the backend is unreachable.
const readinessTimeout = 500 * time.Millisecond

type Params struct {
	fx.In

	Cfg           *config.Config
	Store         kv.Store
	AssessmentSvc assessment.Service
	HistorySvc    historysvc.Service
}

type Router struct {
	p Params
}

func NewRouter(p Params) *Router {
	return &Router{p: p}
}

func (r *Router) Register(app *fiber.App) {
	// 1. Health & Metrics
	r.registerSystemRoutes(app)

	// 2. Middlewares
	clientScope := middleware.ClientScope()

	// 3. Handlers
	assessmentH := handler.NewAssessmentHandler(r.p.AssessmentSvc)
	historyH := handler.NewHistoryHandler(r.p.HistorySvc)

	api := app.Group("/api/v1")

	// 4. Delegate to sub-files
	r.registerAssessmentRoutes(api, assessmentH, clientScope)
	r.registerHistoryRoutes(api, historyH, clientScope)
}

func (r *Router) registerSystemRoutes(app *fiber.App) {
	app.Get(healthcheck.LivenessEndpoint, healthcheck.New())
	app.Get(healthcheck.ReadinessEndpoint, healthcheck.New(healthcheck.Config{
		Probe: func(c fiber.Ctx) bool {
			ctx, cancel := context.WithTimeout(c.Context(), readinessTimeout)
			defer cancel()
			return r.p.Store.Ping(ctx) == nil
		},
	}))
	app.Get(healthcheck.StartupEndpoint, healthcheck.New())

	if r.p.Cfg.Observability.Enabled && r.p.Cfg.Observability.Metrics.Enabled {
		path := r.p.Cfg.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		app.Get(path, adaptor.HTTPHandler(promhttp.Handler()))
	}
}
