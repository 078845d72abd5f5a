package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/prairieworks/grainledger-backend/api/controllers"
	"github.com/prairieworks/grainledger-backend/api/middleware"
	"github.com/prairieworks/grainledger-backend/internal/contracts"
	"github.com/prairieworks/grainledger-backend/internal/images"
	"github.com/prairieworks/grainledger-backend/internal/tickets"
	"github.com/prairieworks/grainledger-backend/internal/xlsx"
	"github.com/prairieworks/grainledger-backend/pkg/config"
	"github.com/prairieworks/grainledger-backend/pkg/logger"
	pkgredis "github.com/prairieworks/grainledger-backend/pkg/redis"
)

// Dependencies carries everything the router wires into handlers. Optional
// members (IdempotencyStore, ImagesService, ReadinessPings entries) may be nil.
type Dependencies struct {
	Config           *config.Config
	Logger           *logger.Logger
	TicketsService   tickets.Service
	ContractsService contracts.Service
	XLSXService      xlsx.Service
	ImagesService    images.Service
	IdempotencyStore pkgredis.IdempotencyStore
	ReadinessPings   map[string]controllers.Pinger
	MetricsHandler   http.Handler
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.ReadinessPings))
	})

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	} else {
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.Auth.SharedSecret, logg))
		r.Use(middleware.Idempotency(deps.IdempotencyStore, logg))

		r.Route("/tickets", func(r chi.Router) {
			r.Post("/", controllers.TicketCreate(deps.TicketsService, logg))
			r.Get("/", controllers.TicketList(deps.TicketsService, logg))
			r.Get("/export", controllers.TicketsExport(deps.XLSXService, logg))

			r.Route("/{ticketId}", func(r chi.Router) {
				r.Get("/", controllers.TicketDetail(deps.TicketsService, logg))
				r.Patch("/", controllers.TicketUpdate(deps.TicketsService, logg))
				r.Delete("/", controllers.TicketDelete(deps.TicketsService, logg))
				r.Post("/approve", controllers.TicketApprove(deps.TicketsService, logg))
				r.Post("/transition", controllers.TicketTransition(deps.TicketsService, logg))
				r.Post("/reassign", controllers.TicketReassign(deps.TicketsService, logg))
				r.Post("/restore", controllers.TicketRestore(deps.TicketsService, logg))
				r.Delete("/purge", controllers.TicketPurge(deps.TicketsService, logg))
				r.Get("/history", controllers.TicketHistory(deps.TicketsService, logg))

				if deps.ImagesService != nil {
					r.Post("/images/presign", controllers.TicketImagePresignUpload(deps.ImagesService, logg))
					r.Get("/images/download", controllers.TicketImagePresignDownload(deps.ImagesService, logg))
				}
			})
		})

		r.Route("/contracts", func(r chi.Router) {
			r.Post("/", controllers.ContractCreate(deps.ContractsService, logg))
			r.Get("/", controllers.ContractList(deps.ContractsService, logg))
			r.Post("/import", controllers.ContractsImport(deps.XLSXService, logg))
			r.Get("/export", controllers.ContractsExport(deps.XLSXService, logg))

			r.Route("/{contractId}", func(r chi.Router) {
				r.Get("/", controllers.ContractDetail(deps.ContractsService, logg))
				r.Patch("/", controllers.ContractUpdate(deps.ContractsService, logg))
				r.Delete("/", controllers.ContractDelete(deps.ContractsService, logg))
			})
		})
	})

	return r
}
