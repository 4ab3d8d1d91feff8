package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dealspot/redemption-engine/internal/application"
	"github.com/dealspot/redemption-engine/internal/ports"
)

// Handler is the HTTP adapter entrypoint for redemption use-cases.
// Keeping only application dependency here preserves clean adapter boundaries.
type Handler struct {
	service *application.Service
	tokens  ports.TokenSigner
}

// NewHandler constructs an HTTP handler bound to the application service.
func NewHandler(service *application.Service, tokens ports.TokenSigner) *Handler {
	return &Handler{service: service, tokens: tokens}
}

// NewRouter registers redemption HTTP routes and the middleware stack.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)

	r.Route("/redemption/v1", func(r chi.Router) {
		r.Use(handler.authMiddleware)

		r.Post("/claims", handler.createClaim)
		r.Get("/claims", handler.listClaims)
		r.Post("/claims/{claim_id}/verify", handler.verifyClaim)
		r.Post("/claims/{claim_id}/bill", handler.billClaim)

		r.Get("/deals/nearby", handler.nearbyDeals)
		r.Get("/deals/{deal_id}/attempts", handler.dealAttempts)
		r.Get("/me/savings", handler.customerSavings)
		r.Get("/vendors/{vendor_id}/stats", handler.vendorStats)
	})

	return r
}
