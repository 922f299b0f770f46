package router

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/orgnet-app/identity-service/internal/transport/http/middleware"
)

type HealthHandler interface {
	Healthz(w http.ResponseWriter, r *http.Request)
}

type IdentityHandler interface {
	Session(w http.ResponseWriter, r *http.Request)
	Sync(w http.ResponseWriter, r *http.Request)
}

type Deps struct {
	Health   HealthHandler
	Identity IdentityHandler

	AuthMW func(http.Handler) http.Handler
}

func New(deps Deps) (http.Handler, error) {
	if deps.Health == nil {
		return nil, fmt.Errorf("nil Health handler")
	}
	if deps.Identity == nil {
		return nil, fmt.Errorf("nil Identity handler")
	}
	if deps.AuthMW == nil {
		return nil, fmt.Errorf("nil Auth middleware")
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)

	r.Get("/healthz", deps.Health.Healthz)

	r.Route("/identity/v1", func(r chi.Router) {
		r.Use(deps.AuthMW)
		r.Get("/session", deps.Identity.Session)
		r.Post("/sync", deps.Identity.Sync)
	})

	return r, nil
}
