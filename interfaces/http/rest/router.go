// Package rest wires the HTTP surface of the service.
package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"sandgraph/application/commands/bus"
	"sandgraph/application/ports"
	"sandgraph/infrastructure/config"
	"sandgraph/interfaces/http/rest/handlers"
	"sandgraph/interfaces/http/rest/middleware"
	"sandgraph/pkg/auth"
)

// Router creates and configures the HTTP router
type Router struct {
	commandBus *bus.CommandBus
	workspaces ports.WorkspaceRepository
	validator  *auth.JWTValidator
	cfg        *config.Config
	logger     *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(commandBus *bus.CommandBus, workspaces ports.WorkspaceRepository, validator *auth.JWTValidator, cfg *config.Config, logger *zap.Logger) *Router {
	return &Router{
		commandBus: commandBus,
		workspaces: workspaces,
		validator:  validator,
		cfg:        cfg,
		logger:     logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	if rt.cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.validator, rt.logger))

		vertexHandler := handlers.NewVertexHandler(rt.commandBus, rt.logger)
		r.Route("/vertices", func(r chi.Router) {
			r.Delete("/{vertexID}", vertexHandler.DeleteVertex)
			r.Delete("/{vertexID}/property", vertexHandler.DeleteProperty)
		})

		edgeHandler := handlers.NewEdgeHandler(rt.commandBus, rt.logger)
		r.Route("/edges", func(r chi.Router) {
			r.Delete("/{edgeID}", edgeHandler.DeleteEdge)
			r.Delete("/{edgeID}/property", vertexHandler.DeleteProperty)
		})

		workspaceHandler := handlers.NewWorkspaceHandler(rt.workspaces, rt.logger)
		r.Route("/workspaces", func(r chi.Router) {
			r.Put("/{workspaceID}/product", workspaceHandler.UpdateProduct)
		})
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
