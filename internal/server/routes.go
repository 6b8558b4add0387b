package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/meditrack/coordination/internal/gateway"
	"github.com/meditrack/coordination/pkg/monitoring"
)

// apiRoutes is implemented by every component that serves under /api
type apiRoutes interface {
	RegisterRoutes(api *mux.Router)
}

type routeSet struct {
	middleware *gateway.Middleware
	monitoring *monitoring.MonitoringMiddleware
	websocket  http.Handler
	apis       []apiRoutes
}

// routes builds the root handler. Public endpoints are registered before the
// authenticated /api subrouter so they match first. CORS wraps the router
// so preflight requests are answered before route matching.
func (s *Server) routes(rs routeSet) http.Handler {
	r := mux.NewRouter()
	r.Use(rs.middleware.SecurityHeaders, rs.monitoring.HTTPMiddleware)

	r.HandleFunc("/api/health", s.health.HTTPHandler()).Methods(http.MethodGet)
	r.Handle(s.cfg.Monitoring.MetricsPath, s.metrics.Handler()).Methods(http.MethodGet)
	r.Handle("/ws", rs.websocket)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(rs.middleware.Authenticate, rs.middleware.RateLimit)
	for _, component := range rs.apis {
		component.RegisterRoutes(api)
	}

	r.NotFoundHandler = gateway.NotFoundHandler()
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gateway.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
	})
	return rs.middleware.CORS(r)
}
