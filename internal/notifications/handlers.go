package notifications

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/meditrack/coordination/internal/gateway"
	"github.com/meditrack/coordination/pkg/types"
)

// RegisterRoutes mounts the notification endpoints on an authenticated /api router
func (s *Service) RegisterRoutes(api *mux.Router) {
	api.HandleFunc("/notifications", s.listHandler).Methods(http.MethodGet)
	api.HandleFunc("/notifications/{id}/read", s.markReadHandler).Methods(http.MethodPut)
}

func (s *Service) listHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := gateway.ClaimsFromContext(r.Context())
	if !ok {
		gateway.WriteError(w, http.StatusUnauthorized, "Not authorized, no token", "")
		return
	}

	list, err := s.List(r.Context(), claims.UserID)
	if err != nil {
		s.logger.WithContext(r.Context()).WithError(err).Error("Error fetching notifications")
		gateway.WriteAppError(w, err)
		return
	}

	gateway.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"notifications": list,
	})
}

func (s *Service) markReadHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := gateway.ClaimsFromContext(r.Context())
	if !ok {
		gateway.WriteError(w, http.StatusUnauthorized, "Not authorized, no token", "")
		return
	}

	n, err := s.MarkRead(r.Context(), mux.Vars(r)["id"], claims.UserID)
	if err != nil {
		if !types.IsNotFound(err) && !types.IsForbidden(err) {
			s.logger.WithContext(r.Context()).WithError(err).Error("Error updating notification")
		}
		gateway.WriteAppError(w, err)
		return
	}

	gateway.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"notification": n,
	})
}
