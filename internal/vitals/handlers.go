package vitals

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/meditrack/coordination/internal/gateway"
	"github.com/meditrack/coordination/pkg/types"
)

// RegisterRoutes mounts the vitals endpoints on an authenticated /api router
func (s *Service) RegisterRoutes(api *mux.Router) {
	api.HandleFunc("/vitals", s.listHandler).Methods(http.MethodGet)
	api.HandleFunc("/vitals", s.recordHandler).Methods(http.MethodPost)
	api.HandleFunc("/vitals/patient/{id}", gateway.RequireRole(types.RoleDoctor, s.patientHistoryHandler)).Methods(http.MethodGet)
	api.HandleFunc("/vitals/{id}", s.deleteHandler).Methods(http.MethodDelete)
}

func (s *Service) listHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := gateway.ClaimsFromContext(r.Context())
	if !ok {
		gateway.WriteError(w, http.StatusUnauthorized, "Not authorized, no token", "")
		return
	}

	vitals, err := s.List(r.Context(), claims.UserID)
	if err != nil {
		s.logger.WithContext(r.Context()).WithError(err).Error("Error fetching vitals")
		gateway.WriteError(w, http.StatusInternalServerError, "Error fetching vitals", "")
		return
	}

	gateway.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(vitals),
		"vitals":  vitals,
	})
}

func (s *Service) recordHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := gateway.ClaimsFromContext(r.Context())
	if !ok {
		gateway.WriteError(w, http.StatusUnauthorized, "Not authorized, no token", "")
		return
	}

	var req RecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		gateway.WriteError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	vital, err := s.Record(r.Context(), claims.UserID, req)
	if err != nil {
		if !types.IsValidation(err) {
			s.logger.WithContext(r.Context()).WithError(err).Error("Error adding vital")
		}
		gateway.WriteAppError(w, err)
		return
	}

	gateway.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"vital":   vital,
	})
}

func (s *Service) patientHistoryHandler(w http.ResponseWriter, r *http.Request) {
	vitals, err := s.History(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.logger.WithContext(r.Context()).WithError(err).Error("Error fetching patient vitals")
		gateway.WriteError(w, http.StatusInternalServerError, "Error fetching patient vitals", "")
		return
	}

	gateway.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"vitals":  vitals,
	})
}

func (s *Service) deleteHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := gateway.ClaimsFromContext(r.Context())
	if !ok {
		gateway.WriteError(w, http.StatusUnauthorized, "Not authorized, no token", "")
		return
	}

	if err := s.Delete(r.Context(), mux.Vars(r)["id"], claims.UserID); err != nil {
		if !types.IsNotFound(err) && !types.IsForbidden(err) {
			s.logger.WithContext(r.Context()).WithError(err).Error("Error deleting vital")
		}
		gateway.WriteAppError(w, err)
		return
	}

	gateway.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Vital record removed",
	})
}
