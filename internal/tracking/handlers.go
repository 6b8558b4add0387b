package tracking

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/meditrack/coordination/internal/gateway"
	"github.com/meditrack/coordination/pkg/types"
)

// RegisterRoutes mounts the tracking endpoints on an authenticated /api router
func (s *Service) RegisterRoutes(api *mux.Router) {
	api.HandleFunc("/tracking/update", gateway.RequireRole(types.RoleDoctor, s.updateLocationHandler)).Methods(http.MethodPost)
	api.HandleFunc("/tracking/doctors", s.nearbyDoctorsHandler).Methods(http.MethodGet)
	api.HandleFunc("/tracking/doctor/{id}", s.doctorLocationHandler).Methods(http.MethodGet)
}

type updateLocationRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (s *Service) updateLocationHandler(w http.ResponseWriter, r *http.Request) {
	claims, _ := gateway.ClaimsFromContext(r.Context())

	var req updateLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		gateway.WriteError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		gateway.WriteError(w, http.StatusBadRequest, "Latitude and longitude are required", "")
		return
	}

	loc, err := s.UpdateLocation(r.Context(), claims.UserID, *req.Latitude, *req.Longitude)
	if err != nil {
		s.logger.WithContext(r.Context()).WithError(err).Warn("Error updating location")
		gateway.WriteAppError(w, err)
		return
	}

	gateway.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"message":  "Location updated successfully",
		"location": loc,
	})
}

func (s *Service) nearbyDoctorsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	lat, errLat := strconv.ParseFloat(q.Get("latitude"), 64)
	lon, errLon := strconv.ParseFloat(q.Get("longitude"), 64)
	if errLat != nil || errLon != nil {
		gateway.WriteError(w, http.StatusBadRequest, "Valid latitude and longitude are required", "")
		return
	}

	maxDistance := 0.0
	if raw := q.Get("maxDistance"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 {
			gateway.WriteError(w, http.StatusBadRequest, "maxDistance must be a positive number of meters", "")
			return
		}
		maxDistance = v
	}

	doctors, err := s.FindNearby(r.Context(), lat, lon, maxDistance)
	if err != nil {
		s.logger.WithContext(r.Context()).WithError(err).Warn("Error fetching nearby doctors")
		gateway.WriteAppError(w, err)
		return
	}

	gateway.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(doctors),
		"doctors": doctors,
	})
}

func (s *Service) doctorLocationHandler(w http.ResponseWriter, r *http.Request) {
	doctorID := mux.Vars(r)["id"]

	loc, err := s.DoctorLocation(r.Context(), doctorID)
	if err != nil {
		if !types.IsNotFound(err) {
			s.logger.WithContext(r.Context()).WithError(err).Error("Error fetching doctor location")
		}
		gateway.WriteAppError(w, err)
		return
	}

	gateway.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"location": loc,
	})
}
