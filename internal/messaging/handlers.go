package messaging

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/meditrack/coordination/internal/gateway"
	"github.com/meditrack/coordination/pkg/types"
)

// RegisterRoutes mounts the messaging endpoints on an authenticated /api router
func (s *Service) RegisterRoutes(api *mux.Router) {
	api.HandleFunc("/messages", s.sendHandler).Methods(http.MethodPost)
	api.HandleFunc("/messages/{userId}", s.conversationHandler).Methods(http.MethodGet)
}

func (s *Service) sendHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := gateway.ClaimsFromContext(r.Context())
	if !ok {
		gateway.WriteError(w, http.StatusUnauthorized, "Not authorized, no token", "")
		return
	}

	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		gateway.WriteError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	msg, err := s.Send(r.Context(), claims.UserID, req)
	if err != nil {
		if !types.IsValidation(err) {
			s.logger.WithContext(r.Context()).WithError(err).Error("Error sending message")
		}
		gateway.WriteAppError(w, err)
		return
	}

	gateway.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": msg,
	})
}

func (s *Service) conversationHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := gateway.ClaimsFromContext(r.Context())
	if !ok {
		gateway.WriteError(w, http.StatusUnauthorized, "Not authorized, no token", "")
		return
	}

	messages, err := s.Conversation(r.Context(), claims.UserID, mux.Vars(r)["userId"])
	if err != nil {
		s.logger.WithContext(r.Context()).WithError(err).Error("Error fetching messages")
		gateway.WriteAppError(w, err)
		return
	}

	gateway.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"messages": messages,
	})
}
