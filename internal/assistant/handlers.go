package assistant

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/meditrack/coordination/internal/gateway"
)

type messageRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

// RegisterRoutes mounts the chatbot endpoints on an authenticated /api router
func (s *Service) RegisterRoutes(api *mux.Router) {
	api.HandleFunc("/chatbot/message", s.messageHandler).Methods(http.MethodPost)
	api.HandleFunc("/chatbot/history", s.historyHandler).Methods(http.MethodGet)
}

func (s *Service) messageHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := gateway.ClaimsFromContext(r.Context())
	if !ok {
		gateway.WriteError(w, http.StatusUnauthorized, "Not authorized, no token", "")
		return
	}

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		gateway.WriteError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	reply, err := s.Reply(r.Context(), claims.UserID, req.SessionID, req.Message)
	if err != nil {
		gateway.WriteAppError(w, err)
		return
	}

	gateway.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"message":   reply.Message,
		"sessionId": reply.SessionID,
	})
}

func (s *Service) historyHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := gateway.ClaimsFromContext(r.Context())
	if !ok {
		gateway.WriteError(w, http.StatusUnauthorized, "Not authorized, no token", "")
		return
	}

	gateway.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"messages": s.Conversation(claims.UserID, r.URL.Query().Get("sessionId")),
	})
}
