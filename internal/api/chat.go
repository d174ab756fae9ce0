package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sqlchat/sqlchat/internal/chat"
)

type chatRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

func handleChat(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Chat == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "CHAT_NOT_CONFIGURED", "chat dependencies are not configured", false, nil)
		return
	}

	var request chatRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid chat request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.SessionID) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "SESSION_ID_REQUIRED", "sessionId is required", false, nil)
		return
	}
	if strings.TrimSpace(request.Message) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "MESSAGE_REQUIRED", "message is required", false, nil)
		return
	}

	outcome, err := deps.Chat.Run(r.Context(), request.SessionID, request.Message)
	if err != nil {
		var queryErr *chat.QueryError
		if errors.As(err, &queryErr) {
			writeError(r.Context(), w, http.StatusBadRequest, "QUERY_EXECUTION_FAILED", "query execution failed", false, map[string]any{
				"query":   queryErr.Query,
				"details": queryErr.Err.Error(),
			})
			return
		}
		writeError(r.Context(), w, http.StatusBadGateway, "CHAT_RUN_FAILED", "chat run failed", true, map[string]any{"details": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}
