package api

import (
	"net/http"
	"strings"

	"github.com/sqlchat/sqlchat/internal/session"
)

func handleListSessions(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Sessions == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SESSIONS_NOT_CONFIGURED", "session store is not configured", false, nil)
		return
	}

	sessions, err := deps.Sessions.ListSessions(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "SESSION_STORE_ERROR", "failed to list sessions", true, map[string]any{"details": err.Error()})
		return
	}
	if sessions == nil {
		sessions = []session.Info{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func handleSessionHistory(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Sessions == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SESSIONS_NOT_CONFIGURED", "session store is not configured", false, nil)
		return
	}

	sessionID := strings.TrimSpace(r.PathValue("sessionId"))
	if sessionID == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "SESSION_ID_REQUIRED", "sessionId is required", false, nil)
		return
	}

	messages, err := deps.Sessions.ReadAllWithTimestamps(r.Context(), sessionID)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "SESSION_STORE_ERROR", "failed to load session history", true, map[string]any{"details": err.Error()})
		return
	}

	// System messages carry the behavioral contract and raw query results.
	// Only the user-visible exchange is returned.
	visible := make([]session.StoredMessage, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == session.RoleSystem {
			continue
		}
		visible = append(visible, msg)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sessionId": sessionID,
		"messages":  visible,
	})
}
