package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/mcoot/lobbyengine/internal/api/apierr"
	"github.com/mcoot/lobbyengine/internal/middleware"
)

// Recovery turns handler panics into INTERNAL_ERROR responses
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, writePanic)
}

// writePanic leaves upgraded websocket requests alone, their connection
// belongs to the hijacker and a late HTTP response cannot be written
func writePanic(w http.ResponseWriter, r *http.Request, _ any) {
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return
	}
	apierr.WriteError(w, apierr.NewInternalError())
}
