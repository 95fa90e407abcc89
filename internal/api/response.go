package api

import (
	"encoding/json"
	"net/http"

	"github.com/kdimtricp/instasave/internal/apperr"
)

type errorResponse struct {
	Message string `json:"message"`
	Issues  any    `json:"issues,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError answers with the status for err's kind. Messages of
// infrastructure kinds are replaced by fallback; the full error is logged.
func (app *App) writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	kind := apperr.KindOf(err)
	status := kind.HTTPStatus()

	resp := errorResponse{Message: fallback}
	if appErr, ok := apperr.As(err); ok && kind.Public() {
		resp.Message = appErr.Message
		resp.Issues = appErr.Details
	}
	if resp.Message == "" {
		resp.Message = http.StatusText(status)
	}

	entry := app.Log.WithRequest(r).WithField("kind", string(kind)).WithField("status", status)
	if err != nil {
		entry = entry.WithField("error", err.Error())
	}
	if status >= 500 {
		entry.Error("request failed")
	} else {
		entry.Warn("request rejected")
	}

	writeJSON(w, status, resp)
}
