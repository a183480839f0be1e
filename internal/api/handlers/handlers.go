package handlers

import (
	"encoding/json"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// responder shapes error payloads. Server-side failures show their literal
// text only outside production.
type responder struct {
	production bool
}

func (rs responder) fail(w http.ResponseWriter, status int, err error) {
	message := err.Error()
	if rs.production && status >= http.StatusInternalServerError {
		message = "An error occurred"
	}
	writeJSON(w, status, map[string]string{"error": http.StatusText(status), "message": message})
}
