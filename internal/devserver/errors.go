package devserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// simple-jwt-login error codes returned by the emulated routes.
const (
	codeWrongCredentials = 48
	codeInvalidJWT       = 14
	codeMissingJWT       = 10
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write json", slog.Any("error", err))
	}
}

// writeJWTError writes the simple-jwt-login failure envelope.
func writeJWTError(w http.ResponseWriter, status, code int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"data": map[string]interface{}{
			"message":   message,
			"errorCode": code,
		},
	})
}

// writeJWTSuccess writes the simple-jwt-login success envelope.
func writeJWTSuccess(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// writeRESTError writes a WordPress REST API error.
func writeRESTError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"code":    code,
		"message": message,
		"data":    map[string]int{"status": status},
	})
}
