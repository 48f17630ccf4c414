package devserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
)

const (
	routeAuth     = "/simple-jwt-login/v1/auth"
	routeValidate = "/simple-jwt-login/v1/auth/validate"
)

type creds struct {
	Login    string `json:"login"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRestRoute dispatches on the rest_route query parameter.
func (s *Server) HandleRestRoute(w http.ResponseWriter, r *http.Request) {
	route := r.URL.Query().Get("rest_route")
	switch {
	case route == routeAuth && r.Method == http.MethodPost:
		s.HandleAuth(w, r)
	case route == routeValidate && (r.Method == http.MethodGet || r.Method == http.MethodPost):
		s.HandleValidate(w, r)
	case route == "":
		writeJSON(w, http.StatusOK, map[string]string{"name": "Vicere dev server"})
	default:
		writeRESTError(w, http.StatusNotFound, "rest_no_route", "No route was found matching the URL and request method.")
	}
}

// HandleAuth issues a JWT for valid credentials.
// POST /?rest_route=/simple-jwt-login/v1/auth
func (s *Server) HandleAuth(w http.ResponseWriter, r *http.Request) {
	var c creds
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeJWTError(w, http.StatusBadRequest, codeWrongCredentials, "Invalid request body.")
		return
	}
	login := c.Login
	if login == "" {
		login = c.Email
	}
	if login == "" || c.Password == "" {
		writeJWTError(w, http.StatusBadRequest, codeWrongCredentials, "The login and password parameters are required.")
		return
	}

	user, err := s.Users.ByLogin(login)
	if err != nil || !comparePassword(user.PasswordHash, c.Password) {
		writeJWTError(w, http.StatusBadRequest, codeWrongCredentials, "Wrong user credentials.")
		return
	}

	token, err := s.issueToken(user)
	if err != nil {
		s.log.Error("signing token", slog.Any("error", err))
		writeRESTError(w, http.StatusInternalServerError, "internal_error", "Could not issue token")
		return
	}
	writeJWTSuccess(w, map[string]string{"jwt": token})
}

// HandleValidate returns the user a JWT belongs to. The token comes from
// ?JWT= or the Authorization header.
// GET /?rest_route=/simple-jwt-login/v1/auth/validate&JWT=...
func (s *Server) HandleValidate(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("JWT")
	if tokenStr == "" {
		tokenStr = bearerToken(r)
	}
	if tokenStr == "" {
		writeJWTError(w, http.StatusBadRequest, codeMissingJWT, "The `jwt` parameter is missing.")
		return
	}

	id, err := s.parseToken(tokenStr)
	if err != nil {
		writeJWTError(w, http.StatusBadRequest, codeInvalidJWT, "Invalid JWT: "+err.Error())
		return
	}
	user, err := s.Users.ByID(id)
	if err != nil {
		writeJWTError(w, http.StatusBadRequest, codeInvalidJWT, "User not found.")
		return
	}

	// WordPress serializes user IDs as strings
	writeJWTSuccess(w, map[string]interface{}{
		"user": map[string]string{
			"ID":           strconv.FormatInt(user.ID, 10),
			"user_login":   user.Login,
			"user_email":   user.Email,
			"display_name": user.DisplayName,
		},
		"roles": []string{"customer"},
	})
}

// requireUser resolves the bearer token of r to a user, writing a 401 and
// returning false when it cannot.
func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (User, bool) {
	tokenStr := bearerToken(r)
	if tokenStr == "" {
		writeRESTError(w, http.StatusUnauthorized, "rest_not_logged_in", "You are not currently logged in.")
		return User{}, false
	}
	id, err := s.parseToken(tokenStr)
	if err != nil {
		writeRESTError(w, http.StatusUnauthorized, "rest_invalid_token", "Invalid token.")
		return User{}, false
	}
	user, err := s.Users.ByID(id)
	if err != nil {
		writeRESTError(w, http.StatusUnauthorized, "rest_invalid_token", "Invalid token.")
		return User{}, false
	}
	if sess := r.Header.Get("X-WP-Session"); sess != "" && !strings.HasPrefix(sess, "wp_"+strconv.FormatInt(id, 10)+"_") {
		s.log.Warn("session header does not match token", slog.Int64("user_id", id))
	}
	return user, true
}
