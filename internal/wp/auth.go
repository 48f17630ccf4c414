package wp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	authRoute     = "/simple-jwt-login/v1/auth"
	validateRoute = "/simple-jwt-login/v1/auth/validate"
)

// UserID is a WordPress user ID. simple-jwt-login serializes it either as a
// number or as a numeric string.
type UserID int64

func (id *UserID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	if s == "" || s == "null" {
		*id = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("user ID %s is not an integer", b)
	}
	*id = UserID(n)
	return nil
}

// WPUser is the part of the WordPress user object the client consumes.
type WPUser struct {
	ID          UserID `json:"ID"`
	Email       string `json:"user_email"`
	Login       string `json:"user_login"`
	DisplayName string `json:"display_name"`
}

type authEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// message prefers the top-level message, then data.message.
func (e authEnvelope) message() string {
	if e.Message != "" {
		return e.Message
	}
	var d struct {
		Message string `json:"message"`
	}
	if isObject(e.Data) && json.Unmarshal(e.Data, &d) == nil {
		return d.Message
	}
	return ""
}

// Authenticate exchanges credentials for a JWT.
func (c *Client) Authenticate(ctx context.Context, login, password string) (string, error) {
	const op = "authenticate"
	c.log.Info("auth request", slog.String("login", login), slog.String("password", "******"))

	resp, err := c.execute(ctx, apiRequest{
		op:          op,
		method:      http.MethodPost,
		url:         c.baseURL + "/",
		queryParams: map[string]string{"rest_route": authRoute},
		reqBodyObj: map[string]string{
			"login":    login,
			"password": password,
		},
	})
	if err != nil {
		return "", err
	}

	var env authEnvelope
	if err := decode(op, resp, authSchema, &env); err != nil {
		if !resp.ok() {
			return "", statusError(op, resp.statusCode, "authentication failed")
		}
		return "", err
	}
	c.log.Info("auth response", slog.Bool("success", env.Success), slog.Int("status", resp.statusCode))

	if !env.Success {
		msg := env.message()
		if msg == "" {
			msg = "authentication failed"
		}
		return "", &APIError{Op: op, StatusCode: resp.statusCode, Message: msg}
	}
	if !isObject(env.Data) {
		return "", &APIError{Op: op, StatusCode: resp.statusCode, Message: "invalid authentication response"}
	}
	var data struct {
		JWT string `json:"jwt"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.JWT == "" {
		return "", &APIError{Op: op, StatusCode: resp.statusCode, Message: "token not found in response"}
	}
	return data.JWT, nil
}

// ValidateToken asks simple-jwt-login to validate token and returns the user
// it belongs to.
func (c *Client) ValidateToken(ctx context.Context, token string) (WPUser, error) {
	const op = "validate token"
	hdr := http.Header{}
	hdr.Set("Authorization", "Bearer "+token)

	resp, err := c.execute(ctx, apiRequest{
		op:     op,
		method: http.MethodGet,
		url:    c.baseURL + "/",
		queryParams: map[string]string{
			"rest_route": validateRoute,
			"JWT":        token,
		},
		headers: hdr,
	})
	if err != nil {
		return WPUser{}, err
	}

	var env authEnvelope
	if err := decode(op, resp, validateSchema, &env); err != nil {
		if !resp.ok() {
			return WPUser{}, statusError(op, resp.statusCode, "invalid token")
		}
		return WPUser{}, err
	}
	if !env.Success || !isObject(env.Data) {
		return WPUser{}, &APIError{Op: op, StatusCode: resp.statusCode, Message: "invalid token"}
	}

	// data.user is the documented shape; older plugin versions return the
	// user fields directly under data.
	var wrapped struct {
		User json.RawMessage `json:"user"`
	}
	if err := json.Unmarshal(env.Data, &wrapped); err != nil {
		return WPUser{}, &APIError{Op: op, StatusCode: resp.statusCode, Message: fmt.Sprintf("decoding user: %v", err)}
	}
	raw := env.Data
	if isObject(wrapped.User) {
		raw = wrapped.User
	}
	var user WPUser
	if err := json.Unmarshal(raw, &user); err != nil {
		return WPUser{}, &APIError{Op: op, StatusCode: resp.statusCode, Message: fmt.Sprintf("decoding user: %v", err)}
	}
	if user.ID <= 0 {
		return WPUser{}, &APIError{Op: op, StatusCode: resp.statusCode, Message: "user data missing ID"}
	}
	return user, nil
}

// Claims decodes the token payload without verifying the signature. The
// client cannot verify it anyway; the backend does that on every call.
func Claims(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parsing token claims: %w", err)
	}
	return claims, nil
}

// TokenExpiry reports the exp claim of token, if it has one.
func TokenExpiry(token string) (time.Time, bool) {
	claims, err := Claims(token)
	if err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func isObject(raw json.RawMessage) bool {
	b := bytes.TrimSpace(raw)
	return len(b) > 0 && b[0] == '{'
}
