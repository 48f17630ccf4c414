package wp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, h http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := New(Options{
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
		Auth:    &BasicAuth{Username: "ck_test", Password: "cs_test"},
		Logger:  quietLogger(),
	})
	return c, srv
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestAuthenticate(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    string
		wantMsg string
	}{
		{name: "success", status: 200, body: `{"success":true,"data":{"jwt":"abc.def.ghi"}}`, want: "abc.def.ghi"},
		{name: "rejected", status: 400, body: `{"success":false,"data":{"message":"Wrong user credentials."}}`, wantMsg: "Wrong user credentials."},
		{name: "rejected top-level message", status: 200, body: `{"success":false,"message":"nope"}`, wantMsg: "nope"},
		{name: "missing jwt", status: 200, body: `{"success":true,"data":{}}`, wantMsg: "token not found in response"},
		{name: "empty data array", status: 200, body: `{"success":true,"data":[]}`, wantMsg: "invalid authentication response"},
		{name: "schema mismatch", status: 200, body: `{"success":"yes"}`, wantMsg: "malformed response"},
		{name: "not json", status: 200, body: `<html>oops</html>`, wantMsg: "response is not valid JSON"},
		{name: "unauthorized html", status: 401, body: `<h1>401</h1>`, wantMsg: "authentication failed"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got map[string]string
			c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, http.MethodPost, r.Method)
				require.Equal(t, "/simple-jwt-login/v1/auth", r.URL.Query().Get("rest_route"))
				require.Equal(t, "application/json", r.Header.Get("Content-Type"))
				_ = json.NewDecoder(r.Body).Decode(&got)
				writeJSON(w, tc.status, tc.body)
			}))

			token, err := c.Authenticate(context.Background(), "ana@example.com", "s3cret")
			require.Equal(t, "ana@example.com", got["login"])
			require.Equal(t, "s3cret", got["password"])
			if tc.wantMsg == "" {
				require.NoError(t, err)
				require.Equal(t, tc.want, token)
				return
			}
			require.Error(t, err)
			require.Empty(t, token)
			require.ErrorIs(t, err, ErrRejected)
			require.NotErrorIs(t, err, ErrTransport)
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			require.Contains(t, apiErr.Message, tc.wantMsg)
		})
	}
}

func TestAuthenticateTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := New(Options{BaseURL: srv.URL, Logger: quietLogger()})

	_, err := c.Authenticate(context.Background(), "u", "p")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrTransport)
	require.NotErrorIs(t, err, ErrRejected)
}

func TestAuthenticateServerError(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "Bad Gateway")
	}))

	_, err := c.Authenticate(context.Background(), "u", "p")
	require.ErrorIs(t, err, ErrTransport)
	require.NotErrorIs(t, err, ErrRejected)
}

func TestAuthenticateContextCanceled(t *testing.T) {
	block := make(chan struct{})
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Authenticate(ctx, "u", "p")
	require.ErrorIs(t, err, ErrTransport)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestValidateToken(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    WPUser
		wantErr bool
	}{
		{
			name: "data.user with numeric ID",
			body: `{"success":true,"data":{"user":{"ID":42,"user_email":"ana@example.com","display_name":"Ana"}}}`,
			want: WPUser{ID: 42, Email: "ana@example.com", DisplayName: "Ana"},
		},
		{
			name: "string ID",
			body: `{"success":true,"data":{"user":{"ID":"42","user_email":"ana@example.com"}}}`,
			want: WPUser{ID: 42, Email: "ana@example.com"},
		},
		{
			name: "bare data user",
			body: `{"success":true,"data":{"ID":7,"user_email":"bo@example.com","user_login":"bo"}}`,
			want: WPUser{ID: 7, Email: "bo@example.com", Login: "bo"},
		},
		{name: "missing ID", body: `{"success":true,"data":{"user":{"user_email":"x@example.com"}}}`, wantErr: true},
		{name: "not successful", body: `{"success":false,"data":{"message":"expired"}}`, wantErr: true},
		{name: "non numeric ID", body: `{"success":true,"data":{"user":{"ID":"abc"}}}`, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, http.MethodGet, r.Method)
				require.Equal(t, "/simple-jwt-login/v1/auth/validate", r.URL.Query().Get("rest_route"))
				require.Equal(t, "tok", r.URL.Query().Get("JWT"))
				require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
				writeJSON(w, http.StatusOK, tc.body)
			}))

			user, err := c.ValidateToken(context.Background(), "tok")
			if tc.wantErr {
				require.ErrorIs(t, err, ErrRejected)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, user)
		})
	}
}

func TestUserData(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		want      Customer
		wantFound bool
	}{
		{
			name: "customer and meta",
			body: `{"customer":{"email":"ana@example.com","first_name":"Ana","last_name":"Souza"},
				"meta":{"pontos_vicere":["150"],"vicoins_vicere":"12.5"}}`,
			want:      Customer{ID: 42, Email: "ana@example.com", FirstName: "Ana", LastName: "Souza", Points: 150, Vicoins: 12.5},
			wantFound: true,
		},
		{
			name: "php empty arrays",
			body: `{"customer":[],"meta":[]}`,
			want: Customer{ID: 42},
		},
		{
			name:      "null names",
			body:      `{"customer":{"email":"ana@example.com","first_name":null,"last_name":null},"meta":null}`,
			want:      Customer{ID: 42, Email: "ana@example.com"},
			wantFound: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/get_user_data_wp.php", r.URL.Path)
				require.Equal(t, "42", r.URL.Query().Get("user_id"))
				require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
				require.Equal(t, "wp_42_abc", r.Header.Get(HeaderSession))
				writeJSON(w, http.StatusOK, tc.body)
			}))

			hdr := http.Header{}
			hdr.Set("Authorization", "Bearer tok")
			hdr.Set(HeaderSession, "wp_42_abc")
			got, found, err := c.UserData(context.Background(), 42, hdr)
			require.NoError(t, err)
			require.Equal(t, tc.wantFound, found)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestUserDataRejected(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, `{"error":"forbidden"}`)
	}))
	_, _, err := c.UserData(context.Background(), 42, nil)
	require.ErrorIs(t, err, ErrRejected)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusForbidden, apiErr.StatusCode)
}

func TestCustomer(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/wc/v2/customers/42", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "ck_test", user)
		require.Equal(t, "cs_test", pass)
		writeJSON(w, http.StatusOK, `{"id":42,"email":"ana@example.com","first_name":"Ana","last_name":"Souza",
			"meta_data":[{"id":1,"key":"pontos_vicere","value":"300"},{"id":2,"key":"vicoins_vicere","value":4},{"id":3,"key":"other","value":{}}]}`)
	}))

	got, err := c.Customer(context.Background(), 42, nil)
	require.NoError(t, err)
	require.Equal(t, Customer{ID: 42, Email: "ana@example.com", FirstName: "Ana", LastName: "Souza", Points: 300, Vicoins: 4}, got)
}

func TestCustomerMalformed(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"email":"no id"}`)
	}))
	_, err := c.Customer(context.Background(), 42, nil)
	require.ErrorIs(t, err, ErrRejected)
}

func TestCPFExists(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/verifica_cpf.class.php", r.URL.Path)
		if r.URL.Query().Get("cpf") == "52998224725" {
			writeJSON(w, http.StatusOK, `{"exists":true}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"exists":false}`)
	}))

	exists, err := c.CPFExists(context.Background(), "529.982.247-25")
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = c.CPFExists(context.Background(), "111.444.777-35")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestAPIURLDefaultsToBaseURL(t *testing.T) {
	c := New(Options{BaseURL: "https://vicere.example/"})
	require.Equal(t, "https://vicere.example", c.baseURL)
	require.Equal(t, "https://vicere.example", c.apiURL)

	c = New(Options{BaseURL: "https://vicere.example", APIURL: "https://api.vicere.example/"})
	require.Equal(t, "https://api.vicere.example", c.apiURL)
}

func TestMetaNumber(t *testing.T) {
	tests := map[string]float64{
		`12`:           12,
		`"12.5"`:       12.5,
		`" 7 "`:        7,
		`["3"]`:        3,
		`[]`:           0,
		`"abc"`:        0,
		`null`:         0,
		`{"a":1}`:      0,
		``:             0,
		`[["9"]]`:      9,
		`-4`:           -4,
		`"NaN"`:        0,
		`"inf"`:        0,
		`["Infinity"]`: 0,
		`"-Inf"`:       0,
		`1e999`:        0,
	}
	for in, want := range tests {
		require.Equal(t, want, metaNumber(json.RawMessage(in)), "input %q", in)
	}
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  42,
		"exp": exp.Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	got, ok := TokenExpiry(signed)
	require.True(t, ok)
	require.True(t, exp.Equal(got))

	claims, err := Claims(signed)
	require.NoError(t, err)
	require.EqualValues(t, 42, claims["id"])

	_, ok = TokenExpiry("not-a-jwt")
	require.False(t, ok)
}
