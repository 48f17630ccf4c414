package devserver

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, opts Options) (*Server, *httptest.Server) {
	t.Helper()
	if opts.Secret == nil {
		opts.Secret = []byte("test-secret")
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := New(opts)
	_, err := s.Users.Add(User{
		ID:          42,
		Login:       "ana",
		Email:       "ana@example.com",
		DisplayName: "Ana",
		HasCustomer: true,
		FirstName:   "Ana",
		LastName:    "Souza",
		CPF:         "529.982.247-25",
		Points:      150,
		Vicoins:     2.5,
	}, "s3cret")
	require.NoError(t, err)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, srv
}

func restURL(base, route string, extra url.Values) string {
	q := url.Values{"rest_route": {route}}
	for k, v := range extra {
		q[k] = v
	}
	return base + "/?" + q.Encode()
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func login(t *testing.T, base, user, pass string) (*http.Response, map[string]interface{}) {
	t.Helper()
	body := `{"login":"` + user + `","password":"` + pass + `"}`
	resp, err := http.Post(restURL(base, routeAuth, nil), "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func TestAuthIssuesToken(t *testing.T) {
	s, srv := newTestServer(t, Options{})

	resp, out := login(t, srv.URL, "ana@example.com", "s3cret")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, out["success"])
	token := out["data"].(map[string]interface{})["jwt"].(string)
	require.NotEmpty(t, token)

	id, err := s.parseToken(token)
	require.NoError(t, err)
	require.Equal(t, int64(42), id)

	// user_login works as well
	resp, _ = login(t, srv.URL, "ana", "s3cret")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}

func TestAuthRejectsBadCredentials(t *testing.T) {
	_, srv := newTestServer(t, Options{})

	for _, tc := range []struct{ user, pass string }{
		{"ana@example.com", "wrong"},
		{"nobody@example.com", "s3cret"},
		{"", ""},
	} {
		resp, out := login(t, srv.URL, tc.user, tc.pass)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Equal(t, false, out["success"])
		data := out["data"].(map[string]interface{})
		require.NotEmpty(t, data["message"])
	}
}

func TestValidate(t *testing.T) {
	s, srv := newTestServer(t, Options{})
	user, err := s.Users.ByID(42)
	require.NoError(t, err)
	token, err := s.issueToken(user)
	require.NoError(t, err)

	resp, err := http.Get(restURL(srv.URL, routeValidate, url.Values{"JWT": {token}}))
	require.NoError(t, err)
	out := decodeBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	u := out["data"].(map[string]interface{})["user"].(map[string]interface{})
	require.Equal(t, "42", u["ID"])
	require.Equal(t, "ana@example.com", u["user_email"])
	require.Equal(t, "Ana", u["display_name"])

	resp, err = http.Get(restURL(srv.URL, routeValidate, url.Values{"JWT": {token + "x"}}))
	require.NoError(t, err)
	out = decodeBody(t, resp)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, false, out["success"])

	resp, err = http.Get(restURL(srv.URL, routeValidate, nil))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestValidateExpiredToken(t *testing.T) {
	now := time.Now()
	s, srv := newTestServer(t, Options{Clock: func() time.Time { return now }, TokenTTL: time.Minute})
	user, err := s.Users.ByID(42)
	require.NoError(t, err)
	token, err := s.issueToken(user)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	resp, err := http.Get(restURL(srv.URL, routeValidate, url.Values{"JWT": {token}}))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUserData(t *testing.T) {
	s, srv := newTestServer(t, Options{})
	user, err := s.Users.ByID(42)
	require.NoError(t, err)
	token, err := s.issueToken(user)
	require.NoError(t, err)

	get := func(id, tok string) *http.Response {
		req, err := http.NewRequest(http.MethodGet, srv.URL+"/get_user_data_wp.php?user_id="+id, nil)
		require.NoError(t, err)
		if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
		req.Header.Set("X-WP-Session", "wp_42_abcdefghijklm")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		return resp
	}

	resp := get("42", token)
	out := decodeBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Souza", out["customer"].(map[string]interface{})["last_name"])
	require.Equal(t, []interface{}{"150"}, out["meta"].(map[string]interface{})[metaPoints])

	resp = get("42", "")
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = get("7", token)
	resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestUserDataWithoutCustomer(t *testing.T) {
	s, srv := newTestServer(t, Options{})
	user, err := s.Users.Add(User{Login: "bo", Email: "bo@example.com"}, "pw")
	require.NoError(t, err)
	require.Equal(t, int64(43), user.ID)
	token, err := s.issueToken(user)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/get_user_data_wp.php?user_id=43", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	out := decodeBody(t, resp)
	require.Equal(t, []interface{}{}, out["customer"])
}

func TestCustomerRequiresConsumerCredentials(t *testing.T) {
	_, srv := newTestServer(t, Options{ConsumerKey: "ck", ConsumerSecret: "cs"})

	resp, err := http.Get(srv.URL + "/wc/v2/customers/42")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/wc/v2/customers/42", nil)
	require.NoError(t, err)
	req.SetBasicAuth("ck", "cs")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	out := decodeBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, float64(42), out["id"])
	meta := out["meta_data"].([]interface{})
	require.Len(t, meta, 2)

	req, err = http.NewRequest(http.MethodGet, srv.URL+"/wc/v2/customers/999", nil)
	require.NoError(t, err)
	req.SetBasicAuth("ck", "cs")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCPFExists(t *testing.T) {
	_, srv := newTestServer(t, Options{})

	for doc, want := range map[string]bool{
		"52998224725":    true,
		"529.982.247-25": true,
		"11144477735":    false,
	} {
		resp, err := http.Get(srv.URL + "/verifica_cpf.class.php?cpf=" + url.QueryEscape(doc))
		require.NoError(t, err)
		out := decodeBody(t, resp)
		require.Equal(t, want, out["exists"], doc)
	}

	resp, err := http.Get(srv.URL + "/verifica_cpf.class.php?cpf=123")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRateLimit(t *testing.T) {
	_, srv := newTestServer(t, Options{RateLimitPerMinute: 2})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := http.Get(srv.URL + "/verifica_cpf.class.php?cpf=11144477735")
		require.NoError(t, err)
		resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}
	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// health is exempt
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUnknownRoute(t *testing.T) {
	_, srv := newTestServer(t, Options{})

	resp, err := http.Get(restURL(srv.URL, "/wp/v2/posts", nil))
	require.NoError(t, err)
	out := decodeBody(t, resp)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "rest_no_route", out["code"])
}

func TestDirectoryRejectsDuplicates(t *testing.T) {
	d := NewDirectory()
	_, err := d.Add(User{Email: "a@example.com"}, "pw")
	require.NoError(t, err)
	_, err = d.Add(User{Email: "A@example.com"}, "pw")
	require.ErrorIs(t, err, ErrUserExists)

	require.NoError(t, d.SetPoints(1, 10, 1))
	u, err := d.ByID(1)
	require.NoError(t, err)
	require.Equal(t, float64(10), u.Points)
	require.ErrorIs(t, d.SetPoints(99, 1, 1), ErrNoUser)
}
