// Package wp talks to the Vicere backend: the WordPress simple-jwt-login
// plugin, the custom PHP endpoints, and the WooCommerce REST API.
//
// The client keeps no per-user state. Callers pass the bearer and session
// headers on every call.
package wp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
)

const (
	// HeaderSession carries the client-generated session key.
	HeaderSession = "X-WP-Session"

	defaultTimeout  = 30 * time.Second
	maxResponseBody = 1 << 20
)

// BasicAuth holds the WooCommerce consumer key and secret.
type BasicAuth struct {
	Username string
	Password string
}

// Options configures a Client.
type Options struct {
	// BaseURL is the WordPress site, e.g. https://vicere.com.br.
	BaseURL string
	// APIURL hosts get_user_data_wp.php and verifica_cpf.class.php. Defaults
	// to BaseURL.
	APIURL  string
	Timeout time.Duration
	// Auth, when set, is sent on WooCommerce calls.
	Auth       *BasicAuth
	HTTPClient *http.Client
	Logger     *slog.Logger
}

type Client struct {
	baseURL    string
	apiURL     string
	auth       *BasicAuth
	httpClient *http.Client
	log        *slog.Logger
}

func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	apiURL := opts.APIURL
	if apiURL == "" {
		apiURL = opts.BaseURL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiURL:     strings.TrimRight(apiURL, "/"),
		auth:       opts.Auth,
		httpClient: hc,
		log:        logger,
	}
}

type apiRequest struct {
	op          string
	method      string
	url         string
	queryParams map[string]string
	headers     http.Header
	basicAuth   *BasicAuth
	reqBodyObj  interface{}
}

type apiResponse struct {
	statusCode int
	body       []byte
}

func (r apiResponse) ok() bool {
	return r.statusCode >= 200 && r.statusCode < 300
}

// execute performs the exchange. Only failures to complete it are returned;
// status handling is up to the caller.
func (c *Client) execute(ctx context.Context, apiReq apiRequest) (apiResponse, error) {
	var reqBodyReader io.Reader
	if apiReq.reqBodyObj != nil {
		reqBodyBytes, err := json.Marshal(apiReq.reqBodyObj)
		if err != nil {
			return apiResponse{}, fmt.Errorf("%s: marshaling request body: %w", apiReq.op, err)
		}
		reqBodyReader = bytes.NewReader(reqBodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, apiReq.method, apiReq.url, reqBodyReader)
	if err != nil {
		return apiResponse{}, fmt.Errorf("%s: creating request %s %s: %w", apiReq.op, apiReq.method, apiReq.url, err)
	}
	if len(apiReq.queryParams) > 0 {
		q := req.URL.Query()
		for k, v := range apiReq.queryParams {
			q.Set(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}
	req.Header.Set("Accept", "application/json")
	if reqBodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range apiReq.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if apiReq.basicAuth != nil {
		req.SetBasicAuth(apiReq.basicAuth.Username, apiReq.basicAuth.Password)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apiResponse{}, &TransportError{Op: apiReq.op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return apiResponse{}, &TransportError{Op: apiReq.op, Err: fmt.Errorf("reading response body: %w", err)}
	}

	c.log.Debug("backend call",
		slog.String("op", apiReq.op),
		slog.String("method", apiReq.method),
		slog.String("path", req.URL.Path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)),
	)
	return apiResponse{statusCode: resp.StatusCode, body: body}, nil
}

// statusError reports a response the caller cannot use. Server-side
// failures count as transport failures since no answer was given.
func statusError(op string, statusCode int, msg string) error {
	if statusCode >= http.StatusInternalServerError {
		return &TransportError{Op: op, Err: fmt.Errorf("server error: status %d", statusCode)}
	}
	return &APIError{Op: op, StatusCode: statusCode, Message: msg}
}

// decode validates body against schema and unmarshals it into out. Any
// mismatch is reported as an *APIError for op.
func decode(op string, resp apiResponse, schema *gojsonschema.Schema, out interface{}) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(resp.body))
	if err != nil {
		// the schema compiled, so the body is not JSON
		return &APIError{Op: op, StatusCode: resp.statusCode, Message: "response is not valid JSON"}
	}
	if !result.Valid() {
		verrStrs := make([]string, len(result.Errors()))
		for i, verr := range result.Errors() {
			verrStrs[i] = verr.String()
		}
		return &APIError{
			Op:         op,
			StatusCode: resp.statusCode,
			Message:    "malformed response: " + strings.Join(verrStrs, "; "),
		}
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return &APIError{Op: op, StatusCode: resp.statusCode, Message: fmt.Sprintf("decoding response: %v", err)}
	}
	return nil
}
