package wp

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"
)

// Customer meta keys holding the loyalty balances.
const (
	MetaPoints  = "pontos_vicere"
	MetaVicoins = "vicoins_vicere"
)

// Customer is the customer projection shared by the user-data endpoint and
// WooCommerce.
type Customer struct {
	ID        int64
	Email     string
	FirstName string
	LastName  string
	// Points and Vicoins are zero when the meta key is absent.
	Points  float64
	Vicoins float64
}

type customerFields struct {
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

// UserData fetches the denormalized profile from get_user_data_wp.php.
// Found is false when the backend has no WooCommerce customer for the user.
func (c *Client) UserData(ctx context.Context, userID int64, hdr http.Header) (Customer, bool, error) {
	const op = "get user data"
	resp, err := c.execute(ctx, apiRequest{
		op:          op,
		method:      http.MethodGet,
		url:         c.apiURL + "/get_user_data_wp.php",
		queryParams: map[string]string{"user_id": strconv.FormatInt(userID, 10)},
		headers:     hdr,
	})
	if err != nil {
		return Customer{}, false, err
	}
	if !resp.ok() {
		return Customer{}, false, statusError(op, resp.statusCode, "user data unavailable")
	}

	var body struct {
		Customer json.RawMessage `json:"customer"`
		Meta     json.RawMessage `json:"meta"`
	}
	if err := decode(op, resp, userDataSchema, &body); err != nil {
		return Customer{}, false, err
	}

	out := Customer{ID: userID}
	found := false
	if isObject(body.Customer) {
		var f customerFields
		if err := json.Unmarshal(body.Customer, &f); err != nil {
			return Customer{}, false, &APIError{Op: op, StatusCode: resp.statusCode, Message: "decoding customer: " + err.Error()}
		}
		out.Email = deref(f.Email)
		out.FirstName = deref(f.FirstName)
		out.LastName = deref(f.LastName)
		found = true
	}
	if isObject(body.Meta) {
		var meta map[string]json.RawMessage
		if err := json.Unmarshal(body.Meta, &meta); err == nil {
			out.Points = metaNumber(meta[MetaPoints])
			out.Vicoins = metaNumber(meta[MetaVicoins])
		}
	}
	return out, found, nil
}

// Customer fetches /wc/v2/customers/{id} using the WooCommerce consumer
// credentials.
func (c *Client) Customer(ctx context.Context, userID int64, hdr http.Header) (Customer, error) {
	const op = "get customer"
	resp, err := c.execute(ctx, apiRequest{
		op:        op,
		method:    http.MethodGet,
		url:       c.baseURL + "/wc/v2/customers/" + strconv.FormatInt(userID, 10),
		headers:   hdr,
		basicAuth: c.auth,
	})
	if err != nil {
		return Customer{}, err
	}
	if !resp.ok() {
		return Customer{}, statusError(op, resp.statusCode, "customer unavailable")
	}

	var body struct {
		ID        int64  `json:"id"`
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		MetaData  []struct {
			Key   string          `json:"key"`
			Value json.RawMessage `json:"value"`
		} `json:"meta_data"`
	}
	if err := decode(op, resp, customerSchema, &body); err != nil {
		return Customer{}, err
	}

	out := Customer{
		ID:        body.ID,
		Email:     body.Email,
		FirstName: body.FirstName,
		LastName:  body.LastName,
	}
	for _, m := range body.MetaData {
		switch m.Key {
		case MetaPoints:
			out.Points = metaNumber(m.Value)
		case MetaVicoins:
			out.Vicoins = metaNumber(m.Value)
		}
	}
	return out, nil
}

// metaNumber reads a WordPress meta value: a number, a numeric string, or
// the single-element array get_user_meta returns. Anything else is 0.
func metaNumber(raw json.RawMessage) float64 {
	b := bytes.TrimSpace(raw)
	if len(b) == 0 {
		return 0
	}
	switch b[0] {
	case '[':
		var arr []json.RawMessage
		if err := json.Unmarshal(b, &arr); err != nil || len(arr) == 0 {
			return 0
		}
		return metaNumber(arr[0])
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return 0
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0
		}
		return finite(f)
	default:
		var f float64
		if err := json.Unmarshal(b, &f); err != nil {
			return 0
		}
		return finite(f)
	}
}

// finite maps NaN and the infinities to 0.
func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
