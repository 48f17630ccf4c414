package devserver

import (
	"crypto/subtle"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/example/vicere/internal/cpf"
)

const (
	metaPoints  = "pontos_vicere"
	metaVicoins = "vicoins_vicere"
)

func formatMeta(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ConsumerAuth checks the WooCommerce consumer key and secret sent as
// basic auth.
func (s *Server) ConsumerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.consumerKey == "" && s.consumerSecret == "" {
			next.ServeHTTP(w, r)
			return
		}
		key, secret, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(key), []byte(s.consumerKey)) != 1 ||
			subtle.ConstantTimeCompare([]byte(secret), []byte(s.consumerSecret)) != 1 {
			writeRESTError(w, http.StatusUnauthorized, "woocommerce_rest_cannot_view", "Sorry, you cannot list resources.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// HandleUserData returns the customer fields and meta of the logged in
// user. Empty objects are encoded as [] like PHP does.
// GET /get_user_data_wp.php?user_id=
func (s *Server) HandleUserData(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || id <= 0 {
		writeRESTError(w, http.StatusBadRequest, "invalid_user_id", "user_id is required")
		return
	}
	if id != caller.ID {
		writeRESTError(w, http.StatusForbidden, "rest_forbidden", "Sorry, you are not allowed to do that.")
		return
	}

	var customer interface{} = []interface{}{}
	if caller.HasCustomer {
		customer = map[string]string{
			"email":      caller.Email,
			"first_name": caller.FirstName,
			"last_name":  caller.LastName,
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"customer": customer,
		"meta": map[string][]string{
			metaPoints:  {formatMeta(caller.Points)},
			metaVicoins: {formatMeta(caller.Vicoins)},
		},
	})
}

// HandleCustomer serves the WooCommerce customer resource.
// GET /wc/v2/customers/{id}
func (s *Server) HandleCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeRESTError(w, http.StatusBadRequest, "woocommerce_rest_invalid_id", "Invalid ID.")
		return
	}
	user, err := s.Users.ByID(id)
	if err != nil || !user.HasCustomer {
		writeRESTError(w, http.StatusNotFound, "woocommerce_rest_invalid_id", "Invalid resource ID.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":         user.ID,
		"email":      user.Email,
		"first_name": user.FirstName,
		"last_name":  user.LastName,
		"username":   user.Login,
		"role":       "customer",
		"meta_data": []map[string]interface{}{
			{"id": 1, "key": metaPoints, "value": formatMeta(user.Points)},
			{"id": 2, "key": metaVicoins, "value": formatMeta(user.Vicoins)},
		},
	})
}

// HandleCPFExists reports whether a customer is registered with the CPF.
// GET /verifica_cpf.class.php?cpf=
func (s *Server) HandleCPFExists(w http.ResponseWriter, r *http.Request) {
	doc := cpf.Strip(r.URL.Query().Get("cpf"))
	if len(doc) != cpf.Length {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"exists": false, "error": "CPF inválido"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"exists": s.Users.CPFRegistered(doc)})
}
